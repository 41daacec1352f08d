package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/mcdev12/foguetinho/go/internal/dbconfig"
	"github.com/mcdev12/foguetinho/go/internal/storage"
	"github.com/mcdev12/foguetinho/go/internal/storage/memstore"
	"github.com/mcdev12/foguetinho/go/internal/storage/sqlstore"
)

func setupDatabase(ctx context.Context, dbConfig dbconfig.Config) (storage.Store, error) {
	if dbConfig.Driver == dbconfig.DriverMemory {
		log.Warn().Msg("using in-memory store; data is lost on restart")
		return memstore.New(), nil
	}

	dsn, err := dbConfig.DSN()
	if err != nil {
		return nil, err
	}

	var dialect sqlstore.Dialect
	switch dbConfig.Driver {
	case dbconfig.DriverPostgres:
		dialect = sqlstore.DialectPostgres
	case dbconfig.DriverSQLite:
		dialect = sqlstore.DialectSQLite
	}

	store, err := sqlstore.Open(ctx, dialect, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s store: %w", dbConfig.Driver, err)
	}

	if dialect == sqlstore.DialectPostgres {
		log.Info().
			Str("user", dbConfig.User).
			Str("host", dbConfig.Host).
			Int("port", dbConfig.Port).
			Str("database", dbConfig.Database).
			Msg("connected to database")
	} else {
		log.Info().Str("path", dbConfig.SQLitePath).Msg("opened sqlite database")
	}
	return store, nil
}

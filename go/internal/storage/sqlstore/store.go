// Package sqlstore implements storage.Store on database/sql for Postgres (lib/pq)
// and SQLite (modernc.org/sqlite).
package sqlstore

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"
	"github.com/rs/zerolog/log"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/mcdev12/foguetinho/go/internal/models"
	"github.com/mcdev12/foguetinho/go/internal/sqlutil"
	"github.com/mcdev12/foguetinho/go/internal/storage"
)

// Dialect selects the SQL driver and placeholder style
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

//go:embed schema/*.sql
var schemaFS embed.FS

// Store provides a SQL-backed store implementing storage.Store.
type Store struct {
	db      *sql.DB
	dialect Dialect
	q       *Queries
}

var _ storage.Store = (*Store)(nil)

// Open connects, pings and applies the embedded schema for the dialect.
func Open(ctx context.Context, dialect Dialect, dsn string) (*Store, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("dsn is required")
	}

	var driverName string
	switch dialect {
	case DialectPostgres:
		driverName = "postgres"
	case DialectSQLite:
		driverName = "sqlite"
	default:
		return nil, fmt.Errorf("unsupported dialect %q", dialect)
	}

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s db: %w", dialect, err)
	}
	if dialect == DialectSQLite {
		// one writer; also keeps a ":memory:" database alive across calls
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s db: %w", dialect, err)
	}

	s := New(db, dialect)
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	log.Info().Str("dialect", string(dialect)).Msg("sql store ready")
	return s, nil
}

// New wraps an already-open database without applying the schema
func New(db *sql.DB, dialect Dialect) *Store {
	return &Store{
		db:      db,
		dialect: dialect,
		q:       newQueries(db, builderFor(dialect)),
	}
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) migrate(ctx context.Context) error {
	content, err := schemaFS.ReadFile(fmt.Sprintf("schema/%s.sql", s.dialect))
	if err != nil {
		return err
	}
	for _, stmt := range strings.Split(string(content), ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("exec %q: %w", firstLine(stmt), err)
		}
	}
	return nil
}

// withTx binds queries to a transaction for multi-statement writes
func (s *Store) withTx(ctx context.Context, fn func(q *Queries) error) error {
	return sqlutil.Run(ctx, s.db, s.q.WithTx, fn)
}

func builderFor(dialect Dialect) sq.StatementBuilderType {
	if dialect == DialectPostgres {
		return sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
	}
	return sq.StatementBuilder.PlaceholderFormat(sq.Question)
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

// isUniqueViolation recognises duplicate-key errors from both drivers
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		code := liteErr.Code()
		return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	return false
}

// CreateUser inserts a user; a taken name returns storage.ErrConflict
func (s *Store) CreateUser(ctx context.Context, user models.User) error {
	if err := s.q.InsertUser(ctx, user); err != nil {
		if isUniqueViolation(err) {
			return storage.ErrConflict
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetUser retrieves a user by ID
func (s *Store) GetUser(ctx context.Context, id string) (*models.User, error) {
	return s.q.GetUser(ctx, id)
}

// GetUserByName retrieves a user by display name
func (s *Store) GetUserByName(ctx context.Context, name string) (*models.User, error) {
	return s.q.GetUserByName(ctx, name)
}

// SetBalance overwrites a user's balance
func (s *Store) SetBalance(ctx context.Context, id string, balance int64) (*models.User, error) {
	var user *models.User
	err := s.withTx(ctx, func(q *Queries) error {
		if err := q.SetBalance(ctx, id, balance); err != nil {
			return err
		}
		var err error
		user, err = q.GetUser(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// TopUsers lists users by balance descending
func (s *Store) TopUsers(ctx context.Context, limit int) ([]models.User, error) {
	return s.q.TopUsers(ctx, limit)
}

// CreateRound inserts a round with no end time
func (s *Store) CreateRound(ctx context.Context, round models.Round) error {
	if err := s.q.InsertRound(ctx, round); err != nil {
		if isUniqueViolation(err) {
			return storage.ErrConflict
		}
		return fmt.Errorf("failed to create round: %w", err)
	}
	return nil
}

// GetRound retrieves a round by ID
func (s *Store) GetRound(ctx context.Context, id string) (*models.Round, error) {
	return s.q.GetRound(ctx, id)
}

// EndRound sets end time and crash multiplier if the round is still open
func (s *Store) EndRound(ctx context.Context, id string, endTime time.Time, crashMultiplier float64) error {
	return s.withTx(ctx, func(q *Queries) error {
		n, err := q.EndRound(ctx, id, endTime, crashMultiplier)
		if err != nil {
			return err
		}
		if n == 1 {
			return nil
		}
		if _, err := q.GetRound(ctx, id); err != nil {
			return err
		}
		return storage.ErrRoundClosed
	})
}

// PlaceBet debits the stake and inserts the pending bet in one transaction
func (s *Store) PlaceBet(ctx context.Context, bet models.Bet) (int64, error) {
	var balance int64
	err := s.withTx(ctx, func(q *Queries) error {
		n, err := q.AddBalance(ctx, bet.UserID, -bet.Amount)
		if err != nil {
			return err
		}
		if n == 0 {
			if _, err := q.GetUser(ctx, bet.UserID); err != nil {
				return err
			}
			return storage.ErrInsufficientFunds
		}
		if err := q.InsertBet(ctx, bet); err != nil {
			return fmt.Errorf("failed to insert bet: %w", err)
		}
		user, err := q.GetUser(ctx, bet.UserID)
		if err != nil {
			return err
		}
		balance = user.Balance
		return nil
	})
	return balance, err
}

// GetBet retrieves a bet by ID
func (s *Store) GetBet(ctx context.Context, id string) (*models.Bet, error) {
	return s.q.GetBet(ctx, id)
}

// ListUserBetsInRound lists every bet a user placed on a round
func (s *Store) ListUserBetsInRound(ctx context.Context, userID, roundID string) ([]models.Bet, error) {
	return s.q.ListUserBetsInRound(ctx, userID, roundID)
}

// SettleWin marks the bet won and credits the payout in one transaction
func (s *Store) SettleWin(ctx context.Context, betID string, atMultiplier float64, payout int64) (int64, error) {
	var balance int64
	err := s.withTx(ctx, func(q *Queries) error {
		bet, err := q.GetBet(ctx, betID)
		if err != nil {
			return err
		}
		n, err := q.MarkBetWon(ctx, betID, atMultiplier)
		if err != nil {
			return err
		}
		if n == 0 {
			return storage.ErrAlreadyResolved
		}
		if _, err := q.AddBalance(ctx, bet.UserID, payout); err != nil {
			return err
		}
		user, err := q.GetUser(ctx, bet.UserID)
		if err != nil {
			return err
		}
		balance = user.Balance
		return nil
	})
	return balance, err
}

// LoseOpenBets marks the round's pending bets as lost
func (s *Store) LoseOpenBets(ctx context.Context, roundID string) ([]models.Bet, error) {
	return s.q.LoseOpenBets(ctx, roundID)
}

// InsertOutbox appends an event to the outbox
func (s *Store) InsertOutbox(ctx context.Context, event storage.OutboxEvent) error {
	return s.q.InsertOutbox(ctx, event)
}

// FetchUnsentOutbox returns the oldest unsent events
func (s *Store) FetchUnsentOutbox(ctx context.Context, limit int) ([]storage.OutboxEvent, error) {
	return s.q.FetchUnsentOutbox(ctx, limit)
}

// MarkOutboxSent stamps the events as relayed
func (s *Store) MarkOutboxSent(ctx context.Context, ids []string, sentAt time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	return s.q.MarkOutboxSent(ctx, ids, sentAt)
}

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mcdev12/foguetinho/go/internal/dbconfig"
)

// SeedUser mirrors the JSON snapshot
type SeedUser struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Balance int64  `json:"balance"`
}

func loadUsers(path string) ([]SeedUser, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read JSON: %w", err)
	}
	var users []SeedUser
	if err := json.Unmarshal(data, &users); err != nil {
		return nil, fmt.Errorf("unmarshal JSON: %w", err)
	}
	for i := range users {
		users[i].Name = strings.TrimSpace(users[i].Name)
		if len([]rune(users[i].Name)) < 2 {
			return nil, fmt.Errorf("user %d: name %q is too short", i, users[i].Name)
		}
		if users[i].Balance < 0 {
			return nil, fmt.Errorf("user %q: negative balance", users[i].Name)
		}
		if users[i].ID == "" {
			users[i].ID = uuid.NewString()
		}
	}
	return users, nil
}

func main() {
	// 1) Load the JSON snapshot
	path := "go/internal/assets/users.json"
	if len(os.Args) > 1 {
		path = os.Args[1]
	}
	users, err := loadUsers(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	// 2) Connect using shared dbconfig
	cfg := dbconfig.NewConfigFromEnv()
	cfg.Driver = dbconfig.DriverPostgres
	dsn, err := cfg.DSN()
	if err != nil {
		fmt.Fprintf(os.Stderr, "build DSN: %v\n", err)
		os.Exit(1)
	}
	pool, err := pgxpool.New(context.Background(), dsn)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to connect: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	// 3) Insert and count
	var (
		total    = len(users)
		inserted int
		skipped  int
		errs     int
		now      = time.Now().UnixMilli()
	)

	for _, u := range users {
		cmdTag, err := pool.Exec(context.Background(), `
            INSERT INTO users (id, name, balance, created_at)
            VALUES ($1, $2, $3, $4)
            ON CONFLICT (name) DO NOTHING
        `, u.ID, u.Name, u.Balance, now)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error inserting user %s: %v\n", u.Name, err)
			errs++
			continue
		}
		if cmdTag.RowsAffected() == 1 {
			inserted++
		} else {
			skipped++
		}
	}

	// 4) Print summary
	fmt.Printf(
		"Users seed complete: %d total, %d inserted, %d skipped, %d errors\n",
		total, inserted, skipped, errs,
	)
}

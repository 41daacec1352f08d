// Package storage defines the persistence collaborator for users, rounds, bets and
// the event outbox. Implementations live in sqlstore and memstore.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/mcdev12/foguetinho/go/internal/models"
)

var (
	// ErrNotFound is returned when a keyed record does not exist
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a unique key is already taken
	ErrConflict = errors.New("conflict")
	// ErrInsufficientFunds is returned when a debit would make a balance negative
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrAlreadyResolved is returned when settling a bet that is no longer pending
	ErrAlreadyResolved = errors.New("bet already resolved")
	// ErrRoundClosed is returned when ending a round that already has an end time
	ErrRoundClosed = errors.New("round already closed")
)

// UserStore persists users and their balances
type UserStore interface {
	CreateUser(ctx context.Context, user models.User) error
	GetUser(ctx context.Context, id string) (*models.User, error)
	GetUserByName(ctx context.Context, name string) (*models.User, error)
	SetBalance(ctx context.Context, id string, balance int64) (*models.User, error)
	TopUsers(ctx context.Context, limit int) ([]models.User, error)
}

// RoundStore persists rounds
type RoundStore interface {
	CreateRound(ctx context.Context, round models.Round) error
	GetRound(ctx context.Context, id string) (*models.Round, error)
	// EndRound writes end time and crash multiplier once; a second call returns ErrRoundClosed.
	EndRound(ctx context.Context, id string, endTime time.Time, crashMultiplier float64) error
}

// BetStore persists bets. Balance side effects are applied in the same transaction.
type BetStore interface {
	// PlaceBet inserts a pending bet and debits the owner's balance, returning the new balance.
	PlaceBet(ctx context.Context, bet models.Bet) (int64, error)
	GetBet(ctx context.Context, id string) (*models.Bet, error)
	ListUserBetsInRound(ctx context.Context, userID, roundID string) ([]models.Bet, error)
	// SettleWin marks a pending bet as won and credits payout, returning the new balance.
	SettleWin(ctx context.Context, betID string, atMultiplier float64, payout int64) (int64, error)
	// LoseOpenBets marks every pending bet of the round as lost and returns them.
	LoseOpenBets(ctx context.Context, roundID string) ([]models.Bet, error)
}

// OutboxEvent is a published-later copy of a bus event
type OutboxEvent struct {
	ID        string          `json:"id"`
	EventType string          `json:"event_type"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
	SentAt    *time.Time      `json:"sent_at,omitempty"`
}

// OutboxStore persists events awaiting relay to the message bus
type OutboxStore interface {
	InsertOutbox(ctx context.Context, event OutboxEvent) error
	FetchUnsentOutbox(ctx context.Context, limit int) ([]OutboxEvent, error)
	MarkOutboxSent(ctx context.Context, ids []string, sentAt time.Time) error
}

// Store is the full persistence surface
type Store interface {
	UserStore
	RoundStore
	BetStore
	OutboxStore
	Close() error
}

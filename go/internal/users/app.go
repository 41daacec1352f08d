package users

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/foguetinho/go/internal/models"
	"github.com/mcdev12/foguetinho/go/internal/storage"
)

var (
	// ErrInvalidName is returned when a trimmed name is shorter than two characters
	ErrInvalidName = errors.New("invalid name")
	// ErrUserNotFound is returned for unknown user IDs
	ErrUserNotFound = errors.New("user not found")
)

// UsersStore defines what the app layer needs from storage
type UsersStore interface {
	CreateUser(ctx context.Context, user models.User) error
	GetUser(ctx context.Context, id string) (*models.User, error)
	GetUserByName(ctx context.Context, name string) (*models.User, error)
	TopUsers(ctx context.Context, limit int) ([]models.User, error)
}

// App handles users business logic
type App struct {
	store          UsersStore
	initialBalance int64
	clock          clockwork.Clock
}

// NewApp creates a new users App. A non-positive initialBalance falls back to
// DefaultInitialBalance.
func NewApp(store UsersStore, initialBalance int64, clock clockwork.Clock) *App {
	if initialBalance <= 0 {
		initialBalance = DefaultInitialBalance
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &App{
		store:          store,
		initialBalance: initialBalance,
		clock:          clock,
	}
}

// SignUp returns the user with the given name, creating it with the initial
// balance if none exists.
func (a *App) SignUp(ctx context.Context, name string) (*models.User, error) {
	name = strings.TrimSpace(name)
	if utf8.RuneCountInString(name) < minNameLength {
		return nil, ErrInvalidName
	}

	existing, err := a.store.GetUserByName(ctx, name)
	switch {
	case err == nil:
		return existing, nil
	case !errors.Is(err, storage.ErrNotFound):
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	user := models.User{
		ID:        uuid.NewString(),
		Name:      name,
		Balance:   a.initialBalance,
		CreatedAt: a.clock.Now().UTC(),
	}
	if err := a.store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			// lost a race with a concurrent signup for the same name
			return a.store.GetUserByName(ctx, name)
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	log.Info().Str("user_id", user.ID).Str("name", user.Name).Msg("user created")
	return &user, nil
}

// GetUser retrieves a user by ID
func (a *App) GetUser(ctx context.Context, id string) (*models.User, error) {
	user, err := a.store.GetUser(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// Ranking returns the richest users, highest balance first
func (a *App) Ranking(ctx context.Context) ([]RankingEntry, error) {
	top, err := a.store.TopUsers(ctx, RankingSize)
	if err != nil {
		return nil, fmt.Errorf("failed to load ranking: %w", err)
	}
	entries := make([]RankingEntry, 0, len(top))
	for _, u := range top {
		entries = append(entries, toRankingEntry(u))
	}
	return entries, nil
}

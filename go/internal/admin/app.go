// Package admin gates scheduler overrides behind operator sessions.
package admin

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/mcdev12/foguetinho/go/internal/models"
)

// ErrUnauthorized is returned for bad credentials and for any invalid or expired token
var ErrUnauthorized = errors.New("unauthorized")

// Scheduler defines the overrides the admin can apply
type Scheduler interface {
	SetMode(ctx context.Context, mode models.Mode) error
	ForceCrash(ctx context.Context) (bool, error)
}

// Ledger defines the balance override the admin can apply
type Ledger interface {
	ResetBalance(ctx context.Context, userID string, balance int64) (*models.User, error)
}

// Credentials is the single operator login
type Credentials struct {
	User     string
	Password string
}

// Session is an issued admin token
type Session struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// App handles admin business logic
type App struct {
	creds    Credentials
	sessions *SessionStore
	sched    Scheduler
	ledger   Ledger
}

// NewApp creates a new admin App
func NewApp(creds Credentials, sessions *SessionStore, sched Scheduler, ledger Ledger) *App {
	return &App{
		creds:    creds,
		sessions: sessions,
		sched:    sched,
		ledger:   ledger,
	}
}

// Login checks credentials and issues a token
func (a *App) Login(user, password string) (*Session, error) {
	if a.creds.User == "" || a.creds.Password == "" {
		return nil, ErrUnauthorized
	}
	userOK := subtle.ConstantTimeCompare([]byte(user), []byte(a.creds.User)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(password), []byte(a.creds.Password)) == 1
	if !userOK || !passOK {
		log.Warn().Str("user", user).Msg("admin login rejected")
		return nil, ErrUnauthorized
	}

	token, expiresAt, err := a.sessions.Issue()
	if err != nil {
		return nil, fmt.Errorf("failed to issue session: %w", err)
	}
	log.Info().Time("expires_at", expiresAt).Msg("admin session issued")
	return &Session{Token: token, ExpiresAt: expiresAt}, nil
}

// Authorize reports whether token belongs to a live session
func (a *App) Authorize(token string) error {
	if !a.sessions.Valid(token) {
		return ErrUnauthorized
	}
	return nil
}

// Logout revokes a token
func (a *App) Logout(token string) error {
	if !a.sessions.Valid(token) {
		return ErrUnauthorized
	}
	a.sessions.Revoke(token)
	return nil
}

// SetMode switches the scheduler mode
func (a *App) SetMode(ctx context.Context, token string, mode models.Mode) (models.Mode, error) {
	if !a.sessions.Valid(token) {
		return "", ErrUnauthorized
	}
	if err := a.sched.SetMode(ctx, mode); err != nil {
		return "", err
	}
	return mode, nil
}

// ForceCrash ends the running round; false means no round was running
func (a *App) ForceCrash(ctx context.Context, token string) (bool, error) {
	if !a.sessions.Valid(token) {
		return false, ErrUnauthorized
	}
	return a.sched.ForceCrash(ctx)
}

// ResetBalance overwrites a user's balance
func (a *App) ResetBalance(ctx context.Context, token, userID string, balance int64) (*models.User, error) {
	if !a.sessions.Valid(token) {
		return nil, ErrUnauthorized
	}
	return a.ledger.ResetBalance(ctx, userID, balance)
}

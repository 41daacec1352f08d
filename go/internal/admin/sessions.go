package admin

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

const (
	tokenBytes = 32
	// DefaultSessionTTL is how long an admin token stays valid
	DefaultSessionTTL = 2 * time.Hour
)

// SessionStore keeps admin tokens in memory with a fixed expiry
type SessionStore struct {
	mu     sync.Mutex
	tokens map[string]time.Time // token -> expiry
	ttl    time.Duration
	clock  clockwork.Clock
}

// NewSessionStore creates an empty store
func NewSessionStore(ttl time.Duration, clock clockwork.Clock) *SessionStore {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &SessionStore{
		tokens: make(map[string]time.Time),
		ttl:    ttl,
		clock:  clock,
	}
}

// Issue creates a new random token
func (s *SessionStore) Issue() (string, time.Time, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", time.Time{}, fmt.Errorf("generate token: %w", err)
	}
	token := hex.EncodeToString(buf)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.purgeLocked()
	expiresAt := s.clock.Now().Add(s.ttl)
	s.tokens[token] = expiresAt
	return token, expiresAt, nil
}

// Valid reports whether token exists and has not expired
func (s *SessionStore) Valid(token string) bool {
	if token == "" {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.purgeLocked()
	_, ok := s.tokens[token]
	return ok
}

// Revoke removes a token
func (s *SessionStore) Revoke(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens, token)
}

// Len returns the number of live tokens
func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.purgeLocked()
	return len(s.tokens)
}

func (s *SessionStore) purgeLocked() {
	now := s.clock.Now()
	for token, expiresAt := range s.tokens {
		if !now.Before(expiresAt) {
			delete(s.tokens, token)
		}
	}
}

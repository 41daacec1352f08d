// Package memstore is an in-process storage.Store used by the "memory" driver and unit tests.
package memstore

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/mcdev12/foguetinho/go/internal/models"
	"github.com/mcdev12/foguetinho/go/internal/storage"
)

// Store keeps every record in maps guarded by one mutex
type Store struct {
	mu     sync.Mutex
	users  map[string]*models.User
	names  map[string]string
	rounds map[string]*models.Round
	bets   map[string]*models.Bet
	order  []string
	outbox []storage.OutboxEvent
}

var _ storage.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		users:  make(map[string]*models.User),
		names:  make(map[string]string),
		rounds: make(map[string]*models.Round),
		bets:   make(map[string]*models.Bet),
	}
}

func (s *Store) Close() error { return nil }

func (s *Store) CreateUser(_ context.Context, user models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[user.ID]; ok {
		return storage.ErrConflict
	}
	if _, ok := s.names[user.Name]; ok {
		return storage.ErrConflict
	}
	u := user
	s.users[u.ID] = &u
	s.names[u.Name] = u.ID
	return nil
}

func (s *Store) GetUser(_ context.Context, id string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *Store) GetUserByName(ctx context.Context, name string) (*models.User, error) {
	s.mu.Lock()
	id, ok := s.names[name]
	s.mu.Unlock()
	if !ok {
		return nil, storage.ErrNotFound
	}
	return s.GetUser(ctx, id)
}

func (s *Store) SetBalance(_ context.Context, id string, balance int64) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	u.Balance = balance
	cp := *u
	return &cp, nil
}

func (s *Store) TopUsers(_ context.Context, limit int) ([]models.User, error) {
	s.mu.Lock()
	users := make([]models.User, 0, len(s.users))
	for _, u := range s.users {
		users = append(users, *u)
	}
	s.mu.Unlock()

	sort.Slice(users, func(i, j int) bool {
		if users[i].Balance != users[j].Balance {
			return users[i].Balance > users[j].Balance
		}
		return users[i].CreatedAt.Before(users[j].CreatedAt)
	})
	if limit >= 0 && len(users) > limit {
		users = users[:limit]
	}
	return users, nil
}

func (s *Store) CreateRound(_ context.Context, round models.Round) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.rounds[round.ID]; ok {
		return storage.ErrConflict
	}
	r := round
	r.EndTime = nil
	r.CrashMultiplier = nil
	s.rounds[r.ID] = &r
	return nil
}

func (s *Store) GetRound(_ context.Context, id string) (*models.Round, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.rounds[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (s *Store) EndRound(_ context.Context, id string, endTime time.Time, crashMultiplier float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.rounds[id]
	if !ok {
		return storage.ErrNotFound
	}
	if r.Closed() {
		return storage.ErrRoundClosed
	}
	end, crash := endTime, crashMultiplier
	r.EndTime = &end
	r.CrashMultiplier = &crash
	return nil
}

func (s *Store) PlaceBet(_ context.Context, bet models.Bet) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[bet.UserID]
	if !ok {
		return 0, storage.ErrNotFound
	}
	if _, ok := s.rounds[bet.RoundID]; !ok {
		return 0, storage.ErrNotFound
	}
	if _, ok := s.bets[bet.ID]; ok {
		return 0, storage.ErrConflict
	}
	if u.Balance < bet.Amount {
		return 0, storage.ErrInsufficientFunds
	}
	u.Balance -= bet.Amount

	b := bet
	b.Result = models.BetResultPending
	b.CashedOutAt = nil
	s.bets[b.ID] = &b
	s.order = append(s.order, b.ID)
	return u.Balance, nil
}

func (s *Store) GetBet(_ context.Context, id string) (*models.Bet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.bets[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *b
	return &cp, nil
}

func (s *Store) ListUserBetsInRound(_ context.Context, userID, roundID string) ([]models.Bet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var bets []models.Bet
	for _, id := range s.order {
		b := s.bets[id]
		if b.UserID == userID && b.RoundID == roundID {
			bets = append(bets, *b)
		}
	}
	return bets, nil
}

func (s *Store) SettleWin(_ context.Context, betID string, atMultiplier float64, payout int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.bets[betID]
	if !ok {
		return 0, storage.ErrNotFound
	}
	if !b.Pending() {
		return 0, storage.ErrAlreadyResolved
	}
	u, ok := s.users[b.UserID]
	if !ok {
		return 0, storage.ErrNotFound
	}
	at := atMultiplier
	b.CashedOutAt = &at
	b.Result = models.BetResultWin
	u.Balance += payout
	return u.Balance, nil
}

func (s *Store) LoseOpenBets(_ context.Context, roundID string) ([]models.Bet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var lost []models.Bet
	for _, id := range s.order {
		b := s.bets[id]
		if b.RoundID == roundID && b.Pending() {
			b.Result = models.BetResultLose
			lost = append(lost, *b)
		}
	}
	return lost, nil
}

func (s *Store) InsertOutbox(_ context.Context, event storage.OutboxEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := event
	e.SentAt = nil
	s.outbox = append(s.outbox, e)
	return nil
}

func (s *Store) FetchUnsentOutbox(_ context.Context, limit int) ([]storage.OutboxEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := max(0, min(limit, len(s.outbox)))
	return slices.Clone(s.outbox[:n]), nil
}

// MarkOutboxSent drops relayed rows; the in-memory outbox only keeps pending ones
func (s *Store) MarkOutboxSent(_ context.Context, ids []string, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sent := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		sent[id] = struct{}{}
	}
	s.outbox = slices.DeleteFunc(s.outbox, func(e storage.OutboxEvent) bool {
		_, ok := sent[e.ID]
		return ok
	})
	return nil
}

// Package ledger applies bets and cash-outs against the active round and user
// balances, and resolves unclosed bets when a round ends.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/bits"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/foguetinho/go/internal/events"
	"github.com/mcdev12/foguetinho/go/internal/game"
	"github.com/mcdev12/foguetinho/go/internal/metrics"
	"github.com/mcdev12/foguetinho/go/internal/models"
	"github.com/mcdev12/foguetinho/go/internal/storage"
)

// Scheduler serialises ledger operations with round processing
type Scheduler interface {
	Exec(ctx context.Context, fn func(ctx context.Context, snap game.Snapshot) error) error
}

// Store defines what the ledger needs from persistence
type Store interface {
	GetUser(ctx context.Context, id string) (*models.User, error)
	SetBalance(ctx context.Context, id string, balance int64) (*models.User, error)
	PlaceBet(ctx context.Context, bet models.Bet) (int64, error)
	GetBet(ctx context.Context, id string) (*models.Bet, error)
	ListUserBetsInRound(ctx context.Context, userID, roundID string) ([]models.Bet, error)
	SettleWin(ctx context.Context, betID string, atMultiplier float64, payout int64) (int64, error)
	LoseOpenBets(ctx context.Context, roundID string) ([]models.Bet, error)
}

// BetReceipt is the result of a placed bet
type BetReceipt struct {
	BetID      string `json:"betId"`
	RoundID    string `json:"roundId"`
	NewBalance int64  `json:"newBalance"`
}

// CashoutReceipt is the result of a cash-out
type CashoutReceipt struct {
	BetID        string  `json:"betId"`
	AtMultiplier float64 `json:"atMultiplier"`
	Payout       int64   `json:"payout"`
	Balance      int64   `json:"balance"`
}

// App handles wager business logic
type App struct {
	store Store
	sched Scheduler
	bus   events.Publisher
	clock clockwork.Clock
}

// NewApp creates a new ledger App
func NewApp(store Store, sched Scheduler, bus events.Publisher, clock clockwork.Clock) *App {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &App{
		store: store,
		sched: sched,
		bus:   bus,
		clock: clock,
	}
}

// PlaceBet debits amount and records a pending bet on the round accepting bets
func (a *App) PlaceBet(ctx context.Context, userID string, amount int64) (*BetReceipt, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	var receipt *BetReceipt
	err := a.sched.Exec(ctx, func(ctx context.Context, snap game.Snapshot) error {
		if !snap.AcceptingBets() {
			return ErrNoActiveRound
		}

		user, err := a.store.GetUser(ctx, userID)
		if err != nil {
			return mapStoreErr(err, ErrUserNotFound)
		}

		bets, err := a.store.ListUserBetsInRound(ctx, userID, snap.RoundID)
		if err != nil {
			return fmt.Errorf("failed to list round bets: %w", err)
		}
		var pending int64
		for _, b := range bets {
			if b.Pending() {
				pending += b.Amount
			}
		}

		if amount > user.Balance {
			return ErrInsufficientBalance
		}
		if pending > user.Balance-amount {
			return ErrExceedsAvailable
		}

		bet := models.Bet{
			ID:        uuid.NewString(),
			UserID:    userID,
			RoundID:   snap.RoundID,
			Amount:    amount,
			Result:    models.BetResultPending,
			CreatedAt: a.clock.Now(),
		}
		balance, err := a.store.PlaceBet(ctx, bet)
		if err != nil {
			return mapStoreErr(err, ErrUserNotFound)
		}

		log.Info().
			Str("user_id", userID).
			Str("round_id", snap.RoundID).
			Str("bet_id", bet.ID).
			Int64("amount", amount).
			Msg("bet placed")

		a.bus.Publish(ctx, events.NewBetPlaced(userID, snap.RoundID, bet.ID, amount))
		receipt = &BetReceipt{BetID: bet.ID, RoundID: snap.RoundID, NewBalance: balance}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return receipt, nil
}

// CashOut settles a pending bet of the running round. The multiplier is the
// scheduler's current one; a lower positive requested value is honoured.
func (a *App) CashOut(ctx context.Context, userID, betID string, requested float64) (*CashoutReceipt, error) {
	if math.IsNaN(requested) || math.IsInf(requested, 0) || requested < 0 {
		return nil, fmt.Errorf("%w: multiplier", ErrInvalidAmount)
	}

	var receipt *CashoutReceipt
	err := a.sched.Exec(ctx, func(ctx context.Context, snap game.Snapshot) error {
		bet, err := a.store.GetBet(ctx, betID)
		if err != nil {
			return mapStoreErr(err, ErrBetNotFound)
		}
		if bet.UserID != userID {
			return ErrBetNotFound
		}
		if !bet.Pending() {
			return ErrBetResolved
		}
		if !snap.Running() || bet.RoundID != snap.RoundID {
			return ErrRoundClosed
		}

		cents := toCents(snap.Multiplier)
		if requested > 0 {
			cents = min(cents, toCents(requested))
		}
		cents = max(cents, 100)
		at := float64(cents) / 100
		payout, err := a.payout(ctx, bet, cents)
		if err != nil {
			return err
		}

		balance, err := a.store.SettleWin(ctx, bet.ID, at, payout)
		if err != nil {
			return mapStoreErr(err, ErrBetNotFound)
		}

		log.Info().
			Str("user_id", userID).
			Str("round_id", bet.RoundID).
			Str("bet_id", bet.ID).
			Float64("multiplier", at).
			Int64("payout", payout).
			Msg("bet cashed out")

		a.bus.Publish(ctx, events.NewCashout(userID, bet.ID, at, payout, balance))
		receipt = &CashoutReceipt{BetID: bet.ID, AtMultiplier: at, Payout: payout, Balance: balance}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return receipt, nil
}

// payout returns floor(amount*cents/100), refusing results that would not fit
// the user's balance.
func (a *App) payout(ctx context.Context, bet *models.Bet, cents int64) (int64, error) {
	hi, lo := bits.Mul64(uint64(bet.Amount), uint64(cents))
	if hi != 0 || lo > math.MaxInt64 {
		return 0, ErrPayoutOverflow
	}
	payout := int64(lo / 100)

	user, err := a.store.GetUser(ctx, bet.UserID)
	if err != nil {
		return 0, mapStoreErr(err, ErrUserNotFound)
	}
	if user.Balance > math.MaxInt64-payout {
		return 0, ErrPayoutOverflow
	}
	return payout, nil
}

// ResolveRound marks every pending bet of the round as lost. Repeating it is a no-op.
func (a *App) ResolveRound(ctx context.Context, roundID string) ([]models.Bet, error) {
	var lost []models.Bet
	err := a.sched.Exec(ctx, func(ctx context.Context, _ game.Snapshot) error {
		var err error
		lost, err = a.resolveRound(ctx, roundID)
		return err
	})
	return lost, err
}

func (a *App) resolveRound(ctx context.Context, roundID string) ([]models.Bet, error) {
	lost, err := a.store.LoseOpenBets(ctx, roundID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve round %s: %w", roundID, err)
	}
	if len(lost) > 0 {
		log.Info().Str("round_id", roundID).Int("lost", len(lost)).Msg("pending bets resolved as lost")
		metrics.RecordBetsLost(len(lost))
	}
	return lost, nil
}

// ResetBalance overwrites a user's balance and announces it
func (a *App) ResetBalance(ctx context.Context, userID string, balance int64) (*models.User, error) {
	if balance < 0 || balance > MaxBalance {
		return nil, ErrInvalidBalance
	}

	var user *models.User
	err := a.sched.Exec(ctx, func(ctx context.Context, _ game.Snapshot) error {
		var err error
		user, err = a.store.SetBalance(ctx, userID, balance)
		if err != nil {
			return mapStoreErr(err, ErrUserNotFound)
		}
		log.Info().Str("user_id", userID).Int64("balance", balance).Msg("balance reset")
		a.bus.Publish(ctx, events.NewBalanceReset(userID, balance))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// HandleEvent resolves pending bets when a round ends. It runs on the
// scheduler goroutine, inside the closing phase, so it must not call Exec.
func (a *App) HandleEvent(ctx context.Context, ev events.Event) {
	end, ok := ev.(events.RoundEndPayload)
	if !ok {
		return
	}
	if _, err := a.resolveRound(ctx, end.RoundID); err != nil {
		log.Error().Err(err).Str("round_id", end.RoundID).Msg("end-of-round sweep failed")
	}
}

// toCents truncates a multiplier to hundredths
func toCents(m float64) int64 {
	return int64(math.Floor(m*100 + 1e-6))
}

func mapStoreErr(err, notFound error) error {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return notFound
	case errors.Is(err, storage.ErrInsufficientFunds):
		return ErrInsufficientBalance
	case errors.Is(err, storage.ErrAlreadyResolved):
		return ErrBetResolved
	default:
		return err
	}
}

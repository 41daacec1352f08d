package ledger

import "errors"

// MaxBalance bounds balances set by an operator or by configuration
const MaxBalance int64 = 1_000_000_000_000

var (
	ErrInvalidAmount       = errors.New("amount must be a positive integer")
	ErrUserNotFound        = errors.New("user not found")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrExceedsAvailable    = errors.New("bet exceeds available balance for this round")
	ErrBetNotFound         = errors.New("bet not found")
	ErrBetResolved         = errors.New("bet already resolved")
	ErrRoundClosed         = errors.New("bet round is no longer running")
	ErrNoActiveRound       = errors.New("no round is accepting bets")
	ErrInvalidBalance      = errors.New("balance must be between 0 and 1000000000000")
	ErrPayoutOverflow      = errors.New("payout exceeds the maximum balance")
)

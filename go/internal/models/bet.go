package models

import (
	"time"
)

// BetResult defines the outcome of a bet. Pending bets are stored without a result.
type BetResult string

const (
	BetResultPending BetResult = "pending"
	BetResultWin     BetResult = "win"
	BetResultLose    BetResult = "lose"
)

// Bet represents a wager placed by a user on a round.
type Bet struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	RoundID     string    `json:"round_id"`
	Amount      int64     `json:"amount"`
	CashedOutAt *float64  `json:"cashed_out_at_multiplier,omitempty"`
	Result      BetResult `json:"result"`
	CreatedAt   time.Time `json:"created_at"`
}

// Pending reports whether the bet has not been resolved yet.
func (b Bet) Pending() bool {
	return b.Result == BetResultPending || b.Result == ""
}

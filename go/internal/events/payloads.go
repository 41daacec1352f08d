package events

import (
	"math"
	"time"

	"github.com/mcdev12/foguetinho/go/internal/models"
)

// Type is the discriminator carried in the "type" field of every event.
type Type string

const (
	TypeHello        Type = "hello"
	TypeTick         Type = "tick"
	TypeRoundStart   Type = "round_start"
	TypeRoundEnd     Type = "round_end"
	TypeBetPlaced    Type = "bet_placed"
	TypeCashout      Type = "cashout"
	TypeBalanceReset Type = "balance_reset"
)

// Event is any payload that can travel on the bus and the push channel.
type Event interface {
	EventType() Type
}

// HelloPayload is sent once to a subscriber when it connects
type HelloPayload struct {
	Type    Type   `json:"type"`
	RoundID string `json:"roundId"`
}

// TickPayload carries the displayed multiplier of the running round
type TickPayload struct {
	Type       Type     `json:"type"`
	RoundID    string   `json:"roundId"`
	Multiplier float64  `json:"multiplier"`
	CrashAt    *float64 `json:"crashAt"`
}

// RoundStartPayload is the payload for a round_start event
type RoundStartPayload struct {
	Type      Type      `json:"type"`
	RoundID   string    `json:"roundId"`
	StartTime time.Time `json:"startTime"`
	CrashAt   *float64  `json:"crashAt"`
}

// RoundEndPayload is the payload for a round_end event. CrashAt is the final multiplier.
type RoundEndPayload struct {
	Type        Type      `json:"type"`
	RoundID     string    `json:"roundId"`
	EndTime     time.Time `json:"endTime"`
	CrashAt     float64   `json:"crashAt"`
	NextStartAt *int64    `json:"nextStartAt,omitempty"` // epoch millis

	// process-local annotations, not part of the wire shape
	Reason EndReason   `json:"-"`
	Mode   models.Mode `json:"-"`
}

// EndReason tells why a round ended
type EndReason string

const (
	EndReasonNatural EndReason = "natural"
	EndReasonForced  EndReason = "forced"
)

// BetPlacedPayload is the payload for a bet_placed event
type BetPlacedPayload struct {
	Type    Type   `json:"type"`
	UserID  string `json:"userId"`
	RoundID string `json:"roundId"`
	BetID   string `json:"betId"`
	Amount  int64  `json:"amount"`
}

// CashoutPayload is the payload for a cashout event
type CashoutPayload struct {
	Type         Type    `json:"type"`
	UserID       string  `json:"userId"`
	BetID        string  `json:"betId"`
	AtMultiplier float64 `json:"atMultiplier"`
	Payout       int64   `json:"payout"`
	Balance      int64   `json:"balance"`
}

// BalanceResetPayload is the payload for a balance_reset event
type BalanceResetPayload struct {
	Type    Type   `json:"type"`
	UserID  string `json:"userId"`
	Balance int64  `json:"balance"`
}

func (HelloPayload) EventType() Type        { return TypeHello }
func (TickPayload) EventType() Type         { return TypeTick }
func (RoundStartPayload) EventType() Type   { return TypeRoundStart }
func (RoundEndPayload) EventType() Type     { return TypeRoundEnd }
func (BetPlacedPayload) EventType() Type    { return TypeBetPlaced }
func (CashoutPayload) EventType() Type      { return TypeCashout }
func (BalanceResetPayload) EventType() Type { return TypeBalanceReset }

func NewHello(roundID string) HelloPayload {
	return HelloPayload{Type: TypeHello, RoundID: roundID}
}

func NewTick(roundID string, multiplier, crashAt float64) TickPayload {
	return TickPayload{Type: TypeTick, RoundID: roundID, Multiplier: multiplier, CrashAt: Threshold(crashAt)}
}

func NewRoundStart(roundID string, startTime time.Time, crashAt float64) RoundStartPayload {
	return RoundStartPayload{Type: TypeRoundStart, RoundID: roundID, StartTime: startTime, CrashAt: Threshold(crashAt)}
}

func NewRoundEnd(roundID string, endTime time.Time, crashAt float64, nextStartAt *time.Time) RoundEndPayload {
	p := RoundEndPayload{Type: TypeRoundEnd, RoundID: roundID, EndTime: endTime, CrashAt: crashAt}
	if nextStartAt != nil {
		ms := nextStartAt.UnixMilli()
		p.NextStartAt = &ms
	}
	return p
}

func NewBetPlaced(userID, roundID, betID string, amount int64) BetPlacedPayload {
	return BetPlacedPayload{Type: TypeBetPlaced, UserID: userID, RoundID: roundID, BetID: betID, Amount: amount}
}

func NewCashout(userID, betID string, atMultiplier float64, payout, balance int64) CashoutPayload {
	return CashoutPayload{Type: TypeCashout, UserID: userID, BetID: betID, AtMultiplier: atMultiplier, Payout: payout, Balance: balance}
}

func NewBalanceReset(userID string, balance int64) BalanceResetPayload {
	return BalanceResetPayload{Type: TypeBalanceReset, UserID: userID, Balance: balance}
}

// Threshold converts a crash threshold to its wire form. An unbounded threshold
// (manual mode) has no JSON number representation and is sent as null.
func Threshold(v float64) *float64 {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return nil
	}
	return &v
}

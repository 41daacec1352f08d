package game

import (
	"math"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/mcdev12/foguetinho/go/internal/models"
)

// Phase is the lifecycle position of the scheduler
type Phase string

const (
	PhaseIdle    Phase = "idle"
	PhaseRunning Phase = "running"
	PhaseClosing Phase = "closing"
	PhaseWaiting Phase = "waiting"
	PhaseStopped Phase = "stopped"
)

// roundState is owned by the scheduler goroutine and never shared
type roundState struct {
	phase Phase
	mode  models.Mode

	roundID   string
	allocated bool // roundID is persisted and awaiting its start
	startedAt time.Time

	multiplier float64
	threshold  float64

	nextStartAt *time.Time

	ticker clockwork.Ticker
	timer  clockwork.Timer
}

func (st *roundState) tickC() <-chan time.Time {
	if st.ticker == nil {
		return nil
	}
	return st.ticker.Chan()
}

func (st *roundState) timerC() <-chan time.Time {
	if st.timer == nil {
		return nil
	}
	return st.timer.Chan()
}

func (st *roundState) stopTicker() {
	if st.ticker != nil {
		st.ticker.Stop()
		st.ticker = nil
	}
}

func (st *roundState) stopTimer() {
	if st.timer != nil {
		stopAndDrainTimer(st.timer)
		st.timer = nil
	}
}

// stopAndDrainTimer stops a timer and drains its channel if it already fired
func stopAndDrainTimer(timer clockwork.Timer) {
	if !timer.Stop() {
		select {
		case <-timer.Chan():
		default:
		}
	}
}

func (st *roundState) snapshot() Snapshot {
	snap := Snapshot{
		RoundID:    st.roundID,
		Phase:      st.phase,
		Mode:       st.mode,
		Multiplier: st.multiplier,
		Threshold:  st.threshold,
		StartedAt:  st.startedAt,
	}
	if st.nextStartAt != nil {
		t := *st.nextStartAt
		snap.NextStartAt = &t
	}
	return snap
}

// Snapshot is a consistent copy of the round state
type Snapshot struct {
	RoundID     string
	Phase       Phase
	Mode        models.Mode
	Multiplier  float64
	Threshold   float64 // +Inf while unbounded
	StartedAt   time.Time
	NextStartAt *time.Time
}

// Running reports whether a round is in progress
func (s Snapshot) Running() bool {
	return s.Phase == PhaseRunning && s.RoundID != ""
}

// AcceptingBets reports whether a bet can be attached to RoundID: the round is
// running or it is allocated and waiting for its start.
func (s Snapshot) AcceptingBets() bool {
	return s.RoundID != "" && (s.Phase == PhaseRunning || s.Phase == PhaseWaiting)
}

// Unbounded reports whether the threshold cannot end the round
func (s Snapshot) Unbounded() bool {
	return math.IsInf(s.Threshold, 1)
}

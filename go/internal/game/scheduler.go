// Package game runs the round loop: it owns the active round, advances its
// multiplier on a fixed cadence and decides when the round crashes.
package game

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/foguetinho/go/internal/events"
	"github.com/mcdev12/foguetinho/go/internal/models"
	"github.com/mcdev12/foguetinho/go/internal/storage"
)

var (
	// ErrNotRunning is returned for commands sent before Start or after Stop
	ErrNotRunning = errors.New("scheduler is not running")
	// ErrInvalidMode is returned by SetMode for unknown modes
	ErrInvalidMode = errors.New("invalid mode")
)

// Clock is the interface we use for time operations.
// In production, use clockwork.NewRealClock(). In tests, a FakeClock.
type Clock interface {
	Now() time.Time
	NewTicker(d time.Duration) clockwork.Ticker
	NewTimer(d time.Duration) clockwork.Timer
}

type lifecycle int

const (
	lifecycleIdle lifecycle = iota
	lifecycleRunning
	lifecycleStopped
)

type command struct {
	ctx  context.Context
	fn   func(ctx context.Context, st *roundState)
	done chan struct{}
}

// Scheduler is a single goroutine owning the round state. Every external
// operation is a command executed on that goroutine, so tick processing, round
// transitions and ledger operations never interleave.
type Scheduler struct {
	rounds  storage.RoundStore
	bus     events.Publisher
	sampler ThresholdSampler
	clock   Clock
	cfg     Config

	cmdCh chan command
	quit  chan struct{}
	done  chan struct{}

	mu        sync.Mutex
	lifecycle lifecycle
	stopOnce  sync.Once

	state roundState
}

// Option customises a Scheduler
type Option func(*Scheduler)

// WithClock replaces the real clock
func WithClock(c Clock) Option {
	return func(s *Scheduler) { s.clock = c }
}

// WithSampler replaces the crash-threshold sampler
func WithSampler(sampler ThresholdSampler) Option {
	return func(s *Scheduler) { s.sampler = sampler }
}

// WithConfig overrides the timing constants; zero fields keep their defaults
func WithConfig(cfg Config) Option {
	return func(s *Scheduler) { s.cfg = cfg.withDefaults() }
}

// WithMode sets the mode the first round starts in
func WithMode(mode models.Mode) Option {
	return func(s *Scheduler) {
		if mode.Valid() {
			s.state.mode = mode
		}
	}
}

// NewScheduler creates an idle scheduler
func NewScheduler(rounds storage.RoundStore, bus events.Publisher, opts ...Option) *Scheduler {
	s := &Scheduler{
		rounds:  rounds,
		bus:     bus,
		sampler: NewExponentialSampler(uint64(time.Now().UnixNano()), 0x9e3779b97f4a7c15),
		clock:   clockwork.NewRealClock(),
		cfg:     DefaultConfig(),
		cmdCh:   make(chan command),
		quit:    make(chan struct{}),
		done:    make(chan struct{}),
		state: roundState{
			phase:      PhaseIdle,
			mode:       models.ModeAuto,
			multiplier: 1,
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start begins the first round. Calling it again, or after Stop, is a no-op.
// The loop ends when ctx is cancelled or Stop is called.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lifecycle != lifecycleIdle {
		return
	}
	s.lifecycle = lifecycleRunning
	go s.run(ctx)
}

// Stop cancels the periodic task and waits for the loop to exit.
// The scheduler is inert afterwards.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		s.mu.Lock()
		started := s.lifecycle == lifecycleRunning
		s.lifecycle = lifecycleStopped
		s.mu.Unlock()

		close(s.quit)
		if !started {
			close(s.done)
		}
	})
	<-s.done
}

// SetMode switches between auto and manual. Switching to manual makes the
// current round's threshold unbounded.
func (s *Scheduler) SetMode(ctx context.Context, mode models.Mode) error {
	if !mode.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidMode, mode)
	}
	return s.do(ctx, func(_ context.Context, st *roundState) {
		prev := st.mode
		st.mode = mode
		if mode == models.ModeManual && st.phase == PhaseRunning {
			st.threshold = math.Inf(1)
		}
		log.Info().
			Str("round_id", st.roundID).
			Str("from", string(prev)).
			Str("to", string(mode)).
			Msg("mode changed")
	})
}

// ForceCrash ends the running round at its current multiplier. It reports
// false, without error, when no round is running.
func (s *Scheduler) ForceCrash(ctx context.Context) (bool, error) {
	var ended bool
	err := s.do(ctx, func(ctx context.Context, st *roundState) {
		if st.phase != PhaseRunning {
			return
		}
		final := math.Max(1, round2(st.multiplier))
		s.closeRound(ctx, st, s.clock.Now(), final, events.EndReasonForced, s.cfg.ForcedDelay)
		ended = true
	})
	return ended, err
}

// Snapshot returns a consistent copy of the round state
func (s *Scheduler) Snapshot(ctx context.Context) (Snapshot, error) {
	var snap Snapshot
	err := s.do(ctx, func(_ context.Context, st *roundState) {
		snap = st.snapshot()
	})
	return snap, err
}

// Exec runs fn on the scheduler goroutine with a snapshot of the round state.
// No tick or round transition happens while fn runs.
func (s *Scheduler) Exec(ctx context.Context, fn func(ctx context.Context, snap Snapshot) error) error {
	var fnErr error
	err := s.do(ctx, func(ctx context.Context, st *roundState) {
		fnErr = fn(ctx, st.snapshot())
	})
	if err != nil {
		return err
	}
	return fnErr
}

func (s *Scheduler) do(ctx context.Context, fn func(ctx context.Context, st *roundState)) error {
	s.mu.Lock()
	running := s.lifecycle == lifecycleRunning
	s.mu.Unlock()
	if !running {
		return ErrNotRunning
	}

	cmd := command{ctx: ctx, fn: fn, done: make(chan struct{})}
	select {
	case s.cmdCh <- cmd:
	case <-s.done:
		return ErrNotRunning
	case <-ctx.Done():
		return ctx.Err()
	}
	// a received command always completes before the loop exits
	<-cmd.done
	return nil
}

func (s *Scheduler) run(ctx context.Context) {
	defer close(s.done)
	st := &s.state

	log.Info().Str("mode", string(st.mode)).Msg("scheduler started")
	s.beginRound(ctx, st)

	for {
		select {
		case <-ctx.Done():
			s.halt(st)
			return
		case <-s.quit:
			s.halt(st)
			return
		case now := <-st.tickC():
			s.tick(ctx, st, now)
		case <-st.timerC():
			st.timer = nil
			s.beginRound(ctx, st)
		case cmd := <-s.cmdCh:
			cmd.fn(cmd.ctx, st)
			close(cmd.done)
		}
	}
}

func (s *Scheduler) halt(st *roundState) {
	st.stopTicker()
	st.stopTimer()
	st.phase = PhaseStopped
	log.Info().Str("round_id", st.roundID).Msg("scheduler stopped")
}

// beginRound starts the allocated round, creating one first if needed
func (s *Scheduler) beginRound(ctx context.Context, st *roundState) {
	now := s.clock.Now()

	if !st.allocated {
		round := models.Round{ID: uuid.NewString(), StartTime: now, CreatedAt: now}
		if err := s.rounds.CreateRound(ctx, round); err != nil {
			log.Error().Err(err).Msg("failed to persist round start, retrying")
			st.roundID = ""
			st.phase = PhaseWaiting
			next := now.Add(s.cfg.NaturalDelay)
			st.nextStartAt = &next
			st.timer = s.clock.NewTimer(s.cfg.NaturalDelay)
			return
		}
		st.roundID = round.ID
	}

	st.allocated = false
	st.nextStartAt = nil
	st.startedAt = now
	st.multiplier = 1
	if st.mode == models.ModeAuto {
		st.threshold = s.sampler.Sample()
	} else {
		st.threshold = math.Inf(1)
	}
	st.phase = PhaseRunning
	st.ticker = s.clock.NewTicker(s.cfg.TickInterval)

	log.Info().
		Str("round_id", st.roundID).
		Str("mode", string(st.mode)).
		Float64("crash_at", st.threshold).
		Msg("round started")

	s.bus.Publish(ctx, events.NewRoundStart(st.roundID, now, st.threshold))
}

func (s *Scheduler) tick(ctx context.Context, st *roundState, now time.Time) {
	if st.phase != PhaseRunning {
		return
	}

	elapsed := now.Sub(st.startedAt)
	mult := displayMultiplier(elapsed, s.cfg.RoundDuration, st.threshold, s.cfg.NominalThreshold)
	if mult < st.multiplier {
		mult = st.multiplier
	}
	st.multiplier = mult

	if st.mode == models.ModeAuto && (elapsed >= s.cfg.RoundDuration || mult >= st.threshold) {
		final := math.Min(mult, st.threshold)
		s.closeRound(ctx, st, now, final, events.EndReasonNatural, s.cfg.NaturalDelay)
		return
	}

	s.bus.Publish(ctx, events.NewTick(st.roundID, mult, st.threshold))
}

// closeRound persists the end, publishes round_end (pending bets are resolved
// by subscribers before Publish returns) and only then allocates the next round.
func (s *Scheduler) closeRound(ctx context.Context, st *roundState, now time.Time, final float64, reason events.EndReason, delay time.Duration) {
	st.stopTicker()
	st.phase = PhaseClosing
	st.multiplier = final

	roundID := st.roundID
	if err := s.rounds.EndRound(ctx, roundID, now, final); err != nil {
		log.Error().Err(err).Str("round_id", roundID).Msg("failed to persist round end")
	}

	next := now.Add(delay)
	st.nextStartAt = &next
	st.timer = s.clock.NewTimer(delay)

	log.Info().
		Str("round_id", roundID).
		Str("reason", string(reason)).
		Float64("multiplier", final).
		Time("next_start_at", next).
		Msg("round ended")

	end := events.NewRoundEnd(roundID, now, final, &next)
	end.Reason = reason
	end.Mode = st.mode
	s.bus.Publish(ctx, end)

	s.allocateNext(ctx, st, now, next)
	st.phase = PhaseWaiting
}

// allocateNext persists the upcoming round so bets placed while waiting attach to it
func (s *Scheduler) allocateNext(ctx context.Context, st *roundState, now, startAt time.Time) {
	round := models.Round{ID: uuid.NewString(), StartTime: startAt, CreatedAt: now}
	if err := s.rounds.CreateRound(ctx, round); err != nil {
		log.Error().Err(err).Msg("failed to allocate next round")
		st.roundID = ""
		st.allocated = false
		return
	}
	st.roundID = round.ID
	st.allocated = true
}

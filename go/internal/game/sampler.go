package game

import (
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
	"math"
	"math/rand/v2"
	"sync"
	"time"
)

const (
	thresholdScale = 1.5
	minThreshold   = 1.01
	maxThreshold   = 10.0
)

// ThresholdSampler draws the crash threshold of an auto-mode round
type ThresholdSampler interface {
	Sample() float64
}

// ExponentialSampler draws 1 + Exp(1)*scale clamped to [1.01, 10] and rounded to
// two decimals. The same seed always yields the same sequence.
type ExponentialSampler struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewExponentialSampler creates a sampler over a PCG source seeded with (seed1, seed2)
func NewExponentialSampler(seed1, seed2 uint64) *ExponentialSampler {
	return &ExponentialSampler{rng: rand.New(rand.NewPCG(seed1, seed2))}
}

// NewRandomSampler seeds a sampler from crypto/rand
func NewRandomSampler() (*ExponentialSampler, error) {
	var seed [16]byte
	if _, err := crand.Read(seed[:]); err != nil {
		return nil, fmt.Errorf("read seed: %w", err)
	}
	return NewExponentialSampler(
		binary.LittleEndian.Uint64(seed[:8]),
		binary.LittleEndian.Uint64(seed[8:]),
	), nil
}

func (s *ExponentialSampler) Sample() float64 {
	s.mu.Lock()
	u := s.rng.Float64()
	for u == 0 {
		u = s.rng.Float64()
	}
	s.mu.Unlock()
	return thresholdFromUniform(u)
}

// thresholdFromUniform maps u in (0,1) onto the threshold distribution
func thresholdFromUniform(u float64) float64 {
	x := 1 + (-math.Log(1-u))*thresholdScale
	x = math.Max(minThreshold, math.Min(maxThreshold, x))
	return round2(x)
}

// FixedSampler always returns the same threshold
type FixedSampler float64

func (f FixedSampler) Sample() float64 { return float64(f) }

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// displayMultiplier is max(1, floor(100*base)/100) with base = 1 + elapsed/duration*threshold.
// An unbounded threshold is replaced by nominal.
func displayMultiplier(elapsed, duration time.Duration, threshold, nominal float64) float64 {
	if math.IsInf(threshold, 1) {
		threshold = nominal
	}
	base := 1 + float64(elapsed)/float64(duration)*threshold
	return math.Max(1, math.Floor(100*base)/100)
}

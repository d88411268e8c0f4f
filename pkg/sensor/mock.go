package sensor

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

// MockConfig holds settings for the simulated compass.
type MockConfig struct {
	Interval     time.Duration // Tick rate
	StartHeading float64       // Degrees
	SweepRate    float64       // Degrees per second, positive = clockwise
	Noise        float64       // Standard deviation of heading jitter, degrees
	Seed         int64         // 0 = time-based
}

// MockCompass simulates a handheld compass slowly turning with sensor jitter.
type MockCompass struct {
	cfg MockConfig

	mu  sync.Mutex // rng is shared by every Start
	rng *rand.Rand
	now func() time.Time
}

// NewMockCompass creates a simulated compass.
func NewMockCompass(cfg MockConfig) *MockCompass {
	if cfg.Interval <= 0 {
		cfg.Interval = 100 * time.Millisecond
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &MockCompass{
		cfg: cfg,
		rng: rand.New(rand.NewSource(seed)), //nolint:gosec // simulation jitter
		now: time.Now,
	}
}

// Name implements Source.
func (m *MockCompass) Name() string { return "mock" }

// Start implements Source.
func (m *MockCompass) Start(ctx context.Context) (<-chan Sample, error) {
	out := make(chan Sample)
	start := m.now()

	go func() {
		defer close(out)
		ticker := time.NewTicker(m.cfg.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				at := m.now()
				s := Sample{Heading: m.headingAt(at.Sub(start)), At: at}
				select {
				case out <- s:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}

// headingAt returns the raw (unnormalized) heading after elapsed time.
func (m *MockCompass) headingAt(elapsed time.Duration) float64 {
	h := m.cfg.StartHeading + m.cfg.SweepRate*elapsed.Seconds()
	if m.cfg.Noise > 0 {
		m.mu.Lock()
		h += m.rng.NormFloat64() * m.cfg.Noise
		m.mu.Unlock()
	}
	return h
}

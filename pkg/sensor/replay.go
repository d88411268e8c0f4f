package sensor

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"qiblago/pkg/config"
)

// Trace is a recorded heading sequence, stored as YAML:
//
//	interval: 100ms
//	loop: false
//	headings: [358.2, 359.1, 0.4]
//
// A trace may instead carry raw horizontal magnetometer axes, converted with
// HeadingFromMagnetometer on playback:
//
//	magnetometer: [[0.31, 0.02], [0.30, -0.01]]
type Trace struct {
	Interval     config.Duration `yaml:"interval"`
	Loop         bool            `yaml:"loop"`
	Headings     []float64       `yaml:"headings"`
	Magnetometer [][]float64     `yaml:"magnetometer"`
}

// samples returns the headings to play. Magnetometer pairs that carry no direction are
// skipped and counted in skipped.
func (tr *Trace) samples() (headings []float64, skipped int) {
	if len(tr.Headings) > 0 {
		return tr.Headings, 0
	}
	for _, xy := range tr.Magnetometer {
		if len(xy) != 2 {
			skipped++
			continue
		}
		h, err := HeadingFromMagnetometer(xy[0], xy[1])
		if err != nil {
			skipped++
			continue
		}
		headings = append(headings, h)
	}
	return headings, skipped
}

// LoadTrace reads a trace file.
func LoadTrace(path string) (*Trace, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read trace file: %w", err)
	}
	var tr Trace
	if err := yaml.Unmarshal(data, &tr); err != nil {
		return nil, fmt.Errorf("failed to parse trace file: %w", err)
	}
	if len(tr.Headings) == 0 && len(tr.Magnetometer) == 0 {
		return nil, fmt.Errorf("%s: %w", path, ErrNoSamples)
	}
	return &tr, nil
}

// Replay plays back a Trace at its recorded interval.
type Replay struct {
	trace *Trace
	now   func() time.Time
}

// NewReplay creates a replay source for an already loaded trace.
func NewReplay(tr *Trace) *Replay {
	return &Replay{trace: tr, now: time.Now}
}

// Name implements Source.
func (r *Replay) Name() string { return "replay" }

// Start implements Source.
func (r *Replay) Start(ctx context.Context) (<-chan Sample, error) {
	if r.trace == nil {
		return nil, ErrNoSamples
	}
	headings, skipped := r.trace.samples()
	if skipped > 0 {
		slog.Warn("Replay skipped magnetometer readings", "skipped", skipped, "error", ErrInvalidReading)
	}
	if len(headings) == 0 {
		return nil, ErrNoSamples
	}
	interval := time.Duration(r.trace.Interval)
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}

	out := make(chan Sample)
	go func() {
		defer close(out)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		i := 0
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}

			select {
			case out <- Sample{Heading: headings[i], At: r.now()}:
			case <-ctx.Done():
				return
			}

			i++
			if i == len(headings) {
				if !r.trace.Loop {
					return
				}
				i = 0
			}
		}
	}()
	return out, nil
}

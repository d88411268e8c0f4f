// Package heading fuses a target bearing with a stream of raw compass headings into a
// dial rotation, a smoothed rotation for animation, and an alignment flag.
package heading

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"qiblago/pkg/geo"
	"qiblago/pkg/sensor"
)

var (
	// ErrInvalidSample is returned for non-finite heading samples.
	ErrInvalidSample = errors.New("invalid heading sample")
	// ErrInvalidTarget is returned for non-finite target bearings.
	ErrInvalidTarget = errors.New("invalid target bearing")
)

// State is the calibration state of a Tracker.
type State string

const (
	StateUncalibrated State = "uncalibrated"
	StateTracking     State = "tracking"
)

// Defaults
const (
	DefaultAlignmentThreshold = 5.0
	DefaultSettleTime         = 300 * time.Millisecond
	DefaultNominalInterval    = 100 * time.Millisecond
)

// Config holds the tunable parameters of a Tracker.
type Config struct {
	AlignmentThreshold float64       // Degrees; aligned when strictly below
	SettleTime         time.Duration // Used by the default smoother
	NominalInterval    time.Duration // Assumed sample spacing when samples carry no usable timestamp
	Smoother           Smoother      // nil selects ExponentialSmoother{SettleTime}
}

// DefaultConfig returns the default tracker configuration.
func DefaultConfig() Config {
	return Config{
		AlignmentThreshold: DefaultAlignmentThreshold,
		SettleTime:         DefaultSettleTime,
		NominalInterval:    DefaultNominalInterval,
	}
}

// Update is the result of ingesting one heading sample.
// Rotation and Smoothed are meaningless while HasTarget is false and must not be rendered.
type Update struct {
	Heading   float64   `json:"heading"`   // Normalized device heading [0, 360)
	Target    float64   `json:"target"`    // Target bearing [0, 360)
	Rotation  float64   `json:"rotation"`  // Clockwise dial rotation from heading to target [0, 360)
	Relative  float64   `json:"relative"`  // Signed shortest turn to the target (-180, 180]
	Smoothed  float64   `json:"smoothed"`  // Animated rotation [0, 360)
	Aligned   bool      `json:"aligned"`   // Facing the target within the threshold
	HasTarget bool      `json:"hasTarget"` // False until the first target bearing arrives
	At        time.Time `json:"at"`
}

// Status returns a short label for the rendering client.
func (u Update) Status() string {
	switch {
	case !u.HasTarget:
		return "unknown"
	case u.Aligned:
		return "aligned"
	default:
		return "rotate"
	}
}

// Tracker holds the heading/target state for one session.
// All methods are safe for concurrent use.
type Tracker struct {
	mu       sync.Mutex
	cfg      Config
	smoother Smoother

	target      float64
	hasTarget   bool
	lastHeading float64
	hasHeading  bool
	smoothed    float64
	primed      bool // smoothed holds a real rotation
	lastAt      time.Time
	last        Update
}

// New creates a Tracker in the uncalibrated state.
func New(cfg Config) *Tracker {
	if cfg.AlignmentThreshold <= 0 {
		cfg.AlignmentThreshold = DefaultAlignmentThreshold
	}
	if cfg.NominalInterval <= 0 {
		cfg.NominalInterval = DefaultNominalInterval
	}
	sm := cfg.Smoother
	if sm == nil {
		sm = ExponentialSmoother{SettleTime: cfg.SettleTime}
	}
	return &Tracker{
		cfg:      cfg,
		smoother: sm,
	}
}

// SetTarget replaces the target bearing. The heading and smoothed rotation are kept so the
// indicator animates toward the new target on the next sample instead of jumping.
func (t *Tracker) SetTarget(bearing float64) error {
	if !geo.IsFinite(bearing) {
		return fmt.Errorf("%w: %v", ErrInvalidTarget, bearing)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.hasTarget {
		slog.Debug("Heading tracker calibrated", "target", bearing)
	}
	t.target = geo.Normalize360(bearing)
	t.hasTarget = true
	return nil
}

// ClearTarget returns the tracker to the uncalibrated state when the observer's location is
// withdrawn. The last heading is kept; the snapshot reports no target.
func (t *Tracker) ClearTarget() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.hasTarget = false
	t.target = 0
	t.primed = false
	t.smoothed = 0
	t.last = Update{Heading: t.last.Heading, At: t.last.At}
}

// State returns the current calibration state.
func (t *Tracker) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.hasTarget {
		return StateTracking
	}
	return StateUncalibrated
}

// Target returns the current target bearing and whether one is set.
func (t *Tracker) Target() (float64, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.target, t.hasTarget
}

// Heading returns the last normalized heading and whether any sample has been ingested.
func (t *Tracker) Heading() (float64, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastHeading, t.hasHeading
}

// Snapshot returns the most recent update.
func (t *Tracker) Snapshot() Update {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.last
}

// Ingest normalizes a raw heading sample and recomputes the rotation and alignment.
// Non-finite samples are rejected with ErrInvalidSample and leave the state untouched.
func (t *Tracker) Ingest(s sensor.Sample) (Update, error) {
	if !geo.IsFinite(s.Heading) {
		return Update{}, fmt.Errorf("%w: %v", ErrInvalidSample, s.Heading)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	hdg := geo.Normalize360(s.Heading)
	dt := t.elapsed(s.At)
	t.lastHeading = hdg
	t.hasHeading = true
	if !s.At.IsZero() {
		t.lastAt = s.At
	}

	u := Update{
		Heading:   hdg,
		HasTarget: t.hasTarget,
		At:        s.At,
	}
	if !t.hasTarget {
		t.last = u
		return u, nil
	}

	rotation := geo.Normalize360(t.target - hdg)
	u.Target = t.target
	u.Rotation = rotation
	u.Relative = geo.NormalizeSigned(t.target - hdg)
	u.Aligned = math.Min(rotation, 360-rotation) < t.cfg.AlignmentThreshold

	if !t.primed {
		t.smoothed = rotation
		t.primed = true
	} else {
		t.smoothed = t.smoother.Step(t.smoothed, rotation, dt)
	}
	u.Smoothed = t.smoothed

	t.last = u
	return u, nil
}

// elapsed returns the time since the previous sample, falling back to the nominal interval.
func (t *Tracker) elapsed(at time.Time) time.Duration {
	if at.IsZero() || t.lastAt.IsZero() {
		return t.cfg.NominalInterval
	}
	dt := at.Sub(t.lastAt)
	if dt <= 0 {
		return t.cfg.NominalInterval
	}
	return dt
}

// Package session runs one compass session: it owns the heading tracker and serializes
// location fixes and heading samples through a single goroutine.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"qiblago/pkg/geo"
	"qiblago/pkg/heading"
	"qiblago/pkg/logging"
	"qiblago/pkg/qibla"
	"qiblago/pkg/sensor"
	"qiblago/pkg/tracker"
)

// ErrClosed is returned when pushing into a session that has stopped running.
var ErrClosed = errors.New("session closed")

// Sink receives every tracker update produced by a session.
// Sinks are called on the session goroutine and must not block.
type Sink interface {
	Update(u *heading.Update)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(u *heading.Update)

// Update implements Sink.
func (f SinkFunc) Update(u *heading.Update) { f(u) }

// Snapshot is a point-in-time view of a session.
type Snapshot struct {
	ID        string           `json:"id"`
	State     heading.State    `json:"state"`
	Status    string           `json:"status"`
	Direction *qibla.Direction `json:"direction,omitempty"`
	Update    heading.Update   `json:"update"`
}

// eventBuffer bounds how many inputs may wait for the session goroutine.
const eventBuffer = 64

type eventKind int

const (
	eventFix eventKind = iota
	eventSample
	eventClear
)

// event is one queued input. Fixes and samples share a queue so they are handled in arrival order.
type event struct {
	kind   eventKind
	fix    geo.Point
	sample sensor.Sample
}

// Session couples a bearing calculator and a heading tracker for one observer.
type Session struct {
	id      string
	calc    *qibla.Calculator
	tracker *heading.Tracker
	stats   *tracker.Tracker
	logger  *slog.Logger

	events chan event
	done   chan struct{}
	once   sync.Once

	mu          sync.RWMutex
	sinks       []Sink
	direction   *qibla.Direction
	lastAligned bool
}

// New creates a session. Call Run to start processing.
func New(calc *qibla.Calculator, tr *heading.Tracker, stats *tracker.Tracker) *Session {
	id := uuid.New().String()
	return &Session{
		id:      id,
		calc:    calc,
		tracker: tr,
		stats:   stats,
		logger:  slog.With("component", "session", "session_id", id),
		events:  make(chan event, eventBuffer),
		done:    make(chan struct{}),
	}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// AddSink registers a consumer for tracker updates.
func (s *Session) AddSink(sink Sink) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sinks = append(s.sinks, sink)
}

// Direction returns the current target direction, if a fix has been accepted.
func (s *Session) Direction() (qibla.Direction, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.direction == nil {
		return qibla.Direction{}, false
	}
	return *s.direction, true
}

// Snapshot returns the current state of the session.
func (s *Session) Snapshot() Snapshot {
	last := s.tracker.Snapshot()
	snap := Snapshot{
		ID:     s.id,
		State:  s.tracker.State(),
		Status: last.Status(),
		Update: last,
	}
	if dir, ok := s.Direction(); ok {
		snap.Direction = &dir
	}
	return snap
}

// PushFix queues a location fix. It blocks while the queue is full.
func (s *Session) PushFix(ctx context.Context, p geo.Point) error {
	return s.push(ctx, event{kind: eventFix, fix: p})
}

// PushSample queues a heading sample. It blocks while the queue is full.
func (s *Session) PushSample(ctx context.Context, smp sensor.Sample) error {
	return s.push(ctx, event{kind: eventSample, sample: smp})
}

// ClearFix queues a reset of the location: the session drops its target and reports
// "unknown" until the next accepted fix.
func (s *Session) ClearFix(ctx context.Context) error {
	return s.push(ctx, event{kind: eventClear})
}

func (s *Session) push(ctx context.Context, ev event) error {
	select {
	case <-s.done:
		return ErrClosed
	default:
	}
	select {
	case s.events <- ev:
		return nil
	case <-s.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Pump starts src and forwards its samples until the source stops or ctx is cancelled.
func (s *Session) Pump(ctx context.Context, src sensor.Source) error {
	ch, err := src.Start(ctx)
	if err != nil {
		return fmt.Errorf("failed to start %s source: %w", src.Name(), err)
	}
	s.logger.Info("Heading source started", "source", src.Name())

	for smp := range ch {
		if err := s.PushSample(ctx, smp); err != nil {
			return err
		}
	}
	s.logger.Info("Heading source stopped", "source", src.Name())
	return nil
}

// Run processes queued inputs in arrival order until ctx is cancelled.
// All tracker mutations happen on this goroutine. The session's counters are
// dropped when Run returns.
func (s *Session) Run(ctx context.Context) error {
	defer s.stats.Remove(s.id)
	defer s.once.Do(func() { close(s.done) })
	s.logger.Info("Session started")

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Session stopped")
			return nil
		case ev := <-s.events:
			switch ev.kind {
			case eventFix:
				s.handleFix(ev.fix)
			case eventSample:
				s.handleSample(ev.sample)
			case eventClear:
				s.handleClear()
			}
		}
	}
}

func (s *Session) handleClear() {
	s.tracker.ClearTarget()

	s.mu.Lock()
	s.direction = nil
	s.lastAligned = false
	s.mu.Unlock()

	s.logger.Info("Location cleared, waiting for a new fix")
}

func (s *Session) handleFix(p geo.Point) {
	dir, err := s.calc.Direction(p)
	if err != nil {
		// Keep the previous target; a bad fix must not replace a good bearing.
		s.stats.TrackFix(s.id, false)
		s.logger.Warn("Location fix rejected", "lat", p.Lat, "lon", p.Lon, "error", err)
		return
	}
	if err := s.tracker.SetTarget(dir.Bearing); err != nil {
		s.stats.TrackFix(s.id, false)
		s.logger.Error("Failed to set target bearing", "bearing", dir.Bearing, "error", err)
		return
	}

	s.mu.Lock()
	s.direction = &dir
	s.mu.Unlock()

	s.stats.TrackFix(s.id, true)
	s.logger.Info("Qibla bearing computed",
		"lat", p.Lat, "lon", p.Lon,
		"bearing", fmt.Sprintf("%.1f", dir.Bearing),
		"compass", dir.Compass,
		"distance_km", fmt.Sprintf("%.0f", dir.DistanceKm))
}

func (s *Session) handleSample(smp sensor.Sample) {
	u, err := s.tracker.Ingest(smp)
	if err != nil {
		s.stats.TrackSample(s.id, false)
		logging.Trace(s.logger, "Heading sample rejected", "error", err)
		return
	}
	s.stats.TrackSample(s.id, true)
	logging.Trace(s.logger, "Heading sample", "heading", u.Heading, "rotation", u.Rotation, "aligned", u.Aligned)

	s.mu.Lock()
	changed := u.HasTarget && u.Aligned != s.lastAligned
	if u.HasTarget {
		s.lastAligned = u.Aligned
	}
	sinks := s.sinks
	s.mu.Unlock()

	if changed {
		s.stats.TrackAlignmentChange(s.id)
		if u.Aligned {
			s.logger.Info("Aligned with Qibla", "heading", fmt.Sprintf("%.1f", u.Heading))
		} else {
			s.logger.Debug("Alignment lost", "relative", fmt.Sprintf("%.1f", u.Relative))
		}
	}

	for _, sink := range sinks {
		sink.Update(&u)
	}
}

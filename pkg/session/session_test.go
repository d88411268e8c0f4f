package session

import (
	"context"
	"math"
	"sync"
	"testing"
	"time"

	"qiblago/pkg/geo"
	"qiblago/pkg/heading"
	"qiblago/pkg/qibla"
	"qiblago/pkg/sensor"
	"qiblago/pkg/tracker"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	mu      sync.Mutex
	updates []heading.Update
}

func (r *recordingSink) Update(u *heading.Update) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates = append(r.updates, *u)
}

func (r *recordingSink) all() []heading.Update {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]heading.Update(nil), r.updates...)
}

var newYork = geo.Point{Lat: 40.7128, Lon: -74.0060}

func newTestSession(t *testing.T) (*Session, *tracker.Tracker, *recordingSink) {
	t.Helper()
	calc, err := qibla.NewCalculator(qibla.Kaaba)
	require.NoError(t, err)

	stats := tracker.New()
	s := New(calc, heading.New(heading.DefaultConfig()), stats)
	sink := &recordingSink{}
	s.AddSink(sink)
	return s, stats, sink
}

func startSession(t *testing.T, s *Session) context.CancelFunc {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = s.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return cancel
}

func TestSession_UncalibratedUntilFix(t *testing.T) {
	s, stats, sink := newTestSession(t)
	startSession(t, s)
	ctx := context.Background()

	require.NoError(t, s.PushSample(ctx, sensor.Sample{Heading: 58}))
	require.Eventually(t, func() bool { return len(sink.all()) == 1 }, time.Second, 5*time.Millisecond)

	u := sink.all()[0]
	assert.False(t, u.HasTarget)
	assert.False(t, u.Aligned)

	snap := s.Snapshot()
	assert.Equal(t, heading.StateUncalibrated, snap.State)
	assert.Equal(t, "unknown", snap.Status)
	assert.Nil(t, snap.Direction)
	assert.Equal(t, int64(1), stats.Snapshot()[s.ID()].SamplesAccepted)
}

func TestSession_FixThenSamples(t *testing.T) {
	s, stats, sink := newTestSession(t)
	startSession(t, s)
	ctx := context.Background()

	require.NoError(t, s.PushFix(ctx, newYork))
	require.Eventually(t, func() bool {
		_, ok := s.Direction()
		return ok
	}, time.Second, 5*time.Millisecond)

	dir, _ := s.Direction()
	assert.InDelta(t, 58.5, dir.Bearing, 0.5)

	// Facing the Qibla, then turning away
	require.NoError(t, s.PushSample(ctx, sensor.Sample{Heading: 58.5}))
	require.NoError(t, s.PushSample(ctx, sensor.Sample{Heading: 150}))
	require.Eventually(t, func() bool { return len(sink.all()) == 2 }, time.Second, 5*time.Millisecond)

	updates := sink.all()
	assert.True(t, updates[0].HasTarget)
	assert.True(t, updates[0].Aligned)
	assert.False(t, updates[1].Aligned)

	st := stats.Snapshot()[s.ID()]
	assert.Equal(t, int64(1), st.FixesAccepted)
	assert.Equal(t, int64(2), st.SamplesAccepted)
	assert.Equal(t, int64(2), st.AlignmentChanges)

	snap := s.Snapshot()
	assert.Equal(t, heading.StateTracking, snap.State)
	assert.Equal(t, "rotate", snap.Status)
	require.NotNil(t, snap.Direction)
}

func TestSession_InvalidFixKeepsTarget(t *testing.T) {
	s, stats, _ := newTestSession(t)
	startSession(t, s)
	ctx := context.Background()

	require.NoError(t, s.PushFix(ctx, newYork))
	require.Eventually(t, func() bool {
		return stats.Snapshot()[s.ID()].FixesAccepted == 1
	}, time.Second, 5*time.Millisecond)

	// Observer standing on the target: bearing undefined
	require.NoError(t, s.PushFix(ctx, qibla.Kaaba))
	require.Eventually(t, func() bool {
		return stats.Snapshot()[s.ID()].FixesRejected == 1
	}, time.Second, 5*time.Millisecond)

	dir, ok := s.Direction()
	require.True(t, ok)
	assert.Equal(t, newYork, dir.Observer)
}

func TestSession_InvalidSampleCounted(t *testing.T) {
	s, stats, sink := newTestSession(t)
	startSession(t, s)

	require.NoError(t, s.PushSample(context.Background(), sensor.Sample{Heading: math.NaN()}))
	require.Eventually(t, func() bool {
		return stats.Snapshot()[s.ID()].SamplesRejected == 1
	}, time.Second, 5*time.Millisecond)
	assert.Empty(t, sink.all())
}

func TestSession_PushAfterStop(t *testing.T) {
	s, _, _ := newTestSession(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() { done <- s.Run(ctx) }()

	cancel()
	require.NoError(t, <-done)

	// Fill the buffer so the closed branch is the only way out
	var err error
	for i := 0; i < 100 && err == nil; i++ {
		err = s.PushSample(context.Background(), sensor.Sample{Heading: 1})
	}
	assert.ErrorIs(t, err, ErrClosed)
}

func TestSession_PumpReplay(t *testing.T) {
	s, _, sink := newTestSession(t)
	startSession(t, s)
	ctx := context.Background()

	require.NoError(t, s.PushFix(ctx, newYork))
	require.Eventually(t, func() bool {
		_, ok := s.Direction()
		return ok
	}, time.Second, 5*time.Millisecond)

	tr := &sensor.Trace{Headings: []float64{40, 50, 58, 59, 60}}
	require.NoError(t, s.Pump(ctx, sensor.NewReplay(tr)))
	require.Eventually(t, func() bool { return len(sink.all()) == 5 }, time.Second, 5*time.Millisecond)

	last := sink.all()[4]
	assert.True(t, last.Aligned)
	assert.InDelta(t, 360-1.5, last.Rotation, 0.5)
}

func TestSession_ArrivalOrderAcrossInputKinds(t *testing.T) {
	for i := 0; i < 50; i++ {
		s, _, sink := newTestSession(t)
		ctx := context.Background()

		// Queued before Run starts: both inputs are waiting when the loop begins
		require.NoError(t, s.PushFix(ctx, newYork))
		require.NoError(t, s.PushSample(ctx, sensor.Sample{Heading: 58.5}))
		startSession(t, s)

		require.Eventually(t, func() bool { return len(sink.all()) == 1 }, time.Second, 5*time.Millisecond)
		require.True(t, sink.all()[0].HasTarget, "iteration %d: sample handled before the earlier fix", i)
	}
}

func TestSession_SamplesBeforeNewFixUseOldTarget(t *testing.T) {
	s, _, sink := newTestSession(t)
	ctx := context.Background()

	jakarta := geo.Point{Lat: -6.2088, Lon: 106.8456}
	require.NoError(t, s.PushFix(ctx, newYork))
	require.NoError(t, s.PushSample(ctx, sensor.Sample{Heading: 58.5}))
	require.NoError(t, s.PushFix(ctx, jakarta))
	require.NoError(t, s.PushSample(ctx, sensor.Sample{Heading: 295}))
	startSession(t, s)

	require.Eventually(t, func() bool { return len(sink.all()) == 2 }, time.Second, 5*time.Millisecond)
	updates := sink.all()
	assert.InDelta(t, 58.5, updates[0].Target, 0.5)
	assert.True(t, updates[0].Aligned)
	assert.InDelta(t, 295.0, updates[1].Target, 1.0)
	assert.True(t, updates[1].Aligned)
}

func TestSession_ClearFix(t *testing.T) {
	s, _, sink := newTestSession(t)
	startSession(t, s)
	ctx := context.Background()

	require.NoError(t, s.PushFix(ctx, newYork))
	require.NoError(t, s.PushSample(ctx, sensor.Sample{Heading: 58.5}))
	require.NoError(t, s.ClearFix(ctx))
	require.NoError(t, s.PushSample(ctx, sensor.Sample{Heading: 58.5}))
	require.Eventually(t, func() bool { return len(sink.all()) == 2 }, time.Second, 5*time.Millisecond)

	updates := sink.all()
	assert.True(t, updates[0].Aligned)
	assert.False(t, updates[1].HasTarget)
	assert.False(t, updates[1].Aligned)

	_, ok := s.Direction()
	assert.False(t, ok)
	snap := s.Snapshot()
	assert.Equal(t, heading.StateUncalibrated, snap.State)
	assert.Equal(t, "unknown", snap.Status)
	assert.Nil(t, snap.Direction)
}

func TestSession_RunDropsStatsOnExit(t *testing.T) {
	s, stats, _ := newTestSession(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() { done <- s.Run(ctx) }()

	require.NoError(t, s.PushFix(context.Background(), newYork))
	require.Eventually(t, func() bool {
		return stats.Snapshot()[s.ID()].FixesAccepted == 1
	}, time.Second, 5*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
	assert.NotContains(t, stats.Snapshot(), s.ID())
}

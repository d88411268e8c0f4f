package tracker

import (
	"sync"
	"sync/atomic"
)

// Tracker counts ingest activity per session.
type Tracker struct {
	mu    sync.RWMutex
	stats map[string]*SessionStats
}

// SessionStats holds counters for one session.
// Fields are accessed atomically.
type SessionStats struct {
	SamplesAccepted  int64 `json:"samples_accepted"`
	SamplesRejected  int64 `json:"samples_rejected"`
	FixesAccepted    int64 `json:"fixes_accepted"`
	FixesRejected    int64 `json:"fixes_rejected"`
	AlignmentChanges int64 `json:"alignment_changes"`
}

// New creates a new Tracker.
func New() *Tracker {
	return &Tracker{
		stats: make(map[string]*SessionStats),
	}
}

// getStats returns the stats object for a session, creating it if needed.
func (t *Tracker) getStats(session string) *SessionStats {
	t.mu.RLock()
	s, ok := t.stats[session]
	t.mu.RUnlock()
	if ok {
		return s
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	// Double check
	if s, ok = t.stats[session]; ok {
		return s
	}
	s = &SessionStats{}
	t.stats[session] = s
	return s
}

// TrackSample counts an ingested heading sample.
func (t *Tracker) TrackSample(session string, accepted bool) {
	s := t.getStats(session)
	if accepted {
		atomic.AddInt64(&s.SamplesAccepted, 1)
		return
	}
	atomic.AddInt64(&s.SamplesRejected, 1)
}

// TrackFix counts a location fix.
func (t *Tracker) TrackFix(session string, accepted bool) {
	s := t.getStats(session)
	if accepted {
		atomic.AddInt64(&s.FixesAccepted, 1)
		return
	}
	atomic.AddInt64(&s.FixesRejected, 1)
}

// TrackAlignmentChange counts a flip of the aligned flag.
func (t *Tracker) TrackAlignmentChange(session string) {
	atomic.AddInt64(&t.getStats(session).AlignmentChanges, 1)
}

// Remove drops the counters of a finished session.
func (t *Tracker) Remove(session string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.stats, session)
}

// Snapshot returns a copy of the current stats.
func (t *Tracker) Snapshot() map[string]SessionStats {
	t.mu.RLock()
	defer t.mu.RUnlock()

	result := make(map[string]SessionStats, len(t.stats))
	for k, v := range t.stats {
		result[k] = SessionStats{
			SamplesAccepted:  atomic.LoadInt64(&v.SamplesAccepted),
			SamplesRejected:  atomic.LoadInt64(&v.SamplesRejected),
			FixesAccepted:    atomic.LoadInt64(&v.FixesAccepted),
			FixesRejected:    atomic.LoadInt64(&v.FixesRejected),
			AlignmentChanges: atomic.LoadInt64(&v.AlignmentChanges),
		}
	}
	return result
}

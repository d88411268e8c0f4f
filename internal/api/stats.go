package api

import (
	"encoding/json"
	"net/http"
	"runtime"
	"time"

	"qiblago/pkg/tracker"
)

// StatsHandler reports per-session ingest counters and process diagnostics.
type StatsHandler struct {
	tracker *tracker.Tracker
	started time.Time
}

// NewStatsHandler creates a new StatsHandler.
func NewStatsHandler(t *tracker.Tracker) *StatsHandler {
	return &StatsHandler{
		tracker: t,
		started: time.Now(),
	}
}

// Diagnostics describes the running server process.
type Diagnostics struct {
	UptimeSec  int64  `json:"uptime_sec"`
	MemoryMB   uint64 `json:"memory_mb"`
	Goroutines int    `json:"goroutines"`
}

// StatsResponse is the body of GET /api/stats.
type StatsResponse struct {
	Diagnostics Diagnostics                     `json:"diagnostics"`
	Sessions    map[string]tracker.SessionStats `json:"sessions"`
}

func (h *StatsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	resp := StatsResponse{
		Diagnostics: Diagnostics{
			UptimeSec:  int64(time.Since(h.started).Seconds()),
			MemoryMB:   bToMb(mem.Alloc),
			Goroutines: runtime.NumGoroutine(),
		},
		Sessions: h.tracker.Snapshot(),
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func bToMb(b uint64) uint64 {
	return b / 1024 / 1024
}

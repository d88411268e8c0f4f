package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"qiblago/pkg/logging"
	"qiblago/pkg/version"
)

// NewServer creates and configures the HTTP server.
// stream may be nil when live push is not wanted.
func NewServer(addr string, qiblaH *QiblaHandler, stats *StatsHandler, stream *StreamHub, shutdown func()) *http.Server {
	mux := http.NewServeMux()

	// 1. Health
	mux.HandleFunc("GET /health", handleHealth)

	// 2. Version
	mux.HandleFunc("GET /api/version", handleVersion)

	// 3. Compass state and location fixes
	mux.HandleFunc("GET /api/qibla", qiblaH.HandleState)
	mux.HandleFunc("POST /api/location", qiblaH.HandleLocation)
	mux.HandleFunc("DELETE /api/location", qiblaH.HandleClearLocation)

	// 4. Stats & logs
	mux.Handle("GET /api/stats", stats)
	mux.HandleFunc("GET /api/log/latest", handleLatestLog)

	// 5. Live updates
	if stream != nil {
		mux.Handle("GET /api/stream", stream)
	}

	// 6. Shutdown
	mux.HandleFunc("POST /api/shutdown", func(w http.ResponseWriter, r *http.Request) {
		slog.Info("Graceful shutdown initiated via API")
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("Shutting down...")); err != nil {
			slog.Error("Failed to write shutdown response", "error", err)
		}
		// let the response flush first
		go func() {
			time.Sleep(100 * time.Millisecond)
			shutdown()
		}()
	})

	return &http.Server{
		Addr:        addr,
		Handler:     loggingMiddleware(mux),
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
		// no WriteTimeout: /api/stream connections are long-lived
	}
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		logging.RequestLogger.Info("Request Processed", "method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
	})
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("OK")); err != nil {
		slog.Error("Failed to write health response", "error", err)
	}
}

func handleVersion(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if _, err := fmt.Fprintf(w, `{"version": "%s"}`, version.Version); err != nil {
		slog.Error("Failed to write version response", "error", err)
	}
}

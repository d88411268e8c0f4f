// Package probe runs the compass host's startup checks: configuration, target bearing and
// heading source. Critical failures abort startup; the rest are reported and tolerated.
package probe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// DefaultTimeout bounds a single check. The heading source check waits this long for a first sample.
const DefaultTimeout = 5 * time.Second

// CheckFunc returns nil when the check passes.
type CheckFunc func(ctx context.Context) error

// Probe is one named startup check.
type Probe struct {
	Name     string
	Check    CheckFunc
	Critical bool // failure prevents the compass from starting
}

// Result holds the outcome of a single probe.
type Result struct {
	Probe    Probe
	Error    error
	Duration time.Duration
}

// Passed reports whether the check succeeded.
func (r Result) Passed() bool { return r.Error == nil }

// Run executes the probes in order, each under DefaultTimeout.
func Run(ctx context.Context, probes []Probe) []Result {
	results := make([]Result, 0, len(probes))
	for _, p := range probes {
		start := time.Now()
		checkCtx, cancel := context.WithTimeout(ctx, DefaultTimeout)
		err := p.Check(checkCtx)
		cancel()

		results = append(results, Result{Probe: p, Error: err, Duration: time.Since(start)})
	}
	return results
}

// AnalyzeResults logs one line per check plus a summary naming the failed checks.
// It returns the failed critical checks joined, or nil when the compass can start.
func AnalyzeResults(results []Result) error {
	var critical []error
	var failed []string

	for _, r := range results {
		took := r.Duration.Round(time.Millisecond)
		if r.Passed() {
			slog.Info("Startup check passed", "check", r.Probe.Name, "took", took)
			continue
		}

		failed = append(failed, r.Probe.Name)
		if r.Probe.Critical {
			slog.Error("Startup check failed", "check", r.Probe.Name, "took", took, "error", r.Error)
			critical = append(critical, fmt.Errorf("%s: %w", r.Probe.Name, r.Error))
		} else {
			slog.Warn("Startup check failed, continuing", "check", r.Probe.Name, "took", took, "error", r.Error)
		}
	}

	slog.Info("Startup checks complete",
		"passed", len(results)-len(failed),
		"failed", len(failed),
		"failed_checks", failed,
		"critical", len(critical))

	return errors.Join(critical...)
}

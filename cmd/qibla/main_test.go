package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qiblago/pkg/config"
	"qiblago/pkg/geo"
	"qiblago/pkg/heading"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "qibla.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestRun(t *testing.T) {
	logDir := t.TempDir()

	tests := []struct {
		name string
		cfg  string
	}{
		{
			name: "Server",
			cfg: `
server:
    enabled: true
    address: localhost:0
sensor:
    provider: mock
    interval: 10ms
location:
    static: true
    lat: 40.7128
    lon: -74.006
log:
    server:
        path: "` + filepath.ToSlash(filepath.Join(logDir, "server.log")) + `"
        level: "debug"
    requests:
        path: "` + filepath.ToSlash(filepath.Join(logDir, "requests.log")) + `"
        level: "info"
`,
		},
		{
			name: "Headless",
			cfg: `
server:
    enabled: false
compass:
    smoother: rate_limited
sensor:
    provider: mock
    interval: 10ms
log:
    server:
        path: "` + filepath.ToSlash(filepath.Join(logDir, "headless.log")) + `"
        level: "info"
    requests:
        path: "` + filepath.ToSlash(filepath.Join(logDir, "headless_requests.log")) + `"
        level: "info"
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
			defer cancel()

			if err := run(ctx, writeConfig(t, tt.cfg)); err != nil {
				t.Fatalf("run() failed: %v", err)
			}
		})
	}
}

func TestRun_InvalidConfig(t *testing.T) {
	logDir := t.TempDir()
	path := writeConfig(t, `
compass:
    alignment_threshold_deg: -1
sensor:
    interval: 10ms
log:
    server:
        path: "`+filepath.ToSlash(filepath.Join(logDir, "server.log"))+`"
    requests:
        path: "`+filepath.ToSlash(filepath.Join(logDir, "requests.log"))+`"
`)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	err := run(ctx, path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "startup checks failed")
}

func TestInitializeSource(t *testing.T) {
	cfg := config.DefaultConfig()
	src, err := initializeSource(cfg)
	require.NoError(t, err)
	assert.Equal(t, "mock", src.Name())

	cfg.Sensor.Provider = config.SensorReplay
	cfg.Sensor.ReplayPath = filepath.Join(t.TempDir(), "missing.yaml")
	_, err = initializeSource(cfg)
	assert.Error(t, err)

	trace := filepath.Join(t.TempDir(), "trace.yaml")
	require.NoError(t, os.WriteFile(trace, []byte("interval: 50ms\nheadings: [10, 20]\n"), 0o644))
	cfg.Sensor.ReplayPath = trace
	src, err = initializeSource(cfg)
	require.NoError(t, err)
	assert.Equal(t, "replay", src.Name())
}

func TestTrackerConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Compass.AlignmentThreshold = 3
	cfg.Compass.SettleTime = config.Duration(time.Second)
	cfg.Sensor.Interval = config.Duration(50 * time.Millisecond)

	hc := trackerConfig(cfg)
	assert.Equal(t, 3.0, hc.AlignmentThreshold)
	assert.Equal(t, 50*time.Millisecond, hc.NominalInterval)
	assert.Equal(t, heading.ExponentialSmoother{SettleTime: time.Second}, hc.Smoother)

	cfg.Compass.Smoother = config.SmootherRateLimited
	hc = trackerConfig(cfg)
	assert.IsType(t, heading.RateLimitedSmoother{}, hc.Smoother)
}

func TestOneShotDirection(t *testing.T) {
	jakarta := geo.Point{Lat: -6.2088, Lon: 106.8456}

	// Missing file: default target, and nothing is written
	missing := filepath.Join(t.TempDir(), "qibla.yaml")
	dir, err := oneShotDirection(missing, jakarta)
	require.NoError(t, err)
	assert.InDelta(t, 295.0, dir.Bearing, 1.0)
	assert.NoFileExists(t, missing)

	// Configured target: due east along the equator
	path := writeConfig(t, "compass:\n    target:\n        lat: 0\n        lon: 10\n")
	dir, err = oneShotDirection(path, geo.Point{Lat: 0, Lon: 0})
	require.NoError(t, err)
	assert.InDelta(t, 90.0, dir.Bearing, 1e-9)
	assert.Equal(t, geo.Point{Lat: 0, Lon: 10}, dir.Target)

	_, err = oneShotDirection(missing, geo.Point{Lat: 95, Lon: 0})
	assert.ErrorIs(t, err, geo.ErrInvalidCoordinates)
}

func TestPrintDirection(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "qibla.yaml")
	assert.NoError(t, printDirection(missing, geo.Point{Lat: -6.2088, Lon: 106.8456}))
	assert.ErrorIs(t, printDirection(missing, geo.Point{Lat: 95, Lon: 0}), geo.ErrInvalidCoordinates)
}

package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"qiblago/internal/api"
	"qiblago/pkg/config"
	"qiblago/pkg/geo"
	"qiblago/pkg/heading"
	"qiblago/pkg/logging"
	"qiblago/pkg/probe"
	"qiblago/pkg/qibla"
	"qiblago/pkg/session"
	"qiblago/pkg/tracker"
	"qiblago/pkg/version"
)

const defaultConfigPath = "configs/qibla.yaml"

var (
	initConfig = flag.Bool("init-config", false, "Generate default config file and exit")
	configPath = flag.String("config", defaultConfigPath, "Path to the config file")
	lat        = flag.Float64("lat", math.NaN(), "Print the Qibla direction for this latitude and exit (requires -lon)")
	lon        = flag.Float64("lon", math.NaN(), "Longitude for -lat")
)

func main() {
	flag.Parse()

	if *initConfig {
		if err := config.GenerateDefault(*configPath); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to generate config: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Config file generated: %s\n", *configPath)
		return
	}

	if !math.IsNaN(*lat) || !math.IsNaN(*lon) {
		if err := printDirection(*configPath, geo.Point{Lat: *lat, Lon: *lon}); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := run(context.Background(), *configPath); err != nil {
		fmt.Fprintf(os.Stderr, "CRITICAL ERROR: Application failed: %v\n", err)
		os.Exit(1)
	}
}

// printDirection handles the one-shot -lat/-lon mode.
func printDirection(cfgPath string, p geo.Point) error {
	dir, err := oneShotDirection(cfgPath, p)
	if err != nil {
		return err
	}
	fmt.Printf("Qibla from (%.4f, %.4f): %.1f° %s, %.0f km\n", p.Lat, p.Lon, dir.Bearing, dir.Compass, dir.DistanceKm)
	return nil
}

// oneShotDirection computes the direction toward compass.target from cfgPath.
// A missing config file means the defaults; the file is not created.
func oneShotDirection(cfgPath string, p geo.Point) (qibla.Direction, error) {
	appCfg := config.DefaultConfig()
	if _, err := os.Stat(cfgPath); err == nil {
		if appCfg, err = config.Load(cfgPath); err != nil {
			return qibla.Direction{}, fmt.Errorf("failed to load config: %w", err)
		}
	}

	calc, err := qibla.NewCalculator(geo.Point{Lat: appCfg.Compass.Target.Lat, Lon: appCfg.Compass.Target.Lon})
	if err != nil {
		return qibla.Direction{}, fmt.Errorf("invalid compass target: %w", err)
	}
	return calc.Direction(p)
}

func run(ctx context.Context, cfgPath string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := config.LoadEnvFile(".env"); err != nil {
		return err
	}
	appCfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := config.ApplyEnv(appCfg); err != nil {
		return fmt.Errorf("failed to apply environment: %w", err)
	}

	cleanupLogs, err := logging.Init(&appCfg.Log)
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer cleanupLogs()

	slog.Info("Qibla Compass Started", "version", version.Version)

	target := geo.Point{Lat: appCfg.Compass.Target.Lat, Lon: appCfg.Compass.Target.Lon}
	calc, err := qibla.NewCalculator(target)
	if err != nil {
		return fmt.Errorf("invalid compass target: %w", err)
	}

	src, err := initializeSource(appCfg)
	if err != nil {
		return fmt.Errorf("failed to initialize heading source: %w", err)
	}

	// Startup Verification
	probes := []probe.Probe{probe.ConfigCheck(appCfg), probe.SourceCheck(src)}
	if appCfg.Location.Static {
		probes = append(probes, probe.BearingCheck(calc, staticLocation(appCfg)))
	}
	if err := probe.AnalyzeResults(probe.Run(ctx, probes)); err != nil {
		return fmt.Errorf("startup checks failed: %w", err)
	}

	stats := tracker.New()
	sess := session.New(calc, heading.New(trackerConfig(appCfg)), stats)
	hub := api.NewStreamHub()
	sess.AddSink(hub)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		if err := sess.Run(ctx); err != nil {
			slog.Error("Session failed", "error", err)
		}
	}()
	go func() {
		defer wg.Done()
		if err := sess.Pump(ctx, src); err != nil && ctx.Err() == nil {
			slog.Error("Heading source failed", "error", err)
		}
	}()
	defer wg.Wait()
	defer cancel()

	if appCfg.Location.Static {
		p := staticLocation(appCfg)
		if err := sess.PushFix(ctx, p); err != nil {
			return fmt.Errorf("failed to apply static location: %w", err)
		}
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	if !appCfg.Server.Enabled {
		slog.Info("HTTP server disabled, running headless")
		select {
		case <-quit:
			slog.Info("Shutting down...")
		case <-ctx.Done():
			slog.Info("Context cancelled, shutting down...")
		}
		return nil
	}

	srv := api.NewServer(appCfg.Server.Address,
		api.NewQiblaHandler(sess, calc),
		api.NewStatsHandler(stats),
		hub,
		cancel,
	)
	return runServerLifecycle(ctx, srv, quit)
}

func staticLocation(cfg *config.Config) geo.Point {
	return geo.Point{Lat: cfg.Location.Lat, Lon: cfg.Location.Lon}
}

func runServerLifecycle(ctx context.Context, srv *http.Server, quit chan os.Signal) error {
	slog.Info("Starting server", "addr", srv.Addr)
	serverErrors := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrors <- err
		}
	}()
	select {
	case <-quit:
		slog.Info("Shutting down server...")
	case <-ctx.Done():
		slog.Info("Context cancelled, shutting down...")
	case err := <-serverErrors:
		return fmt.Errorf("server failed: %w", err)
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

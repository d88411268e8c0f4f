package main

import (
	"log/slog"
	"time"

	"qiblago/pkg/config"
	"qiblago/pkg/heading"
	"qiblago/pkg/sensor"
)

func initializeSource(cfg *config.Config) (sensor.Source, error) {
	switch cfg.Sensor.Provider {
	case config.SensorReplay:
		slog.Info("Heading Source: Replay", "path", cfg.Sensor.ReplayPath)
		tr, err := sensor.LoadTrace(cfg.Sensor.ReplayPath)
		if err != nil {
			return nil, err
		}
		return sensor.NewReplay(tr), nil
	default:
		slog.Info("Heading Source: Mock")
		m := cfg.Sensor.Mock
		return sensor.NewMockCompass(sensor.MockConfig{
			Interval:     time.Duration(cfg.Sensor.Interval),
			StartHeading: m.StartHeading,
			SweepRate:    m.SweepRate,
			Noise:        m.Noise,
			Seed:         m.Seed,
		}), nil
	}
}

func trackerConfig(cfg *config.Config) heading.Config {
	hc := heading.DefaultConfig()
	hc.AlignmentThreshold = cfg.Compass.AlignmentThreshold
	hc.SettleTime = time.Duration(cfg.Compass.SettleTime)
	hc.NominalInterval = time.Duration(cfg.Sensor.Interval)

	switch cfg.Compass.Smoother {
	case config.SmootherRateLimited:
		hc.Smoother = heading.DefaultRateLimitedSmoother()
	default:
		hc.Smoother = heading.ExponentialSmoother{SettleTime: hc.SettleTime}
	}
	return hc
}

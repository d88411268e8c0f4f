package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Environment overrides.
const (
	EnvLat    = "QIBLA_LAT"
	EnvLon    = "QIBLA_LON"
	EnvSensor = "QIBLA_SENSOR"
)

// LoadEnvFile loads KEY=VALUE pairs from path into the process environment.
// A missing file is not an error. Variables already set are not overwritten.
func LoadEnvFile(path string) error {
	err := godotenv.Load(path)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("failed to load env file: %w", err)
}

// ApplyEnv overrides configuration values from the environment.
// Setting both QIBLA_LAT and QIBLA_LON enables a static location fix.
func ApplyEnv(cfg *Config) error {
	latStr, lonStr := os.Getenv(EnvLat), os.Getenv(EnvLon)
	if latStr != "" || lonStr != "" {
		if latStr == "" || lonStr == "" {
			return fmt.Errorf("%s and %s must be set together", EnvLat, EnvLon)
		}
		lat, err := strconv.ParseFloat(latStr, 64)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvLat, err)
		}
		lon, err := strconv.ParseFloat(lonStr, 64)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvLon, err)
		}
		cfg.Location = LocationConfig{Static: true, Lat: lat, Lon: lon}
		slog.Debug("Location override from environment", "lat", lat, "lon", lon)
	}

	if p := os.Getenv(EnvSensor); p != "" {
		cfg.Sensor.Provider = p
	}
	return nil
}

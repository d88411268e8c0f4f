package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Smoother names accepted in compass.smoother.
const (
	SmootherExponential = "exponential"
	SmootherRateLimited = "rate_limited"
)

// Sensor providers accepted in sensor.provider.
const (
	SensorMock   = "mock"
	SensorReplay = "replay"
)

// Config holds the application configuration.
type Config struct {
	Compass  CompassConfig  `yaml:"compass"`
	Location LocationConfig `yaml:"location"`
	Sensor   SensorConfig   `yaml:"sensor"`
	Log      LogConfig      `yaml:"log"`
	Server   ServerConfig   `yaml:"server"`
}

// CompassConfig holds the heading fusion settings.
type CompassConfig struct {
	AlignmentThreshold float64     `yaml:"alignment_threshold_deg"`
	SettleTime         Duration    `yaml:"settle_time"`
	Smoother           string      `yaml:"smoother"` // "exponential", "rate_limited"
	Target             PointConfig `yaml:"target"`
}

// PointConfig is a latitude/longitude pair in degrees.
type PointConfig struct {
	Lat float64 `yaml:"lat"`
	Lon float64 `yaml:"lon"`
}

// LocationConfig holds the observer position used when no device fix is pushed.
type LocationConfig struct {
	Static bool    `yaml:"static"` // Apply Lat/Lon as the first fix at startup
	Lat    float64 `yaml:"lat"`
	Lon    float64 `yaml:"lon"`
}

// SensorConfig selects and tunes the heading source.
type SensorConfig struct {
	Provider   string           `yaml:"provider"` // "mock", "replay"
	Interval   Duration         `yaml:"interval"`
	Mock       MockSensorConfig `yaml:"mock"`
	ReplayPath string           `yaml:"replay_path"`
}

// MockSensorConfig holds settings for the simulated compass.
type MockSensorConfig struct {
	StartHeading float64 `yaml:"start_heading"`
	SweepRate    float64 `yaml:"sweep_rate_deg_s"`
	Noise        float64 `yaml:"noise_deg"`
	Seed         int64   `yaml:"seed"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Server   LogSettings `yaml:"server"`
	Requests LogSettings `yaml:"requests"`
}

// LogSettings holds settings for a specific logger.
type LogSettings struct {
	Path  string `yaml:"path"`
	Level string `yaml:"level"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Compass: CompassConfig{
			AlignmentThreshold: 5.0,
			SettleTime:         Duration(300 * time.Millisecond),
			Smoother:           SmootherExponential,
			Target: PointConfig{
				Lat: 21.4225,
				Lon: 39.8262,
			},
		},
		Location: LocationConfig{
			Static: false,
		},
		Sensor: SensorConfig{
			Provider: SensorMock,
			Interval: Duration(100 * time.Millisecond),
			Mock: MockSensorConfig{
				StartHeading: 0,
				SweepRate:    6, // one full turn per minute
				Noise:        1.5,
			},
			ReplayPath: "./data/heading_trace.yaml",
		},
		Log: LogConfig{
			Server: LogSettings{
				Path:  "./logs/server.log",
				Level: "INFO",
			},
			Requests: LogSettings{
				Path:  "./logs/requests.log",
				Level: "INFO",
			},
		},
		Server: ServerConfig{
			Enabled: true,
			Address: "localhost:1930",
		},
	}
}

// Validate checks the configuration for values the compass cannot work with.
func (c *Config) Validate() error {
	var errs []error

	th := c.Compass.AlignmentThreshold
	if math.IsNaN(th) || th <= 0 || th >= 180 {
		errs = append(errs, fmt.Errorf("compass.alignment_threshold_deg must be in (0, 180), got %v", th))
	}
	if c.Compass.SettleTime < 0 {
		errs = append(errs, fmt.Errorf("compass.settle_time must not be negative"))
	}
	switch c.Compass.Smoother {
	case SmootherExponential, SmootherRateLimited:
	default:
		errs = append(errs, fmt.Errorf("compass.smoother: unknown smoother %q", c.Compass.Smoother))
	}
	if err := checkPoint(c.Compass.Target.Lat, c.Compass.Target.Lon); err != nil {
		errs = append(errs, fmt.Errorf("compass.target: %w", err))
	}
	if c.Location.Static {
		if err := checkPoint(c.Location.Lat, c.Location.Lon); err != nil {
			errs = append(errs, fmt.Errorf("location: %w", err))
		}
	}
	switch c.Sensor.Provider {
	case SensorMock:
	case SensorReplay:
		if c.Sensor.ReplayPath == "" {
			errs = append(errs, errors.New("sensor.replay_path is required for the replay provider"))
		}
	default:
		errs = append(errs, fmt.Errorf("sensor.provider: unknown provider %q", c.Sensor.Provider))
	}
	if c.Sensor.Interval <= 0 {
		errs = append(errs, errors.New("sensor.interval must be positive"))
	}

	return errors.Join(errs...)
}

func checkPoint(lat, lon float64) error {
	if math.IsNaN(lat) || math.IsNaN(lon) || lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return fmt.Errorf("coordinates (%v, %v) out of range", lat, lon)
	}
	return nil
}

// Load loads the configuration from the given path.
// If the file does not exist, it creates it with default values.
// If the file exists, values are merged over the defaults and the file is left untouched.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	if _, err := os.Stat(path); err == nil {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
		return cfg, nil
	}

	// If file does not exist, save defaults
	if err := Save(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to save config file: %w", err)
	}
	return cfg, nil
}

// Save writes the configuration to the path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte(`# Qibla Compass Configuration
# ---------------------------
# Angles are degrees, clockwise from true north.
# Durations: ns, us, ms, s, m, h, d (day), w (week)

`)
	data = append(header, data...)

	// Inject comments for enum fields
	reSmoother := regexp.MustCompile(`(?m)^(\s+)smoother:`)
	data = reSmoother.ReplaceAll(data, []byte("${1}# Options: exponential, rate_limited\n${1}smoother:"))

	reProvider := regexp.MustCompile(`(?m)^(\s+)provider:`)
	data = reProvider.ReplaceAll(data, []byte("${1}# Options: mock, replay\n${1}provider:"))

	reThreshold := regexp.MustCompile(`(?m)^(\s+)alignment_threshold_deg:`)
	data = reThreshold.ReplaceAll(data, []byte("${1}# Aligned when strictly closer than this to the target\n${1}alignment_threshold_deg:"))

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// GenerateDefault creates a default config file at the given path.
// Returns nil if the file already exists.
func GenerateDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil // File exists, do nothing
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	return Save(path, DefaultConfig())
}

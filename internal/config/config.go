package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/i474232898/metdata-explorer/internal/weather"
)

// NaiveLayout is the minute-precision layout of start times and window bounds.
const NaiveLayout = "2006-01-02T15:04"

type AppConfig struct {
	AppEnv   string
	LogLevel slog.Level
	Port     string

	// Batch backend.
	BackendURL      string
	HTTPTimeout     time.Duration
	BreakerFailures uint32
	BreakerTimeout  time.Duration

	// RefreshInterval re-submits the current query periodically (0 = disabled).
	RefreshInterval time.Duration

	// Run history retention.
	StoreMaxHistory int           // max number of runs kept (0 = unlimited)
	StoreMaxAge     time.Duration // max age of runs (0 = unlimited)

	JournalPath    string // empty disables the diagnostics journal
	GeocoderAPIKey string // empty disables geocoding

	Defaults Defaults
}

// Defaults seed the session and bound the time input. They come from the
// YAML file named by CONFIG_FILE.
type Defaults struct {
	Locations []weather.Location `yaml:"locations"`
	Vars      []string           `yaml:"vars"`
	StartTime string             `yaml:"start_time"`
	Hours     int                `yaml:"hours"`
	Interval  int                `yaml:"interval"`
	WindowMin string             `yaml:"window_min"`
	WindowMax string             `yaml:"window_max"`
}

// Window returns the parsed valid-time bounds.
func (d Defaults) Window() (time.Time, time.Time, error) {
	lo, err := time.Parse(NaiveLayout, d.WindowMin)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid window_min: %w", err)
	}
	hi, err := time.Parse(NaiveLayout, d.WindowMax)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid window_max: %w", err)
	}
	if hi.Before(lo) {
		return time.Time{}, time.Time{}, fmt.Errorf("window_max %s is before window_min %s", d.WindowMax, d.WindowMin)
	}
	return lo, hi, nil
}

// TimeWindow returns the default time input.
func (d Defaults) TimeWindow() weather.TimeWindow {
	return weather.TimeWindow{Start: d.StartTime, Hours: d.Hours, Interval: d.Interval}
}

// builtinDefaults mirror the dataset the backend serves: June 1-12 2025.
func builtinDefaults() Defaults {
	return Defaults{
		Locations: []weather.Location{{ID: "loc_1", Lat: 30.5, Lon: 120.5}},
		Vars:      []string{"t2m", "tp6h"},
		StartTime: "2025-06-01T00:00",
		Hours:     24,
		Interval:  1,
		WindowMin: "2025-06-01T00:00",
		WindowMax: "2025-06-12T01:00",
	}
}

// Load reads configuration from .env, the defaults file and the environment.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	cfg := &AppConfig{}

	cfg.AppEnv = getenvDefault("APP_ENV", "dev")
	switch cfg.AppEnv {
	case "dev", "prod":
	default:
		return nil, fmt.Errorf("invalid APP_ENV %q (allowed: dev, prod)", cfg.AppEnv)
	}

	level, err := ParseLogLevel(getenvDefault("LOG_LEVEL", "info"))
	if err != nil {
		return nil, err
	}
	cfg.LogLevel = level
	cfg.Port = getenvDefault("PORT", "8080")

	cfg.BackendURL = getenvDefault("BACKEND_URL", "http://localhost:8000")
	if cfg.HTTPTimeout, err = getenvDuration("HTTP_TIMEOUT", "30s"); err != nil {
		return nil, err
	}
	if cfg.BreakerFailures, err = getenvUint32("BREAKER_MAX_FAILURES", 5); err != nil {
		return nil, err
	}
	if cfg.BreakerTimeout, err = getenvDuration("BREAKER_TIMEOUT", "1m"); err != nil {
		return nil, err
	}

	if cfg.RefreshInterval, err = getenvDuration("REFRESH_INTERVAL", "0s"); err != nil {
		return nil, err
	}

	cfg.StoreMaxHistory = getenvInt("STORE_MAX_HISTORY", 20)
	if cfg.StoreMaxAge, err = getenvDuration("STORE_MAX_AGE", "24h"); err != nil {
		return nil, err
	}

	cfg.JournalPath = strings.TrimSpace(os.Getenv("JOURNAL_PATH"))
	cfg.GeocoderAPIKey = strings.TrimSpace(os.Getenv("GEOCODER_API_KEY"))

	defaults, err := LoadDefaults(getenvDefault("CONFIG_FILE", "config.yaml"))
	if err != nil {
		return nil, err
	}
	cfg.Defaults = defaults

	return cfg, nil
}

// LoadDefaults reads the YAML defaults file. A missing file yields the
// built-in defaults; fields absent from the file keep their built-in value.
func LoadDefaults(path string) (Defaults, error) {
	d := builtinDefaults()

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return d, nil
	}
	if err != nil {
		return Defaults{}, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &d); err != nil {
		return Defaults{}, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if err := d.validate(); err != nil {
		return Defaults{}, fmt.Errorf("config file %s: %w", path, err)
	}
	return d, nil
}

func (d Defaults) validate() error {
	if _, _, err := d.Window(); err != nil {
		return err
	}
	seen := make(map[string]bool, len(d.Locations))
	for _, loc := range d.Locations {
		if loc.ID == "" {
			return fmt.Errorf("default location (%v, %v) has no id", loc.Lat, loc.Lon)
		}
		if seen[loc.ID] {
			return fmt.Errorf("duplicate default location id %q", loc.ID)
		}
		seen[loc.ID] = true
	}
	return nil
}

// ParseLogLevel maps debug|info|warn|error to a slog level.
func ParseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL %q (allowed: debug, info, warn, error)", s)
	}
}

func getenvDefault(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}

// getenvUint32 parses a non-negative count; anything else is an error.
func getenvUint32(key string, def uint32) (uint32, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.ParseUint(v, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: must be a non-negative integer", key, v)
	}
	return uint32(n), nil
}

func getenvDuration(key, def string) (time.Duration, error) {
	s := getenvDefault(key, def)
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

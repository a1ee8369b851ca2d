package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/viewsdata/forecast-service/internal/domain"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration
	LoadTimeout     time.Duration

	// Candidate input paths per data kind, tried in order.
	GridDataPaths    []string
	CountryDataPaths []string
	HDIDataPaths     []string
	CoordDataPaths   []string

	// Synthetic fallback policy and generator parameters.
	SyntheticFallback bool
	SynthSeed         int64
	SynthGridCount    int
	SynthFirstGridID  int64
	SynthStartMonth   domain.MonthID
	SynthEndMonth     domain.MonthID
}

// Load reads configuration from environment variables, applying defaults
// where unset. Path defaults match the VIEWS fatalities run file names the
// original deployment shipped with.
func Load() (*Config, error) {
	shutdownTimeout, err := durationEnv("SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}
	loadTimeout, err := durationEnv("LOAD_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, err
	}

	synthSeed, err := int64Env("SYNTH_SEED", 42)
	if err != nil {
		return nil, err
	}
	synthGridCount, err := int64Env("SYNTH_GRID_COUNT", 100)
	if err != nil {
		return nil, err
	}
	synthFirstGridID, err := int64Env("SYNTH_FIRST_GRID_ID", 62356)
	if err != nil {
		return nil, err
	}
	synthStartMonth, err := int64Env("SYNTH_START_MONTH", 548)
	if err != nil {
		return nil, err
	}
	synthEndMonth, err := int64Env("SYNTH_END_MONTH", 583)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		HTTPAddr:        envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,
		LoadTimeout:     loadTimeout,

		GridDataPaths:    pathsEnv("GRID_DATA_PATHS", "data/fatalities002_2025_07_t01_pgm.csv"),
		CountryDataPaths: pathsEnv("COUNTRY_DATA_PATHS", "data/fatalities002_2025_07_t01_cm.csv"),
		HDIDataPaths:     pathsEnv("HDI_DATA_PATHS", "data/sample_preds_001_90.csv.gz"),
		CoordDataPaths:   pathsEnv("COORD_DATA_PATHS", "data/sample_preds_001.csv.gz"),

		SyntheticFallback: boolEnv("SYNTHETIC_FALLBACK", true),
		SynthSeed:         synthSeed,
		SynthGridCount:    int(synthGridCount),
		SynthFirstGridID:  synthFirstGridID,
		SynthStartMonth:   domain.MonthID(synthStartMonth),
		SynthEndMonth:     domain.MonthID(synthEndMonth),
	}

	if cfg.SynthGridCount <= 0 {
		return nil, fmt.Errorf("SYNTH_GRID_COUNT must be positive")
	}
	if !cfg.SynthStartMonth.Valid() || !cfg.SynthEndMonth.Valid() {
		return nil, fmt.Errorf("SYNTH_START_MONTH and SYNTH_END_MONTH must be positive")
	}
	if cfg.SynthEndMonth < cfg.SynthStartMonth {
		return nil, fmt.Errorf("SYNTH_END_MONTH is before SYNTH_START_MONTH")
	}

	return cfg, nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// pathsEnv splits a comma-separated path list, dropping empty entries.
func pathsEnv(key, def string) []string {
	raw := envOrDefault(key, def)
	parts := strings.Split(raw, ",")
	paths := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			paths = append(paths, p)
		}
	}
	return paths
}

func boolEnv(key string, def bool) bool {
	switch strings.ToLower(os.Getenv(key)) {
	case "true", "1", "yes":
		return true
	case "false", "0", "no":
		return false
	default:
		return def
	}
}

func durationEnv(key string, def time.Duration) (time.Duration, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, s)
	}
	return d, nil
}

func int64Env(key string, def int64) (int64, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %q", key, s)
	}
	return v, nil
}

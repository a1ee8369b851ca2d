package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/viewsdata/forecast-service/internal/domain"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, 30*time.Second, cfg.LoadTimeout)

	assert.Equal(t, []string{"data/fatalities002_2025_07_t01_pgm.csv"}, cfg.GridDataPaths)
	assert.Equal(t, []string{"data/fatalities002_2025_07_t01_cm.csv"}, cfg.CountryDataPaths)
	assert.Equal(t, []string{"data/sample_preds_001_90.csv.gz"}, cfg.HDIDataPaths)
	assert.Equal(t, []string{"data/sample_preds_001.csv.gz"}, cfg.CoordDataPaths)

	assert.True(t, cfg.SyntheticFallback)
	assert.Equal(t, int64(42), cfg.SynthSeed)
	assert.Equal(t, 100, cfg.SynthGridCount)
	assert.Equal(t, int64(62356), cfg.SynthFirstGridID)
	assert.Equal(t, domain.MonthID(548), cfg.SynthStartMonth)
	assert.Equal(t, domain.MonthID(583), cfg.SynthEndMonth)
}

func TestLoad_CustomEnv(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("SHUTDOWN_TIMEOUT", "30s")
	t.Setenv("LOAD_TIMEOUT", "2m")
	t.Setenv("GRID_DATA_PATHS", "a.csv, b.csv.gz ,")
	t.Setenv("SYNTHETIC_FALLBACK", "false")
	t.Setenv("SYNTH_SEED", "7")
	t.Setenv("SYNTH_GRID_COUNT", "250")
	t.Setenv("SYNTH_FIRST_GRID_ID", "1000")
	t.Setenv("SYNTH_START_MONTH", "500")
	t.Setenv("SYNTH_END_MONTH", "511")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, 2*time.Minute, cfg.LoadTimeout)
	assert.Equal(t, []string{"a.csv", "b.csv.gz"}, cfg.GridDataPaths)
	assert.False(t, cfg.SyntheticFallback)
	assert.Equal(t, int64(7), cfg.SynthSeed)
	assert.Equal(t, 250, cfg.SynthGridCount)
	assert.Equal(t, int64(1000), cfg.SynthFirstGridID)
	assert.Equal(t, domain.MonthID(500), cfg.SynthStartMonth)
	assert.Equal(t, domain.MonthID(511), cfg.SynthEndMonth)
}

func TestLoad_InvalidShutdownTimeout(t *testing.T) {
	t.Setenv("SHUTDOWN_TIMEOUT", "not-a-duration")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SHUTDOWN_TIMEOUT")
}

func TestLoad_NegativeLoadTimeout(t *testing.T) {
	t.Setenv("LOAD_TIMEOUT", "-5s")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "LOAD_TIMEOUT")
}

func TestLoad_InvalidSeed(t *testing.T) {
	t.Setenv("SYNTH_SEED", "abc")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SYNTH_SEED")
}

func TestLoad_NonPositiveGridCount(t *testing.T) {
	t.Setenv("SYNTH_GRID_COUNT", "0")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SYNTH_GRID_COUNT")
}

func TestLoad_InvertedMonthRange(t *testing.T) {
	t.Setenv("SYNTH_START_MONTH", "583")
	t.Setenv("SYNTH_END_MONTH", "548")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SYNTH_END_MONTH")
}

package utils

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kws_lib/nn"
	"kws_lib/nn/models"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, ValidateConfig(&cfg))

	ms, err := nn.PrepareModelSettings(cfg.AudioSettings())
	require.NoError(t, err)
	assert.Equal(t, 1960, ms.FingerprintSize)
	assert.Equal(t, "yes", cfg.Label(2))
	assert.Equal(t, "7", cfg.Label(7))
}

func TestLoadConfigOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
model_architecture: ds_cnn
model_size_info: [2, 64, 10, 4, 2, 2, 64, 3, 3, 1, 1]
window_stride_ms: 10
label_count: 12
log_level: debug
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "ds_cnn", cfg.ModelArchitecture)
	assert.Equal(t, []int{2, 64, 10, 4, 2, 2, 64, 3, 3, 1, 1}, cfg.ModelSizeInfo)
	assert.Equal(t, 10, cfg.WindowStrideMs)
	assert.Equal(t, 16000, cfg.SampleRate)
	assert.Equal(t, 12, cfg.LabelCount)
	assert.Empty(t, cfg.Labels, "default labels dropped when the count changes")
	require.NoError(t, ValidateConfig(cfg))
}

func TestLoadConfigKeepsDefaultLabels(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, "sample_rate: 8000\n"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Labels, cfg.Labels)
	assert.Equal(t, 8000, cfg.SampleRate)
}

func TestLoadConfigErrors(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = LoadConfig(writeConfig(t, "sample_rate: [oops"))
	assert.Error(t, err)
}

func TestValidateConfig(t *testing.T) {
	cases := map[string]func(*Config){
		"unknown architecture": func(c *Config) { c.ModelArchitecture = "lstm" },
		"ds_cnn without sizes": func(c *Config) { c.ModelArchitecture = "ds_cnn" },
		"label mismatch":       func(c *Config) { c.Labels = []string{"a"} },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := DefaultConfig()
			mutate(&cfg)
			assert.Error(t, ValidateConfig(&cfg))
		})
	}
}

func TestParseSizeInfo(t *testing.T) {
	info, err := ParseSizeInfo("[2, 64,10,4,2,2 64 3 3 1 1]")
	require.NoError(t, err)
	assert.Equal(t, models.SizeInfo{2, 64, 10, 4, 2, 2, 64, 3, 3, 1, 1}, info)

	info, err = ParseSizeInfo("")
	require.NoError(t, err)
	assert.Empty(t, info)

	_, err = ParseSizeInfo("2 x")
	assert.True(t, errors.Is(err, nn.ErrInvalidConfiguration))
}

func TestNewLogger(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error", "bogus"} {
		logger, err := NewLogger(level)
		require.NoError(t, err, level)
		require.NotNil(t, logger)
	}

	logger, _ := NewLogger("warn")
	assert.False(t, logger.Core().Enabled(-1), "debug disabled at warn")
	logger, _ = NewLogger("bogus")
	assert.True(t, logger.Core().Enabled(0), "info enabled by default")
}

package utils

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"kws_lib/nn"
	"kws_lib/nn/models"
)

// Config holds the audio front end and architecture configuration.
type Config struct {
	ModelArchitecture   string   `yaml:"model_architecture"`
	ModelSizeInfo       []int    `yaml:"model_size_info"`
	SampleRate          int      `yaml:"sample_rate"`
	ClipDurationMs      int      `yaml:"clip_duration_ms"`
	WindowSizeMs        int      `yaml:"window_size_ms"`
	WindowStrideMs      int      `yaml:"window_stride_ms"`
	DCTCoefficientCount int      `yaml:"dct_coefficient_count"`
	LabelCount          int      `yaml:"label_count"`
	Labels              []string `yaml:"labels"`
	LogLevel            string   `yaml:"log_level"`
}

// DefaultConfig mirrors the firmware front end: 1 s clips at 16 kHz framed
// into 49 slices of 40 bins, four categories.
func DefaultConfig() Config {
	return Config{
		ModelArchitecture:   models.MicroSpeech.String(),
		SampleRate:          16000,
		ClipDurationMs:      1000,
		WindowSizeMs:        30,
		WindowStrideMs:      20,
		DCTCoefficientCount: 40,
		LabelCount:          4,
		Labels:              []string{"silence", "unknown", "yes", "no"},
		LogLevel:            "info",
	}
}

// LoadConfig loads the configuration from the given file path. Keys missing
// from the file keep their DefaultConfig values.
func LoadConfig(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}

	cfg := DefaultConfig()
	labels := cfg.Labels
	cfg.Labels = nil
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", filePath, err)
	}
	if cfg.Labels == nil && cfg.LabelCount == len(labels) {
		cfg.Labels = labels
	}
	return &cfg, nil
}

// AudioSettings extracts the settings calculator input.
func (c *Config) AudioSettings() nn.AudioSettings {
	return nn.AudioSettings{
		LabelCount:          c.LabelCount,
		SampleRate:          c.SampleRate,
		ClipDurationMs:      c.ClipDurationMs,
		WindowSizeMs:        c.WindowSizeMs,
		WindowStrideMs:      c.WindowStrideMs,
		DCTCoefficientCount: c.DCTCoefficientCount,
	}
}

// Label names class i, falling back to its index.
func (c *Config) Label(i int) string {
	if i >= 0 && i < len(c.Labels) {
		return c.Labels[i]
	}
	return strconv.Itoa(i)
}

// ParseSizeInfo parses a model_size_info string such as
// "2 64 10 4 2 2 64 3 3 1 1". Commas and brackets are accepted as separators.
func ParseSizeInfo(s string) (models.SizeInfo, error) {
	parts := strings.FieldsFunc(s, func(r rune) bool {
		return r == ' ' || r == ',' || r == '\t' || r == '\n' || r == '[' || r == ']'
	})
	info := make(models.SizeInfo, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("%w: model size info entry %q: %v", nn.ErrInvalidConfiguration, p, err)
		}
		info[i] = n
	}
	return info, nil
}

// ValidateConfig checks the parts of the configuration that the settings
// calculator and builders do not see.
func ValidateConfig(config *Config) error {
	arch, err := models.ParseArchitecture(config.ModelArchitecture)
	if err != nil {
		return err
	}
	if arch == models.DSCNN && len(config.ModelSizeInfo) == 0 {
		return fmt.Errorf("%w: ds_cnn needs model_size_info", nn.ErrInvalidConfiguration)
	}
	if len(config.Labels) > 0 && len(config.Labels) != config.LabelCount {
		return fmt.Errorf("%w: %d labels given for label_count %d",
			nn.ErrInvalidConfiguration, len(config.Labels), config.LabelCount)
	}
	return nil
}

// Package config loads stemkit's configuration from a YAML file and
// environment variables, in that precedence order over a set of
// built-in defaults.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/pkg/errors"
)

// Config holds stemkit's CLI-wide configuration. It governs the
// cmd/stemkit wrapper layer only; pkg/mp4 itself takes no
// configuration and never reads these values.
type Config struct {
	// OutputDir is where extract/batch-extract writes synthesized stem
	// files, unless overridden per-invocation.
	OutputDir string `koanf:"output_dir" json:"output_dir" validate:"required"`

	// MinTrackSampleCount is loaded and defaults to 100, but nothing reads
	// it: ExtractAllTracks and BatchExtract skip tracks below a fixed
	// threshold of 100 samples.
	MinTrackSampleCount int `koanf:"min_track_sample_count" json:"min_track_sample_count"`

	// BackupSuffix is appended to the original filename when
	// MutateWithBackup is used.
	BackupSuffix string `koanf:"backup_suffix" json:"backup_suffix"`

	// MaxConcurrentExtracts bounds how many tracks BatchExtract will
	// synthesize in parallel.
	MaxConcurrentExtracts int `koanf:"max_concurrent_extracts" json:"max_concurrent_extracts" validate:"min=1"`

	// LogLevel is one of "debug", "info", "warn", "error".
	LogLevel string `koanf:"log_level" json:"log_level"`
}

func defaults() *Config {
	return &Config{
		OutputDir:             "./stems",
		MinTrackSampleCount:   100,
		BackupSuffix:          ".bak",
		MaxConcurrentExtracts: 4,
		LogLevel:              "info",
	}
}

// New loads configuration with the following precedence (later
// overrides earlier): built-in defaults, a YAML config file
// (STEMKIT_CONFIG_FILE or ./stemkit.yaml), then environment variables
// prefixed implicitly by their lower-cased key names.
func New() (*Config, error) {
	k := koanf.New(".")
	cfg := defaults()

	configPath := os.Getenv("STEMKIT_CONFIG_FILE")
	if configPath == "" {
		configPath = "./stemkit.yaml"
	}
	if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
		if !os.IsNotExist(err) {
			return nil, errors.Wrapf(err, "failed to load config file %s", configPath)
		}
	}

	if err := k.Load(env.Provider("", ".", strings.ToLower), nil); err != nil {
		return nil, errors.Wrap(err, "failed to load environment variables")
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// NewForTest returns a Config with minimal required fields set, for use
// in tests that need a Config but not a real config file.
func NewForTest() *Config {
	cfg := defaults()
	cfg.OutputDir = os.TempDir()
	return cfg
}

func validateConfig(cfg *Config) error {
	validate := validator.New()
	err := validate.Struct(cfg)
	if err == nil {
		return nil
	}

	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return errors.Wrap(err, "config validation failed")
	}

	var msgs []string
	for _, e := range validationErrors {
		field := e.StructField()
		tag := e.Tag()
		switch tag {
		case "required":
			msgs = append(msgs, fmt.Sprintf(
				"missing required config: %s\n  Set via environment variable: %s\n  Or in config file: %s",
				field, strings.ToUpper(toSnakeCase(field)), toSnakeCase(field),
			))
		default:
			msgs = append(msgs, fmt.Sprintf("invalid config %s: %s", field, tag))
		}
	}
	return errors.New("configuration validation failed:\n\n" + strings.Join(msgs, "\n\n"))
}

func toSnakeCase(s string) string {
	var result strings.Builder
	for i, r := range s {
		if i > 0 && r >= 'A' && r <= 'Z' {
			result.WriteRune('_')
		}
		result.WriteRune(r)
	}
	return strings.ToLower(result.String())
}

// Package config loads thicket settings from a YAML file, .env files and
// THICKET_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override (THICKET_DB, ...).
const EnvPrefix = "THICKET"

// Config holds all configuration settings. Command-line flags override
// whatever Load produced.
type Config struct {
	// DB is the index database path. Empty means .thicket/index.db under
	// the repository root.
	DB string `mapstructure:"db" yaml:"db"`

	// Format is the CLI output format: json, text or yaml.
	Format string `mapstructure:"format" yaml:"format"`

	// Languages restricts indexing. Empty means every supported language.
	Languages []string `mapstructure:"languages" yaml:"languages"`

	Parallel bool `mapstructure:"parallel" yaml:"parallel"`

	// Workers caps extraction and resolution concurrency. Zero means one
	// worker per CPU.
	Workers int `mapstructure:"workers" yaml:"workers"`

	LogLevel string `mapstructure:"log_level" yaml:"log_level"`

	// MemoSize is the capacity of the suffix-lookup memo used while
	// resolving imports. Zero disables it.
	MemoSize int `mapstructure:"memo_size" yaml:"memo_size"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Format:   "json",
		Parallel: true,
		LogLevel: "warn",
		MemoSize: 4096,
	}
}

// Load reads configuration. When path is empty it searches .thicket/,
// the working directory and ~/.thicket for thicket.yaml; a missing file
// there is not an error. An explicit path must exist.
func Load(path string) (*Config, error) {
	loadEnvFiles()

	v := viper.New()
	v.SetConfigType("yaml")

	cfg := Default()
	v.SetDefault("db", cfg.DB)
	v.SetDefault("format", cfg.Format)
	v.SetDefault("languages", cfg.Languages)
	v.SetDefault("parallel", cfg.Parallel)
	v.SetDefault("workers", cfg.Workers)
	v.SetDefault("log_level", cfg.LogLevel)
	v.SetDefault("memo_size", cfg.MemoSize)

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("thicket")
		v.AddConfigPath(".thicket")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".thicket"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadEnvFiles loads .env.local then .env from the working directory.
// godotenv never overrides variables that are already set, so the first
// file to define a key wins.
func loadEnvFiles() {
	for _, file := range []string{".env.local", ".env"} {
		if _, err := os.Stat(file); err == nil {
			_ = godotenv.Load(file)
		}
	}
}

// Validate checks enumerated and numeric settings.
func (c *Config) Validate() error {
	switch c.Format {
	case "json", "text", "yaml":
	default:
		return fmt.Errorf("config: unknown format %q (want json, text or yaml)", c.Format)
	}
	if c.Workers < 0 {
		return fmt.Errorf("config: workers must be >= 0, got %d", c.Workers)
	}
	if c.MemoSize < 0 {
		return fmt.Errorf("config: memo_size must be >= 0, got %d", c.MemoSize)
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// NewLogger builds a logrus logger at the configured level.
func (c *Config) NewLogger() *logrus.Logger {
	logger := logrus.New()
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		level = logrus.WarnLevel
	}
	logger.SetLevel(level)
	return logger
}

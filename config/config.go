// Package config reads the settings of the lots command from the environment.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/etnz/taxlots"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

// Environment variables.
const (
	EnvDatabase = "TAXLOTS_DB"
	EnvLogLevel = "TAXLOTS_LOG_LEVEL"
	EnvMethod   = "TAXLOTS_METHOD"
	EnvCurrency = "TAXLOTS_CURRENCY"
	EnvCacheTTL = "TAXLOTS_CACHE_TTL"
)

// Config holds the settings shared by every command.
type Config struct {
	DatabasePath string               // SQLite file
	LogLevel     zerolog.Level        // console log level
	Method       taxlots.LotSelection // default lot selection of sales
	Currency     string               // currency of new securities
	CacheTTL     time.Duration        // lifetime of cached security lookups
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		DatabasePath: "taxlots.db",
		LogLevel:     zerolog.InfoLevel,
		Method:       taxlots.FIFO,
		Currency:     "USD",
		CacheTTL:     5 * time.Minute,
	}
}

// Load reads an optional .env file from the working directory, then the
// environment. Variables already set in the environment take precedence over
// the file. Unset variables keep their default.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return Config{}, fmt.Errorf("cannot read .env: %w", err)
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds the configuration from a lookup function such as os.Getenv.
func FromEnv(getenv func(string) string) (Config, error) {
	cfg := Default()
	if v := getenv(EnvDatabase); v != "" {
		cfg.DatabasePath = v
	}
	if v := getenv(EnvLogLevel); v != "" {
		level, err := zerolog.ParseLevel(strings.ToLower(v))
		if err != nil {
			return Config{}, fmt.Errorf("%s: %w", EnvLogLevel, err)
		}
		cfg.LogLevel = level
	}
	if v := getenv(EnvMethod); v != "" {
		m, err := taxlots.ParseLotSelection(strings.ToLower(v))
		if err != nil {
			return Config{}, fmt.Errorf("%s: %w", EnvMethod, err)
		}
		cfg.Method = m
	}
	if v := getenv(EnvCurrency); v != "" {
		if err := taxlots.ValidateCurrency(v); err != nil {
			return Config{}, fmt.Errorf("%s: %w", EnvCurrency, err)
		}
		cfg.Currency = v
	}
	if v := getenv(EnvCacheTTL); v != "" {
		ttl, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("%s: %w", EnvCacheTTL, err)
		}
		if ttl < 0 {
			return Config{}, fmt.Errorf("%s: negative duration %v", EnvCacheTTL, ttl)
		}
		cfg.CacheTTL = ttl
	}
	return cfg, nil
}

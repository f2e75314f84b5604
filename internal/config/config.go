// Package config loads server settings from the environment.
//
// An optional .env file in the working directory is read first
// (github.com/joho/godotenv). Variables already set in the real environment
// win over the file, so a deployment can override anything.
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
)

type Config struct {
	Port   int
	DBPath string

	JWTSecret  string
	TokenTTL   time.Duration
	BcryptCost int

	DBMaxOpenConns   int
	DBAcquireTimeout time.Duration

	LogLevel  slog.Level
	LogFormat string // "text" or "json"

	CORSAllowedOrigins []string
}

// Load reads .env (if present) and the environment, applying defaults.
// A .env file that exists but cannot be parsed is an error, as are
// malformed numbers or durations.
func Load() (*Config, error) {
	var errs []error

	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, fs.ErrNotExist) {
		errs = append(errs, fmt.Errorf(".env: %w", err))
	}

	cfg := &Config{
		Port:               envInt("PORT", 8080, &errs),
		DBPath:             envString("DB_PATH", "data/conduit.db"),
		JWTSecret:          os.Getenv("JWT_SECRET"),
		TokenTTL:           envDuration("TOKEN_TTL", 24*time.Hour, &errs),
		BcryptCost:         envInt("BCRYPT_COST", 12, &errs),
		DBMaxOpenConns:     envInt("DB_MAX_OPEN_CONNS", 10, &errs),
		DBAcquireTimeout:   envDuration("DB_ACQUIRE_TIMEOUT", 5*time.Second, &errs),
		LogFormat:          strings.ToLower(envString("LOG_FORMAT", "text")),
		CORSAllowedOrigins: envList("CORS_ALLOWED_ORIGINS", []string{"*"}),
	}

	level := envString("LOG_LEVEL", "info")
	if err := cfg.LogLevel.UnmarshalText([]byte(level)); err != nil {
		errs = append(errs, fmt.Errorf("LOG_LEVEL: %q is not a log level", level))
	}

	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// Validate checks values that have no usable default. The server refuses
// to start when it returns an error.
func (c *Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.JWTSecret) == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	} else if len(c.JWTSecret) < 16 {
		errs = append(errs, errors.New("JWT_SECRET must be at least 16 characters"))
	}
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("PORT %d is out of range", c.Port))
	}
	if c.DBPath == "" {
		errs = append(errs, errors.New("DB_PATH must not be empty"))
	}
	if c.TokenTTL <= 0 {
		errs = append(errs, errors.New("TOKEN_TTL must be positive"))
	}
	if c.BcryptCost < 4 || c.BcryptCost > 31 {
		errs = append(errs, fmt.Errorf("BCRYPT_COST %d must be between 4 and 31", c.BcryptCost))
	}
	if c.DBMaxOpenConns <= 0 {
		errs = append(errs, errors.New("DB_MAX_OPEN_CONNS must be positive"))
	}
	if c.DBAcquireTimeout <= 0 {
		errs = append(errs, errors.New("DB_ACQUIRE_TIMEOUT must be positive"))
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		errs = append(errs, fmt.Errorf("LOG_FORMAT %q must be text or json", c.LogFormat))
	}
	if len(c.CORSAllowedOrigins) == 0 {
		errs = append(errs, errors.New("CORS_ALLOWED_ORIGINS must list at least one origin"))
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// NewLogger builds the process logger described by the config.
func (c *Config) NewLogger() *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.LogLevel}
	if c.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

func envString(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int, errs *[]error) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %q is not an integer", key, v))
		return def
	}
	return n
}

func envDuration(key string, def time.Duration, errs *[]error) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %q is not a duration", key, v))
		return def
	}
	return d
}

// envList splits a comma-separated variable, dropping blank entries.
func envList(key string, def []string) []string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

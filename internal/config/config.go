// Package config loads server settings from the environment.
//
// Values come from real environment variables first. A .env file in the
// working directory, when present, fills in anything that is not already set.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds everything cmd/server needs to build the server.
type Config struct {
	Port int

	DatabaseType string // sqlite, postgres or mysql
	DBPath       string // sqlite file, ":memory:" for tests
	DatabaseURL  string // DSN for postgres and mysql

	JWTSecret  string
	SessionTTL time.Duration

	GoogleClientID     string
	GoogleClientSecret string
	GoogleCallbackURL  string

	ClientURL    string
	CookieSecure bool
	StaticDir    string

	LogLevel  slog.Level
	LogFormat string // text or json
}

// GoogleEnabled reports whether the OAuth routes can be registered.
func (c *Config) GoogleEnabled() bool {
	return c.GoogleClientID != "" && c.GoogleClientSecret != ""
}

// Load reads .env (if any) and the environment, then validates the result.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("config: reading .env: %w", err)
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from a lookup function. Tests pass a map-backed
// lookup instead of touching the process environment.
func FromEnv(getenv func(string) string) (*Config, error) {
	get := func(key, def string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return def
	}

	cfg := &Config{
		DatabaseType:       strings.ToLower(get("DATABASE_TYPE", "sqlite")),
		DBPath:             get("DB_PATH", "data/menu.db"),
		DatabaseURL:        get("DATABASE_URL", ""),
		JWTSecret:          get("JWT_SECRET", ""),
		GoogleClientID:     get("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: get("GOOGLE_CLIENT_SECRET", ""),
		ClientURL:          strings.TrimRight(get("CLIENT_URL", "http://localhost:5173"), "/"),
		StaticDir:          get("STATIC_DIR", ""),
		LogFormat:          strings.ToLower(get("LOG_FORMAT", "text")),
	}

	var err error
	if cfg.Port, err = strconv.Atoi(get("PORT", "8080")); err != nil || cfg.Port <= 0 || cfg.Port > 65535 {
		return nil, fmt.Errorf("config: invalid PORT %q", getenv("PORT"))
	}
	if cfg.SessionTTL, err = time.ParseDuration(get("SESSION_TTL", "24h")); err != nil || cfg.SessionTTL <= 0 {
		return nil, fmt.Errorf("config: invalid SESSION_TTL %q", getenv("SESSION_TTL"))
	}
	if cfg.CookieSecure, err = strconv.ParseBool(get("COOKIE_SECURE", "false")); err != nil {
		return nil, fmt.Errorf("config: invalid COOKIE_SECURE %q", getenv("COOKIE_SECURE"))
	}
	if err := cfg.LogLevel.UnmarshalText([]byte(get("LOG_LEVEL", "info"))); err != nil {
		return nil, fmt.Errorf("config: invalid LOG_LEVEL %q", getenv("LOG_LEVEL"))
	}
	cfg.GoogleCallbackURL = get("GOOGLE_CALLBACK_URL",
		fmt.Sprintf("http://localhost:%d/api/auth/google/callback", cfg.Port))

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.DatabaseType {
	case "sqlite":
	case "postgres", "mysql":
		if c.DatabaseURL == "" {
			return fmt.Errorf("config: DATABASE_URL is required when DATABASE_TYPE=%s", c.DatabaseType)
		}
	default:
		return fmt.Errorf("config: unsupported DATABASE_TYPE %q", c.DatabaseType)
	}

	if len(c.JWTSecret) < 16 {
		return errors.New("config: JWT_SECRET must be set to at least 16 characters")
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		return fmt.Errorf("config: LOG_FORMAT must be text or json, got %q", c.LogFormat)
	}
	return nil
}

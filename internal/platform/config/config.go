// Package config loads application configuration from environment variables.
// All variables use the PATHWAY_ prefix.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Cache    CacheConfig
	Remote   RemoteConfig
	Quiz     QuizConfig
	Log      LogConfig
	PathsDir string
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int
	Host string
}

// DatabaseConfig holds PostgreSQL connection settings. The database is
// optional; without it the outbox and event journal run in memory.
type DatabaseConfig struct {
	URL      string
	MaxConns int
	MinConns int
}

// CacheConfig holds Dragonfly/Redis connection settings.
type CacheConfig struct {
	URL string
}

// RemoteConfig holds progress backend settings. Endpoints are tried in
// order; the first entry is the primary.
type RemoteConfig struct {
	Endpoints []string
	Token     string
}

// QuizConfig holds assessment provider settings. Providers are tried in
// order; the built-in local generator is always the last resort.
type QuizConfig struct {
	Endpoints     []string
	Token         string
	QuestionCount int
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string
	Format string
}

// Load reads configuration from environment variables with PATHWAY_ prefix.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port: envInt("PATHWAY_SERVER_PORT", 8080),
			Host: envStr("PATHWAY_SERVER_HOST", "0.0.0.0"),
		},
		Database: DatabaseConfig{
			URL:      envStr("PATHWAY_DATABASE_URL", ""),
			MaxConns: envInt("PATHWAY_DATABASE_MAX_CONNS", 25),
			MinConns: envInt("PATHWAY_DATABASE_MIN_CONNS", 5),
		},
		Cache: CacheConfig{
			URL: envStr("PATHWAY_CACHE_URL", ""),
		},
		Remote: RemoteConfig{
			Endpoints: envList("PATHWAY_REMOTE_ENDPOINTS", nil),
			Token:     envStr("PATHWAY_REMOTE_TOKEN", ""),
		},
		Quiz: QuizConfig{
			Endpoints:     envList("PATHWAY_QUIZ_ENDPOINTS", nil),
			Token:         envStr("PATHWAY_QUIZ_TOKEN", ""),
			QuestionCount: envInt("PATHWAY_QUIZ_QUESTION_COUNT", 5),
		},
		Log: LogConfig{
			Level:  envStr("PATHWAY_LOG_LEVEL", "info"),
			Format: envStr("PATHWAY_LOG_FORMAT", "json"),
		},
		PathsDir: envStr("PATHWAY_PATHS_DIR", "./paths"),
	}

	return cfg, nil
}

// Validate checks that required configuration is present.
func (c *Config) Validate() error {
	if len(c.Remote.Endpoints) == 0 {
		return fmt.Errorf("PATHWAY_REMOTE_ENDPOINTS is required")
	}
	if c.Quiz.QuestionCount <= 0 {
		return fmt.Errorf("PATHWAY_QUIZ_QUESTION_COUNT must be positive, got %d", c.Quiz.QuestionCount)
	}
	return nil
}

// HasDatabase returns true if a PostgreSQL URL is configured.
func (c *Config) HasDatabase() bool {
	return c.Database.URL != ""
}

// HasCache returns true if a Redis/Dragonfly URL is configured.
func (c *Config) HasCache() bool {
	return c.Cache.URL != ""
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if s := strings.TrimSpace(part); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Package config defines MoodSync configuration and how it is loaded.
package config

import (
	"time"
)

// Preference store backends.
const (
	BackendFile     = "file"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogMode selects the encoder: development (console) or production (JSON).
	LogMode string `koanf:"log_mode"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// Spotify application credentials and OAuth redirect.
	SpotifyID     string `koanf:"spotify_id"`
	SpotifySecret string `koanf:"spotify_secret"`
	RedirectURL   string `koanf:"redirect_url"`

	// StoreBackend picks where preferences live: file, sqlite, postgres or redis.
	StoreBackend string `koanf:"store_backend"`
	StorePath    string `koanf:"store_path"`
	SQLitePath   string `koanf:"sqlite_path"`
	DatabaseURL  string `koanf:"database_url"`
	RedisAddr    string `koanf:"redis_addr"`

	// OllamaURL enables the sentiment model when set.
	OllamaURL   string `koanf:"ollama_url"`
	OllamaModel string `koanf:"ollama_model"`

	// Recommendation tuning.
	Cooldown       time.Duration `koanf:"cooldown"`
	RecommendCount int           `koanf:"recommend_count"`
	PreferredCount int           `koanf:"preferred_count"`
	FreshCount     int           `koanf:"fresh_count"`
	MinConfidence  float64       `koanf:"min_confidence"`
}

// New returns a Config holding the defaults.
func New() *Config {
	return &Config{
		LogLevel:       "info",
		LogMode:        "development",
		Addr:           "127.0.0.1:8080",
		RedirectURL:    "http://127.0.0.1:8080/callback",
		StoreBackend:   BackendFile,
		StorePath:      "user_preferences.json",
		SQLitePath:     "moodsync.db",
		RedisAddr:      "localhost:6379",
		OllamaModel:    "llama3.2:3b",
		Cooldown:       2 * time.Hour,
		RecommendCount: 5,
		PreferredCount: 3,
		FreshCount:     2,
		MinConfidence:  0.4,
	}
}

package config

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	Port           int      `yaml:"port" validate:"gt=0"`
	AllowedOrigins []string `yaml:"allowedOrigins"`
	// Per-IP request budget for the decode endpoints.
	RateLimitPerSec float64 `yaml:"rateLimitPerSec" validate:"gte=0"`
	RateLimitBurst  int     `yaml:"rateLimitBurst" validate:"gte=0"`
}

// LiveConfig contains the live race feed endpoints and client tuning.
type LiveConfig struct {
	BaseURL          string `yaml:"baseURL" validate:"omitempty,url"`
	StreamURL        string `yaml:"streamURL" validate:"omitempty,url"`
	APIKey           string `yaml:"apiKey"`
	MaxReconnects    int    `yaml:"maxReconnects" validate:"gte=0"`
	ReconnectBaseMS  int    `yaml:"reconnectBaseMS" validate:"gte=0"`
	PollIntervalMS   int    `yaml:"pollIntervalMS" validate:"gte=0"`
	TrailLength      int    `yaml:"trailLength" validate:"gte=0"`
	RequestTimeoutMS int    `yaml:"requestTimeoutMS" validate:"gte=0"`
	LookupCacheSec   int    `yaml:"lookupCacheSec" validate:"gte=0"`
}

// LoggingConfig contains log level and optional file rotation settings.
type LoggingConfig struct {
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"maxSizeMB" validate:"gte=0"`
	MaxBackups int    `yaml:"maxBackups" validate:"gte=0"`
	MaxAgeDays int    `yaml:"maxAgeDays" validate:"gte=0"`
	Compress   bool   `yaml:"compress"`
}

// WatcherConfig contains the spool directory importer settings.
type WatcherConfig struct {
	Dir      string `yaml:"dir"`
	OutDir   string `yaml:"outDir"`
	SettleMS int    `yaml:"settleMS" validate:"gte=0"`
}

// Config is the root configuration structure.
type Config struct {
	AppEnv  string        `yaml:"appEnv"`
	Server  ServerConfig  `yaml:"server"`
	Live    LiveConfig    `yaml:"live"`
	Logging LoggingConfig `yaml:"logging"`
	Watcher WatcherConfig `yaml:"watcher"`
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return fallback
}

// getEnvInt gets an environment variable as int or returns a default value.
func getEnvInt(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return fallback
}

// Load reads configuration in three layers: an optional .env file, an
// optional YAML file at path, then environment variable overrides. The merged
// result is validated before being returned.
func Load(path string) (*Config, error) {
	// godotenv.Load does not override variables already set in the environment.
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on existing environment variables and defaults.")
	}

	cfg := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("read config %s: %w", path, err)
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)

	v := validator.New()
	if err := v.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func defaults() *Config {
	return &Config{
		AppEnv: "development",
		Server: ServerConfig{
			Port:            8080,
			AllowedOrigins:  []string{"https://*", "http://localhost:8081"},
			RateLimitPerSec: 1,
			RateLimitBurst:  5,
		},
		Live: LiveConfig{
			BaseURL:          "https://live.regattaflow.com/api/v1",
			StreamURL:        "wss://live.regattaflow.com/stream",
			MaxReconnects:    5,
			ReconnectBaseMS:  1000,
			PollIntervalMS:   30000,
			TrailLength:      50,
			RequestTimeoutMS: 10000,
			LookupCacheSec:   60,
		},
		Logging: LoggingConfig{
			MaxSizeMB:  100,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
		Watcher: WatcherConfig{
			SettleMS: 500,
		},
	}
}

func applyEnvOverrides(cfg *Config) {
	cfg.AppEnv = getEnv("APP_ENV", cfg.AppEnv)
	cfg.Server.Port = getEnvInt("SERVER_PORT", cfg.Server.Port)
	cfg.Live.BaseURL = getEnv("LIVE_API_BASE_URL", cfg.Live.BaseURL)
	cfg.Live.StreamURL = getEnv("LIVE_STREAM_URL", cfg.Live.StreamURL)
	cfg.Live.APIKey = getEnv("LIVE_API_KEY", cfg.Live.APIKey)
	cfg.Live.PollIntervalMS = getEnvInt("LIVE_POLL_INTERVAL_MS", cfg.Live.PollIntervalMS)
	cfg.Logging.File = getEnv("LOG_FILE", cfg.Logging.File)
	cfg.Watcher.Dir = getEnv("WATCH_DIR", cfg.Watcher.Dir)
	cfg.Watcher.OutDir = getEnv("WATCH_OUT_DIR", cfg.Watcher.OutDir)
}

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Environment variables that override file values.
const (
	EnvAPIKey   = "LIFECHAT_OPENAI_API_KEY"
	EnvBaseURL  = "LIFECHAT_OPENAI_BASE_URL"
	EnvRedisURL = "LIFECHAT_REDIS_URL"
)

// Presence backends.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// Config represents the global ~/.lifechat/config.toml.
type Config struct {
	DefaultInstance string              `toml:"default_instance"`
	Presence        PresenceConfig      `toml:"presence"`
	Redis           RedisConfig         `toml:"redis"`
	Notifications   NotificationsConfig `toml:"notifications"`
	Analysis        AnalysisConfig      `toml:"analysis"`
	Dispatch        DispatchConfig      `toml:"dispatch"`
	AutoReply       AutoReplyConfig     `toml:"autoreply"`
}

// PresenceConfig selects where presence and pending notifications live.
type PresenceConfig struct {
	Backend string `toml:"backend"`
}

type RedisConfig struct {
	URL string `toml:"url"`
	DB  int    `toml:"db"`
}

type NotificationsConfig struct {
	Capacity int `toml:"capacity"`
}

type AnalysisConfig struct {
	BaseURL           string   `toml:"base_url"`
	APIKey            string   `toml:"api_key"`
	Model             string   `toml:"model"`
	MaxTokens         int      `toml:"max_tokens"`
	Temperature       float64  `toml:"temperature"`
	Timeout           Duration `toml:"timeout"`
	RequestsPerMinute int      `toml:"requests_per_minute"`
}

type DispatchConfig struct {
	IntimacyDelta int `toml:"intimacy_delta"`
}

type AutoReplyConfig struct {
	Workers   int `toml:"workers"`
	QueueSize int `toml:"queue_size"`
}

// Duration is a time.Duration written as "30s" in TOML.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Default returns a complete working configuration.
func Default() *Config {
	return &Config{
		DefaultInstance: "main",
		Presence:        PresenceConfig{Backend: BackendMemory},
		Redis:           RedisConfig{URL: "redis://localhost:6379/0"},
		Notifications:   NotificationsConfig{Capacity: MaxNotificationCapacity},
		Analysis: AnalysisConfig{
			BaseURL:     "https://api.openai.com/v1",
			Model:       "gpt-4o-mini",
			MaxTokens:   1000,
			Temperature: 0.7,
			Timeout:     Duration{30 * time.Second},
		},
		Dispatch:  DispatchConfig{IntimacyDelta: 1},
		AutoReply: AutoReplyConfig{Workers: 4, QueueSize: 64},
	}
}

// Load reads config from the given path over the defaults. Returns an error
// if the file is missing or malformed.
func Load(path string) (*Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOrDefault is Load, except that a missing file yields the defaults.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

// ApplyEnv loads envFile (if it exists) into the process environment and then
// applies the LIFECHAT_* overrides to cfg.
func ApplyEnv(cfg *Config, envFile string) error {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	if v := os.Getenv(EnvAPIKey); v != "" {
		cfg.Analysis.APIKey = v
	}
	if v := os.Getenv(EnvBaseURL); v != "" {
		cfg.Analysis.BaseURL = v
	}
	if v := os.Getenv(EnvRedisURL); v != "" {
		cfg.Redis.URL = v
		if cfg.Presence.Backend == "" || cfg.Presence.Backend == BackendMemory {
			cfg.Presence.Backend = BackendRedis
		}
	}
	return nil
}

// MaxNotificationCapacity is the most notifications kept per user.
const MaxNotificationCapacity = 100

// Validate rejects settings the daemon cannot run with.
func (c *Config) Validate() error {
	switch c.Presence.Backend {
	case BackendMemory, BackendRedis:
	default:
		return fmt.Errorf("presence.backend must be %q or %q, got %q", BackendMemory, BackendRedis, c.Presence.Backend)
	}
	if c.Notifications.Capacity <= 0 || c.Notifications.Capacity > MaxNotificationCapacity {
		return fmt.Errorf("notifications.capacity must be between 1 and %d, got %d", MaxNotificationCapacity, c.Notifications.Capacity)
	}
	if c.Dispatch.IntimacyDelta <= 0 {
		return fmt.Errorf("dispatch.intimacy_delta must be positive, got %d", c.Dispatch.IntimacyDelta)
	}
	if c.AutoReply.Workers <= 0 {
		return errors.New("autoreply.workers must be positive")
	}
	if c.Analysis.Timeout.Duration <= 0 {
		return errors.New("analysis.timeout must be positive")
	}
	return nil
}

// Save writes config to the given path, creating parent dirs as needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	encErr := toml.NewEncoder(f).Encode(cfg)
	if closeErr := f.Close(); closeErr != nil && encErr == nil {
		return closeErr
	}
	return encErr
}

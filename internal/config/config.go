package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type ServerConfig struct {
	Port          int    `yaml:"port"`
	AllowedOrigin string `yaml:"allowed_origin"`
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type DatabaseConfig struct {
	URL      string `yaml:"url"`
	MaxConns int    `yaml:"max_conns"`
}

type RedisConfig struct {
	URL      string        `yaml:"url"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

type AIConfig struct {
	GeminiKey string `yaml:"gemini_key"`
	GeminiURL string `yaml:"gemini_url"`
	Model     string `yaml:"model"`
	Voice     string `yaml:"voice"`
	// Context-window compression bounds for long conversations.
	CompressionTriggerTokens int32 `yaml:"compression_trigger_tokens"`
	CompressionTargetTokens  int32 `yaml:"compression_target_tokens"`
}

type MediaConfig struct {
	Root    string `yaml:"root"`
	BaseURL string `yaml:"base_url"`
}

type RelayConfig struct {
	// StartTimeout bounds upstream session startup; DrainStopTimeout bounds
	// the wait for the response drain goroutine to acknowledge cancellation.
	StartTimeout     time.Duration `yaml:"start_timeout"`
	DrainStopTimeout time.Duration `yaml:"drain_stop_timeout"`
	// Workers sizes the pool that takes transcript writes off the relay path.
	Workers int `yaml:"workers"`
	// ScreenshotLimit and ScreenshotWindow rate-limit screenshot assists per session.
	ScreenshotLimit  int           `yaml:"screenshot_limit"`
	ScreenshotWindow time.Duration `yaml:"screenshot_window"`
	// ScreenshotTimeout bounds the one-shot image turn round trip.
	ScreenshotTimeout time.Duration `yaml:"screenshot_timeout"`
}

type CleanupConfig struct {
	Interval time.Duration `yaml:"interval"`
	IdleDays int           `yaml:"idle_days"`
}

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	AI       AIConfig       `yaml:"ai"`
	Media    MediaConfig    `yaml:"media"`
	Relay    RelayConfig    `yaml:"relay"`
	Cleanup  CleanupConfig  `yaml:"cleanup"`

	Runtime RuntimeConfig `yaml:"-"`
}

// DefaultModel is the native-audio live model used when config omits one.
const DefaultModel = "models/gemini-2.5-flash-native-audio-preview-09-2025"

func LoadConfig(path string, dev bool) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.ApplyDefaults()

	// Minimal validation
	if cfg.Database.URL == "" {
		return nil, errors.New("database.url is required")
	}
	if cfg.Redis.URL == "" {
		return nil, errors.New("redis.url is required")
	}
	if cfg.AI.GeminiKey == "" {
		return nil, errors.New("ai.gemini_key is required")
	}

	cfg.Runtime.Dev = dev
	return &cfg, nil
}

func (cfg *Config) ApplyDefaults() {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8000
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Database.MaxConns <= 0 {
		cfg.Database.MaxConns = 10
	}
	if cfg.Redis.TTL <= 0 {
		cfg.Redis.TTL = time.Hour
	}
	if cfg.AI.Model == "" {
		cfg.AI.Model = DefaultModel
	}
	if cfg.AI.Voice == "" {
		cfg.AI.Voice = "Kore"
	}
	if cfg.AI.CompressionTriggerTokens <= 0 {
		cfg.AI.CompressionTriggerTokens = 25600
	}
	if cfg.AI.CompressionTargetTokens <= 0 {
		cfg.AI.CompressionTargetTokens = 12800
	}
	if cfg.Media.Root == "" {
		cfg.Media.Root = "media"
	}
	if cfg.Media.BaseURL == "" {
		cfg.Media.BaseURL = "/media"
	}
	if cfg.Relay.StartTimeout <= 0 {
		cfg.Relay.StartTimeout = 15 * time.Second
	}
	if cfg.Relay.DrainStopTimeout <= 0 {
		cfg.Relay.DrainStopTimeout = 5 * time.Second
	}
	if cfg.Relay.Workers <= 0 {
		cfg.Relay.Workers = 4
	}
	if cfg.Relay.ScreenshotLimit <= 0 {
		cfg.Relay.ScreenshotLimit = 6
	}
	if cfg.Relay.ScreenshotWindow <= 0 {
		cfg.Relay.ScreenshotWindow = time.Minute
	}
	if cfg.Relay.ScreenshotTimeout <= 0 {
		cfg.Relay.ScreenshotTimeout = 30 * time.Second
	}
	if cfg.Cleanup.Interval <= 0 {
		cfg.Cleanup.Interval = time.Hour
	}
	if cfg.Cleanup.IdleDays <= 0 {
		cfg.Cleanup.IdleDays = 30
	}
}

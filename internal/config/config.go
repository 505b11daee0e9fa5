// Package config reads the environment the studio server runs with.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// ErrMissingAPIKey is returned when GEMINI_API_KEY is unset.
var ErrMissingAPIKey = errors.New("GEMINI_API_KEY is required")

const (
	defaultPort          = "8080"
	defaultSourceTimeout = 20 * time.Second
	defaultMaxPixels     = 40_000_000
	defaultHistoryKeep   = 500
	defaultHistoryTTL    = 24 * time.Hour
	defaultTrimSchedule  = "@hourly"
)

type Config struct {
	Port         string
	GeminiAPIKey string
	TextModel    string
	ImageModel   string

	// Empty means in-memory history.
	GCPProjectID string

	DiscordBotToken       string
	DiscordShareChannelID string

	LogLevel      string
	SourceTimeout time.Duration
	FontPath      string

	// Sources larger than this many pixels are refused before decoding.
	MaxSourcePixels int

	HistoryKeep  int
	HistoryTTL   time.Duration
	TrimSchedule string
}

// SharingEnabled reports whether both Discord settings are present.
func (c *Config) SharingEnabled() bool {
	return c.DiscordBotToken != "" && c.DiscordShareChannelID != ""
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	// A missing .env is normal in deployed environments.
	_ = godotenv.Load()
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from a lookup function such as os.Getenv.
func FromEnv(getenv func(string) string) (*Config, error) {
	cfg := &Config{
		Port:                  getenv("PORT"),
		GeminiAPIKey:          getenv("GEMINI_API_KEY"),
		TextModel:             getenv("TEXT_MODEL"),
		ImageModel:            getenv("IMAGE_MODEL"),
		GCPProjectID:          getenv("GCP_PROJECT_ID"),
		DiscordBotToken:       getenv("DISCORD_BOT_TOKEN"),
		DiscordShareChannelID: getenv("DISCORD_SHARE_CHANNEL_ID"),
		LogLevel:              getenv("LOG_LEVEL"),
		FontPath:              getenv("FONT_PATH"),
		TrimSchedule:          getenv("TRIM_SCHEDULE"),
	}
	if cfg.Port == "" {
		cfg.Port = defaultPort
	}
	if cfg.TrimSchedule == "" {
		cfg.TrimSchedule = defaultTrimSchedule
	}
	if cfg.GeminiAPIKey == "" {
		return nil, ErrMissingAPIKey
	}

	var err error
	if cfg.SourceTimeout, err = duration(getenv, "SOURCE_TIMEOUT", defaultSourceTimeout); err != nil {
		return nil, err
	}
	if cfg.HistoryTTL, err = duration(getenv, "HISTORY_TTL", defaultHistoryTTL); err != nil {
		return nil, err
	}

	if cfg.HistoryKeep, err = count(getenv, "HISTORY_KEEP", defaultHistoryKeep, 0); err != nil {
		return nil, err
	}
	if cfg.MaxSourcePixels, err = count(getenv, "MAX_SOURCE_PIXELS", defaultMaxPixels, 1); err != nil {
		return nil, err
	}

	return cfg, nil
}

func count(getenv func(string) string, key string, def, floor int) (int, error) {
	v := getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < floor {
		return 0, fmt.Errorf("invalid %s %q", key, v)
	}
	return n, nil
}

func duration(getenv func(string) string, key string, def time.Duration) (time.Duration, error) {
	v := getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid %s: must not be negative", key)
	}
	return d, nil
}

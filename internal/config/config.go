package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Supported chat platforms.
const (
	PlatformDiscord  = "discord"
	PlatformTelegram = "telegram"
)

// Config holds all configuration for the application.
// Values are read by viper from an optional config file and environment variables.
type Config struct {
	Platform         string `mapstructure:"PLATFORM"`
	DiscordToken     string `mapstructure:"DISCORD_TOKEN"`
	TelegramBotToken string `mapstructure:"TELEGRAM_BOT_TOKEN"`
	GoogleAPIKey     string `mapstructure:"GOOGLE_API_KEY"`
	GeminiModel      string `mapstructure:"GEMINI_MODEL"`

	HistoryFile     string `mapstructure:"HISTORY_FILE"`
	MaxHistoryTurns int    `mapstructure:"MAX_HISTORY_TURNS"`

	// PreviewCachePath is the badger directory; empty keeps the cache in memory.
	PreviewCachePath string        `mapstructure:"PREVIEW_CACHE_PATH"`
	PreviewCacheTTL  time.Duration `mapstructure:"PREVIEW_CACHE_TTL"`

	FetchTimeout   time.Duration `mapstructure:"FETCH_TIMEOUT"`
	ProbeTimeout   time.Duration `mapstructure:"PROBE_TIMEOUT"`
	BackendTimeout time.Duration `mapstructure:"BACKEND_TIMEOUT"`

	Port      string `mapstructure:"PORT"`
	LogLevel  string `mapstructure:"LOG_LEVEL"`
	LogFormat string `mapstructure:"LOG_FORMAT"`

	FillerPhrases []string `mapstructure:"FILLER_PHRASES"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PLATFORM", PlatformDiscord)
	v.SetDefault("DISCORD_TOKEN", "")
	v.SetDefault("TELEGRAM_BOT_TOKEN", "")
	v.SetDefault("GOOGLE_API_KEY", "")
	v.SetDefault("GEMINI_MODEL", "gemini-2.5-flash-lite")
	v.SetDefault("HISTORY_FILE", "chat_history.json")
	v.SetDefault("MAX_HISTORY_TURNS", 6)
	v.SetDefault("PREVIEW_CACHE_PATH", "")
	v.SetDefault("PREVIEW_CACHE_TTL", 24*time.Hour)
	v.SetDefault("FETCH_TIMEOUT", 10*time.Second)
	v.SetDefault("PROBE_TIMEOUT", 5*time.Second)
	v.SetDefault("BACKEND_TIMEOUT", 60*time.Second)
	v.SetDefault("PORT", "8080")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("FILLER_PHRASES", []string{})
}

// LoadConfig reads configuration from path/config.yaml, if present, and environment variables.
// Environment variables win over the file.
func LoadConfig(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		// A missing file is fine; the environment may carry everything.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return Config{}, fmt.Errorf("unable to decode into struct: %w", err)
	}

	config.Platform = strings.ToLower(strings.TrimSpace(config.Platform))
	if config.MaxHistoryTurns <= 0 {
		config.MaxHistoryTurns = 6
	}
	return config, nil
}

// Validate checks the settings needed to connect to a chat platform and the model backend.
// Commands that never connect, like a one-off preview, skip it.
func (c Config) Validate() error {
	var errs []error
	switch c.Platform {
	case PlatformDiscord:
		if c.DiscordToken == "" {
			errs = append(errs, errors.New("DISCORD_TOKEN is not set"))
		}
	case PlatformTelegram:
		if c.TelegramBotToken == "" {
			errs = append(errs, errors.New("TELEGRAM_BOT_TOKEN is not set"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported PLATFORM %q (want %s or %s)", c.Platform, PlatformDiscord, PlatformTelegram))
	}
	if c.GoogleAPIKey == "" {
		errs = append(errs, errors.New("GOOGLE_API_KEY is not set"))
	}
	return errors.Join(errs...)
}

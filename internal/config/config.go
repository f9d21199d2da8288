package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config keeps runtime settings for the bot, read from the environment.
type Config struct {
	TelegramToken string `env:"TELEGRAM_TOKEN" env-required:"true"`

	CryptoPayToken   string        `env:"CRYPTO_PAY_TOKEN"`
	CryptoPayURL     string        `env:"CRYPTO_PAY_URL" env-default:"https://pay.crypt.bot/api"`
	CryptoPayTimeout time.Duration `env:"CRYPTO_PAY_TIMEOUT" env-default:"20s"`

	AdminID       int64  `env:"ADMIN_ID"`
	AdminUsername string `env:"ADMIN_USERNAME"`

	DatabaseURL string `env:"DATABASE_URL" env-default:"giftbot.db"`
	Timezone    string `env:"TIMEZONE" env-default:"UTC"`

	BroadcastInterval time.Duration `env:"BROADCAST_INTERVAL" env-default:"30ms"`
	ReminderTime      string        `env:"REMINDER_TIME" env-default:"10:00"`
	ReminderWindow    time.Duration `env:"REMINDER_WINDOW" env-default:"24h"`
	StatsInterval     time.Duration `env:"STATS_INTERVAL" env-default:"5m"`

	HTTPAddr        string `env:"HTTP_ADDR"`
	StorefrontToken string `env:"STOREFRONT_TOKEN"`

	LogLevel  string `env:"LOG_LEVEL" env-default:"info"`
	LogFormat string `env:"LOG_FORMAT" env-default:"text"`
}

// Load reads configuration from environment variables with sane defaults.
func Load() (Config, error) {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return cfg, fmt.Errorf("read env: %w", err)
	}

	cfg.TelegramToken = strings.TrimSpace(cfg.TelegramToken)
	cfg.CryptoPayToken = strings.TrimSpace(cfg.CryptoPayToken)
	cfg.AdminUsername = strings.TrimPrefix(strings.TrimSpace(cfg.AdminUsername), "@")

	if err := cfg.validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.TelegramToken == "" {
		return errors.New("TELEGRAM_TOKEN is required")
	}
	if c.AdminID == 0 && c.AdminUsername == "" {
		return errors.New("ADMIN_ID or ADMIN_USERNAME is required")
	}
	if c.CryptoPayTimeout <= 0 {
		return fmt.Errorf("CRYPTO_PAY_TIMEOUT must be positive, got %s", c.CryptoPayTimeout)
	}
	if c.BroadcastInterval < 0 {
		return fmt.Errorf("BROADCAST_INTERVAL must not be negative, got %s", c.BroadcastInterval)
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("TIMEZONE: %w", err)
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		return fmt.Errorf("LOG_FORMAT must be text or json, got %q", c.LogFormat)
	}
	return nil
}

// PaymentsEnabled reports whether a gateway token is configured.
func (c Config) PaymentsEnabled() bool {
	return c.CryptoPayToken != ""
}

// Location returns the configured timezone, UTC when it cannot be loaded.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Package config loads settlebot settings from an optional YAML file and
// SETTLEBOT_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. SETTLEBOT_TELEGRAM_TOKEN.
const EnvPrefix = "SETTLEBOT"

// Storage drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config is the full settlebot configuration.
type Config struct {
	Telegram TelegramConfig `mapstructure:"telegram"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Receipt  ReceiptConfig  `mapstructure:"receipt"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Bot      BotConfig      `mapstructure:"bot"`
	Log      LogConfig      `mapstructure:"log"`
}

// TelegramConfig holds Bot API credentials and polling settings.
type TelegramConfig struct {
	Token string `mapstructure:"token"`
	Debug bool   `mapstructure:"debug"`
	// PollTimeout is the long-polling timeout in seconds.
	PollTimeout int `mapstructure:"poll_timeout"`
}

// StorageConfig selects the storage backend.
type StorageConfig struct {
	Driver string `mapstructure:"driver"`
	// DSN is a file path for sqlite and a connection URL for postgres.
	DSN string `mapstructure:"dsn"`
}

// ReceiptConfig points at the receipt recognition service.
type ReceiptConfig struct {
	URL     string        `mapstructure:"url"`
	Token   string        `mapstructure:"token"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	// Addr is where /metrics listens. Empty disables the endpoint.
	Addr string `mapstructure:"addr"`
}

// BotConfig tunes event handling concurrency.
type BotConfig struct {
	// Workers is the number of goroutines handling updates. Events of one
	// user always land on the same worker.
	Workers int `mapstructure:"workers"`
	// BroadcastLimit caps concurrent sends of one team-wide message.
	BroadcastLimit int `mapstructure:"broadcast_limit"`
}

// LogConfig sets the log level: debug, info, warn or error.
type LogConfig struct {
	Level string `mapstructure:"level"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("telegram.token", "")
	v.SetDefault("telegram.debug", false)
	v.SetDefault("telegram.poll_timeout", 60)
	v.SetDefault("storage.driver", DriverSQLite)
	v.SetDefault("storage.dsn", "./data/settlebot.db")
	v.SetDefault("receipt.url", "https://proverkacheka.com/api/v1/check/get")
	v.SetDefault("receipt.token", "")
	v.SetDefault("receipt.timeout", 20*time.Second)
	v.SetDefault("metrics.addr", ":9090")
	v.SetDefault("bot.workers", 8)
	v.SetDefault("bot.broadcast_limit", 8)
	v.SetDefault("log.level", "info")
}

// Load reads defaults, then the YAML file at path when path is not empty,
// then environment overrides.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.Storage.Driver = strings.ToLower(strings.TrimSpace(cfg.Storage.Driver))
	return cfg, nil
}

// Validate checks the settings needed to run the storage layer.
func (c *Config) Validate() error {
	var errs []error
	switch c.Storage.Driver {
	case DriverSQLite, DriverPostgres:
	default:
		errs = append(errs, fmt.Errorf("unknown storage driver %q", c.Storage.Driver))
	}
	if c.Storage.DSN == "" {
		errs = append(errs, errors.New("storage.dsn is empty"))
	}
	return errors.Join(errs...)
}

// ValidateServe additionally checks the settings needed to run the bot.
func (c *Config) ValidateServe() error {
	errs := []error{c.Validate()}
	if c.Telegram.Token == "" {
		errs = append(errs, errors.New("telegram.token is empty"))
	}
	if c.Bot.Workers <= 0 {
		errs = append(errs, fmt.Errorf("bot.workers must be positive, got %d", c.Bot.Workers))
	}
	if c.Bot.BroadcastLimit <= 0 {
		errs = append(errs, fmt.Errorf("bot.broadcast_limit must be positive, got %d", c.Bot.BroadcastLimit))
	}
	return errors.Join(errs...)
}

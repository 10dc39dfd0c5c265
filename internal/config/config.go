// Package config loads the service settings from the environment, an
// optional .env file and an optional YAML file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds every setting of the storefront API.
type Config struct {
	AppPort          string        `mapstructure:"app_port" validate:"required"`
	DatabaseDriver   string        `mapstructure:"database_driver" validate:"oneof=postgres sqlite"`
	DatabaseDSN      string        `mapstructure:"database_dsn" validate:"required"`
	RabbitMQURL      string        `mapstructure:"rabbitmq_url" validate:"omitempty,url"`
	RabbitMQExchange string        `mapstructure:"rabbitmq_exchange" validate:"required"`
	CacheBackend     string        `mapstructure:"cache_backend" validate:"oneof=none memory redis"`
	CacheTTL         time.Duration `mapstructure:"cache_ttl" validate:"gt=0"`
	RedisURL         string        `mapstructure:"redis_url" validate:"required_if=CacheBackend redis"`
	LogLevel         string        `mapstructure:"log_level" validate:"oneof=debug info warn error"`
	LogeTypeFastPath bool          `mapstructure:"loge_type_fast_path"`
	SeedDemoData     bool          `mapstructure:"seed_demo_data"`
}

var defaults = map[string]any{
	"APP_PORT":            ":8080",
	"DATABASE_DRIVER":     "sqlite",
	"DATABASE_DSN":        "file:regalia.db?cache=shared",
	"RABBITMQ_URL":        "",
	"RABBITMQ_EXCHANGE":   "catalog_events",
	"CACHE_BACKEND":       "memory",
	"CACHE_TTL":           "5m",
	"REDIS_URL":           "",
	"LOG_LEVEL":           "info",
	"LOGE_TYPE_FAST_PATH": false,
	"SEED_DEMO_DATA":      false,
}

// Load reads the configuration. args are the command line arguments
// without the program name; --config names a YAML file.
func Load(args []string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("failed to load .env: %w", err)
	}

	flags := pflag.NewFlagSet("regalia", pflag.ContinueOnError)
	configFile := flags.String("config", "", "path to a YAML config file")
	if err := flags.Parse(args); err != nil {
		return Config{}, err
	}

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()

	if *configFile != "" {
		v.SetConfigFile(*configFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := validator.New().Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// SlogLevel returns the configured log level.
func (c Config) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// NewLogger returns the JSON logger the service writes with.
func (c Config) NewLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: c.SlogLevel()}))
}

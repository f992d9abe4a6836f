// Package config loads the exchange's runtime settings. Grounded on
// 0xtitan6-polymarket-mm/internal/config/config.go's viper-with-env-override
// pattern: a YAML file for defaults, environment variables (PIT_*) for
// anything an operator wants to override without editing the file.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the top-level configuration for cmd/server.
type Config struct {
	Listen  ListenConfig  `mapstructure:"listen"`
	Game    GameConfig    `mapstructure:"game"`
	Logging LoggingConfig `mapstructure:"logging"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// ListenConfig is the tcpjson transport's bind address.
type ListenConfig struct {
	Address string        `mapstructure:"address"`
	Port    int           `mapstructure:"port"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// GameConfig holds the game settings (spec.md §3 Room, §4.2 OrderBook
// tick_size). CardsPerPile is passed to every room cmd/server creates;
// TickSize is only validated: every room's books use a tick size of 1
// whatever its value.
type GameConfig struct {
	CardsPerPile int   `mapstructure:"cards_per_pile"`
	TickSize     int64 `mapstructure:"tick_size"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// MetricsConfig is the Prometheus exposition endpoint.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Address string `mapstructure:"address"`
	Port    int    `mapstructure:"port"`
}

// defaults mirrors spec.md's implicit defaults: 3 cards per pile
// (SPEC_FULL.md §10), tick size of 1, the reference transport's port.
func defaults() Config {
	return Config{
		Listen: ListenConfig{Address: "0.0.0.0", Port: 9001, Timeout: 30 * time.Second},
		Game:   GameConfig{CardsPerPile: 3, TickSize: 1},
		Logging: LoggingConfig{Level: "info", Format: "console"},
		Metrics: MetricsConfig{Enabled: true, Address: "0.0.0.0", Port: 9090},
	}
}

// Load reads config from an optional YAML file, with PIT_* environment
// variables always taking precedence. A missing path is not an error —
// the zero-config case just runs on defaults, which keeps `go run
// ./cmd/server` usable without a config file on a first run.
func Load(path string) (*Config, error) {
	v := viper.New()
	applyDefaults(v, defaults())

	v.SetEnvPrefix("PIT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	return &cfg, nil
}

func applyDefaults(v *viper.Viper, d Config) {
	v.SetDefault("listen.address", d.Listen.Address)
	v.SetDefault("listen.port", d.Listen.Port)
	v.SetDefault("listen.timeout", d.Listen.Timeout)
	v.SetDefault("game.cards_per_pile", d.Game.CardsPerPile)
	v.SetDefault("game.tick_size", d.Game.TickSize)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("metrics.enabled", d.Metrics.Enabled)
	v.SetDefault("metrics.address", d.Metrics.Address)
	v.SetDefault("metrics.port", d.Metrics.Port)
}

// Validate checks value ranges a zero-value or malformed file could leave
// unset.
func (c *Config) Validate() error {
	if c.Listen.Port <= 0 {
		return fmt.Errorf("config: listen.port must be > 0")
	}
	if c.Game.CardsPerPile <= 0 {
		return fmt.Errorf("config: game.cards_per_pile must be > 0")
	}
	if c.Game.TickSize <= 0 {
		return fmt.Errorf("config: game.tick_size must be > 0")
	}
	return nil
}

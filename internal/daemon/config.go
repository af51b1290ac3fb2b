// Package daemon manages the ascend runtime lifecycle and configuration.
package daemon

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
	"go.uber.org/zap/zapcore"

	"github.com/ascend-hq/ascend/internal/domain"
)

// Config holds all daemon configuration.
type Config struct {
	API           APIConfig           `toml:"api"`
	Engine        EngineConfig        `toml:"engine"`
	Rewards       RewardsConfig       `toml:"rewards"`
	Notifications NotificationsConfig `toml:"notifications"`
	Logging       LoggingConfig       `toml:"logging"`
	Telemetry     TelemetryConfig     `toml:"telemetry"`
}

// APIConfig controls the HTTP API server.
type APIConfig struct {
	Host        string   `toml:"host" env:"ASCEND_API_HOST"`
	Port        int      `toml:"port" env:"ASCEND_API_PORT"`
	CORSOrigins []string `toml:"cors_origins" env:"ASCEND_API_CORS_ORIGINS" envSeparator:","`
}

// EngineConfig controls the gamification engine.
type EngineConfig struct {
	SeedCoins   int64  `toml:"seed_coins" env:"ASCEND_ENGINE_SEED_COINS"`
	RevivalCost int64  `toml:"revival_cost" env:"ASCEND_ENGINE_REVIVAL_COST"`
	Timezone    string `toml:"timezone" env:"ASCEND_ENGINE_TIMEZONE"`
}

// RewardsConfig controls the reward catalog and box draws.
type RewardsConfig struct {
	// Catalog is a YAML file replacing the built-in catalog. Empty uses the
	// built-in one.
	Catalog string `toml:"catalog" env:"ASCEND_REWARDS_CATALOG"`
	// Seed fixes the reward box RNG. Zero draws from a random seed.
	Seed uint64 `toml:"seed" env:"ASCEND_REWARDS_SEED"`
}

// NotificationsConfig controls the in-app toast feed.
type NotificationsConfig struct {
	MaxPerDay  int    `toml:"max_per_day" env:"ASCEND_NOTIFICATIONS_MAX_PER_DAY"`
	QuietStart string `toml:"quiet_start" env:"ASCEND_NOTIFICATIONS_QUIET_START"`
	QuietEnd   string `toml:"quiet_end" env:"ASCEND_NOTIFICATIONS_QUIET_END"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level string `toml:"level" env:"ASCEND_LOG_LEVEL"`
	// Development switches to the human-readable console encoder.
	Development bool `toml:"development" env:"ASCEND_LOG_DEVELOPMENT"`
}

// TelemetryConfig controls metrics and tracing.
type TelemetryConfig struct {
	Prometheus   bool   `toml:"prometheus" env:"ASCEND_TELEMETRY_PROMETHEUS"`
	OTLPEndpoint string `toml:"otlp_endpoint" env:"ASCEND_TELEMETRY_OTLP_ENDPOINT"`
	ServiceName  string `toml:"service_name" env:"ASCEND_TELEMETRY_SERVICE_NAME"`
}

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() Config {
	return Config{
		API: APIConfig{
			Host:        "127.0.0.1",
			Port:        8427,
			CORSOrigins: []string{"*"},
		},
		Engine: EngineConfig{
			SeedCoins:   100,
			RevivalCost: 50,
			Timezone:    "Local",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Telemetry: TelemetryConfig{
			Prometheus:  true,
			ServiceName: "ascend",
		},
	}
}

// LoadConfig reads $ASCEND_HOME/config.toml over the defaults, then applies
// ASCEND_* environment overrides.
func LoadConfig() (Config, error) {
	return LoadConfigFrom(filepath.Join(AscendHome(), "config.toml"))
}

// LoadConfigFrom is LoadConfig with an explicit file path. A missing file
// is not an error.
func LoadConfigFrom(path string) (Config, error) {
	cfg := DefaultConfig()

	if _, err := toml.DecodeFile(path, &cfg); err != nil && !errors.Is(err, os.ErrNotExist) {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks values that would otherwise fail later at startup.
func (c Config) Validate() error {
	if c.API.Port < 0 || c.API.Port > 65535 {
		return fmt.Errorf("api.port %d out of range", c.API.Port)
	}
	if c.Engine.SeedCoins < 0 {
		return fmt.Errorf("engine.seed_coins must not be negative")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if _, err := zapcore.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}
	return nil
}

// Location resolves the engine timezone used for calendar days.
func (c Config) Location() (*time.Location, error) {
	if c.Engine.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Engine.Timezone)
	if err != nil {
		return nil, fmt.Errorf("engine.timezone: %w", err)
	}
	return loc, nil
}

// NotificationPolicy converts the notification section to a feed policy.
func (c Config) NotificationPolicy() domain.NotificationPolicy {
	return domain.NotificationPolicy{
		MaxPerDay:  c.Notifications.MaxPerDay,
		QuietStart: c.Notifications.QuietStart,
		QuietEnd:   c.Notifications.QuietEnd,
	}
}

// SaveConfig writes the config to $ASCEND_HOME/config.toml.
func SaveConfig(cfg Config) error {
	path := filepath.Join(AscendHome(), "config.toml")
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}

// AscendHome returns the ascend data directory.
func AscendHome() string {
	if env := os.Getenv("ASCEND_HOME"); env != "" {
		return env
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".ascend")
}

package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/ngochaukiet2005/shuttle-dispatch/core/dispatch"
	"github.com/ngochaukiet2005/shuttle-dispatch/core/metrics"
	"github.com/ngochaukiet2005/shuttle-dispatch/core/schedule"
	"github.com/ngochaukiet2005/shuttle-dispatch/core/scheduler"
	"github.com/ngochaukiet2005/shuttle-dispatch/infra/mqtt"
	"github.com/ngochaukiet2005/shuttle-dispatch/infra/postgres"
	"github.com/ngochaukiet2005/shuttle-dispatch/infra/routing"
)

type Config struct {
	API       APIConfig           `json:"api"`
	MQTT      mqtt.Config         `json:"mqtt"`
	Database  DatabaseConfig      `json:"database"`
	Routing   routing.Config      `json:"routing"`
	Dispatch  dispatch.Config     `json:"dispatch"`
	Slots     schedule.SlotConfig `json:"slots"`
	Scheduler scheduler.Config    `json:"scheduler"`
	Metrics   metrics.Config      `json:"metrics"`
	Logging   LoggingConfig       `json:"logging"`
	Sentry    SentryConfig        `json:"sentry"`
}

// APIConfig defines the HTTP listener settings.
type APIConfig struct {
	Addr string `json:"addr"`
	// Token guards all endpoints when non-empty.
	Token string `json:"token"`
}

func (c *APIConfig) SetDefaults() {
	if c.Addr == "" {
		c.Addr = ":8080"
	}
}

// DatabaseConfig selects the persistence backend.
type DatabaseConfig struct {
	// Backend is "memory" or "postgres".
	Backend  string          `json:"backend"`
	Postgres postgres.Config `json:"postgres"`
}

func (c *DatabaseConfig) SetDefaults() {
	if c.Backend == "" {
		c.Backend = "memory"
	}
	c.Postgres.SetDefaults()
}

func (c DatabaseConfig) Validate() error {
	switch c.Backend {
	case "memory":
		return nil
	case "postgres":
		if c.Postgres.DSN == "" {
			return fmt.Errorf("database: postgres backend requires a dsn")
		}
		return nil
	default:
		return fmt.Errorf("database: unknown backend %s", c.Backend)
	}
}

func Load(path string) (*Config, error) {
	k := koanf.New(".")
	ext := strings.ToLower(filepath.Ext(path))
	var parser koanf.Parser
	switch ext {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, err
	}
	// Optional environment overrides
	if err := k.Load(env.Provider("SHUTTLE_", "__", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "shuttle_")
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) SetDefaults() {
	c.API.SetDefaults()
	c.Database.SetDefaults()
	c.Routing.SetDefaults()
	c.Dispatch.SetDefaults()
	c.Slots.SetDefaults()
	c.Logging.SetDefaults()
}

func (c Config) Validate() error {
	if err := c.Database.Validate(); err != nil {
		return err
	}
	if err := c.Dispatch.Validate(); err != nil {
		return fmt.Errorf("dispatch: %w", err)
	}
	if err := c.Slots.Validate(); err != nil {
		return fmt.Errorf("slots: %w", err)
	}
	if err := c.Scheduler.Validate(); err != nil {
		return fmt.Errorf("scheduler: %w", err)
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	return nil
}

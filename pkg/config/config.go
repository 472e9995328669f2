package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix scopes every environment override, e.g.
// RENTABOT_RESOURCE_DESCRIPTOR or RENTABOT_SERVER_PORT.
const EnvPrefix = "RENTABOT_"

type ServerConfig struct {
	Host        string `koanf:"host"`
	Port        int    `koanf:"port"         validate:"min=1,max=65535"`
	CORSEnabled bool   `koanf:"cors_enabled"`
}

type LogConfig struct {
	Level string `koanf:"level" validate:"oneof=debug info warn error"`
	JSON  bool   `koanf:"json"`
}

type EngineConfig struct {
	// Intervals and windows in seconds.
	ReaperInterval    int `koanf:"reaper_interval"    validate:"min=1"`
	SchedulerInterval int `koanf:"scheduler_interval" validate:"min=1"`
	ClaimWindow       int `koanf:"claim_window"       validate:"min=1"`
}

type Config struct {
	Server ServerConfig `koanf:"server"`
	Log    LogConfig    `koanf:"log"`
	Engine EngineConfig `koanf:"engine"`

	// ResourceDescriptor points at the YAML catalog file. When empty the
	// service starts with an empty catalog.
	ResourceDescriptor string `koanf:"resource_descriptor"`

	// LegacyRedirect switches the legacy API prefix from deprecation
	// headers to a 307 redirect.
	LegacyRedirect bool `koanf:"legacy_redirect"`
}

func Default() *Config {
	return &Config{
		Server: ServerConfig{Host: "0.0.0.0", Port: 8000},
		Log:    LogConfig{Level: "info"},
		Engine: EngineConfig{
			ReaperInterval:    10,
			SchedulerInterval: 10,
			ClaimWindow:       60,
		},
	}
}

func (c *Config) ReaperInterval() time.Duration {
	return time.Duration(c.Engine.ReaperInterval) * time.Second
}

func (c *Config) SchedulerInterval() time.Duration {
	return time.Duration(c.Engine.SchedulerInterval) * time.Second
}

func (c *Config) ClaimWindow() time.Duration {
	return time.Duration(c.Engine.ClaimWindow) * time.Second
}

func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// Environment variables whose koanf path cannot be derived mechanically.
var explicitEnvKeys = map[string]string{
	"RESOURCE_DESCRIPTOR": "resource_descriptor",
	"LEGACY_REDIRECT":     "legacy_redirect",
}

// Load builds the configuration from defaults overridden by RENTABOT_*
// environment variables, then validates it.
func Load() (*Config, error) {
	k := koanf.New(".")
	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("loading config defaults: %w", err)
	}
	if err := k.Load(env.Provider(".", env.Opt{
		Prefix: EnvPrefix,
		TransformFunc: func(key, value string) (string, any) {
			return transformEnvKey(strings.TrimPrefix(key, EnvPrefix)), value
		},
	}), nil); err != nil {
		return nil, fmt.Errorf("loading environment overrides: %w", err)
	}
	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// transformEnvKey maps SERVER_PORT to server.port and
// ENGINE_REAPER_INTERVAL to engine.reaper_interval. Root-level keys come
// from the explicit table.
func transformEnvKey(key string) string {
	if path, ok := explicitEnvKeys[key]; ok {
		return path
	}
	parts := strings.Split(strings.ToLower(key), "_")
	if len(parts) < 2 {
		return strings.ToLower(key)
	}
	return parts[0] + "." + strings.Join(parts[1:], "_")
}

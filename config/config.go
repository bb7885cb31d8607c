package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the user-facing config.yaml.
type Config struct {
	Connections ConnectionsConfig `yaml:"connections"`
	Mods        ModsConfig        `yaml:"mods"`
	Logging     LoggingConfig     `yaml:"logging"`
}

type LoggingConfig struct {
	Dir   string `yaml:"dir"`
	Debug bool   `yaml:"debug"`
}

type ConnectionsConfig struct {
	Address                  string `yaml:"address"`
	Port                     uint16 `yaml:"port"`
	SlotName                 string `yaml:"slot_name"`
	Password                 string `yaml:"password"`
	DisableAutoConnect       bool   `yaml:"disable_auto_connect"`
	ReconnectIntervalSeconds uint32 `yaml:"reconnect_interval_seconds"`
}

type ModsConfig struct {
	DisableDDMKHooks    bool `yaml:"disable_ddmk_hooks"`
	DisableCrimsonHooks bool `yaml:"disable_crimson_hooks"`

	// Patch anyway when the binary hash does not match. The offsets are
	// version-locked, so this is strictly at the user's risk.
	AllowHashMismatch bool `yaml:"allow_hash_mismatch"`
}

// Load reads path and merges it over the defaults. A missing file is
// not an error; you get the defaults.
func Load(path string) (Config, error) {
	cfg := defaults()
	if strings.TrimSpace(path) == "" {
		return cfg, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("config.yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config.yaml: %w", err)
	}
	return cfg, nil
}

func defaults() Config {
	return Config{
		Connections: ConnectionsConfig{
			Address:                  "localhost",
			Port:                     21705,
			ReconnectIntervalSeconds: 10,
		},
		Logging: LoggingConfig{Dir: "logs"},
	}
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.Connections.Address) == "" {
		return fmt.Errorf("connections.address is empty")
	}
	if c.Connections.Port == 0 {
		return fmt.Errorf("connections.port is 0")
	}
	if c.Connections.ReconnectIntervalSeconds == 0 {
		c.Connections.ReconnectIntervalSeconds = 10
	}
	return nil
}

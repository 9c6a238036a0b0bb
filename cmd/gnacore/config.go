package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

const envConfigPath = "GNACORE_CONFIG"

// Config represents the gnacore configuration file
// (~/.config/gnacore/config.yaml). Pointer fields tell "not set" from zero.
type Config struct {
	Tier           string `yaml:"tier"`
	LogLevel       string `yaml:"log_level"`
	LogFormat      string `yaml:"log_format"`
	BufferCapacity *int64 `yaml:"buffer_capacity"`

	// Server
	ServerAddress string   `yaml:"server_address"`
	RateLimit     *float64 `yaml:"rate_limit"`
	RateBurst     *int64   `yaml:"rate_burst"`
	Workers       *int64   `yaml:"workers"`
}

func configPath() string {
	if p := os.Getenv(envConfigPath); p != "" {
		return p
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "gnacore", "config.yaml")
}

// LoadConfig reads the config file. A missing file gives a zero Config.
func LoadConfig(path string) (Config, error) {
	if path == "" {
		return Config{}, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Config{}, nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	var c Config
	if err := yaml.Unmarshal(data, &c); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	return c, nil
}

// applyGlobalConfig applies config file defaults to the root flags that were
// not set explicitly.
func applyGlobalConfig(c *cli.Command, cfg Config) {
	if cfg.Tier != "" && !c.IsSet("tier") {
		tierName = cfg.Tier
	}
	if cfg.LogLevel != "" && !c.IsSet("log-level") {
		logLevel = cfg.LogLevel
	}
	if cfg.LogFormat != "" && !c.IsSet("log-format") {
		logFormat = cfg.LogFormat
	}
	if cfg.BufferCapacity != nil && !c.IsSet("buffer-capacity") {
		bufferCapacity = *cfg.BufferCapacity
	}
}

// applyServeConfig applies config file defaults to serve command variables.
func applyServeConfig(c *cli.Command, cfg Config, addr *string, rateLimit *float64, rateBurst, workers *int64) {
	if cfg.ServerAddress != "" && !c.IsSet("addr") {
		*addr = cfg.ServerAddress
	}
	if cfg.RateLimit != nil && !c.IsSet("rate-limit") {
		*rateLimit = *cfg.RateLimit
	}
	if cfg.RateBurst != nil && !c.IsSet("rate-burst") {
		*rateBurst = *cfg.RateBurst
	}
	if cfg.Workers != nil && !c.IsSet("workers") {
		*workers = *cfg.Workers
	}
}

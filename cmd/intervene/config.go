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

const envConfigFile = "INTERVENE_CONFIG"

// Config is the optional ~/.config/intervene/config.yaml. Empty fields leave
// the flag defaults alone.
type Config struct {
	CacheDir          string   `yaml:"cache_dir"`
	HubEndpoint       string   `yaml:"hub_endpoint"`
	Revision          string   `yaml:"revision"`
	DType             string   `yaml:"dtype"`
	RequestsPerSecond *float64 `yaml:"requests_per_second"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	ServerAddress string `yaml:"server_address"`
	MirrorDir     string `yaml:"mirror_dir"`
}

func configPath() string {
	if p := os.Getenv(envConfigFile); p != "" {
		return p
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "intervene", "config.yaml")
}

// LoadConfig reads path. A missing file yields a zero Config; a malformed one
// is an error so typos do not silently fall back to defaults.
func LoadConfig(path string) (Config, error) {
	if path == "" {
		return Config{}, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Config{}, nil
	}
	if err != nil {
		return Config{}, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// applyGlobalConfig fills root flag variables from cfg when the flag was not
// given on the command line.
func applyGlobalConfig(c *cli.Command, cfg Config) {
	if cfg.CacheDir != "" && !c.IsSet("cache-dir") {
		cacheDir = cfg.CacheDir
	}
	if cfg.HubEndpoint != "" && !c.IsSet("hub-endpoint") {
		hubEndpoint = cfg.HubEndpoint
	}
	if cfg.Revision != "" && !c.IsSet("revision") {
		revision = cfg.Revision
	}
	if cfg.RequestsPerSecond != nil && !c.IsSet("rps") {
		rps = *cfg.RequestsPerSecond
	}
	if cfg.LogLevel != "" && !c.IsSet("log-level") {
		logLevel = cfg.LogLevel
	}
	if cfg.LogFormat != "" && !c.IsSet("log-format") {
		logFormat = cfg.LogFormat
	}
}

package config

import (
	"fmt"
	"os"
	"strings"

	"assetsync/internal/core/types"

	"github.com/goccy/go-yaml"
)

// StoreConfig describes the remote data-asset store a run talks to.
// Type selects the client backend ("s3", "minio" or "registry").
type StoreConfig struct {
	Type      string `yaml:"type"`
	Bucket    string `yaml:"bucket,omitempty"`
	Prefix    string `yaml:"prefix,omitempty"`
	Region    string `yaml:"region,omitempty"`
	Profile   string `yaml:"profile,omitempty"`
	Endpoint  string `yaml:"endpoint,omitempty"`
	AccessKey string `yaml:"access_key,omitempty"`
	SecretKey string `yaml:"secret_key,omitempty"`
	UseSSL    bool   `yaml:"use_ssl,omitempty"`
	URL       string `yaml:"url,omitempty"`
	Token     string `yaml:"token,omitempty"`
}

// TransferConfig tunes the download engine.
type TransferConfig struct {
	RateLimit types.Bytes `yaml:"rate_limit,omitempty"`
	RateBurst types.Bytes `yaml:"rate_burst,omitempty"`
	Progress  bool        `yaml:"progress,omitempty"`
}

// Config is the top-level assetsync configuration.
type Config struct {
	Debug    bool           `yaml:"debug,omitempty"`
	Root     string         `yaml:"root,omitempty"`
	Catalog  string         `yaml:"catalog,omitempty"`
	Store    StoreConfig    `yaml:"store"`
	Transfer TransferConfig `yaml:"transfer,omitempty"`
}

func DefaultConfig() Config {
	return Config{
		Root: "data",
		Transfer: TransferConfig{
			RateLimit: types.DefaultRateLimit,
			RateBurst: types.DefaultRateBurst,
		},
	}
}

// LoadConfig loads configuration from a YAML file and applies defaults.
// Credential-carrying fields support ${VAR} environment expansion.
func LoadConfig(configFile string) (*Config, error) {
	config := &Config{}

	if configFile != "" && fileExists(configFile) {
		data, err := os.ReadFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("read config file %s: %w", configFile, err)
		}
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", configFile, err)
		}
	}

	merged := mergeConfig(config, DefaultConfig())
	merged.Store = expandStoreEnv(merged.Store)
	return merged, nil
}

// mergeConfig merges loaded config with defaults, with loaded values taking precedence.
func mergeConfig(loaded *Config, defaults Config) *Config {
	return &Config{
		Debug:   loaded.Debug,
		Root:    coalesce(loaded.Root, defaults.Root),
		Catalog: coalesce(loaded.Catalog, defaults.Catalog),
		Store:   loaded.Store,
		Transfer: TransferConfig{
			RateLimit: coalesce(loaded.Transfer.RateLimit, defaults.Transfer.RateLimit),
			RateBurst: coalesce(loaded.Transfer.RateBurst, defaults.Transfer.RateBurst),
			Progress:  loaded.Transfer.Progress,
		},
	}
}

func coalesce[T comparable](loaded, defaultVal T) T {
	var zero T
	if loaded != zero {
		return loaded
	}
	return defaultVal
}

// expandStoreEnv expands environment variables in store credentials.
func expandStoreEnv(cfg StoreConfig) StoreConfig {
	cfg.AccessKey = expandString(cfg.AccessKey)
	cfg.SecretKey = expandString(cfg.SecretKey)
	cfg.Token = expandString(cfg.Token)
	cfg.Profile = expandString(cfg.Profile)
	cfg.Region = expandString(cfg.Region)
	return cfg
}

// expandString expands ${VAR} and $VAR references in a string.
func expandString(s string) string {
	if s == "" {
		return s
	}
	expanded := os.ExpandEnv(s)
	if strings.Contains(expanded, "$") {
		expanded = os.ExpandEnv(expanded)
	}
	return expanded
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

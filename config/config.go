// Package config loads the gateway configuration from an optional YAML
// file with environment-variable overrides. Every field has a working
// default so the binary starts with no configuration at all.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config describes everything the gateway needs at startup.
type Config struct {
	Server ServerConfig `yaml:"server"`
	Redis  RedisConfig  `yaml:"redis"`
	Auth   AuthConfig   `yaml:"auth"`
	Proof  ProofConfig  `yaml:"proof"`
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Address string `yaml:"address"`
}

// RedisConfig selects the shared store backend. An empty URL keeps
// everything in process memory.
type RedisConfig struct {
	URL string `yaml:"url"`
}

// AuthConfig tunes challenge and session lifetimes.
type AuthConfig struct {
	NonceTTL   time.Duration `yaml:"nonce_ttl"`
	AccessTTL  time.Duration `yaml:"access_ttl"`
	RefreshTTL time.Duration `yaml:"refresh_ttl"`
}

// ProofConfig bounds the proof backend.
type ProofConfig struct {
	Timeout time.Duration `yaml:"timeout"`
	Workers int64         `yaml:"workers"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Server: ServerConfig{Address: ":8080"},
		Auth: AuthConfig{
			NonceTTL:   5 * time.Minute,
			AccessTTL:  time.Hour,
			RefreshTTL: 7 * 24 * time.Hour,
		},
		Proof: ProofConfig{
			Timeout: 30 * time.Second,
			Workers: 4,
		},
	}
}

// Load reads the YAML file at path when it exists, then applies environment
// overrides (LISTEN_ADDR, REDIS_URL). An empty path checks ZKPERSONA_CONFIG.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv("ZKPERSONA_CONFIG")
	}
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	if addr := os.Getenv("LISTEN_ADDR"); addr != "" {
		cfg.Server.Address = addr
	}
	if url := os.Getenv("REDIS_URL"); url != "" {
		cfg.Redis.URL = url
	}

	return cfg, nil
}

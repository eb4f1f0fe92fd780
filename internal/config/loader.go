package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// WorkerConfig declares one pool slot. Position in the workers list becomes
// the worker's routing index.
type WorkerConfig struct {
	Tag     string         `json:"tag" yaml:"tag" toml:"tag"`
	Kind    string         `json:"kind" yaml:"kind" toml:"kind"`
	Options map[string]any `json:"options" yaml:"options" toml:"options"`
}

// CORSConfig enables and scopes cross-origin access (opt-in).
type CORSConfig struct {
	Enabled bool     `json:"enabled" yaml:"enabled" toml:"enabled"`
	Origins []string `json:"origins" yaml:"origins" toml:"origins"`
	Methods []string `json:"methods" yaml:"methods" toml:"methods"`
	Headers []string `json:"headers" yaml:"headers" toml:"headers"`
}

// Config holds runtime parameters for the service.
// Zero values mean "unspecified" and will be replaced by defaults in main.
type Config struct {
	Addr             string         `json:"addr" yaml:"addr" toml:"addr"`
	QueueCapacity    int            `json:"queue_capacity" yaml:"queue_capacity" toml:"queue_capacity"`
	MaxWaitSeconds   int            `json:"max_wait_seconds" yaml:"max_wait_seconds" toml:"max_wait_seconds"`
	DefaultChunkSize int            `json:"default_chunk_size" yaml:"default_chunk_size" toml:"default_chunk_size"`
	MaxBodyBytes     int64          `json:"max_body_bytes" yaml:"max_body_bytes" toml:"max_body_bytes"`
	CORS             CORSConfig     `json:"cors" yaml:"cors" toml:"cors"`
	Workers          []WorkerConfig `json:"workers" yaml:"workers" toml:"workers"`
}

// Load reads a configuration file based on its extension.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".toml":
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	return cfg, nil
}

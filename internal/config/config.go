// Package config loads the service configuration from a JSON file with
// ${VAR} / ${VAR:default} environment substitution.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"time"
)

// Config is the top-level configuration structure.
type Config struct {
	Server    ServerConfig     `json:"server"`
	Producers []ProducerConfig `json:"producers"`
	Workspace WorkspaceConfig  `json:"workspace"`
	Temporal  TemporalConfig   `json:"temporal"`
	Clock     ClockConfig      `json:"clock"`
	Broadcast BroadcastConfig  `json:"broadcast"`
}

type ServerConfig struct {
	Port     int    `json:"port"`
	LogLevel string `json:"log_level"`
}

// ProducerConfig declares an upstream producer and its connection
// strength, the trust weight feeding coherence scoring.
type ProducerConfig struct {
	ID                 string  `json:"id"`
	ConnectionStrength float64 `json:"connection_strength"`
}

type WorkspaceConfig struct {
	FocusCap  int `json:"focus_cap"`
	RetainCap int `json:"retain_cap"`
}

type TemporalConfig struct {
	RetainCap          int     `json:"retain_cap"`
	RelevanceThreshold float64 `json:"relevance_threshold"`
	DecayHalfLife      float64 `json:"decay_half_life_factor"`
	DecayFloor         float64 `json:"decay_floor"`
}

type ClockConfig struct {
	IntervalSeconds float64 `json:"interval_seconds"`
	Speed           float64 `json:"speed"`
}

type BroadcastConfig struct {
	Redis RedisBroadcastConfig `json:"redis"`
}

type RedisBroadcastConfig struct {
	Enabled bool   `json:"enabled"`
	URL     string `json:"url"`
	Stream  string `json:"stream"`
}

// Interval returns the configured tick interval, defaulting to 2s.
func (c ClockConfig) Interval() time.Duration {
	if c.IntervalSeconds <= 0 {
		return 2 * time.Second
	}
	return time.Duration(c.IntervalSeconds * float64(time.Second))
}

// envVarRe matches ${VAR} and ${VAR:default} patterns.
var envVarRe = regexp.MustCompile(`\$\{(\w+)(?::([^}]*))?\}`)

// Load reads a JSON config file and substitutes environment variable
// references.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	resolved := envVarRe.ReplaceAllStringFunc(string(data), func(match string) string {
		parts := envVarRe.FindStringSubmatch(match)
		name := parts[1]
		defaultVal := parts[2]
		if v := os.Getenv(name); v != "" {
			return v
		}
		return defaultVal
	})

	var cfg Config
	if err := json.Unmarshal([]byte(resolved), &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return &cfg, nil
}

// Package config provides configuration loading and management for provgraph.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/c360studio/provgraph/vocabulary/prov"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config represents the complete provgraph configuration
type Config struct {
	Source SourceConfig `yaml:"source"`
	Server ServerConfig `yaml:"server"`
	NATS   NATSConfig   `yaml:"nats"`
	Watch  WatchConfig  `yaml:"watch"`
	Log    LogConfig    `yaml:"log"`
}

// SourceConfig configures where the provenance document is fetched from
type SourceConfig struct {
	// Endpoint is the rawbase base URL; the document is read from {endpoint}get
	Endpoint string `yaml:"endpoint" validate:"required,url"`
	// Graph is the named graph holding the provenance statements
	Graph string `yaml:"graph" validate:"required"`
	// Timeout bounds a single fetch
	Timeout time.Duration `yaml:"timeout" validate:"gt=0"`
	// Breaker configures the circuit breaker around fetches
	Breaker BreakerConfig `yaml:"breaker"`
}

// BreakerConfig configures the fetch circuit breaker
type BreakerConfig struct {
	// MaxRequests allowed while half-open
	MaxRequests uint32 `yaml:"max_requests" validate:"gte=1"`
	// Interval after which closed-state counts are cleared
	Interval time.Duration `yaml:"interval" validate:"gte=0"`
	// Timeout before an open breaker goes half-open
	Timeout time.Duration `yaml:"timeout" validate:"gt=0"`
	// FailureThreshold is the failure ratio that trips the breaker
	FailureThreshold float64 `yaml:"failure_threshold" validate:"gt=0,lte=1"`
	// MinRequests before the failure ratio is evaluated
	MinRequests uint32 `yaml:"min_requests"`
}

// ServerConfig configures the HTTP API
type ServerConfig struct {
	// Addr is the listen address (default: :8080)
	Addr string `yaml:"addr" validate:"required,hostname_port"`
}

// NATSConfig configures the optional NATS integration
type NATSConfig struct {
	// URL is the NATS server URL (empty = NATS disabled)
	URL string `yaml:"url" validate:"omitempty,url"`
	// NotifySubject triggers a new pass when a message arrives
	NotifySubject string `yaml:"notify_subject"`
	// Publish enables publishing finalized commits for graph ingestion
	Publish bool `yaml:"publish"`
	// SnapshotBucket is the KV bucket for finalized snapshots (empty = disabled)
	SnapshotBucket string `yaml:"snapshot_bucket"`
}

// WatchConfig configures local file watching
type WatchConfig struct {
	// Patterns are doublestar globs of Turtle files to watch
	Patterns []string `yaml:"patterns"`
	// Debounce is how long to wait for more changes before a new pass
	Debounce time.Duration `yaml:"debounce" validate:"gte=0"`
}

// LogConfig configures logging
type LogConfig struct {
	// Level is one of debug, info, warn, error
	Level string `yaml:"level" validate:"oneof=debug info warn error"`
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Source: SourceConfig{
			Endpoint: "http://localhost:8080/rawbase/",
			Graph:    prov.ProvenanceGraph,
			Timeout:  30 * time.Second,
			Breaker: BreakerConfig{
				MaxRequests:      5,
				Interval:         30 * time.Second,
				Timeout:          60 * time.Second,
				FailureThreshold: 0.8,
				MinRequests:      5,
			},
		},
		Server: ServerConfig{
			Addr: ":8081",
		},
		NATS: NATSConfig{
			NotifySubject: "rawbase.provenance.updated",
		},
		Watch: WatchConfig{
			Debounce: 500 * time.Millisecond,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// LoadFromFile loads configuration from a YAML file
func LoadFromFile(path string) (*Config, error) {
	config := DefaultConfig()
	if err := decodeFile(path, config); err != nil {
		return nil, err
	}
	return config, nil
}

// loadOverlay reads only the fields path sets, for use with Merge.
func loadOverlay(path string) (*Config, error) {
	overlay := &Config{}
	if err := decodeFile(path, overlay); err != nil {
		return nil, err
	}
	return overlay, nil
}

func decodeFile(path string, into *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, into); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	return nil
}

// SaveToFile saves configuration to a YAML file
func (c *Config) SaveToFile(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Merge merges another config into this one (other takes precedence for non-zero values)
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	// Source
	if other.Source.Endpoint != "" {
		c.Source.Endpoint = other.Source.Endpoint
	}
	if other.Source.Graph != "" {
		c.Source.Graph = other.Source.Graph
	}
	if other.Source.Timeout != 0 {
		c.Source.Timeout = other.Source.Timeout
	}
	if other.Source.Breaker.MaxRequests != 0 {
		c.Source.Breaker.MaxRequests = other.Source.Breaker.MaxRequests
	}
	if other.Source.Breaker.Interval != 0 {
		c.Source.Breaker.Interval = other.Source.Breaker.Interval
	}
	if other.Source.Breaker.Timeout != 0 {
		c.Source.Breaker.Timeout = other.Source.Breaker.Timeout
	}
	if other.Source.Breaker.FailureThreshold != 0 {
		c.Source.Breaker.FailureThreshold = other.Source.Breaker.FailureThreshold
	}
	if other.Source.Breaker.MinRequests != 0 {
		c.Source.Breaker.MinRequests = other.Source.Breaker.MinRequests
	}

	// Server
	if other.Server.Addr != "" {
		c.Server.Addr = other.Server.Addr
	}

	// NATS
	if other.NATS.URL != "" {
		c.NATS.URL = other.NATS.URL
	}
	if other.NATS.NotifySubject != "" {
		c.NATS.NotifySubject = other.NATS.NotifySubject
	}
	if other.NATS.Publish {
		c.NATS.Publish = true
	}
	if other.NATS.SnapshotBucket != "" {
		c.NATS.SnapshotBucket = other.NATS.SnapshotBucket
	}

	// Watch
	if len(other.Watch.Patterns) > 0 {
		c.Watch.Patterns = other.Watch.Patterns
	}
	if other.Watch.Debounce != 0 {
		c.Watch.Debounce = other.Watch.Debounce
	}

	// Log
	if other.Log.Level != "" {
		c.Log.Level = other.Log.Level
	}
}

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

const (
	// ProjectConfigFile is the name of the project-level config file
	ProjectConfigFile = "provgraph.yaml"
	// UserConfigDir is the directory for user-level config
	UserConfigDir = ".config/provgraph"
	// UserConfigFile is the name of the user-level config file
	UserConfigFile = "config.yaml"
)

// Environment variables that override file configuration.
const (
	EnvEndpoint = "PROVGRAPH_ENDPOINT"
	EnvLogLevel = "PROVGRAPH_LOG_LEVEL"
	EnvNATSURL  = "NATS_URL"
)

// Loader handles configuration loading with layered precedence
type Loader struct {
	logger *slog.Logger
	getenv func(string) string
}

// NewLoader creates a new configuration loader
func NewLoader(logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{logger: logger, getenv: os.Getenv}
}

// Load merges, in order of increasing precedence, the defaults, the user
// config (~/.config/provgraph/config.yaml), the nearest provgraph.yaml
// found walking up from the working directory, and the environment.
func (l *Loader) Load() (*Config, error) {
	config := DefaultConfig()

	layers := []struct {
		name string
		path string
	}{
		{"user", l.userConfigPath()},
		{"project", l.findProjectConfig()},
	}
	for _, layer := range layers {
		if layer.path == "" {
			continue
		}
		overlay, err := loadOverlay(layer.path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			continue
		case err != nil:
			return nil, fmt.Errorf("%s config %s: %w", layer.name, layer.path, err)
		}
		l.logger.Debug("Loaded config layer", "layer", layer.name, "path", layer.path)
		config.Merge(overlay)
	}

	l.applyEnv(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// LoadFile loads an explicit config file on top of the defaults and
// applies environment overrides. No other layer is read.
func (l *Loader) LoadFile(path string) (*Config, error) {
	config, err := LoadFromFile(path)
	if err != nil {
		return nil, err
	}
	l.applyEnv(config)
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// applyEnv overrides config from the environment.
func (l *Loader) applyEnv(config *Config) {
	if v := strings.TrimSpace(l.getenv(EnvEndpoint)); v != "" {
		l.logger.Debug("Endpoint overridden from environment", "endpoint", v)
		config.Source.Endpoint = v
	}
	if v := strings.TrimSpace(l.getenv(EnvNATSURL)); v != "" {
		config.NATS.URL = v
	}
	if v := strings.TrimSpace(l.getenv(EnvLogLevel)); v != "" {
		config.Log.Level = strings.ToLower(v)
	}
}

// userConfigPath returns the path to the user config file
func (l *Loader) userConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, UserConfigDir, UserConfigFile)
}

// findProjectConfig searches for provgraph.yaml in current and parent directories
func (l *Loader) findProjectConfig() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	dir := cwd
	for {
		configPath := filepath.Join(dir, ProjectConfigFile)
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}

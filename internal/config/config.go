// Package config loads the optional YAML configuration file.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	gitbackend "github.com/thiagokokada/git-explorer/internal/git/backend"
	"github.com/thiagokokada/git-explorer/internal/watch"
)

var (
	ErrConfigNotFound = errors.New("config file not found")
	ErrInvalidConfig  = errors.New("invalid config")
)

type Config struct {
	// Repo is opened at startup. Empty means the client opens one.
	Repo    string `yaml:"repo"`
	Backend string `yaml:"backend"`
	// Listen serves the protocol over WebSocket on this address instead of
	// stdin/stdout.
	Listen        string        `yaml:"listen"`
	Watch         bool          `yaml:"watch"`
	WatchDebounce time.Duration `yaml:"watch_debounce"`
	Verbose       bool          `yaml:"verbose"`
}

func Default() Config {
	return Config{
		Backend:       string(gitbackend.KindAuto),
		Watch:         true,
		WatchDebounce: watch.DefaultDelay,
	}
}

// Load reads path on top of the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if _, err := gitbackend.ParseKind(c.Backend); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if c.WatchDebounce < 0 {
		return fmt.Errorf("%w: watch_debounce must not be negative", ErrInvalidConfig)
	}
	return nil
}

// BackendKind is the parsed Backend field.
func (c Config) BackendKind() gitbackend.Kind {
	kind, err := gitbackend.ParseKind(c.Backend)
	if err != nil {
		return gitbackend.KindAuto
	}
	return kind
}

// Package config loads the server configuration from a YAML file.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/edirooss/obsdelay-server/pkg/hostutil"
	"gopkg.in/yaml.v3"
)

// Config is the process configuration. The source list is fixed for the
// process lifetime; no runtime mutation path exists.
type Config struct {
	// OBSAddr is the obs-websocket endpoint, e.g. "ws://127.0.0.1:4455".
	OBSAddr string `yaml:"obs_address"`
	// OBSPassword authenticates the obs-websocket session; empty when the
	// server has authentication disabled.
	OBSPassword string `yaml:"obs_password"`
	// FilterName is the per-source filter whose delay_ms setting we manage.
	// Defaults to "Render Delay".
	FilterName string `yaml:"filter_name"`
	// Sources is the ordered list of OBS source names shown on the panel.
	Sources []string `yaml:"sources"`

	BindAddr string `yaml:"bind_address"`
	Port     string `yaml:"port"`

	// RequestTimeoutMS bounds each obs-websocket call. Default 5000.
	RequestTimeoutMS int `yaml:"request_timeout_ms"`
	// MaxConcurrentRequests caps in-flight HTTP requests. Default 64.
	MaxConcurrentRequests int `yaml:"max_concurrent_requests"`
}

// RequestTimeout returns the per-call obs-websocket deadline.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutMS) * time.Millisecond
}

// Load reads and validates the config file at path, applying defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := new(Config)
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	cfg.setDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) setDefaults() {
	if c.FilterName == "" {
		c.FilterName = "Render Delay"
	}
	if c.Port == "" {
		c.Port = "3000"
	}
	if c.RequestTimeoutMS <= 0 {
		c.RequestTimeoutMS = 5000
	}
	if c.MaxConcurrentRequests <= 0 {
		c.MaxConcurrentRequests = 64
	}
}

// Validate rejects configs the process cannot run with.
func (c *Config) Validate() error {
	if c.OBSAddr == "" {
		return errors.New("obs_address is required")
	}
	u, err := url.Parse(c.OBSAddr)
	if err != nil {
		return fmt.Errorf("obs_address: %w", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return fmt.Errorf("obs_address: scheme must be ws or wss, got %q", u.Scheme)
	}
	if err := hostutil.ValidateHost(u.Hostname()); err != nil {
		return fmt.Errorf("obs_address: %w", err)
	}
	if c.BindAddr != "" {
		if err := hostutil.ValidateHost(c.BindAddr); err != nil {
			return fmt.Errorf("bind_address: %w", err)
		}
	}
	if len(c.Sources) == 0 {
		return errors.New("sources must list at least one source name")
	}
	seen := make(map[string]struct{}, len(c.Sources))
	for _, s := range c.Sources {
		if s == "" {
			return errors.New("sources must not contain empty names")
		}
		if _, dup := seen[s]; dup {
			return fmt.Errorf("duplicate source name %q", s)
		}
		seen[s] = struct{}{}
	}
	return nil
}

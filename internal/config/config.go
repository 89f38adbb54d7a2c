// Package config handles layered YAML configuration with environment overrides.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/smileynet/ledgerdeck/internal/logging"
)

// EnvPrefix prefixes every environment override, e.g. LEDGERDECK_API_URL.
const EnvPrefix = "LEDGERDECK_"

// Config holds all ledgerdeck configuration.
type Config struct {
	API        API        `yaml:"api"`
	Auth       Auth       `yaml:"auth"`
	Fetcher    Fetcher    `yaml:"fetcher"`
	Blockchain Blockchain `yaml:"blockchain"`
	Log        Log        `yaml:"log"`
	Session    Session    `yaml:"session"`
}

// API holds the admin API endpoint settings.
type API struct {
	BaseURL string        `yaml:"base_url" env:"API_URL"`
	Timeout time.Duration `yaml:"timeout" env:"API_TIMEOUT"`
}

// Auth holds admin credentials.
type Auth struct {
	UserID    string `yaml:"user_id" env:"USER_ID"`
	AuthToken string `yaml:"auth_token" env:"AUTH_TOKEN"`
}

// Fetcher holds list fetching behaviour.
type Fetcher struct {
	Debounce  time.Duration `yaml:"debounce" env:"FETCHER_DEBOUNCE"`
	SlowAfter time.Duration `yaml:"slow_after" env:"FETCHER_SLOW_AFTER"`
	PerPage   int           `yaml:"per_page" env:"FETCHER_PER_PAGE"`
}

// Blockchain holds the Ethereum JSON-RPC endpoint. Empty disables Web3.
type Blockchain struct {
	RPCURL string `yaml:"rpc_url" env:"RPC_URL"`
}

// Log holds logging settings. The dashboard always logs to File.
type Log struct {
	File  string `yaml:"file" env:"LOG_FILE"`
	Level string `yaml:"level" env:"LOG_LEVEL"`
}

// Session holds where the console remembers its state between runs.
type Session struct {
	Dir string `yaml:"dir" env:"SESSION_DIR"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		API: API{
			BaseURL: "http://localhost:4000/api/admin",
			Timeout: 30 * time.Second,
		},
		Fetcher: Fetcher{
			Debounce:  300 * time.Millisecond,
			SlowAfter: 3 * time.Second,
			PerPage:   10,
		},
		Log: Log{
			File:  ".ledgerdeck/ledgerdeck.log",
			Level: "info",
		},
		Session: Session{
			Dir: ".ledgerdeck/session",
		},
	}
}

// DefaultPaths returns the user and project config paths, lowest priority first.
func DefaultPaths() []string {
	var paths []string
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "ledgerdeck", "config.yaml"))
	}
	return append(paths, filepath.Join(".ledgerdeck", "config.yaml"))
}

// Load reads a single YAML config file at path and returns a Config.
// For merging multiple config sources, use LoadLayered instead.
// If the file does not exist, defaults are returned without error.
// If the file contains invalid YAML or unknown fields, an error is returned.
func Load(path string) (*Config, error) {
	return LoadLayered(path)
}

// LoadLayered loads config from multiple paths with increasing priority.
// Later paths override earlier ones. Missing files are skipped.
func LoadLayered(paths ...string) (*Config, error) {
	cfg := DefaultConfig()

	for _, path := range paths {
		layer, err := loadLayer(path)
		if err != nil {
			return nil, err
		}
		if layer == nil {
			continue
		}
		cfg.merge(layer)
	}

	return &cfg, nil
}

// Validate checks that config values are usable.
func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return errors.New("config: api.base_url cannot be empty")
	}
	if u, err := url.Parse(c.API.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("config: api.base_url must be an absolute URL, got %q", c.API.BaseURL)
	}
	if c.API.Timeout <= 0 {
		return fmt.Errorf("config: api.timeout must be positive, got %v", c.API.Timeout)
	}
	if c.Fetcher.Debounce < 0 {
		return fmt.Errorf("config: fetcher.debounce must be non-negative, got %v", c.Fetcher.Debounce)
	}
	if c.Fetcher.SlowAfter <= 0 {
		return fmt.Errorf("config: fetcher.slow_after must be positive, got %v", c.Fetcher.SlowAfter)
	}
	if c.Fetcher.PerPage <= 0 {
		return fmt.Errorf("config: fetcher.per_page must be positive, got %d", c.Fetcher.PerPage)
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("config: log.level: %w", err)
	}
	if c.Session.Dir == "" {
		return errors.New("config: session.dir cannot be empty")
	}
	return nil
}

// ApplyEnv applies LEDGERDECK_* environment variable overrides to the config.
// Unset variables leave the loaded values alone.
func (c *Config) ApplyEnv() error {
	if err := env.ParseWithOptions(c, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("config: parse env: %w", err)
	}
	return nil
}

// rawConfig mirrors Config but uses pointers to distinguish set vs unset fields.
type rawConfig struct {
	API        *rawAPI        `yaml:"api"`
	Auth       *rawAuth       `yaml:"auth"`
	Fetcher    *rawFetcher    `yaml:"fetcher"`
	Blockchain *rawBlockchain `yaml:"blockchain"`
	Log        *rawLog        `yaml:"log"`
	Session    *rawSession    `yaml:"session"`
}

type rawAPI struct {
	BaseURL *string        `yaml:"base_url"`
	Timeout *time.Duration `yaml:"timeout"`
}

type rawAuth struct {
	UserID    *string `yaml:"user_id"`
	AuthToken *string `yaml:"auth_token"`
}

type rawFetcher struct {
	Debounce  *time.Duration `yaml:"debounce"`
	SlowAfter *time.Duration `yaml:"slow_after"`
	PerPage   *int           `yaml:"per_page"`
}

type rawBlockchain struct {
	RPCURL *string `yaml:"rpc_url"`
}

type rawLog struct {
	File  *string `yaml:"file"`
	Level *string `yaml:"level"`
}

type rawSession struct {
	Dir *string `yaml:"dir"`
}

// loadLayer reads a single config file into a rawConfig for selective merging.
// Returns nil if the file does not exist. Rejects unknown fields.
func loadLayer(path string) (*rawConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	if len(data) == 0 {
		return nil, nil
	}

	var raw rawConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&raw); err != nil {
		// Comment-only YAML files produce EOF with no decoded content.
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	return &raw, nil
}

func set[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

// merge applies non-nil fields from a rawConfig layer onto this Config.
func (c *Config) merge(layer *rawConfig) {
	if l := layer.API; l != nil {
		set(&c.API.BaseURL, l.BaseURL)
		set(&c.API.Timeout, l.Timeout)
	}
	if l := layer.Auth; l != nil {
		set(&c.Auth.UserID, l.UserID)
		set(&c.Auth.AuthToken, l.AuthToken)
	}
	if l := layer.Fetcher; l != nil {
		set(&c.Fetcher.Debounce, l.Debounce)
		set(&c.Fetcher.SlowAfter, l.SlowAfter)
		set(&c.Fetcher.PerPage, l.PerPage)
	}
	if l := layer.Blockchain; l != nil {
		set(&c.Blockchain.RPCURL, l.RPCURL)
	}
	if l := layer.Log; l != nil {
		set(&c.Log.File, l.File)
		set(&c.Log.Level, l.Level)
	}
	if l := layer.Session; l != nil {
		set(&c.Session.Dir, l.Dir)
	}
}

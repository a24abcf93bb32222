// Package config loads rfcmirror configuration from YAML with compiled
// defaults and environment overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Default remote locations for the RFC index and document files.
const (
	DefaultIndexURL        = "https://www.ietf.org/download/rfc-index.txt"
	DefaultDocumentBaseURL = "https://www.ietf.org/rfc/"
)

// DefaultExcluded lists RFC numbers the canonical source refuses to serve
// (historically 403). They are dropped from the registry regardless of
// index file content. Membership is a fact about the data source, which is
// why it lives in configuration rather than in the cache layer.
var DefaultExcluded = []int{8, 9, 51, 418, 530, 598}

// Config is the complete rfcmirror configuration.
type Config struct {
	// CacheDir is the cache root holding the index file, document files
	// and the search store.
	CacheDir string `yaml:"cache_dir"`

	// IndexURL is the remote source of the full RFC index file.
	IndexURL string `yaml:"index_url"`

	// DocumentBaseURL is the base URL documents are fetched from;
	// the per-document path is rfc<number, zero-padded to 4>.txt.
	DocumentBaseURL string `yaml:"document_base_url"`

	// Excluded are document numbers always dropped from the registry.
	Excluded []int `yaml:"excluded"`

	// FetchTimeout bounds a single HTTP request.
	FetchTimeout time.Duration `yaml:"fetch_timeout"`

	// RateLimit caps outgoing requests per second. Zero disables limiting.
	RateLimit float64 `yaml:"rate_limit"`

	// LogLevel is the minimum log level (debug, info, warn, error).
	LogLevel string `yaml:"log_level"`
}

// Default returns the compiled-in configuration.
func Default() *Config {
	return &Config{
		CacheDir:        DefaultCacheDir(),
		IndexURL:        DefaultIndexURL,
		DocumentBaseURL: DefaultDocumentBaseURL,
		Excluded:        append([]int(nil), DefaultExcluded...),
		FetchTimeout:    30 * time.Second,
		RateLimit:       0,
		LogLevel:        "info",
	}
}

// DefaultCacheDir returns the per-user cache root, falling back to the
// temp directory when no user cache directory is available.
func DefaultCacheDir() string {
	if dir := os.Getenv("RFCMIRROR_CACHE_DIR"); dir != "" {
		return dir
	}
	base, err := os.UserCacheDir()
	if err != nil {
		base = os.TempDir()
	}
	return filepath.Join(base, "rfcmirror")
}

// Load reads the config file at path and merges it over the defaults.
// A missing file is not an error; the defaults are returned unchanged.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	cfg.applyDefaults()
	return cfg, nil
}

// applyDefaults fills zero values left by a partial config file.
func (c *Config) applyDefaults() {
	d := Default()
	if c.CacheDir == "" {
		c.CacheDir = d.CacheDir
	}
	if c.IndexURL == "" {
		c.IndexURL = d.IndexURL
	}
	if c.DocumentBaseURL == "" {
		c.DocumentBaseURL = d.DocumentBaseURL
	}
	if c.Excluded == nil {
		c.Excluded = d.Excluded
	}
	if c.FetchTimeout == 0 {
		c.FetchTimeout = d.FetchTimeout
	}
	if c.LogLevel == "" {
		c.LogLevel = d.LogLevel
	}
}

// Validate checks the configuration for values the cache layer cannot
// work with.
func (c *Config) Validate() error {
	if c.CacheDir == "" {
		return fmt.Errorf("cache_dir must not be empty")
	}
	if c.IndexURL == "" {
		return fmt.Errorf("index_url must not be empty")
	}
	if c.DocumentBaseURL == "" {
		return fmt.Errorf("document_base_url must not be empty")
	}
	for _, n := range c.Excluded {
		if n < 1 {
			return fmt.Errorf("excluded numbers must be positive, got %d", n)
		}
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("rate_limit must not be negative")
	}
	return nil
}

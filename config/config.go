// Package config loads the server configuration from YAML or TOML files.
//
// Values of the form ${VAR} are replaced with the environment variable VAR
// before parsing. Durations are written as Go duration strings ("30s", "1h").
// Anything the file omits keeps its value from Default.
package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// APIKeyEnv overrides server.api_key when set.
const APIKeyEnv = "HN_MCP_API_KEY"

// Transport names.
const (
	TransportStdio = "stdio"
	TransportHTTP  = "http"
)

// Config is the complete server configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server" toml:"server"`
	HackerNews HackerNewsConfig `yaml:"hackernews" toml:"hackernews"`
	Resources  ResourcesConfig  `yaml:"resources" toml:"resources"`
	Logging    LoggingConfig    `yaml:"logging" toml:"logging"`
}

// ServerConfig selects and configures the MCP transport.
type ServerConfig struct {
	Name      string `yaml:"name" toml:"name"`
	Version   string `yaml:"version" toml:"version"`
	Transport string `yaml:"transport" toml:"transport"`
	HTTPAddr  string `yaml:"http_addr" toml:"http_addr"`

	// AuthHeader is "bearer" or "api-key".
	AuthHeader string `yaml:"auth_header" toml:"auth_header"`
	APIKey     string `yaml:"api_key" toml:"api_key"`

	ShutdownTimeout    time.Duration `yaml:"-" toml:"-"`
	ShutdownTimeoutRaw string        `yaml:"shutdown_timeout" toml:"shutdown_timeout"`
}

// HackerNewsConfig configures the upstream client.
type HackerNewsConfig struct {
	BaseURL string `yaml:"base_url" toml:"base_url"`

	// RateLimit is requests per second; 0 disables limiting.
	RateLimit      float64 `yaml:"rate_limit" toml:"rate_limit"`
	Burst          int     `yaml:"burst" toml:"burst"`
	MaxConcurrency int     `yaml:"max_concurrency" toml:"max_concurrency"`

	Timeout    time.Duration `yaml:"-" toml:"-"`
	TimeoutRaw string        `yaml:"timeout" toml:"timeout"`
}

// ResourcesConfig bounds the published page store.
type ResourcesConfig struct {
	MaxEntries int `yaml:"max_entries" toml:"max_entries"`

	TTL    time.Duration `yaml:"-" toml:"-"`
	TTLRaw string        `yaml:"ttl" toml:"ttl"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	cfg := &Config{
		Server: ServerConfig{
			Name:               "hacker-news-server",
			Version:            "0.0.1",
			Transport:          TransportStdio,
			HTTPAddr:           "127.0.0.1:8080",
			AuthHeader:         "bearer",
			ShutdownTimeoutRaw: "10s",
		},
		HackerNews: HackerNewsConfig{
			BaseURL:        "https://hacker-news.firebaseio.com/v0",
			MaxConcurrency: 10,
			TimeoutRaw:     "30s",
		},
		Resources: ResourcesConfig{
			MaxEntries: 256,
			TTLRaw:     "1h",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
	if err := parseDurations(cfg); err != nil {
		panic(err)
	}
	return cfg
}

// Load reads the file at path over Default. The format follows the
// extension: .yaml/.yml or .toml.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	expanded := expandEnvVars(string(data))

	cfg := Default()
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	case ".toml":
		if _, err := toml.Decode(expanded, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config file extension %q", ext)
	}

	if err := parseDurations(cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	cfg.ApplyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

// ApplyEnv applies environment overrides.
func (c *Config) ApplyEnv() {
	if key := os.Getenv(APIKeyEnv); key != "" {
		c.Server.APIKey = key
	}
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		return os.Getenv(envVarPattern.FindStringSubmatch(match)[1])
	})
}

// Validate checks that the configuration can be served.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	if c.Server.Name == "" {
		return fmt.Errorf("server.name is required")
	}

	switch c.Server.Transport {
	case TransportStdio:
	case TransportHTTP:
		if c.Server.HTTPAddr == "" {
			return fmt.Errorf("server.http_addr is required for the http transport")
		}
		if c.Server.APIKey == "" {
			return fmt.Errorf("server.api_key (or %s) is required for the http transport", APIKeyEnv)
		}
	default:
		return fmt.Errorf("server.transport must be %q or %q, got %q", TransportStdio, TransportHTTP, c.Server.Transport)
	}

	switch c.Server.AuthHeader {
	case "bearer", "api-key":
	default:
		return fmt.Errorf("server.auth_header must be \"bearer\" or \"api-key\", got %q", c.Server.AuthHeader)
	}

	if c.HackerNews.BaseURL == "" {
		return fmt.Errorf("hackernews.base_url is required")
	}
	if c.HackerNews.RateLimit < 0 {
		return fmt.Errorf("hackernews.rate_limit must not be negative")
	}
	if c.HackerNews.MaxConcurrency < 0 {
		return fmt.Errorf("hackernews.max_concurrency must not be negative")
	}
	if c.Resources.MaxEntries < 0 {
		return fmt.Errorf("resources.max_entries must not be negative")
	}

	if _, err := c.Logging.SlogLevel(); err != nil {
		return err
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format must be \"text\" or \"json\", got %q", c.Logging.Format)
	}

	return nil
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	fields := []struct {
		name string
		raw  string
		dst  *time.Duration
	}{
		{"server.shutdown_timeout", cfg.Server.ShutdownTimeoutRaw, &cfg.Server.ShutdownTimeout},
		{"hackernews.timeout", cfg.HackerNews.TimeoutRaw, &cfg.HackerNews.Timeout},
		{"resources.ttl", cfg.Resources.TTLRaw, &cfg.Resources.TTL},
	}

	for _, f := range fields {
		if f.raw == "" {
			continue
		}
		d, err := time.ParseDuration(f.raw)
		if err != nil {
			return fmt.Errorf("parsing %s %q: %w", f.name, f.raw, err)
		}
		*f.dst = d
	}
	return nil
}

// SlogLevel parses Level.
func (l LoggingConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return 0, fmt.Errorf("logging.level: %w", err)
	}
	return level, nil
}

// NewLogger builds a logger writing to w in the configured format.
func (l LoggingConfig) NewLogger(w io.Writer) *slog.Logger {
	level, err := l.SlogLevel()
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	if l.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

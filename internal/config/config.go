// ABOUTME: Configuration loading and parsing for junebug-bridge
// ABOUTME: YAML or TOML files with ${VAR} expansion, environment overrides, and duration parsing

package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Defaults for settings left empty.
const (
	DefaultHTTPAddr       = "127.0.0.1:8000"
	DefaultJunebugURL     = "http://localhost:8080"
	DefaultChannelID      = "replace-me"
	DefaultInboundURL     = "/junebug/inbound"
	DefaultIdentityURL    = "http://localhost:8081"
	DefaultAddressType    = "msisdn"
	DefaultMaxIndirection = 10
	DefaultTimeout        = 30 * time.Second
	DefaultDedupeSize     = 10000
	DefaultMetricsPath    = "/metrics"
	DefaultServiceName    = "junebug-bridge"
)

// Config represents the complete junebug-bridge configuration
type Config struct {
	Server        ServerConfig        `yaml:"server" toml:"server"`
	Junebug       JunebugConfig       `yaml:"junebug" toml:"junebug"`
	IdentityStore IdentityStoreConfig `yaml:"identity_store" toml:"identity_store"`
	Database      DatabaseConfig      `yaml:"database" toml:"database"`
	Inbound       InboundConfig       `yaml:"inbound" toml:"inbound"`
	Logging       LoggingConfig       `yaml:"logging" toml:"logging"`
	Metrics       MetricsConfig       `yaml:"metrics" toml:"metrics"`
	Telemetry     TelemetryConfig     `yaml:"telemetry" toml:"telemetry"`
	Tailscale     TailscaleConfig     `yaml:"tailscale" toml:"tailscale"`
}

// ServerConfig holds the HTTP listener configuration
type ServerConfig struct {
	HTTPAddr string `yaml:"http_addr" toml:"http_addr" env:"JUNEBUG_BRIDGE_HTTP_ADDR"`
	// APIToken protects /api/outgoing when set
	APIToken string `yaml:"api_token" toml:"api_token" env:"JUNEBUG_BRIDGE_API_TOKEN"`
}

// JunebugConfig holds gateway settings
type JunebugConfig struct {
	URL         string `yaml:"url" toml:"url" env:"JUNEBUG_URL"`
	ChannelID   string `yaml:"channel_id" toml:"channel_id" env:"JUNEBUG_CHANNEL_ID"`
	AuthToken   string `yaml:"auth_token" toml:"auth_token" env:"JUNEBUG_AUTH_TOKEN"`
	FromAddress string `yaml:"from_address" toml:"from_address" env:"JUNEBUG_FROM_ADDRESS"`
	InboundURL  string `yaml:"inbound_url" toml:"inbound_url" env:"JUNEBUG_INBOUND_URL"`

	Timeout    time.Duration `yaml:"-" toml:"-"`
	TimeoutRaw string        `yaml:"timeout" toml:"timeout" env:"JUNEBUG_TIMEOUT"`
}

// IdentityStoreConfig holds identity store settings
type IdentityStoreConfig struct {
	URL            string `yaml:"url" toml:"url" env:"IDENTITY_STORE_URL"`
	AuthToken      string `yaml:"auth_token" toml:"auth_token" env:"IDENTITY_STORE_TOKEN"`
	AddressType    string `yaml:"address_type" toml:"address_type" env:"IDENTITY_STORE_ADDRESS_TYPE"`
	MaxIndirection int    `yaml:"max_indirection" toml:"max_indirection" env:"IDENTITY_STORE_MAX_INDIRECTION"`

	Timeout    time.Duration `yaml:"-" toml:"-"`
	TimeoutRaw string        `yaml:"timeout" toml:"timeout" env:"IDENTITY_STORE_TIMEOUT"`
}

// DatabaseConfig holds the host record store location. An empty path
// disables the store.
type DatabaseConfig struct {
	Path string `yaml:"path" toml:"path" env:"JUNEBUG_BRIDGE_DB_PATH"`
}

// InboundConfig holds webhook settings. A zero DedupeTTL disables the
// redelivery filter.
type InboundConfig struct {
	DedupeTTL    time.Duration `yaml:"-" toml:"-"`
	DedupeTTLRaw string        `yaml:"dedupe_ttl" toml:"dedupe_ttl" env:"JUNEBUG_BRIDGE_DEDUPE_TTL"`
	DedupeSize   int           `yaml:"dedupe_size" toml:"dedupe_size" env:"JUNEBUG_BRIDGE_DEDUPE_SIZE"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" toml:"level" env:"JUNEBUG_BRIDGE_LOG_LEVEL"`
	Format string `yaml:"format" toml:"format" env:"JUNEBUG_BRIDGE_LOG_FORMAT"`
}

// MetricsConfig holds metrics endpoint configuration
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" toml:"enabled" env:"JUNEBUG_BRIDGE_METRICS_ENABLED"`
	Path    string `yaml:"path" toml:"path" env:"JUNEBUG_BRIDGE_METRICS_PATH"`
}

// TelemetryConfig holds OTLP trace export configuration. An empty endpoint
// disables export.
type TelemetryConfig struct {
	Endpoint    string `yaml:"endpoint" toml:"endpoint" env:"JUNEBUG_BRIDGE_OTEL_ENDPOINT"`
	ServiceName string `yaml:"service_name" toml:"service_name" env:"JUNEBUG_BRIDGE_OTEL_SERVICE_NAME"`
}

// TailscaleConfig holds Tailscale tsnet configuration
type TailscaleConfig struct {
	Enabled   bool   `yaml:"enabled" toml:"enabled" env:"JUNEBUG_BRIDGE_TAILSCALE_ENABLED"`
	Hostname  string `yaml:"hostname" toml:"hostname" env:"JUNEBUG_BRIDGE_TAILSCALE_HOSTNAME"`
	AuthKey   string `yaml:"auth_key" toml:"auth_key" env:"TS_AUTHKEY"`
	StateDir  string `yaml:"state_dir" toml:"state_dir" env:"JUNEBUG_BRIDGE_TAILSCALE_STATE_DIR"`
	Ephemeral bool   `yaml:"ephemeral" toml:"ephemeral"`
	Funnel    bool   `yaml:"funnel" toml:"funnel" env:"JUNEBUG_BRIDGE_TAILSCALE_FUNNEL"` // public webhook via Funnel
}

// Load reads a configuration file from the given path and returns a parsed Config.
// Files ending in .toml are decoded as TOML, anything else as YAML.
// Environment variables in the format ${VAR_NAME} are expanded, then the
// variables named in the env tags override whatever the file set.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	expanded := expandEnvVars(string(data))

	var cfg Config
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if _, err := toml.Decode(expanded, &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	} else {
		if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	return finish(&cfg)
}

// FromEnv builds a Config from defaults and environment variables alone.
func FromEnv() (*Config, error) {
	return finish(&Config{})
}

// LoadOrEnv loads path when it exists and otherwise falls back to FromEnv.
func LoadOrEnv(path string) (*Config, error) {
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("checking config file: %w", err)
		}
	}
	return FromEnv()
}

// DefaultPath returns JUNEBUG_BRIDGE_CONFIG if set, else
// $XDG_CONFIG_HOME/junebug-bridge/config.yaml.
func DefaultPath() string {
	if p := os.Getenv("JUNEBUG_BRIDGE_CONFIG"); p != "" {
		return p
	}
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "config.yaml"
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "junebug-bridge", "config.yaml")
}

func finish(cfg *Config) (*Config, error) {
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}

	applyDefaults(cfg)

	if err := parseDurations(cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

func applyDefaults(cfg *Config) {
	if cfg.Server.HTTPAddr == "" && !cfg.Tailscale.Enabled {
		cfg.Server.HTTPAddr = DefaultHTTPAddr
	}
	if cfg.Junebug.URL == "" {
		cfg.Junebug.URL = DefaultJunebugURL
	}
	if cfg.Junebug.ChannelID == "" {
		cfg.Junebug.ChannelID = DefaultChannelID
	}
	if cfg.Junebug.InboundURL == "" {
		cfg.Junebug.InboundURL = DefaultInboundURL
	}
	if cfg.IdentityStore.URL == "" {
		cfg.IdentityStore.URL = DefaultIdentityURL
	}
	if cfg.IdentityStore.AddressType == "" {
		cfg.IdentityStore.AddressType = DefaultAddressType
	}
	if cfg.IdentityStore.MaxIndirection == 0 {
		cfg.IdentityStore.MaxIndirection = DefaultMaxIndirection
	}
	if cfg.Inbound.DedupeSize == 0 {
		cfg.Inbound.DedupeSize = DefaultDedupeSize
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = DefaultMetricsPath
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = DefaultServiceName
	}
}

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	if !c.Tailscale.Enabled && c.Server.HTTPAddr == "" {
		return fmt.Errorf("server.http_addr is required (or enable tailscale)")
	}

	if c.Tailscale.Enabled && c.Tailscale.Hostname == "" {
		return fmt.Errorf("tailscale.hostname is required when tailscale is enabled")
	}

	if err := validateURL("junebug.url", c.Junebug.URL); err != nil {
		return err
	}
	if c.Junebug.ChannelID == "" {
		return fmt.Errorf("junebug.channel_id is required")
	}
	if !strings.HasPrefix(c.Junebug.InboundURL, "/") {
		return fmt.Errorf("junebug.inbound_url must start with /")
	}

	if err := validateURL("identity_store.url", c.IdentityStore.URL); err != nil {
		return err
	}
	if c.IdentityStore.MaxIndirection < 0 {
		return fmt.Errorf("identity_store.max_indirection must not be negative")
	}

	if c.Inbound.DedupeSize < 0 {
		return fmt.Errorf("inbound.dedupe_size must not be negative")
	}

	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format must be text or json, got %q", c.Logging.Format)
	}

	if c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Path, "/") {
		return fmt.Errorf("metrics.path must start with /")
	}

	if c.Telemetry.Endpoint != "" {
		if err := validateURL("telemetry.endpoint", c.Telemetry.Endpoint); err != nil {
			return err
		}
	}

	return nil
}

func validateURL(field, raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s is not a valid URL: %w", field, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%s must use http or https scheme", field)
	}
	return nil
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	durations := []struct {
		name string
		raw  string
		dst  *time.Duration
		def  time.Duration
	}{
		{"junebug.timeout", cfg.Junebug.TimeoutRaw, &cfg.Junebug.Timeout, DefaultTimeout},
		{"identity_store.timeout", cfg.IdentityStore.TimeoutRaw, &cfg.IdentityStore.Timeout, DefaultTimeout},
		{"inbound.dedupe_ttl", cfg.Inbound.DedupeTTLRaw, &cfg.Inbound.DedupeTTL, 0},
	}

	for _, d := range durations {
		if d.raw == "" {
			*d.dst = d.def
			continue
		}
		v, err := time.ParseDuration(d.raw)
		if err != nil {
			return fmt.Errorf("parsing %s %q: %w", d.name, d.raw, err)
		}
		if v < 0 {
			return fmt.Errorf("%s must not be negative", d.name)
		}
		*d.dst = v
	}

	return nil
}

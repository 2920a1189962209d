// Package config loads the emptyinbox server configuration from YAML.
// Environment variables in the format ${VAR_NAME} are expanded, and
// duration strings are parsed into time.Duration values.
package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the complete server configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Service  ServiceConfig  `yaml:"service"`
	Auth     AuthConfig     `yaml:"auth"`
	Payments PaymentsConfig `yaml:"payments"`
	Events   EventsConfig   `yaml:"events"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ServerConfig holds the HTTP listener configuration.
type ServerConfig struct {
	Addr string `yaml:"addr"`
	Dev  bool   `yaml:"dev"` // development mode: insecure cookies, localhost origins
}

// DatabaseConfig holds the SQLite database configuration.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// ServiceConfig identifies the mail service itself.
type ServiceConfig struct {
	Domain string `yaml:"domain"`  // mailbox and sign-in message domain
	RPName string `yaml:"rp_name"` // WebAuthn relying-party display name
	TOSURL string `yaml:"tos_url"` // terms-of-service URL embedded in sign-in messages
}

// AuthConfig holds auth lifecycle configuration.
type AuthConfig struct {
	IngestSecret string `yaml:"ingest_secret"` // shared secret for the SMTP forwarder endpoint

	ChallengeTTL time.Duration `yaml:"-"`
	SessionTTL   time.Duration `yaml:"-"`
	SweepEvery   time.Duration `yaml:"-"`

	ChallengeTTLRaw string `yaml:"challenge_ttl"`
	SessionTTLRaw   string `yaml:"session_ttl"`
	SweepEveryRaw   string `yaml:"sweep_interval"`
}

// PaymentsConfig holds the USDT top-up configuration.
type PaymentsConfig struct {
	ReceivingAddress string `yaml:"receiving_address"`
}

// EventsConfig holds the Redis stream publisher configuration.
type EventsConfig struct {
	RedisURL string `yaml:"redis_url"` // empty disables cross-instance events
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Load reads and validates the configuration at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal([]byte(expandEnvVars(string(data))), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := cfg.parseDurations(); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return &cfg, nil
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding
// environment variable values. Unset variables expand to "".
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		return os.Getenv(envVarPattern.FindStringSubmatch(match)[1])
	})
}

func (c *Config) parseDurations() error {
	fields := []struct {
		raw  string
		dst  *time.Duration
		name string
	}{
		{c.Auth.ChallengeTTLRaw, &c.Auth.ChallengeTTL, "challenge_ttl"},
		{c.Auth.SessionTTLRaw, &c.Auth.SessionTTL, "session_ttl"},
		{c.Auth.SweepEveryRaw, &c.Auth.SweepEvery, "sweep_interval"},
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

func (c *Config) applyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = ":9000"
	}
	if c.Service.RPName == "" {
		c.Service.RPName = c.Service.Domain
	}
	if c.Service.TOSURL == "" && c.Service.Domain != "" {
		c.Service.TOSURL = "https://" + c.Service.Domain + "/tos"
	}
	if c.Auth.ChallengeTTL == 0 {
		c.Auth.ChallengeTTL = 5 * time.Minute
	}
	if c.Auth.SessionTTL == 0 {
		c.Auth.SessionTTL = 7 * 24 * time.Hour
	}
	if c.Auth.SweepEvery == 0 {
		c.Auth.SweepEvery = 10 * time.Minute
	}
}

// Validate checks that all required fields are present.
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.Service.Domain == "" {
		return fmt.Errorf("service.domain is required")
	}
	if c.Auth.IngestSecret == "" {
		return fmt.Errorf("auth.ingest_secret is required")
	}
	return nil
}

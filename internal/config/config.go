package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultDataDir    = "/var/lib/controlplane"
	DefaultListenAddr = "0.0.0.0:7433"
	DefaultCLIAddr    = "127.0.0.1:7434"
	ConfigFileName    = "config.yaml"

	// DefaultProbeTimeout bounds a single agent RPC (C2).
	DefaultProbeTimeout = 5 * time.Second
	// DefaultBucketJitter is not read by any component; the scheduler's
	// due-window slack is fixed in scheduler.epsilon.
	DefaultBucketJitter = 250 * time.Millisecond
	// DefaultDuePageSize matches the scheduler's own page size constant; the
	// scheduler does not read this value.
	DefaultDuePageSize = 100
)

// Config holds all configuration for a controlplane instance.
type Config struct {
	DataDir    string `yaml:"data_dir"`
	ListenAddr string `yaml:"listen_addr"` // read API
	CLIAddr    string `yaml:"cli_addr"`    // stored only; CLI commands call ListenAddr

	Database DatabaseConfig `yaml:"database"`
	Agents   AgentsConfig   `yaml:"agents"`
	Redis    *RedisConfig   `yaml:"redis,omitempty"`
	Alerts   AlertsConfig   `yaml:"alerts"`
}

// DatabaseConfig selects and configures the storage backend.
type DatabaseConfig struct {
	Driver string `yaml:"driver"` // "sqlite" or "postgres"
	DSN    string `yaml:"dsn,omitempty"`
}

// AgentsConfig configures how the control plane reaches external probe agents.
type AgentsConfig struct {
	BearerToken  string        `yaml:"bearer_token"`
	ProbeTimeout time.Duration `yaml:"probe_timeout,omitempty"`
	RefreshEvery time.Duration `yaml:"refresh_every,omitempty"`
}

// RedisConfig enables the optional read-path cache in front of the aggregators.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password,omitempty"`
	DB       int    `yaml:"db"`
}

// AlertsConfig configures the alert delivery drainer.
type AlertsConfig struct {
	WebhookURL    string `yaml:"webhook_url,omitempty"`
	WebhookSecret string `yaml:"webhook_secret,omitempty"`
	SMTPAddr      string `yaml:"smtp_addr,omitempty"`
	SMTPFrom      string `yaml:"smtp_from,omitempty"`
	MaxTries      int    `yaml:"max_tries"`
}

// DefaultConfig returns a config with sensible single-instance, SQLite-backed defaults.
func DefaultConfig() *Config {
	return &Config{
		DataDir:    DefaultDataDir,
		ListenAddr: DefaultListenAddr,
		CLIAddr:    DefaultCLIAddr,
		Database: DatabaseConfig{
			Driver: "sqlite",
		},
		Agents: AgentsConfig{
			ProbeTimeout: DefaultProbeTimeout,
			RefreshEvery: 30 * time.Second,
		},
		Alerts: AlertsConfig{
			MaxTries: 3,
		},
	}
}

// Load reads configuration from the data directory, expanding ${VAR} references
// against the environment so secrets stay out of the file on disk.
func Load(dataDir string) (*Config, error) {
	path := filepath.Join(dataDir, ConfigFileName)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("no configuration found at %s (run 'controlplane init' first)", path)
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if cfg.DataDir == "" {
		cfg.DataDir = dataDir
	}
	if cfg.Agents.ProbeTimeout == 0 {
		cfg.Agents.ProbeTimeout = DefaultProbeTimeout
	}

	return cfg, nil
}

// Save writes configuration to the data directory.
func (c *Config) Save() error {
	if err := os.MkdirAll(c.DataDir, 0750); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	path := filepath.Join(c.DataDir, ConfigFileName)

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}

// DSN returns the effective data source name for the configured driver.
func (c *Config) DSN() string {
	if c.Database.Driver == "postgres" {
		return c.Database.DSN
	}
	if c.Database.DSN != "" {
		return c.Database.DSN
	}
	return filepath.Join(c.DataDir, "controlplane.db")
}

package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v2"
)

// Load reads configuration from a YAML file.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg AppConfig
	// Expand environment variables in the YAML content
	expandedData := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return finish(&cfg)
}

// LoadOrDefault behaves like Load but falls back to an empty file when
// path does not exist, so that env-only setups work.
func LoadOrDefault(path string) (*AppConfig, error) {
	cfg, err := Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return finish(&AppConfig{})
	}
	return cfg, err
}

func finish(cfg *AppConfig) (*AppConfig, error) {
	applyEnv(cfg)
	applyDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv fills empty credentials from the SF_* variables.
func applyEnv(cfg *AppConfig) {
	sf := &cfg.Salesforce
	setIfEmpty(&sf.Username, "SF_USERNAME")
	setIfEmpty(&sf.Password, "SF_PASSWORD")
	setIfEmpty(&sf.SecurityToken, "SF_SECURITY_TOKEN")
	setIfEmpty(&sf.SessionToken, "SF_SESSION_TOKEN")
	setIfEmpty(&sf.InstanceURL, "SF_INSTANCE_URL")
	setIfEmpty(&sf.LoginURL, "SF_LOGIN_URL")
	if v, err := strconv.ParseBool(os.Getenv("SF_SANDBOX")); err == nil && v {
		sf.Sandbox = true
	}
	setIfEmpty(&cfg.Database.URL, "DATABASE_URL")
	setIfEmpty(&cfg.Redis.URL, "REDIS_URL")
}

func setIfEmpty(dst *string, env string) {
	if *dst == "" {
		*dst = os.Getenv(env)
	}
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Salesforce.APIVersion == "" {
		cfg.Salesforce.APIVersion = "58.0"
	}
	if cfg.Salesforce.Endpoint == "" {
		cfg.Salesforce.Endpoint = "data"
	}
	if cfg.Salesforce.Timeout == 0 {
		cfg.Salesforce.Timeout = 30 * time.Second
	}
	if cfg.Retry.Policy == "" {
		cfg.Retry.Policy = "field_count"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Redis.SessionTTL == 0 {
		cfg.Redis.SessionTTL = time.Hour
	}
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "pgx"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Batch.Concurrency == 0 {
		cfg.Batch.Concurrency = 4
	}
}

// Validate reports values that cannot be used.
func (c *AppConfig) Validate() error {
	switch c.Salesforce.Endpoint {
	case "data", "tooling":
	default:
		return fmt.Errorf("salesforce.endpoint must be data or tooling, got %q", c.Salesforce.Endpoint)
	}
	switch c.Retry.Policy {
	case "field_count", "fixed":
	default:
		return fmt.Errorf("retry.policy must be field_count or fixed, got %q", c.Retry.Policy)
	}
	if c.Retry.MaxBudget < 0 || c.Retry.FixedBudget < 0 {
		return errors.New("retry budgets must not be negative")
	}
	if c.History.Retention < 0 {
		return errors.New("history.retention must not be negative")
	}
	switch c.Database.Driver {
	case "pgx", "postgres":
	default:
		return fmt.Errorf("database.driver must be pgx or postgres, got %q", c.Database.Driver)
	}
	if c.Batch.Concurrency < 0 {
		return fmt.Errorf("batch.concurrency must not be negative, got %d", c.Batch.Concurrency)
	}
	return nil
}

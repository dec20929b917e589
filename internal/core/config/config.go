package config

import (
	"time"

	redisclient "github.com/vietddude/soqlguard/internal/infra/redis"
	"github.com/vietddude/soqlguard/internal/infra/storage/postgres"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Salesforce SalesforceConfig   `yaml:"salesforce"`
	Retry      RetryConfig        `yaml:"retry"`
	Server     ServerConfig       `yaml:"server"`
	Redis      redisclient.Config `yaml:"redis"`
	Logging    LoggingConfig      `yaml:"logging"`
	Database   postgres.Config    `yaml:"database"`
	Batch      BatchConfig        `yaml:"batch"`
	History    HistoryConfig      `yaml:"history"`
	Profile    ProfileConfig      `yaml:"profile"`
}

// SalesforceConfig holds login and transport settings.
type SalesforceConfig struct {
	LoginURL      string `yaml:"login_url"`
	Sandbox       bool   `yaml:"sandbox"`
	Username      string `yaml:"username"`
	Password      string `yaml:"password"`
	SecurityToken string `yaml:"security_token"`

	// SessionToken and InstanceURL skip the login when both are set.
	SessionToken string `yaml:"session_token"`
	InstanceURL  string `yaml:"instance_url"`

	APIVersion        string        `yaml:"api_version"`
	Endpoint          string        `yaml:"endpoint"` // data, tooling
	Timeout           time.Duration `yaml:"timeout"`
	RequestsPerSecond float64       `yaml:"requests_per_second"` // 0 = unlimited
	Burst             int           `yaml:"burst"`
}

// RetryConfig sizes the repair budget of each execution.
type RetryConfig struct {
	Policy      string `yaml:"policy"`       // field_count, fixed
	MaxBudget   int    `yaml:"max_budget"`   // 0 = no cap
	FixedBudget int    `yaml:"fixed_budget"` // used by the fixed policy
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// HistoryConfig controls how long executions are kept.
type HistoryConfig struct {
	Retention time.Duration `yaml:"retention"` // 0 = keep forever
}

// ProfileConfig lists fields the profile command never queries. Entries
// are "Field" or "Object.Field"; ExcludeFile holds one entry per line.
type ProfileConfig struct {
	Exclude     []string `yaml:"exclude"`
	ExcludeFile string   `yaml:"exclude_file"`
}

// BatchConfig holds batch execution settings.
type BatchConfig struct {
	Concurrency int `yaml:"concurrency"`
}

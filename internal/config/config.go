package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"   validate:"required"`
	Database DatabaseConfig `mapstructure:"database" validate:"required"`
	Auth     AuthConfig     `mapstructure:"auth"     validate:"required"`
	Worker   WorkerConfig   `mapstructure:"worker"   validate:"required"`
	Lease    LeaseConfig    `mapstructure:"lease"    validate:"required"`
}

// ServerConfig contains all HTTP server related configuration settings.
type ServerConfig struct {
	Port      int    `mapstructure:"port"       validate:"required,gt=0,lt=65536"`
	LogLevel  string `mapstructure:"log_level"  validate:"required,oneof=debug info warn error"`
	LogFormat string `mapstructure:"log_format" validate:"required,oneof=json console"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"required"`
}

// AuthConfig contains authentication settings for user-facing endpoints.
// Tokens are minted by the main application; this service only validates them.
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret" validate:"required,min=32"`
}

// WorkerConfig configures both sides of the worker protocol: the shared
// secret the API checks, and the runtime knobs the worker process uses.
type WorkerConfig struct {
	// Secret is the shared worker secret. An empty value means worker
	// endpoints reject every request; there is no "open" mode.
	Secret string `mapstructure:"secret"`

	// APIBaseURL is where the worker process reaches the queue API.
	APIBaseURL string `mapstructure:"api_base_url" validate:"required,url"`

	// PollIntervalSeconds is how long the worker sleeps after an empty claim.
	PollIntervalSeconds int `mapstructure:"poll_interval_seconds" validate:"required,gt=0"`

	// JobTimeoutSeconds bounds one job's page automation so a slow posting
	// cannot stall the whole batch.
	JobTimeoutSeconds int `mapstructure:"job_timeout_seconds" validate:"required,gt=0"`

	// MaxTasksPerRun stops the loop after claiming this many tasks.
	// Zero means unbounded.
	MaxTasksPerRun int `mapstructure:"max_tasks_per_run" validate:"gte=0"`

	// RunOnce exits after the first claim attempt, for batch/CI use.
	RunOnce bool `mapstructure:"run_once"`
}

// LeaseConfig configures the lease-expiry sweeper that recovers tasks whose
// worker died mid-run.
type LeaseConfig struct {
	TimeoutSeconds       int `mapstructure:"timeout_seconds"        validate:"required,gt=0"`
	SweepIntervalSeconds int `mapstructure:"sweep_interval_seconds" validate:"required,gt=0"`
}

// PollInterval returns the worker poll interval as a duration.
func (c WorkerConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalSeconds) * time.Second
}

// JobTimeout returns the per-job automation timeout as a duration.
func (c WorkerConfig) JobTimeout() time.Duration {
	return time.Duration(c.JobTimeoutSeconds) * time.Second
}

// Timeout returns the lease timeout as a duration.
func (c LeaseConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// SweepInterval returns the sweep interval as a duration.
func (c LeaseConfig) SweepInterval() time.Duration {
	return time.Duration(c.SweepIntervalSeconds) * time.Second
}

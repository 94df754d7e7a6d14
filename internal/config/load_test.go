package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testJWTSecret = "0123456789abcdef0123456789abcdef" // 32 chars, min for HMAC

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("APPLYPASS_DATABASE_URL", "postgres://localhost:5432/applypass")
	t.Setenv("APPLYPASS_AUTH_JWT_SECRET", testJWTSecret)
	t.Setenv("APPLYPASS_WORKER_SECRET", "worker-secret")
}

func TestLoadDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Server.LogLevel)
	assert.Equal(t, "json", cfg.Server.LogFormat)
	assert.Equal(t, 5, cfg.Worker.PollIntervalSeconds)
	assert.Equal(t, 120, cfg.Worker.JobTimeoutSeconds)
	assert.Equal(t, 0, cfg.Worker.MaxTasksPerRun)
	assert.False(t, cfg.Worker.RunOnce)
	assert.Equal(t, 300, cfg.Lease.TimeoutSeconds)
	assert.Equal(t, 60, cfg.Lease.SweepIntervalSeconds)
}

func TestLoadEnvOverrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("APPLYPASS_SERVER_PORT", "9090")
	t.Setenv("APPLYPASS_SERVER_LOG_LEVEL", "debug")
	t.Setenv("APPLYPASS_WORKER_POLL_INTERVAL_SECONDS", "1")
	t.Setenv("APPLYPASS_WORKER_RUN_ONCE", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Server.LogLevel)
	assert.Equal(t, 1, cfg.Worker.PollIntervalSeconds)
	assert.True(t, cfg.Worker.RunOnce)
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{
			name: "missing_database_url",
			env: map[string]string{
				"APPLYPASS_AUTH_JWT_SECRET": testJWTSecret,
			},
		},
		{
			name: "short_jwt_secret",
			env: map[string]string{
				"APPLYPASS_DATABASE_URL":    "postgres://localhost:5432/applypass",
				"APPLYPASS_AUTH_JWT_SECRET": "too-short",
			},
		},
		{
			name: "bad_log_level",
			env: map[string]string{
				"APPLYPASS_DATABASE_URL":     "postgres://localhost:5432/applypass",
				"APPLYPASS_AUTH_JWT_SECRET":  testJWTSecret,
				"APPLYPASS_SERVER_LOG_LEVEL": "verbose",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			cfg, err := Load()
			assert.Error(t, err)
			assert.Nil(t, cfg)
		})
	}
}

func TestDurationHelpers(t *testing.T) {
	cfg := WorkerConfig{PollIntervalSeconds: 5, JobTimeoutSeconds: 120}
	assert.Equal(t, "5s", cfg.PollInterval().String())
	assert.Equal(t, "2m0s", cfg.JobTimeout().String())

	lease := LeaseConfig{TimeoutSeconds: 300, SweepIntervalSeconds: 60}
	assert.Equal(t, "5m0s", lease.Timeout().String())
	assert.Equal(t, "1m0s", lease.SweepInterval().String())
}

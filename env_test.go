package goSession

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigFromEnvDefaults(t *testing.T) {
	cfg := LoadConfigFromEnv("GOSESSION_TEST_UNSET")

	want := defaultConfig()
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Fatalf("config mismatch with nothing set (-want +got):\n%s", diff)
	}
}

func TestLoadConfigFromEnvOverrides(t *testing.T) {
	t.Setenv("GOSESSION_REDIS_ADDRS", "10.0.0.1:6379, 10.0.0.2:6379,")
	t.Setenv("GOSESSION_REDIS_DB", "3")
	t.Setenv("GOSESSION_REDIS_DIAL_TIMEOUT", "2s")
	t.Setenv("GOSESSION_SESSION_PREFIX", "app")
	t.Setenv("GOSESSION_SESSION_SHORT_TERM", "2h")
	t.Setenv("GOSESSION_SESSION_SAFETY_BUFFER", "10s")
	t.Setenv("GOSESSION_PEPPER", "env-pepper")
	t.Setenv("GOSESSION_PASSWORD_MEMORY_KB", "16384")
	t.Setenv("GOSESSION_PASSWORD_UPGRADE_ON_LOGIN", "false")
	t.Setenv("GOSESSION_DATABASE_DSN", "postgres://u:p@localhost/db")
	t.Setenv("GOSESSION_DATABASE_AUTO_MIGRATE", "true")
	t.Setenv("GOSESSION_AUDIT_ENABLED", "1")
	t.Setenv("GOSESSION_METRICS_ENABLED", "true")
	t.Setenv("GOSESSION_METRICS_LATENCY", "true")
	t.Setenv("GOSESSION_LOG_LEVEL", "debug")

	cfg := LoadConfigFromEnv("")

	assert.Equal(t, []string{"10.0.0.1:6379", "10.0.0.2:6379"}, cfg.Redis.Addrs)
	assert.Equal(t, 3, cfg.Redis.DB)
	assert.Equal(t, 2*time.Second, cfg.Redis.DialTimeout)
	assert.Equal(t, "app", cfg.Session.RedisPrefix)
	assert.Equal(t, 2*time.Hour, cfg.Session.ShortTerm)
	assert.Equal(t, 10*time.Second, cfg.Session.SafetyBuffer)
	assert.Equal(t, []byte("env-pepper"), cfg.Password.Pepper)
	assert.Equal(t, uint32(16384), cfg.Password.Memory)
	assert.False(t, cfg.Password.UpgradeOnLogin)
	assert.Equal(t, "postgres://u:p@localhost/db", cfg.Database.DSN)
	assert.True(t, cfg.Database.AutoMigrate)
	assert.True(t, cfg.Audit.Enabled)
	assert.True(t, cfg.Metrics.Enabled)
	assert.True(t, cfg.Metrics.EnableLatencyHistograms)
	assert.Equal(t, "debug", cfg.Log.Level)

	require.NoError(t, cfg.Validate())
}

func TestLoadConfigFromEnvCustomPrefix(t *testing.T) {
	t.Setenv("AUTHSVC_SESSION_PREFIX", "authsvc")
	t.Setenv("GOSESSION_SESSION_PREFIX", "ignored")

	cfg := LoadConfigFromEnv("AUTHSVC")
	assert.Equal(t, "authsvc", cfg.Session.RedisPrefix)
}

func TestLoadConfigFromEnvIgnoresBadValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
		check func(t *testing.T, cfg Config)
	}{
		{"bad duration", "GOSESSION_SESSION_LONG_TERM", "forever", func(t *testing.T, cfg Config) {
			assert.Equal(t, 720*time.Hour, cfg.Session.LongTerm)
		}},
		{"negative duration", "GOSESSION_SESSION_SHORT_TERM", "-1h", func(t *testing.T, cfg Config) {
			assert.Equal(t, 24*time.Hour, cfg.Session.ShortTerm)
		}},
		{"bad int", "GOSESSION_REDIS_POOL_SIZE", "lots", func(t *testing.T, cfg Config) {
			assert.Equal(t, 10, cfg.Redis.PoolSize)
		}},
		{"zero int", "GOSESSION_AUDIT_BUFFER", "0", func(t *testing.T, cfg Config) {
			assert.Equal(t, 1024, cfg.Audit.BufferSize)
		}},
		{"bad bool", "GOSESSION_AUDIT_ENABLED", "maybe", func(t *testing.T, cfg Config) {
			assert.False(t, cfg.Audit.Enabled)
		}},
		{"parallelism overflow", "GOSESSION_PASSWORD_PARALLELISM", "300", func(t *testing.T, cfg Config) {
			assert.Equal(t, uint8(2), cfg.Password.Parallelism)
		}},
		{"blank list", "GOSESSION_REDIS_ADDRS", " , ", func(t *testing.T, cfg Config) {
			assert.Equal(t, []string{"127.0.0.1:6379"}, cfg.Redis.Addrs)
		}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv(tc.key, tc.value)
			tc.check(t, LoadConfigFromEnv(""))
		})
	}
}

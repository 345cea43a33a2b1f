package goSession

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// DefaultEnvPrefix is the variable prefix LoadConfigFromEnv uses when given "".
const DefaultEnvPrefix = "GOSESSION"

// LoadConfigFromEnv overlays <prefix>_* environment variables on
// DefaultConfig. Unset or unparsable values keep the default; Validate still
// has the last word.
func LoadConfigFromEnv(prefix string) Config {
	if prefix == "" {
		prefix = DefaultEnvPrefix
	}
	key := func(name string) string { return prefix + "_" + name }

	cfg := defaultConfig()

	cfg.Redis.Addrs = envList(key("REDIS_ADDRS"), cfg.Redis.Addrs)
	cfg.Redis.Username = envString(key("REDIS_USERNAME"), cfg.Redis.Username)
	cfg.Redis.Password = envString(key("REDIS_PASSWORD"), cfg.Redis.Password)
	cfg.Redis.DB = envInt(key("REDIS_DB"), cfg.Redis.DB)
	cfg.Redis.DialTimeout = envDuration(key("REDIS_DIAL_TIMEOUT"), cfg.Redis.DialTimeout)
	cfg.Redis.ReadTimeout = envDuration(key("REDIS_READ_TIMEOUT"), cfg.Redis.ReadTimeout)
	cfg.Redis.WriteTimeout = envDuration(key("REDIS_WRITE_TIMEOUT"), cfg.Redis.WriteTimeout)
	cfg.Redis.PoolSize = envInt(key("REDIS_POOL_SIZE"), cfg.Redis.PoolSize)

	cfg.Session.RedisPrefix = envString(key("SESSION_PREFIX"), cfg.Session.RedisPrefix)
	cfg.Session.LongTerm = envDuration(key("SESSION_LONG_TERM"), cfg.Session.LongTerm)
	cfg.Session.ShortTerm = envDuration(key("SESSION_SHORT_TERM"), cfg.Session.ShortTerm)
	cfg.Session.SafetyBuffer = envDuration(key("SESSION_SAFETY_BUFFER"), cfg.Session.SafetyBuffer)

	if pepper := os.Getenv(key("PEPPER")); pepper != "" {
		cfg.Password.Pepper = []byte(pepper)
	}
	cfg.Password.Memory = uint32(envInt(key("PASSWORD_MEMORY_KB"), int(cfg.Password.Memory)))
	cfg.Password.Time = uint32(envInt(key("PASSWORD_TIME"), int(cfg.Password.Time)))
	if p := envInt(key("PASSWORD_PARALLELISM"), int(cfg.Password.Parallelism)); p <= 255 {
		cfg.Password.Parallelism = uint8(p)
	}
	cfg.Password.UpgradeOnLogin = envBool(key("PASSWORD_UPGRADE_ON_LOGIN"), cfg.Password.UpgradeOnLogin)

	cfg.Database.DSN = envString(key("DATABASE_DSN"), cfg.Database.DSN)
	cfg.Database.MaxConnections = envInt(key("DATABASE_MAX_CONNS"), cfg.Database.MaxConnections)
	cfg.Database.MinConnections = envInt(key("DATABASE_MIN_CONNS"), cfg.Database.MinConnections)
	cfg.Database.ConnectTimeout = envDuration(key("DATABASE_CONNECT_TIMEOUT"), cfg.Database.ConnectTimeout)
	cfg.Database.AutoMigrate = envBool(key("DATABASE_AUTO_MIGRATE"), cfg.Database.AutoMigrate)

	cfg.Audit.Enabled = envBool(key("AUDIT_ENABLED"), cfg.Audit.Enabled)
	cfg.Audit.BufferSize = envInt(key("AUDIT_BUFFER"), cfg.Audit.BufferSize)
	cfg.Metrics.Enabled = envBool(key("METRICS_ENABLED"), cfg.Metrics.Enabled)
	cfg.Metrics.EnableLatencyHistograms = envBool(key("METRICS_LATENCY"), cfg.Metrics.EnableLatencyHistograms)

	cfg.Log.Level = envString(key("LOG_LEVEL"), cfg.Log.Level)

	return cfg
}

func envString(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func envBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

// envInt reads a positive int.
func envInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func envDuration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

// envList reads a comma-separated list, dropping empty items.
func envList(key string, def []string) []string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}

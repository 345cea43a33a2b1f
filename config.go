package goSession

import (
	"errors"
	"strings"
	"time"

	"github.com/MrEthical07/goSession/internal/logging"
	"github.com/MrEthical07/goSession/password"
	"github.com/MrEthical07/goSession/session"
)

// Config is the full engine configuration.
//
// Build works on a private copy; changing a Config after Build has no effect
// on the engine.
type Config struct {
	Redis    RedisConfig
	Session  SessionConfig
	Password PasswordConfig
	Database DatabaseConfig
	Audit    AuditConfig
	Metrics  MetricsConfig
	Log      LogConfig
}

/*
====================================
REDIS CONFIG
====================================
*/

// RedisConfig tells Dial where the session store lives. It is only consulted
// when the builder is not handed a ready client.
type RedisConfig struct {
	Addrs        []string
	Username     string
	Password     string
	DB           int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	PoolSize     int
}

// DialOptions converts the section for session.Dial.
func (c RedisConfig) DialOptions() session.DialOptions {
	return session.DialOptions{
		Addrs:        append([]string(nil), c.Addrs...),
		Username:     c.Username,
		Password:     c.Password,
		DB:           c.DB,
		DialTimeout:  c.DialTimeout,
		ReadTimeout:  c.ReadTimeout,
		WriteTimeout: c.WriteTimeout,
		PoolSize:     c.PoolSize,
	}
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig holds the key namespace and the sliding-expiry durations.
type SessionConfig struct {
	RedisPrefix  string
	LongTerm     time.Duration
	ShortTerm    time.Duration
	SafetyBuffer time.Duration
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig holds Argon2id costs and the pepper. The pepper never
// leaves process memory.
type PasswordConfig struct {
	Memory           uint32 // in KB
	Time             uint32
	Parallelism      uint8
	SaltLength       uint32
	KeyLength        uint32
	MaxPasswordBytes int
	Pepper           []byte
	UpgradeOnLogin   bool
}

// HasherConfig returns the password package settings for p.
func (p PasswordConfig) HasherConfig() password.Config {
	return password.Config{
		Memory:           p.Memory,
		Time:             p.Time,
		Parallelism:      p.Parallelism,
		SaltLength:       p.SaltLength,
		KeyLength:        p.KeyLength,
		MaxPasswordBytes: p.MaxPasswordBytes,
		Pepper:           p.Pepper,
	}
}

/*
====================================
DATABASE CONFIG
====================================
*/

// DatabaseConfig points at the Postgres instance holding credentials.
type DatabaseConfig struct {
	DSN             string
	MaxConnections  int
	MinConnections  int
	ConnMaxLifetime time.Duration
	ConnectTimeout  time.Duration
	AutoMigrate     bool
}

/*
====================================
OBSERVABILITY CONFIG
====================================
*/

// AuditConfig controls the async audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig toggles in-process counters and the latency histogram.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// LogConfig selects the level of the default JSON logger.
type LogConfig struct {
	Level string
}

// DefaultConfig returns the production defaults. Pepper is left empty and
// must be supplied.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		Redis: RedisConfig{
			Addrs:       []string{"127.0.0.1:6379"},
			DialTimeout: session.DefaultDialTimeout,
			PoolSize:    10,
		},
		Session: SessionConfig{
			RedisPrefix:  session.DefaultPrefix,
			LongTerm:     session.DefaultLongTerm,
			ShortTerm:    session.DefaultShortTerm,
			SafetyBuffer: session.DefaultSafetyBuffer,
		},
		Password: PasswordConfig{
			Memory:           64 * 1024,
			Time:             3,
			Parallelism:      2,
			SaltLength:       16,
			KeyLength:        32,
			MaxPasswordBytes: 1024,
			UpgradeOnLogin:   true,
		},
		Database: DatabaseConfig{
			MaxConnections:  25,
			MinConnections:  5,
			ConnMaxLifetime: 30 * time.Minute,
			ConnectTimeout:  5 * time.Second,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Redis.Addrs = append([]string(nil), cfg.Redis.Addrs...)
	out.Password.Pepper = cloneBytes(cfg.Password.Pepper)
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate reports the first configuration problem it finds.
func (c *Config) Validate() error {
	// Session
	if c.Session.LongTerm <= 0 {
		return errors.New("Session LongTerm must be > 0")
	}
	if c.Session.ShortTerm <= 0 {
		return errors.New("Session ShortTerm must be > 0")
	}
	if c.Session.ShortTerm > c.Session.LongTerm {
		return errors.New("Session ShortTerm must be <= LongTerm")
	}
	if c.Session.SafetyBuffer < 0 {
		return errors.New("Session SafetyBuffer must be >= 0")
	}
	if c.Session.SafetyBuffer >= c.Session.ShortTerm/2 {
		return errors.New("Session SafetyBuffer must be below half of ShortTerm")
	}
	if strings.ContainsAny(c.Session.RedisPrefix, " \t\r\n") {
		return errors.New("Session RedisPrefix must not contain whitespace")
	}

	// Password
	if len(c.Password.Pepper) == 0 {
		return errors.New("Password Pepper must be set")
	}
	if c.Password.Memory < 8*1024 {
		return errors.New("Password Memory must be >= 8192 KB")
	}
	if c.Password.Time < 1 {
		return errors.New("Password Time must be >= 1")
	}
	if c.Password.Parallelism < 1 {
		return errors.New("Password Parallelism must be >= 1")
	}
	if c.Password.SaltLength < 16 {
		return errors.New("Password SaltLength must be >= 16")
	}
	if c.Password.KeyLength < 16 {
		return errors.New("Password KeyLength must be >= 16")
	}
	if c.Password.MaxPasswordBytes < 0 {
		return errors.New("Password MaxPasswordBytes must be >= 0")
	}

	// Database
	if c.Database.MaxConnections < 0 || c.Database.MinConnections < 0 {
		return errors.New("Database connection limits must be >= 0")
	}
	if c.Database.MaxConnections > 0 && c.Database.MinConnections > c.Database.MaxConnections {
		return errors.New("Database MinConnections must be <= MaxConnections")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when Audit is enabled")
	}

	// Metrics
	if c.Metrics.EnableLatencyHistograms && !c.Metrics.Enabled {
		return errors.New("Metrics EnableLatencyHistograms requires Metrics Enabled")
	}

	// Log
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return err
	}

	return nil
}

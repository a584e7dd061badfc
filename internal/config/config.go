package config

import (
	"fmt"
	"time"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Routing   RoutingConfig   `yaml:"routing"`
	State     StateConfig     `yaml:"state"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

type ServerConfig struct {
	Host             string        `yaml:"host"`
	Port             int           `yaml:"port"`
	ReadTimeout      time.Duration `yaml:"read_timeout"`
	WriteTimeout     time.Duration `yaml:"write_timeout"`
	IdleTimeout      time.Duration `yaml:"idle_timeout"`
	GracefulShutdown time.Duration `yaml:"graceful_shutdown"`
}

type DatabaseConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Name            string        `yaml:"name"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable", d.User, d.Password, d.Host, d.Port, d.Name)
}

type RedisConfig struct {
	Addresses []string `yaml:"addresses"`
	Password  string   `yaml:"password"`
	DB        int      `yaml:"db"`
	PoolSize  int      `yaml:"pool_size"`
}

// Addr returns the first configured address, or "" when Redis is disabled.
func (r RedisConfig) Addr() string {
	if len(r.Addresses) == 0 {
		return ""
	}
	return r.Addresses[0]
}

type TelemetryConfig struct {
	LogLevel    string `yaml:"log_level"`
	LogFormat   string `yaml:"log_format"`
	MetricsPort int    `yaml:"metrics_port"`
}

// DefaultAttemptTimeout applies when routing.timeout is unset or not positive.
const DefaultAttemptTimeout = 120 * time.Second

// RoutingConfig controls the fallback router.
type RoutingConfig struct {
	// Timeout bounds a single attempt, not the whole fallback chain.
	Timeout         time.Duration `yaml:"timeout"`
	FallbackEnabled bool          `yaml:"fallback_enabled"`
	Debug           bool          `yaml:"debug"`
}

// AttemptTimeout returns Timeout, or DefaultAttemptTimeout when Timeout is
// zero or negative.
func (r RoutingConfig) AttemptTimeout() time.Duration {
	if r.Timeout <= 0 {
		return DefaultAttemptTimeout
	}
	return r.Timeout
}

type StateBackend string

const (
	StateBackendMemory   StateBackend = "memory"
	StateBackendFile     StateBackend = "file"
	StateBackendRedis    StateBackend = "redis"
	StateBackendPostgres StateBackend = "postgres"
)

type StateConfig struct {
	Backend  StateBackend `yaml:"backend"`
	FilePath string       `yaml:"file_path"`
}

type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled"`
	RequestsPerMinute int  `yaml:"requests_per_minute"`
	Burst             int  `yaml:"burst"`
}

func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:             "127.0.0.1",
			Port:             8787,
			ReadTimeout:      30 * time.Second,
			WriteTimeout:     15 * time.Minute,
			IdleTimeout:      120 * time.Second,
			GracefulShutdown: 30 * time.Second,
		},
		Database: DatabaseConfig{
			Host:            "localhost",
			Port:            5432,
			Name:            "aireader",
			User:            "aireader",
			MaxOpenConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Redis: RedisConfig{
			DB:       0,
			PoolSize: 10,
		},
		Telemetry: TelemetryConfig{
			LogLevel:    "info",
			LogFormat:   "json",
			MetricsPort: 9090,
		},
		Routing: RoutingConfig{
			Timeout:         DefaultAttemptTimeout,
			FallbackEnabled: true,
		},
		State: StateConfig{
			Backend:  StateBackendFile,
			FilePath: "data/routing_state.json",
		},
		RateLimit: RateLimitConfig{
			Enabled:           true,
			RequestsPerMinute: 30,
			Burst:             5,
		},
	}
}

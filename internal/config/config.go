package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/devrev/pairdb/placement/internal/algorithm"
)

// Membership sources
const (
	MembershipStatic   = "static"
	MembershipPostgres = "postgres"
	MembershipRedis    = "redis"
)

// Config represents the placement service configuration
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	HashRing    HashRingConfig    `mapstructure:"hash_ring"`
	Membership  MembershipConfig  `mapstructure:"membership"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Redis       RedisConfig       `mapstructure:"redis"`
	RateLimiter RateLimiterConfig `mapstructure:"rate_limiter"`
	Metrics     MetricsConfig     `mapstructure:"metrics"`
	Logging     LoggingConfig     `mapstructure:"logging"`
}

// ServerConfig represents the admin HTTP server configuration
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	GRPCPort        int           `mapstructure:"grpc_port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// HashRingConfig represents consistent hashing configuration
type HashRingConfig struct {
	Replicas     int      `mapstructure:"replicas"`
	HashFunction string   `mapstructure:"hash_function"`
	Nodes        []string `mapstructure:"nodes"`
}

// MembershipConfig selects where the set of active nodes comes from
type MembershipConfig struct {
	Source          string        `mapstructure:"source"`
	RefreshInterval time.Duration `mapstructure:"refresh_interval"`
}

// DatabaseConfig represents the PostgreSQL membership store configuration
type DatabaseConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MinConnections int    `mapstructure:"min_connections"`
}

// RedisConfig represents the Redis membership store configuration
type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Key      string `mapstructure:"key"`
}

// RateLimiterConfig limits requests to the admin API
type RateLimiterConfig struct {
	Enabled           bool    `mapstructure:"enabled"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	BurstSize         int     `mapstructure:"burst_size"`
}

// MetricsConfig represents Prometheus metrics configuration
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return errors.New("server.port must be between 1 and 65535")
	}
	if c.Server.GRPCPort < 0 || c.Server.GRPCPort > 65535 {
		return errors.New("server.grpc_port must be between 0 and 65535")
	}
	if c.Server.GRPCPort == c.Server.Port {
		return errors.New("server.grpc_port must differ from server.port")
	}
	if c.HashRing.Replicas < 1 {
		return errors.New("hash_ring.replicas must be at least 1")
	}
	if _, err := algorithm.HashFuncByName(c.HashRing.HashFunction); err != nil {
		return fmt.Errorf("hash_ring.hash_function: %w", err)
	}

	if c.Membership.Source == "" {
		c.Membership.Source = MembershipStatic
	}
	switch c.Membership.Source {
	case MembershipStatic:
	case MembershipPostgres:
		if c.Database.Host == "" {
			return errors.New("database.host is required")
		}
		if c.Database.Database == "" {
			return errors.New("database.database is required")
		}
		if c.Database.User == "" {
			return errors.New("database.user is required")
		}
	case MembershipRedis:
		if c.Redis.Host == "" {
			return errors.New("redis.host is required")
		}
		if c.Redis.Key == "" {
			return errors.New("redis.key is required")
		}
	default:
		return errors.New("membership.source must be one of: static, postgres, redis")
	}
	if c.Membership.RefreshInterval <= 0 {
		return errors.New("membership.refresh_interval must be positive")
	}

	if c.RateLimiter.Enabled {
		if c.RateLimiter.RequestsPerSecond <= 0 {
			return errors.New("rate_limiter.requests_per_second must be positive")
		}
		if c.RateLimiter.BurstSize <= 0 {
			return errors.New("rate_limiter.burst_size must be positive")
		}
	}

	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
	if c.Logging.Format != "json" && c.Logging.Format != "console" {
		return errors.New("logging.format must be one of: json, console")
	}
	return nil
}

// DefaultConfig returns default configuration values
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			GRPCPort:        9090,
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    10 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		HashRing: HashRingConfig{
			Replicas:     algorithm.DefaultReplicas,
			HashFunction: algorithm.HashMD5,
		},
		Membership: MembershipConfig{
			Source:          MembershipStatic,
			RefreshInterval: 30 * time.Second,
		},
		Database: DatabaseConfig{
			Host:           "localhost",
			Port:           5432,
			Database:       "pairdb_metadata",
			User:           "placement",
			MaxConnections: 10,
			MinConnections: 2,
		},
		Redis: RedisConfig{
			Host: "localhost",
			Port: 6379,
			DB:   0,
			Key:  "placement:storage_nodes",
		},
		RateLimiter: RateLimiterConfig{
			Enabled:           true,
			RequestsPerSecond: 100,
			BurstSize:         200,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

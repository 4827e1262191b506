package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

// Load loads configuration from file and environment variables.
// A missing file is not an error; defaults and environment apply.
func Load(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
		}
	} else if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Environment variables take precedence over the file
	applyEnvironmentOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// applyEnvironmentOverrides applies environment variable overrides to config
func applyEnvironmentOverrides(cfg *Config) {
	// Server configuration
	if host := os.Getenv("SERVER_HOST"); host != "" {
		cfg.Server.Host = host
	}
	if port := os.Getenv("SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Server.Port = p
		}
	}

	if grpcPort := os.Getenv("SERVER_GRPC_PORT"); grpcPort != "" {
		if p, err := strconv.Atoi(grpcPort); err == nil {
			cfg.Server.GRPCPort = p
		}
	}

	// Hash ring configuration
	if replicas := os.Getenv("HASH_RING_REPLICAS"); replicas != "" {
		if r, err := strconv.Atoi(replicas); err == nil {
			cfg.HashRing.Replicas = r
		}
	}
	if hashFunction := os.Getenv("HASH_RING_HASH_FUNCTION"); hashFunction != "" {
		cfg.HashRing.HashFunction = hashFunction
	}
	if nodes := os.Getenv("HASH_RING_NODES"); nodes != "" {
		cfg.HashRing.Nodes = ParseNodes(nodes)
	}

	// Membership configuration
	if source := os.Getenv("MEMBERSHIP_SOURCE"); source != "" {
		cfg.Membership.Source = source
	}

	// Database configuration
	if dbHost := os.Getenv("DATABASE_HOST"); dbHost != "" {
		cfg.Database.Host = dbHost
	}
	if dbPort := os.Getenv("DATABASE_PORT"); dbPort != "" {
		if p, err := strconv.Atoi(dbPort); err == nil {
			cfg.Database.Port = p
		}
	}
	if dbName := os.Getenv("DATABASE_NAME"); dbName != "" {
		cfg.Database.Database = dbName
	}
	if dbUser := os.Getenv("DATABASE_USER"); dbUser != "" {
		cfg.Database.User = dbUser
	}
	if dbPassword := os.Getenv("DATABASE_PASSWORD"); dbPassword != "" {
		cfg.Database.Password = dbPassword
	}

	// Redis configuration
	if redisHost := os.Getenv("REDIS_HOST"); redisHost != "" {
		cfg.Redis.Host = redisHost
	}
	if redisPort := os.Getenv("REDIS_PORT"); redisPort != "" {
		if p, err := strconv.Atoi(redisPort); err == nil {
			cfg.Redis.Port = p
		}
	}
	if redisPassword := os.Getenv("REDIS_PASSWORD"); redisPassword != "" {
		cfg.Redis.Password = redisPassword
	}

	// Rate limiter configuration
	if enabled := os.Getenv("RATE_LIMITER_ENABLED"); enabled != "" {
		if e, err := strconv.ParseBool(enabled); err == nil {
			cfg.RateLimiter.Enabled = e
		}
	}

	// Logging configuration
	if logLevel := os.Getenv("LOG_LEVEL"); logLevel != "" {
		cfg.Logging.Level = logLevel
	}
}

// ParseNodes splits a comma-separated node list, dropping blanks
func ParseNodes(nodesStr string) []string {
	parts := strings.Split(nodesStr, ",")
	nodes := make([]string, 0, len(parts))
	for _, part := range parts {
		if node := strings.TrimSpace(part); node != "" {
			nodes = append(nodes, node)
		}
	}
	return nodes
}

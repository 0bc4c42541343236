package config

import (
	"errors"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPHost string
	HTTPPort string
	GRPCHost string
	GRPCPort string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	MySQLDSN     string
	MySQLMaxOpen int
	MySQLMaxIdle int
	MySQLMaxLife time.Duration

	LogLevel  string
	LogFormat string

	BidLockLease      time.Duration
	BidLockMaxRetries int
	BidLockRetryDelay time.Duration

	SearchIndexName   string
	SearchIndexEnsure bool
}

// Load reads configuration from the environment, after an optional .env file.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		HTTPHost: getEnv("HTTP_HOST", "0.0.0.0"),
		HTTPPort: getEnv("HTTP_PORT", "8080"),
		GRPCHost: getEnv("GRPC_HOST", "0.0.0.0"),
		GRPCPort: getEnv("GRPC_PORT", "9090"),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		MySQLDSN:     getEnv("MYSQL_DSN", "root:root@tcp(localhost:3306)/auctions?parseTime=true"),
		MySQLMaxOpen: getEnvInt("MYSQL_MAX_OPEN", 10),
		MySQLMaxIdle: getEnvInt("MYSQL_MAX_IDLE", 5),
		MySQLMaxLife: getEnvDuration("MYSQL_MAX_LIFETIME", 30*time.Minute),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),

		BidLockLease:      getEnvDuration("BID_LOCK_LEASE", time.Second),
		BidLockMaxRetries: getEnvInt("BID_LOCK_MAX_RETRIES", 5),
		BidLockRetryDelay: getEnvDuration("BID_LOCK_RETRY_DELAY", 50*time.Millisecond),

		SearchIndexName:   getEnv("SEARCH_INDEX_NAME", "idx:product"),
		SearchIndexEnsure: getEnvBool("SEARCH_INDEX_ENSURE", true),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.BidLockLease <= 0 {
		return errors.New("BID_LOCK_LEASE must be positive")
	}
	if c.BidLockMaxRetries < 0 {
		return errors.New("BID_LOCK_MAX_RETRIES must not be negative")
	}
	if c.BidLockRetryDelay < 0 {
		return errors.New("BID_LOCK_RETRY_DELAY must not be negative")
	}
	if c.SearchIndexName == "" {
		return errors.New("SEARCH_INDEX_NAME must not be empty")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value, err := time.ParseDuration(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvBool(key string, defaultValue bool) bool {
	value, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return value
}

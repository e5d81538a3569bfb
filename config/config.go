// Package config loads service settings from the environment, with an
// optional .env file for local development.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// DatabaseType selects the record store backend.
type DatabaseType string

const (
	DatabaseMemory   DatabaseType = "memory"
	DatabasePostgres DatabaseType = "postgres"
	DatabaseMongo    DatabaseType = "mongo"
)

// HistoryType selects the conversation history backend.
type HistoryType string

const (
	HistoryMemory HistoryType = "memory"
	HistoryRedis  HistoryType = "redis"
)

// Config holds every service setting.
type Config struct {
	ServiceHost string
	ServicePort int

	AnthropicAPIKey string
	Model           string
	MaxTokens       int64

	DatabaseType DatabaseType
	CacheEnabled bool

	PostgresHost     string
	PostgresPort     int
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	MongoURI    string
	MongoDBName string

	HistoryType   HistoryType
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	HistoryTTL    time.Duration
}

// Load reads settings from the environment. A missing .env file is fine;
// a malformed one is not.
func Load(log *logrus.Logger) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("load .env: %w", err)
		}
		log.Debug("no .env file found, using environment only")
	}

	var env envReader
	cfg := &Config{
		ServiceHost: getEnv("SERVICE_HOST", "0.0.0.0"),
		ServicePort: env.intVal("SERVICE_PORT", 8080),

		AnthropicAPIKey: os.Getenv("ANTHROPIC_API_KEY"),
		Model:           getEnv("MODEL", "claude-sonnet-4-20250514"),
		MaxTokens:       int64(env.intVal("MAX_TOKENS", 4096)),

		DatabaseType: DatabaseType(getEnv("DATABASE_TYPE", string(DatabaseMemory))),
		CacheEnabled: env.boolVal("CACHE_ENABLED", false),

		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     env.intVal("POSTGRES_PORT", 5432),
		PostgresUser:     getEnv("POSTGRES_USER", "postgres"),
		PostgresPassword: os.Getenv("POSTGRES_PASSWORD"),
		PostgresDB:       getEnv("POSTGRES_DB", "taskpilot"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),

		MongoURI:    getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDBName: getEnv("MONGO_DB_NAME", "taskpilot"),

		HistoryType:   HistoryType(getEnv("HISTORY_TYPE", string(HistoryMemory))),
		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       env.intVal("REDIS_DB", 0),
		HistoryTTL:    env.durationVal("HISTORY_TTL", 0),
	}
	if env.err != nil {
		return nil, env.err
	}

	if cfg.AnthropicAPIKey == "" {
		return nil, fmt.Errorf("ANTHROPIC_API_KEY is required")
	}
	switch cfg.DatabaseType {
	case DatabaseMemory, DatabasePostgres, DatabaseMongo:
	default:
		return nil, fmt.Errorf("unsupported DATABASE_TYPE %q", cfg.DatabaseType)
	}
	switch cfg.HistoryType {
	case HistoryMemory, HistoryRedis:
	default:
		return nil, fmt.Errorf("unsupported HISTORY_TYPE %q", cfg.HistoryType)
	}

	return cfg, nil
}

// ListenAddr is the host:port the HTTP server binds to.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.ServiceHost, c.ServicePort)
}

// PostgresDSN builds the connection string for the postgres store.
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		url.QueryEscape(c.PostgresUser), url.QueryEscape(c.PostgresPassword),
		c.PostgresHost, c.PostgresPort, c.PostgresDB, c.PostgresSSLMode)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// envReader parses typed settings and records the first malformed value.
// Unset variables take the fallback; a set but unparseable variable is a
// configuration error, not a silent default.
type envReader struct {
	err error
}

func (r *envReader) fail(key, value, want string) {
	if r.err == nil {
		r.err = fmt.Errorf("invalid %s %q: want %s", key, value, want)
	}
}

func (r *envReader) intVal(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		r.fail(key, v, "an integer")
		return fallback
	}
	return n
}

func (r *envReader) boolVal(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		r.fail(key, v, "a boolean")
		return fallback
	}
	return b
}

func (r *envReader) durationVal(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		r.fail(key, v, `a duration such as "24h"`)
		return fallback
	}
	return d
}

// Package config loads client and server configuration from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Expense store backends.
const (
	BackendLocal  = "local"
	BackendRemote = "remote"
)

// Key-value storage backends.
const (
	KVSQLite = "sqlite"
	KVRedis  = "redis"
	KVMemory = "memory"
)

// Redis holds the connection settings for the Redis key-value backend.
type Redis struct {
	Addr     string `env:"EXPENSE_REDIS_ADDR" env-default:"localhost:6379"`
	Password string `env:"EXPENSE_REDIS_PASSWORD"`
	DB       int    `env:"EXPENSE_REDIS_DB" env-default:"0"`
	Prefix   string `env:"EXPENSE_REDIS_PREFIX" env-default:"expense:"`
}

// Client is the configuration of the terminal client.
type Client struct {
	DBPath      string        `env:"EXPENSE_DB_PATH" env-default:"client.db"`
	Backend     string        `env:"EXPENSE_BACKEND" env-default:"local"`
	APIURL      string        `env:"EXPENSE_API_URL" env-default:"http://localhost:8080"`
	KV          string        `env:"EXPENSE_KV" env-default:"sqlite"`
	AuthLatency time.Duration `env:"EXPENSE_AUTH_LATENCY" env-default:"500ms"`
	HTTPTimeout time.Duration `env:"EXPENSE_HTTP_TIMEOUT" env-default:"10s"`
	LogLevel    string        `env:"LOG_LEVEL" env-default:"warn"`
	Redis       Redis
}

// Server is the configuration of the transactions API server.
type Server struct {
	Port            string        `env:"PORT" env-default:"8080"`
	DBPath          string        `env:"DB_PATH" env-default:"expenses.db"`
	LogLevel        string        `env:"LOG_LEVEL" env-default:"info"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" env-default:"5s"`
}

// LoadClient reads the client configuration from the environment.
func LoadClient() (*Client, error) {
	var cfg Client
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("read client config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks enumerated settings.
func (c *Client) Validate() error {
	switch c.Backend {
	case BackendLocal, BackendRemote:
	default:
		return fmt.Errorf("unknown expense backend %q", c.Backend)
	}
	switch c.KV {
	case KVSQLite, KVRedis, KVMemory:
	default:
		return fmt.Errorf("unknown kv backend %q", c.KV)
	}
	if c.AuthLatency < 0 {
		return fmt.Errorf("auth latency must not be negative")
	}
	return nil
}

// LoadServer reads the server configuration from the environment.
func LoadServer() (*Server, error) {
	var cfg Server
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("read server config: %w", err)
	}
	return &cfg, nil
}

// Addr returns the listen address of the server.
func (s *Server) Addr() string {
	return ":" + s.Port
}

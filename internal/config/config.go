package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Transport kinds accepted in MESSENGER_TRANSPORT.
const (
	TransportInproc    = "inproc"
	TransportWebsocket = "websocket"
	TransportRedis     = "redis"
)

// Tracing defaults used when PUBSUB_TRACING_* is unset.
const (
	DefaultTracingServiceName = "messenger"
	DefaultTracingZipkinURL   = "http://localhost:9411/api/v2/spans"
)

// Provider exposes configuration to the components that need it.
type Provider interface {
	GetTransport() string
	GetWebsocketURL() string
	GetWebsocketToken() string
	GetRedisAddr() string
	GetRedisPrefix() string
	GetUser() string
	GetLogFormat() string
	GetLogLevel() string
	GetBusBuffer() int64
	GetTracingEnabled() bool
	GetTracingServiceName() string
	GetTracingZipkinURL() string
}

// Config holds all configuration for the application.
type Config struct {
	Transport      string `validate:"oneof=inproc websocket redis"`
	WebsocketURL   string `validate:"required_if=Transport websocket"`
	WebsocketToken string
	RedisAddr      string `validate:"required_if=Transport redis"`
	RedisPrefix    string `validate:"required"`
	RedisDB        int    `validate:"gte=0"`
	User           string
	LogFormat      string `validate:"oneof=text json"`
	LogLevel       string `validate:"oneof=debug info warn error"`
	// BusBuffer is the per-subscriber buffer of the in-process bus.
	BusBuffer int64 `validate:"gte=0"`

	TracingEnabled     bool
	TracingServiceName string `validate:"required"`
	TracingZipkinURL   string `validate:"required,url"`
}

var _ Provider = (*Config)(nil)

// New loads configuration from a .env file, if present, and the environment.
func New() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("No .env file found, relying on environment variables")
	}
	return FromEnv()
}

// FromEnv reads configuration from the environment only.
func FromEnv() (*Config, error) {
	cfg := &Config{
		Transport:      getenv("MESSENGER_TRANSPORT", TransportInproc),
		WebsocketURL:   os.Getenv("MESSENGER_WS_URL"),
		WebsocketToken: os.Getenv("MESSENGER_WS_TOKEN"),
		RedisAddr:      os.Getenv("MESSENGER_REDIS_ADDR"),
		RedisPrefix:    getenv("MESSENGER_REDIS_PREFIX", "messenger"),
		User:           os.Getenv("MESSENGER_USER"),
		LogFormat:      getenv("LOG_FORMAT", "text"),
		LogLevel:       getenv("LOG_LEVEL", "info"),

		TracingServiceName: getenv("PUBSUB_TRACING_SERVICE_NAME", DefaultTracingServiceName),
		TracingZipkinURL:   getenv("PUBSUB_TRACING_ZIPKIN_URL", DefaultTracingZipkinURL),
	}
	if raw := os.Getenv("MESSENGER_REDIS_DB"); raw != "" {
		db, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("MESSENGER_REDIS_DB: %w", err)
		}
		cfg.RedisDB = db
	}
	if raw := os.Getenv("MESSENGER_BUS_BUFFER"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("MESSENGER_BUS_BUFFER: %w", err)
		}
		cfg.BusBuffer = n
	}
	if raw := os.Getenv("PUBSUB_TRACING_ENABLED"); raw != "" {
		enabled, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("PUBSUB_TRACING_ENABLED: %w", err)
		}
		cfg.TracingEnabled = enabled
	}

	if err := validator.New(validator.WithRequiredStructEnabled()).Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (c *Config) GetTransport() string      { return c.Transport }
func (c *Config) GetWebsocketURL() string   { return c.WebsocketURL }
func (c *Config) GetWebsocketToken() string { return c.WebsocketToken }
func (c *Config) GetRedisAddr() string      { return c.RedisAddr }
func (c *Config) GetRedisPrefix() string    { return c.RedisPrefix }
func (c *Config) GetUser() string           { return c.User }
func (c *Config) GetLogFormat() string      { return c.LogFormat }
func (c *Config) GetLogLevel() string       { return c.LogLevel }
func (c *Config) GetBusBuffer() int64       { return c.BusBuffer }

func (c *Config) GetTracingEnabled() bool       { return c.TracingEnabled }
func (c *Config) GetTracingServiceName() string { return c.TracingServiceName }
func (c *Config) GetTracingZipkinURL() string   { return c.TracingZipkinURL }

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

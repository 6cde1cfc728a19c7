// Package config loads service configuration from environment variables.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config holds all service configuration.
type Config struct {
	AppEnv string `env:"APP_ENV" envDefault:"development"`
	Port   int    `env:"PORT" envDefault:"8083"`

	// Empty DSN runs against the in-memory store with demo users.
	DatabaseDSN string `env:"DB_DSN"`

	// Optional collaborators. Each one is skipped when its URL is empty.
	RedisURL     string `env:"REDIS_URL"`
	NATSURL      string `env:"NATS_URL"`
	AMQPURL      string `env:"AMQP_URL"`
	AMQPExchange string `env:"AMQP_EXCHANGE" envDefault:"vexa.events"`

	OTLPEndpoint string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	ServiceName  string `env:"SERVICE_NAME" envDefault:"vexa-service"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`
	LogFile   string `env:"LOG_FILE"`

	WSSendBuffer      int           `env:"WS_SEND_BUFFER" envDefault:"256"`
	WSWriteWait       time.Duration `env:"WS_WRITE_WAIT" envDefault:"10s"`
	WSPongWait        time.Duration `env:"WS_PONG_WAIT" envDefault:"60s"`
	WSMaxMessageBytes int64         `env:"WS_MAX_MESSAGE_BYTES" envDefault:"65536"`

	// Drop sends whose fromUserId differs from the joined identity, and sends
	// from sessions that never joined.
	EnforceSenderIdentity bool `env:"ENFORCE_SENDER_IDENTITY" envDefault:"false"`

	PresenceTTL     time.Duration `env:"PRESENCE_TTL" envDefault:"24h"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"15s"`
}

// IsDevelopment reports whether the service runs in development mode.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// Addr is the HTTP listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Load parses environment variables into a Config.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if cfg.WSSendBuffer <= 0 {
		return nil, fmt.Errorf("WS_SEND_BUFFER must be positive, got %d", cfg.WSSendBuffer)
	}
	// Sessions refresh the presence key once per ping period.
	if cfg.PresenceTTL > 0 && cfg.PresenceTTL <= cfg.WSPongWait {
		return nil, fmt.Errorf("PRESENCE_TTL must exceed WS_PONG_WAIT, got %s <= %s", cfg.PresenceTTL, cfg.WSPongWait)
	}
	return cfg, nil
}

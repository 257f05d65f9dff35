package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr string `env:"TABLE_ORDER_HTTP_ADDR" envDefault:":8080"`
	GRPCAddr string `env:"TABLE_ORDER_GRPC_ADDR" envDefault:":50051"`

	// Store is memory, sqlite, mysql or postgres.
	Store        string        `env:"TABLE_ORDER_STORE" envDefault:"memory"`
	DSN          string        `env:"TABLE_ORDER_DSN"`
	PollInterval time.Duration `env:"TABLE_ORDER_POLL_INTERVAL" envDefault:"2s"`

	// Optional backends; empty disables them.
	RedisAddr    string `env:"TABLE_ORDER_REDIS_ADDR"`
	RabbitURL    string `env:"TABLE_ORDER_RABBITMQ_URL"`
	Exchange     string `env:"TABLE_ORDER_EXCHANGE" envDefault:"orders_fanout"`
	EventWorkers int    `env:"TABLE_ORDER_EVENT_WORKERS" envDefault:"4"`
	EventQueue   int    `env:"TABLE_ORDER_EVENT_QUEUE" envDefault:"1000"`

	RecencyWindow     time.Duration `env:"TABLE_ORDER_RECENCY_WINDOW" envDefault:"5m"`
	NotificationLimit int           `env:"TABLE_ORDER_NOTIFICATION_LIMIT" envDefault:"10"`
	RecentOrders      int           `env:"TABLE_ORDER_RECENT_ORDERS" envDefault:"5"`

	// SoundCommand is an external player; empty rings the terminal bell.
	SoundCommand []string `env:"TABLE_ORDER_SOUND_COMMAND" envSeparator:" "`
	Muted        bool     `env:"TABLE_ORDER_MUTED" envDefault:"false"`

	ShutdownTimeout time.Duration `env:"TABLE_ORDER_SHUTDOWN_TIMEOUT" envDefault:"5s"`
}

// Load reads files (default .env) into the environment, then parses it.
// Missing files are ignored; variables already set win over file values.
func Load(files ...string) (Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch c.Store {
	case "memory":
	case "sqlite", "mysql", "postgres":
		if c.DSN == "" {
			return fmt.Errorf("TABLE_ORDER_DSN is required for store %q", c.Store)
		}
	default:
		return fmt.Errorf("unknown store %q", c.Store)
	}
	if c.EventWorkers < 1 {
		return fmt.Errorf("event workers must be positive, got %d", c.EventWorkers)
	}
	return nil
}

package hookbus

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"
)

// EnvConfig is the registry configuration read from HOOKBUS_* environment
// variables.
type EnvConfig struct {
	Workers          int           `env:"HOOKBUS_WORKERS" envDefault:"10"`
	QueueSize        int           `env:"HOOKBUS_QUEUE_SIZE" envDefault:"0"`
	Parallelism      int           `env:"HOOKBUS_STATIC_PARALLELISM" envDefault:"0"`
	Timeout          time.Duration `env:"HOOKBUS_LISTENER_TIMEOUT" envDefault:"0s"`
	BackpressureWait time.Duration `env:"HOOKBUS_BACKPRESSURE_WAIT" envDefault:"0s"`
	LogLevel         slog.Level    `env:"HOOKBUS_LOG_LEVEL" envDefault:"INFO"`
}

// ConfigFromEnv loads an EnvConfig from the environment.
func ConfigFromEnv() (EnvConfig, error) {
	var cfg EnvConfig
	if err := env.Parse(&cfg); err != nil {
		return EnvConfig{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// Options converts the configuration into registry options. The logger is
// left to the caller; LogLevel only informs how it is built.
func (c EnvConfig) Options() []Option {
	opts := []Option{
		WithWorkers(c.Workers),
		WithQueueSize(c.QueueSize),
		WithParallelism(c.Parallelism),
		WithTimeout(c.Timeout),
	}
	if c.BackpressureWait > 0 {
		opts = append(opts, WithBackpressure(BackpressureConfig{MaxWait: c.BackpressureWait}))
	}
	return opts
}

package hookbus

import (
	"log/slog"
	"time"

	"github.com/zoobzio/clockz"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Option configures a Hooks registry during creation.
type Option func(*config)

// config holds internal configuration for registry creation.
type config struct {
	clock        clockz.Clock // Time abstraction for deterministic testing
	logger       *slog.Logger
	tracer       trace.Tracer
	meter        metric.Meter
	broadcaster  Broadcaster
	deprecations map[Key]Key
	backpressure *BackpressureConfig
	workers      int
	queueSize    int
	parallelism  int
	timeout      time.Duration
}

// WithWorkers sets the number of goroutines that settle pending action
// results. Default is 10 workers.
func WithWorkers(count int) Option {
	return func(c *config) {
		c.workers = count
	}
}

// WithQueueSize sets the settle queue size.
// Default is 0, which auto-calculates as workers * 2.
func WithQueueSize(size int) Option {
	return func(c *config) {
		c.queueSize = size
	}
}

// WithTimeout bounds every listener invocation. A listener that has not
// settled when the timeout expires is treated as failed.
// Default is no timeout (0).
func WithTimeout(timeout time.Duration) Option {
	return func(c *config) {
		c.timeout = timeout
	}
}

// WithParallelism caps how many static listeners run at once.
// Default is 0, meaning every listener starts immediately.
func WithParallelism(n int) Option {
	return func(c *config) {
		c.parallelism = n
	}
}

// WithClock sets the clock implementation for time operations.
// Default is clockz.RealClock for production use.
func WithClock(clock clockz.Clock) Option {
	return func(c *config) {
		c.clock = clock
	}
}

// WithLogger sets the structured logger. Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// WithTracer sets the tracer used for fire spans.
// Default is the global OpenTelemetry tracer provider.
func WithTracer(tracer trace.Tracer) Option {
	return func(c *config) {
		c.tracer = tracer
	}
}

// WithMeter sets the meter used for dispatch instruments.
// Default is the global OpenTelemetry meter provider.
func WithMeter(meter metric.Meter) Option {
	return func(c *config) {
		c.meter = meter
	}
}

// WithBroadcaster attaches the legacy broadcast bridge that receives every
// fired action hook after its listeners were notified.
func WithBroadcaster(b Broadcaster) Option {
	return func(c *config) {
		c.broadcaster = b
	}
}

// WithDeprecations replaces the deprecation table. Keys are retired hook
// names; values are their replacements, or "" when none exists.
func WithDeprecations(table map[Key]Key) Option {
	return func(c *config) {
		c.deprecations = table
	}
}

// BackpressureConfig lets Fire wait briefly for settle queue space instead
// of dropping a pending action result straight away.
type BackpressureConfig struct {
	// Maximum time Fire will block waiting for queue space
	MaxWait time.Duration
}

// WithBackpressure configures backpressure on the settle queue.
func WithBackpressure(cfg BackpressureConfig) Option {
	return func(c *config) {
		c.backpressure = &cfg
	}
}

package graphkit

import (
	"log/slog"

	"github.com/graphkit-io/graphkit/store"
	"go.opentelemetry.io/otel/trace"
)

// Option configures a Template.
type Option func(*templateConfig)

// templateConfig holds configuration collected from options before the
// Template is constructed.
type templateConfig struct {
	txManager store.TransactionManager
	logger    *slog.Logger
	tracer    trace.Tracer
}

// WithTransactionManager configures the transaction manager used to
// wrap units of work in implicit transactions. Without it, units of
// work run directly against the store with no demarcation.
func WithTransactionManager(txm store.TransactionManager) Option {
	return func(c *templateConfig) {
		c.txManager = txm
	}
}

// WithLogger sets a custom structured logger. If not provided, a JSON
// logger writing to stdout is created.
func WithLogger(logger *slog.Logger) Option {
	return func(c *templateConfig) {
		c.logger = logger
	}
}

// WithTracer sets an OpenTelemetry tracer. Each facade operation then
// runs inside its own span. Without it, tracing is a no-op.
func WithTracer(tracer trace.Tracer) Option {
	return func(c *templateConfig) {
		c.tracer = tracer
	}
}

package connection

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ajitpratap0/kvlink-go/pkg/logging"
	"github.com/ajitpratap0/kvlink-go/pkg/observability"
	"github.com/ajitpratap0/kvlink-go/pkg/protocol"
)

// ObservabilityMiddleware records per-command metrics, spans and debug logs.
// Both sinks are optional; a nil Metrics records nothing and a nil Tracer
// skips span creation.
type ObservabilityMiddleware struct {
	metrics *observability.Metrics
	tracer  trace.Tracer
	logger  logging.Logger
}

// NewObservabilityMiddleware creates the observability middleware.
func NewObservabilityMiddleware(config ObservabilityConfig, logger logging.Logger) *ObservabilityMiddleware {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &ObservabilityMiddleware{
		metrics: config.Metrics,
		tracer:  config.Tracer,
		logger:  logger.WithFields(logging.String("component", "observability")),
	}
}

// Wrap implements Middleware.
func (m *ObservabilityMiddleware) Wrap(next protocol.Executor) protocol.Executor {
	return ExecutorFunc(func(ctx context.Context, command string, args ...[]byte) (protocol.Reply, error) {
		var span trace.Span
		if m.tracer != nil {
			ctx, span = m.tracer.Start(ctx, "kvlink.command",
				trace.WithSpanKind(trace.SpanKindClient),
				trace.WithAttributes(
					attribute.String("db.operation", command),
					attribute.Int("db.args", len(args)),
				))
			defer span.End()
		}

		start := time.Now()
		reply, err := next.Do(ctx, command, args...)
		duration := time.Since(start)

		status := "ok"
		if err != nil {
			status = "error"
			if span != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
			}
		}
		m.metrics.RecordCommand(command, status, duration)

		m.logger.Debug("command executed",
			logging.String("operation", command),
			logging.String("status", status),
			logging.Duration("duration", duration))

		return reply, err
	})
}

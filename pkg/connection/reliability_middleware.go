package connection

import (
	"context"
	crand "crypto/rand"
	"encoding/binary"
	"time"

	kverrors "github.com/ajitpratap0/kvlink-go/pkg/errors"
	"github.com/ajitpratap0/kvlink-go/pkg/logging"
	"github.com/ajitpratap0/kvlink-go/pkg/protocol"
)

// ReliabilityMiddleware retries a command on transient failures with
// exponential backoff and jitter. Only connection-level errors are retried;
// server rejections and protocol errors return immediately. Commands that
// exhaust their retries fail with a retry-exhausted error carrying the last
// cause.
type ReliabilityMiddleware struct {
	maxRetries int
	initial    time.Duration
	max        time.Duration
	factor     float64
	logger     logging.Logger
}

// NewReliabilityMiddleware creates the retry middleware from the reliability
// config.
func NewReliabilityMiddleware(config ReliabilityConfig, logger logging.Logger) *ReliabilityMiddleware {
	if logger == nil {
		logger = logging.NewNop()
	}
	m := &ReliabilityMiddleware{
		maxRetries: config.MaxCommandRetries,
		initial:    config.InitialRetryInterval,
		max:        config.MaxRetryInterval,
		factor:     config.RetryGrowthFactor,
		logger:     logger.WithFields(logging.String("component", "reliability")),
	}
	if m.initial <= 0 {
		m.initial = DefaultInitialRetryInterval
	}
	if m.max <= 0 {
		m.max = DefaultMaxRetryInterval
	}
	if m.factor <= 1 {
		m.factor = DefaultRetryGrowthFactor
	}
	return m
}

// Wrap implements Middleware.
func (m *ReliabilityMiddleware) Wrap(next protocol.Executor) protocol.Executor {
	return ExecutorFunc(func(ctx context.Context, command string, args ...[]byte) (protocol.Reply, error) {
		var lastErr error
		interval := m.initial

		for attempt := 0; attempt <= m.maxRetries; attempt++ {
			if attempt > 0 {
				select {
				case <-time.After(jitter(interval)):
				case <-ctx.Done():
					return protocol.Reply{}, ctx.Err()
				}
				interval = time.Duration(float64(interval) * m.factor)
				if interval > m.max {
					interval = m.max
				}
			}

			reply, err := next.Do(ctx, command, args...)
			if err == nil {
				return reply, nil
			}
			if !kverrors.IsRetryable(err) {
				return protocol.Reply{}, err
			}

			lastErr = err
			m.logger.Debug("retrying command after transient failure",
				logging.String("operation", command),
				logging.Int("attempt", attempt+1),
				logging.ErrorField(err))
		}

		return protocol.Reply{}, kverrors.WrapError(lastErr, kverrors.CodeRetryExhausted,
			"command retries exhausted", kverrors.CategoryCommand, kverrors.SeverityError).
			WithContext(&kverrors.Context{
				Command:   command,
				Component: "reliability",
				Attempt:   m.maxRetries + 1,
				Timestamp: time.Now(),
			})
	})
}

// jitter spreads an interval over [75%, 125%] so concurrent retries do not
// synchronize.
func jitter(d time.Duration) time.Duration {
	if d <= 0 {
		return d
	}
	var buf [8]byte
	if _, err := crand.Read(buf[:]); err != nil {
		return d
	}
	n := binary.LittleEndian.Uint64(buf[:])
	fraction := 0.75 + 0.5*(float64(n%1000)/1000.0)
	return time.Duration(float64(d) * fraction)
}

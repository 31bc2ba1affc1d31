package connection

import (
	"fmt"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/ajitpratap0/kvlink-go/pkg/logging"
	"github.com/ajitpratap0/kvlink-go/pkg/observability"
	"github.com/ajitpratap0/kvlink-go/pkg/protocol"
	"github.com/ajitpratap0/kvlink-go/pkg/transport"
)

// Config configures a connection manager.
type Config struct {
	// Endpoint is the remote server address. Required.
	Endpoint transport.Endpoint

	// Password is sent as AUTH during the handshake when non-empty.
	Password string

	// DB is selected with SELECT during the handshake when non-zero.
	DB int

	// Encoder converts values to and from wire bytes. Defaults to UTF-8.
	Encoder protocol.Encoder

	// AutoReconnect enables autonomous recovery: when the bound transport is
	// lost, the manager starts a background reconnect loop on its own.
	// When disabled the manager stays unbound after a loss and commands fail
	// with a not-connected error.
	AutoReconnect bool

	// DialTimeout bounds each individual dial attempt.
	DialTimeout time.Duration

	// KeepAlive configures TCP keep-alive probes. Ignored for Unix sockets.
	KeepAlive time.Duration

	// Features toggles the optional middleware layers.
	Features FeatureConfig

	// Reliability tunes the reconnect backoff and command retry behavior.
	Reliability ReliabilityConfig

	// Observability holds the metrics and tracing sinks.
	Observability ObservabilityConfig

	// Logger receives manager diagnostics. Defaults to a no-op logger.
	Logger logging.Logger
}

// FeatureConfig toggles optional middleware in the command path.
type FeatureConfig struct {
	// EnableReliability wraps command execution with bounded retries on
	// transient failures.
	EnableReliability bool

	// EnableObservability wraps command execution with metrics, tracing and
	// per-command debug logging.
	EnableObservability bool
}

// ReliabilityConfig tunes the backoff and retry policies.
type ReliabilityConfig struct {
	// InitialRetryInterval is the first reconnect wait. Default 500ms.
	InitialRetryInterval time.Duration

	// MaxRetryInterval caps the reconnect wait. Default 60s.
	MaxRetryInterval time.Duration

	// RetryGrowthFactor multiplies the wait after each failed attempt.
	// Default 1.5.
	RetryGrowthFactor float64

	// MaxConnectAttempts bounds the initial Connect. Zero retries
	// indefinitely until the context is cancelled. Background reconnects
	// after a loss always retry indefinitely.
	MaxConnectAttempts int

	// MaxCommandRetries bounds retries of a single command on transient
	// failures when the reliability middleware is enabled. Default 2.
	MaxCommandRetries int
}

// ObservabilityConfig holds the metrics and tracing sinks. Both are optional;
// nil sinks are safe and record nothing.
type ObservabilityConfig struct {
	Metrics *observability.Metrics
	Tracer  trace.Tracer
}

// DefaultConfig returns a config with autonomous reconnection enabled and the
// standard backoff policy.
func DefaultConfig(endpoint transport.Endpoint) Config {
	return Config{
		Endpoint:      endpoint,
		AutoReconnect: true,
		DialTimeout:   5 * time.Second,
		Reliability: ReliabilityConfig{
			InitialRetryInterval: DefaultInitialRetryInterval,
			MaxRetryInterval:     DefaultMaxRetryInterval,
			RetryGrowthFactor:    DefaultRetryGrowthFactor,
			MaxCommandRetries:    2,
		},
	}
}

// Validate checks the config for inconsistencies.
func (c *Config) Validate() error {
	if err := c.Endpoint.Validate(); err != nil {
		return err
	}
	if c.DB < 0 {
		return fmt.Errorf("db index %d must not be negative", c.DB)
	}
	if c.Reliability.MaxConnectAttempts < 0 {
		return fmt.Errorf("max connect attempts %d must not be negative", c.Reliability.MaxConnectAttempts)
	}
	if c.Reliability.MaxCommandRetries < 0 {
		return fmt.Errorf("max command retries %d must not be negative", c.Reliability.MaxCommandRetries)
	}
	return nil
}

// applyDefaults fills zero fields so the manager never consults raw zeros.
func (c *Config) applyDefaults() {
	if c.Encoder == nil {
		c.Encoder = protocol.UTF8Encoder{}
	}
	if c.Logger == nil {
		c.Logger = logging.NewNop()
	}
	if c.Reliability.InitialRetryInterval <= 0 {
		c.Reliability.InitialRetryInterval = DefaultInitialRetryInterval
	}
	if c.Reliability.MaxRetryInterval <= 0 {
		c.Reliability.MaxRetryInterval = DefaultMaxRetryInterval
	}
	if c.Reliability.RetryGrowthFactor <= 1 {
		c.Reliability.RetryGrowthFactor = DefaultRetryGrowthFactor
	}
	if c.Reliability.MaxCommandRetries == 0 {
		c.Reliability.MaxCommandRetries = 2
	}
}

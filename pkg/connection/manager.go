package connection

import (
	"context"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	kverrors "github.com/ajitpratap0/kvlink-go/pkg/errors"
	"github.com/ajitpratap0/kvlink-go/pkg/logging"
	"github.com/ajitpratap0/kvlink-go/pkg/protocol"
	"github.com/ajitpratap0/kvlink-go/pkg/transport"
)

// Manager maintains a single logical link to the remote server. It owns one
// protocol handle, establishes its transport, and when AutoReconnect is
// enabled re-establishes it autonomously after a loss, backing off
// exponentially between attempts.
//
// The embedded Commands facade forwards every typed call through the
// manager's middleware chain to the handle, so issuing a command through the
// manager is equivalent to issuing it on the handle directly, plus the
// configured retry and observability behavior.
type Manager struct {
	protocol.Commands

	id      string
	config  Config
	dialer  transport.Dialer
	handle  *protocol.Handle
	exec    protocol.Executor
	backoff *Backoff
	logger  logging.Logger

	mu           sync.Mutex
	closed       bool
	reconnecting bool
	pendingLoss  bool
	closeCh      chan struct{}
}

// Connect creates a manager and blocks until its first transport is
// established. The context bounds the whole initial connect, including all
// backoff waits; Reliability.MaxConnectAttempts additionally bounds the
// number of attempts. A handshake rejection (bad AUTH, bad SELECT) aborts
// immediately rather than retrying.
func Connect(ctx context.Context, config Config) (*Manager, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	config.applyDefaults()

	id := uuid.NewString()[:8]
	logger := config.Logger.WithFields(
		logging.String("connection_id", id),
		logging.String("component", "manager"),
		logging.String("endpoint", config.Endpoint.String()))

	handle := protocol.NewHandle(protocol.HandleConfig{
		Password: config.Password,
		DB:       config.DB,
		Encoder:  config.Encoder,
		Logger:   config.Logger.WithFields(logging.String("connection_id", id)),
	})

	m := &Manager{
		id:     id,
		config: config,
		dialer: transport.Dialer{
			Timeout:   config.DialTimeout,
			KeepAlive: config.KeepAlive,
		},
		handle: handle,
		backoff: NewBackoff(
			config.Reliability.InitialRetryInterval,
			config.Reliability.MaxRetryInterval,
			config.Reliability.RetryGrowthFactor),
		logger:  logger,
		closeCh: make(chan struct{}),
	}

	var middleware []Middleware
	if config.Features.EnableObservability {
		middleware = append(middleware, NewObservabilityMiddleware(config.Observability, config.Logger))
	}
	if config.Features.EnableReliability {
		middleware = append(middleware, NewReliabilityMiddleware(config.Reliability, config.Logger))
	}
	m.exec = ChainMiddleware(middleware...).Wrap(ExecutorFunc(handle.Do))
	m.Commands = protocol.NewCommands(m, config.Encoder)

	handle.SetConnectionLostHandler(m.onConnectionLost)

	if err := m.reconnect(ctx, config.Reliability.MaxConnectAttempts); err != nil {
		handle.Close()
		return nil, err
	}
	return m, nil
}

// Do executes a command by name through the middleware chain. Names outside
// the recognized command set are rejected here and never reach the transport.
func (m *Manager) Do(ctx context.Context, command string, args ...[]byte) (protocol.Reply, error) {
	name := strings.ToUpper(command)
	if !protocol.IsCommand(name) {
		return protocol.Reply{}, kverrors.NewUnknownCommand(command)
	}
	return m.exec.Do(ctx, name, args...)
}

// onConnectionLost is the handle's loss notification. When AutoReconnect is
// enabled it starts the background reconnect loop, fire-and-forget; the loop
// runs until the link is restored or the manager is closed.
func (m *Manager) onConnectionLost(cause error) {
	m.config.Observability.Metrics.RecordTransportLost()
	m.logger.Warn("transport lost", logging.ErrorField(cause))

	m.mu.Lock()
	if m.closed || !m.config.AutoReconnect {
		m.mu.Unlock()
		return
	}
	if m.reconnecting {
		// The active loop may already have rebound and be about to exit;
		// mark the loss so it goes around again instead of dropping it.
		m.pendingLoss = true
		m.mu.Unlock()
		return
	}
	m.reconnecting = true
	m.mu.Unlock()

	go m.reconnectLoop()
}

// reconnectLoop runs the unbounded background reconnect and re-enters it when
// a loss notification arrived while the loop was still marked active.
func (m *Manager) reconnectLoop() {
	for {
		err := m.reconnect(context.Background(), 0)

		m.mu.Lock()
		if err == nil && m.pendingLoss && !m.closed {
			m.pendingLoss = false
			m.mu.Unlock()
			continue
		}
		m.reconnecting = false
		m.pendingLoss = false
		m.mu.Unlock()

		if err != nil {
			m.logger.Error("reconnect abandoned", logging.ErrorField(err))
		}
		return
	}
}

// reconnect dials and binds until it succeeds. Transient failures grow the
// backoff interval; success resets it. Non-retryable failures (handshake
// rejections, invalid endpoint) abort the loop. maxAttempts of zero means
// unbounded.
func (m *Manager) reconnect(ctx context.Context, maxAttempts int) error {
	for attempt := 1; ; attempt++ {
		if m.isClosed() {
			return errManagerClosed()
		}

		m.config.Observability.Metrics.RecordConnectAttempt()
		err := m.attempt(ctx)
		if err == nil {
			m.backoff.Reset()
			m.config.Observability.Metrics.RecordConnected()
			m.logger.Info("transport established",
				logging.String("operation", "reconnect"),
				logging.Int("attempt", attempt))
			return nil
		}

		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if !kverrors.IsRetryable(err) {
			return err
		}
		if maxAttempts > 0 && attempt >= maxAttempts {
			return kverrors.WrapError(err, kverrors.CodeRetryExhausted,
				fmt.Sprintf("no connection after %d attempts", attempt),
				kverrors.CategoryConnection, kverrors.SeverityError)
		}

		wait := m.backoff.Next()
		m.logger.Debug("reconnect attempt failed, backing off",
			logging.String("operation", "reconnect"),
			logging.Int("attempt", attempt),
			logging.Duration("wait", wait),
			logging.ErrorField(err))

		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return ctx.Err()
		case <-m.closeCh:
			return errManagerClosed()
		}
	}
}

// attempt performs one dial-and-bind cycle.
func (m *Manager) attempt(ctx context.Context) error {
	conn, err := m.dialer.Dial(ctx, m.config.Endpoint)
	if err != nil {
		return err
	}
	return m.handle.Bind(ctx, conn)
}

// Handle returns the underlying protocol handle.
func (m *Manager) Handle() *protocol.Handle {
	return m.handle
}

// Transport returns the currently bound transport, or nil while the link is
// down.
func (m *Manager) Transport() net.Conn {
	return m.handle.Transport()
}

// IsConnected reports whether a transport is currently bound.
func (m *Manager) IsConnected() bool {
	return m.handle.Transport() != nil
}

// ID returns the manager's instance identifier, used in log correlation.
func (m *Manager) ID() string {
	return m.id
}

// String returns a diagnostic representation naming the configured endpoint.
func (m *Manager) String() string {
	if m.config.Endpoint.IsUnix() {
		return fmt.Sprintf("Manager(socketPath=%q)", m.config.Endpoint.SocketPath())
	}
	return fmt.Sprintf("Manager(host=%q, port=%d)", m.config.Endpoint.Host(), m.config.Endpoint.Port())
}

// Close shuts the manager down: the transport is closed deliberately, no loss
// notification fires, and any background reconnect loop stops. The manager
// cannot be reused afterwards.
func (m *Manager) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	close(m.closeCh)
	m.mu.Unlock()

	m.config.Observability.Metrics.SetConnectionState(false)
	m.logger.Debug("manager closed")
	return m.handle.Close()
}

func (m *Manager) isClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

func errManagerClosed() error {
	return kverrors.NewError(kverrors.CodeNotConnected, "manager closed",
		kverrors.CategoryConnection, kverrors.SeverityError)
}

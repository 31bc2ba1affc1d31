package protocol

import (
	"bufio"
	"context"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	kverrors "github.com/ajitpratap0/kvlink-go/pkg/errors"
	"github.com/ajitpratap0/kvlink-go/pkg/logging"
)

// HandleConfig configures a protocol handle. All fields are pass-through
// settings consumed here, not by the connection manager.
type HandleConfig struct {
	// Password, when non-empty, is sent as AUTH during Bind.
	Password string

	// DB, when non-zero, is selected with SELECT during Bind.
	DB int

	// Encoder converts values to and from wire bytes. Defaults to UTF8Encoder.
	Encoder Encoder

	// Logger receives handle-level diagnostics. Defaults to a no-op logger.
	Logger logging.Logger
}

// ConnectionLostHandler is notified exactly once per bound transport when the
// handle loses it. The handler must not block; reconnection work should be
// scheduled on its own goroutine.
type ConnectionLostHandler func(err error)

type execResult struct {
	reply Reply
	err   error
}

// Handle is the stateful protocol object. It is bound to at most one live
// transport at a time, pipelines commands in FIFO order, and reports
// transport loss through the registered ConnectionLostHandler.
//
// The embedded Commands facade exposes the full typed command surface; Do
// provides generic dispatch by command name.
type Handle struct {
	Commands

	config HandleConfig
	logger logging.Logger

	mu          sync.Mutex
	conn        net.Conn
	writer      *bufio.Writer
	pending     []chan execResult
	lostHandler ConnectionLostHandler
	group       *errgroup.Group
	closed      bool
}

// NewHandle creates an unbound protocol handle.
func NewHandle(config HandleConfig) *Handle {
	if config.Encoder == nil {
		config.Encoder = UTF8Encoder{}
	}
	if config.Logger == nil {
		config.Logger = logging.NewNop()
	}

	h := &Handle{
		config: config,
		logger: config.Logger.WithFields(logging.String("component", "protocol")),
	}
	h.Commands = NewCommands(h, config.Encoder)
	return h
}

// SetConnectionLostHandler registers the loss notification handler. It must
// be set before the first Bind.
func (h *Handle) SetConnectionLostHandler(handler ConnectionLostHandler) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.lostHandler = handler
}

// Transport returns the currently bound transport, or nil when unbound.
func (h *Handle) Transport() net.Conn {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.conn
}

// Bind attaches a live transport to the handle: it runs the AUTH/SELECT
// handshake, installs the transport and starts the reply reader. A previous
// binding, if any, is closed first; the newest transport always wins.
//
// I/O failures during the handshake are connection-category (transient)
// errors; a server rejection of AUTH or SELECT is a configuration error and
// is returned as-is for the caller to propagate.
func (h *Handle) Bind(ctx context.Context, conn net.Conn) error {
	reader := bufio.NewReader(conn)
	writer := bufio.NewWriter(conn)

	if err := h.handshake(ctx, conn, reader, writer); err != nil {
		conn.Close()
		return err
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		conn.Close()
		return kverrors.NewError(kverrors.CodeNotConnected, "handle closed",
			kverrors.CategoryConnection, kverrors.SeverityError)
	}
	old := h.conn
	oldPending := h.pending
	h.conn = conn
	h.writer = writer
	h.pending = nil
	notify := &sync.Once{}
	h.group = &errgroup.Group{}
	h.group.Go(func() error {
		h.readLoop(conn, reader, notify)
		return nil
	})
	h.mu.Unlock()

	if old != nil {
		old.Close()

		// The old read loop's teardown is a no-op once superseded, so
		// commands still waiting on the old binding are failed here.
		lostErr := kverrors.NewConnectionLost(nil, old.RemoteAddr().String()).
			WithDetail("transport superseded")
		for _, ch := range oldPending {
			ch <- execResult{err: lostErr}
		}
	}

	h.logger.Debug("transport bound", logging.String("remote", conn.RemoteAddr().String()))
	return nil
}

// handshake authenticates and selects the database on the raw transport
// before any pipelined traffic is allowed.
func (h *Handle) handshake(ctx context.Context, conn net.Conn, reader *bufio.Reader, writer *bufio.Writer) error {
	if deadline, ok := ctx.Deadline(); ok {
		if err := conn.SetDeadline(deadline); err != nil {
			return kverrors.NewConnectionFailed(err, conn.RemoteAddr().String())
		}
		defer conn.SetDeadline(noDeadline)
	}

	if h.config.Password != "" {
		reply, err := roundTrip(reader, writer, [][]byte{[]byte("AUTH"), []byte(h.config.Password)})
		if err != nil {
			return kverrors.NewConnectionLost(err, conn.RemoteAddr().String())
		}
		if reply.Type == ErrorReply {
			return kverrors.NewAuthRejected(reply.Str)
		}
	}

	if h.config.DB != 0 {
		reply, err := roundTrip(reader, writer, [][]byte{[]byte("SELECT"), []byte(strconv.Itoa(h.config.DB))})
		if err != nil {
			return kverrors.NewConnectionLost(err, conn.RemoteAddr().String())
		}
		if reply.Type == ErrorReply {
			return kverrors.NewSelectRejected(h.config.DB, reply.Str)
		}
	}

	return nil
}

func roundTrip(reader *bufio.Reader, writer *bufio.Writer, args [][]byte) (Reply, error) {
	if err := writeCommand(writer, args); err != nil {
		return Reply{}, err
	}
	if err := writer.Flush(); err != nil {
		return Reply{}, err
	}
	return readReply(reader)
}

// Do executes a recognized command against the bound transport. Unknown
// names are rejected before anything is written; an unbound handle fails
// fast with a not-connected error rather than queueing.
func (h *Handle) Do(ctx context.Context, command string, args ...[]byte) (Reply, error) {
	name := strings.ToUpper(command)
	if !IsCommand(name) {
		return Reply{}, kverrors.NewUnknownCommand(command)
	}
	if err := ctx.Err(); err != nil {
		return Reply{}, err
	}

	h.mu.Lock()
	if h.conn == nil {
		h.mu.Unlock()
		return Reply{}, kverrors.NewNotConnected(name)
	}

	full := make([][]byte, 0, len(args)+1)
	full = append(full, []byte(name))
	full = append(full, args...)

	if err := writeCommand(h.writer, full); err == nil {
		err = h.writer.Flush()
		if err != nil {
			conn := h.conn
			h.mu.Unlock()
			conn.Close() // wakes the read loop, which tears down and notifies
			return Reply{}, kverrors.NewConnectionLost(err, conn.RemoteAddr().String())
		}
	} else {
		conn := h.conn
		h.mu.Unlock()
		conn.Close()
		return Reply{}, kverrors.NewConnectionLost(err, conn.RemoteAddr().String())
	}

	// Replies arrive strictly in request order; the channel is buffered so a
	// caller that gave up on its context never blocks the read loop.
	ch := make(chan execResult, 1)
	h.pending = append(h.pending, ch)
	h.mu.Unlock()

	select {
	case res := <-ch:
		if res.err != nil {
			return Reply{}, res.err
		}
		if res.reply.Type == ErrorReply {
			return Reply{}, kverrors.NewCommandFailed(name, res.reply.Str)
		}
		return res.reply, nil
	case <-ctx.Done():
		return Reply{}, ctx.Err()
	}
}

// readLoop drains replies from the bound transport and resolves pending
// commands in FIFO order until the transport fails.
func (h *Handle) readLoop(conn net.Conn, reader *bufio.Reader, notify *sync.Once) {
	for {
		reply, err := readReply(reader)
		if err != nil {
			h.teardown(conn, notify, err)
			return
		}

		h.mu.Lock()
		var ch chan execResult
		if len(h.pending) > 0 {
			ch = h.pending[0]
			h.pending = h.pending[1:]
		}
		h.mu.Unlock()

		if ch == nil {
			h.teardown(conn, notify, kverrors.NewProtocolError(nil, "unsolicited reply from server"))
			return
		}
		ch <- execResult{reply: reply}
	}
}

// teardown unbinds the transport, fails all pending commands and fires the
// loss notification exactly once per binding. A teardown for a transport
// that has already been superseded by a newer Bind is a no-op.
func (h *Handle) teardown(conn net.Conn, notify *sync.Once, cause error) {
	h.mu.Lock()
	if h.conn != conn {
		h.mu.Unlock()
		return
	}
	h.conn = nil
	h.writer = nil
	pending := h.pending
	h.pending = nil
	handler := h.lostHandler
	closed := h.closed
	h.mu.Unlock()

	conn.Close()

	lostErr := kverrors.NewConnectionLost(cause, conn.RemoteAddr().String())
	for _, ch := range pending {
		ch <- execResult{err: lostErr}
	}

	if closed {
		return
	}

	h.logger.Warn("transport lost", logging.ErrorField(cause))
	notify.Do(func() {
		if handler != nil {
			handler(lostErr)
		}
	})
}

// Close unbinds the handle and suppresses the loss notification for the
// deliberate shutdown. The handle cannot be rebound afterwards.
func (h *Handle) Close() error {
	h.mu.Lock()
	h.closed = true
	conn := h.conn
	group := h.group
	h.mu.Unlock()

	if conn != nil {
		conn.Close()
	}
	if group != nil {
		return group.Wait()
	}
	return nil
}

var noDeadline time.Time

// Package transport provides the endpoint addressing and dialing layer for
// kvlink connections.
//
// An Endpoint identifies the remote key-value store as either a TCP host:port
// pair or a Unix domain socket path; exactly one form is active and the value
// is immutable after construction. A Dialer turns an Endpoint into a live
// net.Conn, applying the configured dial timeout and keep-alive.
package transport

import (
	"context"
	"fmt"
	"net"
	"time"

	kverrors "github.com/ajitpratap0/kvlink-go/pkg/errors"
)

// Endpoint identifies the remote server. Construct one with TCP or Unix;
// the zero value is invalid.
type Endpoint struct {
	host       string
	port       int
	socketPath string
}

// TCP returns an endpoint for a TCP host:port target.
func TCP(host string, port int) Endpoint {
	return Endpoint{host: host, port: port}
}

// Unix returns an endpoint for a Unix domain socket target.
func Unix(socketPath string) Endpoint {
	return Endpoint{socketPath: socketPath}
}

// Host returns the TCP host, or "" for Unix endpoints.
func (e Endpoint) Host() string { return e.host }

// Port returns the TCP port, or 0 for Unix endpoints.
func (e Endpoint) Port() int { return e.port }

// SocketPath returns the Unix socket path, or "" for TCP endpoints.
func (e Endpoint) SocketPath() string { return e.socketPath }

// IsUnix reports whether the endpoint targets a Unix domain socket.
func (e Endpoint) IsUnix() bool { return e.socketPath != "" }

// Validate checks that exactly one endpoint form is configured.
func (e Endpoint) Validate() error {
	if e.socketPath != "" {
		if e.host != "" || e.port != 0 {
			return fmt.Errorf("endpoint must specify either host:port or a socket path, not both")
		}
		return nil
	}
	if e.host == "" {
		return fmt.Errorf("endpoint requires a host or a socket path")
	}
	if e.port <= 0 || e.port > 65535 {
		return fmt.Errorf("endpoint port %d out of range", e.port)
	}
	return nil
}

// Network returns the network name to dial ("tcp" or "unix").
func (e Endpoint) Network() string {
	if e.IsUnix() {
		return "unix"
	}
	return "tcp"
}

// Address returns the dialable address for Network().
func (e Endpoint) Address() string {
	if e.IsUnix() {
		return e.socketPath
	}
	return net.JoinHostPort(e.host, fmt.Sprintf("%d", e.port))
}

// String returns a diagnostic representation of the endpoint. It is intended
// for logs only, not for equality checks.
func (e Endpoint) String() string {
	if e.IsUnix() {
		return fmt.Sprintf("unix(%s)", e.socketPath)
	}
	return fmt.Sprintf("tcp(%s:%d)", e.host, e.port)
}

// Dialer establishes transports for endpoints.
type Dialer struct {
	// Timeout bounds a single dial attempt. Zero means no timeout beyond
	// what the OS applies.
	Timeout time.Duration

	// KeepAlive configures TCP keep-alive probes. Ignored for Unix sockets.
	KeepAlive time.Duration
}

// Dial opens a transport to the endpoint. Failures are reported as
// connection-category KVErrors so the reconnect loop can treat them as
// transient.
func (d Dialer) Dial(ctx context.Context, e Endpoint) (net.Conn, error) {
	if err := e.Validate(); err != nil {
		return nil, err
	}

	nd := net.Dialer{
		Timeout:   d.Timeout,
		KeepAlive: d.KeepAlive,
	}

	conn, err := nd.DialContext(ctx, e.Network(), e.Address())
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, kverrors.NewConnectionFailed(err, e.String())
	}
	return conn, nil
}

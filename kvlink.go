// Package kvlink provides a Golang client for remote key-value stores with a
// resilient, self-healing connection.
package kvlink

import (
	"github.com/ajitpratap0/kvlink-go/pkg/connection"
	"github.com/ajitpratap0/kvlink-go/pkg/protocol"
	"github.com/ajitpratap0/kvlink-go/pkg/transport"
)

// Version represents the current version of the SDK
const Version = "1.0.0"

// These exports provide direct access to the core SDK components
var (
	// Connect creates a connection manager and blocks until its first
	// transport is established
	Connect = connection.Connect

	// DefaultConfig returns a manager config with autonomous reconnection
	// enabled
	DefaultConfig = connection.DefaultConfig

	// TCP addresses a server by host and port
	TCP = transport.TCP

	// Unix addresses a server by Unix domain socket path
	Unix = transport.Unix

	// NewHandle creates an unbound protocol handle for callers that manage
	// their own transport
	NewHandle = protocol.NewHandle

	// CommandNames returns the recognized command names in sorted order
	CommandNames = protocol.CommandNames
)

// Backoff defaults for the reconnect policy
const (
	DefaultInitialRetryInterval = connection.DefaultInitialRetryInterval
	DefaultMaxRetryInterval     = connection.DefaultMaxRetryInterval
	DefaultRetryGrowthFactor    = connection.DefaultRetryGrowthFactor
)

// Manager is the resilient connection manager for a single logical link.
type Manager = connection.Manager

// Config configures a connection manager.
type Config = connection.Config

// Commands is the typed command surface of the remote server.
type Commands = protocol.Commands

// Endpoint identifies the remote server as either host:port or a socket path.
type Endpoint = transport.Endpoint

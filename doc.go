// Package kvlink provides a resilient client for remote key-value stores.
//
// kvlink maintains a single logical link to a server speaking the RESP wire
// protocol over TCP or a Unix domain socket. The connection manager owns the
// link: it establishes the transport, runs the AUTH/SELECT handshake, and
// when the transport drops it reconnects autonomously with exponential
// backoff, so application code never handles transport loss itself. This
// package is the root of the SDK, providing convenient exports of the core
// components from the sub-packages.
//
// # Overview
//
// The SDK consists of several sub-packages:
//
//   - pkg/connection: The resilient connection manager and its middleware
//   - pkg/protocol: The wire codec, typed command surface and protocol handle
//   - pkg/transport: Endpoint addressing and dialing
//   - pkg/errors: Structured errors with retryability classification
//   - pkg/logging: Structured logging
//   - pkg/observability: Prometheus metrics and OpenTelemetry tracing
//
// # Connecting
//
// To create a manager that connects to a server and stays connected:
//
//	import (
//	    "context"
//	    kvlink "github.com/ajitpratap0/kvlink-go"
//	)
//
//	func main() {
//	    ctx := context.Background()
//	    manager, err := kvlink.Connect(ctx, kvlink.DefaultConfig(kvlink.TCP("localhost", 6379)))
//	    if err != nil {
//	        // Handle error
//	    }
//	    defer manager.Close()
//
//	    if err := manager.Set(ctx, "greeting", "hello"); err != nil {
//	        // Handle error
//	    }
//	    value, found, err := manager.Get(ctx, "greeting")
//	    _ = value
//	    _ = found
//	    _ = err
//	}
//
// Commands issued while the link is down fail fast with a not-connected
// error; enable the reliability middleware to retry them transparently once
// the link is restored:
//
//	config := kvlink.DefaultConfig(kvlink.TCP("localhost", 6379))
//	config.Features.EnableReliability = true
//
// # Generic dispatch
//
// Beyond the typed methods, any recognized command can be issued by name:
//
//	reply, err := manager.Do(ctx, "INCR", []byte("counter"))
//
// Names outside the recognized command set are rejected before anything is
// written to the transport.
package kvlink

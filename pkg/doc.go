// Package pkg provides the core components of the kvlink SDK.
//
// kvlink maintains a resilient logical link to a remote key-value store
// speaking the RESP wire protocol. This package contains several sub-packages
// that implement different aspects of the client.
//
// # Connecting
//
// To create a manager that connects and stays connected:
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
//	    // Issue commands through the typed surface...
//	}
//
// # Sub-packages
//
// The kvlink SDK consists of several sub-packages:
//
//   - connection: The resilient connection manager, backoff and middleware
//   - protocol: The wire codec, typed command surface and protocol handle
//   - transport: Endpoint addressing and dialing
//   - errors: Structured errors with retryability classification
//   - logging: Structured logging used throughout the SDK
//   - observability: Prometheus metrics and OpenTelemetry tracing
package pkg

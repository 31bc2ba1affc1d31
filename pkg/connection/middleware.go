package connection

import (
	"context"

	"github.com/ajitpratap0/kvlink-go/pkg/protocol"
)

// Middleware wraps an Executor with additional behavior. Middleware composes
// around the protocol handle, so every forwarded command passes through the
// chain regardless of whether it was issued through a typed method or Do.
type Middleware interface {
	Wrap(next protocol.Executor) protocol.Executor
}

// ExecutorFunc adapts a function to the Executor interface.
type ExecutorFunc func(ctx context.Context, command string, args ...[]byte) (protocol.Reply, error)

// Do implements protocol.Executor.
func (f ExecutorFunc) Do(ctx context.Context, command string, args ...[]byte) (protocol.Reply, error) {
	return f(ctx, command, args...)
}

// ChainMiddleware composes middleware so the first one listed is the
// outermost wrapper.
func ChainMiddleware(middleware ...Middleware) Middleware {
	return chain(middleware)
}

type chain []Middleware

func (c chain) Wrap(next protocol.Executor) protocol.Executor {
	for i := len(c) - 1; i >= 0; i-- {
		next = c[i].Wrap(next)
	}
	return next
}

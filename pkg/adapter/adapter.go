package adapter

import (
	"context"

	"github.com/marmos91/dittohttp/pkg/counter"
)

// Adapter is a protocol server managed by server.DittoServer.
//
// Lifecycle:
//  1. Creation: the adapter is built from its protocol-specific configuration
//  2. Registry injection: SetCounters() provides the shared visit registry
//  3. Startup: Serve() binds and blocks until shutdown
//  4. Shutdown: Stop() ends serving and waits for handlers, bounded by its context
//
// Thread safety:
// Implementations must be safe for concurrent use. SetCounters() is called
// once before Serve(), but Stop() may be called concurrently with Serve().
type Adapter interface {
	// Serve starts the protocol server and blocks until the context is
	// cancelled or an unrecoverable error occurs.
	//
	// Returns nil on shutdown. If Serve returns an error (typically a bind
	// failure), DittoServer treats it as fatal and stops the other adapters.
	Serve(ctx context.Context) error

	// SetCounters injects the registry shared by every adapter.
	//
	// Called exactly once by DittoServer before Serve().
	SetCounters(counters *counter.Registry)

	// Stop initiates shutdown. It must be idempotent, safe to call
	// concurrently with Serve(), and return no later than ctx.
	Stop(ctx context.Context) error

	// Protocol returns the protocol name for logging and metrics, e.g. "HTTP".
	Protocol() string

	// Port returns the TCP port the adapter listens on, or the configured
	// port before Serve() has bound.
	Port() int
}

package http

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/marmos91/dittohttp/internal/logger"
	"github.com/marmos91/dittohttp/internal/ratelimiter"
	"github.com/marmos91/dittohttp/internal/workerpool"
	"github.com/marmos91/dittohttp/pkg/counter"
	"github.com/marmos91/dittohttp/pkg/metrics"
	"github.com/marmos91/dittohttp/pkg/ratelimit"
	"github.com/marmos91/dittohttp/pkg/resolver"
)

// Serving modes.
const (
	ModePool   = "pool"
	ModeSingle = "single"
)

// HTTPAdapter serves a directory tree over HTTP/1.1 on a raw TCP listener.
//
// Architecture:
// A single accept loop owns the listener. In pool mode each accepted
// connection is submitted to a bounded worker pool; when every worker is
// busy the accept loop blocks in Submit, so excess connections wait in the
// kernel backlog. In single mode the accept loop handles each connection
// itself before accepting the next one.
//
// Each connection carries exactly one request (see HTTPConnection).
//
// Shutdown flow:
//  1. Context cancelled or Stop() called
//  2. Listener closed and worker pool stopped (nothing new is accepted or started)
//  3. shutdownCtx cancelled: in-flight requests are abandoned at their next wait
//  4. Open client sockets closed, which fails any read or write in progress
//  5. Serve returns; Stop additionally waits for handlers to unwind
//
// Thread safety:
// All methods are safe for concurrent use. SetCounters must be called before Serve.
type HTTPAdapter struct {
	config HTTPConfig

	// listener is set once Serve has bound; guarded by mu for Port/Addr.
	mu       sync.Mutex
	listener net.Listener

	// resolver maps request paths under config.Root
	resolver *resolver.Resolver

	// limiter is the per-client sliding window
	limiter *ratelimit.SlidingWindow

	// throttle caps the server-wide accept rate; nil means unlimited
	throttle *ratelimiter.Throttle

	// counters is the shared visit registry
	counters *counter.Registry

	// pool runs connection handlers in pool mode; nil in single mode
	pool *workerpool.Pool

	metrics metrics.HTTPMetrics

	// activeConns tracks running handlers so Stop can wait for them
	activeConns sync.WaitGroup
	connCount   atomic.Int32

	// activeConnections holds every open client socket so shutdown can close
	// them. Keyed by the net.Conn itself.
	activeConnections sync.Map

	shutdownOnce sync.Once
	shutdown     chan struct{}

	// ready is closed once the listener is bound (or Serve failed to bind)
	ready     chan struct{}
	readyOnce sync.Once

	// shutdownCtx is cancelled during shutdown to abort in-flight requests
	shutdownCtx    context.Context
	cancelRequests context.CancelFunc
}

// HTTPConfig holds configuration parameters for the HTTP server.
//
// Default values (applied by New if zero):
//   - Port: 8080
//   - Mode: "pool"
//   - Workers: 10
//   - RateLimit: 10 requests per RateWindow
//   - RateWindow: 1s
//   - RateSweepInterval: 1m
//
// SimulatedDelay, ReadTimeout and WriteTimeout are used as given: zero
// disables them. pkg/config supplies the usual 1s / 30s / 30s defaults.
type HTTPConfig struct {
	// Enabled controls whether the HTTP adapter is started.
	Enabled bool `mapstructure:"enabled"`

	// Host is the address to bind. Empty binds all interfaces.
	Host string `mapstructure:"host"`

	// Port is the TCP port to listen on. 0 picks an ephemeral port.
	Port int `mapstructure:"port" validate:"min=0,max=65535"`

	// Root is the directory served. Must exist when Serve is called.
	Root string `mapstructure:"root" validate:"required"`

	// Mode selects "pool" (bounded concurrency) or "single" (one connection at a time).
	Mode string `mapstructure:"mode" validate:"omitempty,oneof=pool single"`

	// Workers is the worker pool capacity in pool mode.
	Workers int `mapstructure:"workers" validate:"min=0"`

	// RateLimit is the number of requests a client may make per RateWindow.
	RateLimit int `mapstructure:"rate_limit" validate:"min=0"`

	// RateWindow is the length of the sliding rate-limit window.
	RateWindow time.Duration `mapstructure:"rate_window" validate:"min=0"`

	// RateSweepInterval is how often idle clients are dropped from the limiter.
	RateSweepInterval time.Duration `mapstructure:"rate_sweep_interval" validate:"min=0"`

	// SimulatedDelay is slept after path resolution on every resolved request.
	SimulatedDelay time.Duration `mapstructure:"simulated_delay" validate:"min=0"`

	// ReadTimeout bounds reading the request line. 0 disables it.
	ReadTimeout time.Duration `mapstructure:"read_timeout" validate:"min=0"`

	// WriteTimeout bounds writing the response. 0 disables it.
	WriteTimeout time.Duration `mapstructure:"write_timeout" validate:"min=0"`

	// AcceptRate caps accepted connections per second across all clients. 0 is unlimited.
	AcceptRate uint `mapstructure:"accept_rate"`

	// AcceptBurst is the accept throttle's bucket size.
	AcceptBurst uint `mapstructure:"accept_burst"`
}

// applyDefaults fills in zero values with sensible defaults.
func (c *HTTPConfig) applyDefaults() {
	// Enabled and the zero-means-off durations are defaulted in pkg/config.
	if c.Mode == "" {
		c.Mode = ModePool
	}
	if c.Workers == 0 {
		c.Workers = 10
	}
	if c.RateLimit == 0 {
		c.RateLimit = ratelimit.DefaultLimit
	}
	if c.RateWindow == 0 {
		c.RateWindow = ratelimit.DefaultWindow
	}
	if c.RateSweepInterval == 0 {
		c.RateSweepInterval = time.Minute
	}
}

// validate checks that the configuration is usable.
func (c *HTTPConfig) validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d: must be 0-65535", c.Port)
	}
	if c.Root == "" {
		return fmt.Errorf("root directory is required")
	}
	if c.Mode != ModePool && c.Mode != ModeSingle {
		return fmt.Errorf("invalid mode %q: must be %q or %q", c.Mode, ModePool, ModeSingle)
	}
	if c.Workers < 1 {
		return fmt.Errorf("invalid Workers %d: must be >= 1", c.Workers)
	}
	if c.RateLimit < 1 {
		return fmt.Errorf("invalid RateLimit %d: must be >= 1", c.RateLimit)
	}
	if c.RateWindow <= 0 {
		return fmt.Errorf("invalid RateWindow %v: must be > 0", c.RateWindow)
	}
	if c.SimulatedDelay < 0 {
		return fmt.Errorf("invalid SimulatedDelay %v: must be >= 0", c.SimulatedDelay)
	}
	if c.ReadTimeout < 0 {
		return fmt.Errorf("invalid ReadTimeout %v: must be >= 0", c.ReadTimeout)
	}
	if c.WriteTimeout < 0 {
		return fmt.Errorf("invalid WriteTimeout %v: must be >= 0", c.WriteTimeout)
	}
	return nil
}

// New creates a new HTTPAdapter with the specified configuration.
//
// The adapter is created in a stopped state with its own empty counter
// registry. Call SetCounters to share a registry, then Serve.
//
// Panics if config validation fails.
func New(config HTTPConfig, httpMetrics metrics.HTTPMetrics) *HTTPAdapter {
	config.applyDefaults()

	if err := config.validate(); err != nil {
		panic(fmt.Sprintf("invalid HTTP config: %v", err))
	}

	res, err := resolver.New(config.Root)
	if err != nil {
		panic(fmt.Sprintf("invalid HTTP config: %v", err))
	}

	var pool *workerpool.Pool
	if config.Mode == ModePool {
		pool = workerpool.New(config.Workers)
		logger.Debug("HTTP worker pool capacity: %d", config.Workers)
	} else {
		logger.Debug("HTTP single-connection mode")
	}

	if httpMetrics == nil {
		httpMetrics = metrics.NewNoopHTTPMetrics()
	}

	shutdownCtx, cancelRequests := context.WithCancel(context.Background())

	return &HTTPAdapter{
		config:   config,
		resolver: res,
		limiter: ratelimit.New(ratelimit.Config{
			Limit:  config.RateLimit,
			Window: config.RateWindow,
		}),
		throttle:       ratelimiter.New(config.AcceptRate, config.AcceptBurst),
		counters:       counter.NewRegistry(),
		pool:           pool,
		metrics:        httpMetrics,
		shutdown:       make(chan struct{}),
		ready:          make(chan struct{}),
		shutdownCtx:    shutdownCtx,
		cancelRequests: cancelRequests,
	}
}

// SetCounters injects the shared visit registry.
//
// Thread safety:
// Called once before Serve(), no synchronization needed.
func (s *HTTPAdapter) SetCounters(counters *counter.Registry) {
	s.counters = counters
	logger.Debug("HTTP counter registry configured")
}

// Counters returns the visit registry in use.
func (s *HTTPAdapter) Counters() *counter.Registry {
	return s.counters
}

// Serve binds the listener and runs the accept loop until the context is
// cancelled or Stop is called.
//
// Returns an error only if the root is unusable or the listener cannot be
// bound; every per-connection failure is handled inside the connection.
// Returns nil after shutdown.
func (s *HTTPAdapter) Serve(ctx context.Context) error {
	defer s.readyOnce.Do(func() { close(s.ready) })

	info, err := os.Stat(s.resolver.Root())
	if err != nil {
		return fmt.Errorf("HTTP root %s: %w", s.resolver.Root(), err)
	}
	if !info.IsDir() {
		return fmt.Errorf("HTTP root %s: not a directory", s.resolver.Root())
	}

	addr := net.JoinHostPort(s.config.Host, strconv.Itoa(s.config.Port))
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to create HTTP listener on %s: %w", addr, err)
	}

	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()
	s.readyOnce.Do(func() { close(s.ready) })

	logger.Info("HTTP server listening on %s (mode=%s, root=%s)", listener.Addr(), s.config.Mode, s.resolver.Root())
	logger.Debug("HTTP config: workers=%d rate_limit=%d/%v delay=%v read_timeout=%v write_timeout=%v accept_rate=%d",
		s.config.Workers, s.config.RateLimit, s.config.RateWindow, s.config.SimulatedDelay,
		s.config.ReadTimeout, s.config.WriteTimeout, s.config.AcceptRate)

	// Stop() may have run before the listener existed.
	select {
	case <-s.shutdown:
		_ = listener.Close()
		return nil
	default:
	}

	go func() {
		select {
		case <-ctx.Done():
			logger.Info("HTTP shutdown signal received: %v", ctx.Err())
			s.initiateShutdown()
		case <-s.shutdown:
		}
	}()

	go s.sweepLimiter()

	for {
		if err := s.throttle.Wait(s.shutdownCtx); err != nil {
			return nil
		}

		tcpConn, err := listener.Accept()
		if err != nil {
			select {
			case <-s.shutdown:
				logger.Info("HTTP accept loop stopped")
				return nil
			default:
				logger.Debug("Error accepting HTTP connection: %v", err)
				continue
			}
		}

		logger.Info("Connection from %s", tcpConn.RemoteAddr())

		if s.pool == nil {
			s.activeConns.Add(1)
			s.serveConn(tcpConn)
			s.activeConns.Done()
			continue
		}

		s.activeConns.Add(1)
		err = s.pool.Submit(s.shutdownCtx, func() {
			defer s.activeConns.Done()
			s.serveConn(tcpConn)
		})
		if err != nil {
			s.activeConns.Done()
			_ = tcpConn.Close()
			if errors.Is(err, workerpool.ErrPoolStopped) || errors.Is(err, context.Canceled) {
				logger.Info("HTTP accept loop stopped")
				return nil
			}
			logger.Warn("Failed to dispatch connection from %s: %v", tcpConn.RemoteAddr(), err)
		}
	}
}

// serveConn runs one connection to completion with bookkeeping around it.
func (s *HTTPAdapter) serveConn(tcpConn net.Conn) {
	s.activeConnections.Store(tcpConn, struct{}{})
	defer s.activeConnections.Delete(tcpConn)

	// A connection registered after forceCloseConnections ran would otherwise
	// sit in its read until the deadline.
	select {
	case <-s.shutdown:
		_ = tcpConn.Close()
	default:
	}

	current := s.connCount.Add(1)
	s.metrics.RecordConnectionAccepted()
	s.metrics.SetActiveConnections(current)

	defer func() {
		current := s.connCount.Add(-1)
		s.metrics.RecordConnectionClosed()
		s.metrics.SetActiveConnections(current)
		logger.Debug("HTTP connection closed from %s (active: %d)", tcpConn.RemoteAddr(), current)
	}()

	NewHTTPConnection(s, tcpConn).Serve(s.shutdownCtx)
}

// sweepLimiter periodically forgets clients whose window has emptied.
func (s *HTTPAdapter) sweepLimiter() {
	ticker := time.NewTicker(s.config.RateSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.shutdown:
			return
		case <-ticker.C:
			removed := s.limiter.Sweep()
			clients := s.limiter.Clients()
			s.metrics.SetRateLimitClients(clients)
			if removed > 0 {
				logger.Debug("Rate limiter sweep: removed=%d tracked=%d", removed, clients)
			}
		}
	}
}

// initiateShutdown stops the accept loop, the worker pool and in-flight
// requests. Safe to call multiple times.
func (s *HTTPAdapter) initiateShutdown() {
	s.shutdownOnce.Do(func() {
		logger.Debug("HTTP shutdown initiated")

		close(s.shutdown)

		s.mu.Lock()
		listener := s.listener
		s.mu.Unlock()
		if listener != nil {
			if err := listener.Close(); err != nil {
				logger.Debug("Error closing HTTP listener: %v", err)
			}
		}

		if s.pool != nil {
			s.pool.Stop()
		}

		s.cancelRequests()
		s.forceCloseConnections()
	})
}

// forceCloseConnections closes every tracked client socket. Handlers blocked
// in a read or write fail at once and unwind without sending anything.
func (s *HTTPAdapter) forceCloseConnections() {
	closed := 0
	s.activeConnections.Range(func(key, _ any) bool {
		conn := key.(net.Conn)
		if err := conn.Close(); err != nil {
			logger.Debug("Error force-closing connection to %s: %v", conn.RemoteAddr(), err)
		} else {
			closed++
		}
		return true
	})

	if closed > 0 {
		logger.Info("Force-closed %d HTTP connection(s)", closed)
	}
}

// Stop shuts the server down and waits for running handlers to unwind, or
// for ctx to end, whichever comes first.
//
// Handlers are not drained: shutdown cancels their context and closes their
// sockets, so this normally returns almost at once.
func (s *HTTPAdapter) Stop(ctx context.Context) error {
	s.initiateShutdown()

	if ctx == nil {
		ctx = context.Background()
	}

	done := make(chan struct{})
	go func() {
		s.activeConns.Wait()
		close(done)
	}()

	select {
	case <-done:
		logger.Info("HTTP server stopped")
		return nil
	case <-ctx.Done():
		remaining := s.connCount.Load()
		logger.Warn("HTTP shutdown context cancelled: %d connection(s) still active: %v", remaining, ctx.Err())
		return ctx.Err()
	}
}

// Ready returns a channel closed once Serve has bound its listener or failed to.
func (s *HTTPAdapter) Ready() <-chan struct{} {
	return s.ready
}

// GetActiveConnections returns the number of connections being handled.
func (s *HTTPAdapter) GetActiveConnections() int32 {
	return s.connCount.Load()
}

// Addr returns the bound listener address, or nil before Serve has bound.
func (s *HTTPAdapter) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Port returns the bound TCP port, or the configured one before Serve has bound.
func (s *HTTPAdapter) Port() int {
	if addr, ok := s.Addr().(*net.TCPAddr); ok {
		return addr.Port
	}
	return s.config.Port
}

// Protocol returns "HTTP".
func (s *HTTPAdapter) Protocol() string {
	return "HTTP"
}

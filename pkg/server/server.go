package server

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/marmos91/dittohttp/internal/logger"
	"github.com/marmos91/dittohttp/pkg/adapter"
	"github.com/marmos91/dittohttp/pkg/counter"
	"github.com/marmos91/dittohttp/pkg/counter/store"
)

// ErrAlreadyServed is returned by a second call to Serve.
var ErrAlreadyServed = errors.New("server already serving")

// Config tunes DittoServer.
type Config struct {
	// FlushInterval is how often counts are saved to the store while serving.
	// 0 saves only on shutdown.
	FlushInterval time.Duration

	// StopTimeout bounds how long adapters get to stop. Default: 30s.
	StopTimeout time.Duration
}

// DittoServer runs protocol adapters that share one visit-count registry,
// and keeps that registry in sync with a persistent store.
//
// Lifecycle:
//  1. Creation: New() with the shared registry and an optional store
//  2. Registration: AddAdapter() for each protocol
//  3. Startup: Serve() restores saved counts, then starts all adapters
//  4. Shutdown: context cancellation stops adapters and saves counts one last time
//
// Example usage:
//
//	srv := server.New(counter.NewRegistry(), badgerStore, server.Config{FlushInterval: time.Minute})
//	srv.AddAdapter(http.New(httpConfig, nil))
//
//	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
//	defer cancel()
//
//	if err := srv.Serve(ctx); err != nil {
//	    log.Fatal(err)
//	}
type DittoServer struct {
	counters *counter.Registry
	store    store.Store
	config   Config

	// mu protects the adapters slice and served flag
	mu       sync.RWMutex
	adapters []adapter.Adapter
	served   bool
}

// New creates a server around counters. st may be nil, in which case counts
// live only as long as the process.
//
// Panics if counters is nil.
func New(counters *counter.Registry, st store.Store, config Config) *DittoServer {
	if counters == nil {
		panic("counter registry cannot be nil")
	}
	if config.StopTimeout <= 0 {
		config.StopTimeout = 30 * time.Second
	}

	return &DittoServer{
		counters: counters,
		store:    st,
		config:   config,
		adapters: make([]adapter.Adapter, 0, 2),
	}
}

// AddAdapter injects the shared registry into a and registers it.
//
// Returns an error if another adapter already serves the same protocol or
// port (port 0, meaning ephemeral, never conflicts).
//
// Panics if a is nil or Serve() has already been called.
func (s *DittoServer) AddAdapter(a adapter.Adapter) error {
	if a == nil {
		panic("adapter cannot be nil")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.served {
		panic("cannot add adapter after Serve() has been called")
	}

	protocol := a.Protocol()
	port := a.Port()

	for _, existing := range s.adapters {
		if existing.Protocol() == protocol {
			return fmt.Errorf("adapter for protocol %s already registered", protocol)
		}
		if port != 0 && existing.Port() == port {
			return fmt.Errorf("port %d already in use by %s adapter", port, existing.Protocol())
		}
	}

	a.SetCounters(s.counters)
	s.adapters = append(s.adapters, a)

	logger.Info("Registered %s adapter on port %d", protocol, port)
	return nil
}

// Serve restores saved counts, runs every adapter and blocks until ctx is
// cancelled or an adapter fails.
//
// Returns nil after a clean shutdown, the adapter's error if one failed,
// or a restore error if saved counts could not be loaded. Counts are saved
// on the way out in every case where adapters were started.
func (s *DittoServer) Serve(ctx context.Context) error {
	s.mu.Lock()
	if s.served {
		s.mu.Unlock()
		return ErrAlreadyServed
	}
	s.served = true
	if len(s.adapters) == 0 {
		s.mu.Unlock()
		return fmt.Errorf("no adapters registered; call AddAdapter() before Serve()")
	}
	adapters := make([]adapter.Adapter, len(s.adapters))
	copy(adapters, s.adapters)
	s.mu.Unlock()

	if err := s.restore(ctx); err != nil {
		return err
	}

	logger.Info("Starting DittoServer with %d adapter(s)", len(adapters))

	errChan := make(chan adapterError, len(adapters))
	var wg sync.WaitGroup

	for _, adp := range adapters {
		wg.Add(1)
		go func(a adapter.Adapter) {
			defer wg.Done()

			protocol := a.Protocol()
			logger.Info("Starting %s adapter on port %d", protocol, a.Port())

			if err := a.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("%s adapter failed: %v", protocol, err)
				errChan <- adapterError{protocol: protocol, err: err}
				return
			}
			logger.Info("%s adapter stopped", protocol)
		}(adp)
	}

	flushCtx, stopFlush := context.WithCancel(context.Background())
	flushDone := make(chan struct{})
	go func() {
		defer close(flushDone)
		s.flushLoop(flushCtx)
	}()

	var shutdownErr error
	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received (reason: %v)", ctx.Err())
	case adapterErr := <-errChan:
		logger.Error("Adapter %s failed: %v - initiating shutdown of all adapters",
			adapterErr.protocol, adapterErr.err)
		shutdownErr = fmt.Errorf("%s adapter error: %w", adapterErr.protocol, adapterErr.err)
	}

	s.stopAllAdapters(adapters)
	wg.Wait()

	stopFlush()
	<-flushDone
	s.flush(context.Background())

	logger.Info("DittoServer stopped")
	return shutdownErr
}

type adapterError struct {
	protocol string
	err      error
}

// restore merges stored counts into the registry.
func (s *DittoServer) restore(ctx context.Context) error {
	if s.store == nil {
		return nil
	}

	counts, err := s.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("restore counters: %w", err)
	}

	s.counters.Restore(counts)
	logger.Info("Restored visit counts for %d resource(s)", len(counts))
	return nil
}

// flushLoop saves counts every FlushInterval until ctx is cancelled.
func (s *DittoServer) flushLoop(ctx context.Context) {
	if s.store == nil || s.config.FlushInterval <= 0 {
		return
	}

	ticker := time.NewTicker(s.config.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.flush(ctx)
		}
	}
}

// flush saves a snapshot of the registry. Failures are logged, not returned:
// the next flush retries with fresher data.
func (s *DittoServer) flush(ctx context.Context) {
	if s.store == nil {
		return
	}

	snapshot := s.counters.Snapshot()
	if err := s.store.Save(ctx, snapshot); err != nil {
		logger.Error("Failed to save visit counts: %v", err)
		return
	}
	logger.Debug("Saved visit counts for %d resource(s)", len(snapshot))
}

// stopAllAdapters stops adapters in reverse registration order, all under
// one StopTimeout deadline.
func (s *DittoServer) stopAllAdapters(adapters []adapter.Adapter) {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.StopTimeout)
	defer cancel()

	logger.Info("Stopping %d adapter(s)", len(adapters))

	for i := len(adapters) - 1; i >= 0; i-- {
		adp := adapters[i]
		if err := adp.Stop(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Error stopping %s adapter: %v", adp.Protocol(), err)
		}
	}
}

// Adapters returns a copy of the registered adapters.
func (s *DittoServer) Adapters() []adapter.Adapter {
	s.mu.RLock()
	defer s.mu.RUnlock()

	adapters := make([]adapter.Adapter, len(s.adapters))
	copy(adapters, s.adapters)
	return adapters
}

// Counters returns the shared registry.
func (s *DittoServer) Counters() *counter.Registry {
	return s.counters
}

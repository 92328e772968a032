package framework

import (
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/marmos91/dittohttp/internal/logger"
	"github.com/marmos91/dittohttp/pkg/adapter/http"
	"github.com/marmos91/dittohttp/pkg/counter"
	"github.com/marmos91/dittohttp/pkg/counter/store"
	"github.com/marmos91/dittohttp/pkg/counter/store/badger"
	"github.com/marmos91/dittohttp/pkg/counter/store/memory"
	"github.com/marmos91/dittohttp/pkg/server"
)

// StoreType represents the counter store backing a test server
type StoreType string

const (
	StoreTypeMemory StoreType = "memory"
	StoreTypeBadger StoreType = "badger"
)

// TestServerConfig holds configuration for the test server.
// This is distinct from pkg/config.ServerConfig (application-level server settings).
type TestServerConfig struct {
	// Root is the directory served. Required.
	Root string

	CounterStore StoreType

	// CounterPath is the badger directory. Reusing it across servers is how
	// tests check that counts survive a restart.
	CounterPath string

	Mode           string
	Workers        int
	RateLimit      int
	RateWindow     time.Duration
	SimulatedDelay time.Duration
	FlushInterval  time.Duration
	LogLevel       string
	StartupTimeout time.Duration
}

// TestServer wraps a DittoServer with one HTTP adapter on an ephemeral port.
type TestServer struct {
	t       testing.TB
	config  TestServerConfig
	server  *server.DittoServer
	adapter *http.HTTPAdapter
	store   store.Store
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started bool
	mu      sync.Mutex

	// serveErr is written by the Serve goroutine; read it only after wg.Wait
	serveErr error
}

// NewTestServer creates a stopped test server.
func NewTestServer(t testing.TB, config TestServerConfig) *TestServer {
	t.Helper()

	if config.Root == "" {
		t.Fatal("TestServerConfig.Root is required")
	}
	if config.CounterStore == "" {
		config.CounterStore = StoreTypeMemory
	}
	if config.CounterStore == StoreTypeBadger && config.CounterPath == "" {
		config.CounterPath = filepath.Join(t.TempDir(), "counters")
	}
	if config.RateLimit == 0 {
		// High enough that only tests about rate limiting ever hit it.
		config.RateLimit = 10000
	}
	if config.LogLevel == "" {
		config.LogLevel = "ERROR" // Keep tests quiet by default
	}
	if config.StartupTimeout == 0 {
		config.StartupTimeout = 10 * time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &TestServer{
		t:      t,
		config: config,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start opens the counter store, starts serving and waits until the
// listener is bound.
func (ts *TestServer) Start() error {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	if ts.started {
		return fmt.Errorf("server already started")
	}

	ts.t.Helper()

	logger.SetLevel(ts.config.LogLevel)

	switch ts.config.CounterStore {
	case StoreTypeMemory:
		ts.store = memory.NewMemoryStore()
	case StoreTypeBadger:
		st, err := badger.NewBadgerCounterStore(ts.ctx, badger.BadgerCounterStoreConfig{
			DBPath: ts.config.CounterPath,
		})
		if err != nil {
			return fmt.Errorf("failed to open badger counter store: %w", err)
		}
		ts.store = st
		ts.t.Logf("Using badger counter store at %s", ts.config.CounterPath)
	default:
		return fmt.Errorf("unknown counter store type: %s", ts.config.CounterStore)
	}

	ts.adapter = http.New(http.HTTPConfig{
		Enabled:        true,
		Host:           "127.0.0.1",
		Port:           0,
		Root:           ts.config.Root,
		Mode:           ts.config.Mode,
		Workers:        ts.config.Workers,
		RateLimit:      ts.config.RateLimit,
		RateWindow:     ts.config.RateWindow,
		SimulatedDelay: ts.config.SimulatedDelay,
		ReadTimeout:    5 * time.Second,
		WriteTimeout:   5 * time.Second,
	}, nil) // nil = no metrics for tests

	ts.server = server.New(counter.NewRegistry(), ts.store, server.Config{
		FlushInterval: ts.config.FlushInterval,
		StopTimeout:   5 * time.Second,
	})
	if err := ts.server.AddAdapter(ts.adapter); err != nil {
		return fmt.Errorf("failed to add adapter: %w", err)
	}

	ts.wg.Add(1)
	go func() {
		defer ts.wg.Done()
		if err := ts.server.Serve(ts.ctx); err != nil {
			ts.t.Logf("Server error: %v", err)
			ts.serveErr = err
		}
	}()

	select {
	case <-ts.adapter.Ready():
	case <-time.After(ts.config.StartupTimeout):
		ts.cancel()
		ts.wg.Wait()
		return fmt.Errorf("timeout waiting for server to start")
	}

	if ts.adapter.Addr() == nil {
		ts.cancel()
		ts.wg.Wait()
		return fmt.Errorf("server failed to bind: %v", ts.serveErr)
	}

	ts.started = true
	ts.t.Logf("Server started on %s", ts.adapter.Addr())
	return nil
}

// Stop shuts the server down, which saves the counts, then closes the store.
func (ts *TestServer) Stop() error {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	if !ts.started {
		return nil
	}

	ts.t.Helper()
	ts.cancel()

	done := make(chan struct{})
	go func() {
		ts.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		return fmt.Errorf("server stop timeout")
	}

	ts.started = false
	if err := ts.store.Close(); err != nil {
		return fmt.Errorf("failed to close counter store: %w", err)
	}
	return ts.serveErr
}

// Addr returns the host:port the server listens on.
func (ts *TestServer) Addr() string {
	return net.JoinHostPort("127.0.0.1", strconv.Itoa(ts.adapter.Port()))
}

// Counters returns the registry the server records visits in.
func (ts *TestServer) Counters() *counter.Registry {
	return ts.server.Counters()
}

// Key returns the counter key for a path relative to the served root.
func (ts *TestServer) Key(rel string) string {
	root, err := filepath.EvalSymlinks(ts.config.Root)
	if err != nil {
		root = ts.config.Root
	}
	if abs, err := filepath.Abs(root); err == nil {
		root = abs
	}
	if rel == "" || rel == "/" {
		return root
	}
	return filepath.Join(root, filepath.FromSlash(rel))
}

// WriteFile creates a file under the served root.
func WriteFile(t testing.TB, root, rel string, content []byte) {
	t.Helper()

	path := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("Failed to create directory for %s: %v", rel, err)
	}
	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatalf("Failed to write %s: %v", rel, err)
	}
}

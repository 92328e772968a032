package e2e

import (
	"sync"
	"testing"
	"time"

	"github.com/marmos91/dittohttp/test/e2e/framework"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRoot(t *testing.T) string {
	t.Helper()

	root := t.TempDir()
	framework.WriteFile(t, root, "index.html", []byte("<h1>home</h1>"))
	framework.WriteFile(t, root, "docs/guide.pdf", []byte("%PDF-1.7 guide"))
	framework.WriteFile(t, root, "docs/notes.txt", []byte("plain notes"))
	return root
}

func startServer(t *testing.T, cfg framework.TestServerConfig) *framework.TestServer {
	t.Helper()

	ts := framework.NewTestServer(t, cfg)
	require.NoError(t, ts.Start())
	t.Cleanup(func() { _ = ts.Stop() })
	return ts
}

func TestServe_BrowseAndFetch(t *testing.T) {
	ts := startServer(t, framework.TestServerConfig{Root: newRoot(t)})

	resp, err := framework.Get(ts.Addr(), "/")
	require.NoError(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, 200, resp.Status)
	assert.Contains(t, resp.Body, `<a href="/docs/">docs/</a>`)
	assert.Contains(t, resp.Body, `<a href="/index.html">index.html</a>`)

	resp, err = framework.Get(ts.Addr(), "/docs/")
	require.NoError(t, err)
	assert.Equal(t, 200, resp.Status)
	assert.Contains(t, resp.Body, `<a href="/">../</a> (Requests: 1)`)
	assert.Contains(t, resp.Body, `<a href="/docs/guide.pdf">guide.pdf</a> (Requests: 0)`)

	resp, err = framework.Get(ts.Addr(), "/docs/guide.pdf")
	require.NoError(t, err)
	assert.Equal(t, 200, resp.Status)
	assert.Equal(t, "application/pdf", resp.Headers["Content-Type"])
	assert.Equal(t, "%PDF-1.7 guide", resp.Body)

	resp, err = framework.Get(ts.Addr(), "/docs/notes.txt")
	require.NoError(t, err)
	assert.Equal(t, 200, resp.Status)
	assert.Equal(t, "text/plain", resp.Headers["Content-Type"])

	resp, err = framework.Get(ts.Addr(), "/../../etc/passwd")
	require.NoError(t, err)
	assert.Equal(t, 404, resp.Status)
}

func TestServe_CountsSurviveRestart(t *testing.T) {
	root := newRoot(t)
	counterPath := t.TempDir()

	first := framework.NewTestServer(t, framework.TestServerConfig{
		Root:         root,
		CounterStore: framework.StoreTypeBadger,
		CounterPath:  counterPath,
	})
	require.NoError(t, first.Start())

	for i := 0; i < 3; i++ {
		resp, err := framework.Get(first.Addr(), "/index.html")
		require.NoError(t, err)
		require.Equal(t, 200, resp.Status)
	}
	require.NoError(t, first.Stop())

	second := startServer(t, framework.TestServerConfig{
		Root:         root,
		CounterStore: framework.StoreTypeBadger,
		CounterPath:  counterPath,
	})

	assert.Equal(t, uint64(3), second.Counters().CurrentCount(second.Key("index.html")))

	resp, err := framework.Get(second.Addr(), "/")
	require.NoError(t, err)
	assert.Contains(t, resp.Body, `<a href="/index.html">index.html</a> (Requests: 3)`)
}

func TestServe_RateLimitPerClient(t *testing.T) {
	ts := startServer(t, framework.TestServerConfig{
		Root:       newRoot(t),
		RateLimit:  5,
		RateWindow: time.Minute,
	})

	for i := 0; i < 5; i++ {
		resp, err := framework.Get(ts.Addr(), "/index.html")
		require.NoError(t, err)
		require.Equal(t, 200, resp.Status, "request %d", i)
	}

	resp, err := framework.Get(ts.Addr(), "/index.html")
	require.NoError(t, err)
	assert.Equal(t, 429, resp.Status)
	assert.Contains(t, resp.Body, "429 Too Many Requests")
}

func TestServe_ConcurrentVisitsAreNotLost(t *testing.T) {
	const requests = 60

	ts := startServer(t, framework.TestServerConfig{
		Root:    newRoot(t),
		Workers: 8,
	})

	var wg sync.WaitGroup
	var mu sync.Mutex
	ok := 0

	for i := 0; i < requests; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := framework.Get(ts.Addr(), "/index.html")
			if err == nil && resp != nil && resp.Status == 200 {
				mu.Lock()
				ok++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, requests, ok)
	assert.Equal(t, uint64(requests), ts.Counters().CurrentCount(ts.Key("index.html")))
}

func TestServe_SingleModeStillAnswersEveryone(t *testing.T) {
	ts := startServer(t, framework.TestServerConfig{
		Root:           newRoot(t),
		Mode:           "single",
		SimulatedDelay: 20 * time.Millisecond,
	})

	var wg sync.WaitGroup
	statuses := make([]int, 5)
	for i := range statuses {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if resp, err := framework.Get(ts.Addr(), "/docs/"); err == nil && resp != nil {
				statuses[i] = resp.Status
			}
		}(i)
	}
	wg.Wait()

	for i, status := range statuses {
		assert.Equal(t, 200, status, "request %d", i)
	}
	assert.Equal(t, uint64(5), ts.Counters().CurrentCount(ts.Key("docs")))
}

package httpwire

import (
	"bytes"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRequestLine(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		want    *Request
		wantErr bool
	}{
		{"full", "GET /index.html HTTP/1.1\r\n", &Request{"GET", "/index.html", "HTTP/1.1"}, false},
		{"no version", "GET /\n", &Request{"GET", "/", ""}, false},
		{"other method", "POST /form HTTP/1.0", &Request{"POST", "/form", "HTTP/1.0"}, false},
		{"raw path kept", "GET /a/../b%20c?x=1 HTTP/1.1", &Request{"GET", "/a/../b%20c?x=1", "HTTP/1.1"}, false},
		{"empty", "\r\n", nil, true},
		{"method only", "GET\r\n", nil, true},
		{"too many fields", "GET / HTTP/1.1 extra\r\n", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseRequestLine(tt.line)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrMalformedRequest)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestReadRequest(t *testing.T) {
	t.Run("ignores headers", func(t *testing.T) {
		req, err := ReadRequest(strings.NewReader("GET /a.txt HTTP/1.1\r\nHost: x\r\nUser-Agent: y\r\n\r\n"))
		require.NoError(t, err)
		assert.Equal(t, "/a.txt", req.Path)
	})

	t.Run("line split across reads", func(t *testing.T) {
		req, err := ReadRequest(iotest.OneByteReader(strings.NewReader("GET /slow HTTP/1.1\r\n")))
		require.NoError(t, err)
		assert.Equal(t, "/slow", req.Path)
	})

	t.Run("unterminated line at EOF", func(t *testing.T) {
		req, err := ReadRequest(strings.NewReader("GET /x"))
		require.NoError(t, err)
		assert.Equal(t, "/x", req.Path)
	})

	t.Run("empty", func(t *testing.T) {
		_, err := ReadRequest(strings.NewReader(""))
		assert.ErrorIs(t, err, ErrEmptyRequest)
	})

	t.Run("oversized", func(t *testing.T) {
		line := "GET /" + strings.Repeat("a", MaxRequestLineBytes) + " HTTP/1.1\r\n"
		_, err := ReadRequest(strings.NewReader(line))
		assert.ErrorIs(t, err, ErrMalformedRequest)
	})

	t.Run("reader error", func(t *testing.T) {
		_, err := ReadRequest(iotest.ErrReader(assert.AnError))
		assert.ErrorIs(t, err, assert.AnError)
	})
}

func TestMediaType(t *testing.T) {
	tests := []struct {
		name   string
		want   string
		wantOK bool
	}{
		{"index.html", "text/html", true},
		{"page.HTM", "text/html", true},
		{"notes.txt", "text/plain", true},
		{"logo.png", "image/png", true},
		{"paper.PDF", "application/pdf", true},
		{"setup.exe", "", false},
		{"archive.tar.gz", "", false},
		{"README", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := MediaType(tt.name)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResponseBytes(t *testing.T) {
	resp := NewResponse(StatusOK, "text/plain", []byte("hello"))

	want := "HTTP/1.1 200 OK\r\n" +
		"Content-Type: text/plain\r\n" +
		"Content-Length: 5\r\n" +
		"Connection: close\r\n" +
		"\r\n" +
		"hello"
	assert.Equal(t, want, string(resp.Bytes()))

	var buf bytes.Buffer
	n, err := resp.WriteTo(&buf)
	require.NoError(t, err)
	assert.Equal(t, int64(len(want)), n)
}

func TestContentLengthCountsBytes(t *testing.T) {
	body := []byte("héllo wörld ✓")
	resp := NewResponse(StatusOK, HTMLContentType, body)

	assert.Equal(t, "17", resp.Header("Content-Length"))
	assert.NotEqual(t, len([]rune(string(body))), len(body))
}

func TestStatusResponse(t *testing.T) {
	for _, code := range []int{StatusNotFound, StatusTooManyRequests} {
		resp := StatusResponse(code)
		title := strconv.Itoa(code) + " " + StatusText(code)

		assert.Equal(t, code, resp.StatusCode)
		assert.Equal(t, HTMLContentType, resp.Header("Content-Type"))
		assert.Equal(t, "close", resp.Header("Connection"))
		assert.Contains(t, string(resp.Body), "<h1>"+title+"</h1>")
		assert.True(t, strings.HasPrefix(string(resp.Bytes()), "HTTP/1.1 "+title+"\r\n"))
	}
}

func TestFileResponse(t *testing.T) {
	dir := t.TempDir()

	pdf := filepath.Join(dir, "doc.pdf")
	content := []byte("%PDF-1.4\n\x00\x01binary\xff")
	require.NoError(t, os.WriteFile(pdf, content, 0644))

	resp, err := FileResponse(pdf)
	require.NoError(t, err)
	assert.Equal(t, StatusOK, resp.StatusCode)
	assert.Equal(t, "application/pdf", resp.Header("Content-Type"))
	assert.Equal(t, strconv.Itoa(len(content)), resp.Header("Content-Length"))
	assert.Equal(t, content, resp.Body)

	exe := filepath.Join(dir, "tool.exe")
	require.NoError(t, os.WriteFile(exe, []byte("MZ"), 0644))
	_, err = FileResponse(exe)
	assert.ErrorIs(t, err, ErrUnsupportedMediaType)

	_, err = FileResponse(filepath.Join(dir, "gone.txt"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestListingResponse(t *testing.T) {
	resp, err := ListingResponse(Listing{
		Path: "/",
		Entries: []ListingEntry{
			{Name: "b.png", Href: "/b.png", Count: 0},
			{Name: "a.html", Href: "/a.html", Count: 3},
		},
	})
	require.NoError(t, err)

	body := string(resp.Body)
	assert.Equal(t, StatusOK, resp.StatusCode)
	assert.Equal(t, HTMLContentType, resp.Header("Content-Type"))
	assert.Equal(t, strconv.Itoa(len(resp.Body)), resp.Header("Content-Length"))
	assert.Contains(t, body, "<title>Directory listing for /</title>")
	assert.NotContains(t, body, "../")

	a := strings.Index(body, `<a href="/a.html">a.html</a> (Requests: 3)`)
	b := strings.Index(body, `<a href="/b.png">b.png</a> (Requests: 0)`)
	require.NotEqual(t, -1, a)
	require.NotEqual(t, -1, b)
	assert.Less(t, a, b, "entries must be in name order")
}

func TestListingResponse_ParentAndDirectories(t *testing.T) {
	resp, err := ListingResponse(Listing{
		Path:   "/docs/",
		Parent: &ListingEntry{Name: "..", Href: "/", Count: 7},
		Entries: []ListingEntry{
			{Name: "sub", Href: "/docs/sub/", Dir: true, Count: 1},
		},
	})
	require.NoError(t, err)

	body := string(resp.Body)
	assert.Contains(t, body, `<a href="/">../</a> (Requests: 7)`)
	assert.Contains(t, body, `<a href="/docs/sub/">sub/</a> (Requests: 1)`)
	assert.Less(t, strings.Index(body, "../"), strings.Index(body, "sub/"))
}

func TestListingResponse_EscapesNames(t *testing.T) {
	resp, err := ListingResponse(Listing{
		Path:    "/",
		Entries: []ListingEntry{{Name: "<script>.txt", Href: "/<script>.txt"}},
	})
	require.NoError(t, err)
	assert.NotContains(t, string(resp.Body), "<script>")
}

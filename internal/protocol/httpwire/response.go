package httpwire

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strconv"
)

// Status codes produced by the server. Nothing else is ever sent.
const (
	StatusOK              = 200
	StatusNotFound        = 404
	StatusTooManyRequests = 429
)

var statusText = map[int]string{
	StatusOK:              "OK",
	StatusNotFound:        "Not Found",
	StatusTooManyRequests: "Too Many Requests",
}

// StatusText returns the reason phrase for code, or "Unknown" for codes the
// server never emits.
func StatusText(code int) string {
	if text, ok := statusText[code]; ok {
		return text
	}
	return "Unknown"
}

// Header is a single response header. Headers keep insertion order on the wire.
type Header struct {
	Name  string
	Value string
}

// Response is a complete HTTP/1.1 response, built fresh for each request.
type Response struct {
	StatusCode int
	Reason     string
	Headers    []Header
	Body       []byte
}

// NewResponse builds a response with Content-Type, Content-Length and
// Connection: close set. Content-Length is the body's byte length.
func NewResponse(code int, contentType string, body []byte) *Response {
	return &Response{
		StatusCode: code,
		Reason:     StatusText(code),
		Headers: []Header{
			{Name: "Content-Type", Value: contentType},
			{Name: "Content-Length", Value: strconv.Itoa(len(body))},
			{Name: "Connection", Value: "close"},
		},
		Body: body,
	}
}

// Header returns the first value for name, or "" if absent. Lookup is exact.
func (r *Response) Header(name string) string {
	for _, h := range r.Headers {
		if h.Name == name {
			return h.Value
		}
	}
	return ""
}

// Bytes serializes the status line, headers, blank line and body.
func (r *Response) Bytes() []byte {
	var buf bytes.Buffer
	buf.Grow(128 + len(r.Body))

	fmt.Fprintf(&buf, "HTTP/1.1 %d %s\r\n", r.StatusCode, r.Reason)
	for _, h := range r.Headers {
		buf.WriteString(h.Name)
		buf.WriteString(": ")
		buf.WriteString(h.Value)
		buf.WriteString("\r\n")
	}
	buf.WriteString("\r\n")
	buf.Write(r.Body)

	return buf.Bytes()
}

// WriteTo writes the serialized response to w in a single Write call.
func (r *Response) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(r.Bytes())
	return int64(n), err
}

// StatusResponse renders the generic page for code. The body names only the
// code and its reason phrase.
func StatusResponse(code int) *Response {
	reason := StatusText(code)
	body := fmt.Sprintf(`<!DOCTYPE html>
<html>
<head>
    <title>%d %s</title>
</head>
<body>
    <h1>%d %s</h1>
</body>
</html>
`, code, reason, code, reason)

	return NewResponse(code, HTMLContentType, []byte(body))
}

// FileResponse reads the file at path into memory and returns it with its
// media type.
//
// Returns ErrUnsupportedMediaType (checked before any read) for types outside
// the allowlist; read failures are returned as-is from the filesystem.
func FileResponse(path string) (*Response, error) {
	mt, ok := MediaType(path)
	if !ok {
		return nil, fmt.Errorf("%s: %w", path, ErrUnsupportedMediaType)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	return NewResponse(StatusOK, mt, content), nil
}

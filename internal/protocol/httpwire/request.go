// Package httpwire reads HTTP/1.x request lines and writes complete
// HTTP/1.1 responses directly on a byte stream.
//
// Only the first request line is interpreted. Every response carries
// Connection: close, so one connection carries exactly one exchange.
package httpwire

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

// MaxRequestLineBytes bounds how much is read while looking for the end of
// the request line.
const MaxRequestLineBytes = 8 << 10

var (
	// ErrEmptyRequest indicates the peer closed the connection without sending anything.
	ErrEmptyRequest = errors.New("empty request")

	// ErrMalformedRequest indicates the request line could not be parsed.
	ErrMalformedRequest = errors.New("malformed request line")
)

// Request is the parsed request line. Header lines are never read.
type Request struct {
	Method  string
	Path    string
	Version string
}

// ReadRequest reads the request line from r and parses it.
//
// Returns ErrEmptyRequest if r is at EOF before any byte arrives, and
// ErrMalformedRequest if no line terminator shows up within
// MaxRequestLineBytes or the line does not parse. A request line cut off by
// EOF is parsed as-is. Other errors come straight from r.
func ReadRequest(r io.Reader) (*Request, error) {
	br := bufio.NewReaderSize(io.LimitReader(r, MaxRequestLineBytes), 1024)

	line, err := br.ReadString('\n')
	if err != nil {
		if !errors.Is(err, io.EOF) {
			return nil, err
		}
		if line == "" {
			return nil, ErrEmptyRequest
		}
		if len(line) >= MaxRequestLineBytes {
			return nil, fmt.Errorf("request line exceeds %d bytes: %w", MaxRequestLineBytes, ErrMalformedRequest)
		}
	}

	return ParseRequestLine(line)
}

// ParseRequestLine parses "METHOD PATH [VERSION]".
//
// The path is returned raw: no percent-decoding and no cleaning. Traversal
// checks belong to the resolver.
func ParseRequestLine(line string) (*Request, error) {
	fields := strings.Fields(strings.TrimRight(line, "\r\n"))
	if len(fields) < 2 || len(fields) > 3 {
		return nil, fmt.Errorf("%q: %w", truncate(line, 64), ErrMalformedRequest)
	}

	req := &Request{
		Method: fields[0],
		Path:   fields[1],
	}
	if len(fields) == 3 {
		req.Version = fields[2]
	}
	return req, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

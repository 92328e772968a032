package framework

import (
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"time"
)

// Response is a parsed HTTP/1.1 response read off a raw connection.
type Response struct {
	Status  int
	Headers map[string]string
	Body    string
}

// Do writes raw to a fresh connection to addr and reads until the server
// closes it. An empty response (the server hung up without answering) is
// returned as nil with no error.
func Do(addr, raw string) (*Response, error) {
	conn, err := net.DialTimeout("tcp", addr, 2*time.Second)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	defer func() { _ = conn.Close() }()

	if err := conn.SetDeadline(time.Now().Add(30 * time.Second)); err != nil {
		return nil, err
	}
	if _, err := io.WriteString(conn, raw); err != nil {
		return nil, fmt.Errorf("write request: %w", err)
	}

	data, err := io.ReadAll(conn)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if len(data) == 0 {
		return nil, nil
	}
	return parseResponse(data)
}

// Get sends a GET for path.
func Get(addr, path string) (*Response, error) {
	return Do(addr, "GET "+path+" HTTP/1.1\r\nHost: "+addr+"\r\n\r\n")
}

func parseResponse(data []byte) (*Response, error) {
	head, body, ok := strings.Cut(string(data), "\r\n\r\n")
	if !ok {
		return nil, fmt.Errorf("no header terminator in %q", data)
	}

	lines := strings.Split(head, "\r\n")
	fields := strings.SplitN(lines[0], " ", 3)
	if len(fields) < 2 || fields[0] != "HTTP/1.1" {
		return nil, fmt.Errorf("bad status line %q", lines[0])
	}
	status, err := strconv.Atoi(fields[1])
	if err != nil {
		return nil, fmt.Errorf("bad status code in %q: %w", lines[0], err)
	}

	headers := make(map[string]string, len(lines)-1)
	for _, line := range lines[1:] {
		name, value, ok := strings.Cut(line, ": ")
		if !ok {
			return nil, fmt.Errorf("bad header line %q", line)
		}
		headers[name] = value
	}

	return &Response{Status: status, Headers: headers, Body: body}, nil
}

package http

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/google/uuid"
	"github.com/marmos91/dittohttp/internal/logger"
	"github.com/marmos91/dittohttp/internal/protocol/httpwire"
	"github.com/marmos91/dittohttp/pkg/metrics"
	"github.com/marmos91/dittohttp/pkg/resolver"
)

// HTTPConnection handles the single request carried by one TCP connection.
type HTTPConnection struct {
	server *HTTPAdapter
	conn   net.Conn

	// id tags every log line for this connection
	id string
}

func NewHTTPConnection(server *HTTPAdapter, conn net.Conn) *HTTPConnection {
	return &HTTPConnection{
		server: server,
		conn:   conn,
		id:     uuid.NewString(),
	}
}

// Serve reads one request, writes one response and closes the connection.
//
// No error escapes: every failure is turned into a 404, a 429 or (for a
// client that sent nothing) no response. Panics are recovered so a single
// connection cannot take the server down.
func (c *HTTPConnection) Serve(ctx context.Context) {
	start := time.Now()
	clientAddr := c.conn.RemoteAddr().String()

	defer func() {
		if r := recover(); r != nil {
			logger.Error("[%s] Panic in connection handler from %s: %v", c.id, clientAddr, r)
		}
		_ = c.conn.Close()
	}()

	resp, outcome, err := c.handle(ctx)
	status := httpwire.StatusOK
	if err != nil {
		status, outcome = classify(err)
		logger.Debug("[%s] %s: %v", c.id, clientAddr, err)
		if status != 0 {
			resp = httpwire.StatusResponse(status)
		}
	}

	if resp != nil {
		if err := c.writeResponse(resp); err != nil {
			logger.Warn("[%s] Failed to write response to %s: %v", c.id, clientAddr, err)
			status, outcome = 0, metrics.OutcomeIOFailure
		}
	}

	c.server.metrics.RecordRequest(status, outcome, time.Since(start))
}

// handle runs the request through rate limiting, method check, resolution,
// the simulated delay, visit recording and rendering, in that order.
//
// Returns the response to send and its outcome label, or an error to be
// classified by the caller.
func (c *HTTPConnection) handle(ctx context.Context) (*httpwire.Response, string, error) {
	s := c.server

	if s.config.ReadTimeout > 0 {
		if err := c.conn.SetReadDeadline(time.Now().Add(s.config.ReadTimeout)); err != nil {
			return nil, "", fmt.Errorf("set read deadline: %w: %w", ErrIOFailure, errNoResponse)
		}
	}

	req, err := httpwire.ReadRequest(c.conn)
	if err != nil {
		if errors.Is(err, httpwire.ErrMalformedRequest) {
			return nil, "", err
		}
		return nil, "", fmt.Errorf("read request: %w: %w: %w", ErrIOFailure, errNoResponse, err)
	}

	client := clientHost(c.conn.RemoteAddr())
	if !s.limiter.Admit(client) {
		logger.Info("Rate limit exceeded for %s", client)
		s.metrics.RecordRateLimited()
		return nil, "", fmt.Errorf("client %s: %w", client, ErrRateLimitExceeded)
	}

	if req.Method != "GET" {
		return nil, "", fmt.Errorf("%s %s: %w", req.Method, req.Path, ErrUnsupportedMethod)
	}

	res, err := s.resolver.Resolve(req.Path)
	if err != nil {
		return nil, "", err
	}

	if s.config.SimulatedDelay > 0 {
		select {
		case <-time.After(s.config.SimulatedDelay):
		case <-ctx.Done():
			return nil, "", fmt.Errorf("abandoned during processing: %w: %w", errNoResponse, ctx.Err())
		}
	}

	if res.Kind != resolver.Missing {
		n := s.counters.RecordVisit(res.Path)
		s.metrics.RecordVisit()
		logger.Debug("[%s] Updated %s to %d", c.id, res.Path, n)
	}

	switch res.Kind {
	case resolver.Directory:
		listing, err := s.buildListing(res, req.Path)
		if err != nil {
			return nil, "", err
		}
		resp, err := httpwire.ListingResponse(listing)
		if err != nil {
			return nil, "", fmt.Errorf("%w: %w", ErrIOFailure, err)
		}
		return resp, metrics.OutcomeListing, nil

	case resolver.File:
		resp, err := httpwire.FileResponse(res.Path)
		if err != nil {
			if errors.Is(err, ErrUnsupportedMediaType) {
				return nil, "", err
			}
			return nil, "", fmt.Errorf("%w: %w", ErrIOFailure, err)
		}
		return resp, metrics.OutcomeFile, nil

	default:
		return nil, "", fmt.Errorf("%s: %w", req.Path, ErrResourceMissing)
	}
}

// writeResponse writes resp in one call under the write deadline.
func (c *HTTPConnection) writeResponse(resp *httpwire.Response) error {
	if c.server.config.WriteTimeout > 0 {
		if err := c.conn.SetWriteDeadline(time.Now().Add(c.server.config.WriteTimeout)); err != nil {
			return fmt.Errorf("set write deadline: %w", err)
		}
	}

	n, err := resp.WriteTo(c.conn)
	c.server.metrics.RecordBytesSent(int(n))
	if err != nil {
		return fmt.Errorf("write response: %w", err)
	}
	return nil
}

// clientHost returns the host part of addr; the rate limiter keys on it so
// all connections from one machine share a window.
func clientHost(addr net.Addr) string {
	if tcp, ok := addr.(*net.TCPAddr); ok {
		return tcp.IP.String()
	}
	host, _, err := net.SplitHostPort(addr.String())
	if err != nil {
		return addr.String()
	}
	return host
}

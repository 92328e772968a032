package http

import (
	"errors"

	"github.com/marmos91/dittohttp/internal/protocol/httpwire"
	"github.com/marmos91/dittohttp/pkg/metrics"
	"github.com/marmos91/dittohttp/pkg/resolver"
)

// Request failure kinds.
//
// Handlers wrap these with context and the connection maps them onto the
// wire with errors.Is. Clients only ever see 404 or 429; the kind itself is
// kept for logs and as the metrics outcome label.
//
//	resp, err := c.handle(ctx)
//	if errors.Is(err, ErrRateLimitExceeded) {
//	    // 429
//	}
var (
	// ErrMalformedRequest: the request line did not parse. Sent as 404.
	ErrMalformedRequest = httpwire.ErrMalformedRequest

	// ErrUnsupportedMethod: any method other than GET. Sent as 404.
	ErrUnsupportedMethod = errors.New("unsupported method")

	// ErrRateLimitExceeded: the client is over its window. Sent as 429.
	ErrRateLimitExceeded = errors.New("rate limit exceeded")

	// ErrPathRejected: the path contains a ".." segment. Sent as 404.
	ErrPathRejected = resolver.ErrPathRejected

	// ErrResourceMissing: nothing exists at the resolved path. Sent as 404.
	ErrResourceMissing = errors.New("resource missing")

	// ErrUnsupportedMediaType: the file exists but its type is not served.
	// Sent as 404, indistinguishable from ErrResourceMissing on the wire.
	ErrUnsupportedMediaType = httpwire.ErrUnsupportedMediaType

	// ErrIOFailure: a filesystem or socket fault. Filesystem faults are sent
	// as 404; socket faults (see errNoResponse) get no response at all.
	ErrIOFailure = errors.New("i/o failure")
)

// errNoResponse marks failures where nothing should be written back, such
// as a client that hung up before sending a request line.
var errNoResponse = errors.New("connection dropped")

// classify maps a request error to the status to send (0 for none) and the
// outcome label.
func classify(err error) (status int, outcome string) {
	switch {
	case errors.Is(err, errNoResponse):
		return 0, metrics.OutcomeIOFailure
	case errors.Is(err, ErrRateLimitExceeded):
		return httpwire.StatusTooManyRequests, metrics.OutcomeRateLimited
	case errors.Is(err, ErrMalformedRequest):
		return httpwire.StatusNotFound, metrics.OutcomeMalformed
	case errors.Is(err, ErrUnsupportedMethod):
		return httpwire.StatusNotFound, metrics.OutcomeMethod
	case errors.Is(err, ErrPathRejected):
		return httpwire.StatusNotFound, metrics.OutcomeRejected
	case errors.Is(err, ErrUnsupportedMediaType):
		return httpwire.StatusNotFound, metrics.OutcomeMediaType
	case errors.Is(err, ErrResourceMissing):
		return httpwire.StatusNotFound, metrics.OutcomeMissing
	default:
		return httpwire.StatusNotFound, metrics.OutcomeIOFailure
	}
}

package metrics

import "time"

// Request outcome labels. Every request ends in exactly one of these.
const (
	OutcomeListing     = "listing"
	OutcomeFile        = "file"
	OutcomeMalformed   = "malformed"
	OutcomeRateLimited = "rate_limited"
	OutcomeMethod      = "unsupported_method"
	OutcomeRejected    = "path_rejected"
	OutcomeMissing     = "missing"
	OutcomeMediaType   = "unsupported_media_type"
	OutcomeIOFailure   = "io_failure"
)

// HTTPMetrics provides observability for the HTTP adapter.
//
// This interface is optional: if not provided to the HTTP adapter, a no-op
// implementation is used with zero overhead.
//
// Example usage:
//
//	// With metrics enabled
//	metrics.InitRegistry()
//	adapter := http.New(config, prometheus.NewHTTPMetrics())
//
//	// Without metrics (no-op)
//	adapter := http.New(config, nil)
type HTTPMetrics interface {
	// RecordRequest records a finished request.
	//
	// Parameters:
	//   - status: HTTP status written (0 when the connection was dropped)
	//   - outcome: one of the Outcome* labels
	//   - duration: time from accept to close, including the simulated delay
	RecordRequest(status int, outcome string, duration time.Duration)

	// RecordRateLimited increments the rate-limit denial counter.
	RecordRateLimited()

	// RecordVisit increments the recorded-visit counter.
	RecordVisit()

	// RecordBytesSent records bytes written to a client.
	RecordBytesSent(bytes int)

	// SetRateLimitClients updates the number of clients the limiter tracks.
	SetRateLimitClients(count int)

	// SetActiveConnections updates the current connection count.
	SetActiveConnections(count int32)

	// RecordConnectionAccepted increments the total accepted connections counter.
	RecordConnectionAccepted()

	// RecordConnectionClosed increments the total closed connections counter.
	RecordConnectionClosed()
}

// NewNoopHTTPMetrics returns an HTTPMetrics that discards everything.
func NewNoopHTTPMetrics() HTTPMetrics {
	return noopHTTPMetrics{}
}

type noopHTTPMetrics struct{}

func (noopHTTPMetrics) RecordRequest(status int, outcome string, duration time.Duration) {}
func (noopHTTPMetrics) RecordRateLimited()                                               {}
func (noopHTTPMetrics) RecordVisit()                                                     {}
func (noopHTTPMetrics) RecordBytesSent(bytes int)                                        {}
func (noopHTTPMetrics) SetRateLimitClients(count int)                                    {}
func (noopHTTPMetrics) SetActiveConnections(count int32)                                 {}
func (noopHTTPMetrics) RecordConnectionAccepted()                                        {}
func (noopHTTPMetrics) RecordConnectionClosed()                                          {}

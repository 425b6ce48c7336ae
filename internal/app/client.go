package app

import (
	"net"
	"net/http"
	"strconv"
	"time"

	"dockwatch.cycleshare.org/internal/metrics"
)

// latencyTrackingRoundTripper wraps another RoundTripper to export the
// latency of every outgoing request to Prometheus, labeled by URL, method,
// and status. Wrapping the transport instruments every call without
// touching the call sites.
type latencyTrackingRoundTripper struct {
	next http.RoundTripper
}

func (rt *latencyTrackingRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	resp, err := rt.next.RoundTrip(req)
	duration := time.Since(start).Seconds()

	status := "error"
	if err == nil && resp != nil {
		status = strconv.Itoa(resp.StatusCode)
	}

	// Normalized URL label without query params.
	safeURL := req.URL.Scheme + "://" + req.URL.Host + req.URL.Path

	metrics.OutgoingLatency.WithLabelValues(
		safeURL,
		req.Method,
		status,
	).Observe(duration)

	return resp, err
}

// NewPooledClient returns an HTTP client tuned for polling the dock feed
// every 30 seconds: generous keep-alive reuse so each poll skips the
// TCP/TLS handshake, fail-fast dial and handshake timeouts, and a global
// 10-second deadline so a wedged upstream cannot stall a refresh tick.
// The transport is instrumented with the outgoing-latency histogram.
func NewPooledClient() *http.Client {
	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout: 5 * time.Second,
	}

	instrumentedTransport := &latencyTrackingRoundTripper{next: transport}

	client := &http.Client{
		Transport: instrumentedTransport,
		Timeout:   10 * time.Second,
	}
	return client
}

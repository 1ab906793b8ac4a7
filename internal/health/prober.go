// SPDX-License-Identifier: MPL-2.0

package health

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// DefaultLivenessPath is the application framework's liveness endpoint.
const DefaultLivenessPath = "/_stcore/health"

type (
	// Prober performs a single liveness probe.
	Prober interface {
		Probe(ctx context.Context) Record
	}

	// HTTPProber probes an HTTP liveness endpoint.
	HTTPProber struct {
		client *resty.Client
		url    string
	}

	// HTTPProberOption configures an HTTPProber.
	HTTPProberOption func(*HTTPProber)
)

// WithClient overrides the HTTP client. Used in tests.
func WithClient(client *resty.Client) HTTPProberOption {
	return func(p *HTTPProber) {
		p.client = client
	}
}

// NewHTTPProber creates a prober for the liveness endpoint at the given
// address and port. Retries stay disabled on the client: the monitor's
// state machine owns retry semantics, a probe is a single attempt.
func NewHTTPProber(address string, port uint16, path string, timeout time.Duration, opts ...HTTPProberOption) *HTTPProber {
	if path == "" {
		path = DefaultLivenessPath
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	probeURL := url.URL{
		Scheme: "http",
		Host:   net.JoinHostPort(address, fmt.Sprintf("%d", port)),
		Path:   path,
	}

	p := &HTTPProber{
		client: resty.New().
			SetTimeout(timeout).
			SetRetryCount(0).
			SetHeader("User-Agent", "browserprov-healthcheck"),
		url: probeURL.String(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// URL returns the probe target.
func (p *HTTPProber) URL() string {
	return p.url
}

// Probe performs one probe attempt and classifies the result.
func (p *HTTPProber) Probe(ctx context.Context) Record {
	start := time.Now()
	resp, err := p.client.R().SetContext(ctx).Get(p.url)
	rec := Record{
		Time:    start,
		Latency: time.Since(start),
	}

	if err != nil {
		rec.Outcome = classifyProbeError(err)
		rec.Detail = err.Error()
		return rec
	}

	rec.Status = resp.StatusCode()
	if resp.IsSuccess() {
		rec.Outcome = OutcomeSuccess
		return rec
	}
	rec.Outcome = OutcomeBadStatus
	rec.Detail = fmt.Sprintf("unexpected status %d", resp.StatusCode())
	return rec
}

func classifyProbeError(err error) Outcome {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return OutcomeTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return OutcomeTimeout
	}
	return OutcomeRefused
}

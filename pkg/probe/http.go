package probe

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/fieldstack/warden/pkg/types"
)

// HTTPProber probes a web-facing service with a GET against its health
// path. Only a 2xx response within the timeout counts as healthy.
type HTTPProber struct {
	URL    string
	Client *http.Client
}

// NewHTTPProber creates an HTTP prober for the given health URL.
func NewHTTPProber(url string, timeout time.Duration) *HTTPProber {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &HTTPProber{
		URL: url,
		Client: &http.Client{
			Timeout: timeout,
		},
	}
}

// Check performs the HTTP health probe.
func (p *HTTPProber) Check(ctx context.Context) Result {
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.URL, nil)
	if err != nil {
		return unhealthy(start, fmt.Sprintf("failed to create request: %v", err))
	}

	resp, err := p.Client.Do(req)
	if err != nil {
		return unhealthy(start, fmt.Sprintf("request failed: %v", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return unhealthy(start, fmt.Sprintf("HTTP %d %s (expected 2xx)", resp.StatusCode, http.StatusText(resp.StatusCode)))
	}

	return healthy(start, fmt.Sprintf("HTTP %d %s", resp.StatusCode, http.StatusText(resp.StatusCode)))
}

// Kind returns the probe kind.
func (p *HTTPProber) Kind() types.ProbeKind {
	return types.ProbeHTTP
}

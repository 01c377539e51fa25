package upstream

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/vietddude/noor/internal/content/metrics"
	"github.com/vietddude/noor/internal/core/errclass"
)

const maxErrorBody = 512

// Config holds settings for one upstream provider.
type Config struct {
	Name      string        `yaml:"name"`
	BaseURL   string        `yaml:"base_url"`
	Timeout   time.Duration `yaml:"timeout"`
	RateLimit float64       `yaml:"rate_limit"` // requests per second, 0 = unlimited
	Burst     int           `yaml:"burst"`
}

// HealthStatus is the provider's health as reported on the health endpoint.
type HealthStatus struct {
	Name      string       `json:"name"`
	BaseURL   string       `json:"base_url"`
	Available bool         `json:"available"`
	Stats     MonitorStats `json:"stats"`
}

// HTTPProvider performs REST GET requests against one upstream.
type HTTPProvider struct {
	name       string
	baseURL    *url.URL
	httpClient *http.Client
	limiter    *rate.Limiter

	Monitor *ProviderMonitor
}

// NewHTTPProvider creates a provider for cfg.
func NewHTTPProvider(cfg Config) (*HTTPProvider, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url for %s: %w", cfg.Name, err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("base url for %s must be absolute: %q", cfg.Name, cfg.BaseURL)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}

	return &HTTPProvider{
		name:    cfg.Name,
		baseURL: base,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		limiter: rate.NewLimiter(limit, burst),
		Monitor: NewProviderMonitor(),
	}, nil
}

// GetName returns the provider's name.
func (p *HTTPProvider) GetName() string {
	return p.name
}

// IsAvailable reports whether the provider is not asking us to back off.
func (p *HTTPProvider) IsAvailable() bool {
	return p.Monitor.CheckProviderStatus() != StatusThrottled
}

// GetHealth returns the provider's health status.
func (p *HTTPProvider) GetHealth() HealthStatus {
	return HealthStatus{
		Name:      p.name,
		BaseURL:   p.baseURL.String(),
		Available: p.IsAvailable(),
		Stats:     p.Monitor.GetStats(),
	}
}

// Get fetches path (relative to the base URL) and returns the body of a 2xx
// reply. Non-2xx replies become *errclass.StatusError.
func (p *HTTPProvider) Get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	if retryAfter := p.Monitor.GetRetryAfter(); retryAfter > 0 {
		return nil, &errclass.StatusError{
			StatusCode: http.StatusTooManyRequests,
			URL:        p.baseURL.String(),
			Body:       fmt.Sprintf("provider throttled, retry after %v", retryAfter.Round(time.Second)),
		}
	}

	if err := p.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	u := p.baseURL.JoinPath(path)
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := p.httpClient.Do(req)
	if err != nil {
		p.Monitor.RecordFailure()
		metrics.UpstreamLatency.WithLabelValues(p.name, "error").Observe(time.Since(start).Seconds())
		return nil, fmt.Errorf("%s request: %w", p.name, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	latency := time.Since(start)
	metrics.UpstreamLatency.WithLabelValues(p.name, strconv.Itoa(resp.StatusCode)).Observe(latency.Seconds())
	if err != nil {
		p.Monitor.RecordFailure()
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		p.Monitor.RecordThrottle(resp.Header.Get("Retry-After"))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		p.Monitor.RecordFailure()
		if len(body) > maxErrorBody {
			body = body[:maxErrorBody]
		}
		return nil, &errclass.StatusError{
			StatusCode: resp.StatusCode,
			URL:        u.String(),
			Body:       strings.TrimSpace(string(body)),
		}
	}

	p.Monitor.RecordRequest(latency)
	return body, nil
}

// Close releases idle connections.
func (p *HTTPProvider) Close() error {
	p.httpClient.CloseIdleConnections()
	return nil
}

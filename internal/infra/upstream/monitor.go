package upstream

import (
	"strconv"
	"sync"
	"time"
)

// ProviderStatus represents the health state of a provider.
type ProviderStatus int

const (
	StatusHealthy   ProviderStatus = iota // Provider is working normally
	StatusDegraded                        // Provider is slow or failing often
	StatusThrottled                       // Provider asked us to back off
)

func (s ProviderStatus) String() string {
	switch s {
	case StatusDegraded:
		return "degraded"
	case StatusThrottled:
		return "throttled"
	default:
		return "healthy"
	}
}

// MarshalText renders the status name in JSON.
func (s ProviderStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// MonitorStats holds monitoring statistics for a provider.
type MonitorStats struct {
	Status         ProviderStatus `json:"status"`
	AverageLatency time.Duration  `json:"average_latency"`
	ThrottleCount  int            `json:"throttle_count"`
	RetryAfter     time.Duration  `json:"retry_after"`
	Requests       int            `json:"requests"`
	Failures       int            `json:"failures"`
	ErrorRate      float64        `json:"error_rate"`
}

// ProviderMonitor tracks latency, failures and throttling for one provider.
type ProviderMonitor struct {
	mu sync.RWMutex

	recentLatencies  []time.Duration
	maxLatencyWindow int

	throttleCount    int
	lastThrottleTime time.Time
	retryAfter       time.Duration

	requests int
	failures int

	slowResponseThreshold time.Duration
	degradedThreshold     float64
}

// NewProviderMonitor creates a new monitor with default settings.
func NewProviderMonitor() *ProviderMonitor {
	return &ProviderMonitor{
		recentLatencies:       make([]time.Duration, 0, 50),
		maxLatencyWindow:      50,
		slowResponseThreshold: 3 * time.Second,
		degradedThreshold:     0.3, // 30% error rate
	}
}

// RecordRequest records a successful request with its latency.
func (pm *ProviderMonitor) RecordRequest(latency time.Duration) {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	pm.requests++
	pm.recentLatencies = append(pm.recentLatencies, latency)
	if len(pm.recentLatencies) > pm.maxLatencyWindow {
		pm.recentLatencies = pm.recentLatencies[1:]
	}
}

// RecordFailure records a failed request.
func (pm *ProviderMonitor) RecordFailure() {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	pm.requests++
	pm.failures++
}

// RecordThrottle records a 429 reply. retryAfter is the raw Retry-After
// header; seconds are honoured, anything else falls back to one minute.
func (pm *ProviderMonitor) RecordThrottle(retryAfter string) {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	pm.throttleCount++
	pm.lastThrottleTime = time.Now()
	pm.retryAfter = time.Minute
	if secs, err := strconv.Atoi(retryAfter); err == nil && secs >= 0 {
		pm.retryAfter = time.Duration(secs) * time.Second
	}
}

// CheckProviderStatus returns the current status of the provider.
func (pm *ProviderMonitor) CheckProviderStatus() ProviderStatus {
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	return pm.statusLocked()
}

// GetRetryAfter returns remaining time before retry is allowed.
func (pm *ProviderMonitor) GetRetryAfter() time.Duration {
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	return pm.retryAfterLocked()
}

// GetStats returns current monitoring statistics.
func (pm *ProviderMonitor) GetStats() MonitorStats {
	pm.mu.RLock()
	defer pm.mu.RUnlock()

	stats := MonitorStats{
		Status:         pm.statusLocked(),
		AverageLatency: pm.averageLatencyLocked(),
		ThrottleCount:  pm.throttleCount,
		RetryAfter:     pm.retryAfterLocked(),
		Requests:       pm.requests,
		Failures:       pm.failures,
	}
	if pm.requests > 0 {
		stats.ErrorRate = float64(pm.failures) / float64(pm.requests)
	}
	return stats
}

func (pm *ProviderMonitor) statusLocked() ProviderStatus {
	if pm.retryAfterLocked() > 0 {
		return StatusThrottled
	}

	if pm.requests >= 10 && float64(pm.failures)/float64(pm.requests) > pm.degradedThreshold {
		return StatusDegraded
	}

	if len(pm.recentLatencies) > 10 && pm.averageLatencyLocked() > pm.slowResponseThreshold {
		return StatusDegraded
	}

	return StatusHealthy
}

func (pm *ProviderMonitor) retryAfterLocked() time.Duration {
	if pm.throttleCount == 0 {
		return 0
	}
	remaining := pm.retryAfter - time.Since(pm.lastThrottleTime)
	if remaining > 0 {
		return remaining
	}
	return 0
}

func (pm *ProviderMonitor) averageLatencyLocked() time.Duration {
	if len(pm.recentLatencies) == 0 {
		return 0
	}
	var total time.Duration
	for _, lat := range pm.recentLatencies {
		total += lat
	}
	return total / time.Duration(len(pm.recentLatencies))
}

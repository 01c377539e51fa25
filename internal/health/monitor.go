package health

import (
	"github.com/vietddude/noor/internal/content/cache"
	"github.com/vietddude/noor/internal/content/connectivity"
	"github.com/vietddude/noor/internal/content/notify"
	"github.com/vietddude/noor/internal/infra/upstream"
)

// Connectivity is the read and acknowledge side of the connectivity monitor.
type Connectivity interface {
	State() connectivity.State
	Acknowledge()
}

// CacheStats reports cache counters.
type CacheStats interface {
	Stats() cache.Stats
}

// Provider reports an upstream's health.
type Provider interface {
	GetName() string
	GetHealth() upstream.HealthStatus
}

// Notifications is the display slot.
type Notifications interface {
	Current() (notify.Notification, bool)
	Dismiss()
}

// Monitor aggregates health status from various system components.
type Monitor struct {
	connectivity  Connectivity
	cache         CacheStats
	providers     []Provider
	notifications Notifications
}

// NewMonitor creates a new health monitor.
func NewMonitor(
	conn Connectivity,
	cacheStats CacheStats,
	notifications Notifications,
	providers ...Provider,
) *Monitor {
	return &Monitor{
		connectivity:  conn,
		cache:         cacheStats,
		providers:     providers,
		notifications: notifications,
	}
}

// CheckHealth builds a report. The system is degraded while offline or
// while any provider is throttled or failing often.
func (m *Monitor) CheckHealth() HealthReport {
	report := HealthReport{
		SystemStatus: StatusHealthy,
		Connectivity: m.connectivity.State(),
		Cache:        m.cache.Stats(),
		Providers:    make(map[string]ProviderHealth, len(m.providers)),
	}

	if !report.Connectivity.Online {
		report.SystemStatus = StatusDegraded
	}

	for _, p := range m.providers {
		detail := p.GetHealth()
		ph := ProviderHealth{Status: StatusHealthy, Detail: detail}
		if !detail.Available || detail.Stats.Status != upstream.StatusHealthy {
			ph.Status = StatusDegraded
			report.SystemStatus = StatusDegraded
		}
		report.Providers[p.GetName()] = ph
	}

	if n, ok := m.notifications.Current(); ok {
		report.Notification = &n
	}

	return report
}

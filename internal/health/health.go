// Package health provides system health monitoring and status reporting.
package health

import (
	"github.com/vietddude/noor/internal/content/cache"
	"github.com/vietddude/noor/internal/content/connectivity"
	"github.com/vietddude/noor/internal/content/notify"
	"github.com/vietddude/noor/internal/infra/upstream"
)

// SystemStatus represents the overall health state of the system or a component.
type SystemStatus string

const (
	StatusHealthy  SystemStatus = "healthy"
	StatusDegraded SystemStatus = "degraded"
)

// ProviderHealth is one upstream's view in the report.
type ProviderHealth struct {
	Status SystemStatus          `json:"status"`
	Detail upstream.HealthStatus `json:"detail"`
}

// HealthReport contains the full system health report.
type HealthReport struct {
	SystemStatus SystemStatus              `json:"system_status"`
	Connectivity connectivity.State        `json:"connectivity"`
	Cache        cache.Stats               `json:"cache"`
	Providers    map[string]ProviderHealth `json:"providers"`
	Notification *notify.Notification      `json:"notification,omitempty"`
}

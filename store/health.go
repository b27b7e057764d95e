package store

// Health status values.
const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

// HealthStatus reports whether the graph store is reachable.
type HealthStatus struct {
	Status  string         `json:"status"`
	Message string         `json:"message,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

// IsHealthy returns true if the status is StatusHealthy.
func (h HealthStatus) IsHealthy() bool {
	return h.Status == StatusHealthy
}

// Healthy creates a healthy status.
func Healthy(message string) HealthStatus {
	return HealthStatus{Status: StatusHealthy, Message: message}
}

// Unhealthy creates an unhealthy status.
func Unhealthy(message string) HealthStatus {
	return HealthStatus{Status: StatusUnhealthy, Message: message}
}

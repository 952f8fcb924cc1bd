package domain

import "time"

// Component health levels, from best to worst
const (
	HealthStatusHealthy   = "healthy"
	HealthStatusDegraded  = "degraded"
	HealthStatusUnhealthy = "unhealthy"
)

var healthSeverity = map[string]int{
	HealthStatusHealthy:   0,
	HealthStatusDegraded:  1,
	HealthStatusUnhealthy: 2,
}

// WorseStatus returns the more severe of two health levels. Unknown levels rank
// as healthy.
func WorseStatus(a, b string) string {
	if healthSeverity[b] > healthSeverity[a] {
		return b
	}
	return a
}

// HealthStatus is the result of checking one component
type HealthStatus struct {
	Status    string         `json:"status"`
	Message   string         `json:"message,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// SystemHealth aggregates the components of a running engine
type SystemHealth struct {
	Status     string                  `json:"status"`
	Timestamp  time.Time               `json:"timestamp"`
	Components map[string]HealthStatus `json:"components"`
	Metrics    map[string]any          `json:"metrics,omitempty"`
	Uptime     time.Duration           `json:"uptime"`
}

// CacheStats describes the rule resolution cache. Evictions counts entries pushed
// out by newer type combinations.
type CacheStats struct {
	Hits      int64   `json:"hits"`
	Misses    int64   `json:"misses"`
	Evictions int64   `json:"evictions"`
	Size      int     `json:"size"`
	MaxSize   int     `json:"max_size"`
	HitRatio  float64 `json:"hit_ratio"`
}

// Map flattens the stats for metrics payloads
func (s CacheStats) Map() map[string]any {
	return map[string]any{
		"hits":      s.Hits,
		"misses":    s.Misses,
		"evictions": s.Evictions,
		"size":      s.Size,
		"max_size":  s.MaxSize,
		"hit_ratio": s.HitRatio,
	}
}

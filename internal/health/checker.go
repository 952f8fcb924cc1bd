// Package health aggregates the health of the document store, the resolution
// cache and the interaction engine.
package health

import (
	"context"
	"sync"
	"time"

	"github.com/freewebtopdf/block-engine/internal/domain"
)

// Component names
const (
	ComponentStorage = "storage"
	ComponentCache   = "cache"
	ComponentEngine  = "engine"
)

// EngineMonitor is the monitoring surface of the interaction engine
type EngineMonitor interface {
	HealthCheck(ctx context.Context) domain.HealthStatus
	Metrics() map[string]any
}

// SystemHealthChecker implements domain.HealthChecker
type SystemHealthChecker struct {
	store  domain.DocumentStore
	engine EngineMonitor
	cache  domain.ResolutionCache

	timeout   time.Duration
	startTime time.Time

	// results are reused for cacheTTL
	lastCheck   time.Time
	lastHealth  domain.SystemHealth
	cacheTTL    time.Duration
	healthMutex sync.Mutex
}

// NewSystemHealthChecker creates a new system health checker
func NewSystemHealthChecker(store domain.DocumentStore, engine EngineMonitor, cache domain.ResolutionCache) *SystemHealthChecker {
	return &SystemHealthChecker{
		store:     store,
		engine:    engine,
		cache:     cache,
		timeout:   5 * time.Second,
		cacheTTL:  10 * time.Second,
		startTime: time.Now(),
	}
}

// WithCacheTTL overrides how long a check result is reused
func (h *SystemHealthChecker) WithCacheTTL(ttl time.Duration) *SystemHealthChecker {
	h.cacheTTL = ttl
	return h
}

// CheckHealth checks every component and reports the worst status
func (h *SystemHealthChecker) CheckHealth(ctx context.Context) domain.SystemHealth {
	h.healthMutex.Lock()
	defer h.healthMutex.Unlock()

	if !h.lastCheck.IsZero() && time.Since(h.lastCheck) < h.cacheTTL {
		return h.lastHealth
	}

	checkCtx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	now := time.Now()
	components := make(map[string]domain.HealthStatus, 3)
	overall := domain.HealthStatusHealthy
	for _, name := range []string{ComponentStorage, ComponentCache, ComponentEngine} {
		status := h.check(checkCtx, name)
		components[name] = status
		overall = domain.WorseStatus(overall, status.Status)
	}

	h.lastCheck = now
	h.lastHealth = domain.SystemHealth{
		Status:     overall,
		Timestamp:  now,
		Components: components,
		Metrics:    h.collectMetrics(checkCtx),
		Uptime:     time.Since(h.startTime),
	}
	return h.lastHealth
}

// CheckComponent checks one component by name
func (h *SystemHealthChecker) CheckComponent(ctx context.Context, component string) domain.HealthStatus {
	checkCtx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()
	return h.check(checkCtx, component)
}

func (h *SystemHealthChecker) check(ctx context.Context, component string) domain.HealthStatus {
	switch component {
	case ComponentStorage:
		return h.store.HealthCheck(ctx)
	case ComponentCache:
		if h.cache == nil {
			return domain.HealthStatus{
				Status:    domain.HealthStatusHealthy,
				Message:   "Resolution cache is disabled",
				Timestamp: time.Now(),
			}
		}
		return h.cache.HealthCheck(ctx)
	case ComponentEngine:
		return h.engine.HealthCheck(ctx)
	}
	return domain.HealthStatus{
		Status:    domain.HealthStatusUnhealthy,
		Message:   "Unknown component",
		Timestamp: time.Now(),
		Details: map[string]any{
			"component": component,
			"error":     "Component not found",
		},
	}
}

func (h *SystemHealthChecker) collectMetrics(ctx context.Context) map[string]any {
	metrics := map[string]any{
		"storage": h.store.GetStats(ctx),
		"engine":  h.engine.Metrics(),
		"system": map[string]any{
			"uptime_seconds": time.Since(h.startTime).Seconds(),
		},
	}
	if h.cache != nil {
		metrics["cache"] = h.cache.Stats().Map()
	}
	return metrics
}

// IsHealthy reports whether every component is healthy
func (h *SystemHealthChecker) IsHealthy(ctx context.Context) bool {
	return h.CheckHealth(ctx).Status == domain.HealthStatusHealthy
}

package interaction

import (
	"context"
	"time"

	"github.com/freewebtopdf/block-engine/internal/conflict"
	"github.com/freewebtopdf/block-engine/internal/domain"
)

// AnalyzeRules reports on the active merge and conversion tables
func (m *Manager) AnalyzeRules() []conflict.Report {
	return []conflict.Report{
		conflict.NewDetector(domain.MergeStrategies).Analyze(conflict.TableMerge, m.merger.Rules(), nil),
		conflict.NewDetector(domain.ConvertStrategies).Analyze(conflict.TableConvert, m.converter.Rules(), nil),
	}
}

// HealthCheck reports the engine unhealthy without merge rules and degraded when a
// rule table has findings
func (m *Manager) HealthCheck(ctx context.Context) domain.HealthStatus {
	status := domain.HealthStatusHealthy
	message := "Interaction engine is operating normally"
	details := map[string]any{}

	findings := 0
	for _, report := range m.AnalyzeRules() {
		details[report.Table+"_rules"] = report.Count
		findings += len(report.Findings)
	}
	details["rule_findings"] = findings

	switch {
	case len(m.merger.Rules()) == 0:
		status = domain.HealthStatusUnhealthy
		message = "No merge rules are active"
	case findings > 0:
		status = domain.HealthStatusDegraded
		message = "Rule tables contain unreachable or unexecutable rules"
	}

	return domain.HealthStatus{
		Status:    status,
		Message:   message,
		Details:   details,
		Timestamp: time.Now(),
	}
}

// Metrics summarizes the interaction log for monitoring
func (m *Manager) Metrics() map[string]any {
	stats := m.GetStats()
	return map[string]any{
		"interactions":        stats.Total,
		"by_type":             stats.ByType,
		"by_result":           stats.ByResult,
		"success_rate":        stats.SuccessRate,
		"average_duration_ms": stats.AverageDuration.Milliseconds(),
		"max_history_size":    stats.MaxHistorySize,
	}
}

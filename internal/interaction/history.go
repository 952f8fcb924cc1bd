package interaction

import (
	"time"

	"github.com/freewebtopdf/block-engine/internal/domain"
)

// HistoryFilter selects entries of the interaction log. Zero fields match everything.
type HistoryFilter struct {
	Type   domain.InteractionType
	Result domain.ResultStatus
	Since  time.Time
	Until  time.Time
	Limit  int
}

func (f HistoryFilter) matches(r domain.InteractionResult) bool {
	if f.Type != "" && r.Type != f.Type {
		return false
	}
	if f.Result != "" && r.Result != f.Result {
		return false
	}
	if !f.Since.IsZero() && r.Timestamp.Before(f.Since) {
		return false
	}
	if !f.Until.IsZero() && r.Timestamp.After(f.Until) {
		return false
	}
	return true
}

// Stats aggregates the interaction log
type Stats struct {
	Total           int                            `json:"total"`
	ByType          map[domain.InteractionType]int `json:"byType"`
	ByResult        map[domain.ResultStatus]int    `json:"byResult"`
	SuccessRate     float64                        `json:"successRate"`
	AverageDuration time.Duration                  `json:"averageDuration"`
	MaxHistorySize  int                            `json:"maxHistorySize"`
}

// record appends to the bounded log, dropping the oldest entries
func (m *Manager) record(result domain.InteractionResult) {
	m.historyMu.Lock()
	defer m.historyMu.Unlock()

	m.history = append(m.history, result)
	if overflow := len(m.history) - m.maxHistory; overflow > 0 {
		m.history = append(m.history[:0:0], m.history[overflow:]...)
	}
}

// GetHistory returns matching entries oldest first. A positive Limit keeps the newest ones.
func (m *Manager) GetHistory(filter HistoryFilter) []domain.InteractionResult {
	m.historyMu.RLock()
	defer m.historyMu.RUnlock()

	out := make([]domain.InteractionResult, 0, len(m.history))
	for _, r := range m.history {
		if filter.matches(r) {
			out = append(out, r)
		}
	}
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[len(out)-filter.Limit:]
	}
	return out
}

// GetStats aggregates the whole interaction log
func (m *Manager) GetStats() Stats {
	m.historyMu.RLock()
	defer m.historyMu.RUnlock()

	stats := Stats{
		Total:          len(m.history),
		ByType:         make(map[domain.InteractionType]int),
		ByResult:       make(map[domain.ResultStatus]int),
		MaxHistorySize: m.maxHistory,
	}
	if stats.Total == 0 {
		return stats
	}

	var total time.Duration
	for _, r := range m.history {
		stats.ByType[r.Type]++
		stats.ByResult[r.Result]++
		total += r.Duration
	}
	stats.SuccessRate = float64(stats.ByResult[domain.ResultSuccess]) / float64(stats.Total)
	stats.AverageDuration = total / time.Duration(stats.Total)
	return stats
}

// ClearHistory empties the interaction log
func (m *Manager) ClearHistory() {
	m.historyMu.Lock()
	defer m.historyMu.Unlock()
	m.history = make([]domain.InteractionResult, 0, m.maxHistory)
}

package interaction

import (
	"github.com/rs/zerolog/log"

	"github.com/freewebtopdf/block-engine/internal/domain"
)

// On subscribes listener to event
func (m *Manager) On(event string, listener domain.InteractionListener) {
	if listener == nil {
		return
	}
	m.listenersMu.Lock()
	defer m.listenersMu.Unlock()
	m.listeners[event] = append(m.listeners[event], listener)
}

// emit delivers result to every listener of event. A panicking listener is
// logged and skipped.
func (m *Manager) emit(event string, result domain.InteractionResult) {
	m.listenersMu.RLock()
	listeners := make([]domain.InteractionListener, len(m.listeners[event]))
	copy(listeners, m.listeners[event])
	m.listenersMu.RUnlock()

	for i, listener := range listeners {
		m.notify(event, i, listener, result)
	}
}

func (m *Manager) notify(event string, index int, listener domain.InteractionListener, result domain.InteractionResult) {
	defer func() {
		if r := recover(); r != nil {
			log.Warn().
				Interface("panic", r).
				Str("event", event).
				Int("listener", index).
				Str("interaction_id", result.ID).
				Msg("Interaction listener failed")
		}
	}()
	listener(event, result)
}

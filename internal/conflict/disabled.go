package conflict

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"
)

// DisabledFileName is the file kept in the data directory
const DisabledFileName = ".disabled.json"

// DisabledEntry records why and when a rule was switched off
type DisabledEntry struct {
	Rule       string    `json:"rule" yaml:"rule"`
	Table      string    `json:"table,omitempty" yaml:"table,omitempty"`
	DisabledAt time.Time `json:"disabled_at" yaml:"disabled_at"`
	Reason     string    `json:"reason,omitempty" yaml:"reason,omitempty"`
}

// DisabledFile is the on-disk layout of the disabled rules file
type DisabledFile struct {
	Version   string          `json:"version"`
	UpdatedAt time.Time       `json:"updated_at"`
	Rules     []DisabledEntry `json:"rules"`
}

// DisabledRules persists the rules an operator switched off
type DisabledRules struct {
	mu       sync.RWMutex
	filePath string
	entries  map[string]DisabledEntry
}

// NewDisabledRules creates a manager backed by dataDir/.disabled.json
func NewDisabledRules(dataDir string) *DisabledRules {
	return &DisabledRules{
		filePath: filepath.Join(dataDir, DisabledFileName),
		entries:  make(map[string]DisabledEntry),
	}
}

// Path returns the backing file
func (m *DisabledRules) Path() string {
	return m.filePath
}

// Load reads the file. A missing file leaves the set empty.
func (m *DisabledRules) Load() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, err := os.ReadFile(m.filePath)
	if errors.Is(err, os.ErrNotExist) {
		m.entries = make(map[string]DisabledEntry)
		return nil
	}
	if err != nil {
		return err
	}

	var file DisabledFile
	if err := json.Unmarshal(data, &file); err != nil {
		return err
	}

	m.entries = make(map[string]DisabledEntry, len(file.Rules))
	for _, entry := range file.Rules {
		m.entries[entry.Rule] = entry
	}
	return nil
}

// Disable switches a rule off and saves the file
func (m *DisabledRules) Disable(rule, table, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries[rule] = DisabledEntry{
		Rule:       rule,
		Table:      table,
		DisabledAt: time.Now(),
		Reason:     reason,
	}
	return m.save()
}

// Enable switches a rule back on. Enabling an active rule is a no-op.
func (m *DisabledRules) Enable(rule string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.entries[rule]; !exists {
		return nil
	}
	delete(m.entries, rule)
	return m.save()
}

// IsDisabled reports whether a rule is switched off
func (m *DisabledRules) IsDisabled(rule string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, exists := m.entries[rule]
	return exists
}

// Names returns the disabled rule names, sorted
func (m *DisabledRules) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.entries))
	for name := range m.entries {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Entries returns the disabled entries sorted by rule name
func (m *DisabledRules) Entries() []DisabledEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.sortedEntries()
}

func (m *DisabledRules) sortedEntries() []DisabledEntry {
	entries := make([]DisabledEntry, 0, len(m.entries))
	for _, entry := range m.entries {
		entries = append(entries, entry)
	}
	slices.SortFunc(entries, func(a, b DisabledEntry) int {
		switch {
		case a.Rule < b.Rule:
			return -1
		case a.Rule > b.Rule:
			return 1
		}
		return 0
	})
	return entries
}

// save writes the file atomically; the caller holds the lock
func (m *DisabledRules) save() error {
	data, err := json.MarshalIndent(DisabledFile{
		Version:   "1.0",
		UpdatedAt: time.Now(),
		Rules:     m.sortedEntries(),
	}, "", "  ")
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(m.filePath), 0755); err != nil {
		return err
	}

	tempPath := m.filePath + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return err
	}
	return os.Rename(tempPath, m.filePath)
}

// Merge combines configured names with the persisted ones, without duplicates
func Merge(configured []string, persisted []string) []string {
	out := make([]string, 0, len(configured)+len(persisted))
	for _, name := range append(slices.Clone(configured), persisted...) {
		if name != "" && !slices.Contains(out, name) {
			out = append(out, name)
		}
	}
	return out
}

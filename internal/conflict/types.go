// Package conflict analyzes rule tables for duplicate names, shadowed rules and
// strategies no engine implements, and tracks operator-disabled rules.
package conflict

import "github.com/freewebtopdf/block-engine/internal/domain"

// Table names
const (
	TableMerge   = "merge"
	TableConvert = "convert"
)

// FindingKind classifies a problem in a rule table
type FindingKind string

const (
	FindingDuplicateName FindingKind = "duplicate_name"
	FindingShadowed      FindingKind = "shadowed"
	FindingUnimplemented FindingKind = "unimplemented_strategy"
	FindingEmptyTypes    FindingKind = "empty_type_set"
)

// Finding describes one problem of a rule table
type Finding struct {
	Kind    FindingKind `json:"kind" yaml:"kind"`
	Rule    string      `json:"rule" yaml:"rule"`
	Other   string      `json:"other,omitempty" yaml:"other,omitempty"`
	Message string      `json:"message" yaml:"message"`
}

// RuleWithAnalysis extends a rule with its analysis status
type RuleWithAnalysis struct {
	domain.Rule `yaml:",inline"`
	Order       int    `json:"order" yaml:"order"`
	Disabled    bool   `json:"disabled" yaml:"disabled"`
	Implemented bool   `json:"implemented" yaml:"implemented"`
	ShadowedBy  string `json:"shadowedBy,omitempty" yaml:"shadowedBy,omitempty"`
}

// Report is the analysis of one rule table, rules in resolution order
type Report struct {
	Table         string             `json:"table" yaml:"table"`
	Rules         []RuleWithAnalysis `json:"rules" yaml:"rules"`
	Findings      []Finding          `json:"findings" yaml:"findings"`
	Count         int                `json:"count" yaml:"count"`
	DisabledCount int                `json:"disabledCount" yaml:"disabledCount"`
	ShadowedCount int                `json:"shadowedCount" yaml:"shadowedCount"`
}

// Healthy reports whether the table has no findings
func (r Report) Healthy() bool {
	return len(r.Findings) == 0
}

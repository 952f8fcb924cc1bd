package conflict

import (
	"fmt"
	"slices"

	"github.com/freewebtopdf/block-engine/internal/domain"
)

// Detector finds rules that can never win resolution or cannot be executed
type Detector struct {
	implemented []domain.Strategy
}

// NewDetector creates a detector that knows which strategies an engine implements
func NewDetector(implemented []domain.Strategy) *Detector {
	return &Detector{implemented: implemented}
}

// Analyze reports on a rule table. Rules are examined in resolution order, highest
// priority first and table order among equals. Rules named in disabled are marked
// but still analyzed.
func (d *Detector) Analyze(table string, rules []domain.Rule, disabled []string) Report {
	rules = ResolutionOrder(rules)
	report := Report{
		Table:    table,
		Rules:    make([]RuleWithAnalysis, len(rules)),
		Findings: make([]Finding, 0),
		Count:    len(rules),
	}

	seen := make(map[string]int, len(rules))
	for i, rule := range rules {
		info := RuleWithAnalysis{
			Rule:        rule,
			Order:       i,
			Disabled:    slices.Contains(disabled, rule.Name),
			Implemented: slices.Contains(d.implemented, rule.Strategy),
		}
		if info.Disabled {
			report.DisabledCount++
		}

		if first, dup := seen[rule.Name]; dup {
			report.Findings = append(report.Findings, Finding{
				Kind:    FindingDuplicateName,
				Rule:    rule.Name,
				Message: fmt.Sprintf("rule %s is declared again at position %d (first at %d)", rule.Name, i, first),
			})
		} else {
			seen[rule.Name] = i
		}

		if !info.Implemented {
			report.Findings = append(report.Findings, Finding{
				Kind:    FindingUnimplemented,
				Rule:    rule.Name,
				Message: fmt.Sprintf("strategy %q is not implemented", rule.Strategy),
			})
		}

		if isEmpty(rule.SourceTypes) || isEmpty(rule.TargetTypes) {
			report.Findings = append(report.Findings, Finding{
				Kind:    FindingEmptyTypes,
				Rule:    rule.Name,
				Message: fmt.Sprintf("rule %s matches no block type", rule.Name),
			})
		}

		if shadow := d.shadowedBy(rules[:i], rule, disabled); shadow != "" {
			info.ShadowedBy = shadow
			report.ShadowedCount++
			report.Findings = append(report.Findings, Finding{
				Kind:    FindingShadowed,
				Rule:    rule.Name,
				Other:   shadow,
				Message: fmt.Sprintf("rule %s is never selected because %s matches first", rule.Name, shadow),
			})
		}

		report.Rules[i] = info
	}

	return report
}

// shadowedBy returns the name of an earlier enabled rule that wins every resolution
// rule could win, or "" when rule is reachable
func (d *Detector) shadowedBy(earlier []domain.Rule, rule domain.Rule, disabled []string) string {
	if rule.Fallback {
		return ""
	}
	for _, prev := range earlier {
		if prev.Fallback || slices.Contains(disabled, prev.Name) {
			continue
		}
		// a column group steps aside for single self-groups
		if prev.Strategy == domain.StrategyCreateColumnGroup {
			continue
		}
		if prev.Explicit && (!rule.Explicit || prev.Strategy != rule.Strategy) {
			continue
		}
		if minCount(prev) > minCount(rule) {
			continue
		}
		if prev.SourceTypes.IsSupersetOf(rule.SourceTypes) && prev.TargetTypes.IsSupersetOf(rule.TargetTypes) {
			return prev.Name
		}
	}
	return ""
}

// ResolutionOrder returns a copy of rules sorted the way resolution visits them
func ResolutionOrder(rules []domain.Rule) []domain.Rule {
	sorted := slices.Clone(rules)
	slices.SortStableFunc(sorted, func(a, b domain.Rule) int {
		return b.Priority - a.Priority
	})
	return sorted
}

func minCount(rule domain.Rule) int {
	if rule.MinSourceCount < 1 {
		return 1
	}
	return rule.MinSourceCount
}

func isEmpty(set domain.TypeSet) bool {
	return !set.IsUniverse() && len(set.Types()) == 0
}

package merger

import (
	"fmt"
	"slices"
	"strings"

	"github.com/freewebtopdf/block-engine/internal/domain"
)

// Resolver selects the merge rule for a combination of source and target types.
// Resolution depends only on its arguments, so results are memoized.
type Resolver struct {
	rules []domain.Rule
	cache domain.ResolutionCache
}

// NewResolver orders rules by priority (stable) and attaches an optional memo cache
func NewResolver(rules []domain.Rule, cache domain.ResolutionCache) *Resolver {
	sorted := make([]domain.Rule, len(rules))
	copy(sorted, rules)
	slices.SortStableFunc(sorted, func(a, b domain.Rule) int {
		return b.Priority - a.Priority
	})
	return &Resolver{rules: sorted, cache: cache}
}

// Rules returns the rules in resolution order
func (r *Resolver) Rules() []domain.Rule {
	out := make([]domain.Rule, len(r.rules))
	copy(out, r.rules)
	return out
}

// Resolve returns the winning rule, or nil when no rule applies
func (r *Resolver) Resolve(sourceTypes []domain.BlockType, targetType domain.BlockType, requestedStrategy string) *domain.Rule {
	if r.cache == nil {
		return r.resolve(sourceTypes, targetType, requestedStrategy)
	}

	key := resolutionKey(sourceTypes, targetType, requestedStrategy)
	if rule, found := r.cache.Get(key); found {
		return rule
	}
	rule := r.resolve(sourceTypes, targetType, requestedStrategy)
	r.cache.Set(key, rule)
	return rule
}

func (r *Resolver) resolve(sourceTypes []domain.BlockType, targetType domain.BlockType, requestedStrategy string) *domain.Rule {
	count := len(sourceTypes)
	// set when a specific rule covered the types but the source count ruled it out
	countRejected := false

	for i := range r.rules {
		rule := &r.rules[i]

		if rule.Explicit && requestedStrategy != string(rule.Strategy) {
			continue
		}
		if !rule.AcceptsSources(sourceTypes) || !rule.AcceptsTarget(targetType) {
			continue
		}

		if rule.Fallback {
			if countRejected {
				continue
			}
		} else {
			if rule.MinSourceCount > 0 && count < rule.MinSourceCount {
				countRejected = true
				continue
			}
			if isSelfGroup(rule, sourceTypes, targetType) {
				countRejected = true
				continue
			}
		}

		found := *rule
		return &found
	}
	return nil
}

// isSelfGroup reports a column group of a single block with itself
func isSelfGroup(rule *domain.Rule, sourceTypes []domain.BlockType, targetType domain.BlockType) bool {
	return rule.Strategy == domain.StrategyCreateColumnGroup &&
		len(sourceTypes) == 1 &&
		sourceTypes[0] == targetType
}

func resolutionKey(sourceTypes []domain.BlockType, targetType domain.BlockType, requestedStrategy string) string {
	unique := domain.UniqueTypes(sourceTypes)
	names := make([]string, len(unique))
	for i, t := range unique {
		names[i] = string(t)
	}
	slices.Sort(names)
	return fmt.Sprintf("%s>%s#%d@%s", strings.Join(names, ","), targetType, len(sourceTypes), requestedStrategy)
}

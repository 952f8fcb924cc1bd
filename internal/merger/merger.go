// Package merger merges source blocks into an existing target block. A priority
// ordered rule table picks one of the merge strategies for each source/target combination.
package merger

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/freewebtopdf/block-engine/internal/domain"
)

// UnifyMode is the options.strategy value asking heading merges to unify levels
const UnifyMode = "level_unify"

// Defaults used when Settings leaves a field at zero
const (
	DefaultSeparator     = " "
	DefaultMaxBulkBlocks = 50
)

// Settings tunes merge behaviour
type Settings struct {
	DefaultSeparator string
	MaxBulkBlocks    int
}

// Result is the Data payload of a successful merge
type Result struct {
	Rule      string          `json:"rule"`
	Strategy  domain.Strategy `json:"strategy"`
	TargetID  string          `json:"targetId"`
	Block     *domain.Block   `json:"block,omitempty"`
	Consumed  []string        `json:"consumed"`
	GroupID   string          `json:"groupId,omitempty"`
	Unified   bool            `json:"unified,omitempty"`
	Converted []string        `json:"converted,omitempty"`
}

// Merger implements domain.BlockMerger
type Merger struct {
	table    []domain.Rule
	resolver *Resolver
	settings Settings
}

// NewMerger creates a merger over rules (DefaultRules when nil). cache may be nil.
func NewMerger(rules []domain.Rule, cache domain.ResolutionCache, settings Settings) *Merger {
	if rules == nil {
		rules = DefaultRules()
	}
	if settings.DefaultSeparator == "" {
		settings.DefaultSeparator = DefaultSeparator
	}
	if settings.MaxBulkBlocks <= 0 {
		settings.MaxBulkBlocks = DefaultMaxBulkBlocks
	}

	table := make([]domain.Rule, len(rules))
	copy(table, rules)

	return &Merger{
		table:    table,
		resolver: NewResolver(rules, cache),
		settings: settings,
	}
}

// Rules returns the merge table in declaration order
func (m *Merger) Rules() []domain.Rule {
	out := make([]domain.Rule, len(m.table))
	copy(out, m.table)
	return out
}

// Resolver exposes the rule resolver
func (m *Merger) Resolver() *Resolver {
	return m.resolver
}

// ValidateMerge checks that sources can be merged into target
func (m *Merger) ValidateMerge(sources []domain.Block, target *domain.Block, opts domain.Options) domain.ValidationResult {
	rule, err := m.check(sources, target, opts)
	if err != nil {
		return domain.Invalid(err)
	}
	return domain.Valid(rule)
}

func (m *Merger) check(sources []domain.Block, target *domain.Block, opts domain.Options) (*domain.Rule, error) {
	if target == nil {
		return nil, domain.NewValidationError("Target block is required for merge", map[string]any{"field": "targetBlock"})
	}
	if len(sources) == 0 {
		return nil, domain.NewValidationError("At least one source block is required for merge", map[string]any{"field": "sourceBlocks"})
	}
	if len(sources) > m.settings.MaxBulkBlocks {
		return nil, domain.NewAppError(domain.ErrTooManyBlocks,
			fmt.Sprintf("Too many blocks to merge: %d (max %d)", len(sources), m.settings.MaxBulkBlocks), 422,
			map[string]any{"count": len(sources), "max": m.settings.MaxBulkBlocks})
	}
	if len(consumedBy(sources, *target)) == 0 {
		return nil, domain.NewValidationError("Cannot merge a block into itself", map[string]any{"block_id": target.ID})
	}

	types := domain.TypesOf(sources)
	rule := m.resolver.Resolve(types, target.Type, opts.Strategy)
	if rule == nil {
		return nil, domain.NewAppError(domain.ErrNoMatchingRule,
			fmt.Sprintf("no merge rule for %s into %s", domain.NewTypeSet(types...), target.Type), 422,
			map[string]any{"sourceTypes": domain.UniqueTypes(types), "targetType": target.Type})
	}
	return rule, nil
}

// Merge merges sources into target using the winning rule's strategy
func (m *Merger) Merge(sources []domain.Block, target domain.Block, opts domain.Options) domain.TransformResult {
	rule, err := m.check(sources, &target, opts)
	if err != nil {
		return domain.FailedTransform(err)
	}

	log.Debug().
		Str("rule", rule.Name).
		Str("strategy", string(rule.Strategy)).
		Str("target_id", target.ID).
		Int("sources", len(sources)).
		Msg("Merging blocks")

	job := &mergeJob{
		rule:     rule,
		target:   target,
		consumed: consumedBy(sources, target),
		opts:     opts,
		sep:      opts.SeparatorOr(m.settings.DefaultSeparator),
	}

	switch rule.Strategy {
	case domain.StrategyContentConcatenate:
		return job.contentConcatenate()
	case domain.StrategyAppendAsItem:
		return job.appendAsItem()
	case domain.StrategyMergeItemsOrConvert:
		return job.mergeItemsOrConvert()
	case domain.StrategyLevelUnifyOrMerge:
		return job.levelUnifyOrMerge()
	case domain.StrategyExtractTextAndMerge:
		return job.extractTextAndMerge()
	case domain.StrategyCreateColumnGroup:
		return job.createColumnGroup()
	case domain.StrategyWrapInToggle:
		return job.wrapInToggle()
	case domain.StrategyWrapInCode:
		return job.wrapInCode()
	case domain.StrategyWrapInQuote:
		return job.wrapInQuote()
	case domain.StrategyListToToggle:
		return job.listToToggle()
	case domain.StrategyMergeToggleContent:
		return job.mergeToggleContent()
	case domain.StrategyMergeCodeContent:
		return job.mergeCodeContent()
	case domain.StrategyAddToGallery:
		return job.addToGallery()
	case domain.StrategyMergeFileList:
		return job.mergeFileList()
	case domain.StrategyAddToColumn:
		return job.addToColumn()
	case domain.StrategyMergeTableRows:
		return job.mergeTableRows()
	case domain.StrategyMergePollOptions:
		return job.mergePollOptions()
	case domain.StrategyMergeBoardCards:
		return job.mergeBoardCards()
	case domain.StrategyNestInPage:
		return job.nestInPage()
	case domain.StrategyUniversalTransfer:
		return job.universalTransfer()
	}

	return domain.FailedTransform(domain.NewAppError(domain.ErrUnknownStrategy,
		fmt.Sprintf("unknown strategy %q in rule %s", rule.Strategy, rule.Name), 500,
		map[string]any{"rule": rule.Name}))
}

// consumedBy returns the sources other than target, first occurrence of each id
func consumedBy(sources []domain.Block, target domain.Block) []domain.Block {
	seen := map[string]bool{target.ID: true}
	out := make([]domain.Block, 0, len(sources))
	for _, s := range sources {
		if seen[s.ID] {
			continue
		}
		seen[s.ID] = true
		out = append(out, s)
	}
	return out
}

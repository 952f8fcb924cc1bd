package conflict

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/freewebtopdf/block-engine/internal/converter"
	"github.com/freewebtopdf/block-engine/internal/domain"
	"github.com/freewebtopdf/block-engine/internal/merger"
)

func rule(name string, src, dst domain.TypeSet, strategy domain.Strategy) domain.Rule {
	return domain.Rule{Name: name, SourceTypes: src, TargetTypes: dst, Strategy: strategy}
}

func kinds(findings []Finding) []FindingKind {
	out := make([]FindingKind, len(findings))
	for i, f := range findings {
		out[i] = f.Kind
	}
	return out
}

func TestAnalyze_DefaultTablesAreClean(t *testing.T) {
	mergeReport := NewDetector(domain.MergeStrategies).Analyze(TableMerge, merger.DefaultRules(), nil)
	assert.True(t, mergeReport.Healthy(), "%v", mergeReport.Findings)
	assert.Equal(t, len(merger.DefaultRules()), mergeReport.Count)

	convertReport := NewDetector(domain.ConvertStrategies).Analyze(TableConvert, converter.DefaultRules(), nil)
	assert.True(t, convertReport.Healthy(), "%v", convertReport.Findings)
	for _, r := range convertReport.Rules {
		assert.True(t, r.Implemented)
	}
}

func TestAnalyze_Findings(t *testing.T) {
	text := domain.NewTypeSet(domain.BlockText)
	textOrQuote := domain.NewTypeSet(domain.BlockText, domain.BlockQuote)
	d := NewDetector(domain.MergeStrategies)

	tests := []struct {
		name     string
		rules    []domain.Rule
		disabled []string
		expected []FindingKind
	}{
		{
			name: "broader rule first shadows narrower",
			rules: []domain.Rule{
				rule("BROAD", textOrQuote, textOrQuote, domain.StrategyContentConcatenate),
				rule("NARROW", text, text, domain.StrategyContentConcatenate),
			},
			expected: []FindingKind{FindingShadowed},
		},
		{
			name: "narrower rule first is fine",
			rules: []domain.Rule{
				rule("NARROW", text, text, domain.StrategyContentConcatenate),
				rule("BROAD", textOrQuote, textOrQuote, domain.StrategyContentConcatenate),
			},
		},
		{
			name: "disabled shadower does not count",
			rules: []domain.Rule{
				rule("BROAD", textOrQuote, textOrQuote, domain.StrategyContentConcatenate),
				rule("NARROW", text, text, domain.StrategyContentConcatenate),
			},
			disabled: []string{"BROAD"},
		},
		{
			name: "explicit rule only shadows its own strategy",
			rules: []domain.Rule{
				{Name: "WRAP", SourceTypes: domain.AnyType(), TargetTypes: domain.AnyType(), Strategy: domain.StrategyWrapInCode, Explicit: true},
				rule("TEXT", text, text, domain.StrategyContentConcatenate),
			},
		},
		{
			name: "higher minimum count does not shadow",
			rules: []domain.Rule{
				{Name: "MANY", SourceTypes: textOrQuote, TargetTypes: textOrQuote, Strategy: domain.StrategyContentConcatenate, MinSourceCount: 3},
				rule("ANY", text, text, domain.StrategyContentConcatenate),
			},
		},
		{
			name: "duplicate name",
			rules: []domain.Rule{
				rule("SAME", text, text, domain.StrategyContentConcatenate),
				rule("SAME", domain.NewTypeSet(domain.BlockQuote), text, domain.StrategyContentConcatenate),
			},
			expected: []FindingKind{FindingDuplicateName},
		},
		{
			name:     "unimplemented strategy",
			rules:    []domain.Rule{rule("ODD", text, text, domain.StrategyPreserveContent)},
			expected: []FindingKind{FindingUnimplemented},
		},
		{
			name:     "empty type set",
			rules:    []domain.Rule{rule("NONE", domain.NewTypeSet(), text, domain.StrategyContentConcatenate)},
			expected: []FindingKind{FindingEmptyTypes},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report := d.Analyze(TableMerge, tt.rules, tt.disabled)
			assert.ElementsMatch(t, tt.expected, kinds(report.Findings))
			assert.Equal(t, len(tt.disabled), report.DisabledCount)
		})
	}
}

func TestAnalyze_MarksShadowedRule(t *testing.T) {
	text := domain.NewTypeSet(domain.BlockText)
	report := NewDetector(domain.MergeStrategies).Analyze(TableMerge, []domain.Rule{
		rule("FIRST", domain.AnyType(), text, domain.StrategyContentConcatenate),
		rule("SECOND", text, text, domain.StrategyContentConcatenate),
		{Name: "LAST", SourceTypes: domain.AnyType(), TargetTypes: domain.AnyType(), Strategy: domain.StrategyUniversalTransfer, Fallback: true},
	}, []string{"LAST"})

	require.Len(t, report.Rules, 3)
	assert.Equal(t, "FIRST", report.Rules[1].ShadowedBy)
	assert.Empty(t, report.Rules[2].ShadowedBy)
	assert.True(t, report.Rules[2].Disabled)
	assert.Equal(t, 1, report.ShadowedCount)
	assert.Equal(t, 2, report.Rules[2].Order)
}

func TestResolutionOrder_MatchesMerger(t *testing.T) {
	expected := merger.NewResolver(merger.DefaultRules(), nil).Rules()
	actual := ResolutionOrder(merger.DefaultRules())
	require.Len(t, actual, len(expected))
	for i := range expected {
		assert.Equal(t, expected[i].Name, actual[i].Name)
	}
}

func TestDisabledRules_Persistence(t *testing.T) {
	dir := t.TempDir()
	m := NewDisabledRules(dir)
	require.NoError(t, m.Load())
	assert.Empty(t, m.Names())

	require.NoError(t, m.Disable(merger.RuleUniversal, TableMerge, "too loose"))
	require.NoError(t, m.Disable(converter.RuleBlocksToColumns, TableConvert, ""))
	require.NoError(t, m.Enable("NOT_DISABLED"))
	assert.True(t, m.IsDisabled(merger.RuleUniversal))

	_, err := os.Stat(filepath.Join(dir, DisabledFileName))
	require.NoError(t, err)

	reloaded := NewDisabledRules(dir)
	require.NoError(t, reloaded.Load())
	assert.Equal(t, []string{converter.RuleBlocksToColumns, merger.RuleUniversal}, reloaded.Names())
	assert.Equal(t, "too loose", reloaded.Entries()[1].Reason)

	require.NoError(t, reloaded.Enable(merger.RuleUniversal))
	assert.False(t, reloaded.IsDisabled(merger.RuleUniversal))
}

func TestDisabledRules_CorruptFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, DisabledFileName), []byte("{not json"), 0644))
	assert.Error(t, NewDisabledRules(dir).Load())
}

func TestMerge(t *testing.T) {
	assert.Equal(t, []string{"A", "B", "C"}, Merge([]string{"A", "", "B"}, []string{"B", "C", "A"}))
	assert.Empty(t, Merge(nil, nil))
}

var typeGen = gen.IntRange(0, len(domain.AllBlockTypes)-1).Map(func(i int) domain.BlockType {
	return domain.AllBlockTypes[i]
})

// Feature: github.com/freewebtopdf/block-engine, Property 16: Only the first of a pair of identical rules is reachable
func TestProperty_IdenticalRulesShadow(t *testing.T) {
	properties := gopter.NewProperties(nil)
	d := NewDetector(domain.MergeStrategies)

	properties.Property("the second of two identical rules is shadowed by the first", prop.ForAll(
		func(src, dst []domain.BlockType) bool {
			first := rule("FIRST", domain.NewTypeSet(src...), domain.NewTypeSet(dst...), domain.StrategyContentConcatenate)
			second := rule("SECOND", domain.NewTypeSet(src...), domain.NewTypeSet(dst...), domain.StrategyContentConcatenate)

			report := d.Analyze(TableMerge, []domain.Rule{first, second}, nil)
			return report.Rules[1].ShadowedBy == "FIRST" && report.Rules[0].ShadowedBy == ""
		},
		gen.SliceOfN(3, typeGen),
		gen.SliceOfN(2, typeGen),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

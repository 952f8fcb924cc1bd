package converter

import (
	"cmp"
	"regexp"
	"slices"

	"github.com/freewebtopdf/block-engine/internal/content"
	"github.com/freewebtopdf/block-engine/internal/domain"
)

const patternConfidence = 0.9

type pattern struct {
	re     *regexp.Regexp
	target domain.BlockType
	reason string
}

// Checked in order; the first match per line wins so "- [ ]" is not also a bullet
var patterns = []pattern{
	{regexp.MustCompile(`^#\s+\S`), domain.BlockHeading1, "Text starts with a level 1 markdown heading"},
	{regexp.MustCompile(`^##\s+\S`), domain.BlockHeading2, "Text starts with a level 2 markdown heading"},
	{regexp.MustCompile(`^#{3,6}\s+\S`), domain.BlockHeading3, "Text starts with a level 3 markdown heading"},
	{regexp.MustCompile(`^\s*(?:[-*+•]\s+)?\[[ xX]\]\s`), domain.BlockCheckList, "Text contains checkbox markers"},
	{regexp.MustCompile(`^\s*[-*+•]\s+\S`), domain.BlockBulletList, "Text contains bullet markers"},
	{regexp.MustCompile(`^\s*\d+[.)]\s+\S`), domain.BlockNumberedList, "Text contains numbered markers"},
	{regexp.MustCompile(`^>\s?\S`), domain.BlockQuote, "Text starts with a quote marker"},
}

type fallback struct {
	target     domain.BlockType
	confidence float64
	reason     string
}

var defaultSuggestions = map[domain.BlockType][]fallback{
	domain.BlockText: {
		{domain.BlockHeading2, 0.7, "Short text often works as a section heading"},
		{domain.BlockHeading1, 0.6, "Use as a page title"},
		{domain.BlockBulletList, 0.6, "Turn lines into bullet points"},
		{domain.BlockQuote, 0.5, "Highlight as a quote"},
		{domain.BlockCheckList, 0.5, "Track lines as tasks"},
	},
	domain.BlockHeading1: {
		{domain.BlockText, 0.8, "Demote to a paragraph"},
		{domain.BlockHeading2, 0.6, "Lower the heading level"},
	},
	domain.BlockHeading2: {
		{domain.BlockText, 0.8, "Demote to a paragraph"},
		{domain.BlockHeading1, 0.6, "Raise the heading level"},
		{domain.BlockHeading3, 0.6, "Lower the heading level"},
	},
	domain.BlockHeading3: {
		{domain.BlockText, 0.8, "Demote to a paragraph"},
		{domain.BlockHeading2, 0.6, "Raise the heading level"},
	},
	domain.BlockBulletList: {
		{domain.BlockNumberedList, 0.8, "Number the items"},
		{domain.BlockCheckList, 0.7, "Track items as tasks"},
		{domain.BlockText, 0.6, "Join items into a paragraph"},
	},
	domain.BlockNumberedList: {
		{domain.BlockBulletList, 0.8, "Drop the numbering"},
		{domain.BlockCheckList, 0.7, "Track items as tasks"},
		{domain.BlockText, 0.6, "Join items into a paragraph"},
	},
	domain.BlockCheckList: {
		{domain.BlockBulletList, 0.8, "Drop the checkboxes"},
		{domain.BlockNumberedList, 0.6, "Number the items"},
		{domain.BlockText, 0.5, "Join items into a paragraph"},
	},
	domain.BlockQuote: {
		{domain.BlockText, 0.8, "Remove the quote styling"},
		{domain.BlockBulletList, 0.5, "Turn lines into bullet points"},
	},
	domain.BlockCallout: {
		{domain.BlockText, 0.7, "Remove the callout styling"},
		{domain.BlockQuote, 0.6, "Show as a quote"},
	},
}

// SuggestConversions ranks the types block could be converted into.
// Only targets reachable through the conversion table are suggested.
func (c *Converter) SuggestConversions(block domain.Block) []domain.ConversionSuggestion {
	best := make(map[domain.BlockType]domain.ConversionSuggestion)
	add := func(target domain.BlockType, confidence float64, reason string) {
		if target == block.Type {
			return
		}
		if c.Resolve([]domain.BlockType{block.Type}, target) == nil {
			return
		}
		if existing, ok := best[target]; ok && existing.Confidence >= confidence {
			return
		}
		best[target] = domain.ConversionSuggestion{TargetType: target, Confidence: confidence, Reason: reason}
	}

	if line := firstLine(content.ExtractText(block)); line != "" {
		for _, p := range patterns {
			if p.re.MatchString(line) {
				add(p.target, patternConfidence, p.reason)
				break
			}
		}
	}

	for _, f := range defaultSuggestions[block.Type] {
		add(f.target, f.confidence, f.reason)
	}

	out := make([]domain.ConversionSuggestion, 0, len(best))
	for _, s := range best {
		out = append(out, s)
	}
	slices.SortFunc(out, func(a, b domain.ConversionSuggestion) int {
		if d := cmp.Compare(b.Confidence, a.Confidence); d != 0 {
			return d
		}
		return cmp.Compare(a.TargetType, b.TargetType)
	})
	return out
}

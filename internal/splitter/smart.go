package splitter

import (
	"cmp"
	"regexp"
	"slices"
	"unicode/utf8"
)

// MinPointDistance is the minimum distance, in characters, between two smart split points
const MinPointDistance = 10

// splitPattern locates candidate split points. group selects the submatch whose start
// is the split point; group 0 uses the end of the whole match.
type splitPattern struct {
	name     string
	re       *regexp.Regexp
	priority int
	group    int
}

var smartPatterns = []splitPattern{
	{name: "paragraph", re: regexp.MustCompile(`\n[ \t]*\n\s*`), priority: 10},
	{name: "numbered", re: regexp.MustCompile(`\n[ \t]*(\d+[.)]\s)`), priority: 9, group: 1},
	{name: "sentence", re: regexp.MustCompile(`[.!?。！？]["')\]]*\s+([A-Z가-힣])`), priority: 8, group: 1},
	{name: "dash", re: regexp.MustCompile(`\s[-–—]\s+`), priority: 7},
	{name: "clause", re: regexp.MustCompile(`[,;]\s+`), priority: 5},
}

type splitPoint struct {
	index    int
	priority int
}

// findSmartSplitPoints returns ascending byte offsets where text should be split
func findSmartSplitPoints(text string) []int {
	candidates := make([]splitPoint, 0)
	for _, p := range smartPatterns {
		for _, m := range p.re.FindAllStringSubmatchIndex(text, -1) {
			index := m[1]
			if p.group > 0 {
				index = m[2*p.group]
			}
			if index <= 0 || index >= len(text) {
				continue
			}
			candidates = append(candidates, splitPoint{index: index, priority: p.priority})
		}
	}

	slices.SortStableFunc(candidates, func(a, b splitPoint) int {
		if c := cmp.Compare(b.priority, a.priority); c != 0 {
			return c
		}
		return cmp.Compare(a.index, b.index)
	})

	kept := make([]int, 0, len(candidates))
	for _, candidate := range candidates {
		if tooClose(text, kept, candidate.index) {
			continue
		}
		kept = append(kept, candidate.index)
	}

	slices.Sort(kept)
	return kept
}

func tooClose(text string, kept []int, index int) bool {
	for _, k := range kept {
		lo, hi := min(k, index), max(k, index)
		if utf8.RuneCountInString(text[lo:hi]) < MinPointDistance {
			return true
		}
	}
	return false
}

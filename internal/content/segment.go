package content

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	paragraphBreak = regexp.MustCompile(`\n[ \t]*\n\s*`)
	sentenceEnd    = regexp.MustCompile(`[.!?。！？]+["')\]]*\s+`)
)

// SplitParagraphs splits text on blank-line boundaries and drops blank parts
func SplitParagraphs(text string) []string {
	return trimParts(paragraphBreak.Split(text, -1))
}

// SplitSentences splits text after sentence terminators followed by whitespace
func SplitSentences(text string) []string {
	parts := make([]string, 0)
	last := 0
	for _, loc := range sentenceEnd.FindAllStringIndex(text, -1) {
		parts = append(parts, text[last:loc[1]])
		last = loc[1]
	}
	parts = append(parts, text[last:])
	return trimParts(parts)
}

// SplitWords groups the whitespace-separated words of text into chunks of size words
func SplitWords(text string, size int) []string {
	if size <= 0 {
		size = 1
	}
	words := strings.Fields(text)
	parts := make([]string, 0, len(words)/size+1)
	for start := 0; start < len(words); start += size {
		end := min(start+size, len(words))
		parts = append(parts, strings.Join(words[start:end], " "))
	}
	return parts
}

// SplitAt partitions text at the given ascending byte offsets
func SplitAt(text string, offsets []int) []string {
	parts := make([]string, 0, len(offsets)+1)
	last := 0
	for _, off := range offsets {
		if off <= last || off >= len(text) {
			continue
		}
		parts = append(parts, text[last:off])
		last = off
	}
	return append(parts, text[last:])
}

// RuneOffsetToByte converts a character offset into a byte offset of text.
// Offsets past the end clamp to len(text).
func RuneOffsetToByte(text string, runeOffset int) int {
	if runeOffset <= 0 {
		return 0
	}
	count := 0
	for i := range text {
		if count == runeOffset {
			return i
		}
		count++
	}
	return len(text)
}

// RuneLen returns the number of characters of text
func RuneLen(text string) int {
	return utf8.RuneCountInString(text)
}

func trimParts(parts []string) []string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// Package content holds the pure text helpers shared by the converter, splitter and merger:
// plain-text extraction, list item parsing and rendering, and text segmentation.
package content

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/freewebtopdf/block-engine/internal/domain"
)

// blockNodeTypes are rich node types whose text is separated by a line break
var blockNodeTypes = map[string]bool{
	"paragraph":  true,
	"heading":    true,
	"listItem":   true,
	"list_item":  true,
	"blockquote": true,
	"codeBlock":  true,
	"code_block": true,
	"taskItem":   true,
	"hardBreak":  true,
	"hard_break": true,
	"tableRow":   true,
	"table_row":  true,
}

var (
	bulletMarker   = regexp.MustCompile(`^\s*[-*+•]\s+`)
	numberMarker   = regexp.MustCompile(`^\s*\d+[.)]\s+`)
	checkboxMarker = regexp.MustCompile(`^\s*(?:[-*+•]\s+)?\[([ xX])\]\s*`)
)

// ExtractText returns the plain text of a block: the string content as is, or the
// leaf text of the rich tree collected depth-first.
func ExtractText(block domain.Block) string {
	return ExtractContentText(block.Content)
}

// ExtractContentText returns the plain text of a content value
func ExtractContentText(c domain.Content) string {
	if !c.IsRich() {
		return c.Text
	}

	var b strings.Builder
	walk(*c.Rich, &b)
	return strings.Trim(b.String(), "\n")
}

func walk(node domain.RichNode, b *strings.Builder) {
	if node.Text != "" {
		b.WriteString(node.Text)
	}
	for _, child := range node.Content {
		walk(child, b)
	}
	if blockNodeTypes[node.Type] && b.Len() > 0 && !strings.HasSuffix(b.String(), "\n") {
		b.WriteString("\n")
	}
}

// WrapRich builds the minimal rich-content tree around a plain string
func WrapRich(text string) domain.Content {
	paragraph := domain.RichNode{Type: "paragraph"}
	if text != "" {
		paragraph.Content = []domain.RichNode{{Type: "text", Text: text}}
	}
	return domain.RichContent(domain.RichNode{
		Type:    "doc",
		Content: []domain.RichNode{paragraph},
	})
}

// ParseItems returns the list items of a block: metadata items when present,
// otherwise the non-blank lines of its text with list markers stripped.
func ParseItems(block domain.Block) []domain.ListItem {
	if len(block.Metadata.Items) > 0 {
		return block.Metadata.Clone().Items
	}
	return ParseItemsFromText(ExtractText(block))
}

// ParseItemsFromText derives list items from free text, one per non-blank line
func ParseItemsFromText(text string) []domain.ListItem {
	items := make([]domain.ListItem, 0)
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		items = append(items, parseLine(line))
	}
	return items
}

func parseLine(line string) domain.ListItem {
	if m := checkboxMarker.FindStringSubmatchIndex(line); m != nil {
		checked := line[m[2]:m[3]] != " "
		return domain.ListItem{
			Content: strings.TrimSpace(line[m[1]:]),
			Checked: &checked,
		}
	}
	if loc := bulletMarker.FindStringIndex(line); loc != nil {
		return domain.ListItem{Content: strings.TrimSpace(line[loc[1]:])}
	}
	if loc := numberMarker.FindStringIndex(line); loc != nil {
		return domain.ListItem{Content: strings.TrimSpace(line[loc[1]:])}
	}
	return domain.ListItem{Content: strings.TrimSpace(line)}
}

// ItemMarker returns the marker rendered before the item at index for a list type
func ItemMarker(listType domain.BlockType, index int, item domain.ListItem) string {
	switch listType {
	case domain.BlockNumberedList:
		return fmt.Sprintf("%d. ", index+1)
	case domain.BlockCheckList:
		if item.IsChecked() {
			return "- [x] "
		}
		return "- [ ] "
	default:
		return "- "
	}
}

// RenderItems renders items with the markers of the list type, one per line
func RenderItems(items []domain.ListItem, listType domain.BlockType) string {
	lines := make([]string, len(items))
	for i, item := range items {
		lines[i] = ItemMarker(listType, i, item) + item.Content
	}
	return strings.Join(lines, "\n")
}

// AdaptItems sets or clears the checked field depending on whether the target is a checklist
func AdaptItems(items []domain.ListItem, listType domain.BlockType) []domain.ListItem {
	out := make([]domain.ListItem, len(items))
	for i, item := range items {
		out[i] = domain.ListItem{Content: item.Content}
		if listType == domain.BlockCheckList {
			checked := item.IsChecked()
			out[i].Checked = &checked
		}
	}
	return out
}

// JoinItems joins item contents with sep
func JoinItems(items []domain.ListItem, sep string) string {
	parts := make([]string, len(items))
	for i, item := range items {
		parts[i] = item.Content
	}
	return strings.Join(parts, sep)
}

// JoinNonEmpty joins the non-blank parts with sep
func JoinNonEmpty(parts []string, sep string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}

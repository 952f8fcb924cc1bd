// Package converter changes the type of one or more blocks using a static table of
// conversion rules.
package converter

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/freewebtopdf/block-engine/internal/content"
	"github.com/freewebtopdf/block-engine/internal/domain"
)

// DefaultListSeparator joins list items when a list becomes plain text
const DefaultListSeparator = "\n"

var (
	headingMarker = regexp.MustCompile(`^#{1,6}\s+`)
	quoteMarker   = regexp.MustCompile(`(?m)^>\s?`)
)

// Result is the Data payload of a successful conversion
type Result struct {
	Rule     string         `json:"rule"`
	Strategy domain.Strategy `json:"strategy"`
	Blocks   []domain.Block `json:"blocks"`
	GroupID  string         `json:"groupId,omitempty"`
}

// Converter implements domain.BlockConverter
type Converter struct {
	rules []domain.Rule
}

// NewConverter creates a converter over the given table, DefaultRules when rules is nil
func NewConverter(rules []domain.Rule) *Converter {
	if rules == nil {
		rules = DefaultRules()
	}
	return &Converter{rules: rules}
}

// Rules returns a copy of the conversion table
func (c *Converter) Rules() []domain.Rule {
	out := make([]domain.Rule, len(c.rules))
	copy(out, c.rules)
	return out
}

// Resolve returns the first rule converting every source type into targetType
func (c *Converter) Resolve(sourceTypes []domain.BlockType, targetType domain.BlockType) *domain.Rule {
	for i := range c.rules {
		rule := &c.rules[i]
		if rule.MinSourceCount > 0 && len(sourceTypes) < rule.MinSourceCount {
			continue
		}
		if !rule.AcceptsSources(sourceTypes) || !rule.AcceptsTarget(targetType) {
			continue
		}
		found := *rule
		return &found
	}
	return nil
}

// ValidateConvert checks that a conversion of sources into targetType is legal
func (c *Converter) ValidateConvert(sources []domain.Block, targetType domain.BlockType, opts domain.Options) domain.ValidationResult {
	rule, err := c.check(sources, targetType)
	if err != nil {
		return domain.Invalid(err)
	}
	return domain.Valid(rule)
}

func (c *Converter) check(sources []domain.Block, targetType domain.BlockType) (*domain.Rule, error) {
	if len(sources) == 0 {
		return nil, domain.NewValidationError("At least one block is required for conversion", nil)
	}
	if targetType == "" {
		return nil, domain.NewValidationError("Target type is required for conversion", map[string]any{"field": "options.targetType"})
	}
	if !targetType.IsKnown() {
		return nil, domain.NewValidationError(fmt.Sprintf("Unknown target type: %s", targetType), map[string]any{"targetType": targetType})
	}

	alreadyTarget := true
	for _, b := range sources {
		if b.Type != targetType {
			alreadyTarget = false
			break
		}
	}
	if alreadyTarget {
		return nil, domain.NewValidationError(fmt.Sprintf("Block is already of type %s", targetType), map[string]any{"targetType": targetType})
	}

	types := domain.TypesOf(sources)
	rule := c.Resolve(types, targetType)
	if rule == nil {
		return nil, domain.NewAppError(domain.ErrNoMatchingRule,
			fmt.Sprintf("no compatible conversion rule from %s to %s", domain.NewTypeSet(types...), targetType),
			422, map[string]any{"sourceTypes": domain.UniqueTypes(types), "targetType": targetType})
	}
	return rule, nil
}

// Convert turns sources into targetType using the first matching rule
func (c *Converter) Convert(sources []domain.Block, targetType domain.BlockType, opts domain.Options) domain.TransformResult {
	rule, err := c.check(sources, targetType)
	if err != nil {
		return domain.FailedTransform(err)
	}

	log.Debug().
		Str("rule", rule.Name).
		Str("strategy", string(rule.Strategy)).
		Str("target_type", string(targetType)).
		Int("sources", len(sources)).
		Msg("Converting blocks")

	switch rule.Strategy {
	case domain.StrategyPreserveContent:
		return c.preserveContent(rule, sources, targetType, opts)
	case domain.StrategyConvertToListItem:
		return c.convertToListItem(rule, sources, targetType)
	case domain.StrategyExtractListContent:
		return c.extractListContent(rule, sources, targetType, opts)
	case domain.StrategyConvertListType:
		return c.convertListType(rule, sources, targetType)
	case domain.StrategyCreateColumnLayout:
		return c.createColumnLayout(rule, sources, opts)
	default:
		return domain.FailedTransform(domain.NewAppError(domain.ErrUnknownStrategy,
			fmt.Sprintf("unknown strategy %q in rule %s", rule.Strategy, rule.Name), 500,
			map[string]any{"rule": rule.Name}))
	}
}

// preserveContent re-tags every source and keeps its extracted text
func (c *Converter) preserveContent(rule *domain.Rule, sources []domain.Block, targetType domain.BlockType, opts domain.Options) domain.TransformResult {
	changes := make([]domain.Change, 0, len(sources))
	blocks := make([]domain.Block, 0, len(sources))

	for _, src := range sources {
		text := content.ExtractText(src)
		switch {
		case targetType.IsHeading():
			text = headingMarker.ReplaceAllString(text, "")
		case targetType == domain.BlockQuote:
			text = quoteMarker.ReplaceAllString(text, "")
		}

		meta := src.Metadata.Clone()
		meta.Items = nil
		if targetType == domain.BlockQuote && opts.Author != "" {
			meta.Author = opts.Author
		}

		out := domain.Block{ID: src.ID, Type: targetType, Content: domain.TextContent(text), Metadata: meta}
		blocks = append(blocks, out)
		changes = append(changes, updateOf(out))
	}

	return success(rule, blocks, changes, "")
}

// convertToListItem turns the lines of every source into items of one list.
// The first source becomes the list; the others are consumed.
func (c *Converter) convertToListItem(rule *domain.Rule, sources []domain.Block, targetType domain.BlockType) domain.TransformResult {
	items := make([]domain.ListItem, 0)
	for _, src := range sources {
		items = append(items, content.ParseItemsFromText(content.ExtractText(src))...)
	}
	items = content.AdaptItems(items, targetType)

	first := sources[0]
	meta := first.Metadata.Clone()
	meta.Items = items

	out := domain.Block{
		ID:       first.ID,
		Type:     targetType,
		Content:  domain.TextContent(content.RenderItems(items, targetType)),
		Metadata: meta,
	}

	changes := []domain.Change{updateOf(out)}
	changes = append(changes, deletesOf(sources[1:])...)
	return success(rule, []domain.Block{out}, changes, "")
}

// extractListContent joins the items of every source into one plain text block
func (c *Converter) extractListContent(rule *domain.Rule, sources []domain.Block, targetType domain.BlockType, opts domain.Options) domain.TransformResult {
	items := make([]domain.ListItem, 0)
	for _, src := range sources {
		items = append(items, content.ParseItems(src)...)
	}

	first := sources[0]
	meta := first.Metadata.Clone()
	meta.Items = nil

	out := domain.Block{
		ID:       first.ID,
		Type:     targetType,
		Content:  domain.TextContent(content.JoinItems(items, opts.SeparatorOr(DefaultListSeparator))),
		Metadata: meta,
	}

	changes := []domain.Change{updateOf(out)}
	changes = append(changes, deletesOf(sources[1:])...)
	return success(rule, []domain.Block{out}, changes, "")
}

// convertListType re-renders each list with the markers of the target list type
func (c *Converter) convertListType(rule *domain.Rule, sources []domain.Block, targetType domain.BlockType) domain.TransformResult {
	changes := make([]domain.Change, 0, len(sources))
	blocks := make([]domain.Block, 0, len(sources))

	for _, src := range sources {
		items := content.AdaptItems(content.ParseItems(src), targetType)
		meta := src.Metadata.Clone()
		meta.Items = items

		out := domain.Block{
			ID:       src.ID,
			Type:     targetType,
			Content:  domain.TextContent(content.RenderItems(items, targetType)),
			Metadata: meta,
		}
		blocks = append(blocks, out)
		changes = append(changes, updateOf(out))
	}

	return success(rule, blocks, changes, "")
}

// createColumnLayout tags each source as one column of a shared layout
func (c *Converter) createColumnLayout(rule *domain.Rule, sources []domain.Block, opts domain.Options) domain.TransformResult {
	groupID := opts.GroupID
	if groupID == "" {
		groupID = uuid.NewString()
	}

	changes := make([]domain.Change, 0, len(sources))
	blocks := make([]domain.Block, 0, len(sources))
	for i, src := range sources {
		meta := src.Metadata.Clone()
		meta.Column = &domain.ColumnInfo{
			IsColumnBlock: true,
			ColumnIndex:   i,
			TotalColumns:  len(sources),
			GroupID:       groupID,
		}

		out := src.Clone()
		out.Metadata = meta
		blocks = append(blocks, out)
		changes = append(changes, domain.UpdateChange(src.ID, "", nil, &meta))
	}

	return success(rule, blocks, changes, groupID)
}

func success(rule *domain.Rule, blocks []domain.Block, changes []domain.Change, groupID string) domain.TransformResult {
	return domain.TransformResult{
		Success: true,
		Data: Result{
			Rule:     rule.Name,
			Strategy: rule.Strategy,
			Blocks:   blocks,
			GroupID:  groupID,
		},
		Changes: changes,
	}
}

func updateOf(b domain.Block) domain.Change {
	c := b.Content
	meta := b.Metadata
	return domain.UpdateChange(b.ID, b.Type, &c, &meta)
}

func deletesOf(blocks []domain.Block) []domain.Change {
	out := make([]domain.Change, 0, len(blocks))
	for _, b := range blocks {
		out = append(out, domain.DeleteChange(b.ID))
	}
	return out
}

// firstLine returns the first non-blank line of text
func firstLine(text string) string {
	for _, line := range strings.Split(text, "\n") {
		if t := strings.TrimSpace(line); t != "" {
			return t
		}
	}
	return ""
}

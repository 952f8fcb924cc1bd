// Package splitter breaks one block into several blocks.
package splitter

import (
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/freewebtopdf/block-engine/internal/content"
	"github.com/freewebtopdf/block-engine/internal/domain"
)

// Split strategies
const (
	StrategyCursor    = "cursor_position"
	StrategyParagraph = "paragraph_split"
	StrategySentence  = "sentence_split"
	StrategyWord      = "word_split"
	StrategyListItem  = "list_item_split"
	StrategySmart     = "smart_split"
)

// Defaults used when Settings leaves a field at zero
const (
	DefaultMaxSplitParts = 20
	DefaultMinPartLength = 1
	DefaultWordsPerBlock = 5
)

var textTypes = []domain.BlockType{
	domain.BlockText, domain.BlockHeading1, domain.BlockHeading2, domain.BlockHeading3,
	domain.BlockQuote, domain.BlockCallout,
}

// supportedTypes lists the block types each strategy accepts
var supportedTypes = map[string][]domain.BlockType{
	StrategyCursor:    append(append([]domain.BlockType{domain.BlockCode}, textTypes...), domain.ListTypes...),
	StrategyParagraph: append([]domain.BlockType{domain.BlockCode}, textTypes...),
	StrategySentence:  textTypes,
	StrategyWord:      textTypes,
	StrategyListItem:  domain.ListTypes,
	StrategySmart:     []domain.BlockType{domain.BlockText, domain.BlockCallout, domain.BlockQuote},
}

// Settings bounds the blocks a split may produce
type Settings struct {
	MaxSplitParts int
	MinPartLength int
	WordsPerBlock int
}

// Result is the Data payload of a successful split
type Result struct {
	Strategy string   `json:"strategy"`
	Parts    []string `json:"parts"`
	BlockIDs []string `json:"blockIds"`
	// Truncated counts parts dropped by the MaxSplitParts cap; their text is
	// not in any resulting block
	Truncated int `json:"truncated,omitempty"`
}

// Splitter implements domain.BlockSplitter
type Splitter struct {
	settings Settings
}

// NewSplitter creates a splitter, filling unset settings with defaults
func NewSplitter(settings Settings) *Splitter {
	if settings.MaxSplitParts < 2 {
		settings.MaxSplitParts = DefaultMaxSplitParts
	}
	if settings.MinPartLength <= 0 {
		settings.MinPartLength = DefaultMinPartLength
	}
	if settings.WordsPerBlock <= 0 {
		settings.WordsPerBlock = DefaultWordsPerBlock
	}
	return &Splitter{settings: settings}
}

// DefaultStrategy returns the strategy used for t when the request names none
func DefaultStrategy(t domain.BlockType) string {
	switch {
	case t == domain.BlockText || t == domain.BlockCallout:
		return StrategySmart
	case t.IsHeading():
		return StrategySentence
	case t == domain.BlockQuote || t == domain.BlockCode:
		return StrategyParagraph
	case t.IsList():
		return StrategyListItem
	}
	return ""
}

// Supports reports whether strategy may split blocks of type t
func Supports(strategy string, t domain.BlockType) bool {
	return slices.Contains(supportedTypes[strategy], t)
}

// ValidateSplit checks that source can be split with the requested strategy
func (s *Splitter) ValidateSplit(source domain.Block, opts domain.Options) domain.ValidationResult {
	if _, err := s.check(source, opts); err != nil {
		return domain.Invalid(err)
	}
	return domain.Valid(nil)
}

func (s *Splitter) check(source domain.Block, opts domain.Options) (string, error) {
	strategy := opts.Strategy
	if strategy == "" {
		strategy = DefaultStrategy(source.Type)
		if strategy == "" {
			return "", domain.NewValidationError(fmt.Sprintf("Blocks of type %s cannot be split", source.Type), map[string]any{"type": source.Type})
		}
	}

	allowed, known := supportedTypes[strategy]
	if !known {
		return "", domain.NewValidationError(fmt.Sprintf("Unknown split strategy: %s", strategy), map[string]any{"strategy": strategy})
	}
	if !slices.Contains(allowed, source.Type) {
		return "", domain.NewValidationError(fmt.Sprintf("Strategy %s does not support blocks of type %s", strategy, source.Type), map[string]any{
			"strategy":        strategy,
			"type":            source.Type,
			"supported_types": allowed,
		})
	}

	if strategy == StrategyCursor {
		if opts.CursorPosition == nil {
			return "", domain.NewValidationError("Cursor position is required for cursor_position split", map[string]any{"field": "options.cursorPosition"})
		}
		pos := *opts.CursorPosition
		length := content.RuneLen(content.ExtractText(source))
		if pos <= 0 || pos >= length {
			return "", domain.NewValidationError(fmt.Sprintf("Cursor position %d must be inside the text (1..%d)", pos, length-1), map[string]any{
				"cursorPosition": pos,
				"length":         length,
			})
		}
	}
	return strategy, nil
}

// Split breaks source into several blocks
func (s *Splitter) Split(source domain.Block, opts domain.Options) domain.TransformResult {
	strategy, err := s.check(source, opts)
	if err != nil {
		return domain.FailedTransform(err)
	}

	log.Debug().Str("block_id", source.ID).Str("strategy", strategy).Msg("Splitting block")

	text := content.ExtractText(source)
	switch strategy {
	case StrategyCursor:
		return s.splitAtCursor(source, text, *opts.CursorPosition)
	case StrategyParagraph:
		return s.splitParts(source, strategy, content.SplitParagraphs(text), "paragraphs", opts)
	case StrategySentence:
		return s.splitParts(source, strategy, content.SplitSentences(text), "sentences", opts)
	case StrategyWord:
		size := opts.WordsPerBlock
		if size <= 0 {
			size = s.settings.WordsPerBlock
		}
		return s.splitParts(source, strategy, content.SplitWords(text, size), "word groups", opts)
	case StrategyListItem:
		items := content.ParseItems(source)
		parts := make([]string, len(items))
		for i, item := range items {
			parts[i] = item.Content
		}
		if len(parts) < 2 {
			return domain.FailedTransform(domain.NewValidationError("List has fewer than 2 items to split", map[string]any{"items": len(parts)}))
		}
		return s.finish(strategy, s.CreateMultipleSplitBlocks(source, parts, domain.BlockText, opts))
	case StrategySmart:
		return s.splitParts(source, strategy, content.SplitAt(text, findSmartSplitPoints(text)), "parts", opts)
	}

	return domain.FailedTransform(domain.NewAppError(domain.ErrUnknownStrategy, fmt.Sprintf("unknown split strategy %q", strategy), 500, nil))
}

func (s *Splitter) splitParts(source domain.Block, strategy string, parts []string, unit string, opts domain.Options) domain.TransformResult {
	kept := nonBlank(parts)
	if len(kept) < 2 {
		return domain.FailedTransform(domain.NewValidationError(fmt.Sprintf("Text has fewer than 2 %s to split", unit), map[string]any{
			"strategy": strategy,
			"parts":    len(kept),
		}))
	}
	return s.finish(strategy, s.CreateMultipleSplitBlocks(source, kept, source.Type, opts))
}

func (s *Splitter) finish(strategy string, result domain.TransformResult) domain.TransformResult {
	if data, ok := result.Data.(Result); ok {
		data.Strategy = strategy
		result.Data = data
	}
	return result
}

// splitAtCursor splits text in two at a character offset. A blank first half deletes
// the source; a blank second half creates no new block.
func (s *Splitter) splitAtCursor(source domain.Block, text string, position int) domain.TransformResult {
	offset := content.RuneOffsetToByte(text, position)
	before := strings.TrimSpace(text[:offset])
	after := strings.TrimSpace(text[offset:])

	if before == "" && after == "" {
		return domain.FailedTransform(domain.NewValidationError("Block has no text to split", map[string]any{"block_id": source.ID}))
	}

	changes := make([]domain.Change, 0, 2)
	data := Result{Strategy: StrategyCursor}

	if after != "" {
		next := s.newBlock(source, source.Type, after)
		changes = append(changes, domain.InsertChange(next, source.ID))
		data.BlockIDs = append(data.BlockIDs, next.ID)
	}

	if before == "" {
		// the insert above is anchored on the source, so the delete comes last
		changes = append(changes, domain.DeleteChange(source.ID))
		data.Parts = []string{after}
	} else {
		c := s.contentFor(source, before)
		changes = append([]domain.Change{domain.UpdateChange(source.ID, "", &c, remainingMetadata(source, before))}, changes...)
		data.BlockIDs = append([]string{source.ID}, data.BlockIDs...)
		data.Parts = []string{before}
		if after != "" {
			data.Parts = append(data.Parts, after)
		}
	}

	return domain.TransformResult{Success: true, Data: data, Changes: changes}
}

// CreateMultipleSplitBlocks turns ordered text parts into changes. Parts shorter than the
// minimum length are dropped and at most MaxSplitParts are kept. The first part updates
// the source; each further part is inserted after its predecessor.
func (s *Splitter) CreateMultipleSplitBlocks(source domain.Block, parts []string, newType domain.BlockType, opts domain.Options) domain.TransformResult {
	minLength := opts.MinPartLength
	if minLength <= 0 {
		minLength = s.settings.MinPartLength
	}
	maxParts := opts.MaxSplitParts
	if maxParts <= 0 {
		maxParts = s.settings.MaxSplitParts
	}

	kept := make([]string, 0, min(len(parts), maxParts))
	truncated := 0
	for _, p := range parts {
		trimmed := strings.TrimSpace(p)
		if content.RuneLen(trimmed) < minLength {
			continue
		}
		if len(kept) == maxParts {
			truncated++
			continue
		}
		kept = append(kept, trimmed)
	}
	if truncated > 0 {
		log.Debug().Str("block_id", source.ID).Int("truncated", truncated).Int("max_split_parts", maxParts).Msg("Split parts over the limit dropped")
	}

	if len(kept) == 0 {
		return domain.FailedTransform(domain.NewValidationError("No part meets the minimum length", map[string]any{
			"min_part_length": minLength,
			"parts":           len(parts),
		}))
	}

	changes := make([]domain.Change, 0, len(kept))
	ids := make([]string, 0, len(kept))

	first := s.contentFor(source, kept[0])
	var retype domain.BlockType
	meta := remainingMetadata(source, kept[0])
	if newType != source.Type {
		retype = newType
		m := s.pieceMetadata(source, newType, kept[0])
		meta = &m
	}
	changes = append(changes, domain.UpdateChange(source.ID, retype, &first, meta))
	ids = append(ids, source.ID)

	previous := source.ID
	for _, part := range kept[1:] {
		next := s.newBlock(source, newType, part)
		changes = append(changes, domain.InsertChange(next, previous))
		ids = append(ids, next.ID)
		previous = next.ID
	}

	return domain.TransformResult{
		Success: true,
		Data:    Result{Parts: kept, BlockIDs: ids, Truncated: truncated},
		Changes: changes,
	}
}

func (s *Splitter) newBlock(source domain.Block, t domain.BlockType, text string) domain.Block {
	return domain.Block{
		ID:       uuid.NewString(),
		Type:     t,
		Content:  s.contentFor(source, text),
		Metadata: s.pieceMetadata(source, t, text),
	}
}

// pieceMetadata is the metadata of a new block holding text. List pieces get the
// items of their own text.
func (s *Splitter) pieceMetadata(source domain.Block, t domain.BlockType, text string) domain.Metadata {
	m := s.carriedMetadata(source)
	if t.IsList() {
		m.Items = content.ParseItemsFromText(text)
	}
	return m
}

// remainingMetadata is the metadata update for a source cut down to text. Only lists
// need one, because their items would otherwise still describe the whole block.
func remainingMetadata(source domain.Block, text string) *domain.Metadata {
	if !source.Type.IsList() {
		return nil
	}
	m := source.Metadata.Clone()
	m.Items = content.ParseItemsFromText(text)
	return &m
}

// contentFor keeps the content representation of the source
func (s *Splitter) contentFor(source domain.Block, text string) domain.Content {
	if source.Content.IsRich() {
		return content.WrapRich(text)
	}
	return domain.TextContent(text)
}

// carriedMetadata is the part of the source metadata that new pieces inherit
func (s *Splitter) carriedMetadata(source domain.Block) domain.Metadata {
	return domain.Metadata{
		Language: source.Metadata.Language,
		Author:   source.Metadata.Author,
	}
}

// SuggestSplits runs each detector without producing changes and ranks the viable ones
func (s *Splitter) SuggestSplits(block domain.Block) []domain.SplitSuggestion {
	text := content.ExtractText(block)
	out := make([]domain.SplitSuggestion, 0, 4)

	if Supports(StrategyListItem, block.Type) {
		if n := len(content.ParseItems(block)); n >= 2 {
			out = append(out, domain.SplitSuggestion{
				Strategy: StrategyListItem, PartsCount: n, Confidence: 0.95,
				Description: fmt.Sprintf("Split into %d separate items", n),
			})
		}
	}
	if Supports(StrategyParagraph, block.Type) {
		if n := len(content.SplitParagraphs(text)); n >= 2 {
			out = append(out, domain.SplitSuggestion{
				Strategy: StrategyParagraph, PartsCount: n, Confidence: 0.9,
				Description: fmt.Sprintf("Split into %d paragraphs", n),
			})
		}
	}
	if Supports(StrategySentence, block.Type) {
		if n := len(content.SplitSentences(text)); n >= 2 {
			out = append(out, domain.SplitSuggestion{
				Strategy: StrategySentence, PartsCount: n, Confidence: 0.8,
				Description: fmt.Sprintf("Split into %d sentences", n),
			})
		}
	}
	if Supports(StrategySmart, block.Type) {
		parts := content.SplitAt(text, findSmartSplitPoints(text))
		if n := len(nonBlank(parts)); n >= 2 {
			out = append(out, domain.SplitSuggestion{
				Strategy: StrategySmart, PartsCount: n, Confidence: 0.7,
				Description: fmt.Sprintf("Split at %d natural break points", n-1),
			})
		}
	}

	slices.SortStableFunc(out, func(a, b domain.SplitSuggestion) int {
		switch {
		case a.Confidence > b.Confidence:
			return -1
		case a.Confidence < b.Confidence:
			return 1
		}
		return 0
	})
	return out
}

func nonBlank(parts []string) []string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			out = append(out, p)
		}
	}
	return out
}

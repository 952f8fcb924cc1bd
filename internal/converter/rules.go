package converter

import "github.com/freewebtopdf/block-engine/internal/domain"

// Rule names of the conversion table
const (
	RuleTextToHeading      = "TEXT_TO_HEADING"
	RuleHeadingToText      = "HEADING_TO_TEXT"
	RuleHeadingLevelChange = "HEADING_LEVEL_CHANGE"
	RuleTextToList         = "TEXT_TO_LIST"
	RuleListToText         = "LIST_TO_TEXT"
	RuleListTypeChange     = "LIST_TYPE_CHANGE"
	RuleTextToQuote        = "TEXT_TO_QUOTE"
	RuleQuoteToText        = "QUOTE_TO_TEXT"
	RuleBlocksToColumns    = "BLOCKS_TO_COLUMNS"
)

// DefaultRules returns the conversion table in resolution order.
// The first rule accepting every source type and the target type wins.
func DefaultRules() []domain.Rule {
	headings := domain.NewTypeSet(domain.HeadingTypes...)
	lists := domain.NewTypeSet(domain.ListTypes...)

	return []domain.Rule{
		{
			Name:        RuleTextToHeading,
			SourceTypes: domain.NewTypeSet(domain.BlockText, domain.BlockCallout, domain.BlockQuote),
			TargetTypes: headings,
			Strategy:    domain.StrategyPreserveContent,
			Description: "Turn a paragraph into a heading",
		},
		{
			Name:        RuleHeadingToText,
			SourceTypes: headings,
			TargetTypes: domain.NewTypeSet(domain.BlockText, domain.BlockCallout),
			Strategy:    domain.StrategyPreserveContent,
			Description: "Turn a heading back into a paragraph",
		},
		{
			Name:        RuleHeadingLevelChange,
			SourceTypes: headings,
			TargetTypes: headings,
			Strategy:    domain.StrategyPreserveContent,
			Description: "Change the level of a heading",
		},
		{
			Name:        RuleTextToList,
			SourceTypes: domain.NewTypeSet(domain.BlockText, domain.BlockHeading1, domain.BlockHeading2, domain.BlockHeading3, domain.BlockQuote, domain.BlockCallout),
			TargetTypes: lists,
			Strategy:    domain.StrategyConvertToListItem,
			Description: "Turn each line of text into a list item",
		},
		{
			Name:        RuleListToText,
			SourceTypes: lists,
			TargetTypes: domain.NewTypeSet(domain.BlockText, domain.BlockQuote, domain.BlockCallout),
			Strategy:    domain.StrategyExtractListContent,
			Description: "Join list items into plain text",
		},
		{
			Name:        RuleListTypeChange,
			SourceTypes: lists,
			TargetTypes: lists,
			Strategy:    domain.StrategyConvertListType,
			Description: "Switch between bullet, numbered and check lists",
		},
		{
			Name:        RuleTextToQuote,
			SourceTypes: domain.NewTypeSet(domain.BlockText, domain.BlockHeading1, domain.BlockHeading2, domain.BlockHeading3, domain.BlockCallout),
			TargetTypes: domain.NewTypeSet(domain.BlockQuote),
			Strategy:    domain.StrategyPreserveContent,
			Description: "Turn text into a quote",
		},
		{
			Name:        RuleQuoteToText,
			SourceTypes: domain.NewTypeSet(domain.BlockQuote),
			TargetTypes: domain.NewTypeSet(domain.BlockText, domain.BlockCallout),
			Strategy:    domain.StrategyPreserveContent,
			Description: "Turn a quote back into text",
		},
		{
			Name:           RuleBlocksToColumns,
			SourceTypes:    domain.AnyType(),
			TargetTypes:    domain.NewTypeSet(domain.BlockColumn),
			Strategy:       domain.StrategyCreateColumnLayout,
			MinSourceCount: 2,
			Description:    "Lay out several blocks side by side",
		},
	}
}

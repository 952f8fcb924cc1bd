package merger

import "github.com/freewebtopdf/block-engine/internal/domain"

// Rule names of the merge table
const (
	RuleWrapInToggle     = "WRAP_IN_TOGGLE"
	RuleWrapInCode       = "WRAP_IN_CODE"
	RuleWrapInQuote      = "WRAP_IN_QUOTE"
	RuleTextMerge        = "TEXT_MERGE"
	RuleHeadingMerge     = "HEADING_MERGE"
	RuleListMerge        = "LIST_MERGE"
	RuleListToToggle     = "LIST_TO_TOGGLE"
	RuleCodeMerge        = "CODE_MERGE"
	RuleQuoteMerge       = "QUOTE_MERGE"
	RuleImagesToGallery  = "IMAGES_TO_GALLERY"
	RuleFileMerge        = "FILE_MERGE"
	RuleTableMerge       = "TABLE_MERGE"
	RulePollMerge        = "POLL_MERGE"
	RuleBoardMerge       = "BOARD_MERGE"
	RuleTextToListItem   = "TEXT_TO_LIST_ITEM"
	RuleColumnAdd        = "COLUMN_ADD"
	RuleToggleMerge      = "TOGGLE_MERGE"
	RuleTextIntoText     = "TEXT_LIKE_INTO_TEXT"
	RuleMediaColumnGroup = "MEDIA_COLUMN_GROUP"
	RuleNestInPage       = "NEST_IN_PAGE"
	RuleUniversal        = "ANY_TO_ANY"
)

var (
	textual   = []domain.BlockType{domain.BlockText, domain.BlockHeading1, domain.BlockHeading2, domain.BlockHeading3, domain.BlockQuote, domain.BlockCallout}
	mediaLike = []domain.BlockType{domain.BlockImage, domain.BlockVideo, domain.BlockEmbed, domain.BlockAudio, domain.BlockBookmark, domain.BlockChart}
)

// DefaultRules returns the merge table. Resolution orders it by priority, keeping
// table order among equal priorities.
func DefaultRules() []domain.Rule {
	headings := domain.NewTypeSet(domain.HeadingTypes...)
	lists := domain.NewTypeSet(domain.ListTypes...)
	textOrLists := domain.NewTypeSet(textual...).Union(lists)

	return []domain.Rule{
		{
			Name:        RuleWrapInToggle,
			SourceTypes: domain.AnyType(),
			TargetTypes: domain.AnyType(),
			Strategy:    domain.StrategyWrapInToggle,
			Priority:    20,
			Explicit:    true,
			Description: "Wrap the target and sources in a toggle",
		},
		{
			Name:        RuleWrapInCode,
			SourceTypes: domain.AnyType(),
			TargetTypes: domain.AnyType(),
			Strategy:    domain.StrategyWrapInCode,
			Priority:    20,
			Explicit:    true,
			Description: "Wrap the target and sources in a code block",
		},
		{
			Name:        RuleWrapInQuote,
			SourceTypes: domain.AnyType(),
			TargetTypes: domain.AnyType(),
			Strategy:    domain.StrategyWrapInQuote,
			Priority:    20,
			Explicit:    true,
			Description: "Wrap the target and sources in a quote",
		},
		{
			Name:        RuleTextMerge,
			SourceTypes: domain.NewTypeSet(domain.BlockText, domain.BlockCallout),
			TargetTypes: domain.NewTypeSet(domain.BlockText, domain.BlockCallout),
			Strategy:    domain.StrategyContentConcatenate,
			Priority:    10,
			Description: "Join paragraphs",
		},
		{
			Name:        RuleHeadingMerge,
			SourceTypes: headings,
			TargetTypes: headings,
			Strategy:    domain.StrategyLevelUnifyOrMerge,
			Priority:    10,
			Description: "Join headings or unify their level",
		},
		{
			Name:        RuleListMerge,
			SourceTypes: lists,
			TargetTypes: lists,
			Strategy:    domain.StrategyMergeItemsOrConvert,
			Priority:    10,
			Description: "Append list items, converting the list type when needed",
		},
		{
			Name:        RuleListToToggle,
			SourceTypes: lists,
			TargetTypes: domain.NewTypeSet(domain.BlockToggle),
			Strategy:    domain.StrategyListToToggle,
			Priority:    10,
			Description: "Turn list items into toggle content",
		},
		{
			Name:        RuleCodeMerge,
			SourceTypes: domain.NewTypeSet(domain.BlockCode, domain.BlockText),
			TargetTypes: domain.NewTypeSet(domain.BlockCode),
			Strategy:    domain.StrategyMergeCodeContent,
			Priority:    10,
			Description: "Append code snippets",
		},
		{
			Name:        RuleQuoteMerge,
			SourceTypes: domain.NewTypeSet(domain.BlockQuote, domain.BlockText),
			TargetTypes: domain.NewTypeSet(domain.BlockQuote),
			Strategy:    domain.StrategyContentConcatenate,
			Priority:    10,
			Description: "Join quotes",
		},
		{
			Name:        RuleImagesToGallery,
			SourceTypes: domain.NewTypeSet(domain.BlockImage, domain.BlockGallery),
			TargetTypes: domain.NewTypeSet(domain.BlockImage, domain.BlockGallery),
			Strategy:    domain.StrategyAddToGallery,
			Priority:    10,
			Description: "Collect images into a gallery",
		},
		{
			Name:        RuleFileMerge,
			SourceTypes: domain.NewTypeSet(domain.BlockFile),
			TargetTypes: domain.NewTypeSet(domain.BlockFile),
			Strategy:    domain.StrategyMergeFileList,
			Priority:    10,
			Description: "Collect files into one file list",
		},
		{
			Name:        RuleTableMerge,
			SourceTypes: domain.NewTypeSet(domain.BlockTable).Union(textOrLists),
			TargetTypes: domain.NewTypeSet(domain.BlockTable),
			Strategy:    domain.StrategyMergeTableRows,
			Priority:    10,
			Description: "Append rows to a table",
		},
		{
			Name:        RulePollMerge,
			SourceTypes: domain.NewTypeSet(domain.BlockPoll).Union(textOrLists),
			TargetTypes: domain.NewTypeSet(domain.BlockPoll),
			Strategy:    domain.StrategyMergePollOptions,
			Priority:    10,
			Description: "Append poll options",
		},
		{
			Name:        RuleBoardMerge,
			SourceTypes: domain.NewTypeSet(domain.BlockBoard).Union(textOrLists),
			TargetTypes: domain.NewTypeSet(domain.BlockBoard),
			Strategy:    domain.StrategyMergeBoardCards,
			Priority:    10,
			Description: "Append board cards",
		},
		{
			Name:        RuleTextToListItem,
			SourceTypes: textOrLists,
			TargetTypes: lists,
			Strategy:    domain.StrategyAppendAsItem,
			Priority:    9,
			Description: "Append text as list items",
		},
		{
			Name:        RuleColumnAdd,
			SourceTypes: domain.AnyType(),
			TargetTypes: domain.NewTypeSet(domain.BlockColumn),
			Strategy:    domain.StrategyAddToColumn,
			Priority:    9,
			Description: "Move blocks into a column",
		},
		{
			Name:        RuleToggleMerge,
			SourceTypes: domain.AnyType(),
			TargetTypes: domain.NewTypeSet(domain.BlockToggle),
			Strategy:    domain.StrategyMergeToggleContent,
			Priority:    8,
			Description: "Nest blocks inside a toggle",
		},
		{
			Name:        RuleTextIntoText,
			SourceTypes: textOrLists.Union(domain.NewTypeSet(domain.BlockCode)),
			TargetTypes: domain.NewTypeSet(domain.BlockText, domain.BlockCallout),
			Strategy:    domain.StrategyExtractTextAndMerge,
			Priority:    8,
			Description: "Flatten structured text into a paragraph",
		},
		{
			Name:        RuleMediaColumnGroup,
			SourceTypes: domain.NewTypeSet(mediaLike...),
			TargetTypes: domain.NewTypeSet(mediaLike...),
			Strategy:    domain.StrategyCreateColumnGroup,
			Priority:    5,
			Description: "Place media side by side",
		},
		{
			Name:        RuleNestInPage,
			SourceTypes: domain.AnyType(),
			TargetTypes: domain.NewTypeSet(domain.BlockPage),
			Strategy:    domain.StrategyNestInPage,
			Priority:    2,
			Description: "Move blocks into a sub-page",
		},
		{
			Name:        RuleUniversal,
			SourceTypes: domain.AnyType(),
			TargetTypes: domain.AnyType(),
			Strategy:    domain.StrategyUniversalTransfer,
			Priority:    -1,
			Fallback:    true,
			Description: "Append the text of any block to any block",
		},
	}
}

package domain

import "time"

// InteractionType is the kind of transformation a request asks for
type InteractionType string

const (
	InteractionMerge     InteractionType = "merge"
	InteractionSplit     InteractionType = "split"
	InteractionConvert   InteractionType = "convert"
	InteractionRearrange InteractionType = "rearrange"
	InteractionGroup     InteractionType = "group"
	InteractionUngroup   InteractionType = "ungroup"
)

// InteractionTypes lists every supported interaction type
var InteractionTypes = []InteractionType{
	InteractionMerge, InteractionSplit, InteractionConvert,
	InteractionRearrange, InteractionGroup, InteractionUngroup,
}

// ResultStatus is the outcome of an interaction
type ResultStatus string

const (
	ResultSuccess   ResultStatus = "success"
	ResultFailed    ResultStatus = "failed"
	ResultPartial   ResultStatus = "partial"
	ResultCancelled ResultStatus = "cancelled"
)

// Options carries the operation-specific settings of a request.
// Unrecognized keys are dropped during decoding.
type Options struct {
	Strategy       string    `json:"strategy,omitempty" yaml:"strategy,omitempty"`
	TargetType     BlockType `json:"targetType,omitempty" yaml:"targetType,omitempty"`
	CursorPosition *int      `json:"cursorPosition,omitempty" yaml:"cursorPosition,omitempty"`
	WordsPerBlock  int       `json:"wordsPerBlock,omitempty" yaml:"wordsPerBlock,omitempty" validate:"omitempty,min=1"`
	Separator      *string   `json:"separator,omitempty" yaml:"separator,omitempty"`
	Title          string    `json:"title,omitempty" yaml:"title,omitempty"`
	Language       string    `json:"language,omitempty" yaml:"language,omitempty"`
	Author         string    `json:"author,omitempty" yaml:"author,omitempty"`
	GroupType      string    `json:"groupType,omitempty" yaml:"groupType,omitempty"`
	GroupID        string    `json:"groupId,omitempty" yaml:"groupId,omitempty"`
	AfterBlockID   string    `json:"afterBlockId,omitempty" yaml:"afterBlockId,omitempty"`
	BoardColumn    string    `json:"boardColumn,omitempty" yaml:"boardColumn,omitempty"`
	MaxSplitParts  int       `json:"maxSplitParts,omitempty" yaml:"maxSplitParts,omitempty" validate:"omitempty,min=2"`
	MinPartLength  int       `json:"minPartLength,omitempty" yaml:"minPartLength,omitempty" validate:"omitempty,min=0"`
}

// SeparatorOr returns the requested separator or def when none was given
func (o Options) SeparatorOr(def string) string {
	if o.Separator != nil {
		return *o.Separator
	}
	return def
}

// InteractionRequest is what the UI layer hands to the interaction manager
type InteractionRequest struct {
	Type         InteractionType `json:"type" yaml:"type" validate:"required,interaction_type"`
	SourceBlocks []Block         `json:"sourceBlocks" yaml:"sourceBlocks" validate:"required,min=1,dive"`
	TargetBlock  *Block          `json:"targetBlock,omitempty" yaml:"targetBlock,omitempty" validate:"omitempty"`
	Options      Options         `json:"options" yaml:"options,omitempty"`
}

// InteractionResult is the normalized outcome of every interaction
type InteractionResult struct {
	ID        string          `json:"id"`
	Type      InteractionType `json:"type"`
	Result    ResultStatus    `json:"result"`
	Data      any             `json:"data,omitempty"`
	Changes   []Change        `json:"changes"`
	Duration  time.Duration   `json:"duration"`
	Error     string          `json:"error,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// Succeeded reports whether the interaction produced applicable changes
func (r InteractionResult) Succeeded() bool {
	return r.Result == ResultSuccess
}

// Interaction events delivered to listeners
const (
	EventInteractionCompleted = "interaction:completed"
	EventInteractionError     = "interaction:error"
)

// SplitSuggestion ranks one way of splitting a block
type SplitSuggestion struct {
	Strategy    string  `json:"strategy"`
	PartsCount  int     `json:"partsCount"`
	Confidence  float64 `json:"confidence"`
	Description string  `json:"description"`
}

// ConversionSuggestion ranks one possible target type for a block
type ConversionSuggestion struct {
	TargetType BlockType `json:"targetType"`
	Confidence float64   `json:"confidence"`
	Reason     string    `json:"reason"`
}

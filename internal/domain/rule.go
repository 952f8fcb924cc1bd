package domain

import (
	"encoding/json"
	"slices"
	"strings"
)

// Strategy names the algorithm a rule applies
type Strategy string

// Convert strategies
const (
	StrategyPreserveContent    Strategy = "preserve_content"
	StrategyConvertToListItem  Strategy = "convert_to_list_item"
	StrategyExtractListContent Strategy = "extract_list_content"
	StrategyConvertListType    Strategy = "convert_list_type"
	StrategyCreateColumnLayout Strategy = "create_column_layout"
)

// Merge strategies
const (
	StrategyContentConcatenate  Strategy = "content_concatenate"
	StrategyAppendAsItem        Strategy = "append_as_item"
	StrategyMergeItemsOrConvert Strategy = "merge_items_or_convert"
	StrategyLevelUnifyOrMerge   Strategy = "level_unify_or_merge"
	StrategyExtractTextAndMerge Strategy = "extract_text_and_merge"
	StrategyCreateColumnGroup   Strategy = "create_column_group"
	StrategyWrapInToggle        Strategy = "wrap_in_toggle"
	StrategyWrapInCode          Strategy = "wrap_in_code"
	StrategyWrapInQuote         Strategy = "wrap_in_quote"
	StrategyListToToggle        Strategy = "list_to_toggle"
	StrategyMergeToggleContent  Strategy = "merge_toggle_content"
	StrategyMergeCodeContent    Strategy = "merge_code_content"
	StrategyAddToGallery        Strategy = "add_to_gallery"
	StrategyMergeFileList       Strategy = "merge_file_list"
	StrategyAddToColumn         Strategy = "add_to_column"
	StrategyMergeTableRows      Strategy = "merge_table_rows"
	StrategyMergePollOptions    Strategy = "merge_poll_options"
	StrategyMergeBoardCards     Strategy = "merge_board_cards"
	StrategyNestInPage          Strategy = "nest_in_page"
	StrategyUniversalTransfer   Strategy = "universal_content_transfer"
)

// ConvertStrategies lists the strategies the converter implements
var ConvertStrategies = []Strategy{
	StrategyPreserveContent, StrategyConvertToListItem, StrategyExtractListContent,
	StrategyConvertListType, StrategyCreateColumnLayout,
}

// MergeStrategies lists the strategies the merger implements
var MergeStrategies = []Strategy{
	StrategyContentConcatenate, StrategyAppendAsItem, StrategyMergeItemsOrConvert,
	StrategyLevelUnifyOrMerge, StrategyExtractTextAndMerge, StrategyCreateColumnGroup,
	StrategyWrapInToggle, StrategyWrapInCode, StrategyWrapInQuote, StrategyListToToggle,
	StrategyMergeToggleContent, StrategyMergeCodeContent, StrategyAddToGallery,
	StrategyMergeFileList, StrategyAddToColumn, StrategyMergeTableRows,
	StrategyMergePollOptions, StrategyMergeBoardCards, StrategyNestInPage,
	StrategyUniversalTransfer,
}

// TypeSet is a set of block types. A set holding the whole universe matches any type.
type TypeSet struct {
	any     bool
	members map[BlockType]struct{}
}

// NewTypeSet builds a set from the given types
func NewTypeSet(types ...BlockType) TypeSet {
	s := TypeSet{members: make(map[BlockType]struct{}, len(types))}
	for _, t := range types {
		s.members[t] = struct{}{}
	}
	return s
}

// AnyType returns the universal set
func AnyType() TypeSet {
	s := NewTypeSet(AllBlockTypes...)
	s.any = true
	return s
}

// Union returns a new set with the members of both sets
func (s TypeSet) Union(other TypeSet) TypeSet {
	if s.any || other.any {
		return AnyType()
	}
	out := NewTypeSet(s.Types()...)
	for t := range other.members {
		out.members[t] = struct{}{}
	}
	return out
}

// IsUniverse reports whether the set matches every type
func (s TypeSet) IsUniverse() bool {
	return s.any
}

// Contains reports whether t is a member
func (s TypeSet) Contains(t BlockType) bool {
	if s.any {
		return true
	}
	_, ok := s.members[t]
	return ok
}

// ContainsAll reports whether every type is a member
func (s TypeSet) ContainsAll(types []BlockType) bool {
	for _, t := range types {
		if !s.Contains(t) {
			return false
		}
	}
	return true
}

// IsSupersetOf reports whether every member of other is in s
func (s TypeSet) IsSupersetOf(other TypeSet) bool {
	if s.any {
		return true
	}
	if other.any {
		return false
	}
	for t := range other.members {
		if _, ok := s.members[t]; !ok {
			return false
		}
	}
	return true
}

// Types returns the members in a stable order
func (s TypeSet) Types() []BlockType {
	out := make([]BlockType, 0, len(s.members))
	for t := range s.members {
		out = append(out, t)
	}
	slices.Sort(out)
	return out
}

// String renders the set for logs and errors
func (s TypeSet) String() string {
	if s.any {
		return "[*]"
	}
	names := make([]string, 0, len(s.members))
	for _, t := range s.Types() {
		names = append(names, string(t))
	}
	return "[" + strings.Join(names, ", ") + "]"
}

// MarshalJSON renders the set as a list of type names, "*" for the universe
func (s TypeSet) MarshalJSON() ([]byte, error) {
	if s.any {
		return []byte(`["*"]`), nil
	}
	names := make([]string, 0, len(s.members))
	for _, t := range s.Types() {
		names = append(names, `"`+string(t)+`"`)
	}
	return []byte("[" + strings.Join(names, ",") + "]"), nil
}

// UnmarshalJSON reads a list of type names; "*" anywhere yields the universe
func (s *TypeSet) UnmarshalJSON(data []byte) error {
	var names []BlockType
	if err := json.Unmarshal(data, &names); err != nil {
		return err
	}
	if slices.Contains(names, "*") {
		*s = AnyType()
		return nil
	}
	*s = NewTypeSet(names...)
	return nil
}

// MarshalYAML renders the set like MarshalJSON
func (s TypeSet) MarshalYAML() (any, error) {
	if s.any {
		return []string{"*"}, nil
	}
	return s.Types(), nil
}

// Rule declares which source/target types a strategy applies to
type Rule struct {
	Name           string   `json:"name" yaml:"name"`
	SourceTypes    TypeSet  `json:"sourceTypes" yaml:"sourceTypes"`
	TargetTypes    TypeSet  `json:"targetTypes" yaml:"targetTypes"`
	Strategy       Strategy `json:"strategy" yaml:"strategy"`
	Priority       int      `json:"priority" yaml:"priority"`
	MinSourceCount int      `json:"minSourceCount,omitempty" yaml:"minSourceCount,omitempty"`

	// Explicit rules are only eligible when the request names their strategy
	Explicit bool `json:"explicit,omitempty" yaml:"explicit,omitempty"`
	// Fallback marks the universal rule tried after every specific rule
	Fallback bool `json:"fallback,omitempty" yaml:"fallback,omitempty"`

	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// AcceptsSources reports whether every source type is allowed by the rule
func (r *Rule) AcceptsSources(types []BlockType) bool {
	return r.SourceTypes.ContainsAll(types)
}

// AcceptsTarget reports whether the target type is allowed by the rule
func (r *Rule) AcceptsTarget(t BlockType) bool {
	return r.TargetTypes.Contains(t)
}

// FilterRules drops rules whose names are listed in disabled
func FilterRules(rules []Rule, disabled []string) []Rule {
	if len(disabled) == 0 {
		return rules
	}
	out := make([]Rule, 0, len(rules))
	for _, r := range rules {
		if slices.Contains(disabled, r.Name) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// TypesOf returns the types of the given blocks in order
func TypesOf(blocks []Block) []BlockType {
	out := make([]BlockType, len(blocks))
	for i, b := range blocks {
		out[i] = b.Type
	}
	return out
}

// UniqueTypes returns the distinct types in first-seen order
func UniqueTypes(types []BlockType) []BlockType {
	out := make([]BlockType, 0, len(types))
	for _, t := range types {
		if !slices.Contains(out, t) {
			out = append(out, t)
		}
	}
	return out
}

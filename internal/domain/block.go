package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// BlockType identifies the kind of content a block holds
type BlockType string

// Text-like block types
const (
	BlockText     BlockType = "text"
	BlockHeading1 BlockType = "heading1"
	BlockHeading2 BlockType = "heading2"
	BlockHeading3 BlockType = "heading3"
	BlockQuote    BlockType = "quote"
	BlockCode     BlockType = "code"
	BlockCallout  BlockType = "callout"
)

// List-like block types
const (
	BlockBulletList   BlockType = "bulletList"
	BlockNumberedList BlockType = "numberedList"
	BlockCheckList    BlockType = "checkList"
)

// Container-like block types
const (
	BlockToggle BlockType = "toggle"
	BlockColumn BlockType = "column"
	BlockPage   BlockType = "page"
)

// Media-like block types
const (
	BlockImage    BlockType = "image"
	BlockGallery  BlockType = "gallery"
	BlockFile     BlockType = "file"
	BlockVideo    BlockType = "video"
	BlockAudio    BlockType = "audio"
	BlockEmbed    BlockType = "embed"
	BlockBookmark BlockType = "bookmark"
)

// Remaining block types
const (
	BlockTable           BlockType = "table"
	BlockBoard           BlockType = "board"
	BlockPoll            BlockType = "poll"
	BlockDivider         BlockType = "divider"
	BlockEquation        BlockType = "equation"
	BlockCalendar        BlockType = "calendar"
	BlockTimeline        BlockType = "timeline"
	BlockChart           BlockType = "chart"
	BlockTableOfContents BlockType = "tableOfContents"
	BlockBreadcrumb      BlockType = "breadcrumb"
	BlockButton          BlockType = "button"
	BlockTemplate        BlockType = "template"
	BlockSynced          BlockType = "syncedBlock"
	BlockLink            BlockType = "link"
	BlockMention         BlockType = "mention"
	BlockDate            BlockType = "date"
)

// AllBlockTypes is the full type universe in declaration order
var AllBlockTypes = []BlockType{
	BlockText, BlockHeading1, BlockHeading2, BlockHeading3, BlockQuote, BlockCode, BlockCallout,
	BlockBulletList, BlockNumberedList, BlockCheckList,
	BlockToggle, BlockColumn, BlockPage,
	BlockImage, BlockGallery, BlockFile, BlockVideo, BlockAudio, BlockEmbed, BlockBookmark,
	BlockTable, BlockBoard, BlockPoll, BlockDivider, BlockEquation, BlockCalendar, BlockTimeline,
	BlockChart, BlockTableOfContents, BlockBreadcrumb, BlockButton, BlockTemplate, BlockSynced,
	BlockLink, BlockMention, BlockDate,
}

// HeadingTypes lists the heading levels from largest to smallest
var HeadingTypes = []BlockType{BlockHeading1, BlockHeading2, BlockHeading3}

// ListTypes lists the list block types
var ListTypes = []BlockType{BlockBulletList, BlockNumberedList, BlockCheckList}

// IsKnown reports whether t belongs to the type universe
func (t BlockType) IsKnown() bool {
	for _, known := range AllBlockTypes {
		if known == t {
			return true
		}
	}
	return false
}

// IsHeading reports whether t is one of the heading levels
func (t BlockType) IsHeading() bool {
	return t == BlockHeading1 || t == BlockHeading2 || t == BlockHeading3
}

// IsList reports whether t is a list type
func (t BlockType) IsList() bool {
	return t == BlockBulletList || t == BlockNumberedList || t == BlockCheckList
}

// IsTextLike reports whether t holds free text
func (t BlockType) IsTextLike() bool {
	switch t {
	case BlockText, BlockHeading1, BlockHeading2, BlockHeading3, BlockQuote, BlockCode, BlockCallout:
		return true
	}
	return false
}

// IsContainer reports whether t nests other blocks
func (t BlockType) IsContainer() bool {
	return t == BlockToggle || t == BlockColumn || t == BlockPage
}

// IsMedia reports whether t references external media
func (t BlockType) IsMedia() bool {
	switch t {
	case BlockImage, BlockGallery, BlockFile, BlockVideo, BlockAudio, BlockEmbed, BlockBookmark:
		return true
	}
	return false
}

// Block is a read-only snapshot of a document content unit
type Block struct {
	ID       string    `json:"id" yaml:"id" validate:"required"`
	Type     BlockType `json:"type" yaml:"type" validate:"required"`
	Content  Content   `json:"content" yaml:"content"`
	Metadata Metadata  `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// Clone returns a deep copy of the block
func (b Block) Clone() Block {
	return Block{
		ID:       b.ID,
		Type:     b.Type,
		Content:  b.Content.Clone(),
		Metadata: b.Metadata.Clone(),
	}
}

// RichNode is one node of a rich-content tree; leaves carry literal text
type RichNode struct {
	Type    string         `json:"type" yaml:"type"`
	Text    string         `json:"text,omitempty" yaml:"text,omitempty"`
	Attrs   map[string]any `json:"attrs,omitempty" yaml:"attrs,omitempty"`
	Content []RichNode     `json:"content,omitempty" yaml:"content,omitempty"`
}

// Clone returns a deep copy of the node tree
func (n RichNode) Clone() RichNode {
	out := RichNode{Type: n.Type, Text: n.Text}
	if n.Attrs != nil {
		out.Attrs = make(map[string]any, len(n.Attrs))
		for k, v := range n.Attrs {
			out.Attrs[k] = v
		}
	}
	if n.Content != nil {
		out.Content = make([]RichNode, len(n.Content))
		for i, child := range n.Content {
			out.Content[i] = child.Clone()
		}
	}
	return out
}

// Content holds either plain text or a rich-content tree.
// It serializes as a JSON string for plain text and as an object for rich content.
type Content struct {
	Text string
	Rich *RichNode
}

// TextContent builds plain text content
func TextContent(text string) Content {
	return Content{Text: text}
}

// RichContent builds rich content from a tree
func RichContent(root RichNode) Content {
	return Content{Rich: &root}
}

// IsRich reports whether the content is a rich-content tree
func (c Content) IsRich() bool {
	return c.Rich != nil
}

// Clone returns a deep copy of the content
func (c Content) Clone() Content {
	if c.Rich == nil {
		return Content{Text: c.Text}
	}
	root := c.Rich.Clone()
	return Content{Rich: &root}
}

// MarshalJSON implements json.Marshaler
func (c Content) MarshalJSON() ([]byte, error) {
	if c.Rich != nil {
		return json.Marshal(c.Rich)
	}
	return json.Marshal(c.Text)
}

// UnmarshalJSON implements json.Unmarshaler
func (c *Content) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*c = Content{}
		return nil
	}

	switch trimmed[0] {
	case '"':
		var text string
		if err := json.Unmarshal(trimmed, &text); err != nil {
			return err
		}
		*c = Content{Text: text}
	case '{':
		var root RichNode
		if err := json.Unmarshal(trimmed, &root); err != nil {
			return err
		}
		*c = Content{Rich: &root}
	default:
		return fmt.Errorf("content must be a string or a rich-content object")
	}
	return nil
}

// MarshalYAML implements yaml.Marshaler
func (c Content) MarshalYAML() (any, error) {
	if c.Rich != nil {
		return c.Rich, nil
	}
	return c.Text, nil
}

// UnmarshalYAML implements yaml.Unmarshaler via the decode callback form
func (c *Content) UnmarshalYAML(unmarshal func(any) error) error {
	var text string
	if err := unmarshal(&text); err == nil {
		*c = Content{Text: text}
		return nil
	}

	var root RichNode
	if err := unmarshal(&root); err != nil {
		return fmt.Errorf("content must be a string or a rich-content mapping: %w", err)
	}
	*c = Content{Rich: &root}
	return nil
}

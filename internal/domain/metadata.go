package domain

// ListItem is one entry of a list block
type ListItem struct {
	Content string `json:"content" yaml:"content"`
	Checked *bool  `json:"checked,omitempty" yaml:"checked,omitempty"`
}

// IsChecked reports whether the item carries a set checkbox
func (i ListItem) IsChecked() bool {
	return i.Checked != nil && *i.Checked
}

// MediaItem describes an image, file, video or audio reference
type MediaItem struct {
	ID            string    `json:"id,omitempty" yaml:"id,omitempty"`
	URL           string    `json:"url,omitempty" yaml:"url,omitempty"`
	Caption       string    `json:"caption,omitempty" yaml:"caption,omitempty"`
	Name          string    `json:"name,omitempty" yaml:"name,omitempty"`
	Kind          BlockType `json:"kind,omitempty" yaml:"kind,omitempty"`
	SourceBlockID string    `json:"sourceBlockId,omitempty" yaml:"sourceBlockId,omitempty"`
}

// PollOption is one answer of a poll block
type PollOption struct {
	ID    string `json:"id" yaml:"id"`
	Text  string `json:"text" yaml:"text"`
	Votes int    `json:"votes" yaml:"votes"`
}

// BoardCard is a card of a board block
type BoardCard struct {
	ID     string `json:"id" yaml:"id"`
	Title  string `json:"title" yaml:"title"`
	Column string `json:"column" yaml:"column"`
}

// CodeSnippet records a piece of code merged into a code block
type CodeSnippet struct {
	SourceBlockID string `json:"sourceBlockId" yaml:"sourceBlockId"`
	Language      string `json:"language,omitempty" yaml:"language,omitempty"`
	Code          string `json:"code" yaml:"code"`
}

// GroupInfo tags a block as a member of a logical group
type GroupInfo struct {
	IsGrouped    bool   `json:"isGrouped" yaml:"isGrouped"`
	GroupID      string `json:"groupId" yaml:"groupId"`
	GroupType    string `json:"groupType" yaml:"groupType"`
	GroupIndex   int    `json:"groupIndex" yaml:"groupIndex"`
	TotalInGroup int    `json:"totalInGroup" yaml:"totalInGroup"`
}

// ColumnInfo tags a block as a column of a column layout
type ColumnInfo struct {
	IsColumnBlock bool   `json:"isColumnBlock" yaml:"isColumnBlock"`
	ColumnIndex   int    `json:"columnIndex" yaml:"columnIndex"`
	TotalColumns  int    `json:"totalColumns" yaml:"totalColumns"`
	GroupID       string `json:"groupId" yaml:"groupId"`
}

// Metadata is the type-dependent attribute bag of a block.
// Each field belongs to one block family; Extra keeps keys the engine does not interpret.
type Metadata struct {
	// lists
	Items []ListItem `json:"items,omitempty" yaml:"items,omitempty"`

	// media
	URL     string      `json:"url,omitempty" yaml:"url,omitempty"`
	Caption string      `json:"caption,omitempty" yaml:"caption,omitempty"`
	Images  []MediaItem `json:"images,omitempty" yaml:"images,omitempty"`
	Files   []MediaItem `json:"files,omitempty" yaml:"files,omitempty"`

	// containers
	Title         string  `json:"title,omitempty" yaml:"title,omitempty"`
	ToggleContent []Block `json:"toggleContent,omitempty" yaml:"toggleContent,omitempty"`
	Children      []Block `json:"children,omitempty" yaml:"children,omitempty"`

	// code and quote
	Language string        `json:"language,omitempty" yaml:"language,omitempty"`
	Snippets []CodeSnippet `json:"snippets,omitempty" yaml:"snippets,omitempty"`
	Author   string        `json:"author,omitempty" yaml:"author,omitempty"`

	// table, poll, board
	Rows        [][]string   `json:"rows,omitempty" yaml:"rows,omitempty"`
	PollOptions []PollOption `json:"pollOptions,omitempty" yaml:"pollOptions,omitempty"`
	Cards       []BoardCard  `json:"cards,omitempty" yaml:"cards,omitempty"`

	// layout
	Group  *GroupInfo  `json:"group,omitempty" yaml:"group,omitempty"`
	Column *ColumnInfo `json:"column,omitempty" yaml:"column,omitempty"`

	Extra map[string]any `json:"extra,omitempty" yaml:"extra,omitempty"`
}

// Clone returns a deep copy of the metadata
func (m Metadata) Clone() Metadata {
	out := m

	if m.Items != nil {
		out.Items = make([]ListItem, len(m.Items))
		for i, item := range m.Items {
			out.Items[i] = ListItem{Content: item.Content}
			if item.Checked != nil {
				checked := *item.Checked
				out.Items[i].Checked = &checked
			}
		}
	}
	if m.Images != nil {
		out.Images = append([]MediaItem(nil), m.Images...)
	}
	if m.Files != nil {
		out.Files = append([]MediaItem(nil), m.Files...)
	}
	if m.ToggleContent != nil {
		out.ToggleContent = cloneBlocks(m.ToggleContent)
	}
	if m.Children != nil {
		out.Children = cloneBlocks(m.Children)
	}
	if m.Snippets != nil {
		out.Snippets = append([]CodeSnippet(nil), m.Snippets...)
	}
	if m.Rows != nil {
		out.Rows = make([][]string, len(m.Rows))
		for i, row := range m.Rows {
			out.Rows[i] = append([]string(nil), row...)
		}
	}
	if m.PollOptions != nil {
		out.PollOptions = append([]PollOption(nil), m.PollOptions...)
	}
	if m.Cards != nil {
		out.Cards = append([]BoardCard(nil), m.Cards...)
	}
	if m.Group != nil {
		group := *m.Group
		out.Group = &group
	}
	if m.Column != nil {
		column := *m.Column
		out.Column = &column
	}
	if m.Extra != nil {
		out.Extra = make(map[string]any, len(m.Extra))
		for k, v := range m.Extra {
			out.Extra[k] = v
		}
	}

	return out
}

func cloneBlocks(blocks []Block) []Block {
	out := make([]Block, len(blocks))
	for i, b := range blocks {
		out[i] = b.Clone()
	}
	return out
}

package merger

import (
	"strings"

	"github.com/google/uuid"

	"github.com/freewebtopdf/block-engine/internal/content"
	"github.com/freewebtopdf/block-engine/internal/domain"
)

const defaultBoardColumn = "To Do"

// mergeJob carries one resolved merge through its strategy
type mergeJob struct {
	rule     *domain.Rule
	target   domain.Block
	consumed []domain.Block
	opts     domain.Options
	sep      string
}

// finish updates the target to after and deletes every consumed source
func (j *mergeJob) finish(after domain.Block, data Result) domain.TransformResult {
	c := after.Content
	meta := after.Metadata

	var newType domain.BlockType
	if after.Type != j.target.Type {
		newType = after.Type
	}

	changes := make([]domain.Change, 0, len(j.consumed)+1)
	changes = append(changes, domain.UpdateChange(j.target.ID, newType, &c, &meta))
	for _, src := range j.consumed {
		changes = append(changes, domain.DeleteChange(src.ID))
	}

	data.Block = &after
	return domain.TransformResult{Success: true, Data: j.result(data), Changes: changes}
}

func (j *mergeJob) result(data Result) Result {
	data.Rule = j.rule.Name
	data.Strategy = j.rule.Strategy
	data.TargetID = j.target.ID
	data.Consumed = make([]string, len(j.consumed))
	for i, src := range j.consumed {
		data.Consumed[i] = src.ID
	}
	return data
}

// contentLike keeps the content representation of the target
func (j *mergeJob) contentLike(text string) domain.Content {
	if j.target.Content.IsRich() {
		return content.WrapRich(text)
	}
	return domain.TextContent(text)
}

// plainText is the text of a block with list markers removed
func plainText(b domain.Block) string {
	if b.Type.IsList() {
		return content.JoinItems(content.ParseItems(b), "\n")
	}
	return content.ExtractText(b)
}

func (j *mergeJob) concatenate(sources []domain.Block, sep string) domain.Block {
	parts := make([]string, 0, len(sources)+1)
	parts = append(parts, content.ExtractText(j.target))
	for _, src := range sources {
		parts = append(parts, content.ExtractText(src))
	}

	after := j.target.Clone()
	after.Content = j.contentLike(content.JoinNonEmpty(parts, sep))
	return after
}

func (j *mergeJob) contentConcatenate() domain.TransformResult {
	return j.finish(j.concatenate(j.consumed, j.sep), Result{})
}

// appendItems adds the items of every consumed block to the target list
func (j *mergeJob) appendItems() (domain.Block, []string) {
	items := content.ParseItems(j.target)
	converted := make([]string, 0)

	for _, src := range j.consumed {
		if src.Type.IsList() {
			if src.Type != j.target.Type {
				converted = append(converted, src.ID)
			}
			items = append(items, content.ParseItems(src)...)
			continue
		}
		items = append(items, content.ParseItemsFromText(content.ExtractText(src))...)
	}
	items = content.AdaptItems(items, j.target.Type)

	after := j.target.Clone()
	after.Metadata.Items = items
	after.Content = domain.TextContent(content.RenderItems(items, j.target.Type))
	return after, converted
}

func (j *mergeJob) appendAsItem() domain.TransformResult {
	after, _ := j.appendItems()
	return j.finish(after, Result{})
}

func (j *mergeJob) mergeItemsOrConvert() domain.TransformResult {
	after, converted := j.appendItems()
	if len(converted) == 0 {
		converted = nil
	}
	return j.finish(after, Result{Converted: converted})
}

// levelUnifyOrMerge either gives every heading the target level or joins them
func (j *mergeJob) levelUnifyOrMerge() domain.TransformResult {
	if j.opts.Strategy != UnifyMode {
		return j.contentConcatenate()
	}

	changes := make([]domain.Change, 0, len(j.consumed))
	for _, src := range j.consumed {
		if src.Type == j.target.Type {
			continue
		}
		changes = append(changes, domain.UpdateChange(src.ID, j.target.Type, nil, nil))
	}

	data := j.result(Result{Unified: true})
	data.Consumed = []string{}
	return domain.TransformResult{Success: true, Data: data, Changes: changes}
}

func (j *mergeJob) extractTextAndMerge() domain.TransformResult {
	temps := make([]domain.Block, len(j.consumed))
	for i, src := range j.consumed {
		temps[i] = domain.Block{ID: src.ID, Type: domain.BlockText, Content: domain.TextContent(plainText(src))}
	}
	return j.finish(j.concatenate(temps, j.sep), Result{})
}

// createColumnGroup tags the target and sources as columns of one group; nothing is deleted
func (j *mergeJob) createColumnGroup() domain.TransformResult {
	groupID := j.opts.GroupID
	if col := j.target.Metadata.Column; col != nil && col.GroupID != "" {
		groupID = col.GroupID
	}
	if groupID == "" {
		groupID = uuid.NewString()
	}

	members := append([]domain.Block{j.target}, j.consumed...)
	changes := make([]domain.Change, 0, len(members))
	for i, b := range members {
		meta := b.Metadata.Clone()
		meta.Column = &domain.ColumnInfo{
			IsColumnBlock: true,
			ColumnIndex:   i,
			TotalColumns:  len(members),
			GroupID:       groupID,
		}
		changes = append(changes, domain.UpdateChange(b.ID, "", nil, &meta))
	}

	data := j.result(Result{GroupID: groupID})
	data.Consumed = []string{}
	return domain.TransformResult{Success: true, Data: data, Changes: changes}
}

func cloneAll(blocks []domain.Block) []domain.Block {
	out := make([]domain.Block, len(blocks))
	for i, b := range blocks {
		out[i] = b.Clone()
	}
	return out
}

func (j *mergeJob) wrapInToggle() domain.TransformResult {
	after := j.target.Clone()
	title := j.opts.Title
	children := make([]domain.Block, 0, len(j.consumed)+1)

	targetText := content.ExtractText(j.target)
	if title == "" {
		title = targetText
	} else if strings.TrimSpace(targetText) != "" {
		// the target keeps its id as the toggle, so its old body needs a new one
		body := j.target.Clone()
		body.ID = uuid.NewString()
		body.Metadata.Group = nil
		body.Metadata.Column = nil
		children = append(children, body)
	}
	children = append(children, cloneAll(j.consumed)...)

	after.Type = domain.BlockToggle
	after.Content = domain.TextContent(title)
	after.Metadata.Items = nil
	after.Metadata.Title = title
	after.Metadata.ToggleContent = append(after.Metadata.ToggleContent, children...)
	return j.finish(after, Result{})
}

func (j *mergeJob) joinedText() string {
	parts := []string{content.ExtractText(j.target)}
	for _, src := range j.consumed {
		parts = append(parts, content.ExtractText(src))
	}
	return content.JoinNonEmpty(parts, "\n")
}

func (j *mergeJob) wrapInCode() domain.TransformResult {
	after := j.target.Clone()
	after.Type = domain.BlockCode
	after.Content = domain.TextContent(j.joinedText())
	after.Metadata.Items = nil
	if j.opts.Language != "" {
		after.Metadata.Language = j.opts.Language
	}
	return j.finish(after, Result{})
}

func (j *mergeJob) wrapInQuote() domain.TransformResult {
	after := j.target.Clone()
	after.Type = domain.BlockQuote
	after.Content = domain.TextContent(j.joinedText())
	after.Metadata.Items = nil
	if j.opts.Author != "" {
		after.Metadata.Author = j.opts.Author
	}
	return j.finish(after, Result{})
}

// listToToggle makes the first item the toggle title when the toggle has none and
// nests every other item as a text block
func (j *mergeJob) listToToggle() domain.TransformResult {
	items := make([]domain.ListItem, 0)
	for _, src := range j.consumed {
		items = append(items, content.ParseItems(src)...)
	}

	after := j.target.Clone()
	if strings.TrimSpace(content.ExtractText(j.target)) == "" && len(items) > 0 {
		after.Content = domain.TextContent(items[0].Content)
		after.Metadata.Title = items[0].Content
		items = items[1:]
	}

	for _, item := range items {
		after.Metadata.ToggleContent = append(after.Metadata.ToggleContent, domain.Block{
			ID:      uuid.NewString(),
			Type:    domain.BlockText,
			Content: domain.TextContent(item.Content),
		})
	}
	return j.finish(after, Result{})
}

func (j *mergeJob) mergeToggleContent() domain.TransformResult {
	after := j.target.Clone()
	after.Metadata.ToggleContent = append(after.Metadata.ToggleContent, cloneAll(j.consumed)...)
	return j.finish(after, Result{})
}

func (j *mergeJob) mergeCodeContent() domain.TransformResult {
	sep := j.opts.SeparatorOr("\n")
	after := j.target.Clone()

	parts := []string{content.ExtractText(j.target)}
	for _, src := range j.consumed {
		code := content.ExtractText(src)
		parts = append(parts, code)

		language := src.Metadata.Language
		if language == "" {
			language = j.target.Metadata.Language
		}
		after.Metadata.Snippets = append(after.Metadata.Snippets, domain.CodeSnippet{
			SourceBlockID: src.ID,
			Language:      language,
			Code:          code,
		})
	}
	after.Content = domain.TextContent(content.JoinNonEmpty(parts, sep))
	return j.finish(after, Result{})
}

// mediaOf describes a single media block as a gallery or file entry
func mediaOf(b domain.Block, kind domain.BlockType) domain.MediaItem {
	caption := b.Metadata.Caption
	if text := strings.TrimSpace(content.ExtractText(b)); text != "" && text != caption {
		caption = content.JoinNonEmpty([]string{caption, text}, " ")
	}
	return domain.MediaItem{
		ID:            b.ID,
		URL:           b.Metadata.URL,
		Caption:       caption,
		Name:          b.Metadata.Title,
		Kind:          kind,
		SourceBlockID: b.ID,
	}
}

// keepText appends the text of a collection source whose items were copied over
// as metadata, so its own content survives the delete
func (j *mergeJob) keepText(after *domain.Block, src domain.Block) {
	if text := strings.TrimSpace(content.ExtractText(src)); text != "" {
		after.Content = domain.TextContent(content.JoinNonEmpty([]string{content.ExtractText(*after), text}, j.sep))
	}
}

func (j *mergeJob) addToGallery() domain.TransformResult {
	after := j.target.Clone()
	images := after.Metadata.Images
	if j.target.Type == domain.BlockImage {
		images = append([]domain.MediaItem{mediaOf(j.target, domain.BlockImage)}, images...)
		after.Metadata.URL = ""
		after.Metadata.Caption = ""
		after.Content = domain.TextContent("")
	}

	for _, src := range j.consumed {
		if src.Type == domain.BlockGallery {
			images = append(images, src.Metadata.Clone().Images...)
			j.keepText(&after, src)
			continue
		}
		images = append(images, mediaOf(src, domain.BlockImage))
	}

	after.Type = domain.BlockGallery
	after.Metadata.Images = images
	return j.finish(after, Result{})
}

func (j *mergeJob) mergeFileList() domain.TransformResult {
	after := j.target.Clone()
	files := after.Metadata.Files
	if len(files) == 0 && j.target.Metadata.URL != "" {
		files = []domain.MediaItem{mediaOf(j.target, domain.BlockFile)}
	}

	for _, src := range j.consumed {
		if len(src.Metadata.Files) > 0 {
			files = append(files, src.Metadata.Clone().Files...)
			j.keepText(&after, src)
			continue
		}
		files = append(files, mediaOf(src, domain.BlockFile))
	}

	after.Metadata.Files = files
	return j.finish(after, Result{})
}

func (j *mergeJob) addToColumn() domain.TransformResult {
	after := j.target.Clone()
	after.Metadata.Children = append(after.Metadata.Children, cloneAll(j.consumed)...)
	return j.finish(after, Result{})
}

func (j *mergeJob) nestInPage() domain.TransformResult {
	after := j.target.Clone()
	after.Metadata.Children = append(after.Metadata.Children, cloneAll(j.consumed)...)
	return j.finish(after, Result{})
}

// lineEntries returns the items of a list, or the non-blank lines of any other block
func lineEntries(b domain.Block) []domain.ListItem {
	if b.Type.IsList() {
		return content.ParseItems(b)
	}
	return content.ParseItemsFromText(content.ExtractText(b))
}

func rowCells(line string) []string {
	var cells []string
	switch {
	case strings.Contains(line, "\t"):
		cells = strings.Split(line, "\t")
	case strings.Contains(line, "|"):
		cells = strings.Split(strings.Trim(line, "| "), "|")
	default:
		return []string{line}
	}
	for i := range cells {
		cells[i] = strings.TrimSpace(cells[i])
	}
	return cells
}

func (j *mergeJob) mergeTableRows() domain.TransformResult {
	after := j.target.Clone()
	rows := after.Metadata.Rows

	for _, src := range j.consumed {
		if src.Type == domain.BlockTable {
			rows = append(rows, src.Metadata.Clone().Rows...)
			j.keepText(&after, src)
			continue
		}
		for _, item := range lineEntries(src) {
			rows = append(rows, rowCells(item.Content))
		}
	}

	width := 0
	for _, row := range rows {
		width = max(width, len(row))
	}
	for i, row := range rows {
		for len(row) < width {
			row = append(row, "")
		}
		rows[i] = row
	}

	after.Metadata.Rows = rows
	return j.finish(after, Result{})
}

func (j *mergeJob) mergePollOptions() domain.TransformResult {
	after := j.target.Clone()
	options := after.Metadata.PollOptions
	index := make(map[string]int, len(options))
	for i, o := range options {
		index[strings.ToLower(o.Text)] = i
	}

	add := func(o domain.PollOption) {
		key := strings.ToLower(o.Text)
		if i, ok := index[key]; ok {
			options[i].Votes += o.Votes
			return
		}
		if o.ID == "" {
			o.ID = uuid.NewString()
		}
		index[key] = len(options)
		options = append(options, o)
	}

	for _, src := range j.consumed {
		if src.Type == domain.BlockPoll {
			for _, o := range src.Metadata.PollOptions {
				add(o)
			}
			j.keepText(&after, src)
			continue
		}
		for _, item := range lineEntries(src) {
			add(domain.PollOption{Text: item.Content})
		}
	}

	after.Metadata.PollOptions = options
	return j.finish(after, Result{})
}

func (j *mergeJob) mergeBoardCards() domain.TransformResult {
	after := j.target.Clone()
	cards := after.Metadata.Cards

	column := j.opts.BoardColumn
	if column == "" {
		column = defaultBoardColumn
	}

	for _, src := range j.consumed {
		if src.Type == domain.BlockBoard {
			cards = append(cards, src.Metadata.Clone().Cards...)
			j.keepText(&after, src)
			continue
		}
		for _, item := range lineEntries(src) {
			card := domain.BoardCard{ID: uuid.NewString(), Title: item.Content, Column: column}
			if item.IsChecked() && j.opts.BoardColumn == "" {
				card.Column = "Done"
			}
			cards = append(cards, card)
		}
	}

	after.Metadata.Cards = cards
	return j.finish(after, Result{})
}

// universalTransfer appends the text of every source to the target, formatted for its type
func (j *mergeJob) universalTransfer() domain.TransformResult {
	texts := make([]string, 0, len(j.consumed))
	for _, src := range j.consumed {
		texts = append(texts, plainText(src))
	}
	incoming := content.JoinNonEmpty(texts, "\n")

	after := j.target.Clone()
	switch {
	case j.target.Type.IsList():
		items := append(content.ParseItems(j.target), content.ParseItemsFromText(incoming)...)
		items = content.AdaptItems(items, j.target.Type)
		after.Metadata.Items = items
		after.Content = domain.TextContent(content.RenderItems(items, j.target.Type))
	case j.target.Type == domain.BlockQuote && incoming != "":
		lines := strings.Split(incoming, "\n")
		for i, line := range lines {
			lines[i] = "> " + line
		}
		after.Content = j.contentLike(content.JoinNonEmpty([]string{content.ExtractText(j.target), strings.Join(lines, "\n")}, j.opts.SeparatorOr("\n")))
	default:
		after.Content = j.contentLike(content.JoinNonEmpty([]string{content.ExtractText(j.target), incoming}, j.opts.SeparatorOr("\n")))
	}
	return j.finish(after, Result{})
}

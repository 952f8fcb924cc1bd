package interaction

import (
	"slices"

	"github.com/google/uuid"

	"github.com/freewebtopdf/block-engine/internal/domain"
)

// DefaultGroupType is used when a group request names no type
const DefaultGroupType = "default"

// GroupResult is the Data payload of a group or ungroup interaction
type GroupResult struct {
	GroupID   string   `json:"groupId,omitempty"`
	GroupType string   `json:"groupType,omitempty"`
	BlockIDs  []string `json:"blockIds"`
}

// RearrangeResult is the Data payload of a rearrange interaction
type RearrangeResult struct {
	AfterBlockID string   `json:"afterBlockId"`
	BlockIDs     []string `json:"blockIds"`
}

// groupMembers returns the source blocks followed by the target when it is not a source
func groupMembers(req domain.InteractionRequest) []domain.Block {
	members := make([]domain.Block, 0, len(req.SourceBlocks)+1)
	seen := make(map[string]bool, len(req.SourceBlocks)+1)
	for _, b := range req.SourceBlocks {
		if !seen[b.ID] {
			seen[b.ID] = true
			members = append(members, b)
		}
	}
	if req.TargetBlock != nil && !seen[req.TargetBlock.ID] {
		members = append(members, *req.TargetBlock)
	}
	return members
}

// CreateGroup tags every block as a member of one group. Blocks are only updated.
func CreateGroup(blocks []domain.Block, opts domain.Options) domain.TransformResult {
	if len(blocks) == 0 {
		return domain.FailedTransform(domain.NewValidationError("At least one block is required to create a group", nil))
	}

	groupID := opts.GroupID
	if groupID == "" {
		groupID = uuid.NewString()
	}
	groupType := opts.GroupType
	if groupType == "" {
		groupType = DefaultGroupType
	}

	changes := make([]domain.Change, 0, len(blocks))
	ids := make([]string, 0, len(blocks))
	for i, b := range blocks {
		meta := b.Metadata.Clone()
		meta.Group = &domain.GroupInfo{
			IsGrouped:    true,
			GroupID:      groupID,
			GroupType:    groupType,
			GroupIndex:   i,
			TotalInGroup: len(blocks),
		}
		changes = append(changes, domain.UpdateChange(b.ID, "", nil, &meta))
		ids = append(ids, b.ID)
	}

	return domain.TransformResult{
		Success: true,
		Data:    GroupResult{GroupID: groupID, GroupType: groupType, BlockIDs: ids},
		Changes: changes,
	}
}

// DisbandGroup clears the group tag of every grouped block, or only of members of
// opts.GroupID when one is given
func DisbandGroup(blocks []domain.Block, opts domain.Options) domain.TransformResult {
	changes := make([]domain.Change, 0, len(blocks))
	ids := make([]string, 0, len(blocks))

	for _, b := range blocks {
		group := b.Metadata.Group
		if group == nil || !group.IsGrouped {
			continue
		}
		if opts.GroupID != "" && group.GroupID != opts.GroupID {
			continue
		}
		meta := b.Metadata.Clone()
		meta.Group = nil
		changes = append(changes, domain.UpdateChange(b.ID, "", nil, &meta))
		ids = append(ids, b.ID)
	}

	if len(changes) == 0 {
		return domain.FailedTransform(domain.NewValidationError("None of the blocks belongs to a group",
			map[string]any{"groupId": opts.GroupID}))
	}

	return domain.TransformResult{
		Success: true,
		Data:    GroupResult{GroupID: opts.GroupID, BlockIDs: ids},
		Changes: changes,
	}
}

// rearrangeAnchor is the block the moved blocks land after; empty means the document start
func rearrangeAnchor(req domain.InteractionRequest) string {
	if req.TargetBlock != nil {
		return req.TargetBlock.ID
	}
	return req.Options.AfterBlockID
}

func validateRearrange(req *domain.InteractionRequest) error {
	anchor := rearrangeAnchor(*req)
	if anchor == "" {
		return nil
	}
	if slices.ContainsFunc(req.SourceBlocks, func(b domain.Block) bool { return b.ID == anchor }) {
		return domain.NewValidationError("Cannot move a block after itself", map[string]any{"block_id": anchor})
	}
	return nil
}

// Rearrange moves blocks, in order, to sit after afterBlockID. Each block is deleted
// and re-inserted with the same id, chained after the previous one.
func Rearrange(blocks []domain.Block, afterBlockID string) domain.TransformResult {
	if len(blocks) == 0 {
		return domain.FailedTransform(domain.NewValidationError("At least one block is required to rearrange", nil))
	}

	changes := make([]domain.Change, 0, 2*len(blocks))
	ids := make([]string, 0, len(blocks))
	anchor := afterBlockID
	for _, b := range blocks {
		if slices.Contains(ids, b.ID) {
			continue
		}
		changes = append(changes,
			domain.DeleteChange(b.ID),
			domain.InsertChange(b.Clone(), anchor),
		)
		ids = append(ids, b.ID)
		anchor = b.ID
	}

	return domain.TransformResult{
		Success: true,
		Data:    RearrangeResult{AfterBlockID: afterBlockID, BlockIDs: ids},
		Changes: changes,
	}
}

package storage

import (
	"fmt"
	"slices"

	"github.com/freewebtopdf/block-engine/internal/domain"
)

// ApplyChanges applies changes to doc in list order. It stops at the first change
// that does not fit the document and reports it; doc is then partially modified,
// so callers apply to a copy.
func ApplyChanges(doc *domain.Document, changes []domain.Change) error {
	for i, change := range changes {
		if err := applyOne(doc, change); err != nil {
			return domain.NewAppErrorWithCause(
				domain.ErrApplyFailed,
				fmt.Sprintf("Change %d (%s %s) cannot be applied: %v", i, change.Action, change.BlockID, err),
				409,
				err,
				map[string]any{"index": i, "action": change.Action, "block_id": change.BlockID},
			)
		}
	}
	return nil
}

func applyOne(doc *domain.Document, change domain.Change) error {
	switch change.Action {
	case domain.ActionUpdate:
		i := indexOf(doc.Blocks, change.BlockID)
		if i < 0 {
			return fmt.Errorf("block not found")
		}
		b := &doc.Blocks[i]
		if change.NewType != "" {
			b.Type = change.NewType
		}
		if change.NewContent != nil {
			b.Content = change.NewContent.Clone()
		}
		if change.Metadata != nil {
			b.Metadata = change.Metadata.Clone()
		}
		return nil

	case domain.ActionDelete:
		i := indexOf(doc.Blocks, change.BlockID)
		if i < 0 {
			return fmt.Errorf("block not found")
		}
		doc.Blocks = slices.Delete(doc.Blocks, i, i+1)
		return nil

	case domain.ActionInsert:
		if change.Block == nil {
			return fmt.Errorf("insert carries no block")
		}
		if change.Block.ID != change.BlockID {
			return fmt.Errorf("block id %q does not match change id", change.Block.ID)
		}
		if indexOf(doc.Blocks, change.BlockID) >= 0 {
			return fmt.Errorf("block already exists")
		}
		at := 0
		if change.AfterBlockID != "" {
			after := indexOf(doc.Blocks, change.AfterBlockID)
			if after < 0 {
				return fmt.Errorf("anchor block %q not found", change.AfterBlockID)
			}
			at = after + 1
		}
		doc.Blocks = slices.Insert(doc.Blocks, at, change.Block.Clone())
		return nil
	}

	return fmt.Errorf("unknown action %q", change.Action)
}

func indexOf(blocks []domain.Block, id string) int {
	return slices.IndexFunc(blocks, func(b domain.Block) bool { return b.ID == id })
}

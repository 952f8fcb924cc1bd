package domain

// ChangeAction is the kind of mutation a Change describes
type ChangeAction string

const (
	ActionInsert ChangeAction = "insert"
	ActionUpdate ChangeAction = "update"
	ActionDelete ChangeAction = "delete"
)

// Change is one atomic mutation intent for the document store.
// Changes are applied in list order; inserts are positioned by AfterBlockID.
type Change struct {
	Action  ChangeAction `json:"action" yaml:"action"`
	BlockID string       `json:"blockId" yaml:"blockId"`

	// update payload
	NewContent *Content  `json:"newContent,omitempty" yaml:"newContent,omitempty"`
	NewType    BlockType `json:"newType,omitempty" yaml:"newType,omitempty"`
	Metadata   *Metadata `json:"metadata,omitempty" yaml:"metadata,omitempty"`

	// insert payload
	Block        *Block `json:"block,omitempty" yaml:"block,omitempty"`
	AfterBlockID string `json:"afterBlockId,omitempty" yaml:"afterBlockId,omitempty"`
}

// UpdateChange builds an update for blockID. Empty newType keeps the current type.
func UpdateChange(blockID string, newType BlockType, newContent *Content, metadata *Metadata) Change {
	return Change{
		Action:     ActionUpdate,
		BlockID:    blockID,
		NewType:    newType,
		NewContent: newContent,
		Metadata:   metadata,
	}
}

// DeleteChange builds a delete for blockID
func DeleteChange(blockID string) Change {
	return Change{Action: ActionDelete, BlockID: blockID}
}

// InsertChange builds an insert of block positioned after afterBlockID
func InsertChange(block Block, afterBlockID string) Change {
	b := block
	return Change{
		Action:       ActionInsert,
		BlockID:      block.ID,
		Block:        &b,
		AfterBlockID: afterBlockID,
	}
}

// TransformResult is what every subsystem returns to the interaction manager
type TransformResult struct {
	Success bool     `json:"success"`
	Data    any      `json:"data,omitempty"`
	Changes []Change `json:"changes"`
	Error   string   `json:"error,omitempty"`
}

// FailedTransform builds a failed result from an error
func FailedTransform(err error) TransformResult {
	return TransformResult{Success: false, Changes: []Change{}, Error: ErrorMessage(err)}
}

// ValidationResult reports whether a request may proceed
type ValidationResult struct {
	IsValid bool   `json:"isValid"`
	Error   string `json:"error,omitempty"`
	Rule    *Rule  `json:"rule,omitempty"`
}

// Valid builds a passing validation result
func Valid(rule *Rule) ValidationResult {
	return ValidationResult{IsValid: true, Rule: rule}
}

// Invalid builds a failing validation result from an error
func Invalid(err error) ValidationResult {
	return ValidationResult{IsValid: false, Error: ErrorMessage(err)}
}

package domain

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

// InputValidator validates requests, blocks and documents at the engine boundary
type InputValidator struct {
	validate       *validator.Validate
	maxContentSize int
}

// NewInputValidator creates a new input validator with default settings
func NewInputValidator() *InputValidator {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("interaction_type", validateInteractionType)

	return &InputValidator{
		validate:       v,
		maxContentSize: 1 << 20, // 1MB of text per block
	}
}

// NewValidator creates a new input validator instance
func NewValidator() Validator {
	return NewInputValidator()
}

// ValidateRequest validates the shape of an interaction request
func (v *InputValidator) ValidateRequest(req *InteractionRequest) error {
	if req == nil {
		return NewValidationError("Request cannot be nil", nil)
	}

	if req.Type == "" {
		return NewValidationError("Interaction type is required", map[string]any{"field": "type"})
	}
	if !slices.Contains(InteractionTypes, req.Type) {
		return NewValidationError(fmt.Sprintf("Unsupported interaction type: %s", req.Type), map[string]any{
			"field":          "type",
			"value":          req.Type,
			"allowed_values": InteractionTypes,
		})
	}
	if len(req.SourceBlocks) == 0 {
		return NewValidationError("At least one source block is required", map[string]any{"field": "sourceBlocks"})
	}

	if err := v.validate.Struct(req); err != nil {
		return formatValidationError(err)
	}

	for i := range req.SourceBlocks {
		if err := v.checkContent(&req.SourceBlocks[i]); err != nil {
			return err
		}
	}
	if req.TargetBlock != nil {
		if err := v.ValidateBlock(req.TargetBlock); err != nil {
			return err
		}
	}

	return nil
}

// ValidateBlock validates a single block snapshot
func (v *InputValidator) ValidateBlock(block *Block) error {
	if block == nil {
		return NewValidationError("Block cannot be nil", nil)
	}
	if err := v.validate.Struct(block); err != nil {
		return formatValidationError(err)
	}
	return v.checkContent(block)
}

// ValidateDocument validates a document and the uniqueness of its block ids
func (v *InputValidator) ValidateDocument(doc *Document) error {
	if doc == nil {
		return NewValidationError("Document cannot be nil", nil)
	}
	if err := v.validate.Struct(doc); err != nil {
		return formatValidationError(err)
	}

	seen := make(map[string]bool, len(doc.Blocks))
	for i := range doc.Blocks {
		if seen[doc.Blocks[i].ID] {
			return NewAppError(ErrConflict, "Duplicate block id in document", 409, map[string]any{
				"block_id": doc.Blocks[i].ID,
			})
		}
		seen[doc.Blocks[i].ID] = true
		if err := v.checkContent(&doc.Blocks[i]); err != nil {
			return err
		}
	}
	return nil
}

// checkContent enforces UTF-8 and size limits on plain text content
func (v *InputValidator) checkContent(block *Block) error {
	if block.Content.IsRich() {
		return nil
	}
	if !utf8.ValidString(block.Content.Text) {
		return NewValidationError("Content must be valid UTF-8", map[string]any{"block_id": block.ID})
	}
	if len(block.Content.Text) > v.maxContentSize {
		return NewAppError(ErrTooLarge, fmt.Sprintf("Content too large (max %d bytes)", v.maxContentSize), 413, map[string]any{
			"block_id": block.ID,
			"size":     len(block.Content.Text),
			"max_size": v.maxContentSize,
		})
	}
	return nil
}

func validateInteractionType(fl validator.FieldLevel) bool {
	return slices.Contains(InteractionTypes, InteractionType(fl.Field().String()))
}

// formatValidationError formats validation errors into readable messages
func formatValidationError(err error) error {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return NewAppErrorWithCause(ErrValidationFailed, "Validation failed", 422, err, nil)
	}

	messages := make([]string, 0, len(validationErrors))
	fields := make([]string, 0, len(validationErrors))
	for _, e := range validationErrors {
		fields = append(fields, e.Namespace())
		switch e.Tag() {
		case "required":
			messages = append(messages, fmt.Sprintf("%s is required", e.Namespace()))
		case "min":
			messages = append(messages, fmt.Sprintf("%s must be at least %s", e.Namespace(), e.Param()))
		case "interaction_type":
			messages = append(messages, fmt.Sprintf("%s must be one of the supported interaction types", e.Namespace()))
		default:
			messages = append(messages, fmt.Sprintf("%s failed validation: %s", e.Namespace(), e.Tag()))
		}
	}

	return NewValidationError(strings.Join(messages, "; "), map[string]any{"fields": fields})
}

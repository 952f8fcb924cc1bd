package api

import (
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/freewebtopdf/block-engine/internal/domain"
	"github.com/freewebtopdf/block-engine/internal/interaction"
)

// InteractionBody is the payload of POST /v1/interactions. Blocks are given inline
// or, with a documentId, by id.
type InteractionBody struct {
	DocumentID     string                 `json:"documentId,omitempty"`
	Type           domain.InteractionType `json:"type"`
	SourceBlocks   []domain.Block         `json:"sourceBlocks,omitempty"`
	SourceBlockIDs []string               `json:"sourceBlockIds,omitempty"`
	TargetBlock    *domain.Block          `json:"targetBlock,omitempty"`
	TargetBlockID  string                 `json:"targetBlockId,omitempty"`
	Options        domain.Options         `json:"options"`
	Apply          bool                   `json:"apply,omitempty"`
}

// InteractionResponse carries the result and, when applied, the updated document
type InteractionResponse struct {
	Result   domain.InteractionResult `json:"result"`
	Document *domain.Document         `json:"document,omitempty"`
}

// SuggestionBody is the payload of the suggestion endpoints
type SuggestionBody struct {
	Block domain.Block `json:"block"`
}

// ExecuteInteractionHandler handles POST /v1/interactions requests
func (h *Handlers) ExecuteInteractionHandler(c *fiber.Ctx) error {
	ctx := c.Context()
	requestID, _ := c.Locals("requestid").(string)

	var body InteractionBody
	if err := c.BodyParser(&body); err != nil {
		return h.sendError(c, invalidJSON(ctx, err, "interaction_request_parsing"))
	}

	req, err := h.buildRequest(ctx, &body)
	if err != nil {
		return h.sendError(c, asAppError(ctx, err, "interaction_request_resolution"))
	}

	result := h.engine.ExecuteInteraction(ctx, req)
	switch result.Result {
	case domain.ResultCancelled:
		return h.sendError(c, domain.NewAppError(domain.ErrTimeout, "Interaction cancelled", 408,
			map[string]any{"interaction_id": result.ID}))
	case domain.ResultFailed:
		return h.sendError(c, domain.NewValidationError(result.Error, map[string]any{
			"interaction_id": result.ID,
			"type":           result.Type,
		}))
	}

	response := InteractionResponse{Result: result}
	if body.Apply {
		doc, err := h.store.Apply(ctx, body.DocumentID, result.Changes)
		if err != nil {
			log.Warn().
				Err(err).
				Str("request_id", requestID).
				Str("document_id", body.DocumentID).
				Str("interaction_id", result.ID).
				Msg("Failed to apply interaction changes")
			return h.sendError(c, asAppError(ctx, err, "interaction_apply"))
		}
		response.Document = doc
	}

	return c.Status(200).JSON(SuccessResponse{Status: "success", Data: response})
}

// buildRequest resolves block ids against the document and checks the body is coherent
func (h *Handlers) buildRequest(ctx context.Context, body *InteractionBody) (domain.InteractionRequest, error) {
	req := domain.InteractionRequest{
		Type:         body.Type,
		SourceBlocks: body.SourceBlocks,
		TargetBlock:  body.TargetBlock,
		Options:      body.Options,
	}

	if len(body.SourceBlocks) > 0 && len(body.SourceBlockIDs) > 0 {
		return req, domain.NewAppError(domain.ErrInvalidInput, "Give either sourceBlocks or sourceBlockIds", 400, nil)
	}
	if body.TargetBlock != nil && body.TargetBlockID != "" {
		return req, domain.NewAppError(domain.ErrInvalidInput, "Give either targetBlock or targetBlockId", 400, nil)
	}

	needsDocument := body.Apply || len(body.SourceBlockIDs) > 0 || body.TargetBlockID != ""
	if !needsDocument {
		return req, nil
	}
	if body.DocumentID == "" {
		return req, domain.NewAppError(domain.ErrInvalidInput, "documentId is required to apply changes or reference blocks by id", 400, nil)
	}

	doc, err := h.store.GetDocument(ctx, body.DocumentID)
	if err != nil {
		return req, err
	}

	if len(body.SourceBlockIDs) > 0 {
		req.SourceBlocks = make([]domain.Block, 0, len(body.SourceBlockIDs))
		for _, id := range body.SourceBlockIDs {
			block, err := findBlock(doc, id)
			if err != nil {
				return req, err
			}
			req.SourceBlocks = append(req.SourceBlocks, block)
		}
	}
	if body.TargetBlockID != "" {
		block, err := findBlock(doc, body.TargetBlockID)
		if err != nil {
			return req, err
		}
		req.TargetBlock = &block
	}
	return req, nil
}

func findBlock(doc *domain.Document, id string) (domain.Block, error) {
	for _, b := range doc.Blocks {
		if b.ID == id {
			return b, nil
		}
	}
	return domain.Block{}, domain.NewAppError(
		domain.ErrNotFound,
		fmt.Sprintf("Block %s not found in document %s", id, doc.ID),
		404,
		map[string]string{"document_id": doc.ID, "block_id": id},
	)
}

// HistoryHandler handles GET /v1/interactions/history requests
func (h *Handlers) HistoryHandler(c *fiber.Ctx) error {
	filter := interaction.HistoryFilter{
		Type:   domain.InteractionType(c.Query("type")),
		Result: domain.ResultStatus(c.Query("result")),
		Limit:  c.QueryInt("limit", 0),
	}
	for param, field := range map[string]*time.Time{"since": &filter.Since, "until": &filter.Until} {
		raw := c.Query(param)
		if raw == "" {
			continue
		}
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return h.sendError(c, domain.NewAppError(
				domain.ErrInvalidInput,
				fmt.Sprintf("Invalid %s timestamp, expected RFC 3339", param),
				400,
				map[string]string{"value": raw},
			))
		}
		*field = parsed
	}
	if filter.Limit < 0 {
		return h.sendError(c, domain.NewAppError(domain.ErrInvalidInput, "limit must not be negative", 400, nil))
	}

	history := h.engine.GetHistory(filter)
	return c.Status(200).JSON(SuccessResponse{
		Status: "success",
		Data: map[string]any{
			"interactions": history,
			"count":        len(history),
		},
	})
}

// StatsHandler handles GET /v1/interactions/stats requests
func (h *Handlers) StatsHandler(c *fiber.Ctx) error {
	return c.Status(200).JSON(SuccessResponse{Status: "success", Data: h.engine.GetStats()})
}

// SuggestSplitsHandler handles POST /v1/suggestions/split requests
func (h *Handlers) SuggestSplitsHandler(c *fiber.Ctx) error {
	block, err := h.suggestionBlock(c)
	if err != nil {
		return h.sendError(c, err)
	}
	return c.Status(200).JSON(SuccessResponse{
		Status: "success",
		Data:   map[string]any{"suggestions": h.engine.SuggestSplits(block)},
	})
}

// SuggestConversionsHandler handles POST /v1/suggestions/convert requests
func (h *Handlers) SuggestConversionsHandler(c *fiber.Ctx) error {
	block, err := h.suggestionBlock(c)
	if err != nil {
		return h.sendError(c, err)
	}
	return c.Status(200).JSON(SuccessResponse{
		Status: "success",
		Data:   map[string]any{"suggestions": h.engine.SuggestConversions(block)},
	})
}

func (h *Handlers) suggestionBlock(c *fiber.Ctx) (domain.Block, *domain.AppError) {
	ctx := c.Context()

	var body SuggestionBody
	if err := c.BodyParser(&body); err != nil {
		return domain.Block{}, invalidJSON(ctx, err, "suggestion_request_parsing")
	}
	if err := h.validator.ValidateBlock(&body.Block); err != nil {
		return domain.Block{}, asAppError(ctx, err, "suggestion_request_validation")
	}
	return body.Block, nil
}

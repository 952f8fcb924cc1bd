package api

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/freewebtopdf/block-engine/internal/domain"
)

// DocumentListResponse is the response of GET /v1/documents
type DocumentListResponse struct {
	Documents []DocumentSummary `json:"documents"`
	Count     int               `json:"count"`
}

// DocumentSummary describes a document without its blocks
type DocumentSummary struct {
	ID         string `json:"id"`
	Title      string `json:"title,omitempty"`
	BlockCount int    `json:"blockCount"`
}

// ListDocumentsHandler handles GET /v1/documents requests
func (h *Handlers) ListDocumentsHandler(c *fiber.Ctx) error {
	ctx := c.Context()

	docs, err := h.store.ListDocuments(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list documents")
		return h.sendError(c, asAppError(ctx, err, "list_documents"))
	}

	summaries := make([]DocumentSummary, len(docs))
	for i, doc := range docs {
		summaries[i] = DocumentSummary{ID: doc.ID, Title: doc.Title, BlockCount: len(doc.Blocks)}
	}
	return c.Status(200).JSON(SuccessResponse{
		Status: "success",
		Data:   DocumentListResponse{Documents: summaries, Count: len(summaries)},
	})
}

// GetDocumentHandler handles GET /v1/documents/:id requests
func (h *Handlers) GetDocumentHandler(c *fiber.Ctx) error {
	ctx := c.Context()

	doc, err := h.store.GetDocument(ctx, c.Params("id"))
	if err != nil {
		return h.sendError(c, asAppError(ctx, err, "get_document"))
	}
	return c.Status(200).JSON(SuccessResponse{Status: "success", Data: doc})
}

// PutDocumentHandler handles PUT /v1/documents/:id requests. The path id wins over
// an empty body id; differing ids are rejected.
func (h *Handlers) PutDocumentHandler(c *fiber.Ctx) error {
	ctx := c.Context()
	id := c.Params("id")

	var doc domain.Document
	if err := c.BodyParser(&doc); err != nil {
		return h.sendError(c, invalidJSON(ctx, err, "put_document_parsing"))
	}
	if doc.ID == "" {
		doc.ID = id
	}
	if doc.ID != id {
		return h.sendError(c, domain.NewAppError(
			domain.ErrInvalidInput,
			"Document id does not match the path",
			400,
			map[string]string{"path_id": id, "body_id": doc.ID},
		))
	}
	if doc.Blocks == nil {
		doc.Blocks = []domain.Block{}
	}

	_, getErr := h.store.GetDocument(ctx, id)
	created := domain.IsNotFound(getErr)

	if err := h.store.PutDocument(ctx, &doc); err != nil {
		return h.sendError(c, asAppError(ctx, err, "put_document"))
	}

	status := 200
	if created {
		status = 201
		log.Info().Str("document_id", id).Int("blocks", len(doc.Blocks)).Msg("Document created")
	}
	return c.Status(status).JSON(SuccessResponse{Status: "success", Data: doc})
}

// DeleteDocumentHandler handles DELETE /v1/documents/:id requests
func (h *Handlers) DeleteDocumentHandler(c *fiber.Ctx) error {
	ctx := c.Context()
	id := c.Params("id")

	if err := h.store.DeleteDocument(ctx, id); err != nil {
		return h.sendError(c, asAppError(ctx, err, "delete_document"))
	}
	log.Info().Str("document_id", id).Msg("Document deleted")
	return c.SendStatus(204)
}

// Package api exposes the block engine over HTTP with fiber.
package api

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/freewebtopdf/block-engine/internal/conflict"
	"github.com/freewebtopdf/block-engine/internal/domain"
	"github.com/freewebtopdf/block-engine/internal/interaction"
)

// InteractionEngine is the part of interaction.Manager the handlers use
type InteractionEngine interface {
	ExecuteInteraction(ctx context.Context, req domain.InteractionRequest) domain.InteractionResult
	GetHistory(filter interaction.HistoryFilter) []domain.InteractionResult
	GetStats() interaction.Stats
	SuggestSplits(block domain.Block) []domain.SplitSuggestion
	SuggestConversions(block domain.Block) []domain.ConversionSuggestion
	AnalyzeRules() []conflict.Report
	Metrics() map[string]any
}

// Handlers contains all HTTP handlers of the block engine API
type Handlers struct {
	engine        InteractionEngine
	store         domain.DocumentStore
	cache         domain.ResolutionCache
	validator     domain.Validator
	healthChecker domain.HealthChecker
	disabledRules []string
}

// NewHandlers creates a new instance of API handlers
func NewHandlers(engine InteractionEngine, store domain.DocumentStore, cache domain.ResolutionCache, validator domain.Validator, healthChecker domain.HealthChecker) *Handlers {
	return &Handlers{
		engine:        engine,
		store:         store,
		cache:         cache,
		validator:     validator,
		healthChecker: healthChecker,
	}
}

// SetDisabledRules records the rules removed from the tables at start-up
func (h *Handlers) SetDisabledRules(names []string) {
	h.disabledRules = names
}

// ErrorResponse represents the standard error response format
type ErrorResponse struct {
	Status  string `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// SuccessResponse represents the standard success response format
type SuccessResponse struct {
	Status string `json:"status"`
	Data   any    `json:"data"`
}

// RulesResponse lists both rule tables with their analysis
type RulesResponse struct {
	Tables   []conflict.Report `json:"tables"`
	Disabled []string          `json:"disabled"`
}

// ListRulesHandler handles GET /v1/rules requests
func (h *Handlers) ListRulesHandler(c *fiber.Ctx) error {
	disabled := h.disabledRules
	if disabled == nil {
		disabled = []string{}
	}
	return c.Status(200).JSON(SuccessResponse{
		Status: "success",
		Data: RulesResponse{
			Tables:   h.engine.AnalyzeRules(),
			Disabled: disabled,
		},
	})
}

// HealthHandler handles GET /health requests
func (h *Handlers) HealthHandler(c *fiber.Ctx) error {
	health := h.healthChecker.CheckHealth(c.Context())

	status := 200
	if health.Status == domain.HealthStatusUnhealthy {
		status = 503
	}

	return c.Status(status).JSON(map[string]any{
		"status":     health.Status,
		"timestamp":  health.Timestamp.Format(time.RFC3339),
		"components": health.Components,
		"uptime":     health.Uptime.String(),
	})
}

// MetricsHandler handles GET /metrics requests
func (h *Handlers) MetricsHandler(c *fiber.Ctx) error {
	ctx := c.Context()

	data := map[string]any{
		"interactions": h.engine.Metrics(),
		"documents":    h.store.GetStats(ctx),
		"uptime": map[string]any{
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		},
	}
	if h.cache != nil {
		data["cache"] = h.cache.Stats().Map()
	}

	return c.Status(200).JSON(SuccessResponse{Status: "success", Data: data})
}

// sendError sends a standardized error response
func (h *Handlers) sendError(c *fiber.Ctx, appErr *domain.AppError) error {
	return c.Status(appErr.StatusCode).JSON(ErrorResponse{
		Status:  "error",
		Code:    appErr.Code,
		Message: appErr.Message,
		Details: appErr.Details,
	})
}

// asAppError turns any error into an AppError, INTERNAL_ERROR for foreign ones
func asAppError(ctx context.Context, err error, operation string) *domain.AppError {
	var appErr *domain.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return domain.NewAppErrorWithCause(domain.ErrInternal, "Internal server error", 500, err, nil).
		WithContext(ctx, operation)
}

func invalidJSON(ctx context.Context, err error, operation string) *domain.AppError {
	return domain.NewAppError(
		domain.ErrInvalidInput,
		"Invalid JSON payload",
		400,
		map[string]string{"error": err.Error()},
	).WithContext(ctx, operation)
}

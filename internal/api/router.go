package api

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/freewebtopdf/block-engine/internal/domain"
	"github.com/freewebtopdf/block-engine/internal/middleware"
)

// RouterConfig contains configuration for the HTTP router. A zero RateLimitRPS
// disables rate limiting.
type RouterConfig struct {
	CORSOrigins    []string
	BodyLimit      int
	RateLimitRPS   int
	RateLimitBurst int
}

// RouterDependencies contains all dependencies needed by the router
type RouterDependencies struct {
	Engine        InteractionEngine
	Store         domain.DocumentStore
	Cache         domain.ResolutionCache
	Validator     domain.Validator
	HealthChecker domain.HealthChecker
	DisabledRules []string
}

// RouterResult contains the configured app and cleanup function
type RouterResult struct {
	App     *fiber.App
	Cleanup func()
}

// SetupRouter builds the fiber app of the block engine
func SetupRouter(deps RouterDependencies, config RouterConfig) *RouterResult {
	app := fiber.New(fiber.Config{
		BodyLimit:    config.BodyLimit,
		ErrorHandler: errorHandler,
	})

	handlers := NewHandlers(deps.Engine, deps.Store, deps.Cache, deps.Validator, deps.HealthChecker)
	handlers.SetDisabledRules(deps.DisabledRules)

	// request ids first so every later log line carries one
	app.Use(requestid.New(requestid.Config{
		Header:    "X-Request-ID",
		Generator: uuid.NewString,
	}))
	app.Use(middleware.RequestLogger())
	app.Use(recover.New(recover.Config{
		EnableStackTrace:  true,
		StackTraceHandler: logPanic,
	}))
	app.Use(middleware.Secure())

	result := &RouterResult{App: app, Cleanup: func() {}}

	if config.RateLimitRPS > 0 {
		rateLimiter := middleware.NewRateLimiter(config.RateLimitRPS, config.RateLimitBurst)
		result.Cleanup = rateLimiter.StartCleanupRoutine()
		app.Use(rateLimiter.Middleware())
	}

	if len(config.CORSOrigins) > 0 {
		app.Use(cors.New(cors.Config{
			AllowOrigins: strings.Join(config.CORSOrigins, ","),
			AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
			AllowHeaders: "Origin,Content-Type,Accept,Authorization,X-Request-ID,X-API-Key",
			MaxAge:       86400,
		}))
	}

	v1 := app.Group("/v1")

	interactions := v1.Group("/interactions")
	interactions.Post("/", handlers.ExecuteInteractionHandler)
	interactions.Get("/history", handlers.HistoryHandler)
	interactions.Get("/stats", handlers.StatsHandler)

	suggestions := v1.Group("/suggestions")
	suggestions.Post("/split", handlers.SuggestSplitsHandler)
	suggestions.Post("/convert", handlers.SuggestConversionsHandler)

	v1.Get("/rules", handlers.ListRulesHandler)

	documents := v1.Group("/documents")
	documents.Get("/", handlers.ListDocumentsHandler)
	documents.Get("/:id", handlers.GetDocumentHandler)
	documents.Put("/:id", handlers.PutDocumentHandler)
	documents.Delete("/:id", handlers.DeleteDocumentHandler)

	app.Get("/health", handlers.HealthHandler)
	app.Get("/metrics", handlers.MetricsHandler)

	return result
}

func logPanic(c *fiber.Ctx, e interface{}) {
	requestID, _ := c.Locals("requestid").(string)
	log.Error().
		Str("request_id", requestID).
		Interface("panic", e).
		Str("method", c.Method()).
		Str("path", c.Path()).
		Msg("Panic recovered")
}

// frameworkCodes maps the statuses fiber raises itself onto error codes
var frameworkCodes = map[int]string{
	fiber.StatusBadRequest:            domain.ErrInvalidInput,
	fiber.StatusNotFound:              domain.ErrNotFound,
	fiber.StatusMethodNotAllowed:      domain.ErrNotFound,
	fiber.StatusRequestEntityTooLarge: domain.ErrTooLarge,
}

// errorHandler renders errors that escape the handlers, fiber's own included,
// in the ErrorResponse shape
func errorHandler(c *fiber.Ctx, err error) error {
	var appErr *domain.AppError
	if errors.As(err, &appErr) {
		return c.Status(appErr.StatusCode).JSON(ErrorResponse{
			Status:  "error",
			Code:    appErr.Code,
			Message: appErr.Message,
			Details: appErr.Details,
		})
	}

	status := fiber.StatusInternalServerError
	message := "Internal Server Error"
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		status = fiberErr.Code
		message = fiberErr.Message
	}
	if status == fiber.StatusRequestEntityTooLarge {
		message = "Request payload too large"
	}

	code, ok := frameworkCodes[status]
	if !ok {
		code = domain.ErrInternal
	}
	return c.Status(status).JSON(ErrorResponse{
		Status:  "error",
		Code:    code,
		Message: message,
	})
}

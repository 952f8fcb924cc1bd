package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// RequestLogger logs one line per request. Failures log at warn or error, writes
// at info and reads at debug, so a default info level shows every mutation.
// Errors from later handlers go through the app error handler first so the
// logged status is the one the client sees.
func RequestLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		if err := c.Next(); err != nil {
			if handlerErr := c.App().ErrorHandler(c, err); handlerErr != nil {
				_ = c.SendStatus(fiber.StatusInternalServerError)
			}
		}

		status := c.Response().StatusCode()
		event := levelFor(status, c.Method())

		requestID, ok := c.Locals("requestid").(string)
		if !ok {
			requestID = "unknown"
		}

		event.
			Str("request_id", requestID).
			Str("method", c.Method()).
			Str("path", c.Path()).
			Str("route", c.Route().Path).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Str("ip", c.IP()).
			Int("body_size", len(c.Body())).
			Int("response_size", len(c.Response().Body())).
			Msg("HTTP request processed")

		return nil
	}
}

func levelFor(status int, method string) *zerolog.Event {
	switch {
	case status >= fiber.StatusInternalServerError:
		return log.Error()
	case status >= fiber.StatusBadRequest:
		return log.Warn()
	case method != fiber.MethodGet && method != fiber.MethodHead:
		return log.Info()
	}
	return log.Debug()
}

// SecurityHeaders are set on every response
var SecurityHeaders = map[string]string{
	"X-Content-Type-Options":    "nosniff",
	"X-Frame-Options":           "DENY",
	"X-XSS-Protection":          "1; mode=block",
	"Strict-Transport-Security": "max-age=31536000; includeSubDomains",
	"Referrer-Policy":           "strict-origin-when-cross-origin",
	"Permissions-Policy":        "geolocation=(), microphone=(), camera=()",
}

// Secure adds SecurityHeaders to the response
func Secure() fiber.Handler {
	return func(c *fiber.Ctx) error {
		for name, value := range SecurityHeaders {
			c.Set(name, value)
		}
		return c.Next()
	}
}

package middleware

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestLogger_Levels(t *testing.T) {
	var buf bytes.Buffer
	original := log.Logger
	originalLevel := zerolog.GlobalLevel()
	defer func() {
		log.Logger = original
		zerolog.SetGlobalLevel(originalLevel)
	}()
	log.Logger = zerolog.New(&buf)
	zerolog.SetGlobalLevel(zerolog.DebugLevel)

	app := fiber.New()
	app.Use(RequestLogger())
	app.Get("/ok", func(c *fiber.Ctx) error { return c.SendString("ok") })
	app.Post("/docs/:id", func(c *fiber.Ctx) error { return c.SendStatus(201) })
	app.Get("/boom", func(c *fiber.Ctx) error { return c.SendStatus(503) })

	tests := []struct {
		method, path, level, route string
	}{
		{"GET", "/ok", "debug", "/ok"},
		{"POST", "/docs/a", "info", "/docs/:id"},
		{"GET", "/boom", "error", "/boom"},
		{"GET", "/missing", "warn", ""},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			buf.Reset()
			_, err := app.Test(httptest.NewRequest(tt.method, tt.path, nil))
			require.NoError(t, err)

			var entry map[string]any
			require.NoError(t, json.Unmarshal(buf.Bytes(), &entry), buf.String())
			assert.Equal(t, tt.level, entry["level"])
			assert.Equal(t, tt.path, entry["path"])
			assert.Equal(t, "unknown", entry["request_id"])
			if tt.route != "" {
				assert.Equal(t, tt.route, entry["route"])
			}
		})
	}
}

func TestSecure(t *testing.T) {
	app := fiber.New()
	app.Use(Secure())
	app.Get("/", func(c *fiber.Ctx) error { return c.SendString("ok") })

	resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)

	for name, value := range SecurityHeaders {
		assert.Equal(t, value, resp.Header.Get(name), name)
	}
}

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/freewebtopdf/block-engine/internal/cache"
	"github.com/freewebtopdf/block-engine/internal/conflict"
	"github.com/freewebtopdf/block-engine/internal/domain"
	"github.com/freewebtopdf/block-engine/internal/interaction"
	"github.com/freewebtopdf/block-engine/internal/storage"
)

// MockEngine is a mock implementation of InteractionEngine
type MockEngine struct {
	mock.Mock
}

func (m *MockEngine) ExecuteInteraction(ctx context.Context, req domain.InteractionRequest) domain.InteractionResult {
	args := m.Called(ctx, req)
	return args.Get(0).(domain.InteractionResult)
}

func (m *MockEngine) GetHistory(filter interaction.HistoryFilter) []domain.InteractionResult {
	args := m.Called(filter)
	return args.Get(0).([]domain.InteractionResult)
}

func (m *MockEngine) GetStats() interaction.Stats {
	args := m.Called()
	return args.Get(0).(interaction.Stats)
}

func (m *MockEngine) SuggestSplits(block domain.Block) []domain.SplitSuggestion {
	args := m.Called(block)
	return args.Get(0).([]domain.SplitSuggestion)
}

func (m *MockEngine) SuggestConversions(block domain.Block) []domain.ConversionSuggestion {
	args := m.Called(block)
	return args.Get(0).([]domain.ConversionSuggestion)
}

func (m *MockEngine) AnalyzeRules() []conflict.Report {
	args := m.Called()
	return args.Get(0).([]conflict.Report)
}

func (m *MockEngine) Metrics() map[string]any {
	args := m.Called()
	return args.Get(0).(map[string]any)
}

// MockHealthChecker is a mock implementation of HealthChecker
type MockHealthChecker struct {
	mock.Mock
}

func (m *MockHealthChecker) CheckHealth(ctx context.Context) domain.SystemHealth {
	args := m.Called(ctx)
	return args.Get(0).(domain.SystemHealth)
}

func (m *MockHealthChecker) CheckComponent(ctx context.Context, component string) domain.HealthStatus {
	args := m.Called(ctx, component)
	return args.Get(0).(domain.HealthStatus)
}

func text(id, body string) domain.Block {
	return domain.Block{ID: id, Type: domain.BlockText, Content: domain.TextContent(body)}
}

func setupTestApp(engine InteractionEngine, store domain.DocumentStore, health domain.HealthChecker) *fiber.App {
	result := SetupRouter(RouterDependencies{
		Engine:        engine,
		Store:         store,
		Cache:         cache.NewLRUCache(64),
		Validator:     domain.NewValidator(),
		HealthChecker: health,
		DisabledRules: []string{"ANY_TO_ANY"},
	}, RouterConfig{BodyLimit: 1 << 20})
	return result.App
}

func doJSON(t testing.TB, app *fiber.App, method, path string, body any) (int, map[string]any) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, ok := body.(string)
		if !ok {
			encoded, err := json.Marshal(body)
			require.NoError(t, err)
			raw = string(encoded)
		}
		reader = bytes.NewBufferString(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, 5000)
	require.NoError(t, err)

	var decoded map[string]any
	data, _ := io.ReadAll(resp.Body)
	if len(data) > 0 {
		require.NoError(t, json.Unmarshal(data, &decoded), string(data))
	}
	return resp.StatusCode, decoded
}

func successResult(changes ...domain.Change) domain.InteractionResult {
	if changes == nil {
		changes = []domain.Change{}
	}
	return domain.InteractionResult{
		ID:        "r1",
		Type:      domain.InteractionMerge,
		Result:    domain.ResultSuccess,
		Changes:   changes,
		Timestamp: time.Now(),
	}
}

func TestExecuteInteractionHandler_InlineBlocks(t *testing.T) {
	engine := new(MockEngine)
	engine.On("ExecuteInteraction", mock.Anything, mock.MatchedBy(func(req domain.InteractionRequest) bool {
		return req.Type == domain.InteractionMerge && len(req.SourceBlocks) == 1 && req.TargetBlock.ID == "t"
	})).Return(successResult())

	app := setupTestApp(engine, storage.NewStore(), new(MockHealthChecker))
	status, body := doJSON(t, app, "POST", "/v1/interactions", InteractionBody{
		Type:         domain.InteractionMerge,
		SourceBlocks: []domain.Block{text("a", "Hello")},
		TargetBlock:  &domain.Block{ID: "t", Type: domain.BlockText, Content: domain.TextContent("World")},
	})

	assert.Equal(t, 200, status)
	assert.Equal(t, "success", body["status"])
	data := body["data"].(map[string]any)
	assert.Equal(t, "r1", data["result"].(map[string]any)["id"])
	assert.NotContains(t, data, "document")
	engine.AssertExpectations(t)
}

func TestExecuteInteractionHandler_ResolvesIdsAndApplies(t *testing.T) {
	store := storage.NewStore()
	require.NoError(t, store.PutDocument(context.Background(), &domain.Document{
		ID:     "doc",
		Blocks: []domain.Block{text("t", "World"), text("a", "Hello")},
	}))

	changes := []domain.Change{
		domain.UpdateChange("t", "", &domain.Content{Text: "World Hello"}, nil),
		domain.DeleteChange("a"),
	}
	engine := new(MockEngine)
	engine.On("ExecuteInteraction", mock.Anything, mock.MatchedBy(func(req domain.InteractionRequest) bool {
		return req.SourceBlocks[0].Content.Text == "Hello" && req.TargetBlock.Content.Text == "World"
	})).Return(successResult(changes...))

	app := setupTestApp(engine, store, new(MockHealthChecker))
	status, body := doJSON(t, app, "POST", "/v1/interactions", InteractionBody{
		DocumentID:     "doc",
		Type:           domain.InteractionMerge,
		SourceBlockIDs: []string{"a"},
		TargetBlockID:  "t",
		Apply:          true,
	})

	require.Equal(t, 200, status, body)
	doc := body["data"].(map[string]any)["document"].(map[string]any)
	blocks := doc["blocks"].([]any)
	require.Len(t, blocks, 1)
	assert.Equal(t, "World Hello", blocks[0].(map[string]any)["content"])
}

func TestExecuteInteractionHandler_Errors(t *testing.T) {
	store := storage.NewStore()
	require.NoError(t, store.PutDocument(context.Background(), &domain.Document{ID: "doc", Blocks: []domain.Block{text("a", "x")}}))

	engine := new(MockEngine)
	engine.On("ExecuteInteraction", mock.Anything, mock.MatchedBy(func(req domain.InteractionRequest) bool {
		return req.Type == domain.InteractionSplit
	})).Return(domain.InteractionResult{ID: "r2", Type: domain.InteractionSplit, Result: domain.ResultFailed, Error: "Block is too short to split"})
	engine.On("ExecuteInteraction", mock.Anything, mock.MatchedBy(func(req domain.InteractionRequest) bool {
		return req.Type == domain.InteractionConvert
	})).Return(domain.InteractionResult{ID: "r3", Result: domain.ResultCancelled})
	engine.On("ExecuteInteraction", mock.Anything, mock.MatchedBy(func(req domain.InteractionRequest) bool {
		return req.Type == domain.InteractionMerge
	})).Return(successResult(domain.DeleteChange("missing")))

	app := setupTestApp(engine, store, new(MockHealthChecker))

	tests := []struct {
		name   string
		body   any
		status int
		code   string
	}{
		{"malformed json", "{", 400, domain.ErrInvalidInput},
		{"both source forms", InteractionBody{Type: "merge", DocumentID: "doc", SourceBlocks: []domain.Block{text("a", "")}, SourceBlockIDs: []string{"a"}}, 400, domain.ErrInvalidInput},
		{"ids without document", InteractionBody{Type: "merge", SourceBlockIDs: []string{"a"}}, 400, domain.ErrInvalidInput},
		{"apply without document", InteractionBody{Type: "merge", SourceBlocks: []domain.Block{text("a", "")}, Apply: true}, 400, domain.ErrInvalidInput},
		{"unknown document", InteractionBody{Type: "merge", DocumentID: "nope", SourceBlockIDs: []string{"a"}}, 404, domain.ErrNotFound},
		{"unknown block", InteractionBody{Type: "merge", DocumentID: "doc", SourceBlockIDs: []string{"zzz"}}, 404, domain.ErrNotFound},
		{"failed interaction", InteractionBody{Type: "split", SourceBlocks: []domain.Block{text("a", "x")}}, 422, domain.ErrValidationFailed},
		{"cancelled interaction", InteractionBody{Type: "convert", SourceBlocks: []domain.Block{text("a", "x")}}, 408, domain.ErrTimeout},
		{"changes do not apply", InteractionBody{Type: "merge", DocumentID: "doc", SourceBlockIDs: []string{"a"}, Apply: true}, 409, domain.ErrApplyFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := doJSON(t, app, "POST", "/v1/interactions", tt.body)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, "error", body["status"])
			assert.Equal(t, tt.code, body["code"])
		})
	}
}

func TestHistoryHandler(t *testing.T) {
	engine := new(MockEngine)
	since := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	engine.On("GetHistory", interaction.HistoryFilter{
		Type:   domain.InteractionSplit,
		Result: domain.ResultSuccess,
		Since:  since,
		Limit:  5,
	}).Return([]domain.InteractionResult{successResult()})
	engine.On("GetStats").Return(interaction.Stats{Total: 1, SuccessRate: 1})

	app := setupTestApp(engine, storage.NewStore(), new(MockHealthChecker))

	status, body := doJSON(t, app, "GET", "/v1/interactions/history?type=split&result=success&limit=5&since=2026-01-02T03:04:05Z", nil)
	assert.Equal(t, 200, status)
	assert.Equal(t, float64(1), body["data"].(map[string]any)["count"])

	status, body = doJSON(t, app, "GET", "/v1/interactions/history?since=yesterday", nil)
	assert.Equal(t, 400, status)
	assert.Equal(t, domain.ErrInvalidInput, body["code"])

	status, _ = doJSON(t, app, "GET", "/v1/interactions/history?limit=-1", nil)
	assert.Equal(t, 400, status)

	status, body = doJSON(t, app, "GET", "/v1/interactions/stats", nil)
	assert.Equal(t, 200, status)
	assert.Equal(t, float64(1), body["data"].(map[string]any)["total"])
}

func TestSuggestionHandlers(t *testing.T) {
	engine := new(MockEngine)
	engine.On("SuggestSplits", mock.Anything).Return([]domain.SplitSuggestion{{Strategy: "sentence", PartsCount: 2, Confidence: 0.8}})
	engine.On("SuggestConversions", mock.Anything).Return([]domain.ConversionSuggestion{{TargetType: domain.BlockHeading1, Confidence: 0.7}})
	app := setupTestApp(engine, storage.NewStore(), new(MockHealthChecker))

	status, body := doJSON(t, app, "POST", "/v1/suggestions/split", SuggestionBody{Block: text("a", "One. Two.")})
	assert.Equal(t, 200, status)
	suggestions := body["data"].(map[string]any)["suggestions"].([]any)
	assert.Equal(t, "sentence", suggestions[0].(map[string]any)["strategy"])

	status, body = doJSON(t, app, "POST", "/v1/suggestions/convert", SuggestionBody{Block: text("a", "Title")})
	assert.Equal(t, 200, status)
	suggestions = body["data"].(map[string]any)["suggestions"].([]any)
	assert.Equal(t, "heading1", suggestions[0].(map[string]any)["targetType"])

	status, body = doJSON(t, app, "POST", "/v1/suggestions/split", SuggestionBody{Block: domain.Block{Type: domain.BlockText}})
	assert.Equal(t, 422, status)
	assert.Equal(t, domain.ErrValidationFailed, body["code"])
}

func TestDocumentHandlers(t *testing.T) {
	app := setupTestApp(new(MockEngine), storage.NewStore(), new(MockHealthChecker))

	status, _ := doJSON(t, app, "PUT", "/v1/documents/notes", domain.Document{Title: "Notes", Blocks: []domain.Block{text("a", "x")}})
	assert.Equal(t, 201, status)

	status, _ = doJSON(t, app, "PUT", "/v1/documents/notes", domain.Document{ID: "notes", Blocks: []domain.Block{text("a", "y")}})
	assert.Equal(t, 200, status)

	status, body := doJSON(t, app, "PUT", "/v1/documents/notes", domain.Document{ID: "other"})
	assert.Equal(t, 400, status)
	assert.Equal(t, domain.ErrInvalidInput, body["code"])

	status, body = doJSON(t, app, "PUT", "/v1/documents/dup", domain.Document{Blocks: []domain.Block{text("a", ""), text("a", "")}})
	assert.Equal(t, 409, status)
	assert.Equal(t, domain.ErrConflict, body["code"])

	status, body = doJSON(t, app, "GET", "/v1/documents", nil)
	assert.Equal(t, 200, status)
	assert.Equal(t, float64(1), body["data"].(map[string]any)["count"])

	status, body = doJSON(t, app, "GET", "/v1/documents/notes", nil)
	assert.Equal(t, 200, status)
	assert.Equal(t, "y", body["data"].(map[string]any)["blocks"].([]any)[0].(map[string]any)["content"])

	status, _ = doJSON(t, app, "DELETE", "/v1/documents/notes", nil)
	assert.Equal(t, 204, status)

	status, body = doJSON(t, app, "GET", "/v1/documents/notes", nil)
	assert.Equal(t, 404, status)
	assert.Equal(t, domain.ErrNotFound, body["code"])
}

func TestRulesHandler(t *testing.T) {
	engine := new(MockEngine)
	engine.On("AnalyzeRules").Return([]conflict.Report{{Table: conflict.TableMerge, Count: 2}})
	app := setupTestApp(engine, storage.NewStore(), new(MockHealthChecker))

	status, body := doJSON(t, app, "GET", "/v1/rules", nil)
	assert.Equal(t, 200, status)
	data := body["data"].(map[string]any)
	assert.Equal(t, []any{"ANY_TO_ANY"}, data["disabled"])
	assert.Equal(t, "merge", data["tables"].([]any)[0].(map[string]any)["table"])
}

func TestHealthAndMetricsHandlers(t *testing.T) {
	tests := []struct {
		status   string
		expected int
	}{
		{domain.HealthStatusHealthy, 200},
		{domain.HealthStatusDegraded, 200},
		{domain.HealthStatusUnhealthy, 503},
	}

	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			health := new(MockHealthChecker)
			health.On("CheckHealth", mock.Anything).Return(domain.SystemHealth{Status: tt.status, Timestamp: time.Now()})
			engine := new(MockEngine)
			engine.On("Metrics").Return(map[string]any{"interactions": 3})
			app := setupTestApp(engine, storage.NewStore(), health)

			status, body := doJSON(t, app, "GET", "/health", nil)
			assert.Equal(t, tt.expected, status)
			assert.Equal(t, tt.status, body["status"])

			status, body = doJSON(t, app, "GET", "/metrics", nil)
			assert.Equal(t, 200, status)
			data := body["data"].(map[string]any)
			assert.Contains(t, data, "cache")
			assert.Equal(t, float64(3), data["interactions"].(map[string]any)["interactions"])
		})
	}
}

func TestRouter_UnknownRouteAndHeaders(t *testing.T) {
	app := setupTestApp(new(MockEngine), storage.NewStore(), new(MockHealthChecker))

	req := httptest.NewRequest("GET", "/v1/nothing", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 404, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
}

// Feature: github.com/freewebtopdf/block-engine, Property 17: Unknown block ids never reach the engine
func TestProperty_UnknownBlockIdsRejected(t *testing.T) {
	store := storage.NewStore()
	require.NoError(t, store.PutDocument(context.Background(), &domain.Document{ID: "doc", Blocks: []domain.Block{text("known", "x")}}))
	engine := new(MockEngine)
	app := setupTestApp(engine, store, new(MockHealthChecker))

	properties := gopter.NewProperties(nil)
	properties.Property("a request naming a missing block is answered with 404", prop.ForAll(
		func(suffix string) bool {
			status, body := doJSON(t, app, "POST", "/v1/interactions", InteractionBody{
				DocumentID:     "doc",
				Type:           domain.InteractionSplit,
				SourceBlockIDs: []string{fmt.Sprintf("missing-%s", suffix)},
			})
			return status == 404 && body["code"] == domain.ErrNotFound
		},
		gen.AlphaString(),
	))
	properties.TestingRun(t, gopter.ConsoleReporter(false))

	engine.AssertNotCalled(t, "ExecuteInteraction", mock.Anything, mock.Anything)
}

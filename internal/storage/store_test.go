package storage

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/freewebtopdf/block-engine/internal/cache"
	"github.com/freewebtopdf/block-engine/internal/domain"
	"github.com/freewebtopdf/block-engine/internal/merger"
	"github.com/freewebtopdf/block-engine/internal/splitter"
)

func text(id, body string) domain.Block {
	return domain.Block{ID: id, Type: domain.BlockText, Content: domain.TextContent(body)}
}

func ids(doc *domain.Document) []string {
	out := make([]string, len(doc.Blocks))
	for i, b := range doc.Blocks {
		out[i] = b.ID
	}
	return out
}

func seeded(t *testing.T, blocks ...domain.Block) *Store {
	t.Helper()
	store := NewStore()
	require.NoError(t, store.PutDocument(context.Background(), &domain.Document{ID: "doc", Blocks: blocks}))
	return store
}

func TestStore_BasicOperations(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	require.NoError(t, store.Load(ctx))

	doc := &domain.Document{ID: "notes", Title: "Notes", Blocks: []domain.Block{text("a", "hello")}}
	require.NoError(t, store.PutDocument(ctx, doc))

	doc.Blocks[0].Content = domain.TextContent("mutated")
	retrieved, err := store.GetDocument(ctx, "notes")
	require.NoError(t, err)
	assert.Equal(t, "hello", retrieved.Blocks[0].Content.Text)

	all, err := store.ListDocuments(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	require.NoError(t, store.DeleteDocument(ctx, "notes"))
	_, err = store.GetDocument(ctx, "notes")
	assert.True(t, domain.IsNotFound(err))
	assert.True(t, domain.IsNotFound(store.DeleteDocument(ctx, "notes")))
}

func TestStore_RejectsInvalidDocuments(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	assert.Error(t, store.PutDocument(ctx, &domain.Document{}))
	err := store.PutDocument(ctx, &domain.Document{ID: "dup", Blocks: []domain.Block{text("a", ""), text("a", "")}})
	assert.Equal(t, domain.ErrConflict, domain.ErrorCode(err))
}

func TestApply_MergeChanges(t *testing.T) {
	store := seeded(t, text("t", "World"), text("x", "between"), text("a", "Hello"))
	m := merger.NewMerger(nil, cache.NewLRUCache(16), merger.Settings{})

	result := m.Merge([]domain.Block{text("a", "Hello")}, text("t", "World"), domain.Options{})
	require.True(t, result.Success)

	doc, err := store.Apply(context.Background(), "doc", result.Changes)
	require.NoError(t, err)
	assert.Equal(t, []string{"t", "x"}, ids(doc))
	assert.Equal(t, "World Hello", doc.Blocks[0].Content.Text)
}

func TestApply_SplitChangesKeepOrder(t *testing.T) {
	store := seeded(t, text("p", "One.\n\nTwo.\n\nThree."), text("z", "end"))
	s := splitter.NewSplitter(splitter.Settings{})

	result := s.Split(text("p", "One.\n\nTwo.\n\nThree."), domain.Options{Strategy: splitter.StrategyParagraph})
	require.True(t, result.Success)

	doc, err := store.Apply(context.Background(), "doc", result.Changes)
	require.NoError(t, err)
	require.Len(t, doc.Blocks, 4)
	assert.Equal(t, "p", doc.Blocks[0].ID)
	assert.Equal(t, []string{"One.", "Two.", "Three.", "end"}, []string{
		doc.Blocks[0].Content.Text, doc.Blocks[1].Content.Text, doc.Blocks[2].Content.Text, doc.Blocks[3].Content.Text,
	})
}

func TestApply_InsertAtStartAndRetype(t *testing.T) {
	store := seeded(t, text("a", "x"))
	heading := domain.BlockHeading1

	doc, err := store.Apply(context.Background(), "doc", []domain.Change{
		domain.InsertChange(text("first", "top"), ""),
		domain.UpdateChange("a", heading, nil, nil),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "a"}, ids(doc))
	assert.Equal(t, heading, doc.Blocks[1].Type)
	assert.Equal(t, "x", doc.Blocks[1].Content.Text)
}

func TestApply_IsAtomic(t *testing.T) {
	store := seeded(t, text("a", "x"), text("b", "y"))
	ctx := context.Background()

	tests := []struct {
		name    string
		changes []domain.Change
	}{
		{"update missing block", []domain.Change{domain.DeleteChange("a"), domain.UpdateChange("missing", "", nil, nil)}},
		{"delete twice", []domain.Change{domain.DeleteChange("a"), domain.DeleteChange("a")}},
		{"insert duplicate", []domain.Change{domain.InsertChange(text("b", ""), "a")}},
		{"insert after missing", []domain.Change{domain.DeleteChange("b"), domain.InsertChange(text("c", ""), "nope")}},
		{"insert without block", []domain.Change{{Action: domain.ActionInsert, BlockID: "c"}}},
		{"unknown action", []domain.Change{{Action: "move", BlockID: "a"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := store.Apply(ctx, "doc", tt.changes)
			require.Error(t, err)
			assert.Equal(t, domain.ErrApplyFailed, domain.ErrorCode(err))

			doc, err := store.GetDocument(ctx, "doc")
			require.NoError(t, err)
			assert.Equal(t, []string{"a", "b"}, ids(doc))
			assert.Equal(t, "x", doc.Blocks[0].Content.Text)
		})
	}

	stats := store.GetStats(ctx)
	assert.Equal(t, int64(len(tests)), stats["rejected_changes"])
}

func TestApply_UnknownDocumentAndCancelledContext(t *testing.T) {
	store := NewStore()
	_, err := store.Apply(context.Background(), "missing", nil)
	assert.True(t, domain.IsNotFound(err))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = store.Apply(ctx, "missing", nil)
	assert.True(t, domain.IsTimeout(err))
}

func TestStore_Persistence(t *testing.T) {
	dataDir := t.TempDir()
	ctx := context.Background()

	store := NewStoreWithConfig(DefaultStoreConfig(dataDir, true))
	require.NoError(t, store.Load(ctx))
	require.NoError(t, store.PutDocument(ctx, &domain.Document{ID: "kept", Blocks: []domain.Block{text("a", "x"), text("b", "y")}}))
	require.NoError(t, store.PutDocument(ctx, &domain.Document{ID: "dropped", Blocks: []domain.Block{}}))
	_, err := store.Apply(ctx, "kept", []domain.Change{domain.DeleteChange("b")})
	require.NoError(t, err)
	require.NoError(t, store.DeleteDocument(ctx, "dropped"))

	reloaded := NewStoreWithConfig(DefaultStoreConfig(dataDir, true))
	require.NoError(t, reloaded.Load(ctx))

	docs, err := reloaded.ListDocuments(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "kept", docs[0].ID)
	assert.Equal(t, []string{"a"}, ids(&docs[0]))

	assert.Equal(t, domain.HealthStatusHealthy, reloaded.HealthCheck(ctx).Status)
}

func TestStore_HealthAndStats(t *testing.T) {
	store := seeded(t, text("a", "x"), domain.Block{ID: "i", Type: domain.BlockImage})
	ctx := context.Background()

	health := store.HealthCheck(ctx)
	assert.Equal(t, domain.HealthStatusHealthy, health.Status)
	assert.Equal(t, 1, health.Details["document_count"])

	stats := store.GetStats(ctx)
	assert.Equal(t, 2, stats["block_count"])
	assert.Equal(t, 1, stats["block_types"].(map[domain.BlockType]int)[domain.BlockImage])
}

func genTexts(maxSize int) gopter.Gen {
	return gen.SliceOf(gen.AlphaString()).Map(func(texts []string) []string {
		if len(texts) > maxSize {
			return texts[:maxSize]
		}
		return texts
	})
}

// Feature: github.com/freewebtopdf/block-engine, Property 14: Index and order stay synchronized
func TestProperty_IndexOrderSynchronization(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("every put document is listed once, in insertion order", prop.ForAll(
		func(count int, deleteEvery int) bool {
			store := NewStore()
			ctx := context.Background()
			var want []string
			for i := 0; i < count; i++ {
				id := fmt.Sprintf("d%d", i)
				if store.PutDocument(ctx, &domain.Document{ID: id, Blocks: []domain.Block{}}) != nil {
					return false
				}
				want = append(want, id)
			}
			for i := 0; i < count; i += deleteEvery {
				if store.DeleteDocument(ctx, fmt.Sprintf("d%d", i)) != nil {
					return false
				}
			}

			docs, _ := store.ListDocuments(ctx)
			var kept []string
			for i, id := range want {
				if i%deleteEvery != 0 {
					kept = append(kept, id)
				}
			}
			if len(docs) != len(kept) {
				return false
			}
			for i, doc := range docs {
				if doc.ID != kept[i] {
					return false
				}
			}
			return store.HealthCheck(ctx).Status == domain.HealthStatusHealthy
		},
		gen.IntRange(0, 30),
		gen.IntRange(1, 5),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

// Feature: github.com/freewebtopdf/block-engine, Property 15: Applied merges leave one block with all text
func TestProperty_AppliedMergeKeepsText(t *testing.T) {
	properties := gopter.NewProperties(nil)
	m := merger.NewMerger(nil, nil, merger.Settings{})

	properties.Property("merging every block into the first leaves a single block", prop.ForAll(
		func(texts []string) bool {
			blocks := []domain.Block{text("target", "start")}
			for i, body := range texts {
				blocks = append(blocks, text(fmt.Sprintf("b%d", i), body))
			}
			store := NewStore()
			ctx := context.Background()
			if store.PutDocument(ctx, &domain.Document{ID: "doc", Blocks: blocks}) != nil {
				return false
			}
			if len(texts) == 0 {
				return true
			}

			result := m.Merge(blocks[1:], blocks[0], domain.Options{})
			if !result.Success {
				return false
			}
			doc, err := store.Apply(ctx, "doc", result.Changes)
			if err != nil || len(doc.Blocks) != 1 {
				return false
			}
			expected := result.Changes[0].NewContent.Text
			return doc.Blocks[0].Content.Text == expected
		},
		genTexts(20),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestStore_ConcurrentApply(t *testing.T) {
	store := seeded(t, text("base", ""))
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := store.Apply(ctx, "doc", []domain.Change{domain.InsertChange(text(fmt.Sprintf("n%d", i), ""), "base")})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	doc, err := store.GetDocument(ctx, "doc")
	require.NoError(t, err)
	assert.Len(t, doc.Blocks, 51)
	assert.Equal(t, "base", doc.Blocks[0].ID)
}

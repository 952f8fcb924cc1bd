package interaction

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/freewebtopdf/block-engine/internal/cache"
	"github.com/freewebtopdf/block-engine/internal/converter"
	"github.com/freewebtopdf/block-engine/internal/domain"
	"github.com/freewebtopdf/block-engine/internal/merger"
	"github.com/freewebtopdf/block-engine/internal/splitter"
)

// MockMerger is a mock implementation of BlockMerger
type MockMerger struct {
	mock.Mock
}

func (m *MockMerger) Merge(sources []domain.Block, target domain.Block, opts domain.Options) domain.TransformResult {
	args := m.Called(sources, target, opts)
	return args.Get(0).(domain.TransformResult)
}

func (m *MockMerger) ValidateMerge(sources []domain.Block, target *domain.Block, opts domain.Options) domain.ValidationResult {
	args := m.Called(sources, target, opts)
	return args.Get(0).(domain.ValidationResult)
}

func (m *MockMerger) Rules() []domain.Rule {
	args := m.Called()
	return args.Get(0).([]domain.Rule)
}

// MockSplitter is a mock implementation of BlockSplitter
type MockSplitter struct {
	mock.Mock
}

func (m *MockSplitter) Split(source domain.Block, opts domain.Options) domain.TransformResult {
	args := m.Called(source, opts)
	return args.Get(0).(domain.TransformResult)
}

func (m *MockSplitter) ValidateSplit(source domain.Block, opts domain.Options) domain.ValidationResult {
	args := m.Called(source, opts)
	return args.Get(0).(domain.ValidationResult)
}

func (m *MockSplitter) SuggestSplits(block domain.Block) []domain.SplitSuggestion {
	args := m.Called(block)
	return args.Get(0).([]domain.SplitSuggestion)
}

// listenerRecorder records every delivered event
type listenerRecorder struct {
	mu     sync.Mutex
	events []string
}

func (r *listenerRecorder) listen(event string, _ domain.InteractionResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *listenerRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

func block(id string, t domain.BlockType, text string) domain.Block {
	return domain.Block{ID: id, Type: t, Content: domain.TextContent(text)}
}

func newEngine(maxHistory int) *Manager {
	return NewManager(
		merger.NewMerger(nil, cache.NewLRUCache(64), merger.Settings{}),
		splitter.NewSplitter(splitter.Settings{}),
		converter.NewConverter(nil),
		Settings{MaxHistorySize: maxHistory},
	)
}

func subscribeAll(m *Manager, r *listenerRecorder) {
	m.On(domain.EventInteractionCompleted, r.listen)
	m.On(domain.EventInteractionError, r.listen)
}

func TestExecuteInteraction_Merge(t *testing.T) {
	m := newEngine(0)
	recorder := &listenerRecorder{}
	subscribeAll(m, recorder)

	target := block("t", domain.BlockText, "World")
	result := m.ExecuteInteraction(context.Background(), domain.InteractionRequest{
		Type:         domain.InteractionMerge,
		SourceBlocks: []domain.Block{block("a", domain.BlockText, "Hello")},
		TargetBlock:  &target,
	})

	require.Equal(t, domain.ResultSuccess, result.Result, result.Error)
	assert.NotEmpty(t, result.ID)
	assert.False(t, result.Timestamp.IsZero())
	require.Len(t, result.Changes, 2)
	assert.Equal(t, "World Hello", result.Changes[0].NewContent.Text)
	assert.Equal(t, domain.DeleteChange("a"), result.Changes[1])

	assert.Len(t, m.GetHistory(HistoryFilter{}), 1)
	assert.Equal(t, []string{domain.EventInteractionCompleted}, recorder.events)
}

func TestExecuteInteraction_SplitAndConvert(t *testing.T) {
	m := newEngine(0)

	split := m.ExecuteInteraction(context.Background(), domain.InteractionRequest{
		Type:         domain.InteractionSplit,
		SourceBlocks: []domain.Block{block("p", domain.BlockText, "First.\n\nSecond.")},
		Options:      domain.Options{Strategy: splitter.StrategyParagraph},
	})
	require.Equal(t, domain.ResultSuccess, split.Result, split.Error)
	assert.Len(t, split.Changes, 2)

	convert := m.ExecuteInteraction(context.Background(), domain.InteractionRequest{
		Type:         domain.InteractionConvert,
		SourceBlocks: []domain.Block{block("l", domain.BlockBulletList, "- a\n- b")},
		Options:      domain.Options{TargetType: domain.BlockNumberedList},
	})
	require.Equal(t, domain.ResultSuccess, convert.Result, convert.Error)
	assert.Equal(t, "1. a\n2. b", convert.Changes[0].NewContent.Text)
}

func TestExecuteInteraction_ValidationFailureSkipsHistory(t *testing.T) {
	m := newEngine(0)
	recorder := &listenerRecorder{}
	subscribeAll(m, recorder)

	tests := []struct {
		name string
		req  domain.InteractionRequest
		want string
	}{
		{
			name: "unknown type",
			req:  domain.InteractionRequest{Type: "teleport", SourceBlocks: []domain.Block{block("a", domain.BlockText, "x")}},
			want: "Unsupported interaction type",
		},
		{
			name: "no sources",
			req:  domain.InteractionRequest{Type: domain.InteractionMerge},
			want: "At least one source block",
		},
		{
			name: "merge without target",
			req:  domain.InteractionRequest{Type: domain.InteractionMerge, SourceBlocks: []domain.Block{block("a", domain.BlockText, "x")}},
			want: "Target block is required",
		},
		{
			name: "split cursor at boundary",
			req: domain.InteractionRequest{
				Type:         domain.InteractionSplit,
				SourceBlocks: []domain.Block{block("a", domain.BlockText, "hello")},
				Options:      domain.Options{Strategy: splitter.StrategyCursor, CursorPosition: intPtr(0)},
			},
		},
		{
			name: "convert to same type",
			req: domain.InteractionRequest{
				Type:         domain.InteractionConvert,
				SourceBlocks: []domain.Block{block("a", domain.BlockText, "x")},
				Options:      domain.Options{TargetType: domain.BlockText},
			},
			want: "already of type text",
		},
		{
			name: "rearrange after itself",
			req: domain.InteractionRequest{
				Type:         domain.InteractionRearrange,
				SourceBlocks: []domain.Block{block("a", domain.BlockText, "x")},
				Options:      domain.Options{AfterBlockID: "a"},
			},
			want: "after itself",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := m.ExecuteInteraction(context.Background(), tt.req)
			assert.Equal(t, domain.ResultFailed, result.Result)
			assert.NotEmpty(t, result.Error)
			assert.Contains(t, result.Error, tt.want)
			assert.Empty(t, result.Changes)
		})
	}

	assert.Empty(t, m.GetHistory(HistoryFilter{}))
	assert.Zero(t, recorder.count())
}

func TestExecuteInteraction_Cancelled(t *testing.T) {
	m := newEngine(0)
	recorder := &listenerRecorder{}
	subscribeAll(m, recorder)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	target := block("t", domain.BlockText, "World")
	result := m.ExecuteInteraction(ctx, domain.InteractionRequest{
		Type:         domain.InteractionMerge,
		SourceBlocks: []domain.Block{block("a", domain.BlockText, "Hello")},
		TargetBlock:  &target,
	})

	assert.Equal(t, domain.ResultCancelled, result.Result)
	assert.Empty(t, result.Changes)
	assert.Empty(t, m.GetHistory(HistoryFilter{}))
	assert.Zero(t, recorder.count())
}

func TestExecuteInteraction_SubsystemFailureEmitsError(t *testing.T) {
	mockMerger := new(MockMerger)
	m := NewManager(mockMerger, new(MockSplitter), converter.NewConverter(nil), Settings{})
	recorder := &listenerRecorder{}
	subscribeAll(m, recorder)

	target := block("t", domain.BlockText, "x")
	sources := []domain.Block{block("a", domain.BlockText, "y")}
	mockMerger.On("ValidateMerge", sources, &target, domain.Options{}).Return(domain.Valid(nil))
	mockMerger.On("Merge", sources, target, domain.Options{}).Return(domain.TransformResult{Success: false, Error: "boom"})

	result := m.ExecuteInteraction(context.Background(), domain.InteractionRequest{
		Type:         domain.InteractionMerge,
		SourceBlocks: sources,
		TargetBlock:  &target,
	})

	assert.Equal(t, domain.ResultFailed, result.Result)
	assert.Equal(t, "boom", result.Error)
	assert.Equal(t, []string{domain.EventInteractionError}, recorder.events)
	assert.Len(t, m.GetHistory(HistoryFilter{Result: domain.ResultFailed}), 1)
	mockMerger.AssertExpectations(t)
}

func TestExecuteInteraction_RecoversStrategyPanic(t *testing.T) {
	mockSplitter := new(MockSplitter)
	m := NewManager(new(MockMerger), mockSplitter, converter.NewConverter(nil), Settings{})

	source := block("a", domain.BlockText, "x")
	mockSplitter.On("ValidateSplit", source, domain.Options{}).Return(domain.Valid(nil))
	mockSplitter.On("Split", source, domain.Options{}).Run(func(mock.Arguments) {
		panic("index out of range")
	})

	var result domain.InteractionResult
	require.NotPanics(t, func() {
		result = m.ExecuteInteraction(context.Background(), domain.InteractionRequest{
			Type:         domain.InteractionSplit,
			SourceBlocks: []domain.Block{source},
		})
	})

	assert.Equal(t, domain.ResultFailed, result.Result)
	assert.Contains(t, result.Error, "index out of range")
	assert.Len(t, m.GetHistory(HistoryFilter{}), 1)
}

func TestExecuteInteraction_RecoversValidationPanic(t *testing.T) {
	mockMerger := new(MockMerger)
	m := NewManager(mockMerger, new(MockSplitter), converter.NewConverter(nil), Settings{})
	recorder := &listenerRecorder{}
	subscribeAll(m, recorder)

	source := block("a", domain.BlockText, "x")
	target := block("t", domain.BlockText, "y")
	mockMerger.On("ValidateMerge", []domain.Block{source}, &target, domain.Options{}).Run(func(mock.Arguments) {
		panic("nil rule table")
	})

	var result domain.InteractionResult
	require.NotPanics(t, func() {
		result = m.ExecuteInteraction(context.Background(), domain.InteractionRequest{
			Type:         domain.InteractionMerge,
			SourceBlocks: []domain.Block{source},
			TargetBlock:  &target,
		})
	})

	assert.Equal(t, domain.ResultFailed, result.Result)
	assert.Contains(t, result.Error, "nil rule table")
	assert.Empty(t, result.Changes)
	assert.Empty(t, m.GetHistory(HistoryFilter{}))
	assert.Zero(t, recorder.count())
	mockMerger.AssertNotCalled(t, "Merge", mock.Anything, mock.Anything, mock.Anything)
}

func TestExecuteInteraction_GroupAndUngroup(t *testing.T) {
	m := newEngine(0)
	blocks := []domain.Block{block("a", domain.BlockText, "x"), block("b", domain.BlockImage, "")}

	grouped := m.ExecuteInteraction(context.Background(), domain.InteractionRequest{
		Type:         domain.InteractionGroup,
		SourceBlocks: blocks,
		Options:      domain.Options{GroupType: "gallery-row", GroupID: "g1"},
	})
	require.Equal(t, domain.ResultSuccess, grouped.Result, grouped.Error)
	require.Len(t, grouped.Changes, 2)
	for i, c := range grouped.Changes {
		assert.Equal(t, domain.ActionUpdate, c.Action)
		require.NotNil(t, c.Metadata.Group)
		assert.Equal(t, domain.GroupInfo{IsGrouped: true, GroupID: "g1", GroupType: "gallery-row", GroupIndex: i, TotalInGroup: 2}, *c.Metadata.Group)
	}

	for i := range blocks {
		blocks[i].Metadata = *grouped.Changes[i].Metadata
	}
	ungrouped := m.ExecuteInteraction(context.Background(), domain.InteractionRequest{
		Type:         domain.InteractionUngroup,
		SourceBlocks: blocks,
	})
	require.Equal(t, domain.ResultSuccess, ungrouped.Result, ungrouped.Error)
	require.Len(t, ungrouped.Changes, 2)
	for _, c := range ungrouped.Changes {
		assert.Nil(t, c.Metadata.Group)
	}
}

func TestCreateGroup_Defaults(t *testing.T) {
	result := CreateGroup([]domain.Block{block("a", domain.BlockText, "")}, domain.Options{})
	require.True(t, result.Success)
	data := result.Data.(GroupResult)
	assert.NotEmpty(t, data.GroupID)
	assert.Equal(t, DefaultGroupType, data.GroupType)
}

func TestDisbandGroup_NothingGrouped(t *testing.T) {
	result := DisbandGroup([]domain.Block{block("a", domain.BlockText, "")}, domain.Options{})
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "belongs to a group")
}

func TestRearrange_ChainsInserts(t *testing.T) {
	a := block("a", domain.BlockText, "one")
	b := block("b", domain.BlockText, "two")

	result := Rearrange([]domain.Block{a, b, a}, "x")
	require.True(t, result.Success)
	require.Len(t, result.Changes, 4)

	assert.Equal(t, domain.DeleteChange("a"), result.Changes[0])
	assert.Equal(t, domain.ActionInsert, result.Changes[1].Action)
	assert.Equal(t, "a", result.Changes[1].Block.ID)
	assert.Equal(t, "x", result.Changes[1].AfterBlockID)
	assert.Equal(t, domain.DeleteChange("b"), result.Changes[2])
	assert.Equal(t, "a", result.Changes[3].AfterBlockID)
}

func TestExecuteInteraction_RearrangeUsesTarget(t *testing.T) {
	m := newEngine(0)
	anchor := block("t", domain.BlockText, "")

	result := m.ExecuteInteraction(context.Background(), domain.InteractionRequest{
		Type:         domain.InteractionRearrange,
		SourceBlocks: []domain.Block{block("a", domain.BlockText, "x")},
		TargetBlock:  &anchor,
	})
	require.Equal(t, domain.ResultSuccess, result.Result, result.Error)
	assert.Equal(t, "t", result.Changes[1].AfterBlockID)
}

func TestListeners_PanicIsolation(t *testing.T) {
	m := newEngine(0)
	recorder := &listenerRecorder{}
	m.On(domain.EventInteractionCompleted, func(string, domain.InteractionResult) { panic("bad subscriber") })
	m.On(domain.EventInteractionCompleted, recorder.listen)
	m.On(domain.EventInteractionCompleted, nil)

	result := m.ExecuteInteraction(context.Background(), domain.InteractionRequest{
		Type:         domain.InteractionGroup,
		SourceBlocks: []domain.Block{block("a", domain.BlockText, "")},
	})

	assert.Equal(t, domain.ResultSuccess, result.Result)
	assert.Equal(t, 1, recorder.count())
}

func TestHistory_FiltersAndStats(t *testing.T) {
	m := newEngine(0)
	ctx := context.Background()
	before := time.Now()

	group := domain.InteractionRequest{Type: domain.InteractionGroup, SourceBlocks: []domain.Block{block("a", domain.BlockText, "")}}
	ungroup := domain.InteractionRequest{Type: domain.InteractionUngroup, SourceBlocks: []domain.Block{block("a", domain.BlockText, "")}}

	m.ExecuteInteraction(ctx, group)
	m.ExecuteInteraction(ctx, group)
	m.ExecuteInteraction(ctx, ungroup)

	assert.Len(t, m.GetHistory(HistoryFilter{Type: domain.InteractionGroup}), 2)
	assert.Len(t, m.GetHistory(HistoryFilter{Result: domain.ResultFailed}), 1)
	assert.Len(t, m.GetHistory(HistoryFilter{Limit: 1}), 1)
	assert.Equal(t, domain.InteractionUngroup, m.GetHistory(HistoryFilter{Limit: 1})[0].Type)
	assert.Len(t, m.GetHistory(HistoryFilter{Since: before}), 3)
	assert.Empty(t, m.GetHistory(HistoryFilter{Until: before}))

	stats := m.GetStats()
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 2, stats.ByType[domain.InteractionGroup])
	assert.Equal(t, 1, stats.ByResult[domain.ResultFailed])
	assert.InDelta(t, 2.0/3.0, stats.SuccessRate, 0.0001)

	m.ClearHistory()
	assert.Zero(t, m.GetStats().Total)
	assert.Zero(t, m.GetStats().SuccessRate)
}

func TestSuggestionPassthrough(t *testing.T) {
	mockSplitter := new(MockSplitter)
	m := NewManager(new(MockMerger), mockSplitter, converter.NewConverter(nil), Settings{})
	b := block("a", domain.BlockText, "x")

	want := []domain.SplitSuggestion{{Strategy: splitter.StrategyWord, PartsCount: 2, Confidence: 0.7}}
	mockSplitter.On("SuggestSplits", b).Return(want)

	assert.Equal(t, want, m.SuggestSplits(b))
	assert.NotEmpty(t, m.SuggestConversions(block("h", domain.BlockText, "# Title")))
	mockSplitter.AssertExpectations(t)
}

func TestExecuteInteraction_ConcurrentHistory(t *testing.T) {
	m := newEngine(10)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			m.ExecuteInteraction(context.Background(), domain.InteractionRequest{
				Type:         domain.InteractionGroup,
				SourceBlocks: []domain.Block{block(fmt.Sprintf("b%d", i), domain.BlockText, "")},
			})
		}(i)
	}
	wg.Wait()

	assert.Len(t, m.GetHistory(HistoryFilter{}), 10)
	assert.Equal(t, 10, m.GetStats().Total)
}

func intPtr(v int) *int {
	return &v
}

// Feature: github.com/freewebtopdf/block-engine, Property 12: History is bounded
func TestProperty_HistoryBounded(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("history keeps only the newest maxHistorySize entries", prop.ForAll(
		func(maxSize, runs int) bool {
			m := newEngine(maxSize)
			var last string
			for i := 0; i < runs; i++ {
				r := m.ExecuteInteraction(context.Background(), domain.InteractionRequest{
					Type:         domain.InteractionGroup,
					SourceBlocks: []domain.Block{block(fmt.Sprintf("b%d", i), domain.BlockText, "")},
				})
				last = r.ID
			}

			history := m.GetHistory(HistoryFilter{})
			if len(history) != min(maxSize, runs) {
				return false
			}
			return runs == 0 || history[len(history)-1].ID == last
		},
		gen.IntRange(1, 20),
		gen.IntRange(0, 40),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

// Feature: github.com/freewebtopdf/block-engine, Property 13: Group tags every block exactly once
func TestProperty_GroupTagsEveryBlock(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("group emits one metadata-only update per block", prop.ForAll(
		func(count int) bool {
			blocks := make([]domain.Block, count)
			for i := range blocks {
				blocks[i] = block(fmt.Sprintf("b%d", i), domain.BlockText, "x")
			}
			result := CreateGroup(blocks, domain.Options{})
			if !result.Success || len(result.Changes) != count {
				return false
			}
			for i, c := range result.Changes {
				if c.Action != domain.ActionUpdate || c.NewContent != nil || c.NewType != "" {
					return false
				}
				if c.Metadata.Group.GroupIndex != i || c.Metadata.Group.TotalInGroup != count {
					return false
				}
			}
			return true
		},
		gen.IntRange(1, 30),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestManager_HealthCheck(t *testing.T) {
	m := newEngine(0)
	health := m.HealthCheck(context.Background())
	assert.Equal(t, domain.HealthStatusHealthy, health.Status)
	assert.Equal(t, 0, health.Details["rule_findings"])
	assert.Equal(t, len(merger.DefaultRules()), health.Details["merge_rules"])

	broken := NewManager(
		merger.NewMerger([]domain.Rule{
			{Name: "X", SourceTypes: domain.AnyType(), TargetTypes: domain.AnyType(), Strategy: domain.StrategyPreserveContent},
		}, nil, merger.Settings{}),
		splitter.NewSplitter(splitter.Settings{}),
		converter.NewConverter(nil),
		Settings{},
	)
	assert.Equal(t, domain.HealthStatusDegraded, broken.HealthCheck(context.Background()).Status)

	empty := NewManager(merger.NewMerger([]domain.Rule{}, nil, merger.Settings{}), splitter.NewSplitter(splitter.Settings{}), converter.NewConverter(nil), Settings{})
	assert.Equal(t, domain.HealthStatusUnhealthy, empty.HealthCheck(context.Background()).Status)
}

func TestManager_Metrics(t *testing.T) {
	m := newEngine(0)
	m.ExecuteInteraction(context.Background(), domain.InteractionRequest{
		Type:         domain.InteractionMerge,
		SourceBlocks: []domain.Block{{ID: "a", Type: domain.BlockText, Content: domain.TextContent("x")}},
		TargetBlock:  &domain.Block{ID: "t", Type: domain.BlockText, Content: domain.TextContent("y")},
	})

	metrics := m.Metrics()
	assert.Equal(t, 1, metrics["interactions"])
	assert.Equal(t, 1.0, metrics["success_rate"])
}

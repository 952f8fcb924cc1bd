package domain

import "context"

// BlockMerger merges source blocks into an existing target block
type BlockMerger interface {
	Merge(sources []Block, target Block, opts Options) TransformResult
	ValidateMerge(sources []Block, target *Block, opts Options) ValidationResult
	Rules() []Rule
}

// BlockSplitter splits one block into several
type BlockSplitter interface {
	Split(source Block, opts Options) TransformResult
	ValidateSplit(source Block, opts Options) ValidationResult
	SuggestSplits(block Block) []SplitSuggestion
}

// BlockConverter converts blocks into another block type
type BlockConverter interface {
	Convert(sources []Block, targetType BlockType, opts Options) TransformResult
	ValidateConvert(sources []Block, targetType BlockType, opts Options) ValidationResult
	SuggestConversions(block Block) []ConversionSuggestion
	Rules() []Rule
}

// InteractionListener receives interaction events
type InteractionListener func(event string, result InteractionResult)

// Document is an ordered list of blocks owned by the document store
type Document struct {
	ID     string  `json:"id" yaml:"id" validate:"required"`
	Title  string  `json:"title,omitempty" yaml:"title,omitempty"`
	Blocks []Block `json:"blocks" yaml:"blocks" validate:"dive"`
}

// DocumentStore owns block persistence and applies engine changes
type DocumentStore interface {
	GetDocument(ctx context.Context, id string) (*Document, error)
	ListDocuments(ctx context.Context) ([]Document, error)
	PutDocument(ctx context.Context, doc *Document) error
	DeleteDocument(ctx context.Context, id string) error
	Apply(ctx context.Context, documentID string, changes []Change) (*Document, error)

	// Health and monitoring
	HealthCheck(ctx context.Context) HealthStatus
	GetStats(ctx context.Context) map[string]any
}

// ResolutionCache memoizes rule resolution
type ResolutionCache interface {
	Get(key string) (*Rule, bool)
	Set(key string, rule *Rule)
	Clear()
	Stats() CacheStats

	// Health and monitoring
	HealthCheck(ctx context.Context) HealthStatus
}

// HealthChecker defines the interface for system health monitoring
type HealthChecker interface {
	CheckHealth(ctx context.Context) SystemHealth
	CheckComponent(ctx context.Context, component string) HealthStatus
}

// Validator defines the interface for request validation
type Validator interface {
	ValidateRequest(req *InteractionRequest) error
	ValidateBlock(block *Block) error
	ValidateDocument(doc *Document) error
}

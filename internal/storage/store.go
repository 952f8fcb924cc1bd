// Package storage keeps block documents in memory and applies engine change
// lists to them, optionally mirroring every document to YAML files.
package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/freewebtopdf/block-engine/internal/domain"
	"github.com/freewebtopdf/block-engine/internal/loader"
)

// StoreConfig holds configuration for the Store
type StoreConfig struct {
	DataDir      string
	DocumentsDir string
	Persist      bool
}

// DefaultStoreConfig returns a default configuration
func DefaultStoreConfig(dataDir string, persist bool) StoreConfig {
	return StoreConfig{
		DataDir:      dataDir,
		DocumentsDir: filepath.Join(dataDir, "documents"),
		Persist:      persist,
	}
}

// Store implements domain.DocumentStore with a map index and an ordered id list
type Store struct {
	mu     sync.RWMutex
	docs   map[string]*domain.Document
	order  []string
	config StoreConfig

	validator domain.Validator
	docLoader *loader.FileDocumentLoader
	docWriter *loader.Writer

	applied  int64
	rejected int64
}

// NewStore creates an in-memory store without persistence
func NewStore() *Store {
	return NewStoreWithConfig(StoreConfig{})
}

// NewStoreWithConfig creates a new Store with full configuration
func NewStoreWithConfig(config StoreConfig) *Store {
	return &Store{
		docs:      make(map[string]*domain.Document),
		order:     make([]string, 0),
		config:    config,
		validator: domain.NewValidator(),
		docLoader: loader.NewFileDocumentLoader(config.DocumentsDir),
		docWriter: loader.NewWriter(config.DocumentsDir),
	}
}

// Load reads every document file when persistence is enabled. Invalid files are
// logged and skipped.
func (s *Store) Load(ctx context.Context) error {
	if !s.config.Persist {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	select {
	case <-ctx.Done():
		return domain.NewAppErrorWithCause(
			domain.ErrTimeout,
			"Load cancelled",
			408,
			ctx.Err(),
			map[string]any{"operation": "load"},
		)
	default:
	}

	if err := os.MkdirAll(s.config.DocumentsDir, 0755); err != nil {
		return domain.NewAppErrorWithCause(
			domain.ErrInternal,
			"Failed to create documents directory",
			500,
			err,
			map[string]any{"dir": s.config.DocumentsDir},
		).WithContext(ctx, "load")
	}

	docs, loadErrors, err := s.docLoader.LoadAll(ctx)
	if err != nil {
		return domain.NewAppErrorWithCause(
			domain.ErrInternal,
			"Failed to load documents from files",
			500,
			err,
			map[string]any{"errors": len(loadErrors)},
		).WithContext(ctx, "load")
	}
	for _, le := range loadErrors {
		log.Warn().Str("file", le.FilePath).Str("error", le.Error).Msg("Skipping unreadable document file")
	}

	s.docs = make(map[string]*domain.Document, len(docs))
	s.order = make([]string, 0, len(docs))
	for i := range docs {
		doc := docs[i]
		if err := s.validator.ValidateDocument(&doc); err != nil {
			log.Warn().Str("document_id", doc.ID).Err(err).Msg("Skipping invalid document")
			continue
		}
		if _, exists := s.docs[doc.ID]; exists {
			log.Warn().Str("document_id", doc.ID).Msg("Skipping duplicate document id")
			continue
		}
		s.docs[doc.ID] = cloneDocument(&doc)
		s.order = append(s.order, doc.ID)
	}

	log.Info().Int("documents", len(s.order)).Str("dir", s.config.DocumentsDir).Msg("Documents loaded")
	return nil
}

// GetDocument returns a copy of a document
func (s *Store) GetDocument(ctx context.Context, id string) (*domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, exists := s.docs[id]
	if !exists {
		return nil, notFound(id)
	}
	return cloneDocument(doc), nil
}

// ListDocuments returns copies of every document in insertion order
func (s *Store) ListDocuments(ctx context.Context) ([]domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Document, len(s.order))
	for i, id := range s.order {
		result[i] = *cloneDocument(s.docs[id])
	}
	return result, nil
}

// PutDocument creates or replaces a document
func (s *Store) PutDocument(ctx context.Context, doc *domain.Document) error {
	if err := s.validator.ValidateDocument(doc); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	previous, existed := s.docs[doc.ID]
	s.docs[doc.ID] = cloneDocument(doc)
	if !existed {
		s.order = append(s.order, doc.ID)
	}

	if err := s.persist(doc); err != nil {
		if existed {
			s.docs[doc.ID] = previous
		} else {
			delete(s.docs, doc.ID)
			s.order = s.order[:len(s.order)-1]
		}
		return err
	}
	return nil
}

// DeleteDocument removes a document
func (s *Store) DeleteDocument(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.docs[id]; !exists {
		return notFound(id)
	}

	if s.config.Persist {
		if err := s.docWriter.DeleteDocument(id); err != nil {
			return domain.NewAppError(
				domain.ErrInternal,
				"Failed to delete document file",
				500,
				map[string]any{"error": err.Error(), "document_id": id},
			)
		}
	}

	delete(s.docs, id)
	s.order = slices.DeleteFunc(s.order, func(existing string) bool { return existing == id })
	return nil
}

// Apply applies changes to a document in order. Either every change applies or the
// document is left untouched.
func (s *Store) Apply(ctx context.Context, documentID string, changes []domain.Change) (*domain.Document, error) {
	select {
	case <-ctx.Done():
		return nil, domain.NewAppErrorWithCause(domain.ErrTimeout, "Apply cancelled", 408, ctx.Err(),
			map[string]any{"document_id": documentID})
	default:
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, exists := s.docs[documentID]
	if !exists {
		return nil, notFound(documentID)
	}

	working := cloneDocument(current)
	if err := ApplyChanges(working, changes); err != nil {
		s.rejected++
		return nil, err
	}

	if err := s.persist(working); err != nil {
		s.rejected++
		return nil, err
	}

	s.docs[documentID] = working
	s.applied++
	return cloneDocument(working), nil
}

func (s *Store) persist(doc *domain.Document) error {
	if !s.config.Persist {
		return nil
	}
	if err := s.docWriter.WriteDocument(doc); err != nil {
		return domain.NewAppError(
			domain.ErrInternal,
			"Failed to write document file",
			500,
			map[string]any{"error": err.Error(), "document_id": doc.ID},
		)
	}
	return nil
}

// HealthCheck performs a health check on the storage system
func (s *Store) HealthCheck(ctx context.Context) domain.HealthStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	status := domain.HealthStatusHealthy
	message := "Document store is operating normally"
	details := map[string]any{
		"document_count": len(s.order),
		"persist":        s.config.Persist,
	}

	if s.config.Persist {
		details["documents_dir"] = s.config.DocumentsDir
		if _, err := os.Stat(s.config.DocumentsDir); err != nil {
			status = domain.HealthStatusUnhealthy
			message = "Documents directory is not accessible"
			details["error"] = err.Error()
		} else if n := len(s.docLoader.GetLoadErrors()); n > 0 {
			status = domain.HealthStatusDegraded
			message = fmt.Sprintf("%d document files could not be loaded", n)
		}
	}

	if len(s.docs) != len(s.order) {
		status = domain.HealthStatusUnhealthy
		message = "Data structure inconsistency detected"
		details["map_size"] = len(s.docs)
		details["list_size"] = len(s.order)
	}

	return domain.HealthStatus{
		Status:    status,
		Message:   message,
		Details:   details,
		Timestamp: time.Now(),
	}
}

// GetStats returns storage statistics
func (s *Store) GetStats(ctx context.Context) map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	blocks := 0
	typeCount := make(map[domain.BlockType]int)
	for _, doc := range s.docs {
		blocks += len(doc.Blocks)
		for _, b := range doc.Blocks {
			typeCount[b.Type]++
		}
	}

	return map[string]any{
		"document_count":   len(s.order),
		"block_count":      blocks,
		"block_types":      typeCount,
		"applied_changes":  s.applied,
		"rejected_changes": s.rejected,
		"persist":          s.config.Persist,
		"load_errors":      len(s.docLoader.GetLoadErrors()),
	}
}

func notFound(id string) error {
	return domain.NewAppError(
		domain.ErrNotFound,
		"Document not found",
		404,
		map[string]any{"id": id},
	)
}

func cloneDocument(doc *domain.Document) *domain.Document {
	out := &domain.Document{ID: doc.ID, Title: doc.Title, Blocks: make([]domain.Block, len(doc.Blocks))}
	for i, b := range doc.Blocks {
		out.Blocks[i] = b.Clone()
	}
	return out
}

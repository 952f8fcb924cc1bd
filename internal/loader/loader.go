package loader

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/freewebtopdf/block-engine/internal/domain"
)

// DocumentLoader loads documents from the file system
type DocumentLoader interface {
	// LoadAll scans the directory and returns all parseable documents
	LoadAll(ctx context.Context) ([]domain.Document, []LoadError, error)
	// GetLoadErrors returns errors from the last load operation
	GetLoadErrors() []LoadError
}

// FileDocumentLoader implements DocumentLoader over a directory of document files
type FileDocumentLoader struct {
	scanner    *Scanner
	parser     *Parser
	mu         sync.RWMutex
	loadErrors []LoadError
}

// NewFileDocumentLoader creates a loader over dir
func NewFileDocumentLoader(dir string) *FileDocumentLoader {
	return &FileDocumentLoader{
		scanner:    NewScanner(dir),
		parser:     NewParser(),
		loadErrors: make([]LoadError, 0),
	}
}

// LoadAll parses every document file. Unparseable files are recorded as load errors
// and skipped; only a failed scan is fatal.
func (l *FileDocumentLoader) LoadAll(ctx context.Context) ([]domain.Document, []LoadError, error) {
	scanned, err := l.scanner.Scan(ctx)
	if err != nil {
		return nil, nil, err
	}

	var docs []domain.Document
	loadErrors := make([]LoadError, 0)

	for _, file := range scanned {
		select {
		case <-ctx.Done():
			return nil, nil, ctx.Err()
		default:
		}

		fileDocs, loadErr := l.parser.ParseFile(file)
		if loadErr != nil {
			loadErrors = append(loadErrors, *loadErr)
			continue
		}
		docs = append(docs, fileDocs...)
	}

	l.mu.Lock()
	l.loadErrors = loadErrors
	l.mu.Unlock()

	return docs, loadErrors, nil
}

// GetLoadErrors returns errors from the last load operation
func (l *FileDocumentLoader) GetLoadErrors() []LoadError {
	l.mu.RLock()
	defer l.mu.RUnlock()

	result := make([]LoadError, len(l.loadErrors))
	copy(result, l.loadErrors)
	return result
}

// ReadRequests reads interaction requests from a file
func ReadRequests(path string) ([]domain.InteractionRequest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return NewParser().ParseRequests(data, FormatOf(path))
}

// ReadDocument reads the first document of a file
func ReadDocument(path string) (*domain.Document, error) {
	docs, loadErr := NewParser().ParseFile(ScannedFile{Path: path})
	if loadErr != nil {
		return nil, fmt.Errorf("%s: %s", loadErr.FilePath, loadErr.Error)
	}
	return &docs[0], nil
}

// ReadBlock reads a single block from a file
func ReadBlock(path string) (*domain.Block, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return NewParser().ParseBlock(data, FormatOf(path))
}

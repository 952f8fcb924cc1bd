package loader

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/freewebtopdf/block-engine/internal/domain"
)

// Supported file formats
const (
	FormatYAML = "yaml"
	FormatJSON = "json"
)

// DocumentFile is the multi-document file layout
type DocumentFile struct {
	Documents []domain.Document `yaml:"documents" json:"documents"`
}

// RequestFile is the multi-request file layout
type RequestFile struct {
	Requests []domain.InteractionRequest `yaml:"requests" json:"requests"`
}

// LoadError represents an error that occurred while loading a specific file
type LoadError struct {
	FilePath string `json:"file_path"`
	Error    string `json:"error"`
	Line     int    `json:"line,omitempty"`
}

// Parser reads documents, requests and blocks in YAML and JSON
type Parser struct{}

// NewParser creates a new Parser instance
func NewParser() *Parser {
	return &Parser{}
}

// FormatOf derives the format from a file name; anything not JSON is read as YAML
func FormatOf(path string) string {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return FormatJSON
	}
	return FormatYAML
}

// ParseFile reads a document file. A file may hold one document, a list of
// documents, or a "documents" array.
func (p *Parser) ParseFile(scanned ScannedFile) ([]domain.Document, *LoadError) {
	data, err := os.ReadFile(scanned.Path)
	if err != nil {
		return nil, &LoadError{
			FilePath: scanned.Path,
			Error:    fmt.Sprintf("failed to read file: %v", err),
		}
	}

	docs, err := p.ParseDocuments(data, FormatOf(scanned.Path))
	if err != nil {
		return nil, &LoadError{
			FilePath: scanned.Path,
			Error:    err.Error(),
			Line:     yamlErrorLine(err),
		}
	}
	return docs, nil
}

// ParseDocuments parses document content without file context
func (p *Parser) ParseDocuments(data []byte, format string) ([]domain.Document, error) {
	var file DocumentFile
	if err := decode(data, format, &file); err == nil && len(file.Documents) > 0 {
		return file.Documents, nil
	}

	var single domain.Document
	if err := decode(data, format, &single); err == nil && single.ID != "" {
		return []domain.Document{single}, nil
	}

	var list []domain.Document
	if err := decode(data, format, &list); err == nil && len(list) > 0 {
		return list, nil
	}

	if err := decode(data, format, &single); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", format, err)
	}
	return nil, fmt.Errorf("no document found in %s content", format)
}

// ParseRequests parses one request or a "requests" array
func (p *Parser) ParseRequests(data []byte, format string) ([]domain.InteractionRequest, error) {
	var file RequestFile
	if err := decode(data, format, &file); err == nil && len(file.Requests) > 0 {
		return file.Requests, nil
	}

	var single domain.InteractionRequest
	if err := decode(data, format, &single); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", format, err)
	}
	if single.Type == "" {
		return nil, fmt.Errorf("no interaction request found in %s content", format)
	}
	return []domain.InteractionRequest{single}, nil
}

// ParseBlock parses a single block
func (p *Parser) ParseBlock(data []byte, format string) (*domain.Block, error) {
	var block domain.Block
	if err := decode(data, format, &block); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", format, err)
	}
	if block.ID == "" && block.Type == "" {
		return nil, fmt.Errorf("no block found in %s content", format)
	}
	return &block, nil
}

func decode(data []byte, format string, v any) error {
	switch strings.ToLower(format) {
	case FormatJSON:
		return json.NewDecoder(bytes.NewReader(data)).Decode(v)
	case FormatYAML, "yml":
		return yaml.Unmarshal(data, v)
	}
	return fmt.Errorf("unsupported format: %s", format)
}

// yamlErrorLine pulls the first line number out of a yaml.v3 error
func yamlErrorLine(err error) int {
	var typeErr *yaml.TypeError
	msg := err.Error()
	if errors.As(err, &typeErr) && len(typeErr.Errors) > 0 {
		msg = typeErr.Errors[0]
	}
	var line int
	if i := strings.Index(msg, "line "); i >= 0 {
		_, _ = fmt.Sscanf(msg[i:], "line %d", &line)
	}
	return line
}

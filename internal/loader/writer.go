package loader

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/freewebtopdf/block-engine/internal/domain"
)

// Writer stores documents as YAML files under a base directory
type Writer struct {
	baseDir string
}

// NewWriter creates a new Writer with the specified base directory
func NewWriter(baseDir string) *Writer {
	return &Writer{baseDir: baseDir}
}

// PathFor returns the file a document id is stored in
func (w *Writer) PathFor(id string) (string, error) {
	if id == "" || id == "." || id == ".." || strings.ContainsAny(id, `/\`) {
		return "", fmt.Errorf("invalid document id %q", id)
	}
	return filepath.Join(w.baseDir, id+".doc.yaml"), nil
}

// WriteDocument writes doc to its file with an atomic temp-file rename
func (w *Writer) WriteDocument(doc *domain.Document) error {
	path, err := w.PathFor(doc.ID)
	if err != nil {
		return err
	}
	return w.WriteDocumentToPath(doc, path)
}

// WriteDocumentToPath writes doc to a specific file path
func (w *Writer) WriteDocumentToPath(doc *domain.Document, filePath string) error {
	data, err := Marshal(doc, FormatOf(filePath))
	if err != nil {
		return err
	}
	if dir := filepath.Dir(filePath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return atomicWrite(filePath, data)
}

// DeleteDocument removes the file of a document id; a missing file is not an error
func (w *Writer) DeleteDocument(id string) error {
	path, err := w.PathFor(id)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete document file %s: %w", path, err)
	}
	return nil
}

// Marshal encodes v as YAML or JSON
func Marshal(v any, format string) ([]byte, error) {
	switch strings.ToLower(format) {
	case FormatJSON:
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("failed to marshal JSON: %w", err)
		}
		return append(data, '\n'), nil
	case FormatYAML, "yml":
		data, err := yaml.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal YAML: %w", err)
		}
		return data, nil
	}
	return nil, fmt.Errorf("unsupported format: %s", format)
}

// Encode writes v to out as YAML or JSON
func Encode(out io.Writer, v any, format string) error {
	data, err := Marshal(v, format)
	if err != nil {
		return err
	}
	_, err = out.Write(data)
	return err
}

// atomicWrite stages data next to targetPath and renames it into place, so a
// reader never observes a half written document
func atomicWrite(targetPath string, data []byte) (err error) {
	staged, err := os.CreateTemp(filepath.Dir(targetPath), ".doc-*.tmp")
	if err != nil {
		return fmt.Errorf("stage %s: %w", targetPath, err)
	}
	defer func() {
		if err != nil {
			_ = staged.Close()
			_ = os.Remove(staged.Name())
		}
	}()

	if _, err = staged.Write(data); err != nil {
		return fmt.Errorf("write %s: %w", staged.Name(), err)
	}
	if err = staged.Sync(); err != nil {
		return fmt.Errorf("sync %s: %w", staged.Name(), err)
	}
	if err = staged.Close(); err != nil {
		return fmt.Errorf("close %s: %w", staged.Name(), err)
	}
	if err = os.Rename(staged.Name(), targetPath); err != nil {
		return fmt.Errorf("replace %s: %w", targetPath, err)
	}
	return nil
}

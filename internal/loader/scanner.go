// Package loader reads and writes block documents and interaction requests as
// YAML or JSON files.
package loader

import (
	"context"
	"os"
	"path/filepath"
	"strings"
)

// ValidDocumentExtensions defines the file extensions recognized as document files
var ValidDocumentExtensions = []string{".doc.yaml", ".doc.yml", ".doc.json"}

// ScannedFile is a discovered document file
type ScannedFile struct {
	Path string
}

// Scanner walks a directory tree for document files
type Scanner struct {
	dir string
}

// NewScanner creates a Scanner rooted at dir
func NewScanner(dir string) *Scanner {
	return &Scanner{dir: dir}
}

// Scan returns every document file under the scanner root. A missing root yields no files.
func (s *Scanner) Scan(ctx context.Context) ([]ScannedFile, error) {
	if s.dir == "" {
		return nil, nil
	}
	if _, err := os.Stat(s.dir); os.IsNotExist(err) {
		return nil, nil
	}
	return s.ScanDirectory(ctx, s.dir)
}

// ScanDirectory recursively scans dir for document files
func (s *Scanner) ScanDirectory(ctx context.Context, dir string) ([]ScannedFile, error) {
	var files []ScannedFile

	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		// unreadable entries are skipped
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if path != dir && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !IsDocumentFile(path) {
			return nil
		}

		files = append(files, ScannedFile{Path: path})
		return nil
	})
	if err != nil {
		return nil, err
	}

	return files, nil
}

// IsDocumentFile checks if a file path has a document file extension
func IsDocumentFile(path string) bool {
	lowerPath := strings.ToLower(path)
	for _, ext := range ValidDocumentExtensions {
		if strings.HasSuffix(lowerPath, ext) {
			return true
		}
	}
	return false
}

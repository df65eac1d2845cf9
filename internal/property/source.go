package property

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Source supplies a snapshot of the configuration store.
type Source interface {
	Load(ctx context.Context) (Document, error)
}

// StaticSource serves a fixed document.
type StaticSource struct {
	Doc Document
}

// Load returns the fixed document.
func (s StaticSource) Load(ctx context.Context) (Document, error) {
	return s.Doc, nil
}

// FileSource reads the configuration store from disk on every Load, so edits
// take effect without a restart. Files ending in .yaml or .yml are parsed as
// YAML; anything else as JSON, with comments and trailing commas allowed.
type FileSource struct {
	path string
}

// NewFileSource creates a source for the file at path.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

// Path returns the file path backing the source.
func (s *FileSource) Path() string {
	return s.path
}

// Load reads and parses the file. A missing or empty file yields an empty document.
func (s *FileSource) Load(ctx context.Context) (Document, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return Document{}, nil
	}
	if err != nil {
		return Document{}, fmt.Errorf("reading %s: %w", s.path, err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return Document{}, nil
	}

	doc, err := Parse(data, isYAML(s.path))
	if err != nil {
		return Document{}, fmt.Errorf("%s: %w", s.path, err)
	}
	return doc, nil
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

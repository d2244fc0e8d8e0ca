package preferences

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// DefaultFileName is the preferences document name used when no path is configured.
const DefaultFileName = "user_preferences.json"

// FileBackend stores the preferences document as a JSON file.
type FileBackend struct {
	path string
}

// NewFileBackend creates a FileBackend writing to path.
func NewFileBackend(path string) *FileBackend {
	if path == "" {
		path = DefaultFileName
	}
	return &FileBackend{path: path}
}

// Path returns the file path where preferences are stored.
func (b *FileBackend) Path() string {
	return b.path
}

// Load reads the document from disk.
// Returns (nil, nil) if the file does not exist.
func (b *FileBackend) Load(_ context.Context) ([]byte, error) {
	data, err := os.ReadFile(b.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading preferences file: %w", err)
	}
	return data, nil
}

// Save overwrites the document, creating the parent directory if needed.
func (b *FileBackend) Save(_ context.Context, data []byte) error {
	if dir := filepath.Dir(b.path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("creating preferences directory: %w", err)
		}
	}

	if err := os.WriteFile(b.path, data, 0o600); err != nil {
		return fmt.Errorf("writing preferences file: %w", err)
	}
	return nil
}

// MemoryBackend keeps the document in memory. Useful for tests and as a
// last-resort store when no durable backend can be opened.
type MemoryBackend struct {
	data []byte
}

// Load returns the last saved document.
func (b *MemoryBackend) Load(_ context.Context) ([]byte, error) {
	return b.data, nil
}

// Save replaces the stored document.
func (b *MemoryBackend) Save(_ context.Context, data []byte) error {
	b.data = append([]byte(nil), data...)
	return nil
}

var (
	_ Backend = (*FileBackend)(nil)
	_ Backend = (*MemoryBackend)(nil)
)

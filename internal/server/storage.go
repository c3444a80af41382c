package server

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// Storage stages uploaded files while a run processes them
type Storage interface {
	// Save writes a file under dir and returns its full path
	Save(dir, filename string, data []byte) (string, error)

	// Delete removes dir and everything staged in it
	Delete(dir string) error
}

// LocalStorage implements the Storage interface using local filesystem
type LocalStorage struct {
	basePath string
}

// NewLocalStorage creates a new LocalStorage instance
func NewLocalStorage(basePath string) (*LocalStorage, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("creating storage directory: %w", err)
	}

	return &LocalStorage{
		basePath: basePath,
	}, nil
}

// Save saves a file to local storage
func (l *LocalStorage) Save(dir, filename string, data []byte) (string, error) {
	target := filepath.Join(l.basePath, dir)
	if err := os.MkdirAll(target, 0755); err != nil {
		return "", fmt.Errorf("creating staging directory: %w", err)
	}

	path := filepath.Join(target, filename)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("writing file: %w", err)
	}
	return path, nil
}

// Delete removes a staging directory from local storage
func (l *LocalStorage) Delete(dir string) error {
	if dir == "" {
		return fmt.Errorf("deleting staging directory: empty name")
	}
	if err := os.RemoveAll(filepath.Join(l.basePath, dir)); err != nil {
		return fmt.Errorf("deleting staging directory: %w", err)
	}
	return nil
}

var (
	unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9\s\-_]`)
	spaces      = regexp.MustCompile(`\s+`)
)

// sanitizeFilename cleans up a filename by removing special characters and truncating length
func sanitizeFilename(filename string) string {
	filename = filepath.Base(strings.ReplaceAll(filename, `\`, "/"))
	ext := strings.ToLower(filepath.Ext(filename))
	base := strings.TrimSuffix(filename, filepath.Ext(filename))

	base = unsafeChars.ReplaceAllString(base, "")
	base = strings.TrimSpace(spaces.ReplaceAllString(base, " "))

	maxLen := 50
	if len(base) > maxLen {
		base = base[:maxLen]
	}
	if base == "" {
		base = "invoice"
	}

	return base + ext
}

package invoice

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Queue is the ordered list of PDF files selected for a run.
// Paths are not deduplicated.
type Queue struct {
	paths []string
}

// NewQueue returns an empty queue
func NewQueue() *Queue {
	return &Queue{}
}

// IsPDF reports whether path has a .pdf extension, in any case
func IsPDF(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".pdf")
}

// SelectFolder replaces the queue with every PDF below root and returns how
// many were found.
func (q *Queue) SelectFolder(root string) (int, error) {
	var found []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() || !IsPDF(path) {
			return nil
		}
		found = append(found, path)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("walking %s: %w", root, err)
	}

	q.paths = found
	return len(found), nil
}

// AddFiles appends the paths that are existing PDF files and returns how
// many were accepted.
func (q *Queue) AddFiles(paths ...string) int {
	added := 0
	for _, p := range paths {
		if !IsPDF(p) {
			continue
		}
		info, err := os.Stat(p)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		q.paths = append(q.paths, p)
		added++
	}
	return added
}

// Paths returns a copy of the queued paths
func (q *Queue) Paths() []string {
	out := make([]string, len(q.paths))
	copy(out, q.paths)
	return out
}

// Len returns the number of queued paths
func (q *Queue) Len() int {
	return len(q.paths)
}

// Reset empties the queue
func (q *Queue) Reset() {
	q.paths = nil
}

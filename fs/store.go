// Package fs provides file-based storage for the mirror tree.
package fs

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/fwojciec/mirror"
)

// Ensure Store implements mirror.Store at compile time.
var _ mirror.Store = (*Store)(nil)

// Store writes mirrored files under a root directory and the rewrite
// report to its own path.
//
// Store remembers a hash of every file it wrote. Writing the same content
// to the same path again is skipped without reading the file back, as long
// as the file is still there. Store is safe for concurrent use.
type Store struct {
	root       string
	reportPath string

	mu      sync.Mutex
	written map[string]uint64
}

// NewStore creates a Store rooted at root that writes the report to reportPath.
func NewStore(root, reportPath string) *Store {
	return &Store{
		root:       root,
		reportPath: reportPath,
		written:    make(map[string]uint64),
	}
}

// Write persists data at the slash-separated path relative to the root,
// creating parent directories. Content identical to what this Store last
// wrote at path, or to a file left by an earlier run, is not rewritten.
func (s *Store) Write(ctx context.Context, path string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	full, err := s.resolve(path)
	if err != nil {
		return err
	}

	sum := xxhash.Sum64(data)
	s.mu.Lock()
	prev, ok := s.written[path]
	s.mu.Unlock()

	switch {
	case ok && prev == sum && isFile(full):
		return nil
	case !ok:
		if existing, err := os.ReadFile(full); err == nil && bytes.Equal(existing, data) {
			s.remember(path, sum)
			return nil
		}
	}

	if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
		return err
	}
	if err := os.WriteFile(full, data, 0644); err != nil {
		return err
	}
	s.remember(path, sum)
	return nil
}

func (s *Store) remember(path string, sum uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.written[path] = sum
}

// Exists reports whether a regular file exists at path.
func (s *Store) Exists(path string) bool {
	full, err := s.resolve(path)
	if err != nil {
		return false
	}
	return isFile(full)
}

// WriteReport writes the report as indented JSON. URLs are written
// without HTML escaping.
func (s *Store) WriteReport(ctx context.Context, report *mirror.Report) error {
	if dir := filepath.Dir(s.reportPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return err
	}
	return os.WriteFile(s.reportPath, buf.Bytes(), 0644)
}

func (s *Store) resolve(path string) (string, error) {
	p := filepath.FromSlash(path)
	if !filepath.IsLocal(p) {
		return "", mirror.Errorf(mirror.EINVALID, "path escapes output root: %q", path)
	}
	return filepath.Join(s.root, p), nil
}

func isFile(full string) bool {
	info, err := os.Stat(full)
	return err == nil && info.Mode().IsRegular()
}

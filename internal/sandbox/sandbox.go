// Package sandbox confines client-supplied paths to a single root directory.
//
// Every file, archive, terminal and git operation resolves its paths here
// first. Resolution is lexical: relative paths are joined to the root,
// absolute paths are taken as-is, and the cleaned result must be the root
// itself or lie beneath it.
package sandbox

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/brianly1003/lanterm/internal/domain"
)

// Target is a resolved, confined filesystem path.
type Target struct {
	// Abs is the absolute, cleaned path on disk.
	Abs string
	// Rel is Abs relative to the root, using forward slashes ("." for the root).
	Rel string
}

// IsRoot reports whether the target is the sandbox root itself.
func (t Target) IsRoot() bool {
	return t.Rel == "."
}

// Sandbox resolves paths against a fixed root.
type Sandbox struct {
	root string
}

// New creates a sandbox rooted at dir. The root must be an existing directory.
func New(dir string) (*Sandbox, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve root %q: %w", dir, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("stat root %q: %w", abs, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("root %q: %w", abs, domain.ErrNotDirectory)
	}
	return &Sandbox{root: filepath.Clean(abs)}, nil
}

// Root returns the absolute root directory.
func (s *Sandbox) Root() string {
	return s.root
}

// Resolve maps raw to a confined Target or fails with domain.ErrOutOfRoot.
// An empty raw path resolves to the root.
func (s *Sandbox) Resolve(raw string) (Target, error) {
	var abs string
	switch {
	case raw == "":
		abs = s.root
	case filepath.IsAbs(raw):
		abs = filepath.Clean(raw)
	default:
		abs = filepath.Join(s.root, raw)
	}

	if !s.contains(abs) {
		return Target{}, fmt.Errorf("%q: %w", raw, domain.ErrOutOfRoot)
	}

	rel, err := filepath.Rel(s.root, abs)
	if err != nil {
		return Target{}, fmt.Errorf("%q: %w", raw, domain.ErrOutOfRoot)
	}
	return Target{Abs: abs, Rel: filepath.ToSlash(rel)}, nil
}

// ResolveDir resolves raw and requires it to be an existing directory.
// Failures are reported as domain.ErrInvalidWorkingDirectory.
func (s *Sandbox) ResolveDir(raw string) (Target, error) {
	t, err := s.Resolve(raw)
	if err != nil {
		return Target{}, fmt.Errorf("%w: %w", domain.ErrInvalidWorkingDirectory, err)
	}
	info, err := os.Stat(t.Abs)
	if err != nil || !info.IsDir() {
		return Target{}, fmt.Errorf("%q: %w", raw, domain.ErrInvalidWorkingDirectory)
	}
	return t, nil
}

// Contains reports whether the absolute path abs lies within the root.
func (s *Sandbox) Contains(abs string) bool {
	return s.contains(filepath.Clean(abs))
}

func (s *Sandbox) contains(abs string) bool {
	if abs == s.root {
		return true
	}
	prefix := s.root
	if !strings.HasSuffix(prefix, string(filepath.Separator)) {
		prefix += string(filepath.Separator)
	}
	return strings.HasPrefix(abs, prefix)
}

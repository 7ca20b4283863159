// Package files implements sandboxed filesystem operations: listing, atomic
// text reads and writes, streaming uploads, and merge-aware copy and move.
package files

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/brianly1003/lanterm/internal/domain"
	"github.com/brianly1003/lanterm/internal/sandbox"
)

const (
	// DefaultMaxTextBytes is the largest file ReadText and WriteText accept.
	DefaultMaxTextBytes = 5 * 1024 * 1024

	// binarySniffBytes is how much of a file is checked for NUL bytes.
	binarySniffBytes = 8 * 1024

	// mtimeToleranceMs is the allowed drift between an expected and the
	// on-disk modification time before a write is treated as a conflict.
	mtimeToleranceMs = 1
)

// Entry is a single directory listing item.
type Entry struct {
	Name  string `json:"name"`
	Path  string `json:"path"`
	Type  string `json:"type"` // file, directory, symlink, other
	Size  int64  `json:"size"`
	Mtime int64  `json:"mtime"`
}

// TextFile is the result of ReadText and WriteText.
type TextFile struct {
	Path    string `json:"path"`
	Content string `json:"content,omitempty"`
	Size    int64  `json:"size"`
	Mtime   int64  `json:"mtime"`
}

// Store performs file operations confined to a sandbox.
type Store struct {
	sb           *sandbox.Sandbox
	maxTextBytes int64
}

// NewStore creates a Store. maxTextBytes <= 0 selects DefaultMaxTextBytes.
func NewStore(sb *sandbox.Sandbox, maxTextBytes int64) *Store {
	if maxTextBytes <= 0 {
		maxTextBytes = DefaultMaxTextBytes
	}
	return &Store{sb: sb, maxTextBytes: maxTextBytes}
}

// Sandbox returns the sandbox the store resolves paths against.
func (s *Store) Sandbox() *sandbox.Sandbox {
	return s.sb
}

// List returns the entries of dir, directories first, then by name.
func (s *Store) List(dir string) ([]Entry, error) {
	t, err := s.sb.Resolve(dir)
	if err != nil {
		return nil, err
	}
	des, err := os.ReadDir(t.Abs)
	if err != nil {
		return nil, mapFSError(t.Rel, err)
	}

	entries := make([]Entry, 0, len(des))
	for _, de := range des {
		e := Entry{
			Name: de.Name(),
			Path: joinRel(t.Rel, de.Name()),
			Type: entryType(de.Type()),
		}
		if info, err := de.Info(); err == nil {
			e.Mtime = info.ModTime().UnixMilli()
			if info.Mode().IsRegular() {
				e.Size = info.Size()
			}
		}
		entries = append(entries, e)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		di, dj := entries[i].Type == "directory", entries[j].Type == "directory"
		if di != dj {
			return di
		}
		return strings.ToLower(entries[i].Name) < strings.ToLower(entries[j].Name)
	})
	return entries, nil
}

// ReadText reads a UTF-8 text file.
func (s *Store) ReadText(path string) (*TextFile, error) {
	t, err := s.sb.Resolve(path)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(t.Abs)
	if err != nil {
		return nil, mapFSError(t.Rel, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory: %w", t.Rel, domain.ErrInvalidPayload)
	}
	if info.Size() > s.maxTextBytes {
		return nil, fmt.Errorf("%s (%d bytes): %w", t.Rel, info.Size(), domain.ErrTooLarge)
	}

	data, err := os.ReadFile(t.Abs)
	if err != nil {
		return nil, mapFSError(t.Rel, err)
	}
	sniff := data
	if len(sniff) > binarySniffBytes {
		sniff = sniff[:binarySniffBytes]
	}
	if bytes.IndexByte(sniff, 0) >= 0 {
		return nil, fmt.Errorf("%s: %w", t.Rel, domain.ErrBinaryUnsupported)
	}

	return &TextFile{
		Path:    t.Rel,
		Content: string(data),
		Size:    info.Size(),
		Mtime:   info.ModTime().UnixMilli(),
	}, nil
}

// WriteText atomically replaces path with content. When expectedMtime is
// non-nil and the file exists, the write fails with domain.ErrConflict if
// the on-disk modification time has moved.
func (s *Store) WriteText(path, content string, expectedMtime *int64) (*TextFile, error) {
	t, err := s.sb.Resolve(path)
	if err != nil {
		return nil, err
	}
	if t.IsRoot() {
		return nil, fmt.Errorf("write: %w", domain.ErrRootForbidden)
	}
	if int64(len(content)) > s.maxTextBytes {
		return nil, fmt.Errorf("%s (%d bytes): %w", t.Rel, len(content), domain.ErrTooLarge)
	}

	mode := fs.FileMode(0o644)
	info, err := os.Stat(t.Abs)
	switch {
	case err == nil:
		if info.IsDir() {
			return nil, fmt.Errorf("%s is a directory: %w", t.Rel, domain.ErrExists)
		}
		mode = info.Mode().Perm()
		if expectedMtime != nil {
			diff := info.ModTime().UnixMilli() - *expectedMtime
			if diff > mtimeToleranceMs || diff < -mtimeToleranceMs {
				return nil, fmt.Errorf("%s modified on disk: %w", t.Rel, domain.ErrConflict)
			}
		}
	case errors.Is(err, fs.ErrNotExist):
		if err := s.ensureParent(t); err != nil {
			return nil, err
		}
	default:
		return nil, mapFSError(t.Rel, err)
	}

	if err := WriteAtomic(t.Abs, strings.NewReader(content), mode); err != nil {
		return nil, fmt.Errorf("write %s: %w", t.Rel, err)
	}

	info, err = os.Stat(t.Abs)
	if err != nil {
		return nil, mapFSError(t.Rel, err)
	}
	return &TextFile{Path: t.Rel, Size: info.Size(), Mtime: info.ModTime().UnixMilli()}, nil
}

// Mkdir creates dir/name.
func (s *Store) Mkdir(dir, name string) (sandbox.Target, error) {
	if err := ValidateName(name); err != nil {
		return sandbox.Target{}, err
	}
	parent, err := s.sb.Resolve(dir)
	if err != nil {
		return sandbox.Target{}, err
	}
	if err := requireDir(parent); err != nil {
		return sandbox.Target{}, err
	}
	t, err := s.sb.Resolve(filepath.Join(parent.Abs, name))
	if err != nil {
		return sandbox.Target{}, err
	}
	if err := os.Mkdir(t.Abs, 0o755); err != nil {
		return sandbox.Target{}, mapFSError(t.Rel, err)
	}
	return t, nil
}

// Rename renames path to newName within its own directory.
func (s *Store) Rename(path, newName string) (sandbox.Target, error) {
	if err := ValidateName(newName); err != nil {
		return sandbox.Target{}, err
	}
	src, err := s.sb.Resolve(path)
	if err != nil {
		return sandbox.Target{}, err
	}
	if src.IsRoot() {
		return sandbox.Target{}, fmt.Errorf("rename: %w", domain.ErrRootForbidden)
	}
	if _, err := os.Lstat(src.Abs); err != nil {
		return sandbox.Target{}, mapFSError(src.Rel, err)
	}
	dst, err := s.sb.Resolve(filepath.Join(filepath.Dir(src.Abs), newName))
	if err != nil {
		return sandbox.Target{}, err
	}
	if _, err := os.Lstat(dst.Abs); err == nil {
		return sandbox.Target{}, fmt.Errorf("%s: %w", dst.Rel, domain.ErrExists)
	}
	if err := os.Rename(src.Abs, dst.Abs); err != nil {
		return sandbox.Target{}, mapFSError(src.Rel, err)
	}
	return dst, nil
}

// Delete removes path recursively. The root itself cannot be deleted.
func (s *Store) Delete(path string) (sandbox.Target, error) {
	t, err := s.sb.Resolve(path)
	if err != nil {
		return sandbox.Target{}, err
	}
	if t.IsRoot() {
		return sandbox.Target{}, fmt.Errorf("delete: %w", domain.ErrRootForbidden)
	}
	if _, err := os.Lstat(t.Abs); err != nil {
		return sandbox.Target{}, mapFSError(t.Rel, err)
	}
	if err := os.RemoveAll(t.Abs); err != nil {
		return sandbox.Target{}, fmt.Errorf("delete %s: %w", t.Rel, err)
	}
	return t, nil
}

// ValidateName rejects anything that is not a plain single path element.
func ValidateName(name string) error {
	switch {
	case name == "", name == ".", name == "..":
	case strings.ContainsAny(name, "/\\\x00"):
	default:
		return nil
	}
	return fmt.Errorf("%q: %w", name, domain.ErrInvalidName)
}

// ensureParent creates the missing parents of t. The parent of a confined
// non-root target is always confined.
func (s *Store) ensureParent(t sandbox.Target) error {
	parent := filepath.Dir(t.Abs)
	if !s.sb.Contains(parent) {
		return fmt.Errorf("%s: %w", t.Rel, domain.ErrOutOfRoot)
	}
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return fmt.Errorf("create parent of %s: %w", t.Rel, err)
	}
	return nil
}

// WriteAtomic streams r into a temp file beside dst and renames it into place.
func WriteAtomic(dst string, r io.Reader, mode fs.FileMode) error {
	tmp, err := os.CreateTemp(filepath.Dir(dst), "."+filepath.Base(dst)+".lanterm-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, mode); err != nil {
		return err
	}
	if err := os.Rename(tmpName, dst); err != nil {
		return err
	}
	committed = true
	return nil
}

func requireDir(t sandbox.Target) error {
	info, err := os.Stat(t.Abs)
	if err != nil {
		return mapFSError(t.Rel, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s: %w", t.Rel, domain.ErrNotDirectory)
	}
	return nil
}

func mapFSError(rel string, err error) error {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("%s: %w", rel, domain.ErrNotFound)
	case errors.Is(err, fs.ErrExist):
		return fmt.Errorf("%s: %w", rel, domain.ErrExists)
	default:
		return fmt.Errorf("%s: %w", rel, err)
	}
}

func entryType(m fs.FileMode) string {
	switch {
	case m.IsDir():
		return "directory"
	case m&fs.ModeSymlink != 0:
		return "symlink"
	case m.IsRegular():
		return "file"
	default:
		return "other"
	}
}

func joinRel(dir, name string) string {
	if dir == "." || dir == "" {
		return name
	}
	return dir + "/" + name
}

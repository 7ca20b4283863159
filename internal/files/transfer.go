package files

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/brianly1003/lanterm/internal/domain"
	"github.com/brianly1003/lanterm/internal/sandbox"
)

// Traversal limits enforced by the pre-scan of copy and move sources.
const (
	MaxTreeDepth = 20
	MaxTreeNodes = 5000
)

// Policy decides what happens when a destination entry already exists.
type Policy string

const (
	PolicyOverwrite Policy = "overwrite"
	PolicySkip      Policy = "skip"
	PolicyError     Policy = "error"
)

// ParsePolicy parses a conflict policy. An empty string selects PolicyError.
func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(strings.ToLower(s)); p {
	case "":
		return PolicyError, nil
	case PolicyOverwrite, PolicySkip, PolicyError:
		return p, nil
	default:
		return "", domain.NewValidationError("policy", fmt.Sprintf("unknown conflict policy %q", s))
	}
}

// TransferRequest describes a copy or move.
type TransferRequest struct {
	Src      string `json:"src"`
	DestDir  string `json:"destDir"`
	DestName string `json:"destName,omitempty"`
	Policy   Policy `json:"policy"`
}

// TransferResult reports per-entry progress of a copy or move. Tree
// operations are not transactional; on failure the counters describe how
// far the operation got.
type TransferResult struct {
	Dest        string `json:"dest"`
	Copied      int    `json:"copied"`
	Skipped     int    `json:"skipped"`
	Overwritten int    `json:"overwritten"`
}

// Copy copies req.Src into req.DestDir, merging directories entry by entry.
func (s *Store) Copy(req TransferRequest) (*TransferResult, error) {
	policy, err := ParsePolicy(string(req.Policy))
	if err != nil {
		return nil, err
	}
	req.Policy = policy
	src, dst, info, err := s.prepareTransfer(req)
	if err != nil {
		return nil, err
	}
	res := &TransferResult{Dest: dst.Rel}
	err = copyEntry(src.Abs, dst.Abs, info, req.Policy, res)
	return res, s.relativeError(err)
}

// Move relocates req.Src into req.DestDir. When the destination does not
// exist a single rename is attempted first; otherwise, or when the rename
// fails, entries are moved one by one and entries skipped under PolicySkip
// remain in the source.
func (s *Store) Move(req TransferRequest) (*TransferResult, error) {
	policy, err := ParsePolicy(string(req.Policy))
	if err != nil {
		return nil, err
	}
	req.Policy = policy
	src, dst, info, err := s.prepareTransfer(req)
	if err != nil {
		return nil, err
	}
	if src.IsRoot() {
		return nil, fmt.Errorf("move: %w", domain.ErrRootForbidden)
	}
	res := &TransferResult{Dest: dst.Rel}
	err = moveEntry(src.Abs, dst.Abs, info, req.Policy, res)
	return res, s.relativeError(err)
}

// destExistsError reports a destination entry that exists under PolicyError.
type destExistsError struct {
	abs string
}

func (e *destExistsError) Error() string {
	return e.abs + ": destination exists"
}

func (e *destExistsError) Unwrap() error {
	return domain.ErrConflict
}

// relativeError rewrites a destination conflict to name the entry relative
// to the root.
func (s *Store) relativeError(err error) error {
	var de *destExistsError
	if !errors.As(err, &de) {
		return err
	}
	rel, rerr := filepath.Rel(s.sb.Root(), de.abs)
	if rerr != nil {
		rel = filepath.Base(de.abs)
	}
	return fmt.Errorf("%s: destination exists: %w", filepath.ToSlash(rel), domain.ErrConflict)
}

// prepareTransfer validates a request completely before anything is mutated.
func (s *Store) prepareTransfer(req TransferRequest) (src, dst sandbox.Target, info fs.FileInfo, err error) {
	if src, err = s.sb.Resolve(req.Src); err != nil {
		return
	}
	if info, err = os.Lstat(src.Abs); err != nil {
		err = mapFSError(src.Rel, err)
		return
	}

	var destDir sandbox.Target
	if destDir, err = s.sb.Resolve(req.DestDir); err != nil {
		return
	}
	if err = requireDir(destDir); err != nil {
		return
	}

	name := req.DestName
	if name == "" {
		name = filepath.Base(src.Abs)
	}
	if err = ValidateName(name); err != nil {
		return
	}
	if dst, err = s.sb.Resolve(filepath.Join(destDir.Abs, name)); err != nil {
		return
	}

	if dst.Abs == src.Abs || (info.IsDir() && isWithin(src.Abs, dst.Abs)) {
		err = fmt.Errorf("%s -> %s: %w", src.Rel, dst.Rel, domain.ErrSelfContainment)
		return
	}

	_, err = scanTree(src.Abs, info)
	return
}

// scanTree walks root and rejects symlinks, non-regular entries and trees
// beyond MaxTreeDepth or MaxTreeNodes. It returns the number of regular files.
func scanTree(root string, info fs.FileInfo) (int, error) {
	nodes, files := 0, 0
	var walk func(path string, info fs.FileInfo, depth int) error
	walk = func(path string, info fs.FileInfo, depth int) error {
		nodes++
		if nodes > MaxTreeNodes || depth > MaxTreeDepth {
			return fmt.Errorf("%s: %w", root, domain.ErrTreeTooLarge)
		}
		mode := info.Mode()
		switch {
		case mode.IsRegular():
			files++
			return nil
		case mode.IsDir():
		default:
			return fmt.Errorf("%s (%s): %w", path, entryType(mode.Type()), domain.ErrUnsupportedEntryType)
		}

		des, err := os.ReadDir(path)
		if err != nil {
			return err
		}
		for _, de := range des {
			child := filepath.Join(path, de.Name())
			ci, err := os.Lstat(child)
			if err != nil {
				return err
			}
			if err := walk(child, ci, depth+1); err != nil {
				return err
			}
		}
		return nil
	}
	err := walk(root, info, 0)
	return files, err
}

func copyEntry(src, dst string, info fs.FileInfo, policy Policy, res *TransferResult) error {
	existing, err := os.Lstat(dst)
	exists := err == nil
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	if info.IsDir() {
		switch {
		case exists && existing.IsDir():
			if policy == PolicyError {
				return &destExistsError{abs: dst}
			}
		case exists:
			switch policy {
			case PolicySkip:
				res.Skipped++
				return nil
			case PolicyError:
				return &destExistsError{abs: dst}
			}
			if err := os.Remove(dst); err != nil {
				return err
			}
			res.Overwritten++
			fallthrough
		default:
			if err := os.Mkdir(dst, info.Mode().Perm()); err != nil {
				return err
			}
		}
		des, err := os.ReadDir(src)
		if err != nil {
			return err
		}
		for _, de := range des {
			ci, err := os.Lstat(filepath.Join(src, de.Name()))
			if err != nil {
				return err
			}
			if err := copyEntry(filepath.Join(src, de.Name()), filepath.Join(dst, de.Name()), ci, policy, res); err != nil {
				return err
			}
		}
		return nil
	}

	if exists {
		switch policy {
		case PolicySkip:
			res.Skipped++
			return nil
		case PolicyError:
			return &destExistsError{abs: dst}
		}
		if existing.IsDir() {
			if err := os.RemoveAll(dst); err != nil {
				return err
			}
		}
		if err := copyFile(src, dst, info.Mode().Perm()); err != nil {
			return err
		}
		res.Overwritten++
		return nil
	}

	if err := copyFile(src, dst, info.Mode().Perm()); err != nil {
		return err
	}
	res.Copied++
	return nil
}

func moveEntry(src, dst string, info fs.FileInfo, policy Policy, res *TransferResult) error {
	existing, err := os.Lstat(dst)
	if errors.Is(err, fs.ErrNotExist) {
		n := 1
		if info.IsDir() {
			if n, err = scanTree(src, info); err != nil {
				return err
			}
		}
		if err := relocate(src, dst, info); err != nil {
			return err
		}
		res.Copied += n
		return nil
	}
	if err != nil {
		return err
	}

	if info.IsDir() && existing.IsDir() {
		if policy == PolicyError {
			return &destExistsError{abs: dst}
		}
		des, err := os.ReadDir(src)
		if err != nil {
			return err
		}
		for _, de := range des {
			ci, err := os.Lstat(filepath.Join(src, de.Name()))
			if err != nil {
				return err
			}
			if err := moveEntry(filepath.Join(src, de.Name()), filepath.Join(dst, de.Name()), ci, policy, res); err != nil {
				return err
			}
		}
		// Entries skipped under PolicySkip keep the directory alive.
		if left, err := os.ReadDir(src); err == nil && len(left) == 0 {
			return os.Remove(src)
		}
		return nil
	}

	switch policy {
	case PolicySkip:
		res.Skipped++
		return nil
	case PolicyError:
		return &destExistsError{abs: dst}
	}
	if info.IsDir() || existing.IsDir() {
		if err := os.RemoveAll(dst); err != nil {
			return err
		}
	}
	if err := relocate(src, dst, info); err != nil {
		return err
	}
	res.Overwritten++
	return nil
}

// relocate renames src to dst, falling back to copy and delete when the
// rename is refused (for example across devices).
func relocate(src, dst string, info fs.FileInfo) error {
	err := os.Rename(src, dst)
	if err == nil {
		return nil
	}
	log.Debug().Err(err).Str("src", src).Str("dst", dst).Msg("rename failed, falling back to copy")

	if info.IsDir() {
		res := &TransferResult{}
		if err := copyEntry(src, dst, info, PolicyOverwrite, res); err != nil {
			return err
		}
	} else if err := copyFile(src, dst, info.Mode().Perm()); err != nil {
		return err
	}
	return os.RemoveAll(src)
}

func copyFile(src, dst string, mode fs.FileMode) error {
	f, err := os.Open(src)
	if err != nil {
		return err
	}
	defer f.Close()
	return WriteAtomic(dst, f, mode)
}

// isWithin reports whether path is dir or lies beneath it.
func isWithin(dir, path string) bool {
	if path == dir {
		return true
	}
	return strings.HasPrefix(path, dir+string(filepath.Separator))
}

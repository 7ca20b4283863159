package files

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"github.com/brianly1003/lanterm/internal/domain"
)

// UploadResult describes a completed upload.
type UploadResult struct {
	Path string `json:"path"`
	Size int64  `json:"size"`
}

// Upload streams r into path. The data is written to a temp file beside the
// destination and renamed into place only after the stream ends. If more
// than limit bytes arrive, the temp file is deleted and the upload fails
// with domain.ErrPayloadTooLarge. A limit <= 0 means unbounded.
func (s *Store) Upload(path string, r io.Reader, limit int64) (*UploadResult, error) {
	t, err := s.sb.Resolve(path)
	if err != nil {
		return nil, err
	}
	if t.IsRoot() {
		return nil, fmt.Errorf("upload: %w", domain.ErrRootForbidden)
	}

	mode := fs.FileMode(0o644)
	if info, err := os.Stat(t.Abs); err == nil {
		if info.IsDir() {
			return nil, fmt.Errorf("%s is a directory: %w", t.Rel, domain.ErrExists)
		}
		mode = info.Mode().Perm()
	} else if errors.Is(err, fs.ErrNotExist) {
		if err := s.ensureParent(t); err != nil {
			return nil, err
		}
	} else {
		return nil, mapFSError(t.Rel, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(t.Abs), "."+filepath.Base(t.Abs)+".upload-*")
	if err != nil {
		return nil, fmt.Errorf("upload %s: %w", t.Rel, err)
	}
	tmpName := tmp.Name()
	discard := func() {
		tmp.Close()
		if err := os.Remove(tmpName); err != nil && !errors.Is(err, fs.ErrNotExist) {
			log.Warn().Err(err).Str("temp", tmpName).Msg("failed to remove upload temp file")
		}
	}

	src := r
	if limit > 0 {
		src = io.LimitReader(r, limit+1)
	}
	n, err := io.Copy(tmp, src)
	if err != nil {
		discard()
		return nil, fmt.Errorf("upload %s: %w", t.Rel, err)
	}
	if limit > 0 && n > limit {
		discard()
		log.Info().Str("path", t.Rel).Int64("limit", limit).Msg("upload aborted: limit exceeded")
		return nil, fmt.Errorf("%s exceeds %d bytes: %w", t.Rel, limit, domain.ErrPayloadTooLarge)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return nil, fmt.Errorf("upload %s: %w", t.Rel, err)
	}
	if err := os.Chmod(tmpName, mode); err != nil {
		_ = os.Remove(tmpName)
		return nil, fmt.Errorf("upload %s: %w", t.Rel, err)
	}
	if err := os.Rename(tmpName, t.Abs); err != nil {
		_ = os.Remove(tmpName)
		return nil, fmt.Errorf("upload %s: %w", t.Rel, err)
	}

	return &UploadResult{Path: t.Rel, Size: n}, nil
}

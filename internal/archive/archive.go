// Package archive inspects and extracts zip and tar archives inside the
// sandbox. Every entry is validated before anything is written.
package archive

import (
	"archive/tar"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zip"
	"github.com/klauspost/compress/zstd"
	"github.com/rs/zerolog/log"

	"github.com/brianly1003/lanterm/internal/domain"
	"github.com/brianly1003/lanterm/internal/files"
	"github.com/brianly1003/lanterm/internal/sandbox"
)

const (
	// DefaultMaxEntries bounds the number of entries an archive may hold.
	DefaultMaxEntries = 10000
	// DefaultMaxExtractBytes bounds the total uncompressed size extracted.
	DefaultMaxExtractBytes int64 = 4 << 30
)

// Format identifies a supported archive container.
type Format string

const (
	FormatZip    Format = "zip"
	FormatTar    Format = "tar"
	FormatTarGz  Format = "tar.gz"
	FormatTarZst Format = "tar.zst"
)

// Entry is one archive member.
type Entry struct {
	Name string `json:"name"`
	Type string `json:"type"` // file, directory, symlink, hardlink, other
	Size int64  `json:"size"`
	Safe bool   `json:"safe"`
}

// Listing is the result of ListEntries.
type Listing struct {
	Path    string  `json:"path"`
	Format  Format  `json:"format"`
	Entries []Entry `json:"entries"`
	Unsafe  int     `json:"unsafe"`
}

// ExtractResult reports what Extract wrote. Extraction is not transactional.
type ExtractResult struct {
	Dest      string `json:"dest"`
	Extracted int    `json:"extracted"`
	Skipped   int    `json:"skipped"`
	Bytes     int64  `json:"bytes"`
}

// Inspector lists and extracts archives confined to a sandbox.
type Inspector struct {
	sb         *sandbox.Sandbox
	maxEntries int
	maxBytes   int64
}

// NewInspector creates an Inspector. Non-positive limits select the defaults.
func NewInspector(sb *sandbox.Sandbox, maxEntries int, maxBytes int64) *Inspector {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxExtractBytes
	}
	return &Inspector{sb: sb, maxEntries: maxEntries, maxBytes: maxBytes}
}

// DetectFormat maps a file name to its archive format.
func DetectFormat(name string) (Format, error) {
	lower := strings.ToLower(name)
	switch {
	case strings.HasSuffix(lower, ".zip"):
		return FormatZip, nil
	case strings.HasSuffix(lower, ".tar.gz"), strings.HasSuffix(lower, ".tgz"):
		return FormatTarGz, nil
	case strings.HasSuffix(lower, ".tar.zst"), strings.HasSuffix(lower, ".tzst"):
		return FormatTarZst, nil
	case strings.HasSuffix(lower, ".tar"):
		return FormatTar, nil
	default:
		return "", fmt.Errorf("%s: %w", filepath.Base(name), domain.ErrUnsupportedArchive)
	}
}

// IsSafeEntry reports whether an entry name stays inside the extraction
// directory: it must be relative, carry no drive letter and contain no ".."
// segment under either separator.
func IsSafeEntry(name string) bool {
	if name == "" || strings.ContainsRune(name, 0) {
		return false
	}
	if name[0] == '/' || name[0] == '\\' {
		return false
	}
	if len(name) >= 2 && name[1] == ':' && isLetter(name[0]) {
		return false
	}
	for _, seg := range strings.FieldsFunc(name, func(r rune) bool { return r == '/' || r == '\\' }) {
		if seg == ".." {
			return false
		}
	}
	return true
}

func isLetter(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

// ListEntries enumerates the archive at path and flags unsafe entries.
func (in *Inspector) ListEntries(path string) (*Listing, error) {
	t, err := in.sb.Resolve(path)
	if err != nil {
		return nil, err
	}
	format, err := DetectFormat(t.Abs)
	if err != nil {
		return nil, err
	}

	listing := &Listing{Path: t.Rel, Format: format, Entries: []Entry{}}
	err = walk(t.Abs, format, func(e Entry, _ func() (io.ReadCloser, error)) error {
		if len(listing.Entries) >= in.maxEntries {
			return fmt.Errorf("%s has more than %d entries: %w", t.Rel, in.maxEntries, domain.ErrTooLarge)
		}
		e.Safe = e.Safe && IsSafeEntry(e.Name)
		if !e.Safe {
			listing.Unsafe++
		}
		listing.Entries = append(listing.Entries, e)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return listing, nil
}

// Extract unpacks the archive at path into destDir (the archive's own
// directory when empty). Nothing is written unless every entry passes
// IsSafeEntry and the archive fits the entry and size ceilings. Existing
// files are skipped unless overwrite is set.
func (in *Inspector) Extract(path, destDir string, overwrite bool) (*ExtractResult, error) {
	listing, err := in.ListEntries(path)
	if err != nil {
		return nil, err
	}
	var declared int64
	for _, e := range listing.Entries {
		if !e.Safe {
			return nil, fmt.Errorf("%q: %w", e.Name, domain.ErrUnsafeArchiveEntry)
		}
		declared += e.Size
	}
	if declared > in.maxBytes {
		return nil, fmt.Errorf("%s expands to %d bytes: %w", listing.Path, declared, domain.ErrTooLarge)
	}

	src, err := in.sb.Resolve(path)
	if err != nil {
		return nil, err
	}
	if destDir == "" {
		destDir = filepath.Dir(src.Abs)
	}
	dest, err := in.sb.Resolve(destDir)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dest.Abs, 0o755); err != nil {
		return nil, fmt.Errorf("create %s: %w", dest.Rel, err)
	}

	res := &ExtractResult{Dest: dest.Rel}
	budget := in.maxBytes
	err = walk(src.Abs, listing.Format, func(e Entry, open func() (io.ReadCloser, error)) error {
		target := filepath.Join(dest.Abs, filepath.FromSlash(strings.ReplaceAll(e.Name, "\\", "/")))
		if !in.sb.Contains(target) || !within(dest.Abs, target) {
			return fmt.Errorf("%q: %w", e.Name, domain.ErrUnsafeArchiveEntry)
		}

		if e.Type == "directory" {
			return os.MkdirAll(target, 0o755)
		}

		if _, err := os.Lstat(target); err == nil && !overwrite {
			res.Skipped++
			return nil
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return fmt.Errorf("extract %q: %w", e.Name, pathCause(err))
		}

		rc, err := open()
		if err != nil {
			return err
		}
		defer rc.Close()

		br := &budgetReader{r: rc, remaining: budget}
		if err := files.WriteAtomic(target, br, 0o644); err != nil {
			if errors.Is(err, domain.ErrTooLarge) {
				return fmt.Errorf("%s: %w", listing.Path, domain.ErrTooLarge)
			}
			return fmt.Errorf("extract %q: %w", e.Name, err)
		}
		budget = br.remaining
		res.Bytes += br.read
		res.Extracted++
		return nil
	})
	if err != nil {
		log.Warn().Err(err).Str("archive", listing.Path).Int("extracted", res.Extracted).Msg("extraction stopped")
		return res, err
	}
	return res, nil
}

// pathCause drops the host path from a filesystem error.
func pathCause(err error) error {
	var pe *fs.PathError
	if errors.As(err, &pe) {
		return pe.Err
	}
	return err
}

func within(dir, path string) bool {
	return path == dir || strings.HasPrefix(path, dir+string(filepath.Separator))
}

// budgetReader fails once more than remaining bytes have been read.
type budgetReader struct {
	r         io.Reader
	remaining int64
	read      int64
}

func (b *budgetReader) Read(p []byte) (int, error) {
	n, err := b.r.Read(p)
	b.read += int64(n)
	b.remaining -= int64(n)
	if b.remaining < 0 {
		return n, domain.ErrTooLarge
	}
	return n, err
}

type visitFunc func(e Entry, open func() (io.ReadCloser, error)) error

func walk(path string, format Format, visit visitFunc) error {
	if format == FormatZip {
		return walkZip(path, visit)
	}

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%s: %w", filepath.Base(path), domain.ErrNotFound)
		}
		return err
	}
	defer f.Close()

	var r io.Reader = f
	switch format {
	case FormatTarGz:
		gz, err := gzip.NewReader(f)
		if err != nil {
			return fmt.Errorf("open gzip stream: %w", domain.ErrUnsupportedArchive)
		}
		defer gz.Close()
		r = gz
	case FormatTarZst:
		zr, err := zstd.NewReader(f)
		if err != nil {
			return fmt.Errorf("open zstd stream: %w", domain.ErrUnsupportedArchive)
		}
		defer zr.Close()
		r = zr
	}
	return walkTar(r, visit)
}

func walkZip(path string, visit visitFunc) error {
	zr, err := zip.OpenReader(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%s: %w", filepath.Base(path), domain.ErrNotFound)
		}
		return fmt.Errorf("%s: %v: %w", filepath.Base(path), err, domain.ErrUnsupportedArchive)
	}
	defer zr.Close()

	for _, f := range zr.File {
		e := Entry{Name: f.Name, Size: int64(f.UncompressedSize64), Safe: true}
		mode := f.Mode()
		switch {
		case mode.IsDir() || strings.HasSuffix(f.Name, "/"):
			e.Type = "directory"
			e.Size = 0
		case mode&fs.ModeSymlink != 0:
			e.Type = "symlink"
			e.Safe = false
		case mode.IsRegular():
			e.Type = "file"
		default:
			e.Type = "other"
			e.Safe = false
		}
		open := func() (io.ReadCloser, error) { return f.Open() }
		if err := visit(e, open); err != nil {
			return err
		}
	}
	return nil
}

func walkTar(r io.Reader, visit visitFunc) error {
	tr := tar.NewReader(r)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read tar: %v: %w", err, domain.ErrUnsupportedArchive)
		}

		if hdr.Typeflag == tar.TypeXGlobalHeader {
			continue
		}

		e := Entry{Name: hdr.Name, Size: hdr.Size, Safe: true}
		switch hdr.Typeflag {
		case tar.TypeReg:
			e.Type = "file"
		case tar.TypeDir:
			e.Type = "directory"
			e.Size = 0
		case tar.TypeSymlink:
			e.Type = "symlink"
			e.Safe = false
		case tar.TypeLink:
			e.Type = "hardlink"
			e.Safe = false
		default:
			e.Type = "other"
			e.Safe = false
		}
		open := func() (io.ReadCloser, error) { return io.NopCloser(tr), nil }
		if err := visit(e, open); err != nil {
			return err
		}
	}
}

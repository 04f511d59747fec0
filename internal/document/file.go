package document

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/Cyclone1070/polish/internal/fsutil"
	"github.com/pmezard/go-difflib/difflib"
	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

// fileSystem defines the filesystem operations a File needs.
type fileSystem interface {
	Stat(path string) (os.FileInfo, error)
	ReadFile(path string) ([]byte, error)
	WriteFileAtomic(path string, content []byte, perm os.FileMode) error
}

// checksumManager tracks the last content hash written or read per path.
type checksumManager interface {
	Compute(data []byte) string
	Get(path string) (checksum string, ok bool)
	Update(path string, checksum string)
}

// File is a Buffer backed by a file on disk. Every Replace is written
// through atomically, so edits applied before a failure stay on disk.
type File struct {
	*Buffer

	mu        sync.Mutex
	path      string
	perm      os.FileMode
	original  string
	fs        fileSystem
	checksums checksumManager
}

// OpenFile reads path into a new File. maxBytes <= 0 disables the size check.
func OpenFile(path string, fs fileSystem, checksums checksumManager, maxBytes int64) (*File, error) {
	if fs == nil {
		panic("fs is required")
	}
	if checksums == nil {
		panic("checksums is required")
	}

	info, err := fs.Stat(path)
	if err != nil {
		return nil, errors.Errorf("stat %s: %w", path, err)
	}
	if !info.Mode().IsRegular() {
		return nil, errors.Errorf("%s: %w", path, ErrNotRegularFile)
	}
	if maxBytes > 0 && info.Size() > maxBytes {
		return nil, errors.Errorf("%s (size %d, limit %d): %w", path, info.Size(), maxBytes, ErrFileTooLarge)
	}

	data, err := fs.ReadFile(path)
	if err != nil {
		return nil, errors.Errorf("reading %s: %w", path, err)
	}
	if fsutil.IsBinaryContent(data) {
		return nil, errors.Errorf("%s: %w", path, ErrBinaryFile)
	}
	checksums.Update(path, checksums.Compute(data))

	return &File{
		Buffer:    NewBuffer(string(data)),
		path:      path,
		perm:      info.Mode().Perm(),
		original:  string(data),
		fs:        fs,
		checksums: checksums,
	}, nil
}

// Path returns the file's path.
func (f *File) Path() string {
	return f.path
}

// checkConflict fails if the file on disk no longer matches what was last
// read or written.
func (f *File) checkConflict() error {
	data, err := f.fs.ReadFile(f.path)
	if err != nil {
		return errors.Errorf("reading %s: %w", f.path, err)
	}
	prior, ok := f.checksums.Get(f.path)
	if ok && prior != f.checksums.Compute(data) {
		return errors.Errorf("%s: %w", f.path, ErrEditConflict)
	}
	return nil
}

// persist writes the buffer to disk and records its checksum.
// Caller holds f.Buffer.mu.
func (f *File) persist() error {
	content := []byte(f.Buffer.text)
	if err := f.fs.WriteFileAtomic(f.path, content, f.perm); err != nil {
		return errors.Errorf("writing %s: %w", f.path, err)
	}
	f.checksums.Update(f.path, f.checksums.Compute(content))
	return nil
}

// Replace applies the edit in memory and writes the file. If the file changed
// on disk since it was last read, nothing is applied and ErrEditConflict is
// returned. A failed write rolls the in-memory edit back.
func (f *File) Replace(ctx context.Context, r Range, text string, opts ReplaceOptions) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.checkConflict(); err != nil {
		return err
	}

	f.Buffer.mu.Lock()
	defer f.Buffer.mu.Unlock()

	e, err := f.Buffer.replace(r, text, opts)
	if err != nil {
		return err
	}
	if err := f.persist(); err != nil {
		f.Buffer.revert(e)
		f.Buffer.dropLast()
		return err
	}

	zerolog.Ctx(ctx).Debug().
		Str("path", f.path).
		Stringer("range", r).
		Int("old_bytes", len(e.oldText)).
		Int("new_bytes", len(text)).
		Msg("document updated")
	return nil
}

// Undo reverts the last undo group and writes the file.
func (f *File) Undo() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.checkConflict(); err != nil {
		return err
	}

	f.Buffer.mu.Lock()
	defer f.Buffer.mu.Unlock()

	group, err := f.Buffer.undoLast()
	if err != nil {
		return err
	}
	if err := f.persist(); err != nil {
		f.Buffer.redoGroup(group)
		return err
	}
	return nil
}

// Diff returns a unified diff from the content read at open time to the
// current content, and the number of added and removed lines.
func (f *File) Diff() (diff string, added, removed int) {
	return UnifiedDiff(filepath.Base(f.path), f.original, f.FullText())
}

// UnifiedDiff renders a unified diff between two versions of a file.
func UnifiedDiff(filename, oldContent, newContent string) (diff string, added, removed int) {
	ud := difflib.UnifiedDiff{
		A:        difflib.SplitLines(oldContent),
		B:        difflib.SplitLines(newContent),
		FromFile: "a/" + filename,
		ToFile:   "b/" + filename,
		Context:  3,
	}
	diff, _ = difflib.GetUnifiedDiffString(ud)

	for _, line := range strings.Split(diff, "\n") {
		if strings.HasPrefix(line, "+") && !strings.HasPrefix(line, "+++") {
			added++
		} else if strings.HasPrefix(line, "-") && !strings.HasPrefix(line, "---") {
			removed++
		}
	}
	return diff, added, removed
}

// Package fsutil holds the small set of filesystem primitives polish needs:
// whole-file reads, crash-safe writes and content checksums.
package fsutil

import (
	"io"
	"os"
	"path/filepath"

	"gitlab.com/tozd/go/errors"
)

// tempFile is the subset of *os.File used while writing atomically.
type tempFile interface {
	io.Writer
	Sync() error
	Close() error
	Name() string
}

// OSFileSystem reads and writes files on the local disk.
// The syscall fields are swapped out in tests to simulate failures.
type OSFileSystem struct {
	createTemp func(dir, pattern string) (tempFile, error)
	rename     func(oldpath, newpath string) error
	chmod      func(name string, mode os.FileMode) error
	remove     func(name string) error
}

// NewOSFileSystem returns an OSFileSystem backed by the os package.
func NewOSFileSystem() *OSFileSystem {
	return &OSFileSystem{
		createTemp: func(dir, pattern string) (tempFile, error) {
			return os.CreateTemp(dir, pattern)
		},
		rename: os.Rename,
		chmod:  os.Chmod,
		remove: os.Remove,
	}
}

// Stat returns file info for path.
func (f *OSFileSystem) Stat(path string) (os.FileInfo, error) {
	return os.Stat(path)
}

// ReadFile reads the whole file at path.
func (f *OSFileSystem) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// UserHomeDir returns the current user's home directory.
func (f *OSFileSystem) UserHomeDir() (string, error) {
	return os.UserHomeDir()
}

// WriteFileAtomic replaces path with content via a temp file in the same
// directory followed by a rename. Readers see either the old or the new file,
// never a partial one.
func (f *OSFileSystem) WriteFileAtomic(path string, content []byte, perm os.FileMode) error {
	tmp, err := f.createTemp(filepath.Dir(path), ".polish-*")
	if err != nil {
		return errors.Errorf("creating temp file: %w", err)
	}

	tmpPath := tmp.Name()
	committed := false
	defer func() {
		if tmp != nil {
			_ = tmp.Close()
		}
		if !committed {
			_ = f.remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(content); err != nil {
		return errors.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return errors.Errorf("syncing temp file: %w", err)
	}

	closeErr := tmp.Close()
	tmp = nil
	if closeErr != nil {
		return errors.Errorf("closing temp file: %w", closeErr)
	}

	if err := f.rename(tmpPath, path); err != nil {
		return errors.Errorf("renaming temp file: %w", err)
	}
	committed = true

	if err := f.chmod(path, perm); err != nil {
		return errors.Errorf("setting file permissions: %w", err)
	}
	return nil
}

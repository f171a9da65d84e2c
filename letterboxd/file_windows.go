//go:build windows

package letterboxd

import (
	"fmt"
	"os"
	"path/filepath"
)

// File is a Writer backed by a temporary file in the target directory that
// is renamed over the target only on Commit. The rename is best-effort
// atomic on Windows and is not fsynced.
type File struct {
	*Writer
	tmp  *os.File
	path string
	done bool
}

// Create prepares an import file at path
func Create(path string) (*File, error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".plex2letterboxd-*.tmp")
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", path, err)
	}

	w, err := NewWriter(tmp)
	if err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return nil, err
	}

	return &File{Writer: w, tmp: tmp, path: path}, nil
}

// Commit flushes the rows and moves the file into place
func (f *File) Commit() error {
	if err := f.Flush(); err != nil {
		f.Abort()
		return fmt.Errorf("failed to flush %s: %w", f.path, err)
	}

	// Windows cannot rename an open file
	if err := f.tmp.Close(); err != nil {
		f.Abort()
		return fmt.Errorf("failed to close %s: %w", f.path, err)
	}
	if err := os.Rename(f.tmp.Name(), f.path); err != nil {
		f.Abort()
		return fmt.Errorf("failed to replace %s: %w", f.path, err)
	}
	f.done = true
	return nil
}

// Abort discards the temporary file; the target path is left untouched.
// Calling Abort after Commit is a no-op.
func (f *File) Abort() error {
	if f.done {
		return nil
	}
	f.done = true
	f.tmp.Close()
	if err := os.Remove(f.tmp.Name()); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

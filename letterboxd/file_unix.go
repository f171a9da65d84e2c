//go:build !windows

package letterboxd

import (
	"fmt"
	"os"

	"github.com/google/renameio/v2"
)

// File is a Writer backed by a temporary file that replaces the target path
// only on Commit, so a failed export never leaves a truncated file behind.
type File struct {
	*Writer
	pending *renameio.PendingFile
	path    string
}

// Create prepares an import file at path
func Create(path string) (*File, error) {
	pending, err := renameio.NewPendingFile(path, renameio.WithPermissions(0o644))
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", path, err)
	}

	w, err := NewWriter(pending)
	if err != nil {
		pending.Cleanup()
		return nil, err
	}

	return &File{Writer: w, pending: pending, path: path}, nil
}

// Commit flushes the rows and atomically moves the file into place
func (f *File) Commit() error {
	if err := f.Flush(); err != nil {
		f.pending.Cleanup()
		return fmt.Errorf("failed to flush %s: %w", f.path, err)
	}
	if err := f.pending.CloseAtomicallyReplace(); err != nil {
		f.pending.Cleanup()
		return fmt.Errorf("failed to replace %s: %w", f.path, err)
	}
	return nil
}

// Abort discards the temporary file; the target path is left untouched.
// Calling Abort after Commit is a no-op.
func (f *File) Abort() error {
	if err := f.pending.Cleanup(); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

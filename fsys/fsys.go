// Package fsys names the filesystem surface FITS files are written to and
// read back from, and provides the OS and in-memory implementations.
package fsys

import (
	"os"

	"github.com/absfs/absfs"
	"github.com/absfs/osfs"
)

// FS is the filesystem files are created on. Any absfs filer works,
// including github.com/absfs/osfs and github.com/absfs/memfs.
type FS = absfs.Filer

// File is an open file handle.
type File = absfs.File

// Open opens name read-only on fsys.
func Open(fsys FS, name string) (File, error) {
	return fsys.OpenFile(name, os.O_RDONLY, 0)
}

// IsDir reports whether name exists and is a directory.
func IsDir(fsys FS, name string) bool {
	info, err := fsys.Stat(name)
	return err == nil && info.IsDir()
}

// OS returns an FS backed by the operating system. Relative names resolve
// against the process working directory at the time of the call.
func OS() (FS, error) {
	osFS, err := osfs.NewFS()
	if err != nil {
		return nil, err
	}

	return osFS, nil
}

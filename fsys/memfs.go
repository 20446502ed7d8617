package fsys

import (
	"path"
	"sort"
	"strings"

	"github.com/absfs/memfs"
)

// MemFS is an in-memory FS rooted at "/". Relative names resolve against the
// root, so "out.fits" and "/out.fits" are the same file.
type MemFS struct {
	*memfs.FileSystem
}

var _ FS = (*MemFS)(nil)

// NewMemFS creates an empty in-memory filesystem.
func NewMemFS() *MemFS {
	mfs, err := memfs.NewFS()
	if err != nil {
		// memfs.NewFS only allocates its root directory.
		panic(err)
	}

	return &MemFS{FileSystem: mfs}
}

// Files returns the sorted names of all regular files, relative to the root.
func (m *MemFS) Files() []string {
	var names []string
	m.walk("/", &names)
	sort.Strings(names)

	return names
}

func (m *MemFS) walk(dir string, names *[]string) {
	entries, err := m.ReadDir(dir)
	if err != nil {
		return
	}

	for _, e := range entries {
		p := path.Join(dir, e.Name())
		if e.IsDir() {
			m.walk(p, names)
			continue
		}
		*names = append(*names, strings.TrimPrefix(p, "/"))
	}
}

// Bytes returns the content of a file, or nil if it cannot be read.
func (m *MemFS) Bytes(name string) []byte {
	data, err := m.ReadFile(name)
	if err != nil {
		return nil
	}

	return data
}

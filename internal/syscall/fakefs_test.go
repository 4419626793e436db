package syscall

import (
	"strings"

	"owos-riscv/internal/defs"
	"owos-riscv/internal/gfile"
)

// fakeFile is an in-memory gfile.File_i test double: either a regular
// file backed by a byte slice, or a directory backed by a name-to-file
// map, so the syscall layer can be exercised without a real
// filesystem.
type fakeFile struct {
	isDir   bool
	data    []byte
	cursor  int
	entries map[string]*fakeFile
}

func newFakeDir() *fakeFile {
	return &fakeFile{isDir: true, entries: map[string]*fakeFile{}}
}

func newFakeRegular(data []byte) *fakeFile {
	return &fakeFile{data: data}
}

func (f *fakeFile) ReadChar() (byte, bool, defs.Err_t) {
	if f.isDir {
		return 0, true, defs.EOK
	}
	if f.cursor >= len(f.data) {
		return 0, true, defs.EOK
	}
	b := f.data[f.cursor]
	f.cursor++
	return b, false, defs.EOK
}

func (f *fakeFile) WriteChar(b byte) defs.Err_t {
	if f.isDir {
		return defs.EWRONGTYPE
	}
	f.data = append(f.data, b)
	return defs.EOK
}

func (f *fakeFile) Seek(off int64) defs.Err_t {
	f.cursor = int(off)
	return defs.EOK
}

func (f *fakeFile) Size() (int64, defs.Err_t) {
	if f.isDir {
		return 0, defs.EOK
	}
	return int64(len(f.data)), defs.EOK
}

func (f *fakeFile) Type() gfile.EntryType {
	if f.isDir {
		return gfile.EntryDir
	}
	return gfile.EntryFile
}

func (f *fakeFile) Lookup(name string) (gfile.File_i, defs.Err_t) {
	if !f.isDir {
		return nil, defs.EWRONGTYPE
	}
	child, ok := f.entries[name]
	if !ok {
		return nil, defs.ENOTFOUND
	}
	return child, defs.EOK
}

func (f *fakeFile) List() ([]gfile.DirEntry, defs.Err_t) {
	if !f.isDir {
		return nil, defs.EWRONGTYPE
	}
	var out []gfile.DirEntry
	for name, e := range f.entries {
		t := gfile.EntryFile
		if e.isDir {
			t = gfile.EntryDir
		}
		out = append(out, gfile.DirEntry{Name: name, Type: t})
	}
	return out, defs.EOK
}

func (f *fakeFile) Close() defs.Err_t { return defs.EOK }

// fakeFS implements gfile.Filesystem_i over a fakeFile root directory.
type fakeFS struct {
	root *fakeFile
}

func (fs *fakeFS) Root() (gfile.File_i, defs.Err_t) { return fs.root, defs.EOK }
func (fs *fakeFS) Ref()                             {}
func (fs *fakeFS) Unref() bool                      { return false }

// putFile registers a file at a slash-separated path, creating
// intermediate directories as needed.
func (fs *fakeFS) putFile(path string, data []byte) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	dir := fs.root
	for _, part := range parts[:len(parts)-1] {
		next, ok := dir.entries[part]
		if !ok {
			next = newFakeDir()
			dir.entries[part] = next
		}
		dir = next
	}
	dir.entries[parts[len(parts)-1]] = newFakeRegular(data)
}

func newFakeFS() *fakeFS {
	return &fakeFS{root: newFakeDir()}
}

package syscall

import (
	"strings"

	"owos-riscv/internal/defs"
	"owos-riscv/internal/gfile"
)

// openPath resolves a slash-separated path against fs's root,
// releasing every intermediate directory along the way (the root
// directory handle included) so only the final component's reference
// survives.
func openPath(fs gfile.Filesystem_i, path string) (gfile.File_i, defs.Err_t) {
	cur, err := fs.Root()
	if err != defs.EOK {
		return nil, err
	}

	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return cur, defs.EOK
	}

	for _, part := range strings.Split(trimmed, "/") {
		if part == "" {
			continue
		}
		next, lerr := cur.Lookup(part)
		cur.Close()
		if lerr != defs.EOK {
			return nil, lerr
		}
		cur = next
	}
	return cur, defs.EOK
}

// readAll drains f from its current cursor to EOF. Used by spawn to
// pull a whole ELF image out of the filesystem before handing it to
// proc.LoadELF.
func readAll(f gfile.File_i) ([]byte, defs.Err_t) {
	var out []byte
	for {
		b, eof, err := f.ReadChar()
		if err != defs.EOK {
			return nil, err
		}
		if eof {
			return out, defs.EOK
		}
		out = append(out, b)
	}
}

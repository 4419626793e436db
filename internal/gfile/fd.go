package gfile

import "owos-riscv/internal/defs"

// File-descriptor permission bits. CLOEXEC is kept even though this
// kernel has no exec(): spawn() still inherits descriptors, and the
// bit documents which ones a future exec would need to drop.
const (
	FDRead    = 0x1
	FDWrite   = 0x2
	FDCloexec = 0x4
)

// FD is one slot of a process's file-descriptor table: a generic file
// plus the permission bits open() granted. There is no dup()/dup2(),
// so no copy-on-dup machinery.
type FD struct {
	File  File_i
	Perms int
}

// Readable reports whether reads are permitted on this descriptor.
func (f *FD) Readable() bool { return f.Perms&FDRead != 0 }

// Writable reports whether writes are permitted on this descriptor.
func (f *FD) Writable() bool { return f.Perms&FDWrite != 0 }

// Close releases the underlying file. Safe to call once.
func (f *FD) Close() defs.Err_t {
	if f.File == nil {
		return defs.EINVALIDFD
	}
	err := f.File.Close()
	f.File = nil
	return err
}

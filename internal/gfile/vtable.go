// Package gfile is the filesystem-agnostic generic-file abstraction:
// every open file, directory, and device is reached through the same
// File_i vtable regardless of which filesystem (or none, for the
// console) backs it, so callers never type-switch over concrete
// filesystem types.
package gfile

import "owos-riscv/internal/defs"

// EntryType classifies a directory entry returned by List.
type EntryType int

const (
	EntryUnknown EntryType = iota
	EntryFile
	EntryDir
	// EntrySymlink is recognized but never followed; there is no
	// symlink resolution.
	EntrySymlink
)

// DirEntry names one entry of a directory listing.
type DirEntry struct {
	Name string
	Type EntryType
}

// File_i is the vtable every open generic file implements: a plain file,
// a directory, or a device such as the console. Read/write move one
// character at a time; callers needing bulk transfer loop over it
// (internal/syscall does, to satisfy the read/write syscalls'
// byte-count semantics).
type File_i interface {
	// ReadChar returns the next byte, or eof=true at end of file; a
	// filesystem-backed file also reports eof for a failed block read
	// rather than surfacing a device error to its caller.
	ReadChar() (b byte, eof bool, err defs.Err_t)
	// WriteChar appends one byte. Read-only filesystems return
	// EUNSUPPORTED.
	WriteChar(b byte) defs.Err_t
	// Seek repositions the file's cursor to an absolute byte offset.
	Seek(off int64) defs.Err_t
	// Size always succeeds: regular files report
	// (dir_acl<<32)|size, directories report their raw inode size,
	// everything else reports 0.
	Size() (int64, defs.Err_t)
	// Type reports what kind of generic file this is, the same
	// classification List's DirEntry.Type uses. Needed anywhere a
	// caller must tell a directory from a regular file or device now
	// that Size can no longer double as that discriminator.
	Type() EntryType
	// Lookup resolves name as a single path component of a directory.
	Lookup(name string) (File_i, defs.Err_t)
	// List enumerates a directory's entries.
	List() ([]DirEntry, defs.Err_t)
	// Close releases any cached state. Safe to call exactly once per
	// successful Open/Lookup.
	Close() defs.Err_t
}

// Filesystem_i is the refcounted mount-point object: every open file
// holds a reference, and Unref reports when the last one is dropped.
// The interface has no unmount operation. The count lives
// at mount granularity, not per physical page, since this kernel never
// shares pages across processes.
type Filesystem_i interface {
	// Root returns the filesystem's root directory, opened fresh.
	Root() (File_i, defs.Err_t)
	// Ref increments the mount's reference count.
	Ref()
	// Unref decrements it, returning true when the count reached zero.
	Unref() bool
}

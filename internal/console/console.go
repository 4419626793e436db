// Package console adapts a serial byte sink/source to the
// internal/gfile vtable for stdin/stdout/stderr. The serial driver
// itself (line editing, actual UART registers) lives elsewhere and is
// named only by the Device interface.
package console

import (
	"owos-riscv/internal/defs"
	"owos-riscv/internal/gfile"
)

// Device is the serial driver this package adapts: a byte
// source/sink, no line editing at this layer.
type Device interface {
	ReadByte() (b byte, ok bool)
	WriteByte(b byte)
}

// File wraps a Device as a gfile.File_i. One File exists per open
// stdin/stdout/stderr descriptor; all three typically share the same
// underlying Device.
type File struct {
	dev Device
}

// New wraps dev as a generic file.
func New(dev Device) *File { return &File{dev: dev} }

// ReadChar reads the next byte from the device. This kernel has no
// blocking read — syscalls run to completion, with no suspension
// points besides ecall and external interrupt — so a device with
// nothing buffered reports eof rather than stalling the caller.
func (f *File) ReadChar() (byte, bool, defs.Err_t) {
	b, ok := f.dev.ReadByte()
	if !ok {
		return 0, true, defs.EOK
	}
	return b, false, defs.EOK
}

// WriteChar writes one byte to the device.
func (f *File) WriteChar(b byte) defs.Err_t {
	f.dev.WriteByte(b)
	return defs.EOK
}

// Seek is unsupported on a live device: there is no position to
// rewind to.
func (f *File) Seek(int64) defs.Err_t { return defs.EUNSUPPORTED }

// Size reports 0: a serial stream is neither a regular file nor a
// directory, and size never fails for the other types.
func (f *File) Size() (int64, defs.Err_t) { return 0, defs.EOK }

// Type reports the console as neither a file nor a directory.
func (f *File) Type() gfile.EntryType { return gfile.EntryUnknown }

// Lookup is unsupported: the console is not a directory.
func (f *File) Lookup(string) (gfile.File_i, defs.Err_t) { return nil, defs.EWRONGTYPE }

// List is unsupported: the console is not a directory.
func (f *File) List() ([]gfile.DirEntry, defs.Err_t) { return nil, defs.EWRONGTYPE }

// Close is a no-op: the device outlives any one File wrapper.
func (f *File) Close() defs.Err_t { return defs.EOK }

var _ gfile.File_i = (*File)(nil)

package ext2

import (
	"io"
	"os"
	"sync"

	"owos-riscv/internal/defs"
)

// FileDevice implements BlockDevice_i over a plain os.File: seek then
// read under a lock so the two stay atomic. Used to mount a real ext2
// image for a hosted kernel build.
type FileDevice struct {
	mu sync.Mutex
	f  *os.File
}

// OpenFileDevice opens path read-only as a block device.
func OpenFileDevice(path string) (*FileDevice, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return &FileDevice{f: f}, nil
}

// ReadSectors reads nSectors sectors starting at startSector into dst.
func (d *FileDevice) ReadSectors(dst []byte, startSector int64, nSectors int) defs.Err_t {
	d.mu.Lock()
	defer d.mu.Unlock()

	want := nSectors * defs.SectorSize
	if len(dst) < want {
		return defs.EBLOCKIO
	}
	if _, err := d.f.Seek(startSector*defs.SectorSize, 0); err != nil {
		return defs.EBLOCKIO
	}
	if _, err := io.ReadFull(d.f, dst[:want]); err != nil {
		return defs.EBLOCKIO
	}
	return defs.EOK
}

// Close releases the underlying file.
func (d *FileDevice) Close() error {
	return d.f.Close()
}

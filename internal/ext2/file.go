package ext2

import (
	"owos-riscv/internal/defs"
	"owos-riscv/internal/gfile"
)

// file implements gfile.File_i over one open ext2 inode. Regular files
// and directories share one type: both ride the same block-offset
// bookkeeping, and the inode's type nibble gates which operations
// apply.
type file struct {
	mnt      *Fs_t
	inodeNum uint32
	inode    *Inode
	ring     *gfile.BlockRing
	cursor   int64
}

// blockAndOffset splits a byte cursor into a logical block number and
// the byte offset within that block.
func (f *file) blockAndOffset(pos int64) (int64, int64) {
	bs := int64(f.mnt.sb.BlockSize())
	return pos / bs, pos % bs
}

// loadLogicalBlock returns the decoded bytes of the file's logical
// block n, serving from the ring cache when present.
func (f *file) loadLogicalBlock(n int64) ([]byte, defs.Err_t) {
	if cached, ok := f.ring.Lookup(n); ok {
		return cached, defs.EOK
	}
	phys, err := blockForOffset(f.mnt.dev, f.mnt.sb, f.inode, n)
	if err != defs.EOK {
		return nil, err
	}
	var data []byte
	if phys == 0 {
		data = make([]byte, f.mnt.sb.BlockSize()) // sparse hole, reads as zero
	} else {
		data, err = readBlock(f.mnt.dev, f.mnt.sb, phys)
		if err != defs.EOK {
			return nil, err
		}
	}
	f.ring.Insert(n, data)
	return data, defs.EOK
}

// ReadChar returns the byte at the file's cursor and advances it. A
// non-regular file, a cursor at or past the end, and a failed block
// read all surface as eof — device faults never cross the file layer
// as errors, they just end the stream.
func (f *file) ReadChar() (byte, bool, defs.Err_t) {
	if !f.inode.IsRegular() {
		return 0, true, defs.EOK
	}
	if f.cursor >= f.inode.Size() {
		return 0, true, defs.EOK
	}
	blockNum, off := f.blockAndOffset(f.cursor)
	block, err := f.loadLogicalBlock(blockNum)
	if err != defs.EOK {
		return 0, true, defs.EOK
	}
	b := block[off]
	f.cursor++
	return b, false, defs.EOK
}

// WriteChar always fails: this driver is read-only.
func (f *file) WriteChar(byte) defs.Err_t { return defs.EUNSUPPORTED }

// Seek repositions the cursor to an absolute byte offset.
func (f *file) Seek(off int64) defs.Err_t {
	if off < 0 {
		return defs.EUNSUPPORTED
	}
	f.cursor = off
	return defs.EOK
}

// Size returns the file's byte length. It always succeeds,
// dispatching on the inode's type nibble rather than ever refusing a
// directory.
func (f *file) Size() (int64, defs.Err_t) {
	return f.inode.Size(), defs.EOK
}

// Type reports this inode's kind, for callers (internal/syscall's
// open()) that need to tell a directory from a regular file now that
// Size no longer serves as that discriminator.
func (f *file) Type() gfile.EntryType {
	return f.inode.EntryType()
}

// Lookup resolves name as one entry of this directory: scan each of
// the directory's data blocks in turn, stopping at the first match.
func (f *file) Lookup(name string) (gfile.File_i, defs.Err_t) {
	if !f.inode.IsDir() {
		return nil, defs.EWRONGTYPE
	}
	var found uint32
	err := ForEachBlock(f.mnt.dev, f.mnt.sb, f.inode, func(blockID uint32) bool {
		block, rerr := readBlock(f.mnt.dev, f.mnt.sb, blockID)
		if rerr != defs.EOK {
			return true
		}
		if inode, ok := lookupInDirBlock(block, name); ok {
			found = inode
			return false
		}
		return true
	})
	if err != defs.EOK {
		return nil, err
	}
	if found == 0 {
		return nil, defs.ENOTFOUND
	}
	return f.mnt.openInode(found)
}

// List enumerates this directory's entries: walk every data block,
// decode every record, skip deleted (zero-inode) entries.
func (f *file) List() ([]gfile.DirEntry, defs.Err_t) {
	if !f.inode.IsDir() {
		return nil, defs.EWRONGTYPE
	}
	var out []gfile.DirEntry
	err := ForEachBlock(f.mnt.dev, f.mnt.sb, f.inode, func(blockID uint32) bool {
		block, rerr := readBlock(f.mnt.dev, f.mnt.sb, blockID)
		if rerr != defs.EOK {
			return true
		}
		for _, e := range parseDirEntries(block) {
			out = append(out, gfile.DirEntry{Name: e.Name, Type: entryTypeFromDirentType(e.Type)})
		}
		return true
	})
	if err != defs.EOK {
		return nil, err
	}
	return out, defs.EOK
}

// Close drops this file's reference to the mount. Unref's result is
// not acted on: nothing unmounts the volume when the last open file
// closes.
func (f *file) Close() defs.Err_t {
	f.mnt.Unref()
	return defs.EOK
}

// InodeInfo exposes stat-like inode metadata beyond what the File_i
// vtable carries: link count, block count, type, and permission
// bits.
type InodeInfo struct {
	LinksCount uint16
	Blocks     uint32
	Type       gfile.EntryType
	Perm       gfile.Mode_t
}

// Info reports inode metadata beyond what the File_i vtable exposes.
func Info(f gfile.File_i) (InodeInfo, defs.Err_t) {
	ef, ok := f.(*file)
	if !ok {
		return InodeInfo{}, defs.EWRONGTYPE
	}
	return InodeInfo{
		LinksCount: ef.inode.LinksCount,
		Blocks:     ef.inode.Blocks,
		Type:       ef.inode.EntryType(),
		Perm:       ef.inode.Perm(),
	}, defs.EOK
}

package ext2

import (
	"encoding/binary"

	"owos-riscv/internal/gfile"
)

// inodeSize128 is the on-disk inode record layout this driver reads
// (the first 128 bytes of ext2fs_inode_t; extended inode fields beyond
// that, when inode_size > 128, are never read).
const inodeSize128 = 128

// Mode type-nibble values, ext2fs_inode_t.mode & 0xf000. Grounded on
// ext2.h's INODE_* constants.
const (
	modeFIFO   = 0x1000
	modeChar   = 0x2000
	modeDir    = 0x4000
	modeBlock  = 0x6000
	modeFile   = 0x8000
	modeLink   = 0xa000
	modeSocket = 0xc000
)

// Direct/indirect block-pointer slots within inode.block[15].
const (
	directBlocks   = 12
	singleIndirect = 12
	doubleIndirect = 13
	tripleIndirect = 14
	blockPtrSlots  = 15
)

// Inode holds the on-disk inode fields this driver needs: permissions,
// size, link count, and the 15-entry block pointer array. Grounded on
// ext2fs_inode_t.
type Inode struct {
	Mode       uint16
	UID        uint16
	SizeLow    uint32
	LinksCount uint16
	Blocks     uint32
	Block      [blockPtrSlots]uint32
	SizeHigh   uint32
}

// byte offsets within the first 128 bytes of ext2fs_inode_t.
const (
	iOffMode       = 0
	iOffUID        = 2
	iOffSizeLow    = 4
	iOffLinksCount = 26
	iOffBlocksCnt  = 28
	iOffBlock      = 40
	iOffSizeHigh   = 108
)

// ParseInode decodes one inode record from a 128-byte slice.
func ParseInode(data []byte) *Inode {
	le := binary.LittleEndian
	in := &Inode{
		Mode:       le.Uint16(data[iOffMode:]),
		UID:        le.Uint16(data[iOffUID:]),
		SizeLow:    le.Uint32(data[iOffSizeLow:]),
		LinksCount: le.Uint16(data[iOffLinksCount:]),
		Blocks:     le.Uint32(data[iOffBlocksCnt:]),
		SizeHigh:   le.Uint32(data[iOffSizeHigh:]),
	}
	for i := 0; i < blockPtrSlots; i++ {
		in.Block[i] = le.Uint32(data[iOffBlock+4*i:])
	}
	return in
}

// Size returns the inode's byte length. For regular files, dir_acl is
// reused as the upper 32 bits of the size, so the full 64-bit value is
// returned; for directories only size_low is meaningful; every other
// type reports 0.
func (in *Inode) Size() int64 {
	switch {
	case in.IsRegular():
		return int64(in.SizeHigh)<<32 | int64(in.SizeLow)
	case in.IsDir():
		return int64(in.SizeLow)
	default:
		return 0
	}
}

func (in *Inode) typeNibble() uint16 { return in.Mode & 0xf000 }

// Perm returns the inode's permission bits (mode & 0x1FF), read-only,
// surfaced for ls(1)-style tooling; the kernel never enforces them.
func (in *Inode) Perm() gfile.Mode_t { return gfile.Mode_t(in.Mode & 0x1ff) }

// IsDir reports whether the inode is a directory.
func (in *Inode) IsDir() bool { return in.typeNibble() == modeDir }

// IsRegular reports whether the inode is a plain file.
func (in *Inode) IsRegular() bool { return in.typeNibble() == modeFile }

// IsSymlink reports whether the inode is a symbolic link. This driver
// recognizes but never follows symlinks; there is no loop-detection
// machinery to make following one safe.
func (in *Inode) IsSymlink() bool { return in.typeNibble() == modeLink }

// EntryType maps the inode's type nibble onto the gfile vtable's
// coarser EntryType classification.
func (in *Inode) EntryType() gfile.EntryType {
	switch in.typeNibble() {
	case modeDir:
		return gfile.EntryDir
	case modeFile:
		return gfile.EntryFile
	case modeLink:
		return gfile.EntrySymlink
	default:
		return gfile.EntryUnknown
	}
}

// inodeBlockGroup and inodeIndexInGroup together locate an inode's
// record. Inodes are 1-indexed; callers must subtract 1 before calling
// these.
func inodeBlockGroup(sb *Superblock, inodeZeroIdx uint32) uint32 {
	return inodeZeroIdx / sb.InodesPerGroup
}

func inodeIndexInGroup(sb *Superblock, inodeZeroIdx uint32) uint32 {
	return inodeZeroIdx % sb.InodesPerGroup
}

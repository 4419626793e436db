// Package ext2 is a read-only ext2 filesystem driver: superblock and
// block-group-descriptor parsing, inode decoding, direct/indirect
// block mapping, directory iteration, and path resolution, exposed
// through the internal/gfile vtable. On-disk layouts are decoded field
// by field at their fixed byte offsets; nothing here round-trips
// through a tagged Go struct.
package ext2

import (
	"encoding/binary"

	"owos-riscv/internal/defs"
)

// Magic is the ext2 superblock signature.
const Magic = 0xef53

// superblockSize is the on-disk superblock record size.
const superblockSize = 1024

// Superblock holds the handful of superblock fields this driver
// needs; fields it never reads (uuid, volume_name, journal_*,
// hash_seed, ...) are left unparsed.
type Superblock struct {
	InodesCount     uint32
	BlocksCount     uint32
	FreeBlocksCount uint32
	FreeInodesCount uint32
	FirstDataBlock  uint32
	LogBlockSize    uint32
	BlocksPerGroup  uint32
	InodesPerGroup  uint32
	Magic           uint16
	InodeSize       uint16
}

// byte offsets of the fields above within the on-disk superblock.
const (
	offInodesCount     = 0
	offBlocksCount     = 4
	offFreeBlocksCount = 12
	offFreeInodesCount = 16
	offFirstDataBlock  = 20
	offLogBlockSize    = 24
	offBlocksPerGroup  = 32
	offInodesPerGroup  = 40
	offMagic           = 56
	offInodeSize       = 88
)

// ParseSuperblock decodes a 1024-byte ext2 superblock. Returns
// EBADMAGIC if the magic field doesn't match.
func ParseSuperblock(data []byte) (*Superblock, defs.Err_t) {
	if len(data) < superblockSize {
		return nil, defs.EBADMAGIC
	}
	le := binary.LittleEndian
	sb := &Superblock{
		InodesCount:     le.Uint32(data[offInodesCount:]),
		BlocksCount:     le.Uint32(data[offBlocksCount:]),
		FreeBlocksCount: le.Uint32(data[offFreeBlocksCount:]),
		FreeInodesCount: le.Uint32(data[offFreeInodesCount:]),
		FirstDataBlock:  le.Uint32(data[offFirstDataBlock:]),
		LogBlockSize:    le.Uint32(data[offLogBlockSize:]),
		BlocksPerGroup:  le.Uint32(data[offBlocksPerGroup:]),
		InodesPerGroup:  le.Uint32(data[offInodesPerGroup:]),
		Magic:           le.Uint16(data[offMagic:]),
		InodeSize:       le.Uint16(data[offInodeSize:]),
	}
	if sb.Magic != Magic {
		return nil, defs.EBADMAGIC
	}
	if sb.InodeSize == 0 {
		// revision 0 filesystems don't store inode_size; it is fixed
		// at 128.
		sb.InodeSize = 128
	}
	return sb, defs.EOK
}

// BlockSize returns the filesystem's block size in bytes: 1024 <<
// log_block_size.
func (sb *Superblock) BlockSize() uint64 {
	return 1024 << sb.LogBlockSize
}

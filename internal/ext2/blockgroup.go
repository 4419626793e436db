package ext2

import "encoding/binary"

// descriptorSize is sizeof(ext2fs_block_descriptor_t): three uint32
// pointers, a uint16 free-blocks count, a uint16 free-inodes count, a
// uint16 used-dirs count, a uint16 pad, then 12 bytes reserved.
const descriptorSize = 32

// BlockGroupDescriptor locates one block group's bitmaps and inode
// table. Grounded on ext2fs_block_descriptor_t.
type BlockGroupDescriptor struct {
	BlockBitmap     uint32
	InodeBitmap     uint32
	InodeTable      uint32
	FreeBlocksCount uint16
	FreeInodesCount uint16
	UsedDirsCount   uint16
}

// ParseBlockGroupDescriptorTable decodes the block group descriptor
// table, one descriptor per group. groupCount is computed by the
// caller from the superblock.
func ParseBlockGroupDescriptorTable(data []byte, groupCount int) []BlockGroupDescriptor {
	le := binary.LittleEndian
	out := make([]BlockGroupDescriptor, groupCount)
	for i := range out {
		off := i * descriptorSize
		out[i] = BlockGroupDescriptor{
			BlockBitmap:     le.Uint32(data[off:]),
			InodeBitmap:     le.Uint32(data[off+4:]),
			InodeTable:      le.Uint32(data[off+8:]),
			FreeBlocksCount: le.Uint16(data[off+12:]),
			FreeInodesCount: le.Uint16(data[off+14:]),
			UsedDirsCount:   le.Uint16(data[off+16:]),
		}
	}
	return out
}

// GroupCount returns how many block group descriptors the superblock
// implies: ceil(blocks_count / blocks_per_group).
func (sb *Superblock) GroupCount() int {
	if sb.BlocksPerGroup == 0 {
		return 0
	}
	n := sb.BlocksCount / sb.BlocksPerGroup
	if sb.BlocksCount%sb.BlocksPerGroup != 0 {
		n++
	}
	return int(n)
}

package ext2

import (
	"sync/atomic"

	"owos-riscv/internal/defs"
	"owos-riscv/internal/gfile"
)

const (
	superblockOffset = 1024
	rootInodeNum     = 2
)

// Fs_t is a mounted ext2 volume: superblock, block group descriptor
// table, and the backing device, refcounted so multiple open files can
// share one mount and the last Unref tears it down.
type Fs_t struct {
	dev  BlockDevice_i
	sb   *Superblock
	bgdt []BlockGroupDescriptor
	refs int32
}

// Mount reads the superblock and block group descriptor table off dev
// and returns a ready-to-use volume with a refcount of 1.
func Mount(dev BlockDevice_i) (*Fs_t, defs.Err_t) {
	raw, err := readBytes(dev, superblockOffset, superblockSize)
	if err != defs.EOK {
		return nil, err
	}
	sb, err := ParseSuperblock(raw)
	if err != defs.EOK {
		return nil, err
	}

	groupCount := sb.GroupCount()
	bgdtBlock := sb.FirstDataBlock + 1
	bgdtBytes, err := readBytes(dev, int64(bgdtBlock)*int64(sb.BlockSize()), groupCount*descriptorSize)
	if err != defs.EOK {
		return nil, err
	}

	return &Fs_t{
		dev:  dev,
		sb:   sb,
		bgdt: ParseBlockGroupDescriptorTable(bgdtBytes, groupCount),
		refs: 1,
	}, defs.EOK
}

// Ref increments the mount's reference count.
func (mnt *Fs_t) Ref() { atomic.AddInt32(&mnt.refs, 1) }

// Unref decrements the mount's reference count, returning true when it
// reaches zero (the caller is responsible for discarding the volume;
// there is no backing resource to release beyond Go's GC since this
// driver never writes back to dev).
func (mnt *Fs_t) Unref() bool {
	return atomic.AddInt32(&mnt.refs, -1) == 0
}

// Root opens the filesystem's root directory (always inode 2, per
// ext2 convention).
func (mnt *Fs_t) Root() (gfile.File_i, defs.Err_t) {
	return mnt.openInode(rootInodeNum)
}

// loadInode reads and decodes inode number num (1-indexed, per ext2
// convention): locate the inode's block group from
// (num-1)/inodes_per_group, its index within the group's inode table
// from (num-1)%inodes_per_group, then read the block containing byte
// inode_table_block*block_size + index*inode_size and decode the first
// 128 bytes of the record at that offset.
func (mnt *Fs_t) loadInode(num uint32) (*Inode, defs.Err_t) {
	if num == 0 || int(num) > int(mnt.sb.InodesCount) {
		return nil, defs.ENOTFOUND
	}
	zeroIdx := num - 1
	group := inodeBlockGroup(mnt.sb, zeroIdx)
	if int(group) >= len(mnt.bgdt) {
		return nil, defs.ENOTFOUND
	}
	idxInGroup := inodeIndexInGroup(mnt.sb, zeroIdx)

	bs := mnt.sb.BlockSize()
	is := uint64(mnt.sb.InodeSize)
	containingBlock := mnt.bgdt[group].InodeTable + uint32(uint64(idxInGroup)*is/bs)
	offInBlock := (uint64(idxInGroup) * is) % bs

	block, berr := readBlock(mnt.dev, mnt.sb, containingBlock)
	if berr != defs.EOK {
		return nil, berr
	}
	return ParseInode(block[offInBlock : offInBlock+inodeSize128]), defs.EOK
}

// openInode loads an inode and wraps it as a gfile.File_i; the file's
// methods dispatch on the inode's type nibble.
func (mnt *Fs_t) openInode(num uint32) (gfile.File_i, defs.Err_t) {
	in, err := mnt.loadInode(num)
	if err != defs.EOK {
		return nil, err
	}
	mnt.Ref()
	return &file{mnt: mnt, inodeNum: num, inode: in, ring: gfile.NewBlockRing()}, defs.EOK
}

package ext2

import (
	"encoding/binary"

	"owos-riscv/internal/defs"
)

// BlockDevice_i is the storage abstraction this driver reads through:
// one synchronous sector-ranged read, sector size defs.SectorSize.
// The driver never writes, so there is no request queue to model.
type BlockDevice_i interface {
	ReadSectors(dst []byte, startSector int64, nSectors int) defs.Err_t
}

// readBytes reads length bytes starting at an arbitrary byte offset,
// rounding out to whole sectors as the device contract requires and
// trimming the result back down to the requested range.
func readBytes(dev BlockDevice_i, byteOffset int64, length int) ([]byte, defs.Err_t) {
	startSector := byteOffset / defs.SectorSize
	endByte := byteOffset + int64(length)
	endSector := (endByte + defs.SectorSize - 1) / defs.SectorSize
	nSectors := int(endSector - startSector)

	buf := make([]byte, nSectors*defs.SectorSize)
	if err := dev.ReadSectors(buf, startSector, nSectors); err != defs.EOK {
		return nil, defs.EBLOCKIO
	}
	skip := int(byteOffset - startSector*defs.SectorSize)
	return buf[skip : skip+length], defs.EOK
}

// readBlock reads one filesystem block (blockID is a block number, not
// a byte offset) into a freshly allocated buffer. Grounded on
// ext2fs_load_block: block_size/SECTOR_SIZE sectors starting at
// block_id*block_size/SECTOR_SIZE.
func readBlock(dev BlockDevice_i, sb *Superblock, blockID uint32) ([]byte, defs.Err_t) {
	if blockID == 0 {
		return nil, defs.ENOTFOUND
	}
	bs := sb.BlockSize()
	sectorsPerBlock := int(bs / defs.SectorSize)
	startSector := int64(blockID) * int64(sectorsPerBlock)

	buf := make([]byte, bs)
	if err := dev.ReadSectors(buf, startSector, sectorsPerBlock); err != defs.EOK {
		return nil, defs.EBLOCKIO
	}
	return buf, defs.EOK
}

// pointersPerBlock is the number of uint32 block pointers that fit in
// one filesystem block. Every indirect-block walk in this package
// sizes itself from this one function and decodeBlockPointers; no call
// site does its own pointer arithmetic on a block buffer, where a
// byte-count/pointer-count mixup could scale an index by 4x.
func pointersPerBlock(sb *Superblock) int {
	return int(sb.BlockSize() / 4)
}

// decodeBlockPointers reads exactly pointersPerBlock(sb) little-endian
// uint32 entries from a block buffer.
func decodeBlockPointers(sb *Superblock, block []byte) []uint32 {
	n := pointersPerBlock(sb)
	out := make([]uint32, n)
	for i := 0; i < n; i++ {
		out[i] = binary.LittleEndian.Uint32(block[4*i:])
	}
	return out
}

// walkIndirect visits every leaf data-block id reachable from blockID
// through depth levels of indirection (depth 0: blockID itself is a
// leaf; depth 1: blockID is a singly-indirect block of leaves; depth
// 2: doubly-indirect; depth 3: triply-indirect). visit returns false
// to stop early. Each recursive call reads its own fresh block buffer
// — exactly one buffer per call frame — so a deeper level can never
// clobber a shallower level's still-live pointers.
func walkIndirect(dev BlockDevice_i, sb *Superblock, blockID uint32, depth int, visit func(uint32) bool) (stopped bool, err defs.Err_t) {
	if blockID == 0 {
		return false, defs.EOK
	}
	if depth == 0 {
		return !visit(blockID), defs.EOK
	}

	block, rerr := readBlock(dev, sb, blockID)
	if rerr != defs.EOK {
		return false, rerr
	}
	for _, ptr := range decodeBlockPointers(sb, block) {
		if ptr == 0 {
			continue
		}
		stop, werr := walkIndirect(dev, sb, ptr, depth-1, visit)
		if werr != defs.EOK {
			return false, werr
		}
		if stop {
			return true, defs.EOK
		}
	}
	return false, defs.EOK
}

// ForEachBlock visits every allocated data block of the file/directory
// described by in, in logical order: the 12 direct pointers, then the
// single/double/triple indirect trees.
func ForEachBlock(dev BlockDevice_i, sb *Superblock, in *Inode, visit func(uint32) bool) defs.Err_t {
	for i := 0; i < directBlocks; i++ {
		if in.Block[i] == 0 {
			continue
		}
		if !visit(in.Block[i]) {
			return defs.EOK
		}
	}
	indirectSlots := [3]int{singleIndirect, doubleIndirect, tripleIndirect}
	for depth := 1; depth <= 3; depth++ {
		stop, err := walkIndirect(dev, sb, in.Block[indirectSlots[depth-1]], depth, visit)
		if err != defs.EOK {
			return err
		}
		if stop {
			return defs.EOK
		}
	}
	return defs.EOK
}

// blockForOffset maps a file's logical block number to its physical
// block id, across the direct/single/double/triple ranges. One
// pointersPerBlock stride is used uniformly at every level, and a
// fresh buffer (ptrs1/ptrs2/ptrs3) is read per level so no level's
// buffer is ever reused for another's data.
func blockForOffset(dev BlockDevice_i, sb *Superblock, in *Inode, logicalBlock int64) (uint32, defs.Err_t) {
	if logicalBlock < directBlocks {
		return in.Block[logicalBlock], defs.EOK
	}
	logicalBlock -= directBlocks
	p := int64(pointersPerBlock(sb))

	if logicalBlock < p {
		if in.Block[singleIndirect] == 0 {
			return 0, defs.EOK
		}
		ptrs1, err := readBlock(dev, sb, in.Block[singleIndirect])
		if err != defs.EOK {
			return 0, err
		}
		return decodeBlockPointers(sb, ptrs1)[logicalBlock], defs.EOK
	}
	logicalBlock -= p

	if logicalBlock < p*p {
		if in.Block[doubleIndirect] == 0 {
			return 0, defs.EOK
		}
		ptrs2, err := readBlock(dev, sb, in.Block[doubleIndirect])
		if err != defs.EOK {
			return 0, err
		}
		outer := decodeBlockPointers(sb, ptrs2)
		idx1 := logicalBlock / p
		rem := logicalBlock % p
		if outer[idx1] == 0 {
			return 0, defs.EOK
		}
		ptrs1, err := readBlock(dev, sb, outer[idx1])
		if err != defs.EOK {
			return 0, err
		}
		return decodeBlockPointers(sb, ptrs1)[rem], defs.EOK
	}
	logicalBlock -= p * p

	if logicalBlock < p*p*p {
		if in.Block[tripleIndirect] == 0 {
			return 0, defs.EOK
		}
		ptrs3, err := readBlock(dev, sb, in.Block[tripleIndirect])
		if err != defs.EOK {
			return 0, err
		}
		outer3 := decodeBlockPointers(sb, ptrs3)
		idx2 := logicalBlock / (p * p)
		rem2 := logicalBlock % (p * p)
		if outer3[idx2] == 0 {
			return 0, defs.EOK
		}
		ptrs2, err := readBlock(dev, sb, outer3[idx2])
		if err != defs.EOK {
			return 0, err
		}
		outer2 := decodeBlockPointers(sb, ptrs2)
		idx1 := rem2 / p
		rem1 := rem2 % p
		if outer2[idx1] == 0 {
			return 0, defs.EOK
		}
		ptrs1, err := readBlock(dev, sb, outer2[idx1])
		if err != defs.EOK {
			return 0, err
		}
		return decodeBlockPointers(sb, ptrs1)[rem1], defs.EOK
	}

	return 0, defs.ENOTFOUND
}

package gfile

import "owos-riscv/internal/defs"

// writeBackReserve is the tail of every BlockRing set aside for
// write-back buffering. Nothing writes today, so these slots sit
// unused; a future write path gets somewhere to put dirty blocks
// without resizing the ring.
const writeBackReserve = 3

// cachedBlock is one decoded disk block held in a BlockRing.
type cachedBlock struct {
	num  int64
	data []byte
	used bool
}

// BlockRing is the per-file decoded-block cache: defs.BufferCount
// slots, the last writeBackReserve of which are reserved. Each slot
// holds a whole decoded block keyed by its logical block number; a
// generic file caches parsed blocks, not a raw byte stream.
type BlockRing struct {
	slots [defs.BufferCount]cachedBlock
	next  int
}

// NewBlockRing returns an empty ring.
func NewBlockRing() *BlockRing {
	return &BlockRing{}
}

func (r *BlockRing) usable() int {
	return len(r.slots) - writeBackReserve
}

// Lookup returns the cached decoded block numbered num, if present.
func (r *BlockRing) Lookup(num int64) ([]byte, bool) {
	for i := 0; i < r.usable(); i++ {
		if r.slots[i].used && r.slots[i].num == num {
			return r.slots[i].data, true
		}
	}
	return nil, false
}

// Insert records data as the decoded contents of block num, evicting the
// oldest usable slot in ring order.
func (r *BlockRing) Insert(num int64, data []byte) {
	i := r.next % r.usable()
	r.slots[i] = cachedBlock{num: num, data: data, used: true}
	r.next++
}

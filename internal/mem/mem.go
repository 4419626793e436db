// Package mem holds the physical-address type, PTE flag constants, and
// the Page_i allocator interface the rest of the kernel shares. The
// physical page allocator itself is an external collaborator; this
// package only names the interface, plus a page-granular in-memory
// arena that stands in for real physical memory whenever the kernel
// runs hosted.
package mem

import "owos-riscv/internal/defs"

// Pa_t is a physical address.
type Pa_t uint64

// PgSize is the page size in bytes (defs.PgSize, re-exported for callers
// that only import mem).
const PgSize = defs.PgSize

// PTE flag bits, the RISC-V Sv39 encoding: bit 0 valid, bits 1-3
// R/W/X, bit 4 user, bit 5 global, bit 6 accessed, bit 7 dirty, bit 8
// software-owned (must be released by the MMU on unmap/destroy).
const (
	PteValid    Pa_t = 1 << 0
	PteRead     Pa_t = 1 << 1
	PteWrite    Pa_t = 1 << 2
	PteExec     Pa_t = 1 << 3
	PteUser     Pa_t = 1 << 4
	PteGlobal   Pa_t = 1 << 5
	PteAccessed Pa_t = 1 << 6
	PteDirty    Pa_t = 1 << 7
	// PteOwned is software bit 8: set by AllocPageAndMap, consulted by
	// Unmap/Destroy to decide whether to release the backing page.
	PteOwned Pa_t = 1 << 8

	// pteFlagsMask covers every bit callers of Map may legally pass.
	pteFlagsMask = PteRead | PteWrite | PteExec | PteUser | PteGlobal
)

// pagePPNShift is where the physical page number begins in a PTE;
// the PPN occupies bits 10-53.
const pagePPNShift = 10

// Page_i abstracts the external physical-page allocator.
// Implementations hand back page-aligned physical addresses; freeing
// an already-freed address is undefined.
type Page_i interface {
	AllocPages(n int) (Pa_t, bool)
	FreePages(pa Pa_t)
}

// Reader turns a physical address into a mutable byte slice over the
// backing memory. Any Page_i-backed physical memory must support this: the MMU
// walker, the ELF loader, and userspace-pointer translation in
// internal/syscall all read/write physical pages exclusively through
// this method so that a single host-process byte arena can stand in for
// real hardware memory during tests.
type Reader interface {
	Bytes(pa Pa_t, n int) []byte
}

// Package mmu implements the three-level Sv39 page table walker:
// create, walk, map, alloc-and-map, identity-map, unmap, destroy.
// Only 4 KiB leaf pages are used; there is no COW and no superpage
// support.
package mmu

import (
	"owos-riscv/internal/defs"
	"owos-riscv/internal/klog"
	"owos-riscv/internal/mem"
)

// Sv39 virtual-address fields: [38:30]=root, [29:21]=mid,
// [20:12]=leaf, [11:0]=offset.
const (
	rootShift = 30
	midShift  = 21
	leafShift = 12
	idxBits   = 0x1ff
	pgOffMask = 0xfff
)

// flagsMask covers every bit a caller of Map/AllocPageAndMap may pass;
// valid/owned/accessed/dirty are set internally.
const flagsMask = mem.PteRead | mem.PteWrite | mem.PteExec | mem.PteUser | mem.PteGlobal

// MMU binds the page-table operations to a physical-page allocator and
// a physical-memory reader (both cmd/kernel and the tests back it with
// mem.Arena).
type MMU struct {
	Pages mem.Page_i
	Phys  mem.Reader
}

// New constructs an MMU bound to the given physical-page allocator and
// physical-memory view.
func New(pages mem.Page_i, phys mem.Reader) *MMU {
	return &MMU{Pages: pages, Phys: phys}
}

func pageAlign(va uint64) uint64 { return va &^ pgOffMask }

func vaIndices(va uint64) (root, mid, leaf int) {
	root = int((va >> rootShift) & idxBits)
	mid = int((va >> midShift) & idxBits)
	leaf = int((va >> leafShift) & idxBits)
	return
}

func pteToPA(pte mem.Pa_t) mem.Pa_t { return (pte >> 10) << 12 }
func paToPTE(pa mem.Pa_t) mem.Pa_t  { return (pa >> 12) << 10 }

func (m *MMU) readPTE(table mem.Pa_t, idx int) mem.Pa_t {
	b := m.Phys.Bytes(table, mem.PgSize)
	off := idx * 8
	var v uint64
	for i := 0; i < 8; i++ {
		v |= uint64(b[off+i]) << (8 * i)
	}
	return mem.Pa_t(v)
}

func (m *MMU) writePTE(table mem.Pa_t, idx int, val mem.Pa_t) {
	b := m.Phys.Bytes(table, mem.PgSize)
	off := idx * 8
	v := uint64(val)
	for i := 0; i < 8; i++ {
		b[off+i] = byte(v >> (8 * i))
	}
}

// PTERef names one leaf slot in a page-table tree so callers can Get/Set
// it without the package exposing raw physical memory.
type PTERef struct {
	mmu   *MMU
	table mem.Pa_t
	idx   int
}

// Get returns the current value of the referenced PTE.
func (r PTERef) Get() mem.Pa_t { return r.mmu.readPTE(r.table, r.idx) }

// Set overwrites the referenced PTE.
func (r PTERef) Set(v mem.Pa_t) { r.mmu.writePTE(r.table, r.idx, v) }

// CreateRoot allocates a fresh, zeroed root page table.
func (m *MMU) CreateRoot() (mem.Pa_t, bool) {
	return m.Pages.AllocPages(1)
}

// walkLevel descends one level of the tree: table[idx] must point at the
// next-level table, creating it on demand when create is true.
func (m *MMU) walkLevel(table mem.Pa_t, idx int, create bool) (next mem.Pa_t, ok bool) {
	pte := m.readPTE(table, idx)
	if pte&mem.PteValid == 0 {
		if !create {
			return 0, false
		}
		newTable, ok := m.Pages.AllocPages(1)
		if !ok {
			return 0, false
		}
		m.writePTE(table, idx, paToPTE(newTable)|mem.PteValid)
		return newTable, true
	}
	return pteToPA(pte), true
}

// Walk descends the three levels of root and returns a reference to the
// leaf PTE for va. When create is true, missing interior tables are
// allocated along the way (but the leaf itself is never auto-populated —
// only Map/AllocPageAndMap install a leaf mapping). Returns ok=false when
// an interior table is missing and create is false (EMMUMISSINGPAGE).
func (m *MMU) Walk(root mem.Pa_t, va uint64, create bool) (PTERef, bool) {
	ri, mi, li := vaIndices(va)
	mid, ok := m.walkLevel(root, ri, create)
	if !ok {
		return PTERef{}, false
	}
	leaf, ok := m.walkLevel(mid, mi, create)
	if !ok {
		return PTERef{}, false
	}
	return PTERef{m, leaf, li}, true
}

// Translate walks root for va and, if mapped, returns the physical
// address with va's page offset reapplied.
func (m *MMU) Translate(root mem.Pa_t, va uint64) (mem.Pa_t, bool) {
	ref, ok := m.Walk(root, va, false)
	if !ok {
		return 0, false
	}
	pte := ref.Get()
	if pte&mem.PteValid == 0 {
		return 0, false
	}
	return pteToPA(pte) | mem.Pa_t(va&pgOffMask), true
}

// Map installs pa at va with flags. If the target leaf is already
// occupied the existing mapping is left untouched and a warning is
// logged; Map never silently remaps.
func (m *MMU) Map(root mem.Pa_t, va uint64, pa mem.Pa_t, flags mem.Pa_t) defs.Err_t {
	va = pageAlign(va)
	pa &^= pgOffMask

	ref, ok := m.Walk(root, va, true)
	if !ok {
		return defs.EMMUMISSINGPAGE
	}
	if ref.Get()&mem.PteValid != 0 {
		klog.Warnf("mmu: %#x already mapped to %#x; not remapping to %#x",
			va, pteToPA(ref.Get()), pa)
		return defs.EMMUREMAPCONFLICT
	}
	ref.Set(paToPTE(pa) | (flags & flagsMask) | mem.PteValid)
	return defs.EOK
}

// AllocPageAndMap behaves like Map but also acquires a fresh physical
// page and records software bit 8 so Unmap/Destroy know to release it.
func (m *MMU) AllocPageAndMap(root mem.Pa_t, va uint64, flags mem.Pa_t) (mem.Pa_t, defs.Err_t) {
	va = pageAlign(va)
	ref, ok := m.Walk(root, va, true)
	if !ok {
		return 0, defs.EMMUMISSINGPAGE
	}
	if ref.Get()&mem.PteValid != 0 {
		existing := pteToPA(ref.Get())
		klog.Warnf("mmu: %#x already mapped to %#x; not remapping to a fresh page", va, existing)
		return existing, defs.EMMUREMAPCONFLICT
	}
	pa, ok := m.Pages.AllocPages(1)
	if !ok {
		return 0, defs.EOUTOFSPACE
	}
	ref.Set(paToPTE(pa) | (flags & flagsMask) | mem.PteValid | mem.PteOwned)
	return pa, defs.EOK
}

// IdentityMapRange maps every page in [start, end) onto itself, rounding
// start down and end up to page boundaries.
func (m *MMU) IdentityMapRange(root mem.Pa_t, start, end uint64, flags mem.Pa_t) defs.Err_t {
	s := pageAlign(start)
	e := (end + pgOffMask) &^ pgOffMask
	for p := s; p < e; p += mem.PgSize {
		if err := m.Map(root, p, mem.Pa_t(p), flags); err != defs.EOK && err != defs.EMMUREMAPCONFLICT {
			return err
		}
	}
	return defs.EOK
}

// Unmap removes the mapping for va, releasing the backing physical page
// iff it was obtained via AllocPageAndMap (software bit 8 set).
func (m *MMU) Unmap(root mem.Pa_t, va uint64) {
	ref, ok := m.Walk(root, va, false)
	if !ok {
		return
	}
	pte := ref.Get()
	if pte&mem.PteValid == 0 {
		return
	}
	if pte&mem.PteOwned != 0 {
		m.Pages.FreePages(pteToPA(pte))
	}
	ref.Set(0)
}

// CopyGlobals installs every valid root-level PTE from src into dst at
// the same index, skipping indices dst already occupies. This is how a
// new process inherits the kernel half of the address space: the caller
// passes the kernel root explicitly rather than reading it out of satp.
// An occupied dst index (a user segment the loader just mapped at a low
// root index) is left alone rather than clobbered; silently overwriting
// a live PTE is the same conflict Map refuses.
func (m *MMU) CopyGlobals(src, dst mem.Pa_t) {
	for i := 0; i < 512; i++ {
		srcPTE := m.readPTE(src, i)
		if srcPTE&mem.PteValid == 0 {
			continue
		}
		if m.readPTE(dst, i)&mem.PteValid != 0 {
			continue
		}
		m.writePTE(dst, i, srcPTE)
	}
}

// Destroy walks the whole tree rooted at root: for every leaf with
// software bit 8 set it releases the mapped page, then releases the
// interior tables, then the root itself.
func (m *MMU) Destroy(root mem.Pa_t) {
	for ri := 0; ri < 512; ri++ {
		midPTE := m.readPTE(root, ri)
		if midPTE&mem.PteValid == 0 {
			continue
		}
		mid := pteToPA(midPTE)
		for mi := 0; mi < 512; mi++ {
			leafTablePTE := m.readPTE(mid, mi)
			if leafTablePTE&mem.PteValid == 0 {
				continue
			}
			leaf := pteToPA(leafTablePTE)
			for li := 0; li < 512; li++ {
				pte := m.readPTE(leaf, li)
				if pte&mem.PteValid != 0 && pte&mem.PteOwned != 0 {
					m.Pages.FreePages(pteToPA(pte))
				}
			}
			m.Pages.FreePages(leaf)
		}
		m.Pages.FreePages(mid)
	}
	m.Pages.FreePages(root)
}

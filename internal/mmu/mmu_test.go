package mmu

import (
	"testing"

	"owos-riscv/internal/defs"
	"owos-riscv/internal/mem"
)

func newTestMMU(t *testing.T) (*MMU, mem.Pa_t) {
	t.Helper()
	arena := mem.NewArena(0, 64)
	m := New(arena, arena)
	root, ok := m.CreateRoot()
	if !ok {
		t.Fatal("CreateRoot: out of pages")
	}
	return m, root
}

func TestMapThenTranslate(t *testing.T) {
	m, root := newTestMMU(t)

	va := uint64(0x1000)
	pa := mem.Pa_t(0x8000)
	if err := m.Map(root, va, pa, mem.PteRead|mem.PteWrite); err != defs.EOK {
		t.Fatalf("Map: %v", err)
	}

	got, ok := m.Translate(root, va+0x123)
	if !ok {
		t.Fatal("Translate: not mapped")
	}
	if want := pa + 0x123; got != want {
		t.Fatalf("Translate: got %#x want %#x", got, want)
	}
}

func TestTranslateUnmapped(t *testing.T) {
	m, root := newTestMMU(t)
	if _, ok := m.Translate(root, 0x40000000); ok {
		t.Fatal("Translate: expected miss on unmapped va")
	}
}

func TestRemapConflictIsWarnAndIgnore(t *testing.T) {
	m, root := newTestMMU(t)
	va := uint64(0x2000)

	first := mem.Pa_t(0x3000)
	if err := m.Map(root, va, first, mem.PteRead); err != defs.EOK {
		t.Fatalf("first Map: %v", err)
	}

	second := mem.Pa_t(0x4000)
	err := m.Map(root, va, second, mem.PteRead)
	if err != defs.EMMUREMAPCONFLICT {
		t.Fatalf("second Map: got %v want EMMUREMAPCONFLICT", err)
	}

	got, ok := m.Translate(root, va)
	if !ok || got != first {
		t.Fatalf("mapping was overwritten: got %#x ok=%v, want %#x", got, ok, first)
	}
}

func TestAllocPageAndMapOwnsThePage(t *testing.T) {
	m, root := newTestMMU(t)
	arena := m.Pages.(*mem.Arena)

	// Pre-build the interior tables so the counts below track only the
	// leaf data page, not the walk's own allocations.
	va := uint64(0x5000)
	if _, ok := m.Walk(root, va, true); !ok {
		t.Fatal("Walk(create=true)")
	}
	before := arena.Npages()

	pa, err := m.AllocPageAndMap(root, va, mem.PteRead|mem.PteWrite)
	if err != defs.EOK {
		t.Fatalf("AllocPageAndMap: %v", err)
	}
	if arena.Npages() != before-1 {
		t.Fatalf("expected one page consumed, free count %d -> %d", before, arena.Npages())
	}

	m.Unmap(root, va)
	if arena.Npages() != before {
		t.Fatalf("Unmap did not release owned page: free count %d, want %d", arena.Npages(), before)
	}

	if _, ok := m.Translate(root, va); ok {
		t.Fatal("Translate: mapping survived Unmap")
	}
	_ = pa
}

func TestUnmapOfUnownedMappingKeepsPage(t *testing.T) {
	m, root := newTestMMU(t)
	arena := m.Pages.(*mem.Arena)

	va := uint64(0x6000)
	if _, ok := m.Walk(root, va, true); !ok {
		t.Fatal("Walk(create=true)")
	}
	before := arena.Npages()

	pa := mem.Pa_t(0x7000)
	if err := m.Map(root, va, pa, mem.PteRead); err != defs.EOK {
		t.Fatalf("Map: %v", err)
	}
	// pa was never allocated from the arena, so Npages() must not move.
	if arena.Npages() != before {
		t.Fatalf("plain Map touched the free list: %d -> %d", before, arena.Npages())
	}

	m.Unmap(root, va)
	if arena.Npages() != before {
		t.Fatalf("Unmap of an unowned mapping changed free count: %d -> %d", before, arena.Npages())
	}
}

func TestIdentityMapRange(t *testing.T) {
	m, root := newTestMMU(t)
	if err := m.IdentityMapRange(root, 0x10000, 0x13000, mem.PteRead|mem.PteWrite); err != defs.EOK {
		t.Fatalf("IdentityMapRange: %v", err)
	}
	for _, va := range []uint64{0x10000, 0x11000, 0x12fff} {
		got, ok := m.Translate(root, va)
		if !ok {
			t.Fatalf("va %#x not mapped", va)
		}
		if want := mem.Pa_t(va); got != want {
			t.Fatalf("va %#x: got pa %#x want %#x", va, got, want)
		}
	}
}

func TestDestroyReleasesOwnedPagesAndTables(t *testing.T) {
	m, root := newTestMMU(t)
	arena := m.Pages.(*mem.Arena)
	total := arena.Npages() + 1 // +1 for root, already allocated

	// Spread mappings across distinct root/mid indices so interior tables
	// actually get created at more than one level.
	vas := []uint64{0x0, 0x40000000, 0x80000000, 0x1000000000}
	for _, va := range vas {
		if _, err := m.AllocPageAndMap(root, va, mem.PteRead|mem.PteWrite); err != defs.EOK {
			t.Fatalf("AllocPageAndMap(%#x): %v", va, err)
		}
	}

	m.Destroy(root)
	if arena.Npages() != total {
		t.Fatalf("Destroy leaked pages: free count %d, want %d", arena.Npages(), total)
	}
}

func TestWalkWithoutCreateDoesNotAllocate(t *testing.T) {
	m, root := newTestMMU(t)
	arena := m.Pages.(*mem.Arena)
	before := arena.Npages()

	if _, ok := m.Walk(root, 0x99000000, false); ok {
		t.Fatal("Walk(create=false) on empty tree unexpectedly succeeded")
	}
	if arena.Npages() != before {
		t.Fatalf("Walk(create=false) allocated pages: %d -> %d", before, arena.Npages())
	}
}

package proc

import (
	"bytes"
	"debug/elf"
	"io"

	"owos-riscv/internal/defs"
	"owos-riscv/internal/mem"
	"owos-riscv/internal/mmu"
	"owos-riscv/internal/trap"
)

// stackPages is how many pages to map for a freshly loaded process's
// stack.
const stackPages = 1

// segFlags maps an ELF program-header's R/W/X bits onto PTE flags,
// user mode always set since every PT_LOAD segment this kernel maps
// belongs to a user process. A segment is never granted more than its
// header asks for.
func segFlags(f elf.ProgFlag) mem.Pa_t {
	var out mem.Pa_t = mem.PteUser
	if f&elf.PF_R != 0 {
		out |= mem.PteRead
	}
	if f&elf.PF_W != 0 {
		out |= mem.PteWrite
	}
	if f&elf.PF_X != 0 {
		out |= mem.PteExec
	}
	return out
}

// isLoadableRISCV checks the file header the way cmd/chentry's chkELF
// does: 64-bit, little-endian, a plain executable, for this kernel's
// machine.
func isLoadableRISCV(ef *elf.File) bool {
	return ef.Class == elf.ELFCLASS64 &&
		ef.Data == elf.ELFDATA2LSB &&
		ef.Type == elf.ET_EXEC &&
		ef.Machine == elf.EM_RISCV
}

// LoadELF spawns a new process parented at parentPID, maps every
// PT_LOAD segment of the given ELF image into a fresh address space,
// appends a user stack right after the last mapped byte, and points
// pc/sp/fp at the entry. The process's FD table stays a kernel-side
// array and is never mapped into the new address space; the syscall
// layer reaches it directly.
func LoadELF(table *Table, m *mmu.MMU, parentPID int, elfData []byte) (*Process_t, defs.Err_t) {
	p, err := table.Spawn(parentPID)
	if err != defs.EOK {
		return nil, err
	}

	root, ok := m.CreateRoot()
	if !ok {
		table.Kill(p.PID)
		return nil, defs.EOUTOFSPACE
	}
	p.MMURoot = root

	// fail releases everything a partially loaded process owns so an
	// error below can't leak its page-table tree.
	fail := func(e defs.Err_t) (*Process_t, defs.Err_t) {
		m.Destroy(root)
		p.MMURoot = 0
		table.Kill(p.PID)
		return nil, e
	}

	ef, ferr := elf.NewFile(bytes.NewReader(elfData))
	if ferr != nil || !isLoadableRISCV(ef) {
		return fail(defs.EWRONGTYPE)
	}

	var lastPointer uint64
	for _, prog := range ef.Progs {
		if prog.Type != elf.PT_LOAD {
			continue
		}

		data := make([]byte, prog.Filesz)
		if _, rerr := io.ReadFull(prog.Open(), data); rerr != nil {
			return fail(defs.EWRONGTYPE)
		}

		flags := segFlags(prog.Flags)
		for off := uint64(0); off < prog.Memsz; off += mem.PgSize {
			va := prog.Vaddr + off
			pa, perr := m.AllocPageAndMap(root, va, flags)
			if perr != defs.EOK {
				return fail(perr)
			}
			if off < prog.Filesz {
				n := prog.Filesz - off
				if n > mem.PgSize {
					n = mem.PgSize
				}
				dst := m.Phys.Bytes(pa, int(n))
				copy(dst, data[off:off+n])
			}
		}

		segEnd := prog.Vaddr + prog.Memsz
		segEnd = (segEnd + mem.PgSize - 1) &^ (mem.PgSize - 1)
		if segEnd > lastPointer {
			lastPointer = segEnd
		}
	}

	for i := 0; i < stackPages; i++ {
		if _, perr := m.AllocPageAndMap(root, lastPointer, mem.PteRead|mem.PteWrite|mem.PteUser); perr != defs.EOK {
			return fail(perr)
		}
		lastPointer += mem.PgSize
	}

	p.PC = ef.Entry
	p.Xs[trap.RegSP] = lastPointer
	p.Xs[trap.RegFP] = lastPointer
	return p, defs.EOK
}

// InitKernelMMU copies the kernel's half of the address space (the
// portion above the user/kernel split, mapped once at bring-up) into a
// freshly created process so every process can take traps and make
// syscalls without re-walking a separate kernel page table. The kernel
// root is passed explicitly rather than read out of a control
// register.
func InitKernelMMU(m *mmu.MMU, kernelRoot mem.Pa_t, p *Process_t) {
	m.CopyGlobals(kernelRoot, p.MMURoot)
}

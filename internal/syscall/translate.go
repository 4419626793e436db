package syscall

import (
	"owos-riscv/internal/defs"
	"owos-riscv/internal/mem"
	"owos-riscv/internal/mmu"
)

// maxCString bounds how far readCString will walk before giving up,
// so a missing NUL terminator in user memory can't loop forever.
const maxCString = 4096

// userByte translates one user virtual address through root and
// returns a one-byte view of the backing physical page. The syscall
// layer never dereferences a raw user pointer; every access goes
// through the caller's page table first.
func userByte(m *mmu.MMU, root mem.Pa_t, va uint64) ([]byte, defs.Err_t) {
	pa, ok := m.Translate(root, va)
	if !ok {
		return nil, defs.EMMUMISSINGPAGE
	}
	return m.Phys.Bytes(pa, 1), defs.EOK
}

// readUserByte reads the byte at a user virtual address.
func readUserByte(m *mmu.MMU, root mem.Pa_t, va uint64) (byte, defs.Err_t) {
	b, err := userByte(m, root, va)
	if err != defs.EOK {
		return 0, err
	}
	return b[0], defs.EOK
}

// writeUserByte writes one byte to a user virtual address.
func writeUserByte(m *mmu.MMU, root mem.Pa_t, va uint64, v byte) defs.Err_t {
	b, err := userByte(m, root, va)
	if err != defs.EOK {
		return err
	}
	b[0] = v
	return defs.EOK
}

// readCString reads a NUL-terminated string starting at va out of the
// caller's address space, used for open/spawn's path arguments.
func readCString(m *mmu.MMU, root mem.Pa_t, va uint64) (string, defs.Err_t) {
	buf := make([]byte, 0, 64)
	for i := 0; i < maxCString; i++ {
		b, err := readUserByte(m, root, va+uint64(i))
		if err != defs.EOK {
			return "", err
		}
		if b == 0 {
			return string(buf), defs.EOK
		}
		buf = append(buf, b)
	}
	return "", defs.EUNSUPPORTED
}

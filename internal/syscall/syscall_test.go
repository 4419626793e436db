package syscall

import (
	"bytes"
	"encoding/binary"
	"testing"

	"owos-riscv/internal/console"
	"owos-riscv/internal/defs"
	"owos-riscv/internal/gfile"
	"owos-riscv/internal/mem"
	"owos-riscv/internal/mmu"
	"owos-riscv/internal/proc"
)

// buildRISCVExecutable hand-assembles a minimal ELF64 LE ET_EXEC
// EM_RISCV image with one PT_LOAD segment, mirroring proc's own test
// helper (duplicated here since it's unexported across packages and
// this module never invokes a real toolchain to produce one).
func buildRISCVExecutable(t *testing.T, vaddr, entry uint64, segment []byte) []byte {
	t.Helper()
	const ehsize, phsize = 64, 56

	var buf bytes.Buffer
	ident := [16]byte{0x7f, 'E', 'L', 'F', 2, 1, 1, 0}
	buf.Write(ident[:])

	type elf64Header struct {
		Type, Machine       uint16
		Version             uint32
		Entry, Phoff, Shoff uint64
		Flags               uint32
		Ehsize, Phentsize   uint16
		Phnum               uint16
		Shentsize, Shnum    uint16
		Shstrndx            uint16
	}
	h := elf64Header{Type: 2, Machine: 243, Version: 1, Entry: entry, Phoff: ehsize, Ehsize: ehsize, Phentsize: phsize, Phnum: 1}
	if err := binary.Write(&buf, binary.LittleEndian, &h); err != nil {
		t.Fatalf("writing ehdr: %v", err)
	}

	type elf64Phdr struct {
		Type, Flags          uint32
		Offset, Vaddr, Paddr uint64
		Filesz, Memsz, Align uint64
	}
	ph := elf64Phdr{Type: 1, Flags: 7, Offset: ehsize + phsize, Vaddr: vaddr, Paddr: vaddr, Filesz: uint64(len(segment)), Memsz: uint64(len(segment)), Align: mem.PgSize}
	if err := binary.Write(&buf, binary.LittleEndian, &ph); err != nil {
		t.Fatalf("writing phdr: %v", err)
	}
	buf.Write(segment)
	return buf.Bytes()
}

// testEnv wires a minimal Syscalls instance around a freshly loaded
// process, plus helpers to stage bytes in that process's own user
// address space (every syscall argument that's a pointer must be
// translated through the caller's page table, never read directly).
type testEnv struct {
	t      *testing.T
	arena  *mem.Arena
	m      *mmu.MMU
	table  *proc.Table
	sched  *proc.Scheduler
	fs     *fakeFS
	s      *Syscalls
	p      *proc.Process_t
	nextVA uint64
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	arena := mem.NewArena(0, 256)
	m := mmu.New(arena, arena)
	table := proc.NewTable()
	sched := proc.NewScheduler()
	fs := newFakeFS()

	kernelRoot, ok := m.CreateRoot()
	if !ok {
		t.Fatal("CreateRoot (kernel)")
	}

	image := buildRISCVExecutable(t, 0x10000, 0x10000, make([]byte, mem.PgSize))
	p, err := proc.LoadELF(table, m, 0, image)
	if err != defs.EOK {
		t.Fatalf("LoadELF: %v", err)
	}

	return &testEnv{
		t: t, arena: arena, m: m, table: table, sched: sched, fs: fs,
		s: &Syscalls{Procs: table, Sched: sched, MMU: m, KernelRoot: kernelRoot, Root: fs},
		p: p, nextVA: 0x80000,
	}
}

// stage maps a fresh page in the process's address space and copies
// data into it, returning the base VA. Callers passing C strings
// include the terminating NUL themselves.
func (e *testEnv) stage(data []byte) uint64 {
	e.t.Helper()
	va := e.nextVA
	e.nextVA += mem.PgSize
	pa, err := e.m.AllocPageAndMap(e.p.MMURoot, va, mem.PteRead|mem.PteWrite|mem.PteUser)
	if err != defs.EOK {
		e.t.Fatalf("AllocPageAndMap: %v", err)
	}
	dst := e.arena.Bytes(pa, mem.PgSize)
	copy(dst, data)
	return va
}

func (e *testEnv) readStaged(va uint64, n int) []byte {
	e.t.Helper()
	out := make([]byte, n)
	for i := 0; i < n; i++ {
		pa, ok := e.m.Translate(e.p.MMURoot, va+uint64(i))
		if !ok {
			e.t.Fatalf("unmapped byte at %#x", va+uint64(i))
		}
		out[i] = e.arena.Bytes(pa, 1)[0]
	}
	return out
}

func TestScenarioAOpenReadClose(t *testing.T) {
	env := newTestEnv(t)
	env.fs.putFile("/hello.txt", []byte("Hello, world!\n"))

	pathVA := env.stage([]byte("/hello.txt\x00"))
	fd := env.s.sysOpen(env.p.PID, pathVA)
	if fd != 3 {
		t.Fatalf("open = %d, want 3", fd)
	}

	bufVA := env.stage(make([]byte, 64))
	n := env.s.sysRead(env.p.PID, fd, bufVA, 64)
	if n != 14 {
		t.Fatalf("read = %d, want 14", n)
	}
	if got := string(env.readStaged(bufVA, 14)); got != "Hello, world!\n" {
		t.Fatalf("read content = %q", got)
	}

	n = env.s.sysRead(env.p.PID, fd, bufVA, 1)
	if n != 0 {
		t.Fatalf("read at EOF = %d, want 0", n)
	}

	if r := env.s.sysClose(env.p.PID, fd); r != 0 {
		t.Fatalf("close = %d, want 0", r)
	}
}

func TestOpenMissingFileReturnsMinusOne(t *testing.T) {
	env := newTestEnv(t)
	pathVA := env.stage([]byte("/nope.txt\x00"))
	if got := env.s.sysOpen(env.p.PID, pathVA); got != ^uint64(0) {
		t.Fatalf("open missing = %#x, want -1", got)
	}
}

func TestOpenDirectoryReturnsMinusOne(t *testing.T) {
	env := newTestEnv(t)
	env.fs.putFile("/dir/file.txt", []byte("x"))
	pathVA := env.stage([]byte("/dir\x00"))
	if got := env.s.sysOpen(env.p.PID, pathVA); got != ^uint64(0) {
		t.Fatalf("open directory = %#x, want -1", got)
	}
}

func TestGetpidGetppidExit(t *testing.T) {
	env := newTestEnv(t)

	env.p.Xs[17] = SysGetpid // A7
	if got := env.s.Dispatch(&env.p.Frame_t); got != uint64(env.p.PID) {
		t.Fatalf("getpid = %d, want %d", got, env.p.PID)
	}

	env.p.Xs[17] = SysGetppid
	if got := env.s.Dispatch(&env.p.Frame_t); got != uint64(env.p.ParentPID) {
		t.Fatalf("getppid = %d, want %d", got, env.p.ParentPID)
	}

	env.p.Xs[17] = SysExit
	if got := env.s.Dispatch(&env.p.Frame_t); got != 0 {
		t.Fatalf("exit = %d, want 0", got)
	}
	if _, err := env.table.Fetch(env.p.PID); err != defs.ENOTFOUND {
		t.Fatalf("process still alive after exit: %v", err)
	}
}

func TestSpawnLoadsChildAndInheritsStdio(t *testing.T) {
	env := newTestEnv(t)
	childImage := buildRISCVExecutable(t, 0x20000, 0x20000, make([]byte, mem.PgSize))
	env.fs.putFile("/bin/child", childImage)

	// give the parent an open fd at slot 1 to inherit as the child's
	// stdout.
	pathVA := env.stage([]byte("/bin/child\x00"))
	env.fs.putFile("/hello.txt", []byte("hi"))
	openVA := env.stage([]byte("/hello.txt\x00"))
	stdoutFD := env.s.sysOpen(env.p.PID, openVA)

	childPID := env.s.sysSpawn(env.p.PID, pathVA, 0, stdoutFD, stdoutFD)
	if childPID == ^uint64(0) || childPID == uint64(env.p.PID) {
		t.Fatalf("spawn returned %#x", childPID)
	}

	child, err := env.table.Fetch(int(childPID))
	if err != defs.EOK {
		t.Fatalf("Fetch(child): %v", err)
	}
	if child.PC != 0x20000 {
		t.Fatalf("child PC = %#x, want 0x20000", child.PC)
	}
	if child.ParentPID != env.p.PID {
		t.Fatalf("child ParentPID = %d, want %d", child.ParentPID, env.p.PID)
	}
	if child.FDs[1] == nil || child.FDs[1].File != env.p.FDs[stdoutFD].File {
		t.Fatal("child did not inherit parent's stdout file")
	}
}

// TestSpawnedChildWritesToInheritedConsole walks the spawn-echo
// scenario end to end: the parent's stdout is a console sink, spawn
// hands it to the child as fd 1, and a write syscall issued from the
// child's frame lands the bytes on the device — while getpid in the
// parent still reports the parent.
func TestSpawnedChildWritesToInheritedConsole(t *testing.T) {
	env := newTestEnv(t)
	sink := console.NewBufferDevice(nil)
	env.p.FDs[1] = &gfile.FD{File: console.New(sink), Perms: gfile.FDWrite}

	childImage := buildRISCVExecutable(t, 0x20000, 0x20000, make([]byte, mem.PgSize))
	env.fs.putFile("/bin/echo", childImage)
	pathVA := env.stage([]byte("/bin/echo\x00"))

	childPID := env.s.sysSpawn(env.p.PID, pathVA, 0, 1, 2)
	if childPID == ^uint64(0) || childPID == uint64(env.p.PID) {
		t.Fatalf("spawn returned %#x", childPID)
	}
	child, err := env.table.Fetch(int(childPID))
	if err != defs.EOK {
		t.Fatalf("Fetch(child): %v", err)
	}
	if pid := env.sched.NextInQueue(); pid != int(childPID) {
		t.Fatalf("scheduler selected pid %d, want child %d", pid, childPID)
	}

	// Stage "hi\n" in the child's own address space and issue its
	// write(1, buf, 3) ecall.
	msgVA := uint64(0x90000)
	pa, perr := env.m.AllocPageAndMap(child.MMURoot, msgVA, mem.PteRead|mem.PteWrite|mem.PteUser)
	if perr != defs.EOK {
		t.Fatalf("AllocPageAndMap: %v", perr)
	}
	copy(env.arena.Bytes(pa, 3), "hi\n")

	child.Xs[17] = SysWrite // A7
	child.Xs[10] = 1        // A0: fd
	child.Xs[11] = msgVA    // A1: buf
	child.Xs[12] = 3        // A2: count
	if n := env.s.Dispatch(&child.Frame_t); n != 3 {
		t.Fatalf("child write = %d, want 3", n)
	}
	if got := string(sink.Written()); got != "hi\n" {
		t.Fatalf("console received %q, want %q", got, "hi\n")
	}

	env.p.Xs[17] = SysGetpid
	if got := env.s.Dispatch(&env.p.Frame_t); got != uint64(env.p.PID) {
		t.Fatalf("parent getpid = %d, want %d", got, env.p.PID)
	}
}

func TestExitMergesChildAccountingIntoParent(t *testing.T) {
	env := newTestEnv(t)
	childImage := buildRISCVExecutable(t, 0x20000, 0x20000, make([]byte, mem.PgSize))
	env.fs.putFile("/bin/child", childImage)
	pathVA := env.stage([]byte("/bin/child\x00"))

	childPID := env.s.sysSpawn(env.p.PID, pathVA, 0, 0, 0)
	if childPID == ^uint64(0) {
		t.Fatalf("spawn returned %#x", childPID)
	}
	child, err := env.table.Fetch(int(childPID))
	if err != defs.EOK {
		t.Fatalf("Fetch(child): %v", err)
	}
	child.Accnt.Utadd(2000)
	child.Accnt.Systadd(300)

	child.Xs[17] = SysExit
	if got := env.s.Dispatch(&child.Frame_t); got != 0 {
		t.Fatalf("exit = %d, want 0", got)
	}
	if env.p.Accnt.Userns != 2000 || env.p.Accnt.Sysns != 300 {
		t.Fatalf("parent accounting = %d/%d, want 2000/300",
			env.p.Accnt.Userns, env.p.Accnt.Sysns)
	}
}

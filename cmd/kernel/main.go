// Command kernel wires every internal/ subsystem together into the
// bring-up sequence: physical allocator ready, kernel root page table
// built, ext2 mounted off a block device, init loaded and given a
// console, external-interrupt handlers installed, dispatch loop
// entered. There is no real RISC-V hart under this binary — the CPU,
// the FDT parser, and the ELF loader's byte-fetch all live elsewhere —
// so this is a hosted simulation of the sequence, exercising the
// wiring end to end rather than booting hardware.
package main

import (
	"flag"
	"log"

	"owos-riscv/internal/console"
	"owos-riscv/internal/defs"
	"owos-riscv/internal/ext2"
	"owos-riscv/internal/gfile"
	"owos-riscv/internal/klog"
	"owos-riscv/internal/mem"
	"owos-riscv/internal/mmu"
	"owos-riscv/internal/proc"
	"owos-riscv/internal/syscall"
	"owos-riscv/internal/trap"
)

// memPages sizes the simulated physical address space: enough for a
// handful of root/interior page tables plus a few user processes'
// worth of code, stack, and ELF scratch pages.
const memPages = 4096

// physBase is where the simulated DRAM begins, matching the virt
// platform's load address so the kernel's identity-mapped pool sits in
// a root-table index user segments never occupy (user code links low;
// CopyGlobals can then hand every process the kernel slots untouched).
const physBase = 0x80000000

func main() {
	diskPath := flag.String("disk", "", "path to an ext2 disk image")
	initPath := flag.String("init", "/boot/init", "path of the init binary within the mounted filesystem")
	steps := flag.Int("steps", 16, "number of dispatch-loop turns to run before halting")
	flag.Parse()

	if *diskPath == "" {
		log.Fatal("kernel: -disk is required")
	}

	k, err := boot(*diskPath, *initPath)
	if err != nil {
		log.Fatalf("kernel: %v", err)
	}
	k.run(*steps)
}

// kernel holds every singleton the dispatch loop touches, as explicit
// constructed state rather than package-level variables.
type kernel struct {
	arena *mem.Arena
	mmu   *mmu.MMU
	procs *proc.Table
	sched *proc.Scheduler
	disp  *trap.Dispatcher
	calls *syscall.Syscalls
	disk  *ext2.FileDevice
	root  *ext2.Fs_t
	plic  *simPLIC
	satp  *simSATP
}

// boot runs the bring-up sequence through creating PID 1: allocator
// ready, kernel root page table, ext2 mount, init load, console wired
// to its stdin/stdout/stderr, interrupt handlers installed.
func boot(diskPath, initPath string) (*kernel, error) {
	arena := mem.NewArena(physBase, memPages)
	mm := mmu.New(arena, arena)

	kernelRoot, ok := mm.CreateRoot()
	if !ok {
		return nil, errOutOfSpace("kernel root page table")
	}

	// The kernel's identity map: the whole physical pool is mapped onto
	// itself, page tables included, so translation can read the tables
	// under translation. Hosted there are no distinct text/rodata/bss
	// sections or MMIO windows to carve out (linker symbols and the
	// virtio/PLIC windows belong to the bare-metal build), so one R+W
	// global range covers what the bare-metal map walks section by
	// section.
	end := uint64(physBase) + uint64(memPages)*mem.PgSize
	if err := mm.IdentityMapRange(kernelRoot, physBase, end, mem.PteRead|mem.PteWrite|mem.PteGlobal); err != defs.EOK {
		return nil, errFromErrt("kernel identity map", err)
	}

	disk, oerr := ext2.OpenFileDevice(diskPath)
	if oerr != nil {
		return nil, oerr
	}

	fs, merr := ext2.Mount(disk)
	if merr != defs.EOK {
		return nil, errFromErrt("mount", merr)
	}

	table := proc.NewTable()
	sched := proc.NewScheduler()

	initImage, rerr := readWholeFile(fs, initPath)
	if rerr != defs.EOK {
		return nil, errFromErrt("reading init binary", rerr)
	}

	init1, lerr := proc.LoadELF(table, mm, 0, initImage)
	if lerr != defs.EOK {
		return nil, errFromErrt("loading init", lerr)
	}
	proc.InitKernelMMU(mm, kernelRoot, init1)

	dev := console.NewStdioDevice()
	wireConsole(init1, dev)
	klog.SetOutput(consoleWriter{dev})

	if err := sched.AddToQueue(init1.PID); err != defs.EOK {
		return nil, errFromErrt("enqueuing init", err)
	}

	disp := trap.NewDispatcher()
	plic := newSimPLIC()
	if err := disp.RegisterHandler(irqTimer, 1, func(int) {
		klog.Warnf("timer tick")
	}); err != defs.EOK {
		return nil, errFromErrt("registering timer handler", err)
	}

	calls := &syscall.Syscalls{
		Procs:      table,
		Sched:      sched,
		MMU:        mm,
		KernelRoot: kernelRoot,
		Root:       fs,
	}

	return &kernel{
		arena: arena, mmu: mm, procs: table, sched: sched,
		disp: disp, calls: calls, disk: disk, root: fs, plic: plic,
		satp: &simSATP{},
	}, nil
}

// irqTimer is the PLIC id this bring-up sequence reserves for the
// platform timer, the only external interrupt source a single-hart
// bring-up kernel needs before real device drivers exist.
const irqTimer = 1

// wireConsole installs dev as fds 0/1/2 of p, the way a bring-up
// kernel's first process inherits a console without ever calling
// open() for it; open() only ever hands out slots 3 and up.
func wireConsole(p *proc.Process_t, dev console.Device) {
	p.FDs[0] = &gfile.FD{File: console.New(dev), Perms: gfile.FDRead}
	p.FDs[1] = &gfile.FD{File: console.New(dev), Perms: gfile.FDWrite}
	p.FDs[2] = &gfile.FD{File: console.New(dev), Perms: gfile.FDWrite}
}

// readWholeFile opens and fully reads path from fs's root; the ELF
// loader only ever sees bytes already in hand.
func readWholeFile(fs gfile.Filesystem_i, path string) ([]byte, defs.Err_t) {
	root, err := fs.Root()
	if err != defs.EOK {
		return nil, err
	}
	defer root.Close()

	f, err := resolve(root, path)
	if err != defs.EOK {
		return nil, err
	}
	defer f.Close()

	out := make([]byte, 0, 4096)
	for {
		b, eof, rerr := f.ReadChar()
		if rerr != defs.EOK {
			return nil, rerr
		}
		if eof {
			break
		}
		out = append(out, b)
	}
	return out, defs.EOK
}

// resolve walks a slash-separated path from dir, closing every
// intermediate it opens along the way.
func resolve(dir gfile.File_i, path string) (gfile.File_i, defs.Err_t) {
	cur := dir
	start := 0
	for i := 0; i <= len(path); i++ {
		if i < len(path) && path[i] != '/' {
			continue
		}
		name := path[start:i]
		start = i + 1
		if name == "" {
			continue
		}
		next, err := cur.Lookup(name)
		if err != defs.EOK {
			return nil, err
		}
		if cur != dir {
			cur.Close()
		}
		cur = next
	}
	return cur, defs.EOK
}

// run drives up to n turns of the dispatch loop: pick the next ready
// pid, let the trap dispatcher service whatever trap its frame
// currently encodes, and repeat. A real hart would trap into this path
// only after actually executing instructions; hosted, each ready
// process's frame already holds the next syscall it wants serviced
// (installed by whatever staged its test fixture), so one turn here
// corresponds to one ecall.
func (k *kernel) run(n int) {
	for i := 0; i < n; i++ {
		pid := k.sched.NextInQueue()
		if pid == 0 {
			return
		}
		p, err := k.procs.Fetch(pid)
		if err != defs.EOK {
			continue
		}
		resume := p.Accnt.Now()
		if err := k.procs.JumpTo(pid, k.satp); err != defs.EOK {
			continue
		}
		// The user slice runs from resume until the hart traps back in;
		// hosted, that boundary is right here.
		trapEntry := p.Accnt.Now()
		p.Accnt.Utadd(trapEntry - resume)
		k.disp.HandleInterrupt(scauseEcall, &p.Frame_t, k.plic, k.calls.Dispatch)
		p.Accnt.Finish(trapEntry)
	}
}

// scauseEcall is the synchronous cause code for an environment call
// from user mode.
const scauseEcall = 0x08

// consoleWriter adapts a console.Device to io.Writer so klog's sink is
// the same device init's stdout goes to.
type consoleWriter struct{ dev console.Device }

func (w consoleWriter) Write(p []byte) (int, error) {
	for _, b := range p {
		w.dev.WriteByte(b)
	}
	return len(p), nil
}

// simSATP records the most recently installed page-table root, the
// hosted stand-in for the csrw satp + sfence.vma pair.
type simSATP struct {
	root mem.Pa_t
}

func (s *simSATP) SetRoot(root mem.Pa_t) { s.root = root }

// simPLIC is a PLIC_i with nothing ever pending: this bring-up sequence
// has no real interrupt source, only the timer handler registered for
// completeness of the wiring.
type simPLIC struct{}

func newSimPLIC() *simPLIC    { return &simPLIC{} }
func (*simPLIC) Claim() int   { return 0 }
func (*simPLIC) Complete(int) {}

type bootError struct{ msg string }

func (e *bootError) Error() string { return e.msg }

func errOutOfSpace(what string) error { return &bootError{msg: what + ": out of space"} }

func errFromErrt(step string, e defs.Err_t) error {
	return &bootError{msg: step + ": " + e.String()}
}

package syscall

import (
	"owos-riscv/internal/defs"
	"owos-riscv/internal/gfile"
	"owos-riscv/internal/klog"
	"owos-riscv/internal/mem"
	"owos-riscv/internal/mmu"
	"owos-riscv/internal/proc"
	"owos-riscv/internal/trap"
)

// Syscalls binds the syscall dispatch table to the kernel singletons
// it operates on: the process table, the ready queue, the MMU, the
// kernel's own page-table root, and the mounted root filesystem.
type Syscalls struct {
	Procs      *proc.Table
	Sched      *proc.Scheduler
	MMU        *mmu.MMU
	KernelRoot mem.Pa_t
	Root       gfile.Filesystem_i
}

// Dispatch decodes f's A7/A0-A5 registers and performs the named
// syscall, returning the value the trap dispatcher writes into A0.
func (s *Syscalls) Dispatch(f *trap.Frame_t) uint64 {
	num, a0, a1, a2, a3, a4, a5 := f.SyscallArgs()

	switch num {
	case SysRead:
		return s.sysRead(f.PID, a0, a1, a2)
	case SysWrite:
		return s.sysWrite(f.PID, a0, a1, a2)
	case SysOpen:
		return s.sysOpen(f.PID, a0)
	case SysClose:
		return s.sysClose(f.PID, a0)
	case SysMmap, SysMprotect, SysMunmap:
		return ^uint64(0) // reserved
	case SysGetpid:
		return uint64(f.PID)
	case SysExit:
		return s.sysExit(f.PID)
	case SysGetppid:
		return s.sysGetppid(f.PID)
	case SysSpawn:
		return s.sysSpawn(f.PID, a0, a3, a4, a5)
	default:
		klog.Warnf("syscall: unknown number %#x (a0=%#x a1=%#x a2=%#x a3=%#x a4=%#x a5=%#x)",
			num, a0, a1, a2, a3, a4, a5)
		return ^uint64(0)
	}
}

func (s *Syscalls) sysRead(pid int, fdNum, bufVA, count uint64) uint64 {
	p, err := s.Procs.Fetch(pid)
	if err != defs.EOK {
		return defs.EINVALIDFD.ToSyscallResult(0)
	}
	fd, ferr := fetchReadableFD(p, fdNum)
	if ferr != defs.EOK {
		return ferr.ToSyscallResult(0)
	}

	var n uint64
	for n < count {
		b, eof, rerr := fd.File.ReadChar()
		if rerr != defs.EOK {
			return rerr.ToSyscallResult(0)
		}
		if eof {
			break
		}
		if werr := writeUserByte(s.MMU, p.MMURoot, bufVA+n, b); werr != defs.EOK {
			return werr.ToSyscallResult(0)
		}
		n++
	}
	return n
}

func (s *Syscalls) sysWrite(pid int, fdNum, bufVA, count uint64) uint64 {
	p, err := s.Procs.Fetch(pid)
	if err != defs.EOK {
		return defs.EINVALIDFD.ToSyscallResult(0)
	}
	fd, ferr := fetchWritableFD(p, fdNum)
	if ferr != defs.EOK {
		return ferr.ToSyscallResult(0)
	}

	var n uint64
	for n < count {
		b, rerr := readUserByte(s.MMU, p.MMURoot, bufVA+n)
		if rerr != defs.EOK {
			return rerr.ToSyscallResult(0)
		}
		if werr := fd.File.WriteChar(b); werr != defs.EOK {
			return werr.ToSyscallResult(0)
		}
		n++
	}
	return n
}

func (s *Syscalls) sysOpen(pid int, pathVA uint64) uint64 {
	p, err := s.Procs.Fetch(pid)
	if err != defs.EOK {
		return defs.ENOTFOUND.ToSyscallResult(0)
	}
	path, perr := readCString(s.MMU, p.MMURoot, pathVA)
	if perr != defs.EOK {
		return perr.ToSyscallResult(0)
	}

	f, oerr := openPath(s.Root, path)
	if oerr != defs.EOK {
		return oerr.ToSyscallResult(0)
	}
	if f.Type() != gfile.EntryFile {
		f.Close()
		return defs.EWRONGTYPE.ToSyscallResult(0)
	}

	for i := firstUserFD; i < defs.FDCount; i++ {
		if p.FDs[i] == nil {
			p.FDs[i] = &gfile.FD{File: f, Perms: gfile.FDRead}
			return uint64(i)
		}
	}
	f.Close()
	return defs.EOUTOFSPACE.ToSyscallResult(0)
}

func (s *Syscalls) sysClose(pid int, fdNum uint64) uint64 {
	p, err := s.Procs.Fetch(pid)
	if err != defs.EOK {
		return defs.EINVALIDFD.ToSyscallResult(0)
	}
	if fdNum >= defs.FDCount || p.FDs[fdNum] == nil {
		return defs.EINVALIDFD.ToSyscallResult(0)
	}
	p.FDs[fdNum].Close()
	p.FDs[fdNum] = nil
	return 0
}

func (s *Syscalls) sysExit(pid int) uint64 {
	p, err := s.Procs.Fetch(pid)
	if err == defs.EOK {
		for i := range p.FDs {
			if p.FDs[i] != nil {
				p.FDs[i].Close()
				p.FDs[i] = nil
			}
		}
		s.MMU.Destroy(p.MMURoot)
		p.MMURoot = 0
		if parent, perr := s.Procs.Fetch(p.ParentPID); perr == defs.EOK {
			parent.Accnt.Add(&p.Accnt)
		}
	}
	s.Sched.Remove(pid)
	s.Procs.Kill(pid)
	return 0
}

func (s *Syscalls) sysGetppid(pid int) uint64 {
	p, err := s.Procs.Fetch(pid)
	if err != defs.EOK {
		return 0
	}
	return uint64(p.ParentPID)
}

func (s *Syscalls) sysSpawn(pid int, pathVA, stdinFD, stdoutFD, stderrFD uint64) uint64 {
	parent, err := s.Procs.Fetch(pid)
	if err != defs.EOK {
		return defs.ENOTFOUND.ToSyscallResult(0)
	}
	path, perr := readCString(s.MMU, parent.MMURoot, pathVA)
	if perr != defs.EOK {
		return perr.ToSyscallResult(0)
	}

	f, oerr := openPath(s.Root, path)
	if oerr != defs.EOK {
		return oerr.ToSyscallResult(0)
	}
	elfData, rerr := readAll(f)
	f.Close()
	if rerr != defs.EOK {
		return rerr.ToSyscallResult(0)
	}

	child, lerr := proc.LoadELF(s.Procs, s.MMU, pid, elfData)
	if lerr != defs.EOK {
		return lerr.ToSyscallResult(0)
	}
	proc.InitKernelMMU(s.MMU, s.KernelRoot, child)

	inheritFD(parent, child, stdinFD, 0)
	inheritFD(parent, child, stdoutFD, 1)
	inheritFD(parent, child, stderrFD, 2)

	if qerr := s.Sched.AddToQueue(child.PID); qerr != defs.EOK {
		return qerr.ToSyscallResult(0)
	}
	return uint64(child.PID)
}

// inheritFD copies parent's open file at slot srcFD into child's slot
// dstFD: the underlying gfile.File_i is shared, the descriptor record
// is the child's own.
func inheritFD(parent, child *proc.Process_t, srcFD uint64, dstFD int) {
	if srcFD >= defs.FDCount || parent.FDs[srcFD] == nil {
		return
	}
	src := parent.FDs[srcFD]
	child.FDs[dstFD] = &gfile.FD{File: src.File, Perms: src.Perms}
}

func fetchReadableFD(p *proc.Process_t, fdNum uint64) (*gfile.FD, defs.Err_t) {
	if fdNum >= defs.FDCount || p.FDs[fdNum] == nil {
		return nil, defs.EINVALIDFD
	}
	fd := p.FDs[fdNum]
	if !fd.Readable() {
		return nil, defs.EUNSUPPORTED
	}
	return fd, defs.EOK
}

func fetchWritableFD(p *proc.Process_t, fdNum uint64) (*gfile.FD, defs.Err_t) {
	if fdNum >= defs.FDCount || p.FDs[fdNum] == nil {
		return nil, defs.EINVALIDFD
	}
	fd := p.FDs[fdNum]
	if !fd.Writable() {
		return nil, defs.EUNSUPPORTED
	}
	return fd, defs.EOK
}

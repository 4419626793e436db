// Package proc implements the process table and the cooperative
// round-robin scheduler. The table is a flat array indexed by pid;
// one hart means no concurrent table mutation to guard against.
package proc

import (
	"owos-riscv/internal/defs"
	"owos-riscv/internal/gfile"
	"owos-riscv/internal/mem"
	"owos-riscv/internal/trap"
)

// State is a process's scheduling state.
type State int

const (
	StateWait State = iota
	StateRunning
	StateDead
)

// Process_t is one process-table entry: its saved register frame
// (embedded, so p.PC/p.Xs/p.Fs/p.PID all resolve directly), parent pid,
// scheduling state, root MMU page table, open file descriptors, and
// accounting.
type Process_t struct {
	trap.Frame_t

	ParentPID int
	State     State
	MMURoot   mem.Pa_t
	FDs       [defs.FDCount]*gfile.FD
	Accnt     Accnt_t
}

// Table is the fixed-size process table. PID 0 is reserved and never
// assigned; it doubles as the "no process"/"empty slot" sentinel in the
// job queue. The table is a constructed value, not package-level
// state, so tests and bring-up own their instances explicitly.
type Table struct {
	procs   [defs.MaxPID]*Process_t
	nextPID int
}

// NewTable returns an empty process table with pid allocation starting
// at 1.
func NewTable() *Table {
	return &Table{nextPID: 1}
}

// Spawn allocates a new process-table entry parented at parentPID.
// Pids are handed out monotonically until the table fills, then reused
// from the first DEAD slot found by a linear scan. Returns ETABLEFULL
// when no slot is available.
func (t *Table) Spawn(parentPID int) (*Process_t, defs.Err_t) {
	if t.nextPID < defs.MaxPID {
		p := &Process_t{ParentPID: parentPID, State: StateWait}
		p.PID = t.nextPID
		t.procs[t.nextPID] = p
		t.nextPID++
		return p, defs.EOK
	}

	for i := 1; i < defs.MaxPID; i++ {
		if t.procs[i] != nil && t.procs[i].State == StateDead {
			p := &Process_t{ParentPID: parentPID, State: StateWait}
			p.PID = i
			t.procs[i] = p
			return p, defs.EOK
		}
	}
	return nil, defs.ETABLEFULL
}

// Fetch looks up a live process by pid. A DEAD slot is
// indistinguishable from an empty one here: a pid resolves only while
// the process is alive, and dead slots exist solely for Spawn to
// reuse.
func (t *Table) Fetch(pid int) (*Process_t, defs.Err_t) {
	if pid <= 0 || pid >= defs.MaxPID || t.procs[pid] == nil || t.procs[pid].State == StateDead {
		return nil, defs.ENOTFOUND
	}
	return t.procs[pid], defs.EOK
}

// Satp_i models the translation control register: installing a root
// page table and issuing the fence that makes it visible. The real
// implementation is a csrw satp plus sfence.vma; hosted builds record
// the value so tests can observe the switch.
type Satp_i interface {
	SetRoot(root mem.Pa_t)
}

// JumpTo marks pid RUNNING and installs its page-table root in the
// translation control register. Restoring the saved register frame and
// returning to user mode is the hart's job — the one step that needs
// assembly — so it ends at the register write here.
func (t *Table) JumpTo(pid int, satp Satp_i) defs.Err_t {
	p, err := t.Fetch(pid)
	if err != defs.EOK {
		return err
	}
	p.State = StateRunning
	satp.SetRoot(p.MMURoot)
	return defs.EOK
}

// Kill marks a process dead, freeing its slot for reuse by a future
// Spawn. Its MMU root and descriptor table are the caller's
// responsibility to release first (internal/syscall's exit handler does
// so before calling Kill).
func (t *Table) Kill(pid int) defs.Err_t {
	p, err := t.Fetch(pid)
	if err != defs.EOK {
		return err
	}
	p.State = StateDead
	return defs.EOK
}

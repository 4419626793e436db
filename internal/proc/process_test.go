package proc

import (
	"testing"

	"owos-riscv/internal/defs"
	"owos-riscv/internal/mem"
)

func TestSpawnAssignsMonotonicPIDs(t *testing.T) {
	tbl := NewTable()
	p1, err := tbl.Spawn(0)
	if err != defs.EOK {
		t.Fatalf("Spawn: %v", err)
	}
	p2, err := tbl.Spawn(p1.PID)
	if err != defs.EOK {
		t.Fatalf("Spawn: %v", err)
	}
	if p1.PID != 1 || p2.PID != 2 {
		t.Fatalf("pids = %d, %d; want 1, 2", p1.PID, p2.PID)
	}
	if p2.ParentPID != 1 {
		t.Fatalf("p2.ParentPID = %d, want 1", p2.ParentPID)
	}
}

func TestSpawnReusesDeadSlotOnceTableIsExhausted(t *testing.T) {
	tbl := NewTable()
	p1, err := tbl.Spawn(0)
	if err != defs.EOK {
		t.Fatalf("Spawn: %v", err)
	}
	if err := tbl.Kill(p1.PID); err != defs.EOK {
		t.Fatalf("Kill: %v", err)
	}

	// Force the monotonic path closed so Spawn must fall back to
	// scanning for a DEAD slot.
	tbl.nextPID = defs.MaxPID

	p2, err := tbl.Spawn(0)
	if err != defs.EOK {
		t.Fatalf("Spawn after exhaustion: %v", err)
	}
	if p2.PID != p1.PID {
		t.Fatalf("reused pid = %d, want %d", p2.PID, p1.PID)
	}
	if p2.State != StateWait {
		t.Fatalf("reused process state = %v, want StateWait", p2.State)
	}
}

func TestSpawnFailsWhenTableFull(t *testing.T) {
	tbl := NewTable()
	tbl.nextPID = defs.MaxPID
	if _, err := tbl.Spawn(0); err != defs.ETABLEFULL {
		t.Fatalf("Spawn on exhausted+empty table: got %v want ETABLEFULL", err)
	}
}

func TestFetchUnknownPID(t *testing.T) {
	tbl := NewTable()
	if _, err := tbl.Fetch(999); err != defs.ENOTFOUND {
		t.Fatalf("Fetch: got %v want ENOTFOUND", err)
	}
	if _, err := tbl.Fetch(0); err != defs.ENOTFOUND {
		t.Fatalf("Fetch(0): got %v want ENOTFOUND (pid 0 reserved)", err)
	}
}

type fakeSATP struct {
	root mem.Pa_t
	sets int
}

func (s *fakeSATP) SetRoot(root mem.Pa_t) {
	s.root = root
	s.sets++
}

func TestJumpToInstallsRootAndMarksRunning(t *testing.T) {
	tbl := NewTable()
	p, err := tbl.Spawn(0)
	if err != defs.EOK {
		t.Fatalf("Spawn: %v", err)
	}
	p.MMURoot = 0x80042000

	satp := &fakeSATP{}
	if err := tbl.JumpTo(p.PID, satp); err != defs.EOK {
		t.Fatalf("JumpTo: %v", err)
	}
	if p.State != StateRunning {
		t.Fatalf("state = %v, want StateRunning", p.State)
	}
	if satp.sets != 1 || satp.root != p.MMURoot {
		t.Fatalf("satp = %#x (%d writes), want %#x (1 write)", satp.root, satp.sets, p.MMURoot)
	}

	if err := tbl.JumpTo(999, satp); err != defs.ENOTFOUND {
		t.Fatalf("JumpTo(unknown pid): got %v want ENOTFOUND", err)
	}
}

func TestSchedulerRoundRobin(t *testing.T) {
	s := NewScheduler()
	for _, pid := range []int{1, 2, 3} {
		if err := s.AddToQueue(pid); err != defs.EOK {
			t.Fatalf("AddToQueue(%d): %v", pid, err)
		}
	}

	// Insertion order on the first pass, then wrap back to the start.
	for i, want := range []int{1, 2, 3, 1} {
		if pid := s.NextInQueue(); pid != want {
			t.Fatalf("NextInQueue call %d = %d, want %d", i+1, pid, want)
		}
	}
}

func TestSchedulerRemoveClearsSlot(t *testing.T) {
	s := NewScheduler()
	for _, pid := range []int{1, 2, 3} {
		if err := s.AddToQueue(pid); err != defs.EOK {
			t.Fatalf("AddToQueue(%d): %v", pid, err)
		}
	}
	s.Remove(2)
	for i, want := range []int{1, 3, 1} {
		if pid := s.NextInQueue(); pid != want {
			t.Fatalf("NextInQueue call %d = %d, want %d", i+1, pid, want)
		}
	}
}

func TestSchedulerEmptyQueueReturnsZero(t *testing.T) {
	s := NewScheduler()
	if pid := s.NextInQueue(); pid != 0 {
		t.Fatalf("NextInQueue on empty queue = %d, want 0", pid)
	}
}

package proc

import "owos-riscv/internal/defs"

// Scheduler is the fixed-size ring job queue of pids eligible to run.
// Pid 0 marks an empty slot, matching Table's reserved pid 0.
type Scheduler struct {
	queue [defs.JobQueueSize]int
	pos   int
}

// NewScheduler returns an empty scheduler. The cursor starts on the
// ring's last slot so the first selection advances onto slot 0 and jobs
// run in insertion order.
func NewScheduler() *Scheduler {
	return &Scheduler{pos: defs.JobQueueSize - 1}
}

// AddToQueue places pid in the first empty slot. Returns ETABLEFULL if
// the ring is saturated, mirroring add_process_to_queue's boolean
// failure as an explicit error code.
func (s *Scheduler) AddToQueue(pid int) defs.Err_t {
	for i := range s.queue {
		if s.queue[i] == 0 {
			s.queue[i] = pid
			return defs.EOK
		}
	}
	return defs.ETABLEFULL
}

// Remove clears every slot holding pid so an exited process can't be
// selected again; exit is the only caller.
func (s *Scheduler) Remove(pid int) {
	for i := range s.queue {
		if s.queue[i] == pid {
			s.queue[i] = 0
		}
	}
}

// NextInQueue returns the next runnable pid in round-robin order, or 0
// if the queue holds nothing: advance past the last position, skip
// empty slots, and fall back to whatever sits in the starting slot
// (possibly 0) if the whole ring is empty.
func (s *Scheduler) NextInQueue() int {
	lastInQueue := s.pos
	s.pos++
	if s.pos >= len(s.queue) {
		s.pos %= len(s.queue)
	}

	for lastInQueue != s.pos {
		if s.queue[s.pos] != 0 {
			return s.queue[s.pos]
		}
		s.pos++
		if s.pos >= len(s.queue) {
			s.pos %= len(s.queue)
		}
	}
	return s.queue[lastInQueue]
}

package trap

import (
	"owos-riscv/internal/defs"
	"owos-riscv/internal/klog"
)

// scause high bit: set means asynchronous (interrupt), clear means
// synchronous (exception/ecall).
const scauseAsyncBit = uint64(1) << 63

// Synchronous and asynchronous cause codes this kernel understands.
// Anything else is a fatal, unhandled trap.
const (
	causeEcall = 0x08
	causeMEI   = 0x09
)

func classify(scause uint64) (async bool, code uint64) {
	return scause&scauseAsyncBit != 0, scause &^ scauseAsyncBit
}

// PLIC_i is the external-interrupt controller. Claim returns the
// pending interrupt's id, or 0 if none is pending; Complete
// acknowledges it. Claiming atomically removes the id from the
// pending set, so the claim register is the one hardware lock this
// kernel relies on.
type PLIC_i interface {
	Claim() int
	Complete(id int)
}

// Handler services one claimed external-interrupt id.
type Handler func(id int)

// Dispatcher holds the vectored external-interrupt handler table and
// drives synchronous/asynchronous trap dispatch. The table is a plain
// array indexed by id-1; IRQ ids are small and dense.
type Dispatcher struct {
	handlers   [defs.IRQCount]Handler
	priorities [defs.IRQCount]int
}

// NewDispatcher returns an empty dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{}
}

// RegisterHandler installs h for irqID with the given priority.
// Returns ETABLEFULL if irqID is out of range or already has a
// handler; callers only care whether registration succeeded.
func (d *Dispatcher) RegisterHandler(irqID int, priority int, h Handler) defs.Err_t {
	if irqID <= 0 || irqID > defs.IRQCount || d.handlers[irqID-1] != nil {
		return defs.ETABLEFULL
	}
	d.handlers[irqID-1] = h
	d.priorities[irqID-1] = priority
	return defs.EOK
}

// HandleMEI services one machine/supervisor external interrupt: claim
// the PLIC, look up the handler, acknowledge, and call it. A claim of
// 0 (nothing pending), an id with no registered handler, or a source
// registered with priority 0 (disabled) is silently ignored.
func (d *Dispatcher) HandleMEI(plic PLIC_i) {
	id := plic.Claim()
	if id == 0 {
		return
	}
	plic.Complete(id)
	if id < 1 || id > defs.IRQCount {
		return
	}
	if d.priorities[id-1] == 0 {
		return
	}
	if h := d.handlers[id-1]; h != nil {
		h(id)
	}
}

// SyscallFn performs a syscall given the trap frame that caused it and
// returns the value to place in a0.
type SyscallFn func(f *Frame_t) uint64

// HandleInterrupt dispatches one trap: a synchronous ecall is routed
// to syscallFn with a0 set to its result and pc advanced past the
// 4-byte ecall instruction; an asynchronous external interrupt is
// routed to HandleMEI. Any other cause is fatal.
func (d *Dispatcher) HandleInterrupt(scause uint64, frame *Frame_t, plic PLIC_i, syscallFn SyscallFn) *Frame_t {
	async, code := classify(scause)
	if async {
		switch code {
		case causeMEI:
			d.HandleMEI(plic)
		default:
			klog.Fatalf("unknown asynchronous interrupt: %#x", code)
		}
		return frame
	}

	switch code {
	case causeEcall:
		frame.SetReturn(syscallFn(frame))
		frame.PC += 4
	default:
		klog.Fatalf("unknown synchronous interrupt: %#x", code)
	}
	return frame
}

// Package trap classifies supervisor traps (scause's high bit splits
// synchronous from asynchronous causes) and dispatches them: ecalls to
// the syscall layer, external interrupts to a PLIC-style vectored
// handler table.
package trap

// Register indices into Frame_t.Xs, RISC-V integer ABI names.
const (
	RegZero = 0
	RegRA   = 1
	RegSP   = 2
	RegGP   = 3
	RegTP   = 4
	RegFP   = 8
	RegA0   = 10
	RegA1   = 11
	RegA2   = 12
	RegA3   = 13
	RegA4   = 14
	RegA5   = 15
	RegA6   = 16
	RegA7   = 17
)

// Frame_t is the full register frame saved on trap entry: all 32
// integer and all 32 floating-point registers plus the faulting pc and
// owning pid. The whole register file is saved, not just the
// caller-saved subset; a trap handler must not silently lose state it
// never explicitly restores.
type Frame_t struct {
	PID int
	PC  uint64
	Xs  [32]uint64
	Fs  [32]uint64
}

// SyscallArgs extracts the seven syscall-ABI registers from the frame:
// A7 is the number, A0-A5 the arguments.
func (f *Frame_t) SyscallArgs() (num uint64, a0, a1, a2, a3, a4, a5 uint64) {
	return f.Xs[RegA7], f.Xs[RegA0], f.Xs[RegA1], f.Xs[RegA2], f.Xs[RegA3], f.Xs[RegA4], f.Xs[RegA5]
}

// SetReturn stores a syscall's result in A0, the ABI's return register.
func (f *Frame_t) SetReturn(v uint64) {
	f.Xs[RegA0] = v
}

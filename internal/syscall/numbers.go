// Package syscall is the syscall layer: it decodes a trap.Frame_t's
// register arguments into typed operations on processes and generic
// files, returning the single 64-bit result the trap dispatcher writes
// back into A0.
package syscall

// Syscall numbers.
const (
	SysRead     = 0
	SysWrite    = 1
	SysOpen     = 2
	SysClose    = 3
	SysMmap     = 9
	SysMprotect = 10
	SysMunmap   = 11
	SysGetpid   = 39
	SysExit     = 60
	SysGetppid  = 110
	SysSpawn    = 314
)

// firstUserFD is the lowest file-descriptor slot open() may allocate;
// slots 0-2 are reserved for stdin/stdout/stderr, populated by spawn's
// fd inheritance (and, for init, by cmd/kernel's bring-up wiring).
const firstUserFD = 3

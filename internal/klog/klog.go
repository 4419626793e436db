// Package klog is the kernel's logger. Recoverable conditions are
// logged at the point of occurrence, funneled through one *log.Logger
// so the sink can be swapped (os.Stderr in tests, the console once
// mounted) without touching call sites.
package klog

import (
	"io"
	"log"
	"os"
)

var std = log.New(os.Stderr, "", 0)

// SetOutput redirects subsequent log output, e.g. to the console file once
// the kernel has mounted one.
func SetOutput(w io.Writer) {
	std.SetOutput(w)
}

// Warnf logs a recoverable condition: a warn-and-ignore case such as
// MMU_REMAP_CONFLICT or an unrecognized syscall number.
func Warnf(format string, args ...any) {
	std.Printf("warn: "+format, args...)
}

// Fatalf logs an unrecoverable condition and halts. Unknown
// synchronous or asynchronous traps are fatal for a bring-up kernel;
// callers invoke this instead of panicking so the message is always
// emitted before the hart halts.
func Fatalf(format string, args ...any) {
	std.Fatalf("fatal: "+format, args...)
}

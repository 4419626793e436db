package console

import (
	"bufio"
	"os"
)

// BufferDevice is an in-memory Device: a fake console standing in for
// the serial UART in tests.
type BufferDevice struct {
	in  []byte
	out []byte
}

// NewBufferDevice seeds a device with pending input bytes.
func NewBufferDevice(input []byte) *BufferDevice {
	return &BufferDevice{in: append([]byte(nil), input...)}
}

// ReadByte pops the next byte of pending input.
func (d *BufferDevice) ReadByte() (byte, bool) {
	if len(d.in) == 0 {
		return 0, false
	}
	b := d.in[0]
	d.in = d.in[1:]
	return b, true
}

// WriteByte appends a byte to the device's output log.
func (d *BufferDevice) WriteByte(b byte) { d.out = append(d.out, b) }

// Written returns every byte written to the device so far.
func (d *BufferDevice) Written() []byte { return d.out }

// StdioDevice adapts the host process's stdin/stdout to Device, for a
// hosted bring-up of the kernel simulation (cmd/kernel) rather than
// real UART MMIO registers.
type StdioDevice struct {
	r *bufio.Reader
	w *bufio.Writer
}

// NewStdioDevice wraps os.Stdin/os.Stdout.
func NewStdioDevice() *StdioDevice {
	return &StdioDevice{r: bufio.NewReader(os.Stdin), w: bufio.NewWriter(os.Stdout)}
}

// ReadByte reads one byte from stdin.
func (d *StdioDevice) ReadByte() (byte, bool) {
	b, err := d.r.ReadByte()
	if err != nil {
		return 0, false
	}
	return b, true
}

// WriteByte writes one byte to stdout, flushing immediately so output
// is visible without an explicit flush step (this is a debugging
// console, not a throughput-sensitive path).
func (d *StdioDevice) WriteByte(b byte) {
	d.w.WriteByte(b)
	d.w.Flush()
}

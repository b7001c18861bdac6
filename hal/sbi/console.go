package sbi

import "rvkernel/kernel/kfmt"

// ConsoleWriter writes bytes one at a time through the legacy SBI console
// putchar call, the same interface the teacher's hal.ActiveTerminal gives
// kfmt on amd64 (a plain io.Writer it can SetOutputSink to).
type ConsoleWriter struct{}

// Write implements io.Writer by issuing one SBI putchar ecall per byte.
// SBI's legacy console extension has no batched-write call, so unlike the
// teacher's VGA text-mode writer this cannot memcpy a whole line at once.
func (ConsoleWriter) Write(p []byte) (int, error) {
	for _, b := range p {
		if _, err := Call(ExtLegacyPut, 0, uint64(b)); err != nil {
			return 0, err
		}
	}
	return len(p), nil
}

// ExtLegacyGet is the legacy console getchar extension, the read-side
// counterpart of ExtLegacyPut, used by ConsoleReader for sys_read on fd 0.
const ExtLegacyGet Extension = 0x02

// ConsoleReader reads bytes one at a time through the legacy SBI console
// getchar call. SBI returns -1 in a0 when no byte is waiting, which this
// type reports as io.EOF rather than blocking: the scheduler has no way to
// park a task on an empty console short of busy-yielding, and that policy
// belongs to the read syscall body, not to this transport.
type ConsoleReader struct{}

// ReadByte issues one SBI getchar ecall. ok is false if no byte was
// available.
func (ConsoleReader) ReadByte() (b byte, ok bool) {
	v, err := Call(ExtLegacyGet, 0)
	if err != nil || int64(v) < 0 {
		return 0, false
	}
	return byte(v), true
}

// InstallConsole routes kfmt.Printf output through the SBI console and
// flushes anything accumulated in kfmt's early ring buffer, mirroring the
// teacher's call to kfmt.SetOutputSink(hal.ActiveTerminal) once its TTY
// driver is attached.
func InstallConsole() {
	kfmt.SetOutputSink(ConsoleWriter{})
}

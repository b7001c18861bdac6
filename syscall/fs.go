package syscall

import (
	"rvkernel/hal/sbi"
	"rvkernel/kernel/kfmt"
	"rvkernel/mem"
	"rvkernel/task"
	"rvkernel/trap"
)

// fdStdout and fdStdin are the only two file descriptors this kernel knows
// about: spec.md names the block-device-backed file system as an external
// collaborator, so open/close below are stubs and read/write only ever
// succeed against the console.
const (
	fdStdin  = 0
	fdStdout = 1
)

// copyChunkSize bounds how much of a user buffer sys_write/sys_read moves
// through a fixed kernel-side scratch buffer per CopyIn/CopyOut call,
// avoiding an allocation sized by a syscall argument the kernel hasn't
// validated yet.
const copyChunkSize = 512

// sysWriteImpl realizes spec.md §8 scenario 1's write(fd, buf, len): copies
// len bytes out of the calling task's address space at buf and prints them
// to the console. A null or otherwise unmapped buf (scenario 3) is reported
// as Terminate with an exit code, not as a negative return value, since
// spec.md classifies a bad user pointer as a fault, not an error return.
func sysWriteImpl(cur *task.Task, fd int, buf uintptr, length int) (int64, trap.Outcome) {
	if fd != fdStdout {
		return -1, trap.Continue
	}
	if length < 0 {
		return -1, trap.Continue
	}

	scratch := make([]byte, copyChunkSize)
	remaining := length
	va := mem.VirtAddr(buf)
	for remaining > 0 {
		n := copyChunkSize
		if n > remaining {
			n = remaining
		}
		if err := cur.MemorySet().CopyIn(scratch[:n], va); err != nil {
			return terminateBadAddress(cur)
		}
		kfmt.Fprintf(sbi.ConsoleWriter{}, "%s", string(scratch[:n]))
		va += mem.VirtAddr(n)
		remaining -= n
	}
	return int64(length), trap.Continue
}

// sysReadImpl reads up to length bytes from the console into the calling
// task's buffer. Unlike sys_write this kernel has no way to block a task
// for input (no Blocking state, spec.md §3), so a read that finds no bytes
// waiting returns 0 immediately rather than looping.
func sysReadImpl(cur *task.Task, fd int, buf uintptr, length int) (int64, trap.Outcome) {
	if fd != fdStdin || length <= 0 {
		return -1, trap.Continue
	}

	scratch := make([]byte, 0, length)
	for len(scratch) < length {
		b, ok := sbi.ConsoleReader{}.ReadByte()
		if !ok {
			break
		}
		scratch = append(scratch, b)
	}
	if len(scratch) == 0 {
		return 0, trap.Continue
	}
	if err := cur.MemorySet().CopyOut(mem.VirtAddr(buf), scratch); err != nil {
		return terminateBadAddress(cur)
	}
	return int64(len(scratch)), trap.Continue
}

// sysOpenImpl and sysCloseImpl are declared, routed handlers for a syscall
// surface spec.md names but whose file system backing it explicitly places
// out of scope ("the block-device-backed file system" is an external
// collaborator). They exist so a user program that probes for a real fs
// gets ENOSYS rather than an unhandled trap.
func sysOpenImpl(cur *task.Task, path uintptr, flags int) (int64, trap.Outcome) {
	return errNoSys, trap.Continue
}

func sysCloseImpl(cur *task.Task, fd int) (int64, trap.Outcome) {
	return errNoSys, trap.Continue
}

func terminateBadAddress(cur *task.Task) (int64, trap.Outcome) {
	cur.ExitCode = exitCodeBadAddress
	return -1, trap.Terminate
}

// exitCodeBadAddress mirrors task.init.go's onPageFault classification
// (spec.md §7's "bad-address" exit code family) for the bad-pointer case a
// syscall body, rather than the page-fault handler, happens to catch first
// (sys_write/sys_read validate via CopyIn/CopyOut before the MMU would ever
// fault, since the destination buffer might not be mapped at all).
const exitCodeBadAddress = -2

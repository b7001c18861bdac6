package syscall

import (
	"rvkernel/hal/sbi"
	"rvkernel/kernel"
	"rvkernel/kernel/kfmt"
	"rvkernel/mem"
	"rvkernel/task"
	"rvkernel/trap"
)

// ImageByName resolves an exec path to an embedded ELF image. Wired by
// loader.Bootstrap at boot (loader owns the actual //go:embed manifest);
// left nil means exec always fails, which is still a valid configuration
// for a kernel with only one, never-replaced task image.
var ImageByName func(name string) ([]byte, bool)

// sysExitImpl realizes spec.md §6's exit(code): record the exit code and
// terminate, handing control back to the scheduler. It is the one syscall
// body original_source/os/src/syscall/process.rs actually shows in full
// (sys_exit), down to logging the exit before handing off.
func sysExitImpl(cur *task.Task, code int32) (int64, trap.Outcome) {
	kfmt.Printf("[task] pid %d exited with code %d\n", cur.PID, code)
	cur.ExitCode = int(code)
	return 0, trap.Terminate
}

// sysYieldImpl realizes spec.md §4.4's suspension point (a): the task
// voluntarily gives up the hart without changing its own state beyond
// Running -> Ready, which scheduleNext performs on Outcome Reschedule.
func sysYieldImpl() (int64, trap.Outcome) {
	return 0, trap.Reschedule
}

// sysGetTimeImpl returns the tick count sbi/timer.go has observed so far,
// converted to milliseconds; a supplemented feature from
// original_source/os/src/timer.rs's get_time_us.
func sysGetTimeImpl() (int64, trap.Outcome) {
	return int64(sbi.TickCount() * sbi.MSecPerTick), trap.Continue
}

func sysGetPIDImpl(cur *task.Task) (int64, trap.Outcome) {
	return int64(cur.PID), trap.Continue
}

// sysForkImpl duplicates cur into a new, independent task and adds it to
// the scheduler's ring. The parent's own return value is the child's PID;
// the child's own first "return" from this syscall (set up by task.Fork
// writing directly into the child's cloned trap context) is 0, the
// conventional fork() contract.
func sysForkImpl(cur *task.Task, ctx *trap.Context) (int64, trap.Outcome) {
	child, err := task.Fork(cur)
	if err != nil {
		kfmt.Printf("[syscall] fork failed: %s\n", err.Error())
		return -1, trap.Continue
	}
	task.AddChild(child)
	return int64(child.PID), trap.Continue
}

// sysExecImpl replaces cur's address space in place with the image named by
// the null-terminated path string at the user virtual address path.
func sysExecImpl(cur *task.Task, path uintptr) (int64, trap.Outcome) {
	name, err := readCString(cur, mem.VirtAddr(path))
	if err != nil {
		return terminateBadAddress(cur)
	}
	if ImageByName == nil {
		return errNoSys, trap.Continue
	}
	image, ok := ImageByName(name)
	if !ok {
		return -1, trap.Continue
	}
	if err := cur.Exec(image); err != nil {
		kfmt.Printf("[syscall] exec %q failed: %s\n", name, err.Error())
		return -1, trap.Continue
	}
	return 0, trap.Continue
}

// maxPathLen bounds readCString's scan so a missing terminator in a
// malicious or buggy user buffer can't loop indefinitely.
const maxPathLen = 256

func readCString(cur *task.Task, va mem.VirtAddr) (string, *kernel.Error) {
	buf := make([]byte, 0, 32)
	var b [1]byte
	for len(buf) < maxPathLen {
		if err := cur.MemorySet().CopyIn(b[:], va); err != nil {
			return "", err
		}
		if b[0] == 0 {
			return string(buf), nil
		}
		buf = append(buf, b[0])
		va++
	}
	return string(buf), nil
}

// waitAnyChild is the pid argument sys_waitpid uses to mean "any child",
// the same -1 convention as POSIX wait(2).
const waitAnyChild = -1

// statusNoSuchChild and statusStillRunning are sys_waitpid's two negative
// results short of success, grounded on original_source's rCore-tutorial
// sys_waitpid (which returns -1 for "not a child of mine" and -2 for "exists
// but hasn't exited", leaving the retry loop to user code via sys_yield).
const (
	statusNoSuchChild  = -1
	statusStillRunning = -2
)

// sysWaitPIDImpl implements spec.md §6's waitpid(pid, &status) without
// blocking the caller in the kernel (this kernel has no Blocking state):
// if pid names a specific child, it either reaps it (if Exited) or reports
// "still running" for the caller to retry after a sys_yield; pid ==
// waitAnyChild scans all children for the first Exited one.
func sysWaitPIDImpl(cur *task.Task, pid int, statusAddr uintptr) (int64, trap.Outcome) {
	var child *task.Task
	if pid == waitAnyChild {
		child = task.FindAnyExitedChild(cur)
		if child == nil {
			if len(cur.Children) == 0 {
				return statusNoSuchChild, trap.Continue
			}
			return statusStillRunning, trap.Continue
		}
	} else {
		child = task.FindChild(cur, task.PID(pid))
		if child == nil {
			return statusNoSuchChild, trap.Continue
		}
		if child.State != task.Exited {
			return statusStillRunning, trap.Continue
		}
	}

	reaped := child.PID
	exitCode := int32(child.ExitCode)
	if statusAddr != 0 {
		var buf [4]byte
		buf[0] = byte(exitCode)
		buf[1] = byte(exitCode >> 8)
		buf[2] = byte(exitCode >> 16)
		buf[3] = byte(exitCode >> 24)
		_ = cur.MemorySet().CopyOut(mem.VirtAddr(statusAddr), buf[:])
	}
	task.Reap(cur, child)
	return int64(reaped), trap.Continue
}

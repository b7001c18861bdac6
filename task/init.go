package task

import (
	"rvkernel/arch/riscv64"
	"rvkernel/hal/sbi"
	"rvkernel/kernel/kfmt"
	"rvkernel/trap"
)

// Init wires task's scheduler into trap's hook variables, the boot-time
// step that lets Dispatch hand control back to the scheduler without trap
// importing task directly (see trap.SatpOf's doc comment on why). Must run
// after trap.Init and before RunLoop.
func Init() {
	trap.SatpOf = satpOf
	trap.OnTimer = onTimer
	trap.OnPageFault = onPageFault
	trap.OnFault = onFault
	trap.ScheduleNextFn = scheduleNext
}

func satpOf(ctx *trap.Context) uint64 {
	t := CurrentTask()
	if t == nil {
		return 0
	}
	return t.Satp()
}

// onTimer realizes spec.md §4.4's "timer interrupts are accepted and
// recorded but do not force a context switch in this design (no
// preemption)": it lets sbi/timer.go advance its tick count and arm the
// next deadline, then resumes whichever task was already running.
func onTimer(ctx *trap.Context) trap.Outcome {
	sbi.OnTick(riscv64.ReadTimeFn())
	return trap.Continue
}

const (
	// exitCodeBadAddress encodes a user fault caused by an unmapped or
	// otherwise inaccessible virtual address, spec.md §7's "user
	// fault... recording an exit code that encodes the cause".
	exitCodeBadAddress = -2
	// exitCodeIllegalTrap encodes every other user-mode fault this
	// kernel terminates a task for (illegal instruction, misaligned
	// access, store to a read-only page).
	exitCodeIllegalTrap = -3
)

// sppBit is SSTATUS.SPP: set if the trap that brought ctx here was taken
// from supervisor mode, clear if it was taken from user mode. Dispatch's
// kernel-fault/user-fault classification (spec.md §7) hinges on this bit.
const sppBit = uint64(1) << 8

func fromSupervisorMode(ctx *trap.Context) bool { return ctx.Sstatus&sppBit != 0 }

// onPageFault classifies a page fault as a user fault (terminate just the
// offending task) unless it was taken from supervisor mode, which spec.md
// §7 calls a kernel fault: fatal, log and shut down.
func onPageFault(ctx *trap.Context, faultAddr uintptr, cause trap.Cause) trap.Outcome {
	if fromSupervisorMode(ctx) {
		kfmt.Panic("page fault while running kernel code")
	}
	t := CurrentTask()
	kfmt.Printf("[task] pid %d terminated: page fault at %#x\n", t.PID, faultAddr)
	t.ExitCode = exitCodeBadAddress
	return trap.Terminate
}

// onFault handles every synchronous exception Dispatch doesn't classify as
// a syscall or page fault (illegal instruction, misaligned access, ...),
// applying the same supervisor/user split as onPageFault.
func onFault(ctx *trap.Context, cause trap.Cause) trap.Outcome {
	if fromSupervisorMode(ctx) {
		kfmt.Panic("unexpected trap from supervisor mode")
	}
	t := CurrentTask()
	kfmt.Printf("[task] pid %d terminated: trap cause %d\n", t.PID, cause)
	t.ExitCode = exitCodeIllegalTrap
	return trap.Terminate
}

// scheduleNext implements the task-side half of spec.md §4.4's context
// switch: it records the outgoing state transition (Running -> Ready on
// Reschedule, Running -> Exited on Terminate) and hands the hart back to
// Manager.RunLoop via switchTo. For Reschedule this call blocks here,
// possibly for a long time, and returns ctx unchanged once this task is
// dispatched again. For Terminate it never returns: nothing will ever
// switchTo back into a task's ctx once RunLoop has reclaimed it.
func scheduleNext(ctx *trap.Context, terminate bool) *trap.Context {
	cur := CurrentTask()
	if cur == nil {
		return ctx
	}

	if terminate {
		cur.State = Exited
	} else {
		cur.State = Ready
	}

	switchTo(&cur.ctx, &theProcessor.schedulerCtx)
	return ctx
}

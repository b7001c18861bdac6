package trap

import (
	"rvkernel/kernel"
	"rvkernel/kernel/kfmt"
)

// Cause is a decoded RISC-V scause value: a trap kind plus whether it was
// an interrupt.
type Cause uint64

const (
	causeInterruptBit = Cause(1) << 63

	// Exception causes (scause with the interrupt bit clear).
	CauseInstructionMisaligned Cause = 0
	CauseInstructionFault      Cause = 1
	CauseIllegalInstruction    Cause = 2
	CauseBreakpoint            Cause = 3
	CauseLoadMisaligned        Cause = 4
	CauseLoadFault             Cause = 5
	CauseStoreMisaligned       Cause = 6
	CauseStoreFault            Cause = 7
	CauseUserEnvCall           Cause = 8
	CauseInstructionPageFault  Cause = 12
	CauseLoadPageFault         Cause = 13
	CauseStorePageFault        Cause = 15

	// Interrupt causes (scause with the interrupt bit set); the raw
	// constants below are the low bits only, combine with IsInterrupt.
	CauseSupervisorTimer Cause = 5
)

// IsInterrupt reports whether raw (an scause value as read from the CSR)
// represents an interrupt rather than a synchronous exception.
func IsInterrupt(raw uint64) bool { return Cause(raw)&causeInterruptBit != 0 }

// DecodeCause strips the interrupt bit and returns the cause code.
func DecodeCause(raw uint64) Cause { return Cause(raw) &^ causeInterruptBit }

// Outcome tells task.Manager (via the OnSyscall/OnPageFault/OnTimer hooks
// below) what should happen to the task that owns ctx after a trap has been
// handled.
type Outcome int

const (
	// Continue resumes the same task at its current Context.
	Continue Outcome = iota
	// Reschedule resumes whichever task the scheduler picks next.
	Reschedule
	// Terminate ends the task that owns ctx; spec.md §7's "user fault...
	// classified and the offending task is terminated" behaviour.
	Terminate
)

// readScauseFn and readStvalFn are mocked by tests; the real
// implementations come from arch/riscv64's CSR reads, wired by the kernel's
// boot sequence to avoid a direct import cycle risk between trap and
// arch/riscv64 (there isn't one today, but the indirection matches the
// teacher's readCR2Fn pattern in kernel/mm/vmm/fault.go regardless).
var (
	readScauseFn func() uint64
	readStvalFn  func() uint64

	// OnPageFault, OnTimer and OnFault are wired by task.Init, and
	// OnSyscall by cmd/kernel's boot sequence (syscall imports task, so
	// wiring it from task.Init would cycle) so Dispatch can hand control
	// back to the scheduler without trap importing task or syscall.
	OnSyscall   func(ctx *Context) Outcome
	OnPageFault func(ctx *Context, faultAddr uintptr, cause Cause) Outcome
	OnTimer     func(ctx *Context) Outcome
	OnFault     func(ctx *Context, cause Cause) Outcome
)

var errUnhandledTrap = &kernel.Error{Module: "trap", Message: "unhandled trap cause"}

// resumeFn is mocked by tests so Dispatch can be exercised without the
// asm-backed Resume falling into an SRET. When compiling the kernel this
// indirection disappears under inlining, the same claim the teacher makes
// for mapFn/switchPDTFn in kernel/mm/vmm.
var resumeFn = Resume

// Dispatch classifies the trap that brought ctx here and routes it to the
// right handler hook, then resumes a task per that hook's Outcome. It never
// returns. This plays the role the teacher's vmm/fault.go pageFaultHandler/
// generalProtectionFaultHandler pair plays for amd64 (classify-and-act on a
// trapped error code), generalized to route per-task rather than always
// calling kfmt.Panic: in this kernel only faults raised while already
// running kernel code panic the way the teacher's do.
func Dispatch(ctx *Context) {
	raw := readScauseFn()
	var outcome Outcome

	switch {
	case IsInterrupt(raw):
		switch DecodeCause(raw) {
		case CauseSupervisorTimer:
			outcome = callOr(OnTimer, ctx, Reschedule)
		default:
			outcome = Continue
		}

	case DecodeCause(raw) == CauseUserEnvCall:
		ctx.Sepc += 4 // ecall is always 4 bytes; resume after it
		outcome = callOr(OnSyscall, ctx, Continue)

	case isPageFault(DecodeCause(raw)):
		addr := uintptr(readStvalFn())
		if OnPageFault != nil {
			outcome = OnPageFault(ctx, addr, DecodeCause(raw))
		} else {
			kfmt.Panic(errUnhandledTrap)
		}

	default:
		if OnFault != nil {
			outcome = OnFault(ctx, DecodeCause(raw))
		} else {
			kfmt.Panic(errUnhandledTrap)
		}
	}

	next := resolveOutcome(ctx, outcome)
	resumeFn(next)
}

func isPageFault(c Cause) bool {
	switch c {
	case CauseInstructionPageFault, CauseLoadPageFault, CauseStorePageFault:
		return true
	default:
		return false
	}
}

func callOr(fn func(ctx *Context) Outcome, ctx *Context, def Outcome) Outcome {
	if fn == nil {
		return def
	}
	return fn(ctx)
}

// ScheduleNextFn resolves an Outcome of Reschedule or Terminate into the
// Context of whichever task should run next, wired by task.Manager.
var ScheduleNextFn func(current *Context, terminate bool) *Context

func resolveOutcome(ctx *Context, outcome Outcome) *Context {
	switch outcome {
	case Continue:
		return ctx
	case Terminate:
		if ScheduleNextFn != nil {
			return ScheduleNextFn(ctx, true)
		}
		return ctx
	default: // Reschedule
		if ScheduleNextFn != nil {
			return ScheduleNextFn(ctx, false)
		}
		return ctx
	}
}

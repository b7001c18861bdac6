// Package task implements spec.md Components C and D: per-task kernel
// context and address-space ownership, the voluntary context switch between
// tasks, and the single-hart cooperative scheduler that drives them.
//
// The Task/Manager split plus the separate Processor singleton below is
// grounded on original_source/os/src/task/{task.go,manager.rs,processor.rs}
// (a supplemented feature: spec.md names the scheduler's operations but the
// distillation flattened the original's three-type split into one).
// Context-switch mechanics reuse the teacher's declared-func-plus-.s idiom
// (kernel/cpu/cpu_amd64.go) for the one primitive no portable Go can express:
// swapping the live register set of one goroutine-less kernel thread for
// another's.
package task

// SwitchContext holds exactly the callee-saved register set RV64's calling
// convention requires a function to preserve across a call: ra, sp and
// s0-s11. This is deliberately much smaller than trap.Context — it is only
// ever touched by switch_riscv64.s during a voluntary task<->task handoff,
// never by a trap, so it only needs to restore enough for execution to
// resume inside __switch's caller.
type SwitchContext struct {
	RA uint64
	SP uint64
	S  [12]uint64
}

// switchTo is implemented in switch_riscv64.s. It saves the caller's
// callee-saved registers into *from, restores them from *to, and returns
// into whatever *to.RA points at — which, the first time a task runs, is
// firstRunTrampoline rather than a real return address, so that the first
// "return" from switchTo lands in Go code that starts the task via the trap
// return path instead of resuming a call that never happened.
func switchTo(from, to *SwitchContext)

// firstRunTrampolineAddr returns the address switchTo should install as a
// new task's initial RA so that its first scheduling lands in
// firstRunTrampoline instead of underflowing a call stack that was never
// built.
func firstRunTrampolineAddr() uintptr

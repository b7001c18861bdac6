package task

import "rvkernel/trap"

// startScheduled is switch_riscv64.s's firstRunTrampoline CALL target: the
// Go function a brand new task's first switchTo lands in, since its
// SwitchContext.RA was seeded to firstRunTrampolineAddr() rather than a
// real return address. It hands the hart straight to the trampoline's
// __restore half, which never returns (it SRETs into user mode).
func startScheduled() {
	trap.Resume(CurrentTask().TrapContext())
}

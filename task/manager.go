package task

import (
	"rvkernel/arch/riscv64"
	"rvkernel/hal/sbi"
	"rvkernel/kernel"
	"rvkernel/kernel/kfmt"
	"rvkernel/kernel/sync"
	"rvkernel/mem/vmm"
)

// Manager owns the fixed-size task ring seeded at boot from the embedded
// application manifest, plus the current-task index, realizing spec.md
// §3's "task manager / scheduler state" and §4.4's run_loop.
//
// Grounded on original_source/os/src/task/scheduler.rs's FiFoScheduler,
// simplified from its dynamically-growing ready VecDeque to the fixed-size
// ring spec.md §3 actually calls for, and guarded by the teacher's
// Spinlock (kernel/sync) the way spec.md §5 requires even though the
// single-hart invariant means contention never occurs.
type Manager struct {
	mu      sync.Spinlock
	tasks   []*Task
	current int
}

var theManager Manager

// Spawn parses image, builds a new Task, and appends it to the scheduler's
// ring in state Ready. Used both by boot to seed the initial manifest and,
// later, by the fork/exec syscall bodies in syscall/process.go.
func Spawn(name string, image []byte) (*Task, *kernel.Error) {
	t, err := New(name, image)
	if err != nil {
		return nil, err
	}
	theManager.mu.Acquire()
	theManager.tasks = append(theManager.tasks, t)
	theManager.mu.Release()
	return t, nil
}

// pickReady searches the ring starting just after the current index for
// the first Ready task, matching spec.md §4.4's run_loop exactly.
func (m *Manager) pickReady() *Task {
	m.mu.Acquire()
	defer m.mu.Release()

	n := len(m.tasks)
	for i := 1; i <= n; i++ {
		idx := (m.current + i) % n
		if m.tasks[idx].State == Ready {
			m.current = idx
			return m.tasks[idx]
		}
	}
	return nil
}

func (m *Manager) allExited() bool {
	m.mu.Acquire()
	defer m.mu.Release()

	if len(m.tasks) == 0 {
		return false
	}
	for _, t := range m.tasks {
		if t.State != Exited {
			return false
		}
	}
	return true
}

// reclaim frees a just-exited task's resources immediately, but only if
// nothing will ever call sys_waitpid for it: a task with a live parent is
// left in the ring, still Exited (pickReady already skips non-Ready
// entries), until Reap collects its exit code on the parent's behalf. A
// task with no parent (spawned directly by loader.Bootstrap, never forked)
// has nobody to wait for it, so it is reclaimed here instead.
func (m *Manager) reclaim(t *Task) {
	if t.ParentPID != NoParent {
		return
	}
	t.memSet.Destroy()
	vmm.FreeKernelStack(int(t.PID))
	DeallocPID(t.PID)
}

// RunLoop is spec.md §4.4's run_loop: forever, search the ring for the next
// Ready task; if none exists, idle (or shut down, via SBI, once every task
// has exited); otherwise dispatch it and wait for the switchTo to return
// control to this frame, which happens exactly when that task (or whichever
// task eventually ran in its place through further dispatches) yields or
// exits. Never returns.
func RunLoop() {
	for {
		next := theManager.pickReady()
		if next == nil {
			if theManager.allExited() {
				kfmt.Printf("[task] all tasks exited, shutting down\n")
				sbi.Shutdown()
			}
			riscv64.WfiFn()
			continue
		}

		next.State = Running
		setCurrentTask(next)
		switchTo(&theProcessor.schedulerCtx, &next.ctx)

		if finished := CurrentTask(); finished != nil && finished.State == Exited {
			theManager.reclaim(finished)
		}
	}
}

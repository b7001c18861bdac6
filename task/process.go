package task

import (
	"unsafe"

	"rvkernel/arch/riscv64"
	"rvkernel/kernel"
	"rvkernel/mem/vmm"
)

// Fork builds a child of parent: a deep copy of parent's address space
// (MemorySet.Clone), a fresh PID and kernel stack, and a trap context
// copied from parent's own except for the register conventionally carrying
// a syscall's return value, which is zeroed so the child's sys_fork appears
// to return 0 while the parent's appears to return the child's PID. The
// child is returned in state Ready; the caller (syscall/process.go's
// sys_fork) is responsible for adding it to the scheduler via Spawn.
//
// Grounded on original_source/os/src/task/task.rs's TaskControlBlock::fork,
// generalized from its Arc<Inner> COW-of-bookkeeping split (this kernel has
// no Rc/Arc) to plain struct copies, and from its page-table CoW-less
// "translated_byte_buffer" eager copy (spec.md's Non-goals exclude
// copy-on-write).
func Fork(parent *Task) (*Task, *kernel.Error) {
	ms, err := parent.memSet.Clone()
	if err != nil {
		return nil, err
	}

	pid := AllocPID()
	kernelTop, err := vmm.AllocKernelStack(int(pid))
	if err != nil {
		ms.Destroy()
		DeallocPID(pid)
		return nil, err
	}

	trapCtxPhys, err := ms.MapTrapContext()
	if err != nil {
		ms.Destroy()
		vmm.FreeKernelStack(int(pid))
		DeallocPID(pid)
		return nil, err
	}
	if err := ms.MapTrampoline(trampolineFrame); err != nil {
		ms.Destroy()
		vmm.FreeKernelStack(int(pid))
		DeallocPID(pid)
		return nil, err
	}

	child := &Task{
		PID:         pid,
		Name:        parent.Name,
		State:       Ready,
		ParentPID:   parent.PID,
		memSet:      ms,
		trapCtxPhys: trapCtxPhys,
		kernelTop:   kernelTop,
	}

	*child.TrapContext() = *parent.TrapContext()
	child.TrapContext().KernelSatp = riscv64.MakeSatp(uint64(vmm.KernelSpace.PageTable().Root()))
	child.TrapContext().KernelSp = uint64(kernelTop)
	child.TrapContext().X[10] = 0 // a0: fork's return value in the child
	// The struct copy above also copied parent's KernelSelf; child's trap
	// context lives at a different physical frame, so its own address must
	// be re-derived rather than inherited.
	child.TrapContext().KernelSelf = uint64(uintptr(unsafe.Pointer(child.TrapContext())))

	child.ctx = SwitchContext{RA: uint64(firstRunTrampolineAddr()), SP: uint64(kernelTop)}

	parent.Children = append(parent.Children, child.PID)
	return child, nil
}

// AddChild registers t as already known to theManager's ring, the way
// Spawn does for a directly-loaded task. Used by syscall/process.go's
// sys_fork after Fork has built the child.
func AddChild(t *Task) {
	theManager.mu.Acquire()
	theManager.tasks = append(theManager.tasks, t)
	theManager.mu.Release()
}

// FindChild returns pid's Task if it is one of parent's children,
// regardless of state. Used by sys_waitpid to validate its argument before
// deciding whether to reap or report "still running".
func FindChild(parent *Task, pid PID) *Task {
	for _, c := range parent.Children {
		if c == pid {
			return findByPID(pid)
		}
	}
	return nil
}

// FindAnyExitedChild returns the first of parent's children found in state
// Exited, or nil if none have exited yet. Used by sys_waitpid(-1, ...).
func FindAnyExitedChild(parent *Task) *Task {
	for _, pid := range parent.Children {
		if t := findByPID(pid); t != nil && t.State == Exited {
			return t
		}
	}
	return nil
}

func findByPID(pid PID) *Task {
	theManager.mu.Acquire()
	defer theManager.mu.Release()
	for _, t := range theManager.tasks {
		if t.PID == pid {
			return t
		}
	}
	return nil
}

// Reap removes child from the scheduler's ring and its parent's Children
// list and reclaims its resources, once its exit code has been collected by
// sys_waitpid. Unlike the implicit reclaim RunLoop performs for a task that
// scheduled itself away, this runs on the waiting parent's own call stack:
// child is guaranteed already Exited (and therefore not using its own
// kernel stack) by the time sys_waitpid calls this.
func Reap(parent *Task, child *Task) {
	theManager.mu.Acquire()
	for i, t := range theManager.tasks {
		if t == child {
			theManager.tasks = append(theManager.tasks[:i], theManager.tasks[i+1:]...)
			break
		}
	}
	theManager.mu.Release()

	for i, pid := range parent.Children {
		if pid == child.PID {
			parent.Children = append(parent.Children[:i], parent.Children[i+1:]...)
			break
		}
	}

	child.memSet.Destroy()
	vmm.FreeKernelStack(int(child.PID))
	DeallocPID(child.PID)
}

package task

import (
	"rvkernel/arch/riscv64"
	"rvkernel/elf"
	"rvkernel/kernel"
	"rvkernel/mem"
	"rvkernel/mem/vmm"
	"rvkernel/trap"
)

// State is one of the three statuses spec.md §3 allows a task to hold.
type State int

const (
	// Ready marks a task eligible for the next dispatch.
	Ready State = iota
	// Running marks the task currently executing on the single hart;
	// spec.md §8 requires count(tasks in Running) <= 1 at all times.
	Running
	// Exited marks a task that called exit or was terminated by a fault;
	// terminal, never transitions out of.
	Exited
)

func (s State) String() string {
	switch s {
	case Ready:
		return "Ready"
	case Running:
		return "Running"
	case Exited:
		return "Exited"
	default:
		return "unknown"
	}
}

// Task is the runtime representation of one application instance, realizing
// spec.md §3's Task record: a status, an owned memory set, the trap-context
// page's address in both the task's own address space and the kernel's
// directly-dereferenceable physical view, its kernel-stack handle, its
// cached kernel-side context, and its exit code.
//
// Grounded on original_source/os/src/task/task.rs's TaskControlBlock, with
// the signal/process-group/Arc<Weak<>> family bookkeeping that spec.md's
// Non-goals exclude (signals) or that belongs to syscall/process.go instead
// (parent/children, named there per spec.md §3 SUPPLEMENTED FEATURES)
// dropped from this type.
type Task struct {
	PID  PID
	Name string

	State    State
	ExitCode int

	// ParentPID and Children realize the process-tree bookkeeping
	// SPEC_FULL.md §3 supplements from original_source's TaskControlBlock
	// (parent/children), needed by sys_fork/sys_waitpid. NoParent marks a
	// task spawned directly by the boot loader rather than by fork.
	ParentPID PID
	Children  []PID

	memSet      *vmm.MemorySet
	trapCtxPhys mem.PhysAddr
	kernelTop   mem.VirtAddr

	ctx SwitchContext
}

// NoParent is the ParentPID value for a task with no fork-parent.
const NoParent PID = -1

// trampolineFrame is the physical frame backing the trampoline page, shared
// by every task's address space at the identical virtual address (spec.md
// §4.1's invariant). Set once during boot by SetTrampolineFrame.
var trampolineFrame mem.PPN

// SetTrampolineFrame records the trampoline's physical frame so New can map
// it into every task it creates afterwards. Must be called once, after
// trap.InstallTrampoline, before the first call to New.
func SetTrampolineFrame(f mem.PPN) { trampolineFrame = f }

// New parses image as an ELF executable and builds a fresh Task around it:
// a user address space via vmm.NewUserSpace, a kernel stack slot keyed by
// its PID, and an initial trap context primed to enter the ELF's entry
// point in user mode. The task is returned in state Ready; the caller
// (Spawn) is responsible for adding it to the scheduler's ring.
func New(name string, image []byte) (*Task, *kernel.Error) {
	img, err := elf.Load(image)
	if err != nil {
		return nil, err
	}

	ms, userSP, trapCtxPhys, err := vmm.NewUserSpace(img, trampolineFrame)
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

	t := &Task{
		PID:         pid,
		Name:        name,
		State:       Ready,
		ParentPID:   NoParent,
		memSet:      ms,
		trapCtxPhys: trapCtxPhys,
		kernelTop:   kernelTop,
	}

	kernelSatp := riscv64.MakeSatp(uint64(vmm.KernelSpace.PageTable().Root()))
	t.TrapContext().SetEntry(img.Entry, userSP, kernelSatp, uint64(kernelTop), trap.TrapHandlerAddr())
	t.ctx = SwitchContext{RA: uint64(firstRunTrampolineAddr()), SP: uint64(kernelTop)}

	return t, nil
}

// Satp returns the SATP value that activates this task's own address space,
// looked up by trap.SatpOf when the trampoline's __restore half needs to
// know which user page table to install.
func (t *Task) Satp() uint64 {
	return riscv64.MakeSatp(uint64(t.memSet.PageTable().Root()))
}

// TrapContext returns a kernel-side pointer to this task's trap context,
// valid regardless of which address space is currently active, since it
// overlays the physical frame directly rather than going through the
// task's own (possibly inactive) page table.
func (t *Task) TrapContext() *trap.Context { return trap.AtPhysAddr(uintptr(t.trapCtxPhys)) }

// MemorySet returns the task's owned address space, for syscalls that need
// to translate or copy through a user pointer (CopyIn/CopyOut).
func (t *Task) MemorySet() *vmm.MemorySet { return t.memSet }

// Exec replaces t's address space with a fresh one built from image,
// keeping its PID, kernel stack and process-tree links but discarding
// everything else: realizes sys_exec (SPEC_FULL.md §3's "ELF-swap exec").
// The old memory set is torn down only after the new one is built, so a
// malformed image leaves t running unchanged rather than half-destroyed.
func (t *Task) Exec(image []byte) *kernel.Error {
	img, err := elf.Load(image)
	if err != nil {
		return err
	}

	ms, userSP, trapCtxPhys, err := vmm.NewUserSpace(img, trampolineFrame)
	if err != nil {
		return err
	}

	old := t.memSet
	t.memSet = ms
	t.trapCtxPhys = trapCtxPhys
	old.Destroy()

	kernelSatp := riscv64.MakeSatp(uint64(vmm.KernelSpace.PageTable().Root()))
	t.TrapContext().SetEntry(img.Entry, userSP, kernelSatp, uint64(t.kernelTop), trap.TrapHandlerAddr())
	return nil
}

package vmm

import (
	"rvkernel/kernel"
	"rvkernel/mem"
	"rvkernel/mem/pagetable"
)

// KernelStackSize is the size of one task's kernel stack slot, used while
// that task's own Go call chain (trapGoEntry through Dispatch and whatever
// syscall handler it reaches) is suspended off-CPU.
const KernelStackSize = 4 * mem.PageSize

// kernelStackGuardSize separates consecutive slots so a stack overflow
// faults against an unmapped guard page rather than corrupting the next
// task's stack, the same per-slot layout spec.md §3's "Kernel memory set"
// describes ("at each task's slot, an R|W framed kernel stack").
const kernelStackGuardSize = mem.PageSize

// KernelStackRange returns the [base, top) virtual range of the kernel
// stack slot belonging to task index idx (its PID), counting down from
// mem.KernelStackAreaTop so slot 0 sits highest.
func KernelStackRange(idx int) (base, top mem.VirtAddr) {
	stride := mem.VirtAddr(KernelStackSize + kernelStackGuardSize)
	top = mem.KernelStackAreaTop - mem.VirtAddr(idx)*stride
	base = top - mem.VirtAddr(KernelStackSize)
	return base, top
}

// AllocKernelStack maps idx's kernel stack slot into the kernel address
// space and returns its top (the initial kernel stack pointer for a task
// about to be constructed).
func AllocKernelStack(idx int) (mem.VirtAddr, *kernel.Error) {
	base, top := KernelStackRange(idx)
	area := NewFramedArea(base, top, pagetable.FlagRead|pagetable.FlagWrite)
	if err := KernelSpace.InsertArea(area); err != nil {
		return 0, err
	}
	return top, nil
}

// FreeKernelStack unmaps and frees idx's kernel stack slot. Called only
// from task.Manager's run loop, after a switchTo away from the exiting
// task's own stack has already returned control to the scheduler — never
// from the exiting task itself, which would otherwise free the memory it is
// still executing on.
func FreeKernelStack(idx int) {
	base, _ := KernelStackRange(idx)
	KernelSpace.RemoveAreaContaining(base)
}

// Package trap implements spec.md Component B: the trampoline page that
// survives the SATP switch on every user/kernel boundary crossing, and the
// fixed-layout Context record the trampoline uses to hand registers across
// that boundary.
//
// The context layout and the two-page (trampoline + per-task context)
// handoff design is grounded on original_source/os/src/trap/context.rs and
// .../trap/trampoline.S; the teacher has nothing resembling a trampoline
// (amd64 interrupt gates never change the active page table), so this
// component is built in the teacher's *idiom* — declared-no-body Go funcs
// backed by a hand-written .s file, exactly like kernel/cpu/cpu_amd64.go —
// applied to a mechanism the teacher itself never needed.
package trap

import "unsafe"

// Context is the fixed 38-word record trampoline_riscv64.s reads from and
// writes to TrapContextVA. Field order matters: the assembly indexes into
// it by byte offset, not by name, so any change here must be mirrored in
// trampoline_riscv64.s's #define block.
type Context struct {
	// X holds the 32 general purpose registers x0-x31 as they stood at
	// the moment of the trap (x0 is always zero and is saved purely so
	// the offsets stay uniform).
	X [32]uint64

	// Sstatus and Sepc are the privileged state the trampoline cannot
	// leave in CSRs across the SATP switch: the privilege mode bits and
	// the resume PC.
	Sstatus uint64
	Sepc uint64

	// KernelSatp is the SATP value for the kernel's own address space,
	// so __alltraps can switch back to it immediately after saving user
	// registers, before any Go code (which assumes kernel mappings) runs.
	KernelSatp uint64

	// KernelSp is the top of this task's kernel stack, so __alltraps can
	// switch the stack pointer before calling into Go.
	KernelSp uint64

	// TrapHandler is the kernel virtual address of trapHandlerEntry,
	// read by __alltraps so it can jump there without needing any symbol
	// resolution of its own (the trampoline page is mapped identically
	// in every address space, but it must not assume it can reach kernel
	// symbols by name once it has switched satp back).
	TrapHandler uint64

	// KernelSelf is this same Context's address under the kernel's own
	// (physical-identity) mapping, read by __alltraps right before it
	// switches satp to the kernel space and handed to trapHandlerEntry in
	// place of the TrapContextVA address the save phase used: that VA is
	// mapped only in the task's user page table, not the kernel's, so it
	// cannot be dereferenced once the kernel address space is active.
	KernelSelf uint64
}

// SetEntry initializes a freshly mapped Context for a task about to start
// running its ELF entry point for the first time: X[2] (sp) is the user
// stack top, Sepc is the entry PC, and Sstatus is cleared to U-mode with
// interrupts enabled once the task returns from its first trap.
func (c *Context) SetEntry(entry, userSP, kernelSatp, kernelSP, trapHandler uint64) {
	*c = Context{}
	c.X[2] = userSP
	c.Sepc = entry
	c.Sstatus = sstatusUserWithInterrupts
	c.KernelSatp = kernelSatp
	c.KernelSp = kernelSP
	c.TrapHandler = trapHandler
	// c is already the kernel-identity overlay (callers reach SetEntry via
	// AtPhysAddr), so its own address doubles as KernelSelf.
	c.KernelSelf = uint64(uintptr(unsafe.Pointer(c)))
}

// sstatusUserWithInterrupts is SSTATUS with SPP cleared (return to U-mode)
// and SPIE set (interrupts enabled once back in U-mode).
const sstatusUserWithInterrupts = uint64(1) << 5

// AtPhysAddr overlays a *Context on top of the physical page backing a
// task's trap context, the same unsafe-pointer-over-a-frame technique the
// teacher's vmm package uses for its page table entries.
func AtPhysAddr(addr uintptr) *Context {
	return (*Context)(unsafe.Pointer(addr))
}

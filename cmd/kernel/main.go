// Command kernel is the RV64 supervisor-mode teaching kernel's entry point.
//
// main itself is a thin trampoline, the same shape as the teacher's root
// boot.go (func main() { kernel.Kmain() }): its only job is to exist as a
// Go symbol the linker cannot dead-code-eliminate, so that whatever
// hand-written rt0 assembly gets the hart into Go code in the first place
// (setting up an initial stack and g0, as the teacher's rt0 does for amd64)
// has somewhere to jump. That rt0 stage and its linker script are outside
// this retrieval pack's Go-only scope (see DESIGN.md); Kmain assumes it is
// entered in supervisor mode, on a valid stack, with paging still disabled.
package main

import (
	"rvkernel/arch/riscv64"
	"rvkernel/hal/sbi"
	"rvkernel/kernel/goruntime"
	"rvkernel/kernel/kfmt"
	"rvkernel/loader"
	"rvkernel/mem"
	"rvkernel/mem/pmm"
	"rvkernel/mem/vmm"
	"rvkernel/syscall"
	"rvkernel/task"
	"rvkernel/trap"
)

// kernelImageReserve bounds how much physical memory above KernBase pmm
// treats as already spoken for by the kernel's own text/data/bss, standing
// in for the linker-provided ekernel symbol spec.md's Link-time layout
// names (see DESIGN.md's Open Questions: this snapshot has no linker
// script to provide it). 16MiB is generous headroom for this kernel's own
// image and its initial goruntime heap reservation.
const kernelImageReserve = mem.PhysAddr(16 * 1024 * 1024)

func main() {
	Kmain()
}

// Kmain brings the kernel up to the point of handing off to the scheduler:
// console, physical frame allocator, the kernel's own address space and the
// shared trampoline mapping, trap dispatch, the Go runtime's allocator
// shim, the task manager's trap hooks, and finally the embedded application
// manifest. Never returns.
func Kmain() {
	kfmt.SetShutdownFunc(sbi.Shutdown)
	sbi.InstallConsole()
	kfmt.Printf("rvkernel: booting\n")

	pmm.Init(mem.KernBase+kernelImageReserve, mem.PhysTop)

	trampolineFrame, kerr := pmm.AllocFrame()
	if kerr != nil {
		kfmt.Panic(kerr)
	}
	trap.InstallTrampoline(uintptr(trampolineFrame.Addr()))
	task.SetTrampolineFrame(mem.PPN(trampolineFrame))

	kernelSpace, kerr := vmm.NewKernelSpace(mem.PPN(trampolineFrame))
	if kerr != nil {
		kfmt.Panic(kerr)
	}
	vmm.SetKernelSpace(kernelSpace)
	riscv64.WriteSatpFn(riscv64.MakeSatp(uint64(kernelSpace.PageTable().Root())))
	riscv64.SfenceVMAFn()

	trap.SetTrampolineEntryVA(uint64(mem.TrampolineVA))
	trap.SetTrapContextVA(uint64(mem.TrapContextVA))
	trap.Init()

	if kerr := goruntime.Init(); kerr != nil {
		kfmt.Panic(kerr)
	}

	task.Init()
	trap.OnSyscall = syscall.Dispatch

	if err := sbi.SetNextTimer(riscv64.ReadTimeFn()); err != nil {
		kfmt.Printf("rvkernel: timer arm failed: %s\n", err.Error())
	}

	loader.Bootstrap()

	riscv64.EnableInterrupts()
	kfmt.Printf("rvkernel: entering run loop\n")
	task.RunLoop()
}

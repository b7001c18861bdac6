package trap

import (
	"rvkernel/kernel"
)

// trampolineCodeStart/End bracket the __alltraps/__restore blob in
// trampoline_riscv64.s; trapHandlerEntryAddr locates the ABI shim that
// bridges its raw JALR into a proper Go call. All three are declared
// without a body here and implemented in that file, the same split the
// teacher uses for kernel/cpu/cpu_amd64.go.
func trampolineCodeStart() uintptr
func trampolineCodeEnd() uintptr
func trapHandlerEntryAddr() uintptr

// TrapHandlerAddr returns the kernel virtual address every task's Context
// should record in its TrapHandler field.
func TrapHandlerAddr() uint64 { return uint64(trapHandlerEntryAddr()) }

// InstallTrampoline copies the compiled __alltraps/__restore code into the
// physical frame that will be mapped at mem.TrampolineVA in every address
// space. dst is a kernel-visible (identity-mapped) address for that frame.
func InstallTrampoline(dst uintptr) {
	start, end := trampolineCodeStart(), trampolineCodeEnd()
	kernel.Memcopy(start, dst, end-start)
}

// currentContext is set by Dispatch before calling into trapGoEntry so the
// handler can reach the Context without the asm shim having to pass it
// through a second argument register convention the portable dispatch code
// would need to special-case.
var currentContext *Context

// trapGoEntry is the Go-side trap dispatcher. Its signature is dictated by
// trapHandlerEntry's calling convention (one *Context argument in X10/a0).
// __alltraps hands it ctx.KernelSelf rather than the TrapContextVA address
// it used while saving registers, since by the time this runs satp has
// already switched to the kernel's own page table, which doesn't map
// TrapContextVA.
func trapGoEntry(ctx *Context) {
	currentContext = ctx
	Dispatch(ctx)
}

// SatpOf resolves the SATP value for the address space that owns ctx, used
// by Resume to tell __restore which user page table to switch into. Wired
// by task.Manager (via task.Context, which embeds trap.Context) rather than
// looked up here directly, since trap importing task would create an import
// cycle.
var SatpOf func(ctx *Context) uint64

// trapContextVA is the fixed user-space virtual address (mem.TrapContextVA)
// every task's trap context is mapped at, set once by SetTrapContextVA
// during boot. Kept as a variable rather than importing mem directly, the
// same indirection trampolineEntryVA uses in init.go.
var trapContextVA uint64

// SetTrapContextVA records the virtual address __restore must address the
// Context through once it has switched satp to the task's own page table.
func SetTrapContextVA(va uint64) { trapContextVA = va }

// Resume never returns: it hands ctx to the trampoline's __restore half,
// which installs the owning task's user SATP (looked up via SatpOf),
// restores every register, and SRETs into the task. ctx itself is the
// kernel-side (physical-identity) view, used here only to resolve satp;
// __restore is handed trapContextVA instead, since it dereferences the
// Context only after switching to the task's own page table, which maps
// the context at that fixed VA and nowhere else.
func Resume(ctx *Context) {
	satp := uint64(0)
	if SatpOf != nil {
		satp = SatpOf(ctx)
	}
	resume(uintptr(trapContextVA), satp)
}

// resume is implemented in trampoline_riscv64.s's trampolineRestore, called
// through this small wrapper so its argument marshalling (context address,
// satp) matches Go's ABI0 function-call convention instead of the raw
// JALR convention trampolineCode itself uses to get there.
func resume(ctxAddr uintptr, satp uint64)

package trap

import "rvkernel/arch/riscv64"

// Init wires Dispatch's CSR reads to the real hardware and points stvec at
// the trampoline. Called once per hart during boot, after the trampoline
// frame has been installed and mapped at mem.TrampolineVA.
func Init() {
	readScauseFn = riscv64.ReadScause
	readStvalFn = riscv64.ReadStval
	riscv64.WriteStvec(uint64(trampolineEntryVA))
}

// trampolineEntryVA is set by the kernel's boot sequence to
// mem.TrampolineVA once the trampoline frame is mapped; kept as a variable
// rather than importing mem directly so trap's only hard dependency stays
// on arch/riscv64.
var trampolineEntryVA uint64

// SetTrampolineEntryVA records the virtual address stvec should point to.
func SetTrampolineEntryVA(va uint64) { trampolineEntryVA = va }

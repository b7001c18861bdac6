// Package riscv64 declares the privileged-instruction primitives every
// other package in this kernel needs: CSR reads/writes and the SATP switch
// that activates an address space. Each function is declared without a
// body here and implemented in csr_riscv64.s, the same split the teacher
// uses throughout kernel/cpu/cpu_amd64.go (ActivePDT, SwitchPDT,
// FlushTLBEntry, ReadCR2, Halt) to keep privileged instructions out of
// portable Go and still unit-testable: every exported function below has a
// matching *Fn variable that callers elsewhere in the kernel use instead of
// calling it directly, so tests can swap in a fake.
package riscv64

// SatpModeSv39 selects 3-level paging when written into SATP's top 4 bits.
const SatpModeSv39 = uint64(8) << 60

// MakeSatp builds the value to write into SATP for a root table at ppn
// using Sv39 mode.
func MakeSatp(ppn uint64) uint64 {
	return SatpModeSv39 | (ppn & (1<<44 - 1))
}

// ReadSatp returns the currently active SATP value.
func ReadSatp() uint64

// WriteSatp installs satp as the active page table and fences the TLB. Any
// virtual address translated through the previous table may fault after
// this call returns if it isn't also present in the new one; the single
// exception every caller relies on is the trampoline page, which every
// table maps identically for exactly this reason.
func WriteSatp(satp uint64)

// SfenceVMA flushes every cached address translation. Called instead of a
// single-entry flush (the teacher's FlushTLBEntry) because RV64's sfence.vma
// with x0,x0 is the only form guaranteed available across the SBI+QEMU
// targets this kernel runs on.
func SfenceVMA()

// Wfi halts the hart until the next interrupt, the RISC-V analogue of the
// teacher's cpu.Halt HLT loop, used by the idle task when no task is ready.
func Wfi()

// EnableInterrupts sets SSTATUS.SIE, allowing supervisor-level traps
// (principally the timer) to fire.
func EnableInterrupts()

// DisableInterrupts clears SSTATUS.SIE. Used to bracket the non-reentrant
// sections of the scheduler's run loop the same way the teacher brackets
// its IRQ-sensitive sections with cpu variants on amd64.
func DisableInterrupts()

// ReadTime returns the CLINT mtime counter value as exposed through the
// "time" CSR, used by sbi/timer.go to compute the next timer deadline.
func ReadTime() uint64

// ReadScause returns the supervisor cause register, decoded by
// trap.DecodeCause/IsInterrupt.
func ReadScause() uint64

// ReadStval returns the supervisor trap value register, which holds the
// faulting address for a page fault or the illegal instruction bits for an
// illegal-instruction exception.
func ReadStval() uint64

// WriteStvec installs addr as the trap entry point. The kernel always
// installs TrampolineVA here, never a kernel-space address, since stvec
// must point somewhere mapped in whichever table is active when the trap
// fires.
func WriteStvec(addr uint64)

var (
	// WriteSatpFn, SfenceVMAFn and WfiFn are the mockable indirections
	// mem/pagetable-adjacent and task code call through, matching the
	// teacher's activePDTFn/switchPDTFn pattern in kernel/mm/vmm/pdt.go.
	WriteSatpFn   = WriteSatp
	SfenceVMAFn   = SfenceVMA
	WfiFn         = Wfi
	ReadTimeFn    = ReadTime
)

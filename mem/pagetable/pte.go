// Package pagetable implements the Sv39 (and, under the sv48 build tag,
// Sv48) three/four-level radix page table used by every address space in
// the kernel, realizing spec.md's Address-Space Manager component.
//
// The walk strategy is grounded on Nonepf-xv6-in-go's riscv.go (PX/PTE2PA/
// PA2PTE bit layout) rather than the teacher's amd64 recursive-mapping trick
// in kernel/mm/vmm/pdt.go: RISC-V teaching kernels in this retrieval pack
// keep all of physical RAM identity-mapped inside the kernel's own address
// space, so a page-table walk for *any* table (the kernel's or a task's) can
// dereference a table frame's physical address directly instead of
// installing a temporary recursive mapping first.
package pagetable

import "rvkernel/mem"

// PTEFlag is one bit of a Sv39/Sv48 page table entry.
type PTEFlag uint64

const (
	// FlagValid marks the entry as present.
	FlagValid PTEFlag = 1 << 0
	// FlagRead permits loads through this mapping.
	FlagRead PTEFlag = 1 << 1
	// FlagWrite permits stores through this mapping.
	FlagWrite PTEFlag = 1 << 2
	// FlagExec permits instruction fetch through this mapping.
	FlagExec PTEFlag = 1 << 3
	// FlagUser permits U-mode access to this mapping.
	FlagUser PTEFlag = 1 << 4
	// FlagGlobal marks the mapping as present in every address space
	// (used only for the trampoline page).
	FlagGlobal PTEFlag = 1 << 5
	// FlagAccessed is set by software on first use (RV64GC machines we
	// target do not implement the hardware A/D update extension).
	FlagAccessed PTEFlag = 1 << 6
	// FlagDirty is set by software on first write.
	FlagDirty PTEFlag = 1 << 7

	// leafFlags is the set of flags that mark an entry as a leaf
	// (terminal) PTE rather than a pointer to the next table level.
	leafFlags = FlagRead | FlagWrite | FlagExec
)

const (
	ppnShift = 10
	ppnMask  = uint64(0xfffffffffff) << ppnShift
)

// PTE is one 8-byte Sv39/Sv48 page table entry.
type PTE uint64

// IsValid reports whether the entry is present.
func (e PTE) IsValid() bool { return e&PTE(FlagValid) != 0 }

// IsLeaf reports whether the entry is a leaf mapping rather than a pointer
// to the next table level.
func (e PTE) IsLeaf() bool { return e&PTE(leafFlags) != 0 }

// Has reports whether all of flags are set on the entry.
func (e PTE) Has(flags PTEFlag) bool { return uint64(e)&uint64(flags) == uint64(flags) }

// PPN returns the physical page number this entry points to.
func (e PTE) PPN() mem.PPN { return mem.PPN((uint64(e) & ppnMask) >> ppnShift) }

// newPTE builds a page table entry that points at ppn with the given flags.
func newPTE(ppn mem.PPN, flags PTEFlag) PTE {
	return PTE(uint64(ppn)<<ppnShift | uint64(flags))
}

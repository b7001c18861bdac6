package pagetable

import (
	"rvkernel/kernel"
	"rvkernel/mem"
	"rvkernel/mem/pmm"
	"unsafe"
)

// levels is the number of radix levels walked per lookup: 3 for Sv39. Sv48
// (4 levels) is an unimplemented Open Question; this kernel only builds the
// Sv39 walk below.
var levels = 3

var (
	// ErrNotMapped is returned by Translate/Unmap when the requested
	// virtual page has no mapping.
	ErrNotMapped = &kernel.Error{Module: "pagetable", Message: "virtual page is not mapped"}

	// ErrAlreadyMapped is returned by Map when the target page already
	// has a mapping installed.
	ErrAlreadyMapped = &kernel.Error{Module: "pagetable", Message: "virtual page already mapped"}

	// tableAtFn resolves a physical table frame to the slice of page
	// table entries it holds. On real hardware this is a straight cast
	// of the (identity-mapped) physical address; tests override it with
	// a fake backed by ordinary Go memory so Map/Unmap/Translate can be
	// exercised without an MMU. This mirrors the teacher's ptePtrFn
	// indirection in kernel/mm/vmm/pdt.go.
	tableAtFn = func(ppn mem.PPN) *[512]PTE {
		return (*[512]PTE)(unsafe.Pointer(ppn.Addr()))
	}
)

// PageTable is a single Sv39/Sv48 radix page table tree, rooted at one
// physical frame. Every address space (the kernel's own and each task's
// user address space) owns exactly one PageTable.
type PageTable struct {
	root mem.PPN
}

// New allocates a fresh, zeroed root table.
func New() (*PageTable, *kernel.Error) {
	f, err := pmm.AllocFrame()
	if err != nil {
		return nil, err
	}
	clearTable(mem.PPN(f))
	return &PageTable{root: mem.PPN(f)}, nil
}

// SetTableAccessor overrides how table frames are turned into entry slices
// and returns a function that restores the previous accessor. Exported so
// packages built on top of PageTable (mem/vmm) can swap in a fake-memory
// backing for their own tests without duplicating the indirection.
func SetTableAccessor(fn func(mem.PPN) *[512]PTE) (restore func()) {
	prev := tableAtFn
	tableAtFn = fn
	return func() { tableAtFn = prev }
}

// FromRoot wraps an already-initialized root frame, e.g. the kernel's
// identity-mapped page table set up during early boot.
func FromRoot(root mem.PPN) *PageTable {
	return &PageTable{root: root}
}

// Root returns the physical page number of the root table, suitable for
// encoding into SATP by the caller (hal/sbi or task.Context activation).
func (pt *PageTable) Root() mem.PPN { return pt.root }

func clearTable(ppn mem.PPN) {
	tbl := tableAtFn(ppn)
	for i := range tbl {
		tbl[i] = 0
	}
}

// walk locates the leaf PTE for vpn, optionally allocating intermediate
// tables along the way when create is true. It returns nil if the entry
// does not exist and create is false.
func (pt *PageTable) walk(vpn mem.VPN, create bool) (*PTE, *kernel.Error) {
	tableFrame := pt.root
	for level := 0; level < levels; level++ {
		idx := vpn.Index(uint(levels - 1 - level))
		tbl := tableAtFn(tableFrame)
		pte := &tbl[idx]

		if level == levels-1 {
			return pte, nil
		}

		if !pte.IsValid() {
			if !create {
				return nil, nil
			}
			f, err := pmm.AllocFrame()
			if err != nil {
				return nil, err
			}
			clearTable(mem.PPN(f))
			*pte = newPTE(mem.PPN(f), FlagValid)
		}

		tableFrame = pte.PPN()
	}

	return nil, nil
}

// Map installs a mapping from vpn to ppn with the given flags, allocating
// any missing intermediate tables. FlagValid is added automatically.
func (pt *PageTable) Map(vpn mem.VPN, ppn mem.PPN, flags PTEFlag) *kernel.Error {
	pte, err := pt.walk(vpn, true)
	if err != nil {
		return err
	}
	if pte.IsValid() {
		return ErrAlreadyMapped
	}
	*pte = newPTE(ppn, flags|FlagValid)
	return nil
}

// Remap replaces the flags and target frame of an existing mapping,
// overwriting whatever was there. Used by the CoW-free exec() path to swap
// a task's memory set in place.
func (pt *PageTable) Remap(vpn mem.VPN, ppn mem.PPN, flags PTEFlag) *kernel.Error {
	pte, err := pt.walk(vpn, true)
	if err != nil {
		return err
	}
	*pte = newPTE(ppn, flags|FlagValid)
	return nil
}

// Unmap removes the mapping for vpn.
func (pt *PageTable) Unmap(vpn mem.VPN) *kernel.Error {
	pte, err := pt.walk(vpn, false)
	if err != nil {
		return err
	}
	if pte == nil || !pte.IsValid() {
		return ErrNotMapped
	}
	*pte = 0
	return nil
}

// Translate returns the physical address a virtual address maps to.
func (pt *PageTable) Translate(va mem.VirtAddr) (mem.PhysAddr, *kernel.Error) {
	pte, err := pt.walk(va.VPN(), false)
	if err != nil {
		return 0, err
	}
	if pte == nil || !pte.IsValid() {
		return 0, ErrNotMapped
	}
	return mem.PhysAddr(pte.PPN().Addr()) + mem.PhysAddr(va.Offset()), nil
}

// Lookup returns the leaf PTE for va without allocating, for callers (the
// trap handler's fault classifier) that need the raw flags rather than a
// translated address.
func (pt *PageTable) Lookup(va mem.VirtAddr) (PTE, bool) {
	pte, err := pt.walk(va.VPN(), false)
	if err != nil || pte == nil || !pte.IsValid() {
		return 0, false
	}
	return *pte, true
}

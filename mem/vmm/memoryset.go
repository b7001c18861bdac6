package vmm

import (
	"rvkernel/kernel"
	"rvkernel/mem"
	"rvkernel/mem/pagetable"
	"rvkernel/mem/pmm"
)

// MemorySet is a complete address space: a PageTable plus the bookkeeping
// needed to grow, inspect and tear it down in terms of whole areas instead
// of individual pages. Every task (spec.md Component C) owns exactly one
// MemorySet, and one further MemorySet is shared read-only as the kernel's
// own address space.
type MemorySet struct {
	pt    *pagetable.PageTable
	areas []*MapArea
}

// NewMemorySet allocates a fresh, empty address space.
func NewMemorySet() (*MemorySet, *kernel.Error) {
	pt, err := pagetable.New()
	if err != nil {
		return nil, err
	}
	return &MemorySet{pt: pt}, nil
}

// PageTable returns the underlying page table, for the task's Context to
// encode into SATP on activation.
func (ms *MemorySet) PageTable() *pagetable.PageTable { return ms.pt }

// InsertArea maps area into the address space and records it so it can
// later be located or torn down by address.
func (ms *MemorySet) InsertArea(area *MapArea) *kernel.Error {
	if err := area.mapInto(ms.pt); err != nil {
		return err
	}
	ms.areas = append(ms.areas, area)
	return nil
}

// RemoveAreaContaining unmaps and frees the area that owns va, if any. Used
// to shrink the heap (sbrk with a negative delta) and by the task exit path
// to give back every Framed area's frames as the task is torn down.
func (ms *MemorySet) RemoveAreaContaining(va mem.VirtAddr) {
	vpn := va.VPN()
	for i, a := range ms.areas {
		if vpn >= a.startVPN && vpn < a.endVPN {
			a.unmapFrom(ms.pt)
			ms.areas = append(ms.areas[:i], ms.areas[i+1:]...)
			return
		}
	}
}

// Destroy tears down every area in the set, reclaiming all Framed frames.
// The root page table frame itself is not reclaimed by this call since a
// handful of intermediate table frames allocated by pagetable.Map are not
// individually tracked; this mirrors the teacher's own choice not to
// reclaim PDT bookkeeping frames on process exit (kernel/mm/vmm has no
// teardown path at all) but goes further by at least freeing leaf frames.
func (ms *MemorySet) Destroy() {
	for _, a := range ms.areas {
		a.unmapFrom(ms.pt)
	}
	ms.areas = nil
}

// Clone produces a deep copy of ms: a fresh page table with the same area
// layout, every Framed area backed by newly allocated frames holding a copy
// of the original's contents. Used by task.Fork to give a child task its
// own address space without disturbing the parent's, grounded on
// original_source/os/src/mm/memory_set.rs's MemorySet::from_existing_user —
// spec.md's Non-goals exclude copy-on-write, so this always duplicates
// pages eagerly rather than sharing them read-only.
func (ms *MemorySet) Clone() (*MemorySet, *kernel.Error) {
	out, err := NewMemorySet()
	if err != nil {
		return nil, err
	}
	for _, a := range ms.areas {
		dup := &MapArea{startVPN: a.startVPN, endVPN: a.endVPN, mapType: a.mapType, flags: a.flags}
		if err := out.InsertArea(dup); err != nil {
			out.Destroy()
			return nil, err
		}
		if a.mapType == Framed {
			for i, f := range a.frames {
				src := physSlice(f.Addr(), mem.PageSize)
				dst := physSlice(dup.frames[i].Addr(), mem.PageSize)
				copy(dst, src)
			}
		}
	}
	return out, nil
}

// Translate resolves va to a physical address within this address space.
func (ms *MemorySet) Translate(va mem.VirtAddr) (mem.PhysAddr, *kernel.Error) {
	return ms.pt.Translate(va)
}

// CopyIn copies len(dst) bytes from va in this address space into dst,
// which lives in kernel memory. Used by syscalls that read a user buffer
// (sys_write's argument, sys_exec's path string).
func (ms *MemorySet) CopyIn(dst []byte, va mem.VirtAddr) *kernel.Error {
	return ms.copy(dst, va, true)
}

// CopyOut copies src, which lives in kernel memory, into va within this
// address space. Used by syscalls that write a user buffer (sys_read's
// destination).
func (ms *MemorySet) CopyOut(va mem.VirtAddr, src []byte) *kernel.Error {
	return ms.copy(src, va, false)
}

func (ms *MemorySet) copy(buf []byte, va mem.VirtAddr, in bool) *kernel.Error {
	remaining := buf
	cur := va
	for len(remaining) > 0 {
		pa, err := ms.pt.Translate(cur)
		if err != nil {
			return err
		}
		n := int(mem.PageSize - mem.VirtAddr(cur).Offset())
		if n > len(remaining) {
			n = len(remaining)
		}
		phys := physSlice(pa, n)
		if in {
			copy(remaining[:n], phys)
		} else {
			copy(phys, remaining[:n])
		}
		remaining = remaining[n:]
		cur += mem.VirtAddr(n)
	}
	return nil
}

// physSliceFn resolves a physical address/length to a byte slice. Tests
// override this together with pagetable's tableAtFn to exercise CopyIn/
// CopyOut without real physical memory.
var physSliceFn = func(pa mem.PhysAddr, n int) []byte {
	return unsafeSliceAt(uintptr(pa), n)
}

func physSlice(pa mem.PhysAddr, n int) []byte { return physSliceFn(pa, n) }

// NewKernelSpace builds the kernel's own address space: an Identical
// mapping over all of physical RAM plus the platform's MMIO windows, and a
// Global mapping of the trampoline page. This plays the role of the
// teacher's setupPDTForKernel, generalized from "map each ELF section with
// section-derived flags" to "identity-map everything, since an RV64
// teaching kernel has no NX-by-default ambitions and spec.md's Non-goals
// exclude demand paging".
func NewKernelSpace(trampolineFrame mem.PPN) (*MemorySet, *kernel.Error) {
	ms, err := NewMemorySet()
	if err != nil {
		return nil, err
	}

	ram := NewIdentityArea(mem.VirtAddr(mem.KernBase), mem.VirtAddr(mem.PhysTop),
		pagetable.FlagRead|pagetable.FlagWrite|pagetable.FlagExec)
	if err := ms.InsertArea(ram); err != nil {
		return nil, err
	}

	uart := NewIdentityArea(mem.VirtAddr(mem.UART0), mem.VirtAddr(mem.UART0)+mem.VirtAddr(mem.UART0Size),
		pagetable.FlagRead|pagetable.FlagWrite)
	if err := ms.InsertArea(uart); err != nil {
		return nil, err
	}

	if err := ms.pt.Map(mem.TrampolineVA.VPN(), trampolineFrame,
		pagetable.FlagRead|pagetable.FlagExec|pagetable.FlagGlobal); err != nil {
		return nil, err
	}

	return ms, nil
}

// MapTrapContext installs the per-task trap context page at the fixed
// TrapContextVA, backed by a freshly allocated frame, and returns that
// frame's physical address so the caller (task.New) can hand it to
// trap.Context for reading/writing the saved register state.
func (ms *MemorySet) MapTrapContext() (mem.PhysAddr, *kernel.Error) {
	f, err := pmm.AllocFrame()
	if err != nil {
		return 0, err
	}
	zeroFrame(f)
	if err := ms.pt.Map(mem.TrapContextVA.VPN(), mem.PPN(f),
		pagetable.FlagRead|pagetable.FlagWrite); err != nil {
		return 0, err
	}
	return f.Addr(), nil
}

// MapTrampoline installs the global trampoline mapping into a
// non-kernel-space MemorySet (every user task's address space also needs
// it, at the identical virtual address, so trap entry/exit can run with
// either page table active).
func (ms *MemorySet) MapTrampoline(trampolineFrame mem.PPN) *kernel.Error {
	return ms.pt.Map(mem.TrampolineVA.VPN(), trampolineFrame,
		pagetable.FlagRead|pagetable.FlagExec)
}

func unsafeSliceAt(addr uintptr, n int) []byte {
	return kernel.ByteSliceAt(addr, n)
}

// Package vmm builds whole address spaces (MemorySet) out of the low-level
// PageTable primitive in mem/pagetable, the way the teacher's kernel/mm/vmm
// package builds a kernel VMA out of kernel/mm/vmm's Map/Unmap/PDT, but
// tracking mappings as spec.md §9 describes: a set of tagged MapAreas rather
// than a flat PTE forest with no higher-level bookkeeping.
package vmm

import (
	"rvkernel/kernel"
	"rvkernel/mem"
	"rvkernel/mem/pagetable"
	"rvkernel/mem/pmm"
)

// MapType tags how a MapArea's physical backing relates to its virtual
// range.
type MapType int

const (
	// Identical maps every virtual page directly to the physical frame
	// of the same number: va == pa. Used for the kernel's own address
	// space, where the kernel image and all of physical RAM are mapped
	// at a fixed 1:1 offset.
	Identical MapType = iota

	// Framed maps every virtual page to a freshly allocated, unrelated
	// physical frame. Used for every user task's address space (code,
	// stack, trap context).
	Framed
)

// MapArea is one contiguous, page-aligned virtual range sharing a single
// MapType and permission set.
type MapArea struct {
	startVPN, endVPN mem.VPN // [startVPN, endVPN)
	mapType          MapType
	flags            pagetable.PTEFlag

	// frames records the physical frame backing each page of a Framed
	// area, in VPN order, so the area can be torn down without walking
	// the page table again.
	frames []pmm.Frame
}

// NewIdentityArea describes an Identical-mapped area spanning
// [start, end) (addresses are physical and virtual at once).
func NewIdentityArea(start, end mem.VirtAddr, flags pagetable.PTEFlag) *MapArea {
	return &MapArea{
		startVPN: start.RoundDown().VPN(),
		endVPN:   end.RoundUp().VPN(),
		mapType:  Identical,
		flags:    flags,
	}
}

// NewFramedArea describes a Framed area spanning [start, end) of virtual
// address space. No physical frames are allocated until the area is
// installed into a MemorySet via MapTo.
func NewFramedArea(start, end mem.VirtAddr, flags pagetable.PTEFlag) *MapArea {
	return &MapArea{
		startVPN: start.RoundDown().VPN(),
		endVPN:   end.RoundUp().VPN(),
		mapType:  Framed,
		flags:    flags,
	}
}

// pageCount returns the number of pages spanned by the area.
func (a *MapArea) pageCount() int { return int(a.endVPN - a.startVPN) }

// mapInto installs every page of the area into pt, allocating frames for
// Framed areas as it goes and zeroing their contents before they become
// reachable. If it fails partway through, it unwinds everything it has
// already installed (PTEs and, for Framed areas, allocated frames) before
// returning, so a caller that abandons the area after an error leaves the
// frame allocator exactly as it found it.
func (a *MapArea) mapInto(pt *pagetable.PageTable) *kernel.Error {
	switch a.mapType {
	case Identical:
		for vpn := a.startVPN; vpn < a.endVPN; vpn++ {
			if err := pt.Map(vpn, mem.PPN(vpn), a.flags); err != nil {
				a.unmapFrom(pt)
				return err
			}
		}
	case Framed:
		a.frames = make([]pmm.Frame, 0, a.pageCount())
		for vpn := a.startVPN; vpn < a.endVPN; vpn++ {
			f, err := pmm.AllocFrame()
			if err != nil {
				a.unmapFrom(pt)
				return err
			}
			zeroFrame(f)
			if err := pt.Map(vpn, mem.PPN(f), a.flags); err != nil {
				pmm.DeallocFrame(f)
				a.unmapFrom(pt)
				return err
			}
			a.frames = append(a.frames, f)
		}
	}
	return nil
}

// unmapFrom removes every page of the area from pt and, for Framed areas,
// returns its backing frames to the physical allocator.
func (a *MapArea) unmapFrom(pt *pagetable.PageTable) {
	for vpn := a.startVPN; vpn < a.endVPN; vpn++ {
		_ = pt.Unmap(vpn)
	}
	for _, f := range a.frames {
		pmm.DeallocFrame(f)
	}
	a.frames = nil
}

// frameFor returns the physical frame backing va within a Framed area, used
// by CopyBytesIn/Out to locate a task's physical pages from the kernel side.
func (a *MapArea) frameFor(va mem.VirtAddr) (pmm.Frame, bool) {
	vpn := va.VPN()
	if vpn < a.startVPN || vpn >= a.endVPN {
		return 0, false
	}
	return a.frames[vpn-a.startVPN], true
}

var zeroFrameFn = zeroFrameDirect

func zeroFrame(f pmm.Frame) { zeroFrameFn(f) }

func zeroFrameDirect(f pmm.Frame) {
	kernel.Memset(uintptr(f.Addr()), 0, mem.PageSize)
}

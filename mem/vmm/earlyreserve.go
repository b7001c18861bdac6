package vmm

import (
	"rvkernel/kernel"
	"rvkernel/mem"
	"rvkernel/mem/pagetable"
)

// KernelSpace is the kernel's own address space, set once during boot by
// cmd/kernel's init sequence. kernel/goruntime reaches it through the
// package functions below rather than a direct field access so its own
// tests can run without ever constructing a real MemorySet.
var KernelSpace *MemorySet

// SetKernelSpace installs the kernel's address space. Called exactly once,
// right after NewKernelSpace succeeds.
func SetKernelSpace(ms *MemorySet) { KernelSpace = ms }

// heapRegionTop is the highest virtual address kernel/goruntime's bump
// allocator hands out; EarlyReserveRegion carves pages downward from here,
// mirroring the teacher's earlyReserveLastUsed/tempMappingAddr pattern in
// kernel/mm/vmm/map.go, adapted from "below the recursive mapping slot" to
// "below the trap context page", which is this kernel's analogous reserved
// top-of-VA landmark.
var heapRegionTop = mem.TrapContextVA

var errEarlyReserveNoSpace = &kernel.Error{Module: "vmm", Message: "remaining virtual address space not large enough to satisfy reservation request"}

// EarlyReserveRegion reserves size bytes of kernel virtual address space,
// rounded up to a page boundary, without mapping them to any physical
// frame. kernel/goruntime's sysReserve/sysAlloc hooks call this to hand
// Go's allocator fresh address ranges on demand.
func EarlyReserveRegion(size uintptr) (mem.VirtAddr, *kernel.Error) {
	size = mem.PageRoundUp(size)
	if mem.VirtAddr(size) > heapRegionTop {
		return 0, errEarlyReserveNoSpace
	}
	heapRegionTop -= mem.VirtAddr(size)
	return heapRegionTop, nil
}

// MapKernel installs a page in the kernel's own address space. Exposed as a
// free function (rather than requiring callers to hold a *MemorySet) so
// kernel/goruntime's redirected runtime hooks, which run before any other
// kernel subsystem could plausibly hand them one, have something to call.
func MapKernel(vpn mem.VPN, ppn mem.PPN, flags pagetable.PTEFlag) *kernel.Error {
	return KernelSpace.pt.Map(vpn, ppn, flags)
}

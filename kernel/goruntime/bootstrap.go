// Package goruntime bootstraps the pieces of the Go runtime that assume a
// hosted OS underneath them — the heap allocator, map/interface support —
// by redirecting their low-level hooks into this kernel's own physical
// frame allocator and kernel address space.
//
// Grounded directly on the teacher's kernel/goruntime/bootstrap.go, which
// does the exact same redirection for amd64's mm/vmm; only the package
// paths feeding sysReserve/sysMap/sysAlloc change (mem/pmm.AllocFrame and
// mem/vmm.EarlyReserveRegion/MapKernel in place of
// mem/pmm/allocator.AllocFrame and mm/vmm.Map/EarlyReserveRegion), since
// runtime.sysReserve/sysMap/sysAlloc's calling convention is
// architecture-independent.
package goruntime

import (
	"rvkernel/kernel"
	"rvkernel/mem"
	"rvkernel/mem/pagetable"
	"rvkernel/mem/pmm"
	"rvkernel/mem/vmm"
	"unsafe"
)

var (
	mapFn                = vmm.MapKernel
	earlyReserveRegionFn = vmm.EarlyReserveRegion
	frameAllocFn         = pmm.AllocFrame
	mallocInitFn         = mallocInit
	algInitFn            = algInit
	modulesInitFn        = modulesInit
	typeLinksInitFn      = typeLinksInit
	itabsInitFn          = itabsInit

	prngSeed = 0xdeadc0de
)

//go:linkname algInit runtime.alginit
func algInit()

//go:linkname modulesInit runtime.modulesinit
func modulesInit()

//go:linkname typeLinksInit runtime.typelinksinit
func typeLinksInit()

//go:linkname itabsInit runtime.itabsinit
func itabsInit()

//go:linkname mallocInit runtime.mallocinit
func mallocInit()

//go:linkname mSysStatInc runtime.mSysStatInc
func mSysStatInc(*uint64, uintptr)

// sysReserve replaces runtime.sysReserve: it reserves address space without
// mapping any physical memory, by carving a range out of
// vmm.EarlyReserveRegion.
//
//go:redirect-from runtime.sysReserve
//go:nosplit
func sysReserve(_ unsafe.Pointer, size uintptr, reserved *bool) unsafe.Pointer {
	start, err := earlyReserveRegionFn(size)
	if err != nil {
		panic(err)
	}
	*reserved = true
	return unsafe.Pointer(uintptr(start))
}

// sysMap replaces runtime.sysMap: it backs a previously reserved range with
// real frames on first touch. Unlike the teacher's amd64 implementation,
// which maps every page to the same ReservedZeroedFrame under
// FlagCopyOnWrite (amd64's MMU takes a write fault to break the sharing),
// this kernel has no copy-on-write support (spec.md's Non-goals exclude it)
// so sysMap allocates a distinct zeroed frame per page up front instead.
//
//go:redirect-from runtime.sysMap
//go:nosplit
func sysMap(virtAddr unsafe.Pointer, size uintptr, reserved bool, sysStat *uint64) unsafe.Pointer {
	if !reserved {
		panic("sysMap should only be called with reserved=true")
	}

	regionStart := mem.VirtAddr(uintptr(virtAddr)).RoundUp()
	regionSize := mem.PageRoundUp(size)
	pageCount := regionSize / mem.PageSize

	flags := pagetable.FlagRead | pagetable.FlagWrite
	vpn := regionStart.VPN()
	for ; pageCount > 0; pageCount, vpn = pageCount-1, vpn+1 {
		f, err := frameAllocFn()
		if err != nil {
			return unsafe.Pointer(uintptr(0))
		}
		if err := mapFn(vpn, mem.PPN(f), flags); err != nil {
			return unsafe.Pointer(uintptr(0))
		}
	}

	mSysStatInc(sysStat, regionSize)
	return unsafe.Pointer(uintptr(regionStart))
}

// sysAlloc replaces runtime.sysAlloc: reserve-then-map in one call, used by
// the allocator for a handful of early, small allocations made before
// sysReserve/sysMap are wired up as a pair.
//
//go:redirect-from runtime.sysAlloc
//go:nosplit
func sysAlloc(size uintptr, sysStat *uint64) unsafe.Pointer {
	regionSize := mem.PageRoundUp(size)
	start, err := earlyReserveRegionFn(regionSize)
	if err != nil {
		return unsafe.Pointer(uintptr(0))
	}

	flags := pagetable.FlagRead | pagetable.FlagWrite
	vpn := start.VPN()
	pageCount := regionSize / mem.PageSize
	for ; pageCount > 0; pageCount, vpn = pageCount-1, vpn+1 {
		f, err := frameAllocFn()
		if err != nil {
			return unsafe.Pointer(uintptr(0))
		}
		if err := mapFn(vpn, mem.PPN(f), flags); err != nil {
			return unsafe.Pointer(uintptr(0))
		}
	}

	mSysStatInc(sysStat, regionSize)
	return unsafe.Pointer(uintptr(start))
}

// nanotime replaces runtime.nanotime. A real tick count is available once
// hal/sbi's timer is running; until Wire is called this returns a constant,
// same as the teacher's placeholder.
//
//go:redirect-from runtime.nanotime
//go:nosplit
func nanotime() uint64 {
	if nanotimeFn != nil {
		return nanotimeFn()
	}
	return 1
}

// nanotimeFn is wired to hal/sbi's tick counter once the timer is running.
var nanotimeFn func() uint64

// WireNanotime lets cmd/kernel's boot sequence upgrade nanotime from its
// constant placeholder to a real tick-derived clock once hal/sbi.Init has
// run.
func WireNanotime(fn func() uint64) { nanotimeFn = fn }

//go:redirect-from runtime.getRandomData
func getRandomData(r []byte) {
	for i := 0; i < len(r); i++ {
		prngSeed = (prngSeed * 58321) + 11113
		r[i] = byte((prngSeed >> 16) & 255)
	}
}

// Init enables heap allocation, map primitives and interfaces. Must run
// after mem/pmm.Init and after vmm.SetKernelSpace, and before any other
// kernel package uses new, make, or a non-empty interface value.
func Init() *kernel.Error {
	mallocInitFn()
	algInitFn()
	modulesInitFn()
	typeLinksInitFn()
	itabsInitFn()
	return nil
}

func init() {
	var (
		reserved bool
		stat     uint64
		zeroPtr  = unsafe.Pointer(uintptr(0))
	)
	sysReserve(zeroPtr, 0, &reserved)
	sysMap(zeroPtr, 0, reserved, &stat)
	sysAlloc(0, &stat)
	getRandomData(nil)
	stat = nanotime()
}

package vmm

import (
	"rvkernel/elf"
	"rvkernel/kernel"
	"rvkernel/mem"
	"rvkernel/mem/pagetable"
)

// UserStackSize is the default size of a task's user stack area, configured
// the way spec.md §4.1's new_user_from_elf leaves it ("a user-stack framed
// area of configured size").
const UserStackSize = 4 * mem.PageSize

// NewUserSpace realizes spec.md §4.1's new_user_from_elf: it builds a fresh
// MemorySet from a parsed ELF image, maps one Framed area per PT_LOAD
// segment with permissions derived from the segment's flags plus U, lays out
// the user stack and trap-context page, and maps the shared trampoline frame
// at the fixed kernel-only top-of-space slot. The returned userSP is the
// initial user stack pointer; trapCtxPhys is the physical address task.New
// must hand to trap.Context so the kernel can populate it without activating
// the user table.
func NewUserSpace(img *elf.Image, trampolineFrame mem.PPN) (ms *MemorySet, userSP uint64, trapCtxPhys mem.PhysAddr, err *kernel.Error) {
	ms, err = NewMemorySet()
	if err != nil {
		return nil, 0, 0, err
	}

	var highestEnd mem.VirtAddr
	for _, seg := range img.Segments {
		start := mem.VirtAddr(seg.VAddr)
		end := start + mem.VirtAddr(seg.MemSize)

		flags := pagetable.FlagUser
		if seg.Read {
			flags |= pagetable.FlagRead
		}
		if seg.Write {
			flags |= pagetable.FlagWrite
		}
		if seg.Exec {
			flags |= pagetable.FlagExec
		}

		area := NewFramedArea(start, end, flags)
		if err := ms.InsertArea(area); err != nil {
			ms.Destroy()
			return nil, 0, 0, err
		}
		if len(seg.Data) > 0 {
			if err := ms.CopyOut(start, seg.Data); err != nil {
				ms.Destroy()
				return nil, 0, 0, err
			}
		}
		if rounded := end.RoundUp(); rounded > highestEnd {
			highestEnd = rounded
		}
	}

	guardBase := highestEnd + mem.VirtAddr(mem.PageSize)
	stackTop := guardBase + mem.VirtAddr(UserStackSize)
	stack := NewFramedArea(guardBase, stackTop, pagetable.FlagRead|pagetable.FlagWrite|pagetable.FlagUser)
	if err := ms.InsertArea(stack); err != nil {
		ms.Destroy()
		return nil, 0, 0, err
	}

	if err := ms.MapTrampoline(trampolineFrame); err != nil {
		ms.Destroy()
		return nil, 0, 0, err
	}

	trapCtxPhys, err = ms.MapTrapContext()
	if err != nil {
		ms.Destroy()
		return nil, 0, 0, err
	}

	return ms, uint64(stackTop), trapCtxPhys, nil
}

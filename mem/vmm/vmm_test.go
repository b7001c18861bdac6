package vmm

import (
	"rvkernel/mem"
	"rvkernel/mem/pagetable"
	"rvkernel/mem/pmm"
	"testing"
)

type fakeMemory struct {
	tables map[mem.PPN]*[512]pagetable.PTE
	frames map[mem.PPN][]byte
}

func newFakeMemory() *fakeMemory {
	return &fakeMemory{
		tables: make(map[mem.PPN]*[512]pagetable.PTE),
		frames: make(map[mem.PPN][]byte),
	}
}

func (m *fakeMemory) tableAt(ppn mem.PPN) *[512]pagetable.PTE {
	if t, ok := m.tables[ppn]; ok {
		return t
	}
	t := &[512]pagetable.PTE{}
	m.tables[ppn] = t
	return t
}

func (m *fakeMemory) sliceAt(pa mem.PhysAddr, n int) []byte {
	ppn := pa.PPN()
	buf, ok := m.frames[ppn]
	if !ok {
		buf = make([]byte, mem.PageSize)
		m.frames[ppn] = buf
	}
	off := int(mem.VirtAddr(pa).Offset())
	return buf[off : off+n]
}

func withFakeMemory(t *testing.T) *fakeMemory {
	t.Helper()
	pmm.Init(mem.PhysAddr(0x1000), mem.PhysAddr(0x200000))
	fm := newFakeMemory()

	restoreTable := pagetable.SetTableAccessor(fm.tableAt)
	prevSlice := physSliceFn
	physSliceFn = fm.sliceAt

	t.Cleanup(func() {
		restoreTable()
		physSliceFn = prevSlice
	})
	return fm
}

func TestInsertFramedAreaCopyRoundtrip(t *testing.T) {
	withFakeMemory(t)

	ms, err := NewMemorySet()
	if err != nil {
		t.Fatalf("NewMemorySet: %v", err)
	}

	start := mem.VirtAddr(0x1_0000)
	end := start + mem.VirtAddr(2*mem.PageSize)
	area := NewFramedArea(start, end, pagetable.FlagRead|pagetable.FlagWrite)
	if err := ms.InsertArea(area); err != nil {
		t.Fatalf("InsertArea: %v", err)
	}

	payload := []byte("hello kernel")
	if err := ms.CopyOut(start+8, payload); err != nil {
		t.Fatalf("CopyOut: %v", err)
	}

	got := make([]byte, len(payload))
	if err := ms.CopyIn(got, start+8); err != nil {
		t.Fatalf("CopyIn: %v", err)
	}
	if string(got) != string(payload) {
		t.Fatalf("CopyIn = %q, want %q", got, payload)
	}
}

func TestRemoveAreaFreesFrames(t *testing.T) {
	withFakeMemory(t)

	ms, _ := NewMemorySet()
	start := mem.VirtAddr(0x2_0000)
	end := start + mem.VirtAddr(mem.PageSize)
	area := NewFramedArea(start, end, pagetable.FlagRead|pagetable.FlagWrite)
	if err := ms.InsertArea(area); err != nil {
		t.Fatalf("InsertArea: %v", err)
	}

	ms.RemoveAreaContaining(start)
	if len(ms.areas) != 0 {
		t.Fatalf("expected area removed, got %d areas", len(ms.areas))
	}
	if _, err := ms.Translate(start); err == nil {
		t.Fatalf("expected translate to fail after area removal")
	}
}

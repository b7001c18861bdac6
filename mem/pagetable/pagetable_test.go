package pagetable

import (
	"rvkernel/mem"
	"rvkernel/mem/pmm"
	"testing"
)

// fakeMemory backs tableAtFn with ordinary Go memory so tests can exercise
// Map/Unmap/Translate without a real MMU or identity-mapped physical RAM.
type fakeMemory struct {
	tables map[mem.PPN]*[512]PTE
}

func newFakeMemory() *fakeMemory {
	return &fakeMemory{tables: make(map[mem.PPN]*[512]PTE)}
}

func (m *fakeMemory) at(ppn mem.PPN) *[512]PTE {
	if t, ok := m.tables[ppn]; ok {
		return t
	}
	t := &[512]PTE{}
	m.tables[ppn] = t
	return t
}

func withFakeMemory(t *testing.T) {
	t.Helper()
	pmm.Init(mem.PhysAddr(0x1000), mem.PhysAddr(0x100000))
	fm := newFakeMemory()
	prev := tableAtFn
	tableAtFn = fm.at
	t.Cleanup(func() { tableAtFn = prev })
}

func TestMapTranslateUnmap(t *testing.T) {
	withFakeMemory(t)

	pt, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	vpn := mem.VirtAddr(0x1000_0000).VPN()
	ppn := mem.PPN(7)

	if err := pt.Map(vpn, ppn, FlagRead|FlagWrite); err != nil {
		t.Fatalf("Map: %v", err)
	}

	pa, err := pt.Translate(vpn.Addr() + 0x20)
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if want := ppn.Addr() + 0x20; pa != want {
		t.Fatalf("Translate = %#x, want %#x", pa, want)
	}

	if err := pt.Unmap(vpn); err != nil {
		t.Fatalf("Unmap: %v", err)
	}
	if _, err := pt.Translate(vpn.Addr()); err != ErrNotMapped {
		t.Fatalf("Translate after Unmap = %v, want ErrNotMapped", err)
	}
}

func TestMapAlreadyMapped(t *testing.T) {
	withFakeMemory(t)

	pt, _ := New()
	vpn := mem.VirtAddr(0x2000).VPN()

	if err := pt.Map(vpn, mem.PPN(1), FlagRead); err != nil {
		t.Fatalf("Map: %v", err)
	}
	if err := pt.Map(vpn, mem.PPN(2), FlagRead); err != ErrAlreadyMapped {
		t.Fatalf("Map second time = %v, want ErrAlreadyMapped", err)
	}
}

func TestLookupReflectsFlags(t *testing.T) {
	withFakeMemory(t)

	pt, _ := New()
	vpn := mem.VirtAddr(0x3000).VPN()
	if err := pt.Map(vpn, mem.PPN(9), FlagRead|FlagUser); err != nil {
		t.Fatalf("Map: %v", err)
	}

	pte, ok := pt.Lookup(vpn.Addr())
	if !ok {
		t.Fatalf("Lookup: not found")
	}
	if !pte.Has(FlagUser) {
		t.Fatalf("expected FlagUser set")
	}
	if pte.Has(FlagWrite) {
		t.Fatalf("did not expect FlagWrite set")
	}
}

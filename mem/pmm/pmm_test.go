package pmm

import (
	"rvkernel/mem"
	"testing"
)

func TestAllocDeallocRecycles(t *testing.T) {
	Init(mem.PhysAddr(0x1000), mem.PhysAddr(0x4000))

	f1, err := AllocFrame()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	f2, err := AllocFrame()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f1 == f2 {
		t.Fatalf("expected distinct frames, got %d twice", f1)
	}

	DeallocFrame(f1)
	f3, err := AllocFrame()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f3 != f1 {
		t.Fatalf("expected recycled frame %d, got %d", f1, f3)
	}
}

func TestAllocExhaustion(t *testing.T) {
	Init(mem.PhysAddr(0x1000), mem.PhysAddr(0x2000))

	if _, err := AllocFrame(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := AllocFrame(); err == nil {
		t.Fatalf("expected out-of-memory error")
	}
}

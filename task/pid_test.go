package task

import "testing"

func TestPIDAllocatorRecyclesBeforeAdvancing(t *testing.T) {
	var a PIDAllocator

	p0 := a.alloc()
	p1 := a.alloc()
	if p0 == p1 {
		t.Fatalf("expected distinct PIDs, got %d twice", p0)
	}

	a.dealloc(p0)
	p2 := a.alloc()
	if p2 != p0 {
		t.Errorf("alloc() = %d, want recycled %d", p2, p0)
	}

	p3 := a.alloc()
	if p3 == p1 || p3 == p2 {
		t.Errorf("alloc() = %d, want a fresh PID distinct from %d and %d", p3, p1, p2)
	}
}

func TestPIDAllocatorDeallocIsIdempotentFree(t *testing.T) {
	var a PIDAllocator
	p := a.alloc()
	a.dealloc(p)
	a.dealloc(p)

	seen := map[PID]int{}
	for i := 0; i < 2; i++ {
		seen[a.alloc()]++
	}
	if seen[p] != 2 {
		t.Errorf("expected %d to be handed out twice after a double dealloc, got counts %v", p, seen)
	}
}

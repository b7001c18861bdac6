package task

import "testing"

func freshManager(states ...State) *Manager {
	m := &Manager{}
	for i, s := range states {
		m.tasks = append(m.tasks, &Task{PID: PID(i), State: s})
	}
	return m
}

func TestPickReadySweepsRingFromAfterCurrent(t *testing.T) {
	m := freshManager(Exited, Ready, Running, Ready)
	m.current = 2 // Running task is "current"

	got := m.pickReady()
	if got == nil || got.PID != 3 {
		t.Fatalf("pickReady() = %v, want task 3 (first Ready after index 2)", got)
	}
	if m.current != 3 {
		t.Errorf("current = %d, want 3", m.current)
	}

	// Only task 1 is Ready now; the sweep should wrap around and find it.
	m.tasks[3].State = Exited
	got = m.pickReady()
	if got == nil || got.PID != 1 {
		t.Fatalf("pickReady() = %v, want task 1 after wraparound", got)
	}
}

func TestPickReadyReturnsNilWhenNoneReady(t *testing.T) {
	m := freshManager(Exited, Running, Exited)
	if got := m.pickReady(); got != nil {
		t.Errorf("pickReady() = %v, want nil", got)
	}
}

func TestAllExited(t *testing.T) {
	cases := []struct {
		states []State
		want   bool
	}{
		{nil, false},
		{[]State{Exited, Exited}, true},
		{[]State{Exited, Ready}, false},
		{[]State{Running}, false},
	}
	for _, c := range cases {
		m := freshManager(c.states...)
		if got := m.allExited(); got != c.want {
			t.Errorf("allExited(%v) = %v, want %v", c.states, got, c.want)
		}
	}
}

package trap

import "testing"

func withFakeCSRs(t *testing.T, scause, stval uint64) {
	t.Helper()
	prevScause, prevStval := readScauseFn, readStvalFn
	readScauseFn = func() uint64 { return scause }
	readStvalFn = func() uint64 { return stval }
	t.Cleanup(func() {
		readScauseFn = prevScause
		readStvalFn = prevStval
	})
}

func withFakeResume(t *testing.T) *[]*Context {
	t.Helper()
	var resumed []*Context
	prev := resumeFn
	resumeFn = func(ctx *Context) { resumed = append(resumed, ctx) }
	t.Cleanup(func() { resumeFn = prev })
	return &resumed
}

func TestDispatchSyscallAdvancesSepcAndContinues(t *testing.T) {
	withFakeCSRs(t, uint64(CauseUserEnvCall), 0)
	resumed := withFakeResume(t)

	var calledWith *Context
	OnSyscall = func(ctx *Context) Outcome { calledWith = ctx; return Continue }
	defer func() { OnSyscall = nil }()

	ctx := &Context{Sepc: 0x1000}
	Dispatch(ctx)

	if calledWith != ctx {
		t.Fatalf("OnSyscall was not called with ctx")
	}
	if ctx.Sepc != 0x1004 {
		t.Fatalf("Sepc = %#x, want 0x1004", ctx.Sepc)
	}
	if len(*resumed) != 1 || (*resumed)[0] != ctx {
		t.Fatalf("expected Resume called once with ctx")
	}
}

func TestDispatchPageFaultTerminatesViaScheduler(t *testing.T) {
	withFakeCSRs(t, uint64(CauseStorePageFault), 0xdead0000)
	resumed := withFakeResume(t)

	var gotAddr uintptr
	OnPageFault = func(ctx *Context, faultAddr uintptr, cause Cause) Outcome {
		gotAddr = faultAddr
		return Terminate
	}
	defer func() { OnPageFault = nil }()

	next := &Context{}
	ScheduleNextFn = func(current *Context, terminate bool) *Context {
		if !terminate {
			t.Fatalf("expected terminate=true")
		}
		return next
	}
	defer func() { ScheduleNextFn = nil }()

	Dispatch(&Context{})

	if gotAddr != 0xdead0000 {
		t.Fatalf("faultAddr = %#x, want 0xdead0000", gotAddr)
	}
	if len(*resumed) != 1 || (*resumed)[0] != next {
		t.Fatalf("expected Resume called with scheduler's next context")
	}
}

func TestDispatchTimerReschedules(t *testing.T) {
	withFakeCSRs(t, uint64(causeInterruptBit)|uint64(CauseSupervisorTimer), 0)
	resumed := withFakeResume(t)

	var timerCalled bool
	OnTimer = func(ctx *Context) Outcome { timerCalled = true; return Reschedule }
	defer func() { OnTimer = nil }()

	next := &Context{}
	ScheduleNextFn = func(current *Context, terminate bool) *Context { return next }
	defer func() { ScheduleNextFn = nil }()

	Dispatch(&Context{})

	if !timerCalled {
		t.Fatalf("expected OnTimer to be called")
	}
	if len(*resumed) != 1 || (*resumed)[0] != next {
		t.Fatalf("expected Resume called with scheduler's next context")
	}
}

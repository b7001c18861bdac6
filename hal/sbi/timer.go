package sbi

// Package-level tick/TimeVal bookkeeping, realized from
// original_source/os/src/timer.rs (spec.md §4.4 "Cancellation & timeouts"
// only requires that a timer interrupt be accepted and ignored; tick
// counting is a supplemented feature built on top of that minimum so the
// scheduler has something to advance on each trap).

// TicksPerSecond is the CLINT mtime frequency assumed for the QEMU virt
// machine target.
const TicksPerSecond = 12500000

// MSecPerTick is the quantum the run loop asks the timer to fire at.
const MSecPerTick = 10

var ticks uint64

// SetNextTimer schedules the next timer interrupt MSecPerTick milliseconds
// from now via the SBI timer extension.
func SetNextTimer(now uint64) error {
	next := now + (TicksPerSecond/1000)*MSecPerTick
	_, err := Call(ExtTimer, FuncTimerSetTimer, next)
	return err
}

// TickCount returns the number of timer interrupts observed so far.
func TickCount() uint64 { return ticks }

// OnTick is called by trap.Handler when it classifies a trap as a
// supervisor timer interrupt. It advances the tick counter and reschedules
// the next interrupt.
func OnTick(now uint64) {
	ticks++
	_ = SetNextTimer(now)
}

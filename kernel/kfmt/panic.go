package kfmt

import (
	"rvkernel/kernel"
)

var (
	// shutdownFn is mocked by tests and is automatically inlined by the
	// compiler. It is wired to sbi.Shutdown during boot (hal/sbi cannot
	// be imported directly from here without creating an import cycle,
	// since sbi's console writer logs through this package).
	shutdownFn = func() { for {} }

	errRuntimePanic = &kernel.Error{Module: "rt", Message: "unknown cause"}
)

// SetShutdownFunc wires the function that Panic calls after printing its
// banner. hal/sbi's init calls this with sbi.Shutdown once the SBI console
// is available, replacing the spin-loop default used during earliest boot.
func SetShutdownFunc(fn func()) { shutdownFn = fn }

// Panic outputs the supplied error (if not nil) to the console and halts the
// CPU. Calls to Panic never return. Panic also works as a redirection target
// for calls to panic() (resolved via runtime.gopanic)
//go:redirect-from runtime.gopanic
func Panic(e interface{}) {
	var err *kernel.Error

	switch t := e.(type) {
	case *kernel.Error:
		err = t
	case string:
		panicString(t)
		return
	case error:
		errRuntimePanic.Message = t.Error()
		err = errRuntimePanic
	}

	Printf("\n-----------------------------------\n")
	if err != nil {
		Printf("[%s] unrecoverable error: %s\n", err.Module, err.Message)
	}
	Printf("*** kernel panic: system halted ***")
	Printf("\n-----------------------------------\n")

	shutdownFn()
}

// panicString serves as a redirect target for runtime.throw
//go:redirect-from runtime.throw
func panicString(msg string) {
	errRuntimePanic.Message = msg
	Panic(errRuntimePanic)
}

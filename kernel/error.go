// Package kernel contains types shared across the entire kernel that must be
// usable before the Go allocator is known to be live.
package kernel

// Error describes a kernel error. All kernel errors are defined as package
// level variables that are pointers to Error so that callers can compare
// against them without triggering an allocation. This mirrors the approach
// used throughout this codebase for anything that executes before the heap
// is available.
type Error struct {
	// Module is the subsystem that generated the error.
	Module string

	// Message is a short, human readable description of the error.
	Message string
}

// Error implements the error interface.
func (e *Error) Error() string {
	return e.Message
}

// Package sbi wraps the RISC-V Supervisor Binary Interface ecall convention:
// extension ID in a7, function ID in a6, up to six arguments in a0-a5, with
// the call's error code and return value handed back in a0/a1. The ecall
// opcode itself cannot be expressed in Go, so Call is implemented in
// sbi_riscv64.s the same way the teacher expresses every other
// privileged-instruction primitive (kernel/cpu/cpu_amd64.go) as a
// declared-but-bodyless Go function backed by a hand-written Plan9 .s file.
//
// The extension/function ID values and the legacy console extension below
// are grounded on tinyrange-cc/sbi.go, the pack's one complete SBI
// implementation (there written from the M-mode emulator side; only its
// encoding conventions transfer to this S-mode caller).
package sbi

// Extension identifies an SBI extension.
type Extension uint64

const (
	ExtBase      Extension = 0x10
	ExtTimer     Extension = 0x54494D45 // "TIME"
	ExtIPI       Extension = 0x735049   // "sPI"
	ExtRFence    Extension = 0x52464E43 // "RFNC"
	ExtHSM       Extension = 0x48534D   // "HSM"
	ExtSRST      Extension = 0x53525354 // "SRST"
	ExtLegacyPut Extension = 0x01 // legacy console putchar
)

// Function IDs within the extensions this kernel uses.
const (
	FuncTimerSetTimer  = 0x0
	FuncSRSTSystemReset = 0x0
)

// Error is an SBI status code returned in a0.
type Error int64

const (
	Success           Error = 0
	ErrFailed         Error = -1
	ErrNotSupported   Error = -2
	ErrInvalidParam   Error = -3
	ErrDenied         Error = -4
	ErrInvalidAddress Error = -5
	ErrAlreadyAvail   Error = -6
)

func (e Error) Error() string {
	switch e {
	case ErrFailed:
		return "sbi: failed"
	case ErrNotSupported:
		return "sbi: not supported"
	case ErrInvalidParam:
		return "sbi: invalid parameter"
	case ErrDenied:
		return "sbi: denied"
	case ErrInvalidAddress:
		return "sbi: invalid address"
	case ErrAlreadyAvail:
		return "sbi: already available"
	default:
		return "sbi: unknown error"
	}
}

// callFn performs the ecall and is declared without a body; its assembly
// implementation lives in sbi_riscv64.s. Tests substitute callFn with a fake
// so console.go/timer.go/shutdown.go can be exercised on a hosted GOOS.
var callFn = call

// call(ext, fid, a0..a3) executes "ecall" with ext in a7 and fid in a6, and
// returns the (error, value) pair SBI hands back in (a0, a1).
func call(ext Extension, fid uint64, a0, a1, a2, a3 uint64) (int64, uint64)

// Call invokes the named SBI function and turns a negative error code into a
// Go error, the way the rest of this kernel's privileged wrappers do.
func Call(ext Extension, fid uint64, args ...uint64) (uint64, error) {
	var a [4]uint64
	copy(a[:], args)
	errCode, value := callFn(ext, fid, a[0], a[1], a[2], a[3])
	if errCode != int64(Success) {
		return 0, Error(errCode)
	}
	return value, nil
}

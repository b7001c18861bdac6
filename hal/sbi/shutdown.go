package sbi

// Shutdown asks SBI firmware to power off the machine. It is wired as the
// kernel's panic/halt action (kfmt.SetShutdownFunc) in place of the
// teacher's cpu.Halt HLT-loop, since a RISC-V hart has no HLT instruction
// and must instead yield control back to firmware to stop.
func Shutdown() {
	_, _ = Call(ExtSRST, FuncSRSTSystemReset, 0, 0)
	// SBI implementations that don't support SRST never return control in
	// a way this kernel can recover from; spin rather than fall through
	// into undefined behaviour.
	for {
	}
}

// Package elf parses the 64-bit little-endian RISC-V ELF binaries this
// kernel loads as user tasks, realizing spec.md §6's ELF expectations ahead
// of mem/vmm's new_user_from_elf address-space construction.
//
// Grounded on iansmith-feelings/src/lib/loader/loader.go's use of the
// standard library's debug/elf reader (elf.NewFile plus a Progs walk) —
// every ELF consumer in the retrieval pack reaches for debug/elf rather than
// a third-party parser, so this module does too (see DESIGN.md).
package elf

import (
	"bytes"
	"debug/elf"

	"rvkernel/kernel"
)

// Segment is one PT_LOAD program header's payload, ready to be copied into
// freshly allocated frames by mem/vmm.
type Segment struct {
	VAddr      uint64
	Data       []byte
	MemSize    uint64
	Read       bool
	Write      bool
	Exec       bool
}

// Image is the parsed result of a well-formed application ELF: an entry
// point plus every PT_LOAD segment in file order.
type Image struct {
	Entry    uint64
	Segments []Segment
}

var errBadELF = &kernel.Error{Module: "elf", Message: "not a 64-bit little-endian RISC-V executable"}

// Load parses data as an ELF executable, rejecting anything that doesn't
// match spec.md §6's ELF expectations: 64-bit, little-endian, machine
// RISC-V. Segment types other than PT_LOAD are ignored, matching "unsupported
// segment types are ignored".
func Load(data []byte) (*Image, *kernel.Error) {
	f, err := elf.NewFile(bytes.NewReader(data))
	if err != nil {
		return nil, errBadELF
	}
	defer f.Close()

	if f.Class != elf.ELFCLASS64 || f.Data != elf.ELFDATA2LSB || f.Machine != elf.EM_RISCV {
		return nil, errBadELF
	}

	img := &Image{Entry: f.Entry}
	for _, prog := range f.Progs {
		if prog.Type != elf.PT_LOAD {
			continue
		}
		buf := make([]byte, prog.Filesz)
		if _, err := prog.ReadAt(buf, 0); err != nil {
			return nil, errBadELF
		}
		img.Segments = append(img.Segments, Segment{
			VAddr:   prog.Vaddr,
			Data:    buf,
			MemSize: prog.Memsz,
			Read:    prog.Flags&elf.PF_R != 0,
			Write:   prog.Flags&elf.PF_W != 0,
			Exec:    prog.Flags&elf.PF_X != 0,
		})
	}
	return img, nil
}

// Package loader provides ELF binary loading for x86 executables.
package loader

import (
	"debug/elf"
	"fmt"
	"io"
	"os"

	"github.com/sarchlab/x86dis/insts"
)

// SegmentFlags represents memory protection flags for a segment.
type SegmentFlags uint32

const (
	// SegmentFlagExecute indicates the segment is executable.
	SegmentFlagExecute SegmentFlags = 1 << iota
	// SegmentFlagWrite indicates the segment is writable.
	SegmentFlagWrite
	// SegmentFlagRead indicates the segment is readable.
	SegmentFlagRead
)

// Segment represents a loadable segment from an ELF binary.
type Segment struct {
	// VirtAddr is the virtual address where this segment should be loaded.
	VirtAddr uint64
	// Data contains the segment contents from the file.
	Data []byte
	// MemSize is the size in memory (may be larger than len(Data) for BSS).
	MemSize uint64
	// Flags contains the segment protection flags.
	Flags SegmentFlags
}

// Contains reports whether addr falls inside the segment's memory image.
func (s *Segment) Contains(addr uint64) bool {
	return addr >= s.VirtAddr && addr-s.VirtAddr < s.MemSize
}

// Section is an executable section named in the section header table.
type Section struct {
	Name string
	Addr uint64
	Size uint64
}

// Program represents a loaded ELF program ready for disassembly.
type Program struct {
	// EntryPoint is the virtual address where execution begins.
	EntryPoint uint64
	// Bits is the platform width implied by the ELF class and machine.
	Bits insts.Bits
	// Segments contains all loadable segments from the ELF file.
	Segments []Segment
	// Sections lists sections flagged executable, in file order.
	Sections []Section
}

// Load parses an x86-64 or i386 ELF binary.
func Load(path string) (*Program, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open ELF file: %w", err)
	}
	defer func() { _ = file.Close() }()

	return LoadReader(file)
}

// LoadReader parses an ELF image from r.
func LoadReader(r io.ReaderAt) (*Program, error) {
	f, err := elf.NewFile(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse ELF file: %w", err)
	}
	defer func() { _ = f.Close() }()

	bits, err := platform(f)
	if err != nil {
		return nil, err
	}

	prog := &Program{
		EntryPoint: f.Entry,
		Bits:       bits,
	}

	for _, phdr := range f.Progs {
		if phdr.Type != elf.PT_LOAD {
			continue
		}

		data := make([]byte, phdr.Filesz)
		if phdr.Filesz > 0 {
			n, err := phdr.ReadAt(data, 0)
			if err != nil && err != io.EOF {
				return nil, fmt.Errorf("failed to read segment at 0x%x: %w", phdr.Vaddr, err)
			}
			if uint64(n) != phdr.Filesz {
				return nil, fmt.Errorf("short read for segment at 0x%x: got %d bytes, expected %d",
					phdr.Vaddr, n, phdr.Filesz)
			}
		}

		var flags SegmentFlags
		if phdr.Flags&elf.PF_X != 0 {
			flags |= SegmentFlagExecute
		}
		if phdr.Flags&elf.PF_W != 0 {
			flags |= SegmentFlagWrite
		}
		if phdr.Flags&elf.PF_R != 0 {
			flags |= SegmentFlagRead
		}

		prog.Segments = append(prog.Segments, Segment{
			VirtAddr: phdr.Vaddr,
			Data:     data,
			MemSize:  max(phdr.Memsz, phdr.Filesz),
			Flags:    flags,
		})
	}

	for _, s := range f.Sections {
		if s.Flags&elf.SHF_EXECINSTR == 0 || s.Flags&elf.SHF_ALLOC == 0 {
			continue
		}
		prog.Sections = append(prog.Sections, Section{Name: s.Name, Addr: s.Addr, Size: s.Size})
	}

	return prog, nil
}

// platform maps the ELF class and machine to a decoder platform.
func platform(f *elf.File) (insts.Bits, error) {
	switch f.Machine {
	case elf.EM_X86_64:
		if f.Class != elf.ELFCLASS64 {
			return 0, fmt.Errorf("x86-64 ELF file with class %v", f.Class)
		}
		return insts.Bits64, nil
	case elf.EM_386:
		if f.Class != elf.ELFCLASS32 {
			return 0, fmt.Errorf("i386 ELF file with class %v", f.Class)
		}
		return insts.Bits32, nil
	}
	return 0, fmt.Errorf("not an x86 ELF file (machine type: %v)", f.Machine)
}

// Section returns the executable section called name.
func (p *Program) Section(name string) (Section, bool) {
	for _, s := range p.Sections {
		if s.Name == name {
			return s, true
		}
	}
	return Section{}, false
}

// Executable returns the segments flagged executable.
func (p *Program) Executable() []Segment {
	var segs []Segment
	for _, s := range p.Segments {
		if s.Flags&SegmentFlagExecute != 0 {
			segs = append(segs, s)
		}
	}
	return segs
}

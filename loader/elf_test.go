package loader_test

import (
	"encoding/binary"
	"io"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/x86dis/insts"
	"github.com/sarchlab/x86dis/loader"
)

const (
	machineX86_64  = 62
	machineI386    = 3
	machineAArch64 = 183
)

var _ = Describe("ELF Loader", func() {
	var tempDir string

	BeforeEach(func() {
		var err error
		tempDir, err = os.MkdirTemp("", "elf-loader-test")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		_ = os.RemoveAll(tempDir)
	})

	Describe("Load", func() {
		Context("with a valid x86-64 ELF binary", func() {
			var elfPath string

			BeforeEach(func() {
				elfPath = filepath.Join(tempDir, "test.elf")
				createMinimalELF64(elfPath, machineX86_64, 0x400000, 0x400080, []byte{
					0xB8, 0x2A, 0x00, 0x00, 0x00, // mov eax, 42
					0xC3,                         // ret
				})
			})

			It("should load without error", func() {
				prog, err := loader.Load(elfPath)
				Expect(err).NotTo(HaveOccurred())
				Expect(prog).NotTo(BeNil())
			})

			It("should extract the correct entry point", func() {
				prog, err := loader.Load(elfPath)
				Expect(err).NotTo(HaveOccurred())
				Expect(prog.EntryPoint).To(Equal(uint64(0x400080)))
			})

			It("should report a 64-bit platform", func() {
				prog, err := loader.Load(elfPath)
				Expect(err).NotTo(HaveOccurred())
				Expect(prog.Bits).To(Equal(insts.Bits64))
			})

			It("should load executable segments", func() {
				prog, err := loader.Load(elfPath)
				Expect(err).NotTo(HaveOccurred())
				Expect(prog.Executable()).To(HaveLen(1))
				Expect(prog.Executable()[0].Data).To(HaveLen(6))
			})
		})

		Context("with an i386 ELF binary", func() {
			It("should report a 32-bit platform", func() {
				elfPath := filepath.Join(tempDir, "i386.elf")
				code := []byte{0x55, 0x89, 0xE5, 0xC3}
				createMinimalELF32(elfPath, 0x8048000, 0x8048000, code)

				prog, err := loader.Load(elfPath)
				Expect(err).NotTo(HaveOccurred())
				Expect(prog.Bits).To(Equal(insts.Bits32))
				Expect(prog.Segments).To(HaveLen(1))
				Expect(prog.Segments[0].VirtAddr).To(Equal(uint64(0x8048000)))
				Expect(prog.Segments[0].Data).To(Equal(code))
			})
		})

		Context("with an invalid file", func() {
			It("should return error for non-existent file", func() {
				_, err := loader.Load("/nonexistent/path/to/file.elf")
				Expect(err).To(HaveOccurred())
				Expect(err.Error()).To(ContainSubstring("failed to open"))
			})

			It("should return error for non-ELF file", func() {
				notElfPath := filepath.Join(tempDir, "not-elf.bin")
				err := os.WriteFile(notElfPath, []byte("not an elf file"), 0644)
				Expect(err).NotTo(HaveOccurred())

				_, err = loader.Load(notElfPath)
				Expect(err).To(HaveOccurred())
				Expect(err.Error()).To(ContainSubstring("ELF"))
			})

			It("should return error for empty file", func() {
				emptyPath := filepath.Join(tempDir, "empty.elf")
				err := os.WriteFile(emptyPath, []byte{}, 0644)
				Expect(err).NotTo(HaveOccurred())

				_, err = loader.Load(emptyPath)
				Expect(err).To(HaveOccurred())
			})
		})

		Context("with a non-x86 ELF", func() {
			It("should return error for an AArch64 ELF", func() {
				elfPath := filepath.Join(tempDir, "arm64.elf")
				createMinimalELF64(elfPath, machineAArch64, 0x400000, 0x400000, []byte{0xC0, 0x03, 0x5F, 0xD6})

				_, err := loader.Load(elfPath)
				Expect(err).To(HaveOccurred())
				Expect(err.Error()).To(ContainSubstring("not an x86"))
			})

			It("should return error for an i386 machine in a 64-bit file", func() {
				elfPath := filepath.Join(tempDir, "mixed.elf")
				createMinimalELF64(elfPath, machineI386, 0x400000, 0x400000, []byte{0xC3})

				_, err := loader.Load(elfPath)
				Expect(err).To(HaveOccurred())
				Expect(err.Error()).To(ContainSubstring("i386"))
			})
		})
	})

	Describe("Segment", func() {
		It("should correctly report permissions", func() {
			elfPath := filepath.Join(tempDir, "multi-segment.elf")
			codeData := []byte{0x90, 0xC3}
			dataData := []byte{0x01, 0x02, 0x03, 0x04}
			createMultiSegmentELF(elfPath, 0x400000, codeData, 0x600000, dataData)

			prog, err := loader.Load(elfPath)
			Expect(err).NotTo(HaveOccurred())
			Expect(prog.Segments).To(HaveLen(2))

			var codeSeg, dataSeg *loader.Segment
			for i := range prog.Segments {
				switch prog.Segments[i].VirtAddr {
				case 0x400000:
					codeSeg = &prog.Segments[i]
				case 0x600000:
					dataSeg = &prog.Segments[i]
				}
			}

			Expect(codeSeg).NotTo(BeNil())
			Expect(codeSeg.Data).To(Equal(codeData))
			Expect(codeSeg.Flags & loader.SegmentFlagExecute).NotTo(BeZero())

			Expect(dataSeg).NotTo(BeNil())
			Expect(dataSeg.Data).To(Equal(dataData))
			Expect(dataSeg.Flags & loader.SegmentFlagWrite).NotTo(BeZero())
			Expect(dataSeg.Flags & loader.SegmentFlagExecute).To(BeZero())

			Expect(prog.Executable()).To(HaveLen(1))
		})

		It("should handle BSS segments where Memsz > Filesz", func() {
			elfPath := filepath.Join(tempDir, "bss.elf")
			createBSSSegmentELF(elfPath, 0x600000, []byte{0x01, 0x02, 0x03, 0x04}, 1024)

			prog, err := loader.Load(elfPath)
			Expect(err).NotTo(HaveOccurred())
			Expect(prog.Segments).To(HaveLen(1))
			Expect(prog.Segments[0].MemSize).To(Equal(uint64(1024)))
			Expect(prog.Segments[0].Contains(0x6003FF)).To(BeTrue())
			Expect(prog.Segments[0].Contains(0x600400)).To(BeFalse())
		})
	})

	Describe("Sections", func() {
		It("should list executable sections", func() {
			elfPath := filepath.Join(tempDir, "sections.elf")
			code := []byte{0x48, 0x89, 0xC3, 0xC3}
			createSectionedELF(elfPath, 0x401000, code)

			prog, err := loader.Load(elfPath)
			Expect(err).NotTo(HaveOccurred())

			text, ok := prog.Section(".text")
			Expect(ok).To(BeTrue())
			Expect(text.Addr).To(Equal(uint64(0x401000)))
			Expect(text.Size).To(Equal(uint64(len(code))))

			_, ok = prog.Section(".shstrtab")
			Expect(ok).To(BeFalse())
		})
	})

	Describe("Image", func() {
		var image *loader.Image

		BeforeEach(func() {
			elfPath := filepath.Join(tempDir, "image.elf")
			createMultiSegmentELF(elfPath, 0x400000, []byte{0x90, 0xC3}, 0x400002, []byte{0xAA, 0xBB})
			prog, err := loader.Load(elfPath)
			Expect(err).NotTo(HaveOccurred())
			image = loader.NewImage(prog)
		})

		It("should read across adjacent segments", func() {
			p := make([]byte, 4)
			n, err := image.ReadAt(p, 0x400000)

			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(Equal(4))
			Expect(p).To(Equal([]byte{0x90, 0xC3, 0xAA, 0xBB}))
		})

		It("should stop at unmapped memory", func() {
			p := make([]byte, 4)
			n, err := image.ReadAt(p, 0x400002)

			Expect(err).To(Equal(io.EOF))
			Expect(n).To(Equal(2))
			Expect(image.Mapped(0x400000, 4)).To(BeTrue())
			Expect(image.Mapped(0x400000, 5)).To(BeFalse())
		})

		It("should zero-fill unmapped bytes as a backing store", func() {
			Expect(image.Read(0x3FFFFE, 8)).To(Equal([]byte{0, 0, 0x90, 0xC3, 0xAA, 0xBB, 0, 0}))
		})
	})
})

func writeFile(path string, parts ...[]byte) {
	file, _ := os.Create(path)
	defer func() { _ = file.Close() }()
	for _, p := range parts {
		_, _ = file.Write(p)
	}
}

// elf64Header builds an ELF64 little-endian executable header.
func elf64Header(machine uint16, entryPoint uint64, phnum uint16) []byte {
	elfHeader := make([]byte, 64)

	copy(elfHeader[0:4], []byte{0x7f, 'E', 'L', 'F'})
	elfHeader[4] = 2                                         // 64-bit
	elfHeader[5] = 1                                         // little endian
	elfHeader[6] = 1                                         // version
	binary.LittleEndian.PutUint16(elfHeader[16:18], 2)       // executable
	binary.LittleEndian.PutUint16(elfHeader[18:20], machine) // machine
	binary.LittleEndian.PutUint32(elfHeader[20:24], 1)       // version
	binary.LittleEndian.PutUint64(elfHeader[24:32], entryPoint)
	binary.LittleEndian.PutUint64(elfHeader[32:40], 64)    // phoff
	binary.LittleEndian.PutUint16(elfHeader[52:54], 64)    // ehsize
	binary.LittleEndian.PutUint16(elfHeader[54:56], 56)    // phentsize
	binary.LittleEndian.PutUint16(elfHeader[56:58], phnum) // phnum
	binary.LittleEndian.PutUint16(elfHeader[58:60], 64)    // shentsize

	return elfHeader
}

// progHeader64 builds a PT_LOAD program header.
func progHeader64(flags uint32, offset, vaddr, filesz, memsz uint64) []byte {
	progHeader := make([]byte, 56)
	binary.LittleEndian.PutUint32(progHeader[0:4], 1)       // PT_LOAD
	binary.LittleEndian.PutUint32(progHeader[4:8], flags)   // PF_*
	binary.LittleEndian.PutUint64(progHeader[8:16], offset) // offset
	binary.LittleEndian.PutUint64(progHeader[16:24], vaddr) // vaddr
	binary.LittleEndian.PutUint64(progHeader[24:32], vaddr) // paddr
	binary.LittleEndian.PutUint64(progHeader[32:40], filesz)
	binary.LittleEndian.PutUint64(progHeader[40:48], memsz)
	binary.LittleEndian.PutUint64(progHeader[48:56], 0x1000) // align
	return progHeader
}

// createMinimalELF64 creates an ELF64 binary with one RX segment.
func createMinimalELF64(path string, machine uint16, loadAddr, entryPoint uint64, code []byte) {
	n := uint64(len(code))
	writeFile(path,
		elf64Header(machine, entryPoint, 1),
		progHeader64(0x5, 120, loadAddr, n, n),
		code)
}

// createMinimalELF32 creates an i386 ELF32 binary with one RX segment.
func createMinimalELF32(path string, loadAddr, entryPoint uint32, code []byte) {
	elfHeader := make([]byte, 52)

	copy(elfHeader[0:4], []byte{0x7f, 'E', 'L', 'F'})
	elfHeader[4] = 1                                             // 32-bit (ELFCLASS32)
	elfHeader[5] = 1                                             // little endian
	elfHeader[6] = 1                                             // version
	binary.LittleEndian.PutUint16(elfHeader[16:18], 2)           // executable
	binary.LittleEndian.PutUint16(elfHeader[18:20], machineI386) // i386
	binary.LittleEndian.PutUint32(elfHeader[20:24], 1)           // version
	binary.LittleEndian.PutUint32(elfHeader[24:28], entryPoint)
	binary.LittleEndian.PutUint32(elfHeader[28:32], 52) // phoff
	binary.LittleEndian.PutUint16(elfHeader[40:42], 52) // ehsize
	binary.LittleEndian.PutUint16(elfHeader[42:44], 32) // phentsize
	binary.LittleEndian.PutUint16(elfHeader[44:46], 1)  // phnum
	binary.LittleEndian.PutUint16(elfHeader[46:48], 40) // shentsize

	progHeader := make([]byte, 32)
	binary.LittleEndian.PutUint32(progHeader[0:4], 1)                   // PT_LOAD
	binary.LittleEndian.PutUint32(progHeader[4:8], 52+32)               // offset
	binary.LittleEndian.PutUint32(progHeader[8:12], loadAddr)           // vaddr
	binary.LittleEndian.PutUint32(progHeader[12:16], loadAddr)          // paddr
	binary.LittleEndian.PutUint32(progHeader[16:20], uint32(len(code))) // filesz
	binary.LittleEndian.PutUint32(progHeader[20:24], uint32(len(code))) // memsz
	binary.LittleEndian.PutUint32(progHeader[24:28], 0x5)               // PF_R | PF_X
	binary.LittleEndian.PutUint32(progHeader[28:32], 0x1000)            // align

	writeFile(path, elfHeader, progHeader, code)
}

// createMultiSegmentELF creates an x86-64 ELF with a code segment (RX) and
// a data segment (RW).
func createMultiSegmentELF(path string, codeAddr uint64, code []byte, dataAddr uint64, data []byte) {
	codeLen := uint64(len(code))
	dataLen := uint64(len(data))
	writeFile(path,
		elf64Header(machineX86_64, codeAddr, 2),
		progHeader64(0x5, 64+56*2, codeAddr, codeLen, codeLen),
		progHeader64(0x6, 64+56*2+codeLen, dataAddr, dataLen, dataLen),
		code,
		data)
}

// createBSSSegmentELF creates an x86-64 ELF with a segment where Memsz > Filesz.
func createBSSSegmentELF(path string, segAddr uint64, data []byte, memSize uint64) {
	writeFile(path,
		elf64Header(machineX86_64, segAddr, 1),
		progHeader64(0x6, 120, segAddr, uint64(len(data)), memSize),
		data)
}

// createSectionedELF creates an x86-64 ELF with .text and .shstrtab
// section headers.
func createSectionedELF(path string, textAddr uint64, code []byte) {
	names := []byte("\x00.text\x00.shstrtab\x00")
	codeLen := uint64(len(code))
	namesOff := 120 + codeLen
	shoff := (namesOff + uint64(len(names)) + 7) &^ 7

	header := elf64Header(machineX86_64, textAddr, 1)
	binary.LittleEndian.PutUint64(header[40:48], shoff) // shoff
	binary.LittleEndian.PutUint16(header[60:62], 3)     // shnum
	binary.LittleEndian.PutUint16(header[62:64], 2)     // shstrndx

	section := func(name, typ uint32, flags, addr, offset, size uint64) []byte {
		sh := make([]byte, 64)
		binary.LittleEndian.PutUint32(sh[0:4], name)
		binary.LittleEndian.PutUint32(sh[4:8], typ)
		binary.LittleEndian.PutUint64(sh[8:16], flags)
		binary.LittleEndian.PutUint64(sh[16:24], addr)
		binary.LittleEndian.PutUint64(sh[24:32], offset)
		binary.LittleEndian.PutUint64(sh[32:40], size)
		binary.LittleEndian.PutUint64(sh[48:56], 1) // addralign
		return sh
	}

	padding := make([]byte, shoff-namesOff-uint64(len(names)))
	writeFile(path,
		header,
		progHeader64(0x5, 120, textAddr, codeLen, codeLen),
		code,
		names,
		padding,
		make([]byte, 64),                                  // null section
		section(1, 1, 0x6, textAddr, 120, codeLen),        // .text: PROGBITS, ALLOC|EXECINSTR
		section(7, 3, 0, 0, namesOff, uint64(len(names))), // .shstrtab: STRTAB
	)
}

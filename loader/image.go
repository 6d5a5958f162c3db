package loader

import (
	"fmt"
	"io"
)

// Image is the memory image of a program's loadable segments, addressed by
// virtual address.
type Image struct {
	segments []Segment
}

// NewImage creates an image over the segments of prog.
func NewImage(prog *Program) *Image {
	return &Image{segments: prog.Segments}
}

func (m *Image) find(addr uint64) *Segment {
	for i := range m.segments {
		if m.segments[i].Contains(addr) {
			return &m.segments[i]
		}
	}
	return nil
}

// Mapped reports whether every byte of [addr, addr+size) is mapped.
func (m *Image) Mapped(addr, size uint64) bool {
	for size > 0 {
		seg := m.find(addr)
		if seg == nil {
			return false
		}
		n := min(size, seg.VirtAddr+seg.MemSize-addr)
		addr += n
		size -= n
	}
	return true
}

// copyOut copies mapped bytes at addr into p until p is full or a gap is
// reached. Bytes past a segment's file data read as zero.
func (m *Image) copyOut(p []byte, addr uint64) int {
	n := 0
	for n < len(p) {
		seg := m.find(addr)
		if seg == nil {
			break
		}
		off := addr - seg.VirtAddr
		chunk := p[n:min(len(p), n+int(seg.MemSize-off))]
		copied := 0
		if off < uint64(len(seg.Data)) {
			copied = copy(chunk, seg.Data[off:])
		}
		clear(chunk[copied:])
		n += len(chunk)
		addr += uint64(len(chunk))
	}
	return n
}

// ReadAt implements io.ReaderAt with off taken as a virtual address. A read
// that reaches unmapped memory returns the bytes before the gap and io.EOF.
func (m *Image) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, fmt.Errorf("loader: negative address %d", off)
	}
	n := m.copyOut(p, uint64(off))
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// Read returns size bytes at addr with unmapped bytes as zero. It serves as
// the backing store of a fetch cache.
func (m *Image) Read(addr uint64, size int) []byte {
	data := make([]byte, size)
	for i := 0; i < size; {
		n := m.copyOut(data[i:], addr+uint64(i))
		i += n
		if i < size {
			i++ // skip one unmapped byte
		}
	}
	return data
}

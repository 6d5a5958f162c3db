// Package stream provides a bounded little-endian byte cursor over machine
// code.
package stream

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// ErrEndOfStream is returned when a read would cross the end of the window.
var ErrEndOfStream = errors.New("end of stream")

// Reader reads code bytes from a window [origin, origin+size) of virtual
// addresses. Offset 0 of the source corresponds to origin.
type Reader struct {
	src    io.ReaderAt
	origin uint64
	end    uint64
	pos    uint64
	buf    [8]byte
}

// NewReader creates a reader over size bytes of src mapped at origin. The
// cursor starts at origin.
func NewReader(src io.ReaderAt, origin, size uint64) *Reader {
	return &Reader{
		src:    src,
		origin: origin,
		end:    origin + size,
		pos:    origin,
	}
}

// FromBytes creates a reader over code loaded at base.
func FromBytes(code []byte, base uint64) *Reader {
	return NewReader(bytes.NewReader(code), base, uint64(len(code)))
}

// Pos returns the address of the next unread byte.
func (r *Reader) Pos() uint64 {
	return r.pos
}

// Origin returns the first address of the window.
func (r *Reader) Origin() uint64 {
	return r.origin
}

// End returns the address just past the window.
func (r *Reader) End() uint64 {
	return r.end
}

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() uint64 {
	return r.end - r.pos
}

// Seek moves the cursor to addr.
func (r *Reader) Seek(addr uint64) error {
	if addr < r.origin || addr > r.end {
		return fmt.Errorf("seek to 0x%X outside [0x%X, 0x%X): %w", addr, r.origin, r.end, ErrEndOfStream)
	}
	r.pos = addr
	return nil
}

// Bytes returns n bytes starting at addr without moving the cursor.
func (r *Reader) Bytes(addr uint64, n int) ([]byte, error) {
	if addr < r.origin || addr+uint64(n) > r.end {
		return nil, fmt.Errorf("0x%X+%d outside window: %w", addr, n, ErrEndOfStream)
	}
	p := make([]byte, n)
	if _, err := r.src.ReadAt(p, int64(addr-r.origin)); err != nil && err != io.EOF {
		return nil, err
	}
	return p, nil
}

func (r *Reader) read(n int) ([]byte, error) {
	if r.pos+uint64(n) > r.end {
		return nil, fmt.Errorf("read of %d bytes at 0x%X: %w", n, r.pos, ErrEndOfStream)
	}

	p := r.buf[:n]
	got, err := r.src.ReadAt(p, int64(r.pos-r.origin))
	if got < n {
		if err == nil || err == io.EOF {
			err = ErrEndOfStream
		}
		return nil, fmt.Errorf("read of %d bytes at 0x%X: %w", n, r.pos, err)
	}

	r.pos += uint64(n)
	return p, nil
}

// ReadByte reads one byte.
func (r *Reader) ReadByte() (byte, error) {
	p, err := r.read(1)
	if err != nil {
		return 0, err
	}
	return p[0], nil
}

// ReadWord reads a 16-bit word.
func (r *Reader) ReadWord() (uint16, error) {
	p, err := r.read(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(p), nil
}

// ReadDword reads a 32-bit word.
func (r *Reader) ReadDword() (uint32, error) {
	p, err := r.read(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(p), nil
}

// ReadQword reads a 64-bit word.
func (r *Reader) ReadQword() (uint64, error) {
	p, err := r.read(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(p), nil
}

// Section creates a reader over [addr, addr+size) of src, where src is
// addressed by absolute virtual address.
func Section(src io.ReaderAt, addr, size uint64) *Reader {
	return NewReader(io.NewSectionReader(src, int64(addr), int64(size)), addr, size)
}

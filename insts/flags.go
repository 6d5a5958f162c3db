package insts

// Flags is the decoder flag register.
//
// Layout:
//
//	bits [7:0]   prefix presence
//	bits [11:8]  REX W/R/X/B
//	bits [15:12] segment override selector
//	bits [19:16] decoder control
type Flags uint64

// Prefix presence flags.
const (
	PrefixOperand Flags = 1 << iota
	PrefixAddress
	PrefixSegmentOverride
	PrefixLock
	PrefixRep
	PrefixRepne
	PrefixREX
	PrefixLegacy // forced 8-bit operands
)

// REX sub-bits.
const (
	RexW Flags = 1 << (iota + 8) // 64-bit operand size
	RexR                         // extension of the ModRM reg field
	RexX                         // extension of the SIB index field
	RexB                         // extension of the ModRM r/m, SIB base or opcode reg field
)

// Segment override selector.
const (
	SegmentShift = 12
	SegmentMask  = Flags(0xF) << SegmentShift
)

// Segment selector values, stored in the selector region.
const (
	SegmentES Flags = iota << SegmentShift
	SegmentCS
	SegmentSS
	SegmentDS
	SegmentFS
	SegmentGS
)

// Decoder control flags.
const (
	FlagForce8          Flags = 1 << (iota + 16) // forcefully sets operand size to 8-bit
	FlagSegmentRegRM                             // ModRM reg field names a segment register
	FlagIgnoreDirection                          // treat the direction bit as set in REG/RM
	FlagRegRMImmediate                           // an immediate follows the REG/RM operand
	FlagSignExtend                               // a narrowed immediate is sign-extended to the operand width
)

// decoderFlags is indexed (1-based) by the F directive.
var decoderFlags = [...]Flags{
	FlagForce8,
	FlagSegmentRegRM,
	FlagIgnoreDirection,
	FlagRegRMImmediate,
	FlagSignExtend,
}

// prefixFlags is indexed (1-based) by the p directive.
var prefixFlags = [...]Flags{
	PrefixOperand,
	PrefixAddress,
	PrefixSegmentOverride,
	PrefixLock,
	PrefixRep,
	PrefixRepne,
	PrefixREX,
	PrefixLegacy,
}

// Has reports whether all bits of f are set.
func (r Flags) Has(f Flags) bool {
	return r&f == f
}

// Set sets the bits of f.
func (r *Flags) Set(f Flags) {
	*r |= f
}

// Unset clears the bits of f.
func (r *Flags) Unset(f Flags) {
	*r &^= f
}

// Segment returns the segment override selector.
func (r Flags) Segment() int {
	return int((r & SegmentMask) >> SegmentShift)
}

// SetSegment replaces the segment override selector and marks the override
// as present.
func (r *Flags) SetSegment(seg int) {
	*r = (*r &^ SegmentMask) | (Flags(seg)<<SegmentShift)&SegmentMask | PrefixSegmentOverride
}

// rexFlags maps a REX byte (0x40-0x4F) to its flag bits.
func rexFlags(b byte) Flags {
	f := PrefixREX
	if b&0x08 != 0 {
		f |= RexW
	}
	if b&0x04 != 0 {
		f |= RexR
	}
	if b&0x02 != 0 {
		f |= RexX
	}
	if b&0x01 != 0 {
		f |= RexB
	}
	return f
}

// Width is a resolved operand width.
type Width uint8

// Operand widths.
const (
	Width8 Width = iota
	Width16
	Width32
	Width64
)

// Bits returns the width in bits.
func (w Width) Bits() int {
	return 8 << w
}

// Bytes returns the width in bytes.
func (w Width) Bytes() int {
	return 1 << w
}

// Bits is the addressing capability of the target platform.
type Bits uint8

// Supported platforms.
const (
	Bits16 Bits = 16
	Bits32 Bits = 32
	Bits64 Bits = 64
)

// Valid reports whether b is a supported platform width.
func (b Bits) Valid() bool {
	return b == Bits16 || b == Bits32 || b == Bits64
}

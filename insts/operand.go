package insts

import (
	"fmt"
	"strings"
)

// OperandType classifies an operand. Bits are independent.
type OperandType uint8

// Operand types.
const (
	TypeMemory OperandType = 1 << iota
	TypeRegister
	TypeConstant
)

// Has reports whether all bits of t are set.
func (o OperandType) Has(t OperandType) bool {
	return o&t == t
}

// ObjectKind identifies what an OperandObject holds.
type ObjectKind uint8

// Operand object kinds.
const (
	ObjectRegister ObjectKind = iota
	ObjectImmediate
	ObjectSegment
)

// OperandObject is one component of an operand.
type OperandObject struct {
	Kind ObjectKind

	Register string // ObjectRegister
	Scale    uint8  // index scale for SIB index registers, 0 otherwise
	Value    uint64 // ObjectImmediate, sign-extended to 64 bits where applicable
	Segment  string // ObjectSegment
}

// RegisterObject returns a register object.
func RegisterObject(name string) OperandObject {
	return OperandObject{Kind: ObjectRegister, Register: name}
}

// ImmediateObject returns an immediate or displacement object.
func ImmediateObject(v uint64) OperandObject {
	return OperandObject{Kind: ObjectImmediate, Value: v}
}

// SegmentObject returns a segment object.
func SegmentObject(name string) OperandObject {
	return OperandObject{Kind: ObjectSegment, Segment: name}
}

func (o OperandObject) String() string {
	switch o.Kind {
	case ObjectRegister:
		if o.Scale > 1 {
			return fmt.Sprintf("%s*%d", o.Register, o.Scale)
		}
		return o.Register
	case ObjectImmediate:
		if int64(o.Value) < 0 {
			return fmt.Sprintf("-0x%X", -int64(o.Value))
		}
		return fmt.Sprintf("0x%X", o.Value)
	case ObjectSegment:
		return o.Segment
	}
	return "?"
}

// Operand is a decoded instruction operand.
type Operand struct {
	Objects []OperandObject
	Types   OperandType
}

// RegisterOperand returns a plain register operand.
func RegisterOperand(name string) Operand {
	return Operand{Objects: []OperandObject{RegisterObject(name)}, Types: TypeRegister}
}

// ImmediateOperand returns a plain constant operand.
func ImmediateOperand(v uint64) Operand {
	return Operand{Objects: []OperandObject{ImmediateObject(v)}, Types: TypeConstant}
}

// Append adds an object to the operand.
func (o *Operand) Append(obj OperandObject) {
	o.Objects = append(o.Objects, obj)
}

// Segment returns the segment override attached to the operand, if any.
func (o Operand) Segment() (string, bool) {
	for _, obj := range o.Objects {
		if obj.Kind == ObjectSegment {
			return obj.Segment, true
		}
	}
	return "", false
}

// Displacement returns the displacement of a memory operand, if any.
func (o Operand) Displacement() (int64, bool) {
	for _, obj := range o.Objects {
		if obj.Kind == ObjectImmediate {
			return int64(obj.Value), true
		}
	}
	return 0, false
}

// Registers returns the register names of the operand in order.
func (o Operand) Registers() []string {
	var regs []string
	for _, obj := range o.Objects {
		if obj.Kind == ObjectRegister {
			regs = append(regs, obj.Register)
		}
	}
	return regs
}

// String renders the operand in Intel syntax.
func (o Operand) String() string {
	if !o.Types.Has(TypeMemory) {
		parts := make([]string, 0, len(o.Objects))
		for _, obj := range o.Objects {
			parts = append(parts, obj.String())
		}
		return strings.Join(parts, ":")
	}

	var sb strings.Builder
	if seg, ok := o.Segment(); ok {
		sb.WriteString(seg)
		sb.WriteByte(':')
	}
	sb.WriteByte('[')
	first := true
	for _, obj := range o.Objects {
		switch obj.Kind {
		case ObjectSegment:
			continue
		case ObjectImmediate:
			if !first && int64(obj.Value) >= 0 {
				sb.WriteByte('+')
			}
		default:
			if !first {
				sb.WriteByte('+')
			}
		}
		sb.WriteString(obj.String())
		first = false
	}
	sb.WriteByte(']')
	return sb.String()
}

var registers = [4][16]string{
	{"AL", "CL", "DL", "BL", "AH", "CH", "DH", "BH",
		"R8B", "R9B", "R10B", "R11B", "R12B", "R13B", "R14B", "R15B"},
	{"AX", "CX", "DX", "BX", "SP", "BP", "SI", "DI",
		"R8W", "R9W", "R10W", "R11W", "R12W", "R13W", "R14W", "R15W"},
	{"EAX", "ECX", "EDX", "EBX", "ESP", "EBP", "ESI", "EDI",
		"R8D", "R9D", "R10D", "R11D", "R12D", "R13D", "R14D", "R15D"},
	{"RAX", "RCX", "RDX", "RBX", "RSP", "RBP", "RSI", "RDI",
		"R8", "R9", "R10", "R11", "R12", "R13", "R14", "R15"},
}

var segments = [8]string{"ES", "CS", "SS", "DS", "FS", "GS", "SR6", "SR7"}

// RegisterName returns the name of register reg (0-15) at width w.
func RegisterName(w Width, reg int) string {
	return registers[w&3][reg&15]
}

// SegmentName returns the name of segment register seg (0-7).
func SegmentName(seg int) string {
	return segments[seg&7]
}

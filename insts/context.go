package insts

import "fmt"

// stackCapacity bounds the interpreter's operand stack.
const stackCapacity = 4

// Context is the transient state of one Decode call. It is created per
// instruction and must not be shared.
type Context struct {
	Address  uint64 // address of the first byte of the instruction
	Opcode   byte   // current opcode byte
	Flags    Flags  // flag register
	Mnemonic string // mnemonic as resolved so far

	reader ByteReader
	entry  Entry

	// Operand stack carrying numeric arguments between directives.
	stack [stackCapacity]int
	depth int

	// Size override for the next immediate read.
	override    Width
	hasOverride bool
}

// Reader returns the byte reader of the instruction being decoded.
func (c *Context) Reader() ByteReader {
	return c.reader
}

// Push pushes an argument onto the operand stack.
func (c *Context) Push(v int) error {
	if c.depth == stackCapacity {
		return fmt.Errorf("%w: operand stack overflow at opcode 0x%02X", ErrMalformedTable, c.Opcode)
	}
	c.stack[c.depth] = v
	c.depth++
	return nil
}

// Pop pops an argument from the operand stack.
func (c *Context) Pop() (int, error) {
	if c.depth == 0 {
		return 0, fmt.Errorf("%w: operand stack underflow at opcode 0x%02X", ErrMalformedTable, c.Opcode)
	}
	c.depth--
	return c.stack[c.depth], nil
}

// SetOverride forces the width of the next immediate read.
func (c *Context) SetOverride(w Width) {
	c.override = w
	c.hasOverride = true
}

// takeOverride returns and clears the size override.
func (c *Context) takeOverride() (Width, bool) {
	if !c.hasOverride {
		return 0, false
	}
	c.hasOverride = false
	return c.override, true
}

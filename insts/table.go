package insts

import (
	"fmt"
)

// Handler decodes the operands of an opcode whose operation string contains
// the h directive. It appends to ops and returns the result.
type Handler func(d *Decoder, ctx *Context, ops []Operand) ([]Operand, error)

// Entry is one opcode table entry.
type Entry struct {
	Mnemonic MnemonicSpec
	Ops      string  // operation string
	Handler  Handler // required when Ops contains 'h'
}

// Table maps opcode bytes to entries and legacy prefix bytes to flags.
// A Table is immutable once built and may be shared between decoders.
type Table struct {
	entries  []Entry
	prefixes map[byte]Flags
}

// NewTable validates entries and builds a table. Entry i describes opcode
// byte i; opcodes at or beyond len(entries) decode as unknown.
func NewTable(entries []Entry, prefixes map[byte]Flags) (*Table, error) {
	if len(entries) > 256 {
		return nil, fmt.Errorf("%w: %d entries", ErrMalformedTable, len(entries))
	}

	for op, e := range entries {
		if err := validateEntry(e); err != nil {
			return nil, fmt.Errorf("opcode 0x%02X: %w", op, err)
		}
	}

	t := &Table{
		entries:  make([]Entry, len(entries)),
		prefixes: make(map[byte]Flags, len(prefixes)),
	}
	copy(t.entries, entries)
	for b, f := range prefixes {
		t.prefixes[b] = f
	}

	return t, nil
}

// MustTable is like NewTable but panics on an invalid table.
func MustTable(entries []Entry, prefixes map[byte]Flags) *Table {
	t, err := NewTable(entries, prefixes)
	if err != nil {
		panic(err)
	}
	return t
}

// Len returns the number of opcodes covered by the table.
func (t *Table) Len() int {
	return len(t.entries)
}

// Lookup returns the entry for opcode op. The second result is false when
// the opcode has no entry.
func (t *Table) Lookup(op byte) (Entry, bool) {
	if int(op) >= len(t.entries) {
		return Entry{}, false
	}
	e := t.entries[op]
	return e, e.Mnemonic.Kind() != KindNone
}

// PrefixFlags returns the flags set by legacy prefix byte b.
func (t *Table) PrefixFlags(b byte) (Flags, bool) {
	f, ok := t.prefixes[b]
	return f, ok
}

// validateEntry checks the operand stack discipline of an operation string
// and that its mnemonic spec matches the directives that resolve it.
func validateEntry(e Entry) error {
	var (
		stack    []int
		hasSize  bool
		hasGroup bool
		hasH     bool
	)

	for i := 0; i < len(e.Ops); i++ {
		c := e.Ops[i]

		if c >= '0' && c <= '9' {
			if len(stack) == stackCapacity {
				return fmt.Errorf("%w: %q overflows the operand stack", ErrMalformedTable, e.Ops)
			}
			stack = append(stack, int(c-'0'))
			continue
		}

		switch c {
		case 'r', 'F', 'p', 'O', 'S':
			if len(stack) == 0 {
				return fmt.Errorf("%w: %q pops an empty operand stack at %q", ErrMalformedTable, e.Ops, c)
			}
			v := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if err := checkArgument(c, v); err != nil {
				return fmt.Errorf("%w: %q: %v", ErrMalformedTable, e.Ops, err)
			}
		case 's':
			hasSize = true
		case 'R', 'm':
			hasGroup = true
		case 'h':
			hasH = true
		}
	}

	if len(stack) != 0 {
		return fmt.Errorf("%w: %q leaves %d values on the operand stack", ErrMalformedTable, e.Ops, len(stack))
	}

	switch e.Mnemonic.Kind() {
	case KindBySize:
		if !hasSize {
			return fmt.Errorf("%w: size-variant mnemonic without 's' in %q", ErrMalformedTable, e.Ops)
		}
	case KindByRegField:
		if !hasGroup && !hasH {
			return fmt.Errorf("%w: reg-field mnemonic without ModRM decode in %q", ErrMalformedTable, e.Ops)
		}
	default:
		if hasSize {
			return fmt.Errorf("%w: 's' in %q needs a size-variant mnemonic", ErrMalformedTable, e.Ops)
		}
	}

	return nil
}

func checkArgument(directive byte, v int) error {
	switch directive {
	case 'F':
		if v < 1 || v > len(decoderFlags) {
			return fmt.Errorf("decoder flag index %d out of range", v)
		}
	case 'p':
		if v < 1 || v > len(prefixFlags) {
			return fmt.Errorf("prefix index %d out of range", v)
		}
	case 'O':
		if v > int(Width64) {
			return fmt.Errorf("size override %d out of range", v)
		}
	case 'S':
		if v >= len(segments) {
			return fmt.Errorf("segment index %d out of range", v)
		}
	}
	return nil
}

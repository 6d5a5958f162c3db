package insts

import "errors"

// Decode outcomes other than a produced instruction. Callers distinguish them
// with errors.Is.
var (
	// ErrNoInstruction reports that the bytes were consumed as prefixes but
	// an unrecognized prefix byte stopped decoding. It is recoverable: the
	// caller may resynchronize at the next byte.
	ErrNoInstruction = errors.New("no instruction produced")

	// ErrUnimplemented reports an opcode whose operation string requires a
	// handler that is not registered. It is a table consistency error, not
	// a malformed-input error.
	ErrUnimplemented = errors.New("unimplemented opcode")

	// ErrTruncated reports that the byte reader ran out of input in the
	// middle of an instruction.
	ErrTruncated = errors.New("truncated instruction")

	// ErrMalformedTable reports an operation string that misuses the
	// operand stack or names an out-of-range flag, prefix or width.
	ErrMalformedTable = errors.New("malformed opcode table")
)

// Package disasm runs the instruction decoder over a range of code.
package disasm

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-logr/logr"
	"golang.org/x/arch/x86/x86asm"

	"github.com/sarchlab/x86dis/insts"
	"github.com/sarchlab/x86dis/stream"
)

// maxInstLen is the architectural limit on instruction length.
const maxInstLen = 15

// Line is the outcome of decoding at one address.
type Line struct {
	Address uint64
	Bytes   []byte
	Inst    *insts.Instruction // nil when Err is set
	Err     error

	// Reference is the x86asm rendering when cross-checking is enabled.
	Reference string
	// Mismatch reports that x86asm decoded a different length.
	Mismatch bool
}

// Summary counts the outcomes of a run.
type Summary struct {
	Decoded    int
	Unknown    int // decoded with the UNKNOWN mnemonic
	Skipped    int // bytes skipped after ErrNoInstruction or ErrUnimplemented
	Mismatches int
	Truncated  bool // the range ended inside an instruction
}

// Session decodes ranges of code with a fixed decoder and policy.
type Session struct {
	decoder             *insts.Decoder
	logger              logr.Logger
	maxInstructions     int
	stopOnUnimplemented bool
	crossCheck          bool
}

// Option is a functional option for configuring the Session.
type Option func(*Session)

// WithLogger sets the logger for skipped bytes and length mismatches.
func WithLogger(l logr.Logger) Option {
	return func(s *Session) {
		s.logger = l
	}
}

// WithMaxInstructions stops a run after n lines. Zero means no limit.
func WithMaxInstructions(n int) Option {
	return func(s *Session) {
		s.maxInstructions = n
	}
}

// WithStopOnUnimplemented ends a run at the first opcode without a handler.
func WithStopOnUnimplemented(stop bool) Option {
	return func(s *Session) {
		s.stopOnUnimplemented = stop
	}
}

// WithCrossCheck compares every decoded length with x86asm.
func WithCrossCheck(enabled bool) Option {
	return func(s *Session) {
		s.crossCheck = enabled
	}
}

// NewSession creates a session around decoder.
func NewSession(decoder *insts.Decoder, opts ...Option) *Session {
	s := &Session{
		decoder: decoder,
		logger:  logr.Discard(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Run decodes from r until the range is exhausted, the instruction limit is
// reached or ctx is cancelled, passing each line to emit.
//
// Bytes that start no instruction are skipped one at a time. A range that
// ends inside an instruction yields a final line carrying ErrTruncated.
func (s *Session) Run(ctx context.Context, r *stream.Reader, emit func(Line) error) (Summary, error) {
	var sum Summary

	for count := 0; r.Remaining() > 0; count++ {
		if s.maxInstructions > 0 && count >= s.maxInstructions {
			break
		}
		if err := ctx.Err(); err != nil {
			return sum, err
		}

		line, stop, err := s.step(r, &sum)
		if err != nil {
			return sum, err
		}
		if err := emit(line); err != nil {
			return sum, err
		}
		if stop {
			break
		}
	}

	return sum, nil
}

// Collect runs the session and returns all lines.
func (s *Session) Collect(ctx context.Context, r *stream.Reader) ([]Line, Summary, error) {
	var lines []Line
	sum, err := s.Run(ctx, r, func(l Line) error {
		lines = append(lines, l)
		return nil
	})
	return lines, sum, err
}

// step decodes one line. stop ends the run after the line is emitted.
func (s *Session) step(r *stream.Reader, sum *Summary) (line Line, stop bool, err error) {
	start := r.Pos()
	line.Address = start

	inst, derr := s.decoder.Decode(r)
	switch {
	case derr == nil:
		line.Inst = inst
		line.Bytes, err = r.Bytes(start, int(inst.Length))
		if err != nil {
			return line, false, err
		}
		sum.Decoded++
		if inst.Mnemonic == insts.MnemonicUnknown {
			sum.Unknown++
		}
		if s.crossCheck {
			s.compare(r, &line, sum)
		}
		return line, false, nil

	case errors.Is(derr, insts.ErrUnimplemented) && s.stopOnUnimplemented:
		line.Err = derr
		line.Bytes, _ = r.Bytes(start, 1)
		return line, true, nil

	case errors.Is(derr, insts.ErrNoInstruction), errors.Is(derr, insts.ErrUnimplemented):
		line.Err = derr
		line.Bytes, _ = r.Bytes(start, 1)
		sum.Skipped++
		s.logger.Info("skipping byte", "address", fmt.Sprintf("0x%X", start), "reason", derr.Error())
		return line, false, r.Seek(start + 1)

	case errors.Is(derr, insts.ErrTruncated):
		line.Err = derr
		line.Bytes, _ = r.Bytes(start, int(r.End()-start))
		sum.Truncated = true
		return line, true, nil
	}

	return line, true, derr
}

// compare decodes the same bytes with x86asm and records the result.
func (s *Session) compare(r *stream.Reader, line *Line, sum *Summary) {
	n := min(uint64(maxInstLen), r.End()-line.Address)
	code, err := r.Bytes(line.Address, int(n))
	if err != nil {
		return
	}

	ref, err := x86asm.Decode(code, int(s.decoder.Platform()))
	if err != nil {
		line.Reference = "error: " + err.Error()
		line.Mismatch = true
	} else {
		line.Reference = x86asm.IntelSyntax(ref, line.Address, nil)
		line.Mismatch = uint64(ref.Len) != line.Inst.Length
	}

	if line.Mismatch {
		sum.Mismatches++
		s.logger.Info("length mismatch", "address", fmt.Sprintf("0x%X", line.Address),
			"decoded", line.Inst.String(), "length", line.Inst.Length, "reference", line.Reference)
	}
}

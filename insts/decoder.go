package insts

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-logr/logr"
)

// ByteReader is a sequential little-endian cursor over machine code. Pos
// returns the address of the next unread byte.
type ByteReader interface {
	ReadByte() (byte, error)
	ReadWord() (uint16, error)
	ReadDword() (uint32, error)
	ReadQword() (uint64, error)
	Pos() uint64
}

// Instruction represents a decoded x86 instruction.
type Instruction struct {
	Address  uint64    // address of the first byte, prefixes included
	Opcode   byte      // opcode byte after prefixes
	Mnemonic string    // resolved mnemonic
	Length   uint64    // bytes consumed, prefixes included
	Operands []Operand // operands in Intel order
	Class    Class     // category derived from the mnemonic
	Prefixes Flags     // flags set by the prefix bytes
}

// String renders the instruction in Intel syntax.
func (i *Instruction) String() string {
	var sb strings.Builder

	switch {
	case i.Prefixes.Has(PrefixLock):
		sb.WriteString("LOCK ")
	case i.Prefixes.Has(PrefixRep):
		sb.WriteString("REP ")
	case i.Prefixes.Has(PrefixRepne):
		sb.WriteString("REPNE ")
	}
	sb.WriteString(i.Mnemonic)

	for n, op := range i.Operands {
		if n == 0 {
			sb.WriteByte(' ')
		} else {
			sb.WriteString(", ")
		}
		sb.WriteString(op.String())
	}

	return sb.String()
}

// Decoder decodes x86 machine code into instructions. A Decoder holds only
// read-only state and may be used from several goroutines, provided each
// call has its own ByteReader.
type Decoder struct {
	table    *Table
	platform Bits
	logger   logr.Logger
}

// DecoderOption is a functional option for configuring the Decoder.
type DecoderOption func(*Decoder)

// WithPlatform sets the addressing capability of the target.
func WithPlatform(b Bits) DecoderOption {
	return func(d *Decoder) {
		d.platform = b
	}
}

// WithTable replaces the opcode table.
func WithTable(t *Table) DecoderOption {
	return func(d *Decoder) {
		d.table = t
	}
}

// WithLogger sets the sink for decoding warnings.
func WithLogger(l logr.Logger) DecoderOption {
	return func(d *Decoder) {
		d.logger = l
	}
}

// NewDecoder creates a decoder for a 64-bit platform using the default
// opcode table.
func NewDecoder(opts ...DecoderOption) *Decoder {
	d := &Decoder{
		table:    DefaultTable(),
		platform: Bits64,
		logger:   logr.Discard(),
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

// Platform returns the platform width the decoder targets.
func (d *Decoder) Platform() Bits {
	return d.platform
}

// Decode decodes one instruction starting at r.Pos().
//
// Besides a decoded instruction, the outcomes are ErrNoInstruction
// (unrecognized prefix), ErrUnimplemented (missing handler),
// ErrMalformedTable and ErrTruncated (reader exhausted).
func (d *Decoder) Decode(r ByteReader) (*Instruction, error) {
	ctx := &Context{
		Address: r.Pos(),
		reader:  r,
	}

	inst, err := d.decode(ctx)
	if err != nil {
		if errors.Is(err, ErrNoInstruction) ||
			errors.Is(err, ErrUnimplemented) ||
			errors.Is(err, ErrMalformedTable) {
			return nil, err
		}
		return nil, fmt.Errorf("%w at 0x%X: %w", ErrTruncated, ctx.Address, err)
	}

	return inst, nil
}

func (d *Decoder) decode(ctx *Context) (*Instruction, error) {
	op, err := ctx.reader.ReadByte()
	if err != nil {
		return nil, err
	}
	ctx.Opcode = op

	for d.isPrefix(ctx.Opcode) {
		if err := d.decodePrefix(ctx); err != nil {
			return nil, err
		}
	}
	prefixes := ctx.Flags

	entry, ok := d.table.Lookup(ctx.Opcode)
	if !ok {
		entry = Entry{}
	}
	ctx.entry = entry
	ctx.Mnemonic = entry.Mnemonic.Name()

	operands, err := d.interpret(ctx)
	if err != nil {
		return nil, err
	}

	d.applySegmentOverride(ctx, operands)

	return &Instruction{
		Address:  ctx.Address,
		Opcode:   ctx.Opcode,
		Mnemonic: ctx.Mnemonic,
		Length:   ctx.reader.Pos() - ctx.Address,
		Operands: operands,
		Class:    Classify(ctx.Mnemonic),
		Prefixes: prefixes,
	}, nil
}

// isPrefix reports whether op is consumed by the prefix resolver.
func (d *Decoder) isPrefix(op byte) bool {
	if d.isRex(op) {
		return true
	}
	e, ok := d.table.Lookup(op)
	return ok && e.Mnemonic.Kind() == KindPrefix
}

func (d *Decoder) isRex(op byte) bool {
	return op >= 0x40 && op <= 0x4F && d.platform == Bits64
}

// decodePrefix folds the current prefix byte into the flag register and
// advances to the next byte. The last segment prefix wins.
func (d *Decoder) decodePrefix(ctx *Context) error {
	var (
		flags Flags
		ok    bool
	)
	if d.isRex(ctx.Opcode) {
		flags, ok = rexFlags(ctx.Opcode), true
	} else {
		flags, ok = d.table.PrefixFlags(ctx.Opcode)
	}

	if !ok {
		d.logger.Info("unhandled prefix", "prefix", fmt.Sprintf("0x%02X", ctx.Opcode),
			"address", fmt.Sprintf("0x%X", ctx.Address))
		return fmt.Errorf("%w: unrecognized prefix 0x%02X at 0x%X", ErrNoInstruction, ctx.Opcode, ctx.Address)
	}

	if flags.Has(PrefixSegmentOverride) {
		ctx.Flags.SetSegment(flags.Segment())
	}
	ctx.Flags.Set(flags &^ SegmentMask)

	op, err := ctx.reader.ReadByte()
	if err != nil {
		return err
	}
	ctx.Opcode = op

	return nil
}

// applySegmentOverride attaches the selected segment to the first memory
// operand.
func (d *Decoder) applySegmentOverride(ctx *Context, operands []Operand) {
	if !ctx.Flags.Has(PrefixSegmentOverride) {
		return
	}

	for i := range operands {
		if operands[i].Types.Has(TypeMemory) {
			operands[i].Append(SegmentObject(SegmentName(ctx.Flags.Segment())))
			return
		}
	}
}

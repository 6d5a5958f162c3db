package insts

import (
	"fmt"

	"github.com/davecgh/go-spew/spew"
)

var dumper = spew.ConfigState{
	Indent:                  "  ",
	DisablePointerAddresses: true,
	DisableCapacities:       true,
	SortKeys:                true,
}

// interpret runs the operation string of the current opcode.
func (d *Decoder) interpret(ctx *Context) ([]Operand, error) {
	ops := make([]Operand, 0, 3)
	program := ctx.entry.Ops

	for i := 0; i < len(program); i++ {
		c := program[i]

		if c >= '0' && c <= '9' {
			if err := ctx.Push(int(c - '0')); err != nil {
				return nil, err
			}
			continue
		}

		var err error
		switch c {
		case 'R':
			ops, err = d.decodeRegRM(ctx, ops)
		case 'm':
			ops, err = d.decodeRM(ctx, ops)
		case 'M':
			ops = d.decodeR(ctx, ops)
		case 'r':
			var reg int
			if reg, err = ctx.Pop(); err == nil {
				ops = append(ops, RegisterOperand(RegisterName(d.ResolveSize(true, ctx), reg)))
			}
		case 'i', 'I':
			var v uint64
			if v, err = d.ReadImmediate(ctx, d.ResolveSize(true, ctx), c == 'I'); err == nil {
				ops = append(ops, ImmediateOperand(v))
			}
		case 'U':
			reg := int(ctx.Opcode & 0x07)
			ops = append(ops, RegisterOperand(RegisterName(d.ResolveSize(true, ctx), reg)))
		case 'F':
			err = d.setIndexed(ctx, decoderFlags[:])
		case 'p':
			err = d.setIndexed(ctx, prefixFlags[:])
		case 'l':
			ctx.Flags.Set(PrefixLegacy)
		case 'O':
			var w int
			if w, err = ctx.Pop(); err == nil {
				if w < 0 || w > int(Width64) {
					err = fmt.Errorf("%w: size override %d at opcode 0x%02X", ErrMalformedTable, w, ctx.Opcode)
				} else {
					ctx.SetOverride(Width(w))
				}
			}
		case 's':
			d.selectSizeMnemonic(ctx)
		case 'S':
			var seg int
			if seg, err = ctx.Pop(); err == nil {
				ctx.Flags.SetSegment(seg)
			}
		case 'h':
			if ctx.entry.Handler == nil {
				return nil, fmt.Errorf("%w: no handler for opcode 0x%02X at 0x%X",
					ErrUnimplemented, ctx.Opcode, ctx.Address)
			}
			ops, err = ctx.entry.Handler(d, ctx, ops)
		case 'D':
			d.dump(ctx, ops)
		default:
			d.logger.Info("unhandled operation", "directive", string(c),
				"opcode", fmt.Sprintf("0x%02X", ctx.Opcode))
		}

		if err != nil {
			return nil, err
		}
	}

	return ops, nil
}

// setIndexed pops a 1-based index and sets the matching flag of list.
func (d *Decoder) setIndexed(ctx *Context, list []Flags) error {
	n, err := ctx.Pop()
	if err != nil {
		return err
	}
	if n < 1 || n > len(list) {
		return fmt.Errorf("%w: flag index %d at opcode 0x%02X", ErrMalformedTable, n, ctx.Opcode)
	}
	ctx.Flags.Set(list[n-1])
	return nil
}

// selectSizeMnemonic resolves a size-variant mnemonic from the register
// width. Widths without a variant keep the current name.
func (d *Decoder) selectSizeMnemonic(ctx *Context) {
	if ctx.entry.Mnemonic.Kind() != KindBySize {
		d.logger.Info("size-variant directive on fixed mnemonic",
			"opcode", fmt.Sprintf("0x%02X", ctx.Opcode))
		return
	}
	if name := ctx.entry.Mnemonic.ForWidth(d.ResolveSize(true, ctx)); name != "" {
		ctx.Mnemonic = name
	}
}

func (d *Decoder) dump(ctx *Context, ops []Operand) {
	v := d.logger.V(1)
	if !v.Enabled() {
		return
	}
	v.Info("decoder state",
		"mnemonic", ctx.Mnemonic,
		"opcode", fmt.Sprintf("0x%02X", ctx.Opcode),
		"address", fmt.Sprintf("0x%X", ctx.Address),
		"flags", fmt.Sprintf("%064b", uint64(ctx.Flags)),
		"operation", ctx.entry.Ops,
		"operands", dumper.Sdump(ops))
}

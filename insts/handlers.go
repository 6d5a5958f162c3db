package insts

import "fmt"

// segmentPushPop handles PUSH/POP of ES, CS, SS and DS (06/07/0E/16/17/1E/1F).
func segmentPushPop(d *Decoder, ctx *Context, ops []Operand) ([]Operand, error) {
	seg := int(ctx.Opcode>>3) & 0x3
	return append(ops, RegisterOperand(SegmentName(seg))), nil
}

// farPointer handles CALLF/JMPF ptr16:16 and ptr16:32 (9A, EA). The offset
// width follows the operand size.
func farPointer(d *Decoder, ctx *Context, ops []Operand) ([]Operand, error) {
	offset, err := d.ReadImmediate(ctx, d.ResolveSize(true, ctx), true)
	if err != nil {
		return nil, err
	}

	selector, err := ctx.reader.ReadWord()
	if err != nil {
		return nil, err
	}

	return append(ops, Operand{
		Objects: []OperandObject{
			SegmentObject(fmt.Sprintf("0x%X", selector)),
			ImmediateObject(offset),
		},
		Types: TypeConstant,
	}), nil
}

// memoryOffset handles MOV between the accumulator and an absolute offset
// (A0-A3). Bit 0 selects the full-width accumulator, bit 1 the store form.
func memoryOffset(d *Decoder, ctx *Context, ops []Operand) ([]Operand, error) {
	offset, err := readUnsigned(ctx.reader, d.AddressWidth(ctx))
	if err != nil {
		return nil, err
	}

	if ctx.Opcode&0x01 == 0 {
		ctx.Flags.Set(PrefixLegacy)
	}
	acc := RegisterOperand(RegisterName(d.ResolveSize(true, ctx), 0))
	mem := Operand{
		Objects: []OperandObject{ImmediateObject(offset)},
		Types:   TypeMemory | TypeConstant,
	}

	if ctx.Opcode&0x02 == 0 {
		return append(ops, acc, mem), nil
	}
	return append(ops, mem, acc), nil
}

// regMem handles Gv,M forms whose opcode bits do not follow the s/d
// convention (BOUND, LES, LDS).
func regMem(d *Decoder, ctx *Context, ops []Operand) ([]Operand, error) {
	m, err := d.ReadModRM(ctx)
	if err != nil {
		return nil, err
	}

	w := d.ResolveSize(true, ctx)
	reg := d.RegOperand(ctx, m, w)
	rm, err := d.RMOperand(ctx, m, w)
	if err != nil {
		return nil, err
	}

	return append(ops, reg, rm), nil
}

// arplMovsxd handles opcode 63: ARPL Ew,Gw outside 64-bit mode and
// MOVSXD Gv,Ed in 64-bit mode.
func arplMovsxd(d *Decoder, ctx *Context, ops []Operand) ([]Operand, error) {
	m, err := d.ReadModRM(ctx)
	if err != nil {
		return nil, err
	}

	if d.platform != Bits64 {
		rm, err := d.RMOperand(ctx, m, Width16)
		if err != nil {
			return nil, err
		}
		return append(ops, rm, d.RegOperand(ctx, m, Width16)), nil
	}

	ctx.Mnemonic = "MOVSXD"
	reg := d.RegOperand(ctx, m, d.ResolveSize(true, ctx))
	rm, err := d.RMOperand(ctx, m, Width32)
	if err != nil {
		return nil, err
	}
	return append(ops, reg, rm), nil
}

// group3Operands handles F6/F7, where only TEST (/0, /1) carries an
// immediate.
func group3Operands(d *Decoder, ctx *Context, ops []Operand) ([]Operand, error) {
	m, err := d.ReadModRM(ctx)
	if err != nil {
		return nil, err
	}

	d.selectGroupMnemonic(ctx, m.Reg)
	if ctx.Opcode&0x01 == 0 {
		ctx.Flags.Set(PrefixLegacy)
	}
	w := d.ResolveSize(true, ctx)

	rm, err := d.RMOperand(ctx, m, w)
	if err != nil {
		return nil, err
	}
	ops = append(ops, rm)

	if m.Reg <= 1 {
		v, err := d.ReadImmediate(ctx, w, false)
		if err != nil {
			return nil, err
		}
		ops = append(ops, ImmediateOperand(v))
	}

	return ops, nil
}

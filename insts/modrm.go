package insts

// ModRM is a decoded ModRM byte.
//
//	7 6   5 4 3   2 1 0
//	mod    reg     r/m
type ModRM struct {
	Mod byte
	Reg byte
	RM  byte
}

// ReadModRM reads and splits a ModRM byte.
func (d *Decoder) ReadModRM(ctx *Context) (ModRM, error) {
	b, err := ctx.reader.ReadByte()
	if err != nil {
		return ModRM{}, err
	}
	return ModRM{
		Mod: (b >> 6) & 0x3, // bits [7:6]
		Reg: (b >> 3) & 0x7, // bits [5:3]
		RM:  b & 0x7,        // bits [2:0]
	}, nil
}

// decodeRegister names register reg at width w. While the segment register
// flag is set, reg names a segment register instead; the flag is cleared by
// the read.
func (d *Decoder) decodeRegister(ctx *Context, reg int, w Width) string {
	if ctx.Flags.Has(FlagSegmentRegRM) {
		ctx.Flags.Unset(FlagSegmentRegRM)
		return SegmentName(reg & 7)
	}
	return RegisterName(w, reg)
}

// extend adds a REX extension bit to a 3-bit register number.
func extend(ctx *Context, reg byte, bit Flags) int {
	r := int(reg & 7)
	if ctx.Flags.Has(bit) {
		r |= 8
	}
	return r
}

// selectGroupMnemonic resolves a reg-field indexed mnemonic.
func (d *Decoder) selectGroupMnemonic(ctx *Context, reg byte) {
	if ctx.entry.Mnemonic.Kind() == KindByRegField {
		ctx.Mnemonic = ctx.entry.Mnemonic.ForReg(int(reg))
	}
}

// decodeR decodes the register encoded in the low three opcode bits.
func (d *Decoder) decodeR(ctx *Context, ops []Operand) []Operand {
	reg := extend(ctx, ctx.Opcode, RexB)
	return append(ops, RegisterOperand(d.decodeRegister(ctx, reg, d.ResolveSize(true, ctx))))
}

// decodeRM decodes a ModRM byte whose reg field is not an operand.
func (d *Decoder) decodeRM(ctx *Context, ops []Operand) ([]Operand, error) {
	m, err := d.ReadModRM(ctx)
	if err != nil {
		return nil, err
	}

	d.selectGroupMnemonic(ctx, m.Reg)

	rm, err := d.RMOperand(ctx, m, d.ResolveSize(true, ctx))
	if err != nil {
		return nil, err
	}
	return append(ops, rm), nil
}

// decodeRegRM decodes a full REG/RM operand pair.
//
//	[opcode] d s   mod reg r/m
//
// d (bit 1) puts the reg operand first, s (bit 0) clear selects 8-bit
// operands.
func (d *Decoder) decodeRegRM(ctx *Context, ops []Operand) ([]Operand, error) {
	m, err := d.ReadModRM(ctx)
	if err != nil {
		return nil, err
	}

	wide := ctx.Opcode&0x01 != 0
	forward := ctx.Opcode&0x02 != 0 || ctx.Flags.Has(FlagIgnoreDirection)
	imm := ctx.Flags.Has(FlagRegRMImmediate)

	d.selectGroupMnemonic(ctx, m.Reg)

	if !wide {
		ctx.Flags.Set(PrefixLegacy)
	}
	w := d.ResolveSize(true, ctx)

	if forward && !imm {
		ops = append(ops, d.RegOperand(ctx, m, w))
	}

	rm, err := d.RMOperand(ctx, m, w)
	if err != nil {
		return nil, err
	}
	ops = append(ops, rm)

	if imm {
		v, err := d.ReadImmediate(ctx, w, false)
		if err != nil {
			return nil, err
		}
		ops = append(ops, ImmediateOperand(v))
	}

	if !forward && !imm {
		ops = append(ops, d.RegOperand(ctx, m, w))
	}

	return ops, nil
}

// RegOperand returns the operand named by the ModRM reg field.
func (d *Decoder) RegOperand(ctx *Context, m ModRM, w Width) Operand {
	return RegisterOperand(d.decodeRegister(ctx, extend(ctx, m.Reg, RexR), w))
}

// RMOperand returns the operand named by the ModRM mod and r/m fields,
// reading any SIB byte and displacement. w is the width of a register r/m.
func (d *Decoder) RMOperand(ctx *Context, m ModRM, w Width) (Operand, error) {
	if m.Mod == 3 {
		return RegisterOperand(RegisterName(w, extend(ctx, m.RM, RexB))), nil
	}

	aw := d.AddressWidth(ctx)
	if aw == Width16 {
		return d.memory16(ctx, m)
	}

	if m.RM == 4 {
		return d.memorySIB(ctx, m, aw)
	}

	if m.Mod == 0 && m.RM == 5 {
		disp, err := d.displacement(ctx, 2)
		if err != nil {
			return Operand{}, err
		}
		return Operand{
			Objects: []OperandObject{ImmediateObject(disp)},
			Types:   TypeMemory | TypeConstant,
		}, nil
	}

	op := Operand{
		Objects: []OperandObject{RegisterObject(RegisterName(aw, extend(ctx, m.RM, RexB)))},
		Types:   TypeMemory | TypeRegister,
	}
	if m.Mod == 0 {
		return op, nil
	}

	disp, err := d.displacement(ctx, m.Mod)
	if err != nil {
		return Operand{}, err
	}
	op.Append(ImmediateObject(disp))
	op.Types |= TypeConstant

	return op, nil
}

// memorySIB decodes a SIB-addressed memory operand.
//
//	 7 6     5 4 3   2 1 0
//	scale    index    base
func (d *Decoder) memorySIB(ctx *Context, m ModRM, aw Width) (Operand, error) {
	sib, err := ctx.reader.ReadByte()
	if err != nil {
		return Operand{}, err
	}

	scale := uint8(1) << (sib >> 6)    // bits [7:6]
	index := extend(ctx, sib>>3, RexX) // bits [5:3]
	base := extend(ctx, sib, RexB)     // bits [2:0]
	noBase := m.Mod == 0 && base&7 == 5

	op := Operand{Types: TypeMemory}
	if !noBase {
		op.Append(RegisterObject(RegisterName(aw, base)))
		op.Types |= TypeRegister
	}
	if index != 4 {
		idx := RegisterObject(RegisterName(aw, index))
		idx.Scale = scale
		op.Append(idx)
		op.Types |= TypeRegister
	}

	mod := m.Mod
	if noBase {
		mod = 2
	}
	if mod != 0 {
		disp, err := d.displacement(ctx, mod)
		if err != nil {
			return Operand{}, err
		}
		op.Append(ImmediateObject(disp))
		op.Types |= TypeConstant
	}

	return op, nil
}

var memory16Bases = [8][]string{
	{"BX", "SI"}, {"BX", "DI"}, {"BP", "SI"}, {"BP", "DI"},
	{"SI"}, {"DI"}, {"BP"}, {"BX"},
}

// memory16 decodes a memory operand with 16-bit addressing.
func (d *Decoder) memory16(ctx *Context, m ModRM) (Operand, error) {
	if m.Mod == 0 && m.RM == 6 {
		v, err := ctx.reader.ReadWord()
		if err != nil {
			return Operand{}, err
		}
		return Operand{
			Objects: []OperandObject{ImmediateObject(uint64(v))},
			Types:   TypeMemory | TypeConstant,
		}, nil
	}

	op := Operand{Types: TypeMemory | TypeRegister}
	for _, reg := range memory16Bases[m.RM] {
		op.Append(RegisterObject(reg))
	}

	switch m.Mod {
	case 1:
		v, err := ctx.reader.ReadByte()
		if err != nil {
			return Operand{}, err
		}
		op.Append(ImmediateObject(signExtend(uint64(v), Width8)))
		op.Types |= TypeConstant
	case 2:
		v, err := ctx.reader.ReadWord()
		if err != nil {
			return Operand{}, err
		}
		op.Append(ImmediateObject(signExtend(uint64(v), Width16)))
		op.Types |= TypeConstant
	}

	return op, nil
}

// displacement reads a sign-extended disp8 (mod 1) or disp32 (mod 2).
func (d *Decoder) displacement(ctx *Context, mod byte) (uint64, error) {
	if mod == 1 {
		v, err := ctx.reader.ReadByte()
		return signExtend(uint64(v), Width8), err
	}
	v, err := ctx.reader.ReadDword()
	return signExtend(uint64(v), Width32), err
}

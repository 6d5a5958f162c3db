package insts

// ResolveSize computes the effective width for a register (reg true) or
// address/immediate context. Later rules override earlier ones:
//
//  1. 32-bit by default
//  2. 8-bit in legacy mode
//  3. 64-bit with a REX prefix on a 64-bit platform
//  4. 16-bit with an operand-size prefix in register context
//  5. 16-bit with an address-size prefix in address context
//
// The forced 8-bit decoder flag wins over all of them.
func (d *Decoder) ResolveSize(reg bool, ctx *Context) Width {
	size := Width32
	if ctx.Flags.Has(PrefixLegacy) {
		size = Width8
	}
	if ctx.Flags.Has(PrefixREX) && d.platform >= Bits64 {
		size = Width64
	}
	if ctx.Flags.Has(PrefixOperand) && reg {
		size = Width16
	}
	if ctx.Flags.Has(PrefixAddress) && !reg {
		size = Width16
	}
	if ctx.Flags.Has(FlagForce8) {
		size = Width8
	}
	return size
}

// AddressWidth returns the width of memory base and index registers and of
// absolute memory offsets.
func (d *Decoder) AddressWidth(ctx *Context) Width {
	prefixed := ctx.Flags.Has(PrefixAddress)
	switch d.platform {
	case Bits16:
		if prefixed {
			return Width32
		}
		return Width16
	case Bits32:
		if prefixed {
			return Width16
		}
		return Width32
	}
	if prefixed {
		return Width32
	}
	return Width64
}

// ReadImmediate reads an immediate for an operand of width w. A pending size
// override only decides the read width; the value is sign-extended to w
// when FlagSignExtend is set. Without an override a 64-bit operand takes a
// sign-extended imm32 unless full is set.
func (d *Decoder) ReadImmediate(ctx *Context, w Width, full bool) (uint64, error) {
	read := w
	extend := false
	if ow, ok := ctx.takeOverride(); ok {
		read = ow
		extend = ctx.Flags.Has(FlagSignExtend)
	} else if w == Width64 && !full {
		read = Width32
		extend = true
	}

	v, err := readUnsigned(ctx.reader, read)
	if err != nil {
		return 0, err
	}
	if extend && read < w {
		v = signExtend(v, read)
	}
	return v, nil
}

// readUnsigned reads a little-endian value of width w.
func readUnsigned(r ByteReader, w Width) (uint64, error) {
	switch w {
	case Width8:
		v, err := r.ReadByte()
		return uint64(v), err
	case Width16:
		v, err := r.ReadWord()
		return uint64(v), err
	case Width32:
		v, err := r.ReadDword()
		return uint64(v), err
	default:
		return r.ReadQword()
	}
}

// signExtend extends a value of width w to 64 bits.
func signExtend(v uint64, w Width) uint64 {
	shift := 64 - uint(w.Bits())
	return uint64(int64(v<<shift) >> shift)
}

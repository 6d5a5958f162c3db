package insts

// Operation strings
//
// Each opcode carries a short string of directives, interpreted left to
// right:
//
//	0-9  push a literal onto the operand stack
//	R    full REG/RM decode
//	m    ModRM-only decode
//	M    register from the low opcode bits (REX.B extended)
//	r    pop a register index, register-width register operand
//	i    immediate of register width (imm32 sign-extended for 64-bit)
//	I    immediate of full register width (imm64 allowed)
//	U    register from the low opcode bits
//	F    pop a 1-based index into decoderFlags and set it
//	p    pop a 1-based index into prefixFlags and set it
//	l    force legacy (8-bit) operands
//	O    pop a width (0-3) and install it as the size override
//	s    select the size-variant mnemonic
//	S    pop a segment index and set it as the segment override
//	h    call the opcode handler
//	D    dump decoder state at V(1)

var (
	group1  = [8]string{"ADD", "OR", "ADC", "SBB", "AND", "SUB", "XOR", "CMP"}
	group1A = [8]string{"POP"}
	group2  = [8]string{"ROL", "ROR", "RCL", "RCR", "SHL", "SHR", "SAL", "SAR"}
	group3  = [8]string{"TEST", "TEST", "NOT", "NEG", "MUL", "IMUL", "DIV", "IDIV"}
	group4  = [8]string{"INC", "DEC"}
	group5  = [8]string{"INC", "DEC", "CALL", "CALLF", "JMP", "JMPF", "PUSH"}
	group11 = [8]string{"MOV"}

	conditions = [16]string{
		"O", "NO", "B", "AE", "E", "NE", "BE", "A",
		"S", "NS", "P", "NP", "L", "GE", "LE", "G",
	}
)

// legacyPrefixes maps legacy prefix bytes to their flags. REX bytes are
// decoded structurally and are not listed.
var legacyPrefixes = map[byte]Flags{
	0x26: PrefixSegmentOverride | SegmentES,
	0x2E: PrefixSegmentOverride | SegmentCS,
	0x36: PrefixSegmentOverride | SegmentSS,
	0x3E: PrefixSegmentOverride | SegmentDS,
	0x64: PrefixSegmentOverride | SegmentFS,
	0x65: PrefixSegmentOverride | SegmentGS,
	0x66: PrefixOperand,
	0x67: PrefixAddress,
	0xF0: PrefixLock,
	0xF2: PrefixRepne,
	0xF3: PrefixRep,
}

var defaultTable = MustTable(defaultEntries(), legacyPrefixes)

// DefaultTable returns the one-byte opcode map. The 0x0F escape and the x87
// escapes (0xD8-0xDF) have no entries.
func DefaultTable() *Table {
	return defaultTable
}

func defaultEntries() []Entry {
	e := make([]Entry, 256)

	fixed := func(op int, name, ops string) {
		e[op] = Entry{Mnemonic: Fixed(name), Ops: ops}
	}
	sized := func(op int, w16, w32, w64 string) {
		e[op] = Entry{Mnemonic: BySize("", w16, w32, w64), Ops: "s"}
	}
	group := func(op int, names [8]string, ops string) {
		e[op] = Entry{Mnemonic: ByRegField(names), Ops: ops}
	}
	handled := func(op int, spec MnemonicSpec, h Handler) {
		e[op] = Entry{Mnemonic: spec, Ops: "h", Handler: h}
	}

	// ALU blocks: Eb,Gb / Ev,Gv / Gb,Eb / Gv,Ev / AL,Ib / eAX,Iz
	for i, name := range group1 {
		base := i << 3
		fixed(base+0, name, "R")
		fixed(base+1, name, "R")
		fixed(base+2, name, "R")
		fixed(base+3, name, "R")
		fixed(base+4, name, "l0ri")
		fixed(base+5, name, "0ri")
	}

	handled(0x06, Fixed("PUSH"), segmentPushPop)
	handled(0x07, Fixed("POP"), segmentPushPop)
	handled(0x0E, Fixed("PUSH"), segmentPushPop)
	handled(0x16, Fixed("PUSH"), segmentPushPop)
	handled(0x17, Fixed("POP"), segmentPushPop)
	handled(0x1E, Fixed("PUSH"), segmentPushPop)
	handled(0x1F, Fixed("POP"), segmentPushPop)

	fixed(0x27, "DAA", "")
	fixed(0x2F, "DAS", "")
	fixed(0x37, "AAA", "")
	fixed(0x3F, "AAS", "")

	for _, op := range [...]int{0x26, 0x2E, 0x36, 0x3E, 0x64, 0x65, 0x66, 0x67, 0xF0, 0xF2, 0xF3} {
		e[op] = Entry{Mnemonic: Prefix()}
	}

	for r := 0; r < 8; r++ {
		fixed(0x40+r, "INC", "U")
		fixed(0x48+r, "DEC", "U")
		fixed(0x50+r, "PUSH", "M")
		fixed(0x58+r, "POP", "M")
		fixed(0xB0+r, "MOV", "lMi")
		fixed(0xB8+r, "MOV", "MI")
	}

	fixed(0x60, "PUSHA", "")
	fixed(0x61, "POPA", "")
	handled(0x62, Fixed("BOUND"), regMem)
	handled(0x63, Fixed("ARPL"), arplMovsxd)

	fixed(0x68, "PUSH", "i")
	fixed(0x69, "IMUL", "3FRi")
	fixed(0x6A, "PUSH", "5F0Oi")
	fixed(0x6B, "IMUL", "3FR5F0Oi")
	fixed(0x6C, "INSB", "")
	sized(0x6D, "INSW", "INSD", "INSD")
	fixed(0x6E, "OUTSB", "")
	sized(0x6F, "OUTSW", "OUTSD", "OUTSD")

	for cc, name := range conditions {
		fixed(0x70+cc, "J"+name, "li")
	}

	group(0x80, group1, "4FlR")
	group(0x81, group1, "4FR")
	group(0x82, group1, "4FlR")
	group(0x83, group1, "4F5F0OR")
	fixed(0x84, "TEST", "R")
	fixed(0x85, "TEST", "R")
	fixed(0x86, "XCHG", "R")
	fixed(0x87, "XCHG", "R")
	fixed(0x88, "MOV", "R")
	fixed(0x89, "MOV", "R")
	fixed(0x8A, "MOV", "R")
	fixed(0x8B, "MOV", "R")
	fixed(0x8C, "MOV", "2F1pR")
	fixed(0x8D, "LEA", "3FR")
	fixed(0x8E, "MOV", "2F1pR")
	group(0x8F, group1A, "m")

	fixed(0x90, "NOP", "")
	for r := 1; r < 8; r++ {
		fixed(0x90+r, "XCHG", "M0r")
	}
	sized(0x98, "CBW", "CWDE", "CDQE")
	sized(0x99, "CWD", "CDQ", "CQO")
	handled(0x9A, Fixed("CALLF"), farPointer)
	fixed(0x9B, "FWAIT", "")
	sized(0x9C, "PUSHF", "PUSHFD", "PUSHFQ")
	sized(0x9D, "POPF", "POPFD", "POPFQ")
	fixed(0x9E, "SAHF", "")
	fixed(0x9F, "LAHF", "")

	for op := 0xA0; op <= 0xA3; op++ {
		handled(op, Fixed("MOV"), memoryOffset)
	}
	fixed(0xA4, "MOVSB", "")
	sized(0xA5, "MOVSW", "MOVSD", "MOVSQ")
	fixed(0xA6, "CMPSB", "")
	sized(0xA7, "CMPSW", "CMPSD", "CMPSQ")
	fixed(0xA8, "TEST", "l0ri")
	fixed(0xA9, "TEST", "0ri")
	fixed(0xAA, "STOSB", "")
	sized(0xAB, "STOSW", "STOSD", "STOSQ")
	fixed(0xAC, "LODSB", "")
	sized(0xAD, "LODSW", "LODSD", "LODSQ")
	fixed(0xAE, "SCASB", "")
	sized(0xAF, "SCASW", "SCASD", "SCASQ")

	group(0xC0, group2, "4FlR")
	group(0xC1, group2, "4F0OR")
	fixed(0xC2, "RET", "1Oi")
	fixed(0xC3, "RET", "")
	handled(0xC4, Fixed("LES"), regMem)
	handled(0xC5, Fixed("LDS"), regMem)
	group(0xC6, group11, "4FlR")
	group(0xC7, group11, "4FR")
	fixed(0xC8, "ENTER", "1Oi0Oi")
	fixed(0xC9, "LEAVE", "")
	fixed(0xCA, "RETF", "1Oi")
	fixed(0xCB, "RETF", "")
	fixed(0xCC, "INT3", "")
	fixed(0xCD, "INT", "li")
	fixed(0xCE, "INTO", "")
	sized(0xCF, "IRET", "IRETD", "IRETQ")

	group(0xD0, group2, "lm")
	group(0xD1, group2, "m")
	group(0xD2, group2, "lm1r")
	group(0xD3, group2, "ml1r")
	fixed(0xD4, "AAM", "li")
	fixed(0xD5, "AAD", "li")
	fixed(0xD6, "SALC", "")
	fixed(0xD7, "XLAT", "")

	fixed(0xE0, "LOOPNE", "li")
	fixed(0xE1, "LOOPE", "li")
	fixed(0xE2, "LOOP", "li")
	fixed(0xE3, "JECXZ", "li")
	fixed(0xE4, "IN", "l0ri")
	fixed(0xE5, "IN", "0r0Oi")
	fixed(0xE6, "OUT", "li0r")
	fixed(0xE7, "OUT", "0Oi0r")
	fixed(0xE8, "CALL", "i")
	fixed(0xE9, "JMP", "i")
	handled(0xEA, Fixed("JMPF"), farPointer)
	fixed(0xEB, "JMP", "li")
	fixed(0xEC, "IN", "")
	fixed(0xED, "IN", "")
	fixed(0xEE, "OUT", "")
	fixed(0xEF, "OUT", "")

	fixed(0xF1, "INT1", "")
	fixed(0xF4, "HLT", "")
	fixed(0xF5, "CMC", "")
	handled(0xF6, ByRegField(group3), group3Operands)
	handled(0xF7, ByRegField(group3), group3Operands)
	fixed(0xF8, "CLC", "")
	fixed(0xF9, "STC", "")
	fixed(0xFA, "CLI", "")
	fixed(0xFB, "STI", "")
	fixed(0xFC, "CLD", "")
	fixed(0xFD, "STD", "")
	group(0xFE, group4, "lm")
	group(0xFF, group5, "m")

	return e
}

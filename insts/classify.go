package insts

// Class is the category of an instruction.
type Class uint8

// Instruction classes.
const (
	ClassUnknown Class = iota
	ClassArithmetic
	ClassLogic
	ClassShift
	ClassMove
	ClassStack
	ClassCompare
	ClassJump
	ClassConditionalJump
	ClassCall
	ClassReturn
	ClassString
	ClassIO
	ClassFlag
	ClassConversion
	ClassInterrupt
	ClassSystem
	ClassNop
)

var classNames = [...]string{
	ClassUnknown:         "unknown",
	ClassArithmetic:      "arithmetic",
	ClassLogic:           "logic",
	ClassShift:           "shift",
	ClassMove:            "move",
	ClassStack:           "stack",
	ClassCompare:         "compare",
	ClassJump:            "jump",
	ClassConditionalJump: "conditional-jump",
	ClassCall:            "call",
	ClassReturn:          "return",
	ClassString:          "string",
	ClassIO:              "io",
	ClassFlag:            "flag",
	ClassConversion:      "conversion",
	ClassInterrupt:       "interrupt",
	ClassSystem:          "system",
	ClassNop:             "nop",
}

func (c Class) String() string {
	if int(c) < len(classNames) {
		return classNames[c]
	}
	return classNames[ClassUnknown]
}

var classes = map[string]Class{}

func classify(c Class, mnemonics ...string) {
	for _, m := range mnemonics {
		classes[m] = c
	}
}

func init() {
	classify(ClassArithmetic, "ADD", "ADC", "SUB", "SBB", "INC", "DEC", "NEG",
		"MUL", "IMUL", "DIV", "IDIV", "DAA", "DAS", "AAA", "AAS", "AAM", "AAD")
	classify(ClassLogic, "AND", "OR", "XOR", "NOT")
	classify(ClassShift, "ROL", "ROR", "RCL", "RCR", "SHL", "SHR", "SAL", "SAR")
	classify(ClassMove, "MOV", "MOVSXD", "XCHG", "LEA", "LES", "LDS", "XLAT",
		"SAHF", "LAHF", "SALC")
	classify(ClassStack, "PUSH", "POP", "PUSHA", "POPA", "PUSHF", "PUSHFD",
		"PUSHFQ", "POPF", "POPFD", "POPFQ", "ENTER", "LEAVE")
	classify(ClassCompare, "CMP", "TEST", "BOUND", "ARPL")
	classify(ClassJump, "JMP", "JMPF")
	classify(ClassConditionalJump, "JO", "JNO", "JB", "JAE", "JE", "JNE", "JBE",
		"JA", "JS", "JNS", "JP", "JNP", "JL", "JGE", "JLE", "JG",
		"LOOP", "LOOPE", "LOOPNE", "JECXZ")
	classify(ClassCall, "CALL", "CALLF")
	classify(ClassReturn, "RET", "RETF", "IRET", "IRETD", "IRETQ")
	classify(ClassString, "MOVSB", "MOVSW", "MOVSD", "MOVSQ", "CMPSB", "CMPSW",
		"CMPSD", "CMPSQ", "STOSB", "STOSW", "STOSD", "STOSQ", "LODSB", "LODSW",
		"LODSD", "LODSQ", "SCASB", "SCASW", "SCASD", "SCASQ")
	classify(ClassIO, "IN", "OUT", "INSB", "INSW", "INSD", "OUTSB", "OUTSW", "OUTSD")
	classify(ClassFlag, "CLC", "STC", "CMC", "CLI", "STI", "CLD", "STD")
	classify(ClassConversion, "CBW", "CWDE", "CDQE", "CWD", "CDQ", "CQO")
	classify(ClassInterrupt, "INT", "INT1", "INT3", "INTO")
	classify(ClassSystem, "HLT", "FWAIT")
	classify(ClassNop, "NOP")
}

// Classify returns the class of a mnemonic.
func Classify(mnemonic string) Class {
	return classes[mnemonic]
}

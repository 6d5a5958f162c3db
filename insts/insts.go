// Package insts provides x86 instruction decoding.
//
// Each one-byte opcode maps to a mnemonic spec and an operation string, a
// short sequence of directives that the decoder interprets to read ModRM,
// SIB, displacement and immediate bytes. Prefix bytes (legacy and REX) are
// folded into a flag register that drives operand-size resolution. It
// supports:
//   - Legacy prefixes, segment overrides and REX on 64-bit platforms
//   - ALU, shift, move, stack, string, branch and I/O opcodes of the one-byte map
//   - 16-, 32- and 64-bit addressing including SIB
//
// Usage:
//
//	decoder := insts.NewDecoder(insts.WithPlatform(insts.Bits64))
//	inst, err := decoder.Decode(stream.FromBytes([]byte{0x48, 0x89, 0xC3}, 0x1000))
//	fmt.Println(inst) // MOV RBX, RAX
package insts

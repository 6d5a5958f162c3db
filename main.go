// Package main provides the entry point for x86dis.
// x86dis is a table-driven x86 instruction decoder and disassembler.
//
// For the full CLI, use: go run ./cmd/x86dis
package main

import (
	"fmt"
	"os"
)

func main() {
	fmt.Println("x86dis - x86 instruction decoder")
	fmt.Println("")
	fmt.Println("Usage: x86dis <command> [options]")
	fmt.Println("")
	fmt.Println("Commands:")
	fmt.Println("  hex      Disassemble hex-encoded bytes")
	fmt.Println("  raw      Disassemble a flat binary file")
	fmt.Println("  elf      Disassemble the executable code of an ELF file")
	fmt.Println("  verify   Cross-check instruction lengths against x86asm")
	fmt.Println("")
	fmt.Println("Run 'go run ./cmd/x86dis' for the full CLI.")

	if len(os.Args) > 1 {
		fmt.Println("\nNote: You provided arguments. Use 'go run ./cmd/x86dis' instead.")
	}
}

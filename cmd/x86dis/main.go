// Package main provides the x86dis command, a disassembler for x86 machine
// code in hex strings, raw files and ELF executables.
package main

import (
	"fmt"
	"os"
)

var (
	Version = "dev"
	Commit  = "none"
)

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

package main

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sarchlab/x86dis/disasm"
	"github.com/sarchlab/x86dis/loader"
	"github.com/sarchlab/x86dis/stream"
)

// options are the flags shared by all subcommands.
type options struct {
	configPath          string
	platform            int
	maxInstructions     int
	stopOnUnimplemented bool
	crossCheck          bool
	verbosity           int
	dump                bool
	noCache             bool
}

func newRootCmd(out io.Writer) *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:           "x86dis",
		Short:         "x86 disassembler",
		Long:          `Decodes 16-, 32- and 64-bit x86 machine code from hex strings, raw files and ELF executables.`,
		Version:       fmt.Sprintf("%s (%s)", Version, Commit),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.SetOut(out)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "Path to a YAML session config")
	flags.IntVar(&opts.platform, "platform", 0, "Platform width: 16, 32 or 64 (default from config or ELF)")
	flags.IntVarP(&opts.maxInstructions, "max", "n", 0, "Stop after this many instructions (0 = no limit)")
	flags.BoolVar(&opts.stopOnUnimplemented, "stop-on-unimplemented", false, "Stop at the first opcode without a handler")
	flags.BoolVar(&opts.crossCheck, "cross-check", false, "Compare every length with x86asm")
	flags.CountVarP(&opts.verbosity, "verbose", "v", "Increase log verbosity (-v logs decoder state dumps and cache statistics)")
	flags.BoolVar(&opts.dump, "dump", false, "Dump each decoded instruction")
	flags.BoolVar(&opts.noCache, "no-cache", false, "Read ELF code without the fetch cache")

	rootCmd.AddCommand(
		newHexCmd(opts),
		newRawCmd(opts),
		newELFCmd(opts),
		newVerifyCmd(opts),
	)

	return rootCmd
}

func newHexCmd(opts *options) *cobra.Command {
	var base uint64

	cmd := &cobra.Command{
		Use:   "hex <bytes>...",
		Short: "Disassemble hex-encoded bytes",
		Example: `  x86dis hex 48 89 c3
  x86dis hex --platform 32 "66 89 c3"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			code, err := hex.DecodeString(strings.Join(strings.Fields(strings.Join(args, " ")), ""))
			if err != nil {
				return fmt.Errorf("invalid hex input: %w", err)
			}

			r, err := newRunner(cmd, opts, 0)
			if err != nil {
				return err
			}
			return r.run(cmd.Context(), stream.FromBytes(code, base))
		},
	}
	cmd.Flags().Uint64Var(&base, "base", 0, "Address of the first byte")

	return cmd
}

func newRawCmd(opts *options) *cobra.Command {
	var base, offset, length uint64

	cmd := &cobra.Command{
		Use:   "raw <file>",
		Short: "Disassemble a flat binary file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			file, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("failed to open file: %w", err)
			}
			defer func() { _ = file.Close() }()

			info, err := file.Stat()
			if err != nil {
				return err
			}
			size := uint64(info.Size())
			if offset > size {
				return fmt.Errorf("offset %d beyond file size %d", offset, size)
			}
			if length == 0 || length > size-offset {
				length = size - offset
			}

			r, err := newRunner(cmd, opts, 0)
			if err != nil {
				return err
			}
			section := io.NewSectionReader(file, int64(offset), int64(length))
			return r.run(cmd.Context(), stream.NewReader(section, base, length))
		},
	}
	cmd.Flags().Uint64Var(&base, "base", 0, "Address of the first decoded byte")
	cmd.Flags().Uint64Var(&offset, "offset", 0, "File offset to start at")
	cmd.Flags().Uint64Var(&length, "length", 0, "Number of bytes to decode (0 = to end of file)")

	return cmd
}

func newELFCmd(opts *options) *cobra.Command {
	var section string

	cmd := &cobra.Command{
		Use:   "elf <file>",
		Short: "Disassemble the executable code of an ELF file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prog, err := loader.Load(args[0])
			if err != nil {
				return err
			}

			r, err := newRunner(cmd, opts, prog.Bits)
			if err != nil {
				return err
			}
			return r.runProgram(cmd.Context(), prog, section)
		},
	}
	cmd.Flags().StringVar(&section, "section", "", "Only disassemble this section (default: all executable code)")

	return cmd
}

func newVerifyCmd(opts *options) *cobra.Command {
	var section string

	cmd := &cobra.Command{
		Use:   "verify <file>",
		Short: "Cross-check instruction lengths of an ELF file against x86asm",
		Long: `Decodes the executable code of an ELF file and compares every
instruction length with golang.org/x/arch/x86/x86asm. Only mismatching
lines are printed. Exits non-zero when any length differs.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prog, err := loader.Load(args[0])
			if err != nil {
				return err
			}

			opts.crossCheck = true
			r, err := newRunner(cmd, opts, prog.Bits)
			if err != nil {
				return err
			}
			r.filter = func(l disasm.Line) bool { return l.Mismatch }

			if err := r.runProgram(cmd.Context(), prog, section); err != nil {
				return err
			}
			if r.total.Mismatches > 0 {
				return fmt.Errorf("%d length mismatches", r.total.Mismatches)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&section, "section", "", "Only verify this section")

	return cmd
}

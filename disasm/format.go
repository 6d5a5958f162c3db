package disasm

import (
	"fmt"
	"io"
	"strings"
)

// Printer writes lines in an objdump-like layout:
//
//	401000:  48 89 c3                  MOV RBX, RAX
type Printer struct {
	W io.Writer

	// ShowReference appends the x86asm rendering of cross-checked lines.
	ShowReference bool
}

// Print writes one line.
func (p *Printer) Print(l Line) error {
	text := ""
	switch {
	case l.Err != nil:
		text = "(bad) " + l.Err.Error()
	case l.Inst != nil:
		text = l.Inst.String()
	}

	out := fmt.Sprintf("%8x:  %-26s%s", l.Address, hexBytes(l.Bytes), text)
	if p.ShowReference && l.Reference != "" {
		mark := ""
		if l.Mismatch {
			mark = " !"
		}
		out += fmt.Sprintf("  ; %s%s", l.Reference, mark)
	}

	_, err := fmt.Fprintln(p.W, strings.TrimRight(out, " "))
	return err
}

// PrintSummary writes the counters of a run.
func (p *Printer) PrintSummary(s Summary) error {
	_, err := fmt.Fprintf(p.W, "; %d decoded, %d unknown, %d skipped, %d mismatches\n",
		s.Decoded, s.Unknown, s.Skipped, s.Mismatches)
	return err
}

func hexBytes(b []byte) string {
	parts := make([]string, len(b))
	for i, v := range b {
		parts[i] = fmt.Sprintf("%02x", v)
	}
	return strings.Join(parts, " ")
}

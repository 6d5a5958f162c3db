package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/davecgh/go-spew/spew"
	"github.com/go-logr/logr"
	"github.com/spf13/cobra"

	"github.com/sarchlab/x86dis/config"
	"github.com/sarchlab/x86dis/disasm"
	"github.com/sarchlab/x86dis/fetch"
	"github.com/sarchlab/x86dis/insts"
	"github.com/sarchlab/x86dis/loader"
	"github.com/sarchlab/x86dis/stream"
)

var dumper = spew.ConfigState{
	Indent:                  "  ",
	DisablePointerAddresses: true,
	DisableCapacities:       true,
}

// runner drives a session and prints its lines.
type runner struct {
	cfg     *config.Config
	logger  logr.Logger
	session *disasm.Session
	printer *disasm.Printer
	out     io.Writer
	dump    bool

	// filter selects the lines to print; nil prints all.
	filter func(disasm.Line) bool
	total  disasm.Summary
}

// newRunner merges the config file, the flags and the platform implied by
// the input (0 if none) into a session.
func newRunner(cmd *cobra.Command, opts *options, implied insts.Bits) (*runner, error) {
	cfg := config.DefaultConfig()
	if opts.configPath != "" {
		loaded, err := config.LoadConfig(opts.configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	switch {
	case flags.Changed("platform"):
		cfg.Platform = opts.platform
	case implied != 0:
		cfg.Platform = int(implied)
	}
	if flags.Changed("max") {
		cfg.MaxInstructions = opts.maxInstructions
	}
	if flags.Changed("stop-on-unimplemented") {
		cfg.StopOnUnimplemented = opts.stopOnUnimplemented
	}
	if opts.crossCheck {
		cfg.CrossCheck = true
	}
	if flags.Changed("verbose") {
		cfg.Verbosity = opts.verbosity
	}
	if opts.noCache {
		cfg.Fetch.Enabled = false
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	handler := slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
		Level: slog.Level(-cfg.Verbosity),
	})
	logger := logr.FromSlogHandler(handler)

	decoder := insts.NewDecoder(
		insts.WithPlatform(cfg.Bits()),
		insts.WithLogger(logger.WithName("decoder")),
	)

	return &runner{
		cfg:    cfg,
		logger: logger,
		session: disasm.NewSession(decoder,
			disasm.WithLogger(logger.WithName("session")),
			disasm.WithMaxInstructions(cfg.MaxInstructions),
			disasm.WithStopOnUnimplemented(cfg.StopOnUnimplemented),
			disasm.WithCrossCheck(cfg.CrossCheck),
		),
		printer: &disasm.Printer{W: cmd.OutOrStdout(), ShowReference: cfg.CrossCheck},
		out:     cmd.OutOrStdout(),
		dump:    opts.dump,
	}, nil
}

// run decodes one range and prints its summary.
func (r *runner) run(ctx context.Context, src *stream.Reader) error {
	if err := r.decode(ctx, src); err != nil {
		return err
	}
	return r.printer.PrintSummary(r.total)
}

func (r *runner) decode(ctx context.Context, src *stream.Reader) error {
	if ctx == nil {
		ctx = context.Background()
	}

	sum, err := r.session.Run(ctx, src, func(l disasm.Line) error {
		if r.filter != nil && !r.filter(l) {
			return nil
		}
		if err := r.printer.Print(l); err != nil {
			return err
		}
		if r.dump && l.Inst != nil {
			_, err := io.WriteString(r.out, dumper.Sdump(l.Inst))
			return err
		}
		return nil
	})

	r.total.Decoded += sum.Decoded
	r.total.Unknown += sum.Unknown
	r.total.Skipped += sum.Skipped
	r.total.Mismatches += sum.Mismatches
	r.total.Truncated = r.total.Truncated || sum.Truncated

	return err
}

// codeRange is a run of code to decode.
type codeRange struct {
	name string
	addr uint64
	size uint64
}

// ranges picks the code of prog to decode: the named section, all
// executable sections, or the executable segments of a stripped file.
func ranges(prog *loader.Program, section string) ([]codeRange, error) {
	if section != "" {
		s, ok := prog.Section(section)
		if !ok {
			return nil, fmt.Errorf("no executable section %q", section)
		}
		return []codeRange{{s.Name, s.Addr, s.Size}}, nil
	}

	var out []codeRange
	for _, s := range prog.Sections {
		out = append(out, codeRange{s.Name, s.Addr, s.Size})
	}
	if len(out) > 0 {
		return out, nil
	}

	for _, seg := range prog.Executable() {
		out = append(out, codeRange{fmt.Sprintf("segment@0x%x", seg.VirtAddr), seg.VirtAddr, uint64(len(seg.Data))})
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no executable code")
	}
	return out, nil
}

// runProgram decodes the code ranges of prog, reading through the fetch
// cache when enabled.
func (r *runner) runProgram(ctx context.Context, prog *loader.Program, section string) error {
	rs, err := ranges(prog, section)
	if err != nil {
		return err
	}

	image := loader.NewImage(prog)
	var (
		src   io.ReaderAt = image
		cache *fetch.Cache
	)
	if r.cfg.Fetch.Enabled {
		cache, err = fetch.New(r.cfg.Fetch.Config, image)
		if err != nil {
			return err
		}
		src = cache
	}

	for _, cr := range rs {
		if !image.Mapped(cr.addr, cr.size) {
			return fmt.Errorf("%s at 0x%x is not mapped", cr.name, cr.addr)
		}
		if r.filter == nil {
			if _, err := fmt.Fprintf(r.out, "\n%s:\n", cr.name); err != nil {
				return err
			}
		}
		if err := r.decode(ctx, stream.Section(src, cr.addr, cr.size)); err != nil {
			return err
		}
	}

	if cache != nil {
		stats := cache.Stats()
		r.logger.V(1).Info("fetch cache", "reads", stats.Reads, "hits", stats.Hits,
			"misses", stats.Misses, "evictions", stats.Evictions, "hitRate", stats.HitRate())
	}

	return r.printer.PrintSummary(r.total)
}

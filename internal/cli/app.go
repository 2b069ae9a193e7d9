package cli

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/Andrei-Barwood/secretgate/internal/config"
	"github.com/Andrei-Barwood/secretgate/internal/execx"
	"github.com/Andrei-Barwood/secretgate/internal/filter"
	"github.com/Andrei-Barwood/secretgate/internal/format"
	"github.com/Andrei-Barwood/secretgate/internal/model"
	"github.com/Andrei-Barwood/secretgate/internal/report"
	"github.com/Andrei-Barwood/secretgate/internal/scanner"
)

// Streams carries the process stdio so tests can drive Run directly.
type Streams struct {
	In  io.Reader
	Out io.Writer
	Err io.Writer
}

// scanRunner executes the upstream scanner; tests replace it.
var scanRunner execx.Runner = execx.OSRunner{}

type usageError struct {
	err error
}

func (e *usageError) Error() string { return e.err.Error() }
func (e *usageError) Unwrap() error { return e.err }

func usageErrorf(format string, args ...any) error {
	return &usageError{err: fmt.Errorf(format, args...)}
}

// Run executes one command and returns the process exit code. With no
// command it gates the report on stdin, which is how CI pipes a scanner in.
func Run(ctx context.Context, args []string, streams Streams) int {
	cmd := "check"
	cmdArgs := args
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		cmd = args[0]
		cmdArgs = args[1:]
	}

	switch cmd {
	case "check":
		return runCheck(ctx, cmdArgs, streams)
	case "scan":
		return runScan(ctx, cmdArgs, streams)
	case "help":
		printRootUsage(streams.Out)
		return model.ExitClean
	default:
		fmt.Fprintf(streams.Err, "unknown command: %s\n\n", cmd)
		printRootUsage(streams.Err)
		return model.ExitUsage
	}
}

func runCheck(_ context.Context, args []string, streams Streams) int {
	fs := newFlagSet("check", streams)
	gf := bindGateFlags(fs)
	from := fs.String("from", "", "Read the scan report from a file instead of stdin")

	if err := fs.Parse(args); err != nil {
		return flagExit(err)
	}
	if fs.NArg() > 0 {
		return fail(streams, usageErrorf("unexpected arguments: %s", strings.Join(fs.Args(), " ")))
	}

	g, err := newGate(fs, gf, nil, streams)
	if err != nil {
		return fail(streams, err)
	}

	var rep model.Report
	if *from != "" {
		g.log.WithField("path", *from).Debug("reading scan report from file")
		rep, err = report.Load(*from)
	} else {
		g.log.Debug("reading scan report from stdin")
		rep, err = report.Read(streams.In)
	}
	if err != nil {
		return fail(streams, err)
	}

	return g.evaluate(rep)
}

func runScan(ctx context.Context, args []string, streams Streams) int {
	fs := newFlagSet("scan", streams)
	gf := bindGateFlags(fs)
	fs.String("dir", ".", "Directory the scanner runs in")
	fs.Duration("timeout", scanner.DefaultTimeout, "Maximum scanner run time")
	fs.Usage = func() {
		fmt.Fprintln(fs.Output(), "Usage: secretgate scan [flags] [-- scanner command...]")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return flagExit(err)
	}

	var overrides map[string]any
	if fs.NArg() > 0 {
		overrides = map[string]any{config.KeyScannerCommand: fs.Args()}
	}

	g, err := newGate(fs, gf, overrides, streams)
	if err != nil {
		return fail(streams, err)
	}

	s := scanner.New(scanner.Options{
		Command: g.cfg.Scanner.Command,
		Dir:     g.cfg.Scanner.Dir,
		Timeout: g.cfg.Scanner.Timeout,
		Runner:  scanRunner,
		Logger:  g.log,
	})
	out, err := s.Scan(ctx)
	if err != nil {
		return fail(streams, err)
	}

	rep, err := report.Read(bytes.NewReader(out))
	if err != nil {
		return fail(streams, err)
	}
	return g.evaluate(rep)
}

// gate is the resolved configuration shared by check and scan.
type gate struct {
	cfg     config.Config
	filter  *filter.Filter
	format  format.Format
	outPath string
	log     *logrus.Logger
	streams Streams
}

func newGate(fs *flag.FlagSet, gf *gateFlags, extra map[string]any, streams Streams) (*gate, error) {
	overrides := gf.overrides(fs)
	for k, v := range extra {
		overrides[k] = v
	}

	cfg, err := config.Load(config.LoadOptions{
		File:        gf.configPath,
		SearchPaths: []string{"."},
		Overrides:   overrides,
	})
	if err != nil {
		return nil, &usageError{err: err}
	}

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, &usageError{err: err}
	}
	log := newLogger(streams.Err, level)
	if cfg.File != "" {
		log.WithField("file", cfg.File).Debug("loaded config")
	}

	f, err := format.Parse(cfg.Format)
	if err != nil {
		return nil, &usageError{err: err}
	}

	whitelist, err := filter.NewWhitelist(cfg.Whitelist...)
	if err != nil {
		return nil, &usageError{err: err}
	}
	log.WithFields(logrus.Fields{"whitelist": whitelist.Entries(), "require": cfg.Require}).Debug("gate configured")

	return &gate{
		cfg: cfg,
		filter: filter.New(filter.Options{
			Whitelist: &whitelist,
			Required:  cfg.Require,
			Logger:    log,
		}),
		format:  f,
		outPath: gf.outPath,
		log:     log,
		streams: streams,
	}, nil
}

func (g *gate) evaluate(rep model.Report) int {
	outcome := g.filter.Classify(rep)

	payload, err := format.Render(g.format, outcome)
	if err != nil {
		return fail(g.streams, err)
	}

	if g.outPath != "" {
		if err := report.Save(g.outPath, payload); err != nil {
			return fail(g.streams, err)
		}
		g.log.WithField("path", g.outPath).Info("saved gate result")
	}

	if _, err := g.streams.Out.Write(payload); err != nil {
		return fail(g.streams, err)
	}
	return outcome.ExitCode
}

func newLogger(w io.Writer, level logrus.Level) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(w)
	l.SetLevel(level)
	l.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	return l
}

// fail reports err on stderr. Input and runtime errors exit 1, kept apart
// from the 2 and 3 verdicts so CI can tell a broken pipeline from a finding.
func fail(streams Streams, err error) int {
	fmt.Fprintf(streams.Err, "error: %v\n", err)

	var usage *usageError
	if errors.As(err, &usage) {
		return model.ExitUsage
	}
	return model.ExitFailure
}

func flagExit(err error) int {
	if errors.Is(err, flag.ErrHelp) {
		return model.ExitClean
	}
	return model.ExitUsage
}

func printRootUsage(w io.Writer) {
	fmt.Fprintln(w, "secretgate - CI gate for secret scanner reports")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  detect-secrets scan | secretgate [flags]")
	fmt.Fprintln(w, "  secretgate <command> [flags]")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  check  Gate a scan report read from stdin or --from (default)")
	fmt.Fprintln(w, "  scan   Run the secret scanner, then gate its report")
	fmt.Fprintln(w, "  help   Show this help")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Exit codes:")
	fmt.Fprintln(w, "  0   no secrets outside the whitelist")
	fmt.Fprintln(w, "  1   unreadable report or scanner failure")
	fmt.Fprintln(w, "  2   a required entry (go.sum) is missing from the report")
	fmt.Fprintln(w, "  3   secrets detected outside the whitelist")
	fmt.Fprintln(w, "  64  usage or configuration error")
}

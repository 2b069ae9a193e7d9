package scanner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Andrei-Barwood/secretgate/internal/execx"
)

// DefaultCommand runs Yelp's detect-secrets against the working directory.
var DefaultCommand = []string{"detect-secrets", "scan"}

const DefaultTimeout = 5 * time.Minute

type Options struct {
	Command []string
	Dir     string
	Timeout time.Duration
	Runner  execx.Runner
	Logger  logrus.FieldLogger
}

// Scanner runs the external secret scanner and hands back its raw report.
type Scanner struct {
	opts   Options
	runner execx.Runner
	log    logrus.FieldLogger
}

func New(opts Options) *Scanner {
	if len(opts.Command) == 0 {
		opts.Command = DefaultCommand
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Runner == nil {
		opts.Runner = execx.OSRunner{}
	}
	if opts.Logger == nil {
		discard := logrus.New()
		discard.SetOutput(io.Discard)
		opts.Logger = discard
	}

	return &Scanner{opts: opts, runner: opts.Runner, log: opts.Logger}
}

func (s *Scanner) Command() execx.Command {
	return execx.Command{
		Name: s.opts.Command[0],
		Args: append([]string(nil), s.opts.Command[1:]...),
		Dir:  s.opts.Dir,
	}
}

// Scan runs the scanner and returns its stdout. An empty report is an error:
// detect-secrets always prints a JSON document when it succeeds.
func (s *Scanner) Scan(ctx context.Context) ([]byte, error) {
	cmd := s.Command()
	if _, err := s.runner.LookPath(cmd.Name); err != nil {
		return nil, fmt.Errorf("scanner %q not found in PATH: %w", cmd.Name, err)
	}

	ctx, cancel := s.cmdCtx(ctx)
	defer cancel()

	started := time.Now()
	s.log.WithFields(logrus.Fields{"command": cmd.String(), "dir": cmd.Dir}).Info("running secret scanner")
	out, err := s.runner.Run(ctx, cmd)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("scanner timed out after %s: %w", s.opts.Timeout, err)
		}
		return nil, err
	}
	s.log.WithFields(logrus.Fields{"bytes": len(out), "elapsed": time.Since(started).Round(time.Millisecond)}).Debug("secret scanner finished")

	if len(out) == 0 {
		return nil, fmt.Errorf("scanner %q produced no output", cmd.String())
	}
	return out, nil
}

func (s *Scanner) cmdCtx(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, s.opts.Timeout)
}

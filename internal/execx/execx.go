package execx

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

type Command struct {
	Name string
	Args []string
	Dir  string
}

func (c Command) String() string {
	return strings.TrimSpace(c.Name + " " + strings.Join(c.Args, " "))
}

type Runner interface {
	Run(ctx context.Context, cmd Command) ([]byte, error)
	LookPath(file string) (string, error)
}

type OSRunner struct{}

// Run executes cmd and returns its stdout. Stderr is only kept for the error.
func (OSRunner) Run(ctx context.Context, c Command) ([]byte, error) {
	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Dir = c.Dir
	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("%s: %w", c, ctxErr)
		}
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("%s failed: %w: %s", c, err, msg)
		}
		return nil, fmt.Errorf("%s failed: %w", c, err)
	}
	return stdout.Bytes(), nil
}

func (OSRunner) LookPath(file string) (string, error) {
	return exec.LookPath(file)
}

package engine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"syscall"
	"time"
)

// Supported command line tools.
const (
	ToolClaude = "claude"
	ToolCodex  = "codex"
)

// CLI runs an AI command line tool non-interactively and captures its
// standard output as the report.
type CLI struct {
	Tool    string
	Path    string
	Timeout time.Duration
}

func (c *CLI) Name() string {
	return c.Tool
}

func (c *CLI) Available() error {
	if _, err := exec.LookPath(c.pathOrDefault()); err != nil {
		return fmt.Errorf("%s CLI not found at %q: install it or run `casebook config set engine.type template`", c.Tool, c.pathOrDefault())
	}
	return nil
}

func (c *CLI) pathOrDefault() string {
	if c.Path == "" {
		return c.Tool
	}
	return c.Path
}

func (c *CLI) args(prompt string) []string {
	if c.Tool == ToolCodex {
		return []string{"exec", "--sandbox", "read-only", prompt}
	}
	return []string{"-p", prompt}
}

func (c *CLI) Generate(ctx context.Context, req Request) (string, error) {
	if err := c.Available(); err != nil {
		return "", err
	}
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, c.pathOrDefault(), c.args(Prompt(req))...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = time.Second

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return "", fmt.Errorf("%s: %w", c.Tool, ctx.Err())
		}
		if isInterrupt(err) {
			return "", ErrInterrupted
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			msg := strings.TrimSpace(stderr.String())
			if msg != "" {
				return "", fmt.Errorf("%s exited with code %d: %s", c.Tool, exitErr.ExitCode(), msg)
			}
			return "", fmt.Errorf("%s exited with code %d", c.Tool, exitErr.ExitCode())
		}
		return "", fmt.Errorf("failed to run %s: %w", c.Tool, err)
	}

	out := strings.TrimSpace(stdout.String())
	if out == "" {
		return "", fmt.Errorf("%s returned no output", c.Tool)
	}
	return out + "\n", nil
}

func isInterrupt(err error) bool {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if status, ok := exitErr.Sys().(syscall.WaitStatus); ok {
			return status.Signal() == syscall.SIGINT || status.Signal() == syscall.SIGTERM
		}
	}
	return false
}

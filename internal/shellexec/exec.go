// Package shellexec runs shell commands for tool handlers.
package shellexec

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"time"
)

const defaultTimeout = 60 * time.Second

// Result captures the outcome of one command invocation.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Runner executes shell commands. The interface exists so tool tests can
// substitute a fake.
type Runner interface {
	Execute(ctx context.Context, command string, sudo bool) (Result, error)
}

// ShellRunner runs commands through sh -c.
type ShellRunner struct {
	// Timeout bounds a single command; zero means the default.
	Timeout time.Duration
}

// Execute runs command, optionally under sudo. A non-zero exit is reported
// through Result.ExitCode, not as an error; errors mean the command could
// not be started or timed out.
func (r *ShellRunner) Execute(ctx context.Context, command string, sudo bool) (Result, error) {
	timeout := r.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	cmdCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var cmd *exec.Cmd
	if sudo {
		cmd = exec.CommandContext(cmdCtx, "sudo", "sh", "-c", command)
	} else {
		cmd = exec.CommandContext(cmdCtx, "sh", "-c", command)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	result := Result{Stdout: stdout.String(), Stderr: stderr.String()}

	if err != nil {
		if cmdCtx.Err() == context.DeadlineExceeded {
			return result, errors.New("command timed out")
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
			return result, nil
		}
		return result, err
	}
	return result, nil
}

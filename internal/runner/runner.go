// Package runner executes external processes: git, the repository review hook,
// and platform CLI helpers.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/joescharf/git-review/internal/errdefs"
)

// Runner runs a process and returns its raw standard output.
type Runner interface {
	Output(ctx context.Context, env []string, name string, args ...string) (string, error)
}

// ExitError reports a process that ran and exited non-zero.
type ExitError struct {
	Code   int
	Stderr string
}

func (e *ExitError) Error() string {
	if e.Stderr != "" {
		return e.Stderr
	}
	return fmt.Sprintf("exit status %d", e.Code)
}

// ExitCode returns the exit code carried by err, or -1 if the process did not exit normally.
func ExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return -1
}

// Exec implements Runner with os/exec.
type Exec struct {
	// Dir is the working directory; empty means the current one.
	Dir string
}

// New returns an Exec runner rooted at dir.
func New(dir string) *Exec {
	return &Exec{Dir: dir}
}

// Output runs name with args, the current environment plus env (KEY=VALUE entries).
// A non-zero exit is returned as an execution error wrapping *ExitError.
func (r *Exec) Output(ctx context.Context, env []string, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = r.Dir
	if len(env) > 0 {
		cmd.Env = append(os.Environ(), env...)
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		line := CommandLine(name, args...)
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return string(out), errdefs.Execution(line, &ExitError{
				Code:   exitErr.ExitCode(),
				Stderr: strings.TrimSpace(stderr.String()),
			})
		}
		return string(out), errdefs.Execution(line, err)
	}
	return string(out), nil
}

// CommandLine renders a command for error messages.
func CommandLine(name string, args ...string) string {
	return strings.TrimSpace(name + " " + strings.Join(args, " "))
}

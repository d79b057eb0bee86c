// Package command runs configured local shell commands, such as documentation
// generators and packaging hooks, before artifacts are published.
//
// Commands come from the project or global configuration and are trusted the
// same way a Makefile is. They run through sh -c so pipes and redirects work.
package command

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os/exec"
)

// Runner executes one shell command.
type Runner interface {
	// Run executes command in workDir and returns its output and exit code.
	Run(ctx context.Context, workDir, command string) (stdout, stderr string, exitCode int, err error)
}

// ShellRunner implements Runner with sh -c.
type ShellRunner struct {
	// Output, when set, receives stdout and stderr as they are produced.
	Output io.Writer
}

// Run executes command using sh -c.
func (r *ShellRunner) Run(ctx context.Context, workDir, command string) (stdout, stderr string, exitCode int, err error) {
	cmd := exec.CommandContext(ctx, "sh", "-c", command) //#nosec G204 -- commands come from trusted configuration
	cmd.Dir = workDir

	var outBuf, errBuf bytes.Buffer
	if r.Output != nil {
		cmd.Stdout = io.MultiWriter(&outBuf, r.Output)
		cmd.Stderr = io.MultiWriter(&errBuf, r.Output)
	} else {
		cmd.Stdout = &outBuf
		cmd.Stderr = &errBuf
	}

	err = cmd.Run()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		} else {
			exitCode = 1
		}
	}

	return outBuf.String(), errBuf.String(), exitCode, err
}

var _ Runner = (*ShellRunner)(nil)

// Package git wraps the git CLI for the artifact publisher.
// This file provides shared git command execution utilities.
package git

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	shipyarderrors "github.com/mrz1836/shipyard/internal/errors"
)

// RunCommand executes a git command in workDir and returns trimmed stdout.
// Errors wrap ErrGitOperation and carry stderr for debugging.
func RunCommand(ctx context.Context, workDir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...) //#nosec G204 -- args are constructed internally, not user input
	cmd.Dir = workDir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		name := commandName(args)
		if stderr.Len() > 0 {
			return "", fmt.Errorf("git %s failed: %s: %w", name, strings.TrimSpace(stderr.String()), shipyarderrors.ErrGitOperation)
		}
		if stdout.Len() > 0 {
			return "", fmt.Errorf("git %s failed: %s: %w", name, strings.TrimSpace(stdout.String()), shipyarderrors.ErrGitOperation)
		}
		return "", fmt.Errorf("git %s failed: %w", name, shipyarderrors.ErrGitOperation)
	}

	return strings.TrimSpace(stdout.String()), nil
}

// commandName skips leading -c key=value pairs so errors name the subcommand.
func commandName(args []string) string {
	for i := 0; i < len(args); i++ {
		if args[i] == "-c" || args[i] == "-C" {
			i++
			continue
		}
		return args[i]
	}
	return ""
}

// Clone clones url into dir on branch.
func Clone(ctx context.Context, url, dir, branch string) error {
	args := []string{"clone", "--quiet"}
	if branch != "" {
		args = append(args, "--branch", branch)
	}
	args = append(args, url, dir)
	if _, err := RunCommand(ctx, "", args...); err != nil {
		return fmt.Errorf("failed to clone %s: %w", url, err)
	}
	return nil
}

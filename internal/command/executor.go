package command

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/mrz1836/shipyard/internal/clock"
	"github.com/mrz1836/shipyard/internal/constants"
	shipyarderrors "github.com/mrz1836/shipyard/internal/errors"
)

// Result captures the outcome of one command.
type Result struct {
	Command     string    `json:"command"`
	Success     bool      `json:"success"`
	ExitCode    int       `json:"exit_code"`
	Stdout      string    `json:"stdout,omitempty"`
	Stderr      string    `json:"stderr,omitempty"`
	DurationMs  int64     `json:"duration_ms"`
	Error       string    `json:"error,omitempty"`
	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`
}

// Executor runs command lists sequentially with a per-command timeout.
type Executor struct {
	runner  Runner
	timeout time.Duration
	clock   clock.Clock
	logger  zerolog.Logger
}

// Option configures an Executor.
type Option func(*Executor)

// WithRunner replaces the shell runner.
func WithRunner(r Runner) Option {
	return func(e *Executor) {
		e.runner = r
	}
}

// WithTimeout sets the per-command timeout.
func WithTimeout(d time.Duration) Option {
	return func(e *Executor) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// WithClock sets the clock used for result timestamps.
func WithClock(c clock.Clock) Option {
	return func(e *Executor) {
		e.clock = c
	}
}

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(e *Executor) {
		e.logger = logger
	}
}

// NewExecutor creates an Executor backed by a ShellRunner.
func NewExecutor(opts ...Option) *Executor {
	e := &Executor{
		runner:  &ShellRunner{},
		timeout: constants.DefaultCommandTimeout,
		clock:   clock.RealClock{},
		logger:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run executes commands in order and stops at the first failure.
// It returns the results collected so far.
func (e *Executor) Run(ctx context.Context, commands []string, workDir string) ([]Result, error) {
	results := make([]Result, 0, len(commands))
	for i, command := range commands {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		e.logger.Info().
			Str("command", command).
			Str("work_dir", workDir).
			Int("command_num", i+1).
			Int("total_commands", len(commands)).
			Msg("executing command")

		result, err := e.RunSingle(ctx, command, workDir)
		if result != nil {
			results = append(results, *result)
		}
		if err != nil {
			return results, err
		}
	}
	return results, nil
}

// RunSingle executes one command with the executor's timeout.
func (e *Executor) RunSingle(ctx context.Context, command, workDir string) (*Result, error) {
	if workDir != "" {
		if _, err := os.Stat(workDir); err != nil {
			return &Result{
				Command: command,
				Error:   fmt.Sprintf("work directory missing: %s", workDir),
			}, fmt.Errorf("work directory %s: %w: %w", workDir, shipyarderrors.ErrCommandFailed, err)
		}
	}

	cmdCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	started := e.clock.Now()
	stdout, stderr, exitCode, runErr := e.runner.Run(cmdCtx, workDir, command)
	completed := e.clock.Now()

	result := &Result{
		Command:     command,
		ExitCode:    exitCode,
		Stdout:      stdout,
		Stderr:      stderr,
		DurationMs:  completed.Sub(started).Milliseconds(),
		StartedAt:   started,
		CompletedAt: completed,
	}

	switch {
	case ctx.Err() != nil:
		result.Error = "context canceled"
		return result, ctx.Err()
	case cmdCtx.Err() != nil:
		result.Error = "command timed out"
		e.logger.Error().
			Str("command", command).
			Dur("timeout", e.timeout).
			Msg("command timed out")
		return result, fmt.Errorf("%s: %w", command, shipyarderrors.ErrCommandTimeout)
	case runErr != nil || exitCode != 0:
		if runErr != nil {
			result.Error = runErr.Error()
		} else {
			result.Error = fmt.Sprintf("exit code %d", exitCode)
		}
		e.logger.Error().
			Str("command", command).
			Int("exit_code", exitCode).
			Str("stderr", stderr).
			Msg("command failed")
		return result, fmt.Errorf("%s: %w", command, shipyarderrors.ErrCommandFailed)
	}

	result.Success = true
	e.logger.Debug().
		Str("command", command).
		Int64("duration_ms", result.DurationMs).
		Msg("command completed")
	return result, nil
}

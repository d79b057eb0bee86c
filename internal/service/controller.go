// Package service controls systemd units on a deployment target.
//
// Every query goes through a remote.Executor. Restart is fire-and-forget:
// callers wait for the unit to settle and re-poll IsActive.
package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/mrz1836/shipyard/internal/constants"
	"github.com/mrz1836/shipyard/internal/ctxutil"
	"github.com/mrz1836/shipyard/internal/domain"
	shipyarderrors "github.com/mrz1836/shipyard/internal/errors"
	"github.com/mrz1836/shipyard/internal/remote"
)

// Controller manages units on one target.
type Controller struct {
	exec      remote.Executor
	target    domain.DeploymentTarget
	sudo      bool
	startWait time.Duration
	sleep     ctxutil.SleepFunc
	logger    zerolog.Logger
}

// Option configures a Controller.
type Option func(*Controller)

// WithSudo prefixes mutating commands and journal reads with sudo.
func WithSudo(sudo bool) Option {
	return func(c *Controller) {
		c.sudo = sudo
	}
}

// WithStartWait sets the wait between starting a dependency and re-checking it.
func WithStartWait(d time.Duration) Option {
	return func(c *Controller) {
		c.startWait = d
	}
}

// WithSleep replaces the context-aware sleep.
func WithSleep(sleep ctxutil.SleepFunc) Option {
	return func(c *Controller) {
		c.sleep = sleep
	}
}

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Controller) {
		c.logger = logger
	}
}

// NewController creates a Controller for target.
func NewController(exec remote.Executor, target domain.DeploymentTarget, opts ...Option) *Controller {
	c := &Controller{
		exec:      exec,
		target:    target,
		startWait: constants.DefaultDependencyStartWait,
		sleep:     ctxutil.Sleep,
		logger:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Exists reports whether the unit is installed.
func (c *Controller) Exists(ctx context.Context, name string) (bool, error) {
	result, err := c.run(ctx, fmt.Sprintf("systemctl cat -- %s >/dev/null 2>&1", remote.Quote(name)))
	if err != nil {
		return false, shipyarderrors.Wrapf(err, "check unit %s", name)
	}
	return result.Success(), nil
}

// IsActive reports whether the unit is in the active state.
func (c *Controller) IsActive(ctx context.Context, name string) (bool, error) {
	result, err := c.run(ctx, "systemctl is-active -- "+remote.Quote(name))
	if err != nil {
		return false, shipyarderrors.Wrapf(err, "query unit %s", name)
	}
	state := strings.TrimSpace(result.Stdout)
	c.logger.Debug().
		Str("unit", name).
		Str("state", state).
		Msg("unit state")
	return result.Success() && state == "active", nil
}

// Restart queues a restart of the unit without waiting for it to come up.
func (c *Controller) Restart(ctx context.Context, name string) error {
	result, err := c.run(ctx, c.privileged("systemctl restart --no-block -- "+remote.Quote(name)))
	if err != nil {
		return shipyarderrors.Wrapf(err, "restart unit %s", name)
	}
	if !result.Success() {
		return unitError(name, "restart", result)
	}
	c.logger.Info().
		Str("target", c.target.Label()).
		Str("unit", name).
		Msg("restart queued")
	return nil
}

// EnsureDependencyRunning starts dep when it is not active and fails when it
// stays inactive.
func (c *Controller) EnsureDependencyRunning(ctx context.Context, dep string) error {
	active, err := c.IsActive(ctx, dep)
	if err != nil {
		return err
	}
	if active {
		return nil
	}

	c.logger.Warn().
		Str("target", c.target.Label()).
		Str("unit", dep).
		Msg("dependency inactive, starting")

	result, err := c.run(ctx, c.privileged("systemctl start -- "+remote.Quote(dep)))
	if err != nil {
		return shipyarderrors.Wrapf(err, "start unit %s", dep)
	}
	if !result.Success() {
		return unitError(dep, "start", result)
	}

	if err := c.sleep(ctx, c.startWait); err != nil {
		return err
	}

	active, err = c.IsActive(ctx, dep)
	if err != nil {
		return err
	}
	if !active {
		return fmt.Errorf("%s still inactive after start: %w", dep, shipyarderrors.ErrServiceStart)
	}
	return nil
}

// Logs returns the last lines of the unit's journal.
func (c *Controller) Logs(ctx context.Context, name string, lines int) (string, error) {
	if lines <= 0 {
		lines = constants.DefaultLogTailLines
	}
	script := c.privileged(fmt.Sprintf("journalctl -u %s -n %s --no-pager", remote.Quote(name), strconv.Itoa(lines)))
	result, err := c.run(ctx, script)
	if err != nil {
		return "", shipyarderrors.Wrapf(err, "read journal for %s", name)
	}
	if !result.Success() {
		return "", fmt.Errorf("journalctl exited %d: %s: %w", result.ExitCode, result.Output(), shipyarderrors.ErrRemoteCommand)
	}
	return strings.TrimRight(result.Stdout, "\n"), nil
}

func (c *Controller) run(ctx context.Context, script string) (*remote.Result, error) {
	if err := ctxutil.Canceled(ctx); err != nil {
		return nil, err
	}
	return c.exec.Execute(ctx, c.target, script)
}

func (c *Controller) privileged(cmd string) string {
	if c.sudo {
		return "sudo -n " + cmd
	}
	return cmd
}

func unitError(name, action string, result *remote.Result) error {
	out := result.Output()
	if strings.Contains(out, "not found") || strings.Contains(out, "not-found") {
		return fmt.Errorf("%s %s: %s: %w", action, name, out, shipyarderrors.ErrServiceNotFound)
	}
	return fmt.Errorf("%s %s exited %d: %s: %w", action, name, result.ExitCode, out, shipyarderrors.ErrServiceStart)
}

// Package deploy runs the deployment state machine against one or more targets.
//
// A run moves through INIT, SYNCING, CONFIGURING, RESTARTING and VERIFYING and
// ends in SUCCESS or FAILED. Phases are strictly sequential and the first
// failure halts the run. No rollback is attempted. Artifact publication happens
// after verification, once per revision, and never changes the outcome.
package deploy

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/mrz1836/shipyard/internal/clock"
	"github.com/mrz1836/shipyard/internal/constants"
	"github.com/mrz1836/shipyard/internal/ctxutil"
	"github.com/mrz1836/shipyard/internal/domain"
	shipyarderrors "github.com/mrz1836/shipyard/internal/errors"
	"github.com/mrz1836/shipyard/internal/health"
	"github.com/mrz1836/shipyard/internal/remote"
	"github.com/mrz1836/shipyard/internal/retry"
	"github.com/mrz1836/shipyard/internal/service"
)

// Settings control what the orchestrator does on each target.
type Settings struct {
	// Service is the managed unit restarted on each deploy.
	Service string
	// Dependency is started before configuration when inactive.
	Dependency string
	// Sudo prefixes privileged systemctl and journalctl calls with sudo -n.
	Sudo bool

	// SyncRetries is how many extra sync attempts a dropped connection gets.
	SyncRetries int
	// SyncRetryDelay is the wait between sync attempts.
	SyncRetryDelay time.Duration

	// Python creates the virtualenv.
	Python string
	// Requirements is the pip requirements file relative to the app dir.
	Requirements string
	// Env is written to the .env file.
	Env Environment

	// SettleTime is the wait after a restart before the unit is checked.
	SettleTime time.Duration
	// DependencyStartWait is the wait after starting a stopped dependency.
	DependencyStartWait time.Duration

	// HealthBaseURL overrides the probed base URL. "{host}" is replaced with
	// the target host. Empty means http://<host>:<AppPort>.
	HealthBaseURL string
	// AppPort is the application port used when HealthBaseURL is empty.
	AppPort int
	// Endpoints are probed every health round.
	Endpoints []health.Endpoint

	// LogTailLines is how many journal lines are attached to a failed verification.
	LogTailLines int
	// RunTimeout is the wall-clock ceiling for all phases of one target.
	RunTimeout time.Duration
}

func (s *Settings) applyDefaults() {
	if s.Service == "" {
		s.Service = constants.DefaultServiceName
	}
	if s.Dependency == "" {
		s.Dependency = constants.DefaultDependencyName
	}
	if s.SettleTime <= 0 {
		s.SettleTime = constants.DefaultSettleTime
	}
	if s.SyncRetries < 0 {
		s.SyncRetries = 0
	}
	if s.Python == "" {
		s.Python = "python3"
	}
	if s.Requirements == "" {
		s.Requirements = "requirements.txt"
	}
	if s.DependencyStartWait <= 0 {
		s.DependencyStartWait = constants.DefaultDependencyStartWait
	}
	if s.AppPort == 0 {
		s.AppPort = constants.DefaultAppPort
	}
	if len(s.Endpoints) == 0 {
		s.Endpoints = health.DefaultEndpoints()
	}
	if s.LogTailLines <= 0 {
		s.LogTailLines = constants.DefaultLogTailLines
	}
	if s.RunTimeout <= 0 {
		s.RunTimeout = constants.DefaultRunTimeout
	}
}

// HealthChecker verifies endpoints in rounds.
type HealthChecker interface {
	Verify(ctx context.Context, endpoints []health.Endpoint) *domain.HealthStatus
}

// Orchestrator deploys a revision to a single target at a time. It holds no
// per-run state and can be shared by concurrent runs.
type Orchestrator struct {
	exec     remote.Executor
	verifier HealthChecker
	settings Settings
	sleep    ctxutil.SleepFunc
	clock    clock.Clock
	newID    func() string
	logger   zerolog.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithSleep replaces the context-aware sleep used for settle and retry waits.
func WithSleep(sleep ctxutil.SleepFunc) Option {
	return func(o *Orchestrator) {
		o.sleep = sleep
	}
}

// WithClock sets the clock used for attempt and step timestamps.
func WithClock(c clock.Clock) Option {
	return func(o *Orchestrator) {
		o.clock = c
	}
}

// WithIDGenerator replaces the attempt ID generator.
func WithIDGenerator(f func() string) Option {
	return func(o *Orchestrator) {
		o.newID = f
	}
}

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

// NewOrchestrator creates an Orchestrator.
func NewOrchestrator(exec remote.Executor, verifier HealthChecker, settings Settings, opts ...Option) *Orchestrator {
	settings.applyDefaults()
	o := &Orchestrator{
		exec:     exec,
		verifier: verifier,
		settings: settings,
		sleep:    ctxutil.Sleep,
		clock:    clock.RealClock{},
		newID:    uuid.NewString,
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Settings returns the effective settings.
func (o *Orchestrator) Settings() Settings {
	return o.settings
}

// run carries the per-attempt collaborators.
type run struct {
	attempt *domain.DeploymentAttempt
	units   *service.Controller
	logger  zerolog.Logger
}

// phaseFunc runs one phase and returns output for its step record.
type phaseFunc func(ctx context.Context, r *run) (string, error)

// Deploy runs every phase against target. The attempt is always returned.
// On failure the error is a *PhaseError.
func (o *Orchestrator) Deploy(ctx context.Context, target domain.DeploymentTarget, revision string) (*domain.DeploymentAttempt, error) {
	attempt := &domain.DeploymentAttempt{
		ID:        o.newID(),
		Target:    target,
		Revision:  revision,
		StartedAt: o.clock.Now().UTC(),
		Outcome:   constants.OutcomePending,
		Phase:     constants.PhaseInit,
	}
	logger := o.logger.With().
		Str("attempt_id", attempt.ID).
		Str("target", target.Label()).
		Str("revision", domain.ShortRevision(revision)).
		Logger()

	if err := ValidateRevision(revision); err != nil {
		return o.fail(attempt, logger, &PhaseError{Phase: constants.PhaseInit, Cause: err})
	}

	ctx, cancel := context.WithTimeout(ctx, o.settings.RunTimeout)
	defer cancel()

	r := &run{
		attempt: attempt,
		units: service.NewController(o.exec, target,
			service.WithSudo(o.settings.Sudo),
			service.WithStartWait(o.settings.DependencyStartWait),
			service.WithSleep(o.sleep),
			service.WithLogger(logger),
		),
		logger: logger,
	}

	logger.Info().Msg("deployment started")

	phases := []struct {
		phase constants.Phase
		fn    phaseFunc
	}{
		{constants.PhaseInit, o.initPhase},
		{constants.PhaseSyncing, o.syncPhase},
		{constants.PhaseConfiguring, o.configurePhase},
		{constants.PhaseRestarting, o.restartPhase},
		{constants.PhaseVerifying, o.verifyPhase},
	}

	for i, p := range phases {
		if err := o.step(ctx, r, p.phase, p.fn); err != nil {
			for _, rest := range phases[i+1:] {
				attempt.AddStep(domain.StepResult{Phase: rest.phase, Status: constants.StepSkipped})
			}
			return o.fail(attempt, logger, o.phaseError(ctx, p.phase, err))
		}
	}

	attempt.Outcome = constants.OutcomeSuccess
	attempt.Phase = constants.PhaseSuccess
	attempt.CompletedAt = o.clock.Now().UTC()

	logger.Info().
		Int("steps_passed", attempt.StepsPassed()).
		Dur("duration", attempt.Duration()).
		Msg("deployment succeeded")
	return attempt, nil
}

// step runs fn as phase and records the result on the attempt.
func (o *Orchestrator) step(ctx context.Context, r *run, phase constants.Phase, fn phaseFunc) error {
	r.attempt.Phase = phase
	started := o.clock.Now()
	r.logger.Debug().Str("phase", phase.String()).Msg("phase started")

	output, err := fn(ctx, r)

	result := domain.StepResult{
		Phase:     phase,
		Status:    constants.StepCompleted,
		StartedAt: started.UTC(),
		Duration:  o.clock.Now().Sub(started),
		Output:    output,
	}
	if err != nil {
		result.Status = constants.StepFailed
		result.Error = err.Error()
	}
	r.attempt.AddStep(result)
	return err
}

// phaseError wraps err as a PhaseError, keeping the run timeout visible.
func (o *Orchestrator) phaseError(ctx context.Context, phase constants.Phase, err error) *PhaseError {
	if pe, ok := AsPhaseError(err); ok {
		return pe
	}
	if ctx.Err() != nil && !errors.Is(err, ctx.Err()) {
		err = fmt.Errorf("%w: %w", err, ctx.Err())
	}
	return &PhaseError{Phase: phase, Cause: err}
}

func (o *Orchestrator) fail(attempt *domain.DeploymentAttempt, logger zerolog.Logger, pe *PhaseError) (*domain.DeploymentAttempt, error) {
	attempt.Outcome = constants.OutcomeFailed
	attempt.Phase = constants.PhaseFailed
	attempt.CompletedAt = o.clock.Now().UTC()
	attempt.Error = pe.Error()
	attempt.Diagnostics = pe.Diagnostics

	logger.Error().
		Err(pe.Cause).
		Str("phase", pe.Phase.String()).
		Msg("deployment failed")
	return attempt, pe
}

// initPhase checks that the host answers and the managed unit exists.
func (o *Orchestrator) initPhase(ctx context.Context, r *run) (string, error) {
	res, err := o.exec.Execute(ctx, r.attempt.Target, reachScript)
	if err != nil {
		return "", err
	}
	if !res.Success() {
		return res.Output(), fmt.Errorf("reachability probe exited %d: %w", res.ExitCode, shipyarderrors.ErrRemoteCommand)
	}
	hostname := strings.TrimSpace(res.Stdout)

	exists, err := r.units.Exists(ctx, o.settings.Service)
	if err != nil {
		return hostname, err
	}
	if !exists {
		return hostname, fmt.Errorf("%s on %s: %w", o.settings.Service, r.attempt.Target.Label(), shipyarderrors.ErrServiceNotFound)
	}
	return hostname, nil
}

// syncPhase resets the checkout. Only dropped connections are retried.
func (o *Orchestrator) syncPhase(ctx context.Context, r *run) (string, error) {
	script := syncScript(r.attempt.Target.AppDir, r.attempt.Revision)
	op := &retry.SimpleOperation[*remote.Result]{
		AttemptFunc: func(ctx context.Context, _ int) (*remote.Result, bool, error) {
			res, err := o.exec.Execute(ctx, r.attempt.Target, script)
			if err != nil {
				return nil, false, err
			}
			if !res.Success() {
				return res, false, fmt.Errorf("exit %d: %s: %w", res.ExitCode, res.Output(), shipyarderrors.ErrSyncFailed)
			}
			return res, true, nil
		},
		ShouldRetryFunc: func(err error) bool {
			return errors.Is(err, shipyarderrors.ErrConnection)
		},
		OnRetryWaitFunc: func(attempt int, delay time.Duration) {
			r.logger.Warn().
				Int("attempt", attempt).
				Dur("delay", delay).
				Msg("sync connection dropped, retrying")
		},
	}

	res, _, err := retry.Execute(ctx, retry.Fixed(o.settings.SyncRetries+1, o.settings.SyncRetryDelay), op, o.sleep)
	if err != nil {
		return "", err
	}
	head := lastLine(res.Stdout)
	r.logger.Info().Str("head", head).Msg("checkout synced")
	return head, nil
}

// configurePhase starts the dependency, installs packages and writes the env file.
func (o *Orchestrator) configurePhase(ctx context.Context, r *run) (string, error) {
	if err := r.units.EnsureDependencyRunning(ctx, o.settings.Dependency); err != nil {
		return "", err
	}

	target := r.attempt.Target
	res, err := o.exec.Execute(ctx, target, installScript(target.AppDir, o.settings.Python, o.settings.Requirements))
	if err != nil {
		return "", err
	}
	if !res.Success() {
		return res.Output(), fmt.Errorf("exit %d: %w", res.ExitCode, shipyarderrors.ErrDependencyInstall)
	}

	script, err := envScript(target.AppDir, o.settings.Env)
	if err != nil {
		return "", err
	}
	res, err = o.exec.Execute(ctx, target, script)
	if err != nil {
		return "", err
	}
	if !res.Success() {
		return res.Output(), fmt.Errorf("write %s exited %d: %w", constants.EnvFileName, res.ExitCode, shipyarderrors.ErrConfigureFailed)
	}
	return "", nil
}

// restartPhase restarts the service and requires it to be active after settling.
func (o *Orchestrator) restartPhase(ctx context.Context, r *run) (string, error) {
	if err := r.units.Restart(ctx, o.settings.Service); err != nil {
		return "", err
	}
	if err := o.sleep(ctx, o.settings.SettleTime); err != nil {
		return "", err
	}
	active, err := r.units.IsActive(ctx, o.settings.Service)
	if err != nil {
		return "", err
	}
	if !active {
		logs := o.journal(ctx, r)
		return "", &PhaseError{
			Phase:       constants.PhaseRestarting,
			Cause:       fmt.Errorf("%s inactive after restart: %w", o.settings.Service, shipyarderrors.ErrServiceStart),
			Diagnostics: logs,
		}
	}
	return "", nil
}

// verifyPhase runs the health rounds and attaches the journal on failure.
func (o *Orchestrator) verifyPhase(ctx context.Context, r *run) (string, error) {
	endpoints := health.Resolve(o.baseURL(r.attempt.Target), o.settings.Endpoints)
	status := o.verifier.Verify(ctx, endpoints)
	r.attempt.Health = status

	summary := fmt.Sprintf("%d endpoint(s), %d round(s)", len(endpoints), status.Rounds)
	if status.Healthy {
		return summary, nil
	}

	var diag strings.Builder
	diag.WriteString(status.Diagnostics)
	diag.WriteString("\n--- journal: " + o.settings.Service + " ---\n")
	diag.WriteString(o.journal(ctx, r))

	return summary, &PhaseError{
		Phase:       constants.PhaseVerifying,
		Cause:       fmt.Errorf("unhealthy after %d round(s): %w", status.Rounds, shipyarderrors.ErrHealthCheckFailed),
		Diagnostics: diag.String(),
	}
}

// journal returns the service log tail. It uses a fresh deadline so a run
// that timed out still reports logs.
func (o *Orchestrator) journal(ctx context.Context, r *run) string {
	logCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), constants.DefaultConnectTimeout*2)
	defer cancel()

	logs, err := r.units.Logs(logCtx, o.settings.Service, o.settings.LogTailLines)
	if err != nil {
		r.logger.Warn().Err(err).Msg("could not read service journal")
		return "journal unavailable: " + err.Error()
	}
	return logs
}

func (o *Orchestrator) baseURL(target domain.DeploymentTarget) string {
	return health.TargetBaseURL(o.settings.HealthBaseURL, target.Host, o.settings.AppPort)
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}

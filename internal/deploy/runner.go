package deploy

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/mrz1836/shipyard/internal/clock"
	"github.com/mrz1836/shipyard/internal/constants"
	"github.com/mrz1836/shipyard/internal/domain"
	shipyarderrors "github.com/mrz1836/shipyard/internal/errors"
	"github.com/mrz1836/shipyard/internal/metrics"
)

// Publisher persists the artifact for a revision.
type Publisher interface {
	Publish(ctx context.Context, revision string) (*domain.PublishResult, error)
}

// Notifier receives the attempts of a finished run.
type Notifier interface {
	Notify(ctx context.Context, revision string, attempts []*domain.DeploymentAttempt) error
}

// Report is the outcome of a run across all targets.
type Report struct {
	Revision  string                      `json:"revision"`
	StartedAt time.Time                   `json:"started_at"`
	Attempts  []*domain.DeploymentAttempt `json:"attempts"`
	Publish   *domain.PublishResult       `json:"publish,omitempty"`
}

// Failed returns the attempts that did not succeed.
func (r *Report) Failed() []*domain.DeploymentAttempt {
	var failed []*domain.DeploymentAttempt
	for _, a := range r.Attempts {
		if !a.Succeeded() {
			failed = append(failed, a)
		}
	}
	return failed
}

// Succeeded reports whether every target succeeded.
func (r *Report) Succeeded() bool {
	return len(r.Attempts) > 0 && len(r.Failed()) == 0
}

// Runner deploys one revision to many targets.
type Runner struct {
	orchestrator *Orchestrator
	concurrency  int
	publisher    Publisher
	notifier     Notifier
	recorder     *metrics.Recorder
	metricsPath  string
	clock        clock.Clock
	logger       zerolog.Logger
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithConcurrency limits how many targets are deployed at once.
func WithConcurrency(n int) RunnerOption {
	return func(r *Runner) {
		if n > 0 {
			r.concurrency = n
		}
	}
}

// WithPublisher publishes the artifact once at least one target verified.
func WithPublisher(p Publisher) RunnerOption {
	return func(r *Runner) {
		r.publisher = p
	}
}

// WithNotifier sends the run summary when the run ends.
func WithNotifier(n Notifier) RunnerOption {
	return func(r *Runner) {
		r.notifier = n
	}
}

// WithMetrics records the run and writes it to path when path is set.
func WithMetrics(rec *metrics.Recorder, path string) RunnerOption {
	return func(r *Runner) {
		r.recorder = rec
		r.metricsPath = path
	}
}

// WithRunnerClock sets the clock used for the report and publish step.
func WithRunnerClock(c clock.Clock) RunnerOption {
	return func(r *Runner) {
		r.clock = c
	}
}

// WithRunnerLogger sets the logger.
func WithRunnerLogger(logger zerolog.Logger) RunnerOption {
	return func(r *Runner) {
		r.logger = logger
	}
}

// NewRunner creates a Runner around o.
func NewRunner(o *Orchestrator, opts ...RunnerOption) *Runner {
	r := &Runner{
		orchestrator: o,
		concurrency:  constants.DefaultConcurrency,
		clock:        clock.RealClock{},
		logger:       zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run deploys revision to every target. Targets are independent: one failing
// never stops the others. The report is always returned; the error wraps
// ErrDeploymentFailed when any target failed.
func (r *Runner) Run(ctx context.Context, targets []domain.DeploymentTarget, revision string) (*Report, error) {
	report := &Report{Revision: revision, StartedAt: r.clock.Now().UTC()}
	if len(targets) == 0 {
		return report, shipyarderrors.ErrNoTargets
	}

	attempts := make([]*domain.DeploymentAttempt, len(targets))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for i, target := range targets {
		g.Go(func() error {
			attempt, err := r.orchestrator.Deploy(gctx, target, revision)
			if err != nil {
				r.logger.Debug().Err(err).Str("target", target.Label()).Msg("target failed")
			}
			attempts[i] = attempt
			return nil
		})
	}
	_ = g.Wait()
	report.Attempts = attempts

	r.publish(ctx, report)
	r.finish(ctx, report)

	if failed := report.Failed(); len(failed) > 0 {
		return report, fmt.Errorf("%d of %d target(s): %w", len(failed), len(targets), shipyarderrors.ErrDeploymentFailed)
	}
	return report, nil
}

// publish runs the best-effort publishing phase. Its errors are warnings.
func (r *Runner) publish(ctx context.Context, report *Report) {
	if r.publisher == nil || ctx.Err() != nil {
		return
	}
	var verified []*domain.DeploymentAttempt
	for _, a := range report.Attempts {
		if a.Succeeded() {
			verified = append(verified, a)
		}
	}
	if len(verified) == 0 {
		r.logger.Info().Msg("no target verified, skipping artifact publish")
		return
	}

	started := r.clock.Now()
	result, err := r.publisher.Publish(ctx, report.Revision)
	if result == nil {
		result = &domain.PublishResult{}
	}
	if err != nil {
		result.Err = err
		result.Error = err.Error()
		r.logger.Warn().
			Err(err).
			Int("attempts", result.Attempts).
			Msg("artifact publish failed, deployment outcome unchanged")
	}
	report.Publish = result
	r.recorder.ObservePublish(result)

	step := domain.StepResult{
		Phase:     constants.PhasePublishing,
		Status:    constants.StepCompleted,
		StartedAt: started.UTC(),
		Duration:  r.clock.Now().Sub(started),
		Output:    result.Commit,
	}
	if err != nil {
		step.Status = constants.StepWarning
		step.Error = err.Error()
	}
	for _, a := range verified {
		a.Publish = result
		a.AddStep(step)
	}
}

// finish records metrics and sends the notification. Failures are logged only.
func (r *Runner) finish(ctx context.Context, report *Report) {
	for _, a := range report.Attempts {
		r.recorder.ObserveAttempt(a)
	}
	if err := r.recorder.WriteTextfile(r.metricsPath); err != nil {
		r.logger.Warn().Err(err).Msg("metrics textfile not written")
	}

	if r.notifier == nil {
		return
	}
	if err := r.notifier.Notify(context.WithoutCancel(ctx), report.Revision, report.Attempts); err != nil {
		r.logger.Warn().Err(err).Msg("deployment summary not delivered")
	}
}

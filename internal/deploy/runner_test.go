package deploy

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/shipyard/internal/clock"
	"github.com/mrz1836/shipyard/internal/constants"
	"github.com/mrz1836/shipyard/internal/domain"
	shipyarderrors "github.com/mrz1836/shipyard/internal/errors"
	"github.com/mrz1836/shipyard/internal/metrics"
	"github.com/mrz1836/shipyard/internal/remote"
	"github.com/mrz1836/shipyard/internal/testutil"
)

// perHost routes scripts to a fake executor per target host.
type perHost map[string]*testutil.FakeExecutor

func (p perHost) Execute(ctx context.Context, target domain.DeploymentTarget, script string) (*remote.Result, error) {
	return p[target.Host].Execute(ctx, target, script)
}

type fakePublisher struct {
	calls  atomic.Int32
	result *domain.PublishResult
	err    error
}

func (f *fakePublisher) Publish(_ context.Context, _ string) (*domain.PublishResult, error) {
	f.calls.Add(1)
	return f.result, f.err
}

type fakeNotifier struct {
	mu       sync.Mutex
	revision string
	attempts []*domain.DeploymentAttempt
	err      error
}

func (f *fakeNotifier) Notify(_ context.Context, revision string, attempts []*domain.DeploymentAttempt) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.revision = revision
	f.attempts = attempts
	return f.err
}

func targets(hosts ...string) []domain.DeploymentTarget {
	out := make([]domain.DeploymentTarget, 0, len(hosts))
	for i, h := range hosts {
		out = append(out, domain.DeploymentTarget{Name: fmt.Sprintf("web-%d", i+1), Host: h, AppDir: "/srv/blog"})
	}
	return out
}

func newTestRunner(t *testing.T, exec remote.Executor, baseURL string, opts ...RunnerOption) *Runner {
	t.Helper()
	f := newFixture(t, testutil.NewFakeExecutor(), baseURL)
	orch := NewOrchestrator(exec, f.verifier, f.orch.settings,
		WithSleep(f.sleeps.sleep),
		WithClock(clock.FixedClock{At: testNow}),
	)
	opts = append([]RunnerOption{WithRunnerClock(clock.FixedClock{At: testNow})}, opts...)
	return NewRunner(orch, opts...)
}

func TestRunner_AllTargetsSucceedAndPublishOnce(t *testing.T) {
	srv := appServer(t, always(http.StatusOK))
	exec := perHost{"203.0.113.5": hostExecutor(), "203.0.113.6": hostExecutor()}
	pub := &fakePublisher{result: &domain.PublishResult{Published: true, Attempts: 1, Commit: "c0ffee"}}
	notifier := &fakeNotifier{}
	rec := metrics.NewRecorder()
	textfile := filepath.Join(t.TempDir(), "shipyard.prom")

	r := newTestRunner(t, exec, srv.URL,
		WithConcurrency(2),
		WithPublisher(pub),
		WithNotifier(notifier),
		WithMetrics(rec, textfile),
	)

	report, err := r.Run(context.Background(), targets("203.0.113.5", "203.0.113.6"), testRevision)
	require.NoError(t, err)
	assert.True(t, report.Succeeded())
	require.Len(t, report.Attempts, 2)
	assert.Equal(t, "203.0.113.5", report.Attempts[0].Target.Host)
	assert.Equal(t, "203.0.113.6", report.Attempts[1].Target.Host)

	assert.Equal(t, int32(1), pub.calls.Load())
	require.NotNil(t, report.Publish)
	for _, a := range report.Attempts {
		assert.Equal(t, constants.OutcomeSuccess, a.Outcome)
		assert.Same(t, report.Publish, a.Publish)
		last := a.Steps[len(a.Steps)-1]
		assert.Equal(t, constants.PhasePublishing, last.Phase)
		assert.Equal(t, constants.StepCompleted, last.Status)
		assert.Equal(t, "c0ffee", last.Output)
	}

	assert.Equal(t, testRevision, notifier.revision)
	assert.Len(t, notifier.attempts, 2)

	data, err := os.ReadFile(textfile) //#nosec G304 -- test file
	require.NoError(t, err)
	assert.Contains(t, string(data), `shipyard_deployments_total{outcome="success",target="web-2"} 1`)
	assert.Contains(t, string(data), `shipyard_publish_attempts_total{result="published"} 1`)
}

func TestRunner_OneTargetFailsOthersContinue(t *testing.T) {
	srv := appServer(t, always(http.StatusOK))
	broken := hostExecutor(func(e *testutil.FakeExecutor) {
		e.On("systemctl cat", remote.Result{ExitCode: 1})
	})
	exec := perHost{"203.0.113.5": hostExecutor(), "203.0.113.6": broken}
	pub := &fakePublisher{result: &domain.PublishResult{Published: true, Attempts: 1}}

	r := newTestRunner(t, exec, srv.URL, WithPublisher(pub))

	report, err := r.Run(context.Background(), targets("203.0.113.5", "203.0.113.6"), testRevision)
	require.ErrorIs(t, err, shipyarderrors.ErrDeploymentFailed)
	assert.Contains(t, err.Error(), "1 of 2")
	assert.False(t, report.Succeeded())

	require.Len(t, report.Failed(), 1)
	assert.Equal(t, "203.0.113.6", report.Failed()[0].Target.Host)
	assert.True(t, report.Attempts[0].Succeeded())

	assert.Equal(t, int32(1), pub.calls.Load())
	assert.NotNil(t, report.Attempts[0].Publish)
	assert.Nil(t, report.Attempts[1].Publish)
}

func TestRunner_PublishExhaustionKeepsSuccess(t *testing.T) {
	srv := appServer(t, always(http.StatusOK))
	exhausted := fmt.Errorf("after 5 attempts: %w", shipyarderrors.ErrPublishExhausted)
	pub := &fakePublisher{result: &domain.PublishResult{Attempts: 5}, err: exhausted}
	rec := metrics.NewRecorder()

	r := newTestRunner(t, perHost{"203.0.113.5": hostExecutor()}, srv.URL,
		WithPublisher(pub),
		WithMetrics(rec, ""),
	)

	report, err := r.Run(context.Background(), targets("203.0.113.5"), testRevision)
	require.NoError(t, err)
	assert.True(t, report.Succeeded())

	a := report.Attempts[0]
	assert.Equal(t, constants.OutcomeSuccess, a.Outcome)
	assert.Equal(t, constants.PhaseSuccess, a.Phase)
	require.NotNil(t, a.Publish)
	assert.False(t, a.Publish.Published)
	require.ErrorIs(t, a.Publish.Err, shipyarderrors.ErrPublishExhausted)

	last := a.Steps[len(a.Steps)-1]
	assert.Equal(t, constants.PhasePublishing, last.Phase)
	assert.Equal(t, constants.StepWarning, last.Status)
}

func TestRunner_NoVerifiedTargetSkipsPublish(t *testing.T) {
	srv := appServer(t, always(http.StatusInternalServerError))
	pub := &fakePublisher{}
	notifier := &fakeNotifier{err: testutil.ErrMockWebhook}

	r := newTestRunner(t, perHost{"203.0.113.5": hostExecutor()}, srv.URL,
		WithPublisher(pub),
		WithNotifier(notifier),
	)

	report, err := r.Run(context.Background(), targets("203.0.113.5"), testRevision)
	require.ErrorIs(t, err, shipyarderrors.ErrDeploymentFailed)
	assert.Zero(t, pub.calls.Load())
	assert.Nil(t, report.Publish)
	assert.Len(t, notifier.attempts, 1)
}

func TestRunner_NoTargets(t *testing.T) {
	r := newTestRunner(t, perHost{}, "http://127.0.0.1:1")
	_, err := r.Run(context.Background(), nil, testRevision)
	require.ErrorIs(t, err, shipyarderrors.ErrNoTargets)
}

func TestRunner_ConcurrencyLimit(t *testing.T) {
	srv := appServer(t, always(http.StatusOK))
	var inFlight, peak atomic.Int32
	gate := &gatedExecutor{
		next:     hostExecutor(),
		inFlight: &inFlight,
		peak:     &peak,
	}

	r := newTestRunner(t, gate, srv.URL, WithConcurrency(2))
	report, err := r.Run(context.Background(), targets("10.0.0.1", "10.0.0.2", "10.0.0.3", "10.0.0.4", "10.0.0.5"), testRevision)
	require.NoError(t, err)
	assert.Len(t, report.Attempts, 5)
	assert.LessOrEqual(t, peak.Load(), int32(2))
}

// gatedExecutor tracks how many targets are inside the init probe at once.
type gatedExecutor struct {
	next     *testutil.FakeExecutor
	inFlight *atomic.Int32
	peak     *atomic.Int32
}

func (g *gatedExecutor) Execute(ctx context.Context, target domain.DeploymentTarget, script string) (*remote.Result, error) {
	if script != reachScript {
		return g.next.Execute(ctx, target, script)
	}
	n := g.inFlight.Add(1)
	defer g.inFlight.Add(-1)
	for {
		p := g.peak.Load()
		if n <= p || g.peak.CompareAndSwap(p, n) {
			break
		}
	}
	time.Sleep(5 * time.Millisecond)
	return g.next.Execute(ctx, target, script)
}

package deploy

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mrz1836/shipyard/internal/clock"
	"github.com/mrz1836/shipyard/internal/domain"
	"github.com/mrz1836/shipyard/internal/health"
	"github.com/mrz1836/shipyard/internal/remote"
	"github.com/mrz1836/shipyard/internal/testutil"
)

const testRevision = "abc1234"

var testNow = time.Date(2026, 10, 19, 14, 0, 0, 0, time.UTC)

func testTarget() domain.DeploymentTarget {
	return domain.DeploymentTarget{
		Name:    "prod",
		Host:    "203.0.113.5",
		User:    "deploy",
		KeyPath: "/keys/id_ed25519",
		AppDir:  "/srv/blog",
	}
}

// sleepRecorder records requested waits and returns immediately.
type sleepRecorder struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (s *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.delays = append(s.delays, d)
	s.mu.Unlock()
	return ctx.Err()
}

func (s *sleepRecorder) Delays() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Duration(nil), s.delays...)
}

// hostExecutor answers like a host where both units are running. Rules added
// by overrides take precedence over the defaults.
func hostExecutor(overrides ...func(*testutil.FakeExecutor)) *testutil.FakeExecutor {
	exec := testutil.NewFakeExecutor()
	for _, o := range overrides {
		o(exec)
	}
	return exec.
		On("uname -n", remote.Result{Stdout: "blog-prod\n"}).
		On("is-active -- 'blog-app'", remote.Result{Stdout: "active\n"}).
		On("is-active -- 'mongod'", remote.Result{Stdout: "active\n"}).
		On("git fetch --all", remote.Result{Stdout: "abc1234ffffffffffffffffffffffffffffffff\n"}).
		On("journalctl", remote.Result{Stdout: "Oct 19 blog-app[812]: Traceback (most recent call last)\n"})
}

// appServer serves the three default endpoints. status overrides /health.
func appServer(t *testing.T, healthStatus func() int) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(healthStatus())
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	mux.HandleFunc("/metrics", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("# TYPE blog_posts_total counter\nblog_posts_total 3\n"))
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("<!doctype html><html><body>blog</body></html>"))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func always(code int) func() int {
	return func() int { return code }
}

type fixture struct {
	exec     *testutil.FakeExecutor
	sleeps   *sleepRecorder
	verifier *health.Verifier
	orch     *Orchestrator
}

func newFixture(t *testing.T, exec *testutil.FakeExecutor, baseURL string, mutate ...func(*Settings)) *fixture {
	t.Helper()
	sleeps := &sleepRecorder{}
	verifier := health.NewVerifier(health.WithSleep(sleeps.sleep), health.WithClock(clock.FixedClock{At: testNow}))
	t.Cleanup(func() { require.NoError(t, verifier.Close()) })

	settings := Settings{
		HealthBaseURL: baseURL,
		SettleTime:    10 * time.Second,
		SyncRetries:   2,
		Env: Environment{
			SecretKey:    "s3cret-key",
			MongoURI:     "mongodb://blog:pw@localhost:27017/",
			DatabaseName: "blog_db",
			FlaskEnv:     "production",
		},
	}
	for _, m := range mutate {
		m(&settings)
	}

	ids := 0
	orch := NewOrchestrator(exec, verifier, settings,
		WithSleep(sleeps.sleep),
		WithClock(clock.FixedClock{At: testNow}),
		WithIDGenerator(func() string {
			ids++
			return "attempt-" + string(rune('0'+ids))
		}),
	)
	return &fixture{exec: exec, sleeps: sleeps, verifier: verifier, orch: orch}
}

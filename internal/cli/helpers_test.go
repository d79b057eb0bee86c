package cli

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/shipyard/internal/clock"
	"github.com/mrz1836/shipyard/internal/config"
	"github.com/mrz1836/shipyard/internal/remote"
	"github.com/mrz1836/shipyard/internal/testutil"
)

//nolint:gochecknoglobals // fixed test time
var testNow = time.Date(2026, 10, 19, 14, 0, 0, 0, time.UTC)

func instantSleep(ctx context.Context, _ time.Duration) error {
	return ctx.Err()
}

// testServices wires exec in place of SSH and removes every real wait.
func testServices(exec remote.Executor) *services {
	return &services{
		newExecutor: func(*config.Config, zerolog.Logger) remote.Executor { return exec },
		clock:       clock.FixedClock{At: testNow},
		sleep:       instantSleep,
		newID:       func() string { return "attempt-1" },
		logWriter:   io.Discard,
	}
}

// healthyHost answers like a host where the app and database units run.
func healthyHost() *testutil.FakeExecutor {
	return testutil.NewFakeExecutor().
		On("uname -n", remote.Result{Stdout: "blog-prod\n"}).
		On("is-active -- 'blog-app'", remote.Result{Stdout: "active\n"}).
		On("is-active -- 'mongod'", remote.Result{Stdout: "active\n"}).
		On("git fetch --all", remote.Result{Stdout: "abc1234ffffffffffffffffffffffffffffffff\n"})
}

// appServer serves the default health endpoints. healthy controls /health.
func appServer(t *testing.T, healthy bool) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		if !healthy {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
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

// isolate points HOME at an empty directory and runs the test from another.
func isolate(t *testing.T) string {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	project := t.TempDir()
	t.Chdir(project)
	return project
}

// writeProjectConfig writes .shipyard/config.yaml for a two-target fleet
// whose health checks hit baseURL.
func writeProjectConfig(t *testing.T, baseURL string) {
	t.Helper()
	content := `targets:
  - name: web1
    host: 203.0.113.10
  - name: web2
    host: 203.0.113.11
ssh:
  user: deploy
  key_path: /keys/id_ed25519
deploy:
  app_dir: /srv/blog
  settle_time: 1ms
env:
  secret_key: s3cret-key
  mongo_uri: mongodb://blog:pw@localhost:27017/
health:
  attempts: 2
  delay: 100ms
  base_url: ` + baseURL + `
`
	require.NoError(t, os.MkdirAll(".shipyard", 0o700))
	require.NoError(t, os.WriteFile(filepath.Join(".shipyard", "config.yaml"), []byte(content), 0o600))
}

// runCLI executes the root command with args and returns its stdout.
func runCLI(t *testing.T, svc *services, args ...string) (string, error) {
	t.Helper()
	flags := &GlobalFlags{}
	cmd := newRootCmdWithServices(flags, BuildInfo{Version: "1.2.3", Commit: "abc1234", Date: "2026-10-19"}, svc)
	stdout := new(bytes.Buffer)
	cmd.SetOut(stdout)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), err
}

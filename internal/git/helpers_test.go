package git

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// gitCmd runs git in dir and fails the test on error.
func gitCmd(t *testing.T, dir string, args ...string) string {
	t.Helper()
	cmd := exec.CommandContext(context.Background(), "git", args...) //#nosec G204 -- test helper
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, "git %v: %s", args, out)
	return string(out)
}

func configureUser(t *testing.T, dir string) {
	t.Helper()
	gitCmd(t, dir, "config", "user.email", "test@shipyard.local")
	gitCmd(t, dir, "config", "user.name", "Shipyard Test")
	gitCmd(t, dir, "config", "commit.gpgsign", "false")
}

// createTestGitRepo initializes a repository with one commit on main.
func createTestGitRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	gitCmd(t, dir, "init", "--quiet", "--initial-branch=main")
	configureUser(t, dir)
	writeTestFile(t, dir, "README.md", "shared artifacts\n")
	gitCmd(t, dir, "add", "-A")
	gitCmd(t, dir, "commit", "--quiet", "-m", "initial commit")
	return dir
}

// createRemoteWithClones returns a bare remote seeded with one commit and two
// independent clones of it.
func createRemoteWithClones(t *testing.T) (remote, cloneA, cloneB string) {
	t.Helper()
	seed := createTestGitRepo(t)

	remote = filepath.Join(t.TempDir(), "remote.git")
	gitCmd(t, seed, "clone", "--quiet", "--bare", seed, remote)

	cloneA = filepath.Join(t.TempDir(), "a")
	cloneB = filepath.Join(t.TempDir(), "b")
	for _, dir := range []string{cloneA, cloneB} {
		gitCmd(t, filepath.Dir(dir), "clone", "--quiet", remote, dir)
		configureUser(t, dir)
	}
	return remote, cloneA, cloneB
}

func writeTestFile(t *testing.T, repo, name, content string) {
	t.Helper()
	p := filepath.Join(repo, filepath.FromSlash(name))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o750))
	require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
}

func commitAll(t *testing.T, repo, message string) {
	t.Helper()
	gitCmd(t, repo, "add", "-A")
	gitCmd(t, repo, "commit", "--quiet", "-m", message)
}

func readTestFile(t *testing.T, repo, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(repo, filepath.FromSlash(name))) //#nosec G304 -- test helper
	require.NoError(t, err)
	return string(data)
}

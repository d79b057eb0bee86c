package git

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	shipyarderrors "github.com/mrz1836/shipyard/internal/errors"
)

func TestRunCommand_Success(t *testing.T) {
	dir := createTestGitRepo(t)

	output, err := RunCommand(context.Background(), dir, "rev-parse", "--git-dir")

	require.NoError(t, err)
	assert.Equal(t, ".git", output)
}

func TestRunCommand_WithStderr(t *testing.T) {
	dir := createTestGitRepo(t)

	_, err := RunCommand(context.Background(), dir, "show", "nonexistent-commit-hash")

	require.ErrorIs(t, err, shipyarderrors.ErrGitOperation)
	assert.Contains(t, err.Error(), "git show failed")
}

func TestRunCommand_NamesSubcommandAfterConfigFlags(t *testing.T) {
	dir := createTestGitRepo(t)

	_, err := RunCommand(context.Background(), dir, "-c", "core.editor=true", "rebase", "--continue")

	require.ErrorIs(t, err, shipyarderrors.ErrGitOperation)
	assert.Contains(t, err.Error(), "git rebase failed")
}

func TestRunCommand_ContextCanceled(t *testing.T) {
	dir := createTestGitRepo(t)
	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	time.Sleep(time.Millisecond)

	_, err := RunCommand(ctx, dir, "status")

	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestClone(t *testing.T) {
	remote, _, _ := createRemoteWithClones(t)
	dest := filepath.Join(t.TempDir(), "clone")

	require.NoError(t, Clone(context.Background(), remote, dest, "main"))
	assert.Equal(t, "shared artifacts\n", readTestFile(t, dest, "README.md"))

	err := Clone(context.Background(), filepath.Join(t.TempDir(), "missing.git"), filepath.Join(t.TempDir(), "x"), "")
	require.ErrorIs(t, err, shipyarderrors.ErrGitOperation)
}

func TestCommandName(t *testing.T) {
	assert.Equal(t, "status", commandName([]string{"status"}))
	assert.Equal(t, "rebase", commandName([]string{"-c", "core.editor=true", "rebase", "--continue"}))
	assert.Equal(t, "log", commandName([]string{"-C", "/tmp", "log"}))
	assert.Empty(t, commandName(nil))
}

package publish

import (
	"context"
	"strings"
	"sync"

	"github.com/mrz1836/shipyard/internal/git"
)

// mockRunner is a function-field git.Runner. Unset functions succeed.
type mockRunner struct {
	mu    sync.Mutex
	calls []string

	FetchFunc            func(ctx context.Context, remote string) error
	RebaseFunc           func(ctx context.Context, onto string) error
	RebaseContinueFunc   func(ctx context.Context) error
	RebaseAbortFunc      func(ctx context.Context) error
	RebaseInProgressFunc func(ctx context.Context) (bool, error)
	ConflictedFilesFunc  func(ctx context.Context) ([]string, error)
	CheckoutTheirsFunc   func(ctx context.Context, paths []string) error
	AddFunc              func(ctx context.Context, paths []string) error
	HasStagedChangesFunc func(ctx context.Context) (bool, error)
	CommitFunc           func(ctx context.Context, message string) error
	PushFunc             func(ctx context.Context, remote, branch string) error
	ResetHardFunc        func(ctx context.Context, ref string) error
	HeadCommitFunc       func(ctx context.Context) (string, error)
}

var _ git.Runner = (*mockRunner)(nil)

func (m *mockRunner) record(call string, args ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(args) > 0 {
		call += " " + strings.Join(args, " ")
	}
	m.calls = append(m.calls, call)
}

func (m *mockRunner) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

func (m *mockRunner) count(prefix string) int {
	n := 0
	for _, c := range m.Calls() {
		if strings.HasPrefix(c, prefix) {
			n++
		}
	}
	return n
}

func (m *mockRunner) Fetch(ctx context.Context, remote string) error {
	m.record("fetch", remote)
	if m.FetchFunc != nil {
		return m.FetchFunc(ctx, remote)
	}
	return nil
}

func (m *mockRunner) Rebase(ctx context.Context, onto string) error {
	m.record("rebase", onto)
	if m.RebaseFunc != nil {
		return m.RebaseFunc(ctx, onto)
	}
	return nil
}

func (m *mockRunner) RebaseContinue(ctx context.Context) error {
	m.record("rebase-continue")
	if m.RebaseContinueFunc != nil {
		return m.RebaseContinueFunc(ctx)
	}
	return nil
}

func (m *mockRunner) RebaseAbort(ctx context.Context) error {
	m.record("rebase-abort")
	if m.RebaseAbortFunc != nil {
		return m.RebaseAbortFunc(ctx)
	}
	return nil
}

func (m *mockRunner) RebaseInProgress(ctx context.Context) (bool, error) {
	m.record("rebase-in-progress")
	if m.RebaseInProgressFunc != nil {
		return m.RebaseInProgressFunc(ctx)
	}
	return false, nil
}

func (m *mockRunner) ConflictedFiles(ctx context.Context) ([]string, error) {
	m.record("conflicted-files")
	if m.ConflictedFilesFunc != nil {
		return m.ConflictedFilesFunc(ctx)
	}
	return nil, nil
}

func (m *mockRunner) CheckoutTheirs(ctx context.Context, paths []string) error {
	m.record("checkout-theirs", paths...)
	if m.CheckoutTheirsFunc != nil {
		return m.CheckoutTheirsFunc(ctx, paths)
	}
	return nil
}

func (m *mockRunner) Add(ctx context.Context, paths []string) error {
	m.record("add", paths...)
	if m.AddFunc != nil {
		return m.AddFunc(ctx, paths)
	}
	return nil
}

func (m *mockRunner) HasStagedChanges(ctx context.Context) (bool, error) {
	m.record("has-staged")
	if m.HasStagedChangesFunc != nil {
		return m.HasStagedChangesFunc(ctx)
	}
	return true, nil
}

func (m *mockRunner) Commit(ctx context.Context, message string) error {
	m.record("commit", message)
	if m.CommitFunc != nil {
		return m.CommitFunc(ctx, message)
	}
	return nil
}

func (m *mockRunner) Push(ctx context.Context, remote, branch string) error {
	m.record("push", remote, branch)
	if m.PushFunc != nil {
		return m.PushFunc(ctx, remote, branch)
	}
	return nil
}

func (m *mockRunner) ResetHard(ctx context.Context, ref string) error {
	m.record("reset-hard", ref)
	if m.ResetHardFunc != nil {
		return m.ResetHardFunc(ctx, ref)
	}
	return nil
}

func (m *mockRunner) HeadCommit(ctx context.Context) (string, error) {
	m.record("head")
	if m.HeadCommitFunc != nil {
		return m.HeadCommitFunc(ctx)
	}
	return "0123456789abcdef0123456789abcdef01234567", nil
}

func (m *mockRunner) CurrentBranch(_ context.Context) (string, error) {
	m.record("current-branch")
	return "main", nil
}

func (m *mockRunner) CommitCount(_ context.Context, _ string) (int, error) {
	m.record("commit-count")
	return 1, nil
}

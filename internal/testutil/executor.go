package testutil

import (
	"context"
	"strings"
	"sync"

	"github.com/mrz1836/shipyard/internal/domain"
	"github.com/mrz1836/shipyard/internal/remote"
)

// Rule maps a script substring to a canned response.
type Rule struct {
	Contains string
	Result   remote.Result
	Err      error

	// Times limits how often the rule matches. Zero means unlimited.
	Times int
	used  int
}

// FakeExecutor is a scriptable remote.Executor. Rules are matched in the
// order they were added; the first unexhausted rule whose substring appears
// in the script wins. Unmatched scripts succeed with empty output.
type FakeExecutor struct {
	mu      sync.Mutex
	rules   []*Rule
	scripts []string
}

// NewFakeExecutor creates an empty FakeExecutor.
func NewFakeExecutor() *FakeExecutor {
	return &FakeExecutor{}
}

// On answers every script containing substr with result.
func (f *FakeExecutor) On(substr string, result remote.Result) *FakeExecutor {
	return f.add(&Rule{Contains: substr, Result: result})
}

// Once answers the next script containing substr with result.
func (f *FakeExecutor) Once(substr string, result remote.Result) *FakeExecutor {
	return f.add(&Rule{Contains: substr, Result: result, Times: 1})
}

// OnError fails every script containing substr with err.
func (f *FakeExecutor) OnError(substr string, err error) *FakeExecutor {
	return f.add(&Rule{Contains: substr, Err: err})
}

// OnceError fails the next script containing substr with err.
func (f *FakeExecutor) OnceError(substr string, err error) *FakeExecutor {
	return f.add(&Rule{Contains: substr, Err: err, Times: 1})
}

func (f *FakeExecutor) add(rule *Rule) *FakeExecutor {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rules = append(f.rules, rule)
	return f
}

// Execute implements remote.Executor.
func (f *FakeExecutor) Execute(ctx context.Context, _ domain.DeploymentTarget, script string) (*remote.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.scripts = append(f.scripts, script)

	for _, rule := range f.rules {
		if !strings.Contains(script, rule.Contains) {
			continue
		}
		if rule.Times > 0 && rule.used >= rule.Times {
			continue
		}
		rule.used++
		if rule.Err != nil {
			return nil, rule.Err
		}
		result := rule.Result
		return &result, nil
	}
	return &remote.Result{}, nil
}

// Scripts returns every script received, in order.
func (f *FakeExecutor) Scripts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.scripts...)
}

// Count returns how many received scripts contain substr.
func (f *FakeExecutor) Count(substr string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, s := range f.scripts {
		if strings.Contains(s, substr) {
			n++
		}
	}
	return n
}

// Ran reports whether any received script contains substr.
func (f *FakeExecutor) Ran(substr string) bool {
	return f.Count(substr) > 0
}

package git

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorType_String(t *testing.T) {
	tests := []struct {
		errType  ErrorType
		expected string
	}{
		{ErrorTypeUnknown, "unknown"},
		{ErrorTypeAuth, "authentication"},
		{ErrorTypeNetwork, "network"},
		{ErrorTypeNonFastForward, "non_fast_forward"},
		{ErrorTypeConflict, "conflict"},
		{ErrorType(99), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.errType.String())
		})
	}
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name     string
		errStr   string
		expected ErrorType
	}{
		{"auth - permission denied", "git@github.com: Permission denied (publickey).", ErrorTypeAuth},
		{"auth - host key", "Host key verification failed.", ErrorTypeAuth},
		{"auth - case insensitive", "AUTHENTICATION FAILED", ErrorTypeAuth},
		{"network - resolve", "ssh: Could not resolve hostname; could not resolve host: git.example.com", ErrorTypeNetwork},
		{"network - hung up", "fatal: the remote end hung up unexpectedly", ErrorTypeNetwork},
		{"non-fast-forward - fetch first", " ! [rejected]        HEAD -> main (fetch first)", ErrorTypeNonFastForward},
		{"non-fast-forward - hint", "hint: Updates were rejected because the remote contains work that you do not have locally.", ErrorTypeNonFastForward},
		{"conflict - could not apply", "error: could not apply 1a2b3c4... publish abc1234", ErrorTypeConflict},
		{"conflict - content", "CONFLICT (add/add): Merge conflict in artifacts/abc1234/VERSION", ErrorTypeConflict},
		{"unknown", "fatal: not a git repository", ErrorTypeUnknown},
		{"empty", "", ErrorTypeUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ClassifyError(tt.errStr))
		})
	}
}

func TestClassifyError_Priority(t *testing.T) {
	// A rejected push that also reports an auth problem is not worth retrying.
	assert.Equal(t, ErrorTypeAuth, ClassifyError("permission denied; updates were rejected"))
	assert.Equal(t, ErrorTypeNetwork, ClassifyError("connection refused while fetch first"))
}

func TestIsTransient(t *testing.T) {
	assert.True(t, IsTransient(ErrorTypeNetwork))
	assert.True(t, IsTransient(ErrorTypeNonFastForward))
	assert.False(t, IsTransient(ErrorTypeAuth))
	assert.False(t, IsTransient(ErrorTypeConflict))
	assert.False(t, IsTransient(ErrorTypeUnknown))
}

func TestPatternMatcher(t *testing.T) {
	m := NewPatternMatcher("foo", "bar baz")

	assert.True(t, m.Matches("this has FOO in it"))
	assert.True(t, m.Matches("Bar Baz"))
	assert.False(t, m.Matches("nothing"))
	assert.True(t, m.MatchesLower("bar baz"))
	assert.False(t, m.MatchesLower("BAR BAZ"))
	assert.False(t, NewPatternMatcher().Matches("anything"))
}

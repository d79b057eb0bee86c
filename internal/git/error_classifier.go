// This file contains git error classification utilities.
package git

import "strings"

// ErrorType represents the classification of a git error.
type ErrorType int

const (
	// ErrorTypeUnknown indicates the error could not be classified.
	ErrorTypeUnknown ErrorType = iota
	// ErrorTypeAuth indicates an authentication error.
	ErrorTypeAuth
	// ErrorTypeNetwork indicates a network connectivity error.
	ErrorTypeNetwork
	// ErrorTypeNonFastForward indicates a non-fast-forward push rejection.
	ErrorTypeNonFastForward
	// ErrorTypeConflict indicates a rebase or merge stopped on conflicts.
	ErrorTypeConflict
)

// String returns a human-readable name for the error type.
func (e ErrorType) String() string {
	switch e {
	case ErrorTypeUnknown:
		return "unknown"
	case ErrorTypeAuth:
		return "authentication"
	case ErrorTypeNetwork:
		return "network"
	case ErrorTypeNonFastForward:
		return "non_fast_forward"
	case ErrorTypeConflict:
		return "conflict"
	default:
		return "unknown"
	}
}

// PatternMatcher checks if a string contains any of a list of patterns.
type PatternMatcher struct {
	patterns []string
}

// NewPatternMatcher creates a PatternMatcher. Patterns must be lowercase.
func NewPatternMatcher(patterns ...string) *PatternMatcher {
	return &PatternMatcher{patterns: patterns}
}

// Matches reports whether s contains any pattern, ignoring case.
func (m *PatternMatcher) Matches(s string) bool {
	return m.MatchesLower(strings.ToLower(s))
}

// MatchesLower checks an already-lowercased string.
func (m *PatternMatcher) MatchesLower(lower string) bool {
	for _, pattern := range m.patterns {
		if strings.Contains(lower, pattern) {
			return true
		}
	}
	return false
}

//nolint:gochecknoglobals // Package-level immutable pattern matchers
var (
	authPatterns = NewPatternMatcher(
		"authentication failed",
		"could not read username",
		"permission denied",
		"invalid username or password",
		"access denied",
		"authentication required",
		"host key verification failed",
	)

	networkPatterns = NewPatternMatcher(
		"could not resolve host",
		"connection refused",
		"network is unreachable",
		"connection timed out",
		"operation timed out",
		"unable to access",
		"no route to host",
		"failed to connect",
		"the remote end hung up unexpectedly",
	)

	nonFastForwardPatterns = NewPatternMatcher(
		"non-fast-forward",
		"[rejected]",
		"updates were rejected",
		"fetch first",
		"tip of your current branch is behind",
		"rejected because the remote contains work",
	)

	conflictPatterns = NewPatternMatcher(
		"conflict",
		"could not apply",
		"needs merge",
		"you must edit all merge conflicts",
	)

	emptyCommitPatterns = NewPatternMatcher(
		"no changes - did you forget",
		"nothing to commit",
		"previous cherry-pick is now empty",
	)
)

// ErrorClassifier classifies git error output.
type ErrorClassifier struct {
	auth           *PatternMatcher
	network        *PatternMatcher
	nonFastForward *PatternMatcher
	conflict       *PatternMatcher
}

//nolint:gochecknoglobals // Singleton classifier for package use
var defaultClassifier = &ErrorClassifier{
	auth:           authPatterns,
	network:        networkPatterns,
	nonFastForward: nonFastForwardPatterns,
	conflict:       conflictPatterns,
}

// ClassifyError determines the error type from an error string.
//
// Priority (first match wins): auth, network, non-fast-forward, conflict.
func ClassifyError(errStr string) ErrorType {
	return defaultClassifier.Classify(errStr)
}

// Classify determines the error type from an error string.
func (c *ErrorClassifier) Classify(errStr string) ErrorType {
	lower := strings.ToLower(errStr)
	switch {
	case c.auth.MatchesLower(lower):
		return ErrorTypeAuth
	case c.network.MatchesLower(lower):
		return ErrorTypeNetwork
	case c.nonFastForward.MatchesLower(lower):
		return ErrorTypeNonFastForward
	case c.conflict.MatchesLower(lower):
		return ErrorTypeConflict
	default:
		return ErrorTypeUnknown
	}
}

// IsTransient reports whether another attempt could succeed.
func IsTransient(errType ErrorType) bool {
	return errType == ErrorTypeNetwork || errType == ErrorTypeNonFastForward
}

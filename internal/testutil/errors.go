// Package testutil provides testing utilities for SHIPYARD.
//
// This package contains mock errors and fakes used across test files.
// It should only be imported by test files (*_test.go).
package testutil

import "errors"

// Mock errors for testing purposes.
var (
	// ErrMockNotFound indicates a mock resource was not found.
	ErrMockNotFound = errors.New("not found")

	// ErrMockWebhook indicates a mock webhook delivery failed.
	ErrMockWebhook = errors.New("webhook failed")

	// ErrMockNetwork indicates a mock network failure.
	ErrMockNetwork = errors.New("network error")
)

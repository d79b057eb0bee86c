package testutil

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMockErrors(t *testing.T) {
	assert.Equal(t, "not found", ErrMockNotFound.Error())
	assert.Equal(t, "webhook failed", ErrMockWebhook.Error())
	assert.NotErrorIs(t, ErrMockNotFound, ErrMockWebhook)
}

func TestMockErrors_Wrapping(t *testing.T) {
	wrapped := fmt.Errorf("POST hook: %w", ErrMockWebhook)
	assert.ErrorIs(t, wrapped, ErrMockWebhook)
	assert.NotErrorIs(t, errors.New("webhook failed"), ErrMockWebhook)
}

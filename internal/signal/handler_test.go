package signal

import (
	"context"
	"errors"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandler_Signal_CancelsContextWithCause(t *testing.T) {
	h := NewHandler(context.Background())
	defer h.Stop()

	h.handleSignal(syscall.SIGTERM)

	require.ErrorIs(t, h.Context().Err(), context.Canceled)

	var interrupt *InterruptError
	require.True(t, errors.As(context.Cause(h.Context()), &interrupt))
	assert.Equal(t, syscall.SIGTERM, interrupt.Signal)
	assert.Contains(t, interrupt.Error(), "interrupted by")
}

func TestHandler_Signal_ClosesInterruptedChannel(t *testing.T) {
	h := NewHandler(context.Background())
	defer h.Stop()

	h.handleSignal(syscall.SIGINT)

	select {
	case <-h.Interrupted():
	default:
		t.Fatal("interrupted channel should be closed after signal")
	}
}

func TestHandler_MultipleSignals_FirstWins(t *testing.T) {
	h := NewHandler(context.Background())
	defer h.Stop()

	h.handleSignal(syscall.SIGINT)
	h.handleSignal(syscall.SIGTERM)

	var interrupt *InterruptError
	require.True(t, errors.As(context.Cause(h.Context()), &interrupt))
	assert.Equal(t, syscall.SIGINT, interrupt.Signal)
}

func TestHandler_Stop_CancelsWithoutInterrupt(t *testing.T) {
	h := NewHandler(context.Background())
	h.Stop()
	h.Stop()

	require.Error(t, h.Context().Err())

	var interrupt *InterruptError
	assert.False(t, errors.As(context.Cause(h.Context()), &interrupt))

	select {
	case <-h.Interrupted():
		t.Fatal("interrupted channel should stay open when stopped normally")
	default:
	}
}

func TestHandler_ParentCancellation(t *testing.T) {
	parent, cancel := context.WithCancel(context.Background())
	h := NewHandler(parent)
	defer h.Stop()

	cancel()

	<-h.Context().Done()
	assert.ErrorIs(t, h.Context().Err(), context.Canceled)
}

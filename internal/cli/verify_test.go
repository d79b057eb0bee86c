package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/shipyard/internal/errors"
)

func TestVerify_Healthy(t *testing.T) {
	isolate(t)
	srv := appServer(t, true)
	writeProjectConfig(t, srv.URL)
	exec := healthyHost()

	out, err := runCLI(t, testServices(exec), "verify")
	require.NoError(t, err)

	assert.Contains(t, out, "TARGET")
	assert.Contains(t, out, "web1")
	assert.Contains(t, out, "web2")
	assert.Contains(t, out, "true")
	assert.Empty(t, exec.Scripts(), "verify never touches the hosts over SSH")
}

func TestVerify_UnhealthyJSON(t *testing.T) {
	isolate(t)
	srv := appServer(t, false)
	writeProjectConfig(t, srv.URL)

	out, err := runCLI(t, testServices(healthyHost()), "verify", "-t", "web1", "-o", "json")
	require.ErrorIs(t, err, errors.ErrHealthCheckFailed)
	assert.Contains(t, err.Error(), "1 of 1 target(s)")

	var results []TargetHealth
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	require.Len(t, results, 1)
	assert.Equal(t, "web1", results[0].Target)
	assert.False(t, results[0].Status.Healthy)
	assert.Equal(t, 2, results[0].Status.Rounds)
	assert.Contains(t, results[0].Status.Diagnostics, "/health")
}

func TestVerify_BaseURLFlag(t *testing.T) {
	isolate(t)
	srv := appServer(t, true)
	writeProjectConfig(t, "http://127.0.0.1:1")

	_, err := runCLI(t, testServices(healthyHost()), "verify", "--base-url", srv.URL)
	require.NoError(t, err)
}

func TestVerify_NoTargets(t *testing.T) {
	isolate(t)

	_, err := runCLI(t, testServices(healthyHost()), "verify")
	require.ErrorIs(t, err, errors.ErrNoTargets)
	assert.Equal(t, ExitInvalidInput, ExitCodeForError(err))
}

func TestFirstLine(t *testing.T) {
	assert.Empty(t, firstLine(""))
	assert.Equal(t, "a", firstLine("a"))
	assert.Equal(t, "a", firstLine("a\nb\nc"))
}

package domain

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/shipyard/internal/constants"
)

var errPublishTest = errors.New("publish failed")

func TestDeploymentTarget_Address(t *testing.T) {
	tests := []struct {
		name   string
		target DeploymentTarget
		want   string
	}{
		{"default port", DeploymentTarget{Host: "203.0.113.5"}, "203.0.113.5:22"},
		{"custom port", DeploymentTarget{Host: "deploy.example.com", Port: 2222}, "deploy.example.com:2222"},
		{"ipv6", DeploymentTarget{Host: "2001:db8::1"}, "[2001:db8::1]:22"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.target.Address())
		})
	}
}

func TestDeploymentTarget_Label(t *testing.T) {
	assert.Equal(t, "prod", DeploymentTarget{Name: "prod", Host: "203.0.113.5"}.Label())
	assert.Equal(t, "203.0.113.5", DeploymentTarget{Host: "203.0.113.5"}.Label())
}

func TestDeploymentAttempt_Steps(t *testing.T) {
	a := &DeploymentAttempt{Outcome: constants.OutcomePending}
	a.AddStep(StepResult{Phase: constants.PhaseInit, Status: constants.StepCompleted})
	a.AddStep(StepResult{Phase: constants.PhaseSyncing, Status: constants.StepCompleted})
	a.AddStep(StepResult{Phase: constants.PhaseConfiguring, Status: constants.StepFailed})

	assert.Len(t, a.Steps, 3)
	assert.Equal(t, 2, a.StepsPassed())
	assert.False(t, a.Succeeded())
}

func TestDeploymentAttempt_Duration(t *testing.T) {
	start := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	a := &DeploymentAttempt{StartedAt: start}
	assert.Zero(t, a.Duration())

	a.CompletedAt = start.Add(42 * time.Second)
	assert.Equal(t, 42*time.Second, a.Duration())
}

func TestDeploymentAttempt_Summary(t *testing.T) {
	a := &DeploymentAttempt{
		ID:       "id-1",
		Target:   DeploymentTarget{Host: "203.0.113.5"},
		Revision: "abc1234",
		Outcome:  constants.OutcomeSuccess,
		Phase:    constants.PhaseSuccess,
		Steps: []StepResult{
			{Phase: constants.PhaseInit, Status: constants.StepCompleted},
			{Phase: constants.PhasePublishing, Status: constants.StepWarning},
		},
		Publish: &PublishResult{Published: false, Attempts: 5, Err: errPublishTest},
	}

	s := a.Summary()
	assert.Equal(t, "203.0.113.5", s.Target)
	assert.Equal(t, "abc1234", s.Revision)
	assert.Equal(t, 1, s.StepsPassed)
	assert.False(t, s.Published)
	assert.Equal(t, constants.OutcomeSuccess, s.Outcome)
}

func TestDeploymentAttempt_JSON(t *testing.T) {
	a := &DeploymentAttempt{
		ID:       "id-1",
		Revision: "abc1234",
		Outcome:  constants.OutcomeFailed,
		Phase:    constants.PhaseFailed,
		Publish:  &PublishResult{Err: errPublishTest, Error: errPublishTest.Error()},
	}

	data, err := json.Marshal(a)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"outcome":"failed"`)
	assert.Contains(t, string(data), `"error":"publish failed"`)
	assert.NotContains(t, string(data), "completed_at")
	assert.NotContains(t, string(data), "health")
}

func TestHealthStatus_Failures(t *testing.T) {
	s := &HealthStatus{LastRound: []HealthCheckResult{
		{Endpoint: "/health", Healthy: true},
		{Endpoint: "/metrics", Healthy: false, Reason: "missing marker"},
	}}

	failed := s.Failures()
	require.Len(t, failed, 1)
	assert.Equal(t, "/metrics", failed[0].Endpoint)
}

func TestShortRevision(t *testing.T) {
	assert.Equal(t, "abc1234", ShortRevision("abc1234def5678"))
	assert.Equal(t, "abc", ShortRevision("abc"))
	assert.Empty(t, ShortRevision(""))
}

func TestArtifactManifest_ArchiveName(t *testing.T) {
	m := &ArtifactManifest{Name: "blog-app", Revision: "abc1234ffff"}
	assert.Equal(t, "abc1234", m.ShortRevision())
	assert.Equal(t, "blog-app-abc1234.tar.gz", m.ArchiveName())
}

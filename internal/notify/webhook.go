// Package notify posts deployment summaries to a webhook.
package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"resty.dev/v3"

	"github.com/mrz1836/shipyard/internal/clock"
	"github.com/mrz1836/shipyard/internal/constants"
	"github.com/mrz1836/shipyard/internal/ctxutil"
	"github.com/mrz1836/shipyard/internal/domain"
	shipyarderrors "github.com/mrz1836/shipyard/internal/errors"
)

// Payload is the JSON body sent after a run.
type Payload struct {
	Event    string            `json:"event"`
	Revision string            `json:"revision"`
	Outcome  constants.Outcome `json:"outcome"`
	SentAt   time.Time         `json:"sent_at"`
	Attempts []domain.Summary  `json:"attempts"`
}

// NewPayload summarizes attempts. The outcome is failed when any attempt failed.
func NewPayload(revision string, attempts []*domain.DeploymentAttempt, at time.Time) Payload {
	p := Payload{
		Event:    "deployment.completed",
		Revision: revision,
		Outcome:  constants.OutcomeSuccess,
		SentAt:   at,
		Attempts: make([]domain.Summary, 0, len(attempts)),
	}
	for _, a := range attempts {
		if a == nil {
			continue
		}
		if !a.Succeeded() {
			p.Outcome = constants.OutcomeFailed
		}
		p.Attempts = append(p.Attempts, a.Summary())
	}
	if len(p.Attempts) == 0 {
		p.Outcome = constants.OutcomeFailed
	}
	return p
}

// Webhook delivers payloads to one URL.
type Webhook struct {
	client *resty.Client
	url    string
	clock  clock.Clock
	logger zerolog.Logger
}

// Option configures a Webhook.
type Option func(*Webhook)

// WithTimeout bounds each delivery attempt.
func WithTimeout(d time.Duration) Option {
	return func(w *Webhook) {
		w.client.SetTimeout(d)
	}
}

// WithRetries sets the number of retries after the first attempt.
func WithRetries(n int, wait time.Duration) Option {
	return func(w *Webhook) {
		w.client.
			SetRetryCount(n).
			SetRetryWaitTime(wait).
			SetRetryMaxWaitTime(wait)
	}
}

// WithHeader adds a header to every request.
func WithHeader(key, value string) Option {
	return func(w *Webhook) {
		w.client.SetHeader(key, value)
	}
}

// WithClock sets the clock used for SentAt.
func WithClock(c clock.Clock) Option {
	return func(w *Webhook) {
		w.clock = c
	}
}

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(w *Webhook) {
		w.logger = logger
	}
}

// NewWebhook creates a Webhook posting to url.
func NewWebhook(url string, opts ...Option) *Webhook {
	client := resty.New().
		SetTimeout(constants.DefaultWebhookTimeout).
		SetRetryCount(3).
		SetRetryWaitTime(1*time.Second).
		SetRetryMaxWaitTime(5*time.Second).
		SetAllowNonIdempotentRetry(true).
		SetHeader("Content-Type", "application/json").
		SetHeader("User-Agent", "shipyard")

	w := &Webhook{
		client: client,
		url:    url,
		clock:  clock.RealClock{},
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Close releases the HTTP client.
func (w *Webhook) Close() error {
	return w.client.Close()
}

// Notify posts the summary of attempts. Callers treat errors as warnings.
func (w *Webhook) Notify(ctx context.Context, revision string, attempts []*domain.DeploymentAttempt) error {
	if err := ctxutil.Canceled(ctx); err != nil {
		return err
	}

	payload := NewPayload(revision, attempts, w.clock.Now().UTC())

	resp, err := w.client.R().
		SetContext(ctx).
		SetBody(payload).
		Post(w.url)
	if err != nil {
		w.logger.Warn().
			Err(err).
			Str("outcome", string(payload.Outcome)).
			Msg("webhook delivery failed")
		return fmt.Errorf("post summary: %w: %w", shipyarderrors.ErrWebhookFailed, err)
	}

	if !resp.IsSuccess() {
		w.logger.Warn().
			Int("status_code", resp.StatusCode()).
			Str("body", resp.String()).
			Msg("webhook rejected summary")
		return fmt.Errorf("status %d: %w", resp.StatusCode(), shipyarderrors.ErrWebhookFailed)
	}

	w.logger.Info().
		Int("status_code", resp.StatusCode()).
		Int("attempts", len(payload.Attempts)).
		Msg("deployment summary delivered")
	return nil
}

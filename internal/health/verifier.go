// Package health verifies application liveness over HTTP.
//
// Verification runs in rounds. Each round probes every endpoint in order and
// passes only when all of them are healthy in that same round. Failed rounds
// are followed by a fixed delay until the attempt budget is spent.
package health

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"resty.dev/v3"

	"github.com/mrz1836/shipyard/internal/clock"
	"github.com/mrz1836/shipyard/internal/constants"
	"github.com/mrz1836/shipyard/internal/ctxutil"
	"github.com/mrz1836/shipyard/internal/domain"
)

// Endpoint is one URL probed each round.
type Endpoint struct {
	// Path is appended to the base URL by Resolve.
	Path string `json:"path" mapstructure:"path" yaml:"path"`

	// Marker must appear in the response body when set.
	Marker string `json:"marker,omitempty" mapstructure:"marker" yaml:"marker,omitempty"`

	// URL is the absolute URL probed.
	URL string `json:"url,omitempty" mapstructure:"-" yaml:"-"`
}

// String returns the URL when resolved, otherwise the path.
func (e Endpoint) String() string {
	if e.URL != "" {
		return e.URL
	}
	return e.Path
}

// DefaultEndpoints returns the liveness, metrics and index checks.
func DefaultEndpoints() []Endpoint {
	return []Endpoint{
		{Path: "/health"},
		{Path: "/metrics", Marker: constants.MetricsMarker},
		{Path: "/", Marker: constants.IndexMarker},
	}
}

// BaseURL builds scheme://host:port.
func BaseURL(scheme, host string, port int) string {
	if scheme == "" {
		scheme = "http"
	}
	if port == 0 {
		port = constants.DefaultAppPort
	}
	if strings.Contains(host, ":") {
		host = "[" + host + "]"
	}
	return fmt.Sprintf("%s://%s:%d", scheme, host, port)
}

// TargetBaseURL returns template with "{host}" replaced by host, or
// http://host:port when template is empty.
func TargetBaseURL(template, host string, port int) string {
	if template != "" {
		return strings.ReplaceAll(template, "{host}", host)
	}
	return BaseURL("http", host, port)
}

// Resolve returns copies of endpoints with URL set against baseURL.
func Resolve(baseURL string, endpoints []Endpoint) []Endpoint {
	base := strings.TrimRight(baseURL, "/")
	resolved := make([]Endpoint, len(endpoints))
	for i, ep := range endpoints {
		path := ep.Path
		if !strings.HasPrefix(path, "/") {
			path = "/" + path
		}
		ep.URL = base + path
		resolved[i] = ep
	}
	return resolved
}

// Verifier polls endpoints until they are healthy in the same round.
type Verifier struct {
	client         *resty.Client
	maxAttempts    int
	delay          time.Duration
	requestTimeout time.Duration
	sleep          ctxutil.SleepFunc
	clock          clock.Clock
	logger         zerolog.Logger
}

// Option configures a Verifier.
type Option func(*Verifier)

// WithMaxAttempts sets the number of rounds.
func WithMaxAttempts(n int) Option {
	return func(v *Verifier) {
		if n > 0 {
			v.maxAttempts = n
		}
	}
}

// WithDelay sets the wait between rounds.
func WithDelay(d time.Duration) Option {
	return func(v *Verifier) {
		v.delay = d
	}
}

// WithRequestTimeout bounds each probe.
func WithRequestTimeout(d time.Duration) Option {
	return func(v *Verifier) {
		if d > 0 {
			v.requestTimeout = d
		}
	}
}

// WithSleep replaces the context-aware sleep between rounds.
func WithSleep(sleep ctxutil.SleepFunc) Option {
	return func(v *Verifier) {
		v.sleep = sleep
	}
}

// WithClock sets the clock used for CheckedAt.
func WithClock(c clock.Clock) Option {
	return func(v *Verifier) {
		v.clock = c
	}
}

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(v *Verifier) {
		v.logger = logger
	}
}

// NewVerifier creates a Verifier. Call Close when done.
func NewVerifier(opts ...Option) *Verifier {
	v := &Verifier{
		maxAttempts:    constants.DefaultHealthAttempts,
		delay:          constants.DefaultHealthDelay,
		requestTimeout: constants.DefaultHealthRequestTimeout,
		sleep:          ctxutil.Sleep,
		clock:          clock.RealClock{},
		logger:         zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(v)
	}
	v.client = resty.New().
		SetTimeout(v.requestTimeout).
		SetHeader("User-Agent", "shipyard-health")
	return v
}

// Close releases the HTTP client.
func (v *Verifier) Close() error {
	return v.client.Close()
}

// Verify runs up to maxAttempts rounds. The returned status carries only the
// final round. A canceled context ends verification as unhealthy.
func (v *Verifier) Verify(ctx context.Context, endpoints []Endpoint) *domain.HealthStatus {
	status := &domain.HealthStatus{}
	if len(endpoints) == 0 {
		status.Diagnostics = "no health endpoints configured"
		return status
	}

	for attempt := 1; attempt <= v.maxAttempts; attempt++ {
		round := v.Round(ctx, attempt, endpoints)
		status.Rounds = attempt
		status.LastRound = round

		if allHealthy(round) {
			status.Healthy = true
			v.logger.Info().
				Int("round", attempt).
				Msg("all endpoints healthy")
			return status
		}

		v.logger.Warn().
			Int("round", attempt).
			Int("max_rounds", v.maxAttempts).
			Int("unhealthy", len(status.Failures())).
			Msg("health round failed")

		if attempt == v.maxAttempts {
			break
		}
		if err := v.sleep(ctx, v.delay); err != nil {
			status.Diagnostics = fmt.Sprintf("verification interrupted after round %d: %v\n%s", attempt, err, Diagnose(round))
			return status
		}
	}

	status.Diagnostics = Diagnose(status.LastRound)
	return status
}

// Round probes every endpoint once, in order.
func (v *Verifier) Round(ctx context.Context, attempt int, endpoints []Endpoint) []domain.HealthCheckResult {
	results := make([]domain.HealthCheckResult, 0, len(endpoints))
	for _, ep := range endpoints {
		results = append(results, v.Check(ctx, attempt, ep))
	}
	return results
}

// Check probes a single endpoint.
func (v *Verifier) Check(ctx context.Context, attempt int, ep Endpoint) domain.HealthCheckResult {
	result := domain.HealthCheckResult{
		Endpoint:  ep.String(),
		Attempt:   attempt,
		CheckedAt: v.clock.Now(),
	}

	resp, err := v.client.R().
		SetContext(ctx).
		Get(ep.URL)
	if err != nil {
		result.Error = err.Error()
		result.Reason = "request failed"
		return result
	}

	result.StatusCode = resp.StatusCode()
	body := resp.String()

	switch {
	case !resp.IsSuccess():
		result.Reason = fmt.Sprintf("unexpected status %d", resp.StatusCode())
	case ep.Marker != "" && !strings.Contains(body, ep.Marker):
		result.Reason = fmt.Sprintf("body missing %q", ep.Marker)
	default:
		result.Healthy = true
		return result
	}

	result.BodyExcerpt = excerpt(body)
	return result
}

// Diagnose renders the failures of a round, one line per endpoint.
func Diagnose(round []domain.HealthCheckResult) string {
	var b strings.Builder
	for _, r := range round {
		if r.Healthy {
			continue
		}
		fmt.Fprintf(&b, "GET %s: %s", r.Endpoint, r.Reason)
		if r.StatusCode != 0 {
			fmt.Fprintf(&b, " (status %d)", r.StatusCode)
		}
		if r.Error != "" {
			fmt.Fprintf(&b, ": %s", r.Error)
		}
		if r.BodyExcerpt != "" {
			fmt.Fprintf(&b, "\n  body: %s", r.BodyExcerpt)
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func allHealthy(round []domain.HealthCheckResult) bool {
	for _, r := range round {
		if !r.Healthy {
			return false
		}
	}
	return true
}

func excerpt(body string) string {
	body = strings.TrimSpace(body)
	if len(body) <= constants.MaxBodyExcerpt {
		return body
	}
	cut := constants.MaxBodyExcerpt
	for cut > 0 && !utf8.RuneStart(body[cut]) {
		cut--
	}
	return body[:cut] + "..."
}

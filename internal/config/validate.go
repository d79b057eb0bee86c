package config

import (
	"strings"
	"time"

	"github.com/mrz1836/shipyard/internal/domain"
	"github.com/mrz1836/shipyard/internal/errors"
)

const (
	maxSyncRetries   = 10
	maxConcurrency   = 64
	maxHealthRounds  = 100
	maxPublishTries  = 50
	minHealthDelay   = 100 * time.Millisecond
	maxHealthDelay   = 5 * time.Minute
	maxSettleTime    = 10 * time.Minute
	maxPortNumber    = 65535
	maxNotifyRetries = 10
)

// Validate checks the configuration for invalid or inconsistent values.
// It returns an error describing the first validation failure found.
//
// Validation rules:
//   - every target has a host and a port within 0-65535, with unique names
//   - deploy.service must not be empty; retries, concurrency and timeouts in range
//   - health.attempts between 1 and 100, health.delay between 100ms and 5m
//   - publish.attempts between 1 and 50 with a non-negative delay
//
// Secrets and per-target credentials are checked by ValidateForDeploy, since
// only the deploy command needs them.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.ErrConfigNil
	}

	if err := validateTargets(cfg.Targets); err != nil {
		return err
	}
	if err := validateDeployConfig(&cfg.Deploy); err != nil {
		return err
	}
	if err := validateHealthConfig(&cfg.Health); err != nil {
		return err
	}
	if err := validatePublishConfig(&cfg.Publish); err != nil {
		return err
	}

	if cfg.Notify.Retries < 0 || cfg.Notify.Retries > maxNotifyRetries {
		return errors.Wrapf(errors.ErrValueOutOfRange,
			"notify.retries must be between 0 and %d, got %d", maxNotifyRetries, cfg.Notify.Retries)
	}

	return nil
}

// validateTargets checks each configured target.
func validateTargets(targets []domain.DeploymentTarget) error {
	seen := make(map[string]bool, len(targets))
	for i, t := range targets {
		if strings.TrimSpace(t.Host) == "" {
			return errors.Wrapf(errors.ErrConfigInvalidTarget, "targets[%d].host must not be empty", i)
		}
		if t.Port < 0 || t.Port > maxPortNumber {
			return errors.Wrapf(errors.ErrConfigInvalidTarget,
				"targets[%d].port must be between 0 and %d, got %d", i, maxPortNumber, t.Port)
		}
		label := t.Label()
		if seen[label] {
			return errors.Wrapf(errors.ErrConfigInvalidTarget, "duplicate target %q", label)
		}
		seen[label] = true
	}
	return nil
}

// validateDeployConfig checks deploy-specific configuration values.
func validateDeployConfig(cfg *DeployConfig) error {
	if cfg.Service == "" {
		return errors.Wrap(errors.ErrConfigInvalidDeploy, "deploy.service must not be empty")
	}
	if cfg.SyncRetries < 0 || cfg.SyncRetries > maxSyncRetries {
		return errors.Wrapf(errors.ErrConfigInvalidDeploy,
			"deploy.sync_retries must be between 0 and %d, got %d", maxSyncRetries, cfg.SyncRetries)
	}
	if cfg.SettleTime <= 0 || cfg.SettleTime > maxSettleTime {
		return errors.Wrapf(errors.ErrConfigInvalidDeploy,
			"deploy.settle_time must be positive and at most %s, got %s", maxSettleTime, cfg.SettleTime)
	}
	if cfg.RunTimeout <= 0 {
		return errors.Wrapf(errors.ErrConfigInvalidDeploy,
			"deploy.run_timeout must be positive, got %s", cfg.RunTimeout)
	}
	if cfg.Concurrency < 1 || cfg.Concurrency > maxConcurrency {
		return errors.Wrapf(errors.ErrConfigInvalidDeploy,
			"deploy.concurrency must be between 1 and %d, got %d", maxConcurrency, cfg.Concurrency)
	}
	if cfg.AppPort < 1 || cfg.AppPort > maxPortNumber {
		return errors.Wrapf(errors.ErrConfigInvalidDeploy,
			"deploy.app_port must be between 1 and %d, got %d", maxPortNumber, cfg.AppPort)
	}
	return nil
}

// validateHealthConfig checks health-specific configuration values.
func validateHealthConfig(cfg *HealthConfig) error {
	if cfg.Attempts < 1 || cfg.Attempts > maxHealthRounds {
		return errors.Wrapf(errors.ErrConfigInvalidHealth,
			"health.attempts must be between 1 and %d, got %d", maxHealthRounds, cfg.Attempts)
	}
	if cfg.Delay < minHealthDelay || cfg.Delay > maxHealthDelay {
		return errors.Wrapf(errors.ErrConfigInvalidHealth,
			"health.delay must be between %s and %s, got %s", minHealthDelay, maxHealthDelay, cfg.Delay)
	}
	if cfg.RequestTimeout <= 0 {
		return errors.Wrapf(errors.ErrConfigInvalidHealth,
			"health.request_timeout must be positive, got %s", cfg.RequestTimeout)
	}
	if len(cfg.Endpoints) == 0 {
		return errors.Wrap(errors.ErrConfigInvalidHealth, "health.endpoints must not be empty")
	}
	for i, ep := range cfg.Endpoints {
		if ep.Path == "" {
			return errors.Wrapf(errors.ErrConfigInvalidHealth, "health.endpoints[%d].path must not be empty", i)
		}
	}
	return nil
}

// validatePublishConfig checks publish-specific configuration values.
func validatePublishConfig(cfg *PublishConfig) error {
	if cfg.Attempts < 1 || cfg.Attempts > maxPublishTries {
		return errors.Wrapf(errors.ErrConfigInvalidPublish,
			"publish.attempts must be between 1 and %d, got %d", maxPublishTries, cfg.Attempts)
	}
	if cfg.Delay < 0 {
		return errors.Wrapf(errors.ErrConfigInvalidPublish,
			"publish.delay cannot be negative, got %s", cfg.Delay)
	}
	if cfg.Major < 0 || cfg.Minor < 0 {
		return errors.Wrapf(errors.ErrConfigInvalidPublish,
			"publish.major and publish.minor cannot be negative, got %d.%d", cfg.Major, cfg.Minor)
	}
	if cfg.Enabled && cfg.RepoDir == "" {
		return errors.Wrap(errors.ErrConfigInvalidPublish, "publish.repo_dir is required when publishing is enabled")
	}
	return nil
}

// ValidateForDeploy checks what a deploy to targets needs beyond Validate:
// at least one target, SSH credentials and app dir on each, and the
// application secrets.
func ValidateForDeploy(cfg *Config, targets []domain.DeploymentTarget) error {
	if cfg == nil {
		return errors.ErrConfigNil
	}
	if len(targets) == 0 {
		return errors.ErrNoTargets
	}
	for _, t := range targets {
		switch {
		case t.User == "":
			return errors.Wrapf(errors.ErrConfigInvalidTarget, "target %s: user is required", t.Label())
		case t.KeyPath == "":
			return errors.Wrapf(errors.ErrConfigInvalidTarget, "target %s: key_path is required", t.Label())
		case t.AppDir == "":
			return errors.Wrapf(errors.ErrConfigInvalidTarget, "target %s: app_dir is required", t.Label())
		}
	}
	if cfg.Env.SecretKey == "" {
		return errors.Wrap(errors.ErrMissingSecret, "env.secret_key (SHIPYARD_SECRET_KEY)")
	}
	if cfg.Env.MongoURI == "" {
		return errors.Wrap(errors.ErrMissingSecret, "env.mongo_uri (SHIPYARD_MONGO_URI)")
	}
	return nil
}

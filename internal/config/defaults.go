package config

import (
	"github.com/mrz1836/shipyard/internal/constants"
	"github.com/mrz1836/shipyard/internal/health"
)

// DefaultConfig returns a new Config with the built-in defaults.
// These are the base layer that config files, environment variables
// and CLI flags override.
func DefaultConfig() *Config {
	return &Config{
		SSH: SSHConfig{
			ConnectTimeout: constants.DefaultConnectTimeout,
		},
		Deploy: DeployConfig{
			Service:    constants.DefaultServiceName,
			Dependency: constants.DefaultDependencyName,

			// SyncRetries: two extra attempts ride out a flapping link without
			// masking a host that is really gone.
			SyncRetries: constants.DefaultSyncRetries,

			SettleTime:   constants.DefaultSettleTime,
			RunTimeout:   constants.DefaultRunTimeout,
			Concurrency:  constants.DefaultConcurrency,
			Python:       "python3",
			Requirements: "requirements.txt",
			AppPort:      constants.DefaultAppPort,
			LogTailLines: constants.DefaultLogTailLines,
		},
		Env: EnvConfig{
			FlaskEnv: "production",
		},
		Health: HealthConfig{
			Attempts:       constants.DefaultHealthAttempts,
			Delay:          constants.DefaultHealthDelay,
			RequestTimeout: constants.DefaultHealthRequestTimeout,
			Endpoints:      health.DefaultEndpoints(),
		},
		Publish: PublishConfig{
			SourceDir:    ".",
			Name:         "blog",
			Major:        1,
			Remote:       constants.DefaultPublishRemote,
			Branch:       constants.DefaultPublishBranch,
			ArtifactsDir: constants.ArtifactsDir,
			Attempts:     constants.DefaultPublishAttempts,
			Delay:        constants.DefaultPublishDelay,
		},
		Notify: NotifyConfig{
			Timeout: constants.DefaultWebhookTimeout,
			Retries: 3,
		},
	}
}

// Package config provides configuration management for SHIPYARD.
//
// Configuration is loaded with layered precedence (highest first):
//  1. CLI flags
//  2. SHIPYARD_* environment variables
//  3. Project config (.shipyard/config.yaml)
//  4. Global config (~/.shipyard/config.yaml)
//  5. Built-in defaults
//
// This package follows strict import rules:
//   - CAN import: internal/constants, internal/errors, internal/domain,
//     internal/health (endpoint definitions only), standard library
//   - MUST NOT import: internal/deploy, internal/cli, internal/publish
package config

import (
	"time"

	"github.com/mrz1836/shipyard/internal/domain"
	"github.com/mrz1836/shipyard/internal/errors"
	"github.com/mrz1836/shipyard/internal/health"
)

// Config is the root configuration structure for SHIPYARD.
type Config struct {
	// Targets are the hosts a deploy fans out to.
	Targets []domain.DeploymentTarget `yaml:"targets" mapstructure:"targets"`

	// SSH holds connection settings shared by every target.
	SSH SSHConfig `yaml:"ssh" mapstructure:"ssh"`

	// Deploy holds the per-target phase settings.
	Deploy DeployConfig `yaml:"deploy" mapstructure:"deploy"`

	// Env is written to the application's .env file on each target.
	Env EnvConfig `yaml:"env" mapstructure:"env"`

	// Health controls post-restart verification.
	Health HealthConfig `yaml:"health" mapstructure:"health"`

	// Publish controls artifact building and publication.
	Publish PublishConfig `yaml:"publish" mapstructure:"publish"`

	// Metrics controls the prometheus textfile written after each run.
	Metrics MetricsConfig `yaml:"metrics" mapstructure:"metrics"`

	// Notify controls the completion webhook.
	Notify NotifyConfig `yaml:"notify" mapstructure:"notify"`
}

// SSHConfig holds connection settings.
type SSHConfig struct {
	// User is the default login user for targets that set none.
	User string `yaml:"user" mapstructure:"user"`

	// KeyPath is the default private key for targets that set none.
	KeyPath string `yaml:"key_path" mapstructure:"key_path"`

	// ConnectTimeout bounds the TCP dial and SSH handshake.
	ConnectTimeout time.Duration `yaml:"connect_timeout" mapstructure:"connect_timeout"`

	// KnownHosts is the known_hosts file used for host key checking.
	// Empty means ~/.ssh/known_hosts.
	KnownHosts string `yaml:"known_hosts" mapstructure:"known_hosts"`

	// InsecureIgnoreHostKey disables host key checking.
	InsecureIgnoreHostKey bool `yaml:"insecure_ignore_host_key" mapstructure:"insecure_ignore_host_key"`

	// Sudo prefixes systemctl and journalctl with sudo -n.
	Sudo bool `yaml:"sudo" mapstructure:"sudo"`
}

// DeployConfig holds the per-target phase settings.
type DeployConfig struct {
	// AppDir is the default remote checkout for targets that set none.
	AppDir string `yaml:"app_dir" mapstructure:"app_dir"`

	// Service is the systemd unit restarted on each deploy.
	Service string `yaml:"service" mapstructure:"service"`

	// Dependency is started before configuration when inactive.
	Dependency string `yaml:"dependency" mapstructure:"dependency"`

	// SyncRetries is how many extra sync attempts a dropped connection gets.
	SyncRetries int `yaml:"sync_retries" mapstructure:"sync_retries"`

	// SettleTime is the wait after restart before checking the unit.
	SettleTime time.Duration `yaml:"settle_time" mapstructure:"settle_time"`

	// RunTimeout is the ceiling on one target's full run.
	RunTimeout time.Duration `yaml:"run_timeout" mapstructure:"run_timeout"`

	// Concurrency caps how many targets deploy at once.
	Concurrency int `yaml:"concurrency" mapstructure:"concurrency"`

	// Python creates the remote virtualenv.
	Python string `yaml:"python" mapstructure:"python"`

	// Requirements is the pip requirements file relative to the app dir.
	Requirements string `yaml:"requirements" mapstructure:"requirements"`

	// AppPort is the application's HTTP port.
	AppPort int `yaml:"app_port" mapstructure:"app_port"`

	// LogTailLines is how many journal lines accompany a failure.
	LogTailLines int `yaml:"log_tail_lines" mapstructure:"log_tail_lines"`
}

// EnvConfig is the application environment.
// SecretKey and MongoURI are normally supplied through SHIPYARD_* variables.
type EnvConfig struct {
	SecretKey    string            `yaml:"secret_key" mapstructure:"secret_key"`
	MongoURI     string            `yaml:"mongo_uri" mapstructure:"mongo_uri"`
	DatabaseName string            `yaml:"database_name" mapstructure:"database_name"`
	FlaskEnv     string            `yaml:"flask_env" mapstructure:"flask_env"`
	Extra        map[string]string `yaml:"extra" mapstructure:"extra"`
}

// HealthConfig controls verification.
type HealthConfig struct {
	// Attempts is the number of rounds before giving up.
	Attempts int `yaml:"attempts" mapstructure:"attempts"`

	// Delay is the wait between rounds.
	Delay time.Duration `yaml:"delay" mapstructure:"delay"`

	// RequestTimeout bounds each probe.
	RequestTimeout time.Duration `yaml:"request_timeout" mapstructure:"request_timeout"`

	// BaseURL overrides http://<host>:<app_port>. "{host}" is substituted.
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`

	// Endpoints replace the default /health, /metrics and / checks.
	Endpoints []health.Endpoint `yaml:"endpoints" mapstructure:"endpoints"`
}

// PublishConfig controls artifact building and publication.
type PublishConfig struct {
	// Enabled turns the PUBLISHING step on.
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`

	// SourceDir is the local application tree that is archived.
	SourceDir string `yaml:"source_dir" mapstructure:"source_dir"`

	// Name, Major and Minor form the artifact version.
	Name  string `yaml:"name" mapstructure:"name"`
	Major int    `yaml:"major" mapstructure:"major"`
	Minor int    `yaml:"minor" mapstructure:"minor"`

	// Excludes are glob patterns left out of the archive.
	Excludes []string `yaml:"excludes" mapstructure:"excludes"`

	// PreCommands run in SourceDir before the archive is built.
	PreCommands []string `yaml:"pre_commands" mapstructure:"pre_commands"`

	// DocPaths are copied next to the archive when present.
	DocPaths []string `yaml:"doc_paths" mapstructure:"doc_paths"`

	// RepoDir is the local clone of the shared artifact repository.
	RepoDir string `yaml:"repo_dir" mapstructure:"repo_dir"`

	// RepoURL is cloned into RepoDir when missing.
	RepoURL string `yaml:"repo_url" mapstructure:"repo_url"`

	Remote string `yaml:"remote" mapstructure:"remote"`
	Branch string `yaml:"branch" mapstructure:"branch"`

	// ArtifactsDir is the repository-relative parent of published revisions.
	ArtifactsDir string `yaml:"artifacts_dir" mapstructure:"artifacts_dir"`

	// Attempts bounds the fetch/rebase/push loop.
	Attempts int `yaml:"attempts" mapstructure:"attempts"`

	// Delay is the wait between publish attempts.
	Delay time.Duration `yaml:"delay" mapstructure:"delay"`
}

// MetricsConfig controls the textfile exporter output.
type MetricsConfig struct {
	// Textfile is the .prom file path. Empty disables metrics output.
	Textfile string `yaml:"textfile" mapstructure:"textfile"`
}

// NotifyConfig controls the completion webhook.
type NotifyConfig struct {
	// WebhookURL receives a JSON summary. Empty disables notification.
	WebhookURL string `yaml:"webhook_url" mapstructure:"webhook_url"`

	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
	Retries int           `yaml:"retries" mapstructure:"retries"`
}

// SelectTargets returns the configured targets matching names, each name
// compared against target name and host. No names selects every target.
// Targets missing user, key path or app dir inherit the shared values.
func (c *Config) SelectTargets(names []string) ([]domain.DeploymentTarget, error) {
	all := make([]domain.DeploymentTarget, len(c.Targets))
	for i, t := range c.Targets {
		all[i] = c.withDefaults(t)
	}
	if len(names) == 0 {
		return all, nil
	}

	selected := make([]domain.DeploymentTarget, 0, len(names))
	for _, name := range names {
		found := false
		for _, t := range all {
			if t.Name == name || t.Host == name {
				selected = append(selected, t)
				found = true
				break
			}
		}
		if !found {
			return nil, errors.Wrapf(errors.ErrUnknownTarget, "%q", name)
		}
	}
	return selected, nil
}

func (c *Config) withDefaults(t domain.DeploymentTarget) domain.DeploymentTarget {
	if t.User == "" {
		t.User = c.SSH.User
	}
	if t.KeyPath == "" {
		t.KeyPath = c.SSH.KeyPath
	}
	if t.AppDir == "" {
		t.AppDir = c.Deploy.AppDir
	}
	return t
}

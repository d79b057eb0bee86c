package config

import (
	"context"
	stderrors "errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/mrz1836/shipyard/internal/constants"
	"github.com/mrz1836/shipyard/internal/domain"
	"github.com/mrz1836/shipyard/internal/errors"
	"github.com/mrz1836/shipyard/internal/health"
)

// hostKey is the viper key behind SHIPYARD_HOST.
const hostKey = "host"

// envAliases maps config keys to the short variable names accepted next to
// the automatic SHIPYARD_<SECTION>_<KEY> form.
var envAliases = map[string]string{ //nolint:gochecknoglobals // read-only lookup table
	"ssh.user":          "USER",
	"ssh.key_path":      "KEY_PATH",
	"deploy.app_dir":    "APP_DIR",
	"env.secret_key":    "SECRET_KEY",
	"env.mongo_uri":     "MONGO_URI",
	"env.database_name": "DATABASE_NAME",
}

// newViperInstance creates a Viper instance with the SHIPYARD_ env prefix,
// key replacer, aliases and defaults.
func newViperInstance() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(constants.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnvAliases(v)
	return v
}

func bindEnvAliases(v *viper.Viper) {
	for key, short := range envAliases {
		long := constants.EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		// BindEnv only errors without a key.
		_ = v.BindEnv(key, long, constants.EnvPrefix+"_"+short)
	}
	_ = v.BindEnv(hostKey, constants.EnvPrefix+"_HOST")
}

// isConfigNotFoundError returns true if the error is a viper config file not found error.
func isConfigNotFoundError(err error) bool {
	if err == nil {
		return false
	}
	var configNotFoundErr viper.ConfigFileNotFoundError
	return stderrors.As(err, &configNotFoundErr)
}

// unmarshalAndValidate unmarshals viper config into Config, applies the
// SHIPYARD_HOST override and validates the result.
func unmarshalAndValidate(ctx context.Context, v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg, viperDecoderOption()); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}
	applyHostOverride(&cfg, v.GetString(hostKey))

	logger := zerolog.Ctx(ctx).With().Str("component", "config").Logger()
	logger.Debug().
		Int("targets", len(cfg.Targets)).
		Dur("deploy.settle_time", cfg.Deploy.SettleTime).
		Dur("health.delay", cfg.Health.Delay).
		Bool("publish.enabled", cfg.Publish.Enabled).
		Msg("configuration loaded and unmarshaled")

	if err := Validate(&cfg); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}
	return &cfg, nil
}

// Load reads configuration from all available sources with proper precedence.
// Configuration is loaded in the following order (highest precedence first):
//  1. Environment variables (SHIPYARD_* prefix)
//  2. Project config (.shipyard/config.yaml)
//  3. Global config (~/.shipyard/config.yaml)
//  4. Built-in defaults
//
// For CLI flag overrides, use LoadWithOverrides instead.
//
// Missing config files are not an error.
func Load(ctx context.Context) (*Config, error) {
	v := newViperInstance()

	if err := loadGlobalConfig(v); err != nil {
		return nil, err
	}
	if err := mergeConfigFile(v, ProjectConfigPath(), "project"); err != nil {
		return nil, err
	}

	return unmarshalAndValidate(ctx, v)
}

// LoadFile is Load with an explicit project config path, as given by
// --config. Unlike the default project path, a missing file is an error.
func LoadFile(ctx context.Context, path string) (*Config, error) {
	if !fileExists(path) {
		return nil, errors.Wrapf(errors.ErrConfigNotFound, "%s", path)
	}

	v := newViperInstance()
	if err := loadGlobalConfig(v); err != nil {
		return nil, err
	}
	if err := mergeConfigFile(v, path, "project"); err != nil {
		return nil, err
	}
	return unmarshalAndValidate(ctx, v)
}

// loadGlobalConfig merges ~/.shipyard/config.yaml when it exists.
func loadGlobalConfig(v *viper.Viper) error {
	globalConfigPath, ok := getGlobalConfigPathIfExists()
	if !ok {
		return nil
	}
	return mergeConfigFile(v, globalConfigPath, "global")
}

// getGlobalConfigPathIfExists returns the global config path if it exists.
func getGlobalConfigPathIfExists() (string, bool) {
	globalDir, err := GlobalConfigDir()
	if err != nil {
		return "", false
	}

	globalConfigPath := filepath.Join(globalDir, constants.GlobalConfigName)
	if _, err := os.Stat(globalConfigPath); err != nil {
		return "", false
	}

	return globalConfigPath, true
}

// mergeConfigFile merges path over whatever v already holds.
// A missing file is skipped.
func mergeConfigFile(v *viper.Viper, path, level string) error {
	if path == "" || !fileExists(path) {
		return nil
	}

	v.SetConfigFile(path)
	if err := v.MergeInConfig(); err != nil && !isConfigNotFoundError(err) {
		return errors.Wrapf(err, "failed to read %s config file %s", level, path)
	}
	return nil
}

// fileExists returns true if the file at path exists.
func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// LoadWithOverrides loads configuration and applies CLI flag overrides.
// Only non-zero values in overrides are applied.
func LoadWithOverrides(ctx context.Context, overrides *Config) (*Config, error) {
	cfg, err := Load(ctx)
	if err != nil {
		return nil, err
	}
	return ApplyOverrides(cfg, overrides)
}

// ApplyOverrides merges non-zero override values into cfg and re-validates.
//
// Boolean fields cannot be overridden to false this way because the zero
// value is indistinguishable from unset. CLI code sets them directly when
// the flag was changed:
//
//	if cmd.Flags().Changed("publish") {
//	    cfg.Publish.Enabled = publishFlag
//	}
func ApplyOverrides(cfg, overrides *Config) (*Config, error) {
	if overrides != nil {
		applyOverrides(cfg, overrides)
	}
	if err := Validate(cfg); err != nil {
		return nil, errors.Wrap(err, "invalid configuration after overrides")
	}
	return cfg, nil
}

// LoadFromPaths loads configuration from specific file paths for testing.
// Either path can be empty to skip that level.
func LoadFromPaths(ctx context.Context, projectConfigPath, globalConfigPath string) (*Config, error) {
	v := newViperInstance()

	if err := mergeConfigFile(v, globalConfigPath, "global"); err != nil {
		return nil, err
	}
	if err := mergeConfigFile(v, projectConfigPath, "project"); err != nil {
		return nil, err
	}

	return unmarshalAndValidate(ctx, v)
}

// setDefaults configures all default values on the Viper instance.
// Keys must match the mapstructure tag names exactly.
func setDefaults(v *viper.Viper) {
	d := DefaultConfig()

	v.SetDefault("ssh.user", d.SSH.User)
	v.SetDefault("ssh.key_path", d.SSH.KeyPath)
	v.SetDefault("ssh.connect_timeout", d.SSH.ConnectTimeout.String())
	v.SetDefault("ssh.known_hosts", d.SSH.KnownHosts)
	v.SetDefault("ssh.insecure_ignore_host_key", d.SSH.InsecureIgnoreHostKey)
	v.SetDefault("ssh.sudo", d.SSH.Sudo)

	v.SetDefault("deploy.app_dir", d.Deploy.AppDir)
	v.SetDefault("deploy.service", d.Deploy.Service)
	v.SetDefault("deploy.dependency", d.Deploy.Dependency)
	v.SetDefault("deploy.sync_retries", d.Deploy.SyncRetries)
	v.SetDefault("deploy.settle_time", d.Deploy.SettleTime.String())
	v.SetDefault("deploy.run_timeout", d.Deploy.RunTimeout.String())
	v.SetDefault("deploy.concurrency", d.Deploy.Concurrency)
	v.SetDefault("deploy.python", d.Deploy.Python)
	v.SetDefault("deploy.requirements", d.Deploy.Requirements)
	v.SetDefault("deploy.app_port", d.Deploy.AppPort)
	v.SetDefault("deploy.log_tail_lines", d.Deploy.LogTailLines)

	v.SetDefault("env.secret_key", "")
	v.SetDefault("env.mongo_uri", "")
	v.SetDefault("env.database_name", "")
	v.SetDefault("env.flask_env", d.Env.FlaskEnv)
	v.SetDefault("env.extra", map[string]string{})

	v.SetDefault("health.attempts", d.Health.Attempts)
	v.SetDefault("health.delay", d.Health.Delay.String())
	v.SetDefault("health.request_timeout", d.Health.RequestTimeout.String())
	v.SetDefault("health.base_url", "")
	v.SetDefault("health.endpoints", health.DefaultEndpoints())

	v.SetDefault("publish.enabled", d.Publish.Enabled)
	v.SetDefault("publish.source_dir", d.Publish.SourceDir)
	v.SetDefault("publish.name", d.Publish.Name)
	v.SetDefault("publish.major", d.Publish.Major)
	v.SetDefault("publish.minor", d.Publish.Minor)
	v.SetDefault("publish.excludes", []string{})
	v.SetDefault("publish.pre_commands", []string{})
	v.SetDefault("publish.doc_paths", []string{})
	v.SetDefault("publish.repo_dir", "")
	v.SetDefault("publish.repo_url", "")
	v.SetDefault("publish.remote", d.Publish.Remote)
	v.SetDefault("publish.branch", d.Publish.Branch)
	v.SetDefault("publish.artifacts_dir", d.Publish.ArtifactsDir)
	v.SetDefault("publish.attempts", d.Publish.Attempts)
	v.SetDefault("publish.delay", d.Publish.Delay.String())

	v.SetDefault("metrics.textfile", "")

	v.SetDefault("notify.webhook_url", "")
	v.SetDefault("notify.timeout", d.Notify.Timeout.String())
	v.SetDefault("notify.retries", d.Notify.Retries)
}

// applyHostOverride replaces the configured targets with the comma-separated
// hosts in SHIPYARD_HOST. A host naming a configured target keeps its entry.
func applyHostOverride(cfg *Config, hosts string) {
	if strings.TrimSpace(hosts) == "" {
		return
	}

	var targets []domain.DeploymentTarget
	for _, host := range strings.Split(hosts, ",") {
		host = strings.TrimSpace(host)
		if host == "" {
			continue
		}
		targets = append(targets, lookupTarget(cfg.Targets, host))
	}
	cfg.Targets = targets
}

func lookupTarget(targets []domain.DeploymentTarget, host string) domain.DeploymentTarget {
	for _, t := range targets {
		if t.Name == host || t.Host == host {
			return t
		}
	}
	return domain.DeploymentTarget{Name: host, Host: host}
}

// applyOverrides merges non-zero override values into the config.
func applyOverrides(cfg, overrides *Config) {
	if len(overrides.Targets) > 0 {
		cfg.Targets = overrides.Targets
	}

	if overrides.SSH.User != "" {
		cfg.SSH.User = overrides.SSH.User
	}
	if overrides.SSH.KeyPath != "" {
		cfg.SSH.KeyPath = overrides.SSH.KeyPath
	}
	if overrides.SSH.KnownHosts != "" {
		cfg.SSH.KnownHosts = overrides.SSH.KnownHosts
	}

	applyDeployOverrides(cfg, overrides)

	if overrides.Health.BaseURL != "" {
		cfg.Health.BaseURL = overrides.Health.BaseURL
	}
	if overrides.Health.Attempts != 0 {
		cfg.Health.Attempts = overrides.Health.Attempts
	}

	if overrides.Publish.RepoDir != "" {
		cfg.Publish.RepoDir = overrides.Publish.RepoDir
	}
	if overrides.Publish.SourceDir != "" {
		cfg.Publish.SourceDir = overrides.Publish.SourceDir
	}

	if overrides.Metrics.Textfile != "" {
		cfg.Metrics.Textfile = overrides.Metrics.Textfile
	}
	if overrides.Notify.WebhookURL != "" {
		cfg.Notify.WebhookURL = overrides.Notify.WebhookURL
	}
}

// applyDeployOverrides applies deploy-section overrides.
// Split out of applyOverrides to reduce cognitive complexity.
func applyDeployOverrides(cfg, overrides *Config) {
	if overrides.Deploy.AppDir != "" {
		cfg.Deploy.AppDir = overrides.Deploy.AppDir
	}
	if overrides.Deploy.Service != "" {
		cfg.Deploy.Service = overrides.Deploy.Service
	}
	if overrides.Deploy.SettleTime != 0 {
		cfg.Deploy.SettleTime = overrides.Deploy.SettleTime
	}
	if overrides.Deploy.RunTimeout != 0 {
		cfg.Deploy.RunTimeout = overrides.Deploy.RunTimeout
	}
	if overrides.Deploy.Concurrency != 0 {
		cfg.Deploy.Concurrency = overrides.Deploy.Concurrency
	}
}

// viperDecoderOption configures mapstructure to decode durations from strings.
func viperDecoderOption() viper.DecoderConfigOption {
	return viper.DecodeHook(
		mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	)
}

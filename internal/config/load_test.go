package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/shipyard/internal/constants"
	"github.com/mrz1836/shipyard/internal/domain"
	"github.com/mrz1836/shipyard/internal/errors"
)

// isolate points HOME and the working directory at empty temp dirs.
func isolate(t *testing.T) (home, project string) {
	t.Helper()
	home = t.TempDir()
	project = t.TempDir()
	t.Setenv("HOME", home)
	t.Chdir(project)
	return home, project
}

func writeConfig(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func TestLoad_ReturnsDefaultsWhenNoConfigFile(t *testing.T) {
	isolate(t)

	cfg, err := Load(context.Background())
	require.NoError(t, err, "Load should not fail when no config file exists")
	require.NotNil(t, cfg)

	assert.Empty(t, cfg.Targets)
	assert.Equal(t, constants.DefaultServiceName, cfg.Deploy.Service)
	assert.Equal(t, constants.DefaultDependencyName, cfg.Deploy.Dependency)
	assert.Equal(t, constants.DefaultSettleTime, cfg.Deploy.SettleTime)
	assert.Equal(t, constants.DefaultSyncRetries, cfg.Deploy.SyncRetries)
	assert.Equal(t, constants.DefaultHealthAttempts, cfg.Health.Attempts)
	assert.Equal(t, constants.DefaultHealthDelay, cfg.Health.Delay)
	assert.Len(t, cfg.Health.Endpoints, 3)
	assert.Equal(t, "/metrics", cfg.Health.Endpoints[1].Path)
	assert.Equal(t, constants.MetricsMarker, cfg.Health.Endpoints[1].Marker)
	assert.Equal(t, constants.DefaultPublishAttempts, cfg.Publish.Attempts)
	assert.Equal(t, constants.DefaultPublishDelay, cfg.Publish.Delay)
	assert.False(t, cfg.Publish.Enabled)
}

func TestLoad_ProjectConfigOverridesGlobal(t *testing.T) {
	home, project := isolate(t)

	writeConfig(t, filepath.Join(home, ".shipyard", "config.yaml"), `
ssh:
  user: deployer
  key_path: ~/.ssh/global
deploy:
  service: global-app
  concurrency: 2
`)
	writeConfig(t, filepath.Join(project, ".shipyard", "config.yaml"), `
deploy:
  service: blog-app
targets:
  - name: web1
    host: 203.0.113.5
    app_dir: /srv/blog
`)

	cfg, err := Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "blog-app", cfg.Deploy.Service, "project config should win")
	assert.Equal(t, 2, cfg.Deploy.Concurrency, "unset project keys keep global values")
	assert.Equal(t, "deployer", cfg.SSH.User)
	require.Len(t, cfg.Targets, 1)
	assert.Equal(t, domain.DeploymentTarget{Name: "web1", Host: "203.0.113.5", AppDir: "/srv/blog"}, cfg.Targets[0])
}

func TestLoadFromPaths_DurationParsing(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeConfig(t, path, `
deploy:
  settle_time: 15s
  run_timeout: 20m
health:
  delay: 500ms
  request_timeout: 2s
publish:
  delay: 1m
notify:
  timeout: 30s
`)

	cfg, err := LoadFromPaths(context.Background(), path, "")
	require.NoError(t, err)

	assert.Equal(t, 15*time.Second, cfg.Deploy.SettleTime)
	assert.Equal(t, 20*time.Minute, cfg.Deploy.RunTimeout)
	assert.Equal(t, 500*time.Millisecond, cfg.Health.Delay)
	assert.Equal(t, 2*time.Second, cfg.Health.RequestTimeout)
	assert.Equal(t, time.Minute, cfg.Publish.Delay)
	assert.Equal(t, 30*time.Second, cfg.Notify.Timeout)
}

func TestLoadFromPaths_CustomEndpoints(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeConfig(t, path, `
health:
  endpoints:
    - path: /healthz
    - path: /
      marker: "<title>"
`)

	cfg, err := LoadFromPaths(context.Background(), path, "")
	require.NoError(t, err)

	require.Len(t, cfg.Health.Endpoints, 2)
	assert.Equal(t, "/healthz", cfg.Health.Endpoints[0].Path)
	assert.Equal(t, "<title>", cfg.Health.Endpoints[1].Marker)
}

func TestLoadFromPaths_InvalidConfigFile(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeConfig(t, path, "deploy: [not: valid")

	_, err := LoadFromPaths(context.Background(), path, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read project config file")
}

func TestLoadFromPaths_ValidationFailure(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeConfig(t, path, "health:\n  attempts: 0\n")

	_, err := LoadFromPaths(context.Background(), path, "")
	require.ErrorIs(t, err, errors.ErrConfigInvalidHealth)
	assert.Contains(t, err.Error(), "invalid configuration")
}

func TestLoadFile_MissingFile(t *testing.T) {
	isolate(t)

	_, err := LoadFile(context.Background(), filepath.Join(t.TempDir(), "nope.yaml"))
	require.ErrorIs(t, err, errors.ErrConfigNotFound)
}

func TestLoadFile_ExplicitPath(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "staging.yaml")
	writeConfig(t, path, "deploy:\n  service: staging-app\n")

	cfg, err := LoadFile(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "staging-app", cfg.Deploy.Service)
}

func TestLoad_EnvVarOverridesConfigFile(t *testing.T) {
	_, project := isolate(t)
	writeConfig(t, filepath.Join(project, ".shipyard", "config.yaml"), `
deploy:
  service: from-file
  sync_retries: 1
`)
	t.Setenv("SHIPYARD_DEPLOY_SERVICE", "from-env")
	t.Setenv("SHIPYARD_DEPLOY_SYNC_RETRIES", "4")

	cfg, err := Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.Deploy.Service)
	assert.Equal(t, 4, cfg.Deploy.SyncRetries)
}

func TestLoad_ShortEnvAliases(t *testing.T) {
	isolate(t)

	tests := []struct {
		name  string
		env   string
		value string
		get   func(*Config) string
	}{
		{"user", "SHIPYARD_USER", "deployer", func(c *Config) string { return c.SSH.User }},
		{"key path", "SHIPYARD_KEY_PATH", "/keys/deploy", func(c *Config) string { return c.SSH.KeyPath }},
		{"app dir", "SHIPYARD_APP_DIR", "/srv/blog", func(c *Config) string { return c.Deploy.AppDir }},
		{"secret key", "SHIPYARD_SECRET_KEY", "s3cret", func(c *Config) string { return c.Env.SecretKey }},
		{"mongo uri", "SHIPYARD_MONGO_URI", "mongodb://localhost:27017", func(c *Config) string { return c.Env.MongoURI }},
		{"database", "SHIPYARD_DATABASE_NAME", "blog", func(c *Config) string { return c.Env.DatabaseName }},
		{"long form", "SHIPYARD_ENV_SECRET_KEY", "long", func(c *Config) string { return c.Env.SecretKey }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.env, tt.value)

			cfg, err := Load(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.value, tt.get(cfg))
		})
	}
}

func TestLoad_HostEnvReplacesTargets(t *testing.T) {
	_, project := isolate(t)
	writeConfig(t, filepath.Join(project, ".shipyard", "config.yaml"), `
targets:
  - name: web1
    host: 203.0.113.5
    port: 2222
  - name: web2
    host: 203.0.113.6
`)
	t.Setenv("SHIPYARD_HOST", "web1, 198.51.100.7")

	cfg, err := Load(context.Background())
	require.NoError(t, err)

	require.Len(t, cfg.Targets, 2)
	assert.Equal(t, 2222, cfg.Targets[0].Port, "a configured target keeps its settings")
	assert.Equal(t, domain.DeploymentTarget{Name: "198.51.100.7", Host: "198.51.100.7"}, cfg.Targets[1])
}

func TestLoadWithOverrides_AppliesCLIOverrides(t *testing.T) {
	isolate(t)

	overrides := &Config{
		Targets: []domain.DeploymentTarget{{Host: "203.0.113.9"}},
		SSH:     SSHConfig{User: "ops"},
		Deploy:  DeployConfig{Concurrency: 8, SettleTime: time.Second},
		Health:  HealthConfig{BaseURL: "http://{host}:8080"},
		Metrics: MetricsConfig{Textfile: "/var/lib/node_exporter/shipyard.prom"},
		Notify:  NotifyConfig{WebhookURL: "https://hooks.example.com/deploy"},
	}

	cfg, err := LoadWithOverrides(context.Background(), overrides)
	require.NoError(t, err)

	assert.Equal(t, "203.0.113.9", cfg.Targets[0].Host)
	assert.Equal(t, "ops", cfg.SSH.User)
	assert.Equal(t, 8, cfg.Deploy.Concurrency)
	assert.Equal(t, time.Second, cfg.Deploy.SettleTime)
	assert.Equal(t, constants.DefaultServiceName, cfg.Deploy.Service, "unset overrides leave values alone")
	assert.Equal(t, "http://{host}:8080", cfg.Health.BaseURL)
	assert.Equal(t, "/var/lib/node_exporter/shipyard.prom", cfg.Metrics.Textfile)
	assert.Equal(t, "https://hooks.example.com/deploy", cfg.Notify.WebhookURL)
}

func TestLoadWithOverrides_NilOverrides(t *testing.T) {
	isolate(t)

	cfg, err := LoadWithOverrides(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, constants.DefaultConcurrency, cfg.Deploy.Concurrency)
}

func TestApplyOverrides_Revalidates(t *testing.T) {
	cfg := DefaultConfig()

	_, err := ApplyOverrides(cfg, &Config{Deploy: DeployConfig{Concurrency: 1000}})
	require.ErrorIs(t, err, errors.ErrConfigInvalidDeploy)
	assert.Contains(t, err.Error(), "after overrides")
}

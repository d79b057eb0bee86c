package cli

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/mrz1836/shipyard/internal/artifact"
	"github.com/mrz1836/shipyard/internal/clock"
	"github.com/mrz1836/shipyard/internal/command"
	"github.com/mrz1836/shipyard/internal/config"
	"github.com/mrz1836/shipyard/internal/ctxutil"
	"github.com/mrz1836/shipyard/internal/deploy"
	"github.com/mrz1836/shipyard/internal/health"
	"github.com/mrz1836/shipyard/internal/metrics"
	"github.com/mrz1836/shipyard/internal/notify"
	"github.com/mrz1836/shipyard/internal/publish"
	"github.com/mrz1836/shipyard/internal/remote"
)

// services holds what commands build their components from. Tests swap in
// a fake executor and instant sleeps.
type services struct {
	newExecutor func(cfg *config.Config, logger zerolog.Logger) remote.Executor
	clock       clock.Clock
	sleep       ctxutil.SleepFunc
	newID       func() string
	logWriter   io.Writer
}

func defaultServices() *services {
	return &services{
		newExecutor: func(cfg *config.Config, logger zerolog.Logger) remote.Executor {
			return remote.NewSSHExecutor(
				remote.WithConnectTimeout(cfg.SSH.ConnectTimeout),
				remote.WithKnownHosts(cfg.SSH.KnownHosts),
				remote.WithInsecureIgnoreHostKey(cfg.SSH.InsecureIgnoreHostKey),
				remote.WithLogger(logger),
			)
		},
		clock: clock.RealClock{},
		sleep: ctxutil.Sleep,
		newID: uuid.NewString,
	}
}

// loadConfig loads configuration, honoring --config, with the CLI logger
// attached to the context.
func loadConfig(ctx context.Context, flags *GlobalFlags) (*config.Config, error) {
	logger := GetLogger()
	ctx = logger.WithContext(ctx)
	if flags.ConfigPath != "" {
		return config.LoadFile(ctx, flags.ConfigPath)
	}
	return config.Load(ctx)
}

// settingsFromConfig maps configuration onto orchestrator settings.
func settingsFromConfig(cfg *config.Config) deploy.Settings {
	return deploy.Settings{
		Service:      cfg.Deploy.Service,
		Dependency:   cfg.Deploy.Dependency,
		Sudo:         cfg.SSH.Sudo,
		SyncRetries:  cfg.Deploy.SyncRetries,
		Python:       cfg.Deploy.Python,
		Requirements: cfg.Deploy.Requirements,
		Env: deploy.Environment{
			SecretKey:    cfg.Env.SecretKey,
			MongoURI:     cfg.Env.MongoURI,
			DatabaseName: cfg.Env.DatabaseName,
			FlaskEnv:     cfg.Env.FlaskEnv,
			Extra:        cfg.Env.Extra,
		},
		SettleTime:    cfg.Deploy.SettleTime,
		HealthBaseURL: cfg.Health.BaseURL,
		AppPort:       cfg.Deploy.AppPort,
		Endpoints:     cfg.Health.Endpoints,
		LogTailLines:  cfg.Deploy.LogTailLines,
		RunTimeout:    cfg.Deploy.RunTimeout,
	}
}

func (s *services) verifier(cfg *config.Config, logger zerolog.Logger) *health.Verifier {
	return health.NewVerifier(
		health.WithMaxAttempts(cfg.Health.Attempts),
		health.WithDelay(cfg.Health.Delay),
		health.WithRequestTimeout(cfg.Health.RequestTimeout),
		health.WithSleep(s.sleep),
		health.WithClock(s.clock),
		health.WithLogger(logger),
	)
}

func (s *services) orchestrator(cfg *config.Config, verifier deploy.HealthChecker, logger zerolog.Logger) *deploy.Orchestrator {
	return deploy.NewOrchestrator(
		s.newExecutor(cfg, logger),
		verifier,
		settingsFromConfig(cfg),
		deploy.WithSleep(s.sleep),
		deploy.WithClock(s.clock),
		deploy.WithIDGenerator(s.newID),
		deploy.WithLogger(logger),
	)
}

// pipeline builds the artifact publisher described by cfg.Publish.
func (s *services) pipeline(cfg *config.Config, logger zerolog.Logger) *publish.Pipeline {
	pc := cfg.Publish

	builder := artifact.NewBuilder(
		artifact.WithExcludes(pc.Excludes...),
		artifact.WithClock(s.clock),
		artifact.WithLogger(logger),
	)
	commands := command.NewExecutor(
		command.WithClock(s.clock),
		command.WithLogger(logger),
	)
	publisher := publish.New(publish.Config{
		RepoDir:      pc.RepoDir,
		RepoURL:      pc.RepoURL,
		Remote:       pc.Remote,
		Branch:       pc.Branch,
		ArtifactsDir: pc.ArtifactsDir,
		MaxAttempts:  pc.Attempts,
		Delay:        pc.Delay,
	}, publish.WithSleep(s.sleep), publish.WithLogger(logger))

	return publish.NewPipeline(publish.PipelineConfig{
		SourceDir: pc.SourceDir,
		Info: artifact.VersionInfo{
			Name:    pc.Name,
			Major:   pc.Major,
			Minor:   pc.Minor,
			Builder: builderName(),
		},
		PreCommands: pc.PreCommands,
		DocPaths:    pc.DocPaths,
	}, builder, commands, publisher, logger)
}

// runner assembles the multi-target runner with the optional publisher,
// webhook and metrics textfile.
func (s *services) runner(cfg *config.Config, o *deploy.Orchestrator, logger zerolog.Logger) (*deploy.Runner, func()) {
	opts := []deploy.RunnerOption{
		deploy.WithConcurrency(cfg.Deploy.Concurrency),
		deploy.WithMetrics(metrics.NewRecorder(), cfg.Metrics.Textfile),
		deploy.WithRunnerClock(s.clock),
		deploy.WithRunnerLogger(logger),
	}
	if cfg.Publish.Enabled {
		opts = append(opts, deploy.WithPublisher(s.pipeline(cfg, logger)))
	}

	cleanup := func() {}
	if cfg.Notify.WebhookURL != "" {
		webhook := notify.NewWebhook(cfg.Notify.WebhookURL,
			notify.WithTimeout(cfg.Notify.Timeout),
			notify.WithRetries(cfg.Notify.Retries, time.Second),
			notify.WithClock(s.clock),
			notify.WithLogger(logger),
		)
		opts = append(opts, deploy.WithNotifier(webhook))
		cleanup = func() { _ = webhook.Close() }
	}

	return deploy.NewRunner(o, opts...), cleanup
}

// builderName identifies the machine that built an artifact.
func builderName() string {
	host, err := os.Hostname()
	if err != nil {
		return "unknown"
	}
	if user := os.Getenv("USER"); user != "" {
		return user + "@" + host
	}
	return host
}

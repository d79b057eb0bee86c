package cli

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/mrz1836/shipyard/internal/config"
	"github.com/mrz1836/shipyard/internal/deploy"
	"github.com/mrz1836/shipyard/internal/domain"
	"github.com/mrz1836/shipyard/internal/errors"
	"github.com/mrz1836/shipyard/internal/signal"
	"github.com/mrz1836/shipyard/internal/tui"
)

// DeployFlags holds flags specific to the deploy command.
type DeployFlags struct {
	// Revision is the commit, branch or tag to deploy.
	Revision string
	// Targets selects configured targets by name or host. Empty means all.
	Targets []string
	// Concurrency caps how many targets deploy at once.
	Concurrency int
	// Publish turns the artifact publishing step on or off.
	Publish bool
	// SettleTime overrides the wait after restart.
	SettleTime time.Duration
	// BaseURL overrides the health check base URL.
	BaseURL string
	// MetricsTextfile overrides the prometheus textfile path.
	MetricsTextfile string
	// WebhookURL overrides the completion webhook.
	WebhookURL string
}

// AddDeployCommand adds the deploy command to the root command.
func AddDeployCommand(rootCmd *cobra.Command, flags *GlobalFlags, svc *services) {
	rootCmd.AddCommand(newDeployCmd(flags, svc))
}

func newDeployCmd(flags *GlobalFlags, svc *services) *cobra.Command {
	deployFlags := &DeployFlags{}

	cmd := &cobra.Command{
		Use:   "deploy",
		Short: "Deploy a revision to the configured targets",
		Long: `Deploy a revision to every selected target in parallel.

Each target is checked for reachability and its service unit, reset to the
revision, has its dependencies and .env rewritten, is restarted, and is
verified over HTTP. When publishing is enabled and at least one target
verified, the build artifact is pushed to the shared repository once.`,
		Example: `  shipyard deploy --revision abc1234
  shipyard deploy -r v1.4.0 --target web1 --target web2
  SHIPYARD_HOST=203.0.113.5 SHIPYARD_USER=deploy shipyard deploy -r main`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDeploy(cmd.Context(), cmd, flags, deployFlags, svc)
		},
	}

	cmd.Flags().StringVarP(&deployFlags.Revision, "revision", "r", "", "commit, branch or tag to deploy (required)")
	cmd.Flags().StringArrayVarP(&deployFlags.Targets, "target", "t", nil, "target name or host (repeatable, default all)")
	cmd.Flags().IntVar(&deployFlags.Concurrency, "concurrency", 0, "maximum targets deployed at once")
	cmd.Flags().BoolVar(&deployFlags.Publish, "publish", false, "publish the build artifact after verification")
	cmd.Flags().DurationVar(&deployFlags.SettleTime, "settle-time", 0, "wait after restart before checking the service")
	cmd.Flags().StringVar(&deployFlags.BaseURL, "base-url", "", `health check base URL, "{host}" is replaced per target`)
	cmd.Flags().StringVar(&deployFlags.MetricsTextfile, "metrics-textfile", "", "write prometheus metrics to this .prom file")
	cmd.Flags().StringVar(&deployFlags.WebhookURL, "webhook-url", "", "POST a JSON summary here when the run finishes")
	_ = cmd.MarkFlagRequired("revision")

	return cmd
}

// overrides converts the flags into a partial config for config.ApplyOverrides.
func (f *DeployFlags) overrides() *config.Config {
	return &config.Config{
		Deploy:  config.DeployConfig{Concurrency: f.Concurrency, SettleTime: f.SettleTime},
		Health:  config.HealthConfig{BaseURL: f.BaseURL},
		Metrics: config.MetricsConfig{Textfile: f.MetricsTextfile},
		Notify:  config.NotifyConfig{WebhookURL: f.WebhookURL},
	}
}

// prepareDeploy validates the revision, loads configuration with flag
// overrides and resolves the targets.
func prepareDeploy(ctx context.Context, cmd *cobra.Command, flags *GlobalFlags, deployFlags *DeployFlags) (*config.Config, []domain.DeploymentTarget, error) {
	if err := deploy.ValidateRevision(deployFlags.Revision); err != nil {
		return nil, nil, err
	}

	cfg, err := loadConfig(ctx, flags)
	if err != nil {
		return nil, nil, err
	}
	if cmd.Flags().Changed("publish") {
		cfg.Publish.Enabled = deployFlags.Publish
	}
	if cfg, err = config.ApplyOverrides(cfg, deployFlags.overrides()); err != nil {
		return nil, nil, err
	}

	targets, err := cfg.SelectTargets(deployFlags.Targets)
	if err != nil {
		return nil, nil, err
	}
	if err := config.ValidateForDeploy(cfg, targets); err != nil {
		return nil, nil, err
	}
	return cfg, targets, nil
}

func runDeploy(ctx context.Context, cmd *cobra.Command, flags *GlobalFlags, deployFlags *DeployFlags, svc *services) error {
	logger := GetLogger()
	out := tui.NewOutput(cmd.OutOrStdout(), flags.Output)

	cfg, targets, err := prepareDeploy(ctx, cmd, flags, deployFlags)
	if err != nil {
		return err
	}

	verifier := svc.verifier(cfg, logger)
	defer func() { _ = verifier.Close() }()

	runner, cleanup := svc.runner(cfg, svc.orchestrator(cfg, verifier, logger), logger)
	defer cleanup()

	if flags.Output == OutputText {
		out.Info(fmt.Sprintf("Deploying %s to %d target(s)", deployFlags.Revision, len(targets)))
	}

	report, runErr := runner.Run(ctx, targets, deployFlags.Revision)
	renderReport(out, flags.Output, report)
	return interruptedError(ctx, runErr)
}

// interruptedError marks err as a user cancellation when ctx was canceled
// by SIGINT or SIGTERM.
func interruptedError(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	var ie *signal.InterruptError
	if stderrors.As(context.Cause(ctx), &ie) {
		return fmt.Errorf("%w (%s): %w", errors.ErrOperationCanceled, ie.Signal, err)
	}
	return err
}

// renderReport prints the attempts and publish result. JSON output is the
// whole report as one document.
func renderReport(out tui.Output, format string, report *deploy.Report) {
	if report == nil {
		return
	}
	if format == OutputJSON {
		_ = out.JSON(report)
		return
	}

	out.Attempts(report.Attempts)
	if p := report.Publish; p != nil {
		if p.Published {
			out.Success(fmt.Sprintf("Artifact published in %d attempt(s) as %s", p.Attempts, domain.ShortRevision(p.Commit)))
		} else {
			out.Warning(fmt.Sprintf("Artifact not published after %d attempt(s): %s", p.Attempts, p.Error))
		}
	}
	if report.Succeeded() {
		out.Success(fmt.Sprintf("%d target(s) running %s", len(report.Attempts), report.Revision))
	}
}

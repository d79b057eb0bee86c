package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/mrz1836/shipyard/internal/config"
	"github.com/mrz1836/shipyard/internal/domain"
	"github.com/mrz1836/shipyard/internal/errors"
	"github.com/mrz1836/shipyard/internal/health"
	"github.com/mrz1836/shipyard/internal/tui"
)

// VerifyFlags holds flags specific to the verify command.
type VerifyFlags struct {
	Targets []string
	BaseURL string
}

// TargetHealth is the verification result for one target.
type TargetHealth struct {
	Target string               `json:"target"`
	Host   string               `json:"host"`
	Status *domain.HealthStatus `json:"status"`
}

// AddVerifyCommand adds the verify command to the root command.
func AddVerifyCommand(rootCmd *cobra.Command, flags *GlobalFlags, svc *services) {
	rootCmd.AddCommand(newVerifyCmd(flags, svc))
}

func newVerifyCmd(flags *GlobalFlags, svc *services) *cobra.Command {
	verifyFlags := &VerifyFlags{}

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Run the health checks against targets without deploying",
		Example: `  shipyard verify
  shipyard verify --target web1 --base-url "https://{host}.example.com"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runVerify(cmd.Context(), cmd, flags, verifyFlags, svc)
		},
	}

	cmd.Flags().StringArrayVarP(&verifyFlags.Targets, "target", "t", nil, "target name or host (repeatable, default all)")
	cmd.Flags().StringVar(&verifyFlags.BaseURL, "base-url", "", `health check base URL, "{host}" is replaced per target`)

	return cmd
}

func runVerify(ctx context.Context, cmd *cobra.Command, flags *GlobalFlags, verifyFlags *VerifyFlags, svc *services) error {
	logger := GetLogger()
	out := tui.NewOutput(cmd.OutOrStdout(), flags.Output)

	cfg, err := loadConfig(ctx, flags)
	if err != nil {
		return err
	}
	if cfg, err = config.ApplyOverrides(cfg, &config.Config{Health: config.HealthConfig{BaseURL: verifyFlags.BaseURL}}); err != nil {
		return err
	}
	targets, err := cfg.SelectTargets(verifyFlags.Targets)
	if err != nil {
		return err
	}
	if len(targets) == 0 {
		return errors.ErrNoTargets
	}

	verifier := svc.verifier(cfg, logger)
	defer func() { _ = verifier.Close() }()

	results := make([]TargetHealth, len(targets))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Deploy.Concurrency)
	for i, target := range targets {
		g.Go(func() error {
			base := health.TargetBaseURL(cfg.Health.BaseURL, target.Host, cfg.Deploy.AppPort)
			results[i] = TargetHealth{
				Target: target.Label(),
				Host:   target.Host,
				Status: verifier.Verify(gctx, health.Resolve(base, cfg.Health.Endpoints)),
			}
			return nil
		})
	}
	_ = g.Wait()

	unhealthy := 0
	for _, r := range results {
		if !r.Status.Healthy {
			unhealthy++
		}
	}

	if flags.Output == OutputJSON {
		if err := out.JSON(results); err != nil {
			return err
		}
	} else {
		renderHealth(out, results)
	}

	if unhealthy > 0 {
		return errors.Wrapf(errors.ErrHealthCheckFailed, "%d of %d target(s)", unhealthy, len(results))
	}
	return nil
}

func renderHealth(out tui.Output, results []TargetHealth) {
	rows := make([][]string, 0, len(results))
	for _, r := range results {
		rows = append(rows, []string{
			r.Target,
			r.Host,
			strconv.FormatBool(r.Status.Healthy),
			strconv.Itoa(r.Status.Rounds),
			firstLine(r.Status.Diagnostics),
		})
	}
	out.Table([]string{"target", "host", "healthy", "rounds", "diagnostics"}, rows)

	for _, r := range results {
		if r.Status.Healthy {
			continue
		}
		out.Warning(fmt.Sprintf("%s is unhealthy", r.Target))
		for _, line := range strings.Split(r.Status.Diagnostics, "\n") {
			if line != "" {
				out.Info("  " + line)
			}
		}
	}
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}

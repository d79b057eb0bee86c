package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mrz1836/shipyard/internal/config"
	"github.com/mrz1836/shipyard/internal/deploy"
	"github.com/mrz1836/shipyard/internal/domain"
	"github.com/mrz1836/shipyard/internal/errors"
	"github.com/mrz1836/shipyard/internal/tui"
)

// PublishFlags holds flags specific to the publish command.
type PublishFlags struct {
	Revision  string
	SourceDir string
	RepoDir   string
	BuildOnly bool
}

// buildOutput is the JSON shape of a build-only run.
type buildOutput struct {
	Manifest *domain.ArtifactManifest `json:"manifest"`
	Files    []string                 `json:"files"`
}

// AddPublishCommand adds the publish command to the root command.
func AddPublishCommand(rootCmd *cobra.Command, flags *GlobalFlags, svc *services) {
	rootCmd.AddCommand(newPublishCmd(flags, svc))
}

func newPublishCmd(flags *GlobalFlags, svc *services) *cobra.Command {
	publishFlags := &PublishFlags{}

	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Build the artifact for a revision and push it to the artifact repository",
		Long: `Build the versioned archive, VERSION and MANIFEST for a revision and
commit them to the shared artifact repository. Concurrent publishers are
reconciled with fetch, rebase and retry.

Use --build-only to write the artifact without touching the repository.`,
		Example: `  shipyard publish --revision abc1234
  shipyard publish -r abc1234 --build-only`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPublish(cmd.Context(), cmd, flags, publishFlags, svc)
		},
	}

	cmd.Flags().StringVarP(&publishFlags.Revision, "revision", "r", "", "revision the artifact is built for (required)")
	cmd.Flags().StringVar(&publishFlags.SourceDir, "source-dir", "", "application tree to archive")
	cmd.Flags().StringVar(&publishFlags.RepoDir, "repo-dir", "", "local clone of the artifact repository")
	cmd.Flags().BoolVar(&publishFlags.BuildOnly, "build-only", false, "build the artifact without publishing it")
	_ = cmd.MarkFlagRequired("revision")

	return cmd
}

func runPublish(ctx context.Context, cmd *cobra.Command, flags *GlobalFlags, publishFlags *PublishFlags, svc *services) error {
	logger := GetLogger()
	out := tui.NewOutput(cmd.OutOrStdout(), flags.Output)

	if err := deploy.ValidateRevision(publishFlags.Revision); err != nil {
		return err
	}

	cfg, err := loadConfig(ctx, flags)
	if err != nil {
		return err
	}
	if publishFlags.SourceDir != "" {
		cfg.Publish.SourceDir = publishFlags.SourceDir
	}
	if publishFlags.RepoDir != "" {
		cfg.Publish.RepoDir = publishFlags.RepoDir
	}
	if !publishFlags.BuildOnly && cfg.Publish.RepoDir == "" {
		return errors.Wrap(errors.ErrConfigInvalidPublish, "publish.repo_dir is required")
	}
	if err := config.Validate(cfg); err != nil {
		return errors.Wrap(err, "invalid configuration")
	}

	pipeline := svc.pipeline(cfg, logger)

	if publishFlags.BuildOnly {
		m, files, buildErr := pipeline.Build(ctx, publishFlags.Revision)
		if buildErr != nil {
			return buildErr
		}
		if flags.Output == OutputJSON {
			return out.JSON(buildOutput{Manifest: m, Files: files})
		}
		out.Success(fmt.Sprintf("Built %s %s", m.Name, m.Version))
		for _, f := range files {
			out.Info("  " + f)
		}
		return nil
	}

	result, err := pipeline.Publish(ctx, publishFlags.Revision)
	if flags.Output == OutputJSON {
		if jsonErr := out.JSON(result); jsonErr != nil {
			return jsonErr
		}
		return err
	}
	if err != nil {
		return err
	}
	out.Success(fmt.Sprintf("Published %s in %d attempt(s) as %s",
		result.ArchivePath, result.Attempts, domain.ShortRevision(result.Commit)))
	return nil
}

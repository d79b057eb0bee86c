package publish

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/mrz1836/shipyard/internal/artifact"
	"github.com/mrz1836/shipyard/internal/command"
	"github.com/mrz1836/shipyard/internal/constants"
	"github.com/mrz1836/shipyard/internal/domain"
	shipyarderrors "github.com/mrz1836/shipyard/internal/errors"
	"github.com/mrz1836/shipyard/internal/git"
)

// PipelineConfig describes what is built and published for a revision.
type PipelineConfig struct {
	// SourceDir is the application checkout the artifact is built from.
	SourceDir string
	// BuildDir receives the archive and generated files.
	BuildDir string
	// Info supplies the version fields. Revision is set per call. A zero
	// Build is filled with the commit count of SourceDir.
	Info artifact.VersionInfo
	// PreCommands run in SourceDir before the artifact is built.
	PreCommands []string
	// DocPaths are files or directories, relative to SourceDir, published
	// next to the archive.
	DocPaths []string
}

// Pipeline builds the artifact for a revision and hands it to a Publisher.
type Pipeline struct {
	cfg       PipelineConfig
	builder   *artifact.Builder
	commands  *command.Executor
	publisher *Publisher
	logger    zerolog.Logger
}

// NewPipeline creates a Pipeline. Nil builder or commands get defaults.
func NewPipeline(cfg PipelineConfig, builder *artifact.Builder, commands *command.Executor, publisher *Publisher, logger zerolog.Logger) *Pipeline {
	if builder == nil {
		builder = artifact.NewBuilder(artifact.WithLogger(logger))
	}
	if commands == nil {
		commands = command.NewExecutor(command.WithLogger(logger))
	}
	if cfg.BuildDir == "" {
		cfg.BuildDir = filepath.Join(cfg.SourceDir, constants.ShipyardHome, constants.BuildDir)
	}
	return &Pipeline{
		cfg:       cfg,
		builder:   builder,
		commands:  commands,
		publisher: publisher,
		logger:    logger,
	}
}

// Build runs the pre-commands and writes VERSION, MANIFEST and the archive.
// revision must resolve to the commit checked out in SourceDir; the manifest
// records its full hash. It returns the manifest and the files to publish.
func (p *Pipeline) Build(ctx context.Context, revision string) (*domain.ArtifactManifest, []string, error) {
	runner, hash, err := p.resolve(ctx, revision)
	if err != nil {
		return nil, nil, err
	}

	if _, err := p.commands.Run(ctx, p.cfg.PreCommands, p.cfg.SourceDir); err != nil {
		return nil, nil, fmt.Errorf("pre-publish command: %w", err)
	}

	info := p.cfg.Info
	info.Revision = hash
	p.fillFromGit(ctx, runner, &info)

	m, err := p.builder.BuildManifest(ctx, p.cfg.SourceDir, info)
	if err != nil {
		return nil, nil, err
	}

	stage := filepath.Join(p.cfg.BuildDir, m.ShortRevision())
	versionPath, err := artifact.WriteVersionFile(stage, m)
	if err != nil {
		return nil, nil, err
	}
	manifestPath, err := artifact.WriteManifestFile(stage, m)
	if err != nil {
		return nil, nil, err
	}
	archivePath, err := p.builder.Archive(ctx, p.cfg.SourceDir, m, stage)
	if err != nil {
		return nil, nil, err
	}

	files := []string{archivePath, versionPath, manifestPath}
	for _, doc := range p.cfg.DocPaths {
		full := filepath.Join(p.cfg.SourceDir, doc)
		if _, statErr := os.Stat(full); statErr != nil {
			p.logger.Warn().
				Str("path", doc).
				Msg("documentation output missing, not published")
			continue
		}
		files = append(files, full)
	}
	return m, files, nil
}

// Publish builds the artifact for revision and publishes it.
func (p *Pipeline) Publish(ctx context.Context, revision string) (*domain.PublishResult, error) {
	if p.publisher == nil {
		return &domain.PublishResult{}, fmt.Errorf("publisher: %w", shipyarderrors.ErrEmptyValue)
	}
	m, files, err := p.Build(ctx, revision)
	if err != nil {
		return &domain.PublishResult{Err: err, Error: err.Error()}, err
	}
	return p.publisher.Publish(ctx, files, m)
}

// resolve maps revision to a full commit hash and checks that SourceDir has
// that commit checked out, so the archive holds the code it is labelled with.
func (p *Pipeline) resolve(ctx context.Context, revision string) (*git.CLIRunner, string, error) {
	runner, err := git.NewRunner(ctx, p.cfg.SourceDir)
	if err != nil {
		return nil, "", fmt.Errorf("source %s: %w: %w", p.cfg.SourceDir, shipyarderrors.ErrInvalidRevision, err)
	}
	hash, err := runner.ResolveRevision(ctx, revision)
	if err != nil {
		return nil, "", err
	}
	head, err := runner.HeadCommit(ctx)
	if err != nil {
		return nil, "", err
	}
	if head != hash {
		return nil, "", fmt.Errorf("%s resolves to %s but %s has %s checked out: %w",
			revision, domain.ShortRevision(hash), p.cfg.SourceDir, domain.ShortRevision(head), shipyarderrors.ErrInvalidRevision)
	}
	p.logger.Debug().
		Str("revision", revision).
		Str("commit", hash).
		Msg("revision resolved")
	return runner, hash, nil
}

// fillFromGit derives the build number and branch from SourceDir when unset.
func (p *Pipeline) fillFromGit(ctx context.Context, runner *git.CLIRunner, info *artifact.VersionInfo) {
	if info.Build == 0 {
		if n, countErr := runner.CommitCount(ctx, info.Revision); countErr == nil {
			info.Build = n
		}
	}
	if info.Branch == "" {
		if branch, branchErr := runner.CurrentBranch(ctx); branchErr == nil {
			info.Branch = branch
		}
	}
}

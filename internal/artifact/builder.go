// Package artifact builds versioned deployment artifacts.
//
// An artifact is a gzip-compressed tarball of the source tree plus two
// generated files: VERSION (JSON version metadata) and MANIFEST (the sorted
// file listing). Manifests are immutable once built.
package artifact

import (
	"context"
	"fmt"
	"io/fs"
	"path"
	"path/filepath"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/mrz1836/shipyard/internal/clock"
	"github.com/mrz1836/shipyard/internal/constants"
	"github.com/mrz1836/shipyard/internal/domain"
	shipyarderrors "github.com/mrz1836/shipyard/internal/errors"
)

// VersionInfo is the input to BuildManifest.
type VersionInfo struct {
	Name      string
	Major     int
	Minor     int
	Build     int
	Revision  string
	Branch    string
	Builder   string
	Timestamp time.Time
}

// Version returns major.minor.build.
func (v VersionInfo) Version() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Build)
}

// Builder walks source trees and produces manifests and archives.
type Builder struct {
	excludes []string
	clock    clock.Clock
	logger   zerolog.Logger
}

// Option configures a Builder.
type Option func(*Builder)

// WithExcludes skips files whose relative path or base name matches any glob.
func WithExcludes(globs ...string) Option {
	return func(b *Builder) {
		b.excludes = append(b.excludes, globs...)
	}
}

// WithClock sets the clock used when VersionInfo has no timestamp.
func WithClock(c clock.Clock) Option {
	return func(b *Builder) {
		b.clock = c
	}
}

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(b *Builder) {
		b.logger = logger
	}
}

// NewBuilder creates a Builder.
func NewBuilder(opts ...Option) *Builder {
	b := &Builder{
		clock:  clock.RealClock{},
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// BuildManifest lists every regular file under sourceDir, skipping .git,
// .shipyard and excluded paths, and stamps it with info.
func (b *Builder) BuildManifest(ctx context.Context, sourceDir string, info VersionInfo) (*domain.ArtifactManifest, error) {
	if info.Revision == "" {
		return nil, fmt.Errorf("build manifest: %w", shipyarderrors.ErrInvalidRevision)
	}

	var files []string
	err := filepath.WalkDir(sourceDir, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		rel, err := filepath.Rel(sourceDir, p)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if d.Name() == ".git" || d.Name() == constants.ShipyardHome || b.excluded(rel) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || b.excluded(rel) {
			return nil
		}
		files = append(files, rel)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w: %w", sourceDir, shipyarderrors.ErrArchiveFailed, err)
	}
	sort.Strings(files)

	ts := info.Timestamp
	if ts.IsZero() {
		ts = b.clock.Now()
	}

	manifest := &domain.ArtifactManifest{
		Name:      info.Name,
		Version:   info.Version(),
		Major:     info.Major,
		Minor:     info.Minor,
		Build:     info.Build,
		Timestamp: ts.UTC(),
		Revision:  info.Revision,
		Branch:    info.Branch,
		Builder:   info.Builder,
		Files:     files,
	}

	b.logger.Debug().
		Str("version", manifest.Version).
		Str("revision", manifest.ShortRevision()).
		Int("files", len(files)).
		Msg("manifest built")

	return manifest, nil
}

func (b *Builder) excluded(rel string) bool {
	base := path.Base(rel)
	for _, glob := range b.excludes {
		if ok, _ := path.Match(glob, rel); ok {
			return true
		}
		if ok, _ := path.Match(glob, base); ok {
			return true
		}
	}
	return false
}

package artifact

import (
	"archive/tar"
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/gzip"

	"github.com/mrz1836/shipyard/internal/constants"
	"github.com/mrz1836/shipyard/internal/domain"
	shipyarderrors "github.com/mrz1836/shipyard/internal/errors"
)

// Archive writes <name>-<shortrev>.tar.gz into outDir containing every file in
// the manifest plus VERSION and MANIFEST, all under a <name>-<shortrev>/ prefix.
// The archive is written to a temporary file and renamed into place.
func (b *Builder) Archive(ctx context.Context, sourceDir string, m *domain.ArtifactManifest, outDir string) (string, error) {
	if err := os.MkdirAll(outDir, 0o750); err != nil {
		return "", fmt.Errorf("create %s: %w: %w", outDir, shipyarderrors.ErrArchiveFailed, err)
	}

	finalPath := filepath.Join(outDir, m.ArchiveName())
	tmp, err := os.CreateTemp(outDir, ".archive-*")
	if err != nil {
		return "", fmt.Errorf("create temp archive: %w: %w", shipyarderrors.ErrArchiveFailed, err)
	}
	tmpPath := tmp.Name()
	defer func() { _ = os.Remove(tmpPath) }()

	if err := b.writeArchive(ctx, tmp, sourceDir, m); err != nil {
		_ = tmp.Close()
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close archive: %w: %w", shipyarderrors.ErrArchiveFailed, err)
	}
	if err := os.Rename(tmpPath, finalPath); err != nil {
		return "", fmt.Errorf("rename archive: %w: %w", shipyarderrors.ErrArchiveFailed, err)
	}

	b.logger.Info().
		Str("archive", finalPath).
		Int("files", len(m.Files)).
		Msg("archive written")

	return finalPath, nil
}

func (b *Builder) writeArchive(ctx context.Context, w io.Writer, sourceDir string, m *domain.ArtifactManifest) error {
	gz, err := gzip.NewWriterLevel(w, gzip.BestCompression)
	if err != nil {
		return fmt.Errorf("gzip writer: %w: %w", shipyarderrors.ErrArchiveFailed, err)
	}
	tw := tar.NewWriter(gz)

	prefix := fmt.Sprintf("%s-%s", m.Name, m.ShortRevision())
	modTime := m.Timestamp

	versionData, err := VersionJSON(m)
	if err != nil {
		return fmt.Errorf("encode version: %w: %w", shipyarderrors.ErrArchiveFailed, err)
	}
	if err := addBytes(tw, path.Join(prefix, constants.VersionFileName), versionData, modTime); err != nil {
		return err
	}
	if err := addBytes(tw, path.Join(prefix, constants.ManifestFileName), ManifestText(m), modTime); err != nil {
		return err
	}

	for _, rel := range m.Files {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := addFile(tw, filepath.Join(sourceDir, filepath.FromSlash(rel)), path.Join(prefix, rel)); err != nil {
			return err
		}
	}

	if err := tw.Close(); err != nil {
		return fmt.Errorf("close tar: %w: %w", shipyarderrors.ErrArchiveFailed, err)
	}
	if err := gz.Close(); err != nil {
		return fmt.Errorf("close gzip: %w: %w", shipyarderrors.ErrArchiveFailed, err)
	}
	return nil
}

func addBytes(tw *tar.Writer, name string, data []byte, modTime time.Time) error {
	hdr := &tar.Header{
		Name:    name,
		Mode:    0o644,
		Size:    int64(len(data)),
		ModTime: modTime,
		Format:  tar.FormatPAX,
	}
	if err := tw.WriteHeader(hdr); err != nil {
		return fmt.Errorf("write header %s: %w: %w", name, shipyarderrors.ErrArchiveFailed, err)
	}
	if _, err := tw.Write(data); err != nil {
		return fmt.Errorf("write %s: %w: %w", name, shipyarderrors.ErrArchiveFailed, err)
	}
	return nil
}

func addFile(tw *tar.Writer, src, name string) error {
	f, err := os.Open(src) //#nosec G304 -- paths come from the manifest walk
	if err != nil {
		return fmt.Errorf("open %s: %w: %w", src, shipyarderrors.ErrArchiveFailed, err)
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat %s: %w: %w", src, shipyarderrors.ErrArchiveFailed, err)
	}

	hdr, err := tar.FileInfoHeader(info, "")
	if err != nil {
		return fmt.Errorf("header %s: %w: %w", src, shipyarderrors.ErrArchiveFailed, err)
	}
	hdr.Name = name
	hdr.Format = tar.FormatPAX
	hdr.Uname, hdr.Gname = "", ""

	if err := tw.WriteHeader(hdr); err != nil {
		return fmt.Errorf("write header %s: %w: %w", name, shipyarderrors.ErrArchiveFailed, err)
	}
	if _, err := io.Copy(tw, f); err != nil {
		return fmt.Errorf("copy %s: %w: %w", src, shipyarderrors.ErrArchiveFailed, err)
	}
	return nil
}

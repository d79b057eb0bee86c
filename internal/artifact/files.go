package artifact

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mrz1836/shipyard/internal/constants"
	"github.com/mrz1836/shipyard/internal/domain"
	shipyarderrors "github.com/mrz1836/shipyard/internal/errors"
)

// versionFile is the on-disk layout of VERSION.
type versionFile struct {
	Version   string `json:"version"`
	Major     int    `json:"major"`
	Minor     int    `json:"minor"`
	Build     int    `json:"build"`
	Timestamp string `json:"timestamp"`
	Revision  string `json:"revision"`
	Branch    string `json:"branch"`
	Builder   string `json:"builder"`
}

// VersionJSON renders the VERSION document for m.
func VersionJSON(m *domain.ArtifactManifest) ([]byte, error) {
	data, err := json.MarshalIndent(versionFile{
		Version:   m.Version,
		Major:     m.Major,
		Minor:     m.Minor,
		Build:     m.Build,
		Timestamp: m.Timestamp.UTC().Format(time.RFC3339),
		Revision:  m.Revision,
		Branch:    m.Branch,
		Builder:   m.Builder,
	}, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// ManifestText renders MANIFEST: one path per line.
func ManifestText(m *domain.ArtifactManifest) []byte {
	if len(m.Files) == 0 {
		return nil
	}
	return []byte(strings.Join(m.Files, "\n") + "\n")
}

// WriteVersionFile writes VERSION into dir and returns its path.
func WriteVersionFile(dir string, m *domain.ArtifactManifest) (string, error) {
	data, err := VersionJSON(m)
	if err != nil {
		return "", fmt.Errorf("encode version: %w: %w", shipyarderrors.ErrArchiveFailed, err)
	}
	return writeFile(dir, constants.VersionFileName, data)
}

// WriteManifestFile writes MANIFEST into dir and returns its path.
func WriteManifestFile(dir string, m *domain.ArtifactManifest) (string, error) {
	return writeFile(dir, constants.ManifestFileName, ManifestText(m))
}

func writeFile(dir, name string, data []byte) (string, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("create %s: %w: %w", dir, shipyarderrors.ErrArchiveFailed, err)
	}
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, data, 0o600); err != nil {
		return "", fmt.Errorf("write %s: %w: %w", name, shipyarderrors.ErrArchiveFailed, err)
	}
	return p, nil
}

package domain

import (
	"fmt"
	"time"

	"github.com/mrz1836/shipyard/internal/constants"
)

// ArtifactManifest describes a built artifact. It is immutable once built.
type ArtifactManifest struct {
	Name      string    `json:"name"`
	Version   string    `json:"version"`
	Major     int       `json:"major"`
	Minor     int       `json:"minor"`
	Build     int       `json:"build"`
	Timestamp time.Time `json:"timestamp"`
	Revision  string    `json:"revision"`
	Branch    string    `json:"branch"`
	Builder   string    `json:"builder"`
	Files     []string  `json:"files"`
}

// ShortRevision returns the abbreviated revision used in paths and names.
func (m *ArtifactManifest) ShortRevision() string {
	return ShortRevision(m.Revision)
}

// ArchiveName returns <name>-<shortrev>.tar.gz.
func (m *ArtifactManifest) ArchiveName() string {
	return fmt.Sprintf("%s-%s%s", m.Name, m.ShortRevision(), constants.ArchiveExtension)
}

// ShortRevision truncates rev to the short revision length.
func ShortRevision(rev string) string {
	if len(rev) <= constants.ShortRevisionLength {
		return rev
	}
	return rev[:constants.ShortRevisionLength]
}

// PublishResult records the outcome of artifact publication.
type PublishResult struct {
	Published   bool   `json:"published"`
	Attempts    int    `json:"attempts"`
	ArchivePath string `json:"archive_path,omitempty"`
	Commit      string `json:"commit,omitempty"`
	Error       string `json:"error,omitempty"`

	// Err is the terminal error when Published is false.
	Err error `json:"-"`
}

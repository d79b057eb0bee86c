// Package constants provides centralized constant values used throughout SHIPYARD.
// This package is the single source of truth for all shared constants and MUST NOT
// import any other internal packages.
package constants

import "time"

// Directory names and paths used by SHIPYARD for organizing data.
const (
	// ShipyardHome is the hidden directory name where SHIPYARD stores its data.
	// It is created in the user's home directory and, for project config, in the project root.
	ShipyardHome = ".shipyard"

	// LogsDir is the directory name where log files are stored.
	LogsDir = "logs"

	// ArtifactsDir is the default directory (relative to the publish repository)
	// that the publisher owns.
	ArtifactsDir = "artifacts"

	// BuildDir is the local scratch directory for archives before publication.
	BuildDir = "build"
)

// Managed systemd units on the target host.
const (
	// DefaultServiceName is the unit that runs the application.
	DefaultServiceName = "blog-app"

	// DefaultDependencyName is the unit the application depends on.
	DefaultDependencyName = "mongod"
)

// Remote execution defaults.
const (
	// DefaultSSHPort is used when a target does not declare a port.
	DefaultSSHPort = 22

	// DefaultConnectTimeout bounds the SSH dial and handshake.
	DefaultConnectTimeout = 10 * time.Second

	// DefaultSyncRetries is the number of additional attempts for the idempotent
	// sync phase when the connection drops.
	DefaultSyncRetries = 2

	// DefaultLogTailLines is how many journal lines are attached to a failure.
	DefaultLogTailLines = 50

	// DefaultDependencyStartWait is the wait after starting a stopped dependency
	// before checking it again.
	DefaultDependencyStartWait = 3 * time.Second
)

// Health verification defaults.
const (
	// DefaultHealthAttempts is the number of health rounds before giving up.
	DefaultHealthAttempts = 5

	// DefaultHealthDelay is the fixed wait between health rounds.
	DefaultHealthDelay = 3 * time.Second

	// DefaultHealthRequestTimeout bounds a single endpoint probe.
	DefaultHealthRequestTimeout = 5 * time.Second

	// DefaultSettleTime is the wait after a restart before the first health round.
	DefaultSettleTime = 10 * time.Second

	// DefaultAppPort is the port the application listens on.
	DefaultAppPort = 5000

	// MetricsMarker must appear in the metrics endpoint body.
	MetricsMarker = "blog_"

	// IndexMarker must appear in the index page body.
	IndexMarker = "<html"

	// MaxBodyExcerpt caps the body excerpt kept for diagnostics.
	MaxBodyExcerpt = 512
)

// Publish defaults.
const (
	// DefaultPublishAttempts is the total number of publish attempts.
	DefaultPublishAttempts = 5

	// DefaultPublishDelay is the fixed wait between publish attempts.
	DefaultPublishDelay = 10 * time.Second

	// DefaultPublishRemote is the remote the publisher pushes to.
	DefaultPublishRemote = "origin"

	// DefaultPublishBranch is the branch the publisher appends to.
	DefaultPublishBranch = "main"

	// MaxRebaseContinues caps how many conflicting commits one rebase may resolve.
	MaxRebaseContinues = 20
)

// Run-level defaults.
const (
	// DefaultRunTimeout is the wall-clock ceiling across all phases of one run.
	DefaultRunTimeout = 15 * time.Minute

	// DefaultConcurrency is how many targets are deployed at the same time.
	DefaultConcurrency = 4

	// DefaultCommandTimeout bounds a single local command.
	DefaultCommandTimeout = 5 * time.Minute

	// DefaultWebhookTimeout bounds the notification POST.
	DefaultWebhookTimeout = 10 * time.Second
)

// Artifact naming.
const (
	// ShortRevisionLength is the number of revision characters used in archive names.
	ShortRevisionLength = 7

	// VersionFileName is the JSON version descriptor inside every archive.
	VersionFileName = "VERSION"

	// ManifestFileName is the plain-text file listing inside every archive.
	ManifestFileName = "MANIFEST"

	// ArchiveExtension is appended to archive names.
	ArchiveExtension = ".tar.gz"

	// EnvFileName is the environment file written on the target.
	EnvFileName = ".env"
)

// Log rotation settings for the CLI log file.
const (
	// LogMaxSizeMB is the size at which the log file is rotated.
	LogMaxSizeMB = 10

	// LogMaxBackups is the number of rotated files kept.
	LogMaxBackups = 5

	// LogMaxAgeDays is the number of days rotated files are kept.
	LogMaxAgeDays = 30

	// LogCompress enables gzip of rotated files.
	LogCompress = true
)

package constants

// Log file names.
const (
	// CLILogFileName is the name of the global CLI log file.
	// This file is located in ~/.shipyard/logs/shipyard.log
	CLILogFileName = "shipyard.log"

	// LockFileName is the lock file the publisher holds inside its clone.
	LockFileName = ".shipyard.lock"
)

// Configuration file names.
const (
	// GlobalConfigName is the name of the global configuration file.
	// This file is located in the SHIPYARD home directory.
	GlobalConfigName = "config.yaml"

	// ProjectConfigName is the name of the project configuration file.
	// This file is located in .shipyard/ under the project root.
	ProjectConfigName = "config.yaml"
)

// EnvPrefix is the prefix for environment variable overrides (SHIPYARD_*).
const EnvPrefix = "SHIPYARD"

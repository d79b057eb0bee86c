package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/mrz1836/shipyard/internal/constants"
	"github.com/mrz1836/shipyard/internal/errors"
)

// GlobalConfigDir returns the path to the global SHIPYARD directory,
// typically ~/.shipyard.
//
// Returns an error if the home directory cannot be determined.
func GlobalConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(err, "failed to get home directory")
	}
	return filepath.Join(home, constants.ShipyardHome), nil
}

// ProjectConfigDir returns the project configuration directory relative
// to the project root.
func ProjectConfigDir() string {
	return constants.ShipyardHome
}

// GlobalConfigPath returns the full path to ~/.shipyard/config.yaml.
func GlobalConfigPath() (string, error) {
	dir, err := GlobalConfigDir()
	if err != nil {
		return "", fmt.Errorf("get global config path: %w", err)
	}
	return filepath.Join(dir, constants.GlobalConfigName), nil
}

// ProjectConfigPath returns .shipyard/config.yaml relative to the project root.
func ProjectConfigPath() string {
	return filepath.Join(ProjectConfigDir(), constants.ProjectConfigName)
}


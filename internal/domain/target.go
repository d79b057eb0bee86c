// Package domain provides shared domain types for SHIPYARD deployments.
//
// This package follows strict import rules:
//   - CAN import: internal/constants, internal/errors, standard library
//   - MUST NOT import: any other internal packages
package domain

import (
	"net"
	"strconv"

	"github.com/mrz1836/shipyard/internal/constants"
)

// DeploymentTarget identifies a host and how to reach it.
// Targets are supplied by configuration and never change during a run.
type DeploymentTarget struct {
	// Name is the label used in logs, metrics and --target selection.
	Name string `json:"name" mapstructure:"name" yaml:"name"`

	// Host is the hostname or IP address.
	Host string `json:"host" mapstructure:"host" yaml:"host"`

	// Port is the SSH port. Zero means 22.
	Port int `json:"port,omitempty" mapstructure:"port" yaml:"port,omitempty"`

	// User is the SSH login user.
	User string `json:"user" mapstructure:"user" yaml:"user"`

	// KeyPath is the private key used for authentication.
	KeyPath string `json:"key_path" mapstructure:"key_path" yaml:"key_path"`

	// AppDir is the application checkout on the remote host.
	AppDir string `json:"app_dir" mapstructure:"app_dir" yaml:"app_dir"`
}

// Address returns host:port for dialing.
func (t DeploymentTarget) Address() string {
	port := t.Port
	if port == 0 {
		port = constants.DefaultSSHPort
	}
	return net.JoinHostPort(t.Host, strconv.Itoa(port))
}

// Label returns the name, falling back to the host.
func (t DeploymentTarget) Label() string {
	if t.Name != "" {
		return t.Name
	}
	return t.Host
}

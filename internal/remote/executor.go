// Package remote runs scripts on deployment targets over SSH.
//
// Each Execute call opens one authenticated channel, streams the script to
// `bash -s` on stdin, and closes the client before returning. A non-zero exit
// status is reported in Result.ExitCode and is not an error; errors are
// reserved for connection, authentication and transport failures.
package remote

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"

	"github.com/mrz1836/shipyard/internal/constants"
	"github.com/mrz1836/shipyard/internal/domain"
	shipyarderrors "github.com/mrz1836/shipyard/internal/errors"
)

// RemoteShell is the command that receives the script on stdin.
const RemoteShell = "bash -s"

// Result is the outcome of a remote script.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Success reports whether the script exited zero.
func (r *Result) Success() bool {
	return r.ExitCode == 0
}

// Output returns stdout and stderr joined for diagnostics.
func (r *Result) Output() string {
	out := strings.TrimSpace(r.Stdout)
	errOut := strings.TrimSpace(r.Stderr)
	switch {
	case out == "":
		return errOut
	case errOut == "":
		return out
	default:
		return out + "\n" + errOut
	}
}

// Executor runs scripts on a target.
type Executor interface {
	Execute(ctx context.Context, target domain.DeploymentTarget, script string) (*Result, error)
}

// SSHExecutor implements Executor with golang.org/x/crypto/ssh.
type SSHExecutor struct {
	connectTimeout time.Duration
	knownHostsPath string
	insecure       bool
	logger         zerolog.Logger
}

// Option configures an SSHExecutor.
type Option func(*SSHExecutor)

// WithConnectTimeout bounds dialing and the SSH handshake.
func WithConnectTimeout(d time.Duration) Option {
	return func(e *SSHExecutor) {
		if d > 0 {
			e.connectTimeout = d
		}
	}
}

// WithKnownHosts sets the known_hosts file used for host key verification.
func WithKnownHosts(path string) Option {
	return func(e *SSHExecutor) {
		e.knownHostsPath = path
	}
}

// WithInsecureIgnoreHostKey disables host key verification.
func WithInsecureIgnoreHostKey(insecure bool) Option {
	return func(e *SSHExecutor) {
		e.insecure = insecure
	}
}

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(e *SSHExecutor) {
		e.logger = logger
	}
}

// NewSSHExecutor creates an SSHExecutor.
func NewSSHExecutor(opts ...Option) *SSHExecutor {
	e := &SSHExecutor{
		connectTimeout: constants.DefaultConnectTimeout,
		logger:         zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute runs script on target and waits for it to finish.
func (e *SSHExecutor) Execute(ctx context.Context, target domain.DeploymentTarget, script string) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	config, err := e.clientConfig(target)
	if err != nil {
		return nil, err
	}

	client, err := e.dial(ctx, target.Address(), config)
	if err != nil {
		return nil, err
	}
	defer func() { _ = client.Close() }()

	session, err := client.NewSession()
	if err != nil {
		return nil, fmt.Errorf("open session on %s: %w: %w", target.Address(), shipyarderrors.ErrConnection, err)
	}
	defer func() { _ = session.Close() }()

	var stdout, stderr bytes.Buffer
	session.Stdin = strings.NewReader(script)
	session.Stdout = &stdout
	session.Stderr = &stderr

	e.logger.Debug().
		Str("target", target.Label()).
		Int("script_bytes", len(script)).
		Msg("running remote script")

	done := make(chan error, 1)
	go func() { done <- session.Run(RemoteShell) }()

	select {
	case <-ctx.Done():
		_ = session.Signal(ssh.SIGKILL)
		_ = client.Close()
		<-done
		return nil, ctx.Err()
	case runErr := <-done:
		result := &Result{Stdout: stdout.String(), Stderr: stderr.String()}
		if runErr == nil {
			return result, nil
		}
		var exitErr *ssh.ExitError
		if errors.As(runErr, &exitErr) {
			result.ExitCode = exitErr.ExitStatus()
			return result, nil
		}
		return nil, fmt.Errorf("run script on %s: %w: %w", target.Address(), shipyarderrors.ErrConnection, runErr)
	}
}

func (e *SSHExecutor) dial(ctx context.Context, addr string, config *ssh.ClientConfig) (*ssh.Client, error) {
	dialer := net.Dialer{Timeout: e.connectTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w: %w", addr, shipyarderrors.ErrConnection, err)
	}

	// The deadline covers the handshake only.
	_ = conn.SetDeadline(time.Now().Add(e.connectTimeout))
	c, chans, reqs, err := ssh.NewClientConn(conn, addr, config)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("handshake with %s: %w: %w", addr, shipyarderrors.ErrConnection, err)
	}
	_ = conn.SetDeadline(time.Time{})

	return ssh.NewClient(c, chans, reqs), nil
}

func (e *SSHExecutor) clientConfig(target domain.DeploymentTarget) (*ssh.ClientConfig, error) {
	if target.User == "" {
		return nil, fmt.Errorf("no ssh user for %s: %w", target.Label(), shipyarderrors.ErrConnection)
	}

	signer, err := loadSigner(target.KeyPath)
	if err != nil {
		return nil, err
	}

	hostKeyCallback, err := e.hostKeyCallback()
	if err != nil {
		return nil, err
	}

	return &ssh.ClientConfig{
		User:            target.User,
		Auth:            []ssh.AuthMethod{ssh.PublicKeys(signer)},
		HostKeyCallback: hostKeyCallback,
		Timeout:         e.connectTimeout,
	}, nil
}

func (e *SSHExecutor) hostKeyCallback() (ssh.HostKeyCallback, error) {
	if e.insecure {
		return ssh.InsecureIgnoreHostKey(), nil //nolint:gosec // opt-in via ssh.insecure_ignore_host_key
	}

	path := e.knownHostsPath
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve known_hosts: %w: %w", shipyarderrors.ErrConnection, err)
		}
		path = filepath.Join(home, ".ssh", "known_hosts")
	}

	callback, err := knownhosts.New(path)
	if err != nil {
		return nil, fmt.Errorf("load known_hosts %s: %w: %w", path, shipyarderrors.ErrConnection, err)
	}
	return callback, nil
}

func loadSigner(keyPath string) (ssh.Signer, error) {
	if keyPath == "" {
		return nil, fmt.Errorf("no ssh key configured: %w", shipyarderrors.ErrConnection)
	}

	pemBytes, err := os.ReadFile(expandHome(keyPath)) //#nosec G304 -- key path comes from operator configuration
	if err != nil {
		return nil, fmt.Errorf("read ssh key: %w: %w", shipyarderrors.ErrConnection, err)
	}

	signer, err := ssh.ParsePrivateKey(pemBytes)
	if err != nil {
		return nil, fmt.Errorf("parse ssh key: %w: %w", shipyarderrors.ErrConnection, err)
	}
	return signer, nil
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}

package remote

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/pem"
	"errors"
	"io"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"

	"github.com/mrz1836/shipyard/internal/domain"
	shipyarderrors "github.com/mrz1836/shipyard/internal/errors"
)

var errUnknownClientKey = errors.New("unknown client key")

type scriptHandler func(command, stdin string) (stdout, stderr string, code uint32)

type testServer struct {
	addr    string
	hostKey ssh.PublicKey

	mu       sync.Mutex
	received []string
}

func (s *testServer) scripts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.received...)
}

func newSigner(t *testing.T) (ssh.Signer, ed25519.PrivateKey) {
	t.Helper()
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	signer, err := ssh.NewSignerFromKey(priv)
	require.NoError(t, err)
	return signer, priv
}

func writeClientKey(t *testing.T, priv ed25519.PrivateKey) string {
	t.Helper()
	block, err := ssh.MarshalPrivateKey(priv, "")
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "id_ed25519")
	require.NoError(t, os.WriteFile(path, pem.EncodeToMemory(block), 0o600))
	return path
}

func writeKnownHosts(t *testing.T, addr string, key ssh.PublicKey) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "known_hosts")
	line := knownhosts.Line([]string{addr}, key) + "\n"
	require.NoError(t, os.WriteFile(path, []byte(line), 0o600))
	return path
}

func startTestServer(t *testing.T, clientKey ssh.PublicKey, handler scriptHandler) *testServer {
	t.Helper()

	hostSigner, _ := newSigner(t)
	config := &ssh.ServerConfig{
		PublicKeyCallback: func(_ ssh.ConnMetadata, key ssh.PublicKey) (*ssh.Permissions, error) {
			if bytes.Equal(key.Marshal(), clientKey.Marshal()) {
				return &ssh.Permissions{}, nil
			}
			return nil, errUnknownClientKey
		},
	}
	config.AddHostKey(hostSigner)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	srv := &testServer{addr: ln.Addr().String(), hostKey: hostSigner.PublicKey()}
	go func() {
		for {
			nc, acceptErr := ln.Accept()
			if acceptErr != nil {
				return
			}
			go srv.serve(nc, config, handler)
		}
	}()
	return srv
}

func (s *testServer) serve(nc net.Conn, config *ssh.ServerConfig, handler scriptHandler) {
	_, chans, reqs, err := ssh.NewServerConn(nc, config)
	if err != nil {
		_ = nc.Close()
		return
	}
	go ssh.DiscardRequests(reqs)

	for newCh := range chans {
		if newCh.ChannelType() != "session" {
			_ = newCh.Reject(ssh.UnknownChannelType, "unsupported")
			continue
		}
		ch, chReqs, acceptErr := newCh.Accept()
		if acceptErr != nil {
			continue
		}
		go func() {
			for req := range chReqs {
				if req.Type != "exec" {
					_ = req.Reply(false, nil)
					continue
				}
				var payload struct{ Command string }
				_ = ssh.Unmarshal(req.Payload, &payload)
				_ = req.Reply(true, nil)

				stdin, _ := io.ReadAll(ch)
				s.mu.Lock()
				s.received = append(s.received, string(stdin))
				s.mu.Unlock()

				stdout, stderr, code := handler(payload.Command, string(stdin))
				_, _ = io.WriteString(ch, stdout)
				_, _ = io.WriteString(ch.Stderr(), stderr)
				_, _ = ch.SendRequest("exit-status", false, ssh.Marshal(struct{ Status uint32 }{code}))
				_ = ch.Close()
				return
			}
		}()
	}
}

func targetFor(t *testing.T, addr, keyPath string) domain.DeploymentTarget {
	t.Helper()
	host, portStr, err := net.SplitHostPort(addr)
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)
	return domain.DeploymentTarget{Name: "test", Host: host, Port: port, User: "deploy", KeyPath: keyPath}
}

func TestSSHExecutor_Execute_StreamsScript(t *testing.T) {
	clientSigner, clientPriv := newSigner(t)
	srv := startTestServer(t, clientSigner.PublicKey(), func(command, stdin string) (string, string, uint32) {
		if command != RemoteShell {
			return "", "unexpected command " + command, 127
		}
		return "ran: " + stdin, "", 0
	})

	exec := NewSSHExecutor(
		WithKnownHosts(writeKnownHosts(t, srv.addr, srv.hostKey)),
		WithConnectTimeout(2*time.Second),
	)

	result, err := exec.Execute(context.Background(), targetFor(t, srv.addr, writeClientKey(t, clientPriv)), "true\n")
	require.NoError(t, err)
	assert.Equal(t, 0, result.ExitCode)
	assert.True(t, result.Success())
	assert.Equal(t, "ran: true\n", result.Stdout)
	assert.Equal(t, []string{"true\n"}, srv.scripts())
}

func TestSSHExecutor_Execute_NonZeroExitIsNotAnError(t *testing.T) {
	clientSigner, clientPriv := newSigner(t)
	srv := startTestServer(t, clientSigner.PublicKey(), func(_, _ string) (string, string, uint32) {
		return "", "Unit blog-app.service could not be found.", 4
	})

	exec := NewSSHExecutor(WithKnownHosts(writeKnownHosts(t, srv.addr, srv.hostKey)))

	result, err := exec.Execute(context.Background(), targetFor(t, srv.addr, writeClientKey(t, clientPriv)), "systemctl cat blog-app")
	require.NoError(t, err)
	assert.Equal(t, 4, result.ExitCode)
	assert.False(t, result.Success())
	assert.Contains(t, result.Stderr, "could not be found")
	assert.Equal(t, "Unit blog-app.service could not be found.", result.Output())
}

func TestSSHExecutor_Execute_InsecureSkipsKnownHosts(t *testing.T) {
	clientSigner, clientPriv := newSigner(t)
	srv := startTestServer(t, clientSigner.PublicKey(), func(_, _ string) (string, string, uint32) {
		return "ok", "", 0
	})

	exec := NewSSHExecutor(
		WithKnownHosts(filepath.Join(t.TempDir(), "missing")),
		WithInsecureIgnoreHostKey(true),
	)

	result, err := exec.Execute(context.Background(), targetFor(t, srv.addr, writeClientKey(t, clientPriv)), "true")
	require.NoError(t, err)
	assert.Equal(t, "ok", result.Stdout)
}

func TestSSHExecutor_Execute_ConnectionErrors(t *testing.T) {
	clientSigner, clientPriv := newSigner(t)
	srv := startTestServer(t, clientSigner.PublicKey(), func(_, _ string) (string, string, uint32) {
		return "", "", 0
	})
	keyPath := writeClientKey(t, clientPriv)

	t.Run("unknown host key", func(t *testing.T) {
		otherHost, _ := newSigner(t)
		exec := NewSSHExecutor(WithKnownHosts(writeKnownHosts(t, srv.addr, otherHost.PublicKey())))

		_, err := exec.Execute(context.Background(), targetFor(t, srv.addr, keyPath), "true")
		require.ErrorIs(t, err, shipyarderrors.ErrConnection)
		assert.Empty(t, srv.scripts())
	})

	t.Run("rejected client key", func(t *testing.T) {
		_, otherPriv := newSigner(t)
		exec := NewSSHExecutor(WithKnownHosts(writeKnownHosts(t, srv.addr, srv.hostKey)))

		_, err := exec.Execute(context.Background(), targetFor(t, srv.addr, writeClientKey(t, otherPriv)), "true")
		require.ErrorIs(t, err, shipyarderrors.ErrConnection)
	})

	t.Run("missing key file", func(t *testing.T) {
		exec := NewSSHExecutor(WithInsecureIgnoreHostKey(true))

		_, err := exec.Execute(context.Background(), targetFor(t, srv.addr, filepath.Join(t.TempDir(), "nope")), "true")
		require.ErrorIs(t, err, shipyarderrors.ErrConnection)
	})

	t.Run("no user", func(t *testing.T) {
		exec := NewSSHExecutor(WithInsecureIgnoreHostKey(true))
		target := targetFor(t, srv.addr, keyPath)
		target.User = ""

		_, err := exec.Execute(context.Background(), target, "true")
		require.ErrorIs(t, err, shipyarderrors.ErrConnection)
	})

	t.Run("unreachable host", func(t *testing.T) {
		ln, err := net.Listen("tcp", "127.0.0.1:0")
		require.NoError(t, err)
		addr := ln.Addr().String()
		require.NoError(t, ln.Close())

		exec := NewSSHExecutor(WithInsecureIgnoreHostKey(true), WithConnectTimeout(time.Second))
		_, err = exec.Execute(context.Background(), targetFor(t, addr, keyPath), "true")
		require.ErrorIs(t, err, shipyarderrors.ErrConnection)
	})
}

func TestSSHExecutor_Execute_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewSSHExecutor().Execute(ctx, domain.DeploymentTarget{Host: "203.0.113.5"}, "true")
	require.ErrorIs(t, err, context.Canceled)
}

func TestResult_Output(t *testing.T) {
	assert.Equal(t, "out", (&Result{Stdout: "out\n"}).Output())
	assert.Equal(t, "err", (&Result{Stderr: "err\n"}).Output())
	assert.Equal(t, "out\nerr", (&Result{Stdout: "out", Stderr: "err"}).Output())
	assert.Empty(t, (&Result{}).Output())
}

func TestQuote(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", "''"},
		{"blog-app", "'blog-app'"},
		{"/srv/blog app", "'/srv/blog app'"},
		{"it's", `'it'\''s'`},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Quote(tt.in))
		})
	}
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(home, ".ssh/id_ed25519"), expandHome("~/.ssh/id_ed25519"))
	assert.Equal(t, "/etc/key", expandHome("/etc/key"))
}

// Package shutdown powers down the repository host over SSH after a run.
package shutdown

import (
	"context"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
	"github.com/safestic/safestic/internal/models"
	"golang.org/x/crypto/ssh"
)

// Service shuts down a remote host.
type Service interface {
	Shutdown(ctx context.Context, cfg models.ShutdownConfig) (*models.ShutdownResult, error)
}

// Session runs one remote command; split out for tests.
type Session interface {
	CombinedOutput(cmd string) ([]byte, error)
	Close() error
}

// Dialer opens an SSH session to a host.
type Dialer interface {
	Dial(ctx context.Context, addr string, config *ssh.ClientConfig) (Session, error)
}

type sshDialer struct{}

func (sshDialer) Dial(ctx context.Context, addr string, config *ssh.ClientConfig) (Session, error) {
	// ssh.Dial has no context support; bound the TCP connect ourselves.
	conn, err := (&net.Dialer{Timeout: config.Timeout}).DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	clientConn, chans, reqs, err := ssh.NewClientConn(conn, addr, config)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	client := ssh.NewClient(clientConn, chans, reqs)
	session, err := client.NewSession()
	if err != nil {
		_ = client.Close()
		return nil, err
	}
	return &clientSession{client: client, session: session}, nil
}

type clientSession struct {
	client  *ssh.Client
	session *ssh.Session
}

func (s *clientSession) CombinedOutput(cmd string) ([]byte, error) {
	return s.session.CombinedOutput(cmd)
}

func (s *clientSession) Close() error {
	_ = s.session.Close()
	return s.client.Close()
}

// Impl implements the shutdown Service.
type Impl struct {
	dialer Dialer
	logger zerolog.Logger
}

// New creates a shutdown service.
func New(logger zerolog.Logger) *Impl {
	return &Impl{dialer: sshDialer{}, logger: logger}
}

// NewWithDialer creates a shutdown service with a custom dialer (for testing).
func NewWithDialer(logger zerolog.Logger, dialer Dialer) *Impl {
	return &Impl{dialer: dialer, logger: logger}
}

// Shutdown schedules a halt on the remote host. The SSH connection commonly
// drops before the command reports back, so a remote-side error after the
// command was sent is logged, not returned.
func (s *Impl) Shutdown(ctx context.Context, cfg models.ShutdownConfig) (*models.ShutdownResult, error) {
	key, err := os.ReadFile(cfg.KeyPath)
	if err != nil {
		return nil, errors.Wrapf(err, "reading SSH key %s", cfg.KeyPath)
	}
	signer, err := ssh.ParsePrivateKey(key)
	if err != nil {
		return nil, errors.Wrap(err, "parsing SSH key")
	}

	sshConfig := &ssh.ClientConfig{
		User:            cfg.Username,
		Auth:            []ssh.AuthMethod{ssh.PublicKeys(signer)},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(), //nolint:gosec // trusted LAN host
		Timeout:         30 * time.Second,
	}

	addr := net.JoinHostPort(cfg.Host, fmt.Sprintf("%d", cfg.Port))
	s.logger.Info().Str("addr", addr).Int("delay_minutes", cfg.DelayMinutes).Msg("scheduling remote shutdown")

	session, err := s.dialer.Dial(ctx, addr, sshConfig)
	if err != nil {
		return nil, errors.Wrapf(err, "connecting to %s", addr)
	}
	defer func() { _ = session.Close() }()

	cmd := "sudo shutdown -h now"
	if cfg.DelayMinutes > 0 {
		cmd = fmt.Sprintf("sudo shutdown -h +%d", cfg.DelayMinutes)
	}

	output, err := session.CombinedOutput(cmd)
	result := &models.ShutdownResult{CommandSent: true, Output: string(output)}
	if err != nil {
		s.logger.Warn().Err(err).Str("output", result.Output).Msg("shutdown command returned an error, host may be halting anyway")
	}
	return result, nil
}

// Package wake brings the repository host online before a backup run.
package wake

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/mdlayher/wol"
	"github.com/rs/zerolog"
	"github.com/safestic/safestic/internal/models"
)

// Service wakes a sleeping repository host.
type Service interface {
	Wake(ctx context.Context, cfg models.WakeConfig) (*models.WakeResult, error)
}

// PacketSender sends the magic packet; split out for tests.
type PacketSender interface {
	Send(broadcastIP string, mac net.HardwareAddr) error
}

// HTTPClient allows mocking the readiness poll.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

type wolSender struct{}

func (wolSender) Send(broadcastIP string, mac net.HardwareAddr) error {
	client, err := wol.NewClient()
	if err != nil {
		return errors.Wrap(err, "creating WOL client")
	}
	defer func() { _ = client.Close() }()

	ip := net.ParseIP(broadcastIP)
	if ip == nil {
		return errors.Newf("invalid broadcast IP %q", broadcastIP)
	}
	// Port 9 is the conventional discard port for magic packets.
	return client.Wake(ip.String()+":9", mac)
}

// Impl implements the wake Service.
type Impl struct {
	sender PacketSender
	http   HTTPClient
	logger zerolog.Logger
}

// New creates a wake service.
func New(logger zerolog.Logger) *Impl {
	return &Impl{
		sender: wolSender{},
		http:   &http.Client{Timeout: 5 * time.Second},
		logger: logger,
	}
}

// NewWithClients creates a wake service with custom clients (for testing).
func NewWithClients(logger zerolog.Logger, sender PacketSender, httpClient HTTPClient) *Impl {
	return &Impl{sender: sender, http: httpClient, logger: logger}
}

// Wake sends the magic packet and, when a poll URL is configured, waits for
// the host to answer before declaring it ready.
func (s *Impl) Wake(ctx context.Context, cfg models.WakeConfig) (*models.WakeResult, error) {
	mac, err := net.ParseMAC(cfg.MACAddress)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid MAC address %q", cfg.MACAddress)
	}

	s.logger.Info().Str("mac", cfg.MACAddress).Str("broadcast", cfg.BroadcastIP).Msg("sending wake packet")
	start := time.Now()

	if err := s.sender.Send(cfg.BroadcastIP, mac); err != nil {
		return nil, errors.Wrap(err, "sending wake packet")
	}
	result := &models.WakeResult{PacketSent: true}

	if cfg.PollURL == "" {
		result.HostReady = true
		result.WaitDuration = time.Since(start)
		return result, nil
	}

	s.logger.Info().Str("url", cfg.PollURL).Dur("timeout", cfg.Timeout).Msg("waiting for host")
	if err := s.waitForHost(ctx, cfg); err != nil {
		result.WaitDuration = time.Since(start)
		return result, err
	}

	if cfg.StabilizeWait > 0 {
		select {
		case <-ctx.Done():
			result.WaitDuration = time.Since(start)
			return result, ctx.Err()
		case <-time.After(cfg.StabilizeWait):
		}
	}

	result.HostReady = true
	result.WaitDuration = time.Since(start)
	s.logger.Info().Dur("duration", result.WaitDuration).Msg("host is ready")
	return result, nil
}

func (s *Impl) waitForHost(ctx context.Context, cfg models.WakeConfig) error {
	deadline := time.Now().Add(cfg.Timeout)
	for {
		if time.Now().After(deadline) {
			return errors.Newf("host at %s did not answer within %s", cfg.PollURL, cfg.Timeout)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, cfg.PollURL, nil)
		if err != nil {
			return errors.Wrap(err, "building poll request")
		}
		resp, err := s.http.Do(req)
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode < 400 {
				return nil
			}
			s.logger.Debug().Int("status", resp.StatusCode).Msg("host answering but not ready")
		} else {
			s.logger.Debug().Err(err).Msg("host not answering yet")
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(cfg.PollInterval):
		}
	}
}

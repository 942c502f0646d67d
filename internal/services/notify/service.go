// Package notify reports run outcomes to a Telegram chat.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
	"github.com/safestic/safestic/internal/models"
)

// Service sends run reports.
type Service interface {
	Send(ctx context.Context, cfg models.TelegramConfig, report models.RunReport) error
}

// HTTPClient allows mocking the Telegram API.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Impl implements the notify Service.
type Impl struct {
	httpClient HTTPClient
	logger     zerolog.Logger
	baseURL    string
}

// New creates a notify service backed by the Telegram Bot API.
func New(logger zerolog.Logger) *Impl {
	return &Impl{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger,
		baseURL:    "https://api.telegram.org",
	}
}

// NewWithClient creates a notify service with a custom HTTP client and base
// URL (for testing).
func NewWithClient(logger zerolog.Logger, httpClient HTTPClient, baseURL string) *Impl {
	return &Impl{httpClient: httpClient, logger: logger, baseURL: baseURL}
}

type sendMessageRequest struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

type sendMessageResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

// Send formats the report and posts it to the configured chat.
func (s *Impl) Send(ctx context.Context, cfg models.TelegramConfig, report models.RunReport) error {
	if cfg.BotToken == "" || cfg.ChatID == "" {
		return errors.New("telegram bot token and chat ID are required")
	}

	body, err := json.Marshal(sendMessageRequest{
		ChatID:    cfg.ChatID,
		Text:      formatMessage(report),
		ParseMode: "HTML",
	})
	if err != nil {
		return errors.Wrap(err, "encoding telegram message")
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", s.baseURL, cfg.BotToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(err, "building telegram request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(err, "sending telegram message")
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "reading telegram response")
	}

	var apiResp sendMessageResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return errors.Wrapf(err, "decoding telegram response (status %d)", resp.StatusCode)
	}
	if !apiResp.OK {
		return errors.Newf("telegram API rejected the message: %s", apiResp.Description)
	}

	s.logger.Info().Str("chat_id", cfg.ChatID).Msg("notification sent")
	return nil
}

func formatMessage(report models.RunReport) string {
	var b strings.Builder

	if report.Success {
		b.WriteString("✅ <b>Backup Successful</b>\n\n")
	} else {
		b.WriteString("❌ <b>Backup Failed</b>\n\n")
	}

	fmt.Fprintf(&b, "<b>Host:</b> %s\n", report.Host)
	fmt.Fprintf(&b, "<b>Repository:</b> %s\n", report.Repository)
	fmt.Fprintf(&b, "<b>Started:</b> %s\n", report.StartTime.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(&b, "<b>Duration:</b> %s\n", report.Duration.Round(time.Second))

	if report.Success {
		if report.SnapshotID != "" {
			fmt.Fprintf(&b, "<b>Snapshot:</b> %s\n", report.SnapshotID)
		}
		fmt.Fprintf(&b, "<b>New files:</b> %d\n", report.FilesNew)
		fmt.Fprintf(&b, "<b>Data added:</b> %s\n", formatBytes(report.DataAdded))
		if report.SnapshotsRemoved > 0 {
			fmt.Fprintf(&b, "<b>Snapshots pruned:</b> %d\n", report.SnapshotsRemoved)
		}
	} else {
		if report.FailedStep != "" {
			fmt.Fprintf(&b, "<b>Failed step:</b> %s\n", report.FailedStep)
		}
		if report.ErrorMessage != "" {
			fmt.Fprintf(&b, "<b>Error:</b> %s\n", report.ErrorMessage)
		}
	}

	return b.String()
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

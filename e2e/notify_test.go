//go:build e2e

package e2e

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/safestic/safestic/internal/models"
	"github.com/safestic/safestic/internal/services/notify"
	"github.com/stretchr/testify/require"
)

// Real Telegram test; sends an actual message to the configured chat.
func TestRealNotify_E2E(t *testing.T) {
	botToken := os.Getenv("TEST_TELEGRAM_BOT_TOKEN")
	if botToken == "" {
		t.Skip("TEST_TELEGRAM_BOT_TOKEN not set")
	}
	chatID := os.Getenv("TEST_TELEGRAM_CHAT_ID")
	if chatID == "" {
		t.Skip("TEST_TELEGRAM_CHAT_ID not set")
	}

	svc := notify.New(testLogger())

	err := svc.Send(context.Background(),
		models.TelegramConfig{BotToken: botToken, ChatID: chatID},
		models.RunReport{
			Success:    true,
			Host:       "e2e-test",
			Repository: "/tmp/e2e-repo",
			StartTime:  time.Now().Add(-90 * time.Second),
			Duration:   90 * time.Second,
			SnapshotID: "e2etest1",
			FilesNew:   1,
			DataAdded:  1024,
		})

	require.NoError(t, err)
}

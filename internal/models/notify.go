package models

import "time"

// TelegramConfig holds Telegram notification settings.
type TelegramConfig struct {
	BotToken string
	ChatID   string
}

// RunReport summarizes one backup run for notification.
type RunReport struct {
	Success    bool
	Host       string
	Repository string
	StartTime  time.Time
	Duration   time.Duration

	SnapshotID string
	DataAdded  int64
	FilesNew   int

	SnapshotsRemoved int

	FailedStep   string
	ErrorMessage string
}

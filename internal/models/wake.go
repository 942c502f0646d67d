package models

import "time"

// WakeConfig wakes the machine hosting the repository before a run.
type WakeConfig struct {
	MACAddress    string
	BroadcastIP   string
	PollURL       string        // polled until the host answers; empty skips polling
	Timeout       time.Duration // max time to wait for the host
	PollInterval  time.Duration
	StabilizeWait time.Duration // extra wait after the host first answers
}

// WakeResult holds the outcome of a wake attempt.
type WakeResult struct {
	PacketSent   bool
	HostReady    bool
	WaitDuration time.Duration
}

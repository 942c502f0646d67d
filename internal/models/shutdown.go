package models

// ShutdownConfig powers down the repository host over SSH after a run.
type ShutdownConfig struct {
	Host     string
	Port     int
	Username string
	KeyPath  string
	// DelayMinutes is passed to the remote shutdown command.
	DelayMinutes int
}

// ShutdownResult holds the outcome of a shutdown attempt. CommandSent is
// true once the command reached the host; the connection often drops before
// the command's own exit status arrives.
type ShutdownResult struct {
	CommandSent bool
	Output      string
}

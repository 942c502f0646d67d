package restic

import (
	"bytes"
	"context"
	"os"
	"os/exec"
)

// CommandExecutor allows mocking exec.Command in tests. Secrets travel only
// through env, never through args.
type CommandExecutor interface {
	// Execute runs a command to completion and returns stdout and stderr
	// separately; stderr drives error classification.
	Execute(ctx context.Context, env []string, name string, args ...string) (stdout, stderr []byte, err error)
	// Start launches a long-running command (restic mount) without waiting.
	Start(ctx context.Context, env []string, name string, args ...string) (Process, error)
}

// Process is a handle to a started subprocess.
type Process interface {
	Wait() error
	Signal(sig os.Signal) error
}

// DefaultExecutor is the default command executor using os/exec.
type DefaultExecutor struct{}

// Execute runs a command with additional environment variables.
func (e *DefaultExecutor) Execute(ctx context.Context, env []string, name string, args ...string) ([]byte, []byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Env = append(os.Environ(), env...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	return stdout.Bytes(), stderr.Bytes(), err
}

// Start launches a command and returns a handle without waiting for it.
func (e *DefaultExecutor) Start(ctx context.Context, env []string, name string, args ...string) (Process, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Env = append(os.Environ(), env...)
	if err := cmd.Start(); err != nil {
		return nil, err
	}
	return &execProcess{cmd: cmd}, nil
}

type execProcess struct {
	cmd *exec.Cmd
}

func (p *execProcess) Wait() error { return p.cmd.Wait() }

func (p *execProcess) Signal(sig os.Signal) error { return p.cmd.Process.Signal(sig) }

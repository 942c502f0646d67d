package restic

import (
	"context"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
)

// MountSession is a running restic mount. The caller owns its lifecycle:
// Unmount must be called to release the FUSE mount and the repository lock.
type MountSession struct {
	Mountpoint string

	proc   Process
	logger zerolog.Logger
}

// Mount exposes the repository as a FUSE filesystem at mountpoint. The call
// returns once the subprocess is started; browsing is available shortly
// after. Requires FUSE support on the host.
func (s *Impl) Mount(ctx context.Context, mountpoint string) (*MountSession, error) {
	if err := os.MkdirAll(mountpoint, 0o750); err != nil {
		return nil, errors.Wrapf(err, "creating mountpoint %s", mountpoint)
	}

	env, err := s.buildEnv(ctx)
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("mountpoint", mountpoint).Msg("mounting repository")
	proc, err := s.executor.Start(ctx, env, "restic", "mount", mountpoint)
	if err != nil {
		return nil, classify(err, nil)
	}

	return &MountSession{Mountpoint: mountpoint, proc: proc, logger: s.logger}, nil
}

// Wait blocks until the mount subprocess exits.
func (m *MountSession) Wait() error {
	return m.proc.Wait()
}

// Unmount interrupts the mount subprocess and waits for it to release the
// mountpoint. Orphaned mount processes would keep holding the repository
// lock, so callers must unmount on every exit path.
func (m *MountSession) Unmount() error {
	m.logger.Info().Str("mountpoint", m.Mountpoint).Msg("unmounting repository")
	if err := m.proc.Signal(os.Interrupt); err != nil {
		return errors.Wrap(err, "signalling mount process")
	}
	// restic exits non-zero when interrupted; the unmount still succeeded.
	_ = m.proc.Wait()
	return nil
}

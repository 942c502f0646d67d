package restic

import (
	"context"

	"github.com/safestic/safestic/internal/models"
	"golang.org/x/sync/errgroup"
)

// Async runs independent engine operations concurrently. Every call is its
// own subprocess with no shared mutable state, so concurrency is safe at
// this level; concurrent writers to one repository are the engine's own
// locking problem, not ours. Cancelling the context kills the subprocesses.
type Async struct {
	svc Service
}

// NewAsync wraps a client for concurrent use.
func NewAsync(svc Service) *Async {
	return &Async{svc: svc}
}

// BackupPathGroups backs up several unrelated source-path groups in
// parallel, one snapshot per group. The first failure cancels the remaining
// groups and is returned.
func (a *Async) BackupPathGroups(ctx context.Context, groups []models.BackupSettings) ([]*models.BackupResult, error) {
	results := make([]*models.BackupResult, len(groups))

	g, ctx := errgroup.WithContext(ctx)
	for i, group := range groups {
		i, group := i, group
		g.Go(func() error {
			result, err := a.svc.Backup(ctx, group)
			if err != nil {
				return err
			}
			results[i] = result
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// Run executes independent operations concurrently and waits for all of
// them; the first error cancels the rest.
func (a *Async) Run(ctx context.Context, ops ...func(context.Context) error) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, op := range ops {
		op := op
		g.Go(func() error { return op(ctx) })
	}
	return g.Wait()
}

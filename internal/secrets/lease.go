package secrets

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"bodhi/pkg/logging"
)

const (
	exclusiveLease = "exclusive"

	defaultLeaseTTL   = 30 * time.Second
	leasePollInterval = 25 * time.Millisecond
)

var errLeaseLost = errors.New("secrets: store lease lost")

// withLease runs fn while this process holds the named lease row. The lease
// is renewed while fn runs; fn's context is cancelled if renewal fails. A
// lease left behind by a crashed process expires after leaseTTL.
func (s *SQLiteStore) withLease(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	owner := uuid.NewString()
	if err := s.acquireLease(ctx, name, owner); err != nil {
		return err
	}

	leaseCtx, cancel := context.WithCancelCause(ctx)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.renewLease(leaseCtx, name, owner, cancel)
	}()

	defer func() {
		cancel(nil)
		wg.Wait()
		s.releaseLease(context.WithoutCancel(ctx), name, owner)
	}()

	return fn(leaseCtx)
}

func (s *SQLiteStore) acquireLease(ctx context.Context, name, owner string) error {
	ticker := time.NewTicker(leasePollInterval)
	defer ticker.Stop()

	for {
		ok, err := s.tryLease(ctx, name, owner)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			return err
		}
		if ok {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// tryLease takes the lease if it is free, expired or already ours, and
// extends it.
func (s *SQLiteStore) tryLease(ctx context.Context, name, owner string) (bool, error) {
	now := time.Now()
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO leases (name, owner, expires_at)
		VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			owner = excluded.owner,
			expires_at = excluded.expires_at
		WHERE leases.expires_at <= ? OR leases.owner = excluded.owner
	`, name, owner, now.Add(s.leaseTTL).UnixMilli(), now.UnixMilli())
	if err != nil {
		return false, &StoreError{Op: "lease", Key: name, Err: err}
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, &StoreError{Op: "lease", Key: name, Err: err}
	}
	return n > 0, nil
}

func (s *SQLiteStore) renewLease(ctx context.Context, name, owner string, cancel context.CancelCauseFunc) {
	ticker := time.NewTicker(s.leaseTTL / 3)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			ok, err := s.tryLease(ctx, name, owner)
			if ctx.Err() != nil {
				return
			}
			if err != nil || !ok {
				logging.Error("Secrets", errors.Join(errLeaseLost, err), "Failed to renew lease %s", name)
				cancel(errLeaseLost)
				return
			}
		}
	}
}

func (s *SQLiteStore) releaseLease(ctx context.Context, name, owner string) {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM leases WHERE name = ? AND owner = ?`, name, owner); err != nil {
		logging.Warn("Secrets", "Failed to release lease %s: %v", name, err)
	}
}

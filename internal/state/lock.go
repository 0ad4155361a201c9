package state

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/cenkalti/backoff/v4"
)

func newLockBackoff(maxElapsed time.Duration) backoff.BackOff {
	// BackOff implementations are stateful; always return a fresh instance.
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 10 * time.Millisecond
	bo.MaxInterval = 250 * time.Millisecond
	bo.MaxElapsedTime = maxElapsed
	return bo
}

// acquireLock takes an exclusive advisory lock on path, retrying while
// another process holds it. The returned func releases the lock.
func acquireLock(ctx context.Context, path string, maxElapsed time.Duration) (func(), error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open lock file: %w", err)
	}

	err = backoff.Retry(func() error {
		err := flockExclusive(f)
		if err != nil && !errors.Is(err, ErrLockBusy) {
			return backoff.Permanent(err)
		}
		return err
	}, backoff.WithContext(newLockBackoff(maxElapsed), ctx))
	if err != nil {
		_ = f.Close()
		if errors.Is(err, ErrLockBusy) {
			return nil, ErrLockBusy
		}
		return nil, fmt.Errorf("acquire lock: %w", err)
	}

	return func() {
		_ = flockUnlock(f)
		_ = f.Close()
	}, nil
}

package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"pos-service/internal/apperr"
	"pos-service/internal/util"
)

// LocalLocker is an in-process keyed mutex. It only serializes callers in
// one process, so it is for single-replica deployments and tests.
type LocalLocker struct {
	mu    sync.Mutex
	locks map[string]chan struct{}
}

// NewLocalLocker creates an empty LocalLocker
func NewLocalLocker() *LocalLocker {
	return &LocalLocker{locks: make(map[string]chan struct{})}
}

// Acquire blocks until key is free or ctx is done
func (l *LocalLocker) Acquire(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	ch, ok := l.locks[key]
	if !ok {
		ch = make(chan struct{}, 1)
		l.locks[key] = ch
	}
	l.mu.Unlock()

	select {
	case ch <- struct{}{}:
		var once sync.Once
		return func() { once.Do(func() { <-ch }) }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func productLockKey(id int64) string {
	return fmt.Sprintf("product:%d", id)
}

func partyLockKey(partyType string, id int64) string {
	return fmt.Sprintf("%s:%d", partyType, id)
}

// lockProducts takes the lock of every distinct product in ascending id
// order and returns a func that releases them all.
func lockProducts(ctx context.Context, locker Locker, productIDs []int64) (func(), error) {
	seen := make(map[int64]bool, len(productIDs))
	ids := make([]int64, 0, len(productIDs))
	for _, id := range productIDs {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = productLockKey(id)
	}
	return acquireAll(ctx, locker, keys)
}

// acquireAll takes keys in the given order. On failure every lock already
// held is released before returning.
func acquireAll(ctx context.Context, locker Locker, keys []string) (func(), error) {
	start := time.Now()
	defer func() {
		util.LockWaitSeconds.Observe(time.Since(start).Seconds())
	}()

	releases := make([]func(), 0, len(keys))
	releaseAll := func() {
		for i := len(releases) - 1; i >= 0; i-- {
			releases[i]()
		}
	}

	for _, key := range keys {
		release, err := locker.Acquire(ctx, key)
		if err != nil {
			releaseAll()
			util.LockFailuresTotal.Inc()
			return nil, apperr.ServerFault("system busy, please retry", err)
		}
		releases = append(releases, release)
	}

	return releaseAll, nil
}

package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
)

const (
	defaultLockTTL          = time.Minute
	defaultLockPollInterval = 25 * time.Millisecond
)

// MemoryIdentityLocker serializes lifecycle work per identity with
// TTL-stamped in-process locks. The TTL bounds how long a crashed or stuck
// holder can wedge an identity.
type MemoryIdentityLocker struct {
	mu    sync.Mutex
	locks map[string]memoryLockEntry
	seq   uint64
	nowFn func() time.Time
	poll  time.Duration
}

// memoryLockEntry stamps each acquisition with an ownership token so a
// handle whose TTL lapsed cannot release a successor's lock.
type memoryLockEntry struct {
	until time.Time
	token uint64
}

func NewMemoryIdentityLocker() *MemoryIdentityLocker {
	return &MemoryIdentityLocker{
		locks: make(map[string]memoryLockEntry),
		nowFn: func() time.Time { return time.Now().UTC() },
		poll:  defaultLockPollInterval,
	}
}

// TryAcquire fails fast with ErrLockBusy while another operation holds the
// identity. Caller-issued operations use this path so concurrent requests
// get an explicit conflict instead of queuing up.
func (l *MemoryIdentityLocker) TryAcquire(_ context.Context, number string, ttl time.Duration) (LockHandle, error) {
	if l == nil {
		return nil, fmt.Errorf("core: identity locker is not configured")
	}
	number = strings.TrimSpace(number)
	if number == "" {
		return nil, fmt.Errorf("core: identity is required for lock acquisition")
	}
	if ttl <= 0 {
		ttl = defaultLockTTL
	}

	now := l.nowFn()
	l.mu.Lock()
	defer l.mu.Unlock()

	if entry, ok := l.locks[number]; ok && now.Before(entry.until) {
		return nil, fmt.Errorf("%w: %q", ErrLockBusy, number)
	}
	l.seq++
	l.locks[number] = memoryLockEntry{until: now.Add(ttl), token: l.seq}
	return &memoryLockHandle{locker: l, number: number, token: l.seq}, nil
}

// Acquire polls until the identity frees or ctx is done. Provider
// notifications use this path; they must land eventually rather than be
// dropped on a transient conflict.
func (l *MemoryIdentityLocker) Acquire(ctx context.Context, number string, ttl time.Duration) (LockHandle, error) {
	if l == nil {
		return nil, fmt.Errorf("core: identity locker is not configured")
	}
	poll := l.poll
	if poll <= 0 {
		poll = defaultLockPollInterval
	}
	for {
		handle, err := l.TryAcquire(ctx, number, ttl)
		if err == nil {
			return handle, nil
		}
		if !errors.Is(err, ErrLockBusy) {
			return nil, err
		}
		if waitErr := waitWithContext(ctx, poll); waitErr != nil {
			return nil, waitErr
		}
	}
}

type memoryLockHandle struct {
	locker *MemoryIdentityLocker
	number string
	token  uint64
	once   sync.Once
}

// Unlock releases the lock only while this handle still owns it. A handle
// whose TTL expired and whose slot was re-acquired must not evict the new
// holder.
func (h *memoryLockHandle) Unlock(_ context.Context) error {
	if h == nil || h.locker == nil {
		return nil
	}
	h.once.Do(func() {
		h.locker.mu.Lock()
		if entry, ok := h.locker.locks[h.number]; ok && entry.token == h.token {
			delete(h.locker.locks, h.number)
		}
		h.locker.mu.Unlock()
	})
	return nil
}

func waitWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

var _ IdentityLocker = (*MemoryIdentityLocker)(nil)

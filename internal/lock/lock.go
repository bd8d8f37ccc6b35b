// Package lock implements the poison-safe timed-acquire locks described in
// spec.md §9: a lock whose holder panicked inside its critical section is
// marked "poisoned" rather than silently unlocked (an error returned from
// the critical section does not poison it), so later acquirers can decide
// whether to recover the guarded
// data, retry, or fail loudly, instead of inheriting corrupted state the
// way a bare sync.Mutex would let them.
//
// Grounded on internal/goalmodel's sync.Mutex-guarded ExecutionContext (the
// same "one mutex per shared object, held only across the mutation" shape)
// generalized to add poison tracking, a context-bound timed Acquire, and a
// contention counter.
package lock

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pocketomega/axon/internal/agenterr"
)

// PoisonPolicy decides what a TimedLock does when Acquire finds the lock
// already poisoned, keyed by how long the lock had been held before it was
// poisoned (spec.md's short/medium/long tiers).
type PoisonPolicy int

const (
	// PolicyRecoverData clears the poison flag and lets the caller proceed,
	// trusting the guarded data is still usable (short/medium holds).
	PolicyRecoverData PoisonPolicy = iota
	// PolicyLogAndFail refuses to clear poison; Acquire returns an error
	// (long holds, where the guarded data is not trusted to be consistent).
	PolicyLogAndFail
)

// longHoldThreshold is the boundary above which a poisoned lock's holder is
// treated as a "long" hold (PolicyLogAndFail) rather than short/medium
// (PolicyRecoverData), per the resolved Open Question in DESIGN.md.
const longHoldThreshold = 300 * time.Second

// Guard is the token returned by Acquire. Release must be called exactly
// once; calling it twice panics, matching sync.Mutex's own double-unlock
// behavior.
type Guard struct {
	lock      *TimedLock
	acquiredAt time.Time
	released  atomic.Bool
}

// Release unlocks the guard. If the critical section panicked before
// calling Release, the deferred recover in Acquire's caller (see the
// Do helper) marks the lock poisoned instead of calling Release normally.
func (g *Guard) Release() {
	if !g.released.CompareAndSwap(false, true) {
		panic("lock: Release called more than once on the same Guard")
	}
	g.lock.release(false)
}

// poison marks the guarded lock poisoned instead of releasing it cleanly.
func (g *Guard) poison() {
	if !g.released.CompareAndSwap(false, true) {
		return
	}
	g.lock.release(true)
}

// TimedLock is a one-permit semaphore with bounded Acquire, poison
// tracking, and a contention counter the ResourceMonitor
// (internal/concurrency) can read to judge load. A channel-based semaphore
// is used instead of sync.Mutex because Acquire must be able to give up and
// return on ctx/timeout without leaving an orphaned goroutine that later
// locks a sync.Mutex nobody will ever unlock.
type TimedLock struct {
	name string

	sem  chan struct{} // capacity 1; holding the single token means "locked"
	meta sync.Mutex    // guards poisoned/heldSince only, never held across a send/receive on sem

	poisoned  bool
	heldSince time.Time

	waiters   atomic.Int64 // goroutines currently blocked in Acquire
	contended atomic.Int64 // cumulative count of Acquire calls that had to wait

	policy func(heldFor time.Duration) PoisonPolicy
}

// New builds a TimedLock identified by name (used only in error messages
// and logging). policy may be nil to use the default tiering: holds under
// longHoldThreshold recover, longer holds fail.
func New(name string, policy func(heldFor time.Duration) PoisonPolicy) *TimedLock {
	if policy == nil {
		policy = defaultPolicy
	}
	sem := make(chan struct{}, 1)
	sem <- struct{}{}
	return &TimedLock{name: name, policy: policy, sem: sem}
}

func defaultPolicy(heldFor time.Duration) PoisonPolicy {
	if heldFor >= longHoldThreshold {
		return PolicyLogAndFail
	}
	return PolicyRecoverData
}

// Acquire blocks until the lock is free, ctx is done, or the timeout
// elapses, whichever comes first. A zero timeout means "no additional
// deadline beyond ctx".
func (l *TimedLock) Acquire(ctx context.Context, timeout time.Duration) (*Guard, error) {
	deadlineCtx := ctx
	var cancel context.CancelFunc
	if timeout > 0 {
		deadlineCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	l.waiters.Add(1)
	defer l.waiters.Add(-1)

	select {
	case <-l.sem:
	default:
		// Would have blocked: record contention, then wait for real.
		l.contended.Add(1)
		select {
		case <-l.sem:
		case <-deadlineCtx.Done():
			return nil, agenterr.Wrap(agenterr.KindLockTimeout, fmt.Sprintf("lock %q: acquire", l.name), deadlineCtx.Err())
		}
	}

	l.meta.Lock()
	if l.poisoned {
		heldFor := time.Since(l.heldSince)
		if l.policy(heldFor) == PolicyLogAndFail {
			l.meta.Unlock()
			l.sem <- struct{}{} // give the token back; we never took the lock
			return nil, agenterr.New(agenterr.KindLockTimeout, fmt.Sprintf("lock %q: poisoned after a %s hold, refusing to recover", l.name, heldFor))
		}
		l.poisoned = false
	}
	l.heldSince = time.Now()
	acquiredAt := l.heldSince
	l.meta.Unlock()

	return &Guard{lock: l, acquiredAt: acquiredAt}, nil
}

func (l *TimedLock) release(poisoned bool) {
	l.meta.Lock()
	l.poisoned = poisoned
	l.meta.Unlock()
	l.sem <- struct{}{}
}

// Contention returns the number of Acquire calls that had to wait for the
// lock to free up, for the ResourceMonitor to factor into load decisions.
func (l *TimedLock) Contention() int64 { return l.contended.Load() }

// Waiters returns the number of goroutines currently blocked in Acquire.
func (l *TimedLock) Waiters() int64 { return l.waiters.Load() }

// Do runs fn while holding the lock, poisoning the lock instead of
// releasing it cleanly if fn panics, then re-panicking so the caller's own
// recovery (if any) still sees the original panic.
func (l *TimedLock) Do(ctx context.Context, timeout time.Duration, fn func() error) (err error) {
	guard, err := l.Acquire(ctx, timeout)
	if err != nil {
		return err
	}

	defer func() {
		if r := recover(); r != nil {
			guard.poison()
			panic(r)
		}
	}()

	err = fn()
	if err != nil {
		// A returned error does not poison the lock: only panics (an
		// unrecoverable break in invariants) do, per spec.md §9.
		guard.Release()
		return err
	}
	guard.Release()
	return nil
}

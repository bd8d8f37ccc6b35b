package lock

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pocketomega/axon/internal/agenterr"
)

func TestTimedLock_AcquireRelease(t *testing.T) {
	l := New("test", nil)
	guard, err := l.Acquire(context.Background(), time.Second)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	guard.Release()

	guard2, err := l.Acquire(context.Background(), time.Second)
	if err != nil {
		t.Fatalf("second Acquire: %v", err)
	}
	guard2.Release()
}

func TestTimedLock_AcquireTimeout(t *testing.T) {
	l := New("test", nil)
	guard, err := l.Acquire(context.Background(), time.Second)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	defer guard.Release()

	_, err = l.Acquire(context.Background(), 20*time.Millisecond)
	if err == nil {
		t.Fatal("expected timeout error, got nil")
	}
	ae, ok := agenterr.As(err)
	if !ok || ae.Kind != agenterr.KindLockTimeout {
		t.Fatalf("expected KindLockTimeout, got %v", err)
	}
}

func TestTimedLock_RecoverPolicyAllowsReacquire(t *testing.T) {
	l := New("test", func(time.Duration) PoisonPolicy { return PolicyRecoverData })

	func() {
		defer func() { recover() }()
		_ = l.Do(context.Background(), time.Second, func() error {
			panic("boom")
		})
	}()

	// Lock should be recoverable under PolicyRecoverData.
	guard, err := l.Acquire(context.Background(), time.Second)
	if err != nil {
		t.Fatalf("expected lock to recover, got error: %v", err)
	}
	guard.Release()
}

func TestTimedLock_LogAndFailPolicyBlocksReacquire(t *testing.T) {
	l := New("test", func(time.Duration) PoisonPolicy { return PolicyLogAndFail })

	func() {
		defer func() { recover() }()
		_ = l.Do(context.Background(), time.Second, func() error {
			panic("boom")
		})
	}()

	_, err := l.Acquire(context.Background(), time.Second)
	if err == nil {
		t.Fatal("expected poisoned lock to refuse acquisition")
	}
}

func TestTimedLock_ReturnedErrorDoesNotPoison(t *testing.T) {
	l := New("test", nil)
	wantErr := errors.New("business error")

	err := l.Do(context.Background(), time.Second, func() error {
		return wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected wrapped business error, got %v", err)
	}

	guard, err := l.Acquire(context.Background(), time.Second)
	if err != nil {
		t.Fatalf("expected lock to remain unpoisoned after a plain error, got %v", err)
	}
	guard.Release()
}

func TestTimedLock_ContentionCounted(t *testing.T) {
	l := New("test", nil)
	guard, err := l.Acquire(context.Background(), time.Second)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}

	done := make(chan struct{})
	go func() {
		g2, err := l.Acquire(context.Background(), time.Second)
		if err == nil {
			g2.Release()
		}
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	guard.Release()
	<-done

	if l.Contention() == 0 {
		t.Fatal("expected contention to be recorded")
	}
}

package instance

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func TestNewValidation(t *testing.T) {
	if _, err := New("", time.Second); err == nil {
		t.Error("Expected error for empty path, got nil")
	}
	if _, err := New(filepath.Join(t.TempDir(), "salve.lock"), -time.Second); err == nil {
		t.Error("Expected error for negative timeout, got nil")
	}
}

func TestAcquireCreatesParentDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run", "salve", "salve.lock")

	lock, err := New(path, 0)
	if err != nil {
		t.Fatalf("Failed to create lock: %v", err)
	}
	if err := lock.Acquire(context.Background()); err != nil {
		t.Fatalf("Failed to acquire lock: %v", err)
	}
	defer lock.Release()

	if lock.Path() != path {
		t.Errorf("Expected path %s, got %s", path, lock.Path())
	}
}

func TestSecondInstanceIsRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "salve.lock")

	first, err := New(path, 0)
	if err != nil {
		t.Fatalf("Failed to create lock: %v", err)
	}
	if err := first.Acquire(context.Background()); err != nil {
		t.Fatalf("Failed to acquire first lock: %v", err)
	}
	defer first.Release()

	second, err := New(path, 0)
	if err != nil {
		t.Fatalf("Failed to create lock: %v", err)
	}
	err = second.Acquire(context.Background())
	if !errors.Is(err, ErrLocked) {
		t.Fatalf("Expected ErrLocked, got: %v", err)
	}
}

func TestAcquireTimesOutWhileHeld(t *testing.T) {
	path := filepath.Join(t.TempDir(), "salve.lock")

	holder, _ := New(path, 0)
	if err := holder.Acquire(context.Background()); err != nil {
		t.Fatalf("Failed to acquire holder lock: %v", err)
	}
	defer holder.Release()

	waiter, _ := New(path, 50*time.Millisecond)
	start := time.Now()
	err := waiter.Acquire(context.Background())
	if !errors.Is(err, ErrLocked) {
		t.Fatalf("Expected ErrLocked, got: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 50*time.Millisecond {
		t.Errorf("Expected to wait for the timeout, returned after %v", elapsed)
	}
}

func TestAcquireAfterRelease(t *testing.T) {
	path := filepath.Join(t.TempDir(), "salve.lock")

	first, _ := New(path, 0)
	if err := first.Acquire(context.Background()); err != nil {
		t.Fatalf("Failed to acquire first lock: %v", err)
	}

	second, _ := New(path, time.Second)
	go func() {
		time.Sleep(20 * time.Millisecond)
		first.Release()
	}()

	if err := second.Acquire(context.Background()); err != nil {
		t.Fatalf("Expected lock after release, got: %v", err)
	}
	second.Release()
}

// Package testutil provides helpers for tests that wait on asynchronous work,
// such as results delivered by the evaluation worker.
package testutil

import (
	"context"
	"fmt"
	"testing"
	"time"
)

// Poll checks condition every interval until it holds, ctx is done or
// timeout elapses.
func Poll(ctx context.Context, condition func() bool, timeout time.Duration, interval time.Duration) error {
	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if condition() {
			return nil
		}
		if !time.Now().Before(deadline) {
			return fmt.Errorf("timeout waiting for condition (threshold: %v)", timeout)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// WaitForState polls getter until predicate accepts its value. The zero
// value is returned with the error on timeout or cancellation.
//
//	n, err := WaitForState(ctx, store.Len,
//		func(n int) bool { return n == 2 },
//		time.Second,
//		5*time.Millisecond)
func WaitForState[T any](ctx context.Context, getter func() T, predicate func(T) bool, timeout time.Duration, interval time.Duration) (T, error) {
	var last T
	err := Poll(ctx, func() bool {
		last = getter()
		return predicate(last)
	}, timeout, interval)
	if err != nil {
		var zero T
		return zero, fmt.Errorf("waiting for state of type %T: %w", zero, err)
	}
	return last, nil
}

// Receive waits up to timeout for a value on ch, failing the test otherwise.
func Receive[T any](t testing.TB, ch <-chan T, timeout time.Duration) T {
	t.Helper()
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case v := <-ch:
		return v
	case <-timer.C:
		t.Fatalf("no value received within %v", timeout)
		var zero T
		return zero
	}
}

// NotReceived fails the test if ch yields a value within wait.
func NotReceived[T any](t testing.TB, ch <-chan T, wait time.Duration) {
	t.Helper()
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case v := <-ch:
		t.Fatalf("unexpected value received: %v", v)
	case <-timer.C:
	}
}

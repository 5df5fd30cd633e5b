package testutil

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoll_ConditionBecomesTrue(t *testing.T) {
	var calls int
	err := Poll(context.Background(), func() bool {
		calls++
		return calls >= 3
	}, time.Second, time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestPoll_Timeout(t *testing.T) {
	err := Poll(context.Background(), func() bool { return false }, 20*time.Millisecond, time.Millisecond)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timeout waiting for condition")
}

func TestPoll_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Poll(ctx, func() bool { return false }, time.Second, time.Millisecond)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWaitForState(t *testing.T) {
	var n atomic.Int32
	go func() {
		for i := 0; i < 5; i++ {
			n.Add(1)
			time.Sleep(time.Millisecond)
		}
	}()
	got, err := WaitForState(context.Background(), n.Load,
		func(v int32) bool { return v == 5 }, ResultTimeout, PollInterval)
	require.NoError(t, err)
	assert.Equal(t, int32(5), got)

	got, err = WaitForState(context.Background(), func() int32 { return 1 },
		func(v int32) bool { return v == 2 }, 10*time.Millisecond, time.Millisecond)
	require.Error(t, err)
	assert.Zero(t, got)
}

func TestReceive(t *testing.T) {
	ch := make(chan string, 1)
	ch <- "4"
	assert.Equal(t, "4", Receive(t, ch, time.Second))
	NotReceived(t, ch, 10*time.Millisecond)
}

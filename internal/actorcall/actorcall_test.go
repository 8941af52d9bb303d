package actorcall

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func testLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l.WithField("test", true)
}

func TestCallPassesThroughApplicationError(t *testing.T) {
	_, err := Call(context.Background(), testLogger(), "bet", func(ctx context.Context) (int, error) {
		return 0, NewError(IllegalBet, "bet below minimum")
	})
	ae, ok := AsActorError(err)
	require.True(t, ok)
	require.Equal(t, IllegalBet, ae.Kind)
}

func TestCallWrapsTransportFailureAsCanisterCallError(t *testing.T) {
	_, err := Call(context.Background(), testLogger(), "join_table", func(ctx context.Context) (int, error) {
		return 0, errors.New("connection reset")
	})
	ae, ok := AsActorError(err)
	require.True(t, ok)
	require.Equal(t, CanisterCallError, ae.Kind)
}

func TestCallReturnsResultOnSuccess(t *testing.T) {
	v, err := Call(context.Background(), testLogger(), "get_table", func(ctx context.Context) (int, error) {
		return 42, nil
	})
	require.NoError(t, err)
	require.Equal(t, 42, v)
}

func TestSequenceGuardDetectsDuplicates(t *testing.T) {
	var g SequenceGuard
	require.False(t, g.Seen("deposit_to_table", "seq-1"))
	require.True(t, g.Seen("deposit_to_table", "seq-1"))
	require.False(t, g.Seen("deposit_to_table", "seq-2"))
	require.False(t, g.Seen("join_table", "seq-1"))
}

func TestWithRetryStopsOnNonRetryableError(t *testing.T) {
	attempts := 0
	_, err := WithRetry(context.Background(), testLogger(), "bet", DefaultBalancerRetry, func(ctx context.Context) (int, error) {
		attempts++
		return 0, NewError(InsufficientFunds, "")
	})
	require.Error(t, err)
	require.Equal(t, 1, attempts)
}

func TestWithRetryRetriesRetryableErrorUntilSuccess(t *testing.T) {
	attempts := 0
	policy := RetryPolicy{MaxAttempts: 5, Backoff: time.Millisecond}
	v, err := WithRetry(context.Background(), testLogger(), "leave_table_for_table_balancing", policy, func(ctx context.Context) (int, error) {
		attempts++
		if attempts < 3 {
			return 0, NewError(CanisterCallError, "seat race")
		}
		return 7, nil
	})
	require.NoError(t, err)
	require.Equal(t, 7, v)
	require.Equal(t, 3, attempts)
}

func TestWithRetryExhaustsAttempts(t *testing.T) {
	attempts := 0
	policy := RetryPolicy{MaxAttempts: 3, Backoff: time.Millisecond}
	_, err := WithRetry(context.Background(), testLogger(), "leave_table_for_table_balancing", policy, func(ctx context.Context) (int, error) {
		attempts++
		return 0, NewError(LockError, "busy")
	})
	require.Error(t, err)
	require.Equal(t, 3, attempts)
}

func TestWorkQueueDrainsEnqueuedItems(t *testing.T) {
	q := NewWorkQueue(context.Background(), testLogger(), 4, 2)
	defer q.Close()

	done := make(chan struct{}, 1)
	ok := q.Enqueue(WorkItem{Op: "pause_table", Do: func(ctx context.Context) error {
		done <- struct{}{}
		return nil
	}})
	require.True(t, ok)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("work item never ran")
	}
}

func TestWorkQueueRejectsWhenFull(t *testing.T) {
	q := NewWorkQueue(context.Background(), testLogger(), 1, 0)
	defer q.Close()

	require.True(t, q.Enqueue(WorkItem{Op: "a", Do: func(ctx context.Context) error { return nil }}))
	require.False(t, q.Enqueue(WorkItem{Op: "b", Do: func(ctx context.Context) error { return nil }}))
}

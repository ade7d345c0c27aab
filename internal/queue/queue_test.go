// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

package queue

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMemoryQueueRoundTrip(t *testing.T) {
	q := NewMemoryQueue(8)
	defer q.Close()
	ctx := context.Background()

	job := &Job{
		ID:      "job-1",
		Op:      "contains",
		String:  "handle-s",
		Pattern: "handle-p",
	}
	require.NoError(t, q.Push(ctx, job))
	require.Equal(t, StatusPending, job.Status)
	require.False(t, job.CreatedAt.IsZero())

	got, err := q.Pop(ctx)
	require.NoError(t, err)
	require.Equal(t, "job-1", got.ID)
	require.Equal(t, "contains", got.Op)
	require.Equal(t, "handle-s", got.String)
	require.Equal(t, "handle-p", got.Pattern)

	got.Status = StatusDone
	got.Found = "handle-b"
	require.NoError(t, q.Update(ctx, got))

	final, err := q.Get(ctx, "job-1")
	require.NoError(t, err)
	require.Equal(t, StatusDone, final.Status)
	require.Equal(t, "handle-b", final.Found)
}

func TestMemoryQueueOrder(t *testing.T) {
	q := NewMemoryQueue(8)
	defer q.Close()
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, q.Push(ctx, &Job{ID: id, Op: "upper", String: "h"}))
	}
	for _, want := range []string{"a", "b", "c"} {
		job, err := q.Pop(ctx)
		require.NoError(t, err)
		require.Equal(t, want, job.ID)
	}
}

func TestMemoryQueueGetCopies(t *testing.T) {
	q := NewMemoryQueue(1)
	defer q.Close()
	ctx := context.Background()

	job := &Job{ID: "j", Op: "split", String: "h", Pattern: "p", Results: []string{"r0"}}
	require.NoError(t, q.Push(ctx, job))

	// Mutating a fetched copy must not affect the stored job.
	got, err := q.Get(ctx, "j")
	require.NoError(t, err)
	got.Results[0] = "mutated"
	got.Status = StatusFailed

	again, err := q.Get(ctx, "j")
	require.NoError(t, err)
	require.Equal(t, []string{"r0"}, again.Results)
	require.Equal(t, StatusPending, again.Status)
}

func TestMemoryQueuePopBlocks(t *testing.T) {
	q := NewMemoryQueue(1)
	defer q.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := q.Pop(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestMemoryQueueNotFound(t *testing.T) {
	q := NewMemoryQueue(1)
	defer q.Close()
	ctx := context.Background()

	_, err := q.Get(ctx, "nope")
	require.ErrorIs(t, err, ErrJobNotFound)
	require.ErrorIs(t, q.Update(ctx, &Job{ID: "nope"}), ErrJobNotFound)
}

func TestMemoryQueueClosed(t *testing.T) {
	q := NewMemoryQueue(1)
	require.NoError(t, q.Close())
	require.NoError(t, q.Close())

	ctx := context.Background()
	require.ErrorIs(t, q.Push(ctx, &Job{ID: "x"}), ErrQueueClosed)
	_, err := q.Pop(ctx)
	require.ErrorIs(t, err, ErrQueueClosed)
}

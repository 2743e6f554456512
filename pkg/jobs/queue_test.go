package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueRetriesThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	done := make(chan struct{})
	q := NewQueue("exports", func(_ context.Context, j Job) error {
		if calls.Add(1) < 3 {
			return errors.New("render failed")
		}
		close(done)
		return nil
	}, QueueConfig{MaxRetries: 3, RetryDelay: 5 * time.Millisecond})

	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{ID: "job-1", Type: "applications"}))
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("job did not complete")
	}
	assert.Equal(t, int32(3), calls.Load())
}

func TestQueueFailureHook(t *testing.T) {
	failed := make(chan Job, 1)
	q := NewQueue("exports", func(context.Context, Job) error {
		return errors.New("always")
	}, QueueConfig{
		MaxRetries: 1,
		RetryDelay: time.Millisecond,
		OnFailure:  func(_ context.Context, j Job, _ error) { failed <- j },
	})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{ID: "job-2"}))
	select {
	case j := <-failed:
		assert.Equal(t, "job-2", j.ID)
		assert.Equal(t, 2, j.Attempt)
	case <-time.After(time.Second):
		t.Fatal("failure hook not called")
	}
}

func TestEnqueueBeforeStart(t *testing.T) {
	q := NewQueue("exports", func(context.Context, Job) error { return nil }, QueueConfig{})
	err := q.Enqueue(Job{ID: "x"})
	assert.ErrorIs(t, err, ErrNotRunning)
}

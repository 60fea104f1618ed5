package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnqueueRunsOnWorker(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	svc := New(4)
	svc.Start(ctx)

	var runs atomic.Int32
	for i := 0; i < 3; i++ {
		svc.Enqueue(JobNotify, "a1", func(context.Context) error {
			runs.Add(1)
			return nil
		})
	}
	svc.Enqueue(JobNotify, "a1", func(context.Context) error { return errors.New("smtp down") })
	svc.Enqueue(JobAudit, "a1", func(context.Context) error { panic("boom") })
	svc.Drain()
	assert.Equal(t, int32(3), runs.Load())

	cancel()
	svc.Wait()
}

func TestEnqueueDropsWhenFull(t *testing.T) {
	svc := New(1)
	svc.Enqueue(JobNotify, "a", func(context.Context) error { return nil })
	svc.Enqueue(JobNotify, "b", func(context.Context) error { return nil })
	assert.Len(t, svc.queue, 1)
}

func TestRunNowReturnsError(t *testing.T) {
	svc := New(1)
	want := errors.New("failed")
	err := svc.RunNow(context.Background(), JobAudit, "a", func(context.Context) error { return want })
	require.ErrorIs(t, err, want)
}

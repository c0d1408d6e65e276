package worker_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/dfarias/chessinsight/internal/worker"
)

type countingJob struct {
	runs atomic.Int64
	done chan struct{}
	err  error
}

func (j *countingJob) Name() string { return "counting" }

func (j *countingJob) Run(ctx context.Context) error {
	j.runs.Add(1)
	if j.done != nil {
		close(j.done)
	}
	return j.err
}

func TestPoolRunsSubmittedJobs(t *testing.T) {
	pool := worker.NewPool(2, 8)
	pool.Start(context.Background())
	defer pool.Stop()

	job := &countingJob{done: make(chan struct{})}
	pool.Submit(job)

	select {
	case <-job.done:
	case <-time.After(2 * time.Second):
		t.Fatal("job was not executed")
	}
	assert.Equal(t, int64(1), job.runs.Load())
}

func TestPoolSurvivesJobFailure(t *testing.T) {
	pool := worker.NewPool(1, 8)
	pool.Start(context.Background())
	defer pool.Stop()

	pool.Submit(&countingJob{err: errors.New("boom")})

	job := &countingJob{done: make(chan struct{})}
	pool.Submit(job)
	select {
	case <-job.done:
	case <-time.After(2 * time.Second):
		t.Fatal("pool stopped processing after a failed job")
	}
}

func TestTrySubmit(t *testing.T) {
	pool := worker.NewPool(1, 1)
	// Not started: the queue fills and further submissions are rejected.
	assert.True(t, pool.TrySubmit(&countingJob{}))
	assert.False(t, pool.TrySubmit(&countingJob{}))
	assert.Equal(t, 1, pool.QueueSize())
}

func TestPoolStopDrains(t *testing.T) {
	pool := worker.NewPool(1, 4)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	pool.Start(ctx)

	job := &countingJob{done: make(chan struct{})}
	pool.Submit(job)
	<-job.done
	pool.Stop()
}

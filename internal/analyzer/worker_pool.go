package analyzer

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/anime-shed/leaf-health-go/internal/logger"
)

// ErrPoolClosed is returned when submitting to a closed pool.
var ErrPoolClosed = errors.New("worker pool is closed")

// PoolStats is a snapshot of pool counters.
type PoolStats struct {
	Workers       int   `json:"workers"`
	TotalJobs     int64 `json:"total_jobs"`
	CompletedJobs int64 `json:"completed_jobs"`
	ActiveWorkers int64 `json:"active_workers"`
}

// WorkerPool bounds how many CPU-heavy jobs (inference, segmentation) run at once
type WorkerPool struct {
	workers  int
	jobQueue chan func()
	wg       sync.WaitGroup
	once     sync.Once

	mu     sync.RWMutex
	closed bool

	totalJobs     atomic.Int64
	completedJobs atomic.Int64
	activeWorkers atomic.Int64
}

// NewWorkerPool creates a new worker pool with the specified number of workers
func NewWorkerPool(workers int) *WorkerPool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	return &WorkerPool{
		workers:  workers,
		jobQueue: make(chan func(), workers*2),
	}
}

// Start initializes and starts all workers in the pool
func (wp *WorkerPool) Start() {
	wp.once.Do(func() {
		for i := 0; i < wp.workers; i++ {
			go wp.worker()
		}
	})
}

// worker processes jobs from the job queue
func (wp *WorkerPool) worker() {
	for job := range wp.jobQueue {
		job()
	}
}

// Submit queues a job and reports whether it was accepted.
func (wp *WorkerPool) Submit(job func()) bool {
	return wp.submit(context.Background(), job) == nil
}

// Go queues job and returns a channel that is closed once job has run. It
// fails if the pool is closed or ctx ends before a queue slot frees up.
func (wp *WorkerPool) Go(ctx context.Context, job func()) (<-chan struct{}, error) {
	done := make(chan struct{})
	if err := wp.submit(ctx, func() {
		defer close(done)
		job()
	}); err != nil {
		return nil, err
	}
	return done, nil
}

// Do runs job on the pool and waits for it. If ctx ends first, Do returns
// ctx.Err() and the job, when already queued, still runs to completion.
func (wp *WorkerPool) Do(ctx context.Context, job func()) error {
	done, err := wp.Go(ctx, job)
	if err != nil {
		return err
	}

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (wp *WorkerPool) submit(ctx context.Context, job func()) error {
	wp.Start()

	wp.mu.RLock()
	defer wp.mu.RUnlock()
	if wp.closed {
		return ErrPoolClosed
	}

	wp.wg.Add(1)
	wp.totalJobs.Add(1)
	wrapped := func() {
		wp.activeWorkers.Add(1)
		defer func() {
			if r := recover(); r != nil {
				logger.WithField("panic", fmt.Sprint(r)).Error("Worker job panicked")
			}
			wp.activeWorkers.Add(-1)
			wp.completedJobs.Add(1)
			wp.wg.Done()
		}()
		job()
	}

	select {
	case wp.jobQueue <- wrapped:
		return nil
	case <-ctx.Done():
		wp.totalJobs.Add(-1)
		wp.wg.Done()
		return ctx.Err()
	}
}

// Wait waits for all submitted jobs to complete
func (wp *WorkerPool) Wait() {
	wp.wg.Wait()
}

// GetStats returns the current counters.
func (wp *WorkerPool) GetStats() PoolStats {
	return PoolStats{
		Workers:       wp.workers,
		TotalJobs:     wp.totalJobs.Load(),
		CompletedJobs: wp.completedJobs.Load(),
		ActiveWorkers: wp.activeWorkers.Load(),
	}
}

// Close shuts down the worker pool. Queued jobs still run.
func (wp *WorkerPool) Close() {
	wp.mu.Lock()
	defer wp.mu.Unlock()
	if wp.closed {
		return
	}
	wp.closed = true
	close(wp.jobQueue)
}

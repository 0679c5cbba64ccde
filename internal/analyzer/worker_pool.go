package analyzer

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"github.com/sirupsen/logrus"

	apperrors "go-capture-inspector/internal/errors"
	"go-capture-inspector/internal/logger"
)

// WorkerPool bounds the number of captures analysed at once.
type WorkerPool struct {
	workers  int
	jobQueue chan func()
	wg       sync.WaitGroup
	once     sync.Once
	closed   sync.Once
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

// Workers is the number of concurrent workers.
func (wp *WorkerPool) Workers() int {
	return wp.workers
}

// Start initializes and starts all workers in the pool
func (wp *WorkerPool) Start() {
	wp.once.Do(func() {
		for i := 0; i < wp.workers; i++ {
			go wp.worker()
		}
	})
}

func (wp *WorkerPool) worker() {
	for job := range wp.jobQueue {
		wp.run(job)
	}
}

// run keeps a panicking job from taking its worker down.
func (wp *WorkerPool) run(job func()) {
	defer wp.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			logger.WithFields(logrus.Fields{"panic": r}).Error("Worker job panicked")
		}
	}()
	job()
}

// Submit adds a job to the worker pool queue
func (wp *WorkerPool) Submit(job func()) {
	wp.wg.Add(1)
	wp.jobQueue <- job
}

// Do queues job and waits until it finishes or ctx is done. On ctx expiry
// the job may still run to completion; its effects must be discarded by the
// caller. A panicking job yields an InternalError.
func (wp *WorkerPool) Do(ctx context.Context, job func()) error {
	done := make(chan struct{})
	var jobErr error
	wrapped := func() {
		defer close(done)
		defer func() {
			if r := recover(); r != nil {
				logger.WithFields(logrus.Fields{"panic": r}).Error("Worker job panicked")
				jobErr = apperrors.NewInternalError("analysis job panicked", fmt.Errorf("%v", r))
			}
		}()
		job()
	}

	wp.wg.Add(1)
	select {
	case wp.jobQueue <- wrapped:
	case <-ctx.Done():
		wp.wg.Done()
		return ctx.Err()
	}

	select {
	case <-done:
		return jobErr
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Wait waits for all submitted jobs to complete
func (wp *WorkerPool) Wait() {
	wp.wg.Wait()
}

// Close shuts down the worker pool. It is safe to call more than once.
func (wp *WorkerPool) Close() {
	wp.closed.Do(func() {
		close(wp.jobQueue)
	})
}

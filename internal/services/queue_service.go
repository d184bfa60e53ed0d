package services

import (
	"context"
	"fmt"
	"sync"

	"wayfarer/internal/logger"
)

// QueueService runs submitted jobs one at a time on a single writer goroutine,
// in submission order. The session store routes every mutation through it.
// A job must not submit to the same queue.
type QueueService struct {
	initialized bool
	jobs        chan queuedJob
	stop        chan struct{}
	stopped     chan struct{}
	closeOnce   sync.Once
	mu          sync.RWMutex
	closed      bool
}

type queuedJob struct {
	fn   func() error
	done chan error
}

// NewQueueService creates a new queue service instance
func NewQueueService() *QueueService {
	return &QueueService{}
}

// Name returns the service name for registry
func (q *QueueService) Name() string {
	return "queue"
}

// Initialize starts the writer goroutine.
func (q *QueueService) Initialize() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.initialized {
		return nil
	}

	q.jobs = make(chan queuedJob)
	q.stop = make(chan struct{})
	q.stopped = make(chan struct{})
	go q.run()

	q.initialized = true
	logger.Debug("QueueService initialized")
	return nil
}

func (q *QueueService) run() {
	defer close(q.stopped)
	for {
		select {
		case job := <-q.jobs:
			job.done <- job.fn()
		case <-q.stop:
			return
		}
	}
}

// Submit runs fn on the writer goroutine and returns its error. If ctx ends
// before fn is picked up, fn is not run and ctx.Err() is returned. Once
// picked up, fn always runs to completion.
func (q *QueueService) Submit(ctx context.Context, fn func() error) error {
	q.mu.RLock()
	if !q.initialized {
		q.mu.RUnlock()
		return fmt.Errorf("queue service not initialized")
	}
	if q.closed {
		q.mu.RUnlock()
		return fmt.Errorf("queue service closed")
	}
	jobs, stop := q.jobs, q.stop
	q.mu.RUnlock()

	job := queuedJob{fn: fn, done: make(chan error, 1)}
	select {
	case jobs <- job:
	case <-ctx.Done():
		return ctx.Err()
	case <-stop:
		return fmt.Errorf("queue service closed")
	}
	return <-job.done
}

// Close stops the writer goroutine after the running job finishes.
func (q *QueueService) Close() {
	q.closeOnce.Do(func() {
		q.mu.Lock()
		q.closed = true
		initialized := q.initialized
		q.mu.Unlock()
		if initialized {
			close(q.stop)
			<-q.stopped
		}
	})
}

package tasks

import (
	"context"
	"errors"
	"sync"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"github.com/docintel/backend/pkg/logger"
)

// Job is a unit of scheduled work. It receives a background context: jobs
// are never cancelled mid-flight, callers observe terminal state by
// polling.
type Job func(ctx context.Context)

// Scheduler accepts jobs for execution outside the request path. Jobs
// beyond worker capacity queue rather than being rejected.
type Scheduler interface {
	Submit(job Job) error
	Release()
}

var ErrSchedulerClosed = errors.New("scheduler is closed")

// Pool runs jobs on a bounded ants worker pool fed from a buffered queue.
// Submission returns as soon as the job is enqueued; the dispatcher applies
// backpressure against the pool, not against the caller.
type Pool struct {
	pool  *ants.Pool
	queue chan Job

	// mu guards closed; Submit holds the read side across the enqueue so
	// Release never closes the queue under an in-flight send.
	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

func NewPool(workers, queueSize int) (*Pool, error) {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 1 {
		queueSize = 1
	}

	antsPool, err := ants.NewPool(workers)
	if err != nil {
		return nil, err
	}

	p := &Pool{
		pool:  antsPool,
		queue: make(chan Job, queueSize),
	}

	p.wg.Add(1)
	go p.dispatch()

	logger.Info("Worker pool initialized",
		zap.Int("workers", workers),
		zap.Int("queue_size", queueSize),
	)

	return p, nil
}

func (p *Pool) Submit(job Job) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return ErrSchedulerClosed
	}

	p.wg.Add(1)
	p.queue <- job
	return nil
}

func (p *Pool) dispatch() {
	defer p.wg.Done()

	for job := range p.queue {
		job := job
		// Blocks when every worker slot is busy, draining the queue as
		// slots free up.
		err := p.pool.Submit(func() {
			defer p.wg.Done()
			job(context.Background())
		})
		if err != nil {
			logger.Error("Failed to hand job to worker pool", zap.Error(err))
			p.wg.Done()
		}
	}
}

// Release stops accepting jobs, waits for queued and running jobs to
// finish, then tears the pool down.
func (p *Pool) Release() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.mu.Unlock()

	close(p.queue)
	p.wg.Wait()
	p.pool.Release()
}

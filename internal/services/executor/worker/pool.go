package worker

import (
	"context"
	"errors"
	"sync"

	"github.com/hookflow/hookflow/pkg/logger"
	"github.com/hookflow/hookflow/pkg/metrics"
)

// ErrQueueFull is returned by Submit when the task buffer is at capacity.
var ErrQueueFull = errors.New("executor queue is full")

// ErrPoolClosed is returned by Submit after Shutdown.
var ErrPoolClosed = errors.New("executor pool is closed")

type Task func(ctx context.Context)

// Pool runs workflow traversals on a fixed set of workers fed by a
// bounded queue. Submit never blocks; callers see ErrQueueFull instead.
type Pool struct {
	tasks   chan Task
	workers int
	logger  logger.Logger

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

func NewPool(workers, queueSize int, log logger.Logger) *Pool {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 1 {
		queueSize = 1
	}
	return &Pool{
		tasks:   make(chan Task, queueSize),
		workers: workers,
		logger:  log,
	}
}

func (p *Pool) Start() {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.run(i + 1)
	}
	p.logger.Info("worker pool started", "workers", p.workers, "queueSize", cap(p.tasks))
}

func (p *Pool) run(id int) {
	defer p.wg.Done()
	for task := range p.tasks {
		metrics.ExecutorQueueDepth.Set(float64(len(p.tasks)))
		task(context.Background())
	}
	p.logger.Debug("worker stopped", "workerId", id)
}

func (p *Pool) Submit(task Task) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrPoolClosed
	}

	select {
	case p.tasks <- task:
		metrics.ExecutorQueueDepth.Set(float64(len(p.tasks)))
		return nil
	default:
		return ErrQueueFull
	}
}

// Shutdown stops accepting tasks and waits for in-flight work until ctx
// expires. Queued tasks still run.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.tasks)
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("worker pool drained")
		return nil
	case <-ctx.Done():
		p.logger.Warn("timeout waiting for workers to drain")
		return ctx.Err()
	}
}

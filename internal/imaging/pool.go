package imaging

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"
)

// ErrPoolClosed rejects submissions after Close.
var ErrPoolClosed = errors.New("compression pool closed")

type job struct {
	raw    []byte
	budget int64
	opts   Options
	done   chan outcome
}

type outcome struct {
	result Result
	err    error
}

// Pool runs compression jobs on a fixed set of workers so CPU-bound
// re-encoding cannot starve request-handling goroutines. Lifecycle: Start
// once, Submit from any goroutine, Close once; Submit after Close returns
// ErrPoolClosed.
type Pool struct {
	jobs    chan *job
	workers int
	logg    *zap.Logger

	mu     sync.RWMutex
	closed bool
}

// NewPool sizes the worker set; Start must be called before Submit.
func NewPool(workers int, logg *zap.Logger) *Pool {
	if workers < 1 {
		workers = 1
	}
	if logg == nil {
		logg = zap.NewNop()
	}
	return &Pool{
		jobs:    make(chan *job),
		workers: workers,
		logg:    logg,
	}
}

// Start launches the worker goroutines.
func (p *Pool) Start() {
	for i := 0; i < p.workers; i++ {
		go p.worker(i)
	}
	p.logg.Info("compression pool started", zap.Int("workers", p.workers))
}

func (p *Pool) worker(id int) {
	for j := range p.jobs {
		result, err := Compress(j.raw, j.budget, j.opts)
		if err != nil {
			p.logg.Debug("compression job failed",
				zap.Int("worker", id),
				zap.Error(err))
		}
		j.done <- outcome{result: result, err: err}
		close(j.done)
	}
}

// Submit queues a compression job and waits for its outcome. Submission and
// waiting both respect ctx so a disconnected client does not hold a slot.
func (p *Pool) Submit(ctx context.Context, raw []byte, budget int64, opts Options) (Result, error) {
	j := &job{
		raw:    raw,
		budget: budget,
		opts:   opts,
		done:   make(chan outcome, 1),
	}

	// The read lock spans the send: Close takes the write lock before
	// closing the channel, so a send on a closed channel cannot happen.
	p.mu.RLock()
	if p.closed {
		p.mu.RUnlock()
		return Result{}, ErrPoolClosed
	}

	select {
	case p.jobs <- j:
		p.mu.RUnlock()
	case <-ctx.Done():
		p.mu.RUnlock()
		return Result{}, ctx.Err()
	}

	select {
	case out := <-j.done:
		return out.result, out.err
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

// Close stops the workers once queued jobs drain. Safe to call once;
// further Submit calls fail with ErrPoolClosed.
func (p *Pool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	close(p.jobs)
}

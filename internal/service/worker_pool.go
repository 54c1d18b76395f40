package service

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"crparser/internal/domain"
	"crparser/internal/metrics"
)

// Task is one queued report awaiting processing.
type Task struct {
	JobID       uuid.UUID
	Path        string
	CallbackURL string
	EnqueuedAt  time.Time
}

// TaskHandler processes a dequeued task.
type TaskHandler interface {
	Handle(ctx context.Context, task Task)
}

// WorkerPoolConfig holds settings for the worker pool.
type WorkerPoolConfig struct {
	Workers    int
	Capacity   int
	JobTimeout time.Duration
}

// WorkerPool runs tasks on a fixed number of workers fed by a bounded queue.
// Submit rejects work instead of blocking when the queue is full.
type WorkerPool struct {
	tasks   chan Task
	handler TaskHandler
	cfg     WorkerPoolConfig
	metrics *metrics.Metrics
	wg      sync.WaitGroup
}

// NewWorkerPool creates a WorkerPool. Call Start to begin processing.
func NewWorkerPool(cfg WorkerPoolConfig, handler TaskHandler, m *metrics.Metrics) *WorkerPool {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.Capacity <= 0 {
		cfg.Capacity = cfg.Workers
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = 5 * time.Minute
	}
	return &WorkerPool{
		tasks:   make(chan Task, cfg.Capacity),
		handler: handler,
		cfg:     cfg,
		metrics: m,
	}
}

// Submit enqueues task or returns domain.ErrQueueFull.
func (p *WorkerPool) Submit(task Task) error {
	if task.EnqueuedAt.IsZero() {
		task.EnqueuedAt = time.Now()
	}
	select {
	case p.tasks <- task:
		p.reportDepth()
		return nil
	default:
		return domain.ErrQueueFull
	}
}

// Depth returns the number of queued tasks.
func (p *WorkerPool) Depth() int {
	return len(p.tasks)
}

// Start runs the workers until ctx is canceled. It blocks until all
// in-flight tasks have finished. Tasks still queued at shutdown are left for
// the janitor to fail.
func (p *WorkerPool) Start(ctx context.Context) {
	log.Printf("workerPool: started (workers=%d, capacity=%d, timeout=%s)",
		p.cfg.Workers, p.cfg.Capacity, p.cfg.JobTimeout)

	for i := 0; i < p.cfg.Workers; i++ {
		p.wg.Add(1)
		go p.work(ctx)
	}

	<-ctx.Done()
	log.Printf("workerPool: shutting down, waiting for in-flight jobs...")
	p.wg.Wait()
	if n := len(p.tasks); n > 0 {
		log.Printf("workerPool: %d queued jobs abandoned", n)
	}
	log.Printf("workerPool: shutdown complete")
}

func (p *WorkerPool) work(ctx context.Context) {
	defer p.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case task := <-p.tasks:
			p.reportDepth()
			p.run(task)
		}
	}
}

func (p *WorkerPool) run(task Task) {
	// Fresh context so an in-flight job completes during shutdown.
	jobCtx, cancel := context.WithTimeout(context.Background(), p.cfg.JobTimeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			log.Printf("workerPool: job %s panicked: %v", task.JobID, r)
		}
	}()

	log.Printf("workerPool: dispatching job %s (waited %s)", task.JobID, time.Since(task.EnqueuedAt).Round(time.Millisecond))
	p.handler.Handle(jobCtx, task)
}

func (p *WorkerPool) reportDepth() {
	if p.metrics != nil {
		p.metrics.SetQueueDepth(len(p.tasks))
	}
}

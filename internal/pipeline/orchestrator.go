package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Orchestrator runs build jobs on a bounded worker pool.
type Orchestrator struct {
	engine *Engine
	jobs   *JobStore
	queue  chan *Job
	log    *slog.Logger

	workers int

	mu     sync.Mutex
	closed bool
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewOrchestrator creates the pool; call Start to launch workers.
func NewOrchestrator(engine *Engine, workers, queueSize int, jobTTL time.Duration, log *slog.Logger) *Orchestrator {
	return &Orchestrator{
		engine:  engine,
		jobs:    NewJobStore(jobTTL),
		queue:   make(chan *Job, queueSize),
		log:     log,
		workers: workers,
	}
}

// Start launches worker goroutines.
func (o *Orchestrator) Start(ctx context.Context) {
	workerCtx, cancel := context.WithCancel(ctx)
	o.cancel = cancel

	for range o.workers {
		o.wg.Add(1)
		go func() {
			defer o.wg.Done()
			for {
				select {
				case <-workerCtx.Done():
					return
				case job, ok := <-o.queue:
					if !ok {
						return
					}
					o.process(workerCtx, job)
				}
			}
		}()
	}

	// Start job store cleanup.
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-workerCtx.Done():
				return
			case <-ticker.C:
				o.jobs.Cleanup()
			}
		}
	}()
}

// Stop gracefully shuts down the pool. Submissions after Stop are rejected.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return
	}
	o.closed = true
	close(o.queue)
	o.mu.Unlock()

	if o.cancel != nil {
		o.cancel()
	}
	o.wg.Wait()
}

// Submit queues a new job. Jobs are rejected, not blocked, when the queue
// is full or the pool has been stopped.
func (o *Orchestrator) Submit(job *Job) error {
	o.jobs.Put(job)
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		job.SetStatus(StatusFailed, "shutting_down")
		return fmt.Errorf("orchestrator is shutting down")
	}
	select {
	case o.queue <- job:
		return nil
	default:
		job.SetStatus(StatusFailed, "queue_full")
		return fmt.Errorf("job queue is full (%d)", cap(o.queue))
	}
}

// GetJob returns a job by ID, nil when unknown or expired.
func (o *Orchestrator) GetJob(id string) *Job {
	return o.jobs.Get(id)
}

// QueueDepth returns current queue depth.
func (o *Orchestrator) QueueDepth() int {
	return len(o.queue)
}

// Engine returns the underlying engine for synchronous use by API handlers.
func (o *Orchestrator) Engine() *Engine {
	return o.engine
}

func (o *Orchestrator) process(ctx context.Context, job *Job) {
	start := time.Now()
	job.SetStatus(StatusCompiling, "parse")
	o.log.Info("job started", "job_id", job.ID, "path", job.Path, "format", job.Format)

	res, err := o.engine.Build(ctx, job.request)
	if err != nil {
		job.Fail(err)
		o.log.Error("job failed", "job_id", job.ID, "error", err)
		return
	}
	job.Complete(res)
	o.log.Info("job completed",
		"job_id", job.ID,
		"sections", res.Sections,
		"cache_hits", res.CacheHits,
		"valid", res.Validation.Valid,
		"duration", time.Since(start).Round(time.Millisecond))
}

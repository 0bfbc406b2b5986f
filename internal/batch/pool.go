// Package batch runs many fetch requests concurrently over a worker
// pool. Global pacing still happens inside the fetcher, so the pool
// controls only how many requests are in flight at once.
package batch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"xscraper/pkg/fetcher"
	"xscraper/pkg/logger"
	"xscraper/pkg/normalize"
)

// Job is one fetch to run.
type Job struct {
	Request fetcher.Request
}

// Result is the outcome of one job.
type Result struct {
	Job      Job
	Records  []normalize.Record
	Err      error
	Duration time.Duration
}

// Runner executes fetch requests; satisfied by *fetcher.Fetcher.
type Runner interface {
	Fetch(ctx context.Context, req fetcher.Request) ([]normalize.Record, error)
}

// Pool manages concurrent fetch workers.
type Pool struct {
	numWorkers  int
	jobQueue    chan Job
	resultQueue chan Result
	wg          sync.WaitGroup
	ctx         context.Context
	cancel      context.CancelFunc
	runner      Runner
	logger      logger.Logger

	// closeMu orders Submit against Stop: no send may start after the
	// closed flag is set, so the queue is never closed mid-send.
	closeMu sync.RWMutex
	closed  bool
}

// NewPool creates a worker pool over the given runner.
func NewPool(numWorkers int, runner Runner, log logger.Logger) *Pool {
	if log == nil {
		log = logger.GetLogger()
	}
	if numWorkers <= 0 {
		numWorkers = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Pool{
		numWorkers:  numWorkers,
		jobQueue:    make(chan Job, numWorkers*2),
		resultQueue: make(chan Result, numWorkers),
		ctx:         ctx,
		cancel:      cancel,
		runner:      runner,
		logger:      log,
	}
}

// Start launches the workers.
func (p *Pool) Start() {
	p.logger.InfoWithFields("starting fetch pool", map[string]interface{}{
		"num_workers": p.numWorkers,
	})
	for i := 0; i < p.numWorkers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
}

// Stop drains remaining jobs, waits for the workers, and closes the
// result channel. Submits racing with Stop either complete before the
// queue closes or fail cleanly.
func (p *Pool) Stop() {
	p.closeMu.Lock()
	if p.closed {
		p.closeMu.Unlock()
		return
	}
	p.closed = true
	p.closeMu.Unlock()

	close(p.jobQueue)
	p.wg.Wait()
	close(p.resultQueue)
	p.cancel()
	p.logger.Info("fetch pool stopped")
}

// Submit queues a job. It fails once the pool is shutting down.
func (p *Pool) Submit(job Job) error {
	p.closeMu.RLock()
	defer p.closeMu.RUnlock()
	if p.closed {
		return fmt.Errorf("fetch pool is shutting down")
	}
	select {
	case p.jobQueue <- job:
		return nil
	case <-p.ctx.Done():
		return fmt.Errorf("fetch pool is shutting down")
	}
}

// Results returns the channel results are delivered on.
func (p *Pool) Results() <-chan Result {
	return p.resultQueue
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()

	for job := range p.jobQueue {
		select {
		case <-p.ctx.Done():
			return
		default:
		}

		start := time.Now()
		records, err := p.runner.Fetch(p.ctx, job.Request)
		result := Result{
			Job:      job,
			Records:  records,
			Err:      err,
			Duration: time.Since(start),
		}

		if err != nil {
			p.logger.WarnWithFields("fetch job failed", map[string]interface{}{
				"worker_id": id,
				"kind":      string(job.Request.Kind),
				"target":    job.Request.Target,
				"error":     err.Error(),
				"duration":  result.Duration,
			})
		} else {
			p.logger.DebugWithFields("fetch job completed", map[string]interface{}{
				"worker_id": id,
				"kind":      string(job.Request.Kind),
				"target":    job.Request.Target,
				"records":   len(records),
				"duration":  result.Duration,
			})
		}

		select {
		case p.resultQueue <- result:
		case <-p.ctx.Done():
			return
		}
	}
}

// QueueSize returns the number of queued jobs.
func (p *Pool) QueueSize() int {
	return len(p.jobQueue)
}

package worker

import (
	"context"
	"sync"
)

// Job is a unit of work executed by a Pool
type Job interface {
	Execute(ctx context.Context) Result
}

// Result is the outcome of a Job
type Result interface {
	GetError() error
}

type task struct {
	index int
	job   Job
}

type outcome struct {
	index  int
	result Result
}

// Pool runs jobs on a fixed number of workers. Wait returns results in
// submission order.
type Pool struct {
	workers       int
	jobQueue      chan task
	results       chan outcome
	submitted     int
	collected     []outcome
	collectorDone chan struct{}
	wg            sync.WaitGroup
	ctx           context.Context
	cancelFunc    context.CancelFunc
	closeOnce     sync.Once
}

// NewPool creates a pool bound to ctx. Cancelling ctx stops the workers.
func NewPool(ctx context.Context, workers int) *Pool {
	if workers <= 0 {
		workers = 1
	}

	ctx, cancel := context.WithCancel(ctx)

	return &Pool{
		workers:       workers,
		jobQueue:      make(chan task, workers*2),
		results:       make(chan outcome, workers*2),
		collectorDone: make(chan struct{}),
		ctx:           ctx,
		cancelFunc:    cancel,
	}
}

// Start launches the workers and the result collector
func (p *Pool) Start() {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	go p.collect()
}

// collect drains results as they arrive
func (p *Pool) collect() {
	defer close(p.collectorDone)
	for o := range p.results {
		p.collected = append(p.collected, o)
	}
}

func (p *Pool) worker() {
	defer p.wg.Done()

	for {
		select {
		case <-p.ctx.Done():
			return
		case t, ok := <-p.jobQueue:
			if !ok {
				return
			}
			result := t.job.Execute(p.ctx)
			select {
			case p.results <- outcome{index: t.index, result: result}:
			case <-p.ctx.Done():
				return
			}
		}
	}
}

// Submit queues a job. It is dropped if the pool is already cancelled.
// Submit must not be called concurrently with itself or after Wait.
func (p *Pool) Submit(job Job) {
	select {
	case <-p.ctx.Done():
	case p.jobQueue <- task{index: p.submitted, job: job}:
		p.submitted++
	}
}

// Wait closes the queue, waits for the workers and returns the results in
// submission order. Jobs lost to cancellation leave nil entries.
func (p *Pool) Wait() []Result {
	close(p.jobQueue)
	p.wg.Wait()
	p.closeResults()
	<-p.collectorDone

	results := make([]Result, p.submitted)
	for _, o := range p.collected {
		results[o.index] = o.result
	}

	p.cancelFunc()
	return results
}

// Shutdown cancels the pool and waits for the workers to exit. Wait must
// not be called afterwards.
func (p *Pool) Shutdown() {
	p.cancelFunc()
	p.wg.Wait()
	p.closeResults()
}

func (p *Pool) closeResults() {
	p.closeOnce.Do(func() {
		close(p.results)
	})
}

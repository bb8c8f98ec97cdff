// Package runner executes jobs on a verified machine from a fixed set of
// worker goroutines.
package runner

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/tliron/commonlog"

	"github.com/chazu/arborate/vm"
)

var log = commonlog.GetLogger("arborate.runner")

// ErrStopped is returned for jobs submitted to, or pending in, a stopped pool.
var ErrStopped = errors.New("runner: pool stopped")

// Job selects the function to execute.
type Job struct {
	Entry int
	Label string // Optional, used in logs and results
}

// Result is the outcome of one Job. Err holds execution failures
// (usually a *vm.Error) and recovered panics.
type Result struct {
	Job    Job
	Values []vm.Value
	Err    error
}

// request is a unit of work handed to a worker goroutine.
type request struct {
	ctx  context.Context
	job  Job
	done chan Result
}

// Pool runs executions of one machine on a fixed number of goroutines.
// The machine itself is safe for concurrent use; the pool bounds how many
// executions run at once.
type Pool struct {
	machine  *vm.Machine
	requests chan request
	quit     chan struct{}
	workers  int
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// NewPool creates a Pool and starts its workers. workers < 1 means 1.
func NewPool(m *vm.Machine, workers int) *Pool {
	if workers < 1 {
		workers = 1
	}
	p := &Pool{
		machine:  m,
		requests: make(chan request, workers*4),
		quit:     make(chan struct{}),
		workers:  workers,
	}
	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go p.loop(i)
	}
	if fp, err := m.Fingerprint(); err == nil {
		log.Debugf("started %d workers for machine %.12s", workers, fp)
	} else {
		log.Debugf("started %d workers", workers)
	}
	return p
}

// loop processes requests until the pool is stopped.
func (p *Pool) loop(id int) {
	defer p.wg.Done()
	for {
		select {
		case req := <-p.requests:
			req.done <- p.execute(req.ctx, req.job)
		case <-p.quit:
			log.Debugf("worker %d stopped", id)
			return
		}
	}
}

// execute runs one job, recovering from panics.
func (p *Pool) execute(ctx context.Context, job Job) (result Result) {
	result.Job = job
	defer func() {
		if r := recover(); r != nil {
			result.Values = nil
			result.Err = fmt.Errorf("runner: panic in %s: %v", job.name(), r)
		}
	}()
	result.Values, result.Err = p.machine.ExecuteFunction(ctx, job.Entry)
	if result.Err != nil {
		log.Debugf("%s failed: %v", job.name(), result.Err)
	}
	return result
}

// Do submits a job and blocks until it completes. The returned error is
// non-nil only when the job could not be run at all (ctx done before a
// worker picked it up, or the pool stopped); execution failures are in
// Result.Err.
func (p *Pool) Do(ctx context.Context, job Job) (Result, error) {
	req := request{
		ctx:  ctx,
		job:  job,
		done: make(chan Result, 1),
	}
	select {
	case p.requests <- req:
	case <-ctx.Done():
		return Result{Job: job}, ctx.Err()
	case <-p.quit:
		return Result{Job: job}, ErrStopped
	}

	select {
	case result := <-req.done:
		return result, nil
	case <-p.quit:
		return Result{Job: job}, ErrStopped
	}
}

// Stop shuts down the workers and waits for running jobs to finish.
// Stop is idempotent.
func (p *Pool) Stop() {
	p.stopOnce.Do(func() {
		close(p.quit)
	})
	p.wg.Wait()
}

// Workers returns the number of worker goroutines.
func (p *Pool) Workers() int {
	return p.workers
}

// Machine returns the machine the pool executes.
func (p *Pool) Machine() *vm.Machine {
	return p.machine
}

func (j Job) name() string {
	if j.Label != "" {
		return j.Label
	}
	return fmt.Sprintf("function %d", j.Entry)
}

// Package worker runs grading tasks on a fixed number of goroutines.
package worker

import (
	"context"
	"sync"
	"time"
)

// Processor grades a single task and reports where the result was written.
type Processor interface {
	Process(ctx context.Context, task Task) (dst string, err error)
}

// ProcessorFunc adapts a plain function to Processor.
type ProcessorFunc func(ctx context.Context, task Task) (string, error)

// Process calls f.
func (f ProcessorFunc) Process(ctx context.Context, task Task) (string, error) {
	return f(ctx, task)
}

// Task is one unit of grading work. Key identifies the item in logs and
// progress output; Src and Dst are interpreted by the Processor.
type Task struct {
	Key string
	Src string
	Dst string
}

// Result is the outcome of a task.
type Result struct {
	Task    Task
	Dst     string
	Err     error
	Elapsed time.Duration
}

// ProgressFunc is called after each task completes.
type ProgressFunc func(completed, total, failed int)

// Config configures the pool.
type Config struct {
	Workers    int
	Processor  Processor
	OnProgress ProgressFunc
}

// Pool fans tasks out to workers.
type Pool struct {
	workers    int
	processor  Processor
	onProgress ProgressFunc
}

// New creates a pool. Fewer than one worker is treated as one.
func New(cfg Config) *Pool {
	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}

	return &Pool{
		workers:    workers,
		processor:  cfg.Processor,
		onProgress: cfg.OnProgress,
	}
}

type indexed struct {
	i    int
	task Task
}

// Run processes all tasks and blocks until they are done or ctx is cancelled.
// Results are returned in task order. Tasks not started before cancellation
// carry ctx.Err().
func (p *Pool) Run(ctx context.Context, tasks []Task) []Result {
	if len(tasks) == 0 {
		return nil
	}

	results := make([]Result, len(tasks))
	queue := make(chan indexed)

	var (
		mu        sync.Mutex
		completed int
		failed    int
	)
	record := func(i int, r Result) {
		results[i] = r

		mu.Lock()
		completed++
		if r.Err != nil {
			failed++
		}
		c, f := completed, failed
		if p.onProgress != nil {
			p.onProgress(c, len(tasks), f)
		}
		mu.Unlock()
	}

	var wg sync.WaitGroup
	for w := 0; w < p.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for it := range queue {
				record(it.i, p.process(ctx, it.task))
			}
		}()
	}

	next := 0
feed:
	for ; next < len(tasks); next++ {
		select {
		case queue <- indexed{i: next, task: tasks[next]}:
		case <-ctx.Done():
			break feed
		}
	}
	close(queue)
	wg.Wait()

	for i := next; i < len(tasks); i++ {
		record(i, Result{Task: tasks[i], Err: ctx.Err()})
	}

	return results
}

func (p *Pool) process(ctx context.Context, task Task) Result {
	if err := ctx.Err(); err != nil {
		return Result{Task: task, Err: err}
	}

	start := time.Now()
	dst, err := p.processor.Process(ctx, task)
	return Result{
		Task:    task,
		Dst:     dst,
		Err:     err,
		Elapsed: time.Since(start),
	}
}

// Failed returns the results that carry an error.
func Failed(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if r.Err != nil {
			out = append(out, r)
		}
	}
	return out
}

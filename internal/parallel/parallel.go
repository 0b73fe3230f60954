package parallel

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
)

// Result holds the outcome of a parallel task.
type Result struct {
	Name    string
	OK      bool
	Err     error
	Output  string
	Elapsed time.Duration
}

// Task is a function that runs in parallel.
type Task struct {
	Name string
	Fn   func(ctx context.Context) (string, error)
}

// Run executes tasks with the given concurrency limit and returns results
// in submission order. A failing task never cancels the others. done, if
// non-nil, is called once per task as it finishes, from the task's goroutine.
func Run(ctx context.Context, tasks []Task, concurrency int, done func(Result)) []Result {
	if concurrency < 1 {
		concurrency = 4
	}

	results := make([]Result, len(tasks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for i, task := range tasks {
		g.Go(func() error {
			start := time.Now()
			output, err := task.Fn(gctx)
			r := Result{Name: task.Name, OK: err == nil, Err: err, Output: output, Elapsed: time.Since(start)}
			results[i] = r
			if done != nil {
				done(r)
			}
			return nil // collect results instead of failing the group
		})
	}

	_ = g.Wait()
	return results
}

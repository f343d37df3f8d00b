package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"golang.org/x/sync/errgroup"

	asynctask "github.com/Swind/go-async-task"
	"github.com/Swind/go-async-task/core"
)

type benchOptions struct {
	Tasks     int
	Producers int
	Work      time.Duration
}

type benchResult struct {
	Tasks    int
	Elapsed  time.Duration
	Pool     core.PoolStats
	Sampled  int
	Slowest  time.Duration
	Panicked int
}

// runBench enqueues opts.Tasks tasks from opts.Producers goroutines and waits
// for all of them. Each task returns its own index, which is verified.
func runBench(ctx context.Context, pool *core.WorkerPool, opts benchOptions) (benchResult, error) {
	tasks := make([]asynctask.Task[int], opts.Tasks)
	start := time.Now()

	g, gctx := errgroup.WithContext(ctx)
	for p := range opts.Producers {
		g.Go(func() error {
			for i := p; i < opts.Tasks; i += opts.Producers {
				if err := gctx.Err(); err != nil {
					return err
				}
				tasks[i] = asynctask.NewTaskOn(pool, func() int {
					if opts.Work > 0 {
						time.Sleep(opts.Work)
					}
					return i
				})
				if err := tasks[i].RunAsync(); err != nil {
					return fmt.Errorf("enqueue task %d: %w", i, err)
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return benchResult{}, err
	}

	for i, task := range tasks {
		v, err := task.AwaitResult()
		if err != nil {
			return benchResult{}, fmt.Errorf("task %d: %w", i, err)
		}
		if v != i {
			return benchResult{}, fmt.Errorf("task %d returned %d", i, v)
		}
	}

	res := benchResult{
		Tasks:   opts.Tasks,
		Elapsed: time.Since(start),
		Pool:    pool.Stats(),
	}
	records := pool.RecentExecutions(0)
	res.Sampled = len(records)
	for _, rec := range records {
		res.Slowest = max(res.Slowest, rec.Duration)
		if rec.Panicked {
			res.Panicked++
		}
	}
	return res, nil
}

// Print writes a human-readable summary.
func (r benchResult) Print(w io.Writer) {
	throughput := float64(r.Tasks) / r.Elapsed.Seconds()
	fmt.Fprintf(w, "pool:        %s (%d workers)\n", r.Pool.Name, r.Pool.Workers)
	fmt.Fprintf(w, "tasks:       %d\n", r.Tasks)
	fmt.Fprintf(w, "elapsed:     %s\n", r.Elapsed.Round(time.Microsecond))
	fmt.Fprintf(w, "throughput:  %.0f tasks/s\n", throughput)
	fmt.Fprintf(w, "slowest:     %s (last %d dispatches)\n", r.Slowest, r.Sampled)
	fmt.Fprintf(w, "panicked:    %d\n", r.Panicked)
}

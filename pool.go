package bdfs

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Job is one entry and the stored bytes it is read from.
type Job struct {
	Entry Entry
	Data  []byte
}

// Result is the converted payload of a Job.
type Result struct {
	Entry Entry
	Data  []byte
}

// ConvertAll converts jobs on up to workers goroutines (workers <= 0 means
// runtime.GOMAXPROCS(0)). Results are returned in job order. The first error
// stops the remaining work and is returned.
func (d *Decoder) ConvertAll(ctx context.Context, jobs []Job, workers int) ([]Result, error) {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	results := make([]Result, len(jobs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, job := range jobs {
		if gctx.Err() != nil {
			break
		}
		i, job := i, job // per-iteration copies; go.mod targets go1.21 loop semantics
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out, err := d.Convert(job.Entry, job.Data)
			if err != nil {
				return fmt.Errorf("bdfs: convert %q: %w", job.Entry.Name, err)
			}
			results[i] = Result{Entry: job.Entry, Data: out}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

package convert

import (
	"context"
	"io"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/inodb/vcf2loc/internal/vcf"
)

// workItem holds a data line waiting to be converted.
type workItem struct {
	Seq  int
	Line vcf.Line
}

// runParallel reads lines on one goroutine, converts them on a worker pool
// and hands results to handle in source order. The first error from handle
// stops the reader.
func (c *Converter) runParallel(ctx context.Context, src vcf.LineSource, handle func(result) error) error {
	stop, cancel := context.WithCancel(ctx)
	defer cancel()

	var g errgroup.Group
	items := make(chan workItem, 2*c.opts.Workers)

	g.Go(func() error {
		defer close(items)
		seq := 0
		for {
			if stop.Err() != nil {
				return nil
			}
			line, err := src.Next()
			if err == io.EOF {
				return nil
			}
			if err != nil {
				return readError(src, err)
			}
			select {
			case items <- workItem{Seq: seq, Line: line}:
			case <-stop.Done():
				return nil
			}
			seq++
		}
	})

	results := c.parallelConvert(items, c.opts.Workers)

	g.Go(func() error {
		return orderedCollect(results, func(r result) error {
			if err := handle(r); err != nil {
				cancel()
				return err
			}
			return nil
		})
	})

	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

// parallelConvert converts work items using a pool of workers.
// Results are sent to the returned channel in arrival order (not sequence order).
// If workers is 0, runtime.NumCPU() is used.
func (c *Converter) parallelConvert(items <-chan workItem, workers int) <-chan result {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	results := make(chan result, 2*workers)

	var wg sync.WaitGroup
	wg.Add(workers)

	for range workers {
		go func() {
			defer wg.Done()
			for item := range items {
				res := c.convertLine(item.Line)
				res.Seq = item.Seq
				results <- res
			}
		}()
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	return results
}

// orderedCollect calls fn for each result in sequence-number order.
// It buffers out-of-order results in a pending map and emits them
// as soon as the next expected sequence number is available.
// Blocks until the results channel is closed.
func orderedCollect(results <-chan result, fn func(result) error) error {
	pending := make(map[int]result)
	nextSeq := 0

	for r := range results {
		pending[r.Seq] = r

		for {
			rr, ok := pending[nextSeq]
			if !ok {
				break
			}
			delete(pending, nextSeq)
			nextSeq++
			if err := fn(rr); err != nil {
				// Drain remaining results to unblock workers.
				for range results {
				}
				return err
			}
		}
	}

	return nil
}

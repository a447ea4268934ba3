// Package batch evaluates many expressions concurrently.
package batch

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"github.com/leapstack-labs/leapcalc/internal/engine"
	"github.com/leapstack-labs/leapcalc/internal/history"
	"github.com/leapstack-labs/leapcalc/internal/metrics"
	"golang.org/x/sync/errgroup"
)

// Result pairs an item with its evaluation.
type Result struct {
	Item
	engine.Result
}

// Summary counts outcomes of a batch.
type Summary struct {
	Total     int           `json:"total" yaml:"total"`
	Succeeded int           `json:"succeeded" yaml:"succeeded"`
	Failed    int           `json:"failed" yaml:"failed"`
	Elapsed   time.Duration `json:"elapsed" yaml:"elapsed"`
}

// Runner evaluates items on a bounded pool of goroutines.
type Runner struct {
	engine *engine.Engine
	logger *slog.Logger

	// Workers bounds concurrency. Zero means GOMAXPROCS.
	Workers int
	// FailFast stops the batch at the first failed expression.
	FailFast bool
	// Source labels history records.
	Source string
}

// NewRunner creates a runner backed by eng.
func NewRunner(eng *engine.Engine, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Runner{engine: eng, logger: logger, Source: history.SourceBatch}
}

func (r *Runner) workers() int {
	if r.Workers > 0 {
		return r.Workers
	}
	return runtime.GOMAXPROCS(0)
}

// Run evaluates items and returns results in input order. With FailFast,
// the first failure cancels the remaining work and is returned as an error;
// results for skipped items are left zero.
func (r *Runner) Run(ctx context.Context, items []Item) ([]Result, error) {
	results := make([]Result, len(items))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers())

	for i, it := range items {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res := r.engine.Evaluate(gctx, it.Expr, r.Source)
			results[i] = Result{Item: it, Result: res}
			if r.FailFast && res.Err != nil {
				return fmt.Errorf("line %d: %w", it.Line, res.Err)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return results, err
	}
	if err := ctx.Err(); err != nil {
		return results, err
	}

	metrics.ObserveBatch(len(items))
	r.logger.Debug("batch evaluated", "expressions", len(items), "workers", r.workers())
	return results, nil
}

// RunFile reads path and evaluates its expressions.
func (r *Runner) RunFile(ctx context.Context, path string) ([]Result, Summary, error) {
	start := time.Now()
	items, err := ReadFile(path)
	if err != nil {
		return nil, Summary{}, err
	}
	results, err := r.Run(ctx, items)
	sum := Summarize(results)
	sum.Elapsed = time.Since(start)
	return results, sum, err
}

// Summarize counts successes and failures. Items that were never evaluated
// are not counted.
func Summarize(results []Result) Summary {
	var s Summary
	for _, res := range results {
		if res.Line == 0 {
			continue
		}
		s.Total++
		if res.Err != nil {
			s.Failed++
		} else {
			s.Succeeded++
		}
	}
	return s
}

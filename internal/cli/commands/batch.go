package commands

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/leapstack-labs/leapcalc/internal/batch"
	"github.com/spf13/cobra"
)

// BatchOptions holds options for the batch command.
type BatchOptions struct {
	Workers  int
	FailFast bool
	Watch    bool
}

// BatchResultOutput is one evaluated line in structured output.
type BatchResultOutput struct {
	Line       int          `json:"line" yaml:"line"`
	Expression string       `json:"expression" yaml:"expression"`
	Result     *int64       `json:"result,omitempty" yaml:"result,omitempty"`
	Error      *ErrorOutput `json:"error,omitempty" yaml:"error,omitempty"`
}

// BatchOutput is the structured result of the batch command.
type BatchOutput struct {
	File    string              `json:"file" yaml:"file"`
	Results []BatchResultOutput `json:"results" yaml:"results"`
	Summary batch.Summary       `json:"summary" yaml:"summary"`
}

// errBatchFailed is returned when at least one expression failed.
var errBatchFailed = errors.New("one or more expressions failed")

// NewBatchCommand creates the batch command.
func NewBatchCommand() *cobra.Command {
	opts := &BatchOptions{}

	cmd := &cobra.Command{
		Use:   "batch <file>",
		Short: "Evaluate one expression per line of a file",
		Long: `Evaluate every line of a file as a separate expression.

Blank lines and lines starting with # are skipped. Expressions are
evaluated concurrently and reported in file order. With --watch the file
is evaluated again each time it changes.`,
		Example: `  leapcalc batch exprs.txt
  leapcalc batch exprs.txt --workers 4 --fail-fast
  leapcalc batch exprs.txt --watch`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatch(cmd, args[0], opts)
		},
	}

	cmd.Flags().IntVarP(&opts.Workers, "workers", "w", 0, "Concurrent evaluations (default: number of CPUs)")
	cmd.Flags().BoolVar(&opts.FailFast, "fail-fast", false, "Stop at the first failed expression")
	cmd.Flags().BoolVar(&opts.Watch, "watch", false, "Re-evaluate when the file changes")

	return cmd
}

func runBatch(cmd *cobra.Command, path string, opts *BatchOptions) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	runner := batch.NewRunner(cmdCtx.Engine, cmdCtx.Logger)
	runner.Workers = cmdCtx.Cfg.Batch.Workers
	if cmd.Flags().Changed("workers") {
		runner.Workers = opts.Workers
	}
	runner.FailFast = opts.FailFast

	run := func(ctx context.Context) error {
		results, sum, runErr := runner.RunFile(ctx, path)
		if results == nil && runErr != nil {
			return runErr
		}
		if err := renderBatch(cmdCtx, path, results, sum); err != nil {
			return err
		}
		if runErr != nil {
			return runErr
		}
		if sum.Failed > 0 {
			return errBatchFailed
		}
		return nil
	}

	if !opts.Watch {
		return run(cmd.Context())
	}

	w, err := batch.NewWatcher(path, cmdCtx.Cfg.Batch.WatchDebounce, cmdCtx.Logger)
	if err != nil {
		return err
	}
	if err := run(cmd.Context()); err != nil && !errors.Is(err, errBatchFailed) {
		cmdCtx.Renderer.Error(err.Error())
	}
	cmdCtx.Renderer.Println(cmdCtx.Renderer.Muted(fmt.Sprintf("Watching %s for changes (Ctrl-C to stop)", path)))
	return w.Run(cmd.Context(), func(ctx context.Context) error {
		err := run(ctx)
		if errors.Is(err, errBatchFailed) {
			return nil
		}
		return err
	})
}

func renderBatch(cmdCtx *CommandContext, path string, results []batch.Result, sum batch.Summary) error {
	r := cmdCtx.Renderer

	out := BatchOutput{File: path, Results: []BatchResultOutput{}, Summary: sum}
	for _, res := range results {
		if res.Line == 0 {
			continue
		}
		o := BatchResultOutput{Line: res.Line, Expression: res.Expr, Error: newErrorOutput(res.Err)}
		if res.Err == nil {
			v := res.Value
			o.Result = &v
		}
		out.Results = append(out.Results, o)
	}

	if ok, err := r.Structured(out); ok {
		return err
	}

	rows := make([][]string, 0, len(out.Results))
	for _, o := range out.Results {
		value := ""
		if o.Result != nil {
			value = strconv.FormatInt(*o.Result, 10)
		} else if o.Error != nil {
			value = o.Error.Kind + ": " + o.Error.Message
		}
		rows = append(rows, []string{strconv.Itoa(o.Line), o.Expression, value})
	}
	r.Table([]string{"Line", "Expression", "Result"}, rows)

	summary := fmt.Sprintf("%d evaluated, %d succeeded, %d failed in %s",
		sum.Total, sum.Succeeded, sum.Failed, sum.Elapsed.Round(time.Microsecond))
	if sum.Failed > 0 {
		r.Error(summary)
	} else {
		r.Success(summary)
	}
	return nil
}

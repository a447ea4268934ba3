// Package engine ties the expression evaluator to the rest of the system.
// It applies evaluation limits, records metrics and writes history.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/leapstack-labs/leapcalc/internal/history"
	"github.com/leapstack-labs/leapcalc/internal/metrics"
	"github.com/leapstack-labs/leapcalc/pkg/lexer"
	"github.com/leapstack-labs/leapcalc/pkg/parser"
	"github.com/leapstack-labs/leapcalc/pkg/token"
)

// ErrInputTooLong is returned when an expression exceeds MaxInputLength.
var ErrInputTooLong = errors.New("expression too long")

// rejectedEchoLength bounds the expression echoed back in a result rejected
// with ErrInputTooLong.
const rejectedEchoLength = 64

// Config holds engine configuration.
type Config struct {
	// RadixPrefixes enables 0x, 0b and 0o integer literals.
	RadixPrefixes bool
	// MaxDepth bounds nesting of parentheses and unary operators (0 disables).
	MaxDepth int
	// MaxInputLength bounds the byte length of an expression (0 disables).
	MaxInputLength int
	// History stores evaluations when set.
	History history.Store
	// Logger is the structured logger (optional, uses discard if nil)
	Logger *slog.Logger
}

// Engine evaluates expressions. It is safe for concurrent use.
type Engine struct {
	cfg       Config
	lexerOpts []lexer.Option
	evalOpts  []parser.Option
	logger    *slog.Logger
}

// Result is the outcome of evaluating one expression.
type Result struct {
	Expression string
	Value      int64
	Err        error
	Duration   time.Duration
}

// OK reports whether the evaluation succeeded.
func (r Result) OK() bool {
	return r.Err == nil
}

// New creates an engine.
func New(cfg Config) *Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	var lexerOpts []lexer.Option
	if cfg.RadixPrefixes {
		lexerOpts = append(lexerOpts, lexer.WithRadixPrefixes())
	}

	return &Engine{
		cfg:       cfg,
		lexerOpts: lexerOpts,
		evalOpts: []parser.Option{
			parser.WithMaxDepth(cfg.MaxDepth),
			parser.WithLexerOptions(lexerOpts...),
		},
		logger: logger,
	}
}

// HasHistory reports whether evaluations are recorded.
func (e *Engine) HasHistory() bool {
	return e.cfg.History != nil
}

// History returns the history store, or nil.
func (e *Engine) History() history.Store {
	return e.cfg.History
}

// CheckLength reports ErrInputTooLong when expr exceeds MaxInputLength.
func (e *Engine) CheckLength(expr string) error {
	if e.cfg.MaxInputLength > 0 && len(expr) > e.cfg.MaxInputLength {
		return fmt.Errorf("%w: %d bytes exceeds limit of %d", ErrInputTooLong, len(expr), e.cfg.MaxInputLength)
	}
	return nil
}

// Tokenize splits expr into tokens with the configured lexer options.
func (e *Engine) Tokenize(expr string) ([]token.Token, error) {
	if err := e.CheckLength(expr); err != nil {
		return nil, err
	}
	return lexer.Tokenize(expr, e.lexerOpts...), nil
}

// Eval evaluates expr without recording history. A result rejected for
// length carries a truncated Expression.
func (e *Engine) Eval(expr string) Result {
	start := time.Now()
	res := Result{Expression: expr}

	if err := e.CheckLength(expr); err != nil {
		res.Expression = history.Truncate(expr, rejectedEchoLength)
		res.Err = err
	} else {
		res.Value, res.Err = parser.Evaluate(expr, e.evalOpts...)
	}

	res.Duration = time.Since(start)
	metrics.ObserveEvaluation(res.Err, res.Duration)
	return res
}

// Evaluate evaluates expr and records it in history under source.
// History failures are logged, never returned.
func (e *Engine) Evaluate(ctx context.Context, expr, source string) Result {
	res := e.Eval(expr)

	if res.Err != nil {
		e.logger.Debug("evaluation failed", "expr", expr, "source", source, "kind", metrics.Outcome(res.Err), "error", res.Err)
	} else {
		e.logger.Debug("evaluated", "expr", expr, "source", source, "value", res.Value, "duration", res.Duration)
	}

	e.Record(ctx, res, source)
	return res
}

// Record writes a result to history if a store is configured.
func (e *Engine) Record(ctx context.Context, res Result, source string) {
	if e.cfg.History == nil {
		return
	}
	rec := history.NewRecord(res.Expression, res.Value, res.Err, source, res.Duration)
	if _, err := e.cfg.History.Record(ctx, rec); err != nil {
		e.logger.Warn("failed to record history", "error", err)
	}
}

// Close releases the history store.
func (e *Engine) Close() error {
	if e.cfg.History != nil {
		return e.cfg.History.Close()
	}
	return nil
}

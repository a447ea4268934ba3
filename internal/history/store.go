// Package history records evaluations in a SQL database so they can be
// listed, inspected and summarized later.
package history

import (
	"context"
	"errors"
	"time"
	"unicode/utf8"

	"github.com/leapstack-labs/leapcalc/pkg/parser"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("history record not found")

// Sources of evaluations.
const (
	SourceCLI    = "cli"
	SourceREPL   = "repl"
	SourceBatch  = "batch"
	SourceServer = "server"
)

// MaxExpressionLength bounds the expression text kept in a record.
const MaxExpressionLength = 64 * 1024

// Truncate shortens s to at most n bytes plus an ellipsis, without splitting
// a UTF-8 sequence. n <= 0 leaves s unchanged.
func Truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	cut := n
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}

// Record is one evaluated expression.
type Record struct {
	ID         string        `json:"id" yaml:"id"`
	Expression string        `json:"expression" yaml:"expression"`
	Result     *int64        `json:"result,omitempty" yaml:"result,omitempty"`
	ErrorKind  string        `json:"error_kind,omitempty" yaml:"error_kind,omitempty"`
	Error      string        `json:"error,omitempty" yaml:"error,omitempty"`
	Source     string        `json:"source" yaml:"source"`
	CreatedAt  time.Time     `json:"created_at" yaml:"created_at"`
	Duration   time.Duration `json:"duration" yaml:"duration"`
}

// NewRecord builds a record from the outcome of an evaluation.
func NewRecord(expr string, value int64, err error, source string, d time.Duration) Record {
	rec := Record{
		Expression: Truncate(expr, MaxExpressionLength),
		Source:     source,
		Duration:   d,
	}
	if err != nil {
		rec.Error = err.Error()
		if kind := parser.KindOf(err); kind != 0 {
			rec.ErrorKind = kind.String()
		} else {
			rec.ErrorKind = "Error"
		}
		return rec
	}
	rec.Result = &value
	return rec
}

// Failed reports whether the evaluation produced an error.
func (r Record) Failed() bool {
	return r.ErrorKind != ""
}

// ListOptions filters List results.
type ListOptions struct {
	Limit      int
	ErrorsOnly bool
}

// Stats summarizes the stored history.
type Stats struct {
	Total     int            `json:"total" yaml:"total"`
	Succeeded int            `json:"succeeded" yaml:"succeeded"`
	Failed    int            `json:"failed" yaml:"failed"`
	ByKind    map[string]int `json:"by_kind" yaml:"by_kind"`
}

// Store persists evaluation records.
type Store interface {
	// Record stores rec and returns it with ID and CreatedAt filled in.
	Record(ctx context.Context, rec Record) (Record, error)
	// List returns records newest first.
	List(ctx context.Context, opts ListOptions) ([]Record, error)
	// Get returns a single record or ErrNotFound.
	Get(ctx context.Context, id string) (Record, error)
	// Clear deletes every record and returns how many were removed.
	Clear(ctx context.Context) (int64, error)
	Stats(ctx context.Context) (Stats, error)
	Close() error
}

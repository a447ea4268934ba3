// Package metrics exposes Prometheus metrics for evaluations.
package metrics

import (
	"time"

	"github.com/leapstack-labs/leapcalc/pkg/parser"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// OutcomeOK labels successful evaluations.
const OutcomeOK = "ok"

var (
	metricEvaluationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "leapcalc",
		Name:      "evaluations_total",
		Help:      "Total number of evaluated expressions, by outcome",
	}, []string{"outcome"})
	metricEvaluationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "leapcalc",
		Name:      "evaluation_duration_seconds",
		Help:      "Time spent tokenizing and evaluating one expression",
		Buckets:   prometheus.ExponentialBuckets(1e-6, 4, 10),
	})
	metricCacheLookupsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "leapcalc",
		Name:      "cache_lookups_total",
		Help:      "Result cache lookups, by result",
	}, []string{"result"})
	metricBatchExpressionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "leapcalc",
		Subsystem: "batch",
		Name:      "expressions_total",
		Help:      "Total number of expressions evaluated in batches",
	})
)

func init() {
	// Register label values so that counters are present even when zero.
	metricEvaluationsTotal.WithLabelValues(OutcomeOK)
	for _, k := range []parser.ErrorKind{
		parser.UnexpectedEndOfInput,
		parser.UnexpectedToken,
		parser.UnmatchedParenthesis,
		parser.DivisionByZero,
		parser.IntegerOverflow,
		parser.DepthExceeded,
	} {
		metricEvaluationsTotal.WithLabelValues(k.String())
	}
	metricCacheLookupsTotal.WithLabelValues("hit")
	metricCacheLookupsTotal.WithLabelValues("miss")
}

// Outcome returns the outcome label for an evaluation error.
func Outcome(err error) string {
	if err == nil {
		return OutcomeOK
	}
	if kind := parser.KindOf(err); kind != 0 {
		return kind.String()
	}
	return "error"
}

// ObserveEvaluation records one evaluation.
func ObserveEvaluation(err error, d time.Duration) {
	ObserveOutcome(err)
	metricEvaluationSeconds.Observe(d.Seconds())
}

// ObserveOutcome counts an evaluation served without running the evaluator,
// such as a cache hit. The duration histogram is left untouched.
func ObserveOutcome(err error) {
	metricEvaluationsTotal.WithLabelValues(Outcome(err)).Inc()
}

// ObserveCache records a result cache lookup.
func ObserveCache(hit bool) {
	if hit {
		metricCacheLookupsTotal.WithLabelValues("hit").Inc()
		return
	}
	metricCacheLookupsTotal.WithLabelValues("miss").Inc()
}

// ObserveBatch records the size of an evaluated batch.
func ObserveBatch(n int) {
	metricBatchExpressionsTotal.Add(float64(n))
}

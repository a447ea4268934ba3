package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/leapstack-labs/leapcalc/pkg/parser"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestOutcome(t *testing.T) {
	_, err := parser.Evaluate("1/0")
	assert.Equal(t, "DivisionByZero", Outcome(err))
	assert.Equal(t, OutcomeOK, Outcome(nil))
	assert.Equal(t, "error", Outcome(errors.New("other")))
}

func TestObserveEvaluation(t *testing.T) {
	ok := metricEvaluationsTotal.WithLabelValues(OutcomeOK)
	div := metricEvaluationsTotal.WithLabelValues("DivisionByZero")
	beforeOK := testutil.ToFloat64(ok)
	beforeDiv := testutil.ToFloat64(div)

	ObserveEvaluation(nil, time.Microsecond)
	ObserveEvaluation(nil, time.Microsecond)
	_, err := parser.Evaluate("8/(4-4)")
	ObserveEvaluation(err, time.Microsecond)

	assert.Equal(t, beforeOK+2, testutil.ToFloat64(ok))
	assert.Equal(t, beforeDiv+1, testutil.ToFloat64(div))
}

func TestObserveCache(t *testing.T) {
	hits := metricCacheLookupsTotal.WithLabelValues("hit")
	misses := metricCacheLookupsTotal.WithLabelValues("miss")
	beforeHits := testutil.ToFloat64(hits)
	beforeMisses := testutil.ToFloat64(misses)

	ObserveCache(true)
	ObserveCache(false)
	ObserveCache(false)

	assert.Equal(t, beforeHits+1, testutil.ToFloat64(hits))
	assert.Equal(t, beforeMisses+2, testutil.ToFloat64(misses))
}

func TestObserveBatch(t *testing.T) {
	before := testutil.ToFloat64(metricBatchExpressionsTotal)
	ObserveBatch(3)
	assert.Equal(t, before+3, testutil.ToFloat64(metricBatchExpressionsTotal))
}

func TestObserveOutcome(t *testing.T) {
	ok := metricEvaluationsTotal.WithLabelValues(OutcomeOK)
	before := testutil.ToFloat64(ok)

	ObserveOutcome(nil)
	assert.Equal(t, before+1, testutil.ToFloat64(ok))
}

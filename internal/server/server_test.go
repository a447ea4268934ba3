package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/leapstack-labs/leapcalc/internal/engine"
	"github.com/leapstack-labs/leapcalc/internal/history"
	"github.com/leapstack-labs/leapcalc/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, cfg engine.Config, cacheSize int) *Server {
	t.Helper()
	cfg.Logger = testutil.NewTestLogger(t)
	s, err := NewServer(Config{
		Engine:    engine.New(cfg),
		CacheSize: cacheSize,
		Logger:    testutil.NewTestLogger(t),
	})
	require.NoError(t, err)
	return s
}

func post(t *testing.T, h http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestNewServer_RequiresEngine(t *testing.T) {
	_, err := NewServer(Config{})
	assert.Error(t, err)
}

func TestHealth(t *testing.T) {
	h := newTestServer(t, engine.Config{}, 0).Handler()

	rec := get(t, h, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestEval(t *testing.T) {
	h := newTestServer(t, engine.Config{}, 16).Handler()

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantResult int64
		wantKind   string
		wantColumn int
	}{
		{"success", `{"expression":"(2+3)*4"}`, http.StatusOK, 20, "", 0},
		{"division by zero", `{"expression":"1/0"}`, http.StatusUnprocessableEntity, 0, "DivisionByZero", 2},
		{"unmatched", `{"expression":"(1+1"}`, http.StatusUnprocessableEntity, 0, "UnmatchedParenthesis", 5},
		{"empty", `{"expression":""}`, http.StatusUnprocessableEntity, 0, "UnexpectedEndOfInput", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := post(t, h, "/api/v1/eval", tt.body)
			require.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

			resp := decodeBody[EvalResponse](t, rec)
			if tt.wantKind == "" {
				require.NotNil(t, resp.Result)
				assert.Equal(t, tt.wantResult, *resp.Result)
				assert.Nil(t, resp.Error)
				return
			}
			assert.Nil(t, resp.Result)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.wantKind, resp.Error.Kind)
			assert.Equal(t, 1, resp.Error.Line)
			assert.Equal(t, tt.wantColumn, resp.Error.Column)
		})
	}
}

func TestEval_BadRequest(t *testing.T) {
	h := newTestServer(t, engine.Config{}, 0).Handler()

	rec := post(t, h, "/api/v1/eval", `{"expr":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = post(t, h, "/api/v1/eval", `{"unknown":"1"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "BadRequest")
}

func TestEval_InputTooLong(t *testing.T) {
	h := newTestServer(t, engine.Config{MaxInputLength: 4}, 0).Handler()

	rec := post(t, h, "/api/v1/eval", `{"expression":"1+2+3"}`)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	resp := decodeBody[EvalResponse](t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "InputTooLong", resp.Error.Kind)
}

func TestEval_Cache(t *testing.T) {
	h := newTestServer(t, engine.Config{}, 4).Handler()

	first := decodeBody[EvalResponse](t, post(t, h, "/api/v1/eval", `{"expression":"6*7"}`))
	assert.False(t, first.Cached)

	second := decodeBody[EvalResponse](t, post(t, h, "/api/v1/eval", `{"expression":"6*7"}`))
	assert.True(t, second.Cached)
	require.NotNil(t, second.Result)
	assert.Equal(t, int64(42), *second.Result)

	// Errors are cached too.
	post(t, h, "/api/v1/eval", `{"expression":"1/0"}`)
	rec := post(t, h, "/api/v1/eval", `{"expression":"1/0"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.True(t, decodeBody[EvalResponse](t, rec).Cached)
}

func TestEval_InputTooLongNotCached(t *testing.T) {
	ctx := context.Background()
	store, err := history.Open(ctx, history.DriverSQLite, ":memory:", testutil.NewTestLogger(t))
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	s := newTestServer(t, engine.Config{MaxInputLength: 16, History: store}, 8)
	h := s.Handler()

	for i := 1; i <= 3; i++ {
		expr := strings.Repeat(strconv.Itoa(i), 1<<20)
		rec := post(t, h, "/api/v1/eval", `{"expression":"`+expr+`"}`)
		require.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)

		resp := decodeBody[EvalResponse](t, rec)
		assert.False(t, resp.Cached)
		assert.Less(t, len(resp.Expression), 100)
		assert.Less(t, rec.Body.Len(), 1024)
	}
	assert.Equal(t, 0, s.cache.Len())

	records, err := store.List(ctx, history.ListOptions{})
	require.NoError(t, err)
	require.Len(t, records, 3)
	for _, r := range records {
		assert.True(t, r.Failed())
		assert.Less(t, len(r.Expression), 100)
	}
}

// metricValue scrapes /metrics and returns the value of one series.
func metricValue(t *testing.T, h http.Handler, series string) float64 {
	t.Helper()
	for _, line := range strings.Split(get(t, h, "/metrics").Body.String(), "\n") {
		if v, ok := strings.CutPrefix(line, series+" "); ok {
			f, err := strconv.ParseFloat(v, 64)
			require.NoError(t, err)
			return f
		}
	}
	t.Fatalf("series %s not found", series)
	return 0
}

func TestEval_CacheHitsCounted(t *testing.T) {
	h := newTestServer(t, engine.Config{}, 4).Handler()
	const series = `leapcalc_evaluations_total{outcome="ok"}`

	before := metricValue(t, h, series)
	post(t, h, "/api/v1/eval", `{"expression":"11*11"}`)
	second := decodeBody[EvalResponse](t, post(t, h, "/api/v1/eval", `{"expression":"11*11"}`))
	require.True(t, second.Cached)

	assert.Equal(t, before+2, metricValue(t, h, series))
}

func TestTokenize(t *testing.T) {
	h := newTestServer(t, engine.Config{}, 0).Handler()

	rec := post(t, h, "/api/v1/tokenize", `{"expression":"12 +\n ab"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeBody[map[string][]TokenBody](t, rec)
	toks := resp["tokens"]
	require.Len(t, toks, 3)
	assert.Equal(t, TokenBody{Kind: "INT", Text: "12", Value: 12, Line: 1, Column: 1, Offset: 0}, toks[0])
	assert.Equal(t, TokenBody{Kind: "OTHER", Text: "+", Line: 1, Column: 4, Offset: 3}, toks[1])
	assert.Equal(t, TokenBody{Kind: "NAME", Text: "ab", Line: 2, Column: 2, Offset: 6}, toks[2])
}

func TestBatch(t *testing.T) {
	h := newTestServer(t, engine.Config{}, 0).Handler()

	rec := post(t, h, "/api/v1/batch", `{"expressions":["1+1","1/0","-(3)"]}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decodeBody[BatchResponse](t, rec)
	require.Len(t, resp.Results, 3)
	assert.Equal(t, int64(2), *resp.Results[0].Result)
	assert.Equal(t, "DivisionByZero", resp.Results[1].Error.Kind)
	assert.Equal(t, int64(-3), *resp.Results[2].Result)
	assert.Equal(t, 3, resp.Summary.Total)
	assert.Equal(t, 1, resp.Summary.Failed)
}

func TestBatch_TooLarge(t *testing.T) {
	s, err := NewServer(Config{Engine: engine.New(engine.Config{}), MaxBatchSize: 2})
	require.NoError(t, err)

	rec := post(t, s.Handler(), "/api/v1/batch", `{"expressions":["1","2","3"]}`)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Contains(t, rec.Body.String(), "BatchTooLarge")
}

func TestHistoryRoutes(t *testing.T) {
	ctx := context.Background()
	store, err := history.Open(ctx, history.DriverSQLite, ":memory:", testutil.NewTestLogger(t))
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	h := newTestServer(t, engine.Config{History: store}, 8).Handler()

	post(t, h, "/api/v1/eval", `{"expression":"1+2"}`)
	post(t, h, "/api/v1/eval", `{"expression":"1+2"}`) // cached, still recorded
	post(t, h, "/api/v1/eval", `{"expression":"(1"}`)

	rec := get(t, h, "/api/v1/history?limit=10")
	require.Equal(t, http.StatusOK, rec.Code)
	list := decodeBody[map[string][]history.Record](t, rec)
	require.Len(t, list["records"], 3)
	for _, r := range list["records"] {
		assert.Equal(t, history.SourceServer, r.Source)
	}

	rec = get(t, h, "/api/v1/history?errors=true")
	require.Equal(t, http.StatusOK, rec.Code)
	failed := decodeBody[map[string][]history.Record](t, rec)["records"]
	require.Len(t, failed, 1)

	rec = get(t, h, "/api/v1/history/"+failed[0].ID)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "UnmatchedParenthesis", decodeBody[history.Record](t, rec).ErrorKind)

	rec = get(t, h, "/api/v1/history/stats")
	require.Equal(t, http.StatusOK, rec.Code)
	st := decodeBody[history.Stats](t, rec)
	assert.Equal(t, 3, st.Total)
	assert.Equal(t, 2, st.Succeeded)

	assert.Equal(t, http.StatusNotFound, get(t, h, "/api/v1/history/missing").Code)
	assert.Equal(t, http.StatusBadRequest, get(t, h, "/api/v1/history?limit=abc").Code)
}

func TestHistoryRoutes_Disabled(t *testing.T) {
	h := newTestServer(t, engine.Config{}, 0).Handler()

	rec := get(t, h, "/api/v1/history")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "HistoryDisabled")
}

func TestMetricsEndpoint(t *testing.T) {
	h := newTestServer(t, engine.Config{}, 0).Handler()
	post(t, h, "/api/v1/eval", `{"expression":"1"}`)

	rec := get(t, h, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "leapcalc_evaluations_total")
}

func TestServeListener_GracefulShutdown(t *testing.T) {
	s := newTestServer(t, engine.Config{}, 0)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.ServeListener(ctx, ln) }()

	url := fmt.Sprintf("http://%s/api/v1/eval", ln.Addr().String())
	resp, err := http.Post(url, "application/json", bytes.NewBufferString(`{"expression":"2*21"}`))
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"result":42`)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

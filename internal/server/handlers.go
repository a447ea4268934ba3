package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/leapstack-labs/leapcalc/internal/batch"
	"github.com/leapstack-labs/leapcalc/internal/engine"
	"github.com/leapstack-labs/leapcalc/internal/history"
	"github.com/leapstack-labs/leapcalc/internal/metrics"
	"github.com/leapstack-labs/leapcalc/pkg/parser"
	"github.com/leapstack-labs/leapcalc/pkg/token"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 4 << 20

func (s *Server) routes(r chi.Router) {
	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/eval", s.handleEval)
		r.Post("/tokenize", s.handleTokenize)
		r.Post("/batch", s.handleBatch)
		r.Get("/history", s.handleHistoryList)
		r.Get("/history/stats", s.handleHistoryStats)
		r.Get("/history/{id}", s.handleHistoryGet)
	})
}

// ---------- Wire types ----------

type exprRequest struct {
	Expression string `json:"expression"`
}

type batchRequest struct {
	Expressions []string `json:"expressions"`
}

// ErrorBody describes a failed evaluation or request.
type ErrorBody struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
	Line    int    `json:"line,omitempty"`
	Column  int    `json:"column,omitempty"`
}

// EvalResponse is the result of one evaluation.
type EvalResponse struct {
	Expression string     `json:"expression"`
	Result     *int64     `json:"result,omitempty"`
	Error      *ErrorBody `json:"error,omitempty"`
	Cached     bool       `json:"cached,omitempty"`
}

// TokenBody is a token on the wire.
type TokenBody struct {
	Kind     string `json:"kind"`
	Text     string `json:"text"`
	Value    uint64 `json:"value,omitempty"`
	Overflow bool   `json:"overflow,omitempty"`
	Line     int    `json:"line"`
	Column   int    `json:"column"`
	Offset   int    `json:"offset"`
}

// BatchResponse holds per-expression results in request order.
type BatchResponse struct {
	Results []EvalResponse `json:"results"`
	Summary batch.Summary  `json:"summary"`
}

// ---------- Helpers ----------

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, kind, msg string) {
	writeJSON(w, status, map[string]ErrorBody{"error": {Kind: kind, Message: msg}})
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "BadRequest", fmt.Sprintf("invalid request body: %v", err))
		return false
	}
	return true
}

// errorBody converts an evaluation error for the wire.
func errorBody(err error) *ErrorBody {
	var pe *parser.ParseError
	if errors.As(err, &pe) {
		return &ErrorBody{
			Kind:    pe.Kind.String(),
			Message: pe.Message,
			Line:    pe.Pos.Line,
			Column:  pe.Pos.Column,
		}
	}
	if errors.Is(err, engine.ErrInputTooLong) {
		return &ErrorBody{Kind: "InputTooLong", Message: err.Error()}
	}
	return &ErrorBody{Kind: "Error", Message: err.Error()}
}

func toResponse(res engine.Result, cached bool) EvalResponse {
	resp := EvalResponse{Expression: res.Expression, Cached: cached}
	if res.Err != nil {
		resp.Error = errorBody(res.Err)
		return resp
	}
	v := res.Value
	resp.Result = &v
	return resp
}

// evaluate serves from the cache when possible. Every call is recorded in
// history and counted, cached or not. Inputs over the length limit never
// reach the cache.
func (s *Server) evaluate(r *http.Request, expr string) (engine.Result, bool) {
	if s.cache == nil || s.engine.CheckLength(expr) != nil {
		return s.engine.Evaluate(r.Context(), expr, history.SourceServer), false
	}

	if res, ok := s.cache.Get(expr); ok {
		metrics.ObserveCache(true)
		metrics.ObserveOutcome(res.Err)
		s.engine.Record(r.Context(), res, history.SourceServer)
		return res, true
	}
	metrics.ObserveCache(false)

	res := s.engine.Evaluate(r.Context(), expr, history.SourceServer)
	s.cache.Add(expr, res)
	return res, false
}

// ---------- Handlers ----------

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleEval(w http.ResponseWriter, r *http.Request) {
	var req exprRequest
	if !decode(w, r, &req) {
		return
	}

	res, cached := s.evaluate(r, req.Expression)
	resp := toResponse(res, cached)

	switch {
	case res.Err == nil:
		writeJSON(w, http.StatusOK, resp)
	case errors.Is(res.Err, engine.ErrInputTooLong):
		writeJSON(w, http.StatusRequestEntityTooLarge, resp)
	default:
		writeJSON(w, http.StatusUnprocessableEntity, resp)
	}
}

func (s *Server) handleTokenize(w http.ResponseWriter, r *http.Request) {
	var req exprRequest
	if !decode(w, r, &req) {
		return
	}

	toks, err := s.engine.Tokenize(req.Expression)
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "InputTooLong", err.Error())
		return
	}

	out := make([]TokenBody, len(toks))
	for i, tok := range toks {
		out[i] = TokenBody{
			Kind:     tok.Kind.String(),
			Text:     tok.Literal(),
			Overflow: tok.Overflow,
			Line:     tok.Span.Start.Line,
			Column:   tok.Span.Start.Column,
			Offset:   tok.Span.Start.Offset,
		}
		if tok.Kind == token.IntLiteral {
			out[i].Value = tok.Value
		}
	}
	writeJSON(w, http.StatusOK, map[string][]TokenBody{"tokens": out})
}

func (s *Server) handleBatch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if !decode(w, r, &req) {
		return
	}
	if len(req.Expressions) > s.cfg.MaxBatchSize {
		writeError(w, http.StatusRequestEntityTooLarge, "BatchTooLarge",
			fmt.Sprintf("batch of %d expressions exceeds limit of %d", len(req.Expressions), s.cfg.MaxBatchSize))
		return
	}

	start := time.Now()
	items := make([]batch.Item, len(req.Expressions))
	for i, expr := range req.Expressions {
		items[i] = batch.Item{Line: i + 1, Expr: expr}
	}

	runner := batch.NewRunner(s.engine, s.logger)
	runner.Source = history.SourceServer
	results, err := runner.Run(r.Context(), items)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "Cancelled", err.Error())
		return
	}

	resp := BatchResponse{Results: make([]EvalResponse, len(results))}
	for i, res := range results {
		resp.Results[i] = toResponse(res.Result, false)
	}
	resp.Summary = batch.Summarize(results)
	resp.Summary.Elapsed = time.Since(start)
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) historyStore(w http.ResponseWriter) (history.Store, bool) {
	store := s.engine.History()
	if store == nil {
		writeError(w, http.StatusNotFound, "HistoryDisabled", "history is not enabled")
		return nil, false
	}
	return store, true
}

func (s *Server) handleHistoryList(w http.ResponseWriter, r *http.Request) {
	store, ok := s.historyStore(w)
	if !ok {
		return
	}

	opts := history.ListOptions{Limit: 50}
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "BadRequest", "limit must be a non-negative integer")
			return
		}
		opts.Limit = n
	}
	opts.ErrorsOnly = r.URL.Query().Get("errors") == "true"

	records, err := store.List(r.Context(), opts)
	if err != nil {
		s.logger.Error("history list failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal", "failed to list history")
		return
	}
	if records == nil {
		records = []history.Record{}
	}
	writeJSON(w, http.StatusOK, map[string][]history.Record{"records": records})
}

func (s *Server) handleHistoryStats(w http.ResponseWriter, r *http.Request) {
	store, ok := s.historyStore(w)
	if !ok {
		return
	}
	st, err := store.Stats(r.Context())
	if err != nil {
		s.logger.Error("history stats failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal", "failed to summarize history")
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleHistoryGet(w http.ResponseWriter, r *http.Request) {
	store, ok := s.historyStore(w)
	if !ok {
		return
	}
	rec, err := store.Get(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, history.ErrNotFound) {
		writeError(w, http.StatusNotFound, "NotFound", err.Error())
		return
	}
	if err != nil {
		s.logger.Error("history get failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal", "failed to get history record")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

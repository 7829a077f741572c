package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/ogulcanaydogan/credit-guardian/pkg/credits"
	"github.com/ogulcanaydogan/credit-guardian/pkg/model"
	"github.com/ogulcanaydogan/credit-guardian/pkg/storage"
)

// BatchProcessor runs one credits batch.
type BatchProcessor interface {
	Process(ctx context.Context, batch credits.Batch) (*credits.BatchResult, error)
}

// CreditReporter reports a user's standing against their limit.
type CreditReporter interface {
	Summary(ctx context.Context, userID int64) (*model.CreditSummary, error)
}

// ErrorRecorder counts rejected or failed batches.
type ErrorRecorder interface {
	RecordBatchError(reason string)
}

// Options configures a Server.
type Options struct {
	Processor   BatchProcessor
	Credits     CreditReporter
	Metrics     http.Handler  // served at /metrics when set
	Errors      ErrorRecorder // optional
	MaxBodySize int64
	Logger      *slog.Logger
}

// Server exposes health, batch processing and credit lookup endpoints.
type Server struct {
	opts   Options
	mux    *http.ServeMux
	logger *slog.Logger
}

// NewServer creates an API server.
func NewServer(opts Options) *Server {
	if opts.MaxBodySize <= 0 {
		opts.MaxBodySize = 1 << 20
	}
	s := &Server{
		opts:   opts,
		mux:    http.NewServeMux(),
		logger: opts.Logger,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
	s.mux.HandleFunc("POST /api/v1/credits/exhaustion", s.handleExhaustion)
	s.mux.HandleFunc("GET /api/v1/users/{id}/credits", s.handleUserCredits)
	if s.opts.Metrics != nil {
		s.mux.Handle("GET /metrics", s.opts.Metrics)
	}
}

// Handler returns the HTTP handler for this server.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// exhaustionRequest is the body of a batch submitted by the scheduler.
type exhaustionRequest struct {
	Users             []int64           `json:"users"`
	DBCostByCreator   map[int64]float64 `json:"db_cost_by_creator"`
	LiveCostByCreator map[int64]float64 `json:"live_cost_by_creator"`
}

func (s *Server) handleExhaustion(w http.ResponseWriter, r *http.Request) {
	var req exhaustionRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, s.opts.MaxBodySize))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		s.recordError("invalid_input")
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	res, err := s.opts.Processor.Process(r.Context(), credits.Batch{
		UserIDs:       req.Users,
		RecordedCosts: req.DBCostByCreator,
		LiveCosts:     req.LiveCostByCreator,
	})
	switch {
	case errors.Is(err, credits.ErrEmptyBatch), errors.Is(err, credits.ErrInvalidCost):
		s.recordError("invalid_input")
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		s.recordError("internal")
		s.logger.Error("process credits batch", "users", len(req.Users), "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	w.Header().Set("X-Batch-Id", res.BatchID)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleUserCredits(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	summary, err := s.opts.Credits.Summary(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}
	if err != nil {
		s.logger.Error("credit summary", "user_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) recordError(reason string) {
	if s.opts.Errors != nil {
		s.opts.Errors.RecordBatchError(reason)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

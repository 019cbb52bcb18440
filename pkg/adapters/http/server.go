package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/aretw0/tessera"
	"github.com/aretw0/tessera/internal/logging"
	"github.com/aretw0/tessera/pkg/domain"
	"github.com/aretw0/tessera/pkg/observability"
	"github.com/aretw0/tessera/pkg/ports"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

// Server exposes the checkpoints of a store over HTTP.
type Server struct {
	Store    ports.CheckpointStore
	Gatherer prometheus.Gatherer
	Logger   *slog.Logger
}

// RunSummary is one row of GET /runs.
type RunSummary struct {
	RunKey    string       `json:"run_key"`
	State     domain.State `json:"state"`
	Item      int          `json:"item"`
	Pipe      int          `json:"pipe"`
	Chunks    int          `json:"chunks"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// Option configures the handler.
type Option func(*Server)

// WithGatherer serves the registry's metrics under /metrics.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.Gatherer = g
	}
}

// WithLogger logs handler failures.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.Logger = logger
	}
}

// NewHandler creates the HTTP handler for store.
func NewHandler(store ports.CheckpointStore, opts ...Option) http.Handler {
	s := &Server{Store: store, Logger: logging.NewNop()}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(enableCORS)

	r.Get("/health", s.GetHealth)
	r.Get("/info", s.GetInfo)
	r.Get("/runs", s.ListRuns)
	r.Get("/runs/{runKey}", s.GetRun)
	r.Delete("/runs/{runKey}", s.DeleteRun)
	if s.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", observability.Handler(s.Gatherer))
	}
	return r
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetHealth handles the GET /health request.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles the GET /info request.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"app":     "tessera",
		"version": tessera.Version,
	})
}

// ListRuns handles the GET /runs request.
func (s *Server) ListRuns(w http.ResponseWriter, r *http.Request) {
	keys, err := s.Store.List(r.Context())
	if err != nil {
		s.fail(w, "List runs failed", err)
		return
	}
	slices.Sort(keys)

	runs := make([]RunSummary, 0, len(keys))
	for _, key := range keys {
		cp, err := s.Store.Load(r.Context(), key)
		if errors.Is(err, domain.ErrCheckpointNotFound) {
			// Expired or deleted since List.
			continue
		}
		if err != nil {
			s.fail(w, "Load run failed", err)
			return
		}
		runs = append(runs, Summarize(cp))
	}
	s.writeJSON(w, http.StatusOK, runs)
}

// GetRun handles the GET /runs/{runKey} request.
func (s *Server) GetRun(w http.ResponseWriter, r *http.Request) {
	cp, err := s.Store.Load(r.Context(), chi.URLParam(r, "runKey"))
	if errors.Is(err, domain.ErrCheckpointNotFound) {
		http.Error(w, "run not found", http.StatusNotFound)
		return
	}
	if err != nil {
		s.fail(w, "Load run failed", err)
		return
	}
	s.writeJSON(w, http.StatusOK, cp)
}

// DeleteRun handles the DELETE /runs/{runKey} request.
func (s *Server) DeleteRun(w http.ResponseWriter, r *http.Request) {
	if err := s.Store.Delete(r.Context(), chi.URLParam(r, "runKey")); err != nil {
		s.fail(w, "Delete run failed", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Summarize flattens a checkpoint for listings.
func Summarize(cp *domain.Checkpoint) RunSummary {
	return RunSummary{
		RunKey:    cp.RunKey,
		State:     cp.State,
		Item:      cp.Item,
		Pipe:      cp.Pipe,
		Chunks:    len(cp.Chunks),
		UpdatedAt: cp.UpdatedAt,
	}
}

func (s *Server) fail(w http.ResponseWriter, msg string, err error) {
	s.Logger.Error(msg, "err", err)
	http.Error(w, "internal error", http.StatusInternalServerError)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.Logger.Error("Response encode failed", "err", err)
	}
}

package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/liamcoop/prereq/internal/logger"
	"github.com/liamcoop/prereq/prereq"
	"github.com/liamcoop/prereq/store"
	_ "github.com/lib/pq"
)

// Config is read from the environment. Without DATABASE_URL the server
// runs on the in-memory store, which is what the tests and local
// development use.
type Config struct {
	DatabaseURL string `env:"DATABASE_URL"`
	Port        string `env:"PORT" envDefault:"8080"`
}

type Server struct {
	db     *sql.DB // nil when running in-memory
	store  store.RequirementStore
	cache  store.Cache
	engine *prereq.Engine
	router *chi.Mux
}

// NewServer wires a server from explicit parts. db may be nil.
func NewServer(db *sql.DB, st store.RequirementStore, engine *prereq.Engine) *Server {
	s := &Server{
		db:     db,
		store:  st,
		cache:  store.NewInMemoryCache(store.DefaultCacheConfig()),
		engine: engine,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/api/v1/health", s.handleHealth)

	r.Post("/api/v1/check", s.handleCheck)
	r.Post("/api/v1/evaluate", s.handleEvaluate)

	r.Route("/api/v1/requirements", func(r chi.Router) {
		r.Get("/", s.handleListRequirements)
		r.Post("/", s.handleCreateRequirement)

		r.Route("/{requirementId}", func(r chi.Router) {
			r.Get("/", s.handleGetRequirement)
			r.Put("/", s.handleUpdateRequirement)
			r.Delete("/", s.handleDeleteRequirement)
		})
	})

	s.router = r
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Health check handler
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.db != nil {
		if err := s.db.Ping(); err != nil {
			respondJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "unhealthy",
				"error":  err.Error(),
			})
			return
		}
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// Inline check handler: one requirement document, one character.
func (s *Server) handleCheck(w http.ResponseWriter, r *http.Request) {
	var req CheckRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if len(req.Requirement) == 0 {
		respondError(w, http.StatusBadRequest, "requirement is required", nil)
		return
	}
	if req.Character == nil {
		respondError(w, http.StatusBadRequest, "character is required", nil)
		return
	}

	requirement, err := prereq.Unmarshal(req.Requirement)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid requirement", err)
		return
	}

	result, err := s.engine.Check(requirement, req.Character)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "check failed", err)
		return
	}

	respondJSON(w, http.StatusOK, CheckResponse{
		Result:         result,
		FailureReasons: result.FailureReasons(),
	})
}

// Stored-requirements evaluation handler: one character against a set
// of stored requirements (default: all active).
func (s *Server) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	var req EvaluateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if req.Character == nil {
		respondError(w, http.StatusBadRequest, "character is required", nil)
		return
	}

	reqs := make(map[string]prereq.Requirement)
	evalErrs := make(map[string]string)

	if len(req.Requirements) > 0 {
		for _, id := range req.Requirements {
			stored, err := s.store.Get(id)
			if err != nil {
				evalErrs[id] = err.Error()
				continue
			}
			reqs[id] = stored.Requirement
		}
	} else {
		stored, err := s.activeRequirements()
		if err != nil {
			respondError(w, http.StatusInternalServerError, "failed to load requirements", err)
			return
		}
		for _, sr := range stored {
			reqs[sr.ID] = sr.Requirement
		}
	}

	start := time.Now()
	results, errs := s.engine.CheckMany(reqs, req.Character)
	for id, err := range errs {
		evalErrs[id] = err.Error()
	}

	resp := EvaluateResponse{
		Results:        results,
		EvaluationTime: time.Since(start).String(),
	}
	if len(evalErrs) > 0 {
		resp.Errors = evalErrs
	}
	respondJSON(w, http.StatusOK, resp)
}

// activeRequirements serves the active list through the cache so the
// evaluate path does not hit the store on every request.
func (s *Server) activeRequirements() ([]*store.StoredRequirement, error) {
	if cached := s.cache.Get(); cached != nil {
		return cached, nil
	}
	reqs, err := s.store.ListActive()
	if err != nil {
		return nil, err
	}
	s.cache.Set(reqs)
	return reqs, nil
}

// Create requirement handler
func (s *Server) handleCreateRequirement(w http.ResponseWriter, r *http.Request) {
	var req CreateRequirementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if req.Name == "" || len(req.Requirement) == 0 {
		respondError(w, http.StatusBadRequest, "name and requirement are required", nil)
		return
	}

	requirement, err := prereq.Unmarshal(req.Requirement)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid requirement", err)
		return
	}

	stored := &store.StoredRequirement{
		ID:          uuid.NewString(),
		Name:        req.Name,
		Requirement: requirement,
		Active:      req.Active,
	}
	if err := s.store.Add(stored); err != nil {
		respondError(w, http.StatusInternalServerError, "failed to store requirement", err)
		return
	}
	s.cache.Invalidate()

	respondJSON(w, http.StatusCreated, toResponse(stored))
}

// List requirements handler
func (s *Server) handleListRequirements(w http.ResponseWriter, r *http.Request) {
	reqs, err := s.store.ListActive()
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list requirements", err)
		return
	}

	resp := RequirementsListResponse{Requirements: []RequirementResponse{}}
	for _, sr := range reqs {
		resp.Requirements = append(resp.Requirements, toResponse(sr))
	}
	respondJSON(w, http.StatusOK, resp)
}

// Get requirement handler
func (s *Server) handleGetRequirement(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "requirementId")

	stored, err := s.store.Get(id)
	if err != nil {
		respondError(w, http.StatusNotFound, "requirement not found", err)
		return
	}
	respondJSON(w, http.StatusOK, toResponse(stored))
}

// Update requirement handler
func (s *Server) handleUpdateRequirement(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "requirementId")

	var req UpdateRequirementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	requirement, err := prereq.Unmarshal(req.Requirement)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid requirement", err)
		return
	}

	stored := &store.StoredRequirement{
		ID:          id,
		Name:        req.Name,
		Requirement: requirement,
		Active:      req.Active,
	}
	if err := s.store.Update(stored); err != nil {
		respondError(w, http.StatusNotFound, "failed to update requirement", err)
		return
	}
	s.cache.Invalidate()

	respondJSON(w, http.StatusOK, toResponse(stored))
}

// Delete requirement handler
func (s *Server) handleDeleteRequirement(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "requirementId")

	if err := s.store.Delete(id); err != nil {
		respondError(w, http.StatusNotFound, "requirement not found", err)
		return
	}
	s.cache.Invalidate()

	w.WriteHeader(http.StatusNoContent)
}

func toResponse(sr *store.StoredRequirement) RequirementResponse {
	doc, err := prereq.Marshal(sr.Requirement)
	if err != nil {
		// A stored requirement came through the codec, so this only
		// trips on a programming error.
		doc = []byte("null")
	}
	return RequirementResponse{
		ID:          sr.ID,
		Name:        sr.Name,
		Requirement: doc,
		Active:      sr.Active,
		CreatedAt:   sr.CreatedAt,
		UpdatedAt:   sr.UpdatedAt,
	}
}

// Helper functions
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	respondJSON(w, status, resp)
}

func main() {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		logger.Fatal("failed to parse config", "error", err)
	}

	var db *sql.DB
	var st store.RequirementStore
	var engineOpts []prereq.Option

	if cfg.DatabaseURL != "" {
		var err error
		db, err = sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			logger.Fatal("failed to open database", "error", err)
		}
		if err := db.Ping(); err != nil {
			logger.Fatal("failed to ping database", "error", err)
		}
		st = store.NewPostgresStore(db)
		engineOpts = append(engineOpts, prereq.WithAuditSink(store.NewPostgresAuditSink(db)))
		logger.Info("using postgres store")
	} else {
		st = store.NewInMemoryStore()
		logger.Info("no DATABASE_URL set, using in-memory store")
	}

	engine := prereq.NewEngine(engineOpts...)
	server := NewServer(db, st, engine)
	if db != nil {
		defer db.Close()
	}

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      server,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server starting", "port", cfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed to start", "error", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}
	logger.Info("server stopped")

	if err := logger.Shutdown(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "logger shutdown error: %v\n", err)
	}
}

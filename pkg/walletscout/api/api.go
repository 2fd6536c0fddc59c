// Package api exposes the scan control surface over HTTP. All endpoints
// speak JSON; scan exclusivity conflicts map to 409 and unknown resources
// to 404.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/kestrelsec/walletscout/pkg/walletscout/collector"
	"github.com/kestrelsec/walletscout/pkg/walletscout/history"
	"github.com/kestrelsec/walletscout/pkg/walletscout/logging"
	"github.com/kestrelsec/walletscout/pkg/walletscout/session"
	"github.com/kestrelsec/walletscout/pkg/walletscout/sysinfo"
	"github.com/kestrelsec/walletscout/pkg/walletscout/types"
)

// Options configures the API server.
type Options struct {
	// Listen is the bind address, e.g. ":8799".
	Listen string

	// Manager drives scan lifecycles. Required.
	Manager *session.Manager

	// Store serves scan history. Required.
	Store *history.Store

	// VolumeBase is the directory enumerated for attached volumes.
	VolumeBase string

	// Defaults fill unset fields of incoming scan requests.
	Defaults types.ScanConfig
}

// Server is the HTTP control surface.
type Server struct {
	opts   Options
	logger *logging.Logger
	http   *http.Server
}

// New creates a Server with its routes mounted.
func New(opts Options) *Server {
	s := &Server{
		opts:   opts,
		logger: logging.Get("api"),
	}
	s.http = &http.Server{
		Addr:              opts.Listen,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Router builds the chi route tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Post("/scan/start", s.handleStart)
		r.Post("/scan/stop", s.handleStop)
		r.Get("/scan/status", s.handleStatus)
		r.Get("/scan/history", s.handleHistory)
		r.Get("/scan/{id}", s.handleRecord)
		r.Get("/results", s.handleResults)
		r.Get("/system-info", s.handleSystemInfo)
	})

	return r
}

// Serve runs the server until the context is cancelled, then shuts down
// gracefully.
func (s *Server) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", s.opts.Listen)
		if err := s.http.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}

// logRequests logs each request at debug with method, path and duration.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"method", r.Method, "path", r.URL.Path,
			"status", ww.Status(), "duration", time.Since(start))
	})
}

// startRequest is the body of POST /api/scan/start.
type startRequest struct {
	Path     string   `json:"path"`
	MaxDepth int      `json:"max_depth,omitempty"`
	Workers  int      `json:"workers,omitempty"`
	Formats  []string `json:"formats,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	cfg := s.opts.Defaults
	if req.Path != "" {
		cfg.Root = req.Path
	}
	if req.MaxDepth > 0 {
		cfg.MaxDepth = req.MaxDepth
	}
	if req.Workers > 0 {
		cfg.Workers = req.Workers
	}
	if len(req.Formats) > 0 {
		cfg.Formats = req.Formats
	}
	if cfg.Root == "" {
		writeError(w, http.StatusBadRequest, "path is required")
		return
	}

	id, err := s.opts.Manager.Start(cfg)
	switch {
	case errors.Is(err, session.ErrScanActive):
		writeError(w, http.StatusConflict, "a scan is already in progress")
	case errors.Is(err, collector.ErrPathNotFound), errors.Is(err, collector.ErrNotDirectory):
		writeError(w, http.StatusNotFound, err.Error())
	case err != nil:
		s.logger.Error("start scan", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to start scan")
	default:
		writeJSON(w, http.StatusAccepted, map[string]string{"scan_id": id, "status": "started"})
	}
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	err := s.opts.Manager.Stop()
	if errors.Is(err, session.ErrNoActiveSession) {
		// Stopping when nothing runs is a normal control outcome, not
		// a conflict.
		writeJSON(w, http.StatusOK, map[string]string{"status": "no_active_session"})
		return
	}
	if err != nil {
		s.logger.Error("stop scan", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to stop scan")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "stopping"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.opts.Manager.Status())
}

func (s *Server) handleResults(w http.ResponseWriter, r *http.Request) {
	findings := s.opts.Manager.Results()
	writeJSON(w, http.StatusOK, map[string]any{
		"count":    len(findings),
		"findings": findings,
	})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	records, err := s.opts.Store.List()
	if err != nil {
		s.logger.Error("list history", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to read history")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"count":   len(records),
		"records": records,
	})
}

func (s *Server) handleRecord(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	rec, err := s.opts.Store.Get(id)
	if errors.Is(err, history.ErrNotFound) {
		writeError(w, http.StatusNotFound, "scan record not found")
		return
	}
	if err != nil {
		s.logger.Error("load record", "scan", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to read record")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleSystemInfo(w http.ResponseWriter, r *http.Request) {
	info, err := sysinfo.Collect(s.opts.VolumeBase)
	if err != nil {
		s.logger.Error("collect system info", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to collect system info")
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"splice/internal/api"
	"splice/internal/config"
	"splice/internal/jobs"
	"splice/internal/logging"
	"splice/internal/registry"
	"splice/internal/scheduler"
	"splice/internal/storage"
)

type apiServer struct {
	bind   string
	logger *slog.Logger
	daemon *Daemon
	svc    *api.Service

	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) (*apiServer, error) {
	bind := strings.TrimSpace(cfg.Paths.APIBind)
	if bind == "" {
		return nil, errors.New("api bind address required")
	}

	srv := &apiServer{
		bind:   bind,
		logger: logger,
		daemon: d,
		svc:    api.NewService(d.sched, d.content, d.workers),
	}

	router := mux.NewRouter()
	router.HandleFunc("/api/version", srv.handleVersion).Methods(http.MethodGet)
	router.HandleFunc("/api/login", srv.handleLogin).Methods(http.MethodPost)

	authed := router.NewRoute().Subrouter()
	authed.Use(srv.authMiddleware)
	authed.HandleFunc("/api/logout", srv.handleLogout).Methods(http.MethodPost)
	authed.HandleFunc("/api/workers", srv.handleWorkers).Methods(http.MethodGet)
	authed.HandleFunc("/api/jobs", srv.handleSubmitJob).Methods(http.MethodPost)
	authed.HandleFunc("/api/jobs", srv.handleListJobs).Methods(http.MethodGet)
	authed.HandleFunc("/api/jobs/{job}", srv.handleJobStatus).Methods(http.MethodGet)
	authed.HandleFunc("/api/jobs/{job}/output", srv.handleJobOutput).Methods(http.MethodGet)
	authed.HandleFunc("/api/jobs/{job}/cancel", srv.handleCancelJob).Methods(http.MethodPost)
	authed.HandleFunc("/api/tasks/{task}/output", srv.handleTaskOutputFetch).Methods(http.MethodGet)
	authed.HandleFunc("/api/tasks/{task}/cancel", srv.handleCancelTask).Methods(http.MethodPost)

	worker := router.NewRoute().Subrouter()
	worker.Use(srv.authMiddleware, srv.requireWorker)
	worker.HandleFunc("/api/allocate", srv.handleAllocate).Methods(http.MethodPost)
	worker.HandleFunc("/api/tasks/{task}/input/{index:[0-9]+}", srv.handleTaskInput).Methods(http.MethodGet)
	worker.HandleFunc("/api/tasks/{task}/output", srv.handleTaskOutput).Methods(http.MethodPut)
	worker.HandleFunc("/api/tasks/{task}/status", srv.handleTaskStatus).Methods(http.MethodPost)
	worker.HandleFunc("/api/tasks/{task}/renew", srv.handleTaskRenew).Methods(http.MethodPost)

	srv.server = &http.Server{
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      10 * time.Minute,
		IdleTimeout:       60 * time.Second,
	}
	return srv, nil
}

func (s *apiServer) start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

func (s *apiServer) addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, api.ErrorResponse{Error: message})
}

// writeServiceError maps service errors onto transport status codes.
// ErrNoTask carries a Retry-After so workers back off politely.
func (s *apiServer) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, scheduler.ErrNoTask):
		w.Header().Set("Retry-After", "1")
		s.writeError(w, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, jobs.ErrNotFound), errors.Is(err, storage.ErrNotFound):
		s.writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, jobs.ErrConflict), errors.Is(err, scheduler.ErrOutputMissing):
		s.writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, jobs.ErrValidation):
		s.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, registry.ErrUnauthorized):
		s.writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, context.Canceled):
		// Client went away; nothing useful to write.
	default:
		s.writeError(w, http.StatusInternalServerError, err.Error())
	}
}

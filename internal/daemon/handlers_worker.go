package daemon

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"splice/internal/api"
)

func (s *apiServer) handleVersion(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.svc.Version())
}

func (s *apiServer) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req api.LoginRequest
	if r.Body != nil {
		defer r.Body.Close()
		// An empty body is a valid anonymous login.
		_ = json.NewDecoder(r.Body).Decode(&req)
	}
	s.writeJSON(w, http.StatusOK, s.svc.Login(req))
}

func (s *apiServer) handleLogout(w http.ResponseWriter, r *http.Request) {
	p, ok := requestPrincipal(r)
	if !ok || p.admin {
		s.writeError(w, http.StatusForbidden, "worker session required")
		return
	}
	if err := s.daemon.workers.Logout(p.token); err != nil {
		s.writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	s.writeJSON(w, http.StatusOK, nil)
}

func (s *apiServer) handleWorkers(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.svc.Workers())
}

func (s *apiServer) handleAllocate(w http.ResponseWriter, r *http.Request) {
	p, _ := requestPrincipal(r)
	grant, err := s.svc.Allocate(r.Context(), p.worker)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, grant)
}

func (s *apiServer) handleTaskInput(w http.ResponseWriter, r *http.Request) {
	taskID, ok := pathUUID(r, "task")
	if !ok {
		s.writeError(w, http.StatusNotFound, "task not found")
		return
	}
	index, err := strconv.Atoi(mux.Vars(r)["index"])
	if err != nil {
		s.writeError(w, http.StatusNotFound, "input not found")
		return
	}
	input, err := s.svc.OpenTaskInput(r.Context(), taskID, index)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	defer input.Close()
	http.ServeContent(w, r, "input", time.Time{}, input)
}

func (s *apiServer) handleTaskOutputFetch(w http.ResponseWriter, r *http.Request) {
	taskID, ok := pathUUID(r, "task")
	if !ok {
		s.writeError(w, http.StatusNotFound, "task not found")
		return
	}
	output, err := s.svc.OpenTaskOutput(r.Context(), taskID)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	defer output.Close()
	http.ServeContent(w, r, "output", time.Time{}, output)
}

func (s *apiServer) handleTaskOutput(w http.ResponseWriter, r *http.Request) {
	taskID, ok := pathUUID(r, "task")
	if !ok {
		s.writeError(w, http.StatusNotFound, "task not found")
		return
	}
	defer r.Body.Close()
	if _, err := s.svc.PutTaskOutput(r.Context(), taskID, r.Body); err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusNoContent, nil)
}

func (s *apiServer) handleTaskStatus(w http.ResponseWriter, r *http.Request) {
	taskID, ok := pathUUID(r, "task")
	if !ok {
		s.writeError(w, http.StatusNotFound, "task not found")
		return
	}
	var report api.StatusReport
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(&report); err != nil {
		s.writeError(w, http.StatusBadRequest, "malformed status report")
		return
	}
	p, _ := requestPrincipal(r)
	view, err := s.svc.ReportStatus(r.Context(), p.worker, taskID, report)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, view)
}

func (s *apiServer) handleTaskRenew(w http.ResponseWriter, r *http.Request) {
	taskID, ok := pathUUID(r, "task")
	if !ok {
		s.writeError(w, http.StatusNotFound, "task not found")
		return
	}
	var req api.RenewRequest
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "malformed renew request")
		return
	}
	p, _ := requestPrincipal(r)
	resp, err := s.svc.RenewLease(r.Context(), p.worker, taskID, req)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}

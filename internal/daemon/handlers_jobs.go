package daemon

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"splice/internal/api"
)

// pathUUID extracts and parses a UUID path variable. Malformed ids read as
// "no such resource".
func pathUUID(r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)[name])
	return id, err == nil
}

// submitOptionsFromQuery reads encoding options off the submission URL. The
// request body is reserved for the raw source bytes, so the options travel
// as query parameters.
func submitOptionsFromQuery(r *http.Request) (api.SubmitOptions, error) {
	query := r.URL.Query()
	opts := api.SubmitOptions{
		VideoCodec:  strings.TrimSpace(query.Get("videoCodec")),
		VideoParams: query["videoParam"],
		AudioCodec:  strings.TrimSpace(query.Get("audioCodec")),
		AudioParams: query["audioParam"],
	}
	if raw := query.Get("segmentSeconds"); raw != "" {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return api.SubmitOptions{}, fmt.Errorf("segmentSeconds %q is not a number", raw)
		}
		opts.SegmentSeconds = parsed
	}
	return opts, nil
}

func (s *apiServer) handleSubmitJob(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	opts, err := submitOptionsFromQuery(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	view, err := s.svc.SubmitJob(r.Context(), opts, r.Body)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, view)
}

func (s *apiServer) handleListJobs(w http.ResponseWriter, r *http.Request) {
	list, err := s.svc.ListJobs(r.Context())
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, list)
}

func (s *apiServer) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	jobID, ok := pathUUID(r, "job")
	if !ok {
		s.writeError(w, http.StatusNotFound, "job not found")
		return
	}
	status, err := s.svc.JobStatus(r.Context(), jobID)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, status)
}

func (s *apiServer) handleJobOutput(w http.ResponseWriter, r *http.Request) {
	jobID, ok := pathUUID(r, "job")
	if !ok {
		s.writeError(w, http.StatusNotFound, "job not found")
		return
	}
	output, err := s.svc.OpenJobOutput(r.Context(), jobID)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	defer output.Close()
	http.ServeContent(w, r, "output", time.Time{}, output)
}

func (s *apiServer) handleCancelJob(w http.ResponseWriter, r *http.Request) {
	jobID, ok := pathUUID(r, "job")
	if !ok {
		s.writeError(w, http.StatusNotFound, "job not found")
		return
	}
	resp, err := s.svc.CancelJob(r.Context(), jobID)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *apiServer) handleCancelTask(w http.ResponseWriter, r *http.Request) {
	taskID, ok := pathUUID(r, "task")
	if !ok {
		s.writeError(w, http.StatusNotFound, "task not found")
		return
	}
	restart := r.URL.Query().Get("restart") == "true"
	view, err := s.svc.CancelTask(r.Context(), taskID, restart)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, view)
}

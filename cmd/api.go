package main

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/sells-group/lead-enrichment/internal/broadcast"
	"github.com/sells-group/lead-enrichment/internal/model"
	"github.com/sells-group/lead-enrichment/internal/scheduler"
	"github.com/sells-group/lead-enrichment/internal/store"
)

// ownerHeader carries the caller identity. Jobs are only visible to
// their owner.
const ownerHeader = "X-Owner-ID"

type apiServer struct {
	store store.Store
	bus   *broadcast.Broadcaster
	sched *scheduler.Scheduler
}

func (s *apiServer) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", ownerHeader},
	}))

	r.Get("/health", s.handleHealth)
	r.Route("/jobs", func(r chi.Router) {
		r.Post("/", s.handleCreateJob)
		r.Get("/", s.handleListJobs)
		r.Route("/{jobID}", func(r chi.Router) {
			r.Get("/", s.handleGetJob)
			r.Post("/retry", s.handleRetry)
			r.Post("/cancel", s.handleCancel)
			r.Get("/events", s.handleEvents)
			r.Get("/logs", s.handleLogs)
		})
	})
	return r
}

func (s *apiServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *apiServer) handleCreateJob(w http.ResponseWriter, r *http.Request) {
	owner := r.Header.Get(ownerHeader)
	if owner == "" {
		writeError(w, http.StatusUnauthorized, "missing "+ownerHeader+" header")
		return
	}

	var req struct {
		Name  string       `json:"name"`
		Leads []model.Lead `json:"leads"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Leads) == 0 {
		writeError(w, http.StatusBadRequest, "leads is required")
		return
	}
	if req.Name == "" {
		req.Name = "api submission"
	}

	job, err := s.store.CreateJob(r.Context(), owner, req.Name, req.Leads)
	if err != nil {
		zap.L().Error("create job failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not create job")
		return
	}

	if err := s.sched.Enqueue(r.Context(), job.ID); err != nil {
		zap.L().Error("enqueue failed", zap.String("job_id", job.ID), zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, "job created but could not be queued")
		return
	}

	writeJSON(w, http.StatusAccepted, job)
}

func (s *apiServer) handleListJobs(w http.ResponseWriter, r *http.Request) {
	owner := r.Header.Get(ownerHeader)
	if owner == "" {
		writeError(w, http.StatusUnauthorized, "missing "+ownerHeader+" header")
		return
	}

	jobs, err := s.store.ListJobs(r.Context(), store.JobFilter{
		OwnerID: owner,
		Status:  model.JobStatus(r.URL.Query().Get("status")),
	})
	if err != nil {
		zap.L().Error("list jobs failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not list jobs")
		return
	}
	if jobs == nil {
		jobs = []model.Job{}
	}
	writeJSON(w, http.StatusOK, jobs)
}

// ownedJob loads the job and enforces that the caller owns it. On
// failure it writes the response and returns nil.
func (s *apiServer) ownedJob(w http.ResponseWriter, r *http.Request) *model.Job {
	owner := r.Header.Get(ownerHeader)
	if owner == "" {
		writeError(w, http.StatusUnauthorized, "missing "+ownerHeader+" header")
		return nil
	}

	job, err := s.store.GetJob(r.Context(), chi.URLParam(r, "jobID"))
	if err != nil {
		writeError(w, http.StatusNotFound, "job not found")
		return nil
	}
	if job.OwnerID != owner {
		writeError(w, http.StatusForbidden, "job belongs to another owner")
		return nil
	}
	return job
}

func (s *apiServer) handleGetJob(w http.ResponseWriter, r *http.Request) {
	if job := s.ownedJob(w, r); job != nil {
		writeJSON(w, http.StatusOK, job)
	}
}

func (s *apiServer) handleRetry(w http.ResponseWriter, r *http.Request) {
	job := s.ownedJob(w, r)
	if job == nil {
		return
	}
	if err := s.sched.Retry(r.Context(), job.ID); err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
}

func (s *apiServer) handleCancel(w http.ResponseWriter, r *http.Request) {
	job := s.ownedJob(w, r)
	if job == nil {
		return
	}
	if err := s.sched.Cancel(r.Context(), job.ID); err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "cancelling"})
}

func (s *apiServer) handleLogs(w http.ResponseWriter, r *http.Request) {
	job := s.ownedJob(w, r)
	if job == nil {
		return
	}
	logs, err := s.store.ListLogs(r.Context(), job.ID, 0)
	if err != nil {
		zap.L().Error("list logs failed", zap.String("job_id", job.ID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not list logs")
		return
	}
	if logs == nil {
		logs = []model.JobLogEntry{}
	}
	writeJSON(w, http.StatusOK, logs)
}

// handleEvents streams job events as server-sent events until the
// client disconnects or the job reaches a terminal state.
func (s *apiServer) handleEvents(w http.ResponseWriter, r *http.Request) {
	owner := r.Header.Get(ownerHeader)
	if owner == "" {
		writeError(w, http.StatusUnauthorized, "missing "+ownerHeader+" header")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	ch, err := s.bus.Subscribe(r.Context(), owner, chi.URLParam(r, "jobID"))
	if err != nil {
		writeError(w, http.StatusForbidden, "subscription rejected")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for ev := range ch {
		data, err := json.Marshal(ev)
		if err != nil {
			continue
		}
		fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, data)
		flusher.Flush()

		if ev.Type == broadcast.EventComplete || ev.Type == broadcast.EventError {
			return
		}
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

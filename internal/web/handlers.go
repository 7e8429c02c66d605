package web

import (
	"encoding/json"
	"net/http"
	"strings"

	"yotolink/internal/card"
	"yotolink/internal/mapping"
	"yotolink/internal/pipeline"
)

type MatchRequest struct {
	Card     json.RawMessage `json:"card"`
	LocalDir string          `json:"local_dir"`
}

type JobResponse struct {
	ID          string          `json:"id"`
	CardTitle   string          `json:"card_title,omitempty"`
	LocalDir    string          `json:"local_dir"`
	Status      JobStatus       `json:"status"`
	Progress    int             `json:"progress"`
	Total       int             `json:"total"`
	Matches     mapping.Mapping `json:"matches,omitempty"`
	Error       string          `json:"error,omitempty"`
	CreatedAt   string          `json:"created_at"`
	StartedAt   *string         `json:"started_at,omitempty"`
	CompletedAt *string         `json:"completed_at,omitempty"`
}

type MappingResponse struct {
	Ref  string `json:"ref"`
	Path string `json:"path"`
}

func (s *Server) handleMatch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req MatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if len(req.Card) == 0 {
		http.Error(w, "card is required", http.StatusBadRequest)
		return
	}

	c, err := card.Parse(req.Card)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	localDir := req.LocalDir
	if localDir == "" {
		localDir = s.config.LocalDir
	}
	if localDir == "" {
		http.Error(w, "local_dir is required", http.StatusBadRequest)
		return
	}

	job := s.jobMgr.CreateJob(c, localDir)
	s.logger.Info("Created job %s for card %q in %s", job.ID, c.Title, localDir)

	go s.processJob(job.ID)

	writeJSON(w, http.StatusAccepted, s.jobToResponse(job))
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	jobs := s.jobMgr.ListJobs()
	responses := make([]*JobResponse, len(jobs))
	for i, job := range jobs {
		responses[i] = s.jobToResponse(job)
	}

	writeJSON(w, http.StatusOK, responses)
}

func (s *Server) handleJobAction(w http.ResponseWriter, r *http.Request) {
	// Extract job ID from path: /api/jobs/{id} or /api/jobs/{id}/cancel
	path := strings.TrimPrefix(r.URL.Path, "/api/jobs/")
	parts := strings.Split(path, "/")
	if len(parts) == 0 || parts[0] == "" {
		http.Error(w, "Job ID required", http.StatusBadRequest)
		return
	}

	jobID := parts[0]

	if r.Method == http.MethodGet && len(parts) == 1 {
		job, err := s.jobMgr.GetJob(jobID)
		if err != nil {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}

		writeJSON(w, http.StatusOK, s.jobToResponse(job))
		return
	}

	// Only pending jobs can be cancelled; a running pass always completes.
	if r.Method == http.MethodPost && len(parts) == 2 && parts[1] == "cancel" {
		cancelled := false
		err := s.jobMgr.UpdateJob(jobID, func(j *Job) {
			if j.Status == StatusPending {
				j.Status = StatusCancelled
				cancelled = true
			}
		})
		if err != nil {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		if !cancelled {
			http.Error(w, "job is no longer pending", http.StatusConflict)
			return
		}

		writeJSON(w, http.StatusOK, map[string]string{"status": string(StatusCancelled)})
		return
	}

	http.Error(w, "Invalid request", http.StatusBadRequest)
}

func (s *Server) handleListMappings(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	writeJSON(w, http.StatusOK, s.store.Load())
}

func (s *Server) handleLookupMapping(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	ref := r.URL.Query().Get("ref")
	if ref == "" {
		http.Error(w, "ref is required", http.StatusBadRequest)
		return
	}

	path, ok := s.store.Get(ref)
	if !ok {
		http.Error(w, "no local file linked", http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, MappingResponse{Ref: ref, Path: path})
}

// processJob runs one match pass. Passes are serialized so only one writer
// touches the mapping file at a time.
func (s *Server) processJob(jobID string) {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	var job Job
	started := false
	err := s.jobMgr.UpdateJob(jobID, func(j *Job) {
		if j.Status == StatusPending {
			j.Status = StatusRunning
			started = true
		}
		job = *j
	})
	if err != nil || !started {
		return
	}
	s.logger.Info("Starting job %s", jobID)

	opts := pipeline.Options{
		LocalDir: job.LocalDir,
		Probe:    s.probe,
		Hooks: pipeline.Hooks{
			OnFilesFound: func(total int) {
				s.jobMgr.UpdateJob(jobID, func(j *Job) { j.Total = total })
			},
			OnProgress: func() {
				s.jobMgr.UpdateJob(jobID, func(j *Job) { j.Progress++ })
			},
		},
	}

	res, err := pipeline.Match(s.config, s.logger, job.Card, opts)
	if err != nil {
		s.logger.Error("Job %s failed: %v", jobID, err)
		s.jobMgr.UpdateJob(jobID, func(j *Job) {
			j.Status = StatusFailed
			j.Error = err.Error()
		})
		return
	}

	s.jobMgr.UpdateJob(jobID, func(j *Job) {
		j.Matches = res.Matches
		j.Status = StatusCompleted
	})

	s.logger.Info("Job %s completed with %d new matches", jobID, len(res.Matches))
}

func (s *Server) jobToResponse(job Job) *JobResponse {
	resp := &JobResponse{
		ID:        job.ID,
		LocalDir:  job.LocalDir,
		Status:    job.Status,
		Progress:  job.Progress,
		Total:     job.Total,
		Matches:   job.Matches,
		Error:     job.Error,
		CreatedAt: job.CreatedAt.Format("2006-01-02 15:04:05"),
	}
	if job.Card != nil {
		resp.CardTitle = job.Card.Title
	}

	if job.StartedAt != nil {
		started := job.StartedAt.Format("2006-01-02 15:04:05")
		resp.StartedAt = &started
	}

	if job.CompletedAt != nil {
		completed := job.CompletedAt.Format("2006-01-02 15:04:05")
		resp.CompletedAt = &completed
	}

	return resp
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

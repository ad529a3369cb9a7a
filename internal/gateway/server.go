// Package gateway exposes the HTTP API: job submission, result lookup,
// job listing, daemon status, and artifact downloads.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"reelscan/internal/config"
	"reelscan/internal/jobs"
	"reelscan/internal/logging"
	"reelscan/internal/services"
)

// Submitter accepts a video URL and registers a job for it.
type Submitter interface {
	Submit(ctx context.Context, videoURL string) (*jobs.Job, error)
}

// Server is the HTTP API server.
type Server struct {
	bind      string
	dataDir   string
	logger    *slog.Logger
	store     *jobs.Store
	submitter Submitter

	listener net.Listener
	server   *http.Server
}

// NewServer constructs the API server. The server is not listening until
// Start is called.
func NewServer(cfg *config.Config, store *jobs.Store, submitter Submitter, logger *slog.Logger) *Server {
	srv := &Server{
		bind:      strings.TrimSpace(cfg.Paths.APIBind),
		dataDir:   cfg.Paths.DataDir,
		logger:    logging.NewComponentLogger(logger, "gateway"),
		store:     store,
		submitter: submitter,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/analyze", srv.handleAnalyze)
	mux.HandleFunc("/api/results/", srv.handleResult)
	mux.HandleFunc("/api/jobs", srv.handleJobs)
	mux.HandleFunc("/api/status", srv.handleStatus)
	mux.HandleFunc("/data/", srv.handleArtifact)

	srv.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv
}

// Handler exposes the route table, primarily for tests.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start begins listening. The server shuts down when ctx is canceled.
func (s *Server) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("gateway listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("gateway server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("gateway listening", logging.String("address", listener.Addr().String()))
	return nil
}

// Stop shuts the server down.
func (s *Server) Stop() {
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

// Addr reports the bound address once Start has succeeded.
func (s *Server) Addr() string {
	if s.listener == nil {
		return s.bind
	}
	return s.listener.Addr().String()
}

type analyzeRequest struct {
	URL string `json:"url"`
}

type analyzeResponse struct {
	ID string `json:"id"`
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	job, err := s.submitter.Submit(r.Context(), req.URL)
	if err != nil {
		if errors.Is(err, services.ErrValidation) {
			s.writeError(w, http.StatusBadRequest, services.Message(err))
			return
		}
		s.logger.Error("submit failed", logging.Error(err))
		s.writeError(w, http.StatusInternalServerError, "failed to register job")
		return
	}
	s.writeJSON(w, http.StatusAccepted, analyzeResponse{ID: job.ID})
}

type resultResponse struct {
	ID       string        `json:"id"`
	VideoURL string        `json:"video_url"`
	Status   jobs.Status   `json:"status"`
	Stage    string        `json:"stage,omitempty"`
	Result   *jobs.Result  `json:"result,omitempty"`
	Failure  *jobs.Failure `json:"failure,omitempty"`
}

func (s *Server) handleResult(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/api/results/")
	if id == "" || strings.Contains(id, "/") {
		s.writeError(w, http.StatusNotFound, "unknown job")
		return
	}

	job, err := s.store.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			s.writeError(w, http.StatusNotFound, "unknown job")
			return
		}
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	resp := resultResponse{
		ID:       job.ID,
		VideoURL: job.VideoURL,
		Status:   job.Status,
		Stage:    job.Stage,
	}
	if job.Status.Terminal() {
		envelope, loadErr := jobs.LoadEnvelope(s.dataDir, job.ID)
		if loadErr == nil {
			resp.Result = envelope.Result
			resp.Failure = envelope.Failure
		} else if !errors.Is(loadErr, services.ErrNotFound) {
			s.writeError(w, http.StatusInternalServerError, loadErr.Error())
			return
		}
	}
	s.writeJSON(w, http.StatusOK, resp)
}

type jobSummary struct {
	ID        string      `json:"id"`
	VideoURL  string      `json:"video_url"`
	Status    jobs.Status `json:"status"`
	Stage     string      `json:"stage,omitempty"`
	Error     string      `json:"error,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

type jobListResponse struct {
	Jobs []jobSummary `json:"jobs"`
}

func (s *Server) handleJobs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var listed []*jobs.Job
	var err error
	if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
		status := jobs.Status(raw)
		if !status.IsValid() {
			s.writeError(w, http.StatusBadRequest, "unknown status "+raw)
			return
		}
		listed, err = s.store.ListByStatus(r.Context(), status)
	} else {
		listed, err = s.store.List(r.Context())
	}
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	resp := jobListResponse{Jobs: make([]jobSummary, 0, len(listed))}
	for _, job := range listed {
		resp.Jobs = append(resp.Jobs, jobSummary{
			ID:        job.ID,
			VideoURL:  job.VideoURL,
			Status:    job.Status,
			Stage:     job.Stage,
			Error:     job.Error,
			CreatedAt: job.CreatedAt,
			UpdatedAt: job.UpdatedAt,
		})
	}
	s.writeJSON(w, http.StatusOK, resp)
}

type statusResponse struct {
	Running   bool   `json:"running"`
	PID       int    `json:"pid"`
	IndexPath string `json:"index_path"`
	Total     int    `json:"jobs_total"`
	Pending   int    `json:"jobs_pending"`
	Active    int    `json:"jobs_running"`
	Completed int    `json:"jobs_completed"`
	Failed    int    `json:"jobs_failed"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	stats, err := s.store.Stats(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, statusResponse{
		Running:   true,
		PID:       os.Getpid(),
		IndexPath: s.store.Path(),
		Total:     stats.Total,
		Pending:   stats.Pending,
		Active:    stats.Running,
		Completed: stats.Completed,
		Failed:    stats.Failed,
	})
}

// allowedArtifacts restricts artifact downloads to known file names, so the
// data handler can never serve arbitrary paths.
var allowedArtifacts = map[string]struct{}{
	jobs.ScreenshotFile: {},
	jobs.AudioFile:      {},
	jobs.ResultFile:     {},
}

func (s *Server) handleArtifact(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/data/")
	parts := strings.Split(rest, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		s.writeError(w, http.StatusNotFound, "artifact not found")
		return
	}
	jobID, artifact := parts[0], parts[1]
	if strings.Contains(jobID, "..") {
		s.writeError(w, http.StatusNotFound, "artifact not found")
		return
	}
	if _, ok := allowedArtifacts[artifact]; !ok {
		s.writeError(w, http.StatusNotFound, "artifact not found")
		return
	}

	if _, err := s.store.GetByID(r.Context(), jobID); err != nil {
		s.writeError(w, http.StatusNotFound, "artifact not found")
		return
	}

	path := filepath.Join(jobs.JobDir(s.dataDir, jobID), artifact)
	if _, err := os.Stat(path); err != nil {
		s.writeError(w, http.StatusNotFound, "artifact not found")
		return
	}
	http.ServeFile(w, r, path)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", logging.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

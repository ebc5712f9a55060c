package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/viafoto/viafoto/internal/classify"
	"github.com/viafoto/viafoto/internal/queue"
)

// SetupRoutes registers all endpoints on mux.
func (s *Server) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", s.corsMiddleware(s.healthHandler))
	mux.HandleFunc("/classify", s.corsMiddleware(s.classifyHandler))
	mux.HandleFunc("/jobs/current", s.corsMiddleware(s.statsHandler))
	mux.HandleFunc("/results", s.corsMiddleware(s.resultsHandler))
	mux.HandleFunc("/abort", s.corsMiddleware(s.abortHandler))
	mux.HandleFunc("/cache/stats", s.corsMiddleware(s.cacheStatsHandler))
	mux.HandleFunc("/cache", s.corsMiddleware(s.cacheClearHandler))
	mux.HandleFunc("/ws/progress", s.progressSocketHandler)
	mux.Handle("/metrics", promhttp.Handler())
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.writeJSON(w, http.StatusOK, HealthResponse{
		Status: "healthy",
		Time:   time.Now().UTC().Format(time.RFC3339),
	})
}

// classifyHandler accepts a multipart upload of photos and starts one
// classification run. A second submission while a run is active is
// rejected with 409, mirroring the queue's single-run guard.
func (s *Server) classifyHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	maxBytes := s.cfg.MaxUploadMB * 1024 * 1024
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	if err := r.ParseMultipartForm(maxBytes); err != nil {
		s.writeError(w, "failed to parse form data", http.StatusBadRequest)
		return
	}

	files := r.MultipartForm.File["photos"]
	if len(files) == 0 {
		s.writeError(w, "no photos provided", http.StatusBadRequest)
		return
	}

	photos := make([]queue.Photo, 0, len(files))
	for _, fh := range files {
		f, err := fh.Open()
		if err != nil {
			s.writeError(w, "failed to open upload "+fh.Filename, http.StatusBadRequest)
			return
		}
		data, err := io.ReadAll(f)
		_ = f.Close()
		if err != nil {
			s.writeError(w, "failed to read upload "+fh.Filename, http.StatusBadRequest)
			return
		}
		uploadSizeBytes.Observe(float64(len(data)))
		photos = append(photos, queue.Photo{Filename: fh.Filename, Data: data})
	}

	if !s.jobActive.CompareAndSwap(false, true) {
		s.writeError(w, "a classification run is already active", http.StatusConflict)
		return
	}

	s.mu.Lock()
	s.results = nil
	s.lastErr = ""
	s.mu.Unlock()

	photosSubmitted.Add(float64(len(photos)))

	go func() {
		defer s.jobActive.Store(false)
		s.runJob(photos)
	}()

	s.writeJSON(w, http.StatusAccepted, SubmitResponse{
		Accepted: len(photos),
		Message:  "processing started",
	})
}

// runJob drives one orchestrator run in the background, collecting
// incremental results for the polling endpoints.
func (s *Server) runJob(photos []queue.Photo) {
	start := time.Now()
	hooks := queue.Hooks{
		OnBatchDone: func(batch []classify.Result) {
			s.mu.Lock()
			s.results = append(s.results, batch...)
			s.mu.Unlock()
			for _, r := range batch {
				recordOutcome(r)
			}
		},
		Progress: queue.NewLogProgress(s.logger, 10),
	}

	_, err := s.orchestrator.Run(context.Background(), photos, hooks)
	runDuration.Observe(time.Since(start).Seconds())

	if err != nil && !errors.Is(err, queue.ErrAborted) {
		s.logger.Error("classification run failed", "error", err)
	}
	if err != nil {
		s.mu.Lock()
		s.lastErr = err.Error()
		s.mu.Unlock()
	}
}

func recordOutcome(r classify.Result) {
	switch {
	case r.IsError():
		resultsTotal.WithLabelValues("error").Inc()
	case r.IsSkipped():
		resultsTotal.WithLabelValues("skipped").Inc()
		if r.Status == classify.StatusSkippedPrefix+classify.SkipReasonCreditLimit {
			creditExhaustions.Inc()
		}
	default:
		resultsTotal.WithLabelValues("success").Inc()
	}
}

func (s *Server) statsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.writeJSON(w, http.StatusOK, s.orchestrator.Stats())
}

func (s *Server) resultsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.mu.RLock()
	results := make([]classify.Result, len(s.results))
	copy(results, s.results)
	lastErr := s.lastErr
	s.mu.RUnlock()

	s.writeJSON(w, http.StatusOK, ResultsResponse{
		Results: results,
		Count:   len(results),
		Active:  s.orchestrator.Running(),
		Error:   lastErr,
	})
}

func (s *Server) abortHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.orchestrator.Abort()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) cacheStatsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	stats, err := s.store.Stats(r.Context())
	if err != nil {
		s.writeError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	s.writeJSON(w, http.StatusOK, stats)
}

func (s *Server) cacheClearHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := s.store.Clear(r.Context()); err != nil {
		s.writeError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("encoding response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, msg string, status int) {
	s.writeJSON(w, status, ErrorResponse{Error: msg})
}

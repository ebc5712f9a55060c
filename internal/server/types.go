// Package server exposes the classification queue over HTTP for the web
// frontend: job submission, live progress, incremental results and cache
// management.
package server

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/viafoto/viafoto/internal/cache"
	"github.com/viafoto/viafoto/internal/classify"
	"github.com/viafoto/viafoto/internal/queue"
)

// Config holds server settings.
type Config struct {
	Host        string
	Port        int
	CORSOrigin  string
	MaxUploadMB int64
	TimeoutSec  int
}

// Server holds HTTP state and the orchestrator it fronts.
type Server struct {
	orchestrator *queue.Orchestrator
	store        cache.Store
	cfg          Config
	logger       *slog.Logger

	// jobActive gates job submission so two concurrent uploads cannot
	// both pass the running check and clobber the result buffer.
	jobActive atomic.Bool

	mu      sync.RWMutex
	results []classify.Result
	lastErr string
}

// NewServer creates a server around an orchestrator and its cache store.
func NewServer(orchestrator *queue.Orchestrator, store cache.Store, cfg Config, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		orchestrator: orchestrator,
		store:        store,
		cfg:          cfg,
		logger:       logger,
	}
}

// HealthResponse is the GET /health payload.
type HealthResponse struct {
	Status string `json:"status"`
	Time   string `json:"time"`
}

// SubmitResponse is the POST /classify payload.
type SubmitResponse struct {
	Accepted int    `json:"accepted"`
	Message  string `json:"message"`
}

// ResultsResponse is the GET /results payload.
type ResultsResponse struct {
	Results []classify.Result `json:"results"`
	Count   int               `json:"count"`
	Active  bool              `json:"active"`
	Error   string            `json:"error,omitempty"`
}

// ErrorResponse is the generic error payload.
type ErrorResponse struct {
	Error string `json:"error"`
}

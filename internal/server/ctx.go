package server

import (
	"net/http"
	"sync"
	"time"

	"github.com/woozymasta/farpoint/internal/metrics"
	"github.com/woozymasta/farpoint/internal/search"
)

// ServerContext holds the run state exposed to handlers.
type ServerContext struct {
	started time.Time
	passes  []search.Result
	best    search.Result
	mu      sync.RWMutex
	total   int
	done    bool
}

// NewServerContext returns a context for a run of total passes.
func NewServerContext(total int) *ServerContext {
	return &ServerContext{started: time.Now(), total: total}
}

// RecordPass stores a finished pass; best is the result so far.
func (s *ServerContext) RecordPass(pass, best search.Result) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.passes = append(s.passes, pass)
	s.best = best
}

// Finish marks the run complete.
func (s *ServerContext) Finish(best search.Result) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.best = best
	s.done = true
}

// Handler returns the routes wrapped in request logging.
func (s *ServerContext) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/healthz", s.HandleHealth)
	mux.HandleFunc("/status", s.HandleStatus)

	return s.logRequests(mux)
}

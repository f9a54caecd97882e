// Package server exposes metrics and run status over HTTP while a search runs.
package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/woozymasta/farpoint/internal/search"
)

// Status is the JSON document served on /status.
type Status struct {
	Passes   []search.Result `json:"passes"`
	Best     search.Result   `json:"best"`
	Elapsed  string          `json:"elapsed"`
	Total    int             `json:"passes_total"`
	Finished bool            `json:"finished"`
}

// HandleHealth answers liveness probes.
func (s *ServerContext) HandleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok\n"))
}

// HandleStatus serves the passes finished so far and the current best result.
func (s *ServerContext) HandleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	s.mu.RLock()
	status := Status{
		Passes:   append([]search.Result{}, s.passes...),
		Best:     s.best,
		Elapsed:  time.Since(s.started).Round(time.Millisecond).String(),
		Total:    s.total,
		Finished: s.done,
	}
	s.mu.RUnlock()

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	// Ignoring error as we cannot handle client disconnects
	_ = json.NewEncoder(w).Encode(status)
}

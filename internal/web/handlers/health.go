package handlers

import (
	"fmt"
	"net/http"
)

// Counter reports how many documents the knowledge store holds.
// Satisfied by *knowledge.Store.
type Counter interface {
	Count() int
}

// Health handles liveness and readiness endpoints for container probes.
type Health struct {
	store Counter
}

// NewHealth creates a health check handler. store may be nil, in which
// case /ready degrades to a plain liveness check.
func NewHealth(store Counter) *Health {
	return &Health{store: store}
}

// RegisterRoutes registers health check routes on the given mux.
func (h *Health) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.Live)
	mux.HandleFunc("GET /ready", h.Ready)
}

// Live reports process liveness. Returns 200 OK if the process is alive.
func (h *Health) Live(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// Ready reports readiness to serve queries. An empty store is still ready:
// the chat page answers with a hint to add files instead of failing.
func (h *Health) Ready(w http.ResponseWriter, _ *http.Request) {
	if h.store == nil {
		h.Live(w, nil)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, "ok documents=%d", h.store.Count())
}

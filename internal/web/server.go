// Package web provides an HTTP status server for the cell-charger daemon.
package web

import (
	"context"
	"encoding/json"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/sweeney/cell-charger/internal/logic"
	"github.com/sweeney/cell-charger/internal/status"
)

// Server serves the status page over HTTP.
type Server struct {
	httpServer *http.Server
	tracker    *status.Tracker
}

// New creates a Server that reads state from the given tracker.
func New(addr string, tracker *status.Tracker) *Server {
	s := &Server{tracker: tracker}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/index.html", s.handleIndex)
	mux.HandleFunc("/index.json", s.handleJSON)
	mux.HandleFunc("/charge", s.handleCharge)

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Handler returns the request router.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// ListenAndServe starts listening. It blocks until the server is shut down.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Serve accepts connections on the given listener. Useful for tests.
func (s *Server) Serve(ln net.Listener) error {
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" && r.URL.Path != "/index.html" {
		http.NotFound(w, r)
		return
	}
	snap := s.tracker.Snapshot()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := renderHTML(w, snap); err != nil {
		log.Printf("web: render index: %v", err)
	}
}

func (s *Server) handleJSON(w http.ResponseWriter, r *http.Request) {
	snap := s.tracker.Snapshot()
	w.Header().Set("Content-Type", "application/json")
	w.Write(status.FormatJSON(snap))
}

// chargeJSON is the short reading served by /charge.
type chargeJSON struct {
	State        string `json:"state"`
	Presence     string `json:"presence"`
	Value        *int32 `json:"value,omitempty"`
	ChargeEnable bool   `json:"charge_enable"`
	Error        string `json:"error,omitempty"`
}

// handleCharge reports the latest settled estimate. It answers 503 while no
// estimate is valid: before the first window fills or with the source removed.
func (s *Server) handleCharge(w http.ResponseWriter, r *http.Request) {
	snap := s.tracker.Snapshot()
	resp := chargeJSON{
		State:        string(snap.State),
		Presence:     string(snap.Presence),
		ChargeEnable: snap.ChargeEnable,
	}
	if resp.Presence == "" {
		resp.Presence = "UNKNOWN"
	}

	code := http.StatusOK
	switch {
	case snap.Presence == logic.PresenceAbsent:
		code = http.StatusServiceUnavailable
		resp.Error = "source disconnected"
	case !snap.HasValue:
		code = http.StatusServiceUnavailable
		resp.Error = "no settled estimate yet"
	default:
		v := snap.Value
		resp.Value = &v
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		log.Printf("web: write charge: %v", err)
	}
}

// internal/httpserver/server.go
//
// HTTP server wiring for the semduel backend.
// Responsibilities:
//   - Router + middleware (JSON, CORS, timeouts, panic recovery, request IDs).
//   - Public endpoints: "/", "/health".
//   - Game endpoint: GET /ws (websocket gateway).
//   - Round archive: GET /rounds/recent.
//   - Diagnostics: GET /debug/game.
//
// Notes:
//   - CORS is origin-aware and credentials-enabled.
//   - The websocket route skips the timeout middleware; connections are
//     long-lived and keep themselves alive with pings.

package httpserver

import (
	"encoding/json"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/semduel/internal/game"
	"github.com/robalobadob/semduel/internal/history"
	"github.com/robalobadob/semduel/internal/ws"
)

// Server bundles router, websocket hub, coordinator, and round archive.
type Server struct {
	r     *chi.Mux
	hub   *ws.Hub
	coord *game.Coordinator
	hist  *history.Store
}

// New constructs a Server, installs middleware, and registers routes.
func New(hub *ws.Hub, coord *game.Coordinator, hist *history.Store) *Server {
	s := &Server{r: chi.NewRouter(), hub: hub, coord: coord, hist: hist}

	// --- middleware ---
	s.r.Use(chimw.RequestID) // add X-Request-ID
	s.r.Use(chimw.RealIP)    // set RemoteAddr from X-Forwarded-For etc.
	s.r.Use(chimw.Recoverer) // recover from panics
	s.r.Use(corsFromEnv)     // credentials-friendly CORS

	// Websocket gateway — no timeout, no forced JSON header.
	s.r.Get("/ws", hub.ServeWS)

	// REST routes — bounded handler time + JSON responses.
	s.r.Group(func(r chi.Router) {
		r.Use(chimw.Timeout(10 * time.Second))
		r.Use(jsonContentType)

		// --- diagnostics ---
		r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"service":"semduel","endpoints":["/health","GET /ws","GET /rounds/recent"]}`))
		})
		r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"ok":true}`))
		})

		r.Get("/rounds/recent", s.handleRecentRounds)

		// Debug: live game snapshot
		r.Get("/debug/game", func(w http.ResponseWriter, _ *http.Request) {
			_ = json.NewEncoder(w).Encode(s.coord.Status())
		})
	})

	// JSON 404 for easier debugging
	s.r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"not_found","path":"`+r.URL.Path+`"}`, http.StatusNotFound)
	})

	return s
}

// Start begins serving HTTP on addr.
func (s *Server) Start(addr string) error { return http.ListenAndServe(addr, s.r) }

// Router exposes the internal router (useful for tests).
func (s *Server) Router() chi.Router { return s.r }

// ------------------------------ handlers -----------------------------------

// handleRecentRounds serves the latest archived rounds (?limit=N, default 20).
func (s *Server) handleRecentRounds(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}
	rows, err := s.hist.Recent(r.Context(), limit)
	if err != nil {
		log.Error().Err(err).Msg("query recent rounds")
		http.Error(w, `{"error":"db_error"}`, http.StatusInternalServerError)
		return
	}
	_ = json.NewEncoder(w).Encode(rows)
}

// ----------------------------- middleware ----------------------------------

// jsonContentType sets a default JSON Content-Type header on all responses.
func jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		next.ServeHTTP(w, r)
	})
}

// corsFromEnv enables credentialed CORS for a single origin.
// Uses CLIENT_ORIGIN env var; defaults to http://localhost:5173.
func corsFromEnv(next http.Handler) http.Handler {
	origin := os.Getenv("CLIENT_ORIGIN")
	if origin == "" {
		origin = "http://localhost:5173"
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Vary", "Origin")
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Credentials", "true")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// internal/httpserver/server.go
//
// HTTP server wiring for the Woordle backend.
// Responsibilities:
//   - Router + middleware (JSON, CORS, timeouts, panic recovery, request IDs).
//   - Public endpoints: "/", "/health", "/debug/words".
//   - Session endpoints (optional auth): mounted under /session.
//   - Auth + stats endpoints: /auth/*, /stats/me.
//   - Per-owner game sessions: authenticated users and anonymous cookie
//     owners each get isolated persisted state in the kv table.
//
// Notes:
//   - CORS is origin-aware and credentials-enabled (so cookies work).
//   - Optional auth decorates requests with user context when a valid token
//     is present; routes still run for guests.

package httpserver

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/jdvries/woordle/internal/game"
	"github.com/jdvries/woordle/internal/words"
)

// Server bundles router, DB handle, word-list source and the live session
// registry.
type Server struct {
	r     *chi.Mux
	db    *sql.DB
	src   words.Source
	clock game.Clock
	rand  game.RandIndex

	mu       sync.Mutex
	sessions map[string]*sessionEntry // keyed by owner|mode
}

// Option tweaks Server construction; used by tests to pin time and
// randomness.
type Option func(*Server)

// WithClock injects the time source handed to game sessions.
func WithClock(c game.Clock) Option { return func(s *Server) { s.clock = c } }

// WithRand injects the random-index provider for freeplay answers.
func WithRand(r game.RandIndex) Option { return func(s *Server) { s.rand = r } }

// New constructs a Server, installs middleware, and registers routes.
func New(db *sql.DB, src words.Source, opts ...Option) *Server {
	s := &Server{
		r:        chi.NewRouter(),
		db:       db,
		src:      src,
		clock:    game.SystemClock(),
		sessions: make(map[string]*sessionEntry),
	}
	for _, opt := range opts {
		opt(s)
	}

	// --- middleware ---
	s.r.Use(chimw.RequestID)                 // add X-Request-ID
	s.r.Use(chimw.RealIP)                    // set RemoteAddr from X-Forwarded-For etc.
	s.r.Use(chimw.Recoverer)                 // recover from panics
	s.r.Use(chimw.Timeout(10 * time.Second)) // bound handler time
	s.r.Use(jsonContentType)                 // default JSON responses
	s.r.Use(corsFromEnv)                     // credentials-friendly CORS

	// --- diagnostics ---
	s.r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"service":"woordle-go","endpoints":["/health","/session/state","/auth/*"]}`))
	})
	s.r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ok":true}`))
	})

	// Session endpoints, optional auth (guests can play)
	s.mountSession(s.r.With(s.withOptionalAuth()))

	// Auth + stats (stats require auth)
	s.mountAuthRoutes()

	// JSON 404 for easier debugging
	s.r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"not_found","path":"`+r.URL.Path+`"}`, http.StatusNotFound)
	})

	// Debug: word list counts per language/length
	s.r.Get("/debug/words", func(w http.ResponseWriter, r *http.Request) {
		lang := r.URL.Query().Get("lang")
		if lang == "" {
			lang = defaultLocale
		}
		length, _ := strconv.Atoi(r.URL.Query().Get("len"))
		if length == 0 {
			length = 5
		}
		solutions, _ := words.LoadList(r.Context(), s.src, lang, length, words.TierSolutions)
		guesses, _ := words.LoadList(r.Context(), s.src, lang, length, words.TierGuesses)
		_ = json.NewEncoder(w).Encode(map[string]int{"solutions": len(solutions), "guesses": len(guesses)})
	})

	return s
}

// Start begins serving HTTP on addr.
func (s *Server) Start(addr string) error { return http.ListenAndServe(addr, s.r) }

// Router exposes the internal router (useful for tests).
func (s *Server) Router() chi.Router { return s.r }

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

// ------------------------------- small util --------------------------------

// getEnv returns the value of k or def if unset/empty.
func getEnv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

// internal/httpserver/routes_session.go
//
// HTTP routes for game sessions.
// Exposes the session state machine under /session:
//   - GET  /session/state        → current session view for (owner, mode)
//   - POST /session/key          → forward one key event (letters, Backspace, Enter)
//   - POST /session/length       → change word length
//   - POST /session/language     → change language
//   - POST /session/freeplay/new → start a fresh freeplay game
//   - POST /session/ack          → acknowledge a win/lose outcome
//   - POST /session/reset        → clear all persisted state for the owner
//
// Sessions are held in memory for active play, keyed by owner|mode, and
// persist through the per-owner kv store on every accepted guess. A session
// that failed to load (word lists unreachable) stays not-ready; /state
// retries the load on the next request.

package httpserver

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/jdvries/woordle/internal/game"
	"github.com/jdvries/woordle/internal/store"
)

const defaultLocale = "nl"

// sessionIdleTTL bounds the in-memory registry: entries untouched for this
// long are dropped on the next access (their state is persisted anyway).
const sessionIdleTTL = time.Hour

// sessionEntry pairs a live session with its last-access time.
type sessionEntry struct {
	sess     *game.Session
	lastSeen time.Time
}

// mountSession registers all /session routes.
func (s *Server) mountSession(r chi.Router) {
	r.Route("/session", func(r chi.Router) {
		r.Get("/state", s.handleSessionState)
		r.Post("/key", s.handleSessionKey)
		r.Post("/length", s.handleSessionLength)
		r.Post("/language", s.handleSessionLanguage)
		r.Post("/freeplay/new", s.handleFreeplayNew)
		r.Post("/ack", s.handleSessionAck)
		r.Post("/reset", s.handleSessionReset)
	})
}

// ownerID returns the authenticated user ID if logged in, otherwise a stable
// anonymous cookie ID.
func (s *Server) ownerID(w http.ResponseWriter, r *http.Request) string {
	if me, _ := r.Context().Value(ctxUserKey{}).(*authUser); me != nil {
		return me.ID
	}
	return s.ensureAnonID(w, r)
}

// ownerStore returns the kv-backed store for one owner.
func (s *Server) ownerStore(owner string) store.Store {
	return store.NewSQLite(s.db, owner)
}

// session returns (creating and loading if needed) the owner's session for a
// mode. The language comes from stored preferences on first load; afterwards
// it is whatever SetLanguage last applied.
func (s *Server) session(r *http.Request, owner string, mode game.Mode) *game.Session {
	key := owner + "|" + string(mode)
	now := s.clock.Now()

	s.mu.Lock()
	s.evictIdleLocked(now)
	ent, ok := s.sessions[key]
	if !ok {
		ent = &sessionEntry{sess: game.NewSession(game.Config{
			Store:  s.ownerStore(owner),
			Source: s.src,
			Clock:  s.clock,
			Rand:   s.rand,
		})}
		s.sessions[key] = ent
	}
	ent.lastSeen = now
	sess := ent.sess
	s.mu.Unlock()

	if !ok {
		locale := sess.Prefs().Language
		if locale == "" {
			locale = defaultLocale
		}
		if err := sess.Load(r.Context(), locale, mode); err != nil {
			// Stays not-ready; the next /state call retries.
			log.Warn().Err(err).Str("owner", owner).Str("mode", string(mode)).Msg("session load")
		}
	}
	return sess
}

// evictIdleLocked drops registry entries past the idle TTL. Caller holds
// s.mu. Evicted sessions keep their persisted state; a returning owner gets
// a fresh session hydrated from the store.
func (s *Server) evictIdleLocked(now time.Time) {
	for key, ent := range s.sessions {
		if now.Sub(ent.lastSeen) > sessionIdleTTL {
			delete(s.sessions, key)
		}
	}
}

// modeFrom parses the mode field/query, defaulting to daily.
func modeFrom(v string) game.Mode {
	if v == string(game.ModeFreeplay) {
		return game.ModeFreeplay
	}
	return game.ModeDaily
}

// sessionReq is the shared request body for session actions.
type sessionReq struct {
	Mode   string `json:"mode"`
	Key    string `json:"key,omitempty"`
	Length int    `json:"length,omitempty"`
	Lang   string `json:"lang,omitempty"`
}

// writeState responds with the session's observable state.
func writeState(w http.ResponseWriter, sess *game.Session) {
	_ = json.NewEncoder(w).Encode(sess.Snapshot())
}

// handleSessionState returns the current view, reloading a daily session
// whose date rolled over and retrying a load that previously failed.
func (s *Server) handleSessionState(w http.ResponseWriter, r *http.Request) {
	owner := s.ownerID(w, r)
	sess := s.session(r, owner, modeFrom(r.URL.Query().Get("mode")))

	if !sess.Snapshot().Ready {
		locale := sess.Prefs().Language
		if locale == "" {
			locale = defaultLocale
		}
		if err := sess.Load(r.Context(), locale, modeFrom(r.URL.Query().Get("mode"))); err != nil {
			log.Warn().Err(err).Msg("session reload")
		}
	} else if err := sess.EnsureFresh(r.Context()); err != nil {
		log.Warn().Err(err).Msg("daily rollover reload")
	}
	writeState(w, sess)
}

// handleSessionKey forwards one key event. Enter with a full buffer submits;
// everything else edits the typed buffer. Ignored while loading.
func (s *Server) handleSessionKey(w http.ResponseWriter, r *http.Request) {
	var req sessionReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Key == "" {
		http.Error(w, `{"error":"bad_json"}`, http.StatusBadRequest)
		return
	}
	owner := s.ownerID(w, r)
	sess := s.session(r, owner, modeFrom(req.Mode))
	if err := sess.EnsureFresh(r.Context()); err != nil {
		log.Warn().Err(err).Msg("daily rollover reload")
	}
	sess.HandleKey(req.Key)
	writeState(w, sess)
}

// handleSessionLength switches the word length. Lengths outside the allowed
// set are a silent no-op, mirroring the UI selector.
func (s *Server) handleSessionLength(w http.ResponseWriter, r *http.Request) {
	var req sessionReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Length == 0 {
		http.Error(w, `{"error":"bad_json"}`, http.StatusBadRequest)
		return
	}
	owner := s.ownerID(w, r)
	sess := s.session(r, owner, modeFrom(req.Mode))
	if err := sess.SetWordLen(r.Context(), req.Length); err != nil {
		log.Warn().Err(err).Int("length", req.Length).Msg("length change reload")
	}
	writeState(w, sess)
}

// handleSessionLanguage switches the language and restarts the session for
// the new language's word lists.
func (s *Server) handleSessionLanguage(w http.ResponseWriter, r *http.Request) {
	var req sessionReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Lang == "" {
		http.Error(w, `{"error":"bad_json"}`, http.StatusBadRequest)
		return
	}
	owner := s.ownerID(w, r)
	sess := s.session(r, owner, modeFrom(req.Mode))
	if err := sess.SetLanguage(r.Context(), req.Lang); err != nil {
		log.Warn().Err(err).Str("lang", req.Lang).Msg("language change reload")
	}
	writeState(w, sess)
}

// handleFreeplayNew starts a fresh freeplay game for the current length.
func (s *Server) handleFreeplayNew(w http.ResponseWriter, r *http.Request) {
	owner := s.ownerID(w, r)
	sess := s.session(r, owner, game.ModeFreeplay)
	sess.NewFreeplayGame()
	writeState(w, sess)
}

// handleSessionAck clears a pending outcome after the client showed it.
func (s *Server) handleSessionAck(w http.ResponseWriter, r *http.Request) {
	var req sessionReq
	_ = json.NewDecoder(r.Body).Decode(&req)
	owner := s.ownerID(w, r)
	sess := s.session(r, owner, modeFrom(req.Mode))
	sess.AcknowledgeOutcome()
	writeState(w, sess)
}

// handleSessionReset wipes all persisted state for the owner (both modes,
// every language/length) and drops the live sessions so the next request
// starts clean.
func (s *Server) handleSessionReset(w http.ResponseWriter, r *http.Request) {
	owner := s.ownerID(w, r)
	s.ownerStore(owner).Clear()

	s.mu.Lock()
	delete(s.sessions, owner+"|"+string(game.ModeDaily))
	delete(s.sessions, owner+"|"+string(game.ModeFreeplay))
	s.mu.Unlock()

	_ = json.NewEncoder(w).Encode(map[string]bool{"ok": true})
}

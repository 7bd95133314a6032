// internal/httpserver/server.go
//
// HTTP server wiring for the Orbline backend.
// Responsibilities:
//   - Router + middleware (request IDs, request logging, panic recovery, CORS,
//     timeouts, JSON content type).
//   - Public endpoints: "/", "/health", "/sfx/{name}.wav".
//   - Game endpoints (optional auth): mounted under /game (routes_game.go).
//   - Live game socket: GET /game/{id}/ws (ws.go), outside the timeout group.
//   - Daily Challenge endpoints (optional auth): mounted under /daily.
//   - Auth + profile/score endpoints: /auth/*, /scores/*, /games/mine (auth.go).
//
// Notes:
//   - CORS is origin-aware and credentials-enabled (so cookies work).
//   - Optional auth decorates requests with user context when a valid token is present;
//     routes can still run for guests.

package httpserver

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/orbline/internal/config"
	"github.com/robalobadob/orbline/internal/daily"
	"github.com/robalobadob/orbline/internal/palette"
	"github.com/robalobadob/orbline/internal/sfx"
	"github.com/robalobadob/orbline/internal/store"
)

// Server bundles router, live sessions, save store and DB handle.
type Server struct {
	r     *chi.Mux
	cfg   config.Config
	pal   palette.Palette
	saves store.Store
	db    *sql.DB
	daily *daily.Store
	sfx   *sfx.Bank
	games *sessionTable
	now   func() time.Time
}

// New constructs a Server, installs middleware, and registers routes.
func New(cfg config.Config, pal palette.Palette, saves store.Store, db *sql.DB) *Server {
	s := &Server{
		r:     chi.NewRouter(),
		cfg:   cfg,
		pal:   pal,
		saves: saves,
		db:    db,
		daily: daily.NewStore(db),
		sfx:   sfx.NewBank(sfx.Config{SampleRate: sfx.DefaultConfig().SampleRate, Volume: cfg.SFXVolume}),
		games: newSessionTable(),
		now:   time.Now,
	}

	// --- middleware ---
	s.r.Use(chimw.RequestID) // add X-Request-ID
	s.r.Use(chimw.RealIP)    // set RemoteAddr from X-Forwarded-For etc.
	s.r.Use(requestLogger)   // one zerolog line per request
	s.r.Use(chimw.Recoverer) // recover from panics
	s.r.Use(s.cors)          // credentials-friendly CORS

	// Long-lived socket; must not sit behind the request timeout.
	s.r.With(s.withOptionalAuth()).Get("/game/{id}/ws", s.handleWS)

	s.r.Group(func(r chi.Router) {
		r.Use(chimw.Timeout(10 * time.Second)) // bound handler time
		r.Use(jsonContentType)                 // default JSON responses

		// --- diagnostics ---
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"service":"orbline","endpoints":["/health","POST /game/new","/game/{id}/*","/daily/*","/auth/*","/sfx/{name}.wav"]}`))
		})
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"ok":true}`))
		})
		r.Get("/sfx/{name}.wav", s.handleSFX)

		// Game endpoints (optional auth, guests can play)
		s.mountGame(r.With(s.withOptionalAuth()))

		// Daily Challenge (optional auth; guests can play, results persisted on game over)
		s.mountDaily(r.With(s.withOptionalAuth()))

		// Auth + profile/scores
		s.mountAuthRoutes(r)

		// JSON 404 for easier debugging
		r.NotFound(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, `{"error":"not_found","path":"`+r.URL.Path+`"}`, http.StatusNotFound)
		})
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

// cors enables credentialed CORS for the configured CLIENT_ORIGIN.
func (s *Server) cors(next http.Handler) http.Handler {
	origin := s.cfg.ClientOrigin
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

// requestLogger logs method, path, status and latency for every request.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		defer func() {
			log.Debug().
				Str("reqId", chimw.GetReqID(r.Context())).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Int("bytes", ww.BytesWritten()).
				Dur("took", time.Since(start)).
				Msg("request")
		}()
		next.ServeHTTP(ww, r)
	})
}

// ------------------------------- sound -------------------------------------

func (s *Server) handleSFX(w http.ResponseWriter, r *http.Request) {
	snd, ok := sfx.ParseSound(chi.URLParam(r, "name"))
	if !ok {
		http.Error(w, `{"error":"unknown_sound"}`, http.StatusNotFound)
		return
	}
	data, err := s.sfx.WAV(snd)
	if err != nil {
		log.Error().Err(err).Str("sound", string(snd)).Msg("render sfx")
		http.Error(w, `{"error":"render_failed"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "audio/wav")
	w.Header().Set("Cache-Control", "public, max-age=86400")
	_, _ = w.Write(data)
}

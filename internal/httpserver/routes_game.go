// internal/httpserver/routes_game.go
//
// HTTP routes for regular games.
//   - POST /game/new              → start a game ({seed?}); returns gameId + state
//   - GET  /game/{id}             → current state
//   - POST /game/{id}/pick        → {x,y} ball selects the source, empty node the target
//   - POST /game/{id}/select      → {x,y} choose the ball to move
//   - POST /game/{id}/target      → {x,y} route to an empty node; returns waypoints
//   - POST /game/{id}/confirm     → start the move along the validated route
//   - POST /game/{id}/complete    → the client finished animating; resolve the turn
//   - POST /game/{id}/cancel|pause|resume|restart
//   - POST /game/{id}/save|load   → snapshot to / from the save store
//
// Finished games are written to the games table and, for signed-in players,
// bump games played and the high score.

package httpserver

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/orbline/internal/board"
	"github.com/robalobadob/orbline/internal/daily"
	"github.com/robalobadob/orbline/internal/game"
)

func (s *Server) mountGame(r chi.Router) {
	r.Post("/game/new", s.handleNewGame)
	r.Get("/game/{id}", s.gameCommand(func(*session, *http.Request) (any, error) { return nil, nil }))
	r.Post("/game/{id}/pick", s.gameCommand(withPos(func(g *game.Game, p board.Position) (any, error) {
		return nil, g.Pick(p)
	})))
	r.Post("/game/{id}/select", s.gameCommand(withPos(func(g *game.Game, p board.Position) (any, error) {
		return nil, g.SelectSource(p)
	})))
	r.Post("/game/{id}/target", s.gameCommand(withPos(func(g *game.Game, p board.Position) (any, error) {
		path, err := g.SelectTarget(p)
		return map[string]any{"waypoints": path}, err
	})))
	r.Post("/game/{id}/confirm", s.gameCommand(func(sess *session, _ *http.Request) (any, error) {
		path, err := sess.g.Confirm()
		return map[string]any{"path": path}, err
	}))
	r.Post("/game/{id}/complete", s.gameCommand(func(sess *session, r *http.Request) (any, error) {
		res, err := sess.g.CompleteMove()
		if err != nil {
			return nil, err
		}
		s.broadcastResult(sess, res)
		s.afterTurn(r.Context(), sess, res)
		return map[string]any{"result": res}, nil
	}))
	r.Post("/game/{id}/cancel", s.gameCommand(func(sess *session, _ *http.Request) (any, error) {
		sess.g.Cancel()
		return nil, nil
	}))
	r.Post("/game/{id}/pause", s.gameCommand(func(sess *session, _ *http.Request) (any, error) {
		return nil, sess.g.Pause()
	}))
	r.Post("/game/{id}/resume", s.gameCommand(func(sess *session, _ *http.Request) (any, error) {
		sess.g.Resume()
		return nil, nil
	}))
	r.Post("/game/{id}/restart", s.gameCommand(func(sess *session, _ *http.Request) (any, error) {
		return nil, s.restart(sess)
	}))
	r.Post("/game/{id}/save", s.gameCommand(func(sess *session, r *http.Request) (any, error) {
		if err := s.saves.Save(r.Context(), sess.g.ID, sess.g.PopulateSnapshot()); err != nil {
			return nil, err
		}
		return map[string]any{"saved": sess.g.ID}, nil
	}))
	r.Post("/game/{id}/load", s.handleLoad)
}

// newGameReq/Res payloads for POST /game/new.
type newGameReq struct {
	Seed *uint64 `json:"seed"` // optional fixed seed (replays, testing)
}
type newGameRes struct {
	GameID string    `json:"gameId"`
	State  stateView `json:"state"`
}

// command runs against a locked, clock-advanced session and returns extra
// response fields (merged next to "state").
type command func(sess *session, r *http.Request) (any, error)

// gameCommand resolves {id}, serializes access, and writes the state view.
func (s *Server) gameCommand(fn command) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := s.games.get(chi.URLParam(r, "id"))
		if !ok {
			http.Error(w, `{"error":"game_not_found"}`, http.StatusNotFound)
			return
		}
		sess.mu.Lock()
		defer sess.mu.Unlock()
		sess.touch(s.now())

		extra, err := fn(sess, r)
		s.flush(sess)
		if err != nil {
			writeGameError(w, err)
			return
		}
		writeState(w, sess, extra)
	}
}

func writeState(w http.ResponseWriter, sess *session, extra any) {
	out := map[string]any{}
	if m, ok := extra.(map[string]any); ok {
		for k, v := range m {
			out[k] = v
		}
	}
	out["state"] = viewOf(sess)
	_ = json.NewEncoder(w).Encode(out)
}

type posReq struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// withPos decodes {x,y} from the body before calling fn.
func withPos(fn func(g *game.Game, p board.Position) (any, error)) command {
	return func(sess *session, r *http.Request) (any, error) {
		var req posReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return nil, errBadJSON
		}
		return fn(sess.g, board.Position{X: req.X, Y: req.Y})
	}
}

// handleNewGame starts a session and persists an owner row (either user_id or
// anonymous_id) for history/stats.
func (s *Server) handleNewGame(w http.ResponseWriter, r *http.Request) {
	var req newGameReq
	_ = json.NewDecoder(r.Body).Decode(&req)

	seed := randomSeed()
	if req.Seed != nil {
		seed = *req.Seed
	}
	s.games.evictIdle(s.now(), sessionTTL)

	sess, err := s.newSession(w, r, genID(), seed, "")
	if err != nil {
		log.Error().Err(err).Msg("new game")
		http.Error(w, `{"error":"new_game_failed"}`, http.StatusInternalServerError)
		return
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if err := sess.g.Init(); err != nil {
		log.Error().Err(err).Msg("init game")
		http.Error(w, `{"error":"new_game_failed"}`, http.StatusInternalServerError)
		return
	}
	sess.hub.takeDirty()
	s.games.put(sess.g.ID, sess)
	s.insertGameRow(r.Context(), sess)

	_ = json.NewEncoder(w).Encode(newGameRes{GameID: sess.g.ID, State: viewOf(sess)})
}

// handleLoad restores the snapshot saved under {id}, creating the session if
// it is not live any more.
func (s *Server) handleLoad(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	snap, err := s.saves.Load(r.Context(), id)
	if err != nil {
		writeGameError(w, err)
		return
	}

	sess, ok := s.games.get(id)
	if !ok {
		if sess, err = s.newSession(w, r, id, randomSeed(), ""); err != nil {
			writeGameError(w, err)
			return
		}
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.daily != "" {
		writeGameError(w, errDailyLocked)
		return
	}
	if err := sess.g.LoadSnapshot(snap); err != nil {
		writeGameError(w, err)
		return
	}
	sess.touched = s.now()
	sess.recorded = false
	if !ok {
		s.games.put(id, sess)
		s.insertGameRow(r.Context(), sess)
	}
	s.flush(sess)
	writeState(w, sess, map[string]any{"loaded": id})
}

// newSession builds a game wired to a fresh hub. The caller initializes it.
func (s *Server) newSession(w http.ResponseWriter, r *http.Request, id string, seed uint64, dailyKey string) (*session, error) {
	h := newHub()
	g, err := game.New(s.cfg.Rules, s.pal, seed,
		game.WithID(id),
		game.WithPresenter(h),
		game.WithLogger(log.Logger.With().Str("component", "game").Logger()),
	)
	if err != nil {
		return nil, err
	}
	now := s.now()
	sess := &session{g: g, hub: h, daily: dailyKey, started: now, touched: now}
	if me := userFrom(r.Context()); me != nil {
		sess.userID = me.ID
	} else {
		sess.anonID = s.ensureAnonID(w, r)
	}
	return sess, nil
}

// restart begins a new game in the same session. Daily games are one attempt.
func (s *Server) restart(sess *session) error {
	if sess.daily != "" {
		return errDailyLocked
	}
	if err := sess.g.NewGame(); err != nil {
		return err
	}
	sess.recorded = false
	sess.started = s.now()
	if s.db != nil {
		if _, err := s.db.Exec(`UPDATE games SET status='playing', started_at=?, finished_at=NULL, score=0, play_time_ms=0 WHERE id=?`,
			sess.started.UTC().Format(time.RFC3339), sess.g.ID); err != nil {
			log.Warn().Err(err).Str("gameId", sess.g.ID).Msg("reset game row")
		}
	}
	return nil
}

func (s *Server) insertGameRow(ctx context.Context, sess *session) {
	if s.db == nil {
		return
	}
	now := sess.started.UTC().Format(time.RFC3339)
	var err error
	if sess.userID != "" {
		_, err = s.db.ExecContext(ctx, `INSERT OR IGNORE INTO games (id, user_id, started_at, status) VALUES (?,?,?,?)`,
			sess.g.ID, sess.userID, now, "playing")
	} else {
		_, err = s.db.ExecContext(ctx, `INSERT OR IGNORE INTO games (id, anonymous_id, started_at, status) VALUES (?,?,?,?)`,
			sess.g.ID, sess.anonID, now, "playing")
	}
	if err != nil {
		log.Warn().Err(err).Str("gameId", sess.g.ID).Msg("insert game row")
	}
}

// afterTurn records a finished game once (best effort, non-fatal if it fails).
func (s *Server) afterTurn(ctx context.Context, sess *session, res game.TurnResult) {
	if !res.GameOver || sess.recorded || s.db == nil {
		return
	}
	sess.recorded = true
	score := sess.g.Score().Current
	playMs := sess.g.Elapsed().Milliseconds()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		log.Warn().Err(err).Msg("begin finish tx")
		return
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `UPDATE games SET status='finished', finished_at=?, score=?, play_time_ms=? WHERE id=?`,
		s.now().UTC().Format(time.RFC3339), score, playMs, sess.g.ID); err != nil {
		log.Warn().Err(err).Msg("finish game")
	}
	if sess.userID != "" {
		if err := bumpStats(ctx, tx, sess.userID, score); err != nil {
			log.Warn().Err(err).Str("user", sess.userID).Msg("bump stats")
		}
	}
	if err := tx.Commit(); err != nil {
		log.Warn().Err(err).Msg("commit finish tx")
	}

	if sess.daily != "" {
		if err := s.daily.InsertResult(ctx, daily.Result{
			UserID: sess.owner(), Date: sess.daily, Score: score, PlayTimeMs: playMs,
		}); err != nil {
			log.Warn().Err(err).Str("date", sess.daily).Msg("insert daily result")
		}
	}
	log.Info().Str("gameId", sess.g.ID).Uint("score", score).Int64("playTimeMs", playMs).Msg("game recorded")
}

// bumpStats increments games played and raises the high score (within tx).
func bumpStats(ctx context.Context, tx *sql.Tx, userID string, score uint) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE users SET games_played = games_played + 1, high_score = MAX(high_score, ?) WHERE id=?`,
		score, userID)
	return err
}

func randomSeed() uint64 {
	var b [8]byte
	_, _ = rand.Read(b[:])
	return binary.LittleEndian.Uint64(b[:])
}

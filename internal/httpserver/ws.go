// internal/httpserver/ws.go
//
// Live game socket.
// Responsibilities:
//   - hub: the game's Presenter; fans events out to every socket on a session.
//   - GET /game/{id}/ws: sends the current state, then reads commands
//     ({"type":"pick"|"select"|"target"|"confirm"|"complete"|"cancel"|
//     "pause"|"resume"|"new","x":..,"y":..}) until the client disconnects.
//
// Notes:
//   - Presenter calls arrive with the session lock held; the hub only queues
//     events on each subscriber and never touches the game. A writer goroutine
//     per socket drains the queue, so a slow client never holds up the session.
//   - A subscriber whose queue is full is dropped.
//   - BoardChanged marks the hub dirty; the full state is sent once per
//     command by flush.

package httpserver

import (
	"context"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/orbline/internal/board"
	"github.com/robalobadob/orbline/internal/game"
	"github.com/robalobadob/orbline/internal/palette"
	"github.com/robalobadob/orbline/internal/sfx"
)

const (
	writeWait  = 5 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
	sendBuffer = 64
)

// event is one message pushed to clients.
type event struct {
	Type   string           `json:"type"`
	Path   []board.Position `json:"path,omitempty"`
	Ball   *board.Ball      `json:"ball,omitempty"`
	Score  string           `json:"score,omitempty"`
	High   string           `json:"high,omitempty"`
	Next   []palette.Entry  `json:"next,omitempty"`
	Final  *uint            `json:"final,omitempty"`
	State  *stateView       `json:"state,omitempty"`
	Result *game.TurnResult `json:"result,omitempty"`
	Error  string           `json:"error,omitempty"`
	Sound  sfx.Sound        `json:"sound,omitempty"`
}

// subscriber is one socket. Only writePump writes to conn.
type subscriber struct {
	conn *websocket.Conn
	send chan event
	done chan struct{}
	once sync.Once
}

func newSubscriber(conn *websocket.Conn) *subscriber {
	return &subscriber{conn: conn, send: make(chan event, sendBuffer), done: make(chan struct{})}
}

// enqueue queues ev without blocking. It reports false when the queue is
// full or the subscriber is closed.
func (s *subscriber) enqueue(ev event) bool {
	select {
	case <-s.done:
		return false
	default:
	}
	select {
	case s.send <- ev:
		return true
	default:
		return false
	}
}

// close stops the writer and closes the socket. Safe to call more than once.
func (s *subscriber) close() {
	s.once.Do(func() {
		close(s.done)
		_ = s.conn.Close()
	})
}

// writePump sends queued events and keepalive pings until the subscriber is
// closed or a write fails.
func (s *subscriber) writePump() {
	t := time.NewTicker(pingPeriod)
	defer func() {
		t.Stop()
		s.close()
	}()
	for {
		select {
		case ev := <-s.send:
			if err := s.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := s.conn.WriteJSON(ev); err != nil {
				log.Debug().Err(err).Str("event", ev.Type).Msg("ws send failed")
				return
			}
		case <-t.C:
			if err := s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		case <-s.done:
			return
		}
	}
}

type hub struct {
	mu    sync.Mutex
	subs  map[*subscriber]struct{}
	dirty bool
}

func newHub() *hub { return &hub{subs: make(map[*subscriber]struct{})} }

func (h *hub) add(s *subscriber) {
	h.mu.Lock()
	h.subs[s] = struct{}{}
	h.mu.Unlock()
}

func (h *hub) remove(s *subscriber) {
	h.mu.Lock()
	delete(h.subs, s)
	h.mu.Unlock()
}

func (h *hub) size() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

func (h *hub) closeAll() {
	h.mu.Lock()
	subs := h.subs
	h.subs = make(map[*subscriber]struct{})
	h.mu.Unlock()
	for s := range subs {
		s.close()
	}
}

func (h *hub) broadcast(ev event) {
	h.mu.Lock()
	subs := make([]*subscriber, 0, len(h.subs))
	for s := range h.subs {
		subs = append(subs, s)
	}
	h.mu.Unlock()

	for _, s := range subs {
		if !s.enqueue(ev) {
			log.Debug().Str("event", ev.Type).Msg("ws subscriber dropped")
			h.remove(s)
			s.close()
		}
	}
}

// takeDirty reports and clears the pending board change.
func (h *hub) takeDirty() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	d := h.dirty
	h.dirty = false
	return d
}

// ---------------------------- game.Presenter --------------------------------

func (h *hub) BoardChanged() {
	h.mu.Lock()
	h.dirty = true
	h.mu.Unlock()
}

func (h *hub) PathFound(path []board.Position) { h.broadcast(event{Type: "path", Path: path}) }

func (h *hub) MoveStarted(path []board.Position, ball board.Ball) {
	h.broadcast(event{Type: "move", Path: path, Ball: &ball, Sound: sfx.SoundMove})
}

func (h *hub) ScoreChanged(current, high string) {
	h.broadcast(event{Type: "score", Score: current, High: high})
}

func (h *hub) QueueChanged(next []palette.Entry) { h.broadcast(event{Type: "queue", Next: next}) }

func (h *hub) GameOver(final uint) {
	h.broadcast(event{Type: "game_over", Final: &final, Sound: sfx.SoundGameOver})
}

// ------------------------------ socket -------------------------------------

// wsCommand is one client message.
type wsCommand struct {
	Type string `json:"type"`
	X    int    `json:"x"`
	Y    int    `json:"y"`
}

func (s *Server) upgrader() *websocket.Upgrader {
	return &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" || origin == s.cfg.ClientOrigin {
				return true
			}
			u, err := url.Parse(origin)
			return err == nil && u.Host == r.Host
		},
	}
}

// handleWS streams a session's events and applies the commands it receives.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.games.get(chi.URLParam(r, "id"))
	if !ok {
		http.Error(w, `{"error":"game_not_found"}`, http.StatusNotFound)
		return
	}
	conn, err := s.upgrader().Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("websocket upgrade")
		return
	}
	sub := newSubscriber(conn)
	defer func() {
		sess.hub.remove(sub)
		sub.close()
	}()

	conn.SetReadLimit(4096)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	go sub.writePump()

	// Joining under the session lock puts the initial state ahead of any event.
	sess.mu.Lock()
	sess.touch(s.now())
	v := viewOf(sess)
	sub.enqueue(event{Type: "state", State: &v})
	sess.hub.add(sub)
	sess.mu.Unlock()

	for {
		var cmd wsCommand
		if err := conn.ReadJSON(&cmd); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug().Err(err).Str("gameId", sess.g.ID).Msg("ws read")
			}
			return
		}
		s.runCommand(sess, sub, cmd)
	}
}

// runCommand applies one socket command. Errors go back to the sender only.
func (s *Server) runCommand(sess *session, sub *subscriber, cmd wsCommand) {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.touch(s.now())

	p := board.Position{X: cmd.X, Y: cmd.Y}
	g := sess.g
	var err error
	switch cmd.Type {
	case "pick":
		err = g.Pick(p)
	case "select":
		err = g.SelectSource(p)
	case "target":
		_, err = g.SelectTarget(p)
	case "confirm":
		_, err = g.Confirm()
	case "complete":
		var res game.TurnResult
		if res, err = g.CompleteMove(); err == nil {
			s.broadcastResult(sess, res)
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			s.afterTurn(ctx, sess, res)
			cancel()
		}
	case "cancel":
		g.Cancel()
	case "pause":
		err = g.Pause()
	case "resume":
		g.Resume()
	case "new":
		err = s.restart(sess)
	case "state":
		sess.hub.BoardChanged()
	default:
		sub.enqueue(event{Type: "error", Error: "unknown_command"})
		return
	}
	if err != nil {
		code, _ := errorCode(err)
		sub.enqueue(event{Type: "error", Error: code, Sound: sfx.SoundInvalid})
	}
	s.flush(sess)
}

func (s *Server) broadcastResult(sess *session, res game.TurnResult) {
	snd := sfx.SoundLand
	if len(res.Exploded) > 0 {
		snd = sfx.SoundExplode
	}
	sess.hub.broadcast(event{Type: "result", Result: &res, Sound: snd})
}

// flush sends the full state if the board changed. Callers hold sess.mu.
func (s *Server) flush(sess *session) {
	if !sess.hub.takeDirty() {
		return
	}
	v := viewOf(sess)
	sess.hub.broadcast(event{Type: "state", State: &v})
}

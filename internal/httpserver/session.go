// internal/httpserver/session.go
//
// Live game sessions.
// Responsibilities:
//   - Keep one *game.Game per game ID, each behind its own mutex.
//   - Advance the game clock by wall time between requests.
//   - Evict sessions idle longer than sessionTTL.
//
// Notes:
//   - A Game is not concurrency-safe; every access goes through session.mu.

package httpserver

import (
	"sync"
	"time"

	"github.com/robalobadob/orbline/internal/game"
)

const sessionTTL = 2 * time.Hour

// session holds one in-progress game and its owner.
type session struct {
	mu sync.Mutex

	g   *game.Game
	hub *hub

	userID   string // set for signed-in players
	anonID   string // guest cookie otherwise
	daily    string // date key for daily games
	started  time.Time
	touched  time.Time
	recorded bool // finished game persisted
}

// owner returns the identity results are recorded under.
func (s *session) owner() string {
	if s.userID != "" {
		return s.userID
	}
	return s.anonID
}

// touch ticks the game clock up to now. Callers hold s.mu.
func (s *session) touch(now time.Time) {
	if !s.touched.IsZero() && now.After(s.touched) {
		s.g.Tick(now.Sub(s.touched))
	}
	s.touched = now
}

type sessionTable struct {
	mu       sync.Mutex
	sessions map[string]*session
}

func newSessionTable() *sessionTable {
	return &sessionTable{sessions: make(map[string]*session)}
}

func (t *sessionTable) get(id string) (*session, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.sessions[id]
	return s, ok
}

func (t *sessionTable) put(id string, s *session) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sessions[id] = s
}

// evictIdle drops sessions not touched since now-ttl and closes their sockets.
// The table lock is never held while taking a session lock.
func (t *sessionTable) evictIdle(now time.Time, ttl time.Duration) int {
	t.mu.Lock()
	all := make(map[string]*session, len(t.sessions))
	for id, s := range t.sessions {
		all[id] = s
	}
	t.mu.Unlock()

	stale := map[string]*session{}
	for id, s := range all {
		s.mu.Lock()
		if now.Sub(s.touched) > ttl {
			stale[id] = s
		}
		s.mu.Unlock()
	}

	t.mu.Lock()
	for id, s := range stale {
		if t.sessions[id] == s {
			delete(t.sessions, id)
		}
	}
	t.mu.Unlock()

	for _, s := range stale {
		s.hub.closeAll()
	}
	return len(stale)
}

package httpserver

import (
	"errors"
	"net/http"

	"github.com/robalobadob/orbline/internal/board"
	"github.com/robalobadob/orbline/internal/game"
	"github.com/robalobadob/orbline/internal/palette"
	"github.com/robalobadob/orbline/internal/store"
)

// stateView is the JSON shape of a game sent to clients.
type stateView struct {
	GameID      string            `json:"gameId"`
	State       game.State        `json:"state"`
	Topology    board.Topology    `json:"topology"`
	Width       int               `json:"width"`
	Height      int               `json:"height"`
	Blocked     []board.Position  `json:"blocked,omitempty"`
	Nodes       []board.NodeState `json:"nodes"`
	Queue       []palette.Entry   `json:"queue"`
	Score       uint              `json:"score"`
	HighScore   uint              `json:"highScore"`
	ScoreText   string            `json:"scoreText"`
	HighText    string            `json:"highText"`
	PlayTimeMs  int64             `json:"playTimeMs"`
	Timer       string            `json:"timer"`
	GhostsShown uint              `json:"ghostsShown"`
	Source      *board.Position   `json:"source,omitempty"`
	Waypoints   []board.Position  `json:"waypoints,omitempty"`
	Daily       string            `json:"daily,omitempty"`
}

// viewOf renders the session. Callers hold sess.mu.
func viewOf(sess *session) stateView {
	g := sess.g
	w, h := g.Board().Graph().Size()
	sc := g.Score()
	v := stateView{
		GameID:      g.ID,
		State:       g.State(),
		Topology:    g.Board().Graph().Topology(),
		Width:       w,
		Height:      h,
		Blocked:     g.Board().Graph().Blocked(),
		Nodes:       g.Board().Export(),
		Queue:       g.Palette().Lookup(g.Queue()),
		Score:       sc.Current,
		HighScore:   sc.High,
		ScoreText:   sc.CurrentText(),
		HighText:    sc.HighText(),
		PlayTimeMs:  g.Elapsed().Milliseconds(),
		Timer:       g.TimerText(),
		GhostsShown: g.GhostsShown(),
		Waypoints:   g.Waypoints(),
		Daily:       sess.daily,
	}
	if v.Nodes == nil {
		v.Nodes = []board.NodeState{}
	}
	if src, _, ok, _ := g.Selection(); ok {
		v.Source = &src
	}
	return v
}

var (
	errBadJSON     = errors.New("bad json")
	errDailyLocked = errors.New("daily game cannot be restarted or loaded")
)

// errorCode maps engine and store errors to an API code and HTTP status.
func errorCode(err error) (string, int) {
	switch {
	case errors.Is(err, errBadJSON):
		return "bad_json", http.StatusBadRequest
	case errors.Is(err, board.ErrInvalidSelection):
		return "invalid_selection", http.StatusBadRequest
	case errors.Is(err, board.ErrUnreachable):
		return "unreachable", http.StatusConflict
	case errors.Is(err, game.ErrInputBlocked):
		return "input_blocked", http.StatusConflict
	case errors.Is(err, game.ErrGameOver):
		return "game_over", http.StatusConflict
	case errors.Is(err, game.ErrNotMoving):
		return "not_moving", http.StatusConflict
	case errors.Is(err, errDailyLocked):
		return "daily_locked", http.StatusConflict
	case errors.Is(err, game.ErrBadSnapshot):
		return "bad_snapshot", http.StatusUnprocessableEntity
	case errors.Is(err, store.ErrNotFound):
		return "save_not_found", http.StatusNotFound
	}
	return "internal", http.StatusInternalServerError
}

func writeGameError(w http.ResponseWriter, err error) {
	code, status := errorCode(err)
	http.Error(w, `{"error":"`+code+`"}`, status)
}

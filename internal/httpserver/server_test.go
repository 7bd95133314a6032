package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/robalobadob/orbline/assets"
	"github.com/robalobadob/orbline/internal/board"
	"github.com/robalobadob/orbline/internal/config"
	"github.com/robalobadob/orbline/internal/daily"
	"github.com/robalobadob/orbline/internal/game"
	"github.com/robalobadob/orbline/internal/palette"
	"github.com/robalobadob/orbline/internal/store"
)

var testNow = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

func testConfig() config.Config {
	return config.Config{
		JWTSecret:    "test-secret",
		JWTExpiry:    time.Hour,
		CookieName:   "orbline_token",
		AnonCookie:   "orbline_anon",
		ClientOrigin: "http://localhost:5173",
		DailySalt:    "test-salt",
		SFXVolume:    0.5,
		Rules:        game.DefaultRules(),
	}
}

type testEnv struct {
	srv  *Server
	ts   *httptest.Server
	http *http.Client
}

func newTestEnv(t *testing.T, cfg config.Config) *testEnv {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "orbline.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := store.Migrate(db, assets.Migrations()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	pal, err := palette.Default()
	if err != nil {
		t.Fatalf("palette: %v", err)
	}

	srv := New(cfg, pal, store.NewMemoryStore(), db)
	srv.now = func() time.Time { return testNow }
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)

	jar, _ := cookiejar.New(nil)
	return &testEnv{srv: srv, ts: ts, http: &http.Client{Jar: jar}}
}

// call sends body as JSON and decodes the reply into out when non-nil.
func (e *testEnv) call(t *testing.T, method, path string, body, out any) int {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, e.ts.URL+path, rd)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	res, err := e.http.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer res.Body.Close()
	if out != nil {
		if err := json.NewDecoder(res.Body).Decode(out); err != nil {
			t.Fatalf("%s %s: decode: %v", method, path, err)
		}
	}
	return res.StatusCode
}

type stateRes struct {
	State     stateView        `json:"state"`
	Waypoints []board.Position `json:"waypoints"`
	Result    *game.TurnResult `json:"result"`
	Error     string           `json:"error"`
}

// explodeSnapshot has four red balls on row 0 and a fifth one move away.
func explodeSnapshot() game.Snapshot {
	nodes := []board.NodeState{{Pos: board.Position{X: 4, Y: 2}, Ball: &board.Ball{ColorID: 0}}}
	for x := 0; x < 4; x++ {
		nodes = append(nodes, board.NodeState{Pos: board.Position{X: x, Y: 0}, Ball: &board.Ball{ColorID: 0}})
	}
	return game.Snapshot{HighScore: 2, ColorIndexQueue: []int{1, 2, 3}, Nodes: nodes}
}

func TestHealth(t *testing.T) {
	e := newTestEnv(t, testConfig())
	var out map[string]bool
	if code := e.call(t, http.MethodGet, "/health", nil, &out); code != http.StatusOK || !out["ok"] {
		t.Fatalf("health: %d %v", code, out)
	}
	var nf map[string]string
	if code := e.call(t, http.MethodGet, "/nope", nil, &nf); code != http.StatusNotFound || nf["error"] != "not_found" {
		t.Fatalf("not found: %d %v", code, nf)
	}
}

func TestNewGameAndState(t *testing.T) {
	e := newTestEnv(t, testConfig())
	seed := uint64(42)
	var created newGameRes
	if code := e.call(t, http.MethodPost, "/game/new", newGameReq{Seed: &seed}, &created); code != http.StatusOK {
		t.Fatalf("new game: %d", code)
	}
	if created.GameID == "" || created.State.State != game.StateIdle {
		t.Fatalf("new game = %+v", created)
	}
	if len(created.State.Queue) != 3 || created.State.Width != 9 || created.State.ScoreText != "00000" {
		t.Fatalf("state = %+v", created.State)
	}
	reserved := 0
	for _, n := range created.State.Nodes {
		if n.Pending != nil {
			reserved++
		}
	}
	if reserved != 3 {
		t.Fatalf("reserved nodes = %d, want 3", reserved)
	}

	var got stateRes
	if code := e.call(t, http.MethodGet, "/game/"+created.GameID, nil, &got); code != http.StatusOK {
		t.Fatalf("get: %d", code)
	}
	if got.State.GameID != created.GameID {
		t.Fatalf("get returned %q", got.State.GameID)
	}

	var again newGameRes
	e.call(t, http.MethodPost, "/game/new", newGameReq{Seed: &seed}, &again)
	if again.GameID == created.GameID {
		t.Fatalf("game IDs collide")
	}
	if !sameNodes(again.State.Nodes, created.State.Nodes) {
		t.Fatalf("same seed produced different boards")
	}
}

func sameNodes(a, b []board.NodeState) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		x, y := a[i], b[i]
		if x.Pos != y.Pos || (x.Pending == nil) != (y.Pending == nil) {
			return false
		}
		if x.Pending != nil && *x.Pending != *y.Pending {
			return false
		}
	}
	return true
}

func TestMoveAndExplodeOverHTTP(t *testing.T) {
	e := newTestEnv(t, testConfig())
	ctx := context.Background()
	if err := e.srv.saves.Save(ctx, "crafted", explodeSnapshot()); err != nil {
		t.Fatalf("seed save: %v", err)
	}

	var loaded stateRes
	if code := e.call(t, http.MethodPost, "/game/crafted/load", nil, &loaded); code != http.StatusOK {
		t.Fatalf("load: %d", code)
	}
	if loaded.State.HighScore != 2 || len(loaded.State.Nodes) != 5 {
		t.Fatalf("loaded = %+v", loaded.State)
	}

	var res stateRes
	if code := e.call(t, http.MethodPost, "/game/crafted/select", posReq{X: 4, Y: 2}, &res); code != http.StatusOK {
		t.Fatalf("select: %d", code)
	}
	if res.State.State != game.StateSourceSelected || res.State.Source == nil || *res.State.Source != (board.Position{X: 4, Y: 2}) {
		t.Fatalf("after select: %+v", res.State)
	}

	res = stateRes{}
	if code := e.call(t, http.MethodPost, "/game/crafted/target", posReq{X: 4, Y: 0}, &res); code != http.StatusOK {
		t.Fatalf("target: %d", code)
	}
	if len(res.Waypoints) < 2 || res.Waypoints[len(res.Waypoints)-1] != (board.Position{X: 4, Y: 0}) {
		t.Fatalf("waypoints = %v", res.Waypoints)
	}

	res = stateRes{}
	if code := e.call(t, http.MethodPost, "/game/crafted/confirm", nil, &res); code != http.StatusOK || res.State.State != game.StateMoving {
		t.Fatalf("confirm: %d state=%s", code, res.State.State)
	}

	var blocked map[string]string
	if code := e.call(t, http.MethodPost, "/game/crafted/pause", nil, &blocked); code != http.StatusConflict || blocked["error"] != "input_blocked" {
		t.Fatalf("pause while moving: %d %v", code, blocked)
	}

	res = stateRes{}
	if code := e.call(t, http.MethodPost, "/game/crafted/complete", nil, &res); code != http.StatusOK {
		t.Fatalf("complete: %d", code)
	}
	if res.Result == nil || len(res.Result.Exploded) != 5 || res.Result.Gained != 5 {
		t.Fatalf("result = %+v", res.Result)
	}
	if res.State.Score != 5 || res.State.ScoreText != "00005" || res.State.HighScore != 2 {
		t.Fatalf("score after explosion = %+v", res.State)
	}

	var notMoving map[string]string
	if code := e.call(t, http.MethodPost, "/game/crafted/complete", nil, &notMoving); code != http.StatusConflict || notMoving["error"] != "not_moving" {
		t.Fatalf("second complete: %d %v", code, notMoving)
	}
}

func TestGameErrors(t *testing.T) {
	e := newTestEnv(t, testConfig())
	var out map[string]string
	if code := e.call(t, http.MethodGet, "/game/missing", nil, &out); code != http.StatusNotFound || out["error"] != "game_not_found" {
		t.Fatalf("missing game: %d %v", code, out)
	}
	if code := e.call(t, http.MethodPost, "/game/missing/load", nil, &out); code != http.StatusNotFound || out["error"] != "save_not_found" {
		t.Fatalf("missing save: %d %v", code, out)
	}

	var created newGameRes
	e.call(t, http.MethodPost, "/game/new", nil, &created)
	id := created.GameID

	// Fresh boards only hold reservations, so no node can be a source.
	out = nil
	if code := e.call(t, http.MethodPost, "/game/"+id+"/select", posReq{X: 0, Y: 0}, &out); code != http.StatusBadRequest || out["error"] != "invalid_selection" {
		t.Fatalf("select empty: %d %v", code, out)
	}
	out = nil
	if code := e.call(t, http.MethodPost, "/game/"+id+"/select", posReq{X: 40, Y: 40}, &out); code != http.StatusBadRequest {
		t.Fatalf("select off board: %d %v", code, out)
	}
	out = nil
	if code := e.call(t, http.MethodPost, "/game/"+id+"/confirm", nil, &out); code != http.StatusBadRequest || out["error"] != "invalid_selection" {
		t.Fatalf("confirm without path: %d %v", code, out)
	}

	req, _ := http.NewRequest(http.MethodPost, e.ts.URL+"/game/"+id+"/pick", strings.NewReader("{"))
	res, err := e.http.Do(req)
	if err != nil {
		t.Fatalf("bad json: %v", err)
	}
	res.Body.Close()
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad json status = %d", res.StatusCode)
	}
}

func TestPauseResumeSaveLoad(t *testing.T) {
	e := newTestEnv(t, testConfig())
	var created newGameRes
	e.call(t, http.MethodPost, "/game/new", nil, &created)
	id := created.GameID

	var res stateRes
	if e.call(t, http.MethodPost, "/game/"+id+"/pause", nil, &res); res.State.State != game.StatePaused {
		t.Fatalf("pause: %s", res.State.State)
	}
	var out map[string]string
	if code := e.call(t, http.MethodPost, "/game/"+id+"/pick", posReq{X: 1, Y: 1}, &out); code != http.StatusConflict || out["error"] != "input_blocked" {
		t.Fatalf("pick while paused: %d %v", code, out)
	}
	res = stateRes{}
	if e.call(t, http.MethodPost, "/game/"+id+"/resume", nil, &res); res.State.State != game.StateIdle {
		t.Fatalf("resume: %s", res.State.State)
	}

	var saved map[string]any
	if code := e.call(t, http.MethodPost, "/game/"+id+"/save", nil, &saved); code != http.StatusOK || saved["saved"] != id {
		t.Fatalf("save: %d %v", code, saved)
	}
	snap, err := e.srv.saves.Load(context.Background(), id)
	if err != nil {
		t.Fatalf("stored snapshot: %v", err)
	}
	if len(snap.ColorIndexQueue) != 3 || len(snap.Nodes) != 3 {
		t.Fatalf("snapshot = %+v", snap)
	}

	e.call(t, http.MethodPost, "/game/"+id+"/restart", nil, nil)
	var loaded stateRes
	if code := e.call(t, http.MethodPost, "/game/"+id+"/load", nil, &loaded); code != http.StatusOK {
		t.Fatalf("load: %d", code)
	}
	if !sameNodes(loaded.State.Nodes, created.State.Nodes) {
		t.Fatalf("loaded board differs from saved board")
	}
}

func TestGameOverUpdatesAccount(t *testing.T) {
	cfg := testConfig()
	cfg.Rules.Width, cfg.Rules.Height = 4, 1
	cfg.Rules.InitGrowUpCount = 0
	cfg.Rules.QueuedCount = 1
	e := newTestEnv(t, cfg)

	user := signupReq{Username: "ballmaster", Password: "correct-horse"}
	if code := e.call(t, http.MethodPost, "/auth/signup", user, nil); code != http.StatusOK {
		t.Fatalf("signup: %d", code)
	}
	if code := e.call(t, http.MethodPost, "/auth/signup", user, nil); code != http.StatusConflict {
		t.Fatalf("duplicate signup: %d", code)
	}

	snap := game.Snapshot{
		CurrentScore:    7,
		ColorIndexQueue: []int{2},
		Nodes: []board.NodeState{
			{Pos: board.Position{X: 0, Y: 0}, Ball: &board.Ball{ColorID: 0}},
			{Pos: board.Position{X: 2, Y: 0}, Ball: &board.Ball{ColorID: 1}},
			{Pos: board.Position{X: 3, Y: 0}, Ball: &board.Ball{ColorID: 2}},
		},
	}
	if err := e.srv.saves.Save(context.Background(), "last", snap); err != nil {
		t.Fatalf("seed save: %v", err)
	}
	e.call(t, http.MethodPost, "/game/last/load", nil, nil)
	e.call(t, http.MethodPost, "/game/last/select", posReq{X: 0, Y: 0}, nil)
	e.call(t, http.MethodPost, "/game/last/target", posReq{X: 1, Y: 0}, nil)
	e.call(t, http.MethodPost, "/game/last/confirm", nil, nil)

	var res stateRes
	if code := e.call(t, http.MethodPost, "/game/last/complete", nil, &res); code != http.StatusOK {
		t.Fatalf("complete: %d", code)
	}
	if res.Result == nil || !res.Result.GameOver || res.State.State != game.StateGameOver {
		t.Fatalf("result = %+v state=%s", res.Result, res.State.State)
	}

	var me struct {
		Username    string `json:"username"`
		GamesPlayed int    `json:"gamesPlayed"`
		HighScore   uint   `json:"highScore"`
	}
	if code := e.call(t, http.MethodGet, "/scores/me", nil, &me); code != http.StatusOK {
		t.Fatalf("scores/me: %d", code)
	}
	if me.Username != "ballmaster" || me.GamesPlayed != 1 || me.HighScore != 7 {
		t.Fatalf("scores/me = %+v", me)
	}

	var mine []struct {
		ID     string `json:"id"`
		Status string `json:"status"`
		Score  uint   `json:"score"`
	}
	e.call(t, http.MethodGet, "/games/mine", nil, &mine)
	if len(mine) != 1 || mine[0].ID != "last" || mine[0].Status != "finished" || mine[0].Score != 7 {
		t.Fatalf("games/mine = %+v", mine)
	}

	var top []struct {
		Username  string `json:"username"`
		HighScore uint   `json:"highScore"`
	}
	e.call(t, http.MethodGet, "/scores/top", nil, &top)
	if len(top) != 1 || top[0].Username != "ballmaster" {
		t.Fatalf("scores/top = %+v", top)
	}

	e.call(t, http.MethodPost, "/auth/logout", nil, nil)
	if code := e.call(t, http.MethodGet, "/scores/me", nil, nil); code != http.StatusUnauthorized {
		t.Fatalf("scores/me after logout: %d", code)
	}
	if code := e.call(t, http.MethodPost, "/auth/login", loginReq{Username: "BallMaster", Password: "correct-horse"}, nil); code != http.StatusOK {
		t.Fatalf("login: %d", code)
	}
	if code := e.call(t, http.MethodPost, "/auth/login", loginReq{Username: "ballmaster", Password: "wrong-horse"}, nil); code != http.StatusUnauthorized {
		t.Fatalf("bad login: %d", code)
	}
}

func TestDailyChallenge(t *testing.T) {
	e := newTestEnv(t, testConfig())
	date := daily.DateKey(testNow)

	var first newRes
	if code := e.call(t, http.MethodPost, "/daily/new", nil, &first); code != http.StatusOK {
		t.Fatalf("daily new: %d", code)
	}
	if first.Played || first.Date != date || first.State == nil || first.State.Daily != date {
		t.Fatalf("daily = %+v", first)
	}
	var again newRes
	e.call(t, http.MethodPost, "/daily/new", nil, &again)
	if again.GameID != first.GameID {
		t.Fatalf("daily session not reused: %q vs %q", again.GameID, first.GameID)
	}

	var out map[string]string
	if code := e.call(t, http.MethodPost, "/game/"+first.GameID+"/restart", nil, &out); code != http.StatusConflict || out["error"] != "daily_locked" {
		t.Fatalf("daily restart: %d %v", code, out)
	}

	// Another player gets the same board for the date.
	other := newTestEnv(t, testConfig())
	var theirs newRes
	other.call(t, http.MethodPost, "/daily/new", nil, &theirs)
	if !sameNodes(theirs.State.Nodes, first.State.Nodes) {
		t.Fatalf("daily boards differ between players")
	}

	u, _ := url.Parse(e.ts.URL)
	var anon string
	for _, c := range e.http.Jar.Cookies(u) {
		if c.Name == "orbline_anon" {
			anon = c.Value
		}
	}
	if anon == "" {
		t.Fatalf("no anonymous cookie")
	}
	ctx := context.Background()
	if err := e.srv.daily.InsertResult(ctx, daily.Result{UserID: anon, Date: date, Score: 12, PlayTimeMs: 9000}); err != nil {
		t.Fatalf("insert result: %v", err)
	}
	if err := e.srv.daily.InsertResult(ctx, daily.Result{UserID: "someone", Date: date, Score: 30, PlayTimeMs: 60000}); err != nil {
		t.Fatalf("insert result: %v", err)
	}

	var played newRes
	e.call(t, http.MethodPost, "/daily/new", nil, &played)
	if !played.Played || played.GameID != "" {
		t.Fatalf("after result: %+v", played)
	}

	var lb lbRes
	if code := e.call(t, http.MethodGet, "/daily/leaderboard?date="+date, nil, &lb); code != http.StatusOK {
		t.Fatalf("leaderboard: %d", code)
	}
	if lb.Date != date || len(lb.Top) != 2 || lb.Top[0].Score != 30 || lb.Top[1].UserID != anon {
		t.Fatalf("leaderboard = %+v", lb)
	}
}

func TestSoundEffects(t *testing.T) {
	e := newTestEnv(t, testConfig())
	res, err := e.http.Get(e.ts.URL + "/sfx/explode.wav")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	body, _ := io.ReadAll(res.Body)
	res.Body.Close()
	if res.StatusCode != http.StatusOK || res.Header.Get("Content-Type") != "audio/wav" {
		t.Fatalf("status=%d type=%q", res.StatusCode, res.Header.Get("Content-Type"))
	}
	if len(body) < 44 || string(body[:4]) != "RIFF" || string(body[8:12]) != "WAVE" {
		t.Fatalf("not a wav file (%d bytes)", len(body))
	}

	res, err = e.http.Get(e.ts.URL + "/sfx/kazoo.wav")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	res.Body.Close()
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown sound status = %d", res.StatusCode)
	}
}

func TestWebSocketPlay(t *testing.T) {
	e := newTestEnv(t, testConfig())
	if err := e.srv.saves.Save(context.Background(), "live", explodeSnapshot()); err != nil {
		t.Fatalf("seed save: %v", err)
	}
	e.call(t, http.MethodPost, "/game/live/load", nil, nil)

	wsURL := "ws" + strings.TrimPrefix(e.ts.URL, "http") + "/game/live/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	read := func() event {
		t.Helper()
		var ev event
		if err := conn.ReadJSON(&ev); err != nil {
			t.Fatalf("read: %v", err)
		}
		return ev
	}
	// await reads until an event of the given type arrives.
	await := func(typ string) event {
		t.Helper()
		for {
			if ev := read(); ev.Type == typ {
				return ev
			}
		}
	}
	send := func(cmd wsCommand) {
		t.Helper()
		if err := conn.WriteJSON(cmd); err != nil {
			t.Fatalf("write: %v", err)
		}
	}

	if ev := read(); ev.Type != "state" || ev.State == nil || ev.State.GameID != "live" {
		t.Fatalf("first event = %+v", ev)
	}

	send(wsCommand{Type: "juggle"})
	if ev := read(); ev.Type != "error" || ev.Error != "unknown_command" {
		t.Fatalf("unknown command reply = %+v", ev)
	}
	send(wsCommand{Type: "select", X: 8, Y: 8})
	if ev := read(); ev.Type != "error" || ev.Error != "invalid_selection" || ev.Sound != "invalid" {
		t.Fatalf("invalid select reply = %+v", ev)
	}

	send(wsCommand{Type: "pick", X: 4, Y: 2})
	send(wsCommand{Type: "pick", X: 4, Y: 0})
	if ev := await("path"); len(ev.Path) == 0 {
		t.Fatalf("empty path event")
	}
	send(wsCommand{Type: "confirm"})
	if ev := await("move"); ev.Ball == nil || ev.Ball.ColorID != 0 || ev.Sound != "move" {
		t.Fatalf("move event = %+v", ev)
	}
	send(wsCommand{Type: "complete"})
	ev := await("result")
	if ev.Result == nil || len(ev.Result.Exploded) != 5 || ev.Sound != "explode" {
		t.Fatalf("result event = %+v", ev)
	}
	if st := await("state"); st.State.Score != 5 {
		t.Fatalf("state after explosion = %+v", st.State)
	}
}

func TestWebSocketUnknownGame(t *testing.T) {
	e := newTestEnv(t, testConfig())
	wsURL := "ws" + strings.TrimPrefix(e.ts.URL, "http") + "/game/ghost/ws"
	_, res, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err == nil {
		t.Fatalf("dial succeeded for unknown game")
	}
	if res == nil || res.StatusCode != http.StatusNotFound {
		t.Fatalf("response = %v", res)
	}
}

func TestStalledSubscriberIsDropped(t *testing.T) {
	conns := make(chan *websocket.Conn, 1)
	up := websocket.Upgrader{}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if c, err := up.Upgrade(w, r, nil); err == nil {
			conns <- c
		}
	}))
	defer ts.Close()
	client, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer client.Close()

	// No writer runs, so the queue fills and is never drained.
	stalled := newSubscriber(<-conns)
	h := newHub()
	h.add(stalled)

	start := time.Now()
	for i := 0; i <= sendBuffer; i++ {
		h.broadcast(event{Type: "score", Score: "00001"})
	}
	if d := time.Since(start); d > time.Second {
		t.Fatalf("broadcast blocked for %v", d)
	}
	if n := h.size(); n != 0 {
		t.Fatalf("hub still has %d subscribers", n)
	}
	if stalled.enqueue(event{Type: "score"}) {
		t.Fatalf("closed subscriber accepted an event")
	}
	stalled.close()
}

func TestEvictIdleSessions(t *testing.T) {
	e := newTestEnv(t, testConfig())
	var created newGameRes
	e.call(t, http.MethodPost, "/game/new", nil, &created)
	if n := e.srv.games.evictIdle(testNow.Add(time.Minute), sessionTTL); n != 0 {
		t.Fatalf("evicted %d fresh sessions", n)
	}
	if n := e.srv.games.evictIdle(testNow.Add(sessionTTL+time.Second), sessionTTL); n != 1 {
		t.Fatalf("evicted %d, want 1", n)
	}
	if _, ok := e.srv.games.get(created.GameID); ok {
		t.Fatalf("session survived eviction")
	}
}

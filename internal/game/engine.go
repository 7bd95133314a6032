// internal/game/engine.go
//
// Turn orchestrator for a single game session.
// Responsibilities:
//   - Drive the turn state machine: select source → select target → confirm →
//     (presenter animates) → CompleteMove → grow → attach → resolve → idle/game over.
//   - Own the color queue, score, ghost counter and play timer.
//   - Notify the Presenter of display changes.
//
// Notes:
//   - A Game is not safe for concurrent use; callers serialize access.
//   - All randomness comes from one PCG source seeded at construction.
//   - Moving is the only suspension point. Input is rejected until the
//     presenter reports the move finished via CompleteMove.
package game

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	mrand "math/rand/v2"
	"time"

	"github.com/rs/zerolog"

	"github.com/robalobadob/orbline/internal/board"
	"github.com/robalobadob/orbline/internal/palette"
)

// Game holds the state of one session.
type Game struct {
	ID string

	rules   Rules
	palette palette.Palette
	seed    uint64
	rng     *mrand.Rand
	board   *board.Board

	queue  *ColorQueue
	score  ScoreState
	ghosts GhostCounter
	timer  Timer

	state     State
	resumeTo  State // state to restore on Resume
	source    board.Position
	target    board.Position
	hasSource bool
	waypoints []board.Position

	presenter Presenter
	logger    zerolog.Logger
}

// Option customizes a Game at construction.
type Option func(*Game)

func WithPresenter(p Presenter) Option   { return func(g *Game) { g.presenter = p } }
func WithLogger(l zerolog.Logger) Option { return func(g *Game) { g.logger = l } }
func WithID(id string) Option            { return func(g *Game) { g.ID = id } }

// New constructs a game. Call Init or LoadSnapshot before playing.
func New(rules Rules, pal palette.Palette, seed uint64, opts ...Option) (*Game, error) {
	if err := rules.Validate(); err != nil {
		return nil, err
	}
	if pal.Len() == 0 {
		return nil, errors.New("game: empty palette")
	}
	graph, err := board.NewGraph(rules.Topology, rules.Width, rules.Height, rules.Blocked)
	if err != nil {
		return nil, err
	}
	rng := mrand.New(mrand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	g := &Game{
		ID:        randomID(),
		rules:     rules,
		palette:   pal,
		seed:      seed,
		rng:       rng,
		board:     board.New(graph, rng),
		queue:     NewColorQueue(rules.QueuedCount),
		score:     ScoreState{Max: rules.MaxScore},
		ghosts:    GhostCounter{Cap: rules.GhostCount},
		state:     StateIdle,
		presenter: NopPresenter{},
		logger:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// SetPresenter swaps the presenter. nil restores the no-op presenter.
func (g *Game) SetPresenter(p Presenter) {
	if p == nil {
		p = NopPresenter{}
	}
	g.presenter = p
}

// Init starts play: a fresh game unless a snapshot was already loaded.
func (g *Game) Init() error {
	if g.queue.Len() == 0 {
		return g.NewGame()
	}
	g.timer.Resume()
	g.publishAll()
	return nil
}

// Tick advances play time. Paused and finished games do not accumulate.
func (g *Game) Tick(dt time.Duration) {
	if g.state == StatePaused || g.state == StateGameOver {
		return
	}
	g.timer.Add(dt)
}

// Shutdown stops the clock, records the high score and returns a snapshot
// for persistence.
func (g *Game) Shutdown() Snapshot {
	g.timer.Stop()
	g.score.CommitHigh()
	return g.PopulateSnapshot()
}

// NewGame resets the board, score, queue and timer.
func (g *Game) NewGame() error {
	g.timer.Reset()
	g.score.Current = 0
	g.ghosts.Count = 0
	g.queue.Reset()
	g.clearSelection()

	if err := g.board.CreateNewBoard(g.rules.InitGrowUpCount, g.randomColor); err != nil {
		return fmt.Errorf("new game: %w", err)
	}
	g.queue.Fill(g.randomColor)
	g.state = StateIdle
	g.timer.Resume()

	g.logger.Debug().Str("game", g.ID).Int("queued", g.queue.Len()).Msg("new game")
	g.publishAll()
	return nil
}

// Pause blocks input and stops the clock.
func (g *Game) Pause() error {
	switch g.state {
	case StatePaused:
		return nil
	case StateGameOver:
		return ErrGameOver
	case StateMoving, StateGrowing, StateResolving:
		return ErrInputBlocked
	}
	g.resumeTo = g.state
	g.state = StatePaused
	g.timer.Stop()
	return nil
}

// Resume restores the state held before Pause.
func (g *Game) Resume() {
	if g.state != StatePaused {
		return
	}
	g.state = g.resumeTo
	g.timer.Resume()
}

func (g *Game) acceptInput() error {
	switch g.state {
	case StateGameOver:
		return ErrGameOver
	case StateMoving, StateGrowing, StateResolving, StatePaused:
		return ErrInputBlocked
	}
	return nil
}

// SelectSource picks the ball to move. Picking again switches the source.
func (g *Game) SelectSource(p board.Position) error {
	if err := g.acceptInput(); err != nil {
		return err
	}
	n, ok := g.board.Node(p)
	if !ok || !n.Occupied() {
		return fmt.Errorf("select source %v: %w", p, board.ErrInvalidSelection)
	}
	g.clearSelection()
	g.source, g.hasSource = p, true
	g.state = StateSourceSelected
	return nil
}

// SelectTarget routes the selected ball to p. On failure the source stays
// selected and no path is held.
func (g *Game) SelectTarget(p board.Position) ([]board.Position, error) {
	if err := g.acceptInput(); err != nil {
		return nil, err
	}
	if !g.hasSource {
		return nil, fmt.Errorf("select target %v: no source: %w", p, board.ErrInvalidSelection)
	}
	path, err := board.FindPath(g.board, g.source, p, g.board.Graph().ActiveNodeCount())
	if err != nil {
		g.waypoints = nil
		g.state = StateSourceSelected
		return nil, fmt.Errorf("select target %v: %w", p, err)
	}
	g.target = p
	g.waypoints = path
	g.state = StatePathValidated
	g.presenter.PathFound(clonePath(path))
	return clonePath(path), nil
}

// Pick is the single-click entry point: a ball selects the source, an empty
// node selects the target.
func (g *Game) Pick(p board.Position) error {
	if n, ok := g.board.Node(p); ok && n.Occupied() {
		return g.SelectSource(p)
	}
	_, err := g.SelectTarget(p)
	return err
}

// Cancel drops any pending selection. It has no effect once a move began.
func (g *Game) Cancel() {
	if g.state == StateSourceSelected || g.state == StatePathValidated {
		g.clearSelection()
		g.state = StateIdle
	}
}

// Confirm commits the validated path and starts the move. Input stays
// blocked until CompleteMove.
func (g *Game) Confirm() ([]board.Position, error) {
	if err := g.acceptInput(); err != nil {
		return nil, err
	}
	if g.state != StatePathValidated {
		return nil, fmt.Errorf("confirm: no validated path: %w", board.ErrInvalidSelection)
	}
	ball, err := g.board.BeginMove(g.source, g.target)
	if err != nil {
		return nil, err
	}
	g.state = StateMoving
	path := clonePath(g.waypoints)
	g.logger.Debug().Str("game", g.ID).Stringer("from", g.source).Stringer("to", g.target).Int("steps", len(path)-1).Msg("move started")
	g.presenter.MoveStarted(path, ball)
	g.presenter.BoardChanged()
	return clonePath(path), nil
}

// Move selects, routes and confirms in one call.
func (g *Game) Move(from, to board.Position) ([]board.Position, error) {
	if err := g.SelectSource(from); err != nil {
		return nil, err
	}
	if _, err := g.SelectTarget(to); err != nil {
		return nil, err
	}
	return g.Confirm()
}

// CompleteMove is the presenter's move-finished signal. It lands the ball,
// grows last turn's reservations, attaches the next queue balls, resolves
// explosions, and ends the game if the board is full.
func (g *Game) CompleteMove() (TurnResult, error) {
	var res TurnResult
	if g.state == StateGameOver {
		return res, ErrGameOver
	}
	if g.state != StateMoving {
		return res, ErrNotMoving
	}

	landing, err := g.board.Land()
	if err != nil {
		return res, err
	}
	g.state = StateGrowing
	res.Landing = landing
	res.Grown = g.board.GrowQueueBalls()

	attached, err := g.attachQueueBalls()
	res.Attached = attached
	if err != nil {
		if !errors.Is(err, board.ErrNoRoom) {
			return res, err
		}
		res.Exploded, res.Gained = g.resolve(append([]board.Position{landing}, res.Grown...))
		res.GameOver = true
		g.gameOver()
		return res, nil
	}
	g.replenishQueue()

	g.state = StateResolving
	res.Exploded, res.Gained = g.resolve(append([]board.Position{landing}, res.Grown...))

	g.clearSelection()
	if g.board.OutOfActiveNode() {
		res.GameOver = true
		g.gameOver()
		return res, nil
	}
	g.state = StateIdle
	g.logger.Debug().Str("game", g.ID).Int("exploded", len(res.Exploded)).Uint("score", g.score.Current).Msg("turn complete")
	g.presenter.BoardChanged()
	return res, nil
}

func (g *Game) attachQueueBalls() ([]board.Position, error) {
	var attached []board.Position
	for i := 0; i < g.rules.QueuedCount; i++ {
		if g.board.OutOfActiveNode() {
			return attached, board.ErrNoRoom
		}
		color, ok := g.queue.Dequeue()
		if !ok {
			color = g.randomColor()
		}
		p, err := g.board.AttachQueueBallToRandomActiveNode(color, g.IsGhost())
		if err != nil {
			return attached, err
		}
		attached = append(attached, p)
	}
	return attached, nil
}

func (g *Game) replenishQueue() {
	if g.queue.Fill(g.randomColor) > 0 {
		g.presenter.QueueChanged(g.palette.Lookup(g.queue.Items()))
	}
}

// resolve checks each position for a chain explosion and scores it.
func (g *Game) resolve(checks []board.Position) ([]board.Position, uint) {
	var exploded []board.Position
	var gained uint
	for _, p := range checks {
		removed := g.board.CheckChainExplode(p, g.rules.ExplodeCount)
		if len(removed) == 0 {
			continue
		}
		exploded = append(exploded, removed...)
		gained += g.score.Add(len(removed), g.rules.ScorePerExploded)
	}
	if len(exploded) > 0 {
		g.publishScore()
	}
	return exploded, gained
}

func (g *Game) gameOver() {
	g.state = StateGameOver
	g.timer.Stop()
	g.score.CommitHigh()
	g.clearSelection()
	g.logger.Info().Str("game", g.ID).Uint("score", g.score.Current).Dur("playTime", g.timer.Elapsed()).Msg("game over")
	g.presenter.BoardChanged()
	g.publishScore()
	g.presenter.GameOver(g.score.Current)
}

// IsGhost rolls whether the next attached ball is a ghost. At most
// Rules.GhostCount ghosts appear per game.
func (g *Game) IsGhost() bool {
	return g.ghosts.Roll(g.rng, g.rules.GhostAppearChance)
}

func (g *Game) randomColor() int { return g.rng.IntN(g.palette.Len()) }

func (g *Game) clearSelection() {
	g.hasSource = false
	g.source, g.target = board.Position{}, board.Position{}
	g.waypoints = nil
}

func (g *Game) publishScore() {
	g.presenter.ScoreChanged(g.score.CurrentText(), g.score.HighText())
}

func (g *Game) publishAll() {
	g.presenter.BoardChanged()
	g.publishScore()
	g.presenter.QueueChanged(g.palette.Lookup(g.queue.Items()))
}

// ---------------------------------- accessors ----------------------------------

func (g *Game) State() State                { return g.state }
func (g *Game) Rules() Rules                { return g.rules }
func (g *Game) Palette() palette.Palette    { return g.palette }
func (g *Game) Seed() uint64                { return g.seed }
func (g *Game) Score() ScoreState           { return g.score }
func (g *Game) GhostsShown() uint           { return g.ghosts.Count }
func (g *Game) Elapsed() time.Duration      { return g.timer.Elapsed() }
func (g *Game) TimerText() string           { return g.timer.Format() }
func (g *Game) Queue() []int                { return g.queue.Items() }
func (g *Game) Waypoints() []board.Position { return clonePath(g.waypoints) }

// Board exposes the board for read-only use by presenters.
func (g *Game) Board() *board.Board { return g.board }

// Selection returns the selected source and, once a path is validated, the target.
func (g *Game) Selection() (source board.Position, target board.Position, hasSource, hasTarget bool) {
	return g.source, g.target, g.hasSource, g.state == StatePathValidated || g.state == StateMoving
}

func clonePath(p []board.Position) []board.Position {
	if p == nil {
		return nil
	}
	out := make([]board.Position, len(p))
	copy(out, p)
	return out
}

// randomID returns a compact 16‑hex‑char identifier.
func randomID() string {
	var b [8]byte
	_, _ = rand.Read(b[:])
	return hex.EncodeToString(b[:])
}

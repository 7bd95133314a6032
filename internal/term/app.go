// internal/term/app.go
//
// Terminal client for a single local game.
// Responsibilities:
//   - Presenter for game.Game: collects score/queue/path notifications and
//     redraws on the next frame.
//   - Keyboard: arrows move the cursor, space/enter picks (a second press on
//     the target confirms), c confirms, p pauses, n starts over, q/Esc quits.
//   - Animation: a confirmed move advances one waypoint per frame; the last
//     frame completes the turn.
//   - Persistence: the game is restored from and saved to the "local" slot.
//
// Notes:
//   - Presenter calls never touch the Game; saving on game over happens
//     after CompleteMove returns.

package term

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/orbline/internal/board"
	"github.com/robalobadob/orbline/internal/game"
	"github.com/robalobadob/orbline/internal/palette"
	"github.com/robalobadob/orbline/internal/sfx"
	"github.com/robalobadob/orbline/internal/store"
)

// LocalSave is the save slot used by the terminal client.
const LocalSave = "local"

const frameInterval = 60 * time.Millisecond

// App drives one game on a tcell screen.
type App struct {
	g     *game.Game
	scr   tcell.Screen
	saves store.Store
	sound *sfx.Player // nil plays nothing

	cursor board.Position

	// move animation
	anim   []board.Position
	animAt int
	ball   board.Ball

	path      []board.Position
	scoreText string
	highText  string
	queue     []palette.Entry
	message   string
	final     *uint
	dirty     bool
}

// SeedNow returns a fresh random game seed.
func SeedNow() uint64 {
	var b [8]byte
	_, _ = rand.Read(b[:])
	return binary.LittleEndian.Uint64(b[:])
}

// New attaches an App to g as its presenter.
func New(g *game.Game, scr tcell.Screen, saves store.Store, sound *sfx.Player) *App {
	a := &App{g: g, scr: scr, saves: saves, sound: sound, scoreText: "00000", highText: "00000"}
	g.SetPresenter(a)
	return a
}

// ---------------------------- game.Presenter --------------------------------

func (a *App) BoardChanged()                  { a.dirty = true }
func (a *App) PathFound(p []board.Position)   { a.path = p }
func (a *App) QueueChanged(n []palette.Entry) { a.queue = n }

func (a *App) MoveStarted(p []board.Position, b board.Ball) {
	a.anim, a.animAt, a.ball = p, 0, b
	a.play(sfx.SoundMove)
}

func (a *App) ScoreChanged(current, high string) {
	a.scoreText, a.highText = current, high
}

func (a *App) GameOver(final uint) {
	a.final = &final
	a.play(sfx.SoundGameOver)
}

// ------------------------------- lifecycle ----------------------------------

// Start restores the local save, or begins a new game when there is none.
func (a *App) Start(ctx context.Context) error {
	snap, err := a.saves.Load(ctx, LocalSave)
	switch {
	case err == nil:
		if err := a.g.LoadSnapshot(snap); err != nil {
			log.Warn().Err(err).Msg("discarding unreadable local save")
			if err := a.g.NewGame(); err != nil {
				return err
			}
		}
	case errors.Is(err, store.ErrNotFound):
	default:
		return err
	}
	if err := a.g.Init(); err != nil {
		return err
	}
	a.final = nil
	return nil
}

// Quit stops the game and saves it.
func (a *App) Quit(ctx context.Context) error {
	return a.saves.Save(context.WithoutCancel(ctx), LocalSave, a.g.Shutdown())
}

// Run processes input and frames until the player quits or ctx ends.
func (a *App) Run(ctx context.Context) error {
	if err := a.Start(ctx); err != nil {
		return err
	}

	events := make(chan tcell.Event, 16)
	done := make(chan struct{})
	defer close(done)
	go a.pollEvents(events, done)

	ticker := time.NewTicker(frameInterval)
	defer ticker.Stop()
	last := time.Now()
	a.draw()

	for {
		select {
		case <-ctx.Done():
			return a.Quit(ctx)
		case ev, ok := <-events:
			if !ok {
				return a.Quit(ctx)
			}
			switch ev := ev.(type) {
			case *tcell.EventKey:
				if !a.handleKey(ev.Key(), ev.Rune()) {
					return a.Quit(ctx)
				}
			case *tcell.EventResize:
				a.scr.Sync()
			}
			a.draw()
		case now := <-ticker.C:
			a.g.Tick(now.Sub(last))
			last = now
			a.step(ctx)
			if a.dirty || a.g.State() != game.StatePaused {
				a.draw()
			}
		}
	}
}

// --------------------------------- input ------------------------------------

// pollEvents forwards screen events until the screen is finalized or done
// is closed, then closes events.
func (a *App) pollEvents(events chan<- tcell.Event, done <-chan struct{}) {
	defer close(events)
	for {
		ev := a.scr.PollEvent()
		if ev == nil {
			return
		}
		select {
		case events <- ev:
		case <-done:
			return
		}
	}
}

// handleKey applies one key press. It returns false when the player quits.
func (a *App) handleKey(key tcell.Key, r rune) bool {
	switch key {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return false
	case tcell.KeyUp:
		a.moveCursor(0, -1)
	case tcell.KeyDown:
		a.moveCursor(0, 1)
	case tcell.KeyLeft:
		a.moveCursor(-1, 0)
	case tcell.KeyRight:
		a.moveCursor(1, 0)
	case tcell.KeyEnter:
		a.pick()
	case tcell.KeyRune:
		switch r {
		case 'q':
			return false
		case ' ':
			a.pick()
		case 'c':
			a.confirm()
		case 'p':
			a.togglePause()
		case 'n':
			a.newGame()
		}
	}
	return true
}

func (a *App) moveCursor(dx, dy int) {
	w, h := a.g.Board().Graph().Size()
	a.cursor.X = min(max(a.cursor.X+dx, 0), w-1)
	a.cursor.Y = min(max(a.cursor.Y+dy, 0), h-1)
}

// pick selects under the cursor, or confirms when the cursor is on the
// validated target.
func (a *App) pick() {
	if _, target, _, ok := a.g.Selection(); ok && target == a.cursor && a.g.State() == game.StatePathValidated {
		a.confirm()
		return
	}
	a.path = nil
	a.report(a.g.Pick(a.cursor))
}

func (a *App) confirm() {
	_, err := a.g.Confirm()
	a.report(err)
}

func (a *App) togglePause() {
	if a.g.State() == game.StatePaused {
		a.g.Resume()
		a.message = ""
		return
	}
	a.report(a.g.Pause())
}

func (a *App) newGame() {
	a.anim, a.path, a.final = nil, nil, nil
	a.report(a.g.NewGame())
}

func (a *App) report(err error) {
	switch {
	case err == nil:
		a.message = ""
	case errors.Is(err, board.ErrUnreachable):
		a.message = "no path"
	case errors.Is(err, game.ErrInputBlocked):
		a.message = "wait"
	case errors.Is(err, game.ErrGameOver):
		a.message = "game over, n for a new game"
	default:
		a.message = "invalid"
	}
	if err != nil {
		a.play(sfx.SoundInvalid)
	}
}

// step advances the move animation by one waypoint and resolves the turn on
// the last one.
func (a *App) step(ctx context.Context) {
	if len(a.anim) == 0 {
		return
	}
	if a.animAt < len(a.anim)-1 {
		a.animAt++
		if a.animAt < len(a.anim)-1 {
			return
		}
	}
	a.anim, a.path = nil, nil

	res, err := a.g.CompleteMove()
	if err != nil {
		log.Warn().Err(err).Msg("complete move")
		return
	}
	if len(res.Exploded) > 0 {
		a.play(sfx.SoundExplode)
	} else {
		a.play(sfx.SoundLand)
	}
	if res.GameOver {
		if err := a.saves.Save(ctx, LocalSave, a.g.PopulateSnapshot()); err != nil {
			log.Warn().Err(err).Msg("save after game over")
		}
	}
}

func (a *App) play(s sfx.Sound) {
	if a.sound != nil {
		a.sound.Play(s)
	}
}

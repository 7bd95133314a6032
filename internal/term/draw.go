package term

import (
	"fmt"
	"unicode/utf8"

	"github.com/gdamore/tcell/v2"

	"github.com/robalobadob/orbline/internal/board"
	"github.com/robalobadob/orbline/internal/game"
)

// Board origin on screen. Each node takes two columns; odd hex rows shift
// right by one.
const (
	originX = 2
	originY = 2
)

const (
	glyphEmpty   = '·'
	glyphPending = '∘'
	glyphPath    = '•'
)

var (
	styleFrame  = tcell.StyleDefault.Foreground(tcell.ColorGray)
	styleText   = tcell.StyleDefault
	styleAlert  = tcell.StyleDefault.Foreground(tcell.ColorRed).Bold(true)
	styleCursor = tcell.StyleDefault.Reverse(true)
)

// cellAt maps a board position to a screen column and row.
func (a *App) cellAt(p board.Position) (int, int) {
	x := originX + p.X*2
	if a.g.Board().Graph().Topology() == board.TopologyHex && p.Y%2 == 1 {
		x++
	}
	return x, originY + p.Y
}

func (a *App) colorStyle(colorID int) tcell.Style {
	e, ok := a.g.Palette().Entry(colorID)
	if !ok {
		return styleText
	}
	return tcell.StyleDefault.Foreground(tcell.GetColor(e.Hex))
}

func (a *App) glyph(colorID int) rune {
	e, ok := a.g.Palette().Entry(colorID)
	if !ok || e.Glyph == "" {
		return '?'
	}
	r, _ := utf8.DecodeRuneInString(e.Glyph)
	return r
}

func (a *App) draw() {
	a.scr.Clear()
	a.drawBoard()
	a.drawStatus()
	a.scr.Show()
	a.dirty = false
}

func (a *App) drawBoard() {
	g := a.g.Board().Graph()
	states := map[board.Position]board.NodeState{}
	for _, st := range a.g.Board().Export() {
		states[st.Pos] = st
	}
	onPath := map[board.Position]bool{}
	for _, p := range a.path {
		onPath[p] = true
	}
	src, _, hasSrc, _ := a.g.Selection()

	// The animated ball is drawn at its current waypoint instead of its source.
	var animPos board.Position
	animating := len(a.anim) > 0
	if animating {
		animPos = a.anim[a.animAt]
		st := states[a.anim[0]]
		st.Ball = nil
		states[a.anim[0]] = st
	}

	for _, p := range g.Positions() {
		x, y := a.cellAt(p)
		r, style := glyphEmpty, styleFrame
		st := states[p]
		switch {
		case st.Ball != nil:
			r, style = a.glyph(st.Ball.ColorID), a.colorStyle(st.Ball.ColorID)
		case st.Pending != nil:
			r, style = glyphPending, a.colorStyle(st.Pending.ColorID)
		case onPath[p]:
			r = glyphPath
		}
		if animating && p == animPos {
			r, style = a.glyph(a.ball.ColorID), a.colorStyle(a.ball.ColorID)
		}
		if st.Ghost {
			style = style.Bold(true)
		}
		if hasSrc && p == src && !animating {
			style = style.Blink(true)
		}
		if p == a.cursor {
			style = style.Reverse(true)
		}
		a.scr.SetContent(x, y, r, nil, style)
	}
	if !g.IsActive(a.cursor) {
		x, y := a.cellAt(a.cursor)
		a.scr.SetContent(x, y, ' ', nil, styleCursor)
	}
}

func (a *App) drawStatus() {
	_, h := a.g.Board().Graph().Size()
	y := originY + h + 1

	line := fmt.Sprintf("Score %s  High %s  Time %s", a.scoreText, a.highText, a.g.TimerText())
	a.text(originX, 0, line, styleText)

	x := a.text(originX, y, "Next ", styleText)
	for _, e := range a.queue {
		a.scr.SetContent(x, y, a.glyph(e.ColorID), nil, a.colorStyle(e.ColorID))
		x += 2
	}

	switch {
	case a.final != nil:
		a.text(originX, y+1, fmt.Sprintf("GAME OVER  final %05d  n: new game  q: quit", *a.final), styleAlert)
	case a.g.State() == game.StatePaused:
		a.text(originX, y+1, "PAUSED  p: resume", styleAlert)
	case a.message != "":
		a.text(originX, y+1, a.message, styleAlert)
	default:
		a.text(originX, y+1, "arrows move  space pick  c confirm  p pause  n new  q quit", styleFrame)
	}
}

// text writes s from column x and returns the column after it.
func (a *App) text(x, y int, s string, style tcell.Style) int {
	for _, r := range s {
		a.scr.SetContent(x, y, r, nil, style)
		x++
	}
	return x
}

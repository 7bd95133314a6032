// internal/game/snapshot.go
//
// Flat persistence snapshot.
// A snapshot taken after game over carries only the high score, so loading it
// starts a fresh game.

package game

import (
	"fmt"
	"time"

	"github.com/robalobadob/orbline/internal/board"
)

// Snapshot is everything needed to rebuild a game in memory.
type Snapshot struct {
	HighScore       uint              `json:"highScore"`
	CurrentScore    uint              `json:"currentScore"`
	PlayTime        time.Duration     `json:"playTime"`
	ColorIndexQueue []int             `json:"colorIndexQueue"`
	Nodes           []board.NodeState `json:"nodes,omitempty"`
	GhostCount      uint              `json:"ghostCount"`
}

// PopulateSnapshot captures the current game. Balls mid-move are saved at
// their source.
func (g *Game) PopulateSnapshot() Snapshot {
	if g.state == StateGameOver {
		return Snapshot{HighScore: g.score.High, ColorIndexQueue: []int{}}
	}
	return Snapshot{
		HighScore:       g.score.High,
		CurrentScore:    g.score.Current,
		PlayTime:        g.timer.Elapsed(),
		ColorIndexQueue: g.queue.Items(),
		Nodes:           g.board.Export(),
		GhostCount:      g.ghosts.Count,
	}
}

// LoadSnapshot replaces the game state with s. An empty queue starts a new
// game that keeps the saved high score.
func (g *Game) LoadSnapshot(s Snapshot) error {
	if len(s.ColorIndexQueue) == 0 {
		if err := g.NewGame(); err != nil {
			return err
		}
		g.score.High = s.HighScore
		g.publishScore()
		return nil
	}

	if len(s.ColorIndexQueue) > g.rules.QueuedCount {
		return fmt.Errorf("queue of %d exceeds %d: %w", len(s.ColorIndexQueue), g.rules.QueuedCount, ErrBadSnapshot)
	}
	for _, id := range s.ColorIndexQueue {
		if !g.palette.Valid(id) {
			return fmt.Errorf("queued color %d: %w", id, ErrBadSnapshot)
		}
	}
	for _, st := range s.Nodes {
		if st.Ball != nil && !g.palette.Valid(st.Ball.ColorID) {
			return fmt.Errorf("ball color %d at %v: %w", st.Ball.ColorID, st.Pos, ErrBadSnapshot)
		}
		if st.Pending != nil && !g.palette.Valid(st.Pending.ColorID) {
			return fmt.Errorf("pending color %d at %v: %w", st.Pending.ColorID, st.Pos, ErrBadSnapshot)
		}
	}
	if err := g.board.Import(s.Nodes); err != nil {
		return fmt.Errorf("%w: %w", ErrBadSnapshot, err)
	}

	g.queue.Reset()
	for _, id := range s.ColorIndexQueue {
		g.queue.Enqueue(id)
	}
	g.queue.Fill(g.randomColor)

	g.score.Current = min(s.CurrentScore, g.score.Max)
	g.score.High = s.HighScore
	g.ghosts.Count = min(s.GhostCount, g.ghosts.Cap)
	g.timer.Set(s.PlayTime)
	g.timer.Resume()
	g.clearSelection()
	g.state = StateIdle
	g.publishAll()
	return nil
}

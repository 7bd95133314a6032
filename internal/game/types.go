// internal/game/types.go
//
// Core type definitions for the turn orchestrator.
// Defines:
//   - State: turn lifecycle states.
//   - Rules: gameplay tunables and board shape.
//   - TurnResult: what one completed move did to the board.
//   - Presenter: fire-and-forget notifications for the display layer.

package game

import (
	"fmt"

	"github.com/robalobadob/orbline/internal/board"
	"github.com/robalobadob/orbline/internal/palette"
)

// State is the turn lifecycle state.
type State string

const (
	StateIdle           State = "idle"
	StateSourceSelected State = "source_selected"
	StatePathValidated  State = "path_validated"
	StateMoving         State = "moving"
	StateGrowing        State = "growing"
	StateResolving      State = "resolving"
	StatePaused         State = "paused"
	StateGameOver       State = "game_over"
)

// MaxQueuedCount bounds Rules.QueuedCount.
const MaxQueuedCount = 6

// Rules holds the gameplay tunables.
type Rules struct {
	Topology board.Topology
	Width    int
	Height   int
	Blocked  []board.Position

	QueuedCount       int  // balls attached per turn and queue length (1-6)
	ScorePerExploded  uint // points per exploded ball
	ExplodeCount      int  // minimum group size that explodes
	InitGrowUpCount   int  // reservations seeded on a new board
	MaxScore          uint // current score saturates here
	GhostCount        uint // ghost appearances allowed per game
	GhostAppearChance int  // percent, 0-100
}

// DefaultRules returns the stock 9x9 configuration.
func DefaultRules() Rules {
	return Rules{
		Topology:          board.TopologySquare,
		Width:             9,
		Height:            9,
		QueuedCount:       3,
		ScorePerExploded:  1,
		ExplodeCount:      5,
		InitGrowUpCount:   3,
		MaxScore:          99999,
		GhostCount:        3,
		GhostAppearChance: 10,
	}
}

// Validate reports the first out-of-range tunable.
func (r Rules) Validate() error {
	switch {
	case r.QueuedCount < 1 || r.QueuedCount > MaxQueuedCount:
		return fmt.Errorf("rules: queued count %d out of range 1-%d", r.QueuedCount, MaxQueuedCount)
	case r.ExplodeCount < 1:
		return fmt.Errorf("rules: explode count %d must be positive", r.ExplodeCount)
	case r.InitGrowUpCount < 0:
		return fmt.Errorf("rules: init grow-up count %d is negative", r.InitGrowUpCount)
	case r.MaxScore == 0:
		return fmt.Errorf("rules: max score must be positive")
	case r.GhostAppearChance < 0 || r.GhostAppearChance > 100:
		return fmt.Errorf("rules: ghost appear chance %d out of range 0-100", r.GhostAppearChance)
	case r.Width <= 0 || r.Height <= 0:
		return fmt.Errorf("rules: invalid board size %dx%d", r.Width, r.Height)
	}
	return nil
}

// TurnResult describes one completed move.
type TurnResult struct {
	Landing  board.Position   `json:"landing"`
	Grown    []board.Position `json:"grown,omitempty"`
	Attached []board.Position `json:"attached,omitempty"`
	Exploded []board.Position `json:"exploded,omitempty"`
	Gained   uint             `json:"gained"`
	GameOver bool             `json:"gameOver"`
}

// Presenter receives display notifications. Implementations must not call
// back into the Game.
type Presenter interface {
	BoardChanged()
	PathFound(path []board.Position)
	MoveStarted(path []board.Position, ball board.Ball)
	ScoreChanged(current, high string)
	QueueChanged(next []palette.Entry)
	GameOver(finalScore uint)
}

// NopPresenter ignores every notification. Embed it to implement a subset.
type NopPresenter struct{}

func (NopPresenter) BoardChanged()                            {}
func (NopPresenter) PathFound([]board.Position)               {}
func (NopPresenter) MoveStarted([]board.Position, board.Ball) {}
func (NopPresenter) ScoreChanged(string, string)              {}
func (NopPresenter) QueueChanged([]palette.Entry)             {}
func (NopPresenter) GameOver(uint)                            {}

package game

import (
	"fmt"
	"math/rand/v2"
)

// ScoreState tracks the current and best score. Current never exceeds Max.
type ScoreState struct {
	Current uint
	High    uint
	Max     uint
}

// Add awards per points for each of balls exploded balls, saturating at Max,
// and returns the points actually gained.
func (s *ScoreState) Add(balls int, per uint) uint {
	before := s.Current
	for i := 0; i < balls && s.Current < s.Max; i++ {
		if s.Max-s.Current < per {
			s.Current = s.Max
		} else {
			s.Current += per
		}
	}
	return s.Current - before
}

// CommitHigh raises High to Current when Current is better.
func (s *ScoreState) CommitHigh() {
	if s.Current > s.High {
		s.High = s.Current
	}
}

// CurrentText and HighText are zero-padded for display.
func (s ScoreState) CurrentText() string { return fmt.Sprintf("%05d", s.Current) }
func (s ScoreState) HighText() string    { return fmt.Sprintf("%05d", s.High) }

// GhostCounter caps ghost appearances per game.
type GhostCounter struct {
	Count uint
	Cap   uint
}

// Roll reports whether a ghost appears, given a percent chance.
// Once Cap ghosts have appeared it always reports false without rolling.
func (c *GhostCounter) Roll(rng *rand.Rand, chance int) bool {
	if c.Count >= c.Cap {
		return false
	}
	if rng.IntN(100) < chance {
		c.Count++
		return true
	}
	return false
}

package game

import "errors"

var (
	ErrInputBlocked = errors.New("input blocked")
	ErrGameOver     = errors.New("game over")
	ErrNotMoving    = errors.New("no move in progress")
	ErrBadSnapshot  = errors.New("bad snapshot")
)

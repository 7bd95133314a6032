package board

import "errors"

var (
	ErrUnreachable      = errors.New("unreachable")
	ErrNoRoom           = errors.New("no room to attach")
	ErrInvalidSelection = errors.New("invalid selection")
	ErrNoMove           = errors.New("no move in progress")
	ErrUnknownNode      = errors.New("unknown node")
)

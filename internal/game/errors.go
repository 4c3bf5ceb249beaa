package game

import "errors"

var (
	// ErrInvalidConfiguration is returned by Initialize for an odd or too small board size.
	ErrInvalidConfiguration = errors.New("invalid configuration")
	// ErrOutOfBounds is returned when a selection falls outside the grid.
	ErrOutOfBounds = errors.New("out of bounds")
	// ErrGameAlreadyOver is returned for selections after a win or loss.
	ErrGameAlreadyOver = errors.New("game already over")
	// ErrNoPendingResolution is returned by ResolvePending when no mismatch is waiting.
	ErrNoPendingResolution = errors.New("no pending resolution")
)

package mpm

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidConfig is returned when simulation parameters cannot run.
	ErrInvalidConfig = errors.New("mpm: invalid configuration")

	// ErrOutOfBounds is returned when a particle's stencil leaves the grid.
	ErrOutOfBounds = errors.New("mpm: particle outside grid")
)

// OutOfBoundsError identifies the lowest-index particle whose stencil left
// the lattice during a transfer stage.
type OutOfBoundsError struct {
	Stage    string
	Particle int
	X        Vec2
}

func (e *OutOfBoundsError) Error() string {
	return fmt.Sprintf("mpm: %s: particle %d at (%.4f, %.4f) outside grid", e.Stage, e.Particle, e.X[0], e.X[1])
}

// Unwrap lets errors.Is match ErrOutOfBounds.
func (e *OutOfBoundsError) Unwrap() error {
	return ErrOutOfBounds
}

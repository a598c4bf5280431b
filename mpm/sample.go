package mpm

import (
	"fmt"
	"math/rand"
)

// Region is the axis-aligned box [X0, X1] x [Y0, Y1].
type Region struct {
	X0, X1 float64
	Y0, Y1 float64
}

// SampleBox places n particles uniformly at random in region using rng, and
// sets every particle's velocity to v0, volume ratio to j0 and C to zero.
// rng is the only source of randomness, so a fixed seed gives a fixed set.
func SampleBox(region Region, n int, rng *rand.Rand, v0 Vec2, j0 float64) (*ParticleSet, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: n_particles must be positive, got %d", ErrInvalidConfig, n)
	}
	if region.X1 <= region.X0 || region.Y1 <= region.Y0 {
		return nil, fmt.Errorf("%w: empty region [%g,%g]x[%g,%g]",
			ErrInvalidConfig, region.X0, region.X1, region.Y0, region.Y1)
	}
	if rng == nil {
		return nil, fmt.Errorf("%w: nil random source", ErrInvalidConfig)
	}

	w := region.X1 - region.X0
	h := region.Y1 - region.Y0

	ps := NewParticleSet(n)
	for i := 0; i < n; i++ {
		x := region.X0 + rng.Float64()*w
		y := region.Y0 + rng.Float64()*h
		ps.X[i] = Vec2{x, y}
		ps.V[i] = v0
		ps.J[i] = j0
	}
	return ps, nil
}

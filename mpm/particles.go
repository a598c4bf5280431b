package mpm

import "fmt"

// ParticleSet owns per-particle state as parallel arrays. The length is fixed
// at construction; index i names the same particle for the whole run.
type ParticleSet struct {
	X []Vec2    // Position
	V []Vec2    // Velocity
	J []float64 // Volume ratio (nominal 1)
	C []Mat2    // Affine velocity matrix
}

// NewParticleSet allocates n particles with zero state.
func NewParticleSet(n int) *ParticleSet {
	return &ParticleSet{
		X: make([]Vec2, n),
		V: make([]Vec2, n),
		J: make([]float64, n),
		C: make([]Mat2, n),
	}
}

// RestoreParticles builds a set from previously captured state. The slices
// are copied.
func RestoreParticles(x, v []Vec2, j []float64, c []Mat2) (*ParticleSet, error) {
	n := len(x)
	if n == 0 {
		return nil, fmt.Errorf("%w: no particles to restore", ErrInvalidConfig)
	}
	if len(v) != n || len(j) != n || len(c) != n {
		return nil, fmt.Errorf("%w: particle field lengths differ (x=%d v=%d j=%d c=%d)",
			ErrInvalidConfig, n, len(v), len(j), len(c))
	}

	ps := NewParticleSet(n)
	copy(ps.X, x)
	copy(ps.V, v)
	copy(ps.J, j)
	copy(ps.C, c)
	return ps, nil
}

// Len returns the particle count.
func (ps *ParticleSet) Len() int {
	return len(ps.X)
}

// Positions copies all positions into dst (grown if needed) and returns it.
func (ps *ParticleSet) Positions(dst []Vec2) []Vec2 {
	if cap(dst) < len(ps.X) {
		dst = make([]Vec2, len(ps.X))
	}
	dst = dst[:len(ps.X)]
	copy(dst, ps.X)
	return dst
}

// Clone returns a deep copy.
func (ps *ParticleSet) Clone() *ParticleSet {
	out := NewParticleSet(ps.Len())
	copy(out.X, ps.X)
	copy(out.V, ps.V)
	copy(out.J, ps.J)
	copy(out.C, ps.C)
	return out
}

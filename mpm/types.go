// Package mpm implements a 2D Material Point Method solver: particles carry
// state, a uniform background grid carries momentum, and every substep
// couples them through four transfer stages (clear, particle-to-grid, grid
// update, grid-to-particle) with an APIC affine velocity field and a scalar
// volume ratio in place of a full deformation gradient.
package mpm

// Vec2 is a 2D vector. Index 0 is x (grid column), index 1 is y (grid row).
type Vec2 [2]float64

// Add returns v + o.
func (v Vec2) Add(o Vec2) Vec2 {
	return Vec2{v[0] + o[0], v[1] + o[1]}
}

// Sub returns v - o.
func (v Vec2) Sub(o Vec2) Vec2 {
	return Vec2{v[0] - o[0], v[1] - o[1]}
}

// Scale returns s * v.
func (v Vec2) Scale(s float64) Vec2 {
	return Vec2{v[0] * s, v[1] * s}
}

// Dot returns the dot product.
func (v Vec2) Dot(o Vec2) float64 {
	return v[0]*o[0] + v[1]*o[1]
}

// Mat2 is a row-major 2x2 matrix, m[row][col].
type Mat2 [2][2]float64

// Outer returns the outer product a ⊗ b, i.e. m[r][c] = a[r]*b[c].
func Outer(a, b Vec2) Mat2 {
	return Mat2{
		{a[0] * b[0], a[0] * b[1]},
		{a[1] * b[0], a[1] * b[1]},
	}
}

// Add returns m + o.
func (m Mat2) Add(o Mat2) Mat2 {
	return Mat2{
		{m[0][0] + o[0][0], m[0][1] + o[0][1]},
		{m[1][0] + o[1][0], m[1][1] + o[1][1]},
	}
}

// Scale returns s * m.
func (m Mat2) Scale(s float64) Mat2 {
	return Mat2{
		{m[0][0] * s, m[0][1] * s},
		{m[1][0] * s, m[1][1] * s},
	}
}

// Trace returns m[0][0] + m[1][1].
func (m Mat2) Trace() float64 {
	return m[0][0] + m[1][1]
}

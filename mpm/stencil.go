package mpm

import "math"

// Stencil is the 3x3 quadratic B-spline neighbourhood of a particle.
// P2G and G2P both build it through NewStencil, so their weights match bit for bit.
type Stencil struct {
	Base [2]int  // Lower-left node of the 3x3 block
	Fx   Vec2    // Offset from Base in cell units, each in [0.5, 1.5)
	W    [3]Vec2 // W[k][axis] is the weight of tap k along axis
}

// QuadraticWeights returns the three B-spline taps for an offset fx in [0.5, 1.5).
// They sum to 1.
func QuadraticWeights(fx float64) [3]float64 {
	return [3]float64{
		0.5 * (1.5 - fx) * (1.5 - fx),
		0.75 - (fx-1.0)*(fx-1.0),
		0.5 * (fx - 0.5) * (fx - 0.5),
	}
}

// NewStencil locates x on a grid with inverse spacing invDx. The base index
// uses floor, not truncation, so positions left of the origin still land in
// the right cell.
func NewStencil(x Vec2, invDx float64) Stencil {
	var s Stencil
	for a := 0; a < 2; a++ {
		xs := x[a] * invDx
		b := math.Floor(xs - 0.5)
		s.Base[a] = int(b)
		s.Fx[a] = xs - b

		w := QuadraticWeights(s.Fx[a])
		s.W[0][a] = w[0]
		s.W[1][a] = w[1]
		s.W[2][a] = w[2]
	}
	return s
}

// Weight returns the tensor-product weight of offset (i, j).
func (s *Stencil) Weight(i, j int) float64 {
	return s.W[i][0] * s.W[j][1]
}

// DPos returns the vector from the particle to node Base+(i, j) in world units.
func (s *Stencil) DPos(i, j int, dx float64) Vec2 {
	return Vec2{(float64(i) - s.Fx[0]) * dx, (float64(j) - s.Fx[1]) * dx}
}

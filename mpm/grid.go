package mpm

// Grid is an N x N lattice of nodes with spacing Dx = 1/N. Node fields are
// flat arrays indexed by Index(i, j) where i is the column (x) and j the row (y).
// Contents are only meaningful between a ClearGrid and the next one.
type Grid struct {
	N     int
	Dx    float64
	InvDx float64

	VX []float64 // Momentum during P2G, velocity after GridUpdate
	VY []float64
	M  []float64 // Mass, always >= 0
}

// NewGrid allocates an n x n grid.
func NewGrid(n int) *Grid {
	size := n * n
	return &Grid{
		N:     n,
		Dx:    1.0 / float64(n),
		InvDx: float64(n),
		VX:    make([]float64, size),
		VY:    make([]float64, size),
		M:     make([]float64, size),
	}
}

// Index returns the flat array index of node (i, j).
func (g *Grid) Index(i, j int) int {
	return i*g.N + j
}

// Coords is the inverse of Index.
func (g *Grid) Coords(idx int) (i, j int) {
	return idx / g.N, idx % g.N
}

// Nodes returns the total node count.
func (g *Grid) Nodes() int {
	return len(g.M)
}

// Node returns the velocity and mass of node (i, j).
func (g *Grid) Node(i, j int) (Vec2, float64) {
	idx := g.Index(i, j)
	return Vec2{g.VX[idx], g.VY[idx]}, g.M[idx]
}

// TotalMass sums the mass of all nodes.
func (g *Grid) TotalMass() float64 {
	var sum float64
	for _, m := range g.M {
		sum += m
	}
	return sum
}

// inStencil reports whether a 3x3 stencil anchored at base fits the lattice.
func (g *Grid) inStencil(base [2]int) bool {
	return base[0] >= 0 && base[1] >= 0 && base[0]+2 < g.N && base[1]+2 < g.N
}

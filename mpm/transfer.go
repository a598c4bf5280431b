package mpm

import "github.com/pthm-cable/snowmpm/engine"

// stressScale is the fixed multiplier of the pressure term.
const stressScale = 4.0

// ClearGrid zeroes mass and velocity on every node.
func (s *Simulation) ClearGrid() {
	s.startPhase(PhaseClear)
	g := s.grid
	s.exec.ParallelFor(g.Nodes(), func(lo, hi int) {
		clear(g.VX[lo:hi])
		clear(g.VY[lo:hi])
		clear(g.M[lo:hi])
	})
}

// ParticleToGrid scatters particle mass and momentum onto the 3x3 node
// neighbourhood of each particle. Writes to shared nodes go through atomic adds.
func (s *Simulation) ParticleToGrid() error {
	s.startPhase(PhaseP2G)
	s.resetEscape()

	g := s.grid
	ps := s.particles
	p := s.params
	n := g.N

	s.exec.ParallelFor(ps.Len(), func(lo, hi int) {
		for i := lo; i < hi; i++ {
			st := NewStencil(ps.X[i], g.InvDx)
			if !g.inStencil(st.Base) {
				s.markEscaped(i)
				continue
			}

			stress := p.DT * p.PVol * (ps.J[i] - 1.0) * stressScale
			v := ps.V[i]

			for di := 0; di < 3; di++ {
				for dj := 0; dj < 3; dj++ {
					weight := st.Weight(di, dj)
					dpos := st.DPos(di, dj, g.Dx)
					mw := p.PMass * weight
					sw := stress * weight

					idx := (st.Base[0]+di)*n + st.Base[1] + dj
					engine.AtomicAddFloat64(&g.VX[idx], mw*v[0]+sw*dpos[0])
					engine.AtomicAddFloat64(&g.VY[idx], mw*v[1]+sw*dpos[1])
					engine.AtomicAddFloat64(&g.M[idx], mw)
				}
			}
		}
	})

	return s.escapeError(PhaseP2G)
}

// GridUpdate converts momentum to velocity, applies gravity and the floor
// boundary. Empty nodes are skipped.
func (s *Simulation) GridUpdate() {
	s.startPhase(PhaseGridUpdate)

	g := s.grid
	dtg := s.params.DT * s.params.Gravity
	floor := s.params.FloorRows

	s.exec.ParallelFor(g.Nodes(), func(lo, hi int) {
		for idx := lo; idx < hi; idx++ {
			m := g.M[idx]
			if m <= 0 {
				continue
			}
			invM := 1.0 / m
			g.VX[idx] *= invM
			vy := g.VY[idx]*invM - dtg

			// Floor: no downward motion in the bottom rows
			if idx%g.N < floor && vy < 0 {
				vy = 0
			}
			g.VY[idx] = vy
		}
	})
}

// GridToParticle gathers node velocities back to particles, rebuilds the
// affine matrix, advects positions and updates the volume ratio.
func (s *Simulation) GridToParticle() error {
	s.startPhase(PhaseG2P)
	s.resetEscape()

	g := s.grid
	ps := s.particles
	dt := s.params.DT
	n := g.N
	cScale := 4.0 * g.InvDx

	s.exec.ParallelFor(ps.Len(), func(lo, hi int) {
		for i := lo; i < hi; i++ {
			st := NewStencil(ps.X[i], g.InvDx)
			if !g.inStencil(st.Base) {
				s.markEscaped(i)
				continue
			}

			var newV Vec2
			var newC Mat2
			for di := 0; di < 3; di++ {
				for dj := 0; dj < 3; dj++ {
					idx := (st.Base[0]+di)*n + st.Base[1] + dj
					gv := Vec2{g.VX[idx], g.VY[idx]}
					weight := st.Weight(di, dj)
					dpos := st.DPos(di, dj, g.Dx)

					newV = newV.Add(gv.Scale(weight))
					newC = newC.Add(Outer(gv, dpos).Scale(cScale * weight))
				}
			}

			ps.V[i] = newV
			ps.C[i] = newC
			ps.X[i] = ps.X[i].Add(newV.Scale(dt))
			ps.J[i] *= 1.0 - dt*newC.Trace()
		}
	})

	return s.escapeError(PhaseG2P)
}

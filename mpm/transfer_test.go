package mpm

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pthm-cable/snowmpm/engine"
)

func testParams() Params {
	return Params{
		NGrid:     32,
		DT:        1e-3,
		PMass:     1.0,
		PVol:      1.0,
		E:         1e3,
		Gravity:   9.8,
		FloorRows: 5,
	}
}

func newTestSim(t *testing.T, p Params, ps *ParticleSet, exec engine.Executor) *Simulation {
	t.Helper()
	sim, err := New(p, ps, exec)
	require.NoError(t, err)
	return sim
}

func sampleTestParticles(t *testing.T, n int, seed int64, region Region, v0 Vec2) *ParticleSet {
	t.Helper()
	ps, err := SampleBox(region, n, rand.New(rand.NewSource(seed)), v0, 1.0)
	require.NoError(t, err)
	return ps
}

func TestClearGridZeroesEveryNode(t *testing.T) {
	ps := sampleTestParticles(t, 200, 1, Region{0.3, 0.7, 0.3, 0.7}, Vec2{0, -1})
	sim := newTestSim(t, testParams(), ps, engine.Serial)

	g := sim.Grid()
	for i := range g.M {
		g.M[i] = float64(i) + 1
		g.VX[i] = -3
		g.VY[i] = 5
	}

	sim.ClearGrid()
	for i := range g.M {
		require.Zero(t, g.M[i], "mass at %d", i)
		require.Zero(t, g.VX[i], "vx at %d", i)
		require.Zero(t, g.VY[i], "vy at %d", i)
	}
}

func TestP2GConservesMass(t *testing.T) {
	const n = 1000
	p := testParams()
	p.PMass = 0.25
	ps := sampleTestParticles(t, n, 7, Region{0.2, 0.8, 0.2, 0.8}, Vec2{0, -1})
	sim := newTestSim(t, p, ps, engine.Serial)

	sim.ClearGrid()
	require.NoError(t, sim.ParticleToGrid())

	assert.InDelta(t, float64(n)*p.PMass, sim.Grid().TotalMass(), 1e-9)
	for _, m := range sim.Grid().M {
		require.GreaterOrEqual(t, m, 0.0)
	}
}

func TestP2GConservesMomentumWithStress(t *testing.T) {
	// The stress term is weighted by w * dpos, whose stencil sum is zero, so
	// grid momentum equals particle momentum even with J != 1.
	ps := sampleTestParticles(t, 300, 11, Region{0.3, 0.6, 0.3, 0.6}, Vec2{0.4, -0.2})
	rng := rand.New(rand.NewSource(5))
	for i := range ps.J {
		ps.J[i] = 0.8 + 0.4*rng.Float64()
	}

	p := testParams()
	sim := newTestSim(t, p, ps, engine.Serial)
	sim.ClearGrid()
	require.NoError(t, sim.ParticleToGrid())

	var px, py float64
	for i := 0; i < ps.Len(); i++ {
		px += p.PMass * ps.V[i][0]
		py += p.PMass * ps.V[i][1]
	}

	var gx, gy float64
	g := sim.Grid()
	for i := range g.M {
		gx += g.VX[i]
		gy += g.VY[i]
	}
	assert.InDelta(t, px, gx, 1e-9)
	assert.InDelta(t, py, gy, 1e-9)
}

func TestGridUpdateFloorBoundary(t *testing.T) {
	p := testParams()
	ps := sampleTestParticles(t, 800, 13, Region{0.1, 0.9, 0.03, 0.25}, Vec2{0.3, -2})
	sim := newTestSim(t, p, ps, engine.Serial)

	sim.ClearGrid()
	require.NoError(t, sim.ParticleToGrid())
	sim.GridUpdate()

	g := sim.Grid()
	checked := 0
	for i := 0; i < g.N; i++ {
		for j := 0; j < p.FloorRows; j++ {
			v, m := g.Node(i, j)
			assert.GreaterOrEqualf(t, v[1], 0.0, "node (%d,%d) v.y=%v", i, j, v[1])
			if m > 0 {
				checked++
			}
		}
	}
	assert.Positive(t, checked, "test should exercise occupied floor nodes")

	// Above the floor the downward motion survives.
	var above int
	for i := 0; i < g.N; i++ {
		v, m := g.Node(i, p.FloorRows+1)
		if m > 0 && v[1] < 0 {
			above++
		}
	}
	assert.Positive(t, above)
}

func TestGridUpdateSkipsEmptyNodes(t *testing.T) {
	ps := NewParticleSet(1)
	ps.X[0] = Vec2{0.5, 0.5}
	ps.J[0] = 1
	sim := newTestSim(t, testParams(), ps, engine.Serial)

	sim.ClearGrid()
	require.NoError(t, sim.ParticleToGrid())

	g := sim.Grid()
	far := g.Index(2, 28)
	require.Zero(t, g.M[far])
	g.VX[far] = 7
	g.VY[far] = 7

	sim.GridUpdate()
	assert.Equal(t, 7.0, g.VX[far], "empty node must be left untouched")
	assert.Equal(t, 7.0, g.VY[far])
	for i := range g.VX {
		require.False(t, g.VX[i] != g.VX[i], "NaN at node %d", i)
	}
}

func TestGridUpdateNormalizesAndAppliesGravity(t *testing.T) {
	p := testParams()
	ps := NewParticleSet(1)
	ps.X[0] = Vec2{0.5, 0.5}
	ps.V[0] = Vec2{0.2, 0.1}
	ps.J[0] = 1
	sim := newTestSim(t, p, ps, engine.Serial)

	sim.ClearGrid()
	require.NoError(t, sim.ParticleToGrid())
	sim.GridUpdate()

	v, m := sim.Grid().Node(16, 16)
	require.Positive(t, m)
	assert.InDelta(t, 0.2, v[0], 1e-12)
	assert.InDelta(t, 0.1-p.DT*p.Gravity, v[1], 1e-12)
}

func TestSubstepZeroMotionFixedPoint(t *testing.T) {
	p := testParams()
	p.Gravity = 0
	ps := NewParticleSet(1)
	ps.X[0] = Vec2{0.5, 0.5}
	ps.J[0] = 1

	sim := newTestSim(t, p, ps, engine.Serial)
	require.NoError(t, sim.Substep())

	assert.InDelta(t, 0, ps.V[0][0], 1e-12)
	assert.InDelta(t, 0, ps.V[0][1], 1e-12)
	assert.Equal(t, 1.0, ps.J[0])
	assert.Equal(t, Vec2{0.5, 0.5}, ps.X[0])
	assert.Equal(t, Mat2{}, ps.C[0])
}

func TestSubstepRestingParticleFallsUnderGravity(t *testing.T) {
	p := testParams()
	ps := NewParticleSet(1)
	ps.X[0] = Vec2{0.5, 0.5}
	ps.J[0] = 1

	sim := newTestSim(t, p, ps, engine.Serial)
	require.NoError(t, sim.Substep())

	// Partition of unity carries the uniform grid velocity back unchanged.
	assert.InDelta(t, 0, ps.V[0][0], 1e-12)
	assert.InDelta(t, -p.DT*p.Gravity, ps.V[0][1], 1e-12)
	assert.InDelta(t, 1.0, ps.J[0], 1e-9)
	assert.InDelta(t, 0.5-p.DT*p.DT*p.Gravity, ps.X[0][1], 1e-12)
	assert.Equal(t, int64(1), sim.Substeps())
	assert.InDelta(t, p.DT, sim.Time(), 1e-15)
}

func TestSubstepPreservesUniformTranslation(t *testing.T) {
	p := testParams()
	p.Gravity = 0
	v0 := Vec2{0.3, 0.1}
	ps := sampleTestParticles(t, 500, 17, Region{0.3, 0.6, 0.3, 0.6}, v0)
	sim := newTestSim(t, p, ps, engine.Serial)

	for s := 0; s < 5; s++ {
		require.NoError(t, sim.Substep())
	}
	for i := 0; i < ps.Len(); i++ {
		require.InDelta(t, v0[0], ps.V[i][0], 1e-9)
		require.InDelta(t, v0[1], ps.V[i][1], 1e-9)
		require.InDelta(t, 0, ps.C[i].Trace(), 1e-6)
		require.InDelta(t, 1.0, ps.J[i], 1e-9)
	}
}

func TestParallelMatchesSerial(t *testing.T) {
	region := Region{0.2, 0.6, 0.2, 0.6}
	serialPS := sampleTestParticles(t, 2048, 42, region, Vec2{0, -1})
	parallelPS := serialPS.Clone()

	pool := engine.New(4)
	pool.SetThreshold(0)
	defer pool.Close()

	serialSim := newTestSim(t, testParams(), serialPS, engine.Serial)
	parallelSim := newTestSim(t, testParams(), parallelPS, pool)

	for s := 0; s < 20; s++ {
		require.NoError(t, serialSim.Substep())
		require.NoError(t, parallelSim.Substep())
	}

	for i := 0; i < serialPS.Len(); i++ {
		require.InDelta(t, serialPS.X[i][0], parallelPS.X[i][0], 1e-9)
		require.InDelta(t, serialPS.X[i][1], parallelPS.X[i][1], 1e-9)
		require.InDelta(t, serialPS.J[i], parallelPS.J[i], 1e-9)
	}
}

func TestSerialRunsAreBitwiseDeterministic(t *testing.T) {
	run := func() *ParticleSet {
		ps := sampleTestParticles(t, 512, 99, Region{0.2, 0.6, 0.2, 0.6}, Vec2{0, -1})
		sim := newTestSim(t, testParams(), ps, engine.Serial)
		for s := 0; s < 30; s++ {
			require.NoError(t, sim.Substep())
		}
		return ps
	}

	a, b := run(), run()
	assert.Equal(t, a.X, b.X)
	assert.Equal(t, a.V, b.V)
	assert.Equal(t, a.J, b.J)
}

func TestOutOfBoundsAbortsSubstep(t *testing.T) {
	tests := []struct {
		name string
		x    Vec2
	}{
		{"left edge", Vec2{0.001, 0.5}},
		{"right edge", Vec2{0.99, 0.5}},
		{"below grid", Vec2{0.5, -0.2}},
		{"above grid", Vec2{0.5, 1.3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ps := NewParticleSet(3)
			for i := range ps.X {
				ps.X[i] = Vec2{0.5, 0.5}
				ps.J[i] = 1
			}
			ps.X[2] = tt.x
			ps.X[1] = tt.x

			sim := newTestSim(t, testParams(), ps, engine.Serial)
			err := sim.Substep()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrOutOfBounds))

			var oob *OutOfBoundsError
			require.True(t, errors.As(err, &oob))
			assert.Equal(t, 1, oob.Particle, "lowest escaped index is reported")
			assert.Equal(t, PhaseP2G, oob.Stage)
			assert.Equal(t, int64(0), sim.Substeps())
		})
	}
}

type recordingTimer struct {
	phases []string
}

func (r *recordingTimer) StartPhase(name string) {
	r.phases = append(r.phases, name)
}

func TestSubstepStageOrder(t *testing.T) {
	ps := sampleTestParticles(t, 10, 1, Region{0.4, 0.6, 0.4, 0.6}, Vec2{0, -1})
	timer := &recordingTimer{}
	sim, err := New(testParams(), ps, engine.Serial, WithPhaseTimer(timer))
	require.NoError(t, err)

	require.NoError(t, sim.Substep())
	require.NoError(t, sim.Substep())
	want := []string{PhaseClear, PhaseP2G, PhaseGridUpdate, PhaseG2P, PhaseClear, PhaseP2G, PhaseGridUpdate, PhaseG2P}
	assert.Equal(t, want, timer.phases)
}

func TestNewRejectsInvalidParams(t *testing.T) {
	ps := NewParticleSet(1)
	tests := []struct {
		name   string
		mutate func(p *Params)
	}{
		{"zero grid", func(p *Params) { p.NGrid = 0 }},
		{"zero dt", func(p *Params) { p.DT = 0 }},
		{"negative dt", func(p *Params) { p.DT = -1 }},
		{"zero mass", func(p *Params) { p.PMass = 0 }},
		{"zero volume", func(p *Params) { p.PVol = 0 }},
		{"negative floor", func(p *Params) { p.FloorRows = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := testParams()
			tt.mutate(&p)
			_, err := New(p, ps, engine.Serial)
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}

	_, err := New(testParams(), NewParticleSet(0), engine.Serial)
	assert.ErrorIs(t, err, ErrInvalidConfig)
	_, err = New(testParams(), nil, nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

package telemetry

import (
	"math"
	"testing"

	"github.com/pthm-cable/snowmpm/engine"
	"github.com/pthm-cable/snowmpm/mpm"
)

func TestComputeDistribution(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		want   Distribution
	}{
		{"empty slice", nil, Distribution{}},
		{"single element", []float64{5}, Distribution{Mean: 5, P10: 5, P50: 5, P90: 5, Min: 5, Max: 5}},
		{
			"one to ten",
			[]float64{10, 9, 8, 7, 6, 5, 4, 3, 2, 1},
			Distribution{Mean: 5.5, Std: 3.0276503540974917, P10: 1, P50: 5, P90: 9, Min: 1, Max: 10},
		},
		{
			"constant",
			[]float64{2, 2, 2, 2},
			Distribution{Mean: 2, Std: 0, P10: 2, P50: 2, P90: 2, Min: 2, Max: 2},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeDistribution(tt.values)
			check := func(field string, got, want float64) {
				if math.Abs(got-want) > 1e-9 {
					t.Errorf("%s = %v, want %v", field, got, want)
				}
			}
			check("mean", got.Mean, tt.want.Mean)
			check("std", got.Std, tt.want.Std)
			check("p10", got.P10, tt.want.P10)
			check("p50", got.P50, tt.want.P50)
			check("p90", got.P90, tt.want.P90)
			check("min", got.Min, tt.want.Min)
			check("max", got.Max, tt.want.Max)
		})
	}
}

func TestComputeDistributionDoesNotReorderInput(t *testing.T) {
	values := []float64{3, 1, 2}
	ComputeDistribution(values)
	if values[0] != 3 || values[1] != 1 || values[2] != 2 {
		t.Errorf("input was modified: %v", values)
	}
}

func newStatsSim(t *testing.T) *mpm.Simulation {
	t.Helper()
	ps := mpm.NewParticleSet(3)
	ps.X[0] = mpm.Vec2{0.4, 0.5}
	ps.X[1] = mpm.Vec2{0.5, 0.5}
	ps.X[2] = mpm.Vec2{0.6, 0.7}
	ps.V[0] = mpm.Vec2{1, 0}
	ps.V[1] = mpm.Vec2{0, -2}
	ps.V[2] = mpm.Vec2{0, 0}
	ps.J[0], ps.J[1], ps.J[2] = 0.9, 1.0, 1.1

	params := mpm.Params{NGrid: 32, DT: 1e-4, PMass: 2, PVol: 1, E: 1000, Gravity: 0, FloorRows: 3}
	sim, err := mpm.New(params, ps, engine.Serial)
	if err != nil {
		t.Fatalf("mpm.New failed: %v", err)
	}
	return sim
}

func TestComputeFrameStats(t *testing.T) {
	sim := newStatsSim(t)
	s := ComputeFrameStats(4, sim)

	if s.Frame != 4 || s.Particles != 3 || s.Substeps != 0 {
		t.Errorf("unexpected header fields: %+v", s)
	}
	if s.ParticleMass != 6 {
		t.Errorf("particle mass = %v, want 6", s.ParticleMass)
	}
	if s.GridMass != 0 {
		t.Errorf("grid mass before any substep = %v, want 0", s.GridMass)
	}
	// 0.5*2*1 + 0.5*2*4
	if math.Abs(s.KineticEnergy-5) > 1e-12 {
		t.Errorf("kinetic energy = %v, want 5", s.KineticEnergy)
	}
	if s.MomentumX != 2 || s.MomentumY != -4 {
		t.Errorf("momentum = (%v, %v), want (2, -4)", s.MomentumX, s.MomentumY)
	}
	if s.SpeedMax != 2 || math.Abs(s.SpeedMean-1) > 1e-12 {
		t.Errorf("speed max/mean = %v/%v, want 2/1", s.SpeedMax, s.SpeedMean)
	}
	if math.Abs(s.JMean-1) > 1e-12 || s.JP50 != 1.0 {
		t.Errorf("J mean/p50 = %v/%v, want 1/1", s.JMean, s.JP50)
	}
	if s.YMin != 0.5 || s.YMax != 0.7 {
		t.Errorf("y extent = [%v, %v], want [0.5, 0.7]", s.YMin, s.YMax)
	}
}

func TestComputeFrameStatsGridMassAfterSubstep(t *testing.T) {
	sim := newStatsSim(t)
	if err := sim.Substep(); err != nil {
		t.Fatalf("Substep failed: %v", err)
	}

	s := ComputeFrameStats(1, sim)
	if math.Abs(s.GridMass-s.ParticleMass) > 1e-9 {
		t.Errorf("grid mass %v != particle mass %v", s.GridMass, s.ParticleMass)
	}
	if math.Abs(s.SimTime-1e-4) > 1e-15 || s.Substeps != 1 {
		t.Errorf("sim time/substeps = %v/%d", s.SimTime, s.Substeps)
	}
}

package telemetry

import (
	"log/slog"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/pthm-cable/snowmpm/mpm"
)

// FrameStats holds physical diagnostics sampled at a frame boundary.
type FrameStats struct {
	Frame    int     `csv:"frame"`
	SimTime  float64 `csv:"sim_time"`
	Substeps int64   `csv:"substeps"`

	Particles int `csv:"particles"`

	// Mass on the grid after the last substep vs. carried by particles
	GridMass     float64 `csv:"grid_mass"`
	ParticleMass float64 `csv:"particle_mass"`

	// Motion
	KineticEnergy float64 `csv:"kinetic_energy"`
	MomentumX     float64 `csv:"momentum_x"`
	MomentumY     float64 `csv:"momentum_y"`
	SpeedMean     float64 `csv:"speed_mean"`
	SpeedMax      float64 `csv:"speed_max"`

	// Volume ratio distribution
	JMean float64 `csv:"j_mean"`
	JStd  float64 `csv:"j_std"`
	JP10  float64 `csv:"j_p10"`
	JP50  float64 `csv:"j_p50"`
	JP90  float64 `csv:"j_p90"`

	// Vertical extent of the material
	YMin  float64 `csv:"y_min"`
	YMean float64 `csv:"y_mean"`
	YMax  float64 `csv:"y_max"`
}

// Distribution summarizes a sample.
type Distribution struct {
	Mean, Std     float64
	P10, P50, P90 float64
	Min, Max      float64
}

// ComputeDistribution calculates mean, std, extrema and percentiles of values.
// Returns the zero Distribution for an empty slice.
func ComputeDistribution(values []float64) Distribution {
	if len(values) == 0 {
		return Distribution{}
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	var d Distribution
	if len(sorted) == 1 {
		d.Mean = sorted[0]
	} else {
		d.Mean, d.Std = stat.MeanStdDev(sorted, nil)
	}
	d.P10 = stat.Quantile(0.10, stat.Empirical, sorted, nil)
	d.P50 = stat.Quantile(0.50, stat.Empirical, sorted, nil)
	d.P90 = stat.Quantile(0.90, stat.Empirical, sorted, nil)
	d.Min = sorted[0]
	d.Max = sorted[len(sorted)-1]
	return d
}

// ComputeFrameStats samples the simulation state after frame completed.
func ComputeFrameStats(frame int, sim *mpm.Simulation) FrameStats {
	ps := sim.Particles()
	params := sim.Params()
	n := ps.Len()

	speeds := make([]float64, n)
	ys := make([]float64, n)
	var ke, mx, my float64
	for i := 0; i < n; i++ {
		v := ps.V[i]
		speed2 := v.Dot(v)
		speeds[i] = math.Sqrt(speed2)
		ys[i] = ps.X[i][1]
		ke += 0.5 * params.PMass * speed2
		mx += params.PMass * v[0]
		my += params.PMass * v[1]
	}

	js := ComputeDistribution(ps.J)
	sp := ComputeDistribution(speeds)
	y := ComputeDistribution(ys)

	return FrameStats{
		Frame:         frame,
		SimTime:       sim.Time(),
		Substeps:      sim.Substeps(),
		Particles:     n,
		GridMass:      floats.Sum(sim.Grid().M),
		ParticleMass:  float64(n) * params.PMass,
		KineticEnergy: ke,
		MomentumX:     mx,
		MomentumY:     my,
		SpeedMean:     sp.Mean,
		SpeedMax:      sp.Max,
		JMean:         js.Mean,
		JStd:          js.Std,
		JP10:          js.P10,
		JP50:          js.P50,
		JP90:          js.P90,
		YMin:          y.Min,
		YMean:         y.Mean,
		YMax:          y.Max,
	}
}

// LogValue implements slog.LogValuer for structured logging.
func (s FrameStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("frame", s.Frame),
		slog.Float64("sim_time", s.SimTime),
		slog.Int64("substeps", s.Substeps),
		slog.Int("particles", s.Particles),
		slog.Float64("grid_mass", s.GridMass),
		slog.Float64("kinetic_energy", s.KineticEnergy),
		slog.Float64("momentum_y", s.MomentumY),
		slog.Float64("speed_max", s.SpeedMax),
		slog.Float64("j_mean", s.JMean),
		slog.Float64("j_p10", s.JP10),
		slog.Float64("j_p90", s.JP90),
		slog.Float64("y_min", s.YMin),
		slog.Float64("y_max", s.YMax),
	)
}

// LogStats logs the frame stats using slog.
func (s FrameStats) LogStats() {
	slog.Info("stats", "frame_stats", s)
}

package mpm

import (
	"fmt"
	"math"
	"sync/atomic"

	"github.com/pthm-cable/snowmpm/engine"
)

// Phase names reported to a PhaseTimer.
const (
	PhaseClear      = "clear"
	PhaseP2G        = "p2g"
	PhaseGridUpdate = "grid_update"
	PhaseG2P        = "g2p"
)

// Params are the fixed physical and discretization constants of a run.
type Params struct {
	NGrid     int
	DT        float64
	PMass     float64
	PVol      float64
	E         float64 // Elastic modulus. Carried for reference; the pressure term uses a fixed 4.0.
	Gravity   float64
	FloorRows int // Rows j < FloorRows cannot move downward
}

// Validate reports parameters that make a substep meaningless.
func (p Params) Validate() error {
	switch {
	case p.NGrid <= 0:
		return fmt.Errorf("%w: n_grid must be positive, got %d", ErrInvalidConfig, p.NGrid)
	case p.DT <= 0 || math.IsNaN(p.DT):
		return fmt.Errorf("%w: dt must be positive, got %g", ErrInvalidConfig, p.DT)
	case p.PMass <= 0:
		return fmt.Errorf("%w: p_mass must be positive, got %g", ErrInvalidConfig, p.PMass)
	case p.PVol <= 0:
		return fmt.Errorf("%w: p_vol must be positive, got %g", ErrInvalidConfig, p.PVol)
	case p.FloorRows < 0:
		return fmt.Errorf("%w: floor_rows must not be negative, got %d", ErrInvalidConfig, p.FloorRows)
	}
	return nil
}

// PhaseTimer receives a call at the start of each stage.
type PhaseTimer interface {
	StartPhase(name string)
}

// Option configures a Simulation.
type Option func(*Simulation)

// WithPhaseTimer reports stage boundaries to t.
func WithPhaseTimer(t PhaseTimer) Option {
	return func(s *Simulation) {
		s.timer = t
	}
}

// WithSubsteps starts the substep counter at n, for runs resumed from a
// snapshot.
func WithSubsteps(n int64) Option {
	return func(s *Simulation) {
		s.substeps = n
	}
}

// Simulation exclusively owns a ParticleSet and a Grid and advances them.
// It is not safe for concurrent use; parallelism happens inside each stage.
type Simulation struct {
	params    Params
	particles *ParticleSet
	grid      *Grid
	exec      engine.Executor
	timer     PhaseTimer

	substeps int64

	// Lowest particle index whose stencil left the grid in the current stage,
	// or particles.Len() when none did.
	escaped atomic.Int64
}

// New creates a simulation over particles. The set is owned by the
// simulation from here on.
func New(params Params, particles *ParticleSet, exec engine.Executor, opts ...Option) (*Simulation, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if particles == nil || particles.Len() == 0 {
		return nil, fmt.Errorf("%w: n_particles must be positive", ErrInvalidConfig)
	}
	if exec == nil {
		exec = engine.Serial
	}

	s := &Simulation{
		params:    params,
		particles: particles,
		grid:      NewGrid(params.NGrid),
		exec:      exec,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Params returns the run constants.
func (s *Simulation) Params() Params { return s.params }

// Particles returns the owned particle set.
func (s *Simulation) Particles() *ParticleSet { return s.particles }

// Grid returns the owned grid. Its contents are only valid within a substep
// or directly after one.
func (s *Simulation) Grid() *Grid { return s.grid }

// Substeps returns the number of completed substeps.
func (s *Simulation) Substeps() int64 { return s.substeps }

// Time returns the simulated time in seconds.
func (s *Simulation) Time() float64 { return float64(s.substeps) * s.params.DT }

// Substep runs ClearGrid, ParticleToGrid, GridUpdate and GridToParticle in
// that order. Each stage finishes completely before the next starts.
func (s *Simulation) Substep() error {
	s.ClearGrid()
	if err := s.ParticleToGrid(); err != nil {
		return err
	}
	s.GridUpdate()
	if err := s.GridToParticle(); err != nil {
		return err
	}
	s.substeps++
	return nil
}

func (s *Simulation) startPhase(name string) {
	if s.timer != nil {
		s.timer.StartPhase(name)
	}
}

func (s *Simulation) resetEscape() {
	s.escaped.Store(int64(s.particles.Len()))
}

// markEscaped records p if it is lower than the current minimum.
func (s *Simulation) markEscaped(p int) {
	for {
		cur := s.escaped.Load()
		if int64(p) >= cur {
			return
		}
		if s.escaped.CompareAndSwap(cur, int64(p)) {
			return
		}
	}
}

func (s *Simulation) escapeError(stage string) error {
	p := int(s.escaped.Load())
	if p >= s.particles.Len() {
		return nil
	}
	return &OutOfBoundsError{Stage: stage, Particle: p, X: s.particles.X[p]}
}

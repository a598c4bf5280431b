// Package driver runs the per-frame time-stepping loop over an mpm.Simulation
// and hands finished frames to visualization and telemetry consumers.
package driver

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"

	"github.com/pthm-cable/snowmpm/config"
	"github.com/pthm-cable/snowmpm/engine"
	"github.com/pthm-cable/snowmpm/mpm"
)

// Frame is the state handed to viewers after a frame's substeps finish.
type Frame struct {
	Index     int // Frames completed so far; 0 for the initial state
	SimTime   float64
	Substeps  int64
	Positions []mpm.Vec2 // Copy owned by the receiver
}

// FrameObserver is called synchronously on the driver goroutine after every
// frame. sim must not be retained past the call.
type FrameObserver interface {
	ObserveFrame(f Frame, sim *mpm.Simulation)
}

// FrameObserverFunc adapts a function to FrameObserver.
type FrameObserverFunc func(f Frame, sim *mpm.Simulation)

func (fn FrameObserverFunc) ObserveFrame(f Frame, sim *mpm.Simulation) { fn(f, sim) }

// Timer brackets every substep and receives stage boundaries from the
// simulation.
type Timer interface {
	mpm.PhaseTimer
	StartSubstep()
	EndSubstep()
}

// Checkpoint is the state needed to resume a run.
type Checkpoint struct {
	Seed      int64
	Frame     int
	Substeps  int64
	NGrid     int
	Particles *mpm.ParticleSet
}

// Option configures a Driver.
type Option func(*Driver)

// WithExecutor runs stages on exec instead of a pool sized from the config.
// The driver does not close a supplied executor.
func WithExecutor(exec engine.Executor) Option {
	return func(d *Driver) {
		d.exec = exec
	}
}

// WithTimer reports substep and stage timing to t.
func WithTimer(t Timer) Option {
	return func(d *Driver) {
		d.timer = t
	}
}

// WithObserver adds a synchronous frame observer. Observers run in the order
// they were added.
func WithObserver(obs FrameObserver) Option {
	return func(d *Driver) {
		d.observers = append(d.observers, obs)
	}
}

// Driver owns the simulation lifecycle:
// Idle -> Initialized -> Running -> FrameComplete -> ... -> Stopped.
type Driver struct {
	cfg       *config.Config
	exec      engine.Executor
	pool      *engine.Pool // non-nil when the driver created exec
	timer     Timer
	observers []FrameObserver

	mu    sync.Mutex // guards state, frame, last
	state State
	frame int
	last  Frame

	sim    *mpm.Simulation
	seed   int64
	frames chan Frame
}

// New creates an idle driver for cfg.
func New(cfg *config.Config, opts ...Option) *Driver {
	d := &Driver{
		cfg:    cfg,
		frames: make(chan Frame, 1),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Params converts the configuration into simulation constants.
func Params(cfg *config.Config) mpm.Params {
	return mpm.Params{
		NGrid:     cfg.Simulation.NGrid,
		DT:        cfg.Simulation.DT,
		PMass:     cfg.Material.PMass,
		PVol:      cfg.Material.PVol,
		E:         cfg.Material.E,
		Gravity:   cfg.Physics.Gravity,
		FloorRows: cfg.Physics.FloorRows,
	}
}

// Initialize samples a fresh particle set from seed and builds the
// simulation. It may be called again from any state except Running to reset
// the run.
func (d *Driver) Initialize(seed int64) error {
	if err := d.checkNotRunning("initialize"); err != nil {
		return err
	}
	if err := d.cfg.Recompute(); err != nil {
		return err
	}

	in := d.cfg.Init
	region := mpm.Region{X0: in.Region.X0, X1: in.Region.X1, Y0: in.Region.Y0, Y1: in.Region.Y1}
	rng := rand.New(rand.NewSource(seed))
	particles, err := mpm.SampleBox(region, d.cfg.Simulation.NParticles, rng, mpm.Vec2(in.Velocity), in.J)
	if err != nil {
		return fmt.Errorf("sampling particles: %w", err)
	}

	if err := d.build(particles, 0); err != nil {
		return err
	}
	d.seed = seed
	d.setInitialized(0)

	slog.Info("driver initialized",
		"seed", seed,
		"particles", particles.Len(),
		"n_grid", d.cfg.Simulation.NGrid,
		"frames", d.cfg.Simulation.Frames,
		"substeps_per_frame", d.cfg.Simulation.SubstepsPerFrame,
	)
	return nil
}

// InitializeFrom resumes from a checkpoint. The frame budget still counts
// from frame zero, so a resumed run stops where the original would have.
func (d *Driver) InitializeFrom(cp Checkpoint) error {
	if err := d.checkNotRunning("initialize"); err != nil {
		return err
	}
	if err := d.cfg.Recompute(); err != nil {
		return err
	}
	if cp.Particles == nil || cp.Particles.Len() == 0 {
		return fmt.Errorf("%w: checkpoint has no particles", mpm.ErrInvalidConfig)
	}
	if cp.NGrid != d.cfg.Simulation.NGrid {
		return fmt.Errorf("%w: checkpoint n_grid %d does not match configured %d",
			mpm.ErrInvalidConfig, cp.NGrid, d.cfg.Simulation.NGrid)
	}
	if cp.Frame < 0 || cp.Substeps < 0 {
		return fmt.Errorf("%w: checkpoint frame %d substeps %d", mpm.ErrInvalidConfig, cp.Frame, cp.Substeps)
	}

	if err := d.build(cp.Particles.Clone(), cp.Substeps); err != nil {
		return err
	}
	d.seed = cp.Seed
	d.setInitialized(cp.Frame)

	slog.Info("driver resumed",
		"seed", cp.Seed,
		"frame", cp.Frame,
		"substeps", cp.Substeps,
		"particles", cp.Particles.Len(),
	)
	return nil
}

func (d *Driver) build(particles *mpm.ParticleSet, substeps int64) error {
	if d.exec == nil {
		d.pool = engine.New(d.cfg.Engine.Workers)
		d.exec = d.pool
	}

	opts := []mpm.Option{mpm.WithSubsteps(substeps)}
	if d.timer != nil {
		opts = append(opts, mpm.WithPhaseTimer(d.timer))
	}
	sim, err := mpm.New(Params(d.cfg), particles, d.exec, opts...)
	if err != nil {
		return err
	}
	d.sim = sim
	return nil
}

func (d *Driver) setInitialized(frame int) {
	f := Frame{
		Index:     frame,
		SimTime:   d.sim.Time(),
		Substeps:  d.sim.Substeps(),
		Positions: d.sim.Particles().Positions(nil),
	}
	d.mu.Lock()
	d.state = Initialized
	d.frame = frame
	d.last = f
	d.mu.Unlock()

	// The initial state replaces any frame left over from a previous run.
	d.offer(f)
}

// Run executes frames until the budget is exhausted, a substep fails, or ctx
// is done. ctx is only checked between frames. On cancellation the driver
// stays in FrameComplete (or Initialized) and Run may be called again.
func (d *Driver) Run(ctx context.Context) error {
	if err := d.checkAdvance("run"); err != nil {
		return err
	}

	for {
		if d.budgetExhausted() {
			d.stop()
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := d.runFrame(); err != nil {
			return err
		}
	}
}

// Step advances exactly one frame.
func (d *Driver) Step() error {
	if err := d.checkAdvance("step"); err != nil {
		return err
	}
	if d.budgetExhausted() {
		d.stop()
		return nil
	}
	if err := d.runFrame(); err != nil {
		return err
	}
	if d.budgetExhausted() {
		d.stop()
	}
	return nil
}

func (d *Driver) runFrame() error {
	d.setState(Running)

	spf := d.cfg.Simulation.SubstepsPerFrame
	for i := 0; i < spf; i++ {
		if d.timer != nil {
			d.timer.StartSubstep()
		}
		err := d.sim.Substep()
		if d.timer != nil {
			d.timer.EndSubstep()
		}
		if err != nil {
			d.stop()
			frame := d.Frame().Index + 1
			slog.Error("substep failed", "frame", frame, "substep", d.sim.Substeps(), "error", err)
			return fmt.Errorf("frame %d: %w", frame, err)
		}
	}

	d.mu.Lock()
	d.frame++
	f := Frame{
		Index:     d.frame,
		SimTime:   d.sim.Time(),
		Substeps:  d.sim.Substeps(),
		Positions: d.sim.Particles().Positions(nil),
	}
	d.last = f
	d.state = FrameComplete
	d.mu.Unlock()

	d.offer(f)
	for _, obs := range d.observers {
		obs.ObserveFrame(f, d.sim)
	}
	return nil
}

// offer hands f to the viewer channel without blocking. An undelivered older
// frame is replaced. The driver is the only sender.
func (d *Driver) offer(f Frame) {
	select {
	case d.frames <- f:
		return
	default:
	}
	select {
	case <-d.frames:
	default:
	}
	select {
	case d.frames <- f:
	default:
	}
}

func (d *Driver) budgetExhausted() bool {
	budget := d.cfg.Simulation.Frames
	if budget == 0 {
		return false
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.frame >= budget
}

func (d *Driver) stop() {
	d.mu.Lock()
	prev := d.state
	d.state = Stopped
	frame := d.frame
	d.mu.Unlock()

	if prev != Stopped {
		slog.Info("driver stopped", "frame", frame)
	}
}

func (d *Driver) setState(s State) {
	d.mu.Lock()
	d.state = s
	d.mu.Unlock()
}

func (d *Driver) checkAdvance(op string) error {
	s := d.State()
	if !s.canAdvance() {
		return fmt.Errorf("%w: %s from %s", ErrInvalidTransition, op, s)
	}
	return nil
}

func (d *Driver) checkNotRunning(op string) error {
	if s := d.State(); s == Running {
		return fmt.Errorf("%w: %s from %s", ErrInvalidTransition, op, s)
	}
	return nil
}

// Frames returns the viewer channel. It holds at most one frame, always the
// newest undelivered one, and is never closed.
func (d *Driver) Frames() <-chan Frame {
	return d.frames
}

// State returns the current lifecycle state.
func (d *Driver) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Frame returns the most recently completed frame, or the initial state
// right after initialization.
func (d *Driver) Frame() Frame {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.last
}

// Seed returns the seed the current run was initialized with.
func (d *Driver) Seed() int64 {
	return d.seed
}

// Simulation returns the current simulation, or nil before initialization.
// It must only be touched from the goroutine driving Run or Step.
func (d *Driver) Simulation() *mpm.Simulation {
	return d.sim
}

// Checkpoint captures the current run for resuming.
func (d *Driver) Checkpoint() Checkpoint {
	d.mu.Lock()
	frame := d.frame
	d.mu.Unlock()
	return Checkpoint{
		Seed:      d.seed,
		Frame:     frame,
		Substeps:  d.sim.Substeps(),
		NGrid:     d.sim.Params().NGrid,
		Particles: d.sim.Particles().Clone(),
	}
}

// Close releases the worker pool if the driver created one.
func (d *Driver) Close() {
	if d.pool != nil {
		d.pool.Close()
	}
}

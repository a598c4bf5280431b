// Package config provides configuration loading and access for the simulation.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// ErrInvalid is returned (wrapped) when a configuration value is out of range.
var ErrInvalid = errors.New("invalid configuration")

// Config holds all simulation configuration parameters.
type Config struct {
	Simulation SimulationConfig `yaml:"simulation"`
	Material   MaterialConfig   `yaml:"material"`
	Physics    PhysicsConfig    `yaml:"physics"`
	Init       InitConfig       `yaml:"init"`
	Engine     EngineConfig     `yaml:"engine"`
	Screen     ScreenConfig     `yaml:"screen"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// SimulationConfig holds the discretization and time-stepping parameters.
type SimulationConfig struct {
	NParticles       int     `yaml:"n_particles"`
	NGrid            int     `yaml:"n_grid"`
	DT               float64 `yaml:"dt"`
	SubstepsPerFrame int     `yaml:"substeps_per_frame"`
	Frames           int     `yaml:"frames"` // Frame budget (0 = unlimited)
	Seed             int64   `yaml:"seed"`   // RNG seed for initialization (0 = time-based)
}

// MaterialConfig holds per-particle material constants.
type MaterialConfig struct {
	PMass float64 `yaml:"p_mass"`
	PVol  float64 `yaml:"p_vol"`
	E     float64 `yaml:"e"` // Elastic modulus (carried, unused by the pressure term)
}

// PhysicsConfig holds external forces and boundary parameters.
type PhysicsConfig struct {
	Gravity   float64 `yaml:"gravity"`
	FloorRows int     `yaml:"floor_rows"` // Grid rows below which downward velocity is removed
}

// RegionConfig is an axis-aligned box in simulation space.
type RegionConfig struct {
	X0 float64 `yaml:"x0"`
	X1 float64 `yaml:"x1"`
	Y0 float64 `yaml:"y0"`
	Y1 float64 `yaml:"y1"`
}

// InitConfig holds the initial particle state.
type InitConfig struct {
	Region   RegionConfig `yaml:"region"`
	Velocity [2]float64   `yaml:"velocity"`
	J        float64      `yaml:"j"`
}

// EngineConfig holds execution engine parameters.
type EngineConfig struct {
	Workers int `yaml:"workers"` // 0 = GOMAXPROCS
}

// ScreenConfig holds display settings.
type ScreenConfig struct {
	Width     int     `yaml:"width"`
	Height    int     `yaml:"height"`
	TargetFPS int     `yaml:"target_fps"`
	PointSize float64 `yaml:"point_size"`
}

// TelemetryConfig holds telemetry parameters.
type TelemetryConfig struct {
	PerfWindow int `yaml:"perf_window"` // Substeps averaged by the perf collector
	StatsEvery int `yaml:"stats_every"` // Frames between stats log lines (0 = never)
}

// DerivedConfig holds computed values derived from the loaded config.
type DerivedConfig struct {
	Dx            float64 // 1 / n_grid
	InvDx         float64 // n_grid
	FrameDT       float64 // dt * substeps_per_frame
	TotalSubsteps int     // frames * substeps_per_frame (0 when unlimited)
}

// global holds the loaded configuration.
var global *Config

// Init loads configuration from the given path, or uses embedded defaults if path is empty.
// Must be called before Cfg().
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
}

// MustInit is like Init but panics on error.
func MustInit(path string) {
	if err := Init(path); err != nil {
		panic(fmt.Sprintf("config: failed to initialize: %v", err))
	}
}

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// Default returns a fresh copy of the embedded defaults.
func Default() *Config {
	cfg, err := Load("")
	if err != nil {
		panic(fmt.Sprintf("config: embedded defaults are broken: %v", err))
	}
	return cfg
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Unmarshal into same struct - only overwrites fields present in file
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.computeDerived()

	return cfg, nil
}

// Validate checks the parameters that must hold before any substep runs.
func (c *Config) Validate() error {
	s := c.Simulation
	switch {
	case s.NParticles <= 0:
		return fmt.Errorf("%w: simulation.n_particles must be positive, got %d", ErrInvalid, s.NParticles)
	case s.NGrid <= 0:
		return fmt.Errorf("%w: simulation.n_grid must be positive, got %d", ErrInvalid, s.NGrid)
	case s.DT <= 0:
		return fmt.Errorf("%w: simulation.dt must be positive, got %g", ErrInvalid, s.DT)
	case s.SubstepsPerFrame <= 0:
		return fmt.Errorf("%w: simulation.substeps_per_frame must be positive, got %d", ErrInvalid, s.SubstepsPerFrame)
	case s.Frames < 0:
		return fmt.Errorf("%w: simulation.frames must not be negative, got %d", ErrInvalid, s.Frames)
	}

	if c.Material.PMass <= 0 || c.Material.PVol <= 0 {
		return fmt.Errorf("%w: material.p_mass and material.p_vol must be positive", ErrInvalid)
	}
	if c.Physics.FloorRows < 0 {
		return fmt.Errorf("%w: physics.floor_rows must not be negative, got %d", ErrInvalid, c.Physics.FloorRows)
	}

	r := c.Init.Region
	if r.X1 <= r.X0 || r.Y1 <= r.Y0 {
		return fmt.Errorf("%w: init.region is empty or inverted: [%g,%g]x[%g,%g]", ErrInvalid, r.X0, r.X1, r.Y0, r.Y1)
	}
	if c.Engine.Workers < 0 {
		return fmt.Errorf("%w: engine.workers must not be negative, got %d", ErrInvalid, c.Engine.Workers)
	}
	return nil
}

// Recompute validates the config and refreshes derived values.
// Call it after modifying a loaded Config in place.
func (c *Config) Recompute() error {
	if err := c.Validate(); err != nil {
		return err
	}
	c.computeDerived()
	return nil
}

// computeDerived calculates values derived from loaded config.
func (c *Config) computeDerived() {
	c.Derived.Dx = 1.0 / float64(c.Simulation.NGrid)
	c.Derived.InvDx = float64(c.Simulation.NGrid)
	c.Derived.FrameDT = c.Simulation.DT * float64(c.Simulation.SubstepsPerFrame)
	c.Derived.TotalSubsteps = c.Simulation.Frames * c.Simulation.SubstepsPerFrame
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

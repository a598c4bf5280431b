package main

import (
	"context"
	"errors"
	"math"
	"sync"

	"github.com/pthm-cable/snowmpm/config"
	"github.com/pthm-cable/snowmpm/driver"
	"github.com/pthm-cable/snowmpm/engine"
	"github.com/pthm-cable/snowmpm/mpm"
	"github.com/pthm-cable/snowmpm/telemetry"
)

// Targets describe the settled pile a calibration aims for.
type Targets struct {
	JMean  float64 // mean volume ratio at the last frame
	Height float64 // y_max of the material at the last frame
}

// abortPenalty is the fitness of a run that left the lattice or failed.
const abortPenalty = 100.0

// FitnessEvaluator runs headless simulations and computes fitness.
type FitnessEvaluator struct {
	params     *ParamVector
	frames     int
	seeds      []int64
	baseConfig *config.Config
	targets    Targets

	mu        sync.Mutex
	lastStats telemetry.FrameStats // stats of the first seed from the most recent Evaluate
}

// NewFitnessEvaluator creates a new evaluator.
func NewFitnessEvaluator(params *ParamVector, frames int, seeds []int64, baseCfg *config.Config, targets Targets) *FitnessEvaluator {
	return &FitnessEvaluator{
		params:     params,
		frames:     frames,
		seeds:      seeds,
		baseConfig: baseCfg,
		targets:    targets,
	}
}

// LastStats returns the final-frame stats from the most recent evaluation.
func (fe *FitnessEvaluator) LastStats() telemetry.FrameStats {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.lastStats
}

type seedResult struct {
	fitness float64
	stats   telemetry.FrameStats
}

// Evaluate computes fitness for a parameter vector (lower = better), averaged
// over all seeds. Seeds run in parallel, each on the serial executor.
func (fe *FitnessEvaluator) Evaluate(x []float64) float64 {
	results := make([]seedResult, len(fe.seeds))
	var wg sync.WaitGroup

	for i, seed := range fe.seeds {
		wg.Add(1)
		go func(idx int, s int64) {
			defer wg.Done()
			stats, err := fe.runSimulation(x, s)
			results[idx] = seedResult{fitness: fe.computeFitness(stats, err), stats: stats}
		}(i, seed)
	}
	wg.Wait()

	var total float64
	for _, r := range results {
		total += r.fitness
	}

	fe.mu.Lock()
	if len(results) > 0 {
		fe.lastStats = results[0].stats
	}
	fe.mu.Unlock()

	return total / float64(len(fe.seeds))
}

// runSimulation executes a single headless run and returns the stats of its
// last frame.
func (fe *FitnessEvaluator) runSimulation(x []float64, seed int64) (telemetry.FrameStats, error) {
	cfg := fe.copyConfig()
	fe.params.ApplyToConfig(cfg, x)
	cfg.Simulation.Frames = fe.frames

	var last telemetry.FrameStats
	obs := driver.FrameObserverFunc(func(f driver.Frame, sim *mpm.Simulation) {
		if f.Index == fe.frames {
			last = telemetry.ComputeFrameStats(f.Index, sim)
		}
	})

	drv := driver.New(cfg, driver.WithExecutor(engine.Serial), driver.WithObserver(obs))
	defer drv.Close()

	if err := drv.Initialize(seed); err != nil {
		return last, err
	}
	return last, drv.Run(context.Background())
}

// copyConfig returns an independent copy of the base config. Config holds
// only value fields, so a struct copy is deep.
func (fe *FitnessEvaluator) copyConfig() *config.Config {
	cfg := *fe.baseConfig
	return &cfg
}

// computeFitness is the squared relative error against the targets. Aborted
// runs score abortPenalty; configuration errors score twice that so the
// search moves away from them first.
func (fe *FitnessEvaluator) computeFitness(stats telemetry.FrameStats, err error) float64 {
	switch {
	case errors.Is(err, config.ErrInvalid), errors.Is(err, mpm.ErrInvalidConfig):
		return 2 * abortPenalty
	case err != nil:
		return abortPenalty
	case stats.Particles == 0:
		return abortPenalty
	}

	jErr := relErr(stats.JMean, fe.targets.JMean)
	hErr := relErr(stats.YMax, fe.targets.Height)
	fitness := jErr*jErr + hErr*hErr
	if math.IsNaN(fitness) {
		return abortPenalty
	}
	return fitness
}

func relErr(got, want float64) float64 {
	if want == 0 {
		return got
	}
	return (got - want) / want
}

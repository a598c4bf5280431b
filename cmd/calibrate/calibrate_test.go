package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pthm-cable/snowmpm/config"
	"github.com/pthm-cable/snowmpm/telemetry"
)

func TestParamVectorRoundtrip(t *testing.T) {
	pv := NewParamVector()
	raw := pv.DefaultVector()

	norm := pv.Normalize(raw)
	for _, v := range norm {
		assert.GreaterOrEqual(t, v, 0.0)
		assert.LessOrEqual(t, v, 1.0)
	}
	assert.InDeltaSlice(t, raw, pv.Denormalize(norm), 1e-12)
}

func TestParamVectorClamp(t *testing.T) {
	pv := NewParamVector()
	got := pv.Clamp([]float64{-1, 100, 9.8})
	assert.Equal(t, []float64{0.25, 4.0, 9.8}, got)
}

func TestApplyAndExtract(t *testing.T) {
	pv := NewParamVector()
	cfg := config.Default()

	pv.ApplyToConfig(cfg, []float64{2, 0.5, 100})
	assert.Equal(t, 2.0, cfg.Material.PMass)
	assert.Equal(t, 0.5, cfg.Material.PVol)
	assert.Equal(t, 20.0, cfg.Physics.Gravity, "values are clamped before applying")
	assert.Equal(t, []float64{2, 0.5, 20}, pv.ExtractFromConfig(cfg))
}

func TestDefaultsMatchConfig(t *testing.T) {
	pv := NewParamVector()
	assert.Equal(t, pv.DefaultVector(), pv.ExtractFromConfig(config.Default()))
}

func TestComputeFitness(t *testing.T) {
	fe := NewFitnessEvaluator(NewParamVector(), 1, nil, config.Default(), Targets{JMean: 1, Height: 0.5})

	perfect := telemetry.FrameStats{Particles: 10, JMean: 1, YMax: 0.5}
	assert.Equal(t, 0.0, fe.computeFitness(perfect, nil))

	off := telemetry.FrameStats{Particles: 10, JMean: 0.9, YMax: 0.6}
	assert.InDelta(t, 0.01+0.04, fe.computeFitness(off, nil), 1e-12)

	assert.Equal(t, abortPenalty, fe.computeFitness(perfect, assert.AnError))
	assert.Equal(t, 2*abortPenalty, fe.computeFitness(perfect, config.ErrInvalid))
	assert.Equal(t, abortPenalty, fe.computeFitness(telemetry.FrameStats{}, nil))
}

func TestEvaluateRunsSeeds(t *testing.T) {
	cfg := config.Default()
	cfg.Simulation.NParticles = 128
	cfg.Simulation.SubstepsPerFrame = 5

	pv := NewParamVector()
	fe := NewFitnessEvaluator(pv, 2, []int64{1, 2}, cfg, Targets{JMean: 1, Height: 0.6})

	fitness := fe.Evaluate(pv.DefaultVector())
	assert.Less(t, fitness, abortPenalty)

	stats := fe.LastStats()
	require.Equal(t, 128, stats.Particles)
	assert.Equal(t, 2, stats.Frame)
	assert.Equal(t, config.Default().Simulation.Frames, cfg.Simulation.Frames, "base config is not modified")
	assert.Equal(t, 1.0, cfg.Material.PMass)
}

package telemetry

import (
	"log/slog"
	"sync"
	"time"

	"github.com/pthm-cable/snowmpm/mpm"
)

// Phases of a substep, in execution order.
var Phases = []string{mpm.PhaseClear, mpm.PhaseP2G, mpm.PhaseGridUpdate, mpm.PhaseG2P}

// PerfSample holds timing data for a single substep.
type PerfSample struct {
	SubstepDuration time.Duration
	Phases          map[string]time.Duration
}

// PerfCollector tracks performance metrics over a rolling window of substeps.
// Timing calls come from the simulation goroutine; Stats may be called from
// any goroutine.
type PerfCollector struct {
	mu sync.Mutex

	windowSize    int
	samples       []PerfSample
	writeIndex    int
	sampleCount   int
	currentPhases map[string]time.Duration
	substepStart  time.Time
	phaseStart    time.Time
	lastPhase     string

	// Frame timing (for graphics mode)
	lastFrameTime time.Time
	frameDuration time.Duration
}

// NewPerfCollector creates a new performance collector.
// windowSize: number of substeps to average over.
func NewPerfCollector(windowSize int) *PerfCollector {
	if windowSize < 1 {
		windowSize = 60
	}
	return &PerfCollector{
		windowSize:    windowSize,
		samples:       make([]PerfSample, windowSize),
		currentPhases: make(map[string]time.Duration),
	}
}

// StartSubstep begins timing a new substep.
func (p *PerfCollector) StartSubstep() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.substepStart = time.Now()
	p.currentPhases = make(map[string]time.Duration)
	p.lastPhase = ""
}

// StartPhase begins timing a specific phase. Implements mpm.PhaseTimer.
func (p *PerfCollector) StartPhase(phase string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	now := time.Now()
	// End previous phase if any
	if p.lastPhase != "" {
		p.currentPhases[p.lastPhase] += now.Sub(p.phaseStart)
	}
	p.phaseStart = now
	p.lastPhase = phase
}

// EndSubstep finishes timing the current substep and records the sample.
func (p *PerfCollector) EndSubstep() {
	p.mu.Lock()
	defer p.mu.Unlock()
	now := time.Now()
	if p.lastPhase != "" {
		p.currentPhases[p.lastPhase] += now.Sub(p.phaseStart)
	}

	p.samples[p.writeIndex] = PerfSample{
		SubstepDuration: now.Sub(p.substepStart),
		Phases:          p.currentPhases,
	}
	p.writeIndex = (p.writeIndex + 1) % p.windowSize
	if p.sampleCount < p.windowSize {
		p.sampleCount++
	}
	p.lastPhase = ""
}

// RecordFrame records frame timing for graphics mode.
func (p *PerfCollector) RecordFrame() {
	p.mu.Lock()
	defer p.mu.Unlock()
	now := time.Now()
	if !p.lastFrameTime.IsZero() {
		p.frameDuration = now.Sub(p.lastFrameTime)
	}
	p.lastFrameTime = now
}

// PerfStats holds aggregated performance statistics.
type PerfStats struct {
	AvgSubstep time.Duration
	MinSubstep time.Duration
	MaxSubstep time.Duration

	// Phase breakdown (average durations)
	PhaseAvg map[string]time.Duration

	// Phase percentages of total substep time
	PhasePct map[string]float64

	SubstepsPerSecond float64

	// Frame timing (graphics mode)
	FrameDuration time.Duration
	FPS           float64
}

// Stats computes aggregated statistics over the current window.
func (p *PerfCollector) Stats() PerfStats {
	p.mu.Lock()
	defer p.mu.Unlock()

	var fps float64
	if p.frameDuration > 0 {
		fps = float64(time.Second) / float64(p.frameDuration)
	}

	if p.sampleCount == 0 {
		return PerfStats{
			PhaseAvg:      make(map[string]time.Duration),
			PhasePct:      make(map[string]float64),
			FrameDuration: p.frameDuration,
			FPS:           fps,
		}
	}

	var total time.Duration
	var minDur, maxDur time.Duration
	phaseSum := make(map[string]time.Duration)

	for i := 0; i < p.sampleCount; i++ {
		s := p.samples[i]
		total += s.SubstepDuration

		if i == 0 || s.SubstepDuration < minDur {
			minDur = s.SubstepDuration
		}
		if s.SubstepDuration > maxDur {
			maxDur = s.SubstepDuration
		}

		for phase, dur := range s.Phases {
			phaseSum[phase] += dur
		}
	}

	avg := total / time.Duration(p.sampleCount)

	phaseAvg := make(map[string]time.Duration)
	phasePct := make(map[string]float64)
	for phase, sum := range phaseSum {
		phaseAvg[phase] = sum / time.Duration(p.sampleCount)
		if avg > 0 {
			phasePct[phase] = float64(phaseAvg[phase]) / float64(avg) * 100
		}
	}

	var perSec float64
	if avg > 0 {
		perSec = float64(time.Second) / float64(avg)
	}

	return PerfStats{
		AvgSubstep:        avg,
		MinSubstep:        minDur,
		MaxSubstep:        maxDur,
		PhaseAvg:          phaseAvg,
		PhasePct:          phasePct,
		SubstepsPerSecond: perSec,
		FrameDuration:     p.frameDuration,
		FPS:               fps,
	}
}

// LogStats logs performance statistics.
func (s PerfStats) LogStats() {
	attrs := []any{
		"avg_substep_us", s.AvgSubstep.Microseconds(),
		"min_substep_us", s.MinSubstep.Microseconds(),
		"max_substep_us", s.MaxSubstep.Microseconds(),
		"substeps_per_sec", int(s.SubstepsPerSecond),
	}

	if s.FPS > 0 {
		attrs = append(attrs, "fps", int(s.FPS))
	}

	for _, phase := range Phases {
		if pct, ok := s.PhasePct[phase]; ok && pct > 0.1 {
			attrs = append(attrs, phase+"_pct", float64(int(pct*10))/10.0)
		}
	}

	slog.Info("perf", attrs...)
}

// PerfStatsCSV is a flat struct for CSV export of performance stats.
type PerfStatsCSV struct {
	Frame          int     `csv:"frame"`
	AvgSubstepUS   int64   `csv:"avg_substep_us"`
	MinSubstepUS   int64   `csv:"min_substep_us"`
	MaxSubstepUS   int64   `csv:"max_substep_us"`
	SubstepsPerSec float64 `csv:"substeps_per_sec"`
	FPS            float64 `csv:"fps"`
	ClearPct       float64 `csv:"clear_pct"`
	P2GPct         float64 `csv:"p2g_pct"`
	GridUpdatePct  float64 `csv:"grid_update_pct"`
	G2PPct         float64 `csv:"g2p_pct"`
}

// ToCSV converts PerfStats to a flat CSV-friendly struct.
func (s PerfStats) ToCSV(frame int) PerfStatsCSV {
	return PerfStatsCSV{
		Frame:          frame,
		AvgSubstepUS:   s.AvgSubstep.Microseconds(),
		MinSubstepUS:   s.MinSubstep.Microseconds(),
		MaxSubstepUS:   s.MaxSubstep.Microseconds(),
		SubstepsPerSec: s.SubstepsPerSecond,
		FPS:            s.FPS,
		ClearPct:       s.PhasePct[mpm.PhaseClear],
		P2GPct:         s.PhasePct[mpm.PhaseP2G],
		GridUpdatePct:  s.PhasePct[mpm.PhaseGridUpdate],
		G2PPct:         s.PhasePct[mpm.PhaseG2P],
	}
}

package telemetry

import (
	"log/slog"
	"sync"

	"github.com/pthm-cable/snowmpm/driver"
	"github.com/pthm-cable/snowmpm/mpm"
)

// Recorder is a driver.FrameObserver that samples FrameStats after every
// frame, writes them to the output manager, and periodically logs them
// together with perf stats.
type Recorder struct {
	perf       *PerfCollector // may be nil
	out        *OutputManager // may be nil
	statsEvery int
	logStats   bool

	mu     sync.Mutex
	latest FrameStats
	seen   bool
}

// NewRecorder creates a recorder. statsEvery is the number of frames between
// perf rows and log lines (0 disables both).
func NewRecorder(perf *PerfCollector, out *OutputManager, statsEvery int, logStats bool) *Recorder {
	return &Recorder{
		perf:       perf,
		out:        out,
		statsEvery: statsEvery,
		logStats:   logStats,
	}
}

// ObserveFrame implements driver.FrameObserver.
func (r *Recorder) ObserveFrame(f driver.Frame, sim *mpm.Simulation) {
	stats := ComputeFrameStats(f.Index, sim)

	r.mu.Lock()
	r.latest = stats
	r.seen = true
	r.mu.Unlock()

	if err := r.out.WriteFrame(stats); err != nil {
		slog.Error("failed to write frame stats", "error", err)
	}

	if r.statsEvery <= 0 || f.Index%r.statsEvery != 0 {
		return
	}

	var perfStats PerfStats
	if r.perf != nil {
		perfStats = r.perf.Stats()
		if err := r.out.WritePerf(perfStats, f.Index); err != nil {
			slog.Error("failed to write perf", "error", err)
		}
	}

	if r.logStats {
		stats.LogStats()
		if r.perf != nil {
			perfStats.LogStats()
		}
	}
}

// Latest returns the stats of the most recent frame. ok is false until the
// first frame has been observed.
func (r *Recorder) Latest() (stats FrameStats, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.latest, r.seen
}

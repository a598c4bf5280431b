package telemetry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pthm-cable/snowmpm/driver"
	"github.com/pthm-cable/snowmpm/mpm"
)

// SnapshotVersion is incremented when the format changes.
const SnapshotVersion = 1

// Snapshot holds the complete particle state at a frame boundary. Grid
// contents are not stored; every substep rebuilds them.
type Snapshot struct {
	Version int   `json:"version"`
	RNGSeed int64 `json:"rng_seed"`

	NGrid    int     `json:"n_grid"`
	DT       float64 `json:"dt"`
	Frame    int     `json:"frame"`
	Substeps int64   `json:"substeps"`
	SimTime  float64 `json:"sim_time"`

	Particles []ParticleState `json:"particles"`
}

// ParticleState holds one particle's state.
type ParticleState struct {
	X [2]float64    `json:"x"`
	V [2]float64    `json:"v"`
	J float64       `json:"j"`
	C [2][2]float64 `json:"c"`
}

// NewSnapshot captures a driver checkpoint.
func NewSnapshot(cp driver.Checkpoint, dt float64) *Snapshot {
	ps := cp.Particles
	snapshot := &Snapshot{
		Version:   SnapshotVersion,
		RNGSeed:   cp.Seed,
		NGrid:     cp.NGrid,
		DT:        dt,
		Frame:     cp.Frame,
		Substeps:  cp.Substeps,
		SimTime:   float64(cp.Substeps) * dt,
		Particles: make([]ParticleState, ps.Len()),
	}
	for i := range snapshot.Particles {
		snapshot.Particles[i] = ParticleState{
			X: ps.X[i],
			V: ps.V[i],
			J: ps.J[i],
			C: ps.C[i],
		}
	}
	return snapshot
}

// Checkpoint converts the snapshot back into resumable driver state.
func (s *Snapshot) Checkpoint() (driver.Checkpoint, error) {
	if s.Version != SnapshotVersion {
		return driver.Checkpoint{}, fmt.Errorf("unsupported snapshot version %d (want %d)", s.Version, SnapshotVersion)
	}

	n := len(s.Particles)
	x := make([]mpm.Vec2, n)
	v := make([]mpm.Vec2, n)
	j := make([]float64, n)
	c := make([]mpm.Mat2, n)
	for i, p := range s.Particles {
		x[i] = p.X
		v[i] = p.V
		j[i] = p.J
		c[i] = p.C
	}

	ps, err := mpm.RestoreParticles(x, v, j, c)
	if err != nil {
		return driver.Checkpoint{}, fmt.Errorf("restore particles: %w", err)
	}
	return driver.Checkpoint{
		Seed:      s.RNGSeed,
		Frame:     s.Frame,
		Substeps:  s.Substeps,
		NGrid:     s.NGrid,
		Particles: ps,
	}, nil
}

// SaveSnapshot writes a snapshot to disk.
// Returns the filepath where it was saved.
func SaveSnapshot(snapshot *Snapshot, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create snapshot dir: %w", err)
	}

	path := filepath.Join(dir, fmt.Sprintf("snapshot_%d.json", snapshot.Frame))

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal snapshot: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("write snapshot: %w", err)
	}

	return path, nil
}

// LoadSnapshot reads a snapshot from disk.
func LoadSnapshot(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	var snapshot Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}

	return &snapshot, nil
}

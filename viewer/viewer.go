// Package viewer runs the graphical mode: raylib owns the main thread while
// a single simulation goroutine drives the driver frame by frame.
package viewer

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/snowmpm/camera"
	"github.com/pthm-cable/snowmpm/config"
	"github.com/pthm-cable/snowmpm/driver"
	"github.com/pthm-cable/snowmpm/renderer"
	"github.com/pthm-cable/snowmpm/telemetry"
	"github.com/pthm-cable/snowmpm/ui"
)

const controlsHelp = "[Space] Pause  [S] Step  [R] Reset  [G] Grid  [P] Snapshot  [Arrows/RMB] Pan  [Wheel] Zoom  [Home] View  [Tab] Panel"

var backgroundColor = rl.Color{R: 14, G: 17, B: 22, A: 255}

type command int

const (
	cmdStep command = iota
	cmdReset
	cmdSnapshot
)

// Options configures a Viewer.
type Options struct {
	Seed        int64
	StartPaused bool
}

// Viewer owns the window-side state and the simulation goroutine.
type Viewer struct {
	cfg      *config.Config
	drv      *driver.Driver
	perf     *telemetry.PerfCollector
	recorder *telemetry.Recorder
	output   *telemetry.OutputManager
	seed     int64

	camera    *camera.Camera
	particles *renderer.ParticleView
	hud       *ui.HUD
	controls  *ui.ControlsPanel

	screenWidth, screenHeight float32
	frame                     driver.Frame

	paused atomic.Bool
	cmds   chan command
	wake   chan struct{}
	wg     sync.WaitGroup
	cancel context.CancelFunc
}

// New creates a viewer. The raylib window must already be open. drv must be
// initialized; the viewer takes over driving it.
func New(cfg *config.Config, drv *driver.Driver, perf *telemetry.PerfCollector,
	recorder *telemetry.Recorder, output *telemetry.OutputManager, opts Options) *Viewer {

	w := float32(rl.GetScreenWidth())
	h := float32(rl.GetScreenHeight())
	cam := camera.New(w, h)

	v := &Viewer{
		cfg:          cfg,
		drv:          drv,
		perf:         perf,
		recorder:     recorder,
		output:       output,
		seed:         opts.Seed,
		camera:       cam,
		particles:    renderer.NewParticleView(cam, cfg.Simulation.NGrid, cfg.Physics.FloorRows, float32(cfg.Screen.PointSize)),
		hud:          ui.NewHUD(),
		controls:     ui.NewControlsPanel(10, 80, 220),
		screenWidth:  w,
		screenHeight: h,
		frame:        drv.Frame(),
		cmds:         make(chan command, 8),
		wake:         make(chan struct{}, 1),
	}
	v.paused.Store(opts.StartPaused)
	return v
}

// Run shows the window until it is closed.
func (v *Viewer) Run() {
	ctx, cancel := context.WithCancel(context.Background())
	v.cancel = cancel
	v.wg.Add(1)
	go v.simLoop(ctx)

	for !rl.WindowShouldClose() {
		v.handleInput()
		v.Update()
		v.Draw()
	}
}

// Update takes the newest frame from the driver, if one is waiting.
func (v *Viewer) Update() {
	select {
	case f := <-v.drv.Frames():
		v.frame = f
	default:
	}
	v.perf.RecordFrame()
}

// Draw renders one window frame.
func (v *Viewer) Draw() {
	rl.BeginDrawing()
	rl.ClearBackground(backgroundColor)

	v.particles.Draw(v.frame.Positions)

	data := ui.HUDData{
		Title:        "Snow MPM",
		Frame:        v.frame.Index,
		FrameBudget:  v.cfg.Simulation.Frames,
		SimTime:      v.frame.SimTime,
		State:        v.drv.State().String(),
		Paused:       v.paused.Load(),
		FPS:          rl.GetFPS(),
		Perf:         v.perf.Stats(),
		ScreenWidth:  int32(v.screenWidth),
		ScreenHeight: int32(v.screenHeight),
	}
	data.Stats, data.HasStats = v.recorder.Latest()
	v.hud.Draw(data)
	v.hud.DrawControls(int32(v.screenWidth), int32(v.screenHeight), controlsHelp)

	actions := v.controls.Draw(ui.ControlsState{
		Paused:   data.Paused,
		Stopped:  v.drv.State() == driver.Stopped,
		ShowGrid: v.particles.ShowGrid,
		Zoom:     v.camera.Zoom,
		MinZoom:  v.camera.MinZoom,
		MaxZoom:  v.camera.MaxZoom,
	})

	rl.EndDrawing()

	v.apply(actions)
}

func (v *Viewer) apply(a ui.Actions) {
	if a.TogglePause {
		v.togglePause()
	}
	if a.Step {
		v.send(cmdStep)
	}
	if a.Reset {
		v.send(cmdReset)
	}
	if a.Snapshot {
		v.send(cmdSnapshot)
	}
	if a.ToggleGrid {
		v.particles.ShowGrid = !v.particles.ShowGrid
	}
	if a.Zoom != v.camera.Zoom {
		v.camera.SetZoom(a.Zoom)
	}
}

func (v *Viewer) togglePause() {
	v.paused.Store(!v.paused.Load())
	select {
	case v.wake <- struct{}{}:
	default:
	}
}

func (v *Viewer) send(c command) {
	select {
	case v.cmds <- c:
	default:
		slog.Warn("viewer command dropped", "command", int(c))
	}
}

// simLoop is the only goroutine that touches the driver's simulation.
func (v *Viewer) simLoop(ctx context.Context) {
	defer v.wg.Done()

	for {
		running := !v.paused.Load() && v.canAdvance()
		if running {
			if err := v.drv.Step(); err != nil {
				slog.Error("simulation stopped", "error", err)
			}
			select {
			case c := <-v.cmds:
				v.handle(c)
			case <-ctx.Done():
				return
			default:
			}
			continue
		}

		select {
		case c := <-v.cmds:
			v.handle(c)
		case <-v.wake:
		case <-ctx.Done():
			return
		}
	}
}

func (v *Viewer) canAdvance() bool {
	s := v.drv.State()
	return s == driver.Initialized || s == driver.FrameComplete
}

func (v *Viewer) handle(c command) {
	switch c {
	case cmdStep:
		if v.canAdvance() {
			if err := v.drv.Step(); err != nil {
				slog.Error("simulation stopped", "error", err)
			}
		}
	case cmdReset:
		if err := v.drv.Initialize(v.seed); err != nil {
			slog.Error("reset failed", "error", err)
		}
	case cmdSnapshot:
		if v.drv.Simulation() == nil {
			return
		}
		snapshot := telemetry.NewSnapshot(v.drv.Checkpoint(), v.cfg.Simulation.DT)
		path, err := v.output.WriteSnapshot(snapshot)
		if err != nil {
			slog.Error("failed to save snapshot", "error", err)
			return
		}
		if path == "" {
			slog.Warn("snapshot skipped: no output directory")
			return
		}
		slog.Info("snapshot saved", "path", path, "frame", snapshot.Frame)
	}
}

// Unload stops the simulation goroutine.
func (v *Viewer) Unload() {
	if v.cancel != nil {
		v.cancel()
	}
	v.wg.Wait()
}

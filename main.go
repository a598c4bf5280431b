package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/snowmpm/config"
	"github.com/pthm-cable/snowmpm/driver"
	"github.com/pthm-cable/snowmpm/mpm"
	"github.com/pthm-cable/snowmpm/telemetry"
	"github.com/pthm-cable/snowmpm/viewer"
)

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	headless := flag.Bool("headless", false, "Run without graphics")
	tui := flag.Bool("tui", false, "Render particle density in the terminal")
	logStats := flag.Bool("log-stats", false, "Output stats via slog")
	outputDir := flag.String("output-dir", "", "Output directory for CSV logs, config and snapshots")
	resume := flag.String("resume", "", "Resume from a snapshot file")
	seed := flag.Int64("seed", 0, "RNG seed (0 = config seed, then time-based)")
	frames := flag.Int("frames", -1, "Stop after N frames (0 = unlimited, -1 = use config)")
	workers := flag.Int("workers", -1, "Worker goroutines (0 = GOMAXPROCS, -1 = use config)")
	paused := flag.Bool("paused", false, "Start the graphical viewer paused")

	flag.Parse()

	// Set up slog (JSON to stdout for structured logging)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if err := config.Init(*configPath); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cfg := config.Cfg()

	if *frames >= 0 {
		cfg.Simulation.Frames = *frames
	}
	if *workers >= 0 {
		cfg.Engine.Workers = *workers
	}
	if err := cfg.Recompute(); err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	rngSeed := *seed
	if rngSeed == 0 {
		rngSeed = cfg.Simulation.Seed
	}
	if rngSeed == 0 {
		rngSeed = time.Now().UnixNano()
	}

	output, err := telemetry.NewOutputManager(*outputDir)
	if err != nil {
		slog.Error("failed to create output manager", "error", err)
		os.Exit(1)
	}
	defer output.Close()
	if err := output.WriteConfig(cfg); err != nil {
		slog.Error("failed to write config", "error", err)
	}

	perf := telemetry.NewPerfCollector(cfg.Telemetry.PerfWindow)
	recorder := telemetry.NewRecorder(perf, output, cfg.Telemetry.StatsEvery, *logStats)

	opts := []driver.Option{
		driver.WithTimer(perf),
		driver.WithObserver(recorder),
	}
	if *headless || *tui {
		// The window loop ticks frame timing in graphical mode.
		opts = append(opts, driver.WithObserver(driver.FrameObserverFunc(
			func(driver.Frame, *mpm.Simulation) { perf.RecordFrame() },
		)))
	}
	drv := driver.New(cfg, opts...)
	defer drv.Close()

	if err := initialize(drv, rngSeed, *resume); err != nil {
		slog.Error("failed to initialize simulation", "error", err)
		os.Exit(1)
	}

	switch {
	case *headless:
		err = runHeadless(drv, output, cfg.Simulation.DT)
	case *tui:
		err = runTUI(drv, recorder)
	default:
		runGraphical(cfg, drv, perf, recorder, output, viewer.Options{
			Seed:        drv.Seed(),
			StartPaused: *paused,
		})
	}
	if err != nil {
		output.Close()
		drv.Close()
		os.Exit(1)
	}
}

func initialize(drv *driver.Driver, seed int64, resume string) error {
	if resume == "" {
		return drv.Initialize(seed)
	}
	snapshot, err := telemetry.LoadSnapshot(resume)
	if err != nil {
		return err
	}
	cp, err := snapshot.Checkpoint()
	if err != nil {
		return err
	}
	return drv.InitializeFrom(cp)
}

// runHeadless runs until the frame budget is exhausted or SIGINT/SIGTERM, then
// writes a final snapshot.
func runHeadless(drv *driver.Driver, output *telemetry.OutputManager, dt float64) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	slog.Info("starting headless simulation",
		"seed", drv.Seed(),
		"frame", drv.Frame().Index,
	)

	start := time.Now()
	runErr := drv.Run(ctx)
	switch {
	case errors.Is(runErr, context.Canceled):
		slog.Info("interrupted", "frame", drv.Frame().Index)
		runErr = nil
	case runErr != nil:
		slog.Error("simulation failed", "error", runErr)
	}

	f := drv.Frame()
	slog.Info("headless simulation finished",
		"frames", f.Index,
		"substeps", f.Substeps,
		"sim_time", f.SimTime,
		"wall", time.Since(start).String(),
	)

	// An aborted run is still snapshotted so the last good frame can be inspected.
	if drv.Simulation() != nil {
		path, err := output.WriteSnapshot(telemetry.NewSnapshot(drv.Checkpoint(), dt))
		if err != nil {
			slog.Error("failed to save snapshot", "error", err)
		} else if path != "" {
			slog.Info("snapshot saved", "path", path)
		}
	}
	return runErr
}

func runGraphical(cfg *config.Config, drv *driver.Driver, perf *telemetry.PerfCollector,
	recorder *telemetry.Recorder, output *telemetry.OutputManager, opts viewer.Options) {

	rl.SetConfigFlags(rl.FlagWindowResizable)
	rl.InitWindow(int32(cfg.Screen.Width), int32(cfg.Screen.Height), "Snow MPM")
	defer rl.CloseWindow()

	rl.SetTargetFPS(int32(cfg.Screen.TargetFPS))

	v := viewer.New(cfg, drv, perf, recorder, output, opts)
	defer v.Unload()
	v.Run()
}

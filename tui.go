package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/gdamore/tcell/v2"

	"github.com/pthm-cable/snowmpm/driver"
	"github.com/pthm-cable/snowmpm/renderer/term"
	"github.com/pthm-cable/snowmpm/telemetry"
)

// runTUI draws frames into the terminal while the driver runs on its own
// goroutine. Space pauses at the next frame boundary; q, Esc or Ctrl-C quit.
func runTUI(drv *driver.Driver, recorder *telemetry.Recorder) error {
	screen, err := tcell.NewScreen()
	if err != nil {
		return err
	}
	if err := screen.Init(); err != nil {
		return err
	}
	defer screen.Fini()

	params := drv.Simulation().Params()
	view := term.NewView(screen, float64(params.FloorRows)/float64(params.NGrid))

	events := make(chan tcell.Event, 16)
	go func() {
		for {
			ev := screen.PollEvent()
			if ev == nil {
				return
			}
			events <- ev
		}
	}()

	var (
		cancel context.CancelFunc
		done   chan error
		runErr error
	)
	start := func() {
		ctx, c := context.WithCancel(context.Background())
		cancel = c
		done = make(chan error, 1)
		go func() { done <- drv.Run(ctx) }()
	}
	pause := func() {
		if cancel == nil {
			return
		}
		cancel()
		<-done
		cancel, done = nil, nil
	}
	defer pause()

	start()
	frame := drv.Frame()
	redraw := func() { view.Draw(frame, tuiStatus(drv, frame, recorder, cancel == nil)) }
	redraw()

	for {
		select {
		case f := <-drv.Frames():
			frame = f
			redraw()

		case err := <-done:
			cancel, done = nil, nil
			if err != nil && !errors.Is(err, context.Canceled) {
				runErr = err
				slog.Error("simulation failed", "error", err)
			}
			redraw()

		case ev := <-events:
			switch ev := ev.(type) {
			case *tcell.EventResize:
				screen.Sync()
				redraw()
			case *tcell.EventKey:
				if ev.Key() == tcell.KeyEscape || ev.Key() == tcell.KeyCtrlC ||
					(ev.Key() == tcell.KeyRune && ev.Rune() == 'q') {
					pause()
					return runErr
				}
				if ev.Key() == tcell.KeyRune && ev.Rune() == ' ' {
					if cancel != nil {
						pause()
					} else if drv.State() != driver.Stopped {
						start()
					}
					redraw()
				}
			}
		}
	}
}

func tuiStatus(drv *driver.Driver, f driver.Frame, recorder *telemetry.Recorder, paused bool) string {
	state := drv.State().String()
	if paused && drv.State() != driver.Stopped {
		state = "paused"
	}
	status := fmt.Sprintf(" frame %d  t=%.3fs  %s", f.Index, f.SimTime, state)
	if stats, ok := recorder.Latest(); ok {
		status += fmt.Sprintf("  J=%.3f  KE=%.3g", stats.JMean, stats.KineticEnergy)
	}
	return status + "  [space] pause  [q] quit"
}

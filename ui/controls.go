package ui

import (
	gui "github.com/gen2brain/raylib-go/raygui"
	rl "github.com/gen2brain/raylib-go/raylib"
)

// ControlsState is the viewer state the controls panel reflects.
type ControlsState struct {
	Paused   bool
	Stopped  bool
	ShowGrid bool
	Zoom     float32
	MinZoom  float32
	MaxZoom  float32
}

// Actions are the user requests produced by one frame of the controls panel.
type Actions struct {
	TogglePause bool
	Step        bool
	Reset       bool
	ToggleGrid  bool
	Snapshot    bool
	Zoom        float32
}

// ControlsPanel renders raygui buttons for driving the simulation.
type ControlsPanel struct {
	renderer *Renderer
	x, y     int32
	width    int32
	visible  bool
}

// NewControlsPanel creates a new controls panel.
func NewControlsPanel(x, y, width int32) *ControlsPanel {
	return &ControlsPanel{
		renderer: NewRenderer(),
		x:        x,
		y:        y,
		width:    width,
		visible:  true,
	}
}

// SetPosition updates the panel position.
func (c *ControlsPanel) SetPosition(x, y int32) {
	c.x = x
	c.y = y
}

// Toggle switches panel visibility.
func (c *ControlsPanel) Toggle() bool {
	c.visible = !c.visible
	return c.visible
}

// Draw renders the panel and returns what the user clicked. Zoom is always
// set, to the slider value or the unchanged state zoom.
func (c *ControlsPanel) Draw(state ControlsState) Actions {
	actions := Actions{Zoom: state.Zoom}
	if !c.visible {
		return actions
	}

	r := c.renderer
	padding := r.Theme.Padding
	const buttonH = 24
	const rows = 4
	panelHeight := int32(rows*(buttonH+6)) + padding*2 + r.Theme.LineHeight

	r.DrawPanel(c.x, c.y, c.width, panelHeight)

	x := float32(c.x + padding)
	y := float32(c.y + padding)
	inner := float32(c.width - padding*2)
	half := (inner - 6) / 2

	rl.DrawText("Controls", int32(x), int32(y), 16, rl.White)
	y += float32(r.Theme.LineHeight + 4)

	pauseLabel := "Pause"
	if state.Paused {
		pauseLabel = "Resume"
	}
	if state.Stopped {
		gui.Disable()
	}
	if gui.Button(rl.Rectangle{X: x, Y: y, Width: half, Height: buttonH}, pauseLabel) {
		actions.TogglePause = true
	}
	if !state.Paused {
		gui.Disable()
	}
	if gui.Button(rl.Rectangle{X: x + half + 6, Y: y, Width: half, Height: buttonH}, "Step") {
		actions.Step = true
	}
	gui.Enable()
	y += buttonH + 6

	if gui.Button(rl.Rectangle{X: x, Y: y, Width: half, Height: buttonH}, "Reset") {
		actions.Reset = true
	}
	if gui.Button(rl.Rectangle{X: x + half + 6, Y: y, Width: half, Height: buttonH}, "Snapshot") {
		actions.Snapshot = true
	}
	y += buttonH + 6

	gridLabel := "Show grid"
	if state.ShowGrid {
		gridLabel = "Hide grid"
	}
	if gui.Button(rl.Rectangle{X: x, Y: y, Width: inner, Height: buttonH}, gridLabel) {
		actions.ToggleGrid = true
	}
	y += buttonH + 6

	actions.Zoom = gui.SliderBar(
		rl.Rectangle{X: x + 40, Y: y + 4, Width: inner - 80, Height: 16},
		"Zoom", "",
		state.Zoom, state.MinZoom, state.MaxZoom,
	)

	return actions
}

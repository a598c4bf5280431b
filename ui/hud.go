package ui

import (
	"fmt"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/snowmpm/mpm"
	"github.com/pthm-cable/snowmpm/telemetry"
)

// HUDData holds all the data needed to render the main HUD.
type HUDData struct {
	Title        string
	Frame        int
	FrameBudget  int // 0 = unlimited
	SimTime      float64
	State        string
	Paused       bool
	FPS          int32
	HasStats     bool
	Stats        telemetry.FrameStats
	Perf         telemetry.PerfStats
	ScreenWidth  int32
	ScreenHeight int32
}

// HUD renders the main heads-up display and the stats panel.
type HUD struct {
	renderer *Renderer
	sections []Section
	width    int32
}

// NewHUD creates a new HUD renderer.
func NewHUD() *HUD {
	return &HUD{
		renderer: NewRenderer(),
		sections: statsSections(),
		width:    240,
	}
}

func statsSections() []Section {
	hasStats := func(d *HUDData) bool { return d.HasStats }

	return []Section{
		{
			Title:   "Material",
			Visible: hasStats,
			Fields: []Field{
				{Label: "Particles", Format: "%.0f",
					Value: func(d *HUDData) float64 { return float64(d.Stats.Particles) }},
				{Label: "Grid mass", Format: "%.1f",
					Value: func(d *HUDData) float64 { return d.Stats.GridMass }},
				{Label: "Kinetic E",
					Value: func(d *HUDData) float64 { return d.Stats.KineticEnergy }},
				{Label: "Max speed",
					Value: func(d *HUDData) float64 { return d.Stats.SpeedMax }},
				{Label: "J mean", Kind: FieldBar, Range: Range{Min: 0.5, Max: 1.5},
					Value: func(d *HUDData) float64 { return d.Stats.JMean }},
				{Label: "J p10-p90",
					Text: func(d *HUDData) string {
						return fmt.Sprintf("%.3f - %.3f", d.Stats.JP10, d.Stats.JP90)
					}},
				{Label: "Height", Kind: FieldBar, Range: Unit,
					Value: func(d *HUDData) float64 { return d.Stats.YMax }},
			},
		},
		{
			Title:   "Substep",
			Visible: func(d *HUDData) bool { return d.Perf.AvgSubstep > 0 },
			Fields: []Field{
				{Label: "Avg",
					Text: func(d *HUDData) string {
						return fmt.Sprintf("%d us", d.Perf.AvgSubstep.Microseconds())
					}},
				{Label: "P2G %", Kind: FieldBar, Range: Range{Max: 100},
					Value: func(d *HUDData) float64 { return d.Perf.PhasePct[mpm.PhaseP2G] }},
				{Label: "Grid %", Kind: FieldBar, Range: Range{Max: 100},
					Value: func(d *HUDData) float64 { return d.Perf.PhasePct[mpm.PhaseGridUpdate] }},
				{Label: "G2P %", Kind: FieldBar, Range: Range{Max: 100},
					Value: func(d *HUDData) float64 { return d.Perf.PhasePct[mpm.PhaseG2P] }},
			},
		},
	}
}

// Draw renders the HUD.
func (h *HUD) Draw(data HUDData) {
	rl.DrawText(data.Title, 10, 10, 20, rl.White)

	frame := fmt.Sprintf("Frame: %d", data.Frame)
	if data.FrameBudget > 0 {
		frame = fmt.Sprintf("Frame: %d/%d", data.Frame, data.FrameBudget)
	}
	rl.DrawText(
		fmt.Sprintf("%s | t = %.3fs | FPS: %d", frame, data.SimTime, data.FPS),
		10, 35, 16, rl.LightGray,
	)

	statusText := data.State
	if data.Paused {
		statusText = "PAUSED"
	}
	rl.DrawText(statusText, 10, 55, 16, rl.Yellow)

	h.drawStats(&data)
}

func (h *HUD) drawStats(data *HUDData) {
	r := h.renderer
	padding := r.Theme.Padding

	var height int32
	for _, sd := range h.sections {
		height += r.SectionHeight(sd, data)
	}
	if height == 0 {
		return
	}

	x := data.ScreenWidth - h.width - padding
	y := padding
	r.DrawPanel(x, y, h.width, height+padding*2)

	y += padding
	for _, sd := range h.sections {
		y = r.DrawSection(x+padding, y, sd, data, h.width-padding*2)
	}
}

// DrawControls renders the control legend at the bottom of the screen.
func (h *HUD) DrawControls(screenWidth, screenHeight int32, controls string) {
	rl.DrawText(controls, 10, screenHeight-25, 14, rl.Gray)
}

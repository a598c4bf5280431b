// Package renderer draws simulation frames with raylib.
package renderer

import (
	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/snowmpm/camera"
	"github.com/pthm-cable/snowmpm/mpm"
)

var (
	snowColor   = rl.Color{R: 235, G: 242, B: 255, A: 220}
	floorColor  = rl.Color{R: 70, G: 80, B: 95, A: 255}
	domainColor = rl.Color{R: 60, G: 70, B: 80, A: 255}
	gridColor   = rl.Color{R: 35, G: 40, B: 48, A: 255}
)

// ParticleView renders particle positions through a camera.
type ParticleView struct {
	cam       *camera.Camera
	nGrid     int
	floorRows int
	pointSize float32

	ShowGrid bool
}

// NewParticleView creates a view for a lattice of nGrid cells per side.
func NewParticleView(cam *camera.Camera, nGrid, floorRows int, pointSize float32) *ParticleView {
	if pointSize <= 0 {
		pointSize = 1.5
	}
	return &ParticleView{
		cam:       cam,
		nGrid:     nGrid,
		floorRows: floorRows,
		pointSize: pointSize,
	}
}

// Draw renders the domain outline, the floor band and the particles.
func (v *ParticleView) Draw(positions []mpm.Vec2) {
	if v.ShowGrid {
		v.drawGrid()
	}
	v.drawFloor()
	v.drawDomain()

	// Scale points with zoom so density reads the same at any magnification.
	radius := v.pointSize * v.cam.Zoom
	for _, p := range positions {
		x, y := float32(p[0]), float32(p[1])
		if !v.cam.IsVisible(x, y, radius) {
			continue
		}
		sx, sy := v.cam.WorldToScreen(x, y)
		if radius < 1 {
			rl.DrawPixel(int32(sx), int32(sy), snowColor)
			continue
		}
		rl.DrawCircleV(rl.Vector2{X: sx, Y: sy}, radius, snowColor)
	}
}

func (v *ParticleView) drawDomain() {
	x0, y0 := v.cam.WorldToScreen(0, 1)
	x1, y1 := v.cam.WorldToScreen(1, 0)
	rl.DrawRectangleLinesEx(rl.Rectangle{X: x0, Y: y0, Width: x1 - x0, Height: y1 - y0}, 1, domainColor)
}

func (v *ParticleView) drawFloor() {
	if v.floorRows <= 0 || v.nGrid <= 0 {
		return
	}
	top := float32(v.floorRows) / float32(v.nGrid)
	x0, y0 := v.cam.WorldToScreen(0, top)
	x1, y1 := v.cam.WorldToScreen(1, 0)
	rl.DrawRectangleRec(rl.Rectangle{X: x0, Y: y0, Width: x1 - x0, Height: y1 - y0}, floorColor)
}

func (v *ParticleView) drawGrid() {
	if v.nGrid <= 0 {
		return
	}
	dx := 1 / float32(v.nGrid)
	for i := 1; i < v.nGrid; i++ {
		t := float32(i) * dx
		ax, ay := v.cam.WorldToScreen(t, 0)
		bx, by := v.cam.WorldToScreen(t, 1)
		rl.DrawLineV(rl.Vector2{X: ax, Y: ay}, rl.Vector2{X: bx, Y: by}, gridColor)
		ax, ay = v.cam.WorldToScreen(0, t)
		bx, by = v.cam.WorldToScreen(1, t)
		rl.DrawLineV(rl.Vector2{X: ax, Y: ay}, rl.Vector2{X: bx, Y: by}, gridColor)
	}
}

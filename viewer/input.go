package viewer

import rl "github.com/gen2brain/raylib-go/raylib"

// handleInput processes keyboard and mouse input.
func (v *Viewer) handleInput() {
	v.handleResize()

	if rl.IsKeyPressed(rl.KeyF11) {
		rl.ToggleFullscreen()
	}
	if rl.IsKeyPressed(rl.KeySpace) {
		v.togglePause()
	}
	if rl.IsKeyPressed(rl.KeyS) && v.paused.Load() {
		v.send(cmdStep)
	}
	if rl.IsKeyPressed(rl.KeyR) {
		v.send(cmdReset)
	}
	if rl.IsKeyPressed(rl.KeyP) {
		v.send(cmdSnapshot)
	}
	if rl.IsKeyPressed(rl.KeyG) {
		v.particles.ShowGrid = !v.particles.ShowGrid
	}
	if rl.IsKeyPressed(rl.KeyTab) {
		v.controls.Toggle()
	}

	v.handleCameraInput()
}

// handleResize checks for window resize and propagates new dimensions.
func (v *Viewer) handleResize() {
	if !rl.IsWindowResized() {
		return
	}
	w := float32(rl.GetScreenWidth())
	h := float32(rl.GetScreenHeight())
	if w == v.screenWidth && h == v.screenHeight {
		return
	}
	v.screenWidth = w
	v.screenHeight = h
	v.camera.Resize(w, h)
}

// handleCameraInput processes camera pan/zoom controls.
func (v *Viewer) handleCameraInput() {
	const panSpeed = 8

	// Arrows move the view, so they pan opposite to a drag.
	if rl.IsKeyDown(rl.KeyRight) {
		v.camera.Pan(-panSpeed, 0)
	}
	if rl.IsKeyDown(rl.KeyLeft) {
		v.camera.Pan(panSpeed, 0)
	}
	if rl.IsKeyDown(rl.KeyUp) {
		v.camera.Pan(0, panSpeed)
	}
	if rl.IsKeyDown(rl.KeyDown) {
		v.camera.Pan(0, -panSpeed)
	}

	if rl.IsMouseButtonDown(rl.MouseButtonRight) {
		d := rl.GetMouseDelta()
		v.camera.Pan(d.X, d.Y)
	}

	if wheel := rl.GetMouseWheelMove(); wheel != 0 {
		v.camera.ZoomBy(1 + wheel*0.1)
	}
	if rl.IsKeyPressed(rl.KeyEqual) || rl.IsKeyPressed(rl.KeyKpAdd) {
		v.camera.ZoomBy(1.25)
	}
	if rl.IsKeyPressed(rl.KeyMinus) || rl.IsKeyPressed(rl.KeyKpSubtract) {
		v.camera.ZoomBy(0.8)
	}

	if rl.IsKeyPressed(rl.KeyHome) {
		v.camera.Reset()
	}
}

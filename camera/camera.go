// Package camera maps the unit simulation square onto a screen viewport.
package camera

// Camera controls the viewport into simulation space. Simulation y points
// up; screen y points down.
type Camera struct {
	// Position is the camera center in simulation coordinates
	X, Y float32

	// Zoom level (1.0 = the unit square fits the shorter viewport side)
	Zoom float32

	// Viewport dimensions (screen size)
	ViewportW, ViewportH float32

	// Zoom constraints
	MinZoom, MaxZoom float32
}

// New creates a camera centered on the unit square with 1:1 zoom.
func New(viewportW, viewportH float32) *Camera {
	return &Camera{
		X:         0.5,
		Y:         0.5,
		Zoom:      1.0,
		ViewportW: viewportW,
		ViewportH: viewportH,
		MinZoom:   0.5,
		MaxZoom:   8.0,
	}
}

// PixelsPerUnit returns the current screen scale of one simulation unit.
func (c *Camera) PixelsPerUnit() float32 {
	side := c.ViewportW
	if c.ViewportH < side {
		side = c.ViewportH
	}
	return side * c.Zoom
}

// WorldToScreen converts simulation coordinates to screen coordinates.
func (c *Camera) WorldToScreen(wx, wy float32) (sx, sy float32) {
	s := c.PixelsPerUnit()
	sx = c.ViewportW/2 + (wx-c.X)*s
	sy = c.ViewportH/2 - (wy-c.Y)*s
	return sx, sy
}

// ScreenToWorld converts screen coordinates to simulation coordinates.
func (c *Camera) ScreenToWorld(sx, sy float32) (wx, wy float32) {
	s := c.PixelsPerUnit()
	wx = c.X + (sx-c.ViewportW/2)/s
	wy = c.Y - (sy-c.ViewportH/2)/s
	return wx, wy
}

// IsVisible returns true if a point with the given screen radius could be
// visible (conservative check for culling).
func (c *Camera) IsVisible(wx, wy, radius float32) bool {
	sx, sy := c.WorldToScreen(wx, wy)
	return sx >= -radius && sx <= c.ViewportW+radius &&
		sy >= -radius && sy <= c.ViewportH+radius
}

// Resize updates viewport dimensions.
func (c *Camera) Resize(viewportW, viewportH float32) {
	c.ViewportW = viewportW
	c.ViewportH = viewportH
}

// Pan moves the view by the given delta in screen pixels, as when dragging
// the scene. The center stays inside the unit square.
func (c *Camera) Pan(dx, dy float32) {
	s := c.PixelsPerUnit()
	c.X = clamp(c.X-dx/s, 0, 1)
	c.Y = clamp(c.Y+dy/s, 0, 1)
}

// SetZoom sets the zoom level, clamped to min/max.
func (c *Camera) SetZoom(zoom float32) {
	c.Zoom = clamp(zoom, c.MinZoom, c.MaxZoom)
}

// ZoomBy multiplies the current zoom by the given factor.
func (c *Camera) ZoomBy(factor float32) {
	c.SetZoom(c.Zoom * factor)
}

// Reset returns the camera to the default position and zoom.
func (c *Camera) Reset() {
	c.X = 0.5
	c.Y = 0.5
	c.Zoom = 1.0
}

// VisibleWorldBounds returns the simulation-space bounds of the visible area.
func (c *Camera) VisibleWorldBounds() (minX, minY, maxX, maxY float32) {
	s := c.PixelsPerUnit()
	halfW := c.ViewportW / (2 * s)
	halfH := c.ViewportH / (2 * s)

	minX = c.X - halfW
	maxX = c.X + halfW
	minY = c.Y - halfH
	maxY = c.Y + halfH
	return
}

// clamp restricts a value to a range.
func clamp(x, min, max float32) float32 {
	if x < min {
		return min
	}
	if x > max {
		return max
	}
	return x
}

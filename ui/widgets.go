package ui

import (
	"fmt"

	rl "github.com/gen2brain/raylib-go/raylib"
)

// Renderer draws panels and fields with one Theme.
type Renderer struct {
	Theme Theme
}

// NewRenderer creates a renderer with the default theme.
func NewRenderer() *Renderer {
	return &Renderer{Theme: DefaultTheme()}
}

// DrawPanel draws a bordered panel background.
func (r *Renderer) DrawPanel(x, y, width, height int32) {
	rl.DrawRectangle(x, y, width, height, r.Theme.PanelBg)
	rl.DrawRectangleLines(x, y, width, height, r.Theme.PanelBorder)
}

// DrawField draws fd at (x, y) and returns the y of the next line.
func (r *Renderer) DrawField(x, y int32, fd Field, d *HUDData, width int32) int32 {
	t := r.Theme
	rl.DrawText(fd.Label+":", x, y, t.FontSize, t.Label)
	vx := x + t.LabelWidth

	if fd.Kind == FieldBar {
		var v float64
		if fd.Value != nil {
			v = fd.Value(d)
		}
		barW := width - t.LabelWidth - 50
		rl.DrawRectangle(vx, y+2, barW, t.BarHeight, t.BarBg)
		rl.DrawRectangle(vx, y+2, int32(float64(barW)*fd.Range.Fraction(v)), t.BarHeight, t.BarFill)
		rl.DrawText(fmt.Sprintf("%.2f", v), vx+barW+5, y, t.FontSize, t.Value)
		return y + r.fieldHeight(fd)
	}

	rl.DrawText(fieldText(fd, d), vx, y, t.FontSize, t.Value)
	return y + r.fieldHeight(fd)
}

func fieldText(fd Field, d *HUDData) string {
	switch {
	case fd.Text != nil:
		return fd.Text(d)
	case fd.Value != nil:
		format := fd.Format
		if format == "" {
			format = "%.3f"
		}
		return fmt.Sprintf(format, fd.Value(d))
	}
	return ""
}

func (r *Renderer) fieldHeight(fd Field) int32 {
	if fd.Kind == FieldBar {
		return r.Theme.LineHeight + 2
	}
	return r.Theme.LineHeight
}

// DrawSection draws the section header and fields, returning the next y.
// Hidden sections take no space.
func (r *Renderer) DrawSection(x, y int32, s Section, d *HUDData, width int32) int32 {
	if !s.shown(d) {
		return y
	}
	if s.Title != "" {
		rl.DrawText(s.Title, x, y, r.Theme.HeaderSize, r.Theme.Header)
		y += r.Theme.LineHeight
	}
	for _, fd := range s.Fields {
		y = r.DrawField(x, y, fd, d, width)
	}
	return y + 4
}

// SectionHeight is the height DrawSection would use.
func (r *Renderer) SectionHeight(s Section, d *HUDData) int32 {
	if !s.shown(d) {
		return 0
	}
	var h int32
	if s.Title != "" {
		h += r.Theme.LineHeight
	}
	for _, fd := range s.Fields {
		h += r.fieldHeight(fd)
	}
	return h + 4
}

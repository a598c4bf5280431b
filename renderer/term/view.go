// Package term draws simulation frames into a tcell terminal screen.
package term

import (
	"github.com/gdamore/tcell/v2"

	"github.com/pthm-cable/snowmpm/camera"
	"github.com/pthm-cable/snowmpm/driver"
)

// densityRunes maps a per-cell particle count to a glyph.
var densityRunes = []rune{' ', '.', ':', '+', '*', '#', '@'}

// View plots particle density into terminal cells. The last row is
// reserved for a status line.
type View struct {
	screen tcell.Screen
	cam    *camera.Camera
	floorY float64 // simulation-space height of the floor band

	counts []int

	snowStyle   tcell.Style
	floorStyle  tcell.Style
	statusStyle tcell.Style
}

// NewView creates a view drawing into screen. floorY marks the top
// of the floor band in simulation space (0 disables it).
func NewView(screen tcell.Screen, floorY float64) *View {
	v := &View{
		screen:      screen,
		floorY:      floorY,
		snowStyle:   tcell.StyleDefault.Foreground(tcell.ColorWhite),
		floorStyle:  tcell.StyleDefault.Foreground(tcell.ColorGray),
		statusStyle: tcell.StyleDefault.Foreground(tcell.ColorYellow),
	}
	v.cam = camera.New(1, 1)
	v.resize()
	return v
}

// resize fits the camera to the screen. Cells are about twice as tall as
// they are wide, so the camera works in half-rows.
func (v *View) resize() (cols, rows int) {
	w, h := v.screen.Size()
	rows = h - 1
	if rows < 1 {
		rows = 1
	}
	v.cam.Resize(float32(w), float32(rows*2))
	return w, rows
}

// Cell returns the terminal cell for a simulation-space point and whether it
// falls inside the plot area.
func (v *View) Cell(x, y float64) (col, row int, ok bool) {
	sx, sy := v.cam.WorldToScreen(float32(x), float32(y))
	if sx < 0 || sy < 0 {
		return 0, 0, false
	}
	col = int(sx)
	row = int(sy / 2)
	w := int(v.cam.ViewportW)
	rows := int(v.cam.ViewportH) / 2
	if col >= w || row >= rows {
		return 0, 0, false
	}
	return col, row, true
}

// Draw renders f and the status line, then shows the screen.
func (v *View) Draw(f driver.Frame, status string) {
	cols, rows := v.resize()
	v.screen.Clear()

	n := cols * rows
	if cap(v.counts) < n {
		v.counts = make([]int, n)
	}
	v.counts = v.counts[:n]
	clear(v.counts)

	for _, p := range f.Positions {
		col, row, ok := v.Cell(p[0], p[1])
		if !ok {
			continue
		}
		v.counts[row*cols+col]++
	}

	floorRow := -1
	if v.floorY > 0 {
		if _, r, ok := v.Cell(0.5, v.floorY); ok {
			floorRow = r
		}
	}

	for row := 0; row < rows; row++ {
		for col := 0; col < cols; col++ {
			c := v.counts[row*cols+col]
			if c > 0 {
				if c >= len(densityRunes) {
					c = len(densityRunes) - 1
				}
				v.screen.SetContent(col, row, densityRunes[c], nil, v.snowStyle)
			} else if row == floorRow {
				v.screen.SetContent(col, row, '_', nil, v.floorStyle)
			}
		}
	}

	for i, r := range []rune(status) {
		if i >= cols {
			break
		}
		v.screen.SetContent(i, rows, r, nil, v.statusStyle)
	}

	v.screen.Show()
}

package term

import (
	"testing"

	"github.com/gdamore/tcell/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pthm-cable/snowmpm/driver"
	"github.com/pthm-cable/snowmpm/mpm"
)

func newTestScreen(t *testing.T, w, h int) tcell.SimulationScreen {
	t.Helper()
	screen := tcell.NewSimulationScreen("UTF-8")
	require.NoError(t, screen.Init())
	screen.SetSize(w, h)
	t.Cleanup(screen.Fini)
	return screen
}

func runeAt(s tcell.Screen, x, y int) rune {
	r, _, _, _ := s.GetContent(x, y)
	return r
}

func TestCellMapping(t *testing.T) {
	screen := newTestScreen(t, 40, 21)
	v := NewView(screen, 0)

	tests := []struct {
		name     string
		x, y     float64
		col, row int
		ok       bool
	}{
		{"center", 0.5, 0.5, 20, 10, true},
		{"top-left", 0.01, 0.99, 0, 0, true},
		{"bottom-right", 0.99, 0.01, 39, 19, true},
		{"left of domain", -0.1, 0.5, 0, 0, false},
		{"below domain", 0.5, -0.1, 0, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			col, row, ok := v.Cell(tt.x, tt.y)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.col, col)
				assert.Equal(t, tt.row, row)
			}
		})
	}
}

func TestDrawPlotsDensity(t *testing.T) {
	screen := newTestScreen(t, 40, 21)
	v := NewView(screen, 0)

	f := driver.Frame{
		Index: 1,
		Positions: []mpm.Vec2{
			{0.5, 0.5},
			{0.26, 0.74}, {0.26, 0.74}, {0.26, 0.74},
			{2, 2}, // outside the plot, ignored
		},
	}
	v.Draw(f, "frame 1")

	assert.Equal(t, '.', runeAt(screen, 20, 10), "single particle")
	assert.Equal(t, '+', runeAt(screen, 10, 5), "three particles in one cell")
	assert.Equal(t, ' ', runeAt(screen, 30, 15))

	status := ""
	for i := 0; i < 7; i++ {
		status += string(runeAt(screen, i, 20))
	}
	assert.Equal(t, "frame 1", status)
}

func TestDrawSaturatesDensity(t *testing.T) {
	screen := newTestScreen(t, 20, 11)
	v := NewView(screen, 0)

	positions := make([]mpm.Vec2, 50)
	for i := range positions {
		positions[i] = mpm.Vec2{0.5, 0.5}
	}
	v.Draw(driver.Frame{Positions: positions}, "")

	assert.Equal(t, '@', runeAt(screen, 10, 5))
}

func TestDrawFloorBand(t *testing.T) {
	screen := newTestScreen(t, 40, 21)
	v := NewView(screen, 5.0/32.0)

	v.Draw(driver.Frame{Positions: []mpm.Vec2{{0.5, 0.5}}}, "")

	// floor at y=0.15625 -> sy=33.75 -> row 16
	assert.Equal(t, '_', runeAt(screen, 0, 16))
	assert.Equal(t, '_', runeAt(screen, 39, 16))
	assert.Equal(t, ' ', runeAt(screen, 0, 15))
}

func TestDrawFollowsResize(t *testing.T) {
	screen := newTestScreen(t, 40, 21)
	v := NewView(screen, 0)
	v.Draw(driver.Frame{}, "")

	screen.SetSize(20, 11)
	v.Draw(driver.Frame{Positions: []mpm.Vec2{{0.5, 0.5}}}, "")

	assert.Equal(t, '.', runeAt(screen, 10, 5))
}

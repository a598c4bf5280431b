// Package ui draws the graphical viewer's HUD and control panel. Stats panels
// are declared as field lists over HUDData instead of hand-placed text.
package ui

import rl "github.com/gen2brain/raylib-go/raylib"

// FieldKind selects how a field is drawn.
type FieldKind int

const (
	FieldText FieldKind = iota // label: formatted value
	FieldBar                   // label, bar over Range, value
)

// Range bounds a bar field.
type Range struct {
	Min, Max float64
}

// Unit is the [0, 1] range, which matches simulation-space coordinates.
var Unit = Range{Min: 0, Max: 1}

// Fraction maps v into [0, 1], saturating outside the range.
func (r Range) Fraction(v float64) float64 {
	if r.Max <= r.Min {
		return 0
	}
	return min(max((v-r.Min)/(r.Max-r.Min), 0), 1)
}

// Field is one line of a stats panel.
type Field struct {
	Label  string
	Kind   FieldKind
	Format string // for FieldText with Value; default "%.3f"
	Range  Range  // for FieldBar
	Value  func(*HUDData) float64
	Text   func(*HUDData) string // overrides Value for FieldText
}

// Section is a titled group of fields, shown when Visible is nil or true.
type Section struct {
	Title   string
	Fields  []Field
	Visible func(*HUDData) bool
}

func (s Section) shown(d *HUDData) bool { return s.Visible == nil || s.Visible(d) }

// Theme holds UI styling constants.
type Theme struct {
	PanelBg     rl.Color
	PanelBorder rl.Color
	Header      rl.Color
	Label       rl.Color
	Value       rl.Color
	BarBg       rl.Color
	BarFill     rl.Color

	Padding    int32
	LineHeight int32
	LabelWidth int32
	BarHeight  int32
	FontSize   int32
	HeaderSize int32
}

// DefaultTheme is a dark panel with cold accents.
func DefaultTheme() Theme {
	return Theme{
		PanelBg:     rl.Color{R: 16, G: 20, B: 28, A: 235},
		PanelBorder: rl.Color{R: 70, G: 84, B: 100, A: 255},
		Header:      rl.Color{R: 150, G: 200, B: 255, A: 255},
		Label:       rl.LightGray,
		Value:       rl.RayWhite,
		BarBg:       rl.Color{R: 36, G: 40, B: 48, A: 255},
		BarFill:     rl.Color{R: 170, G: 210, B: 240, A: 255},
		Padding:     10,
		LineHeight:  16,
		LabelWidth:  90,
		BarHeight:   10,
		FontSize:    12,
		HeaderSize:  14,
	}
}

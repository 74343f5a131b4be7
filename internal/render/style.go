package render

import (
	"fmt"
	"image/color"
	"sort"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/palette/moreland"
	"gonum.org/v1/plot/plotter"
)

// StyleConfig controls figure titling and appearance. Zero values leave the
// plot defaults untouched; Grid defaults to enabled.
type StyleConfig struct {
	Title    string
	XLabel   string
	YLabel   string
	Grid     *bool
	Alpha    *float64
	Colormap string
}

// GridEnabled reports whether grid lines should be drawn.
func (s StyleConfig) GridEnabled() bool {
	if s.Grid == nil {
		return true
	}
	return *s.Grid
}

// Validate rejects style values the renderer cannot honor.
func (s StyleConfig) Validate() error {
	if s.Alpha != nil && (*s.Alpha < 0 || *s.Alpha > 1) {
		return fmt.Errorf("alpha must be between 0 and 1, got %g", *s.Alpha)
	}
	if s.Colormap != "" {
		if _, err := Palette(s.Colormap, 2); err != nil {
			return err
		}
	}
	return nil
}

// Apply sets title, axis labels, and the background grid on a plot.
func (s StyleConfig) Apply(p *plot.Plot) {
	if s.Title != "" {
		p.Title.Text = s.Title
	}
	if s.XLabel != "" {
		p.X.Label.Text = s.XLabel
	}
	if s.YLabel != "" {
		p.Y.Label.Text = s.YLabel
	}
	if s.GridEnabled() {
		p.Add(plotter.NewGrid())
	}
}

// WithAlpha overlays the configured transparency onto a color.
func (s StyleConfig) WithAlpha(c color.Color) color.Color {
	if s.Alpha == nil {
		return c
	}
	r, g, b, _ := c.RGBA()
	return color.NRGBA{
		R: uint8(r >> 8),
		G: uint8(g >> 8),
		B: uint8(b >> 8),
		A: uint8(*s.Alpha * 255),
	}
}

// DefaultColormap is used when a tool call does not name one.
const DefaultColormap = "kindlmann"

// paletteBuilders maps colormap names onto gonum palette constructors.
// viridis and plasma are accepted as aliases for the perceptually uniform
// moreland maps so clients written against matplotlib names keep working.
var paletteBuilders = map[string]func(colors int) palette.Palette{
	"heat": func(colors int) palette.Palette {
		return palette.Heat(colors, 1)
	},
	"rainbow": func(colors int) palette.Palette {
		return palette.Rainbow(colors, palette.Blue, palette.Red, 1, 1, 1)
	},
	"kindlmann":          morelandPalette(moreland.Kindlmann),
	"viridis":            morelandPalette(moreland.Kindlmann),
	"extended_kindlmann": morelandPalette(moreland.ExtendedKindlmann),
	"plasma":             morelandPalette(moreland.ExtendedKindlmann),
	"blue_red":           morelandPalette(moreland.SmoothBlueRed),
	"rdbu":               morelandPalette(moreland.SmoothBlueRed),
	"green_red":          morelandPalette(moreland.SmoothGreenRed),
	"black_body":         morelandPalette(moreland.BlackBody),
}

// morelandPalette adapts a moreland constructor into a sized palette builder.
// The type parameter admits both plain and diverging colormap constructors.
func morelandPalette[M palette.ColorMap](build func() M) func(colors int) palette.Palette {
	return func(colors int) palette.Palette {
		cm := build()
		cm.SetMin(0)
		cm.SetMax(1)
		return cm.Palette(colors)
	}
}

// Palette resolves a colormap name into a discrete palette. An empty name
// selects the default colormap.
func Palette(name string, colors int) (palette.Palette, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		key = DefaultColormap
	}
	build, ok := paletteBuilders[key]
	if !ok {
		return nil, fmt.Errorf("unknown colormap %q: available colormaps: %s", name, strings.Join(ColormapNames(), ", "))
	}
	if colors < 2 {
		colors = 2
	}
	return build(colors), nil
}

// ColormapNames lists the registered colormap names in sorted order.
func ColormapNames() []string {
	names := make([]string, 0, len(paletteBuilders))
	for name := range paletteBuilders {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ColorAt maps a normalized position in [0, 1] onto a palette color.
func ColorAt(pal palette.Palette, t float64) color.Color {
	colors := pal.Colors()
	if len(colors) == 0 {
		return color.Black
	}
	if t < 0 {
		t = 0
	}
	if t > 1 {
		t = 1
	}
	idx := int(t * float64(len(colors)-1))
	return colors[idx]
}

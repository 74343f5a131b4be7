// Package render turns configured gonum plots into encoded image bytes.
//
// Figure dimensions are expressed in centimeters and the raster resolution in
// DPI, mirroring how publication figures are sized. Encoding never touches the
// filesystem; every format is written to an in-memory buffer.
package render

import (
	"bytes"
	"fmt"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
	"gonum.org/v1/plot/vg/vgpdf"
	"gonum.org/v1/plot/vg/vgsvg"
)

// Format identifies an output encoding.
type Format string

const (
	// FormatPNG is the raster output format.
	FormatPNG Format = "png"
	// FormatPDF is the vector document output format.
	FormatPDF Format = "pdf"
	// FormatSVG is the vector image output format.
	FormatSVG Format = "svg"
)

// Output defaults applied when a tool call omits them.
const (
	DefaultWidthCm  = 15.0
	DefaultHeightCm = 10.0
	DefaultDPI      = 300
)

// OutputConfig controls the encoded output of a figure.
type OutputConfig struct {
	Format   Format
	WidthCm  float64
	HeightCm float64
	DPI      int
}

// ParseFormat resolves a format label. An empty label selects PNG.
func ParseFormat(value string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", string(FormatPNG):
		return FormatPNG, nil
	case string(FormatPDF):
		return FormatPDF, nil
	case string(FormatSVG):
		return FormatSVG, nil
	default:
		return "", fmt.Errorf("unsupported format %q: supported formats are png, pdf, svg", value)
	}
}

// MIMEType returns the media type for the format.
func (f Format) MIMEType() string {
	switch f {
	case FormatPDF:
		return "application/pdf"
	case FormatSVG:
		return "image/svg+xml"
	default:
		return "image/png"
	}
}

// withDefaults fills unset fields and validates the rest.
func (c OutputConfig) withDefaults() (OutputConfig, error) {
	if c.Format == "" {
		c.Format = FormatPNG
	}
	if c.WidthCm == 0 {
		c.WidthCm = DefaultWidthCm
	}
	if c.HeightCm == 0 {
		c.HeightCm = DefaultHeightCm
	}
	if c.DPI == 0 {
		c.DPI = DefaultDPI
	}
	if c.WidthCm <= 0 || c.HeightCm <= 0 {
		return OutputConfig{}, fmt.Errorf("figure dimensions must be positive, got %gx%g cm", c.WidthCm, c.HeightCm)
	}
	if c.DPI <= 0 {
		return OutputConfig{}, fmt.Errorf("dpi must be positive, got %d", c.DPI)
	}
	return c, nil
}

// Encode draws the plot and returns the encoded bytes together with the
// resolved output configuration.
func Encode(p *plot.Plot, cfg OutputConfig) ([]byte, OutputConfig, error) {
	resolved, err := cfg.withDefaults()
	if err != nil {
		return nil, OutputConfig{}, err
	}

	width := vg.Length(resolved.WidthCm) * vg.Centimeter
	height := vg.Length(resolved.HeightCm) * vg.Centimeter

	var buf bytes.Buffer
	switch resolved.Format {
	case FormatPNG:
		canvas := vgimg.NewWith(
			vgimg.UseWH(width, height),
			vgimg.UseDPI(resolved.DPI),
		)
		p.Draw(draw.New(canvas))
		png := vgimg.PngCanvas{Canvas: canvas}
		if _, err := png.WriteTo(&buf); err != nil {
			return nil, OutputConfig{}, fmt.Errorf("encode png: %w", err)
		}
	case FormatPDF:
		canvas := vgpdf.New(width, height)
		p.Draw(draw.New(canvas))
		if _, err := canvas.WriteTo(&buf); err != nil {
			return nil, OutputConfig{}, fmt.Errorf("encode pdf: %w", err)
		}
	case FormatSVG:
		canvas := vgsvg.New(width, height)
		p.Draw(draw.New(canvas))
		if _, err := canvas.WriteTo(&buf); err != nil {
			return nil, OutputConfig{}, fmt.Errorf("encode svg: %w", err)
		}
	default:
		return nil, OutputConfig{}, fmt.Errorf("unsupported format %q", resolved.Format)
	}

	return buf.Bytes(), resolved, nil
}

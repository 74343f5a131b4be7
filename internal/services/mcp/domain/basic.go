package domain

import (
	"context"
	"fmt"
	"image/color"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/nishide-dev/ml-research-mcp/internal/dataset"
	"github.com/nishide-dev/ml-research-mcp/internal/render"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// defaultSeriesColor is used when a plot has no color mapping.
var defaultSeriesColor = color.NRGBA{R: 0x1f, G: 0x77, B: 0xb4, A: 0xff}

// PlotLineInput represents the MCP tool input for a line plot.
type PlotLineInput struct {
	X         []float64    `json:"x,omitempty" jsonschema:"x-axis values, when not using a data column"`
	XColumn   string       `json:"x_column,omitempty" jsonschema:"column name holding x-axis values"`
	Y         []float64    `json:"y,omitempty" jsonschema:"y-axis values, when not using a data column"`
	YColumn   string       `json:"y_column,omitempty" jsonschema:"column name holding y-axis values"`
	DataInput *DataInput   `json:"data_input,omitempty" jsonschema:"file or inline data backing column references"`
	Style     *StyleInput  `json:"style,omitempty" jsonschema:"optional plot styling"`
	Output    *OutputInput `json:"output,omitempty" jsonschema:"optional output format and dimensions"`
}

// PlotLineTool defines the MCP tool schema for line plots.
func PlotLineTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "plot_line",
		Description: "Creates a line plot from x/y data",
	}
}

// PlotLineHandler renders a line plot.
func PlotLineHandler(loader *dataset.Loader) mcp.ToolHandlerFor[PlotLineInput, PlotResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input PlotLineInput) (*mcp.CallToolResult, PlotResult, error) {
		invocationID, err := NewInvocationID()
		if err != nil {
			return nil, PlotResult{}, fmt.Errorf("generate invocation id: %w", err)
		}

		styleCfg, outputCfg, err := resolvePlotConfig(input.Style, input.Output)
		if err != nil {
			return nil, PlotResult{}, err
		}

		df, loaded, err := loadData(loader, input.DataInput)
		if err != nil {
			return nil, PlotResult{}, err
		}
		xs, err := resolveFloats(df, loaded, input.X, input.XColumn, "x")
		if err != nil {
			return nil, PlotResult{}, err
		}
		ys, err := resolveFloats(df, loaded, input.Y, input.YColumn, "y")
		if err != nil {
			return nil, PlotResult{}, err
		}
		if len(xs) != len(ys) {
			return nil, PlotResult{}, fmt.Errorf("x and y must have the same length, got %d and %d", len(xs), len(ys))
		}

		p := plot.New()
		line, err := plotter.NewLine(xyPoints(xs, ys))
		if err != nil {
			return nil, PlotResult{}, fmt.Errorf("build line: %w", err)
		}
		line.LineStyle.Width = vg.Points(2)
		line.LineStyle.Color = styleCfg.WithAlpha(defaultSeriesColor)
		p.Add(line)
		styleCfg.Apply(p)

		data, resolved, err := render.Encode(p, outputCfg)
		if err != nil {
			return nil, PlotResult{}, fmt.Errorf("render line plot: %w", err)
		}

		meta := ToolCallMetadata{InvocationID: invocationID}
		return figureCallResult(meta, data, resolved.Format), plotSummary(resolved, len(data)), nil
	}
}

// PlotScatterInput represents the MCP tool input for a scatter plot.
type PlotScatterInput struct {
	X           []float64    `json:"x,omitempty" jsonschema:"x-axis values, when not using a data column"`
	XColumn     string       `json:"x_column,omitempty" jsonschema:"column name holding x-axis values"`
	Y           []float64    `json:"y,omitempty" jsonschema:"y-axis values, when not using a data column"`
	YColumn     string       `json:"y_column,omitempty" jsonschema:"column name holding y-axis values"`
	Size        []float64    `json:"size,omitempty" jsonschema:"per-point size values"`
	SizeColumn  string       `json:"size_column,omitempty" jsonschema:"column name holding per-point size values"`
	PointSize   *float64     `json:"point_size,omitempty" jsonschema:"uniform point radius in printer points"`
	Color       []float64    `json:"color,omitempty" jsonschema:"per-point color values mapped through the colormap"`
	ColorColumn string       `json:"color_column,omitempty" jsonschema:"column name holding per-point color values"`
	DataInput   *DataInput   `json:"data_input,omitempty" jsonschema:"file or inline data backing column references"`
	Style       *StyleInput  `json:"style,omitempty" jsonschema:"optional plot styling"`
	Output      *OutputInput `json:"output,omitempty" jsonschema:"optional output format and dimensions"`
}

// PlotScatterTool defines the MCP tool schema for scatter plots.
func PlotScatterTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "plot_scatter",
		Description: "Creates a scatter plot with optional size and color mapping",
	}
}

// PlotScatterHandler renders a scatter plot. Point sizes and colors can carry
// additional data dimensions.
func PlotScatterHandler(loader *dataset.Loader) mcp.ToolHandlerFor[PlotScatterInput, PlotResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input PlotScatterInput) (*mcp.CallToolResult, PlotResult, error) {
		invocationID, err := NewInvocationID()
		if err != nil {
			return nil, PlotResult{}, fmt.Errorf("generate invocation id: %w", err)
		}

		styleCfg, outputCfg, err := resolvePlotConfig(input.Style, input.Output)
		if err != nil {
			return nil, PlotResult{}, err
		}

		df, loaded, err := loadData(loader, input.DataInput)
		if err != nil {
			return nil, PlotResult{}, err
		}
		xs, err := resolveFloats(df, loaded, input.X, input.XColumn, "x")
		if err != nil {
			return nil, PlotResult{}, err
		}
		ys, err := resolveFloats(df, loaded, input.Y, input.YColumn, "y")
		if err != nil {
			return nil, PlotResult{}, err
		}
		if len(xs) != len(ys) {
			return nil, PlotResult{}, fmt.Errorf("x and y must have the same length, got %d and %d", len(xs), len(ys))
		}

		var sizes []float64
		if len(input.Size) > 0 || input.SizeColumn != "" {
			sizes, err = resolveFloats(df, loaded, input.Size, input.SizeColumn, "size")
			if err != nil {
				return nil, PlotResult{}, err
			}
			if len(sizes) != len(xs) {
				return nil, PlotResult{}, fmt.Errorf("size must have the same length as x, got %d and %d", len(sizes), len(xs))
			}
		}

		var colors []float64
		if len(input.Color) > 0 || input.ColorColumn != "" {
			colors, err = resolveFloats(df, loaded, input.Color, input.ColorColumn, "color")
			if err != nil {
				return nil, PlotResult{}, err
			}
			if len(colors) != len(xs) {
				return nil, PlotResult{}, fmt.Errorf("color must have the same length as x, got %d and %d", len(colors), len(xs))
			}
		}

		p := plot.New()
		scatter, err := plotter.NewScatter(xyPoints(xs, ys))
		if err != nil {
			return nil, PlotResult{}, fmt.Errorf("build scatter: %w", err)
		}

		var pal colorLookup
		if colors != nil {
			discrete, err := render.Palette(styleCfg.Colormap, 256)
			if err != nil {
				return nil, PlotResult{}, err
			}
			pal = colorLookup{palette: discrete, min: minOf(colors), max: maxOf(colors)}
		}
		sizeMin, sizeMax := 0.0, 0.0
		if sizes != nil {
			sizeMin, sizeMax = minOf(sizes), maxOf(sizes)
		}

		scatter.GlyphStyleFunc = func(i int) draw.GlyphStyle {
			style := draw.GlyphStyle{
				Color:  styleCfg.WithAlpha(defaultSeriesColor),
				Radius: vg.Points(3),
				Shape:  draw.CircleGlyph{},
			}
			if input.PointSize != nil {
				style.Radius = vg.Points(*input.PointSize)
			}
			if sizes != nil {
				style.Radius = glyphRadius(sizes[i], sizeMin, sizeMax)
			}
			if colors != nil {
				style.Color = styleCfg.WithAlpha(pal.at(colors[i]))
			}
			return style
		}
		p.Add(scatter)
		styleCfg.Apply(p)

		data, resolved, err := render.Encode(p, outputCfg)
		if err != nil {
			return nil, PlotResult{}, fmt.Errorf("render scatter plot: %w", err)
		}

		meta := ToolCallMetadata{InvocationID: invocationID}
		return figureCallResult(meta, data, resolved.Format), plotSummary(resolved, len(data)), nil
	}
}

// PlotBarInput represents the MCP tool input for a bar plot.
type PlotBarInput struct {
	Categories     []string     `json:"categories,omitempty" jsonschema:"category labels, when not using a data column"`
	CategoryColumn string       `json:"category_column,omitempty" jsonschema:"column name holding category labels"`
	Values         []float64    `json:"values,omitempty" jsonschema:"value per category, when not using a data column"`
	ValueColumn    string       `json:"value_column,omitempty" jsonschema:"column name holding category values"`
	Orientation    string       `json:"orientation,omitempty" jsonschema:"bar orientation: vertical (default) or horizontal"`
	DataInput      *DataInput   `json:"data_input,omitempty" jsonschema:"file or inline data backing column references"`
	Style          *StyleInput  `json:"style,omitempty" jsonschema:"optional plot styling"`
	Output         *OutputInput `json:"output,omitempty" jsonschema:"optional output format and dimensions"`
}

// PlotBarTool defines the MCP tool schema for bar plots.
func PlotBarTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "plot_bar",
		Description: "Creates a vertical or horizontal bar plot for categorical data",
	}
}

// PlotBarHandler renders a bar plot.
func PlotBarHandler(loader *dataset.Loader) mcp.ToolHandlerFor[PlotBarInput, PlotResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input PlotBarInput) (*mcp.CallToolResult, PlotResult, error) {
		invocationID, err := NewInvocationID()
		if err != nil {
			return nil, PlotResult{}, fmt.Errorf("generate invocation id: %w", err)
		}

		styleCfg, outputCfg, err := resolvePlotConfig(input.Style, input.Output)
		if err != nil {
			return nil, PlotResult{}, err
		}

		horizontal := false
		switch strings.ToLower(strings.TrimSpace(input.Orientation)) {
		case "", "vertical":
		case "horizontal":
			horizontal = true
		default:
			return nil, PlotResult{}, fmt.Errorf("orientation must be vertical or horizontal, got %q", input.Orientation)
		}

		df, loaded, err := loadData(loader, input.DataInput)
		if err != nil {
			return nil, PlotResult{}, err
		}
		categories, err := resolveStrings(df, loaded, input.Categories, input.CategoryColumn, "categories")
		if err != nil {
			return nil, PlotResult{}, err
		}
		values, err := resolveFloats(df, loaded, input.Values, input.ValueColumn, "values")
		if err != nil {
			return nil, PlotResult{}, err
		}
		if len(categories) != len(values) {
			return nil, PlotResult{}, fmt.Errorf("categories and values must have the same length, got %d and %d", len(categories), len(values))
		}

		p := plot.New()
		bars, err := plotter.NewBarChart(plotter.Values(values), vg.Points(20))
		if err != nil {
			return nil, PlotResult{}, fmt.Errorf("build bar chart: %w", err)
		}
		bars.Color = styleCfg.WithAlpha(defaultSeriesColor)
		bars.Horizontal = horizontal
		p.Add(bars)
		if horizontal {
			p.NominalY(categories...)
		} else {
			p.NominalX(categories...)
		}
		styleCfg.Apply(p)

		data, resolved, err := render.Encode(p, outputCfg)
		if err != nil {
			return nil, PlotResult{}, fmt.Errorf("render bar plot: %w", err)
		}

		meta := ToolCallMetadata{InvocationID: invocationID}
		return figureCallResult(meta, data, resolved.Format), plotSummary(resolved, len(data)), nil
	}
}

// xyPoints pairs x and y slices into plotter points.
func xyPoints(xs, ys []float64) plotter.XYs {
	points := make(plotter.XYs, len(xs))
	for i := range xs {
		points[i] = plotter.XY{X: xs[i], Y: ys[i]}
	}
	return points
}

// colorLookup maps raw values onto palette colors across the value range.
type colorLookup struct {
	palette palette.Palette
	min     float64
	max     float64
}

func (l colorLookup) at(value float64) color.Color {
	if l.max == l.min {
		return render.ColorAt(l.palette, 0.5)
	}
	return render.ColorAt(l.palette, (value-l.min)/(l.max-l.min))
}

// glyphRadius maps a size value onto a 2..8 point radius.
func glyphRadius(value, min, max float64) vg.Length {
	if max == min {
		return vg.Points(4)
	}
	norm := (value - min) / (max - min)
	return vg.Points(2 + 6*norm)
}

func minOf(values []float64) float64 {
	lowest := values[0]
	for _, v := range values[1:] {
		if v < lowest {
			lowest = v
		}
	}
	return lowest
}

func maxOf(values []float64) float64 {
	highest := values[0]
	for _, v := range values[1:] {
		if v > highest {
			highest = v
		}
	}
	return highest
}

package domain

import (
	"context"
	"fmt"
	"image/color"
	"math"
	"sort"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/nishide-dev/ml-research-mcp/internal/dataset"
	"github.com/nishide-dev/ml-research-mcp/internal/render"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// PlotHistogramInput represents the MCP tool input for a histogram.
type PlotHistogramInput struct {
	Values       []float64    `json:"values,omitempty" jsonschema:"values to bin, when not using a data column"`
	ValuesColumn string       `json:"values_column,omitempty" jsonschema:"column name holding the values to bin"`
	Bins         int          `json:"bins,omitempty" jsonschema:"number of histogram bins (default 30)"`
	Density      bool         `json:"density,omitempty" jsonschema:"normalize bars so the total area is 1"`
	DataInput    *DataInput   `json:"data_input,omitempty" jsonschema:"file or inline data backing column references"`
	Style        *StyleInput  `json:"style,omitempty" jsonschema:"optional plot styling"`
	Output       *OutputInput `json:"output,omitempty" jsonschema:"optional output format and dimensions"`
}

// PlotHistogramTool defines the MCP tool schema for histograms.
func PlotHistogramTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "plot_histogram",
		Description: "Creates a histogram showing the distribution of a set of values",
	}
}

// PlotHistogramHandler renders a binned frequency or density plot.
func PlotHistogramHandler(loader *dataset.Loader) mcp.ToolHandlerFor[PlotHistogramInput, PlotResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input PlotHistogramInput) (*mcp.CallToolResult, PlotResult, error) {
		invocationID, err := NewInvocationID()
		if err != nil {
			return nil, PlotResult{}, fmt.Errorf("generate invocation id: %w", err)
		}

		styleCfg, outputCfg, err := resolvePlotConfig(input.Style, input.Output)
		if err != nil {
			return nil, PlotResult{}, err
		}
		bins := input.Bins
		if bins == 0 {
			bins = 30
		}
		if bins < 1 {
			return nil, PlotResult{}, fmt.Errorf("bins must be positive, got %d", bins)
		}

		df, loaded, err := loadData(loader, input.DataInput)
		if err != nil {
			return nil, PlotResult{}, err
		}
		values, err := resolveFloats(df, loaded, input.Values, input.ValuesColumn, "values")
		if err != nil {
			return nil, PlotResult{}, err
		}

		p := plot.New()
		hist, err := plotter.NewHist(plotter.Values(values), bins)
		if err != nil {
			return nil, PlotResult{}, fmt.Errorf("build histogram: %w", err)
		}
		if input.Density {
			hist.Normalize(1)
		}
		hist.FillColor = distributionFill(styleCfg)
		p.Add(hist)

		if styleCfg.YLabel == "" {
			if input.Density {
				styleCfg.YLabel = "Density"
			} else {
				styleCfg.YLabel = "Frequency"
			}
		}
		styleCfg.Apply(p)

		data, resolved, err := render.Encode(p, outputCfg)
		if err != nil {
			return nil, PlotResult{}, fmt.Errorf("render histogram: %w", err)
		}

		meta := ToolCallMetadata{InvocationID: invocationID}
		return figureCallResult(meta, data, resolved.Format), plotSummary(resolved, len(data)), nil
	}
}

// PlotBoxInput represents the MCP tool input for a box plot.
type PlotBoxInput struct {
	Groups    [][]float64  `json:"groups,omitempty" jsonschema:"value groups, one box per group"`
	Columns   []string     `json:"columns,omitempty" jsonschema:"column names, one box per column"`
	Labels    []string     `json:"labels,omitempty" jsonschema:"labels for the groups"`
	DataInput *DataInput   `json:"data_input,omitempty" jsonschema:"file or inline data backing column references"`
	Style     *StyleInput  `json:"style,omitempty" jsonschema:"optional plot styling"`
	Output    *OutputInput `json:"output,omitempty" jsonschema:"optional output format and dimensions"`
}

// PlotBoxTool defines the MCP tool schema for box plots.
func PlotBoxTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "plot_box",
		Description: "Creates a box plot comparing the distributions of one or more value groups",
	}
}

// PlotBoxHandler renders one box-and-whisker glyph per group.
func PlotBoxHandler(loader *dataset.Loader) mcp.ToolHandlerFor[PlotBoxInput, PlotResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input PlotBoxInput) (*mcp.CallToolResult, PlotResult, error) {
		invocationID, err := NewInvocationID()
		if err != nil {
			return nil, PlotResult{}, fmt.Errorf("generate invocation id: %w", err)
		}

		styleCfg, outputCfg, err := resolvePlotConfig(input.Style, input.Output)
		if err != nil {
			return nil, PlotResult{}, err
		}

		groups, err := resolveGroups(loader, input.DataInput, input.Groups, input.Columns)
		if err != nil {
			return nil, PlotResult{}, err
		}
		labels, err := groupLabels(input.Labels, input.Columns, len(groups))
		if err != nil {
			return nil, PlotResult{}, err
		}

		p := plot.New()
		for i, group := range groups {
			box, err := plotter.NewBoxPlot(vg.Points(20), float64(i), plotter.Values(group))
			if err != nil {
				return nil, PlotResult{}, fmt.Errorf("build box for group %d: %w", i+1, err)
			}
			p.Add(box)
		}
		p.NominalX(labels...)
		styleCfg.Apply(p)

		data, resolved, err := render.Encode(p, outputCfg)
		if err != nil {
			return nil, PlotResult{}, fmt.Errorf("render box plot: %w", err)
		}

		meta := ToolCallMetadata{InvocationID: invocationID}
		return figureCallResult(meta, data, resolved.Format), plotSummary(resolved, len(data)), nil
	}
}

// PlotViolinInput represents the MCP tool input for a violin plot.
type PlotViolinInput struct {
	Groups     [][]float64  `json:"groups,omitempty" jsonschema:"value groups, one violin per group"`
	Columns    []string     `json:"columns,omitempty" jsonschema:"column names, one violin per column"`
	Labels     []string     `json:"labels,omitempty" jsonschema:"labels for the groups"`
	ShowMedian *bool        `json:"show_median,omitempty" jsonschema:"mark the median of each group (default true)"`
	ShowMean   *bool        `json:"show_mean,omitempty" jsonschema:"mark the mean of each group (default true)"`
	DataInput  *DataInput   `json:"data_input,omitempty" jsonschema:"file or inline data backing column references"`
	Style      *StyleInput  `json:"style,omitempty" jsonschema:"optional plot styling"`
	Output     *OutputInput `json:"output,omitempty" jsonschema:"optional output format and dimensions"`
}

// PlotViolinTool defines the MCP tool schema for violin plots.
func PlotViolinTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "plot_violin",
		Description: "Creates a violin plot showing the estimated density of one or more value groups",
	}
}

// PlotViolinHandler renders a kernel density estimate per group, mirrored
// around the group position.
func PlotViolinHandler(loader *dataset.Loader) mcp.ToolHandlerFor[PlotViolinInput, PlotResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input PlotViolinInput) (*mcp.CallToolResult, PlotResult, error) {
		invocationID, err := NewInvocationID()
		if err != nil {
			return nil, PlotResult{}, fmt.Errorf("generate invocation id: %w", err)
		}

		styleCfg, outputCfg, err := resolvePlotConfig(input.Style, input.Output)
		if err != nil {
			return nil, PlotResult{}, err
		}
		showMedian := true
		if input.ShowMedian != nil {
			showMedian = *input.ShowMedian
		}
		showMean := true
		if input.ShowMean != nil {
			showMean = *input.ShowMean
		}

		groups, err := resolveGroups(loader, input.DataInput, input.Groups, input.Columns)
		if err != nil {
			return nil, PlotResult{}, err
		}
		labels, err := groupLabels(input.Labels, input.Columns, len(groups))
		if err != nil {
			return nil, PlotResult{}, err
		}

		p := plot.New()
		fill := distributionFill(styleCfg)
		for i, group := range groups {
			outline, err := violinOutline(group, float64(i))
			if err != nil {
				return nil, PlotResult{}, fmt.Errorf("group %d: %w", i+1, err)
			}
			poly, err := plotter.NewPolygon(outline)
			if err != nil {
				return nil, PlotResult{}, fmt.Errorf("build violin for group %d: %w", i+1, err)
			}
			poly.Color = fill
			p.Add(poly)

			if showMedian {
				if err := addGroupMarker(p, float64(i), median(group), draw.BoxGlyph{}); err != nil {
					return nil, PlotResult{}, err
				}
			}
			if showMean {
				if err := addGroupMarker(p, float64(i), stat.Mean(group, nil), draw.CircleGlyph{}); err != nil {
					return nil, PlotResult{}, err
				}
			}
		}
		p.NominalX(labels...)
		styleCfg.Apply(p)

		data, resolved, err := render.Encode(p, outputCfg)
		if err != nil {
			return nil, PlotResult{}, fmt.Errorf("render violin plot: %w", err)
		}

		meta := ToolCallMetadata{InvocationID: invocationID}
		return figureCallResult(meta, data, resolved.Format), plotSummary(resolved, len(data)), nil
	}
}

// defaultMarkerColor is used for summary-statistic glyphs drawn over a fill.
var defaultMarkerColor = color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}

// distributionFill picks the fill color for histograms and violins. Both are
// translucent unless the caller asked for a specific alpha.
func distributionFill(style render.StyleConfig) color.Color {
	if style.Alpha == nil {
		alpha := 0.7
		style.Alpha = &alpha
	}
	return style.WithAlpha(defaultSeriesColor)
}

// resolveGroups yields the value groups for box and violin plots: either the
// direct groups or the named dataframe columns, never both.
func resolveGroups(loader *dataset.Loader, dataInput *DataInput, groups [][]float64, columns []string) ([][]float64, error) {
	if len(groups) > 0 && len(columns) > 0 {
		return nil, fmt.Errorf("provide either groups or columns, not both")
	}
	if len(columns) > 0 {
		df, loaded, err := loadData(loader, dataInput)
		if err != nil {
			return nil, err
		}
		if !loaded {
			return nil, fmt.Errorf("data_input is required when columns is set")
		}
		resolved := make([][]float64, 0, len(columns))
		for _, column := range columns {
			values, err := dataset.FloatColumn(df, column)
			if err != nil {
				return nil, err
			}
			resolved = append(resolved, values)
		}
		return resolved, nil
	}
	if len(groups) == 0 {
		return nil, fmt.Errorf("groups values are required")
	}
	for i, group := range groups {
		if len(group) == 0 {
			return nil, fmt.Errorf("group %d must not be empty", i+1)
		}
	}
	return groups, nil
}

// groupLabels picks axis labels for grouped plots: explicit labels, column
// names, or 1-based indices.
func groupLabels(labels, columns []string, count int) ([]string, error) {
	if len(labels) > 0 {
		if len(labels) != count {
			return nil, fmt.Errorf("labels must have %d entries, got %d", count, len(labels))
		}
		return labels, nil
	}
	if len(columns) == count {
		return columns, nil
	}
	generated := make([]string, count)
	for i := range generated {
		generated[i] = fmt.Sprintf("%d", i+1)
	}
	return generated, nil
}

// violinHalfWidth is the maximum horizontal extent of one violin, in the
// nominal x units where adjacent groups sit one unit apart.
const violinHalfWidth = 0.4

// violinKDEPoints is the number of evaluation points along the density curve.
const violinKDEPoints = 64

// violinOutline estimates the density of the group with a Gaussian kernel and
// returns the mirrored outline centered at pos.
func violinOutline(values []float64, pos float64) (plotter.XYs, error) {
	if len(values) < 2 {
		return nil, fmt.Errorf("need at least 2 values for a density estimate, got %d", len(values))
	}
	sigma := stat.StdDev(values, nil)
	if sigma == 0 || math.IsNaN(sigma) {
		return nil, fmt.Errorf("values are constant, cannot estimate a density")
	}
	// Silverman's rule of thumb.
	bandwidth := 1.06 * sigma * math.Pow(float64(len(values)), -0.2)

	lo, hi := values[0], values[0]
	for _, v := range values {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	lo -= 3 * bandwidth
	hi += 3 * bandwidth

	ys := make([]float64, violinKDEPoints)
	density := make([]float64, violinKDEPoints)
	maxDensity := 0.0
	step := (hi - lo) / float64(violinKDEPoints-1)
	for i := range ys {
		y := lo + step*float64(i)
		ys[i] = y
		d := 0.0
		for _, v := range values {
			u := (y - v) / bandwidth
			d += math.Exp(-0.5 * u * u)
		}
		d /= float64(len(values)) * bandwidth * math.Sqrt(2*math.Pi)
		density[i] = d
		maxDensity = math.Max(maxDensity, d)
	}

	// Right side bottom to top, then left side top to bottom.
	outline := make(plotter.XYs, 0, 2*violinKDEPoints)
	for i := range ys {
		w := density[i] / maxDensity * violinHalfWidth
		outline = append(outline, plotter.XY{X: pos + w, Y: ys[i]})
	}
	for i := len(ys) - 1; i >= 0; i-- {
		w := density[i] / maxDensity * violinHalfWidth
		outline = append(outline, plotter.XY{X: pos - w, Y: ys[i]})
	}
	return outline, nil
}

func median(values []float64) float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	return stat.Quantile(0.5, stat.Empirical, sorted, nil)
}

// addGroupMarker draws a single summary-statistic glyph at (pos, value).
func addGroupMarker(p *plot.Plot, pos, value float64, shape draw.GlyphDrawer) error {
	marker, err := plotter.NewScatter(plotter.XYs{{X: pos, Y: value}})
	if err != nil {
		return fmt.Errorf("build marker: %w", err)
	}
	marker.GlyphStyle = draw.GlyphStyle{
		Color:  defaultMarkerColor,
		Radius: vg.Points(3),
		Shape:  shape,
	}
	p.Add(marker)
	return nil
}

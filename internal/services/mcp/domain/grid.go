package domain

import (
	"context"
	"fmt"
	"image/color"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/nishide-dev/ml-research-mcp/internal/dataset"
	"github.com/nishide-dev/ml-research-mcp/internal/render"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/text"
)

// matrixGrid adapts a row-major matrix plus axis coordinates to
// plotter.GridXYZ. The row index is aligned with the y coordinates.
type matrixGrid struct {
	x []float64
	y []float64
	z [][]float64
	// flip renders the first matrix row at the top of the figure, matching
	// how matrix data such as confusion matrices is conventionally read.
	flip bool
}

func (g matrixGrid) Dims() (c, r int) { return len(g.x), len(g.y) }
func (g matrixGrid) X(c int) float64  { return g.x[c] }
func (g matrixGrid) Y(r int) float64  { return g.y[r] }

func (g matrixGrid) Z(c, r int) float64 {
	if g.flip {
		return g.z[len(g.z)-1-r][c]
	}
	return g.z[r][c]
}

// indexCoords returns 0..n-1 as float coordinates.
func indexCoords(n int) []float64 {
	coords := make([]float64, n)
	for i := range coords {
		coords[i] = float64(i)
	}
	return coords
}

// constantTicks builds one tick per label at integer positions.
func constantTicks(labels []string) plot.ConstantTicks {
	ticks := make([]plot.Tick, len(labels))
	for i, label := range labels {
		ticks[i] = plot.Tick{Value: float64(i), Label: label}
	}
	return plot.ConstantTicks(ticks)
}

func matrixStats(matrix [][]float64) (min, max, mean float64) {
	first := true
	count := 0
	sum := 0.0
	for _, row := range matrix {
		for _, v := range row {
			if first || v < min {
				min = v
			}
			if first || v > max {
				max = v
			}
			first = false
			sum += v
			count++
		}
	}
	if count > 0 {
		mean = sum / float64(count)
	}
	return min, max, mean
}

// PlotHeatmapInput represents the MCP tool input for a heatmap.
type PlotHeatmapInput struct {
	Matrix       [][]float64  `json:"matrix,omitempty" jsonschema:"matrix values, row by row"`
	MatrixColumn string       `json:"matrix_column,omitempty" jsonschema:"column name holding flattened square matrix values"`
	XLabels      []string     `json:"x_labels,omitempty" jsonschema:"labels for matrix columns"`
	YLabels      []string     `json:"y_labels,omitempty" jsonschema:"labels for matrix rows"`
	Annotate     bool         `json:"annotate,omitempty" jsonschema:"write the value inside each cell"`
	DataInput    *DataInput   `json:"data_input,omitempty" jsonschema:"file or inline data backing column references"`
	Style        *StyleInput  `json:"style,omitempty" jsonschema:"optional plot styling"`
	Output       *OutputInput `json:"output,omitempty" jsonschema:"optional output format and dimensions"`
}

// PlotHeatmapTool defines the MCP tool schema for heatmaps.
func PlotHeatmapTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "plot_heatmap",
		Description: "Creates a heatmap for matrix data such as correlation or confusion matrices",
	}
}

// PlotHeatmapHandler renders a heatmap with optional axis labels and cell
// annotations.
func PlotHeatmapHandler(loader *dataset.Loader) mcp.ToolHandlerFor[PlotHeatmapInput, PlotResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input PlotHeatmapInput) (*mcp.CallToolResult, PlotResult, error) {
		invocationID, err := NewInvocationID()
		if err != nil {
			return nil, PlotResult{}, fmt.Errorf("generate invocation id: %w", err)
		}

		styleCfg, outputCfg, err := resolvePlotConfig(input.Style, input.Output)
		if err != nil {
			return nil, PlotResult{}, err
		}
		// Heatmaps never draw grid lines over the cells.
		gridOff := false
		styleCfg.Grid = &gridOff

		df, loaded, err := loadData(loader, input.DataInput)
		if err != nil {
			return nil, PlotResult{}, err
		}
		matrix, err := resolveMatrix(df, loaded, input.Matrix, input.MatrixColumn, "matrix")
		if err != nil {
			return nil, PlotResult{}, err
		}
		rows, cols := len(matrix), len(matrix[0])
		if len(input.XLabels) > 0 && len(input.XLabels) != cols {
			return nil, PlotResult{}, fmt.Errorf("x_labels must have %d entries, got %d", cols, len(input.XLabels))
		}
		if len(input.YLabels) > 0 && len(input.YLabels) != rows {
			return nil, PlotResult{}, fmt.Errorf("y_labels must have %d entries, got %d", rows, len(input.YLabels))
		}

		pal, err := render.Palette(styleCfg.Colormap, 256)
		if err != nil {
			return nil, PlotResult{}, err
		}

		p := plot.New()
		grid := matrixGrid{
			x:    indexCoords(cols),
			y:    indexCoords(rows),
			z:    matrix,
			flip: true,
		}
		p.Add(plotter.NewHeatMap(grid, pal))

		if len(input.XLabels) > 0 {
			p.X.Tick.Marker = constantTicks(input.XLabels)
		}
		if len(input.YLabels) > 0 {
			// Row labels are listed top-down while the y axis grows upward.
			reversed := make([]string, rows)
			for i, label := range input.YLabels {
				reversed[rows-1-i] = label
			}
			p.Y.Tick.Marker = constantTicks(reversed)
		}

		if input.Annotate {
			if err := annotateCells(p, matrix); err != nil {
				return nil, PlotResult{}, err
			}
		}
		styleCfg.Apply(p)

		data, resolved, err := render.Encode(p, outputCfg)
		if err != nil {
			return nil, PlotResult{}, fmt.Errorf("render heatmap: %w", err)
		}

		meta := ToolCallMetadata{InvocationID: invocationID}
		return figureCallResult(meta, data, resolved.Format), plotSummary(resolved, len(data)), nil
	}
}

// annotateCells writes each value at its cell center. Values below the matrix
// mean are drawn white so they stay readable on dark cells.
func annotateCells(p *plot.Plot, matrix [][]float64) error {
	rows := len(matrix)
	_, _, mean := matrixStats(matrix)

	var xys plotter.XYs
	var texts []string
	for i, row := range matrix {
		for j, v := range row {
			xys = append(xys, plotter.XY{X: float64(j), Y: float64(rows - 1 - i)})
			texts = append(texts, fmt.Sprintf("%.2f", v))
		}
	}

	labels, err := plotter.NewLabels(plotter.XYLabels{XYs: xys, Labels: texts})
	if err != nil {
		return fmt.Errorf("build annotations: %w", err)
	}
	idx := 0
	for _, row := range matrix {
		for _, v := range row {
			labels.TextStyle[idx].XAlign = text.XCenter
			labels.TextStyle[idx].YAlign = text.YCenter
			if v < mean {
				labels.TextStyle[idx].Color = color.White
			} else {
				labels.TextStyle[idx].Color = color.Black
			}
			idx++
		}
	}
	p.Add(labels)
	return nil
}

// PlotContourInput represents the MCP tool input for a contour plot.
type PlotContourInput struct {
	X         []float64    `json:"x,omitempty" jsonschema:"x coordinates, when not using a data column"`
	XColumn   string       `json:"x_column,omitempty" jsonschema:"column name holding x coordinates"`
	Y         []float64    `json:"y,omitempty" jsonschema:"y coordinates, when not using a data column"`
	YColumn   string       `json:"y_column,omitempty" jsonschema:"column name holding y coordinates"`
	Z         [][]float64  `json:"z,omitempty" jsonschema:"z values, one row per y coordinate"`
	ZColumn   string       `json:"z_column,omitempty" jsonschema:"column name holding flattened square z values"`
	Levels    int          `json:"levels,omitempty" jsonschema:"number of contour levels (default 10)"`
	Filled    *bool        `json:"filled,omitempty" jsonschema:"shade the field under the contours (default true)"`
	DataInput *DataInput   `json:"data_input,omitempty" jsonschema:"file or inline data backing column references"`
	Style     *StyleInput  `json:"style,omitempty" jsonschema:"optional plot styling"`
	Output    *OutputInput `json:"output,omitempty" jsonschema:"optional output format and dimensions"`
}

// PlotContourTool defines the MCP tool schema for contour plots.
func PlotContourTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "plot_contour",
		Description: "Creates a contour plot of a scalar field over x/y coordinates",
	}
}

// PlotContourHandler renders contour lines, optionally over a shaded field.
func PlotContourHandler(loader *dataset.Loader) mcp.ToolHandlerFor[PlotContourInput, PlotResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input PlotContourInput) (*mcp.CallToolResult, PlotResult, error) {
		invocationID, err := NewInvocationID()
		if err != nil {
			return nil, PlotResult{}, fmt.Errorf("generate invocation id: %w", err)
		}

		styleCfg, outputCfg, err := resolvePlotConfig(input.Style, input.Output)
		if err != nil {
			return nil, PlotResult{}, err
		}
		levelCount := input.Levels
		if levelCount == 0 {
			levelCount = 10
		}
		if levelCount < 1 {
			return nil, PlotResult{}, fmt.Errorf("levels must be positive, got %d", levelCount)
		}
		filled := true
		if input.Filled != nil {
			filled = *input.Filled
		}

		grid, err := resolveFieldGrid(loader, input.DataInput, fieldGridInput{
			x: input.X, xColumn: input.XColumn,
			y: input.Y, yColumn: input.YColumn,
			z: input.Z, zColumn: input.ZColumn,
		})
		if err != nil {
			return nil, PlotResult{}, err
		}

		pal, err := render.Palette(styleCfg.Colormap, 256)
		if err != nil {
			return nil, PlotResult{}, err
		}

		p := plot.New()
		zmin, zmax, _ := matrixStats(grid.z)
		if filled {
			p.Add(plotter.NewHeatMap(grid, pal))
		}
		if zmax > zmin {
			levels := make([]float64, levelCount)
			step := (zmax - zmin) / float64(levelCount+1)
			for i := range levels {
				levels[i] = zmin + step*float64(i+1)
			}
			p.Add(plotter.NewContour(grid, levels, pal))
		}
		styleCfg.Apply(p)

		data, resolved, err := render.Encode(p, outputCfg)
		if err != nil {
			return nil, PlotResult{}, fmt.Errorf("render contour plot: %w", err)
		}

		meta := ToolCallMetadata{InvocationID: invocationID}
		return figureCallResult(meta, data, resolved.Format), plotSummary(resolved, len(data)), nil
	}
}

// PlotPcolormeshInput represents the MCP tool input for a pseudocolor plot.
type PlotPcolormeshInput struct {
	X         []float64    `json:"x,omitempty" jsonschema:"x coordinates, when not using a data column"`
	XColumn   string       `json:"x_column,omitempty" jsonschema:"column name holding x coordinates"`
	Y         []float64    `json:"y,omitempty" jsonschema:"y coordinates, when not using a data column"`
	YColumn   string       `json:"y_column,omitempty" jsonschema:"column name holding y coordinates"`
	Z         [][]float64  `json:"z,omitempty" jsonschema:"z values, one row per y coordinate"`
	ZColumn   string       `json:"z_column,omitempty" jsonschema:"column name holding flattened square z values"`
	DataInput *DataInput   `json:"data_input,omitempty" jsonschema:"file or inline data backing column references"`
	Style     *StyleInput  `json:"style,omitempty" jsonschema:"optional plot styling"`
	Output    *OutputInput `json:"output,omitempty" jsonschema:"optional output format and dimensions"`
}

// PlotPcolormeshTool defines the MCP tool schema for pseudocolor plots.
func PlotPcolormeshTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "plot_pcolormesh",
		Description: "Creates a pseudocolor plot of values on a possibly irregular coordinate grid",
	}
}

// PlotPcolormeshHandler renders cell shading on the given coordinate grid.
func PlotPcolormeshHandler(loader *dataset.Loader) mcp.ToolHandlerFor[PlotPcolormeshInput, PlotResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input PlotPcolormeshInput) (*mcp.CallToolResult, PlotResult, error) {
		invocationID, err := NewInvocationID()
		if err != nil {
			return nil, PlotResult{}, fmt.Errorf("generate invocation id: %w", err)
		}

		styleCfg, outputCfg, err := resolvePlotConfig(input.Style, input.Output)
		if err != nil {
			return nil, PlotResult{}, err
		}

		grid, err := resolveFieldGrid(loader, input.DataInput, fieldGridInput{
			x: input.X, xColumn: input.XColumn,
			y: input.Y, yColumn: input.YColumn,
			z: input.Z, zColumn: input.ZColumn,
		})
		if err != nil {
			return nil, PlotResult{}, err
		}

		pal, err := render.Palette(styleCfg.Colormap, 256)
		if err != nil {
			return nil, PlotResult{}, err
		}

		p := plot.New()
		p.Add(plotter.NewHeatMap(grid, pal))
		styleCfg.Apply(p)

		data, resolved, err := render.Encode(p, outputCfg)
		if err != nil {
			return nil, PlotResult{}, fmt.Errorf("render pcolormesh plot: %w", err)
		}

		meta := ToolCallMetadata{InvocationID: invocationID}
		return figureCallResult(meta, data, resolved.Format), plotSummary(resolved, len(data)), nil
	}
}

type fieldGridInput struct {
	x, y    []float64
	z       [][]float64
	xColumn string
	yColumn string
	zColumn string
}

// resolveFieldGrid validates the x/y/z triple shared by contour and
// pcolormesh and adapts it to a plotter grid.
func resolveFieldGrid(loader *dataset.Loader, dataInput *DataInput, input fieldGridInput) (matrixGrid, error) {
	df, loaded, err := loadData(loader, dataInput)
	if err != nil {
		return matrixGrid{}, err
	}
	xs, err := resolveFloats(df, loaded, input.x, input.xColumn, "x")
	if err != nil {
		return matrixGrid{}, err
	}
	ys, err := resolveFloats(df, loaded, input.y, input.yColumn, "y")
	if err != nil {
		return matrixGrid{}, err
	}
	z, err := resolveMatrix(df, loaded, input.z, input.zColumn, "z")
	if err != nil {
		return matrixGrid{}, err
	}
	if len(z) != len(ys) {
		return matrixGrid{}, fmt.Errorf("z must have one row per y coordinate, got %d rows for %d coordinates", len(z), len(ys))
	}
	if len(z[0]) != len(xs) {
		return matrixGrid{}, fmt.Errorf("z rows must have one value per x coordinate, got %d values for %d coordinates", len(z[0]), len(xs))
	}
	return matrixGrid{x: xs, y: ys, z: z}, nil
}

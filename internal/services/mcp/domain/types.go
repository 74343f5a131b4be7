package domain

import (
	"fmt"

	"github.com/go-gota/gota/dataframe"
	"github.com/nishide-dev/ml-research-mcp/internal/dataset"
	"github.com/nishide-dev/ml-research-mcp/internal/render"
)

// DataInput selects the tabular data backing column references in a tool
// call. Exactly one of FilePath or Data must be set.
type DataInput struct {
	FilePath string           `json:"file_path,omitempty" jsonschema:"path to a CSV or JSON data file"`
	Data     map[string][]any `json:"data,omitempty" jsonschema:"inline columnar data keyed by column name"`
}

// StyleInput configures plot titling and appearance.
type StyleInput struct {
	Title    string   `json:"title,omitempty" jsonschema:"plot title"`
	XLabel   string   `json:"xlabel,omitempty" jsonschema:"x-axis label"`
	YLabel   string   `json:"ylabel,omitempty" jsonschema:"y-axis label"`
	Grid     *bool    `json:"grid,omitempty" jsonschema:"show grid lines (default true)"`
	Alpha    *float64 `json:"alpha,omitempty" jsonschema:"transparency level between 0 and 1"`
	Colormap string   `json:"colormap,omitempty" jsonschema:"colormap name for data visualization"`
}

// OutputInput configures output format and figure dimensions.
type OutputInput struct {
	Format string  `json:"format,omitempty" jsonschema:"output format: png (raster), pdf or svg (vector)"`
	Width  float64 `json:"width,omitempty" jsonschema:"figure width in centimeters (default 15)"`
	Height float64 `json:"height,omitempty" jsonschema:"figure height in centimeters (default 10)"`
	DPI    int     `json:"dpi,omitempty" jsonschema:"resolution for raster formats (default 300, png only)"`
}

// PlotResult describes the encoded figure returned by a plotting tool.
type PlotResult struct {
	Format    string  `json:"format" jsonschema:"encoded output format"`
	WidthCm   float64 `json:"width_cm" jsonschema:"figure width in centimeters"`
	HeightCm  float64 `json:"height_cm" jsonschema:"figure height in centimeters"`
	DPI       int     `json:"dpi" jsonschema:"raster resolution"`
	ByteCount int     `json:"byte_count" jsonschema:"size of the encoded figure in bytes"`
}

// styleConfig translates the style input into render configuration.
func (s *StyleInput) styleConfig() render.StyleConfig {
	if s == nil {
		return render.StyleConfig{}
	}
	return render.StyleConfig{
		Title:    s.Title,
		XLabel:   s.XLabel,
		YLabel:   s.YLabel,
		Grid:     s.Grid,
		Alpha:    s.Alpha,
		Colormap: s.Colormap,
	}
}

// outputConfig translates the output input into render configuration.
func (o *OutputInput) outputConfig() (render.OutputConfig, error) {
	if o == nil {
		return render.OutputConfig{}, nil
	}
	format, err := render.ParseFormat(o.Format)
	if err != nil {
		return render.OutputConfig{}, err
	}
	return render.OutputConfig{
		Format:   format,
		WidthCm:  o.Width,
		HeightCm: o.Height,
		DPI:      o.DPI,
	}, nil
}

// resolvePlotConfig validates the style and output sections shared by every
// plotting tool.
func resolvePlotConfig(style *StyleInput, output *OutputInput) (render.StyleConfig, render.OutputConfig, error) {
	styleCfg := style.styleConfig()
	if err := styleCfg.Validate(); err != nil {
		return render.StyleConfig{}, render.OutputConfig{}, err
	}
	outputCfg, err := output.outputConfig()
	if err != nil {
		return render.StyleConfig{}, render.OutputConfig{}, err
	}
	return styleCfg, outputCfg, nil
}

// loadData materializes the optional data input. The second return reports
// whether a dataframe was loaded.
func loadData(loader *dataset.Loader, input *DataInput) (dataframe.DataFrame, bool, error) {
	if input == nil {
		return dataframe.DataFrame{}, false, nil
	}
	src := dataset.Source{FilePath: input.FilePath, Inline: input.Data}
	if src.IsZero() {
		return dataframe.DataFrame{}, false, nil
	}
	df, err := loader.Load(src)
	if err != nil {
		return dataframe.DataFrame{}, false, err
	}
	return df, true, nil
}

// resolveFloats yields the values for one axis: either the direct list or the
// named dataframe column, never both.
func resolveFloats(df dataframe.DataFrame, loaded bool, values []float64, column, field string) ([]float64, error) {
	if len(values) > 0 && column != "" {
		return nil, fmt.Errorf("provide either %s or %s_column, not both", field, field)
	}
	if column != "" {
		if !loaded {
			return nil, fmt.Errorf("data_input is required when %s_column is set", field)
		}
		return dataset.FloatColumn(df, column)
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("%s values are required", field)
	}
	return values, nil
}

// resolveStrings is the string-column variant of resolveFloats.
func resolveStrings(df dataframe.DataFrame, loaded bool, values []string, column, field string) ([]string, error) {
	if len(values) > 0 && column != "" {
		return nil, fmt.Errorf("provide either %s or %s_column, not both", field, field)
	}
	if column != "" {
		if !loaded {
			return nil, fmt.Errorf("data_input is required when %s_column is set", field)
		}
		return dataset.StringColumn(df, column)
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("%s values are required", field)
	}
	return values, nil
}

// resolveMatrix yields a 2D matrix from a direct value or a flattened column.
func resolveMatrix(df dataframe.DataFrame, loaded bool, matrix [][]float64, column, field string) ([][]float64, error) {
	if len(matrix) > 0 && column != "" {
		return nil, fmt.Errorf("provide either %s or %s_column, not both", field, field)
	}
	if column != "" {
		if !loaded {
			return nil, fmt.Errorf("data_input is required when %s_column is set", field)
		}
		values, err := dataset.FloatColumn(df, column)
		if err != nil {
			return nil, err
		}
		return dataset.SquareMatrix(values)
	}
	if len(matrix) == 0 {
		return nil, fmt.Errorf("%s values are required", field)
	}
	width := len(matrix[0])
	if width == 0 {
		return nil, fmt.Errorf("%s rows must not be empty", field)
	}
	for _, row := range matrix {
		if len(row) != width {
			return nil, fmt.Errorf("%s rows must all have the same length", field)
		}
	}
	return matrix, nil
}

// plotSummary builds the structured result for an encoded figure.
func plotSummary(cfg render.OutputConfig, byteCount int) PlotResult {
	return PlotResult{
		Format:    string(cfg.Format),
		WidthCm:   cfg.WidthCm,
		HeightCm:  cfg.HeightCm,
		DPI:       cfg.DPI,
		ByteCount: byteCount,
	}
}

// Package dataset loads tabular input for plotting tools.
//
// Data arrives either as a path to a CSV/JSON file or as inline columnar
// values supplied directly in the tool call. Both forms are materialized into
// a gota dataframe so column extraction behaves the same for either source.
package dataset

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// Source selects tabular input for a tool call. Exactly one of FilePath or
// Inline must be set.
type Source struct {
	FilePath string
	Inline   map[string][]any
}

// IsZero reports whether the source carries no input at all.
func (s Source) IsZero() bool {
	return strings.TrimSpace(s.FilePath) == "" && len(s.Inline) == 0
}

// Loader resolves and loads data sources.
type Loader struct {
	// BaseDir, when non-empty, confines file loads to the given directory.
	// An empty BaseDir allows any readable path, matching local-tool trust.
	BaseDir string
}

// Load materializes a source into a dataframe.
func (l *Loader) Load(src Source) (dataframe.DataFrame, error) {
	hasFile := strings.TrimSpace(src.FilePath) != ""
	hasInline := len(src.Inline) > 0

	if hasFile && hasInline {
		return dataframe.DataFrame{}, fmt.Errorf("provide either file_path or data, not both")
	}
	if !hasFile && !hasInline {
		return dataframe.DataFrame{}, fmt.Errorf("must provide either file_path or data")
	}

	if hasFile {
		return l.loadFile(strings.TrimSpace(src.FilePath))
	}
	return loadInline(src.Inline)
}

func (l *Loader) loadFile(path string) (dataframe.DataFrame, error) {
	resolved, err := l.resolvePath(path)
	if err != nil {
		return dataframe.DataFrame{}, err
	}

	f, err := os.Open(resolved)
	if err != nil {
		if os.IsNotExist(err) {
			return dataframe.DataFrame{}, fmt.Errorf("file not found: %s", path)
		}
		return dataframe.DataFrame{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	var df dataframe.DataFrame
	switch ext := strings.ToLower(filepath.Ext(resolved)); ext {
	case ".csv":
		df = dataframe.ReadCSV(f)
	case ".json":
		df = dataframe.ReadJSON(f)
	default:
		return dataframe.DataFrame{}, fmt.Errorf("unsupported file format %q: supported formats are .csv and .json", ext)
	}
	if df.Err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("read %s: %w", path, df.Err)
	}
	return df, nil
}

// resolvePath applies the optional base-directory confinement.
func (l *Loader) resolvePath(path string) (string, error) {
	base := ""
	if l != nil {
		base = strings.TrimSpace(l.BaseDir)
	}
	if base == "" {
		return path, nil
	}

	joined := path
	if !filepath.IsAbs(joined) {
		joined = filepath.Join(base, joined)
	}
	absBase, err := filepath.Abs(base)
	if err != nil {
		return "", fmt.Errorf("resolve data directory: %w", err)
	}
	absPath, err := filepath.Abs(joined)
	if err != nil {
		return "", fmt.Errorf("resolve path %s: %w", path, err)
	}
	rel, err := filepath.Rel(absBase, absPath)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path %s is outside the configured data directory", path)
	}
	return absPath, nil
}

// loadInline builds a dataframe from columnar values. Columns where every
// value is numeric become float series; everything else becomes strings.
func loadInline(data map[string][]any) (dataframe.DataFrame, error) {
	names := make([]string, 0, len(data))
	for name := range data {
		names = append(names, name)
	}
	// Deterministic column order for stable output and tests.
	sort.Strings(names)

	columns := make([]series.Series, 0, len(names))
	for _, name := range names {
		values := data[name]
		if len(values) == 0 {
			return dataframe.DataFrame{}, fmt.Errorf("column %q has no values", name)
		}
		if floats, ok := toFloats(values); ok {
			columns = append(columns, series.New(floats, series.Float, name))
			continue
		}
		records := make([]string, len(values))
		for i, v := range values {
			records[i] = fmt.Sprint(v)
		}
		columns = append(columns, series.New(records, series.String, name))
	}

	df := dataframe.New(columns...)
	if df.Err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("build dataframe from provided data: %w", df.Err)
	}
	return df, nil
}

func toFloats(values []any) ([]float64, bool) {
	floats := make([]float64, len(values))
	for i, v := range values {
		switch n := v.(type) {
		case float64:
			floats[i] = n
		case float32:
			floats[i] = float64(n)
		case int:
			floats[i] = float64(n)
		case int64:
			floats[i] = float64(n)
		default:
			return nil, false
		}
	}
	return floats, true
}

// FloatColumn extracts a numeric column from a dataframe.
func FloatColumn(df dataframe.DataFrame, name string) ([]float64, error) {
	if err := requireColumn(df, name); err != nil {
		return nil, err
	}
	col := df.Col(name)
	if col.Err != nil {
		return nil, fmt.Errorf("extract column %q: %w", name, col.Err)
	}
	values := col.Float()
	for _, v := range values {
		if math.IsNaN(v) {
			return nil, fmt.Errorf("column %q contains non-numeric values", name)
		}
	}
	return values, nil
}

// StringColumn extracts a column from a dataframe as strings.
func StringColumn(df dataframe.DataFrame, name string) ([]string, error) {
	if err := requireColumn(df, name); err != nil {
		return nil, err
	}
	col := df.Col(name)
	if col.Err != nil {
		return nil, fmt.Errorf("extract column %q: %w", name, col.Err)
	}
	return col.Records(), nil
}

func requireColumn(df dataframe.DataFrame, name string) error {
	names := df.Names()
	for _, candidate := range names {
		if candidate == name {
			return nil
		}
	}
	return fmt.Errorf("column %q not found in data; available columns: %s", name, strings.Join(names, ", "))
}

// SquareMatrix reshapes a flat column into an n-by-n matrix. One-dimensional
// grid columns are stored flattened in tabular files, so the length must be a
// perfect square.
func SquareMatrix(values []float64) ([][]float64, error) {
	n := int(math.Sqrt(float64(len(values))))
	if n == 0 || n*n != len(values) {
		return nil, fmt.Errorf("cannot reshape %d values into a square matrix", len(values))
	}
	matrix := make([][]float64, n)
	for i := range matrix {
		matrix[i] = values[i*n : (i+1)*n]
	}
	return matrix, nil
}

package dataset

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadInlineNumeric(t *testing.T) {
	var loader Loader
	df, err := loader.Load(Source{Inline: map[string][]any{
		"x": {1.0, 2.0, 3.0},
		"y": {4.0, 5.0, 6.0},
	}})
	if err != nil {
		t.Fatalf("load inline: %v", err)
	}
	values, err := FloatColumn(df, "y")
	if err != nil {
		t.Fatalf("float column: %v", err)
	}
	if len(values) != 3 || values[0] != 4 || values[2] != 6 {
		t.Fatalf("unexpected values: %v", values)
	}
}

func TestLoadInlineStrings(t *testing.T) {
	var loader Loader
	df, err := loader.Load(Source{Inline: map[string][]any{
		"category": {"a", "b", "c"},
	}})
	if err != nil {
		t.Fatalf("load inline: %v", err)
	}
	records, err := StringColumn(df, "category")
	if err != nil {
		t.Fatalf("string column: %v", err)
	}
	if len(records) != 3 || records[1] != "b" {
		t.Fatalf("unexpected records: %v", records)
	}
}

func TestLoadRejectsBothSources(t *testing.T) {
	var loader Loader
	_, err := loader.Load(Source{
		FilePath: "data.csv",
		Inline:   map[string][]any{"x": {1.0}},
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "not both") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLoadRejectsEmptySource(t *testing.T) {
	var loader Loader
	_, err := loader.Load(Source{})
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "must provide") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLoadCSVFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "experiment.csv")
	contents := "time,temperature\n0,20.5\n1,21.0\n2,21.4\n"
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("write csv: %v", err)
	}

	var loader Loader
	df, err := loader.Load(Source{FilePath: path})
	if err != nil {
		t.Fatalf("load csv: %v", err)
	}
	values, err := FloatColumn(df, "temperature")
	if err != nil {
		t.Fatalf("float column: %v", err)
	}
	if len(values) != 3 || values[1] != 21.0 {
		t.Fatalf("unexpected values: %v", values)
	}
}

func TestLoadJSONFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.json")
	contents := `[{"x": 1, "y": 2}, {"x": 3, "y": 4}]`
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("write json: %v", err)
	}

	var loader Loader
	df, err := loader.Load(Source{FilePath: path})
	if err != nil {
		t.Fatalf("load json: %v", err)
	}
	values, err := FloatColumn(df, "x")
	if err != nil {
		t.Fatalf("float column: %v", err)
	}
	if len(values) != 2 || values[1] != 3 {
		t.Fatalf("unexpected values: %v", values)
	}
}

func TestLoadMissingFile(t *testing.T) {
	var loader Loader
	_, err := loader.Load(Source{FilePath: filepath.Join(t.TempDir(), "missing.csv")})
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "file not found") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLoadUnsupportedExtension(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.parquet")
	if err := os.WriteFile(path, []byte("x"), 0o600); err != nil {
		t.Fatalf("write file: %v", err)
	}

	var loader Loader
	_, err := loader.Load(Source{FilePath: path})
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "unsupported file format") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLoaderBaseDirConfinement(t *testing.T) {
	base := t.TempDir()
	path := filepath.Join(base, "inside.csv")
	if err := os.WriteFile(path, []byte("x\n1\n"), 0o600); err != nil {
		t.Fatalf("write csv: %v", err)
	}

	loader := Loader{BaseDir: base}
	if _, err := loader.Load(Source{FilePath: "inside.csv"}); err != nil {
		t.Fatalf("load inside base dir: %v", err)
	}

	_, err := loader.Load(Source{FilePath: filepath.Join("..", "outside.csv")})
	if err == nil {
		t.Fatal("expected error for path outside data directory")
	}
	if !strings.Contains(err.Error(), "outside the configured data directory") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestFloatColumnMissing(t *testing.T) {
	var loader Loader
	df, err := loader.Load(Source{Inline: map[string][]any{"x": {1.0, 2.0}}})
	if err != nil {
		t.Fatalf("load inline: %v", err)
	}
	_, err = FloatColumn(df, "z")
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "available columns: x") {
		t.Fatalf("expected available columns in error, got %v", err)
	}
}

func TestFloatColumnNonNumeric(t *testing.T) {
	var loader Loader
	df, err := loader.Load(Source{Inline: map[string][]any{"label": {"a", "b"}}})
	if err != nil {
		t.Fatalf("load inline: %v", err)
	}
	if _, err := FloatColumn(df, "label"); err == nil {
		t.Fatal("expected error for non-numeric column")
	}
}

func TestSquareMatrix(t *testing.T) {
	matrix, err := SquareMatrix([]float64{1, 2, 3, 4})
	if err != nil {
		t.Fatalf("square matrix: %v", err)
	}
	if len(matrix) != 2 || matrix[1][0] != 3 {
		t.Fatalf("unexpected matrix: %v", matrix)
	}

	if _, err := SquareMatrix([]float64{1, 2, 3}); err == nil {
		t.Fatal("expected error for non-square length")
	}
}

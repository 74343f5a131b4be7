package domain

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/nishide-dev/ml-research-mcp/internal/dataset"
)

var pngSignature = []byte("\x89PNG\r\n\x1a\n")

func testLoader() *dataset.Loader {
	return &dataset.Loader{}
}

// checkPNGResult verifies the tool returned a PNG image with correlation
// metadata and a matching structured summary.
func checkPNGResult(t *testing.T, toolResult *mcp.CallToolResult, result PlotResult) {
	t.Helper()
	if toolResult == nil {
		t.Fatal("expected non-nil tool result")
	}
	if len(toolResult.Content) != 1 {
		t.Fatalf("expected 1 content item, got %d", len(toolResult.Content))
	}
	img, ok := toolResult.Content[0].(*mcp.ImageContent)
	if !ok {
		t.Fatalf("expected image content, got %T", toolResult.Content[0])
	}
	if img.MIMEType != "image/png" {
		t.Errorf("expected image/png, got %q", img.MIMEType)
	}
	if !bytes.HasPrefix(img.Data, pngSignature) {
		t.Error("expected PNG signature in image data")
	}
	if result.Format != "png" {
		t.Errorf("expected format png, got %q", result.Format)
	}
	if result.ByteCount != len(img.Data) {
		t.Errorf("expected byte count %d, got %d", len(img.Data), result.ByteCount)
	}
	if toolResult.Meta == nil || toolResult.Meta[invocationIDMetaKey] == "" {
		t.Error("expected invocation id in result metadata")
	}
}

func TestPlotLineHandler(t *testing.T) {
	handler := PlotLineHandler(testLoader())

	t.Run("success", func(t *testing.T) {
		toolResult, result, err := handler(context.Background(), nil, PlotLineInput{
			X: []float64{1, 2, 3, 4},
			Y: []float64{1, 4, 9, 16},
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		checkPNGResult(t, toolResult, result)
	})

	t.Run("length mismatch", func(t *testing.T) {
		_, _, err := handler(context.Background(), nil, PlotLineInput{
			X: []float64{1, 2, 3},
			Y: []float64{1, 2},
		})
		if err == nil {
			t.Fatal("expected error for mismatched lengths")
		}
	})

	t.Run("ambiguous x source", func(t *testing.T) {
		_, _, err := handler(context.Background(), nil, PlotLineInput{
			X:       []float64{1, 2},
			XColumn: "x",
			Y:       []float64{1, 2},
		})
		if err == nil || !strings.Contains(err.Error(), "not both") {
			t.Fatalf("expected ambiguity error, got %v", err)
		}
	})

	t.Run("column without data input", func(t *testing.T) {
		_, _, err := handler(context.Background(), nil, PlotLineInput{
			XColumn: "x",
			Y:       []float64{1, 2},
		})
		if err == nil || !strings.Contains(err.Error(), "data_input is required") {
			t.Fatalf("expected missing data input error, got %v", err)
		}
	})

	t.Run("columns from inline data", func(t *testing.T) {
		toolResult, result, err := handler(context.Background(), nil, PlotLineInput{
			XColumn: "epoch",
			YColumn: "loss",
			DataInput: &DataInput{
				Data: map[string][]any{
					"epoch": {1.0, 2.0, 3.0},
					"loss":  {0.9, 0.5, 0.3},
				},
			},
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		checkPNGResult(t, toolResult, result)
	})

	t.Run("pdf output is an embedded resource", func(t *testing.T) {
		toolResult, result, err := handler(context.Background(), nil, PlotLineInput{
			X:      []float64{1, 2, 3},
			Y:      []float64{3, 2, 1},
			Output: &OutputInput{Format: "pdf"},
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		res, ok := toolResult.Content[0].(*mcp.EmbeddedResource)
		if !ok {
			t.Fatalf("expected embedded resource, got %T", toolResult.Content[0])
		}
		if res.Resource.MIMEType != "application/pdf" {
			t.Errorf("expected application/pdf, got %q", res.Resource.MIMEType)
		}
		if !bytes.HasPrefix(res.Resource.Blob, []byte("%PDF")) {
			t.Error("expected PDF header in resource blob")
		}
		if result.Format != "pdf" {
			t.Errorf("expected format pdf, got %q", result.Format)
		}
	})
}

func TestPlotScatterHandler(t *testing.T) {
	handler := PlotScatterHandler(testLoader())

	t.Run("success", func(t *testing.T) {
		toolResult, result, err := handler(context.Background(), nil, PlotScatterInput{
			X: []float64{1, 2, 3, 4},
			Y: []float64{2, 1, 4, 3},
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		checkPNGResult(t, toolResult, result)
	})

	t.Run("color and size mappings", func(t *testing.T) {
		toolResult, result, err := handler(context.Background(), nil, PlotScatterInput{
			X:     []float64{1, 2, 3, 4},
			Y:     []float64{2, 1, 4, 3},
			Color: []float64{0.1, 0.4, 0.7, 1.0},
			Size:  []float64{1, 5, 10, 20},
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		checkPNGResult(t, toolResult, result)
	})

	t.Run("color length mismatch", func(t *testing.T) {
		_, _, err := handler(context.Background(), nil, PlotScatterInput{
			X:     []float64{1, 2, 3},
			Y:     []float64{1, 2, 3},
			Color: []float64{0.5},
		})
		if err == nil {
			t.Fatal("expected error for mismatched color length")
		}
	})
}

func TestPlotBarHandler(t *testing.T) {
	handler := PlotBarHandler(testLoader())

	t.Run("success", func(t *testing.T) {
		toolResult, result, err := handler(context.Background(), nil, PlotBarInput{
			Categories: []string{"resnet", "vit", "mlp"},
			Values:     []float64{0.91, 0.94, 0.82},
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		checkPNGResult(t, toolResult, result)
	})

	t.Run("horizontal", func(t *testing.T) {
		toolResult, result, err := handler(context.Background(), nil, PlotBarInput{
			Categories:  []string{"a", "b"},
			Values:      []float64{1, 2},
			Orientation: "horizontal",
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		checkPNGResult(t, toolResult, result)
	})

	t.Run("invalid orientation", func(t *testing.T) {
		_, _, err := handler(context.Background(), nil, PlotBarInput{
			Categories:  []string{"a"},
			Values:      []float64{1},
			Orientation: "diagonal",
		})
		if err == nil || !strings.Contains(err.Error(), "orientation") {
			t.Fatalf("expected orientation error, got %v", err)
		}
	})

	t.Run("length mismatch", func(t *testing.T) {
		_, _, err := handler(context.Background(), nil, PlotBarInput{
			Categories: []string{"a", "b"},
			Values:     []float64{1},
		})
		if err == nil {
			t.Fatal("expected error for mismatched lengths")
		}
	})
}

func TestPlotHeatmapHandler(t *testing.T) {
	handler := PlotHeatmapHandler(testLoader())
	matrix := [][]float64{
		{1, 0.4},
		{0.4, 1},
	}

	t.Run("success", func(t *testing.T) {
		toolResult, result, err := handler(context.Background(), nil, PlotHeatmapInput{
			Matrix: matrix,
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		checkPNGResult(t, toolResult, result)
	})

	t.Run("labels and annotations", func(t *testing.T) {
		toolResult, result, err := handler(context.Background(), nil, PlotHeatmapInput{
			Matrix:   matrix,
			XLabels:  []string{"cat", "dog"},
			YLabels:  []string{"cat", "dog"},
			Annotate: true,
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		checkPNGResult(t, toolResult, result)
	})

	t.Run("label count mismatch", func(t *testing.T) {
		_, _, err := handler(context.Background(), nil, PlotHeatmapInput{
			Matrix:  matrix,
			XLabels: []string{"only one"},
		})
		if err == nil || !strings.Contains(err.Error(), "x_labels") {
			t.Fatalf("expected label count error, got %v", err)
		}
	})

	t.Run("ragged matrix", func(t *testing.T) {
		_, _, err := handler(context.Background(), nil, PlotHeatmapInput{
			Matrix: [][]float64{{1, 2}, {3}},
		})
		if err == nil {
			t.Fatal("expected error for ragged matrix")
		}
	})

	t.Run("matrix from column", func(t *testing.T) {
		toolResult, result, err := handler(context.Background(), nil, PlotHeatmapInput{
			MatrixColumn: "corr",
			DataInput: &DataInput{
				Data: map[string][]any{
					"corr": {1.0, 0.3, 0.3, 1.0},
				},
			},
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		checkPNGResult(t, toolResult, result)
	})
}

func TestPlotContourHandler(t *testing.T) {
	handler := PlotContourHandler(testLoader())
	x := []float64{0, 1, 2}
	y := []float64{0, 1, 2}
	z := [][]float64{
		{0, 1, 2},
		{1, 2, 3},
		{2, 3, 4},
	}

	t.Run("success", func(t *testing.T) {
		toolResult, result, err := handler(context.Background(), nil, PlotContourInput{
			X: x, Y: y, Z: z,
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		checkPNGResult(t, toolResult, result)
	})

	t.Run("lines only", func(t *testing.T) {
		filled := false
		toolResult, result, err := handler(context.Background(), nil, PlotContourInput{
			X: x, Y: y, Z: z,
			Filled: &filled,
			Levels: 5,
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		checkPNGResult(t, toolResult, result)
	})

	t.Run("dimension mismatch", func(t *testing.T) {
		_, _, err := handler(context.Background(), nil, PlotContourInput{
			X: []float64{0, 1}, Y: y, Z: z,
		})
		if err == nil {
			t.Fatal("expected error for mismatched dimensions")
		}
	})

	t.Run("negative levels", func(t *testing.T) {
		_, _, err := handler(context.Background(), nil, PlotContourInput{
			X: x, Y: y, Z: z,
			Levels: -1,
		})
		if err == nil || !strings.Contains(err.Error(), "levels") {
			t.Fatalf("expected levels error, got %v", err)
		}
	})
}

func TestPlotPcolormeshHandler(t *testing.T) {
	handler := PlotPcolormeshHandler(testLoader())

	t.Run("irregular coordinates", func(t *testing.T) {
		toolResult, result, err := handler(context.Background(), nil, PlotPcolormeshInput{
			X: []float64{0, 1, 4},
			Y: []float64{0, 2, 3},
			Z: [][]float64{
				{1, 2, 3},
				{2, 3, 4},
				{3, 4, 5},
			},
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		checkPNGResult(t, toolResult, result)
	})

	t.Run("missing z", func(t *testing.T) {
		_, _, err := handler(context.Background(), nil, PlotPcolormeshInput{
			X: []float64{0, 1},
			Y: []float64{0, 1},
		})
		if err == nil {
			t.Fatal("expected error for missing z values")
		}
	})
}

func TestPlotHistogramHandler(t *testing.T) {
	handler := PlotHistogramHandler(testLoader())
	values := []float64{1, 2, 2, 3, 3, 3, 4, 4, 5, 6, 7, 8}

	t.Run("success", func(t *testing.T) {
		toolResult, result, err := handler(context.Background(), nil, PlotHistogramInput{
			Values: values,
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		checkPNGResult(t, toolResult, result)
	})

	t.Run("density with custom bins", func(t *testing.T) {
		toolResult, result, err := handler(context.Background(), nil, PlotHistogramInput{
			Values:  values,
			Bins:    5,
			Density: true,
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		checkPNGResult(t, toolResult, result)
	})

	t.Run("negative bins", func(t *testing.T) {
		_, _, err := handler(context.Background(), nil, PlotHistogramInput{
			Values: values,
			Bins:   -3,
		})
		if err == nil || !strings.Contains(err.Error(), "bins") {
			t.Fatalf("expected bins error, got %v", err)
		}
	})
}

func TestPlotBoxHandler(t *testing.T) {
	handler := PlotBoxHandler(testLoader())

	t.Run("success", func(t *testing.T) {
		toolResult, result, err := handler(context.Background(), nil, PlotBoxInput{
			Groups: [][]float64{
				{1, 2, 3, 4, 5},
				{2, 4, 6, 8, 10},
			},
			Labels: []string{"baseline", "tuned"},
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		checkPNGResult(t, toolResult, result)
	})

	t.Run("columns from inline data", func(t *testing.T) {
		toolResult, result, err := handler(context.Background(), nil, PlotBoxInput{
			Columns: []string{"a", "b"},
			DataInput: &DataInput{
				Data: map[string][]any{
					"a": {1.0, 2.0, 3.0},
					"b": {4.0, 5.0, 6.0},
				},
			},
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		checkPNGResult(t, toolResult, result)
	})

	t.Run("groups and columns are exclusive", func(t *testing.T) {
		_, _, err := handler(context.Background(), nil, PlotBoxInput{
			Groups:  [][]float64{{1, 2}},
			Columns: []string{"a"},
		})
		if err == nil || !strings.Contains(err.Error(), "not both") {
			t.Fatalf("expected ambiguity error, got %v", err)
		}
	})

	t.Run("label count mismatch", func(t *testing.T) {
		_, _, err := handler(context.Background(), nil, PlotBoxInput{
			Groups: [][]float64{{1, 2}, {3, 4}},
			Labels: []string{"only one"},
		})
		if err == nil || !strings.Contains(err.Error(), "labels") {
			t.Fatalf("expected label count error, got %v", err)
		}
	})
}

func TestPlotViolinHandler(t *testing.T) {
	handler := PlotViolinHandler(testLoader())

	t.Run("success", func(t *testing.T) {
		toolResult, result, err := handler(context.Background(), nil, PlotViolinInput{
			Groups: [][]float64{
				{1, 2, 2, 3, 3, 3, 4, 4, 5},
				{4, 5, 5, 6, 6, 6, 7, 7, 8},
			},
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		checkPNGResult(t, toolResult, result)
	})

	t.Run("mean marker defaults on", func(t *testing.T) {
		groups := [][]float64{{1, 2, 2, 3, 3, 3, 4, 4, 5}}
		withDefaults, _, err := handler(context.Background(), nil, PlotViolinInput{Groups: groups})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		off := false
		withoutMean, _, err := handler(context.Background(), nil, PlotViolinInput{
			Groups:   groups,
			ShowMean: &off,
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		defaultsImg := withDefaults.Content[0].(*mcp.ImageContent)
		noMeanImg := withoutMean.Content[0].(*mcp.ImageContent)
		if bytes.Equal(defaultsImg.Data, noMeanImg.Data) {
			t.Fatal("expected the default rendering to include a mean marker")
		}
	})

	t.Run("constant values", func(t *testing.T) {
		_, _, err := handler(context.Background(), nil, PlotViolinInput{
			Groups: [][]float64{{5, 5, 5, 5}},
		})
		if err == nil || !strings.Contains(err.Error(), "constant") {
			t.Fatalf("expected constant values error, got %v", err)
		}
	})

	t.Run("too few values", func(t *testing.T) {
		_, _, err := handler(context.Background(), nil, PlotViolinInput{
			Groups: [][]float64{{5}},
		})
		if err == nil {
			t.Fatal("expected error for a single value")
		}
	})
}

func TestViolinOutline(t *testing.T) {
	outline, err := violinOutline([]float64{1, 2, 3, 4, 5}, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(outline) != 2*violinKDEPoints {
		t.Fatalf("expected %d outline points, got %d", 2*violinKDEPoints, len(outline))
	}
	for _, pt := range outline {
		if pt.X < 2-violinHalfWidth-1e-9 || pt.X > 2+violinHalfWidth+1e-9 {
			t.Fatalf("outline point %v outside the violin width", pt)
		}
	}
}

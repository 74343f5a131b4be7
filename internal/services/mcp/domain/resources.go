package domain

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/nishide-dev/ml-research-mcp/internal/render"
)

// ColormapsResourceURI identifies the colormap catalog resource.
const ColormapsResourceURI = "plot://colormaps"

// FormatsResourceURI identifies the output format catalog resource.
const FormatsResourceURI = "plot://formats"

// ColormapsResource describes the catalog of colormap names accepted by the
// plotting tools.
func ColormapsResource() *mcp.Resource {
	return &mcp.Resource{
		URI:         ColormapsResourceURI,
		Name:        "colormaps",
		Description: "Colormap names accepted by the style.colormap parameter",
		MIMEType:    "application/json",
	}
}

// ColormapsResourceHandler serves the colormap catalog as JSON.
func ColormapsResourceHandler() mcp.ResourceHandler {
	return func(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		catalog := struct {
			Default   string   `json:"default"`
			Colormaps []string `json:"colormaps"`
		}{
			Default:   render.DefaultColormap,
			Colormaps: render.ColormapNames(),
		}
		return catalogResult(ColormapsResourceURI, catalog)
	}
}

// FormatsResource describes the catalog of supported output formats.
func FormatsResource() *mcp.Resource {
	return &mcp.Resource{
		URI:         FormatsResourceURI,
		Name:        "formats",
		Description: "Output formats accepted by the output.format parameter",
		MIMEType:    "application/json",
	}
}

// FormatsResourceHandler serves the output format catalog as JSON.
func FormatsResourceHandler() mcp.ResourceHandler {
	return func(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		type formatEntry struct {
			Name     string `json:"name"`
			MIMEType string `json:"mime_type"`
			Kind     string `json:"kind"`
		}
		catalog := struct {
			Default string        `json:"default"`
			Formats []formatEntry `json:"formats"`
		}{
			Default: string(render.FormatPNG),
			Formats: []formatEntry{
				{Name: string(render.FormatPNG), MIMEType: render.FormatPNG.MIMEType(), Kind: "raster"},
				{Name: string(render.FormatPDF), MIMEType: render.FormatPDF.MIMEType(), Kind: "vector"},
				{Name: string(render.FormatSVG), MIMEType: render.FormatSVG.MIMEType(), Kind: "vector"},
			},
		}
		return catalogResult(FormatsResourceURI, catalog)
	}
}

func catalogResult(uri string, catalog any) (*mcp.ReadResourceResult, error) {
	payload, err := json.MarshalIndent(catalog, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", uri, err)
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{
			{
				URI:      uri,
				MIMEType: "application/json",
				Text:     string(payload),
			},
		},
	}, nil
}

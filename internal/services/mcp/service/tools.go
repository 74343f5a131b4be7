package service

import (
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/nishide-dev/ml-research-mcp/internal/dataset"
	"github.com/nishide-dev/ml-research-mcp/internal/services/mcp/domain"
)

type mcpRegistrationTarget interface {
	AddTool(*mcp.Tool, any) error
	AddResource(*mcp.Resource, mcp.ResourceHandler)
}

func registerBasicTools(registrar mcpRegistrationTarget, loader *dataset.Loader) error {
	if err := registerTool(registrar, domain.PlotLineTool(), domain.PlotLineHandler(loader)); err != nil {
		return err
	}
	if err := registerTool(registrar, domain.PlotScatterTool(), domain.PlotScatterHandler(loader)); err != nil {
		return err
	}
	return registerTool(registrar, domain.PlotBarTool(), domain.PlotBarHandler(loader))
}

func registerGridTools(registrar mcpRegistrationTarget, loader *dataset.Loader) error {
	if err := registerTool(registrar, domain.PlotHeatmapTool(), domain.PlotHeatmapHandler(loader)); err != nil {
		return err
	}
	if err := registerTool(registrar, domain.PlotContourTool(), domain.PlotContourHandler(loader)); err != nil {
		return err
	}
	return registerTool(registrar, domain.PlotPcolormeshTool(), domain.PlotPcolormeshHandler(loader))
}

func registerStatisticalTools(registrar mcpRegistrationTarget, loader *dataset.Loader) error {
	if err := registerTool(registrar, domain.PlotHistogramTool(), domain.PlotHistogramHandler(loader)); err != nil {
		return err
	}
	if err := registerTool(registrar, domain.PlotBoxTool(), domain.PlotBoxHandler(loader)); err != nil {
		return err
	}
	return registerTool(registrar, domain.PlotViolinTool(), domain.PlotViolinHandler(loader))
}

func registerTool(registrar mcpRegistrationTarget, tool *mcp.Tool, handler any) error {
	if tool == nil {
		return fmt.Errorf("tool is nil")
	}
	return registrar.AddTool(tool, handler)
}

// registerCatalogResources registers the readable colormap and format
// catalogs.
func registerCatalogResources(registrar mcpRegistrationTarget) {
	registrar.AddResource(domain.ColormapsResource(), domain.ColormapsResourceHandler())
	registrar.AddResource(domain.FormatsResource(), domain.FormatsResourceHandler())
}

//go:build conformance

package conformance

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	simpleTextResponse        = "This is a simple text response for testing."
	errorTextResponse         = "This is an error response for testing."
	errorHandlingResponse     = "This tool intentionally returns an error for testing"
	staticTextResourceContent = "This is the content of the static text resource."
	staticTextResourceName    = "test_static_text"
	staticTextResourceURI     = "test://static-text"
)

// pngFixture is a valid 1x1 transparent PNG for image content validation.
var pngFixture = []byte{
	0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a, 0x00, 0x00, 0x00, 0x0d,
	0x49, 0x48, 0x44, 0x52, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
	0x08, 0x06, 0x00, 0x00, 0x00, 0x1f, 0x15, 0xc4, 0x89, 0x00, 0x00, 0x00,
	0x0d, 0x49, 0x44, 0x41, 0x54, 0x78, 0x9c, 0x62, 0x00, 0x01, 0x00, 0x00,
	0x05, 0x00, 0x01, 0x0d, 0x0a, 0x2d, 0xb4, 0x00, 0x00, 0x00, 0x00, 0x49,
	0x45, 0x4e, 0x44, 0xae, 0x42, 0x60, 0x82,
}

// Register adds conformance-only MCP fixtures (tools and resources).
func Register(mcpServer *mcp.Server) {
	if mcpServer == nil {
		return
	}

	mcp.AddTool(mcpServer, simpleTextTool(), simpleTextHandler())
	mcp.AddTool(mcpServer, errorContentTool(), errorContentHandler())
	mcp.AddTool(mcpServer, errorHandlingTool(), errorHandlingHandler())
	mcp.AddTool(mcpServer, imageContentTool(), imageContentHandler())
	mcpServer.AddResource(staticTextResource(), staticTextResourceHandler())
}

// simpleTextTool defines the MCP conformance tool schema for simple text output.
func simpleTextTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "test_simple_text",
		Description: "Conformance tool that returns a simple text response.",
	}
}

// simpleTextHandler returns a fixed text payload for conformance validation.
func simpleTextHandler() mcp.ToolHandlerFor[struct{}, any] {
	return func(_ context.Context, _ *mcp.CallToolRequest, _ struct{}) (*mcp.CallToolResult, any, error) {
		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{Text: simpleTextResponse},
			},
		}, nil, nil
	}
}

// errorContentTool defines the MCP conformance tool schema for error responses.
func errorContentTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "test_error_content",
		Description: "Conformance tool that returns an error response.",
	}
}

// errorContentHandler returns a fixed tool error payload for conformance validation.
func errorContentHandler() mcp.ToolHandlerFor[struct{}, any] {
	return func(_ context.Context, _ *mcp.CallToolRequest, _ struct{}) (*mcp.CallToolResult, any, error) {
		return &mcp.CallToolResult{
			IsError: true,
			Content: []mcp.Content{
				&mcp.TextContent{Text: errorTextResponse},
			},
		}, nil, nil
	}
}

// errorHandlingTool defines the MCP conformance tool schema for tool error handling.
func errorHandlingTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "test_error_handling",
		Description: "Conformance tool that always returns a tool error.",
	}
}

// errorHandlingHandler returns a fixed tool error payload for conformance validation.
func errorHandlingHandler() mcp.ToolHandlerFor[struct{}, any] {
	return func(_ context.Context, _ *mcp.CallToolRequest, _ struct{}) (*mcp.CallToolResult, any, error) {
		return &mcp.CallToolResult{
			IsError: true,
			Content: []mcp.Content{
				&mcp.TextContent{Text: errorHandlingResponse},
			},
		}, nil, nil
	}
}

// imageContentTool defines the MCP conformance tool schema for image output,
// mirroring how plotting tools return figures.
func imageContentTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "test_image_content",
		Description: "Conformance tool that returns a fixed PNG image.",
	}
}

// imageContentHandler returns a fixed PNG payload for conformance validation.
func imageContentHandler() mcp.ToolHandlerFor[struct{}, any] {
	return func(_ context.Context, _ *mcp.CallToolRequest, _ struct{}) (*mcp.CallToolResult, any, error) {
		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.ImageContent{Data: pngFixture, MIMEType: "image/png"},
			},
		}, nil, nil
	}
}

// staticTextResource defines the MCP conformance resource schema for static text content.
func staticTextResource() *mcp.Resource {
	return &mcp.Resource{
		Name:        staticTextResourceName,
		Description: "Conformance resource that returns fixed text content.",
		MIMEType:    "text/plain",
		URI:         staticTextResourceURI,
	}
}

// staticTextResourceHandler returns fixed text content for conformance validation.
func staticTextResourceHandler() mcp.ResourceHandler {
	return func(_ context.Context, _ *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		return &mcp.ReadResourceResult{
			Contents: []*mcp.ResourceContents{
				{
					URI:      staticTextResourceURI,
					MIMEType: "text/plain",
					Text:     staticTextResourceContent,
				},
			},
		}, nil
	}
}

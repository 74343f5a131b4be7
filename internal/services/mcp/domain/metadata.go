package domain

import (
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/nishide-dev/ml-research-mcp/internal/platform/id"
	"github.com/nishide-dev/ml-research-mcp/internal/render"
)

// invocationIDMetaKey names the correlation identifier in tool result metadata.
const invocationIDMetaKey = "ml-research-mcp/invocation_id"

// ToolCallMetadata carries correlation identifiers for MCP tool calls.
type ToolCallMetadata struct {
	InvocationID string
}

// NewInvocationID generates an invocation identifier for a tool call.
func NewInvocationID() (string, error) {
	return id.NewID()
}

// figureCallResult wraps encoded figure bytes as MCP content with correlation
// metadata. PNG and SVG payloads travel as image content; PDF has no MCP image
// type and is returned as an embedded resource blob.
func figureCallResult(meta ToolCallMetadata, data []byte, format render.Format) *mcp.CallToolResult {
	var content mcp.Content
	switch format {
	case render.FormatPDF:
		content = &mcp.EmbeddedResource{
			Resource: &mcp.ResourceContents{
				URI:      fmt.Sprintf("plot://figure/%s.pdf", meta.InvocationID),
				MIMEType: format.MIMEType(),
				Blob:     data,
			},
		}
	default:
		content = &mcp.ImageContent{
			Data:     data,
			MIMEType: format.MIMEType(),
		}
	}

	result := &mcp.CallToolResult{
		Content: []mcp.Content{content},
	}
	if meta.InvocationID != "" {
		result.Meta = map[string]any{
			invocationIDMetaKey: meta.InvocationID,
		}
	}
	return result
}

// Package domain defines the MCP plotting tools: their input/output types,
// schema constructors, and handlers. Handlers validate parameters, resolve
// tabular data through the dataset loader, build gonum plots, and return the
// encoded figure bytes as MCP content.
package domain

// Package conformance registers MCP fixtures used by the conformance suite.
//
// These helpers are not part of the plotting surface; they exist solely to
// validate MCP protocol behavior against a known, deterministic contract.
// Build with the "conformance" tag to enable these fixtures.
package conformance

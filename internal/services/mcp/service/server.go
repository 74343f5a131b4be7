package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/nishide-dev/ml-research-mcp/internal/dataset"
	"github.com/nishide-dev/ml-research-mcp/internal/services/mcp/conformance"
	"github.com/nishide-dev/ml-research-mcp/internal/services/mcp/domain"
)

const (
	// serverName identifies this MCP server to clients.
	serverName = "ML Research MCP"
	// serverVersion identifies the MCP server version.
	serverVersion = "0.1.0"
)

type mcpRegistrationKind int

const (
	mcpRegistrationKindTools mcpRegistrationKind = iota
	mcpRegistrationKindResources
)

type mcpRegistrationModule struct {
	name     string
	kind     mcpRegistrationKind
	register func(mcpRegistrationTarget) error
}

const (
	mcpBasicToolsModuleName       = "basic-tools"
	mcpGridToolsModuleName        = "grid-tools"
	mcpStatisticalToolsModuleName = "statistical-tools"
	mcpCatalogResourceModuleName  = "catalog-resources"
)

type mcpServerRegistrationAdapter struct {
	server *mcp.Server
}

func (r mcpServerRegistrationAdapter) AddTool(tool *mcp.Tool, handler any) error {
	return addMCPTool(r.server, tool, handler)
}

func (r mcpServerRegistrationAdapter) AddResource(resource *mcp.Resource, handler mcp.ResourceHandler) {
	r.server.AddResource(resource, handler)
}

type mcpToolRegistrar struct {
	matches func(any) bool
	add     func(*mcp.Server, *mcp.Tool, any)
}

func newMCPToolRegistrar[I any, O any]() mcpToolRegistrar {
	return mcpToolRegistrar{
		matches: func(handler any) bool {
			_, ok := handler.(mcp.ToolHandlerFor[I, O])
			return ok
		},
		add: func(server *mcp.Server, tool *mcp.Tool, handler any) {
			mcp.AddTool(server, tool, handler.(mcp.ToolHandlerFor[I, O]))
		},
	}
}

var mcpToolRegistrars = []mcpToolRegistrar{
	newMCPToolRegistrar[domain.PlotLineInput, domain.PlotResult](),
	newMCPToolRegistrar[domain.PlotScatterInput, domain.PlotResult](),
	newMCPToolRegistrar[domain.PlotBarInput, domain.PlotResult](),
	newMCPToolRegistrar[domain.PlotHeatmapInput, domain.PlotResult](),
	newMCPToolRegistrar[domain.PlotContourInput, domain.PlotResult](),
	newMCPToolRegistrar[domain.PlotPcolormeshInput, domain.PlotResult](),
	newMCPToolRegistrar[domain.PlotHistogramInput, domain.PlotResult](),
	newMCPToolRegistrar[domain.PlotBoxInput, domain.PlotResult](),
	newMCPToolRegistrar[domain.PlotViolinInput, domain.PlotResult](),
}

func addMCPTool(server *mcp.Server, tool *mcp.Tool, handler any) error {
	for _, registrar := range mcpToolRegistrars {
		if registrar.matches(handler) {
			registrar.add(server, tool, handler)
			return nil
		}
	}
	toolName := "<nil>"
	if tool != nil {
		toolName = tool.Name
	}
	return fmt.Errorf("mcp registration adapter does not support handler type %T for tool %q", handler, toolName)
}

func newMCPRegistrationModules(loader *dataset.Loader) []mcpRegistrationModule {
	return []mcpRegistrationModule{
		{
			name: mcpBasicToolsModuleName,
			kind: mcpRegistrationKindTools,
			register: func(registrar mcpRegistrationTarget) error {
				return registerBasicTools(registrar, loader)
			},
		},
		{
			name: mcpGridToolsModuleName,
			kind: mcpRegistrationKindTools,
			register: func(registrar mcpRegistrationTarget) error {
				return registerGridTools(registrar, loader)
			},
		},
		{
			name: mcpStatisticalToolsModuleName,
			kind: mcpRegistrationKindTools,
			register: func(registrar mcpRegistrationTarget) error {
				return registerStatisticalTools(registrar, loader)
			},
		},
		{
			name: mcpCatalogResourceModuleName,
			kind: mcpRegistrationKindResources,
			register: func(registrar mcpRegistrationTarget) error {
				registerCatalogResources(registrar)
				return nil
			},
		},
	}
}

// TransportKind identifies the MCP transport implementation.
type TransportKind string

const (
	// TransportStdio uses standard input/output for MCP.
	TransportStdio TransportKind = "stdio"
	// TransportHTTP runs MCP over HTTP/SSE for browser or remote clients.
	TransportHTTP TransportKind = "http"
)

// Config configures the MCP server.
type Config struct {
	Transport TransportKind
	// HTTPAddr is the HTTP server address. Defaults to localhost:8081 for
	// HTTP transport.
	HTTPAddr string
	// DataDir confines file_path data loading when set. Empty allows any
	// readable path, which is only appropriate for local stdio use.
	DataDir string
	// AllowedHosts lists Host header values accepted by the HTTP transport
	// beyond the localhost defaults.
	AllowedHosts []string
	// APIToken enables bearer token authentication on the HTTP transport
	// when non-empty.
	APIToken string
}

// Server hosts the MCP server.
type Server struct {
	mcpServer *mcp.Server
	loader    *dataset.Loader
}

// New creates a configured MCP server with all plotting tools and catalog
// resources registered against the given data directory.
func New(dataDir string) (*Server, error) {
	loader := &dataset.Loader{BaseDir: dataDir}
	mcpServer := mcp.NewServer(&mcp.Implementation{Name: serverName, Version: serverVersion}, &mcp.ServerOptions{
		CompletionHandler:  completionHandler,
		SubscribeHandler:   resourceSubscribeHandler,
		UnsubscribeHandler: resourceUnsubscribeHandler,
	})

	server := &Server{mcpServer: mcpServer, loader: loader}
	for _, module := range newMCPRegistrationModules(loader) {
		if err := module.register(mcpServerRegistrationAdapter{server: mcpServer}); err != nil {
			return nil, fmt.Errorf("register MCP module %q: %w", module.name, err)
		}
	}

	conformance.Register(mcpServer)

	return server, nil
}

// completionHandler handles completion/complete requests. Tool arguments have
// no free-text completion surface today, so results are empty rather than
// guessed.
func completionHandler(ctx context.Context, req *mcp.CompleteRequest) (*mcp.CompleteResult, error) {
	return &mcp.CompleteResult{
		Completion: mcp.CompletionResultDetails{
			Values: []string{},
		},
	}, nil
}

// resourceSubscribeHandler accepts resource subscriptions with a valid URI.
func resourceSubscribeHandler(_ context.Context, req *mcp.SubscribeRequest) error {
	if req == nil || req.Params == nil || strings.TrimSpace(req.Params.URI) == "" {
		return fmt.Errorf("resource uri is required")
	}
	return nil
}

// resourceUnsubscribeHandler accepts resource unsubscriptions with a valid URI.
func resourceUnsubscribeHandler(_ context.Context, req *mcp.UnsubscribeRequest) error {
	if req == nil || req.Params == nil || strings.TrimSpace(req.Params.URI) == "" {
		return fmt.Errorf("resource uri is required")
	}
	return nil
}

// Run is the service entrypoint for MCP and blocks until context cancellation.
// It is transport-agnostic so startup can choose stdio for local tools and
// HTTP for browser/remote integrations.
func Run(ctx context.Context, cfg Config) error {
	if cfg.Transport == "" {
		cfg.Transport = TransportStdio
	}

	switch cfg.Transport {
	case TransportStdio:
		server, err := New(cfg.DataDir)
		if err != nil {
			return err
		}
		return server.serveWithTransport(ctx, &mcp.StdioTransport{})
	case TransportHTTP:
		return runWithHTTPTransport(ctx, cfg)
	default:
		return fmt.Errorf("transport %q is not supported", cfg.Transport)
	}
}

// runWithHTTPTransport creates a server and serves it over HTTP transport,
// keeping session/stateful transport concerns isolated from the same MCP
// domain handlers used by stdio.
func runWithHTTPTransport(ctx context.Context, cfg Config) error {
	// Default to localhost-only binding.
	httpAddr := cfg.HTTPAddr
	if httpAddr == "" {
		httpAddr = "localhost:8081"
	}

	server, err := New(cfg.DataDir)
	if err != nil {
		return err
	}

	httpTransport := NewHTTPTransportWithServer(httpAddr, server.mcpServer)
	httpTransport.addAllowedHosts(cfg.AllowedHosts)
	httpTransport.setAPIToken(cfg.APIToken)

	return httpTransport.Start(ctx)
}

// Serve starts the MCP server on stdio and blocks until it stops or the
// context ends.
func (s *Server) Serve(ctx context.Context) error {
	return s.serveWithTransport(ctx, &mcp.StdioTransport{})
}

// serveWithTransport starts the MCP server using the provided transport.
// Context cancellation is the expected shutdown path and is not reported as
// an error.
func (s *Server) serveWithTransport(ctx context.Context, transport mcp.Transport) error {
	if s == nil || s.mcpServer == nil {
		return fmt.Errorf("MCP server is not configured")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	err := s.mcpServer.Run(ctx, transport)
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		err = nil
	}
	if err != nil {
		return fmt.Errorf("serve MCP: %w", err)
	}
	return nil
}

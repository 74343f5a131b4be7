// Package mcp parses MCP command flags and selects stdio or HTTP transport.
package mcp

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/nishide-dev/ml-research-mcp/internal/platform/config"
	"github.com/nishide-dev/ml-research-mcp/internal/platform/otel"
	"github.com/nishide-dev/ml-research-mcp/internal/services/mcp/service"
)

// Config holds MCP command configuration.
type Config struct {
	Transport    string   `env:"ML_RESEARCH_MCP_TRANSPORT"     envDefault:"stdio"`
	HTTPAddr     string   `env:"ML_RESEARCH_MCP_HTTP_ADDR"     envDefault:"localhost:8081"`
	DataDir      string   `env:"ML_RESEARCH_MCP_DATA_DIR"`
	AllowedHosts []string `env:"ML_RESEARCH_MCP_ALLOWED_HOSTS" envSeparator:","`
	APIToken     string   `env:"ML_RESEARCH_MCP_API_TOKEN"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := config.ParseEnv(&cfg); err != nil {
		return Config{}, err
	}

	fs.StringVar(&cfg.Transport, "transport", cfg.Transport, "Transport type: stdio or http")
	fs.StringVar(&cfg.HTTPAddr, "http-addr", cfg.HTTPAddr, "HTTP server address (for HTTP transport)")
	fs.StringVar(&cfg.DataDir, "data-dir", cfg.DataDir, "Directory data file paths are confined to (empty allows any path)")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run starts the MCP plotting server.
func Run(ctx context.Context, cfg Config) error {
	shutdown, err := otel.Setup(ctx, "mcp")
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			log.Printf("otel shutdown: %v", err)
		}
	}()

	return service.Run(ctx, service.Config{
		Transport:    service.TransportKind(cfg.Transport),
		HTTPAddr:     cfg.HTTPAddr,
		DataDir:      cfg.DataDir,
		AllowedHosts: cfg.AllowedHosts,
		APIToken:     cfg.APIToken,
	})
}

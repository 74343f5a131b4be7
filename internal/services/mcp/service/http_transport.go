package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"log"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/nishide-dev/ml-research-mcp/internal/platform/config"
)

var listenTCP = net.Listen

// mcpHTTPEnv holds env-parsed configuration for MCP HTTP transport.
type mcpHTTPEnv struct {
	AllowedHosts []string `env:"ML_RESEARCH_MCP_ALLOWED_HOSTS" envSeparator:","`
	APIToken     string   `env:"ML_RESEARCH_MCP_API_TOKEN"`
}

const (
	// defaultChannelBufferSize is the buffer size for request, response, and
	// notification channels.
	defaultChannelBufferSize = 10

	// defaultRequestTimeout is the maximum time to wait for a JSON-RPC
	// response. Vector rendering of large datasets can take a while, so this
	// is generous compared to typical RPC budgets.
	defaultRequestTimeout = 30 * time.Second

	// defaultShutdownTimeout is the maximum time to wait for graceful HTTP
	// server shutdown. Longer than defaultRequestTimeout so in-flight renders
	// can complete.
	defaultShutdownTimeout = 35 * time.Second

	// sessionCleanupInterval is how often expired sessions are removed.
	sessionCleanupInterval = 5 * time.Minute

	// sessionExpirationTime is how long a session can be inactive before
	// being cleaned up.
	sessionExpirationTime = 1 * time.Hour

	// sseHeartbeatInterval is how often lastUsed is refreshed for active SSE
	// connections.
	sseHeartbeatInterval = 30 * time.Second

	// defaultSessionReadyTimeout bounds how long request handling waits for a
	// session connection to become ready.
	defaultSessionReadyTimeout = 100 * time.Millisecond
)

// HTTPTransport implements mcp.Transport for HTTP-based MCP communication.
// It serves JSON-RPC messages over POST requests and streams notifications
// over Server-Sent Events. Session lifecycle and cleanup are explicit so
// long-lived clients cannot leak connections.
type HTTPTransport struct {
	addr         string
	allowedHosts map[string]struct{}
	apiToken     string
	server       *mcp.Server
	sessions     map[string]*httpSession
	sessionsMu   sync.RWMutex
	httpServer   *http.Server
	serverCtx    context.Context
	serverCancel context.CancelFunc
	serverOnceMu sync.Mutex
	serverOnce   map[string]*sync.Once

	serverReadyTimeout time.Duration
	randomReader       func([]byte) (int, error)
	readyAfter         func(time.Duration) <-chan time.Time
}

// httpSession maintains state for a single MCP session in memory. It tracks
// liveness and the active connection so cleanup and SSE delivery can be
// scoped to one client session.
type httpSession struct {
	id        string
	conn      *httpConnection
	createdAt time.Time
	lastUsed  time.Time
}

// NewHTTPTransport creates an HTTP transport serving MCP on addr. It defaults
// to localhost-only binding so the server stays constrained to local use
// unless hosts are explicitly configured.
func NewHTTPTransport(addr string) *HTTPTransport {
	if addr == "" {
		addr = "localhost:8081"
	}
	var raw mcpHTTPEnv
	_ = config.ParseEnv(&raw)
	ctx, cancel := context.WithCancel(context.Background())
	return &HTTPTransport{
		addr:               addr,
		allowedHosts:       parseAllowedHosts(raw.AllowedHosts),
		apiToken:           strings.TrimSpace(raw.APIToken),
		sessions:           make(map[string]*httpSession),
		serverCtx:          ctx,
		serverCancel:       cancel,
		serverOnce:         make(map[string]*sync.Once),
		serverReadyTimeout: defaultSessionReadyTimeout,
		randomReader:       rand.Read,
		readyAfter:         time.After,
	}
}

// NewHTTPTransportWithServer creates an HTTP transport bound to a
// preconfigured MCP server, which keeps tests and process lifecycle simple.
func NewHTTPTransportWithServer(addr string, server *mcp.Server) *HTTPTransport {
	transport := NewHTTPTransport(addr)
	transport.server = server
	return transport
}

// addAllowedHosts merges extra Host header values into the allow list.
func (t *HTTPTransport) addAllowedHosts(hosts []string) {
	for host, entry := range parseAllowedHosts(hosts) {
		t.allowedHosts[host] = entry
	}
}

// setAPIToken enables bearer token authentication when token is non-empty.
func (t *HTTPTransport) setAPIToken(token string) {
	if token = strings.TrimSpace(token); token != "" {
		t.apiToken = token
	}
}

// Start starts the HTTP server and blocks until the context is cancelled or
// the server fails. One server instance multiplexes POST requests and SSE
// streams while sharing host validation, auth, and session lifecycle.
func (t *HTTPTransport) Start(ctx context.Context) error {
	t.serverCtx, t.serverCancel = context.WithCancel(ctx)

	go t.cleanupSessions(ctx)

	mux := http.NewServeMux()

	// /mcp handles both GET (SSE) and POST (messages).
	mux.HandleFunc("/mcp", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			t.handleSSE(w, r)
		case http.MethodPost:
			t.handleMessages(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})
	mux.HandleFunc("/mcp/health", t.handleHealth)

	t.httpServer = &http.Server{
		Addr:    t.addr,
		Handler: mux,
	}

	log.Printf("Starting MCP HTTP server on %s", t.addr)

	errChan := make(chan error, 1)
	go func() {
		listener, err := listenTCP("tcp", t.addr)
		if err != nil {
			errChan <- err
			return
		}
		if err := t.httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Printf("Shutting down MCP HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
		defer cancel()
		if err := t.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown HTTP server: %w", err)
		}
		if t.serverCancel != nil {
			t.serverCancel()
		}
		return nil
	case err := <-errChan:
		return fmt.Errorf("HTTP server error: %w", err)
	}
}

package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/modelcontextprotocol/go-sdk/jsonrpc"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Connect implements mcp.Transport.Connect. Each call creates a fresh session
// and connection so one client identity can be tracked across multiple
// request/notification streams without cross-session contamination.
func (t *HTTPTransport) Connect(ctx context.Context) (mcp.Connection, error) {
	sessionID := t.generateSessionID()

	conn := &httpConnection{
		sessionID:   sessionID,
		reqChan:     make(chan jsonrpc.Message, defaultChannelBufferSize),
		respChan:    make(chan jsonrpc.Message, defaultChannelBufferSize),
		notifyChan:  make(chan jsonrpc.Message, defaultChannelBufferSize),
		closed:      make(chan struct{}),
		ready:       make(chan struct{}, 1),
		pendingReqs: make(map[jsonrpc.ID]chan jsonrpc.Message),
	}

	session := &httpSession{
		id:        sessionID,
		conn:      conn,
		createdAt: time.Now(),
		lastUsed:  time.Now(),
	}

	t.sessionsMu.Lock()
	t.sessions[sessionID] = session
	t.sessionsMu.Unlock()

	return conn, nil
}

func (t *HTTPTransport) generateSessionID() string {
	randomReader := rand.Read
	if t != nil && t.randomReader != nil {
		randomReader = t.randomReader
	}
	return generateSessionIDWithRandomRead(randomReader)
}

// cleanupSessions periodically removes idle sessions and closes their
// connections so abandoned clients do not accumulate goroutines.
func (t *HTTPTransport) cleanupSessions(ctx context.Context) {
	ticker := time.NewTicker(sessionCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.sessionsMu.Lock()
			expiration := time.Now().Add(-sessionExpirationTime)
			for id, session := range t.sessions {
				if session.lastUsed.Before(expiration) {
					session.conn.Close()
					delete(t.sessions, id)
					delete(t.serverOnce, id)
				}
			}
			t.sessionsMu.Unlock()
		}
	}
}

// ensureServerRunning starts the MCP server session for a connection exactly
// once and waits briefly for the connection to become ready.
func (t *HTTPTransport) ensureServerRunning(session *httpSession) {
	if t.server == nil {
		return
	}

	t.serverOnceMu.Lock()
	once, exists := t.serverOnce[session.id]
	if !exists {
		once = &sync.Once{}
		t.serverOnce[session.id] = once
	}
	t.serverOnceMu.Unlock()

	sessionTransport := &sessionTransport{conn: session.conn}

	once.Do(func() {
		go func() {
			serverSession, err := t.server.Connect(t.serverCtx, sessionTransport, nil)
			if err != nil {
				log.Printf("Failed to connect MCP server session %s: %v", session.id, err)
				return
			}
			_ = serverSession.Wait()
		}()
	})

	select {
	case <-session.conn.ready:
	case <-t.readyAfterOrDefault()(t.serverReadyTimeoutOrDefault()):
		// Readiness is also signaled on the first Read, so a short timeout
		// only defers processing to the first message.
	case <-t.serverCtx.Done():
		return
	}
}

func (t *HTTPTransport) readyAfterOrDefault() func(time.Duration) <-chan time.Time {
	if t == nil || t.readyAfter == nil {
		return time.After
	}
	return t.readyAfter
}

func (t *HTTPTransport) serverReadyTimeoutOrDefault() time.Duration {
	if t == nil || t.serverReadyTimeout <= 0 {
		return defaultSessionReadyTimeout
	}
	return t.serverReadyTimeout
}

// sessionTransport returns a specific pre-existing connection, which lets
// Server.Connect drive an already-established HTTP session.
type sessionTransport struct {
	conn mcp.Connection
}

// Connect implements mcp.Transport.Connect.
func (st *sessionTransport) Connect(ctx context.Context) (mcp.Connection, error) {
	return st.conn, nil
}

var sessionCounter atomic.Uint64

// generateSessionID generates a unique session ID from crypto/rand bytes
// combined with a process-local counter.
func generateSessionID() string {
	return generateSessionIDWithRandomRead(rand.Read)
}

func generateSessionIDWithRandomRead(randomRead func([]byte) (int, error)) string {
	b := make([]byte, 8)
	if randomRead == nil {
		randomRead = rand.Read
	}
	if _, err := randomRead(b); err != nil {
		// Timestamp plus counter keeps IDs unique if crypto/rand fails.
		counter := sessionCounter.Add(1)
		return fmt.Sprintf("session_%d_%d", time.Now().UnixNano(), counter)
	}
	counter := sessionCounter.Add(1)
	return fmt.Sprintf("session_%s_%d", hex.EncodeToString(b), counter)
}

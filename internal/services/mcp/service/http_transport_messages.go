package service

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/jsonrpc"
)

// sessionCookieName carries the session ID for clients that do not send the
// Mcp-Session-Id header.
const sessionCookieName = "mcp_session"

// lookupSession resolves the session referenced by the request header or
// cookie. It returns the session ID even when no session was found so the
// caller can distinguish unknown from missing.
func (t *HTTPTransport) lookupSession(r *http.Request) (*httpSession, string) {
	sessionID := strings.TrimSpace(r.Header.Get("Mcp-Session-Id"))
	if sessionID == "" {
		if cookie, err := r.Cookie(sessionCookieName); err == nil && cookie != nil {
			sessionID = cookie.Value
		}
	}
	if sessionID == "" {
		return nil, ""
	}
	t.sessionsMu.RLock()
	session := t.sessions[sessionID]
	t.sessionsMu.RUnlock()
	return session, sessionID
}

// touchSession refreshes the session's idle timer.
func (t *HTTPTransport) touchSession(sessionID string) {
	t.sessionsMu.Lock()
	if s, ok := t.sessions[sessionID]; ok && s != nil {
		s.lastUsed = time.Now()
	}
	t.sessionsMu.Unlock()
}

// handleMessages handles POST /mcp for JSON-RPC requests. It maps
// transport-agnostic JSON-RPC payloads onto session-local MCP connection
// state so a plotting client stays contiguous across HTTP round-trips.
func (t *HTTPTransport) handleMessages(w http.ResponseWriter, r *http.Request) {
	if err := t.validateLocalRequest(r); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if !t.authorizeRequest(w, r) {
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Failed to read request", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	msg, err := jsonrpc.DecodeMessage(body)
	if err != nil {
		log.Printf("Invalid JSON-RPC message: %v", err)
		http.Error(w, "Invalid JSON-RPC message", http.StatusBadRequest)
		return
	}

	// The MCP HTTP transport requires initialize before other methods; only
	// initialize may mint a new session.
	isInitialize := false
	if req, ok := msg.(*jsonrpc.Request); ok {
		isInitialize = req.Method == "initialize"
	}

	session, sessionID := t.lookupSession(r)
	if session == nil {
		if !isInitialize {
			writeSessionError(w, "Invalid or missing session ID")
			return
		}
		conn, err := t.Connect(r.Context())
		if err != nil {
			log.Printf("Failed to create session: %v", err)
			http.Error(w, "Failed to create session", http.StatusInternalServerError)
			return
		}
		sessionID = conn.SessionID()
		t.sessionsMu.RLock()
		session = t.sessions[sessionID]
		t.sessionsMu.RUnlock()

		w.Header().Set("Mcp-Session-Id", sessionID)
		// Cookie fallback for clients that drop custom headers.
		http.SetCookie(w, &http.Cookie{
			Name:     sessionCookieName,
			Value:    sessionID,
			Path:     "/",
			HttpOnly: true,
			SameSite: http.SameSiteStrictMode,
		})
	}
	if session == nil {
		http.Error(w, "Failed to retrieve session after creation", http.StatusInternalServerError)
		return
	}
	t.touchSession(sessionID)

	t.ensureServerRunning(session)

	// Requests carry an ID and expect a reply; notifications do not. The
	// zero jsonrpc.ID marks a notification.
	var isRequest bool
	switch v := msg.(type) {
	case *jsonrpc.Request:
		isRequest = v.ID != jsonrpc.ID{}
	case *jsonrpc.Response:
		http.Error(w, "Invalid message type: response", http.StatusBadRequest)
		return
	default:
		isRequest = true
	}

	if !isRequest {
		select {
		case session.conn.reqChan <- msg:
		case <-r.Context().Done():
			http.Error(w, "Request cancelled", http.StatusRequestTimeout)
			return
		}
		w.WriteHeader(http.StatusNoContent)
		return
	}

	req, ok := msg.(*jsonrpc.Request)
	if !ok {
		http.Error(w, "Invalid request type", http.StatusBadRequest)
		return
	}

	respChan := make(chan jsonrpc.Message, 1)
	session.conn.pendingMu.Lock()
	session.conn.pendingReqs[req.ID] = respChan
	session.conn.pendingMu.Unlock()

	clearPending := func() {
		session.conn.pendingMu.Lock()
		delete(session.conn.pendingReqs, req.ID)
		session.conn.pendingMu.Unlock()
	}

	select {
	case session.conn.reqChan <- msg:
	case <-r.Context().Done():
		clearPending()
		http.Error(w, "Request cancelled", http.StatusRequestTimeout)
		return
	}

	select {
	case resp := <-respChan:
		clearPending()
		data, err := jsonrpc.EncodeMessage(resp)
		if err != nil {
			log.Printf("Failed to encode response: %v", err)
			http.Error(w, "Failed to encode response", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if _, err := w.Write(data); err != nil {
			log.Printf("Failed to write response: %v", err)
		}
	case <-r.Context().Done():
		clearPending()
		http.Error(w, "Request cancelled", http.StatusRequestTimeout)
	case <-time.After(defaultRequestTimeout):
		clearPending()
		http.Error(w, "Request timeout", http.StatusRequestTimeout)
	}
}

func writeSessionError(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)
	payload := map[string]any{
		"jsonrpc": "2.0",
		"error": map[string]any{
			"code":    -32000,
			"message": message,
		},
		"id": nil,
	}
	data, err := json.Marshal(payload)
	if err != nil {
		_, _ = w.Write([]byte(`{"jsonrpc":"2.0","error":{"code":-32000,"message":"Session error"},"id":null}`))
		return
	}
	_, _ = w.Write(data)
}

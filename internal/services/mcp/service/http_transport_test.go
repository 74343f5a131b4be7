package service

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestIsLoopbackHost(t *testing.T) {
	tests := []struct {
		host string
		want bool
	}{
		{"localhost", true},
		{"LOCALHOST", true},
		{"127.0.0.1", true},
		{"::1", true},
		{" localhost ", true},
		{"example.com", false},
		{"127.0.0.2", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.host, func(t *testing.T) {
			if got := isLoopbackHost(tt.host); got != tt.want {
				t.Errorf("isLoopbackHost(%q) = %v, want %v", tt.host, got, tt.want)
			}
		})
	}
}

func TestNormalizeHost(t *testing.T) {
	tests := []struct {
		input  string
		want   string
		wantOk bool
	}{
		{"localhost:8081", "localhost", true},
		{"example.com:443", "example.com", true},
		{"[::1]:8081", "::1", true},
		{"[::1]", "::1", true},
		{"::1", "::1", true},
		{"example.com", "example.com", true},
		{"", "", false},
		{"  ", "", false},
		{"[::1", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := normalizeHost(tt.input)
			if ok != tt.wantOk || got != tt.want {
				t.Errorf("normalizeHost(%q) = (%q, %v), want (%q, %v)", tt.input, got, ok, tt.want, tt.wantOk)
			}
		})
	}
}

func TestValidateLocalRequestAllowsConfiguredHosts(t *testing.T) {
	transport := NewHTTPTransport("localhost:8081")
	transport.addAllowedHosts([]string{"plots.internal"})

	t.Run("loopback", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "http://localhost:8081/mcp/health", nil)
		if err := transport.validateLocalRequest(req); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("configured host", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "http://plots.internal/mcp/health", nil)
		if err := transport.validateLocalRequest(req); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("unknown host", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "http://evil.example/mcp/health", nil)
		if err := transport.validateLocalRequest(req); err == nil {
			t.Error("expected error for unknown host")
		}
	})

	t.Run("bad origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "http://localhost:8081/mcp/health", nil)
		req.Header.Set("Origin", "http://evil.example")
		if err := transport.validateLocalRequest(req); err == nil {
			t.Error("expected error for unknown origin")
		}
	})
}

func TestAuthorizeRequestAPIToken(t *testing.T) {
	t.Run("no token configured", func(t *testing.T) {
		transport := NewHTTPTransport("localhost:8081")
		transport.apiToken = ""
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "http://localhost:8081/mcp", nil)
		if !transport.authorizeRequest(w, req) {
			t.Error("expected request to be allowed without a configured token")
		}
	})

	t.Run("missing bearer", func(t *testing.T) {
		transport := NewHTTPTransport("localhost:8081")
		transport.setAPIToken("secret")
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "http://localhost:8081/mcp", nil)
		if transport.authorizeRequest(w, req) {
			t.Error("expected rejection without bearer token")
		}
		if w.Result().StatusCode != http.StatusUnauthorized {
			t.Errorf("expected 401, got %d", w.Result().StatusCode)
		}
	})

	t.Run("wrong token", func(t *testing.T) {
		transport := NewHTTPTransport("localhost:8081")
		transport.setAPIToken("secret")
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "http://localhost:8081/mcp", nil)
		req.Header.Set("Authorization", "Bearer wrong")
		if transport.authorizeRequest(w, req) {
			t.Error("expected rejection of wrong token")
		}
	})

	t.Run("matching token", func(t *testing.T) {
		transport := NewHTTPTransport("localhost:8081")
		transport.setAPIToken("secret")
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "http://localhost:8081/mcp", nil)
		req.Header.Set("Authorization", "Bearer secret")
		if !transport.authorizeRequest(w, req) {
			t.Error("expected matching token to be allowed")
		}
	})
}

func TestGenerateSessionID(t *testing.T) {
	t.Run("unique", func(t *testing.T) {
		seen := make(map[string]bool)
		for range 100 {
			id := generateSessionID()
			if seen[id] {
				t.Fatalf("duplicate session id %q", id)
			}
			seen[id] = true
		}
	})

	t.Run("random failure falls back", func(t *testing.T) {
		id := generateSessionIDWithRandomRead(func([]byte) (int, error) {
			return 0, errors.New("no entropy")
		})
		if !strings.HasPrefix(id, "session_") {
			t.Errorf("expected fallback session id, got %q", id)
		}
	})
}

func TestHandleHealth(t *testing.T) {
	transport := NewHTTPTransport("localhost:8081")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "http://localhost:8081/mcp/health", nil)
	transport.handleHealth(w, req)

	if w.Result().StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Result().StatusCode)
	}
	if w.Body.String() != "OK" {
		t.Errorf("expected OK body, got %q", w.Body.String())
	}
}

func TestHandleMessagesRequiresSessionForNonInitialize(t *testing.T) {
	transport := NewHTTPTransport("localhost:8081")

	body := `{"jsonrpc":"2.0","id":1,"method":"tools/list"}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "http://localhost:8081/mcp", strings.NewReader(body))
	transport.handleMessages(w, req)

	if w.Result().StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for missing session, got %d", w.Result().StatusCode)
	}
}

func TestHandleMessagesRejectsInvalidJSON(t *testing.T) {
	transport := NewHTTPTransport("localhost:8081")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "http://localhost:8081/mcp", strings.NewReader("not json"))
	transport.handleMessages(w, req)

	if w.Result().StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for invalid JSON, got %d", w.Result().StatusCode)
	}
}

package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/modelcontextprotocol/go-sdk/jsonrpc"
)

// httpConnection implements mcp.Connection for HTTP-based communication. The
// MCP SDK expects a bidirectional connection, so this adapter maps the
// request/response flow and notification delivery onto separate buffered
// channels.
type httpConnection struct {
	sessionID   string
	reqChan     chan jsonrpc.Message
	respChan    chan jsonrpc.Message
	notifyChan  chan jsonrpc.Message // delivered over SSE
	closed      chan struct{}
	ready       chan struct{} // signaled once Server.Connect has started reading
	readyOnce   sync.Once
	mu          sync.Mutex
	closedFlag  bool
	pendingReqs map[jsonrpc.ID]chan jsonrpc.Message
	pendingMu   sync.Mutex
}

func (c *httpConnection) Read(ctx context.Context) (jsonrpc.Message, error) {
	c.readyOnce.Do(func() {
		select {
		case c.ready <- struct{}{}:
		default:
		}
	})

	select {
	case msg, ok := <-c.reqChan:
		if !ok {
			return nil, fmt.Errorf("connection closed")
		}
		return msg, nil
	case <-c.closed:
		return nil, fmt.Errorf("connection closed")
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Write routes responses to the pending request that is waiting for them.
// Notifications and unmatched responses go to the notification channel so
// callers awaiting a specific exchange never receive unrelated traffic.
func (c *httpConnection) Write(ctx context.Context, msg jsonrpc.Message) error {
	if c.isClosed() {
		return fmt.Errorf("connection closed")
	}

	if resp, ok := msg.(*jsonrpc.Response); ok && resp.ID != (jsonrpc.ID{}) {
		c.pendingMu.Lock()
		respChan, exists := c.pendingReqs[resp.ID]
		c.pendingMu.Unlock()

		if exists {
			if c.isClosed() {
				return fmt.Errorf("connection closed")
			}
			select {
			case respChan <- msg:
				return nil
			case <-c.closed:
				return fmt.Errorf("connection closed")
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}

	if c.isClosed() {
		return fmt.Errorf("connection closed")
	}
	select {
	case c.notifyChan <- msg:
		return nil
	case <-c.closed:
		return fmt.Errorf("connection closed")
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *httpConnection) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closedFlag
}

// Close drains all waiters and channels so a dropped session cannot leave
// goroutines blocked on per-session reads or writes.
func (c *httpConnection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closedFlag {
		return nil
	}

	c.closedFlag = true
	close(c.closed)
	close(c.reqChan)
	close(c.respChan)
	close(c.notifyChan)

	c.pendingMu.Lock()
	for _, respChan := range c.pendingReqs {
		close(respChan)
	}
	c.pendingReqs = nil
	c.pendingMu.Unlock()

	return nil
}

// SessionID implements mcp.Connection.SessionID.
func (c *httpConnection) SessionID() string {
	return c.sessionID
}

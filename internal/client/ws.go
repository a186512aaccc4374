package client

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	reconnectBaseDelay = 1 * time.Second
	reconnectMaxDelay  = 30 * time.Second
	writeTimeout       = 10 * time.Second
	pongTimeout        = 60 * time.Second
	pingInterval       = 30 * time.Second
)

// WSClient manages the WebSocket connection to fleetdeckd and issues
// tool invocations over it. One request frame maps to one response
// frame, correlated by id.
type WSClient struct {
	url string

	mu      sync.Mutex
	writeMu sync.Mutex // serialises all conn writes (ping, tool requests)
	conn    *websocket.Conn
	done    chan struct{} // closed when the current connection dies
	pending map[string]chan toolResponse
	pingCtx context.CancelFunc // cancels the active ping goroutine
}

// NewWSClient creates a client that connects to the given WebSocket URL.
func NewWSClient(url string) *WSClient {
	return &WSClient{
		url:     url,
		pending: make(map[string]chan toolResponse),
	}
}

// --- Bubble Tea messages ---

// ConnectedMsg is sent when the WebSocket connects.
type ConnectedMsg struct{}

// DisconnectedMsg is sent when the connection drops.
type DisconnectedMsg struct{ Err error }

// Listen returns a Bubble Tea command that dials until connected. The
// caller should follow up with WaitDisconnect after ConnectedMsg.
func (c *WSClient) Listen(ctx context.Context) tea.Cmd {
	return func() tea.Msg {
		delay := reconnectBaseDelay
		for {
			select {
			case <-ctx.Done():
				return nil
			default:
			}

			conn, _, err := websocket.DefaultDialer.Dial(c.url, nil)
			if err != nil {
				time.Sleep(delay)
				delay = min(delay*2, reconnectMaxDelay)
				continue
			}

			c.mu.Lock()
			if c.pingCtx != nil {
				c.pingCtx()
			}
			pingCtx, pingCancel := context.WithCancel(ctx)
			c.conn = conn
			c.done = make(chan struct{})
			c.pingCtx = pingCancel
			done := c.done
			c.mu.Unlock()

			go c.pingLoop(pingCtx, conn)
			go c.readPump(conn, done)

			return ConnectedMsg{}
		}
	}
}

// WaitDisconnect returns a Bubble Tea command that resolves when the
// current connection dies. The caller typically responds by invoking
// Listen again.
func (c *WSClient) WaitDisconnect(ctx context.Context) tea.Cmd {
	c.mu.Lock()
	done := c.done
	c.mu.Unlock()
	return func() tea.Msg {
		if done == nil {
			return DisconnectedMsg{Err: fmt.Errorf("not connected")}
		}
		select {
		case <-ctx.Done():
			return nil
		case <-done:
			return DisconnectedMsg{}
		}
	}
}

// CallTool sends one tool invocation and waits for its response. The
// returned error means the transport failed; tool-level failures come
// back inside the ToolResult.
func (c *WSClient) CallTool(ctx context.Context, name string, args map[string]any) (ToolResult, error) {
	c.mu.Lock()
	conn := c.conn
	done := c.done
	c.mu.Unlock()
	if conn == nil {
		return ToolResult{}, fmt.Errorf("not connected")
	}

	id := uuid.NewString()
	ch := make(chan toolResponse, 1)
	c.mu.Lock()
	c.pending[id] = ch
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
	}()

	req := toolRequest{ID: id, Tool: name, Args: args}
	c.writeMu.Lock()
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	err := conn.WriteJSON(req)
	c.writeMu.Unlock()
	if err != nil {
		return ToolResult{}, fmt.Errorf("send %s: %w", name, err)
	}

	select {
	case <-ctx.Done():
		return ToolResult{}, ctx.Err()
	case <-done:
		return ToolResult{}, fmt.Errorf("connection lost during %s", name)
	case resp := <-ch:
		return ToolResult{Success: resp.Success, Data: resp.Data, Error: resp.Error}, nil
	}
}

// readPump reads response frames and routes them to pending calls. It
// closes done when the connection dies.
func (c *WSClient) readPump(conn *websocket.Conn, done chan struct{}) {
	defer func() {
		c.mu.Lock()
		if c.conn == conn {
			c.conn = nil
		}
		c.mu.Unlock()
		conn.Close()
		close(done)
	}()

	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongTimeout))
		return nil
	})
	conn.SetReadDeadline(time.Now().Add(pongTimeout))

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var resp toolResponse
		if err := json.Unmarshal(data, &resp); err != nil {
			continue
		}
		c.mu.Lock()
		ch, ok := c.pending[resp.ID]
		c.mu.Unlock()
		if ok {
			ch <- resp
		}
	}
}

// pingLoop sends periodic pings on the given connection. It exits when
// the context is cancelled or the connection changes.
func (c *WSClient) pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.mu.Lock()
			cc := c.conn
			c.mu.Unlock()
			if cc != conn {
				return
			}
			c.writeMu.Lock()
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			err := conn.WriteMessage(websocket.PingMessage, nil)
			c.writeMu.Unlock()
			if err != nil {
				return
			}
		}
	}
}

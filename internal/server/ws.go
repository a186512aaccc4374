package server

import (
	"encoding/json"
	"log"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/gorilla/websocket"
)

// toolRequest is one request frame on the tool socket.
type toolRequest struct {
	ID   string         `json:"id"`
	Tool string         `json:"tool"`
	Args map[string]any `json:"args,omitempty"`
}

// toolResponse is one response frame on the tool socket.
type toolResponse struct {
	ID      string          `json:"id"`
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// handleWS upgrades the connection and serves tool invocations until
// the client goes away. Each connection carries its own session state.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{CheckOrigin: checkOrigin}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade error: %v", err)
		return
	}
	log.Printf("terminal connected: %s", r.RemoteAddr)
	defer func() {
		conn.Close()
		log.Printf("terminal disconnected: %s", r.RemoteAddr)
	}()

	sess := &toolSession{}
	var writeMu sync.Mutex

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var req toolRequest
		if err := json.Unmarshal(data, &req); err != nil || req.ID == "" {
			continue
		}

		resp := toolResponse{ID: req.ID}
		out, err := s.callTool(sess, req.Tool, req.Args)
		if err != nil {
			resp.Error = err.Error()
		} else {
			payload, err := json.Marshal(out)
			if err != nil {
				resp.Error = "encode response: " + err.Error()
			} else {
				resp.Success = true
				resp.Data = payload
			}
		}

		writeMu.Lock()
		err = conn.WriteJSON(resp)
		writeMu.Unlock()
		if err != nil {
			return
		}
	}
}

// checkOrigin accepts same-host and loopback origins.
func checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	parsed, err := url.Parse(origin)
	if err != nil || parsed.Host == "" {
		return false
	}
	host := parsed.Host
	if host == r.Host {
		return true
	}
	if strings.HasPrefix(host, "localhost:") || host == "localhost" {
		return true
	}
	if strings.HasPrefix(host, "127.0.0.1:") || host == "127.0.0.1" {
		return true
	}
	if strings.HasPrefix(host, "[::1]:") || host == "::1" {
		return true
	}
	return false
}

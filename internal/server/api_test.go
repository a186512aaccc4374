package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"

	"github.com/fleetdeck/fleetdeck/internal/server/store"
)

func TestDashboardEndpoint(t *testing.T) {
	s := testServer(t)
	if err := s.Store().UpsertServer(&store.Server{ID: "srv-1", Name: "edge-a", Status: "up"}); err != nil {
		t.Fatal(err)
	}

	ts := httptest.NewServer(s.Routes())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/dashboard")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	var snap DashboardSnapshot
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		t.Fatal(err)
	}
	if snap.Servers != 1 || snap.ServersUp != 1 {
		t.Errorf("snapshot = %+v", snap)
	}
}

func TestToolSocketRoundTrip(t *testing.T) {
	s := testServer(t)
	ts := httptest.NewServer(s.Routes())
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	call := func(id, tool string, args map[string]any) toolResponse {
		t.Helper()
		if err := conn.WriteJSON(toolRequest{ID: id, Tool: tool, Args: args}); err != nil {
			t.Fatal(err)
		}
		var resp toolResponse
		if err := conn.ReadJSON(&resp); err != nil {
			t.Fatal(err)
		}
		if resp.ID != id {
			t.Fatalf("response id = %q, want %q", resp.ID, id)
		}
		return resp
	}

	// Privileged call fails before setup.
	resp := call("1", "users.list", nil)
	if resp.Success || !strings.Contains(resp.Error, "authentication") {
		t.Errorf("unauthenticated users.list = %+v", resp)
	}

	resp = call("2", "auth.setup", map[string]any{"password": "correct horse battery"})
	if !resp.Success {
		t.Fatalf("setup failed: %s", resp.Error)
	}
	var out LoginOutcome
	if err := json.Unmarshal(resp.Data, &out); err != nil || out.Username != "admin" {
		t.Fatalf("setup payload = %s", resp.Data)
	}

	// Session is now authenticated on this connection.
	resp = call("3", "users.list", nil)
	if !resp.Success {
		t.Errorf("authed users.list failed: %s", resp.Error)
	}

	// A second connection has its own unauthenticated session.
	conn2, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer conn2.Close()
	if err := conn2.WriteJSON(toolRequest{ID: "9", Tool: "users.list"}); err != nil {
		t.Fatal(err)
	}
	var resp2 toolResponse
	if err := conn2.ReadJSON(&resp2); err != nil {
		t.Fatal(err)
	}
	if resp2.Success {
		t.Error("fresh connection inherited authentication")
	}
}

func TestHealthEndpoint(t *testing.T) {
	s := testServer(t)
	ts := httptest.NewServer(s.Routes())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body["status"] != "ok" || body["version"] != "1.4.2" {
		t.Errorf("health = %v", body)
	}
}

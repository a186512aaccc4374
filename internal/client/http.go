package client

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTPClient makes REST calls to the fleetdeckd dashboard API.
type HTTPClient struct {
	baseURL string
	client  *http.Client
}

// NewHTTPClient creates a client targeting the given base URL
// (e.g. "http://127.0.0.1:8080").
func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// GetDashboard fetches /api/dashboard.
func (c *HTTPClient) GetDashboard() (*DashboardSnapshot, error) {
	var s DashboardSnapshot
	if err := c.get("/api/dashboard", &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// GetAgents fetches /api/agents.
func (c *HTTPClient) GetAgents() ([]AgentInfo, error) {
	var out []AgentInfo
	if err := c.get("/api/agents", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetServers fetches /api/servers.
func (c *HTTPClient) GetServers() ([]ServerInfo, error) {
	var out []ServerInfo
	if err := c.get("/api/servers", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *HTTPClient) get(path string, out interface{}) error {
	req, err := http.NewRequest(http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("GET %s: %d %s", path, resp.StatusCode, string(body))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

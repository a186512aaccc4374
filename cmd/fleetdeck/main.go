package main

import (
	"flag"
	"fmt"
	"net/url"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/fleetdeck/fleetdeck/internal/app"
	"github.com/fleetdeck/fleetdeck/internal/client"
	"github.com/fleetdeck/fleetdeck/internal/config"
)

var version = "1.5.0"

func main() {
	configPath := flag.String("config", "fleetdeck.yaml", "Path to config file")
	wsURL := flag.String("url", "", "Override WebSocket URL of the control server")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *wsURL != "" {
		cfg.Client.WSURL = *wsURL
		cfg.Client.HTTPBaseURL = deriveHTTPBase(*wsURL)
	}

	ws := client.NewWSClient(cfg.Client.WSURL)
	httpClient := client.NewHTTPClient(cfg.Client.HTTPBaseURL)

	m := app.New(ws, httpClient, cfg.Client, version)
	p := tea.NewProgram(m, tea.WithAltScreen())

	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// deriveHTTPBase converts ws://host:port/ws to http://host:port
func deriveHTTPBase(wsURL string) string {
	u, err := url.Parse(wsURL)
	if err != nil {
		return "http://127.0.0.1:8080"
	}
	scheme := "http"
	if strings.HasPrefix(u.Scheme, "wss") {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s", scheme, u.Host)
}

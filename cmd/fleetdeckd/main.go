package main

import (
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/fleetdeck/fleetdeck/internal/config"
	"github.com/fleetdeck/fleetdeck/internal/server"
	"github.com/fleetdeck/fleetdeck/internal/server/store"
)

var (
	version   = "1.4.2"
	available = os.Getenv("FLEETDECK_AVAILABLE_VERSION")
)

func main() {
	configPath := flag.String("config", "fleetdeck.yaml", "Path to config file")
	port := flag.Int("port", 0, "Override server port")
	demo := flag.Bool("demo", false, "Seed a demo fleet into an empty database")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *port > 0 {
		cfg.Server.Port = *port
	}
	if *demo {
		cfg.Server.Demo = true
	}

	st, err := store.Open(cfg.Server.DBPath)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}

	srv, err := server.New(cfg.Server, st, version, available)
	if err != nil {
		log.Fatalf("Failed to build server: %v", err)
	}

	if cfg.Server.Demo {
		log.Println("Seeding demo fleet")
		if err := srv.SeedDemo(); err != nil {
			log.Fatalf("Failed to seed demo data: %v", err)
		}
	}

	sweeps, err := srv.StartSweeps()
	if err != nil {
		log.Fatalf("Failed to start sweeps: %v", err)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("Shutting down...")
		sweeps.Stop()
		os.Exit(0)
	}()

	addr := cfg.Server.Addr()
	log.Printf("fleetdeckd %s listening on %s", version, addr)
	if err := http.ListenAndServe(addr, srv.Routes()); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

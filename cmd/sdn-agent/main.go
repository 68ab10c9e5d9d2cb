package main

import (
	"SDNGuard/internal/config"
	"SDNGuard/internal/manager"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "Path to the configuration file")
	mode := flag.String("mode", "", "Override agent.mode: 'ids' or 'collector'")
	dryRun := flag.Bool("dry-run", false, "Log flow rule changes instead of sending them")
	flag.Parse()

	log.Println("Starting sdn-agent...")

	// 1. Load configuration
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *mode != "" {
		cfg.Agent.Mode = *mode
		if err := cfg.Validate(); err != nil {
			log.Fatalf("Invalid -mode: %v", err)
		}
	}
	log.Println("Configuration loaded successfully.")

	// 2. Build the agent
	mgr, err := manager.NewManager(cfg, manager.Options{DryRun: *dryRun})
	if err != nil {
		log.Fatalf("Failed to create agent: %v", err)
	}

	// 3. Start it
	if err := mgr.Start(); err != nil {
		log.Fatalf("Failed to start agent: %v", err)
	}

	// 4. Wait for a shutdown signal for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	<-sigChan

	log.Println("Shutdown signal received, stopping agent...")
	mgr.Stop()
	log.Println("Shutdown complete.")
}

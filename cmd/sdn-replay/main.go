package main

import (
	"SDNGuard/internal/config"
	"SDNGuard/internal/model"
	"SDNGuard/internal/replay"
	"SDNGuard/internal/transport"
	"SDNGuard/pkg/pcap"
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "Path to the configuration file")
	input := flag.String("r", "", "pcap file to replay (required)")
	flag.Parse()

	if *input == "" {
		log.Println("Error: -r flag is required.")
		flag.Usage()
		os.Exit(1)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	interval, err := time.ParseDuration(cfg.Replay.Interval)
	if err != nil {
		log.Fatalf("Invalid replay interval: %v", err)
	}

	reader, err := pcap.NewReader(*input)
	if err != nil {
		log.Fatalf("Failed to open capture: %v", err)
	}
	defer reader.Close()

	bridge, err := transport.Connect(cfg.Transport)
	if err != nil {
		log.Fatalf("Failed to connect to NATS: %v", err)
	}
	defer bridge.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	frames := make(chan pcap.Frame, 1024)
	go func() {
		if err := reader.ReadFrames(frames); err != nil {
			log.Printf("ERROR: %v", err)
		}
	}()

	dpid := model.DatapathID(cfg.Replay.Datapath)
	log.Printf("Replaying %s as switch %s...", *input, dpid)
	st, err := replay.New(bridge, dpid, interval).Run(ctx, frames)
	if err != nil {
		log.Printf("Replay stopped: %v", err)
	}
	log.Printf("Replay finished: %d frame(s) published, %d skipped.", st.Published, st.Skipped)
}

package main

import (
	"SDNGuard/internal/config"
	"SDNGuard/internal/query"
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

func main() {
	// Define command-line flags
	mode := flag.String("mode", "api", "Query mode: 'api' to read the dashboard API, 'direct' to summarise training records in ClickHouse.")
	configPath := flag.String("config", "configs/config.yaml", "Path to the configuration file")
	dpid := flag.String("dpid", "", "Only summarise this datapath (16 hex digits, direct mode).")
	since := flag.Duration("since", 0, "Only summarise records captured within this window (direct mode).")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	log.Printf("Running in '%s' mode.", *mode)

	switch *mode {
	case "api":
		queryViaAPI("http://" + cfg.Dashboard.ListenAddr + "/api/data")
	case "direct":
		f := query.Filter{Datapath: *dpid}
		if *since > 0 {
			f.Since = time.Now().Add(-*since)
		}
		directQueryClickHouse(cfg.Export.ClickHouse, f)
	default:
		log.Fatalf("Invalid mode: %s. Use 'api' or 'direct'.", *mode)
	}
}

func queryViaAPI(apiURL string) {
	log.Printf("Sending request to %s", apiURL)

	resp, err := http.Get(apiURL)
	if err != nil {
		log.Fatalf("Error sending request: %v", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Fatalf("Error reading response body: %v", err)
	}

	if resp.StatusCode != http.StatusOK {
		log.Fatalf("API returned non-200 status code: %d\nResponse: %s", resp.StatusCode, string(respBody))
	}

	var prettyJSON bytes.Buffer
	if err := json.Indent(&prettyJSON, respBody, "", "  "); err != nil {
		log.Printf("Could not prettify JSON, printing raw response:")
		fmt.Println(string(respBody))
		return
	}

	log.Println("---")
	fmt.Println(prettyJSON.String())
}

func directQueryClickHouse(cfg config.ClickHouseConfig, f query.Filter) {
	q, err := query.NewClickHouseQuerier(cfg)
	if err != nil {
		log.Fatalf("Error connecting to ClickHouse: %v", err)
	}
	defer q.Close()

	log.Println("Successfully connected to ClickHouse.")

	rows, err := q.Summary(context.Background(), f)
	if err != nil {
		log.Fatalf("Error executing query: %v", err)
	}

	log.Println("--- Training Record Summary (Direct) ---")
	if len(rows) == 0 {
		log.Println("No records found for the given filter.")
		return
	}
	for _, s := range rows {
		fmt.Printf("Datapath: %s, Records: %d (labelled %d), Packets: %d, Bytes: %d, From: %s, To: %s\n",
			s.Datapath, s.Records, s.Labelled, s.TotalPackets, s.TotalBytes,
			s.FirstSeen.Format(time.RFC3339), s.LastSeen.Format(time.RFC3339))
	}
}

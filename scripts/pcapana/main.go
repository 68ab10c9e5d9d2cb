package main

import (
	"SDNGuard/internal/protocol"
	"SDNGuard/pkg/pcap"
	"flag"
	"fmt"
	"log"
	"os"
	"sort"
)

type sourceTotals struct {
	frames int
	bytes  int
}

func main() {
	show := flag.Int("n", 5, "Number of frames to print before the summary")
	flag.Parse()
	if flag.NArg() < 1 {
		fmt.Println("Usage: go run ./scripts/pcapana [-n 5] <path_to_pcap_file>")
		os.Exit(1)
	}

	r, err := pcap.NewReader(flag.Arg(0))
	if err != nil {
		log.Fatal(err)
	}
	defer r.Close()

	frames := make(chan pcap.Frame, 256)
	go func() {
		if err := r.ReadFrames(frames); err != nil {
			log.Printf("Read error: %v", err)
		}
	}()

	totals := make(map[string]*sourceTotals)
	i := 0
	for f := range frames {
		frame, err := protocol.ParseFrame(f.Data)
		if err != nil {
			fmt.Println("Parse error:", err)
			continue
		}
		i++
		src := frame.SrcIP()
		if src == "" {
			src = frame.EthSrc.String()
		}
		if i <= *show {
			dst := frame.EthDst.String()
			if frame.IPv4 != nil {
				dst = frame.IPv4.Dst.String()
			}
			fmt.Printf("[%s] %s -> %s type=%s len=%d\n",
				f.Timestamp.Format("15:04:05.000"), src, dst, frame.EthType, frame.Length)
		}
		t, ok := totals[src]
		if !ok {
			t = &sourceTotals{}
			totals[src] = t
		}
		t.frames++
		t.bytes += frame.Length
	}

	sources := make([]string, 0, len(totals))
	for s := range totals {
		sources = append(sources, s)
	}
	sort.Slice(sources, func(a, b int) bool { return totals[sources[a]].bytes > totals[sources[b]].bytes })

	fmt.Printf("==== %d frames from %d sources ====\n", i, len(sources))
	for _, s := range sources {
		fmt.Printf("%-20s frames=%-8d bytes=%d\n", s, totals[s].frames, totals[s].bytes)
	}
}

package main

import (
	"flag"
	"log"
	"math/rand"
	"net"
	"os"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
)

// host is a station on the replayed switch: 10.0.0.n with MAC 00:00:00:00:00:0n.
type host byte

func (h host) mac() net.HardwareAddr { return net.HardwareAddr{0, 0, 0, 0, 0, byte(h)} }
func (h host) ip() net.IP            { return net.IP{10, 0, 0, byte(h)} }

func main() {
	outputFile := flag.String("o", "sdn_test.pcap", "Output pcap file path")
	benignCount := flag.Int("c", 200, "Number of benign packets to generate")
	floodCount := flag.Int("flood", 2000, "Number of flood packets from the attacker")
	attacker := flag.Int("attacker", 5, "Host number of the flooding source")
	hosts := flag.Int("hosts", 4, "Number of benign hosts")
	flag.Parse()

	if *hosts < 2 || *hosts > 250 || *attacker < 1 || *attacker > 250 {
		log.Fatalf("hosts must be in [2, 250] and attacker in [1, 250]")
	}

	f, err := os.Create(*outputFile)
	if err != nil {
		log.Fatalf("Failed to create output file: %v", err)
	}
	defer f.Close()

	pcapWriter := pcapgo.NewWriter(f)
	if err := pcapWriter.WriteFileHeader(65536, layers.LinkTypeEthernet); err != nil {
		log.Fatalf("Failed to write pcap header: %v", err)
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	ts := time.Now()
	write := func(data []byte) {
		ts = ts.Add(time.Millisecond)
		ci := gopacket.CaptureInfo{Timestamp: ts, CaptureLength: len(data), Length: len(data)}
		if err := pcapWriter.WritePacket(ci, data); err != nil {
			log.Fatalf("Failed to write packet: %v", err)
		}
	}

	log.Printf("Generating %d benign and %d flood packets into %s...", *benignCount, *floodCount, *outputFile)

	// every host speaks once first so the forwarder learns all ports
	for h := 1; h <= *hosts; h++ {
		write(icmp(host(h), host(h%*hosts+1), 56))
	}
	if *floodCount > 0 {
		write(icmp(host(*attacker), host(1), 56))
	}

	victim := host(2)
	flood := 0
	for i := 0; i < *benignCount || flood < *floodCount; i++ {
		if i < *benignCount {
			src := host(rng.Intn(*hosts) + 1)
			dst := host(rng.Intn(*hosts) + 1)
			if src != dst {
				write(icmp(src, dst, rng.Intn(200)+56))
			}
		}
		// the attacker sends several large packets per benign one
		for j := 0; j < 10 && flood < *floodCount; j++ {
			write(udp(host(*attacker), victim, 1400, rng))
			flood++
		}
	}

	log.Printf("Successfully generated capture into %s.", *outputFile)
}

func icmp(src, dst host, size int) []byte {
	eth := &layers.Ethernet{SrcMAC: src.mac(), DstMAC: dst.mac(), EthernetType: layers.EthernetTypeIPv4}
	ip := &layers.IPv4{Version: 4, TTL: 64, Protocol: layers.IPProtocolICMPv4, SrcIP: src.ip(), DstIP: dst.ip()}
	echo := &layers.ICMPv4{TypeCode: layers.CreateICMPv4TypeCode(layers.ICMPv4TypeEchoRequest, 0), Id: 1}
	return serialize(eth, ip, echo, gopacket.Payload(make([]byte, size)))
}

func udp(src, dst host, size int, rng *rand.Rand) []byte {
	eth := &layers.Ethernet{SrcMAC: src.mac(), DstMAC: dst.mac(), EthernetType: layers.EthernetTypeIPv4}
	ip := &layers.IPv4{Version: 4, TTL: 64, Protocol: layers.IPProtocolUDP, SrcIP: src.ip(), DstIP: dst.ip()}
	u := &layers.UDP{SrcPort: layers.UDPPort(rng.Intn(65535-1024) + 1024), DstPort: 80}
	u.SetNetworkLayerForChecksum(ip)
	payload := make([]byte, size)
	rng.Read(payload)
	return serialize(eth, ip, u, gopacket.Payload(payload))
}

func serialize(ls ...gopacket.SerializableLayer) []byte {
	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{ComputeChecksums: true, FixLengths: true}
	if err := gopacket.SerializeLayers(buf, opts, ls...); err != nil {
		log.Fatalf("Failed to serialize layers: %v", err)
	}
	return buf.Bytes()
}

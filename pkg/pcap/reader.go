package pcap

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
)

// Frame is one captured Ethernet frame.
type Frame struct {
	Timestamp time.Time
	Data      []byte
}

// Reader reads Ethernet frames from a pcap file.
type Reader struct {
	file *os.File
	r    *pcapgo.Reader
}

// NewReader opens the pcap file at filePath. Only Ethernet captures are accepted.
func NewReader(filePath string) (*Reader, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open pcap file: %w", err)
	}
	r, err := pcapgo.NewReader(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to read pcap header of '%s': %w", filePath, err)
	}
	if r.LinkType() != layers.LinkTypeEthernet {
		f.Close()
		return nil, fmt.Errorf("unsupported link type %s in '%s'", r.LinkType(), filePath)
	}
	return &Reader{file: f, r: r}, nil
}

// Close closes the underlying file.
func (r *Reader) Close() error {
	return r.file.Close()
}

// Next returns the next frame, or io.EOF at the end of the capture.
func (r *Reader) Next() (Frame, error) {
	data, ci, err := r.r.ReadPacketData()
	if err != nil {
		return Frame{}, err
	}
	return Frame{Timestamp: ci.Timestamp, Data: data}, nil
}

// ReadFrames sends every frame of the capture to out and closes it when done.
// A truncated trailing record ends the capture without an error.
func (r *Reader) ReadFrames(out chan<- Frame) error {
	defer close(out)
	for {
		f, err := r.Next()
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read packet: %w", err)
		}
		out <- f
	}
}

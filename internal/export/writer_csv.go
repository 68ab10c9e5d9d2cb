package export

import (
	"SDNGuard/internal/model"
	"context"
	"encoding/csv"
	"fmt"
	"log"
	"os"
	"strconv"
	"sync"
)

// CSVHeader is the first row of a training file.
var CSVHeader = []string{"packet_count", "byte_count", "duration", "label"}

// CSVWriter appends training records to a CSV file. The file is truncated
// when the writer is opened.
type CSVWriter struct {
	mu   sync.Mutex
	file *os.File
	w    *csv.Writer
}

// NewCSVWriter creates the file at path and writes the header.
func NewCSVWriter(path string) (*CSVWriter, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create training file '%s': %w", path, err)
	}
	w := csv.NewWriter(file)
	if err := w.Write(CSVHeader); err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to write csv header: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to write csv header: %w", err)
	}
	log.Printf("Training file '%s' opened", path)
	return &CSVWriter{file: file, w: w}, nil
}

// Export writes one batch and flushes it.
func (c *CSVWriter) Export(_ context.Context, records []model.TrainingRecord) error {
	if len(records) == 0 {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, r := range records {
		row := []string{
			strconv.FormatUint(r.PacketCount, 10),
			strconv.FormatUint(r.ByteCount, 10),
			strconv.FormatUint(uint64(r.Duration), 10),
			r.Label,
		}
		if err := c.w.Write(row); err != nil {
			return fmt.Errorf("failed to write csv row: %w", err)
		}
	}
	c.w.Flush()
	if err := c.w.Error(); err != nil {
		return fmt.Errorf("failed to flush csv rows: %w", err)
	}
	return nil
}

// Close flushes and closes the file.
func (c *CSVWriter) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.w.Flush()
	if err := c.w.Error(); err != nil {
		c.file.Close()
		return fmt.Errorf("failed to flush csv rows: %w", err)
	}
	return c.file.Close()
}

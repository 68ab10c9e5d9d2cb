package telemetry

import (
	"SDNGuard/internal/model"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
)

// NATSWriter publishes each snapshot as JSON on a subject.
type NATSWriter struct {
	nc      *nats.Conn
	subject string
}

// NewNATSWriter creates a writer that publishes on subject.
func NewNATSWriter(nc *nats.Conn, subject string) *NATSWriter {
	return &NATSWriter{nc: nc, subject: subject}
}

// Name implements model.SnapshotWriter.
func (w *NATSWriter) Name() string {
	return "nats"
}

// Write implements model.SnapshotWriter.
func (w *NATSWriter) Write(snap model.Snapshot) error {
	if snap.Alerts == nil {
		snap.Alerts = []model.Alert{}
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	if err := w.nc.Publish(w.subject, data); err != nil {
		return fmt.Errorf("failed to publish snapshot to NATS: %w", err)
	}
	return nil
}

package model

import "context"

// SnapshotWriter persists or publishes a telemetry snapshot.
type SnapshotWriter interface {
	Write(snapshot Snapshot) error
	Name() string
}

// Exporter appends training records to an offline store.
type Exporter interface {
	Export(ctx context.Context, records []TrainingRecord) error
	Close() error
}

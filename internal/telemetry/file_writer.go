package telemetry

import (
	"SDNGuard/internal/model"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// FileWriter keeps the snapshot in a JSON file the dashboard reads.
type FileWriter struct {
	path string
}

// NewFileWriter creates a writer for path.
func NewFileWriter(path string) *FileWriter {
	return &FileWriter{path: path}
}

// Name implements model.SnapshotWriter.
func (w *FileWriter) Name() string {
	return "file"
}

// Write replaces the file with snap. The data goes to a temporary file in
// the same directory which is then renamed over the target, so a reader sees
// either the old or the new document.
func (w *FileWriter) Write(snap model.Snapshot) error {
	if snap.Alerts == nil {
		snap.Alerts = []model.Alert{}
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	dir := filepath.Dir(w.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create snapshot directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(w.path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create temp snapshot file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close temp snapshot file: %w", err)
	}
	if err := os.Chmod(tmpPath, 0644); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to set snapshot permissions: %w", err)
	}
	if err := os.Rename(tmpPath, w.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to replace snapshot file '%s': %w", w.path, err)
	}
	return nil
}

// ReadSnapshot decodes the snapshot file at path.
func ReadSnapshot(path string) (model.Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return model.Snapshot{}, fmt.Errorf("failed to read snapshot file: %w", err)
	}
	var snap model.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return model.Snapshot{}, fmt.Errorf("failed to decode snapshot file '%s': %w", path, err)
	}
	if snap.Alerts == nil {
		snap.Alerts = []model.Alert{}
	}
	return snap, nil
}

// LoadOrEmpty returns the snapshot at path, or the empty snapshot when the
// file is missing or malformed.
func LoadOrEmpty(path string) model.Snapshot {
	snap, err := ReadSnapshot(path)
	if err != nil {
		return model.EmptySnapshot()
	}
	return snap
}

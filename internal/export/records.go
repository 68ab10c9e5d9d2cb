// Package export writes the flow samples seen in collector mode as
// unlabelled training records.
package export

import (
	"SDNGuard/internal/model"
	"context"
	"errors"
	"time"
)

// Records converts the forwarding-rule samples of one stats reply into
// training records. Table-miss, drop and idle rules are left out.
func Records(dpid model.DatapathID, flows []model.FlowSample, at time.Time) []model.TrainingRecord {
	var out []model.TrainingRecord
	for _, f := range flows {
		if f.Priority != 1 || f.PacketCount == 0 {
			continue
		}
		out = append(out, model.TrainingRecord{
			CapturedAt:  at,
			Datapath:    dpid,
			PacketCount: f.PacketCount,
			ByteCount:   f.ByteCount,
			Duration:    f.DurationSec,
		})
	}
	return out
}

// Multi fans a batch out to several exporters.
type Multi []model.Exporter

// Export writes to every exporter and joins their errors.
func (m Multi) Export(ctx context.Context, records []model.TrainingRecord) error {
	var errs []error
	for _, e := range m {
		if err := e.Export(ctx, records); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close closes every exporter and joins their errors.
func (m Multi) Close() error {
	var errs []error
	for _, e := range m {
		if err := e.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

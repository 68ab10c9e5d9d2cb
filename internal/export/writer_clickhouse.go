package export

import (
	"SDNGuard/internal/config"
	"SDNGuard/internal/model"
	"context"
	"fmt"
	"log"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
)

const createTrainingFlowsTableStatement = `
CREATE TABLE IF NOT EXISTS training_flows (
    Timestamp   DateTime,
    Dpid        String,
    PacketCount UInt64,
    ByteCount   UInt64,
    Duration    UInt32,
    Label       String
) ENGINE = MergeTree()
PARTITION BY toYYYYMM(Timestamp)
ORDER BY (Dpid, Timestamp);
`

// ClickHouseWriter stores training records in the training_flows table.
type ClickHouseWriter struct {
	conn driver.Conn
}

// NewClickHouseWriter connects and makes sure the table exists.
func NewClickHouseWriter(cfg config.ClickHouseConfig) (*ClickHouseWriter, error) {
	conn, err := connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to clickhouse: %w", err)
	}

	if err := conn.Exec(context.Background(), createTrainingFlowsTableStatement); err != nil {
		return nil, fmt.Errorf("failed to create training_flows table: %w", err)
	}
	log.Println("Successfully connected to ClickHouse and ensured training_flows table exists.")

	return &ClickHouseWriter{conn: conn}, nil
}

func connect(cfg config.ClickHouseConfig) (driver.Conn, error) {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{addr},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
	})
	if err != nil {
		return nil, err
	}

	if err := conn.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to ping clickhouse: %w", err)
	}
	return conn, nil
}

// Export sends one batch per stats reply.
func (w *ClickHouseWriter) Export(ctx context.Context, records []model.TrainingRecord) error {
	if len(records) == 0 {
		return nil
	}
	batch, err := w.conn.PrepareBatch(ctx, "INSERT INTO training_flows")
	if err != nil {
		return fmt.Errorf("failed to prepare batch: %w", err)
	}

	for _, r := range records {
		if err := batch.Append(r.CapturedAt, r.Datapath.String(), r.PacketCount, r.ByteCount, r.Duration, r.Label); err != nil {
			return fmt.Errorf("failed to append training record to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("failed to send batch: %w", err)
	}
	log.Printf("Wrote %d training records to ClickHouse", len(records))
	return nil
}

// Close closes the connection.
func (w *ClickHouseWriter) Close() error {
	return w.conn.Close()
}

// Package query reads back the training records stored in ClickHouse.
package query

import (
	"SDNGuard/internal/config"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
)

// Filter narrows a summary. Zero fields are not applied.
type Filter struct {
	Datapath string
	Since    time.Time
	Until    time.Time
}

// DatapathSummary aggregates the records captured from one switch.
type DatapathSummary struct {
	Datapath     string
	Records      uint64
	Labelled     uint64
	TotalPackets uint64
	TotalBytes   uint64
	FirstSeen    time.Time
	LastSeen     time.Time
}

// Querier reads training-record summaries.
type Querier interface {
	Summary(ctx context.Context, f Filter) ([]DatapathSummary, error)
	Close() error
}

// clickhouseQuerier implements the Querier interface for ClickHouse.
type clickhouseQuerier struct {
	conn clickhouse.Conn
}

// NewClickHouseQuerier creates a new querier for ClickHouse.
func NewClickHouseQuerier(cfg config.ClickHouseConfig) (Querier, error) {
	conn, err := connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to clickhouse: %w", err)
	}
	return &clickhouseQuerier{conn: conn}, nil
}

func connect(cfg config.ClickHouseConfig) (clickhouse.Conn, error) {
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

// BuildSummaryQuery returns the SQL and arguments for a summary over f.
func BuildSummaryQuery(f Filter) (string, []interface{}) {
	var queryBuilder strings.Builder
	queryBuilder.WriteString(`
		SELECT
			Dpid,
			count() AS Records,
			countIf(Label != '') AS Labelled,
			sum(PacketCount) AS TotalPackets,
			sum(ByteCount) AS TotalBytes,
			min(Timestamp) AS FirstSeen,
			max(Timestamp) AS LastSeen
		FROM training_flows
	`)

	var whereClauses []string
	args := []interface{}{}
	if f.Datapath != "" {
		whereClauses = append(whereClauses, "Dpid = ?")
		args = append(args, f.Datapath)
	}
	if !f.Since.IsZero() {
		whereClauses = append(whereClauses, "Timestamp >= ?")
		args = append(args, f.Since)
	}
	if !f.Until.IsZero() {
		whereClauses = append(whereClauses, "Timestamp <= ?")
		args = append(args, f.Until)
	}
	if len(whereClauses) > 0 {
		queryBuilder.WriteString(" WHERE " + strings.Join(whereClauses, " AND "))
	}
	queryBuilder.WriteString(" GROUP BY Dpid ORDER BY Dpid")
	return queryBuilder.String(), args
}

// Summary runs the summary query.
func (q *clickhouseQuerier) Summary(ctx context.Context, f Filter) ([]DatapathSummary, error) {
	sql, args := BuildSummaryQuery(f)
	rows, err := q.conn.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute summary query: %w", err)
	}
	defer rows.Close()

	var out []DatapathSummary
	for rows.Next() {
		var s DatapathSummary
		if err := rows.Scan(&s.Datapath, &s.Records, &s.Labelled, &s.TotalPackets, &s.TotalBytes, &s.FirstSeen, &s.LastSeen); err != nil {
			return nil, fmt.Errorf("failed to scan summary row: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during rows iteration: %w", err)
	}
	return out, nil
}

func (q *clickhouseQuerier) Close() error {
	return q.conn.Close()
}

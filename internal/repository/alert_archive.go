package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"TapeWatch/internal/domain/models"
	"TapeWatch/internal/domain/repository"
)

// ClickHouseAlertArchive implements AlertArchive for ClickHouse. The archive
// is a write-behind sink for after-session analysis; the monitoring core
// never reads it back except through the history API.
type ClickHouseAlertArchive struct {
	db    *sql.DB
	table string
}

// NewClickHouseAlertArchive creates a ClickHouse-backed alert archive.
func NewClickHouseAlertArchive(db *sql.DB, table string) repository.AlertArchive {
	return &ClickHouseAlertArchive{db: db, table: table}
}

func (s *ClickHouseAlertArchive) Init(ctx context.Context) error {
	q := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		ts DateTime,
		code String,
		name String,
		detector String,
		direction String,
		description String,
		run_count Int32,
		qualifying_count Int32,
		turnover Float64,
		mv_pct Float64,
		window_pct Float64
	) ENGINE = MergeTree() ORDER BY (code, ts)`, s.table)
	_, err := s.db.ExecContext(ctx, q)
	return err
}

func (s *ClickHouseAlertArchive) Store(ctx context.Context, a *models.Alert) error {
	q := fmt.Sprintf("INSERT INTO %s (ts, code, name, detector, direction, description, run_count, qualifying_count, turnover, mv_pct, window_pct) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)", s.table)
	_, err := s.db.ExecContext(ctx, q,
		a.Time,
		a.Code,
		a.Name,
		a.Detector,
		a.Direction.String(),
		a.Description,
		int32(a.RunCount),
		int32(a.QualifyingCount),
		a.Turnover,
		a.MarketValuePct,
		a.WindowPct,
	)
	return err
}

func (s *ClickHouseAlertArchive) Query(ctx context.Context, code string, from, to time.Time, limit int) ([]*models.Alert, error) {
	q := fmt.Sprintf("SELECT ts, code, name, detector, direction, description, run_count, qualifying_count, turnover, mv_pct, window_pct FROM %s WHERE code = ? AND ts >= ? AND ts <= ? ORDER BY ts DESC LIMIT ?", s.table)
	rows, err := s.db.QueryContext(ctx, q, code, from, to, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var alerts []*models.Alert
	for rows.Next() {
		var a models.Alert
		var direction string
		var runCount, qualCount int32
		if err := rows.Scan(&a.Time, &a.Code, &a.Name, &a.Detector, &direction,
			&a.Description, &runCount, &qualCount, &a.Turnover, &a.MarketValuePct, &a.WindowPct); err != nil {
			return nil, err
		}
		a.Direction = models.ParseDirection(direction)
		a.RunCount = int(runCount)
		a.QualifyingCount = int(qualCount)
		alerts = append(alerts, &a)
	}
	return alerts, rows.Err()
}

func (s *ClickHouseAlertArchive) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *ClickHouseAlertArchive) Close() error {
	return nil // Managed by pkg
}

package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/canastalabs/canasta/internal/service"
)

// SaveRun inserts a report run and fills in its assigned id and timestamp.
func (s *SQLiteStorage) SaveRun(ctx context.Context, run *service.ReportRun) error {
	if run == nil {
		return fmt.Errorf("run must not be nil")
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}

	result, err := s.db.ExecContext(ctx,
		`INSERT INTO report_runs (created_at, k, rule_count, cluster_count, outliers_removed, text_path, json_path)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.CreatedAt, run.K, run.RuleCount, run.ClusterCount, run.OutliersRemoved, run.TextPath, run.JSONPath)
	if err != nil {
		return fmt.Errorf("failed to save report run: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read report run id: %w", err)
	}
	run.ID = id
	return nil
}

// ListRuns returns the most recent report runs, newest first.
func (s *SQLiteStorage) ListRuns(ctx context.Context, limit int) ([]service.ReportRun, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, created_at, k, rule_count, cluster_count, outliers_removed, text_path, json_path
		 FROM report_runs
		 ORDER BY created_at DESC, id DESC
		 LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list report runs: %w", err)
	}
	defer rows.Close()

	var runs []service.ReportRun
	for rows.Next() {
		var run service.ReportRun
		if err := rows.Scan(&run.ID, &run.CreatedAt, &run.K, &run.RuleCount,
			&run.ClusterCount, &run.OutliersRemoved, &run.TextPath, &run.JSONPath); err != nil {
			return nil, fmt.Errorf("failed to scan report run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate report runs: %w", err)
	}
	return runs, nil
}

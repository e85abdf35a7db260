// Package service defines the contracts the CLI layer consumes.
package service

import (
	"context"
	"time"
)

// ReportRun records one generated insights report.
type ReportRun struct {
	CreatedAt       time.Time
	TextPath        string
	JSONPath        string
	ID              int64
	K               int
	RuleCount       int
	ClusterCount    int
	OutliersRemoved int
}

// Archive defines the contract for the report-run history store.
type Archive interface {
	Migrate(ctx context.Context) error
	SaveRun(ctx context.Context, run *ReportRun) error
	ListRuns(ctx context.Context, limit int) ([]ReportRun, error)
	Close() error
}

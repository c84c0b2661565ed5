package storage

import (
	"context"

	"github.com/opscart/rds-metrics-collector/pkg/models"
)

// Run is everything persisted for one collection run
type Run struct {
	Summary models.RunSummary
	Skipped []models.UnitResult
	Records []models.HourlyRecord
}

// Store defines the interface for run history storage
type Store interface {
	SaveRun(ctx context.Context, run *Run) (string, error)
	ListRuns(ctx context.Context, limit int) ([]models.RunSummary, error)

	Ping(ctx context.Context) error
	Close() error
}

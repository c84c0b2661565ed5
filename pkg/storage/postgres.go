package storage

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"github.com/opscart/rds-metrics-collector/pkg/models"
)

//go:embed migrations/*.sql
var postgresFS embed.FS

const (
	insertRun = `
		INSERT INTO collection_runs (
			id, target, region, account_id, sample_period_days,
			clusters, aurora_instances, rds_instances, serverless_instances,
			skipped_units, records, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	insertSkip = `
		INSERT INTO run_skips (run_id, cluster_identifier, instance_identifier, stage, reason)
		VALUES ($1, $2, $3, $4, $5)
	`
	insertRecord = `
		INSERT INTO hourly_records (
			run_id, cluster_identifier, instance_identifier, instance_class,
			deployment_option, platform_type, hour, observation_days,
			avg_cpu_utilization, max_cpu_utilization, p95_cpu_utilization,
			asv2_migration_path, adjusted_estimate_acu, usage_pattern
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`
	selectRuns = `
		SELECT id, target, region, account_id, sample_period_days,
			clusters, aurora_instances, rds_instances, serverless_instances,
			skipped_units, records, created_at
		FROM collection_runs
		ORDER BY created_at DESC
		LIMIT $1
	`
)

// PostgresStore implements Store interface using PostgreSQL
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore opens the database and applies the schema
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &PostgresStore{db: db}
	if err := store.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return store, nil
}

func (s *PostgresStore) migrate(ctx context.Context) error {
	schema, err := postgresFS.ReadFile("migrations/001_postgres_schema.sql")
	if err != nil {
		return fmt.Errorf("failed to read schema: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, string(schema)); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}
	return nil
}

// SaveRun writes the summary, skips and hourly rows in one transaction and returns the run id
func (s *PostgresStore) SaveRun(ctx context.Context, run *Run) (string, error) {
	id, err := runID(run.Summary.RunID)
	if err != nil {
		return "", err
	}
	created := run.Summary.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	sum := run.Summary
	if _, err := tx.ExecContext(ctx, insertRun,
		id, sum.Target, sum.Region, sum.AccountID, sum.SamplePeriodDays,
		sum.Clusters, sum.AuroraInstances, sum.RDSInstances, sum.ServerlessInstances,
		sum.SkippedUnits, sum.Records, created,
	); err != nil {
		return "", fmt.Errorf("failed to insert run: %w", err)
	}

	for _, u := range run.Skipped {
		stage, reason := skipColumns(u)
		if _, err := tx.ExecContext(ctx, insertSkip, id, u.ClusterIdentifier, u.InstanceIdentifier, stage, reason); err != nil {
			return "", fmt.Errorf("failed to insert skip for %s: %w", u.ClusterIdentifier, err)
		}
	}

	if len(run.Records) > 0 {
		stmt, err := tx.PrepareContext(ctx, insertRecord)
		if err != nil {
			return "", fmt.Errorf("failed to prepare record insert: %w", err)
		}
		defer stmt.Close()

		for i := range run.Records {
			if _, err := stmt.ExecContext(ctx, recordArgs(id, &run.Records[i])...); err != nil {
				return "", fmt.Errorf("failed to insert record %s hour %d: %w",
					run.Records[i].DBInstanceIdentifier, run.Records[i].Hour, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit run: %w", err)
	}
	return id, nil
}

// ListRuns returns the most recent runs first
func (s *PostgresStore) ListRuns(ctx context.Context, limit int) ([]models.RunSummary, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := s.db.QueryContext(ctx, selectRuns, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []models.RunSummary
	for rows.Next() {
		var r models.RunSummary
		if err := rows.Scan(
			&r.RunID, &r.Target, &r.Region, &r.AccountID, &r.SamplePeriodDays,
			&r.Clusters, &r.AuroraInstances, &r.RDSInstances, &r.ServerlessInstances,
			&r.SkippedUnits, &r.Records, &r.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Ping checks database connectivity
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// runID keeps a collector-issued UUID or mints one
func runID(id string) (string, error) {
	if id == "" {
		return uuid.NewString(), nil
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return "", fmt.Errorf("invalid run id %q: %w", id, err)
	}
	return parsed.String(), nil
}

func skipColumns(u models.UnitResult) (string, string) {
	if u.Skip == nil {
		return "", ""
	}
	return u.Skip.Stage, u.Skip.Err
}

func recordArgs(runID string, r *models.HourlyRecord) []any {
	return []any{
		runID,
		r.ClusterIdentifier,
		r.DBInstanceIdentifier,
		r.Profile.InstanceClass,
		r.Profile.DeploymentOption,
		r.PlatformType,
		r.Hour,
		r.ObservationDays,
		nullFloat(r.AvgCPUUtilization),
		nullFloat(r.MaxCPUUtilization),
		nullFloat(r.P95CPUUtilization),
		r.ASV2MigrationPath,
		nullFloat(r.AdjustedEstimateACU),
		nullString(r.UsagePattern),
	}
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func nullString(v *string) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *v, Valid: true}
}

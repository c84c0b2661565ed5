package storage

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opscart/rds-metrics-collector/pkg/models"
)

func TestRunID(t *testing.T) {
	minted, err := runID("")
	require.NoError(t, err)
	_, err = uuid.Parse(minted)
	assert.NoError(t, err)

	existing := uuid.NewString()
	kept, err := runID(existing)
	require.NoError(t, err)
	assert.Equal(t, existing, kept)

	_, err = runID("not-a-uuid")
	assert.Error(t, err)
}

func TestSkipColumns(t *testing.T) {
	stage, reason := skipColumns(models.UnitResult{Skip: &models.SkipReason{Stage: "metrics", Err: "throttled"}})
	assert.Equal(t, "metrics", stage)
	assert.Equal(t, "throttled", reason)

	stage, reason = skipColumns(models.UnitResult{})
	assert.Empty(t, stage)
	assert.Empty(t, reason)
}

func TestRecordArgs(t *testing.T) {
	avg := 12.5
	pattern := "Consistent"
	r := &models.HourlyRecord{
		ClusterIdentifier:    "orders",
		DBInstanceIdentifier: "orders-1",
		Profile:              models.InstanceProfile{InstanceClass: "db.r6g.large", DeploymentOption: "Single-AZ"},
		PlatformType:         models.PlatformRDS,
		Hour:                 7,
		ObservationDays:      3,
		AvgCPUUtilization:    &avg,
		MigrationFields: models.MigrationFields{
			ASV2MigrationPath: models.PathPlatform,
			UsagePattern:      &pattern,
		},
	}

	args := recordArgs("run", r)
	require.Len(t, args, 14)
	assert.Equal(t, "run", args[0])
	assert.Equal(t, 7, args[6])
	assert.Equal(t, sql.NullFloat64{Float64: 12.5, Valid: true}, args[8])
	assert.Equal(t, sql.NullFloat64{}, args[9])
	assert.Equal(t, models.PathPlatform, args[11])
	assert.Equal(t, sql.NullString{String: "Consistent", Valid: true}, args[13])
}

// Runs against a real database when TEST_DATABASE_URL is set
func TestPostgresStore_Integration(t *testing.T) {
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	store, err := NewPostgresStore(ctx, dsn)
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Ping(ctx))

	id, err := store.SaveRun(ctx, &Run{
		Summary: models.RunSummary{
			Target:           "all",
			Region:           "us-east-1",
			AccountID:        "123456789012",
			SamplePeriodDays: 30,
			Clusters:         1,
			SkippedUnits:     1,
			CreatedAt:        time.Now().Add(time.Hour),
		},
		Skipped: []models.UnitResult{
			{ClusterIdentifier: "broken", Skip: &models.SkipReason{Stage: "describe", Err: "denied"}},
		},
		Records: []models.HourlyRecord{
			{ClusterIdentifier: "orders", DBInstanceIdentifier: "orders", Hour: 0,
				MigrationFields: models.MigrationFields{ASV2MigrationPath: models.PathInPlace}},
		},
	})
	require.NoError(t, err)

	runs, err := store.ListRuns(ctx, 1)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, id, runs[0].RunID)
	assert.Equal(t, 1, runs[0].SkippedUnits)
}

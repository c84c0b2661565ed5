package collector

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/opscart/rds-metrics-collector/pkg/models"
	"github.com/opscart/rds-metrics-collector/pkg/pricing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestCollector(d *fakeDescriber, source *fakeSource) *Collector {
	run := testRun(1)
	logger := zap.NewNop()
	profiler := NewProfiler(d, &fakePrices{}, staticSpecs{}, run, logger)
	return New(d, profiler, NewAggregator(source, &countingClassifier{}, run, logger), logger)
}

type staticSpecs struct{}

func (staticSpecs) Lookup(string) (models.Capacity, models.Capacity) {
	return models.CapacityOf(2), models.CapacityOf(16)
}

func byInstance(records []models.HourlyRecord) map[string][]models.HourlyRecord {
	out := make(map[string][]models.HourlyRecord)
	for _, r := range records {
		out[r.DBInstanceIdentifier] = append(out[r.DBInstanceIdentifier], r)
	}
	return out
}

func TestRunVisitsMultiAZClusterInstancesOnce(t *testing.T) {
	d := fleet()
	source := &fakeSource{cpu: flatCPU}

	records, report := newTestCollector(d, source).Run(context.Background(), "maz")

	grouped := byInstance(records)
	require.Len(t, grouped, 3)
	for id, rs := range grouped {
		assert.Len(t, rs, HoursPerDay, id)
		assert.Equal(t, "maz", rs[0].ClusterIdentifier)
		assert.Equal(t, 24*2, source.calls[id], id)
	}
	assert.Equal(t, "Multi-AZ DB Cluster (writer)", grouped["maz-1"][0].Profile.DeploymentOption)
	assert.Equal(t, "Multi-AZ DB Cluster (reader)", grouped["maz-2"][0].Profile.DeploymentOption)
	assert.Equal(t, "Multi-AZ DB Cluster Read Replica", grouped["maz-rr"][0].Profile.DeploymentOption)

	assert.Equal(t, 1, report.Discovered)
	assert.Len(t, report.Collected(), 3)
	assert.Empty(t, report.Skipped())
	assert.NotEmpty(t, report.RunID)
}

func TestRunAllCollectsEveryInstanceExactlyOnce(t *testing.T) {
	d := fleet()
	source := &fakeSource{cpu: flatCPU}

	records, report := newTestCollector(d, source).Run(context.Background(), TargetAll)

	grouped := byInstance(records)
	assert.Len(t, grouped, 6)
	for id, rs := range grouped {
		assert.Len(t, rs, HoursPerDay, id)
	}
	assert.Len(t, records, 6*HoursPerDay)
	assert.Equal(t, 3, report.Discovered)
	assert.Len(t, report.Results, 6)

	assert.Equal(t, "aur", grouped["aur-1"][0].ClusterIdentifier)
	assert.Equal(t, models.PlatformAurora, grouped["aur-1"][0].PlatformType)
	assert.Equal(t, "orders", grouped["orders"][0].ClusterIdentifier)
	assert.Equal(t, "orders", grouped["orders-rr"][0].ClusterIdentifier)
	assert.Equal(t, "Multi-AZ Read Replica (Single-AZ)", grouped["orders-rr"][0].Profile.DeploymentOption)
	assert.Equal(t, models.PlatformRDS, grouped["orders-rr"][0].PlatformType)
}

func TestRunReplicaTargetUsesPrimaryAsCluster(t *testing.T) {
	records, _ := newTestCollector(fleet(), &fakeSource{cpu: flatCPU}).Run(context.Background(), "orders-rr")

	grouped := byInstance(records)
	require.Len(t, grouped, 1)
	assert.Equal(t, "orders", grouped["orders-rr"][0].ClusterIdentifier)
}

func TestRunSkipsFailingUnitsAndContinues(t *testing.T) {
	d := fleet()
	d.errs = map[string]error{"maz-2": errors.New("access denied")}
	source := &fakeSource{cpu: flatCPU, errs: map[string]error{"maz-1": errors.New("throttled")}}
	observer := newRecordingObserver()

	records, report := newTestCollector(d, source).WithObserver(observer).Run(context.Background(), "maz")

	grouped := byInstance(records)
	assert.Len(t, grouped, 1)
	assert.Contains(t, grouped, "maz-rr")

	skipped := report.Skipped()
	require.Len(t, skipped, 2)
	assert.Equal(t, "maz-1", skipped[0].InstanceIdentifier)
	assert.Equal(t, StageMetrics, skipped[0].Skip.Stage)
	assert.Equal(t, "maz-2", skipped[1].InstanceIdentifier)
	assert.Equal(t, StageProfile, skipped[1].Skip.Stage)

	assert.Equal(t, 1, observer.skipped[StageMetrics])
	assert.Equal(t, 1, observer.skipped[StageProfile])
	assert.Equal(t, HoursPerDay, observer.collected[models.PlatformRDS])
}

func TestRunClusterDescribeFailureSkipsCluster(t *testing.T) {
	d := fleet()
	d.errs = map[string]error{"cluster/aur": errors.New("boom")}

	records, report := newTestCollector(d, &fakeSource{cpu: flatCPU}).Run(context.Background(), TargetAll)

	assert.NotContains(t, byInstance(records), "aur-1")
	skipped := report.Skipped()
	require.Len(t, skipped, 1)
	assert.Equal(t, "aur", skipped[0].ClusterIdentifier)
	assert.Empty(t, skipped[0].InstanceIdentifier)
	assert.Equal(t, StageDescribe, skipped[0].Skip.Stage)
}

func TestRunUnknownTargetIsEmpty(t *testing.T) {
	records, report := newTestCollector(fleet(), &fakeSource{cpu: flatCPU}).Run(context.Background(), "ghost")

	assert.Empty(t, records)
	assert.Zero(t, report.Discovered)
	assert.Empty(t, report.Results)
}

func TestRunWithNonFiniteFallbackPriceStillCollects(t *testing.T) {
	table, err := pricing.LoadFallbackCSV(strings.NewReader(
		"sheet,dbinstance_class,aws_region,instance_pricing,standard_price,io_price\n" +
			"RDS-SingleAZ,db.r6g.large,us-east-1,OnDemand,NaN,NaN\n" +
			"RDS-SingleAZ,db.r6g.large,us-east-1,RI,+Inf,\n"))
	require.NoError(t, err)
	prices := pricing.NewResolver(nil, table, "us-east-1", time.Hour, zap.NewNop())

	d := &fakeDescriber{instances: []models.DBInstance{{
		Identifier: "orders", Class: "db.r6g.large", Engine: "postgres", Status: "available",
	}}}
	run := testRun(1)
	logger := zap.NewNop()
	profiler := NewProfiler(d, prices, staticSpecs{}, run, logger)

	var profile *models.InstanceProfile
	require.NotPanics(t, func() {
		profile, err = profiler.Profile(context.Background(), "orders")
	})
	require.NoError(t, err)
	assert.Nil(t, profile.OnDemandHourlyRate)
	assert.Nil(t, profile.OnDemandMonthlyEstimate)
	assert.Nil(t, profile.RIHourlyRate)

	c := New(d, profiler, NewAggregator(&fakeSource{cpu: flatCPU}, &countingClassifier{}, run, logger), logger)
	records, report := c.Run(context.Background(), "orders")

	assert.Len(t, records, 24)
	assert.Len(t, report.Collected(), 1)
	assert.Empty(t, report.Skipped())
}

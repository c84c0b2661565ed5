package collector

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/opscart/rds-metrics-collector/pkg/inventory"
	"github.com/opscart/rds-metrics-collector/pkg/models"
	"go.uber.org/zap"
)

// Skip stages recorded in the run report
const (
	StageDescribe = "describe"
	StageProfile  = "profile"
	StageMetrics  = "metrics"
)

// Observer is notified as units finish
type Observer interface {
	UnitCollected(platform string, records int)
	UnitSkipped(stage string)
}

type nopObserver struct{}

func (nopObserver) UnitCollected(string, int) {}
func (nopObserver) UnitSkipped(string)        {}

// Collector walks the discovered topology and collects every instance once
type Collector struct {
	describer  inventory.Describer
	discoverer *Discoverer
	profiler   *Profiler
	aggregator *Aggregator
	observer   Observer
	logger     *zap.Logger
}

func New(describer inventory.Describer, profiler *Profiler, aggregator *Aggregator, logger *zap.Logger) *Collector {
	return &Collector{
		describer:  describer,
		discoverer: NewDiscoverer(describer, logger),
		profiler:   profiler,
		aggregator: aggregator,
		observer:   nopObserver{},
		logger:     logger.Named("collector"),
	}
}

// WithObserver sets the observer notified of unit outcomes
func (c *Collector) WithObserver(o Observer) *Collector {
	if o != nil {
		c.observer = o
	}
	return c
}

// run is the state of one Run call
type run struct {
	processed map[string]bool
	records   []models.HourlyRecord
	report    *models.RunReport
}

// Run discovers target and collects hourly records for every instance found.
// Per-unit failures are recorded in the report and never abort the run.
func (c *Collector) Run(ctx context.Context, target string) ([]models.HourlyRecord, *models.RunReport) {
	r := &run{
		processed: make(map[string]bool),
		report: &models.RunReport{
			RunID:     uuid.NewString(),
			Target:    target,
			StartedAt: time.Now().UTC(),
		},
	}

	entries := c.discoverer.Discover(ctx, target)
	r.report.Discovered = len(entries)
	if len(entries) == 0 {
		c.logger.Warn("no clusters found matching identifier", zap.String("target", target))
	}

	for _, entry := range entries {
		before := len(r.records)
		switch entry.Topology.(type) {
		case models.AuroraCluster:
			c.logger.Info("collecting Aurora cluster", zap.String("cluster", entry.ClusterIdentifier))
			c.walkCluster(ctx, r, entry, false)
		case models.MultiAZCluster:
			c.logger.Info("collecting Multi-AZ DB cluster", zap.String("cluster", entry.ClusterIdentifier))
			c.walkCluster(ctx, r, entry, true)
		case models.Standalone, models.ReadReplicaOf:
			c.logger.Info("collecting RDS instance", zap.String("instance", entry.ClusterIdentifier))
			c.walkInstance(ctx, r, entry.ClusterIdentifier)
		}

		if len(r.records) > before {
			c.logger.Info("collected metrics", zap.String("unit", entry.ClusterIdentifier), zap.Int("records", len(r.records)-before))
		} else {
			c.logger.Warn("no metrics found", zap.String("unit", entry.ClusterIdentifier))
		}
	}

	r.report.FinishedAt = time.Now().UTC()
	return r.records, r.report
}

// walkCluster visits each member once, plus read replicas for Multi-AZ DB clusters
func (c *Collector) walkCluster(ctx context.Context, r *run, entry models.TopologyEntry, multiAZ bool) {
	cluster, err := c.describer.DescribeCluster(ctx, entry.ClusterIdentifier)
	if err != nil {
		c.skip(r, entry.ClusterIdentifier, "", StageDescribe, err)
		return
	}

	for _, m := range cluster.Members {
		label := ""
		if multiAZ {
			label = fmt.Sprintf("Multi-AZ DB Cluster (%s)", m.Role())
		}
		c.collectInstance(ctx, r, m.InstanceIdentifier, cluster.Identifier, label)
	}

	if !multiAZ {
		return
	}
	for _, ref := range cluster.ReadReplicaIdentifiers {
		c.collectInstance(ctx, r, inventory.ReplicaIdentifier(ref), cluster.Identifier, "Multi-AZ DB Cluster Read Replica")
	}
}

// walkInstance visits a standalone instance and, for primaries, its read replicas
func (c *Collector) walkInstance(ctx context.Context, r *run, instanceID string) {
	inst, err := c.describer.DescribeInstance(ctx, instanceID)
	if err != nil {
		c.skip(r, instanceID, instanceID, StageDescribe, err)
		return
	}

	if inst.IsReadReplica() {
		c.collectInstance(ctx, r, instanceID, inst.ReplicaParent(), "")
		return
	}

	c.collectInstance(ctx, r, instanceID, instanceID, "")
	for _, replicaID := range inst.ReadReplicaInstanceIDs {
		c.collectInstance(ctx, r, inventory.ReplicaIdentifier(replicaID), instanceID, "")
	}
}

// collectInstance profiles and aggregates one instance unless it was already visited.
// A non-empty label replaces the profiled deployment description.
func (c *Collector) collectInstance(ctx context.Context, r *run, instanceID, clusterID, label string) {
	if r.processed[instanceID] {
		return
	}
	r.processed[instanceID] = true

	c.logger.Info("collecting metrics for instance",
		zap.String("instance", instanceID), zap.String("cluster", clusterID))

	profile, err := c.profiler.Profile(ctx, instanceID)
	if err != nil {
		c.skip(r, clusterID, instanceID, StageProfile, err)
		return
	}
	if label != "" {
		relabelled := profile.WithDeployment(label)
		profile = &relabelled
	}

	records, err := c.aggregator.Aggregate(ctx, instanceID, *profile, clusterID)
	if err != nil {
		c.skip(r, clusterID, instanceID, StageMetrics, err)
		return
	}

	r.records = append(r.records, records...)
	r.report.Results = append(r.report.Results, models.UnitResult{
		ClusterIdentifier:  clusterID,
		InstanceIdentifier: instanceID,
		Records:            len(records),
	})
	c.observer.UnitCollected(profile.PlatformType(), len(records))
}

func (c *Collector) skip(r *run, clusterID, instanceID, stage string, err error) {
	c.logger.Error("skipping unit",
		zap.String("cluster", clusterID),
		zap.String("instance", instanceID),
		zap.String("stage", stage),
		zap.Error(err))
	r.report.Results = append(r.report.Results, models.UnitResult{
		ClusterIdentifier:  clusterID,
		InstanceIdentifier: instanceID,
		Skip:               &models.SkipReason{Stage: stage, Err: err.Error()},
	})
	c.observer.UnitSkipped(stage)
}

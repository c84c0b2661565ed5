package collector

import (
	"context"
	"errors"
	"strings"

	"github.com/opscart/rds-metrics-collector/pkg/inventory"
	"github.com/opscart/rds-metrics-collector/pkg/models"
	"go.uber.org/zap"
)

// TargetAll selects every PostgreSQL cluster and standalone instance in the region
const TargetAll = "all"

// Discoverer enumerates the units a run collects from
type Discoverer struct {
	describer inventory.Describer
	logger    *zap.Logger
}

func NewDiscoverer(describer inventory.Describer, logger *zap.Logger) *Discoverer {
	return &Discoverer{
		describer: describer,
		logger:    logger.Named("discoverer"),
	}
}

// Discover returns the topology entries for target, which is "all" or one identifier.
// An identifier is tried as a cluster first, then as an instance. Failures are
// logged and yield fewer entries rather than an error.
func (d *Discoverer) Discover(ctx context.Context, target string) []models.TopologyEntry {
	if strings.EqualFold(target, TargetAll) {
		return d.discoverAll(ctx)
	}
	return d.discoverOne(ctx, target)
}

func (d *Discoverer) discoverAll(ctx context.Context) []models.TopologyEntry {
	var entries []models.TopologyEntry
	claimed := make(map[string]bool)

	clusters, err := d.describer.ListClusters(ctx)
	if err != nil {
		d.logger.Error("failed to list clusters, continuing with instances", zap.Error(err))
	}
	for i := range clusters {
		entry, ok := d.clusterEntry(&clusters[i])
		if !ok {
			continue
		}
		entries = append(entries, entry)
		for _, m := range clusters[i].Members {
			claimed[m.InstanceIdentifier] = true
		}
		if entry.IsMultiAZCluster() {
			for _, r := range clusters[i].ReadReplicaIdentifiers {
				claimed[inventory.ReplicaIdentifier(r)] = true
			}
		}
	}

	instances, err := d.describer.ListInstances(ctx)
	if err != nil {
		d.logger.Error("failed to list instances", zap.Error(err))
	}
	for i := range instances {
		inst := &instances[i]
		if claimed[inst.Identifier] {
			continue
		}
		// replicas of instances are walked from their primary
		if !models.IsPostgresEngine(inst.Engine) || inst.ClusterIdentifier != "" || inst.ReplicaSourceInstance != "" {
			continue
		}
		entries = append(entries, d.instanceEntry(inst))
	}

	d.logger.Info("discovery complete", zap.Int("units", len(entries)))
	return entries
}

func (d *Discoverer) discoverOne(ctx context.Context, target string) []models.TopologyEntry {
	cluster, err := d.describer.DescribeCluster(ctx, target)
	if err == nil {
		if entry, ok := d.clusterEntry(cluster); ok {
			return []models.TopologyEntry{entry}
		}
		d.logger.Warn("cluster is not PostgreSQL", zap.String("cluster", target), zap.String("engine", cluster.Engine))
		return nil
	}
	if !errors.Is(err, inventory.ErrNotFound) {
		d.logger.Error("failed to describe cluster", zap.String("cluster", target), zap.Error(err))
		return nil
	}

	inst, err := d.describer.DescribeInstance(ctx, target)
	if err != nil {
		if errors.Is(err, inventory.ErrNotFound) {
			d.logger.Error("no PostgreSQL cluster or instance found", zap.String("target", target))
		} else {
			d.logger.Error("failed to describe instance", zap.String("instance", target), zap.Error(err))
		}
		return nil
	}
	if !models.IsPostgresEngine(inst.Engine) || inst.ClusterIdentifier != "" {
		d.logger.Warn("instance is not a standalone PostgreSQL instance",
			zap.String("instance", target), zap.String("engine", inst.Engine))
		return nil
	}
	return []models.TopologyEntry{d.instanceEntry(inst)}
}

func (d *Discoverer) clusterEntry(c *models.DBCluster) (models.TopologyEntry, bool) {
	engine := strings.ToLower(c.Engine)
	if engine != "postgres" && engine != "aurora-postgresql" {
		return models.TopologyEntry{}, false
	}

	entry := models.TopologyEntry{ClusterIdentifier: c.Identifier, Engine: c.Engine}
	if models.IsAuroraEngine(engine) {
		entry.Topology = models.AuroraCluster{}
		d.logger.Info("found Aurora cluster", zap.String("cluster", c.Identifier))
	} else {
		entry.Topology = models.MultiAZCluster{}
		d.logger.Info("found Multi-AZ DB cluster",
			zap.String("cluster", c.Identifier), zap.Int("members", len(c.Members)))
	}
	return entry, true
}

func (d *Discoverer) instanceEntry(inst *models.DBInstance) models.TopologyEntry {
	entry := models.TopologyEntry{ClusterIdentifier: inst.Identifier, Engine: inst.Engine}
	if inst.IsReadReplica() {
		entry.Topology = models.ReadReplicaOf{
			Parent:          inst.ReplicaParent(),
			ParentIsCluster: inst.ReplicaSourceInstance == "",
		}
	} else {
		entry.Topology = models.Standalone{MultiAZ: inst.MultiAZ}
	}
	d.logger.Info("found RDS instance",
		zap.String("instance", inst.Identifier),
		zap.Stringer("topology", entry.Topology),
		zap.Strings("replicas", inst.ReadReplicaInstanceIDs))
	return entry
}

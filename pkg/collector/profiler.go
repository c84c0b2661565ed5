package collector

import (
	"context"
	"fmt"
	"strings"

	"github.com/opscart/rds-metrics-collector/pkg/inventory"
	"github.com/opscart/rds-metrics-collector/pkg/models"
	"github.com/opscart/rds-metrics-collector/pkg/pricing"
	"github.com/opscart/rds-metrics-collector/pkg/recommender"
	"go.uber.org/zap"
)

// Serverless v2 scaling defaults when the cluster reports none
const defaultMinACU = 0.5

// PriceResolver resolves instance prices; *pricing.Resolver satisfies it
type PriceResolver interface {
	OnDemand(ctx context.Context, q models.PriceQuery) *float64
	Reserved1yrNoUpfront(ctx context.Context, q models.PriceQuery) *float64
}

// Profiler builds the static and pricing profile of one instance
type Profiler struct {
	describer inventory.Describer
	prices    PriceResolver
	specs     pricing.SpecSource
	run       models.RunContext
	logger    *zap.Logger
}

func NewProfiler(describer inventory.Describer, prices PriceResolver, specs pricing.SpecSource, run models.RunContext, logger *zap.Logger) *Profiler {
	return &Profiler{
		describer: describer,
		prices:    prices,
		specs:     specs,
		run:       run,
		logger:    logger.Named("profiler"),
	}
}

// Profile describes instanceID and resolves its capacity and prices.
// Only the describe call itself can fail; missing prices and specs degrade to nil or Unknown.
func (p *Profiler) Profile(ctx context.Context, instanceID string) (*models.InstanceProfile, error) {
	inst, err := p.describer.DescribeInstance(ctx, instanceID)
	if err != nil {
		return nil, fmt.Errorf("failed to describe instance %s: %w", instanceID, err)
	}

	aurora := models.IsAuroraEngine(inst.Engine)
	topology := instanceTopology(inst)
	pricingDeployment, description := p.deployment(ctx, inst, topology)

	profile := &models.InstanceProfile{
		InstanceIdentifier: inst.Identifier,
		InstanceClass:      inst.Class,
		Engine:             inst.Engine,
		EngineVersion:      inst.EngineVersion,
		Status:             inst.Status,
		StorageType:        storageLabel(inst.StorageType, aurora),
		DeploymentOption:   description,
		PricingDeployment:  pricingDeployment,
		Topology:           topology,
		IsServerless:       inst.Class == models.ServerlessClass,
	}
	profile.ACUPricePerHour = p.run.ACUPrice(profile.StorageType)

	p.logger.Debug("instance deployment",
		zap.String("instance", instanceID),
		zap.String("storage", profile.StorageType),
		zap.String("deployment", pricingDeployment),
		zap.String("description", description))

	if profile.IsServerless {
		profile.VCPU = models.ServerlessCapacity
		profile.MemoryGiB = models.ServerlessCapacity
		p.serverlessCosts(ctx, inst, profile)
		return profile, nil
	}

	profile.VCPU, profile.MemoryGiB = p.specs.Lookup(inst.Class)

	engineType := models.EngineTypePostgres
	if aurora {
		engineType = models.EngineTypeAurora
	}
	q := models.PriceQuery{
		InstanceClass:    inst.Class,
		EngineType:       engineType,
		StorageType:      profile.StorageType,
		DeploymentOption: pricingDeployment,
	}
	profile.OnDemandHourlyRate = p.prices.OnDemand(ctx, q)
	profile.OnDemandMonthlyEstimate = recommender.MonthlyCost(profile.OnDemandHourlyRate)
	profile.RIHourlyRate = p.prices.Reserved1yrNoUpfront(ctx, q)
	profile.RIMonthlyEstimate = recommender.MonthlyCost(profile.RIHourlyRate)
	return profile, nil
}

// instanceTopology places a single instance in the topology variants
func instanceTopology(inst *models.DBInstance) models.Topology {
	multiAZCluster := inst.ClusterIdentifier != "" && !models.IsAuroraEngine(inst.Engine)
	switch {
	case inst.IsReadReplica():
		return models.ReadReplicaOf{
			Parent:          inst.ReplicaParent(),
			ParentIsCluster: multiAZCluster || inst.ReplicaSourceInstance == "",
		}
	case multiAZCluster:
		return models.MultiAZCluster{}
	case inst.ClusterIdentifier != "":
		return models.AuroraCluster{}
	default:
		return models.Standalone{MultiAZ: inst.MultiAZ}
	}
}

// deployment returns the pricing deployment option and the descriptive label
func (p *Profiler) deployment(ctx context.Context, inst *models.DBInstance, topology models.Topology) (string, string) {
	own := azMode(inst.MultiAZ)

	switch t := topology.(type) {
	case models.MultiAZCluster:
		return models.DeploymentReadable, fmt.Sprintf("Multi-AZ DB Cluster (%s)", p.clusterRole(ctx, inst))
	case models.ReadReplicaOf:
		if t.ParentIsCluster {
			return own, fmt.Sprintf("Multi-AZ DB Cluster Read Replica (%s)", own)
		}
		source, err := p.describer.DescribeInstance(ctx, t.Parent)
		if err != nil {
			p.logger.Error("failed to describe replica source",
				zap.String("instance", inst.Identifier),
				zap.String("source", t.Parent),
				zap.Error(err))
			return own, fmt.Sprintf("Read Replica (%s)", own)
		}
		return own, fmt.Sprintf("%s Read Replica (%s)", azMode(source.MultiAZ), own)
	default:
		return own, own
	}
}

func (p *Profiler) clusterRole(ctx context.Context, inst *models.DBInstance) string {
	cluster, err := p.describer.DescribeCluster(ctx, inst.ClusterIdentifier)
	if err != nil {
		p.logger.Error("failed to describe cluster for role",
			zap.String("instance", inst.Identifier),
			zap.String("cluster", inst.ClusterIdentifier),
			zap.Error(err))
		return "reader"
	}
	member, _ := cluster.Member(inst.Identifier)
	return member.Role()
}

func (p *Profiler) serverlessCosts(ctx context.Context, inst *models.DBInstance, profile *models.InstanceProfile) {
	var minCap, maxCap *float64
	if inst.ClusterIdentifier != "" {
		cluster, err := p.describer.DescribeCluster(ctx, inst.ClusterIdentifier)
		if err != nil {
			p.logger.Warn("failed to read serverless scaling range, using defaults",
				zap.String("instance", inst.Identifier), zap.Error(err))
		} else {
			minCap, maxCap = cluster.ServerlessMinCapacity, cluster.ServerlessMaxCapacity
		}
	}

	minACU := defaultMinACU
	if minCap != nil {
		minACU = *minCap
	}
	maxACU := minACU
	if maxCap != nil {
		maxACU = *maxCap
	}

	minHourly := recommender.Round(profile.ACUPricePerHour*minACU, 3)
	maxHourly := recommender.Round(profile.ACUPricePerHour*maxACU, 3)

	profile.MinACU = &minACU
	profile.MaxACU = &maxACU
	profile.ServerlessMinHourlyCost = &minHourly
	profile.ServerlessMaxHourlyCost = &maxHourly
	profile.ServerlessMinMonthlyCost = recommender.MonthlyCost(&minHourly)
	profile.ServerlessMaxMonthlyCost = recommender.MonthlyCost(&maxHourly)
}

func storageLabel(raw string, aurora bool) string {
	if aurora {
		if strings.EqualFold(raw, models.AuroraIOOptStorage) {
			return models.StorageIOOptimized
		}
		return models.StorageStandard
	}
	if raw == "" {
		return models.StorageStandard
	}
	return raw
}

func azMode(multiAZ bool) string {
	if multiAZ {
		return models.DeploymentMultiAZ
	}
	return models.DeploymentSingleAZ
}

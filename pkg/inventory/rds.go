package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/rds"
	rdstypes "github.com/aws/aws-sdk-go-v2/service/rds/types"
	"github.com/aws/smithy-go"

	"github.com/opscart/rds-metrics-collector/pkg/models"
)

// RDSAPI is the part of the RDS client used for topology discovery
type RDSAPI interface {
	rds.DescribeDBClustersAPIClient
	rds.DescribeDBInstancesAPIClient
}

// RDSDescriber implements Describer on top of the RDS API
type RDSDescriber struct {
	client RDSAPI
}

func NewRDSDescriber(client RDSAPI) *RDSDescriber {
	return &RDSDescriber{client: client}
}

// NewRDSDescriberFromConfig creates the RDS client from an AWS config
func NewRDSDescriberFromConfig(cfg aws.Config) *RDSDescriber {
	return NewRDSDescriber(rds.NewFromConfig(cfg))
}

func (d *RDSDescriber) DescribeInstance(ctx context.Context, id string) (*models.DBInstance, error) {
	out, err := d.client.DescribeDBInstances(ctx, &rds.DescribeDBInstancesInput{
		DBInstanceIdentifier: aws.String(id),
	})
	if err != nil {
		return nil, classify("describe instance "+id, err)
	}
	if len(out.DBInstances) == 0 {
		return nil, fmt.Errorf("describe instance %s: %w", id, ErrNotFound)
	}
	inst := toInstance(out.DBInstances[0])
	return &inst, nil
}

func (d *RDSDescriber) DescribeCluster(ctx context.Context, id string) (*models.DBCluster, error) {
	out, err := d.client.DescribeDBClusters(ctx, &rds.DescribeDBClustersInput{
		DBClusterIdentifier: aws.String(id),
	})
	if err != nil {
		return nil, classify("describe cluster "+id, err)
	}
	if len(out.DBClusters) == 0 {
		return nil, fmt.Errorf("describe cluster %s: %w", id, ErrNotFound)
	}
	cluster := toCluster(out.DBClusters[0])
	return &cluster, nil
}

// ListClusters returns every cluster in the region
func (d *RDSDescriber) ListClusters(ctx context.Context) ([]models.DBCluster, error) {
	paginator := rds.NewDescribeDBClustersPaginator(d.client, &rds.DescribeDBClustersInput{})

	var clusters []models.DBCluster
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, classify("list clusters", err)
		}
		for _, c := range page.DBClusters {
			clusters = append(clusters, toCluster(c))
		}
	}
	return clusters, nil
}

// ListInstances returns every instance in the region
func (d *RDSDescriber) ListInstances(ctx context.Context) ([]models.DBInstance, error) {
	paginator := rds.NewDescribeDBInstancesPaginator(d.client, &rds.DescribeDBInstancesInput{})

	var instances []models.DBInstance
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, classify("list instances", err)
		}
		for _, i := range page.DBInstances {
			instances = append(instances, toInstance(i))
		}
	}
	return instances, nil
}

func classify(op string, err error) error {
	var clusterNotFound *rdstypes.DBClusterNotFoundFault
	var instanceNotFound *rdstypes.DBInstanceNotFoundFault
	if errors.As(err, &clusterNotFound) || errors.As(err, &instanceNotFound) {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}

	var ae smithy.APIError
	if errors.As(err, &ae) {
		return fmt.Errorf("%s: %s: %w", op, ae.ErrorCode(), err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func toInstance(v rdstypes.DBInstance) models.DBInstance {
	inst := models.DBInstance{
		Identifier:            aws.ToString(v.DBInstanceIdentifier),
		Class:                 aws.ToString(v.DBInstanceClass),
		Engine:                aws.ToString(v.Engine),
		EngineVersion:         aws.ToString(v.EngineVersion),
		Status:                aws.ToString(v.DBInstanceStatus),
		StorageType:           aws.ToString(v.StorageType),
		MultiAZ:               aws.ToBool(v.MultiAZ),
		ClusterIdentifier:     aws.ToString(v.DBClusterIdentifier),
		ReplicaSourceInstance: ReplicaIdentifier(aws.ToString(v.ReadReplicaSourceDBInstanceIdentifier)),
		ReplicaSourceCluster:  ReplicaIdentifier(aws.ToString(v.ReadReplicaSourceDBClusterIdentifier)),
	}
	for _, id := range v.ReadReplicaDBInstanceIdentifiers {
		inst.ReadReplicaInstanceIDs = append(inst.ReadReplicaInstanceIDs, ReplicaIdentifier(id))
	}
	return inst
}

func toCluster(v rdstypes.DBCluster) models.DBCluster {
	cluster := models.DBCluster{
		Identifier: aws.ToString(v.DBClusterIdentifier),
		Engine:     aws.ToString(v.Engine),
	}
	for _, m := range v.DBClusterMembers {
		cluster.Members = append(cluster.Members, models.ClusterMember{
			InstanceIdentifier: aws.ToString(m.DBInstanceIdentifier),
			IsWriter:           aws.ToBool(m.IsClusterWriter),
		})
	}
	for _, ref := range v.ReadReplicaIdentifiers {
		cluster.ReadReplicaIdentifiers = append(cluster.ReadReplicaIdentifiers, ReplicaIdentifier(ref))
	}
	if sc := v.ServerlessV2ScalingConfiguration; sc != nil {
		cluster.ServerlessMinCapacity = sc.MinCapacity
		cluster.ServerlessMaxCapacity = sc.MaxCapacity
	}
	return cluster
}

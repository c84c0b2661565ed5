package inventory

import (
	"context"
	"errors"
	"strings"

	"github.com/opscart/rds-metrics-collector/pkg/models"
)

// ErrNotFound is returned when a cluster or instance does not exist
var ErrNotFound = errors.New("not found")

// Describer reads RDS topology metadata
type Describer interface {
	DescribeInstance(ctx context.Context, id string) (*models.DBInstance, error)
	DescribeCluster(ctx context.Context, id string) (*models.DBCluster, error)
	ListClusters(ctx context.Context) ([]models.DBCluster, error)
	ListInstances(ctx context.Context) ([]models.DBInstance, error)
}

// ReplicaIdentifier turns a replica reference into an instance identifier.
// Cross-region replicas are reported as ARNs; plain identifiers pass through.
func ReplicaIdentifier(ref string) string {
	if i := strings.LastIndex(ref, ":"); i >= 0 {
		return ref[i+1:]
	}
	return ref
}

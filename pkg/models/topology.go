package models

import "strings"

// Topology is the structural shape of a database deployment.
// The set is closed: Standalone, AuroraCluster, MultiAZCluster and ReadReplicaOf.
type Topology interface {
	isTopology()
	String() string
}

// Standalone is a single RDS instance outside any cluster
type Standalone struct {
	MultiAZ bool
}

// AuroraCluster is an Aurora cluster or one of its members
type AuroraCluster struct{}

// MultiAZCluster is a non-Aurora Multi-AZ DB cluster or one of its members
type MultiAZCluster struct{}

// ReadReplicaOf is a read replica of another instance or cluster
type ReadReplicaOf struct {
	Parent          string
	ParentIsCluster bool
}

func (Standalone) isTopology()     {}
func (AuroraCluster) isTopology()  {}
func (MultiAZCluster) isTopology() {}
func (ReadReplicaOf) isTopology()  {}

func (s Standalone) String() string {
	if s.MultiAZ {
		return "standalone (Multi-AZ)"
	}
	return "standalone (Single-AZ)"
}

func (AuroraCluster) String() string  { return "aurora-cluster" }
func (MultiAZCluster) String() string { return "multi-az-cluster" }

func (r ReadReplicaOf) String() string {
	return "read-replica-of(" + r.Parent + ")"
}

// TopologyEntry is one discovered unit of collection
type TopologyEntry struct {
	ClusterIdentifier string
	Engine            string
	Topology          Topology
}

// IsAurora reports whether the unit is walked as an Aurora cluster
func (e TopologyEntry) IsAurora() bool {
	_, ok := e.Topology.(AuroraCluster)
	return ok
}

// IsMultiAZCluster reports whether the unit is a non-Aurora Multi-AZ DB cluster
func (e TopologyEntry) IsMultiAZCluster() bool {
	_, ok := e.Topology.(MultiAZCluster)
	return ok
}

// IsMultiAZ returns the instance Multi-AZ flag for standalone units and nil otherwise
func (e TopologyEntry) IsMultiAZ() *bool {
	if s, ok := e.Topology.(Standalone); ok {
		v := s.MultiAZ
		return &v
	}
	return nil
}

// IsAuroraEngine reports whether engine names a clustered Aurora engine
func IsAuroraEngine(engine string) bool {
	return strings.Contains(strings.ToLower(engine), "aurora")
}

// IsPostgresEngine reports whether engine is one of the PostgreSQL flavours
func IsPostgresEngine(engine string) bool {
	return strings.Contains(strings.ToLower(engine), "postgres")
}

package models

// DBInstance is the subset of instance metadata the collector relies on
type DBInstance struct {
	Identifier             string
	Class                  string
	Engine                 string
	EngineVersion          string
	Status                 string
	StorageType            string
	MultiAZ                bool
	ClusterIdentifier      string
	ReplicaSourceInstance  string
	ReplicaSourceCluster   string
	ReadReplicaInstanceIDs []string
}

// IsReadReplica reports whether the instance replicates from another instance or cluster
func (i *DBInstance) IsReadReplica() bool {
	return i.ReplicaSourceInstance != "" || i.ReplicaSourceCluster != ""
}

// ReplicaParent returns the replication source, preferring the source instance
func (i *DBInstance) ReplicaParent() string {
	if i.ReplicaSourceInstance != "" {
		return i.ReplicaSourceInstance
	}
	return i.ReplicaSourceCluster
}

// ClusterMember is one instance of a DB cluster
type ClusterMember struct {
	InstanceIdentifier string
	IsWriter           bool
}

// Role returns "writer" or "reader"
func (m ClusterMember) Role() string {
	if m.IsWriter {
		return "writer"
	}
	return "reader"
}

// DBCluster is the subset of cluster metadata the collector relies on
type DBCluster struct {
	Identifier             string
	Engine                 string
	Members                []ClusterMember
	ReadReplicaIdentifiers []string
	ServerlessMinCapacity  *float64
	ServerlessMaxCapacity  *float64
}

// Member looks up the membership entry for an instance
func (c *DBCluster) Member(instanceID string) (ClusterMember, bool) {
	for _, m := range c.Members {
		if m.InstanceIdentifier == instanceID {
			return m, true
		}
	}
	return ClusterMember{}, false
}

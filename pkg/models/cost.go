package models

import "strconv"

// Storage and deployment labels shared by pricing and profiling
const (
	StorageStandard    = "Standard"
	StorageIOOptimized = "I/O Optimized"
	AuroraIOOptStorage = "aurora-iopt1"
	ServerlessClass    = "db.serverless"
	DeploymentSingleAZ = "Single-AZ"
	DeploymentMultiAZ  = "Multi-AZ"
	DeploymentReadable = "Multi-AZ (readable standbys)"
	PlatformAurora     = "Aurora"
	PlatformRDS        = "RDS"
	EngineTypeAurora   = "Aurora PostgreSQL"
	EngineTypePostgres = "PostgreSQL"
)

// PriceKind selects list or reserved pricing in the fallback table
type PriceKind string

const (
	PriceOnDemand PriceKind = "OnDemand"
	PriceReserved PriceKind = "RI"
)

// PriceQuery identifies one instance pricing lookup
type PriceQuery struct {
	InstanceClass    string
	EngineType       string // Aurora PostgreSQL or PostgreSQL
	StorageType      string
	DeploymentOption string // Single-AZ, Multi-AZ or Multi-AZ (readable standbys)
}

// IsAurora reports whether the query targets Aurora PostgreSQL
func (q PriceQuery) IsAurora() bool {
	return IsAuroraEngine(q.EngineType)
}

// Platform returns Aurora or RDS
func (q PriceQuery) Platform() string {
	if q.IsAurora() {
		return PlatformAurora
	}
	return PlatformRDS
}

// Capacity is a vCPU or memory figure that may be a sentinel instead of a number
type Capacity struct {
	Value *float64
	Label string
}

// CapacityOf wraps a known number
func CapacityOf(v float64) Capacity {
	return Capacity{Value: &v}
}

var (
	// ServerlessCapacity marks vCPU/memory of db.serverless instances
	ServerlessCapacity = Capacity{Label: "Serverless"}
	// UnknownCapacity marks classes missing from the spec table
	UnknownCapacity = Capacity{Label: "Unknown"}
)

// Known reports whether the capacity is numeric
func (c Capacity) Known() bool {
	return c.Value != nil
}

func (c Capacity) String() string {
	if c.Value == nil {
		return c.Label
	}
	return strconv.FormatFloat(*c.Value, 'f', -1, 64)
}

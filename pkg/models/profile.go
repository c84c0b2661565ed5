package models

// InstanceProfile holds the static and pricing attributes of one instance.
// Exactly one of the serverless cost group or the on-demand/RI group is populated.
type InstanceProfile struct {
	InstanceIdentifier string
	InstanceClass      string
	Engine             string
	EngineVersion      string
	Status             string
	StorageType        string
	DeploymentOption   string
	PricingDeployment  string
	Topology           Topology
	VCPU               Capacity
	MemoryGiB          Capacity
	IsServerless       bool
	ACUPricePerHour    float64

	MinACU                   *float64
	MaxACU                   *float64
	ServerlessMinHourlyCost  *float64
	ServerlessMaxHourlyCost  *float64
	ServerlessMinMonthlyCost *float64
	ServerlessMaxMonthlyCost *float64

	OnDemandHourlyRate      *float64
	OnDemandMonthlyEstimate *float64
	RIHourlyRate            *float64
	RIMonthlyEstimate       *float64
}

// IsAurora reports whether the engine is Aurora PostgreSQL
func (p InstanceProfile) IsAurora() bool {
	return IsAuroraEngine(p.Engine)
}

// PlatformType returns Aurora or RDS
func (p InstanceProfile) PlatformType() string {
	if p.IsAurora() {
		return PlatformAurora
	}
	return PlatformRDS
}

// WithDeployment returns a copy carrying a different deployment description
func (p InstanceProfile) WithDeployment(description string) InstanceProfile {
	p.DeploymentOption = description
	return p
}

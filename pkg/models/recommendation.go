package models

import "time"

// Migration paths to Aurora Serverless v2
const (
	PathNoAction = "NoAction"
	PathInPlace  = "In-Place"
	PathPlatform = "Platform"
)

// MigrationFields are the serverless sizing columns of an hourly record
type MigrationFields struct {
	ASV2MigrationPath               string
	GrowthCapacityFactor            *float64
	VCPUUtilization                 *float64
	ActualEstimateACU               *float64
	ActualEstimateACUPricePerHour   *float64
	AdjustedEstimateACU             *float64
	AdjustedEstimateACUPricePerHour *float64
	UsagePattern                    *string
	UsagePatternNotes               string
}

// RawSample is one merged CloudWatch datapoint for one instance
type RawSample struct {
	Timestamp            time.Time
	DayOfWeek            string
	Hour                 int
	AvgCPU               float64
	MaxCPU               float64
	P95CPU               float64
	DBInstanceIdentifier string
	ClusterIdentifier    string
}

// HourlyRecord is one hour-of-day row for one instance
type HourlyRecord struct {
	ExecTimestampUTC     string
	RunDateLocal         string
	StartDateUTC         string
	EndDateUTC           string
	AccountID            string
	Region               string
	ClusterIdentifier    string
	DBInstanceIdentifier string
	Profile              InstanceProfile
	SamplePeriodDays     int
	ObservationDays      int
	Hour                 int
	UTCHour              string
	PlatformType         string

	AvgCPUUtilization *float64
	MaxCPUUtilization *float64
	P95CPUUtilization *float64

	MigrationFields
}

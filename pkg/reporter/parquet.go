package reporter

import (
	"fmt"
	"io"

	"github.com/opscart/rds-metrics-collector/pkg/models"
	"github.com/parquet-go/parquet-go"
)

// ParquetRecord is the columnar form of an hourly record. Column names match Columns.
type ParquetRecord struct {
	ExecTimestampUTC                string   `parquet:"exec_timestamp_utc"`
	RunDateLocal                    string   `parquet:"run_date_local"`
	StartDateUTC                    string   `parquet:"start_date_utc"`
	EndDateUTC                      string   `parquet:"end_date_utc"`
	AccountID                       string   `parquet:"aws_account_id"`
	Region                          string   `parquet:"aws_region"`
	ClusterIdentifier               string   `parquet:"cluster_identifier"`
	DBInstanceIdentifier            string   `parquet:"dbinstance_identifier"`
	InstanceClass                   string   `parquet:"dbinstance_class"`
	Engine                          string   `parquet:"engine"`
	EngineVersion                   string   `parquet:"engine_version"`
	StorageType                     string   `parquet:"storage_type"`
	DeploymentOption                string   `parquet:"deployment_option"`
	Status                          string   `parquet:"dbinstance_status"`
	VCPU                            string   `parquet:"vcpu"`
	MemoryGiB                       string   `parquet:"memory_gib"`
	IsServerless                    bool     `parquet:"is_serverless"`
	ACUPricePerHour                 float64  `parquet:"acu_price_per_hour"`
	MinACU                          *float64 `parquet:"min_acu,optional"`
	MaxACU                          *float64 `parquet:"max_acu,optional"`
	ServerlessMinHourlyCost         *float64 `parquet:"serverless_min_hourly_cost,optional"`
	ServerlessMaxHourlyCost         *float64 `parquet:"serverless_max_hourly_cost,optional"`
	ServerlessMinMonthlyCost        *float64 `parquet:"serverless_min_monthly_cost,optional"`
	ServerlessMaxMonthlyCost        *float64 `parquet:"serverless_max_monthly_cost,optional"`
	OnDemandHourlyRate              *float64 `parquet:"on_demand_hourly_rate,optional"`
	OnDemandMonthlyEstimate         *float64 `parquet:"on_demand_monthly_estimate,optional"`
	RIHourlyRate                    *float64 `parquet:"ri_1yr_no_upfront_hourly,optional"`
	RIMonthlyEstimate               *float64 `parquet:"ri_1yr_no_upfront_monthly,optional"`
	SamplePeriodDays                int32    `parquet:"sample_period_days"`
	ObservationDays                 int32    `parquet:"observation_days"`
	UTCHour                         string   `parquet:"utc_hour"`
	PlatformType                    string   `parquet:"platform_type"`
	AvgCPUUtilization               *float64 `parquet:"avg_cpu_utilization,optional"`
	MaxCPUUtilization               *float64 `parquet:"max_cpu_utilization,optional"`
	P95CPUUtilization               *float64 `parquet:"p95_cpu_utilization,optional"`
	ASV2MigrationPath               string   `parquet:"asv2_migration_path"`
	GrowthCapacityFactor            *float64 `parquet:"growth_capacity_factor,optional"`
	VCPUUtilization                 *float64 `parquet:"vcpu_utilization,optional"`
	ActualEstimateACU               *float64 `parquet:"actual_estimate_acu,optional"`
	ActualEstimateACUPricePerHour   *float64 `parquet:"actual_estimate_acu_price_per_hour,optional"`
	AdjustedEstimateACU             *float64 `parquet:"adjusted_estimate_acu,optional"`
	AdjustedEstimateACUPricePerHour *float64 `parquet:"adjusted_estimate_acu_price_per_hour,optional"`
	UsagePattern                    *string  `parquet:"usage_pattern,optional"`
	UsagePatternNotes               string   `parquet:"usage_pattern_notes"`
}

// ToParquet converts an hourly record
func ToParquet(r *models.HourlyRecord) ParquetRecord {
	p := &r.Profile
	return ParquetRecord{
		ExecTimestampUTC:                r.ExecTimestampUTC,
		RunDateLocal:                    r.RunDateLocal,
		StartDateUTC:                    r.StartDateUTC,
		EndDateUTC:                      r.EndDateUTC,
		AccountID:                       r.AccountID,
		Region:                          r.Region,
		ClusterIdentifier:               r.ClusterIdentifier,
		DBInstanceIdentifier:            r.DBInstanceIdentifier,
		InstanceClass:                   p.InstanceClass,
		Engine:                          p.Engine,
		EngineVersion:                   p.EngineVersion,
		StorageType:                     p.StorageType,
		DeploymentOption:                p.DeploymentOption,
		Status:                          p.Status,
		VCPU:                            p.VCPU.String(),
		MemoryGiB:                       p.MemoryGiB.String(),
		IsServerless:                    p.IsServerless,
		ACUPricePerHour:                 p.ACUPricePerHour,
		MinACU:                          p.MinACU,
		MaxACU:                          p.MaxACU,
		ServerlessMinHourlyCost:         p.ServerlessMinHourlyCost,
		ServerlessMaxHourlyCost:         p.ServerlessMaxHourlyCost,
		ServerlessMinMonthlyCost:        p.ServerlessMinMonthlyCost,
		ServerlessMaxMonthlyCost:        p.ServerlessMaxMonthlyCost,
		OnDemandHourlyRate:              p.OnDemandHourlyRate,
		OnDemandMonthlyEstimate:         p.OnDemandMonthlyEstimate,
		RIHourlyRate:                    p.RIHourlyRate,
		RIMonthlyEstimate:               p.RIMonthlyEstimate,
		SamplePeriodDays:                int32(r.SamplePeriodDays),
		ObservationDays:                 int32(r.ObservationDays),
		UTCHour:                         r.UTCHour,
		PlatformType:                    r.PlatformType,
		AvgCPUUtilization:               r.AvgCPUUtilization,
		MaxCPUUtilization:               r.MaxCPUUtilization,
		P95CPUUtilization:               r.P95CPUUtilization,
		ASV2MigrationPath:               r.ASV2MigrationPath,
		GrowthCapacityFactor:            r.GrowthCapacityFactor,
		VCPUUtilization:                 r.VCPUUtilization,
		ActualEstimateACU:               r.ActualEstimateACU,
		ActualEstimateACUPricePerHour:   r.ActualEstimateACUPricePerHour,
		AdjustedEstimateACU:             r.AdjustedEstimateACU,
		AdjustedEstimateACUPricePerHour: r.AdjustedEstimateACUPricePerHour,
		UsagePattern:                    r.UsagePattern,
		UsagePatternNotes:               r.UsagePatternNotes,
	}
}

// GenerateParquet writes Snappy-compressed Parquet
func GenerateParquet(records []models.HourlyRecord, writer io.Writer) error {
	w := parquet.NewGenericWriter[ParquetRecord](writer, parquet.Compression(&parquet.Snappy))

	rows := make([]ParquetRecord, 0, len(records))
	for i := range records {
		rows = append(rows, ToParquet(&records[i]))
	}
	if _, err := w.Write(rows); err != nil {
		return fmt.Errorf("failed to write parquet rows: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to close parquet writer: %w", err)
	}
	return nil
}

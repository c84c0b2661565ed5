package reporter

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/opscart/rds-metrics-collector/pkg/models"
)

// Columns is the header of the hourly metrics table, in output order
var Columns = []string{
	"exec_timestamp_utc",
	"run_date_local",
	"start_date_utc",
	"end_date_utc",
	"aws_account_id",
	"aws_region",
	"cluster_identifier",
	"dbinstance_identifier",
	"dbinstance_class",
	"engine",
	"engine_version",
	"storage_type",
	"deployment_option",
	"dbinstance_status",
	"vcpu",
	"memory_gib",
	"is_serverless",
	"acu_price_per_hour",
	"min_acu",
	"max_acu",
	"serverless_min_hourly_cost",
	"serverless_max_hourly_cost",
	"serverless_min_monthly_cost",
	"serverless_max_monthly_cost",
	"on_demand_hourly_rate",
	"on_demand_monthly_estimate",
	"ri_1yr_no_upfront_hourly",
	"ri_1yr_no_upfront_monthly",
	"sample_period_days",
	"observation_days",
	"utc_hour",
	"platform_type",
	"avg_cpu_utilization",
	"max_cpu_utilization",
	"p95_cpu_utilization",
	"asv2_migration_path",
	"growth_capacity_factor",
	"vcpu_utilization",
	"actual_estimate_acu",
	"actual_estimate_acu_price_per_hour",
	"adjusted_estimate_acu",
	"adjusted_estimate_acu_price_per_hour",
	"usage_pattern",
	"usage_pattern_notes",
}

// GenerateCSV writes the header and one row per record. Null values are empty cells.
func GenerateCSV(records []models.HourlyRecord, writer io.Writer) error {
	w := csv.NewWriter(writer)

	if err := w.Write(Columns); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for i := range records {
		if err := w.Write(Row(&records[i])); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to flush CSV: %w", err)
	}
	return nil
}

// Row formats one record in Columns order
func Row(r *models.HourlyRecord) []string {
	p := &r.Profile
	return []string{
		r.ExecTimestampUTC,
		r.RunDateLocal,
		r.StartDateUTC,
		r.EndDateUTC,
		r.AccountID,
		r.Region,
		r.ClusterIdentifier,
		r.DBInstanceIdentifier,
		p.InstanceClass,
		p.Engine,
		p.EngineVersion,
		p.StorageType,
		p.DeploymentOption,
		p.Status,
		p.VCPU.String(),
		p.MemoryGiB.String(),
		formatBool(p.IsServerless),
		formatFloat(p.ACUPricePerHour),
		formatOptional(p.MinACU),
		formatOptional(p.MaxACU),
		formatOptional(p.ServerlessMinHourlyCost),
		formatOptional(p.ServerlessMaxHourlyCost),
		formatOptional(p.ServerlessMinMonthlyCost),
		formatOptional(p.ServerlessMaxMonthlyCost),
		formatOptional(p.OnDemandHourlyRate),
		formatOptional(p.OnDemandMonthlyEstimate),
		formatOptional(p.RIHourlyRate),
		formatOptional(p.RIMonthlyEstimate),
		strconv.Itoa(r.SamplePeriodDays),
		strconv.Itoa(r.ObservationDays),
		r.UTCHour,
		r.PlatformType,
		formatOptional(r.AvgCPUUtilization),
		formatOptional(r.MaxCPUUtilization),
		formatOptional(r.P95CPUUtilization),
		r.ASV2MigrationPath,
		formatOptional(r.GrowthCapacityFactor),
		formatOptional(r.VCPUUtilization),
		formatOptional(r.ActualEstimateACU),
		formatOptional(r.ActualEstimateACUPricePerHour),
		formatOptional(r.AdjustedEstimateACU),
		formatOptional(r.AdjustedEstimateACUPricePerHour),
		formatOptionalString(r.UsagePattern),
		r.UsagePatternNotes,
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatOptional(v *float64) string {
	if v == nil {
		return ""
	}
	return formatFloat(*v)
}

func formatOptionalString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

// formatBool matches the True/False spelling downstream loaders expect
func formatBool(v bool) string {
	if v {
		return "True"
	}
	return "False"
}

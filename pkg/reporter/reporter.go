package reporter

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/opscart/rds-metrics-collector/pkg/models"
)

// ReportFormat represents the output format
type ReportFormat string

const (
	FormatCSV     ReportFormat = "csv"
	FormatParquet ReportFormat = "parquet"
	FormatHTML    ReportFormat = "html"
)

// Extension returns the file extension for the format
func (f ReportFormat) Extension() string {
	return "." + string(f)
}

// ParseFormat validates a format name
func ParseFormat(name string) (ReportFormat, error) {
	switch f := ReportFormat(name); f {
	case FormatCSV, FormatParquet, FormatHTML:
		return f, nil
	}
	return "", fmt.Errorf("unsupported output format %q", name)
}

// Report contains all data for generating reports
type Report struct {
	RunID            string
	Target           string
	Region           string
	AccountID        string
	SamplePeriodDays int
	GeneratedAt      time.Time
	Records          []models.HourlyRecord
	Instances        []InstanceSummary
	Skipped          []models.UnitResult

	Clusters            int
	AuroraInstances     int
	RDSInstances        int
	ServerlessInstances int
	PlatformStats       map[string]*PlatformStats
	PatternCounts       map[string]int
}

// InstanceSummary condenses the 24 hourly rows of one instance
type InstanceSummary struct {
	ClusterIdentifier  string
	InstanceIdentifier string
	InstanceClass      string
	DeploymentOption   string
	PlatformType       string
	IsServerless       bool
	UsagePattern       string
	ObservedHours      int
	OnDemandMonthly    *float64
	PeakP95CPU         *float64
	PeakAdjustedACU    *float64
}

// PlatformStats holds statistics per platform (Aurora or RDS)
type PlatformStats struct {
	Platform        string
	Instances       int
	Serverless      int
	OnDemandMonthly float64
}

// Reporter turns hourly records into output artifacts
type Reporter struct {
	format ReportFormat
}

// New creates a new reporter
func New(format ReportFormat) *Reporter {
	return &Reporter{
		format: format,
	}
}

func (r *Reporter) Format() ReportFormat {
	return r.format
}

// Generate builds the report for one run
func (r *Reporter) Generate(records []models.HourlyRecord, run *models.RunReport, rc models.RunContext) *Report {
	report := &Report{
		Region:           rc.Region,
		AccountID:        rc.AccountID,
		SamplePeriodDays: rc.SamplePeriodDays,
		GeneratedAt:      time.Now(),
		Records:          records,
		PlatformStats:    make(map[string]*PlatformStats),
		PatternCounts:    make(map[string]int),
	}
	if run != nil {
		report.RunID = run.RunID
		report.Target = run.Target
		report.Skipped = run.Skipped()
	}

	r.calculateStats(report)
	return report
}

// Write renders the report in the reporter's format
func (r *Reporter) Write(report *Report, w io.Writer) error {
	switch r.format {
	case FormatCSV:
		return GenerateCSV(report.Records, w)
	case FormatParquet:
		return GenerateParquet(report.Records, w)
	case FormatHTML:
		return GenerateHTML(report, w)
	}
	return fmt.Errorf("unsupported output format %q", r.format)
}

// calculateStats computes all statistics for the report
func (r *Reporter) calculateStats(report *Report) {
	clusters := make(map[string]bool)
	byInstance := make(map[string]*InstanceSummary)
	var order []string

	for i := range report.Records {
		rec := &report.Records[i]
		clusters[rec.ClusterIdentifier] = true

		s, exists := byInstance[rec.DBInstanceIdentifier]
		if !exists {
			s = &InstanceSummary{
				ClusterIdentifier:  rec.ClusterIdentifier,
				InstanceIdentifier: rec.DBInstanceIdentifier,
				InstanceClass:      rec.Profile.InstanceClass,
				DeploymentOption:   rec.Profile.DeploymentOption,
				PlatformType:       rec.PlatformType,
				IsServerless:       rec.Profile.IsServerless,
				OnDemandMonthly:    rec.Profile.OnDemandMonthlyEstimate,
			}
			if rec.UsagePattern != nil {
				s.UsagePattern = *rec.UsagePattern
			}
			byInstance[rec.DBInstanceIdentifier] = s
			order = append(order, rec.DBInstanceIdentifier)
		}
		if rec.ObservationDays > 0 {
			s.ObservedHours++
		}
		s.PeakP95CPU = maxOf(s.PeakP95CPU, rec.P95CPUUtilization)
		s.PeakAdjustedACU = maxOf(s.PeakAdjustedACU, rec.AdjustedEstimateACU)
	}

	for _, id := range order {
		s := byInstance[id]
		report.Instances = append(report.Instances, *s)

		switch s.PlatformType {
		case models.PlatformAurora:
			report.AuroraInstances++
		default:
			report.RDSInstances++
		}
		if s.IsServerless {
			report.ServerlessInstances++
		}
		if s.UsagePattern != "" {
			report.PatternCounts[s.UsagePattern]++
		}

		stat, exists := report.PlatformStats[s.PlatformType]
		if !exists {
			stat = &PlatformStats{Platform: s.PlatformType}
			report.PlatformStats[s.PlatformType] = stat
		}
		stat.Instances++
		if s.IsServerless {
			stat.Serverless++
		}
		if s.OnDemandMonthly != nil {
			stat.OnDemandMonthly += *s.OnDemandMonthly
		}
	}
	report.Clusters = len(clusters)
}

// SortedPlatformStats returns platform stats ordered by name
func (r *Report) SortedPlatformStats() []*PlatformStats {
	out := make([]*PlatformStats, 0, len(r.PlatformStats))
	for _, s := range r.PlatformStats {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Platform < out[j].Platform })
	return out
}

// Summary returns the stored form of the report
func (r *Report) Summary() models.RunSummary {
	return models.RunSummary{
		RunID:               r.RunID,
		Target:              r.Target,
		Region:              r.Region,
		AccountID:           r.AccountID,
		SamplePeriodDays:    r.SamplePeriodDays,
		Clusters:            r.Clusters,
		AuroraInstances:     r.AuroraInstances,
		RDSInstances:        r.RDSInstances,
		ServerlessInstances: r.ServerlessInstances,
		SkippedUnits:        len(r.Skipped),
		Records:             len(r.Records),
		CreatedAt:           r.GeneratedAt,
	}
}

func maxOf(current, candidate *float64) *float64 {
	if candidate == nil {
		return current
	}
	if current == nil || *candidate > *current {
		v := *candidate
		return &v
	}
	return current
}

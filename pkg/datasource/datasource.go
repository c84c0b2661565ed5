package datasource

import (
	"context"
	"sort"
	"time"
)

// CPU metric coordinates
const (
	Namespace         = "AWS/RDS"
	CPUMetric         = "CPUUtilization"
	InstanceDimension = "DBInstanceIdentifier"
	PeriodSeconds     = 3600
	P95Statistic      = "p95"
)

// Datapoint is one statistics bucket. Only the requested statistics are set.
type Datapoint struct {
	Timestamp time.Time
	Average   *float64
	Maximum   *float64
	P95       *float64
}

// StatisticsSource fetches hourly CPU statistics for one instance.
// Standard and extended statistics are independent calls.
type StatisticsSource interface {
	GetHourlyStatistics(ctx context.Context, instanceID string, start, end time.Time) ([]Datapoint, error)
	GetHourlyExtendedStatistics(ctx context.Context, instanceID string, start, end time.Time) ([]Datapoint, error)
}

// MergedDatapoint carries all three statistics for one timestamp
type MergedDatapoint struct {
	Timestamp time.Time
	Average   float64
	Maximum   float64
	P95       float64
}

// MergeDatapoints joins standard and extended datapoints on timestamp.
// A timestamp missing from either side, or missing a statistic, is dropped.
func MergeDatapoints(standard, extended []Datapoint) []MergedDatapoint {
	p95ByTime := make(map[int64]float64, len(extended))
	for _, dp := range extended {
		if dp.P95 == nil {
			continue
		}
		p95ByTime[dp.Timestamp.UnixNano()] = *dp.P95
	}

	var merged []MergedDatapoint
	for _, dp := range standard {
		if dp.Average == nil || dp.Maximum == nil {
			continue
		}
		p95, ok := p95ByTime[dp.Timestamp.UnixNano()]
		if !ok {
			continue
		}
		merged = append(merged, MergedDatapoint{
			Timestamp: dp.Timestamp,
			Average:   *dp.Average,
			Maximum:   *dp.Maximum,
			P95:       p95,
		})
	}

	sort.Slice(merged, func(i, j int) bool {
		return merged[i].Timestamp.Before(merged[j].Timestamp)
	})
	return merged
}

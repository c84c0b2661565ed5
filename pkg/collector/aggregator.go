package collector

import (
	"context"
	"fmt"
	"time"

	"github.com/opscart/rds-metrics-collector/pkg/analyzer"
	"github.com/opscart/rds-metrics-collector/pkg/datasource"
	"github.com/opscart/rds-metrics-collector/pkg/models"
	"github.com/opscart/rds-metrics-collector/pkg/recommender"
	"go.uber.org/zap"
)

// HoursPerDay is the number of hour-of-day buckets produced per instance
const HoursPerDay = 24

// utcHourLayout renders an hour-of-day as 03:00:00 PM
const utcHourLayout = "03:00:00 PM"

// Classifier labels the workload shape of one instance; *analyzer.PatternClassifier satisfies it
type Classifier interface {
	Classify(samples []models.RawSample) analyzer.PatternResult
}

// Aggregator folds the sampling window into 24 hour-of-day records per instance
type Aggregator struct {
	source     datasource.StatisticsSource
	classifier Classifier
	run        models.RunContext
	logger     *zap.Logger
}

// NewAggregator creates an aggregator. A nil classifier leaves the usage pattern columns empty.
func NewAggregator(source datasource.StatisticsSource, classifier Classifier, run models.RunContext, logger *zap.Logger) *Aggregator {
	return &Aggregator{
		source:     source,
		classifier: classifier,
		run:        run,
		logger:     logger.Named("aggregator"),
	}
}

// hourBucket accumulates merged datapoints for one hour-of-day
type hourBucket struct {
	points []datasource.MergedDatapoint
}

func (b hourBucket) aggregate() (avgCPU, maxCPU, p95CPU *float64) {
	if len(b.points) == 0 {
		return nil, nil, nil
	}
	var sumAvg, sumP95 float64
	peak := b.points[0].Maximum
	for _, dp := range b.points {
		sumAvg += dp.Average
		sumP95 += dp.P95
		if dp.Maximum > peak {
			peak = dp.Maximum
		}
	}
	n := float64(len(b.points))
	a := recommender.Round(sumAvg/n, 2)
	m := recommender.Round(peak, 2)
	p := recommender.Round(sumP95/n, 2)
	return &a, &m, &p
}

// Aggregate always returns HoursPerDay records unless a statistics call fails.
// clusterID defaults to the instance identifier.
func (a *Aggregator) Aggregate(ctx context.Context, instanceID string, profile models.InstanceProfile, clusterID string) ([]models.HourlyRecord, error) {
	if clusterID == "" {
		clusterID = instanceID
	}
	log := a.logger.With(zap.String("instance", instanceID), zap.String("cluster", clusterID))
	log.Debug("collecting hourly metrics",
		zap.Time("start", a.run.WindowStart),
		zap.Time("end", a.run.WindowEnd),
		zap.Int("days", a.run.SamplePeriodDays))

	var buckets [HoursPerDay]hourBucket
	var samples []models.RawSample

	for hour := 0; hour < HoursPerDay; hour++ {
		for day := 0; day < a.run.SamplePeriodDays; day++ {
			start := a.hourWindow(day, hour)
			end := start.Add(time.Hour)

			standard, err := a.source.GetHourlyStatistics(ctx, instanceID, start, end)
			if err != nil {
				return nil, fmt.Errorf("hour %02d day %d: %w", hour, day, err)
			}
			extended, err := a.source.GetHourlyExtendedStatistics(ctx, instanceID, start, end)
			if err != nil {
				return nil, fmt.Errorf("hour %02d day %d: %w", hour, day, err)
			}

			for _, dp := range datasource.MergeDatapoints(standard, extended) {
				buckets[hour].points = append(buckets[hour].points, dp)
				ts := dp.Timestamp.UTC()
				samples = append(samples, models.RawSample{
					Timestamp:            ts,
					DayOfWeek:            ts.Weekday().String(),
					Hour:                 ts.Hour(),
					AvgCPU:               dp.Average,
					MaxCPU:               dp.Maximum,
					P95CPU:               dp.P95,
					DBInstanceIdentifier: instanceID,
					ClusterIdentifier:    clusterID,
				})
			}
		}
		log.Debug("hour collected", zap.Int("hour", hour), zap.Int("datapoints", len(buckets[hour].points)))
	}

	records := make([]models.HourlyRecord, 0, HoursPerDay)
	for hour := 0; hour < HoursPerDay; hour++ {
		avgCPU, maxCPU, p95CPU := buckets[hour].aggregate()
		records = append(records, models.HourlyRecord{
			ExecTimestampUTC:     a.run.ExecTimestampUTC(),
			RunDateLocal:         a.run.RunDate,
			StartDateUTC:         a.run.StartDateUTC(),
			EndDateUTC:           a.run.EndDateUTC(),
			AccountID:            a.run.AccountID,
			Region:               a.run.Region,
			ClusterIdentifier:    clusterID,
			DBInstanceIdentifier: instanceID,
			Profile:              profile,
			SamplePeriodDays:     a.run.SamplePeriodDays,
			ObservationDays:      len(buckets[hour].points),
			Hour:                 hour,
			UTCHour:              FormatUTCHour(hour),
			PlatformType:         profile.PlatformType(),
			AvgCPUUtilization:    avgCPU,
			MaxCPUUtilization:    maxCPU,
			P95CPUUtilization:    p95CPU,
			MigrationFields:      recommender.Estimate(profile, p95CPU, maxCPU),
		})
	}

	if a.classifier != nil {
		result := a.classifier.Classify(samples)
		for i := range records {
			pattern := result.Pattern
			records[i].UsagePattern = &pattern
			records[i].UsagePatternNotes = result.Notes
		}
		log.Debug("usage pattern", zap.String("pattern", result.Pattern), zap.Int("samples", len(samples)))
	}
	return records, nil
}

// hourWindow is the start of hour-of-day hour on sampling day day
func (a *Aggregator) hourWindow(day, hour int) time.Time {
	d := a.run.WindowStart.UTC().AddDate(0, 0, day)
	return time.Date(d.Year(), d.Month(), d.Day(), hour, 0, 0, 0, time.UTC)
}

// FormatUTCHour renders hour-of-day in 12-hour form, e.g. 15 -> "03:00:00 PM"
func FormatUTCHour(hour int) string {
	return time.Date(2000, 1, 1, hour, 0, 0, 0, time.UTC).Format(utcHourLayout)
}

package analyzer

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/opscart/rds-metrics-collector/pkg/models"
	"go.uber.org/zap"
)

// PatternClassifier labels the workload shape of one instance from its raw samples
type PatternClassifier struct {
	thresholds Thresholds
	logger     *zap.Logger
}

// NewPatternClassifier creates a rule-based classifier
func NewPatternClassifier(thresholds Thresholds, logger *zap.Logger) *PatternClassifier {
	return &PatternClassifier{
		thresholds: thresholds,
		logger:     logger.Named("pattern"),
	}
}

// Classify never fails: empty or malformed input yields Unknown with an explanatory note.
// Rules are evaluated in order: Outliers, Consistent, Peaks and Valleys, Random.
func (c *PatternClassifier) Classify(samples []models.RawSample) PatternResult {
	if len(samples) == 0 {
		return PatternResult{Pattern: PatternUnknown, Notes: InsufficientDataNote}
	}

	result, err := c.classify(samples)
	if err != nil {
		c.logger.Error("usage pattern classification failed",
			zap.String("instance", samples[0].DBInstanceIdentifier),
			zap.Error(err))
		return PatternResult{Pattern: PatternUnknown, Notes: InsufficientDataNote}
	}
	return result
}

func (c *PatternClassifier) classify(samples []models.RawSample) (PatternResult, error) {
	avgValues := make([]float64, len(samples))
	p95Values := make([]float64, len(samples))
	for i, s := range samples {
		if !finite(s.AvgCPU) || !finite(s.P95CPU) || !finite(s.MaxCPU) {
			return PatternResult{}, fmt.Errorf("non-finite CPU value at %s", s.Timestamp)
		}
		if s.Hour < 0 || s.Hour > 23 {
			return PatternResult{}, fmt.Errorf("hour %d out of range", s.Hour)
		}
		avgValues[i] = s.AvgCPU
		p95Values[i] = s.P95CPU
	}

	avgCPU := calculateAverage(avgValues)
	p95CPU := calculateAverage(p95Values)
	_, maxCPU := minMax(avgValues)
	stdDev := sampleStdDev(avgValues)

	outliers, err := c.findOutliers(samples, p95Values)
	if err != nil {
		return PatternResult{}, err
	}

	th := c.thresholds
	if outliers != nil && float64(outliers.count) > float64(len(samples))*th.OutlierFraction {
		var b strings.Builder
		fmt.Fprintf(&b, "Detected %d significant spikes", outliers.count)
		if len(outliers.hourRanges) > 0 {
			fmt.Fprintf(&b, " primarily during %s", strings.Join(outliers.hourRanges, ", "))
		}
		if outliers.commonDay != "" {
			fmt.Fprintf(&b, ", most frequently on %ss (%d occurrences)", outliers.commonDay, outliers.dayCount)
		}
		fmt.Fprintf(&b, ". Max CPU reached %.1f%% vs average %.1f%%. P95 CPU is %.1f%%.", maxCPU, avgCPU, p95CPU)
		return PatternResult{Pattern: PatternOutliers, Notes: b.String()}, nil
	}

	if stdDev < th.ConsistentStdDev {
		return PatternResult{
			Pattern: PatternConsistent,
			Notes: fmt.Sprintf("Very stable usage with average CPU %.1f%%. Standard deviation %.1f%% indicates minimal variation. P95 CPU remains steady at %.1f%%.",
				avgCPU, stdDev, p95CPU),
		}, nil
	}

	daily := dailyAverages(samples)
	weekdayAvg := meanOfDays(daily, weekdays)
	weekendAvg := meanOfDays(daily, weekendDays)

	if weekdayAvg > 0 && weekendAvg > 0 && weekdayAvg/weekendAvg > th.PeakRatio {
		business, outside := c.businessHourAverages(samples)
		return PatternResult{
			Pattern: PatternPeaksAndValleys,
			Notes: fmt.Sprintf("Clear business hours pattern with %.1f%% CPU during business hours vs %.1f%% outside. Weekday utilization %.1f%% vs weekend %.1f%%.",
				business, outside, weekdayAvg, weekendAvg),
		}, nil
	}

	dailyValues := make([]float64, 0, len(daily))
	for _, v := range daily {
		dailyValues = append(dailyValues, v)
	}
	lo, hi := minMax(dailyValues)

	return PatternResult{
		Pattern: PatternRandom,
		Notes: fmt.Sprintf("No clear pattern detected. Average CPU %.1f%% with standard deviation %.1f%%. CPU varies between %.1f%% and %.1f%% with P95 at %.1f%%.",
			avgCPU, stdDev, lo, hi, p95CPU),
	}, nil
}

// findOutliers applies the upper IQR fence to P95 CPU
func (c *PatternClassifier) findOutliers(samples []models.RawSample, p95Values []float64) (*outlierSummary, error) {
	q1, err := Quantile(p95Values, 0.25)
	if err != nil {
		return nil, err
	}
	q3, err := Quantile(p95Values, 0.75)
	if err != nil {
		return nil, err
	}
	fence := q3 + c.thresholds.IQRMultiplier*(q3-q1)

	var hourCounts [24]int
	dayCounts := make(map[string]int)
	count := 0
	for _, s := range samples {
		if s.P95CPU > fence {
			count++
			hourCounts[s.Hour]++
			dayCounts[s.DayOfWeek]++
		}
	}
	if count == 0 {
		return nil, nil
	}

	summary := &outlierSummary{count: count, hourRanges: hourRanges(hourCounts)}

	days := make([]string, 0, len(dayCounts))
	for day := range dayCounts {
		days = append(days, day)
	}
	sort.Strings(days)
	for _, day := range days {
		if dayCounts[day] > summary.dayCount {
			summary.commonDay = day
			summary.dayCount = dayCounts[day]
		}
	}

	return summary, nil
}

// hourRanges groups consecutive hours with outliers into "HH:00-HH:00" or "HH:00"
func hourRanges(counts [24]int) []string {
	var ranges []string
	start := -1

	flush := func(end int) {
		if start < 0 {
			return
		}
		if end > start {
			ranges = append(ranges, fmt.Sprintf("%02d:00-%02d:00", start, end))
		} else {
			ranges = append(ranges, fmt.Sprintf("%02d:00", start))
		}
		start = -1
	}

	for hour := 0; hour < 24; hour++ {
		if counts[hour] > 0 {
			if start < 0 {
				start = hour
			}
			continue
		}
		flush(hour - 1)
	}
	flush(23)

	return ranges
}

// dailyAverages is the mean avg CPU per day-of-week name
func dailyAverages(samples []models.RawSample) map[string]float64 {
	sums := make(map[string]float64)
	counts := make(map[string]int)
	for _, s := range samples {
		sums[s.DayOfWeek] += s.AvgCPU
		counts[s.DayOfWeek]++
	}

	out := make(map[string]float64, len(sums))
	for day, sum := range sums {
		out[day] = sum / float64(counts[day])
	}
	return out
}

// meanOfDays averages the days present in daily; missing days are excluded, not zero
func meanOfDays(daily map[string]float64, days []string) float64 {
	var values []float64
	for _, day := range days {
		if v, ok := daily[day]; ok {
			values = append(values, v)
		}
	}
	return calculateAverage(values)
}

func (c *PatternClassifier) businessHourAverages(samples []models.RawSample) (float64, float64) {
	var business, outside []float64
	for _, s := range samples {
		if s.Hour >= c.thresholds.BusinessHourStart && s.Hour <= c.thresholds.BusinessHourEnd {
			business = append(business, s.AvgCPU)
		} else {
			outside = append(outside, s.AvgCPU)
		}
	}
	return calculateAverage(business), calculateAverage(outside)
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

package collector

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/opscart/rds-metrics-collector/pkg/analyzer"
	"github.com/opscart/rds-metrics-collector/pkg/datasource"
	"github.com/opscart/rds-metrics-collector/pkg/inventory"
	"github.com/opscart/rds-metrics-collector/pkg/models"
)

type fakeDescriber struct {
	clusters     []models.DBCluster
	instances    []models.DBInstance
	errs         map[string]error
	listErr      error
	instanceHits map[string]int
}

func (f *fakeDescriber) DescribeInstance(ctx context.Context, id string) (*models.DBInstance, error) {
	if f.instanceHits == nil {
		f.instanceHits = make(map[string]int)
	}
	f.instanceHits[id]++
	if err := f.errs[id]; err != nil {
		return nil, err
	}
	for i := range f.instances {
		if f.instances[i].Identifier == id {
			inst := f.instances[i]
			return &inst, nil
		}
	}
	return nil, fmt.Errorf("describe instance %s: %w", id, inventory.ErrNotFound)
}

func (f *fakeDescriber) DescribeCluster(ctx context.Context, id string) (*models.DBCluster, error) {
	if err := f.errs["cluster/"+id]; err != nil {
		return nil, err
	}
	for i := range f.clusters {
		if f.clusters[i].Identifier == id {
			c := f.clusters[i]
			return &c, nil
		}
	}
	return nil, fmt.Errorf("describe cluster %s: %w", id, inventory.ErrNotFound)
}

func (f *fakeDescriber) ListClusters(ctx context.Context) ([]models.DBCluster, error) {
	return f.clusters, f.listErr
}

func (f *fakeDescriber) ListInstances(ctx context.Context) ([]models.DBInstance, error) {
	return f.instances, nil
}

// fakeSource serves one datapoint per requested hour window.
// cpu returns ok=false to leave a window empty.
type fakeSource struct {
	cpu       func(instanceID string, start time.Time) (avg, peak, p95 float64, ok bool)
	shiftP95  func(start time.Time) bool
	errs      map[string]error
	calls     map[string]int
	firstCall time.Time
}

func (f *fakeSource) record(instanceID string, start time.Time) error {
	if f.calls == nil {
		f.calls = make(map[string]int)
	}
	if f.firstCall.IsZero() {
		f.firstCall = start
	}
	f.calls[instanceID]++
	return f.errs[instanceID]
}

func (f *fakeSource) GetHourlyStatistics(ctx context.Context, instanceID string, start, end time.Time) ([]datasource.Datapoint, error) {
	if err := f.record(instanceID, start); err != nil {
		return nil, err
	}
	avg, peak, _, ok := f.cpu(instanceID, start)
	if !ok {
		return nil, nil
	}
	return []datasource.Datapoint{{Timestamp: start, Average: aws.Float64(avg), Maximum: aws.Float64(peak)}}, nil
}

func (f *fakeSource) GetHourlyExtendedStatistics(ctx context.Context, instanceID string, start, end time.Time) ([]datasource.Datapoint, error) {
	if err := f.record(instanceID, start); err != nil {
		return nil, err
	}
	_, _, p95, ok := f.cpu(instanceID, start)
	if !ok {
		return nil, nil
	}
	ts := start
	if f.shiftP95 != nil && f.shiftP95(start) {
		ts = start.Add(time.Minute)
	}
	return []datasource.Datapoint{{Timestamp: ts, P95: aws.Float64(p95)}}, nil
}

// flatCPU reports avg=hour, max=2*hour, p95=hour+1 for every window
func flatCPU(instanceID string, start time.Time) (float64, float64, float64, bool) {
	h := float64(start.Hour())
	return h, 2 * h, h + 1, true
}

type fakePrices struct {
	onDemand *float64
	reserved *float64
	queries  []models.PriceQuery
}

func (f *fakePrices) OnDemand(ctx context.Context, q models.PriceQuery) *float64 {
	f.queries = append(f.queries, q)
	return f.onDemand
}

func (f *fakePrices) Reserved1yrNoUpfront(ctx context.Context, q models.PriceQuery) *float64 {
	return f.reserved
}

type countingClassifier struct {
	calls   int
	samples int
}

func (c *countingClassifier) Classify(samples []models.RawSample) analyzer.PatternResult {
	c.calls++
	c.samples = len(samples)
	return analyzer.PatternResult{Pattern: analyzer.PatternConsistent, Notes: "steady"}
}

type recordingObserver struct {
	collected map[string]int
	skipped   map[string]int
}

func newRecordingObserver() *recordingObserver {
	return &recordingObserver{collected: map[string]int{}, skipped: map[string]int{}}
}

func (o *recordingObserver) UnitCollected(platform string, records int) {
	o.collected[platform] += records
}

func (o *recordingObserver) UnitSkipped(stage string) {
	o.skipped[stage]++
}

var testNow = time.Date(2024, 3, 10, 15, 42, 0, 0, time.UTC)

func testRun(days int) models.RunContext {
	return models.NewRunContext("us-east-1", "123456789012", days, testNow).WithACUPrices(0.12, 0.156)
}

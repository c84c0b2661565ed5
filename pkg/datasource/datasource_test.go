package datasource

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)

func TestMergeDatapointsRequiresBothSides(t *testing.T) {
	standard := []Datapoint{
		{Timestamp: t0, Average: aws.Float64(20), Maximum: aws.Float64(40)},
		{Timestamp: t0.Add(time.Hour), Average: aws.Float64(30), Maximum: aws.Float64(50)},
	}
	extended := []Datapoint{
		{Timestamp: t0, P95: aws.Float64(35)},
		{Timestamp: t0.Add(2 * time.Hour), P95: aws.Float64(99)},
	}

	merged := MergeDatapoints(standard, extended)

	require.Len(t, merged, 1)
	assert.Equal(t, MergedDatapoint{Timestamp: t0, Average: 20, Maximum: 40, P95: 35}, merged[0])
}

func TestMergeDatapointsDropsIncompleteStatistics(t *testing.T) {
	standard := []Datapoint{
		{Timestamp: t0, Average: aws.Float64(20)},
		{Timestamp: t0.Add(time.Hour), Average: aws.Float64(30), Maximum: aws.Float64(50)},
	}
	extended := []Datapoint{
		{Timestamp: t0, P95: aws.Float64(35)},
		{Timestamp: t0.Add(time.Hour)},
	}

	assert.Empty(t, MergeDatapoints(standard, extended))
	assert.Empty(t, MergeDatapoints(nil, extended))
}

func TestMergeDatapointsSortsByTime(t *testing.T) {
	standard := []Datapoint{
		{Timestamp: t0.Add(time.Hour), Average: aws.Float64(2), Maximum: aws.Float64(2)},
		{Timestamp: t0, Average: aws.Float64(1), Maximum: aws.Float64(1)},
	}
	extended := []Datapoint{
		{Timestamp: t0, P95: aws.Float64(1)},
		{Timestamp: t0.Add(time.Hour), P95: aws.Float64(2)},
	}

	merged := MergeDatapoints(standard, extended)

	require.Len(t, merged, 2)
	assert.True(t, merged[0].Timestamp.Equal(t0))
}

type fakeCloudWatch struct {
	inputs []*cloudwatch.GetMetricStatisticsInput
	out    *cloudwatch.GetMetricStatisticsOutput
	err    error
}

func (f *fakeCloudWatch) GetMetricStatistics(ctx context.Context, params *cloudwatch.GetMetricStatisticsInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.GetMetricStatisticsOutput, error) {
	f.inputs = append(f.inputs, params)
	return f.out, f.err
}

func TestCloudWatchStandardStatistics(t *testing.T) {
	client := &fakeCloudWatch{out: &cloudwatch.GetMetricStatisticsOutput{
		Datapoints: []types.Datapoint{
			{Timestamp: aws.Time(t0), Average: aws.Float64(12.5), Maximum: aws.Float64(70)},
			{Average: aws.Float64(1)},
		},
	}}
	src := NewCloudWatchSource(client)

	points, err := src.GetHourlyStatistics(context.Background(), "db-1", t0, t0.Add(time.Hour))

	require.NoError(t, err)
	require.Len(t, points, 1)
	assert.Equal(t, 12.5, *points[0].Average)
	assert.Nil(t, points[0].P95)

	in := client.inputs[0]
	assert.Equal(t, "AWS/RDS", aws.ToString(in.Namespace))
	assert.Equal(t, "CPUUtilization", aws.ToString(in.MetricName))
	assert.Equal(t, int32(3600), aws.ToInt32(in.Period))
	assert.Equal(t, []types.Statistic{types.StatisticAverage, types.StatisticMaximum}, in.Statistics)
	assert.Empty(t, in.ExtendedStatistics)
	require.Len(t, in.Dimensions, 1)
	assert.Equal(t, "DBInstanceIdentifier", aws.ToString(in.Dimensions[0].Name))
	assert.Equal(t, "db-1", aws.ToString(in.Dimensions[0].Value))
}

func TestCloudWatchExtendedStatistics(t *testing.T) {
	client := &fakeCloudWatch{out: &cloudwatch.GetMetricStatisticsOutput{
		Datapoints: []types.Datapoint{
			{Timestamp: aws.Time(t0), ExtendedStatistics: map[string]float64{"p95": 44}},
			{Timestamp: aws.Time(t0.Add(time.Hour))},
		},
	}}
	src := NewCloudWatchSource(client)

	points, err := src.GetHourlyExtendedStatistics(context.Background(), "db-1", t0, t0.Add(time.Hour))

	require.NoError(t, err)
	require.Len(t, points, 2)
	assert.Equal(t, 44.0, *points[0].P95)
	assert.Nil(t, points[1].P95)
	assert.Equal(t, []string{"p95"}, client.inputs[0].ExtendedStatistics)
	assert.Empty(t, client.inputs[0].Statistics)
}

func TestCloudWatchErrorIsWrapped(t *testing.T) {
	cause := errors.New("throttling")
	src := NewCloudWatchSource(&fakeCloudWatch{err: cause})

	_, err := src.GetHourlyStatistics(context.Background(), "db-1", t0, t0.Add(time.Hour))

	assert.ErrorIs(t, err, cause)
}

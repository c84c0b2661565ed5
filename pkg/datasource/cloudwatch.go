package datasource

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
)

// MetricStatisticsAPI is the part of the CloudWatch client used here
type MetricStatisticsAPI interface {
	GetMetricStatistics(ctx context.Context, params *cloudwatch.GetMetricStatisticsInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.GetMetricStatisticsOutput, error)
}

// CloudWatchSource reads RDS CPU statistics from CloudWatch
type CloudWatchSource struct {
	client MetricStatisticsAPI
}

func NewCloudWatchSource(client MetricStatisticsAPI) *CloudWatchSource {
	return &CloudWatchSource{client: client}
}

// NewCloudWatchSourceFromConfig creates the CloudWatch client from an AWS config
func NewCloudWatchSourceFromConfig(cfg aws.Config) *CloudWatchSource {
	return NewCloudWatchSource(cloudwatch.NewFromConfig(cfg))
}

// GetHourlyStatistics returns Average and Maximum datapoints
func (c *CloudWatchSource) GetHourlyStatistics(ctx context.Context, instanceID string, start, end time.Time) ([]Datapoint, error) {
	input := c.input(instanceID, start, end)
	input.Statistics = []types.Statistic{types.StatisticAverage, types.StatisticMaximum}

	out, err := c.client.GetMetricStatistics(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to get statistics for %s: %w", instanceID, err)
	}

	points := make([]Datapoint, 0, len(out.Datapoints))
	for _, dp := range out.Datapoints {
		if dp.Timestamp == nil {
			continue
		}
		points = append(points, Datapoint{
			Timestamp: *dp.Timestamp,
			Average:   dp.Average,
			Maximum:   dp.Maximum,
		})
	}
	return points, nil
}

// GetHourlyExtendedStatistics returns p95 datapoints
func (c *CloudWatchSource) GetHourlyExtendedStatistics(ctx context.Context, instanceID string, start, end time.Time) ([]Datapoint, error) {
	input := c.input(instanceID, start, end)
	input.ExtendedStatistics = []string{P95Statistic}

	out, err := c.client.GetMetricStatistics(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to get extended statistics for %s: %w", instanceID, err)
	}

	points := make([]Datapoint, 0, len(out.Datapoints))
	for _, dp := range out.Datapoints {
		if dp.Timestamp == nil {
			continue
		}
		point := Datapoint{Timestamp: *dp.Timestamp}
		if v, ok := dp.ExtendedStatistics[P95Statistic]; ok {
			point.P95 = aws.Float64(v)
		}
		points = append(points, point)
	}
	return points, nil
}

func (c *CloudWatchSource) input(instanceID string, start, end time.Time) *cloudwatch.GetMetricStatisticsInput {
	return &cloudwatch.GetMetricStatisticsInput{
		Namespace:  aws.String(Namespace),
		MetricName: aws.String(CPUMetric),
		Dimensions: []types.Dimension{
			{
				Name:  aws.String(InstanceDimension),
				Value: aws.String(instanceID),
			},
		},
		StartTime: aws.Time(start),
		EndTime:   aws.Time(end),
		Period:    aws.Int32(PeriodSeconds),
	}
}

package pricing

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awspricing "github.com/aws/aws-sdk-go-v2/service/pricing"
	"github.com/aws/aws-sdk-go-v2/service/pricing/types"
)

const (
	// PriceListRegion hosts the Price List API endpoint
	PriceListRegion = "us-east-1"
	rdsServiceCode  = "AmazonRDS"
)

// AWSPriceList queries the AWS Price List API for Amazon RDS products
type AWSPriceList struct {
	client awspricing.GetProductsAPIClient
}

func NewAWSPriceList(client awspricing.GetProductsAPIClient) *AWSPriceList {
	return &AWSPriceList{client: client}
}

// NewAWSPriceListFromConfig builds the client against the Price List endpoint region
func NewAWSPriceListFromConfig(cfg aws.Config) *AWSPriceList {
	return NewAWSPriceList(awspricing.NewFromConfig(cfg, func(o *awspricing.Options) {
		o.Region = PriceListRegion
	}))
}

// Products pages through every matching product document
func (a *AWSPriceList) Products(ctx context.Context, filters []Filter) ([]PriceListItem, error) {
	input := &awspricing.GetProductsInput{
		ServiceCode:   aws.String(rdsServiceCode),
		FormatVersion: aws.String("aws_v1"),
	}
	for _, f := range filters {
		input.Filters = append(input.Filters, types.Filter{
			Type:  types.FilterTypeTermMatch,
			Field: aws.String(f.Field),
			Value: aws.String(f.Value),
		})
	}

	var items []PriceListItem
	paginator := awspricing.NewGetProductsPaginator(a.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to get products: %w", err)
		}
		for _, doc := range page.PriceList {
			item, err := ParsePriceListItem(doc)
			if err != nil {
				return nil, err
			}
			items = append(items, item)
		}
	}

	return items, nil
}

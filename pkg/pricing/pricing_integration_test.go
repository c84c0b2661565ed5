//go:build integration
// +build integration

package pricing

import (
	"context"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/opscart/rds-metrics-collector/pkg/models"
	"go.uber.org/zap"
)

// These tests make REAL Price List API calls with ambient AWS credentials
// Run with: go test -tags=integration ./pkg/pricing -v

func TestAWSPriceListRealAPI(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		t.Fatalf("Failed to load AWS config: %v", err)
	}

	r := NewResolver(NewAWSPriceListFromConfig(cfg), nil, "us-east-1", time.Hour, zap.NewNop())

	price := r.OnDemand(ctx, models.PriceQuery{
		InstanceClass:    "db.r6g.large",
		EngineType:       models.EngineTypeAurora,
		StorageType:      models.StorageStandard,
		DeploymentOption: models.DeploymentSingleAZ,
	})
	if price == nil || *price <= 0 {
		t.Fatalf("Expected a positive on-demand price, got %v", price)
	}
	t.Logf("db.r6g.large Aurora PostgreSQL on-demand: $%.4f/hr", *price)

	acu := r.ACUPrice(ctx, models.StorageStandard)
	if acu <= 0 {
		t.Errorf("Expected a positive ACU price, got %v", acu)
	}
	t.Logf("ACU price: $%.4f/ACU-hr", acu)
}

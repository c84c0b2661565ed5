package main

import (
	"fmt"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/opscart/rds-metrics-collector/pkg/awsclient"
	"github.com/opscart/rds-metrics-collector/pkg/models"
	"github.com/opscart/rds-metrics-collector/pkg/pricing"
	"github.com/opscart/rds-metrics-collector/pkg/recommender"
)

var (
	instanceClass    string
	engine           string
	storageType      string
	deploymentOption string
	region           string
	fallbackPath     string
	centralAccountID string
	verbose          bool
)

func main() {
	var rootCmd = &cobra.Command{
		Use:          "price-lookup",
		Short:        "Resolve RDS and Aurora PostgreSQL prices the way the collector does",
		SilenceUsage: true,
		RunE:         runLookup,
	}

	flags := rootCmd.Flags()
	flags.StringVar(&instanceClass, "instance-class", "db.r6g.large", "DB instance class")
	flags.StringVar(&engine, "engine", "aurora-postgresql", "Engine: postgres or aurora-postgresql")
	flags.StringVar(&storageType, "storage", models.StorageStandard, "Storage label: Standard, I/O Optimized, gp3, ...")
	flags.StringVar(&deploymentOption, "deployment", models.DeploymentSingleAZ, "Single-AZ, Multi-AZ or Multi-AZ (readable standbys)")
	flags.StringVar(&region, "region", "", "AWS region (defaults to the SDK region)")
	flags.StringVar(&fallbackPath, "fallback", "", "Fallback price table: local path or s3://bucket/key")
	flags.StringVar(&centralAccountID, "central-account-id", "", "Read the fallback table from this account's central bucket")
	flags.BoolVarP(&verbose, "verbose", "v", false, "Log every lookup")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runLookup(cmd *cobra.Command, args []string) error {
	logger := zap.NewNop()
	if verbose {
		l, err := zap.NewDevelopment()
		if err != nil {
			return err
		}
		logger = l
	}

	ctx := cmd.Context()
	cfg, err := awsclient.LoadConfig(ctx, region)
	if err != nil {
		return err
	}
	resolved, err := awsclient.ResolveRegion(cfg.Region)
	if err != nil {
		return err
	}
	cfg.Region = resolved

	var bucket string
	if centralAccountID != "" {
		bucket = awsclient.CentralBucket(centralAccountID)
	}
	central := cfg.Copy()
	central.Region = awsclient.CentralBucketRegion

	resolver, _ := pricing.Setup(ctx, pricing.Config{
		Region:       resolved,
		CacheTTL:     time.Hour,
		FallbackPath: fallbackPath,
	}, pricing.NewAWSPriceListFromConfig(cfg), s3.NewFromConfig(central), bucket, logger)

	engineType := models.EngineTypePostgres
	if models.IsAuroraEngine(engine) {
		engineType = models.EngineTypeAurora
	}
	q := models.PriceQuery{
		InstanceClass:    instanceClass,
		EngineType:       engineType,
		StorageType:      storageType,
		DeploymentOption: deploymentOption,
	}

	fmt.Printf("[INFO] %s %s (%s, %s) in %s\n", engineType, instanceClass, storageType, deploymentOption, resolved)
	fmt.Printf("  On-Demand:          %s\n", hourly(resolver.OnDemand(ctx, q)))
	fmt.Printf("  RI 1yr No Upfront:  %s\n", hourly(resolver.Reserved1yrNoUpfront(ctx, q)))
	if q.IsAurora() {
		fmt.Printf("  Serverless v2 ACU:  $%.4f/ACU-hour\n", resolver.ACUPrice(ctx, storageType))
	}
	return nil
}

func hourly(price *float64) string {
	if price == nil {
		return "not found"
	}
	return fmt.Sprintf("$%.4f/hour ($%.2f/month)", *price, *price*recommender.HoursPerMonth)
}

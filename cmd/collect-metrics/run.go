package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/opscart/rds-metrics-collector/pkg/analyzer"
	"github.com/opscart/rds-metrics-collector/pkg/awsclient"
	"github.com/opscart/rds-metrics-collector/pkg/collector"
	"github.com/opscart/rds-metrics-collector/pkg/config"
	"github.com/opscart/rds-metrics-collector/pkg/datasource"
	"github.com/opscart/rds-metrics-collector/pkg/inventory"
	"github.com/opscart/rds-metrics-collector/pkg/metrics"
	"github.com/opscart/rds-metrics-collector/pkg/models"
	"github.com/opscart/rds-metrics-collector/pkg/output"
	"github.com/opscart/rds-metrics-collector/pkg/pricing"
	"github.com/opscart/rds-metrics-collector/pkg/reporter"
	"github.com/opscart/rds-metrics-collector/pkg/storage"
)

func runCollect(cmd *cobra.Command, args []string) error {
	settings, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	if err := settings.Validate(); err != nil {
		return err
	}

	logger, err := newLogger()
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer logger.Sync()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	session, err := awsclient.NewSession(ctx, awsclient.Options{
		Region:           settings.Region,
		CentralAccountID: settings.CentralAccountID,
		AssumeUploader:   settings.AssumeUploaderRole,
		AssumeCentral:    settings.AssumeCentralRole,
	})
	if err != nil {
		return err
	}

	fmt.Printf("[INFO] Starting metrics collection for region %s\n", session.Region)
	fmt.Printf("[INFO] Time interval: %d days\n", settings.SamplePeriodDays)
	fmt.Printf("[INFO] Cluster identifier: %s\n", clusterIdentifier)
	fmt.Printf("[INFO] Central Account ID: %s\n", settings.CentralAccountID)

	telemetry := metrics.New()
	centralBucket := awsclient.CentralBucket(settings.CentralAccountID)

	resolver, specs := pricing.Setup(ctx, pricing.Config{
		Region:       session.Region,
		CacheTTL:     settings.PriceCacheTTL,
		FallbackPath: settings.PricingFallbackPath,
		SpecsPath:    settings.InstanceSpecsPath,
	}, pricing.NewAWSPriceListFromConfig(session.Collection), s3.NewFromConfig(session.Central), centralBucket, logger)
	resolver.WithObserver(telemetry)

	rc := models.NewRunContext(session.Region, session.AccountID, settings.SamplePeriodDays, time.Now()).
		WithACUPrices(resolver.ACUPrice(ctx, models.StorageStandard), resolver.ACUPrice(ctx, models.StorageIOOptimized))

	var classifier collector.Classifier
	if settings.ClassifyUsage() {
		classifier = analyzer.NewPatternClassifier(settings.Thresholds(), logger)
	}

	describer := inventory.NewRDSDescriberFromConfig(session.Collection)
	c := collector.New(
		describer,
		collector.NewProfiler(describer, resolver, specs, rc, logger),
		collector.NewAggregator(datasource.NewCloudWatchSourceFromConfig(session.Collection), classifier, rc, logger),
		logger,
	).WithObserver(telemetry)

	records, runReport := c.Run(ctx, clusterIdentifier)
	telemetry.Finish(runReport.StartedAt, runReport.FinishedAt)

	for _, u := range runReport.Skipped() {
		fmt.Printf("[WARN] Skipped %s: %s\n", unitName(u), u.Skip)
	}

	format, err := reporter.ParseFormat(settings.OutputFormat)
	if err != nil {
		return err
	}
	rep := reporter.New(format)
	report := rep.Generate(records, runReport, rc)

	if len(records) == 0 {
		fmt.Printf("[WARN] No metrics found for specified PostgreSQL cluster(s) in %s\n", session.Region)
	} else if err := writeArtifact(ctx, settings, session, rep, report, logger); err != nil {
		return err
	}

	if reportHTML != "" {
		if err := writeFile(reportHTML, func(f *os.File) error { return reporter.GenerateHTML(report, f) }); err != nil {
			fmt.Printf("[WARN] Failed to write HTML report: %v\n", err)
		} else {
			fmt.Printf("[INFO] HTML report written to %s\n", reportHTML)
		}
	}

	if settings.StorageEnabled {
		saveRun(ctx, settings, report, logger)
	}

	publishTelemetry(settings, telemetry, logger)

	if len(records) > 0 {
		printSummary(report)
	}
	return nil
}

// writeArtifact writes the local file, uploads it and removes it once uploaded
func writeArtifact(ctx context.Context, settings *config.Settings, session *awsclient.Session,
	rep *reporter.Reporter, report *reporter.Report, logger *zap.Logger) error {

	target := strings.ToLower(clusterIdentifier)
	name := output.FileName(session.Region, target, time.Now(), rep.Format().Extension())
	local := filepath.Join(settings.OutputDir, name)

	if err := writeFile(local, func(f *os.File) error { return rep.Write(report, f) }); err != nil {
		return fmt.Errorf("failed to write %s: %w", local, err)
	}
	fmt.Printf("[INFO] Wrote %d records to %s\n", len(report.Records), local)

	if !settings.UploadEnabled {
		return nil
	}

	uploader := output.NewS3UploaderFromConfig(session.Central, logger)
	uri, err := uploader.Upload(ctx, local, output.Destination{
		Region:           session.Region,
		AccountID:        session.AccountID,
		CentralAccountID: settings.CentralAccountID,
		Target:           target,
	})
	if err != nil {
		logger.Error("upload failed", zap.String("file", local), zap.Error(err))
		fmt.Printf("[WARN] Failed to upload %s to S3, file retained locally\n", local)
		return nil
	}

	fmt.Printf("[INFO] Successfully uploaded %s to %s\n", name, uri)
	if !keepLocal {
		if err := os.Remove(local); err != nil {
			logger.Warn("failed to remove local artifact", zap.String("file", local), zap.Error(err))
		}
	}
	return nil
}

func saveRun(ctx context.Context, settings *config.Settings, report *reporter.Report, logger *zap.Logger) {
	store, err := storage.NewPostgresStore(ctx, settings.DatabaseURL)
	if err != nil {
		fmt.Printf("[WARN] Failed to initialize storage: %v\n", err)
		return
	}
	defer store.Close()

	id, err := store.SaveRun(ctx, &storage.Run{
		Summary: report.Summary(),
		Skipped: report.Skipped,
		Records: report.Records,
	})
	if err != nil {
		logger.Error("failed to save run", zap.Error(err))
		fmt.Printf("[WARN] Failed to save run: %v\n", err)
		return
	}
	fmt.Printf("[INFO] Saved run %s\n", id)
}

func publishTelemetry(settings *config.Settings, telemetry *metrics.RunMetrics, logger *zap.Logger) {
	if settings.MetricsTextfile != "" {
		if err := telemetry.WriteToTextfile(settings.MetricsTextfile); err != nil {
			logger.Warn("failed to write metrics textfile", zap.Error(err))
		}
	}
	if settings.PushgatewayURL != "" {
		if err := telemetry.Push(settings.PushgatewayURL); err != nil {
			logger.Warn("failed to push metrics", zap.Error(err))
		}
	}
}

func printSummary(report *reporter.Report) {
	fmt.Println("\nSummary Statistics:")
	fmt.Printf("Total Clusters: %d\n", report.Clusters)
	fmt.Printf("Aurora PostgreSQL Instances: %d\n", report.AuroraInstances)
	fmt.Printf("RDS PostgreSQL Instances: %d\n", report.RDSInstances)
	fmt.Printf("Aurora Serverless v2 Instances: %d\n", report.ServerlessInstances)
	if len(report.Skipped) > 0 {
		fmt.Printf("Skipped Units: %d\n", len(report.Skipped))
	}
}

func unitName(u models.UnitResult) string {
	if u.InstanceIdentifier == "" || u.InstanceIdentifier == u.ClusterIdentifier {
		return u.ClusterIdentifier
	}
	return u.ClusterIdentifier + "/" + u.InstanceIdentifier
}

func writeFile(path string, write func(*os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

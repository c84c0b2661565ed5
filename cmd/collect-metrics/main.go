package main

import (
	"fmt"
	"os"

	"github.com/prometheus/common/version"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/opscart/rds-metrics-collector/pkg/config"
	"github.com/opscart/rds-metrics-collector/pkg/storage"
)

var (
	// Collection flags
	clusterIdentifier   string
	centralAccountID    string
	samplePeriodDays    int
	analyzeUsagePattern string
	region              string
	debug               bool
	outputFormat        string
	outputDir           string
	noUpload            bool
	keepLocal           bool
	saveResults         bool
	configFile          string
	reportHTML          string

	// History command vars
	historyLimit int
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var rootCmd = &cobra.Command{
		Use:   "collect-metrics",
		Short: "Hourly CPU profile collector for RDS and Aurora PostgreSQL",
		Long: `Collect hourly CloudWatch CPU statistics for RDS and Aurora PostgreSQL instances,
estimate their Aurora Serverless v2 capacity and cost, and ship the result to the central bucket.`,
		SilenceUsage: true,
		RunE:         runCollect,
	}

	flags := rootCmd.Flags()
	flags.StringVar(&clusterIdentifier, "cluster-identifier", "", `Cluster or instance identifier, or "all"`)
	flags.StringVar(&centralAccountID, "central-account-id", "", "AWS account ID where the central S3 bucket is located")
	flags.IntVar(&samplePeriodDays, "sample-period-days", 30, "Number of days to collect metrics for")
	flags.StringVar(&analyzeUsagePattern, "analyze-usage-pattern", config.AnalyzeRuleBased, "Usage pattern analysis method (rule-based)")
	flags.StringVar(&region, "region", "", "AWS region (defaults to the SDK region)")
	flags.BoolVar(&debug, "debug", false, "Enable debug logging")
	flags.StringVarP(&outputFormat, "output", "o", "csv", "Output format: csv, parquet")
	flags.StringVar(&outputDir, "output-dir", ".", "Directory for the local artifact")
	flags.BoolVar(&noUpload, "no-upload", false, "Keep the artifact local instead of uploading it")
	flags.BoolVar(&keepLocal, "keep-local", false, "Keep the local artifact after a successful upload")
	flags.BoolVar(&saveResults, "save", false, "Save the run to the history database")
	flags.StringVar(&configFile, "config", "", "Optional YAML settings file")
	flags.StringVar(&reportHTML, "report-html", "", "Also write an HTML summary to this file")
	_ = rootCmd.MarkFlagRequired("cluster-identifier")

	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "List past collection runs",
		Args:  cobra.NoArgs,
		RunE:  runHistory,
	}
	historyCmd.Flags().IntVar(&historyLimit, "limit", 10, "Number of runs to show")
	historyCmd.Flags().StringVar(&configFile, "config", "", "Optional YAML settings file")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(version.Print("collect-metrics"))
		},
	}

	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(versionCmd)
	return rootCmd
}

func newLogger() (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// loadSettings reads file and environment, then applies explicitly set flags
func loadSettings(cmd *cobra.Command) (*config.Settings, error) {
	settings, err := config.NewSettings(configFile)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("central-account-id") || settings.CentralAccountID == "" {
		settings.CentralAccountID = centralAccountID
	}
	if flags.Changed("region") {
		settings.Region = region
	}
	if flags.Changed("sample-period-days") {
		settings.SamplePeriodDays = samplePeriodDays
	}
	if flags.Changed("analyze-usage-pattern") {
		settings.AnalyzeUsagePattern = analyzeUsagePattern
	}
	if flags.Changed("output") {
		settings.OutputFormat = outputFormat
	}
	if flags.Changed("output-dir") {
		settings.OutputDir = outputDir
	}
	if noUpload {
		settings.UploadEnabled = false
	}
	if saveResults {
		settings.StorageEnabled = true
	}
	return settings, nil
}

func runHistory(cmd *cobra.Command, args []string) error {
	settings, err := config.NewSettings(configFile)
	if err != nil {
		return err
	}
	if settings.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL must be set to read run history")
	}

	ctx := cmd.Context()
	store, err := storage.NewPostgresStore(ctx, settings.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer store.Close()

	runs, err := store.ListRuns(ctx, historyLimit)
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("No collection runs found")
		return nil
	}

	fmt.Printf("Recent collection runs:\n\n")
	for i, run := range runs {
		fmt.Printf("%d. %s (ID: %s)\n", i+1, run.Target, run.RunID)
		fmt.Printf("   Account: %s  Region: %s\n", run.AccountID, run.Region)
		fmt.Printf("   Sample period: %d days\n", run.SamplePeriodDays)
		fmt.Printf("   Instances: %d Aurora, %d RDS, %d serverless across %d clusters\n",
			run.AuroraInstances, run.RDSInstances, run.ServerlessInstances, run.Clusters)
		fmt.Printf("   Records: %d  Skipped: %d\n", run.Records, run.SkippedUnits)
		fmt.Printf("   Created: %s\n", run.CreatedAt.Format("2006-01-02 15:04:05"))
		fmt.Println()
	}
	return nil
}

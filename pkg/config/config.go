package config

import (
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/pkg/errors"

	"github.com/opscart/rds-metrics-collector/pkg/analyzer"
	"github.com/opscart/rds-metrics-collector/pkg/awsclient"
)

// AnalyzeRuleBased is the only usage pattern method
const AnalyzeRuleBased = "rule-based"

// Settings holds application configuration
type Settings struct {
	// AWS
	Region             string `yaml:"region" env:"AWS_REGION" env-description:"region to collect from"`
	CentralAccountID   string `yaml:"central_account_id" env:"CENTRAL_ACCOUNT_ID" env-description:"12-digit account owning the central bucket"`
	AssumeUploaderRole bool   `yaml:"assume_uploader_role" env:"ASSUME_UPLOADER_ROLE" env-default:"false"`
	AssumeCentralRole  bool   `yaml:"assume_central_role" env:"ASSUME_CENTRAL_ROLE" env-default:"true"`

	// Collection
	SamplePeriodDays    int    `yaml:"sample_period_days" env:"SAMPLE_PERIOD_DAYS" env-default:"30"`
	AnalyzeUsagePattern string `yaml:"analyze_usage_pattern" env:"ANALYZE_USAGE_PATTERN" env-default:"rule-based"`

	// Pricing
	PricingFallbackPath string        `yaml:"pricing_fallback_path" env:"PRICING_FALLBACK_PATH" env-description:"local file or s3://bucket/key"`
	InstanceSpecsPath   string        `yaml:"instance_specs_path" env:"INSTANCE_SPECS_PATH"`
	PriceCacheTTL       time.Duration `yaml:"price_cache_ttl" env:"PRICE_CACHE_TTL" env-default:"24h"`

	// Output
	OutputFormat  string `yaml:"output_format" env:"OUTPUT_FORMAT" env-default:"csv"`
	OutputDir     string `yaml:"output_dir" env:"OUTPUT_DIR" env-default:"."`
	UploadEnabled bool   `yaml:"upload_enabled" env:"UPLOAD_ENABLED" env-default:"true"`

	// Storage
	StorageEnabled bool   `yaml:"storage_enabled" env:"STORAGE_ENABLED" env-default:"false"`
	DatabaseURL    string `yaml:"database_url" env:"DATABASE_URL"`

	// Telemetry
	MetricsTextfile string `yaml:"metrics_textfile" env:"METRICS_TEXTFILE"`
	PushgatewayURL  string `yaml:"pushgateway_url" env:"PUSHGATEWAY_URL"`

	// Usage pattern thresholds
	OutlierFraction  float64 `yaml:"outlier_fraction" env:"OUTLIER_FRACTION" env-default:"0.15"`
	ConsistentStdDev float64 `yaml:"consistent_stddev" env:"CONSISTENT_STDDEV" env-default:"5"`
	PeakRatio        float64 `yaml:"peak_ratio" env:"PEAK_RATIO" env-default:"1.5"`
}

// NewSettings reads the optional YAML file, then the environment
func NewSettings(configFile string) (*Settings, error) {
	var cfg Settings
	if configFile == "" {
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, errors.Wrap(err, "config read environment")
		}
		return &cfg, nil
	}

	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		return nil, errors.Wrap(err, fmt.Sprintf("no config %s", configFile))
	}
	if err := cleanenv.ReadConfig(configFile, &cfg); err != nil {
		return nil, errors.Wrap(err, fmt.Sprintf("config read %s", configFile))
	}
	return &cfg, nil
}

// Validate checks if configuration is valid
func (s *Settings) Validate() error {
	if !awsclient.ValidAccountID(s.CentralAccountID) {
		return fmt.Errorf("central account id must be exactly 12 digits, got %q", s.CentralAccountID)
	}
	if s.SamplePeriodDays < 1 {
		return fmt.Errorf("sample period must be at least 1 day")
	}
	if s.OutputFormat != "csv" && s.OutputFormat != "parquet" {
		return fmt.Errorf("output format must be csv or parquet, got %q", s.OutputFormat)
	}
	if s.AnalyzeUsagePattern != "" && s.AnalyzeUsagePattern != AnalyzeRuleBased {
		return fmt.Errorf("unsupported usage pattern method %q", s.AnalyzeUsagePattern)
	}
	if s.StorageEnabled && s.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL must be set when storage is enabled")
	}
	return nil
}

// ClassifyUsage reports whether usage patterns are requested
func (s *Settings) ClassifyUsage() bool {
	return s.AnalyzeUsagePattern == AnalyzeRuleBased
}

// Thresholds overlays the configured values on the classifier defaults
func (s *Settings) Thresholds() analyzer.Thresholds {
	t := analyzer.DefaultThresholds()
	if s.OutlierFraction > 0 {
		t.OutlierFraction = s.OutlierFraction
	}
	if s.ConsistentStdDev > 0 {
		t.ConsistentStdDev = s.ConsistentStdDev
	}
	if s.PeakRatio > 0 {
		t.PeakRatio = s.PeakRatio
	}
	return t
}

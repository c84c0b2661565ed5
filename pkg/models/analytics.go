package models

import "time"

// Timestamp layouts used in output rows
const (
	TimestampLayout = "2006-01-02 15:04:05"
	DateLayout      = "2006-01-02"
)

// RunContext is the immutable per-invocation state passed to every component
type RunContext struct {
	Region              string
	AccountID           string
	ExecTimestamp       time.Time
	RunDate             string
	WindowStart         time.Time
	WindowEnd           time.Time
	SamplePeriodDays    int
	ACUPriceStandard    float64
	ACUPriceIOOptimized float64
}

// NewRunContext builds the sampling window ending at the last full hour before now
func NewRunContext(region, accountID string, samplePeriodDays int, now time.Time) RunContext {
	end := now.UTC().Truncate(time.Hour)
	return RunContext{
		Region:           region,
		AccountID:        accountID,
		ExecTimestamp:    now.UTC(),
		RunDate:          now.Local().Format(DateLayout),
		WindowStart:      end.AddDate(0, 0, -(samplePeriodDays + 1)),
		WindowEnd:        end,
		SamplePeriodDays: samplePeriodDays,
	}
}

// WithACUPrices returns a copy carrying resolved ACU prices
func (r RunContext) WithACUPrices(standard, ioOptimized float64) RunContext {
	r.ACUPriceStandard = standard
	r.ACUPriceIOOptimized = ioOptimized
	return r
}

// ACUPrice picks the ACU price for a storage type
func (r RunContext) ACUPrice(storageType string) float64 {
	if storageType == StorageIOOptimized {
		return r.ACUPriceIOOptimized
	}
	return r.ACUPriceStandard
}

func (r RunContext) ExecTimestampUTC() string { return r.ExecTimestamp.Format(TimestampLayout) }
func (r RunContext) StartDateUTC() string     { return r.WindowStart.Format(DateLayout) }
func (r RunContext) EndDateUTC() string       { return r.WindowEnd.Format(DateLayout) }

// SkipReason explains why a unit produced no records
type SkipReason struct {
	Stage string
	Err   string
}

func (s SkipReason) String() string {
	return s.Stage + ": " + s.Err
}

// UnitResult is the outcome for one instance, or for a whole cluster when InstanceIdentifier is empty
type UnitResult struct {
	ClusterIdentifier  string
	InstanceIdentifier string
	Records            int
	Skip               *SkipReason
}

// Collected reports whether the unit produced records
func (u UnitResult) Collected() bool {
	return u.Skip == nil
}

// RunReport summarises one collection run
type RunReport struct {
	RunID      string
	Target     string
	Discovered int
	StartedAt  time.Time
	FinishedAt time.Time
	Results    []UnitResult
}

// Collected returns the units that produced records
func (r *RunReport) Collected() []UnitResult {
	var out []UnitResult
	for _, u := range r.Results {
		if u.Collected() {
			out = append(out, u)
		}
	}
	return out
}

// Skipped returns the units that were skipped with a reason
func (r *RunReport) Skipped() []UnitResult {
	var out []UnitResult
	for _, u := range r.Results {
		if !u.Collected() {
			out = append(out, u)
		}
	}
	return out
}

// RunSummary is a stored run as listed by the history command
type RunSummary struct {
	RunID               string
	Target              string
	Region              string
	AccountID           string
	SamplePeriodDays    int
	Clusters            int
	AuroraInstances     int
	RDSInstances        int
	ServerlessInstances int
	SkippedUnits        int
	Records             int
	CreatedAt           time.Time
}

package pricing

import (
	"context"
	"time"

	"github.com/opscart/rds-metrics-collector/pkg/models"
)

// Filter is a TERM_MATCH filter on a price list attribute
type Filter struct {
	Field string
	Value string
}

// Catalog is the live price list
type Catalog interface {
	Products(ctx context.Context, filters []Filter) ([]PriceListItem, error)
}

// FallbackSource is the static reference price table
type FallbackSource interface {
	Lookup(key FallbackKey) *float64
}

// SpecSource maps instance classes to vCPU and memory
type SpecSource interface {
	Lookup(instanceClass string) (vcpu, memoryGiB models.Capacity)
}

// Observer is notified of where each price came from
type Observer interface {
	PriceResolved(kind, source string)
}

// Price sources reported to the Observer
const (
	SourceCatalog  = "catalog"
	SourceFallback = "fallback"
	SourceNone     = "none"
)

// Config selects the region and reference data for a resolver
type Config struct {
	Region       string
	CacheTTL     time.Duration
	FallbackPath string
	SpecsPath    string
}

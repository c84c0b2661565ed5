package pricing

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/opscart/rds-metrics-collector/pkg/models"
	"go.uber.org/zap"
)

const (
	acuOperation   = "CreateDBInstance:0021"
	acuUnit        = "ACU-Hr"
	acuDescription = "Aurora PostgreSQL Serverless v2"
	postgresEngine = "21"
)

// Resolver resolves instance and ACU prices from the live catalog, then the
// fallback table. Failures never propagate: prices degrade to nil, ACU to 0.
type Resolver struct {
	catalog  Catalog
	fallback FallbackSource
	cache    *PriceCache
	region   string
	observer Observer
	logger   *zap.Logger
}

// NewResolver creates a resolver for one region. fallback may be nil.
func NewResolver(catalog Catalog, fallback FallbackSource, region string, cacheTTL time.Duration, logger *zap.Logger) *Resolver {
	return &Resolver{
		catalog:  catalog,
		fallback: fallback,
		cache:    NewPriceCache(cacheTTL),
		region:   region,
		observer: nopObserver{},
		logger:   logger.Named("pricing"),
	}
}

// WithObserver sets the observer notified of each resolution
func (r *Resolver) WithObserver(o Observer) *Resolver {
	if o != nil {
		r.observer = o
	}
	return r
}

// OnDemand returns the hourly on-demand rate or nil
func (r *Resolver) OnDemand(ctx context.Context, q models.PriceQuery) *float64 {
	prefix := usageTypePrefix(q)
	return r.resolve(ctx, "on-demand", q.InstanceClass,
		r.instanceFilters(q, "OnDemand"),
		func(item PriceListItem) (float64, bool) {
			if !strings.HasPrefix(item.Attribute("usagetype"), prefix) {
				return 0, false
			}
			for _, term := range sortedTerms(item.Terms.OnDemand) {
				for _, dim := range term.sortedDimensions() {
					if price, ok := dim.USD(); ok {
						return price, true
					}
				}
			}
			return 0, false
		},
		r.fallbackKey(q, models.PriceOnDemand),
		cacheKey("od", q))
}

// Reserved1yrNoUpfront returns the hourly 1-year no-upfront standard RI rate or nil
func (r *Resolver) Reserved1yrNoUpfront(ctx context.Context, q models.PriceQuery) *float64 {
	prefix := usageTypePrefix(q)
	filters := append(r.instanceFilters(q, "Reserved"),
		Filter{Field: "leaseContractLength", Value: "1yr"},
		Filter{Field: "offeringClass", Value: "standard"},
	)
	return r.resolve(ctx, "reserved", q.InstanceClass, filters,
		func(item PriceListItem) (float64, bool) {
			if !strings.HasPrefix(item.Attribute("usagetype"), prefix) {
				return 0, false
			}
			for _, term := range sortedTerms(item.Terms.Reserved) {
				attrs := term.TermAttributes
				if attrs["LeaseContractLength"] != "1yr" || attrs["PurchaseOption"] != "No Upfront" || attrs["OfferingClass"] != "standard" {
					continue
				}
				for _, dim := range term.sortedDimensions() {
					if dim.Unit != "Hrs" {
						continue
					}
					if price, ok := dim.USD(); ok {
						return price, true
					}
				}
			}
			return 0, false
		},
		r.fallbackKey(q, models.PriceReserved),
		cacheKey("ri", q))
}

// ACUPrice returns the Serverless v2 price per ACU-hour for a storage type, 0 when unresolvable
func (r *Resolver) ACUPrice(ctx context.Context, storageType string) float64 {
	usageType := "Aurora:ServerlessV2Usage"
	if storageType == models.StorageIOOptimized {
		usageType = "Aurora:ServerlessV2IOOptimizedUsage"
	}

	filters := []Filter{
		{Field: "location", Value: LocationName(r.region)},
		{Field: "usagetype", Value: usageType},
		{Field: "engineCode", Value: postgresEngine},
	}

	q := models.PriceQuery{
		InstanceClass:    models.ServerlessClass,
		EngineType:       models.EngineTypeAurora,
		StorageType:      storageType,
		DeploymentOption: models.DeploymentSingleAZ,
	}

	price := r.resolve(ctx, "acu", models.ServerlessClass, filters,
		func(item PriceListItem) (float64, bool) {
			if item.Attribute("usagetype") != usageType || item.Attribute("operation") != acuOperation {
				return 0, false
			}
			for _, term := range sortedTerms(item.Terms.OnDemand) {
				for _, dim := range term.sortedDimensions() {
					if dim.Unit != acuUnit || !strings.Contains(dim.Description, acuDescription) {
						continue
					}
					if p, ok := dim.USD(); ok {
						return p, true
					}
				}
			}
			return 0, false
		},
		r.fallbackKey(q, models.PriceOnDemand),
		cacheKey("acu", q))

	if price == nil {
		return 0
	}
	return *price
}

func (r *Resolver) resolve(ctx context.Context, kind, class string, filters []Filter,
	match func(PriceListItem) (float64, bool), key FallbackKey, cacheKey string) *float64 {

	if cached, ok := r.cache.Get(cacheKey); ok {
		return cached
	}

	log := r.logger.With(zap.String("kind", kind), zap.String("class", class), zap.String("region", r.region))

	if price, ok := r.fromCatalog(ctx, log, filters, match); ok {
		log.Debug("resolved price from catalog", zap.Float64("price", price))
		r.observer.PriceResolved(kind, SourceCatalog)
		r.cache.Set(cacheKey, &price)
		return &price
	}

	if r.fallback != nil {
		if price := r.fallback.Lookup(key); price != nil {
			log.Info("using fallback price", zap.Float64("price", *price))
			r.observer.PriceResolved(kind, SourceFallback)
			r.cache.Set(cacheKey, price)
			return price
		}
	}

	log.Warn("no price found in catalog or fallback table",
		zap.String("storage", key.StorageType),
		zap.String("deployment", key.DeploymentOption))
	r.observer.PriceResolved(kind, SourceNone)
	r.cache.Set(cacheKey, nil)
	return nil
}

func (r *Resolver) fromCatalog(ctx context.Context, log *zap.Logger, filters []Filter, match func(PriceListItem) (float64, bool)) (float64, bool) {
	if r.catalog == nil {
		return 0, false
	}
	if LocationName(r.region) == "" {
		log.Warn("region has no price list location, skipping catalog")
		return 0, false
	}

	log.Debug("querying price catalog", zap.Any("filters", filters))
	items, err := r.catalog.Products(ctx, filters)
	if err != nil {
		log.Error("price catalog query failed, trying fallback", zap.Error(err))
		return 0, false
	}

	for _, item := range items {
		if price, ok := match(item); ok {
			return price, true
		}
	}
	return 0, false
}

func (r *Resolver) instanceFilters(q models.PriceQuery, termType string) []Filter {
	engine := models.EngineTypePostgres
	if q.IsAurora() {
		engine = models.EngineTypeAurora
	}

	filters := []Filter{
		{Field: "location", Value: LocationName(r.region)},
		{Field: "instanceType", Value: q.InstanceClass},
		{Field: "databaseEngine", Value: engine},
		{Field: "termType", Value: termType},
	}
	if !q.IsAurora() {
		filters = append(filters, Filter{Field: "deploymentOption", Value: normalizeDeployment(q.DeploymentOption)})
	}
	return filters
}

func (r *Resolver) fallbackKey(q models.PriceQuery, kind models.PriceKind) FallbackKey {
	return FallbackKey{
		Platform:         q.Platform(),
		InstanceClass:    q.InstanceClass,
		Region:           r.region,
		DeploymentOption: q.DeploymentOption,
		StorageType:      q.StorageType,
		Kind:             kind,
	}
}

// usageTypePrefix selects the catalog usage type for the query
func usageTypePrefix(q models.PriceQuery) string {
	if q.IsAurora() {
		if q.StorageType == models.StorageIOOptimized {
			return "InstanceUsageIOOptimized:"
		}
		return "InstanceUsage:"
	}

	switch q.DeploymentOption {
	case models.DeploymentReadable:
		return "Multi-AZClusterUsage"
	case models.DeploymentMultiAZ:
		return "Multi-AZUsage"
	}
	return "InstanceUsage"
}

func normalizeDeployment(option string) string {
	switch option {
	case models.DeploymentReadable, models.DeploymentMultiAZ:
		return option
	}
	return models.DeploymentSingleAZ
}

func cacheKey(kind string, q models.PriceQuery) string {
	return fmt.Sprintf("%s|%s|%s|%s|%s", kind, q.InstanceClass, q.EngineType, q.StorageType, q.DeploymentOption)
}

type nopObserver struct{}

func (nopObserver) PriceResolved(string, string) {}

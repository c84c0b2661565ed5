package pricing

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/opscart/rds-metrics-collector/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeCatalog struct {
	docs    []string
	err     error
	calls   int
	filters [][]Filter
}

func (f *fakeCatalog) Products(ctx context.Context, filters []Filter) ([]PriceListItem, error) {
	f.calls++
	f.filters = append(f.filters, filters)
	if f.err != nil {
		return nil, f.err
	}
	var items []PriceListItem
	for _, doc := range f.docs {
		item, err := ParsePriceListItem(doc)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

type recordingObserver struct {
	sources []string
}

func (o *recordingObserver) PriceResolved(kind, source string) {
	o.sources = append(o.sources, kind+":"+source)
}

const onDemandDoc = `{
  "product": {"attributes": {"usagetype": "InstanceUsage:db.r6g.large", "instanceType": "db.r6g.large"}},
  "terms": {"OnDemand": {"ABC.JRTCKXETXF": {"priceDimensions": {"ABC.JRTCKXETXF.6YS6EN2CT7": {"unit": "Hrs", "pricePerUnit": {"USD": "0.2600000000"}}}}}}
}`

const ioOptimizedDoc = `{
  "product": {"attributes": {"usagetype": "InstanceUsageIOOptimized:db.r6g.large"}},
  "terms": {"OnDemand": {"X": {"priceDimensions": {"Y": {"unit": "Hrs", "pricePerUnit": {"USD": "0.3380000000"}}}}}}
}`

const reservedDoc = `{
  "product": {"attributes": {"usagetype": "InstanceUsage:db.r6g.large"}},
  "terms": {"Reserved": {
    "A": {"termAttributes": {"LeaseContractLength": "1yr", "PurchaseOption": "All Upfront", "OfferingClass": "standard"},
          "priceDimensions": {"B": {"unit": "Hrs", "pricePerUnit": {"USD": "0.0000000000"}}}},
    "C": {"termAttributes": {"LeaseContractLength": "1yr", "PurchaseOption": "No Upfront", "OfferingClass": "standard"},
          "priceDimensions": {"D": {"unit": "Quantity", "pricePerUnit": {"USD": "0"}}, "E": {"unit": "Hrs", "pricePerUnit": {"USD": "0.1790000000"}}}}
  }}
}`

const acuDoc = `{
  "product": {"attributes": {"usagetype": "Aurora:ServerlessV2Usage", "operation": "CreateDBInstance:0021"}},
  "terms": {"OnDemand": {"T": {"priceDimensions": {"P": {"unit": "ACU-Hr", "description": "$0.12 per Aurora PostgreSQL Serverless v2 ACU-Hr", "pricePerUnit": {"USD": "0.1200000000"}}}}}}
}`

const fallbackCSV = `sheet,dbinstance_class,aws_region,instance_pricing,standard_price,io_price
Aurora,db.r6g.large,us-east-1,OnDemand,0.26,0.338
Aurora,db.r6g.large,us-east-1,RI,0.18,0.23
Aurora,db.serverless,us-east-1,OnDemand,0.12,0.16
RDS-SingleAZ,db.m6g.large,us-east-1,OnDemand,0.168,
RDS-MultiAZ,db.m6g.large,us-east-1,OnDemand,0.336,
RDS-MultiAZreadable,db.m6g.large,us-east-1,OnDemand,0.0,
`

func loadFallback(t *testing.T) *FallbackTable {
	t.Helper()
	table, err := LoadFallbackCSV(strings.NewReader(fallbackCSV))
	require.NoError(t, err)
	return table
}

func newResolver(catalog Catalog, fallback FallbackSource) *Resolver {
	return NewResolver(catalog, fallback, "us-east-1", time.Hour, zap.NewNop())
}

var auroraQuery = models.PriceQuery{
	InstanceClass:    "db.r6g.large",
	EngineType:       models.EngineTypeAurora,
	StorageType:      models.StorageStandard,
	DeploymentOption: models.DeploymentSingleAZ,
}

func TestOnDemandFromCatalog(t *testing.T) {
	catalog := &fakeCatalog{docs: []string{ioOptimizedDoc, onDemandDoc}}
	obs := &recordingObserver{}
	r := newResolver(catalog, nil).WithObserver(obs)

	price := r.OnDemand(context.Background(), auroraQuery)

	require.NotNil(t, price)
	assert.Equal(t, 0.26, *price)
	assert.Equal(t, []string{"on-demand:catalog"}, obs.sources)

	// Aurora queries carry no deployment filter
	for _, f := range catalog.filters[0] {
		assert.NotEqual(t, "deploymentOption", f.Field)
	}
	assert.Contains(t, catalog.filters[0], Filter{Field: "location", Value: "US East (N. Virginia)"})
	assert.Contains(t, catalog.filters[0], Filter{Field: "databaseEngine", Value: "Aurora PostgreSQL"})
}

func TestOnDemandIOOptimizedPrefix(t *testing.T) {
	catalog := &fakeCatalog{docs: []string{onDemandDoc, ioOptimizedDoc}}
	q := auroraQuery
	q.StorageType = models.StorageIOOptimized

	price := newResolver(catalog, nil).OnDemand(context.Background(), q)

	require.NotNil(t, price)
	assert.Equal(t, 0.338, *price)
}

func TestOnDemandFallsBackWhenCatalogMisses(t *testing.T) {
	obs := &recordingObserver{}
	r := newResolver(&fakeCatalog{}, loadFallback(t)).WithObserver(obs)

	price := r.OnDemand(context.Background(), auroraQuery)

	require.NotNil(t, price)
	assert.Equal(t, 0.26, *price)
	assert.Equal(t, []string{"on-demand:fallback"}, obs.sources)
}

func TestOnDemandFallsBackOnCatalogError(t *testing.T) {
	r := newResolver(&fakeCatalog{err: errors.New("throttled")}, loadFallback(t))

	q := models.PriceQuery{
		InstanceClass:    "db.m6g.large",
		EngineType:       models.EngineTypePostgres,
		StorageType:      "gp3",
		DeploymentOption: models.DeploymentMultiAZ,
	}
	price := r.OnDemand(context.Background(), q)

	require.NotNil(t, price)
	assert.Equal(t, 0.336, *price)
}

func TestBothMissYieldNilAndZero(t *testing.T) {
	obs := &recordingObserver{}
	r := newResolver(&fakeCatalog{}, loadFallback(t)).WithObserver(obs)
	q := models.PriceQuery{
		InstanceClass:    "db.x2g.large",
		EngineType:       models.EngineTypePostgres,
		StorageType:      "gp2",
		DeploymentOption: models.DeploymentSingleAZ,
	}

	assert.Nil(t, r.OnDemand(context.Background(), q))
	assert.Nil(t, r.Reserved1yrNoUpfront(context.Background(), q))

	empty := newResolver(&fakeCatalog{err: errors.New("down")}, nil)
	assert.Equal(t, 0.0, empty.ACUPrice(context.Background(), models.StorageStandard))
	assert.Contains(t, obs.sources, "on-demand:none")
}

func TestZeroFallbackPriceIsMiss(t *testing.T) {
	r := newResolver(&fakeCatalog{}, loadFallback(t))
	q := models.PriceQuery{
		InstanceClass:    "db.m6g.large",
		EngineType:       models.EngineTypePostgres,
		DeploymentOption: models.DeploymentReadable,
	}

	assert.Nil(t, r.OnDemand(context.Background(), q))
}

func TestNonFiniteFallbackPriceIsMiss(t *testing.T) {
	q := models.PriceQuery{
		InstanceClass:    "db.r6g.large",
		EngineType:       models.EngineTypePostgres,
		DeploymentOption: models.DeploymentSingleAZ,
	}

	for _, raw := range []string{"NaN", "nan", "Inf", "+Inf", "-Inf", "Infinity", "", "abc"} {
		t.Run(raw, func(t *testing.T) {
			csv := "sheet,dbinstance_class,aws_region,instance_pricing,standard_price,io_price\n" +
				"RDS-SingleAZ,db.r6g.large,us-east-1,OnDemand," + raw + "," + raw + "\n"
			table, err := LoadFallbackCSV(strings.NewReader(csv))
			require.NoError(t, err)

			r := newResolver(&fakeCatalog{}, table)

			assert.NotPanics(t, func() {
				assert.Nil(t, r.OnDemand(context.Background(), q))
			})
		})
	}
}

func TestNonFiniteCatalogPriceFallsBack(t *testing.T) {
	nanDoc := strings.Replace(onDemandDoc, "0.2600000000", "NaN", 1)
	infDoc := strings.Replace(onDemandDoc, "0.2600000000", "+Inf", 1)

	for _, doc := range []string{nanDoc, infDoc} {
		obs := &recordingObserver{}
		r := newResolver(&fakeCatalog{docs: []string{doc}}, loadFallback(t)).WithObserver(obs)

		price := r.OnDemand(context.Background(), auroraQuery)

		require.NotNil(t, price)
		assert.Equal(t, 0.26, *price)
		assert.Equal(t, []string{"on-demand:fallback"}, obs.sources)
	}
}

func TestUSDRejectsNonFinite(t *testing.T) {
	for _, raw := range []string{"NaN", "Inf", "-Inf", "abc"} {
		_, ok := PriceDimension{PricePerUnit: map[string]string{"USD": raw}}.USD()
		assert.False(t, ok, raw)
	}

	v, ok := PriceDimension{PricePerUnit: map[string]string{"USD": "0.2600000000"}}.USD()
	assert.True(t, ok)
	assert.Equal(t, 0.26, v)
}

func TestReservedNoUpfront(t *testing.T) {
	catalog := &fakeCatalog{docs: []string{reservedDoc}}

	price := newResolver(catalog, nil).Reserved1yrNoUpfront(context.Background(), auroraQuery)

	require.NotNil(t, price)
	assert.Equal(t, 0.179, *price)
	assert.Contains(t, catalog.filters[0], Filter{Field: "termType", Value: "Reserved"})
	assert.Contains(t, catalog.filters[0], Filter{Field: "leaseContractLength", Value: "1yr"})
}

func TestReservedFallbackUsesRIRow(t *testing.T) {
	price := newResolver(&fakeCatalog{}, loadFallback(t)).Reserved1yrNoUpfront(context.Background(), auroraQuery)

	require.NotNil(t, price)
	assert.Equal(t, 0.18, *price)
}

func TestACUPrice(t *testing.T) {
	catalog := &fakeCatalog{docs: []string{acuDoc}}
	r := newResolver(catalog, loadFallback(t))

	assert.Equal(t, 0.12, r.ACUPrice(context.Background(), models.StorageStandard))
	assert.Contains(t, catalog.filters[0], Filter{Field: "engineCode", Value: "21"})

	// I/O Optimized usage type differs, so the catalog doc no longer matches and the io_price column is used
	assert.Equal(t, 0.16, r.ACUPrice(context.Background(), models.StorageIOOptimized))
}

func TestResolverCachesResults(t *testing.T) {
	catalog := &fakeCatalog{docs: []string{onDemandDoc}}
	r := newResolver(catalog, nil)

	r.OnDemand(context.Background(), auroraQuery)
	r.OnDemand(context.Background(), auroraQuery)

	miss := auroraQuery
	miss.InstanceClass = "db.r6g.xlarge"
	r.OnDemand(context.Background(), miss)
	r.OnDemand(context.Background(), miss)

	assert.Equal(t, 2, catalog.calls)
}

func TestUnmappedRegionSkipsCatalog(t *testing.T) {
	catalog := &fakeCatalog{docs: []string{onDemandDoc}}
	r := NewResolver(catalog, nil, "mars-north-1", time.Hour, zap.NewNop())

	assert.Nil(t, r.OnDemand(context.Background(), auroraQuery))
	assert.Equal(t, 0, catalog.calls)
}

func TestUsageTypePrefix(t *testing.T) {
	rds := models.PriceQuery{EngineType: models.EngineTypePostgres}

	rds.DeploymentOption = models.DeploymentReadable
	assert.Equal(t, "Multi-AZClusterUsage", usageTypePrefix(rds))
	rds.DeploymentOption = models.DeploymentMultiAZ
	assert.Equal(t, "Multi-AZUsage", usageTypePrefix(rds))
	rds.DeploymentOption = models.DeploymentSingleAZ
	assert.Equal(t, "InstanceUsage", usageTypePrefix(rds))

	assert.Equal(t, "InstanceUsage:", usageTypePrefix(auroraQuery))
}

func TestFallbackSheetSelection(t *testing.T) {
	assert.Equal(t, SheetAurora, FallbackKey{Platform: models.PlatformAurora}.Sheet())
	assert.Equal(t, SheetRDSSingleAZ, FallbackKey{Platform: models.PlatformRDS, DeploymentOption: models.DeploymentSingleAZ}.Sheet())
	assert.Equal(t, SheetRDSMultiAZReadable, FallbackKey{Platform: models.PlatformRDS, DeploymentOption: models.DeploymentReadable}.Sheet())
	assert.Equal(t, "", FallbackKey{Platform: models.PlatformRDS, DeploymentOption: "Multi-AZ DB Cluster (writer)"}.Sheet())
}

func TestLoadFallbackCSVMissingColumn(t *testing.T) {
	_, err := LoadFallbackCSV(strings.NewReader("sheet,dbinstance_class\nAurora,db.r6g.large\n"))
	assert.Error(t, err)
}

func TestSpecTable(t *testing.T) {
	table := DefaultSpecTable()

	vcpu, mem := table.Lookup("db.r6g.large")
	require.True(t, vcpu.Known())
	assert.Equal(t, 2.0, *vcpu.Value)
	assert.Equal(t, 16.0, *mem.Value)

	vcpu, mem = table.Lookup("db.z9.huge")
	assert.Equal(t, "Unknown", vcpu.String())
	assert.Equal(t, "Unknown", mem.String())
}

func TestLoadSpecTableOverride(t *testing.T) {
	table, err := LoadSpecTable(strings.NewReader(`{"db.custom.large": {"vcpu": 3, "memory": 7.5}}`))
	require.NoError(t, err)

	vcpu, mem := table.Lookup("db.custom.large")
	assert.Equal(t, "3", vcpu.String())
	assert.Equal(t, "7.5", mem.String())
	assert.Equal(t, 1, table.Len())
}

func TestParseS3URL(t *testing.T) {
	bucket, key, ok := parseS3URL("s3://central-bucket/reference/instance_specifications.json")
	assert.True(t, ok)
	assert.Equal(t, "central-bucket", bucket)
	assert.Equal(t, "reference/instance_specifications.json", key)

	_, _, ok = parseS3URL("reference/rds_aurora_pricing.csv")
	assert.False(t, ok)
}

func TestPriceCacheExpiry(t *testing.T) {
	cache := NewPriceCache(time.Millisecond)
	price := 1.5
	cache.Set("k", &price)

	got, ok := cache.Get("k")
	require.True(t, ok)
	assert.Equal(t, 1.5, *got)

	time.Sleep(5 * time.Millisecond)
	_, ok = cache.Get("k")
	assert.False(t, ok)
}

package pricing

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/opscart/rds-metrics-collector/pkg/models"
)

// Fallback table sheets
const (
	SheetAurora             = "Aurora"
	SheetRDSSingleAZ        = "RDS-SingleAZ"
	SheetRDSMultiAZ         = "RDS-MultiAZ"
	SheetRDSMultiAZReadable = "RDS-MultiAZreadable"
)

var fallbackColumns = []string{"sheet", "dbinstance_class", "aws_region", "instance_pricing", "standard_price", "io_price"}

// FallbackKey identifies one reference price
type FallbackKey struct {
	Platform         string
	InstanceClass    string
	Region           string
	DeploymentOption string
	StorageType      string
	Kind             models.PriceKind
}

// Sheet picks the reference sheet for the key, "" when none applies
func (k FallbackKey) Sheet() string {
	switch k.Platform {
	case models.PlatformAurora:
		return SheetAurora
	case models.PlatformRDS:
		switch k.DeploymentOption {
		case models.DeploymentSingleAZ:
			return SheetRDSSingleAZ
		case models.DeploymentMultiAZ:
			return SheetRDSMultiAZ
		case models.DeploymentReadable:
			return SheetRDSMultiAZReadable
		}
	}
	return ""
}

type fallbackRow struct {
	standardPrice float64
	ioPrice       float64
}

type rowKey struct {
	sheet, class, region string
	kind                 models.PriceKind
}

// FallbackTable is the reference price table used when the catalog has no match
type FallbackTable struct {
	rows map[rowKey]fallbackRow
}

// LoadFallbackCSV reads a table with columns
// sheet,dbinstance_class,aws_region,instance_pricing,standard_price,io_price
func LoadFallbackCSV(r io.Reader) (*FallbackTable, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read fallback header: %w", err)
	}
	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, col := range fallbackColumns {
		if _, ok := index[col]; !ok {
			return nil, fmt.Errorf("fallback table missing column %q", col)
		}
	}

	table := &FallbackTable{rows: make(map[rowKey]fallbackRow)}
	line := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("failed to read fallback line %d: %w", line, err)
		}

		key := rowKey{
			sheet:  record[index["sheet"]],
			class:  record[index["dbinstance_class"]],
			region: record[index["aws_region"]],
			kind:   models.PriceKind(record[index["instance_pricing"]]),
		}
		row := fallbackRow{
			standardPrice: parsePrice(record[index["standard_price"]]),
			ioPrice:       parsePrice(record[index["io_price"]]),
		}
		// First row wins, as with a filtered sheet
		if _, exists := table.rows[key]; !exists {
			table.rows[key] = row
		}
	}

	return table, nil
}

// Len is the number of distinct price rows
func (t *FallbackTable) Len() int {
	return len(t.rows)
}

// Lookup returns the reference price or nil. A zero price counts as a miss.
func (t *FallbackTable) Lookup(key FallbackKey) *float64 {
	if t == nil {
		return nil
	}
	sheet := key.Sheet()
	if sheet == "" {
		return nil
	}

	row, ok := t.rows[rowKey{sheet: sheet, class: key.InstanceClass, region: key.Region, kind: key.Kind}]
	if !ok {
		return nil
	}

	price := row.standardPrice
	if key.Platform == models.PlatformAurora && key.StorageType != models.StorageStandard {
		price = row.ioPrice
	}
	if !(price > 0) || math.IsInf(price, 0) {
		return nil
	}
	return &price
}

// parsePrice reads a price cell, anything unparsable or non-finite is 0
func parsePrice(raw string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

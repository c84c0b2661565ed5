package pricing

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
)

// PriceListItem is one product document of the AWS Price List API
type PriceListItem struct {
	Product struct {
		Attributes map[string]string `json:"attributes"`
	} `json:"product"`
	Terms struct {
		OnDemand map[string]Term `json:"OnDemand"`
		Reserved map[string]Term `json:"Reserved"`
	} `json:"terms"`
}

// Term is an offer term with its price dimensions
type Term struct {
	TermAttributes  map[string]string         `json:"termAttributes"`
	PriceDimensions map[string]PriceDimension `json:"priceDimensions"`
}

// PriceDimension is a single billable rate
type PriceDimension struct {
	Unit         string            `json:"unit"`
	Description  string            `json:"description"`
	PricePerUnit map[string]string `json:"pricePerUnit"`
}

// ParsePriceListItem decodes one price list document
func ParsePriceListItem(doc string) (PriceListItem, error) {
	var item PriceListItem
	if err := json.Unmarshal([]byte(doc), &item); err != nil {
		return item, fmt.Errorf("failed to decode price list item: %w", err)
	}
	return item, nil
}

// Attribute returns a product attribute or ""
func (p PriceListItem) Attribute(name string) string {
	return p.Product.Attributes[name]
}

// USD parses the USD rate of a dimension, non-finite rates are rejected
func (d PriceDimension) USD() (float64, bool) {
	raw, ok := d.PricePerUnit["USD"]
	if !ok {
		return 0, false
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// sortedTerms iterates terms in key order so lookups are deterministic
func sortedTerms(terms map[string]Term) []Term {
	keys := make([]string, 0, len(terms))
	for k := range terms {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]Term, 0, len(keys))
	for _, k := range keys {
		out = append(out, terms[k])
	}
	return out
}

func (t Term) sortedDimensions() []PriceDimension {
	keys := make([]string, 0, len(t.PriceDimensions))
	for k := range t.PriceDimensions {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]PriceDimension, 0, len(keys))
	for _, k := range keys {
		out = append(out, t.PriceDimensions[k])
	}
	return out
}

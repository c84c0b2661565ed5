package pricing

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"

	"github.com/opscart/rds-metrics-collector/pkg/models"
)

//go:embed data/instance_specifications.json
var defaultSpecs []byte

// InstanceSpec is the vCPU and memory of one instance class
type InstanceSpec struct {
	VCPU   float64 `json:"vcpu"`
	Memory float64 `json:"memory"`
}

// SpecTable maps instance classes to their specifications
type SpecTable struct {
	specs map[string]InstanceSpec
}

// DefaultSpecTable returns the built-in table
func DefaultSpecTable() *SpecTable {
	table, err := LoadSpecTable(bytes.NewReader(defaultSpecs))
	if err != nil {
		panic(fmt.Sprintf("embedded instance specifications are invalid: %v", err))
	}
	return table
}

// LoadSpecTable reads {"db.r6g.large": {"vcpu": 2, "memory": 16}, ...}
func LoadSpecTable(r io.Reader) (*SpecTable, error) {
	specs := make(map[string]InstanceSpec)
	if err := json.NewDecoder(r).Decode(&specs); err != nil {
		return nil, fmt.Errorf("failed to decode instance specifications: %w", err)
	}
	return &SpecTable{specs: specs}, nil
}

// Lookup returns Unknown capacities for classes missing from the table
func (s *SpecTable) Lookup(instanceClass string) (models.Capacity, models.Capacity) {
	spec, ok := s.specs[instanceClass]
	if !ok {
		return models.UnknownCapacity, models.UnknownCapacity
	}
	return models.CapacityOf(spec.VCPU), models.CapacityOf(spec.Memory)
}

// Len is the number of known classes
func (s *SpecTable) Len() int {
	return len(s.specs)
}

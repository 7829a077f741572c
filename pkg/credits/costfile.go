package credits

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// CostFile is a live-cost export keyed by user ID.
//
//	costs:
//	  17: 42.10
//	  23: 101.5
type CostFile struct {
	Costs map[int64]float64 `yaml:"costs"`
}

// LoadCostFile reads and validates a live-cost YAML file.
func LoadCostFile(path string) (map[int64]float64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read cost file: %w", err)
	}

	var f CostFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse cost file: %w", err)
	}
	for id, cost := range f.Costs {
		if err := ValidateCost(cost); err != nil {
			return nil, fmt.Errorf("cost file user %d: %w", id, err)
		}
	}
	if f.Costs == nil {
		f.Costs = map[int64]float64{}
	}
	return f.Costs, nil
}

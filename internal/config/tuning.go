package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/danja/semem-sub000/internal/search"
)

// LoadTuning reads a YAML overlay for the search tuning constants.
// An empty path returns the stock tuning; fields absent from the file
// keep their defaults.
func LoadTuning(path string) (search.Tuning, error) {
	tuning := search.DefaultTuning()
	if path == "" {
		return tuning, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return tuning, fmt.Errorf("read tuning file: %w", err)
	}
	if err := yaml.Unmarshal(data, &tuning); err != nil {
		return tuning, fmt.Errorf("parse tuning file %s: %w", path, err)
	}
	return tuning, nil
}

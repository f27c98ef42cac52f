package config

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Marshal renders v as YAML, or as indented JSON when asJSON is set.
func Marshal(v any, asJSON bool) ([]byte, error) {
	if asJSON {
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("failed to encode config: %w", err)
		}
		return append(data, '\n'), nil
	}
	data, err := yaml.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode config: %w", err)
	}
	return data, nil
}

package config

import (
	"encoding/json"
	"errors"

	"gopkg.in/yaml.v3"
)

// FromYAML converts a YAML config document to the JSON form published by
// the service.
func FromYAML(raw []byte) ([]byte, error) {
	var m map[string]any
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return nil, errors.Join(ErrNotMap, err)
	}
	if m == nil {
		return nil, ErrNotMap
	}
	return json.Marshal(m)
}

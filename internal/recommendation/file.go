package recommendation

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type fileFormat struct {
	Treatments []Treatment `yaml:"treatments"`
}

// LoadFile reads a YAML treatment table:
//
//	treatments:
//	  - key: apple_scab
//	    text: Apply preventive fungicide sprays...
//
// Entries keep file order, which drives the crop-prefix fallback.
func LoadFile(path string) (*Resolver, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read treatments %s: %w", path, err)
	}
	var f fileFormat
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse treatments: %w", err)
	}
	if len(f.Treatments) == 0 {
		return nil, fmt.Errorf("treatments file %s has no entries", path)
	}
	return NewResolver(f.Treatments), nil
}

// Load returns the resolver for path when set, otherwise the built-in one.
func Load(path string) (*Resolver, error) {
	if path == "" {
		return Default(), nil
	}
	return LoadFile(path)
}

package catalog

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type fileFormat struct {
	Models []Descriptor `yaml:"models"`
}

// LoadFile reads a YAML model table, e.g.
//
//	models:
//	  - id: model1
//	    name: Multi-Crop Analysis
//	    artifact: model1_multicrop.onnx
//	    input_size: {width: 224, height: 224}
//	    classes: [apple_scab, apple_healthy]
func LoadFile(path, modelFolder string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	return Parse(data, modelFolder)
}

// Parse decodes a YAML model table.
func Parse(data []byte, modelFolder string) (*Catalog, error) {
	var f fileFormat
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	return Build(modelFolder, f.Models)
}

// Load returns the table from path when set, otherwise the built-in one.
func Load(path, modelFolder string) (*Catalog, error) {
	if path == "" {
		return Default(modelFolder), nil
	}
	return LoadFile(path, modelFolder)
}

// Package catalog holds the static table of classifiers the service knows about.
//
// The order of a descriptor's Classes is the contract that links a label to its
// slot in a prediction vector. It is never sorted or deduplicated.
package catalog

import (
	"errors"
	"fmt"
	"path/filepath"
)

// Tensor layouts accepted by the inference layer.
const (
	LayoutNHWC = "nhwc"
	LayoutNCHW = "nchw"
)

// Size is an input geometry in pixels.
type Size struct {
	Width  int `yaml:"width" json:"width"`
	Height int `yaml:"height" json:"height"`
}

// Descriptor describes one classifier. Values are copied, never mutated after Build.
type Descriptor struct {
	ID           string   `yaml:"id"`
	Name         string   `yaml:"name"`
	Description  string   `yaml:"description"`
	Classes      []string `yaml:"classes"`
	InputSize    Size     `yaml:"input_size"`
	Channels     int      `yaml:"channels"`
	ArtifactPath string   `yaml:"artifact"`

	InputName  string `yaml:"input_name"`
	OutputName string `yaml:"output_name"`
	Layout     string `yaml:"layout"`
}

// ClassCount is the expected length of a prediction vector from this model.
func (d Descriptor) ClassCount() int {
	return len(d.Classes)
}

// Catalog is an ordered, read-only set of descriptors.
type Catalog struct {
	order []string
	byID  map[string]Descriptor
}

var (
	ErrEmptyCatalog = errors.New("catalog has no models")
	ErrDuplicateID  = errors.New("duplicate model id")
)

// Build validates descriptors, fills defaults and resolves relative artifact
// paths against modelFolder.
func Build(modelFolder string, descriptors []Descriptor) (*Catalog, error) {
	if len(descriptors) == 0 {
		return nil, ErrEmptyCatalog
	}

	c := &Catalog{
		order: make([]string, 0, len(descriptors)),
		byID:  make(map[string]Descriptor, len(descriptors)),
	}
	for _, d := range descriptors {
		if d.ID == "" {
			return nil, fmt.Errorf("model %q: id is required", d.Name)
		}
		if _, ok := c.byID[d.ID]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateID, d.ID)
		}
		if len(d.Classes) == 0 {
			return nil, fmt.Errorf("model %s: classes are required", d.ID)
		}
		d = withDefaults(d)
		if d.Layout != LayoutNHWC && d.Layout != LayoutNCHW {
			return nil, fmt.Errorf("model %s: unsupported layout %q", d.ID, d.Layout)
		}
		if d.ArtifactPath != "" && !filepath.IsAbs(d.ArtifactPath) && modelFolder != "" {
			d.ArtifactPath = filepath.Join(modelFolder, d.ArtifactPath)
		}
		d.Classes = append([]string(nil), d.Classes...)

		c.order = append(c.order, d.ID)
		c.byID[d.ID] = d
	}
	return c, nil
}

func withDefaults(d Descriptor) Descriptor {
	if d.InputSize.Width <= 0 || d.InputSize.Height <= 0 {
		d.InputSize = Size{Width: 224, Height: 224}
	}
	if d.Channels <= 0 {
		d.Channels = 3
	}
	if d.InputName == "" {
		d.InputName = "input"
	}
	if d.OutputName == "" {
		d.OutputName = "output"
	}
	if d.Layout == "" {
		d.Layout = LayoutNHWC
	}
	if d.ArtifactPath == "" {
		d.ArtifactPath = d.ID + ".onnx"
	}
	return d
}

// Lookup returns the descriptor for id.
func (c *Catalog) Lookup(id string) (Descriptor, bool) {
	d, ok := c.byID[id]
	return d, ok
}

// IDs returns model ids in definition order.
func (c *Catalog) IDs() []string {
	return append([]string(nil), c.order...)
}

// Descriptors returns every descriptor in definition order.
func (c *Catalog) Descriptors() []Descriptor {
	out := make([]Descriptor, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.byID[id])
	}
	return out
}

func (c *Catalog) Len() int {
	return len(c.order)
}
